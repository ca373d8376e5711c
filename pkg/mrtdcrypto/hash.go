package mrtdcrypto

import (
	"crypto/sha1" //nolint:gosec // Doc 9303 SecurityInfos still name SHA-1 for legacy BAC-era profiles
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/sha3"

	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// HashAlg identifies a Doc 9303 digest algorithm by name ("SHA1",
// "SHA256", "SHA3-256", ...). pkg/sod and pkg/kdf look digests up by this
// type rather than by OID string, and the name is what
// UnsupportedAlgorithm reports when a lookup misses.
type HashAlg string

const (
	HashSHA1   HashAlg = "SHA1"
	HashSHA224 HashAlg = "SHA224"
	HashSHA256 HashAlg = "SHA256"
	HashSHA384 HashAlg = "SHA384"
	HashSHA512 HashAlg = "SHA512"
	HashSHA3_256 HashAlg = "SHA3-256"
	HashSHA3_384 HashAlg = "SHA3-384"
	HashSHA3_512 HashAlg = "SHA3-512"
)

// NewHash returns a fresh hash.Hash for alg. SHA-3 variants are served by
// golang.org/x/crypto/sha3, the same package remiblancher-qpki's CMS
// signer uses for its non-legacy digest algorithm set — the rest come
// from stdlib, which already covers the SHA-1/2 family completely.
func NewHash(alg HashAlg) (hash.Hash, error) {
	switch alg {
	case HashSHA1:
		return sha1.New(), nil
	case HashSHA224:
		return sha256.New224(), nil
	case HashSHA256:
		return sha256.New(), nil
	case HashSHA384:
		return sha512.New384(), nil
	case HashSHA512:
		return sha512.New(), nil
	case HashSHA3_256:
		return sha3.New256(), nil
	case HashSHA3_384:
		return sha3.New384(), nil
	case HashSHA3_512:
		return sha3.New512(), nil
	default:
		return nil, &mrtderr.UnsupportedAlgorithm{OID: string(alg)}
	}
}

// Sum hashes data under alg in one call.
func Sum(alg HashAlg, data []byte) ([]byte, error) {
	h, err := NewHash(alg)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}
