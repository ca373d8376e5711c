package aa

import (
	"bytes"
	"crypto/rsa"
	"fmt"
	"math/big"

	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// verifyISO9796 checks an ISO/IEC 9796-2 scheme 1 signature with message
// recovery, the scheme Doc 9303 Active Authentication's RSA variant uses
// for its 8-byte challenge. No library in this module's pack (nor stdlib
// crypto/rsa, which only implements PKCS#1 v1.5 and PSS) covers scheme
// 1, so the digest-recovery arithmetic is hand-rolled directly over the
// public key's raw RSA operation — the one signature scheme in this
// module implemented from scratch rather than delegated to crypto/rsa,
// recorded as a justified stdlib exception in DESIGN.md.
func verifyISO9796(pub *rsa.PublicKey, challenge, sig []byte) error {
	k := (pub.N.BitLen() + 7) / 8
	if len(sig) != k {
		return &mrtderr.CryptoFailed{Stage: "ISO9796-2 verify", Cause: fmt.Errorf("signature length %d != modulus length %d", len(sig), k)}
	}
	s := new(big.Int).SetBytes(sig)
	e := big.NewInt(int64(pub.E))
	recovered := new(big.Int).Exp(s, e, pub.N).Bytes()
	ir := make([]byte, k)
	copy(ir[k-len(recovered):], recovered)

	if ir[k-1] != 0xBC {
		return &mrtderr.SignatureInvalid{Cause: fmt.Errorf("bad ISO9796-2 trailer byte %#02x", ir[k-1])}
	}
	if ir[0]&0xF0 != 0x60 {
		return &mrtderr.SignatureInvalid{Cause: fmt.Errorf("bad ISO9796-2 header nibble %#02x", ir[0])}
	}

	const digestSize = 20 // SHA-1
	if k < 2+digestSize {
		return &mrtderr.SignatureInvalid{Cause: fmt.Errorf("modulus too short for ISO9796-2 with SHA-1")}
	}
	recoveredM1 := ir[1 : k-1-digestSize]
	recoveredDigest := ir[k-1-digestSize : k-1]

	m1 := alignedChallenge(challenge, len(recoveredM1))
	if !bytes.Equal(recoveredM1, m1) {
		return &mrtderr.SignatureInvalid{Cause: fmt.Errorf("recovered message does not match challenge")}
	}

	expectedDigest, err := mrtdcrypto.Sum(mrtdcrypto.HashSHA1, challenge)
	if err != nil {
		return err
	}
	if !bytes.Equal(recoveredDigest, expectedDigest) {
		return &mrtderr.SignatureInvalid{Cause: fmt.Errorf("recovered digest does not match SHA1(challenge)")}
	}
	return nil
}

// alignedChallenge returns challenge left-padded or truncated to
// exactly n bytes, matching how the recoverable field M1 is positioned
// relative to an 8-byte challenge once the modulus size is known.
func alignedChallenge(challenge []byte, n int) []byte {
	if n >= len(challenge) {
		out := make([]byte, n)
		copy(out[n-len(challenge):], challenge)
		return out
	}
	return challenge[:n]
}
