package mrtdcrypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"

	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// SignRSA produces a PKCS#1 v1.5 signature over digest (already hashed
// under alg) — the scheme Active Authentication and most document signer
// certificates use.
func SignRSA(priv *rsa.PrivateKey, alg HashAlg, digest []byte) ([]byte, error) {
	h, err := cryptoHash(alg)
	if err != nil {
		return nil, err
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, h, digest)
	if err != nil {
		return nil, &mrtderr.CryptoFailed{Stage: "RSA sign", Cause: err}
	}
	return sig, nil
}

// VerifyRSA checks a PKCS#1 v1.5 signature.
func VerifyRSA(pub *rsa.PublicKey, alg HashAlg, digest, sig []byte) error {
	h, err := cryptoHash(alg)
	if err != nil {
		return err
	}
	if err := rsa.VerifyPKCS1v15(pub, h, digest, sig); err != nil {
		return &mrtderr.SignatureInvalid{Cause: err}
	}
	return nil
}

// SignRSAPSS produces an RSASSA-PSS signature over digest, using the
// digest's own size as the PSS salt length — the DSC profile most
// RSASSA-PSS document signer certificates specify.
func SignRSAPSS(priv *rsa.PrivateKey, alg HashAlg, digest []byte) ([]byte, error) {
	h, err := cryptoHash(alg)
	if err != nil {
		return nil, err
	}
	sig, err := rsa.SignPSS(rand.Reader, priv, h, digest, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	if err != nil {
		return nil, &mrtderr.CryptoFailed{Stage: "RSA-PSS sign", Cause: err}
	}
	return sig, nil
}

// VerifyRSAPSS checks an RSASSA-PSS signature.
func VerifyRSAPSS(pub *rsa.PublicKey, alg HashAlg, digest, sig []byte) error {
	h, err := cryptoHash(alg)
	if err != nil {
		return err
	}
	if err := rsa.VerifyPSS(pub, h, digest, sig, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash}); err != nil {
		return &mrtderr.SignatureInvalid{Cause: err}
	}
	return nil
}

// SignECDSA produces an ASN.1 DER ECDSA signature over digest.
func SignECDSA(priv *ecdsa.PrivateKey, digest []byte) ([]byte, error) {
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest)
	if err != nil {
		return nil, &mrtderr.CryptoFailed{Stage: "ECDSA sign", Cause: err}
	}
	return sig, nil
}

// VerifyECDSA checks an ASN.1 DER ECDSA signature.
func VerifyECDSA(pub *ecdsa.PublicKey, digest, sig []byte) error {
	if !ecdsa.VerifyASN1(pub, digest, sig) {
		return &mrtderr.SignatureInvalid{Cause: nil}
	}
	return nil
}

func cryptoHash(alg HashAlg) (crypto.Hash, error) {
	switch alg {
	case HashSHA1:
		return crypto.SHA1, nil
	case HashSHA224:
		return crypto.SHA224, nil
	case HashSHA256:
		return crypto.SHA256, nil
	case HashSHA384:
		return crypto.SHA384, nil
	case HashSHA512:
		return crypto.SHA512, nil
	case HashSHA3_256:
		return crypto.SHA3_256, nil
	case HashSHA3_384:
		return crypto.SHA3_384, nil
	case HashSHA3_512:
		return crypto.SHA3_512, nil
	default:
		return 0, &mrtderr.UnsupportedAlgorithm{OID: string(alg)}
	}
}
