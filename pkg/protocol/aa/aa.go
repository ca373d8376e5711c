// Package aa implements Active Authentication: the reader sends an
// 8-byte challenge and the chip signs it with a private key that never
// leaves the chip, proving the chip itself (not just a cloned LDS) is
// genuine. The shortest ceremony here — one APDU, one
// verification, no session keys — grounded on the same
// "build request, one APDU, check the answer" shape as pkg/protocol/ta's
// final EXTERNAL AUTHENTICATE step, collapsed to AA's single round trip.
package aa

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"

	"github.com/go-emrtd/mrtdcore/pkg/card"
	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

const insInternalAuthenticate = 0x88

// PublicKeyRSA and PublicKeyECDSA are the two DG15 public-key shapes
// the chip's AA public key verifies Active Authentication against.
type PublicKeyRSA struct {
	Key *rsa.PublicKey
}

type PublicKeyECDSA struct {
	Key     *ecdsa.PublicKey
	HashAlg mrtdcrypto.HashAlg // the AA SecurityInfo's signature algorithm OID names this
}

// Config parameterises one Active Authentication run.
type Config struct {
	RSA   *PublicKeyRSA
	ECDSA *PublicKeyECDSA
}

// Result is the outcome of a successful run: the challenge sent and the
// chip's signature over it, kept for audit even though Run already
// verified the signature before returning.
type Result struct {
	Challenge []byte
	Signature []byte
}

// Run sends an 8-byte random challenge via INTERNAL AUTHENTICATE and
// verifies the chip's signature over it against cfg's public key. RSA
// variants use ISO/IEC 9796-2 scheme 1 digest recovery with SHA-1;
// ECDSA variants use the AA-info's named hash over the plain
// challenge.
func Run(t card.Transmitter, cfg Config) (*Result, error) {
	challenge := make([]byte, 8)
	if _, err := rand.Read(challenge); err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "AA", Stage: "challenge", Cause: err}
	}

	sig, err := internalAuthenticate(t, challenge)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "AA", Stage: "internal-authenticate", Cause: err}
	}

	if err := verify(cfg, challenge, sig); err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "AA", Stage: "verify", Cause: err}
	}
	return &Result{Challenge: challenge, Signature: sig}, nil
}

func internalAuthenticate(t card.Transmitter, challenge []byte) ([]byte, error) {
	apdu := append([]byte{0x00, insInternalAuthenticate, 0x00, 0x00, byte(len(challenge))}, challenge...)
	apdu = append(apdu, 0x00) // Le: up to 256 bytes
	data, sw, err := card.Transmit(t, apdu)
	if err != nil {
		return nil, err
	}
	if sw != card.SWSuccess {
		return nil, &card.SWError{Ins: insInternalAuthenticate, SW: sw}
	}
	return data, nil
}

// verify checks sig over challenge against cfg's key. RSA recovers an
// ISO/IEC 9796-2 digest from sig and checks it embeds SHA1(challenge);
// ECDSA hashes challenge under cfg.ECDSA.HashAlg and checks the
// signature directly.
func verify(cfg Config, challenge, sig []byte) error {
	switch {
	case cfg.RSA != nil:
		return verifyISO9796(cfg.RSA.Key, challenge, sig)
	case cfg.ECDSA != nil:
		digest, err := mrtdcrypto.Sum(cfg.ECDSA.HashAlg, challenge)
		if err != nil {
			return err
		}
		return mrtdcrypto.VerifyECDSA(cfg.ECDSA.Key, digest, sig)
	default:
		return errNoVerifier
	}
}
