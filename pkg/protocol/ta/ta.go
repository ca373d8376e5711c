// Package ta implements Terminal Authentication: the reader proves it
// holds the private key matching a card-verifiable certificate chain
// rooted at the chip's trusted CVCA, binding that proof to the Chip
// Authentication session already in place. Grounded on the same
// external-collaborator-driven APDU sequencing as pkg/protocol/bac and
// pkg/protocol/ca, generalized to TA's extra certificate-push phase
// ahead of the final EXTERNAL AUTHENTICATE.
package ta

import (
	"crypto/ecdsa"
	"crypto/rsa"

	"github.com/go-emrtd/mrtdcore/pkg/card"
	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

const (
	insMSESetDST            = 0x22
	insPSOVerifyCertificate = 0x2A
	insMSESetAT             = 0x22
	insGetChallenge         = 0x84
	insExternalAuthenticate = 0x82

	tag83 = tlv.Tag(0x83)
)

// SignerRSA and SignerECDSA are the two terminal private-key shapes for
// TA's final signature.
type SignerRSA struct {
	Key     *rsa.PrivateKey
	HashAlg mrtdcrypto.HashAlg
}

type SignerECDSA struct {
	Key     *ecdsa.PrivateKey
	HashAlg mrtdcrypto.HashAlg
}

// Config parameterises one Terminal Authentication run.
type Config struct {
	// CVCertificateChain is pushed to the chip one certificate at a time
	// via PSO:Verify Certificate, root/DV/terminal-leaf order, ahead of
	// the CVCA public key the chip already trusts. Each certificate's
	// raw TR-03110 CV-certificate encoding is treated as opaque — full
	// CV-certificate parsing (a non-X.509 format distinct from the CMS
	// certificates pkg/sod handles) is out of this module's scope; the
	// APDU sequencing is complete even though this module can't inspect
	// the certificates it forwards.
	CVCertificateChain [][]byte
	KeyID              *int // 0x83 key reference selecting the terminal's ephemeral key pair

	IDPICC              []byte
	PCDEphemeralPublicKey []byte // the same key pkg/protocol/ca's PCDPublicKey returned

	RSA   *SignerRSA
	ECDSA *SignerECDSA
}

// Run executes Terminal Authentication against t. Success is the entire
// output — TA is "stateless": it neither replaces nor
// installs an SM session, only proves the terminal's authority to the
// chip so the chip will release protected data groups.
func Run(t card.Transmitter, cfg Config) error {
	for _, cert := range cfg.CVCertificateChain {
		if err := psoVerifyCertificate(t, cert); err != nil {
			return &mrtderr.ProtocolError{Protocol: "TA", Stage: "certificate-chain", Cause: err}
		}
	}

	if err := mseSetAT(t, cfg.KeyID); err != nil {
		return &mrtderr.ProtocolError{Protocol: "TA", Stage: "select-terminal-key", Cause: err}
	}

	nonce, err := getChallenge(t)
	if err != nil {
		return &mrtderr.ProtocolError{Protocol: "TA", Stage: "get-challenge", Cause: err}
	}

	hashAlg := mrtdcrypto.HashSHA256
	if cfg.RSA != nil {
		hashAlg = cfg.RSA.HashAlg
	} else if cfg.ECDSA != nil {
		hashAlg = cfg.ECDSA.HashAlg
	}
	pubKeyDigest, err := mrtdcrypto.Sum(hashAlg, cfg.PCDEphemeralPublicKey)
	if err != nil {
		return &mrtderr.ProtocolError{Protocol: "TA", Stage: "sign", Cause: err}
	}

	signedData := append(append(append([]byte{}, cfg.IDPICC...), nonce...), pubKeyDigest...)
	digest, err := mrtdcrypto.Sum(hashAlg, signedData)
	if err != nil {
		return &mrtderr.ProtocolError{Protocol: "TA", Stage: "sign", Cause: err}
	}
	signature, err := sign(cfg, digest)
	if err != nil {
		return &mrtderr.ProtocolError{Protocol: "TA", Stage: "sign", Cause: err}
	}

	if err := externalAuthenticate(t, signature); err != nil {
		return &mrtderr.ProtocolError{Protocol: "TA", Stage: "external-authenticate", Cause: err}
	}
	return nil
}

// sign signs an already-hashed digest with whichever signer cfg carries.
func sign(cfg Config, digest []byte) ([]byte, error) {
	switch {
	case cfg.RSA != nil:
		return mrtdcrypto.SignRSA(cfg.RSA.Key, cfg.RSA.HashAlg, digest)
	case cfg.ECDSA != nil:
		return mrtdcrypto.SignECDSA(cfg.ECDSA.Key, digest)
	default:
		return nil, errNoSigner
	}
}

func psoVerifyCertificate(t card.Transmitter, cert []byte) error {
	apdu := append([]byte{0x00, insPSOVerifyCertificate, 0x00, 0xBE, byte(len(cert))}, cert...)
	_, sw, err := card.Transmit(t, apdu)
	if err != nil {
		return err
	}
	if sw != card.SWSuccess {
		return &card.SWError{Ins: insPSOVerifyCertificate, SW: sw}
	}
	return nil
}

func mseSetAT(t card.Transmitter, keyID *int) error {
	var data []byte
	if keyID != nil {
		data = tlv.Primitive(tag83, []byte{byte(*keyID)}).Encode()
	}
	apdu := append([]byte{0x00, insMSESetAT, 0x81, 0xA4, byte(len(data))}, data...)
	_, sw, err := card.Transmit(t, apdu)
	if err != nil {
		return err
	}
	if sw != card.SWSuccess {
		return &card.SWError{Ins: insMSESetAT, SW: sw}
	}
	return nil
}

func getChallenge(t card.Transmitter) ([]byte, error) {
	data, sw, err := card.Transmit(t, []byte{0x00, insGetChallenge, 0x00, 0x00, 0x08})
	if err != nil {
		return nil, err
	}
	if sw != card.SWSuccess {
		return nil, &card.SWError{Ins: insGetChallenge, SW: sw}
	}
	return data, nil
}

func externalAuthenticate(t card.Transmitter, signature []byte) error {
	apdu := append([]byte{0x00, insExternalAuthenticate, 0x00, 0x00, byte(len(signature))}, signature...)
	_, sw, err := card.Transmit(t, apdu)
	if err != nil {
		return err
	}
	if sw != card.SWSuccess {
		return &card.SWError{Ins: insExternalAuthenticate, SW: sw}
	}
	return nil
}
