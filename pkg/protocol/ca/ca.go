// Package ca implements Chip Authentication: the single-round-trip
// ceremony that replaces a BAC/PACE session's key material with a fresh
// pair derived from an ECDH or DH agreement against the chip's static
// key, binding the session to a key the issuer actually signed (unlike
// BAC/PACE's password-derived keys). Grounded on the same
// "build request, one APDU, derive keys, hand back a session" shape as
// pkg/protocol/bac and pkg/protocol/pace, collapsed to CA's single
// MSE:Set KAT round trip.
package ca

import (
	"crypto/elliptic"
	"crypto/rand"
	"math/big"

	"github.com/go-emrtd/mrtdcore/pkg/card"
	"github.com/go-emrtd/mrtdcore/pkg/kdf"
	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
	"github.com/go-emrtd/mrtdcore/pkg/sm"
	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

const (
	insMSESetKAT = 0x22

	tag80 = tlv.Tag(0x80)
	tag84 = tlv.Tag(0x84)
	tag91 = tlv.Tag(0x91)
)

// ECDHKey carries the PICC's static Chip Authentication public key for
// the ECDH agreement family.
type ECDHKey struct {
	Curve string
	X, Y  *big.Int
}

// Config parameterises one Chip Authentication run.
type Config struct {
	OID      string
	KeyID    *int // optional 0x84 key reference, when the chip advertises more than one CA key
	ECDHKey  *ECDHKey
	DH       mrtdcrypto.DHParams
	DHPICCPub *big.Int
}

// Result is the new session plus the material an auditor or a
// subsequent Terminal Authentication step might need to re-verify the
// agreement.
type Result struct {
	PICCKeyID     *int
	PICCPublicKey []byte
	PCDKeyHash    []byte
	PCDPublicKey  []byte
	PCDPrivateKey []byte
	NewSMWrapper  *sm.Wrapper
}

// Run executes Chip Authentication against t, returning the replacement
// SM session. The caller is responsible for discarding its prior
// wrapper even on success, since CA always replaces the session key
// material.
func Run(t card.Transmitter, cfg Config) (*Result, error) {
	params, err := ParseOID(cfg.OID)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "init", Cause: err}
	}

	switch params.Agreement {
	case AgreementECDH:
		return runECDH(t, cfg, params)
	case AgreementDH:
		return runDH(t, cfg, params)
	default:
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "init", Cause: &mrtderr.UnsupportedAlgorithm{OID: cfg.OID}}
	}
}

func runECDH(t card.Transmitter, cfg Config, params Params) (*Result, error) {
	if cfg.ECDHKey == nil {
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "init", Cause: errMissingPICCKey}
	}
	curve, err := mrtdcrypto.EllipticCurve(cfg.ECDHKey.Curve)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "init", Cause: err}
	}

	pcdPriv := make([]byte, (curve.Params().BitSize+7)/8)
	if _, err := rand.Read(pcdPriv); err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "init", Cause: err}
	}
	pcdPubX, pcdPubY := curve.ScalarBaseMult(pcdPriv)
	pcdPub := marshalPoint(curve, pcdPubX, pcdPubY)

	sharedX, _ := curve.ScalarMult(cfg.ECDHKey.X, cfg.ECDHKey.Y, pcdPriv)
	kseed := fixedLengthBytes(sharedX, curve)

	result, err := deriveAndSend(t, params.Cipher, kseed, pcdPub, cfg.KeyID)
	if err != nil {
		return nil, err
	}
	result.PICCPublicKey = marshalPoint(curve, cfg.ECDHKey.X, cfg.ECDHKey.Y)
	result.PCDPublicKey = pcdPub
	result.PCDPrivateKey = pcdPriv
	return result, nil
}

func runDH(t card.Transmitter, cfg Config, params Params) (*Result, error) {
	if cfg.DHPICCPub == nil || cfg.DH.P == nil {
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "init", Cause: errMissingPICCKey}
	}
	pcdPriv, pcdPub, err := mrtdcrypto.GenerateDH(cfg.DH)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "init", Cause: err}
	}
	shared := mrtdcrypto.SharedDH(cfg.DH, pcdPriv, cfg.DHPICCPub)
	kseed := fixedLengthBytesMod(shared, cfg.DH.P)
	pcdPubBytes := fixedLengthBytesMod(pcdPub, cfg.DH.P)

	result, err := deriveAndSend(t, params.Cipher, kseed, pcdPubBytes, cfg.KeyID)
	if err != nil {
		return nil, err
	}
	result.PICCPublicKey = fixedLengthBytesMod(cfg.DHPICCPub, cfg.DH.P)
	result.PCDPublicKey = pcdPubBytes
	result.PCDPrivateKey = fixedLengthBytesMod(pcdPriv, cfg.DH.P)
	return result, nil
}

// deriveAndSend derives session keys from kseed, sends MSE:Set KAT
// carrying the PCD's ephemeral public key, and builds the replacement
// SM wrapper.
func deriveAndSend(t card.Transmitter, cipher mrtdcrypto.Cipher, kseed, pcdPub []byte, keyID *int) (*Result, error) {
	kenc, err := kdf.DeriveKey(cipher, kseed, kdf.CounterEncryption)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "key-agreement", Cause: err}
	}
	kmac, err := kdf.DeriveKey(cipher, kseed, kdf.CounterMAC)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "key-agreement", Cause: err}
	}
	pcdKeyHash, err := mrtdcrypto.Sum(mrtdcrypto.HashSHA256, pcdPub)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "key-agreement", Cause: err}
	}

	data := tlv.Primitive(tag91, pcdPub).Encode()
	if keyID != nil {
		data = append(data, tlv.Primitive(tag84, big.NewInt(int64(*keyID)).Bytes()).Encode()...)
	}
	apdu := append([]byte{0x00, insMSESetKAT, 0x41, 0xA6, byte(len(data))}, data...)
	_, sw, err := card.Transmit(t, apdu)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "mse-set-kat", Cause: err}
	}
	if sw != card.SWSuccess {
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "mse-set-kat", Cause: &card.SWError{Ins: insMSESetKAT, SW: sw}}
	}

	mode, ok := sm.ModeForCipher(cipher)
	if !ok {
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "key-agreement", Cause: &mrtderr.UnsupportedAlgorithm{OID: "CA cipher"}}
	}
	suite, _ := sm.SuiteFor(mode)
	wrapper, err := sm.NewWrapper(mode, kenc, kmac, make([]byte, suite.SSCSize))
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "CA", Stage: "key-agreement", Cause: err}
	}

	return &Result{PICCKeyID: keyID, PCDKeyHash: pcdKeyHash, NewSMWrapper: wrapper}, nil
}

func marshalPoint(curve elliptic.Curve, x, y *big.Int) []byte {
	//nolint:staticcheck // SEC1 uncompressed point encoding; see DESIGN.md
	return elliptic.Marshal(curve, x, y)
}

func fixedLengthBytes(v *big.Int, curve elliptic.Curve) []byte {
	size := (curve.Params().BitSize + 7) / 8
	return padBigEndian(v, size)
}

func fixedLengthBytesMod(v, p *big.Int) []byte {
	size := (p.BitLen() + 7) / 8
	return padBigEndian(v, size)
}

func padBigEndian(v *big.Int, size int) []byte {
	b := v.Bytes()
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
