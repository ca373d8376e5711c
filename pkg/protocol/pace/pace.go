// Package pace implements Password-Authenticated Connection
// Establishment: Generic Mapping, Integrated Mapping and
// Chip-Authentication Mapping, over both the DH and ECDH key-agreement
// families. Grounded on the same AuthenticateEV2First/
// AuthenticateWithFallback shape pkg/protocol/bac generalizes, extended
// with the extra mapping round BAC does not need — each PACE step is
// still "build a GENERAL AUTHENTICATE request, parse the peer's dynamic
// authentication data, advance the state" the way the teacher's
// multi-frame DESFire exchanges advance theirs one APDU at a time.
package pace

import (
	"github.com/pkg/errors"

	"github.com/go-emrtd/mrtdcore/pkg/card"
	"github.com/go-emrtd/mrtdcore/pkg/kdf"
	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
	"github.com/go-emrtd/mrtdcore/pkg/sm"
	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

type State string

const (
	StateInit                 State = "init"
	StateEncryptedNonceFetched State = "encrypted-nonce-fetched"
	StateMappingDone           State = "mapping-done"
	StateKeyAgreementDone      State = "key-agreement-done"
	StateMutualAuthenticated   State = "mutual-authenticated"
)

// PasswordType is the ICAO password reference value carried in MSE:Set AT.
type PasswordType byte

const (
	PasswordMRZ PasswordType = 0x01
	PasswordCAN PasswordType = 0x02
)

// Config parameterises one PACE run: the protocol OID, the shared
// password material, and the domain parameters for the agreement family
// the OID selects.
type Config struct {
	OID          string
	PasswordType PasswordType
	Password     []byte // raw MRZ_information string or CAN digits, not yet hashed

	// Curve names the NIST curve ("P256"/"P384"/"P521") for ECDH-family
	// OIDs. Required when Params.Agreement == AgreementECDH.
	Curve string

	// DH supplies classical finite-field domain parameters for DH-family
	// OIDs. Required when Params.Agreement == AgreementDH.
	DH mrtdcrypto.DHParams

	// CAPublicKeyHash is accepted for Chip-Authentication Mapping but is
	// not read by any step: CAM runs GM's mapping and the same mutual
	// authentication MAC input as GM.
	CAPublicKeyHash []byte
}

// Result is the outcome of a successful PACE run.
type Result struct {
	Wrapper *sm.Wrapper
}

const (
	insMSESetAT          = 0x22
	insGeneralAuthenticate = 0x86

	tag7C = tlv.Tag(0x7C)
	tag80 = tlv.Tag(0x80)
	tag81 = tlv.Tag(0x81)
	tag82 = tlv.Tag(0x82)
	tag83 = tlv.Tag(0x83)
	tag84 = tlv.Tag(0x84)
	tag85 = tlv.Tag(0x85)
	tag86 = tlv.Tag(0x86)
)

// Run executes the full PACE ceremony against t, returning the
// ready-to-use SM wrapper. Failures surface as
// ProtocolError{Protocol: "PACE", Stage: ...}.
func Run(t card.Transmitter, cfg Config) (*Result, error) {
	params, err := ParseOID(cfg.OID)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateInit), Cause: err}
	}

	seed, err := mrtdcrypto.Sum(mrtdcrypto.HashSHA1, cfg.Password)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateInit), Cause: err}
	}
	kpi, err := kdf.DeriveKey(params.Cipher, seed, kdf.CounterMappingData)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateInit), Cause: err}
	}

	if err := sendMSESetAT(t, cfg.OID, cfg.PasswordType); err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateInit), Cause: err}
	}

	nonce, err := fetchEncryptedNonce(t, params.Cipher, kpi)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateEncryptedNonceFetched), Cause: err}
	}

	switch params.Agreement {
	case AgreementECDH:
		return runECDH(t, cfg, params, kpi, nonce)
	case AgreementDH:
		return runDH(t, cfg, params, kpi, nonce)
	default:
		return nil, &mrtderr.ProtocolError{
			Protocol: "PACE", Stage: string(StateMappingDone),
			Cause: errors.Errorf("unknown agreement family %q", params.Agreement),
		}
	}
}

func sendMSESetAT(t card.Transmitter, oid string, passwordType PasswordType) error {
	oidDER, err := marshalOID(oid)
	if err != nil {
		return err
	}
	data := tlv.Primitive(tag80, oidDER).Encode()
	data = append(data, tlv.Primitive(tag83, []byte{byte(passwordType)}).Encode()...)
	apdu := append([]byte{0x00, insMSESetAT, 0xC1, 0xA4, byte(len(data))}, data...)
	_, sw, err := card.Transmit(t, apdu)
	if err != nil {
		return err
	}
	if sw != card.SWSuccess {
		return &card.SWError{Ins: insMSESetAT, SW: sw}
	}
	return nil
}

// generalAuthenticate sends one GENERAL AUTHENTICATE round carrying inner
// as the already-TLV-encoded content of the dynamic authentication data
// object (tag 7C) and returns the peer's own 7C contents.
func generalAuthenticate(t card.Transmitter, inner []byte) (tlv.Node, error) {
	body := append([]byte{byte(tag7C), byte(len(inner))}, inner...)
	apdu := append([]byte{0x00, insGeneralAuthenticate, 0x00, 0x00, byte(len(body))}, body...)
	apdu = append(apdu, 0x00)

	resp, sw, err := card.Transmit(t, apdu)
	if err != nil {
		return tlv.Node{}, err
	}
	if sw != card.SWSuccess {
		return tlv.Node{}, &card.SWError{Ins: insGeneralAuthenticate, SW: sw}
	}
	node, err := tlv.DecodeOne(resp)
	if err != nil {
		return tlv.Node{}, err
	}
	if node.Tag != tag7C.AsConstructed() {
		return tlv.Node{}, &mrtderr.UnexpectedTag{Expected: uint32(tag7C), Found: uint32(node.Tag)}
	}
	return node, nil
}

func fetchEncryptedNonce(t card.Transmitter, cipher mrtdcrypto.Cipher, kpi []byte) ([]byte, error) {
	resp, err := generalAuthenticate(t, nil)
	if err != nil {
		return nil, err
	}
	enc, ok := resp.Find(tag80)
	if !ok {
		return nil, errMissingDO
	}
	iv := make([]byte, cipher.BlockSize())
	return mrtdcrypto.CBCDecrypt(cipher, kpi, iv, enc.Value)
}

func marshalOID(oid string) ([]byte, error) {
	ints, err := parseOIDInts(oid)
	if err != nil {
		return nil, err
	}
	return asn1MarshalOID(ints)
}

// truncate8 matches pkg/sm's own truncation of a full MAC tag to the
// 8-byte form Doc 9303 uses on the wire, here for the GM/IM/CAM mutual
// authentication tokens rather than an SM DO8E.
func truncate8(mac []byte) []byte {
	if len(mac) <= 8 {
		return mac
	}
	return mac[:8]
}
