package ca

import (
	"strings"

	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// Agreement names the key-agreement family a Chip Authentication OID
// selects, mirroring pkg/protocol/pace's Agreement type.
type Agreement string

const (
	AgreementDH   Agreement = "DH"
	AgreementECDH Agreement = "ECDH"
)

// Params is what a CA OID (the ICAO `0.4.0.127.0.7.2.2.3.{1,2}.{1..4}`
// family) resolves to.
type Params struct {
	Agreement Agreement
	Cipher    mrtdcrypto.Cipher
}

const caArc = "0.4.0.127.0.7.2.2.3."

var agreementBranch = map[string]Agreement{
	"1": AgreementDH,
	"2": AgreementECDH,
}

var cipherSuffix = map[string]mrtdcrypto.Cipher{
	"1": mrtdcrypto.Cipher3DES,
	"2": mrtdcrypto.CipherAES128,
	"3": mrtdcrypto.CipherAES192,
	"4": mrtdcrypto.CipherAES256,
}

// ParseOID resolves a dotted Chip Authentication OID into its Params.
func ParseOID(oid string) (Params, error) {
	if !strings.HasPrefix(oid, caArc) {
		return Params{}, &mrtderr.UnsupportedAlgorithm{OID: oid}
	}
	rest := strings.TrimPrefix(oid, caArc)
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 {
		return Params{}, &mrtderr.UnsupportedAlgorithm{OID: oid}
	}
	agreement, ok := agreementBranch[parts[0]]
	if !ok {
		return Params{}, &mrtderr.UnsupportedAlgorithm{OID: oid}
	}
	cipher, ok := cipherSuffix[parts[1]]
	if !ok {
		return Params{}, &mrtderr.UnsupportedAlgorithm{OID: oid}
	}
	return Params{Agreement: agreement, Cipher: cipher}, nil
}
