package pace

import (
	"strings"

	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// Mapping names one of the three PACE mapping functions (generic, integrated, Chip Authentication).
type Mapping string

const (
	MappingGM  Mapping = "GM"
	MappingIM  Mapping = "IM"
	MappingCAM Mapping = "CAM"
)

// Agreement names the key-agreement family the mapped domain parameters
// carry forward into PACE's second key-agreement round.
type Agreement string

const (
	AgreementDH   Agreement = "DH"
	AgreementECDH Agreement = "ECDH"
)

// Params is what a PACE OID (the ICAO `0.4.0.127.0.7.2.2.4.{1..6}.{1..4}`
// family) resolves to: which mapping, which key-agreement family, which
// cipher suite.
type Params struct {
	Mapping   Mapping
	Agreement Agreement
	Cipher    mrtdcrypto.Cipher
}

const paceArc = "0.4.0.127.0.7.2.2.4."

// mappingBranch and cipherSuffix tables mirror the branch layout Doc 9303
// Part 11 defines under the PACE arc: branch 1/2 is DH/ECDH Generic
// Mapping, 3/4 is DH/ECDH Integrated Mapping, 5/6 is DH/ECDH
// Chip-Authentication Mapping; the final arc component selects the cipher
// suite (1=3DES-CBC-CBC, 2/3/4=AES-CBC-CMAC-128/192/256). IM and CAM have
// no 3DES branch in the standard; ParseOID rejects that combination.
var mappingBranch = map[string]struct {
	mapping   Mapping
	agreement Agreement
}{
	"1": {MappingGM, AgreementDH},
	"2": {MappingGM, AgreementECDH},
	"3": {MappingIM, AgreementDH},
	"4": {MappingIM, AgreementECDH},
	"5": {MappingCAM, AgreementDH},
	"6": {MappingCAM, AgreementECDH},
}

var cipherSuffix = map[string]mrtdcrypto.Cipher{
	"1": mrtdcrypto.Cipher3DES,
	"2": mrtdcrypto.CipherAES128,
	"3": mrtdcrypto.CipherAES192,
	"4": mrtdcrypto.CipherAES256,
}

// ParseOID resolves a dotted PACE protocol OID into its Params.
func ParseOID(oid string) (Params, error) {
	if !strings.HasPrefix(oid, paceArc) {
		return Params{}, &mrtderr.UnsupportedAlgorithm{OID: oid}
	}
	rest := strings.TrimPrefix(oid, paceArc)
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 {
		return Params{}, &mrtderr.UnsupportedAlgorithm{OID: oid}
	}
	branch, ok := mappingBranch[parts[0]]
	if !ok {
		return Params{}, &mrtderr.UnsupportedAlgorithm{OID: oid}
	}
	cipher, ok := cipherSuffix[parts[1]]
	if !ok {
		return Params{}, &mrtderr.UnsupportedAlgorithm{OID: oid}
	}
	if cipher == mrtdcrypto.Cipher3DES && branch.mapping != MappingGM {
		return Params{}, &mrtderr.UnsupportedAlgorithm{OID: oid}
	}
	return Params{Mapping: branch.mapping, Agreement: branch.agreement, Cipher: cipher}, nil
}
