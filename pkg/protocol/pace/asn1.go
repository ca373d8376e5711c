package pace

import (
	"encoding/asn1"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// parseOIDInts parses a dotted OID string ("0.4.0.127...") into
// asn1.ObjectIdentifier's []int representation.
func parseOIDInts(oid string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(oid, ".")
	ints := make(asn1.ObjectIdentifier, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.Wrapf(err, "parse OID arc %q", p)
		}
		ints[i] = n
	}
	return ints, nil
}

// asn1MarshalOID DER-encodes an OID as a complete `06 len bytes` TLV,
// the form MSE:Set AT's tag-80 data object carries.
func asn1MarshalOID(oid asn1.ObjectIdentifier) ([]byte, error) {
	out, err := asn1.Marshal(oid)
	if err != nil {
		return nil, errors.Wrap(err, "DER-encode PACE protocol OID")
	}
	return out, nil
}
