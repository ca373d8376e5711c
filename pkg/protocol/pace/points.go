package pace

import (
	"crypto/elliptic"
	"math/big"
)

// marshalPoint encodes a point in SEC1 uncompressed form, the same
// elliptic.Marshal call remiblancher-qpki and cunicu-go-piv use for
// EC public keys elsewhere in the pack.
func marshalPoint(curve elliptic.Curve, x, y *big.Int) []byte {
	//nolint:staticcheck // SEC1 uncompressed point encoding; see DESIGN.md
	return elliptic.Marshal(curve, x, y)
}

func unmarshalPoint(curve elliptic.Curve, data []byte) (x, y *big.Int, err error) {
	//nolint:staticcheck
	x, y = elliptic.Unmarshal(curve, data)
	if x == nil {
		return nil, nil, errMissingDO
	}
	return x, y, nil
}

// fixedLengthBytes renders v as a big-endian byte string padded to the
// curve's field-element width — the shared-secret encoding PACE's KDF
// input requires, since big.Int.Bytes alone drops leading zero bytes.
func fixedLengthBytes(v *big.Int, curve elliptic.Curve) []byte {
	size := (curve.Params().BitSize + 7) / 8
	b := v.Bytes()
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
