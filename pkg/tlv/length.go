package tlv

import (
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// encodeLength returns the BER length octets for n: short form for n<128,
// long form (0x80|k leading octets followed by k big-endian length octets)
// otherwise. The writer here never emits the indefinite form (0x80 alone) —
// canonical output is always definite-length.
func encodeLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var be []byte
	for v := n; v > 0; v >>= 8 {
		be = append([]byte{byte(v)}, be...)
	}
	return append([]byte{0x80 | byte(len(be))}, be...)
}

// decodeLength reads a BER length field starting at data[0]. It returns the
// decoded length, the number of octets consumed, and whether the field used
// the indefinite form (0x80) — indefinite length is only tolerated on read
// of constructed values, and the caller is responsible for
// enforcing that restriction.
func decodeLength(data []byte) (n int, consumed int, indefinite bool, err error) {
	if len(data) == 0 {
		return 0, 0, false, &mrtderr.MalformedTLV{Reason: "truncated length"}
	}
	first := data[0]
	if first&0x80 == 0 {
		return int(first), 1, false, nil
	}
	if first == 0x80 {
		return 0, 1, true, nil
	}
	k := int(first & 0x7F)
	if k == 0 || len(data) < 1+k {
		return 0, 0, false, &mrtderr.MalformedTLV{Reason: "truncated long-form length"}
	}
	n = 0
	for i := 0; i < k; i++ {
		n = n<<8 | int(data[1+i])
	}
	return n, 1 + k, false, nil
}
