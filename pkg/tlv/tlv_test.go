package tlv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
	}{
		{"primitive short form", []byte{0x5F, 0x1F, 0x03, 0x01, 0x02, 0x03}},
		{"primitive long form", append([]byte{0x04, 0x81, 0x82}, make([]byte, 0x82)...)},
		{"nested constructed", []byte{
			0x61, 0x0A,
			0x5F, 0x1F, 0x03, 0x01, 0x02, 0x03,
			0x5F, 0x36, 0x01, 0x01,
		}},
		{"two-octet ICAO tag", []byte{
			0x7F, 0x61, 0x06,
			0x02, 0x01, 0x01,
			0x7F, 0x60, 0x00,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			node, err := DecodeOne(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.raw, node.Encode())
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	_, _, err := Decode([]byte{0x61, 0x05, 0x01, 0x02})
	require.Error(t, err)
}

func TestNodeFind(t *testing.T) {
	n := Constructed(TagCOM,
		Primitive(0x5F01, []byte{0x01}),
		Primitive(0x5F02, []byte{0x02}),
	)
	child, ok := n.Find(Tag(0x5F02).AsPrimitive())
	require.True(t, ok)
	assert.Equal(t, []byte{0x02}, child.Value)

	_, ok = n.Find(Tag(0x5F99))
	assert.False(t, ok)
}

func TestReaderSkipToAndConstructed(t *testing.T) {
	raw := []byte{
		0x5F, 0x01, 0x01, 0xAA, // a leading field not of interest
		0x7F, 0x61, 0x03, // constructed group of interest
		0x02, 0x01, 0x01, // a nested primitive
	}
	r := NewReader(raw)
	require.NoError(t, r.SkipTo(Tag(0x7F61)))

	tag, sub, err := r.ReadConstructed()
	require.NoError(t, err)
	assert.Equal(t, Tag(0x7F61), tag)

	inner, err := sub.ReadNode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, inner.Value)
	assert.Equal(t, 0, sub.Len())
	assert.Equal(t, 0, r.Len())
}

func TestWriterNesting(t *testing.T) {
	w := NewWriter()
	w.WriteTag(TagCOM)
	w.WriteTag(Tag(0x5F01))
	w.WriteValue([]byte{0x01, 0x07, 0x00, 0x07, 0x00})
	w.ValueEnd()
	w.WriteTag(Tag(0x5F36))
	w.WriteValue([]byte{0x01})
	w.ValueEnd()
	w.ValueEnd()

	node, err := DecodeOne(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, TagCOM, node.Tag)
	require.Len(t, node.Children, 2)
	assert.Equal(t, []byte{0x01, 0x07, 0x00, 0x07, 0x00}, node.Children[0].Value)
	assert.Equal(t, []byte{0x01}, node.Children[1].Value)
}

func TestWriterUnclosedPanics(t *testing.T) {
	w := NewWriter()
	w.WriteTag(TagCOM)
	assert.Panics(t, func() { w.Bytes() })
}
