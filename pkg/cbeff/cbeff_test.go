package cbeff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

func sampleBIT() BIT {
	return BIT{
		Header: Header{
			TemplateTag: tlv.Tag(0xA1),
			Fields: []HeaderField{
				{Tag: tlv.Tag(0x80), Value: []byte{0x01}}, // format owner
				{Tag: tlv.Tag(0x81), Value: []byte{0x00, 0x01}}, // format type
			},
		},
		BDB: BDB{Tag: TagBDBPrimitive, Data: []byte("FAC\x00010\x00fake-face-record")},
	}
}

func TestBITGroupRoundTrip(t *testing.T) {
	bits := []BIT{sampleBIT()}
	encoded := EncodeBITGroup(bits)

	decoded, err := DecodeBITGroup(encoded)
	require.NoError(t, err)
	assert.Equal(t, bits, decoded)

	assert.Equal(t, encoded, EncodeBITGroup(decoded))
}

func TestBITGroupMultipleEntriesRoundTrip(t *testing.T) {
	a := sampleBIT()
	b := sampleBIT()
	b.BDB.Tag = TagBDBConstructed
	b.BDB.Data = []byte("39794-record-bytes")

	encoded := EncodeBITGroup([]BIT{a, b})
	decoded, err := DecodeBITGroup(encoded)
	require.NoError(t, err)
	assert.Equal(t, []BIT{a, b}, decoded)
}

func TestStaticallyProtectedBITRoundTrip(t *testing.T) {
	bit := sampleBIT()
	bit.StaticallyProtected = true

	encoded := EncodeBITGroup([]BIT{bit})
	decoded, err := DecodeBITGroup(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.True(t, decoded[0].StaticallyProtected)
	assert.Equal(t, bit.Header, decoded[0].Header)
	assert.Equal(t, bit.BDB, decoded[0].BDB)
}

func TestStaticallyProtectedEncryptedPayloadDenied(t *testing.T) {
	w := tlv.NewWriter()
	w.WriteTag(TagBITGroup)
	w.WriteTag(tlv.Tag(0x02))
	w.WriteValue([]byte{1})
	w.ValueEnd()

	w.WriteTag(TagBIT)
	w.WriteTag(tagSMT)
	w.WriteTag(tagSMTEncrypted)
	w.WriteValue([]byte{0xDE, 0xAD})
	w.ValueEnd()
	w.ValueEnd() // SMT
	w.ValueEnd() // BIT
	w.ValueEnd() // group

	_, err := DecodeBITGroup(w.Bytes())
	require.Error(t, err)
	var denied *mrtderr.AccessDenied
	assert.True(t, errors.As(err, &denied))
}

func TestInfoSimpleRoundTrip(t *testing.T) {
	bdb := BDB{Tag: TagBDBPrimitive, Data: []byte("FAC\x00010\x00fake-face-record")}
	info := Info{Complex: []Info{{Simple: &bdb}}}

	encoded := EncodeInfo(info)
	decoded, err := DecodeInfo(encoded)
	require.NoError(t, err)
	assert.Equal(t, info, decoded)
	assert.Equal(t, encoded, EncodeInfo(decoded))
}

func TestInfoComplexNestingRoundTrip(t *testing.T) {
	leafA := BDB{Tag: TagBDBPrimitive, Data: []byte("leaf-a")}
	leafB := BDB{Tag: TagBDBConstructed, Data: []byte("leaf-b")}

	nested := Info{Complex: []Info{{Simple: &leafA}, {Simple: &leafB}}}
	info := Info{Complex: []Info{nested, {Simple: &leafA}}}

	encoded := EncodeInfo(info)
	decoded, err := DecodeInfo(encoded)
	require.NoError(t, err)
	assert.Equal(t, info, decoded)
	assert.Equal(t, encoded, EncodeInfo(decoded))
}
