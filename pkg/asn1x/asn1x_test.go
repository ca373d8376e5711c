package asn1x

import (
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderApplicationTag(t *testing.T) {
	class, tag := Application(5)
	b := NewBuilder(class, tag)
	b.AddValue(asn1.ObjectIdentifier{2, 23, 136, 1, 1, 1})
	der, err := b.Bytes()
	require.NoError(t, err)

	c := NewCursor(der)
	v, err := c.Expect(class, tag)
	require.NoError(t, err)
	assert.True(t, v.IsCompound)

	inner := Children(v)
	oidVal, err := inner.Next()
	require.NoError(t, err)
	var oid asn1.ObjectIdentifier
	_, err = asn1.Unmarshal(append([]byte{}, append(encodeHeader(oidVal), oidVal.Bytes...)...), &oid)
	require.NoError(t, err)
	assert.Equal(t, asn1.ObjectIdentifier{2, 23, 136, 1, 1, 1}, oid)
}

// encodeHeader re-derives a RawValue's own tag+length header bytes so a
// RawValue read generically by Cursor.Next can be re-unmarshalled into a
// concrete Go type without re-parsing from the original buffer.
func encodeHeader(v asn1.RawValue) []byte {
	full := v.FullBytes
	return full[:len(full)-len(v.Bytes)]
}

func TestBuilderNestedContextTag(t *testing.T) {
	class, tag := ContextTag(0)
	outer := NewBuilder(asn1.ClassUniversal, asn1.TagSequence)
	outer.AddTagged(class, tag, func(b *Builder) {
		b.AddValue(asn1.ObjectIdentifier{0, 4, 0, 127, 0, 7, 2, 2, 4, 2, 2})
	})
	der, err := outer.Bytes()
	require.NoError(t, err)

	c := NewCursor(der)
	seq, err := c.Expect(asn1.ClassUniversal, asn1.TagSequence)
	require.NoError(t, err)

	inner := Children(seq)
	tagged, err := inner.Expect(class, tag)
	require.NoError(t, err)
	assert.True(t, inner.Done())
	assert.True(t, tagged.IsCompound)
}

func TestCursorExpectMismatch(t *testing.T) {
	b := NewBuilder(asn1.ClassUniversal, asn1.TagSequence)
	b.AddValue(asn1.ObjectIdentifier{1, 2, 3})
	der, err := b.Bytes()
	require.NoError(t, err)

	c := NewCursor(der)
	_, err = c.Expect(asn1.ClassApplication, 9)
	require.Error(t, err)
}

func TestSetOfIsSorted(t *testing.T) {
	b := &Builder{class: asn1.ClassUniversal, tag: asn1.TagSet, compound: true}
	b.AddSetOf([]any{
		asn1.ObjectIdentifier{2, 2, 2},
		asn1.ObjectIdentifier{1, 1, 1},
	})
	der, err := b.Bytes()
	require.NoError(t, err)

	c := NewCursor(der)
	set, err := c.Expect(asn1.ClassUniversal, asn1.TagSet)
	require.NoError(t, err)

	inner := Children(set)
	var oids []asn1.ObjectIdentifier
	for !inner.Done() {
		v, err := inner.Next()
		require.NoError(t, err)
		var oid asn1.ObjectIdentifier
		_, err = asn1.Unmarshal(append(encodeHeader(v), v.Bytes...), &oid)
		require.NoError(t, err)
		oids = append(oids, oid)
	}
	require.Len(t, oids, 2)
	assert.Equal(t, asn1.ObjectIdentifier{1, 1, 1}, oids[0])
	assert.Equal(t, asn1.ObjectIdentifier{2, 2, 2}, oids[1])
}
