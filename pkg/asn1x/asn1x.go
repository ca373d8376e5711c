// Package asn1x is a thin DER construction/parsing layer over stdlib
// encoding/asn1, built for the handful of shapes this library actually
// needs: APPLICATION- and context-tagged SEQUENCEs, SET OF with the
// DER sort-before-encode rule, and OPTIONAL/CHOICE fields that fall back
// to "store the raw bytes" instead of failing closed. golang.org/x/crypto/
// cryptobyte/asn1 was tried first (see DESIGN.md) but its Tag type has no
// public constructor for the APPLICATION class this module needs for
// ISO/IEC 39794 records, so the bridge is built on asn1.RawValue instead,
// the way cunicu-go-piv's asn1.go does it.
package asn1x

import (
	"encoding/asn1"
	"sort"

	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// Builder accumulates DER-encoded children for a single constructed value.
type Builder struct {
	class      int
	tag        int
	compound   bool
	raw        []byte
	buildError error
}

// NewBuilder starts a constructed value under the given class/tag.
func NewBuilder(class, tag int) *Builder {
	return &Builder{class: class, tag: tag, compound: true}
}

// AddRaw appends already-encoded DER bytes as-is.
func (b *Builder) AddRaw(der []byte) {
	b.raw = append(b.raw, der...)
}

// AddValue DER-encodes v with stdlib asn1.Marshal and appends it.
func (b *Builder) AddValue(v any) {
	enc, err := asn1.Marshal(v)
	if err != nil {
		b.buildError = err
		return
	}
	b.raw = append(b.raw, enc...)
}

// AddTagged wraps the bytes produced by fn in an explicit class/tag
// wrapper (constructed) before appending — the idiom used for every
// EXPLICIT context tag and every APPLICATION-tagged outer shell.
func (b *Builder) AddTagged(class, tag int, fn func(*Builder)) {
	inner := NewBuilder(class, tag)
	fn(inner)
	enc, err := inner.Bytes()
	if err != nil {
		b.buildError = err
		return
	}
	b.raw = append(b.raw, enc...)
}

// AddSetOf DER-encodes each element with asn1.Marshal, then re-sorts the
// encoded elements lexicographically by their full encoding before
// appending — DER requires SET OF elements in that order, which Go's
// asn1.Marshal does not enforce for a raw []any-style SET OF.
func (b *Builder) AddSetOf(elems []any) {
	var encoded [][]byte
	for _, e := range elems {
		enc, err := asn1.Marshal(e)
		if err != nil {
			b.buildError = err
			return
		}
		encoded = append(encoded, enc)
	}
	sort.Slice(encoded, func(i, j int) bool {
		return string(encoded[i]) < string(encoded[j])
	})
	for _, enc := range encoded {
		b.raw = append(b.raw, enc...)
	}
}

// Bytes finalizes the value: wraps the accumulated child bytes in this
// Builder's own class/tag/length header.
func (b *Builder) Bytes() ([]byte, error) {
	if b.buildError != nil {
		return nil, b.buildError
	}
	rv := asn1.RawValue{
		Class:      b.class,
		Tag:        b.tag,
		IsCompound: b.compound,
		Bytes:      b.raw,
	}
	return asn1.Marshal(rv)
}

// Cursor is a pull-based parser over a sequence of sibling DER values,
// mirroring cunicu-go-piv's unmarshalASN1(b, class, tag) but retaining
// position across calls instead of taking a fresh slice each time.
type Cursor struct {
	rest []byte
}

// NewCursor wraps der for sequential top-level reads.
func NewCursor(der []byte) *Cursor {
	return &Cursor{rest: der}
}

// Done reports whether every byte has been consumed.
func (c *Cursor) Done() bool {
	return len(c.rest) == 0
}

// Next reads the next RawValue without enforcing any particular
// class/tag — used for CHOICE fields and unknown-arm fallback, keeping
// the raw bytes rather than failing closed on an unrecognised arm.
func (c *Cursor) Next() (asn1.RawValue, error) {
	var v asn1.RawValue
	rest, err := asn1.Unmarshal(c.rest, &v)
	if err != nil {
		return asn1.RawValue{}, &mrtderr.MalformedASN1{Reason: err.Error()}
	}
	c.rest = rest
	return v, nil
}

// Expect reads the next RawValue and errors unless its class/tag match.
func (c *Cursor) Expect(class, tag int) (asn1.RawValue, error) {
	v, err := c.Next()
	if err != nil {
		return asn1.RawValue{}, err
	}
	if v.Class != class || v.Tag != tag {
		return asn1.RawValue{}, &mrtderr.UnexpectedTag{
			Expected: uint32(tag) | uint32(class)<<30,
			Found:    uint32(v.Tag) | uint32(v.Class)<<30,
		}
	}
	return v, nil
}

// Peek reads the next RawValue's class/tag without consuming it.
func (c *Cursor) Peek() (class, tag int, err error) {
	var v asn1.RawValue
	if _, err := asn1.Unmarshal(c.rest, &v); err != nil {
		return 0, 0, &mrtderr.MalformedASN1{Reason: err.Error()}
	}
	return v.Class, v.Tag, nil
}

// Children returns a Cursor over v's contents, for a compound RawValue
// read via Next/Expect.
func Children(v asn1.RawValue) *Cursor {
	return &Cursor{rest: v.Bytes}
}

// Application returns the class/tag pair for a DER APPLICATION n tag, the
// form ISO/IEC 39794 uses for its outer biometric-record wrappers.
func Application(n int) (class, tag int) {
	return asn1.ClassApplication, n
}

// ContextTag returns the class/tag pair for an implicit or explicit
// context-specific tag [n], the form used throughout SecurityInfos and CV
// certificates.
func ContextTag(n int) (class, tag int) {
	return asn1.ClassContextSpecific, n
}
