package lds

import (
	"strings"

	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

// Shared machinery for DG11/DG12, the source's "AdditionalDetailDataGroup"
// abstract superclass, re-expressed here as free functions both
// concrete files call rather than an inheritance hierarchy. Grounded on
// original_source/jmrtd's AdditionalDetailDataGroup.java: a 5C tag-list
// header naming which fields are present and in what order, followed by
// each field's own TLV in that same order.

const (
	tagList               = tlv.Tag(0x5C)
	tagContentSpecific    = tlv.Tag(0xA0) // wraps a "list of named sub-fields" content group
	tagContentSpecificCnt = tlv.Tag(0x02) // single-byte count inside tagContentSpecific
)

// readTagList reads the 5C header and returns the ordered list of inner
// tags it names.
func readTagList(r *tlv.Reader) ([]tlv.Tag, error) {
	tag, err := r.ReadTag()
	if err != nil {
		return nil, err
	}
	if tag != tagList {
		return nil, &mrtderr.UnexpectedTag{Expected: uint32(tagList), Found: uint32(tag)}
	}
	n, err := r.ReadLength()
	if err != nil {
		return nil, err
	}
	raw, err := r.ReadValue(n)
	if err != nil {
		return nil, err
	}
	inner := tlv.NewReader(raw)
	var tags []tlv.Tag
	for inner.Len() > 0 {
		t, err := inner.ReadTag()
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// writeTagList writes the 5C header naming tags in order.
func writeTagList(w *tlv.Writer, tags []tlv.Tag) {
	w.WriteTag(tagList)
	for _, t := range tags {
		w.WriteValue(tlv.EncodeTag(t))
	}
	w.ValueEnd()
}

// readString reads a primitive tag's value as UTF-8, trimmed of
// leading/trailing whitespace on read.
func readString(r *tlv.Reader, tag tlv.Tag) (string, error) {
	if err := expectTag(r, tag); err != nil {
		return "", err
	}
	n, err := r.ReadLength()
	if err != nil {
		return "", err
	}
	value, err := r.ReadValue(n)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(value)), nil
}

func writeString(w *tlv.Writer, tag tlv.Tag, value string) {
	w.WriteTag(tag)
	w.WriteValue([]byte(strings.TrimSpace(value)))
	w.ValueEnd()
}

// readList reads a '<'-joined packed field and splits it back into a
// slice. An empty stored value splits into a single empty-string
// element — the empty-list-becomes-singleton-empty-string
// contract, inherited directly from strings.Split's behaviour on an
// empty input with a literal separator, the same as Java's
// String.split("<", -1) the source uses.
func readList(r *tlv.Reader, tag tlv.Tag) ([]string, error) {
	s, err := readString(r, tag)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, "<")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts, nil
}

// writeList re-joins a list with '<' and writes it as one primitive TLV.
// A nil or empty list is written as a zero-length value (which readList
// turns back into []string{""} on the way in — the quirk is inherent to
// the round trip, not special-cased here).
func writeList(w *tlv.Writer, tag tlv.Tag, list []string) {
	w.WriteTag(tag)
	w.WriteValue([]byte(strings.Join(list, "<")))
	w.ValueEnd()
}

// readContentSpecificList reads the A0-wrapped { 02 count, (tag, value)* }
// form the source uses for DG11's OTHER_NAME_TAG / DG12's
// NAME_OF_OTHER_PERSON_TAG: a genuine list of independently-tagged
// sub-values rather than a single '<'-packed string.
func readContentSpecificList(r *tlv.Reader, memberTag tlv.Tag) ([]string, error) {
	_, inner, err := r.ReadConstructed()
	if err != nil {
		return nil, err
	}
	if err := expectTag(inner, tagContentSpecificCnt); err != nil {
		return nil, err
	}
	n, err := inner.ReadLength()
	if err != nil {
		return nil, err
	}
	countBytes, err := inner.ReadValue(n)
	if err != nil {
		return nil, err
	}
	if len(countBytes) != 1 {
		return nil, &mrtderr.MalformedTLV{Reason: "content-specific count field must be one byte"}
	}
	count := int(countBytes[0])

	list := make([]string, 0, count)
	for i := 0; i < count; i++ {
		s, err := readString(inner, memberTag)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

func writeContentSpecificList(w *tlv.Writer, memberTag tlv.Tag, list []string) {
	w.WriteTag(tagContentSpecific)
	w.WriteTag(tagContentSpecificCnt)
	w.WriteValue([]byte{byte(len(list))})
	w.ValueEnd()
	for _, s := range list {
		w.WriteTag(memberTag)
		w.WriteValue([]byte(strings.TrimSpace(s)))
		w.ValueEnd()
	}
	w.ValueEnd()
}

func expectTag(r *tlv.Reader, want tlv.Tag) error {
	tag, err := r.ReadTag()
	if err != nil {
		return err
	}
	if tag != want {
		return &mrtderr.UnexpectedTag{Expected: uint32(want), Found: uint32(tag)}
	}
	return nil
}
