// Package lds implements the LDS TLV files DG1 (MRZ),
// DG11/DG12 (additional detail groups), DG14 (SecurityInfos) and COM
// (the tag-list file read before any DG). Each concrete file type is a
// variant implementing the File capability — the source's
// "AbstractLDSFile"/"AdditionalDetailDataGroup" inheritance re-expressed
// as a shared free-function pair (Wrap/Unwrap) plus a small
// interface, instead of a base class.
package lds

import (
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

// File is the capability every LDS data group implements: an outer BER
// tag (see the file-tag table) and a data-group-specific content
// codec. Wrap/Unwrap handle the outer TLV framing common to all of them.
type File interface {
	OuterTag() tlv.Tag
	EncodeContent() []byte
}

// Wrap serialises f as a single outer BER TLV: tag, length, content.
// Every LDS file round-trips through Wrap/Unwrap unchanged.
func Wrap(f File) []byte {
	w := tlv.NewWriter()
	w.WriteTag(f.OuterTag())
	w.WriteValue(f.EncodeContent())
	w.ValueEnd()
	return w.Bytes()
}

// Unwrap reads the outer TLV from data, asserts its tag equals want, and
// returns the content bytes for a data-group-specific decoder to parse.
func Unwrap(data []byte, want tlv.Tag) ([]byte, error) {
	r := tlv.NewReader(data)
	tag, err := r.ReadTag()
	if err != nil {
		return nil, err
	}
	if tag != want {
		return nil, &mrtderr.UnexpectedTag{Expected: uint32(want), Found: uint32(tag)}
	}
	n, err := r.ReadLength()
	if err != nil {
		return nil, err
	}
	content, err := r.ReadValue(n)
	if err != nil {
		return nil, err
	}
	return content, nil
}
