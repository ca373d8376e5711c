// DG1 (MRZ). TD3-only: scenario §8.1's worked example and every
// passport MRZ this library has been asked to round-trip so far is
// TD3 (two 44-character lines); TD1 (three 30-character lines) and
// TD2 (two 36-character lines) are out of scope as beyond what's
// needed for that worked example — ParseMRZ returns UnsupportedField
// rather than guessing a layout.
package lds

import (
	"fmt"
	"strings"

	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

const tagMRZData = tlv.Tag(0x5F1F)

// MRZInfo is the parsed TD3 machine-readable zone: fixed-width ASCII
// fields with check digits. Equality is structural field-wise
// comparison after trimming the '<' padding filler — two
// MRZInfo values built from the same logical identity compare equal
// even if their check-digit bytes were computed independently, since Go
// struct equality here is left to the caller (no Equal method forces a
// particular comparison policy; str fields already carry their
// semantic value with filler trimmed).
type MRZInfo struct {
	DocumentCode    string // 2 chars, e.g. "P<"
	IssuingState    string // 3 chars
	PrimaryID       string // surname, filler/word-separators resolved to spaces
	SecondaryID     string // given names, space-joined
	DocumentNumber  string
	DocumentNumberCheckDigit  byte
	Nationality     string
	DateOfBirth     string // yyMMdd
	DateOfBirthCheckDigit     byte
	Sex             string // "M", "F" or "<" (unspecified)
	DateOfExpiry    string // yyMMdd
	DateOfExpiryCheckDigit    byte
	OptionalData    string // personal number field, 14 chars raw (trimmed of trailing filler)
	OptionalDataCheckDigit    byte
	CompositeCheckDigit      byte
}

// ParseMRZ parses an 88-character TD3 MRZ string (the two 44-character
// lines concatenated, as DG1 stores it).
func ParseMRZ(s string) (MRZInfo, error) {
	if len(s) != 88 {
		return MRZInfo{}, &mrtderr.UnsupportedField{Tag: uint32(tagMRZData), Reason: fmt.Sprintf("TD3 MRZ must be 88 characters, got %d", len(s))}
	}
	line1, line2 := s[:44], s[44:]

	primary, secondary := decodeNameField(line1[5:44])

	return MRZInfo{
		DocumentCode:           line1[0:2],
		IssuingState:           line1[2:5],
		PrimaryID:              primary,
		SecondaryID:            secondary,
		DocumentNumber:         strings.TrimRight(line2[0:9], "<"),
		DocumentNumberCheckDigit: line2[9],
		Nationality:            line2[10:13],
		DateOfBirth:            line2[13:19],
		DateOfBirthCheckDigit:    line2[19],
		Sex:                    string(line2[20]),
		DateOfExpiry:           line2[21:27],
		DateOfExpiryCheckDigit:   line2[27],
		OptionalData:           strings.TrimRight(line2[28:42], "<"),
		OptionalDataCheckDigit:   line2[42],
		CompositeCheckDigit:     line2[43],
	}, nil
}

// Format reassembles the 88-character TD3 MRZ string. Format(ParseMRZ(x))
// reproduces x byte-for-byte for any well-formed TD3 input.
func (m MRZInfo) Format() string {
	line1 := m.DocumentCode + m.IssuingState + padRight(encodeNameField(m.PrimaryID, m.SecondaryID), 39)
	line2 := padRight(m.DocumentNumber, 9) + string(m.DocumentNumberCheckDigit) +
		m.Nationality + m.DateOfBirth + string(m.DateOfBirthCheckDigit) +
		m.Sex + m.DateOfExpiry + string(m.DateOfExpiryCheckDigit) +
		padRight(m.OptionalData, 14) + string(m.OptionalDataCheckDigit) + string(m.CompositeCheckDigit)
	return line1 + line2
}

func decodeNameField(raw string) (primary, secondary string) {
	parts := strings.SplitN(raw, "<<", 2)
	primary = strings.ReplaceAll(strings.TrimRight(parts[0], "<"), "<", " ")
	if len(parts) == 2 {
		secondary = strings.ReplaceAll(strings.TrimRight(parts[1], "<"), "<", " ")
	}
	return primary, secondary
}

func encodeNameField(primary, secondary string) string {
	out := strings.ReplaceAll(primary, " ", "<")
	out += "<<"
	out += strings.ReplaceAll(secondary, " ", "<")
	return out
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat("<", n-len(s))
}

// DG1 wraps an MRZInfo as the LDS File with outer tag 0x61.
type DG1 struct {
	MRZ MRZInfo
}

func (DG1) OuterTag() tlv.Tag { return tlv.TagDG1 }

func (d DG1) EncodeContent() []byte {
	return tlv.Primitive(tagMRZData, []byte(d.MRZ.Format())).Encode()
}

// DecodeDG1 parses a full DG1 outer TLV (tag 0x61) into a DG1.
func DecodeDG1(data []byte) (DG1, error) {
	content, err := Unwrap(data, tlv.TagDG1)
	if err != nil {
		return DG1{}, err
	}
	node, err := tlv.DecodeOne(content)
	if err != nil {
		return DG1{}, err
	}
	if node.Tag != tagMRZData {
		return DG1{}, &mrtderr.UnexpectedTag{Expected: uint32(tagMRZData), Found: uint32(node.Tag)}
	}
	mrz, err := ParseMRZ(string(node.Value))
	if err != nil {
		return DG1{}, err
	}
	return DG1{MRZ: mrz}, nil
}
