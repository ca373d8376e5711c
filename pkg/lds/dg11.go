package lds

import "github.com/go-emrtd/mrtdcore/pkg/tlv"

// DG11 is the additional personal detail data group (LDS-TR Section
// 16): every field is optional, grounded directly on
// original_source/jmrtd's DG11File — same field set, same per-field tag
// constants, same '<'-packed list encoding for PlaceOfBirth/
// PermanentAddress/OtherValidTDNumbers and content-specific
// ({count, value}*) encoding for OtherNames.
type DG11 struct {
	NameOfHolder        *string
	OtherNames          []string
	PersonalNumber      *string
	FullDateOfBirth     *string // yyyyMMdd
	PlaceOfBirth        []string
	PermanentAddress    []string
	Telephone           *string
	Profession          *string
	Title               *string
	PersonalSummary     *string
	ProofOfCitizenship  []byte
	OtherValidTDNumbers []string
	CustodyInformation  *string
}

const (
	tagDG11FullName           = tlv.Tag(0x5F0E)
	tagDG11OtherName          = tlv.Tag(0x5F0F)
	tagDG11PersonalNumber     = tlv.Tag(0x5F10)
	tagDG11PlaceOfBirth       = tlv.Tag(0x5F11)
	tagDG11Telephone          = tlv.Tag(0x5F12)
	tagDG11Profession         = tlv.Tag(0x5F13)
	tagDG11Title              = tlv.Tag(0x5F14)
	tagDG11PersonalSummary    = tlv.Tag(0x5F15)
	tagDG11ProofOfCitizenship = tlv.Tag(0x5F16)
	tagDG11OtherValidTD       = tlv.Tag(0x5F17)
	tagDG11CustodyInfo        = tlv.Tag(0x5F18)
	tagDG11FullDateOfBirth    = tlv.Tag(0x5F2B)
	tagDG11PermanentAddress   = tlv.Tag(0x5F42)
)

func (DG11) OuterTag() tlv.Tag { return tlv.TagDG11 }

// EncodeContent writes the 5C tag-list header followed by each present
// field's TLV, in the order the fields are listed here — the source's
// getTagPresenceList() order, which this module reproduces exactly
// since no caller-observable "set order" exists for a struct literal.
func (d DG11) EncodeContent() []byte {
	var tags []tlv.Tag
	if d.NameOfHolder != nil {
		tags = append(tags, tagDG11FullName)
	}
	if d.OtherNames != nil {
		tags = append(tags, tagDG11OtherName)
	}
	if d.PersonalNumber != nil {
		tags = append(tags, tagDG11PersonalNumber)
	}
	if d.FullDateOfBirth != nil {
		tags = append(tags, tagDG11FullDateOfBirth)
	}
	if d.PlaceOfBirth != nil {
		tags = append(tags, tagDG11PlaceOfBirth)
	}
	if d.PermanentAddress != nil {
		tags = append(tags, tagDG11PermanentAddress)
	}
	if d.Telephone != nil {
		tags = append(tags, tagDG11Telephone)
	}
	if d.Profession != nil {
		tags = append(tags, tagDG11Profession)
	}
	if d.Title != nil {
		tags = append(tags, tagDG11Title)
	}
	if d.PersonalSummary != nil {
		tags = append(tags, tagDG11PersonalSummary)
	}
	if d.ProofOfCitizenship != nil {
		tags = append(tags, tagDG11ProofOfCitizenship)
	}
	if d.OtherValidTDNumbers != nil {
		tags = append(tags, tagDG11OtherValidTD)
	}
	if d.CustodyInformation != nil {
		tags = append(tags, tagDG11CustodyInfo)
	}

	w := tlv.NewWriter()
	writeTagList(w, tags)
	for _, tag := range tags {
		switch tag {
		case tagDG11FullName:
			writeString(w, tag, *d.NameOfHolder)
		case tagDG11OtherName:
			writeContentSpecificList(w, tagDG11OtherName, d.OtherNames)
		case tagDG11PersonalNumber:
			writeString(w, tag, *d.PersonalNumber)
		case tagDG11FullDateOfBirth:
			writeString(w, tag, *d.FullDateOfBirth)
		case tagDG11PlaceOfBirth:
			writeList(w, tag, d.PlaceOfBirth)
		case tagDG11PermanentAddress:
			writeList(w, tag, d.PermanentAddress)
		case tagDG11Telephone:
			writeString(w, tag, *d.Telephone)
		case tagDG11Profession:
			writeString(w, tag, *d.Profession)
		case tagDG11Title:
			writeString(w, tag, *d.Title)
		case tagDG11PersonalSummary:
			writeString(w, tag, *d.PersonalSummary)
		case tagDG11ProofOfCitizenship:
			w.WriteTag(tag)
			w.WriteValue(d.ProofOfCitizenship)
			w.ValueEnd()
		case tagDG11OtherValidTD:
			writeList(w, tag, d.OtherValidTDNumbers)
		case tagDG11CustodyInfo:
			writeString(w, tag, *d.CustodyInformation)
		}
	}
	return w.Bytes()
}

// DecodeDG11 parses a full DG11 outer TLV (tag 0x6B) into a DG11.
func DecodeDG11(data []byte) (DG11, error) {
	content, err := Unwrap(data, tlv.TagDG11)
	if err != nil {
		return DG11{}, err
	}
	r := tlv.NewReader(content)
	tags, err := readTagList(r)
	if err != nil {
		return DG11{}, err
	}

	var d DG11
	for _, tag := range tags {
		switch tag {
		case tagDG11FullName:
			s, err := readString(r, tag)
			if err != nil {
				return DG11{}, err
			}
			d.NameOfHolder = &s
		case tagDG11OtherName:
			list, err := readContentSpecificList(r, tagDG11OtherName)
			if err != nil {
				return DG11{}, err
			}
			d.OtherNames = list
		case tagDG11PersonalNumber:
			s, err := readString(r, tag)
			if err != nil {
				return DG11{}, err
			}
			d.PersonalNumber = &s
		case tagDG11FullDateOfBirth:
			s, err := readString(r, tag)
			if err != nil {
				return DG11{}, err
			}
			d.FullDateOfBirth = &s
		case tagDG11PlaceOfBirth:
			list, err := readList(r, tag)
			if err != nil {
				return DG11{}, err
			}
			d.PlaceOfBirth = list
		case tagDG11PermanentAddress:
			list, err := readList(r, tag)
			if err != nil {
				return DG11{}, err
			}
			d.PermanentAddress = list
		case tagDG11Telephone:
			s, err := readString(r, tag)
			if err != nil {
				return DG11{}, err
			}
			d.Telephone = &s
		case tagDG11Profession:
			s, err := readString(r, tag)
			if err != nil {
				return DG11{}, err
			}
			d.Profession = &s
		case tagDG11Title:
			s, err := readString(r, tag)
			if err != nil {
				return DG11{}, err
			}
			d.Title = &s
		case tagDG11PersonalSummary:
			s, err := readString(r, tag)
			if err != nil {
				return DG11{}, err
			}
			d.PersonalSummary = &s
		case tagDG11ProofOfCitizenship:
			if err := expectTag(r, tag); err != nil {
				return DG11{}, err
			}
			n, err := r.ReadLength()
			if err != nil {
				return DG11{}, err
			}
			v, err := r.ReadValue(n)
			if err != nil {
				return DG11{}, err
			}
			d.ProofOfCitizenship = v
		case tagDG11OtherValidTD:
			list, err := readList(r, tag)
			if err != nil {
				return DG11{}, err
			}
			d.OtherValidTDNumbers = list
		case tagDG11CustodyInfo:
			s, err := readString(r, tag)
			if err != nil {
				return DG11{}, err
			}
			d.CustodyInformation = &s
		}
	}
	return d, nil
}
