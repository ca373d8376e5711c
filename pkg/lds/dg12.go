package lds

import "github.com/go-emrtd/mrtdcore/pkg/tlv"

// DG12 is the additional document detail data group, grounded on
// original_source/jmrtd's DG12File the same way DG11 is grounded on
// DG11File — same shared tag-list/field-order machinery, different
// field set.
type DG12 struct {
	IssuingAuthority                    *string
	DateOfIssue                         *string // yyyyMMdd
	OtherPersons                        []string
	EndorsementsAndObservations         *string
	TaxOrExitRequirements               *string
	ImageOfFront                        []byte
	ImageOfRear                         []byte
	DateAndTimeOfPersonalization        *string // yyyyMMddhhmmss
	PersonalizationSystemSerialNumber   *string
}

const (
	tagDG12IssuingAuthority   = tlv.Tag(0x5F19)
	tagDG12DateOfIssue        = tlv.Tag(0x5F26)
	tagDG12OtherPerson        = tlv.Tag(0x5F1A)
	tagDG12Endorsements       = tlv.Tag(0x5F1B)
	tagDG12TaxOrExit          = tlv.Tag(0x5F1C)
	tagDG12ImageOfFront       = tlv.Tag(0x5F1D)
	tagDG12ImageOfRear        = tlv.Tag(0x5F1E)
	tagDG12DateTimePersonal   = tlv.Tag(0x5F55)
	tagDG12PersonalSerialNum  = tlv.Tag(0x5F56)
)

func (DG12) OuterTag() tlv.Tag { return tlv.TagDG12 }

func (d DG12) EncodeContent() []byte {
	var tags []tlv.Tag
	if d.IssuingAuthority != nil {
		tags = append(tags, tagDG12IssuingAuthority)
	}
	if d.DateOfIssue != nil {
		tags = append(tags, tagDG12DateOfIssue)
	}
	if d.OtherPersons != nil {
		tags = append(tags, tagDG12OtherPerson)
	}
	if d.EndorsementsAndObservations != nil {
		tags = append(tags, tagDG12Endorsements)
	}
	if d.TaxOrExitRequirements != nil {
		tags = append(tags, tagDG12TaxOrExit)
	}
	if d.ImageOfFront != nil {
		tags = append(tags, tagDG12ImageOfFront)
	}
	if d.ImageOfRear != nil {
		tags = append(tags, tagDG12ImageOfRear)
	}
	if d.DateAndTimeOfPersonalization != nil {
		tags = append(tags, tagDG12DateTimePersonal)
	}
	if d.PersonalizationSystemSerialNumber != nil {
		tags = append(tags, tagDG12PersonalSerialNum)
	}

	w := tlv.NewWriter()
	writeTagList(w, tags)
	for _, tag := range tags {
		switch tag {
		case tagDG12IssuingAuthority:
			writeString(w, tag, *d.IssuingAuthority)
		case tagDG12DateOfIssue:
			writeString(w, tag, *d.DateOfIssue)
		case tagDG12OtherPerson:
			writeContentSpecificList(w, tagDG12OtherPerson, d.OtherPersons)
		case tagDG12Endorsements:
			writeString(w, tag, *d.EndorsementsAndObservations)
		case tagDG12TaxOrExit:
			writeString(w, tag, *d.TaxOrExitRequirements)
		case tagDG12ImageOfFront:
			w.WriteTag(tag)
			w.WriteValue(d.ImageOfFront)
			w.ValueEnd()
		case tagDG12ImageOfRear:
			w.WriteTag(tag)
			w.WriteValue(d.ImageOfRear)
			w.ValueEnd()
		case tagDG12DateTimePersonal:
			writeString(w, tag, *d.DateAndTimeOfPersonalization)
		case tagDG12PersonalSerialNum:
			writeString(w, tag, *d.PersonalizationSystemSerialNumber)
		}
	}
	return w.Bytes()
}

// DecodeDG12 parses a full DG12 outer TLV (tag 0x6C) into a DG12.
func DecodeDG12(data []byte) (DG12, error) {
	content, err := Unwrap(data, tlv.TagDG12)
	if err != nil {
		return DG12{}, err
	}
	r := tlv.NewReader(content)
	tags, err := readTagList(r)
	if err != nil {
		return DG12{}, err
	}

	var d DG12
	for _, tag := range tags {
		switch tag {
		case tagDG12IssuingAuthority:
			s, err := readString(r, tag)
			if err != nil {
				return DG12{}, err
			}
			d.IssuingAuthority = &s
		case tagDG12DateOfIssue:
			s, err := readString(r, tag)
			if err != nil {
				return DG12{}, err
			}
			d.DateOfIssue = &s
		case tagDG12OtherPerson:
			list, err := readContentSpecificList(r, tagDG12OtherPerson)
			if err != nil {
				return DG12{}, err
			}
			d.OtherPersons = list
		case tagDG12Endorsements:
			s, err := readString(r, tag)
			if err != nil {
				return DG12{}, err
			}
			d.EndorsementsAndObservations = &s
		case tagDG12TaxOrExit:
			s, err := readString(r, tag)
			if err != nil {
				return DG12{}, err
			}
			d.TaxOrExitRequirements = &s
		case tagDG12ImageOfFront:
			if err := expectTag(r, tag); err != nil {
				return DG12{}, err
			}
			n, err := r.ReadLength()
			if err != nil {
				return DG12{}, err
			}
			v, err := r.ReadValue(n)
			if err != nil {
				return DG12{}, err
			}
			d.ImageOfFront = v
		case tagDG12ImageOfRear:
			if err := expectTag(r, tag); err != nil {
				return DG12{}, err
			}
			n, err := r.ReadLength()
			if err != nil {
				return DG12{}, err
			}
			v, err := r.ReadValue(n)
			if err != nil {
				return DG12{}, err
			}
			d.ImageOfRear = v
		case tagDG12DateTimePersonal:
			s, err := readString(r, tag)
			if err != nil {
				return DG12{}, err
			}
			d.DateAndTimeOfPersonalization = &s
		case tagDG12PersonalSerialNum:
			s, err := readString(r, tag)
			if err != nil {
				return DG12{}, err
			}
			d.PersonalizationSystemSerialNumber = &s
		}
	}
	return d, nil
}
