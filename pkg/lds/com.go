package lds

import "github.com/go-emrtd/mrtdcore/pkg/tlv"

const (
	tagCOMLDSVersion     = tlv.Tag(0x5F01)
	tagCOMUnicodeVersion = tlv.Tag(0x5F36)
)

// COM is EF.COM (tag 0x60): the minimal "which DGs are present" file a
// reader fetches before any DG, named in the file-tag table and
// detailed here as a supplement. LDSVersion/UnicodeVersion
// are 4/6-digit ASCII version strings per Doc 9303 Part 10; both are
// optional on read (older LDS1 issuances predate the unicode-version
// field).
type COM struct {
	LDSVersion     string
	UnicodeVersion string
	TagList        []tlv.Tag // outer tags of the DGs this document carries
}

func (COM) OuterTag() tlv.Tag { return tlv.TagCOM }

func (c COM) EncodeContent() []byte {
	w := tlv.NewWriter()
	if c.LDSVersion != "" {
		writeString(w, tagCOMLDSVersion, c.LDSVersion)
	}
	if c.UnicodeVersion != "" {
		writeString(w, tagCOMUnicodeVersion, c.UnicodeVersion)
	}
	writeTagList(w, c.TagList)
	return w.Bytes()
}

// DecodeCOM parses a full EF.COM outer TLV (tag 0x60) into a COM.
func DecodeCOM(data []byte) (COM, error) {
	content, err := Unwrap(data, tlv.TagCOM)
	if err != nil {
		return COM{}, err
	}
	r := tlv.NewReader(content)
	var c COM
	for r.Len() > 0 {
		tag, err := r.Peek()
		if err != nil {
			return COM{}, err
		}
		switch tag {
		case tagCOMLDSVersion:
			s, err := readString(r, tag)
			if err != nil {
				return COM{}, err
			}
			c.LDSVersion = s
		case tagCOMUnicodeVersion:
			s, err := readString(r, tag)
			if err != nil {
				return COM{}, err
			}
			c.UnicodeVersion = s
		case tagList:
			tags, err := readTagList(r)
			if err != nil {
				return COM{}, err
			}
			c.TagList = tags
		default:
			// Unknown field ahead of the tag list: skip it rather than
			// fail closed, matching the warn-and-skip policy for an
			// unrecognised (not required) tag.
			if _, err := r.ReadNode(); err != nil {
				return COM{}, err
			}
		}
	}
	return c, nil
}
