// Package cbeff implements the ISO/IEC 7816-11 biometric-information
// group codec: a 7F61 BIT group holding one or more 7F60 Biometric
// Information Templates, each a Standard Biometric Header (A1, A2, ...)
// followed by a Biometric Data Block (5F2E primitive for ISO/IEC 19794,
// 7F2E constructed for ISO/IEC 39794). Grounded on
// original_source/jmrtd's ISO781611Decoder.java: same tag constants, same
// statically-protected-BIT handling (plain payload read through, MAC/
// signature objects skipped, encrypted payload refused outright).
package cbeff

import (
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

const (
	TagBITGroup       = tlv.Tag(0x7F61)
	TagBIT            = tlv.Tag(0x7F60)
	TagBDBPrimitive   = tlv.Tag(0x5F2E) // ISO/IEC 19794 fixed-layout record
	TagBDBConstructed = tlv.Tag(0x7F2E) // ISO/IEC 39794 ASN.1 BER record

	tagBITCount = tlv.Tag(0x02)
	tagSMT      = tlv.Tag(0x7D) // ISO 7816-11 Annex D statically-protected wrapper

	tagSMTPlain     = tlv.Tag(0x81)
	tagSMTEncrypted = tlv.Tag(0x85)
	tagSMTMAC       = tlv.Tag(0x8E)
	tagSMTSignature = tlv.Tag(0x9E)

	tagHeaderBase = tlv.Tag(0xA1) // ISO 7816-11 Annex C biometric header template base tag
)

// HeaderField is one tag/value data object inside a Standard Biometric
// Header. Fields are kept in encounter order — the original source calls the SBH "an
// ordered mapping" — rather than named out per ISO 7816-11 Annex C, since
// nothing in this library interprets individual header fields.
type HeaderField struct {
	Tag   tlv.Tag
	Value []byte
}

// Header is a BIT's header template: its own tag (A1, A2, ... per
// ISO 7816-11 Annex C) plus the ordered fields it carries.
type Header struct {
	TemplateTag tlv.Tag
	Fields      []HeaderField
}

// BDB is a raw Biometric Data Block: its outer tag selects which codec
// owns the bytes (pkg/iso19794 for 5F2E, pkg/iso39794 for 7F2E). This
// package does not interpret Data itself: Data is the block's value as
// read, and no A1 wrapper inside a 7F2E block is stripped, here or by
// pkg/iso39794, whose decoders expect the APPLICATION-tagged record at
// the start of Data.
type BDB struct {
	Tag  tlv.Tag
	Data []byte
}

// BIT is one Biometric Information Template. StaticallyProtected records
// whether it arrived wrapped in an ISO 7816-11 Annex D SMT (tag 7D);
// Header and BDB are always the unwrapped logical content either way.
type BIT struct {
	Header              Header
	BDB                 BDB
	StaticallyProtected bool
}

// Info is the ISO/IEC 7816-11 CBEFF_INFO sum type: Simple wraps a single
// biometric data block, Complex wraps an ordered list of further Infos.
// Every BIT group this package has ever seen on a real document decodes
// to a Complex of Simples, but the type recurses the way JMRTD's
// CBEFFInfo/SimpleCBEFFInfo/ComplexCBEFFInfo hierarchy does, since
// nothing in ISO 7816-11 caps the nesting depth. Exactly one of Simple
// or Complex is set.
type Info struct {
	Simple  *BDB
	Complex []Info
}

// DecodeBITGroup parses a full 7F61 BIT group into its member BITs.
func DecodeBITGroup(data []byte) ([]BIT, error) {
	r := tlv.NewReader(data)
	tag, sub, err := r.ReadConstructed()
	if err != nil {
		return nil, err
	}
	if tag != TagBITGroup {
		return nil, &mrtderr.UnexpectedTag{Expected: uint32(TagBITGroup), Found: uint32(tag)}
	}

	count, err := readBITCount(sub)
	if err != nil {
		return nil, err
	}

	bits := make([]BIT, 0, count)
	for i := 0; i < count; i++ {
		bit, err := decodeBIT(sub)
		if err != nil {
			return nil, err
		}
		bits = append(bits, bit)
	}
	return bits, nil
}

// DecodeInfo parses a 7F61 BIT group the same way DecodeBITGroup does,
// except that a member slot holding a nested 7F61 group in place of an
// ordinary 7F60 BIT decodes to a nested Complex Info instead of being
// rejected, so deliberately-nested CBEFF structures round-trip.
func DecodeInfo(data []byte) (Info, error) {
	return decodeInfoGroup(tlv.NewReader(data))
}

func decodeInfoGroup(r *tlv.Reader) (Info, error) {
	tag, sub, err := r.ReadConstructed()
	if err != nil {
		return Info{}, err
	}
	if tag != TagBITGroup {
		return Info{}, &mrtderr.UnexpectedTag{Expected: uint32(TagBITGroup), Found: uint32(tag)}
	}

	count, err := readBITCount(sub)
	if err != nil {
		return Info{}, err
	}

	members := make([]Info, 0, count)
	for i := 0; i < count; i++ {
		member, err := decodeInfoMember(sub)
		if err != nil {
			return Info{}, err
		}
		members = append(members, member)
	}
	return Info{Complex: members}, nil
}

func decodeInfoMember(r *tlv.Reader) (Info, error) {
	peek, err := r.Peek()
	if err != nil {
		return Info{}, err
	}
	if peek == TagBITGroup {
		return decodeInfoGroup(r)
	}
	bit, err := decodeBIT(r)
	if err != nil {
		return Info{}, err
	}
	bdb := bit.BDB
	return Info{Simple: &bdb}, nil
}

func readBITCount(r *tlv.Reader) (int, error) {
	countTag, err := r.ReadTag()
	if err != nil {
		return 0, err
	}
	if countTag != tagBITCount {
		return 0, &mrtderr.UnexpectedTag{Expected: uint32(tagBITCount), Found: uint32(countTag)}
	}
	cn, err := r.ReadLength()
	if err != nil {
		return 0, err
	}
	if cn != 1 {
		return 0, &mrtderr.MalformedTLV{Reason: "biometric info count must be one byte"}
	}
	cb, err := r.ReadValue(cn)
	if err != nil {
		return 0, err
	}
	return int(cb[0]), nil
}

func decodeBIT(r *tlv.Reader) (BIT, error) {
	tag, sub, err := r.ReadConstructed()
	if err != nil {
		return BIT{}, err
	}
	if tag != TagBIT {
		return BIT{}, &mrtderr.UnexpectedTag{Expected: uint32(TagBIT), Found: uint32(tag)}
	}

	peek, err := sub.Peek()
	if err != nil {
		return BIT{}, err
	}
	if peek == tagSMT {
		_, smtR, err := sub.ReadConstructed()
		if err != nil {
			return BIT{}, err
		}
		header, bdb, err := decodeStaticallyProtected(smtR)
		if err != nil {
			return BIT{}, err
		}
		return BIT{Header: header, BDB: bdb, StaticallyProtected: true}, nil
	}

	header, err := decodeHeader(sub)
	if err != nil {
		return BIT{}, err
	}
	bdb, err := decodeBDB(sub)
	if err != nil {
		return BIT{}, err
	}
	return BIT{Header: header, BDB: bdb}, nil
}

// decodeStaticallyProtected reads the nested SM data objects of a 7D
// wrapper: a plain (81) header template, a plain (81) BDB, and any
// number of MAC (8E) / signature (9E) objects skipped in between — per
// ISO 7816-11 Annex D and original_source/jmrtd's decodeSMTValue. An
// encrypted (85) payload anywhere in the sequence fails the whole BIT
// with AccessDenied, deliberately.
func decodeStaticallyProtected(smtR *tlv.Reader) (Header, BDB, error) {
	var headerBytes, bdbBytes []byte
	for smtR.Len() > 0 && bdbBytes == nil {
		v, err := readSMTDO(smtR)
		if err != nil {
			return Header{}, BDB{}, err
		}
		if v == nil {
			continue
		}
		if headerBytes == nil {
			headerBytes = v
		} else {
			bdbBytes = v
		}
	}
	if headerBytes == nil || bdbBytes == nil {
		return Header{}, BDB{}, &mrtderr.MalformedTLV{Reason: "statically-protected BIT missing header or data-block object"}
	}
	header, err := decodeHeader(tlv.NewReader(headerBytes))
	if err != nil {
		return Header{}, BDB{}, err
	}
	bdb, err := decodeBDB(tlv.NewReader(bdbBytes))
	if err != nil {
		return Header{}, BDB{}, err
	}
	return header, bdb, nil
}

func readSMTDO(r *tlv.Reader) ([]byte, error) {
	tag, err := r.ReadTag()
	if err != nil {
		return nil, err
	}
	n, err := r.ReadLength()
	if err != nil {
		return nil, err
	}
	value, err := r.ReadValue(n)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagSMTPlain:
		return value, nil
	case tagSMTEncrypted:
		return nil, &mrtderr.AccessDenied{Reason: "biometric information template is statically protected with an encrypted payload"}
	case tagSMTMAC, tagSMTSignature:
		return nil, nil
	default:
		return nil, nil
	}
}

func decodeHeader(r *tlv.Reader) (Header, error) {
	tag, sub, err := r.ReadConstructed()
	if err != nil {
		return Header{}, err
	}
	var fields []HeaderField
	for sub.Len() > 0 {
		fTag, err := sub.ReadTag()
		if err != nil {
			return Header{}, err
		}
		n, err := sub.ReadLength()
		if err != nil {
			return Header{}, err
		}
		v, err := sub.ReadValue(n)
		if err != nil {
			return Header{}, err
		}
		fields = append(fields, HeaderField{Tag: fTag, Value: v})
	}
	return Header{TemplateTag: tag, Fields: fields}, nil
}

func decodeBDB(r *tlv.Reader) (BDB, error) {
	tag, err := r.ReadTag()
	if err != nil {
		return BDB{}, err
	}
	if tag != TagBDBPrimitive && tag != TagBDBConstructed {
		return BDB{}, &mrtderr.UnexpectedTag{Expected: uint32(TagBDBPrimitive), Found: uint32(tag)}
	}
	n, err := r.ReadLength()
	if err != nil {
		return BDB{}, err
	}
	v, err := r.ReadValue(n)
	if err != nil {
		return BDB{}, err
	}
	return BDB{Tag: tag, Data: v}, nil
}

// EncodeBITGroup serialises bits as a single 7F61 BIT group.
func EncodeBITGroup(bits []BIT) []byte {
	w := tlv.NewWriter()
	w.WriteTag(TagBITGroup)

	w.WriteTag(tagBITCount)
	w.WriteValue([]byte{byte(len(bits))})
	w.ValueEnd()

	for _, bit := range bits {
		encodeBIT(w, bit)
	}
	w.ValueEnd()
	return w.Bytes()
}

func encodeBIT(w *tlv.Writer, bit BIT) {
	w.WriteTag(TagBIT)
	if bit.StaticallyProtected {
		w.WriteTag(tagSMT)
		encodeSMTDO(w, tagSMTPlain, encodeHeaderBytes(bit.Header))
		encodeSMTDO(w, tagSMTPlain, encodeBDBBytes(bit.BDB))
		w.ValueEnd()
	} else {
		encodeHeader(w, bit.Header)
		encodeBDB(w, bit.BDB)
	}
	w.ValueEnd()
}

func encodeHeader(w *tlv.Writer, h Header) {
	w.WriteTag(h.TemplateTag)
	for _, f := range h.Fields {
		w.WriteTag(f.Tag)
		w.WriteValue(f.Value)
		w.ValueEnd()
	}
	w.ValueEnd()
}

func encodeBDB(w *tlv.Writer, b BDB) {
	w.WriteTag(b.Tag)
	w.WriteValue(b.Data)
	w.ValueEnd()
}

func encodeHeaderBytes(h Header) []byte {
	w := tlv.NewWriter()
	encodeHeader(w, h)
	return w.Bytes()
}

func encodeBDBBytes(b BDB) []byte {
	w := tlv.NewWriter()
	encodeBDB(w, b)
	return w.Bytes()
}

func encodeSMTDO(w *tlv.Writer, tag tlv.Tag, value []byte) {
	w.WriteTag(tag)
	w.WriteValue(value)
	w.ValueEnd()
}

// EncodeInfo serialises info back to bytes: a Simple info becomes one
// BIT (7F60) carrying an empty header and the wrapped BDB, a Complex
// info becomes a BIT group (7F61) whose members are each other Info,
// encoded the same way and nested as deep as the value itself nests.
func EncodeInfo(info Info) []byte {
	if info.Simple != nil {
		return encodeInfoSimple(*info.Simple)
	}
	w := tlv.NewWriter()
	w.WriteTag(TagBITGroup)
	w.WriteTag(tagBITCount)
	w.WriteValue([]byte{byte(len(info.Complex))})
	w.ValueEnd()
	for _, member := range info.Complex {
		w.WriteValue(EncodeInfo(member))
	}
	w.ValueEnd()
	return w.Bytes()
}

func encodeInfoSimple(bdb BDB) []byte {
	w := tlv.NewWriter()
	w.WriteTag(TagBIT)
	encodeHeader(w, Header{TemplateTag: tagHeaderBase})
	encodeBDB(w, bdb)
	w.ValueEnd()
	return w.Bytes()
}
