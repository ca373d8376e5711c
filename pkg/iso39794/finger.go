package iso39794

import (
	"encoding/asn1"

	"github.com/go-emrtd/mrtdcore/pkg/asn1x"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

const fingerApplicationTag = 4

// FingerRecord is DG3's ISO/IEC 39794-4 biometric data block. It shares
// RepresentationBlock with FaceRecord and IrisRecord per common.go's
// package doc comment.
type FingerRecord struct {
	Version         VersionBlock
	Representations []RepresentationBlock
}

// Encode serialises the record as an [APPLICATION 4] SEQUENCE.
func (r FingerRecord) Encode() ([]byte, error) {
	class, tag := asn1x.Application(fingerApplicationTag)
	b := asn1x.NewBuilder(class, tag)
	r.Version.encode(b)
	b.AddTagged(asn1.ClassContextSpecific, 1, func(inner *asn1x.Builder) {
		encodeListOrSingle(inner, r.Representations, func(b *asn1x.Builder, rep RepresentationBlock) {
			rep.encode(b)
		})
	})
	return b.Bytes()
}

// DecodeFingerRecord parses an [APPLICATION 4] finger record.
func DecodeFingerRecord(der []byte) (FingerRecord, error) {
	cur := asn1x.NewCursor(der)
	class, tag := asn1x.Application(fingerApplicationTag)
	v, err := cur.Expect(class, tag)
	if err != nil {
		return FingerRecord{}, err
	}
	fields, err := decodeTaggedFields(v)
	if err != nil {
		return FingerRecord{}, err
	}
	versionRaw, ok := fields[0]
	if !ok {
		return FingerRecord{}, &mrtderr.UnsupportedField{Tag: 0, Reason: "finger record missing versionBlock"}
	}
	version, err := decodeVersionBlock(versionRaw)
	if err != nil {
		return FingerRecord{}, err
	}
	repsRaw, ok := fields[1]
	if !ok {
		return FingerRecord{}, &mrtderr.UnsupportedField{Tag: 1, Reason: "finger record missing representationBlocks"}
	}
	reps, err := decodeListOrSingle(repsRaw, decodeRepresentationBlock)
	if err != nil {
		return FingerRecord{}, err
	}
	return FingerRecord{Version: version, Representations: reps}, nil
}
