package iso39794

import (
	"encoding/asn1"

	"github.com/go-emrtd/mrtdcore/pkg/asn1x"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

const irisApplicationTag = 6

// IrisRecord is DG4's ISO/IEC 39794-6 biometric data block. It shares
// RepresentationBlock with FaceRecord and FingerRecord per common.go's
// package doc comment.
type IrisRecord struct {
	Version         VersionBlock
	Representations []RepresentationBlock
}

// Encode serialises the record as an [APPLICATION 6] SEQUENCE.
func (r IrisRecord) Encode() ([]byte, error) {
	class, tag := asn1x.Application(irisApplicationTag)
	b := asn1x.NewBuilder(class, tag)
	r.Version.encode(b)
	b.AddTagged(asn1.ClassContextSpecific, 1, func(inner *asn1x.Builder) {
		encodeListOrSingle(inner, r.Representations, func(b *asn1x.Builder, rep RepresentationBlock) {
			rep.encode(b)
		})
	})
	return b.Bytes()
}

// DecodeIrisRecord parses an [APPLICATION 6] iris record.
func DecodeIrisRecord(der []byte) (IrisRecord, error) {
	cur := asn1x.NewCursor(der)
	class, tag := asn1x.Application(irisApplicationTag)
	v, err := cur.Expect(class, tag)
	if err != nil {
		return IrisRecord{}, err
	}
	fields, err := decodeTaggedFields(v)
	if err != nil {
		return IrisRecord{}, err
	}
	versionRaw, ok := fields[0]
	if !ok {
		return IrisRecord{}, &mrtderr.UnsupportedField{Tag: 0, Reason: "iris record missing versionBlock"}
	}
	version, err := decodeVersionBlock(versionRaw)
	if err != nil {
		return IrisRecord{}, err
	}
	repsRaw, ok := fields[1]
	if !ok {
		return IrisRecord{}, &mrtderr.UnsupportedField{Tag: 1, Reason: "iris record missing representationBlocks"}
	}
	reps, err := decodeListOrSingle(repsRaw, decodeRepresentationBlock)
	if err != nil {
		return IrisRecord{}, err
	}
	return IrisRecord{Version: version, Representations: reps}, nil
}
