package iso39794

import (
	"encoding/asn1"

	"github.com/go-emrtd/mrtdcore/pkg/asn1x"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

const faceApplicationTag = 5

// RepresentationBlock is one captured image plus the landmark/pose
// metadata ISO/IEC 39794 attaches to it. The same shape serves face,
// finger and iris records: the retrieved source shows each domain
// defining its own representation block class, but none of those
// per-domain field lists beyond pose angle and landmark coordinates
// were present, so this package uses one shared block across all three
// record kinds — documented in DESIGN.md as this package's own scope
// decision rather than a source-derived fact.
type RepresentationBlock struct {
	ImageData  []byte
	PoseAngle  *PoseAngleBlock
	Landmarks  []LandmarkCoordinate
	QualityCode int
}

func (r RepresentationBlock) encode(b *asn1x.Builder) {
	b.AddTagged(asn1.ClassContextSpecific, 0, func(inner *asn1x.Builder) {
		inner.AddValue(r.ImageData)
	})
	if r.PoseAngle != nil {
		b.AddTagged(asn1.ClassContextSpecific, 1, r.PoseAngle.encode)
	}
	if len(r.Landmarks) > 0 {
		b.AddTagged(asn1.ClassContextSpecific, 2, func(inner *asn1x.Builder) {
			encodeListOrSingle(inner, r.Landmarks, func(b *asn1x.Builder, lm LandmarkCoordinate) {
				lm.encode(b)
			})
		})
	}
	b.AddTagged(asn1.ClassContextSpecific, 3, func(inner *asn1x.Builder) {
		encodeChoiceExtensionFallback(inner, r.QualityCode)
	})
}

func decodeRepresentationBlock(v asn1.RawValue) (RepresentationBlock, error) {
	fields, err := decodeTaggedFields(v)
	if err != nil {
		return RepresentationBlock{}, err
	}
	var r RepresentationBlock
	if raw, ok := fields[0]; ok {
		if err := unmarshalInto(raw, &r.ImageData); err != nil {
			return RepresentationBlock{}, err
		}
	}
	if raw, ok := fields[1]; ok {
		p, err := decodePoseAngleBlock(raw)
		if err != nil {
			return RepresentationBlock{}, err
		}
		r.PoseAngle = &p
	}
	if raw, ok := fields[2]; ok {
		landmarks, err := decodeListOrSingle(raw, decodeLandmarkCoordinate)
		if err != nil {
			return RepresentationBlock{}, err
		}
		r.Landmarks = landmarks
	}
	if raw, ok := fields[3]; ok {
		code, err := decodeChoiceExtensionFallback(raw)
		if err != nil {
			return RepresentationBlock{}, err
		}
		r.QualityCode = code
	}
	return r, nil
}

// FaceRecord is DG2's ISO/IEC 39794-5 biometric data block.
type FaceRecord struct {
	Version         VersionBlock
	Representations []RepresentationBlock
}

// Encode serialises the record as an [APPLICATION 5] SEQUENCE, the tag
// original_source/jmrtd's FaceImageDataBlock.java checks on decode.
func (r FaceRecord) Encode() ([]byte, error) {
	class, tag := asn1x.Application(faceApplicationTag)
	b := asn1x.NewBuilder(class, tag)
	r.Version.encode(b)
	b.AddTagged(asn1.ClassContextSpecific, 1, func(inner *asn1x.Builder) {
		encodeListOrSingle(inner, r.Representations, func(b *asn1x.Builder, rep RepresentationBlock) {
			rep.encode(b)
		})
	})
	return b.Bytes()
}

// DecodeFaceRecord parses an [APPLICATION 5] face record.
func DecodeFaceRecord(der []byte) (FaceRecord, error) {
	cur := asn1x.NewCursor(der)
	class, tag := asn1x.Application(faceApplicationTag)
	v, err := cur.Expect(class, tag)
	if err != nil {
		return FaceRecord{}, err
	}
	fields, err := decodeTaggedFields(v)
	if err != nil {
		return FaceRecord{}, err
	}
	versionRaw, ok := fields[0]
	if !ok {
		return FaceRecord{}, &mrtderr.UnsupportedField{Tag: 0, Reason: "face record missing versionBlock"}
	}
	version, err := decodeVersionBlock(versionRaw)
	if err != nil {
		return FaceRecord{}, err
	}
	repsRaw, ok := fields[1]
	if !ok {
		return FaceRecord{}, &mrtderr.UnsupportedField{Tag: 1, Reason: "face record missing representationBlocks"}
	}
	reps, err := decodeListOrSingle(repsRaw, decodeRepresentationBlock)
	if err != nil {
		return FaceRecord{}, err
	}
	return FaceRecord{Version: version, Representations: reps}, nil
}
