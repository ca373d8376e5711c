package iso39794

import (
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-emrtd/mrtdcore/pkg/asn1x"
)

func sampleRepresentation() RepresentationBlock {
	return RepresentationBlock{
		ImageData: []byte{0xFF, 0xD8, 0xFF, 0x01},
		PoseAngle: &PoseAngleBlock{
			Yaw: &AngleDataBlock{Value: 5, Uncertainty: 2},
		},
		Landmarks: []LandmarkCoordinate{
			{Kind: LandmarkKindCartesian2DSigned, X: -3, Y: 7},
			{Kind: LandmarkKindCartesian3DUnsignedShort, X: 1, Y: 2, Z: 3},
		},
		QualityCode: 40,
	}
}

func TestFaceRecordRoundTrip(t *testing.T) {
	rec := FaceRecord{
		Version:         VersionBlock{Major: 1, Minor: 0},
		Representations: []RepresentationBlock{sampleRepresentation(), sampleRepresentation()},
	}
	der, err := rec.Encode()
	require.NoError(t, err)
	decoded, err := DecodeFaceRecord(der)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
}

func TestFingerRecordRoundTrip(t *testing.T) {
	rec := FingerRecord{
		Version:         VersionBlock{Major: 2, Minor: 1},
		Representations: []RepresentationBlock{sampleRepresentation()},
	}
	der, err := rec.Encode()
	require.NoError(t, err)
	decoded, err := DecodeFingerRecord(der)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
}

func TestIrisRecordRoundTrip(t *testing.T) {
	rec := IrisRecord{
		Version:         VersionBlock{Major: 1, Minor: 0},
		Representations: []RepresentationBlock{sampleRepresentation(), sampleRepresentation(), sampleRepresentation()},
	}
	der, err := rec.Encode()
	require.NoError(t, err)
	decoded, err := DecodeIrisRecord(der)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
}

func TestChoiceExtensionFallback(t *testing.T) {
	// Build a CHOICE block using only the extension arm [1], whose
	// extension block carries a single INTEGER in its [0] field,
	// mirroring a producer that never emits the explicit-code arm [0].
	inner := asn1x.NewBuilder(asn1.ClassContextSpecific, 0)
	inner.AddValue(99)
	innerBytes, err := inner.Bytes()
	require.NoError(t, err)

	ext := asn1x.NewBuilder(asn1.ClassContextSpecific, 1)
	ext.AddTagged(asn1.ClassUniversal, asn1.TagSequence, func(b *asn1x.Builder) {
		b.AddRaw(innerBytes)
	})
	extBytes, err := ext.Bytes()
	require.NoError(t, err)

	choice := asn1x.NewBuilder(asn1.ClassUniversal, asn1.TagSequence)
	choice.AddRaw(extBytes)
	outerBytes, err := choice.Bytes()
	require.NoError(t, err)

	var v asn1.RawValue
	_, err = asn1.Unmarshal(outerBytes, &v)
	require.NoError(t, err)

	code, err := decodeChoiceExtensionFallback(v)
	require.NoError(t, err)
	assert.Equal(t, 99, code)
}

func TestDecodeListOrSingleBareSequence(t *testing.T) {
	lm := LandmarkCoordinate{Kind: LandmarkKindCartesian2DSigned, X: 11, Y: 22}
	b := asn1x.NewBuilder(asn1.ClassUniversal, asn1.TagSequence)
	lm.encode(b)
	enc, err := b.Bytes()
	require.NoError(t, err)

	var v asn1.RawValue
	_, err = asn1.Unmarshal(enc, &v)
	require.NoError(t, err)

	out, err := decodeListOrSingle(v, decodeLandmarkCoordinate)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, lm, out[0])
}
