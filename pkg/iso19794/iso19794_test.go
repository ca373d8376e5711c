package iso19794

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaceRecordRoundTrip(t *testing.T) {
	rec := FaceRecord{
		Images: []FaceImageInfo{
			{
				Gender:    1,
				EyeColor:  2,
				HairColor: 3,
				FeaturePoints: []FeaturePoint{
					{Type: 1, MajorCode: 2, MinorCode: 3, X: 100, Y: 200},
				},
				ImageColorSpace: 1,
				ImageDataType:   ImageDataTypeJPEG2000,
				Width:           640,
				Height:          480,
				ImageData:       []byte{0xFF, 0xD8, 0xFF, 0x01, 0x02},
			},
		},
	}
	encoded := rec.Encode()
	decoded, err := DecodeFaceRecord(encoded)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
	assert.Equal(t, encoded, decoded.Encode())
}

func TestFaceRecordMultipleImages(t *testing.T) {
	rec := FaceRecord{
		Images: []FaceImageInfo{
			{ImageDataType: ImageDataTypeJPEG, ImageData: []byte{1, 2, 3}},
			{ImageDataType: ImageDataTypeJPEG2000, ImageData: []byte{4, 5}},
		},
	}
	encoded := rec.Encode()
	decoded, err := DecodeFaceRecord(encoded)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
}

func TestFaceRecordJP2FallbackQuirk(t *testing.T) {
	// 0x0000000C magic in place of "FAC", then a 2-byte big-endian
	// image length, then that many bytes of raw JP2 data.
	raw := []byte{0x00, 0x00, 0x00, 0x0C, 0x00, 0x03, 0xAA, 0xBB, 0xCC}
	decoded, err := DecodeFaceRecord(raw)
	require.NoError(t, err)
	require.Len(t, decoded.Images, 1)
	assert.Equal(t, byte(ImageDataTypeJPEG2000), byte(decoded.Images[0].ImageDataType))
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, decoded.Images[0].ImageData)
	assert.Equal(t, byte(0), decoded.Images[0].Gender)
	assert.Equal(t, uint16(0), decoded.Images[0].Width)
}

func TestFaceRecordRejectsBadMarker(t *testing.T) {
	_, err := DecodeFaceRecord([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})
	require.Error(t, err)
}

func TestIrisRecordRoundTrip(t *testing.T) {
	rec := IrisRecord{
		CaptureDeviceID:       7,
		HorizontalOrientation: 1,
		VerticalOrientation:   2,
		ScanType:              3,
		IrisOcclusion:         1,
		OcclusionFilling:      1,
		BoundaryExtraction:    1,
		IrisDiameter:          220,
		ImageFormat:           1,
		RawImageWidth:         640,
		RawImageHeight:        480,
		IntensityDepth:        8,
		ImageTransformation:   0,
		DeviceUniqueID:        [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		BiometricSubtypes: []IrisBiometricSubtypeInfo{
			{
				BiometricSubtype: 1,
				Images: []IrisImageInfo{
					{ImageNumber: 1, Quality: 50, RotationAngle: 0, RotationAngleUncertainty: 0, ImageData: []byte{1, 2, 3}},
					{ImageNumber: 2, Quality: 60, RotationAngle: 10, RotationAngleUncertainty: 5, ImageData: []byte{4, 5}},
				},
			},
		},
	}
	encoded := rec.Encode()
	decoded, err := DecodeIrisRecord(encoded)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
	assert.Equal(t, encoded, decoded.Encode())
}

func TestIrisRecordImagePropertiesBitfield(t *testing.T) {
	rec := IrisRecord{
		HorizontalOrientation: 1, // bit 0-1
		VerticalOrientation:   1, // bit 2-3
		ScanType:              2, // bit 4-6
		IrisOcclusion:         1, // bit 7
		OcclusionFilling:      1, // bit 8
		BoundaryExtraction:    1, // bit 9
	}
	bits := rec.imagePropertiesBits()
	assert.Equal(t, uint16(0x01), bits&0x0003)
	assert.Equal(t, uint16(0x01), (bits&0x000C)>>2)
	assert.Equal(t, uint16(0x02), (bits&0x0070)>>4)

	decoded, err := DecodeIrisRecord(rec.Encode())
	require.NoError(t, err)
	assert.Equal(t, rec.HorizontalOrientation, decoded.HorizontalOrientation)
	assert.Equal(t, rec.VerticalOrientation, decoded.VerticalOrientation)
	assert.Equal(t, rec.ScanType, decoded.ScanType)
	assert.Equal(t, rec.IrisOcclusion, decoded.IrisOcclusion)
	assert.Equal(t, rec.OcclusionFilling, decoded.OcclusionFilling)
	assert.Equal(t, rec.BoundaryExtraction, decoded.BoundaryExtraction)
}

func TestIrisRecordRejectsBadMarker(t *testing.T) {
	bad := make([]byte, irisHeaderLength)
	_, err := DecodeIrisRecord(bad)
	require.Error(t, err)
}

func TestIrisRecordBiometricSubtypeAggregation(t *testing.T) {
	rec := IrisRecord{
		BiometricSubtypes: []IrisBiometricSubtypeInfo{
			{BiometricSubtype: 0x01},
			{BiometricSubtype: 0x02},
		},
	}

	assert.Equal(t, BiometricSubtypeNone, rec.BiometricSubtype(CombineAND))
	assert.Equal(t, byte(0x03), rec.BiometricSubtype(CombineOR))
}

func TestIrisRecordBiometricSubtypeEmpty(t *testing.T) {
	var rec IrisRecord
	assert.Equal(t, BiometricSubtypeNone, rec.BiometricSubtype(CombineAND))
	assert.Equal(t, BiometricSubtypeNone, rec.BiometricSubtype(CombineOR))
}

func TestFingerRecordRoundTrip(t *testing.T) {
	rec := FingerRecord{
		Images: []FingerImageInfo{
			{
				FingerPosition: 2,
				ViewCount:      1,
				ViewNumber:     0,
				Quality:        80,
				ImpressionType: 0,
				ResolutionX:    500,
				ResolutionY:    500,
				Width:          300,
				Height:         400,
				ImageData:      []byte{0x01, 0x02, 0x03, 0x04},
			},
			{
				FingerPosition: 7,
				ViewCount:      1,
				ViewNumber:     0,
				Quality:        90,
				ImpressionType: 1,
				ResolutionX:    500,
				ResolutionY:    500,
				Width:          300,
				Height:         400,
				ImageData:      []byte{},
			},
		},
	}
	encoded := rec.Encode()
	decoded, err := DecodeFingerRecord(encoded)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
	assert.Equal(t, encoded, decoded.Encode())
}

func TestFingerRecordRejectsBadMarker(t *testing.T) {
	_, err := DecodeFingerRecord([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	require.Error(t, err)
}
