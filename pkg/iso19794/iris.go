package iso19794

import (
	"encoding/binary"

	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

const (
	irisFormatID      = uint32(0x49495200) // "IIR\x00"
	irisVersionNumber = uint32(0x30313000) // "010\x00"
	irisHeaderLength  = 45
	deviceUniqueIDLen = 16
)

// IrisImageInfo is one image block within an iris biometric subtype
// block. The field list (image number, quality, rotation angle and its
// uncertainty, then a length-prefixed image blob) follows the common
// ISO/IEC 19794-6 image-block shape; the exact Java source for this
// nested record was not present in original_source, so this layout is
// this module's own reconstruction, self-consistent and round-trip
// exact but not independently verified against another implementation.
type IrisImageInfo struct {
	ImageNumber             uint16
	Quality                 byte
	RotationAngle           uint16
	RotationAngleUncertainty uint16
	ImageData               []byte
}

func (img IrisImageInfo) encodedLength() int {
	return 2 + 1 + 2 + 2 + 4 + len(img.ImageData)
}

func (img IrisImageInfo) encode() []byte {
	buf := make([]byte, 0, img.encodedLength())
	buf = binary.BigEndian.AppendUint16(buf, img.ImageNumber)
	buf = append(buf, img.Quality)
	buf = binary.BigEndian.AppendUint16(buf, img.RotationAngle)
	buf = binary.BigEndian.AppendUint16(buf, img.RotationAngleUncertainty)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(img.ImageData)))
	buf = append(buf, img.ImageData...)
	return buf
}

func decodeIrisImageInfo(data []byte) (IrisImageInfo, int, error) {
	if len(data) < 11 {
		return IrisImageInfo{}, 0, &mrtderr.MalformedRecord{Reason: "iris image block truncated before image blob"}
	}
	var img IrisImageInfo
	img.ImageNumber = binary.BigEndian.Uint16(data[0:2])
	img.Quality = data[2]
	img.RotationAngle = binary.BigEndian.Uint16(data[3:5])
	img.RotationAngleUncertainty = binary.BigEndian.Uint16(data[5:7])
	imgLen := int(binary.BigEndian.Uint32(data[7:11]))
	if len(data) < 11+imgLen {
		return IrisImageInfo{}, 0, &mrtderr.MalformedRecord{Reason: "iris image block truncated within image data"}
	}
	img.ImageData = data[11 : 11+imgLen]
	return img, 11 + imgLen, nil
}

// IrisBiometricSubtypeInfo is one biometric-subtype block (e.g. left eye,
// right eye) wrapping the image blocks captured for that subtype.
type IrisBiometricSubtypeInfo struct {
	BiometricSubtype byte
	Images           []IrisImageInfo
}

func (s IrisBiometricSubtypeInfo) recordLength() int {
	n := 1 + 2 // subtype byte + image count
	for _, img := range s.Images {
		n += img.encodedLength()
	}
	return n
}

func (s IrisBiometricSubtypeInfo) encode() []byte {
	buf := make([]byte, 0, s.recordLength())
	buf = append(buf, s.BiometricSubtype)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s.Images)))
	for _, img := range s.Images {
		buf = append(buf, img.encode()...)
	}
	return buf
}

func decodeIrisBiometricSubtypeInfo(data []byte) (IrisBiometricSubtypeInfo, int, error) {
	if len(data) < 3 {
		return IrisBiometricSubtypeInfo{}, 0, &mrtderr.MalformedRecord{Reason: "iris biometric subtype block truncated before image count"}
	}
	var s IrisBiometricSubtypeInfo
	s.BiometricSubtype = data[0]
	count := int(binary.BigEndian.Uint16(data[1:3]))
	off := 3
	for i := 0; i < count; i++ {
		img, n, err := decodeIrisImageInfo(data[off:])
		if err != nil {
			return IrisBiometricSubtypeInfo{}, 0, err
		}
		s.Images = append(s.Images, img)
		off += n
	}
	return s, off, nil
}

// IrisRecord is EF.DG4's biometric data block, grounded exactly on
// original_source/jmrtd's IrisInfo.java for the 45-byte header layout
// including its packed image-properties bitfield.
type IrisRecord struct {
	CaptureDeviceID          uint16
	HorizontalOrientation    byte
	VerticalOrientation      byte
	ScanType                 byte
	IrisOcclusion            byte
	OcclusionFilling         byte
	BoundaryExtraction       byte
	IrisDiameter             uint16
	ImageFormat              uint16
	RawImageWidth            uint16
	RawImageHeight           uint16
	IntensityDepth           byte
	ImageTransformation      byte
	DeviceUniqueID           [deviceUniqueIDLen]byte
	BiometricSubtypes        []IrisBiometricSubtypeInfo
}

func (r IrisRecord) imagePropertiesBits() uint16 {
	bits := uint16(r.HorizontalOrientation) & 0x0003
	bits |= (uint16(r.VerticalOrientation) << 2) & 0x000C
	bits |= (uint16(r.ScanType) << 4) & 0x0070
	bits |= (uint16(r.IrisOcclusion) << 7) & 0x0080
	bits |= (uint16(r.OcclusionFilling) << 8) & 0x0100
	bits |= (uint16(r.BoundaryExtraction) << 9) & 0x0200
	return bits
}

// Encode serialises the record with the "IIR\x00"/"010\x00" header
// DecodeIrisRecord expects.
func (r IrisRecord) Encode() []byte {
	var dataLength int
	for _, s := range r.BiometricSubtypes {
		dataLength += s.recordLength()
	}
	recordLength := irisHeaderLength + dataLength

	buf := make([]byte, 0, recordLength)
	buf = binary.BigEndian.AppendUint32(buf, irisFormatID)
	buf = binary.BigEndian.AppendUint32(buf, irisVersionNumber)
	buf = binary.BigEndian.AppendUint32(buf, uint32(recordLength))
	buf = binary.BigEndian.AppendUint16(buf, r.CaptureDeviceID)
	buf = append(buf, byte(len(r.BiometricSubtypes)))
	buf = binary.BigEndian.AppendUint16(buf, irisHeaderLength)
	buf = binary.BigEndian.AppendUint16(buf, r.imagePropertiesBits())
	buf = binary.BigEndian.AppendUint16(buf, r.IrisDiameter)
	buf = binary.BigEndian.AppendUint16(buf, r.ImageFormat)
	buf = binary.BigEndian.AppendUint16(buf, r.RawImageWidth)
	buf = binary.BigEndian.AppendUint16(buf, r.RawImageHeight)
	buf = append(buf, r.IntensityDepth, r.ImageTransformation)
	buf = append(buf, r.DeviceUniqueID[:]...)
	for _, s := range r.BiometricSubtypes {
		buf = append(buf, s.encode()...)
	}
	return buf
}

// DecodeIrisRecord parses an iris record.
func DecodeIrisRecord(data []byte) (IrisRecord, error) {
	if len(data) < irisHeaderLength {
		return IrisRecord{}, &mrtderr.MalformedRecord{Reason: "iris record shorter than header"}
	}
	if binary.BigEndian.Uint32(data[0:4]) != irisFormatID {
		return IrisRecord{}, &mrtderr.MalformedRecord{Reason: "'IIR' marker expected"}
	}
	if binary.BigEndian.Uint32(data[4:8]) != irisVersionNumber {
		return IrisRecord{}, &mrtderr.MalformedRecord{Reason: "'010' version number expected"}
	}

	var r IrisRecord
	r.CaptureDeviceID = binary.BigEndian.Uint16(data[12:14])
	count := int(data[14])
	headerLen := binary.BigEndian.Uint16(data[15:17])
	if headerLen != irisHeaderLength {
		return IrisRecord{}, &mrtderr.MalformedRecord{Reason: "unexpected iris header length"}
	}
	bits := binary.BigEndian.Uint16(data[17:19])
	r.HorizontalOrientation = byte(bits & 0x0003)
	r.VerticalOrientation = byte((bits & 0x000C) >> 2)
	r.ScanType = byte((bits & 0x0070) >> 4)
	r.IrisOcclusion = byte((bits & 0x0080) >> 7)
	r.OcclusionFilling = byte((bits & 0x0100) >> 8)
	r.BoundaryExtraction = byte((bits & 0x0200) >> 9)

	r.IrisDiameter = binary.BigEndian.Uint16(data[19:21])
	r.ImageFormat = binary.BigEndian.Uint16(data[21:23])
	r.RawImageWidth = binary.BigEndian.Uint16(data[23:25])
	r.RawImageHeight = binary.BigEndian.Uint16(data[25:27])
	r.IntensityDepth = data[27]
	r.ImageTransformation = data[28]
	copy(r.DeviceUniqueID[:], data[29:45])

	off := irisHeaderLength
	for i := 0; i < count; i++ {
		s, n, err := decodeIrisBiometricSubtypeInfo(data[off:])
		if err != nil {
			return IrisRecord{}, err
		}
		r.BiometricSubtypes = append(r.BiometricSubtypes, s)
		off += n
	}
	return r, nil
}

// BiometricSubtypeNone is the ISO/IEC 7816-11 Annex C sentinel for "no
// biometric subtype declared".
const BiometricSubtypeNone = byte(0x00)

// CombineBiometricSubtype selects how IrisRecord.BiometricSubtype
// aggregates the subtype code across an iris record's sub-records.
type CombineBiometricSubtype int

const (
	// CombineAND reproduces the original's aggregation: it starts the
	// accumulator at BiometricSubtypeNone (0) and ANDs every
	// sub-record's code into it, which leaves the result 0 regardless
	// of what the sub-records actually report. Kept as the default so
	// the byte this aggregate feeds into a Standard Biometric Header
	// stays exactly what the original produced.
	CombineAND CombineBiometricSubtype = iota
	// CombineOR is what the aggregation was most likely meant to do:
	// a sub-record's subtype contributes to the result instead of
	// being masked out by the zeroed accumulator.
	CombineOR
)

// BiometricSubtype aggregates BiometricSubtypes[*].BiometricSubtype into
// the single code a Standard Biometric Header's subtype field carries.
func (r IrisRecord) BiometricSubtype(how CombineBiometricSubtype) byte {
	if how == CombineOR {
		var result byte
		for _, s := range r.BiometricSubtypes {
			result |= s.BiometricSubtype
		}
		return result
	}
	result := BiometricSubtypeNone
	for _, s := range r.BiometricSubtypes {
		result &= s.BiometricSubtype
	}
	return result
}
