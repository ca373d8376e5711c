package iso19794

import (
	"encoding/binary"

	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

const (
	fingerFormatID      = uint32(0x46495200) // "FIR\x00"
	fingerVersionNumber = uint32(0x30313000) // "010\x00"
	fingerHeaderLength  = 14
)

// FingerImageInfo is one finger image record within a FingerRecord,
// analogous in shape to FaceImageInfo: the finger layout
// follows the face/iris records' conventions rather than a distinct
// retrieved source, so this field list is this package's own
// reconstruction of ISO/IEC 19794-4's common fields.
type FingerImageInfo struct {
	FingerPosition byte
	ViewCount      byte
	ViewNumber     byte
	Quality        byte
	ImpressionType byte
	ResolutionX    uint16
	ResolutionY    uint16
	Width          uint16
	Height         uint16
	ImageData      []byte
}

func (f FingerImageInfo) encodedLength() int {
	return 5 + 2 + 2 + 2 + 2 + 4 + len(f.ImageData)
}

func (f FingerImageInfo) encode() []byte {
	buf := make([]byte, 0, f.encodedLength())
	buf = append(buf, f.FingerPosition, f.ViewCount, f.ViewNumber, f.Quality, f.ImpressionType)
	buf = binary.BigEndian.AppendUint16(buf, f.ResolutionX)
	buf = binary.BigEndian.AppendUint16(buf, f.ResolutionY)
	buf = binary.BigEndian.AppendUint16(buf, f.Width)
	buf = binary.BigEndian.AppendUint16(buf, f.Height)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.ImageData)))
	buf = append(buf, f.ImageData...)
	return buf
}

func decodeFingerImageInfo(data []byte) (FingerImageInfo, int, error) {
	if len(data) < 17 {
		return FingerImageInfo{}, 0, &mrtderr.MalformedRecord{Reason: "finger image record truncated before image blob"}
	}
	var f FingerImageInfo
	f.FingerPosition, f.ViewCount, f.ViewNumber, f.Quality, f.ImpressionType = data[0], data[1], data[2], data[3], data[4]
	f.ResolutionX = binary.BigEndian.Uint16(data[5:7])
	f.ResolutionY = binary.BigEndian.Uint16(data[7:9])
	f.Width = binary.BigEndian.Uint16(data[9:11])
	f.Height = binary.BigEndian.Uint16(data[11:13])
	imgLen := int(binary.BigEndian.Uint32(data[13:17]))
	if len(data) < 17+imgLen {
		return FingerImageInfo{}, 0, &mrtderr.MalformedRecord{Reason: "finger image record truncated within image blob"}
	}
	f.ImageData = data[17 : 17+imgLen]
	return f, 17 + imgLen, nil
}

// FingerRecord is EF.DG3's biometric data block: a finger record header
// (mirroring FaceRecord's) plus one or more finger image records.
type FingerRecord struct {
	Images []FingerImageInfo
}

// Encode serialises the record with the "FIR\x00"/"010\x00" header
// DecodeFingerRecord expects.
func (r FingerRecord) Encode() []byte {
	var dataLength int
	for _, img := range r.Images {
		dataLength += img.encodedLength()
	}
	recordLength := fingerHeaderLength + dataLength

	buf := make([]byte, 0, recordLength)
	buf = binary.BigEndian.AppendUint32(buf, fingerFormatID)
	buf = binary.BigEndian.AppendUint32(buf, fingerVersionNumber)
	buf = binary.BigEndian.AppendUint32(buf, uint32(recordLength))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(r.Images)))
	for _, img := range r.Images {
		buf = append(buf, img.encode()...)
	}
	return buf
}

// DecodeFingerRecord parses a finger record.
func DecodeFingerRecord(data []byte) (FingerRecord, error) {
	if len(data) < fingerHeaderLength {
		return FingerRecord{}, &mrtderr.MalformedRecord{Reason: "finger record shorter than header"}
	}
	if binary.BigEndian.Uint32(data[0:4]) != fingerFormatID {
		return FingerRecord{}, &mrtderr.MalformedRecord{Reason: "'FIR' marker expected"}
	}
	if binary.BigEndian.Uint32(data[4:8]) != fingerVersionNumber {
		return FingerRecord{}, &mrtderr.MalformedRecord{Reason: "'010' version number expected"}
	}
	count := int(binary.BigEndian.Uint16(data[12:14]))

	var r FingerRecord
	off := fingerHeaderLength
	for i := 0; i < count; i++ {
		img, n, err := decodeFingerImageInfo(data[off:])
		if err != nil {
			return FingerRecord{}, err
		}
		r.Images = append(r.Images, img)
		off += n
	}
	return r, nil
}
