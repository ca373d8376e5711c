package tlv

import "github.com/go-emrtd/mrtdcore/pkg/mrtderr"

// Reader is a pull-based BER reader over an in-memory buffer: callers that
// need to interleave tag/length/value reads with their own schema logic
// (DG11's tag-list header, CBEFF's nested header templates) use this
// instead of the all-at-once Decode.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for sequential TLV reads.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.data) - r.pos
}

// Peek returns the tag of the next TLV without consuming it.
func (r *Reader) Peek() (Tag, error) {
	tag, _, err := decodeTag(r.data[r.pos:])
	return tag, err
}

// ReadTag consumes and returns the next tag.
func (r *Reader) ReadTag() (Tag, error) {
	tag, n, err := decodeTag(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n
	return tag, nil
}

// ReadLength consumes and returns the next length field.
func (r *Reader) ReadLength() (int, error) {
	n, consumed, indefinite, err := decodeLength(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	if indefinite {
		return 0, &mrtderr.MalformedTLV{Reason: "indefinite length not valid here"}
	}
	r.pos += consumed
	return n, nil
}

// ReadValue consumes and returns the next n raw value bytes.
func (r *Reader) ReadValue(n int) ([]byte, error) {
	if r.Len() < n {
		return nil, &mrtderr.MalformedTLV{Reason: "value shorter than declared length"}
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// ReadNode reads one complete TLV (recursing into children if constructed)
// the way Decode does, but advances this Reader's cursor instead of
// returning a remainder slice.
func (r *Reader) ReadNode() (Node, error) {
	node, rest, err := Decode(r.data[r.pos:])
	if err != nil {
		return Node{}, err
	}
	r.pos = len(r.data) - len(rest)
	return node, nil
}

// ReadConstructed reads the tag and length of the next TLV, asserts it is
// constructed, and returns a bounded sub-Reader scoped to its value — the
// caller then reads the children with that sub-Reader without needing to
// know the parent's total length in advance.
func (r *Reader) ReadConstructed() (Tag, *Reader, error) {
	tag, err := r.ReadTag()
	if err != nil {
		return 0, nil, err
	}
	if !tag.Constructed() {
		return 0, nil, &mrtderr.MalformedTLV{Reason: "expected constructed tag"}
	}
	n, err := r.ReadLength()
	if err != nil {
		return 0, nil, err
	}
	value, err := r.ReadValue(n)
	if err != nil {
		return 0, nil, err
	}
	return tag, NewReader(value), nil
}

// SkipTo consumes and discards whole TLVs until one with the given tag is
// next (left unconsumed), or returns UnexpectedTag if the buffer is
// exhausted first.
func (r *Reader) SkipTo(tag Tag) error {
	for r.Len() > 0 {
		next, err := r.Peek()
		if err != nil {
			return err
		}
		if next == tag {
			return nil
		}
		if _, err := r.ReadNode(); err != nil {
			return err
		}
	}
	return &mrtderr.UnexpectedTag{Expected: uint32(tag)}
}
