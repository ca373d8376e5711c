package tlv

import "github.com/go-emrtd/mrtdcore/pkg/mrtderr"

// Node is a single parsed BER tag/length/value triple. A primitive node
// carries Value; a constructed node carries Children instead and Value is
// always nil — callers must check Tag.Constructed() (equivalently len(
// Children) > 0 is possible but not equivalent for an empty constructed
// node, so always consult Tag).
type Node struct {
	Tag      Tag
	Value    []byte
	Children []Node
}

// Encode serialises n as canonical definite-length BER. Encode(Decode(x))
// reproduces x byte-for-byte for any x that uses definite lengths in
// their shortest form; indefinite or over-long length fields are decoded
// but re-emitted in that canonical form.
func (n Node) Encode() []byte {
	var value []byte
	if n.Tag.Constructed() {
		for _, c := range n.Children {
			value = append(value, c.Encode()...)
		}
	} else {
		value = n.Value
	}
	out := append([]byte{}, encodeTag(n.Tag)...)
	out = append(out, encodeLength(len(value))...)
	out = append(out, value...)
	return out
}

// Decode parses exactly one BER TLV from data and returns it along with any
// trailing bytes not consumed. For a constructed tag whose length field is
// indefinite (0x80), Decode reads children until it encounters the
// end-of-contents marker (0x00 0x00), per the tolerance for
// indefinite length on read — but Encode never re-emits that form.
func Decode(data []byte) (Node, []byte, error) {
	tag, tn, err := decodeTag(data)
	if err != nil {
		return Node{}, nil, err
	}
	rest := data[tn:]
	length, ln, indefinite, err := decodeLength(rest)
	if err != nil {
		return Node{}, nil, err
	}
	rest = rest[ln:]

	if indefinite {
		if !tag.Constructed() {
			return Node{}, nil, &mrtderr.MalformedTLV{Reason: "indefinite length on primitive tag"}
		}
		var children []Node
		for {
			if len(rest) >= 2 && rest[0] == 0x00 && rest[1] == 0x00 {
				rest = rest[2:]
				break
			}
			if len(rest) == 0 {
				return Node{}, nil, &mrtderr.MalformedTLV{Reason: "unterminated indefinite-length value"}
			}
			var child Node
			child, rest, err = Decode(rest)
			if err != nil {
				return Node{}, nil, err
			}
			children = append(children, child)
		}
		return Node{Tag: tag, Children: children}, rest, nil
	}

	if len(rest) < length {
		return Node{}, nil, &mrtderr.MalformedTLV{Reason: "value shorter than declared length"}
	}
	value := rest[:length]
	remainder := rest[length:]

	if !tag.Constructed() {
		return Node{Tag: tag, Value: value}, remainder, nil
	}

	var children []Node
	for len(value) > 0 {
		var child Node
		child, value, err = Decode(value)
		if err != nil {
			return Node{}, nil, err
		}
		children = append(children, child)
	}
	return Node{Tag: tag, Children: children}, remainder, nil
}

// DecodeOne parses exactly one TLV from data and errors if any bytes remain.
func DecodeOne(data []byte) (Node, error) {
	n, rest, err := Decode(data)
	if err != nil {
		return Node{}, err
	}
	if len(rest) != 0 {
		return Node{}, &mrtderr.MalformedTLV{Reason: "trailing bytes after single TLV"}
	}
	return n, nil
}

// Find returns the first direct child with the given tag.
func (n Node) Find(tag Tag) (Node, bool) {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c, true
		}
	}
	return Node{}, false
}

// Primitive builds a primitive Node.
func Primitive(tag Tag, value []byte) Node {
	return Node{Tag: tag.AsPrimitive(), Value: value}
}

// Constructed builds a constructed Node from its children.
func Constructed(tag Tag, children ...Node) Node {
	return Node{Tag: tag.AsConstructed(), Children: children}
}
