package card

import "github.com/go-emrtd/mrtdcore/pkg/mrtderr"

// Command is a parsed short-form ISO/IEC 7816-4 command APDU. Doc 9303
// never needs extended length APDUs, so only the short form is modeled.
type Command struct {
	CLA, INS, P1, P2 byte
	Data             []byte
	// LePresent distinguishes "no Le byte" (case 1/3) from "Le present"
	// (case 2/4); Le itself is the requested response length (0 means
	// the short-form "up to 256 bytes" convention).
	LePresent bool
	Le        byte
}

// ParseCommand decomposes a short-form command APDU.
func ParseCommand(apdu []byte) (Command, error) {
	if len(apdu) < 4 {
		return Command{}, &mrtderr.MalformedTLV{Reason: "APDU shorter than header"}
	}
	cmd := Command{CLA: apdu[0], INS: apdu[1], P1: apdu[2], P2: apdu[3]}
	rest := apdu[4:]
	switch len(rest) {
	case 0:
		return cmd, nil
	case 1:
		cmd.LePresent = true
		cmd.Le = rest[0]
		return cmd, nil
	default:
		lc := int(rest[0])
		if len(rest) < 1+lc {
			return Command{}, &mrtderr.MalformedTLV{Reason: "APDU shorter than declared Lc"}
		}
		cmd.Data = rest[1 : 1+lc]
		tail := rest[1+lc:]
		switch len(tail) {
		case 0:
		case 1:
			cmd.LePresent = true
			cmd.Le = tail[0]
		default:
			return Command{}, &mrtderr.MalformedTLV{Reason: "trailing bytes after Le"}
		}
		return cmd, nil
	}
}

// Bytes reassembles the short-form command APDU.
func (c Command) Bytes() []byte {
	out := []byte{c.CLA, c.INS, c.P1, c.P2}
	if len(c.Data) > 0 {
		out = append(out, byte(len(c.Data)))
		out = append(out, c.Data...)
	}
	if c.LePresent {
		out = append(out, c.Le)
	}
	return out
}

// Header returns the 4-byte CLA/INS/P1/P2 header.
func (c Command) Header() [4]byte {
	return [4]byte{c.CLA, c.INS, c.P1, c.P2}
}
