package sm

import (
	"bytes"

	"github.com/go-emrtd/mrtdcore/pkg/card"
	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

const (
	tagDO87 = tlv.Tag(0x87)
	tagDO97 = tlv.Tag(0x97)
	tagDO8E = tlv.Tag(0x8E)
	tagDO99 = tlv.Tag(0x99)

	paddingIndicatorNoPadding = 0x01
)

// Wrapper is the stateful Secure Messaging session: it owns a Send
// Sequence Counter and a session key pair, and moves to a permanently
// inert state the first time a command cannot be protected or a response
// fails to parse or to verify its MAC. The status word in DO99 is handed
// back by Unwrap as is; the wrapper does not compare it with anything. It is
// the ICAO DO-tag analogue of the teacher's BuildSsmApdu/SsmCmdFull
// pair, generalized across the four SM suites instead of one fixed
// DESFire AES suite.
type Wrapper struct {
	suite      Suite
	kenc, kmac []byte
	ssc        *ssc
	terminated error
}

// NewWrapper constructs a Wrapper for mode with the given session keys
// and initial SSC value (nil means "start at zero"). Callers must
// never share one Wrapper across two key sets —
// Chip Authentication instead discards the old Wrapper and calls
// NewWrapper again with the replacement keys and a reset SSC.
func NewWrapper(mode Mode, kenc, kmac, initialSSC []byte) (*Wrapper, error) {
	suite, ok := SuiteFor(mode)
	if !ok {
		return nil, &mrtderr.UnsupportedAlgorithm{OID: string(mode)}
	}
	if len(kenc) != suite.KeySize || len(kmac) != suite.KeySize {
		return nil, &mrtderr.CryptoFailed{Stage: "new SM wrapper", Cause: errWrongKeySize}
	}
	return &Wrapper{
		suite: suite,
		kenc:  kenc,
		kmac:  kmac,
		ssc:   newSSC(suite.SSCSize, initialSSC),
	}, nil
}

// terminate moves the wrapper to its inert state: err is remembered and
// returned (wrapped) for every subsequent Wrap/Unwrap call.
func (w *Wrapper) terminate(err error) error {
	if w.terminated == nil {
		w.terminated = err
	}
	return &mrtderr.SessionTerminated{Cause: w.terminated}
}

func (w *Wrapper) checkAlive() error {
	if w.terminated != nil {
		return &mrtderr.SessionTerminated{Cause: w.terminated}
	}
	return nil
}

// ivFromSSC derives the CBC IV for this suite from an explicit SSC
// snapshot: the zero block for 3DES, AES-ECB_Kenc(SSC block) for AES.
// Callers always pass the SSC value as it stood *before* the increment
// made for this same message's MAC — the pre-increment IV rule —
// so the snapshot is taken by the caller, never read live off w.ssc here.
func (w *Wrapper) ivFromSSC(snapshot []byte) ([]byte, error) {
	bs := w.suite.BlockSize()
	if w.suite.Cipher == mrtdcrypto.Cipher3DES {
		return make([]byte, bs), nil
	}
	sscBlock := make([]byte, bs)
	copy(sscBlock[bs-len(snapshot):], snapshot)
	return mrtdcrypto.ECBEncryptBlock(w.suite.Cipher, w.kenc, sscBlock)
}

// Wrap protects a plaintext command APDU for transmission.
func (w *Wrapper) Wrap(apdu []byte) ([]byte, error) {
	if err := w.checkAlive(); err != nil {
		return nil, err
	}
	cmd, err := card.ParseCommand(apdu)
	if err != nil {
		return nil, w.terminate(err)
	}

	preIncrementSSC := append([]byte{}, w.ssc.Bytes()...)
	iv, err := w.ivFromSSC(preIncrementSSC)
	if err != nil {
		return nil, w.terminate(err)
	}

	var do87, do97 []byte
	if len(cmd.Data) > 0 {
		padded := mrtdcrypto.PadISO9797M2(cmd.Data, w.suite.BlockSize())
		enc, err := mrtdcrypto.CBCEncrypt(w.suite.Cipher, w.kenc, iv, padded)
		if err != nil {
			return nil, w.terminate(err)
		}
		value := append([]byte{paddingIndicatorNoPadding}, enc...)
		do87 = tlv.Primitive(tagDO87, value).Encode()
	}
	if cmd.LePresent {
		do97 = tlv.Primitive(tagDO97, []byte{cmd.Le}).Encode()
	}

	maskedHeader := [4]byte{cmd.CLA | 0x0C, cmd.INS, cmd.P1, cmd.P2}
	w.ssc.Increment()

	var macInput []byte
	macInput = append(macInput, w.ssc.Bytes()...)
	macInput = append(macInput, maskedHeader[:]...)
	macInput = append(macInput, do87...)
	macInput = append(macInput, do97...)
	macInput = mrtdcrypto.PadISO9797M2(macInput, w.suite.BlockSize())

	mac, err := mrtdcrypto.MAC(w.suite.Cipher, w.kmac, macInput)
	if err != nil {
		return nil, w.terminate(err)
	}
	mact := truncate8(mac)
	do8e := tlv.Primitive(tagDO8E, mact).Encode()

	protectedData := append(append(append([]byte{}, do87...), do97...), do8e...)
	out := card.Command{
		CLA:       maskedHeader[0],
		INS:       maskedHeader[1],
		P1:        maskedHeader[2],
		P2:        maskedHeader[3],
		Data:      protectedData,
		LePresent: true,
		Le:        0x00,
	}
	return out.Bytes(), nil
}

// Unwrap verifies and decrypts a protected response APDU body — the data
// bytes of the response, not including the transport-level SW1SW2 (which
// for an SM exchange is just 0x9000, the card's acknowledgement that it
// received a well-formed SM APDU; the true application status word
// travels inside DO99 and is what Unwrap returns as sw).
func (w *Wrapper) Unwrap(respData []byte) (data []byte, sw uint16, err error) {
	if err := w.checkAlive(); err != nil {
		return nil, 0, err
	}

	var children []tlv.Node
	r := tlv.NewReader(respData)
	for r.Len() > 0 {
		n, err := r.ReadNode()
		if err != nil {
			return nil, 0, w.terminate(err)
		}
		children = append(children, n)
	}
	root := tlv.Node{Children: children}

	do87Node, hasDO87 := root.Find(tagDO87)
	do8eNode, hasDO8E := root.Find(tagDO8E)
	do99Node, hasDO99 := root.Find(tagDO99)
	if !hasDO8E {
		return nil, 0, w.terminate(&mrtderr.MalformedTLV{Reason: "response missing DO8E"})
	}
	if !hasDO99 || len(do99Node.Value) != 2 {
		return nil, 0, w.terminate(&mrtderr.MalformedTLV{Reason: "response missing DO99"})
	}
	sw = uint16(do99Node.Value[0])<<8 | uint16(do99Node.Value[1])

	preIncrementSSC := append([]byte{}, w.ssc.Bytes()...)
	w.ssc.Increment()

	var macInput []byte
	macInput = append(macInput, w.ssc.Bytes()...)
	if hasDO87 {
		macInput = append(macInput, tlv.Primitive(tagDO87, do87Node.Value).Encode()...)
	}
	macInput = append(macInput, tlv.Primitive(tagDO99, do99Node.Value).Encode()...)
	macInput = mrtdcrypto.PadISO9797M2(macInput, w.suite.BlockSize())

	expectedMAC, err := mrtdcrypto.MAC(w.suite.Cipher, w.kmac, macInput)
	if err != nil {
		return nil, 0, w.terminate(err)
	}
	if !bytes.Equal(truncate8(expectedMAC), do8eNode.Value) {
		return nil, 0, w.terminate(&mrtderr.CryptoFailed{Stage: "SM response MAC", Cause: errMACMismatch})
	}

	if !hasDO87 {
		return nil, sw, nil
	}
	if len(do87Node.Value) < 1 || do87Node.Value[0] != paddingIndicatorNoPadding {
		return nil, 0, w.terminate(&mrtderr.MalformedTLV{Reason: "DO87 missing padding indicator"})
	}
	enc := do87Node.Value[1:]

	iv, err := w.ivFromSSC(preIncrementSSC)
	if err != nil {
		return nil, 0, w.terminate(err)
	}
	dec, err := mrtdcrypto.CBCDecrypt(w.suite.Cipher, w.kenc, iv, enc)
	if err != nil {
		return nil, 0, w.terminate(err)
	}
	out, err := mrtdcrypto.UnpadISO9797M2(dec)
	if err != nil {
		return nil, 0, w.terminate(err)
	}
	return out, sw, nil
}

func truncate8(mac []byte) []byte {
	if len(mac) <= 8 {
		return mac
	}
	return mac[:8]
}
