// Package card abstracts the APDU transport a session talks to: a
// contactless reader, a PC/SC connection, or a test double. It is
// deliberately thin — the transport driver itself is an external
// collaborator — but every protocol and the Secure Messaging
// wrapper is built against the Transmitter interface defined here, the way
// the teacher's ntag424 package is built against its own Card interface.
package card

import (
	"errors"
	"fmt"

	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// Transmitter sends a raw command APDU and returns the raw response APDU
// (including the trailing two status-word bytes).
type Transmitter interface {
	Transmit(apdu []byte) ([]byte, error)
}

const insGetResponse = 0xC0

// Transmit sends an APDU and splits the response into its data and status
// word. The returned data never includes the trailing SW1/SW2 bytes.
//
// A 61XX status means the card has more response data queued than this
// APDU's Le asked for — routine for a T=0 DG2/DG3 image read, never hit
// by BAC/PACE's small fixed-size exchanges — so Transmit keeps issuing
// ISO/IEC 7816-4 GET RESPONSE (C0) until the card reports a final status,
// accumulating the data chunks in order, the way cunicu-go-piv's
// scTx.Transmit chases a 0x61 chain.
func Transmit(t Transmitter, apdu []byte) (data []byte, sw uint16, err error) {
	resp, err := t.Transmit(apdu)
	if err != nil {
		return nil, 0, wrapTransportError(err)
	}
	data, sw, err = splitResponse(resp)
	if err != nil {
		return nil, 0, err
	}
	for sw>>8 == 0x61 {
		resp, err = t.Transmit([]byte{0x00, insGetResponse, 0x00, 0x00, byte(sw)})
		if err != nil {
			return nil, 0, wrapTransportError(err)
		}
		var chunk []byte
		chunk, sw, err = splitResponse(resp)
		if err != nil {
			return nil, 0, err
		}
		data = append(data, chunk...)
	}
	return data, sw, nil
}

func splitResponse(resp []byte) ([]byte, uint16, error) {
	if len(resp) < 2 {
		return nil, 0, &mrtderr.TransportError{Cause: fmt.Errorf("short response: %d bytes", len(resp))}
	}
	sw := uint16(resp[len(resp)-2])<<8 | uint16(resp[len(resp)-1])
	return resp[:len(resp)-2], sw, nil
}

// timeoutError is the net.Error convention: any error that reports its
// own Timeout() is a timeout regardless of which Transmitter produced
// it, so Transmit doesn't need to know the concrete transport type.
type timeoutError interface {
	Timeout() bool
}

func wrapTransportError(err error) error {
	var te timeoutError
	if errors.As(err, &te) && te.Timeout() {
		return &mrtderr.TransportTimeout{Cause: err}
	}
	return &mrtderr.TransportError{Cause: err}
}

// Status word constants for ISO/IEC 7816-4.
const (
	SWSuccess              = 0x9000
	SWSecurityNotSatisfied = 0x6982
	SWFileNotFound         = 0x6A82
	SWWrongP1P2            = 0x6A86
	SWWrongLength          = 0x6700
	SWWrongLe              = 0x6C00
)

// SWError represents a non-success status word returned by the card for a
// given instruction byte.
type SWError struct {
	Ins byte
	SW  uint16
}

func (e *SWError) Error() string {
	return fmt.Sprintf("card command INS=%#02x failed with SW=%#04x", e.Ins, e.SW)
}

// IsSuccess reports whether sw is the ISO/IEC 7816-4 success status word.
func IsSuccess(sw uint16) bool {
	return sw == SWSuccess
}
