package card

import (
	"fmt"

	"github.com/ebfe/scard"

	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// PCSC wraps a PC/SC card connection as a Transmitter, sharing the
// reader instead of claiming it exclusively: PACE and BAC both run to
// completion inside a single contact/contactless session, so nothing
// here needs the exclusive lock a PIV-style multi-app card would.
type PCSC struct {
	ctx       *scard.Context
	Card      *scard.Card
	Reader    string
	ReaderIdx int
}

// Connect establishes a PC/SC connection to the reader at readerIndex.
func Connect(readerIndex int) (*PCSC, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, &mrtderr.TransportError{Cause: fmt.Errorf("establish PC/SC context: %w", err)}
	}

	readers, err := ctx.ListReaders()
	if err != nil || len(readers) == 0 {
		ctx.Release()
		return nil, &mrtderr.TransportError{Cause: fmt.Errorf("no readers found: %v", err)}
	}
	if readerIndex < 0 || readerIndex >= len(readers) {
		ctx.Release()
		return nil, &mrtderr.TransportError{Cause: fmt.Errorf("reader index out of range (0..%d)", len(readers)-1)}
	}

	reader := readers[readerIndex]
	c, err := ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		ctx.Release()
		return nil, &mrtderr.TransportError{Cause: fmt.Errorf("connect failed: %w", err)}
	}

	return &PCSC{ctx: ctx, Card: c, Reader: reader, ReaderIdx: readerIndex}, nil
}

// Close disconnects the card, leaving it powered, and releases the
// PC/SC context. Use CloseAndReset instead after a failed BAC/PACE
// mutual-authentication attempt.
func (p *PCSC) Close() {
	p.disconnect(scard.LeaveCard)
}

// CloseAndReset disconnects with the card reset (a fresh ATR/ATS on the
// next Connect) rather than left powered. A failed mutual-authentication
// attempt leaves the chip's own BAC/PACE state machine in whatever
// partial state it reached, and pkg/protocol/bac.TryKeys's next
// candidate key needs to start that state machine over, not resume it.
func (p *PCSC) CloseAndReset() {
	p.disconnect(scard.ResetCard)
}

func (p *PCSC) disconnect(disposition scard.Disposition) {
	if p == nil {
		return
	}
	if p.Card != nil {
		_ = p.Card.Disconnect(disposition)
	}
	if p.ctx != nil {
		_ = p.ctx.Release()
	}
}

// Transmit implements Transmitter.
func (p *PCSC) Transmit(apdu []byte) ([]byte, error) {
	if p == nil || p.Card == nil {
		return nil, &mrtderr.TransportError{Cause: fmt.Errorf("connection not established")}
	}
	return p.Card.Transmit(apdu)
}
