package card

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

type stubTransmitter struct {
	responses [][]byte
	calls     [][]byte
	err       error
}

func (s *stubTransmitter) Transmit(apdu []byte) ([]byte, error) {
	s.calls = append(s.calls, apdu)
	if s.err != nil {
		return nil, s.err
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func TestTransmitSimpleSuccess(t *testing.T) {
	stub := &stubTransmitter{responses: [][]byte{{0x01, 0x02, 0x90, 0x00}}}
	data, sw, err := Transmit(stub, []byte{0x00, 0xA4, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, data)
	assert.Equal(t, uint16(SWSuccess), sw)
	assert.Len(t, stub.calls, 1)
}

func TestTransmitChasesGetResponseChain(t *testing.T) {
	stub := &stubTransmitter{responses: [][]byte{
		{0xAA, 0xBB, 0x61, 0x02},
		{0xCC, 0xDD, 0x61, 0x01},
		{0xEE, 0x90, 0x00},
	}}
	data, sw, err := Transmit(stub, []byte{0x00, 0xB0, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE}, data)
	assert.Equal(t, uint16(SWSuccess), sw)
	require.Len(t, stub.calls, 3)
	assert.Equal(t, []byte{0x00, insGetResponse, 0x00, 0x00, 0x02}, stub.calls[1])
	assert.Equal(t, []byte{0x00, insGetResponse, 0x00, 0x00, 0x01}, stub.calls[2])
}

func TestTransmitShortResponseIsTransportError(t *testing.T) {
	stub := &stubTransmitter{responses: [][]byte{{0x00}}}
	_, _, err := Transmit(stub, []byte{0x00, 0xA4, 0x00, 0x00})
	require.Error(t, err)
	var transportErr *mrtderr.TransportError
	assert.True(t, errors.As(err, &transportErr))
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "timed out" }
func (timeoutErr) Timeout() bool { return true }

func TestTransmitWrapsTimeout(t *testing.T) {
	stub := &stubTransmitter{err: timeoutErr{}}
	_, _, err := Transmit(stub, []byte{0x00, 0xA4, 0x00, 0x00})
	require.Error(t, err)
	var timeout *mrtderr.TransportTimeout
	assert.True(t, errors.As(err, &timeout))
}

func TestTransmitWrapsPlainTransportError(t *testing.T) {
	stub := &stubTransmitter{err: errors.New("reader unplugged")}
	_, _, err := Transmit(stub, []byte{0x00, 0xA4, 0x00, 0x00})
	require.Error(t, err)
	var transportErr *mrtderr.TransportError
	assert.True(t, errors.As(err, &transportErr))
	var timeout *mrtderr.TransportTimeout
	assert.False(t, errors.As(err, &timeout))
}
