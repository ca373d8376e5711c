package bac

import (
	"bytes"
	"crypto/rand"

	"github.com/go-emrtd/mrtdcore/pkg/card"
	"github.com/go-emrtd/mrtdcore/pkg/kdf"
	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
	"github.com/go-emrtd/mrtdcore/pkg/sm"
)

// Stage names a point in the BAC ceremony, mirroring the teacher's
// AuthError{Step: "step1"/"step2"} labels generalized into a named enum.
type Stage string

const (
	StageInit                Stage = "init"
	StageChallengeSent       Stage = "challenge-sent"
	StageMutualAuthenticated Stage = "mutual-authenticated"
)

// Result is the outcome of a successful BAC run: the derived session
// keys, retained only inside the returned SM wrapper rather than
// exposed directly, and the wrapper ready for use.
type Result struct {
	Wrapper *sm.Wrapper
}

const (
	insGetChallenge        = 0x84
	insExternalAuthenticate = 0x82
)

// Run executes the full BAC ceremony against t using key, returning the
// ready-to-use SM wrapper. Each APDU failure or mutual-authentication
// check failure surfaces as ProtocolError{Protocol: "BAC", Stage: ...}.
func Run(t card.Transmitter, key Key) (*Result, error) {
	stage := StageInit

	rndICC, err := getChallenge(t)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "BAC", Stage: string(stage), Cause: err}
	}
	stage = StageChallengeSent

	kseed := deriveKseed(key)
	kenc, err := kdf.DeriveKey(mrtdcrypto.Cipher3DES, kseed, kdf.CounterEncryption)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "BAC", Stage: string(stage), Cause: err}
	}
	kmac, err := kdf.DeriveKey(mrtdcrypto.Cipher3DES, kseed, kdf.CounterMAC)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "BAC", Stage: string(stage), Cause: err}
	}

	rndIFD := make([]byte, 8)
	if _, err := rand.Read(rndIFD); err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "BAC", Stage: string(stage), Cause: err}
	}
	kIFD := make([]byte, 16)
	if _, err := rand.Read(kIFD); err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "BAC", Stage: string(stage), Cause: err}
	}

	rndICCFromICC, rndIFDFromICC, kICC, err := mutualAuthenticate(t, kenc, kmac, rndIFD, rndICC, kIFD)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "BAC", Stage: string(stage), Cause: err}
	}
	if !bytes.Equal(rndICCFromICC, rndICC) || !bytes.Equal(rndIFDFromICC, rndIFD) {
		return nil, &mrtderr.ProtocolError{
			Protocol: "BAC", Stage: string(stage),
			Cause: errNonceMismatch,
		}
	}
	stage = StageMutualAuthenticated

	sessionSeed := xorBytes(kIFD, kICC)
	sessKenc, err := kdf.DeriveKey(mrtdcrypto.Cipher3DES, sessionSeed, kdf.CounterEncryption)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "BAC", Stage: string(stage), Cause: err}
	}
	sessKmac, err := kdf.DeriveKey(mrtdcrypto.Cipher3DES, sessionSeed, kdf.CounterMAC)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "BAC", Stage: string(stage), Cause: err}
	}

	initialSSC := append(append([]byte{}, rndICC[4:8]...), rndIFD[4:8]...)
	wrapper, err := sm.NewWrapper(sm.ModeDES3CBCCBC, sessKenc, sessKmac, initialSSC)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "BAC", Stage: string(stage), Cause: err}
	}
	return &Result{Wrapper: wrapper}, nil
}

// TryKeys attempts Run with each candidate in order, returning the first
// success. MRZ OCR is unreliable enough in practice that trying a short
// list of candidate keys (e.g. a couple of plausible check-digit or
// date-format corrections) is standard eMRTD-reader behavior, the same
// pattern the JMRTD BACKeySpec family of overloads supports.
func TryKeys(t card.Transmitter, keys []Key) (*Result, error) {
	var lastErr error
	for _, k := range keys {
		res, err := Run(t, k)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	return nil, &mrtderr.ProtocolError{Protocol: "BAC", Stage: "key-selection", Cause: lastErr}
}

func deriveKseed(key Key) []byte {
	sum, _ := mrtdcrypto.Sum(mrtdcrypto.HashSHA1, []byte(key.mrzInfo()))
	return sum[:16]
}

func getChallenge(t card.Transmitter) ([]byte, error) {
	data, sw, err := card.Transmit(t, []byte{0x00, insGetChallenge, 0x00, 0x00, 0x08})
	if err != nil {
		return nil, err
	}
	if sw != card.SWSuccess || len(data) != 8 {
		return nil, &card.SWError{Ins: insGetChallenge, SW: sw}
	}
	return data, nil
}

// mutualAuthenticate sends EXTERNAL AUTHENTICATE and returns the ICC's
// half of the exchange: its echoed RND.ICC, its echoed RND.IFD and its
// contribution K.ICC to the session seed.
func mutualAuthenticate(t card.Transmitter, kenc, kmac, rndIFD, rndICC, kIFD []byte) (rndICCEcho, rndIFDEcho, kICC []byte, err error) {
	plain := append(append(append([]byte{}, rndIFD...), rndICC...), kIFD...)
	padded := mrtdcrypto.PadISO9797M2(plain, 8)
	eIFD, err := mrtdcrypto.CBCEncrypt(mrtdcrypto.Cipher3DES, kenc, make([]byte, 8), padded)
	if err != nil {
		return nil, nil, nil, err
	}
	mIFD, err := mrtdcrypto.MAC(mrtdcrypto.Cipher3DES, kmac, mrtdcrypto.PadISO9797M2(eIFD, 8))
	if err != nil {
		return nil, nil, nil, err
	}

	cmdData := append(append([]byte{}, eIFD...), mIFD...)
	apdu := append(append([]byte{0x00, insExternalAuthenticate, 0x00, 0x00, byte(len(cmdData))}, cmdData...), 0x28)
	resp, sw, err := card.Transmit(t, apdu)
	if err != nil {
		return nil, nil, nil, err
	}
	if sw != card.SWSuccess || len(resp) != 40 {
		return nil, nil, nil, &card.SWError{Ins: insExternalAuthenticate, SW: sw}
	}

	eICC := resp[:32]
	mICC := resp[32:]
	expectedMAC, err := mrtdcrypto.MAC(mrtdcrypto.Cipher3DES, kmac, mrtdcrypto.PadISO9797M2(eICC, 8))
	if err != nil {
		return nil, nil, nil, err
	}
	if !bytes.Equal(expectedMAC, mICC) {
		return nil, nil, nil, errResponseMACMismatch
	}

	dec, err := mrtdcrypto.CBCDecrypt(mrtdcrypto.Cipher3DES, kenc, make([]byte, 8), eICC)
	if err != nil {
		return nil, nil, nil, err
	}
	return dec[0:8], dec[8:16], dec[16:32], nil
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
