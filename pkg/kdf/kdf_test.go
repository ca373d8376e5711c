package kdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
)

func TestDeriveKeyBAC3DESVectorShapes(t *testing.T) {
	// From the ICAO 9303 Part 11 BAC worked example, Kseed (document
	// basic access keys seed) = 239AB9CB282DAF66231DC5A4DF6BFBAE.
	kseed := []byte{
		0x23, 0x9A, 0xB9, 0xCB, 0x28, 0x2D, 0xAF, 0x66,
		0x23, 0x1D, 0xC5, 0xA4, 0xDF, 0x6B, 0xFB, 0xAE,
	}
	kenc, err := DeriveKey(mrtdcrypto.Cipher3DES, kseed, CounterEncryption)
	require.NoError(t, err)
	require.Len(t, kenc, 16)

	kmac, err := DeriveKey(mrtdcrypto.Cipher3DES, kseed, CounterMAC)
	require.NoError(t, err)
	require.Len(t, kmac, 16)
	assert.NotEqual(t, kenc, kmac)

	for _, b := range kenc {
		assert.Equal(t, byte(1), oddParityBit(b))
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	seed := []byte("some shared secret material, 32 bytes long xx!")
	k1, err := DeriveKey(mrtdcrypto.CipherAES256, seed, CounterEncryption)
	require.NoError(t, err)
	k2, err := DeriveKey(mrtdcrypto.CipherAES256, seed, CounterEncryption)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 32)
}

func TestDeriveKeySizesPerCipher(t *testing.T) {
	seed := []byte("seed")
	cases := []struct {
		cipher mrtdcrypto.Cipher
		size   int
	}{
		{mrtdcrypto.Cipher3DES, 16},
		{mrtdcrypto.CipherAES128, 16},
		{mrtdcrypto.CipherAES192, 24},
		{mrtdcrypto.CipherAES256, 32},
	}
	for _, tc := range cases {
		k, err := DeriveKey(tc.cipher, seed, CounterEncryption)
		require.NoError(t, err)
		assert.Len(t, k, tc.size)
	}
}

func oddParityBit(b byte) byte {
	var parity byte
	for bit := 0; bit < 8; bit++ {
		parity ^= (b >> bit) & 1
	}
	return parity
}
