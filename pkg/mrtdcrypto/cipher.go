// Package mrtdcrypto adapts the cipher/MAC/hash/key-agreement primitives
// Doc 9303 names into a small set of Go functions shared by pkg/sm,
// pkg/kdf and pkg/protocol/*. Block-cipher and padding shapes are
// generalized from the teacher's aesCBCEncrypt/aesCBCDecrypt/
// padISO9797M2 (pkg/ntag424/crypto.go) from a single fixed AES-128 case
// to both DES3 and AES at their Doc 9303 key sizes.
package mrtdcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des" //nolint:staticcheck // Doc 9303 BAC/PACE-3DES require it
	"fmt"

	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// Cipher names a Doc 9303 block cipher family. Algorithm tables elsewhere
// in this module (pkg/sm.Suite, pkg/kdf) key off this type rather than
// repeating "3DES" string literals.
type Cipher int

const (
	Cipher3DES Cipher = iota
	CipherAES128
	CipherAES192
	CipherAES256
)

// BlockSize returns the cipher's block size in bytes: 8 for 3DES, 16 for
// every AES key size.
func (c Cipher) BlockSize() int {
	if c == Cipher3DES {
		return 8
	}
	return 16
}

// NewBlock constructs the stdlib cipher.Block for key under c.
func NewBlock(c Cipher, key []byte) (cipher.Block, error) {
	switch c {
	case Cipher3DES:
		if len(key) == 16 {
			key = append(append([]byte{}, key...), key[:8]...) // two-key 3DES, K1||K2||K1
		}
		block, err := des.NewTripleDESCipher(key)
		if err != nil {
			return nil, &mrtderr.CryptoFailed{Stage: "new 3DES cipher", Cause: err}
		}
		return block, nil
	case CipherAES128, CipherAES192, CipherAES256:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, &mrtderr.CryptoFailed{Stage: "new AES cipher", Cause: err}
		}
		return block, nil
	default:
		return nil, &mrtderr.UnsupportedAlgorithm{OID: fmt.Sprintf("cipher family %d", c)}
	}
}

// CBCEncrypt block-encrypts data (which must already be a multiple of the
// cipher's block size) under key and iv.
func CBCEncrypt(c Cipher, key, iv, data []byte) ([]byte, error) {
	block, err := NewBlock(c, key)
	if err != nil {
		return nil, err
	}
	if len(data)%block.BlockSize() != 0 {
		return nil, &mrtderr.CryptoFailed{Stage: "CBC encrypt", Cause: fmt.Errorf("data not block aligned")}
	}
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return out, nil
}

// CBCDecrypt is the inverse of CBCEncrypt.
func CBCDecrypt(c Cipher, key, iv, data []byte) ([]byte, error) {
	block, err := NewBlock(c, key)
	if err != nil {
		return nil, err
	}
	if len(data)%block.BlockSize() != 0 {
		return nil, &mrtderr.CryptoFailed{Stage: "CBC decrypt", Cause: fmt.Errorf("data not block aligned")}
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return out, nil
}

// ECBEncryptBlock encrypts exactly one block with no chaining — used by
// pkg/sm to derive the AES IV from the SSC block.
func ECBEncryptBlock(c Cipher, key, blockIn []byte) ([]byte, error) {
	block, err := NewBlock(c, key)
	if err != nil {
		return nil, err
	}
	if len(blockIn) != block.BlockSize() {
		return nil, &mrtderr.CryptoFailed{Stage: "ECB encrypt", Cause: fmt.Errorf("wrong block length")}
	}
	out := make([]byte, block.BlockSize())
	block.Encrypt(out, blockIn)
	return out, nil
}

// PadISO9797M2 applies ISO/IEC 9797-1 padding method 2 (append 0x80, then
// zero-fill to a multiple of blockSize): Doc 9303's padding rule for both
// Secure Messaging and the BAC/PACE MAC inputs.
func PadISO9797M2(data []byte, blockSize int) []byte {
	padLen := blockSize - (len(data) % blockSize)
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	out[len(data)] = 0x80
	return out
}

// UnpadISO9797M2 strips ISO/IEC 9797-1 method 2 padding, failing if the
// trailing bytes are not a well-formed 0x80-then-zeros tail.
func UnpadISO9797M2(data []byte) ([]byte, error) {
	idx := len(data) - 1
	for idx >= 0 && data[idx] == 0x00 {
		idx--
	}
	if idx < 0 || data[idx] != 0x80 {
		return nil, &mrtderr.CryptoFailed{Stage: "unpad ISO9797 method 2", Cause: fmt.Errorf("bad padding")}
	}
	return data[:idx], nil
}
