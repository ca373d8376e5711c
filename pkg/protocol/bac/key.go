// Package bac implements Basic Access Control: the MRZ-derived
// challenge/response ceremony that establishes the first Secure
// Messaging session with the chip. Grounded on the teacher's
// AuthenticateEV2First/AuthenticateWithFallback pair in auth.go — same
// "get challenge, build a mutual-authenticate payload, verify the
// peer's half, derive session keys" shape and the same multi-attempt
// fallback idiom, generalized from DESFire AES keys to Doc 9303's
// MRZ-seeded 3DES keys.
package bac

import (
	"fmt"
	"strings"
)

// Key is the BAC access key derived from the MRZ: document number, date
// of birth and date of expiry. DocumentNumber is right-padded with '<'
// to at least 9 characters mirroring
// original_source/jmrtd's BACKey (which pads then calls .trim(), a
// no-op since '<' is not whitespace — the padding is the real effect
// and is reproduced here; the redundant trim is not).
type Key struct {
	DocumentNumber string
	DateOfBirth    string // yyMMdd
	DateOfExpiry   string // yyMMdd
}

// NewKey builds a Key from raw MRZ field values, applying the '<'
// right-pad to documentNumber.
func NewKey(documentNumber, dateOfBirth, dateOfExpiry string) Key {
	doc := documentNumber
	for len(doc) < 9 {
		doc += "<"
	}
	return Key{DocumentNumber: doc, DateOfBirth: dateOfBirth, DateOfExpiry: dateOfExpiry}
}

// mrzInfo builds the 24-character MRZ_information string BAC hashes to
// derive K_seed: document number + its check digit, date of birth + its
// check digit, date of expiry + its check digit.
func (k Key) mrzInfo() string {
	var b strings.Builder
	b.WriteString(k.DocumentNumber)
	b.WriteByte(checkDigit(k.DocumentNumber))
	b.WriteString(k.DateOfBirth)
	b.WriteByte(checkDigit(k.DateOfBirth))
	b.WriteString(k.DateOfExpiry)
	b.WriteByte(checkDigit(k.DateOfExpiry))
	return b.String()
}

// checkDigit computes the ICAO 9303 MRZ check digit: each character's
// value (digit=itself, letter=A=10..Z=35, '<'=0) weighted 7/3/1 cyclic,
// summed mod 10.
func checkDigit(s string) byte {
	weights := [3]int{7, 3, 1}
	sum := 0
	for i := 0; i < len(s); i++ {
		sum += charValue(s[i]) * weights[i%3]
	}
	return byte('0' + sum%10)
}

func charValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	case c == '<':
		return 0
	default:
		panic(fmt.Sprintf("bac: invalid MRZ character %q", c))
	}
}
