// Package sm implements the Doc 9303 Secure Messaging wrapper: it
// encrypts and MAC-protects outgoing command APDUs and verifies/decrypts
// incoming response APDUs, tracking a per-direction Send Sequence
// Counter. It is built directly on the teacher's BuildSsmApdu/SsmCmdFull
// pair (pkg/ntag424/secure.go) — encrypt-then-MAC with an IV derived
// from session state, response MAC verified before decryption — with the
// DESFire-specific framing (TI, CmdCtr, fixed 90/Cmd header) replaced by
// the ICAO DO87/DO97/DO8E/DO99 data-object framing and the single fixed
// AES suite made table-driven across §6's four SM modes.
package sm

import "github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"

// Mode names one of the four SM algorithm combinations supports.
type Mode string

const (
	ModeDES3CBCCBC     Mode = "DES3_CBC_CBC"
	ModeAESCBCCMAC128  Mode = "AES_CBC_CMAC_128"
	ModeAESCBCCMAC192  Mode = "AES_CBC_CMAC_192"
	ModeAESCBCCMAC256  Mode = "AES_CBC_CMAC_256"
)

// Suite is one row of the SM algorithm table below: cipher, block size,
// key size and SSC size are all derived from Mode rather than passed
// separately, so a caller can never construct an inconsistent
// combination (e.g. an AES cipher with an 8-byte SSC).
type Suite struct {
	Mode    Mode
	Cipher  mrtdcrypto.Cipher
	KeySize int
	SSCSize int
}

// SuiteFor looks up the table row for mode.
func SuiteFor(mode Mode) (Suite, bool) {
	switch mode {
	case ModeDES3CBCCBC:
		return Suite{Mode: mode, Cipher: mrtdcrypto.Cipher3DES, KeySize: 16, SSCSize: 8}, true
	case ModeAESCBCCMAC128:
		return Suite{Mode: mode, Cipher: mrtdcrypto.CipherAES128, KeySize: 16, SSCSize: 16}, true
	case ModeAESCBCCMAC192:
		return Suite{Mode: mode, Cipher: mrtdcrypto.CipherAES192, KeySize: 24, SSCSize: 16}, true
	case ModeAESCBCCMAC256:
		return Suite{Mode: mode, Cipher: mrtdcrypto.CipherAES256, KeySize: 32, SSCSize: 16}, true
	default:
		return Suite{}, false
	}
}

// BlockSize returns the cipher block size for the suite (also the IV
// size and the unit padding rounds to).
func (s Suite) BlockSize() int {
	return s.Cipher.BlockSize()
}

// ModeForCipher returns the Mode whose Suite uses cipher — the inverse
// of SuiteFor.Cipher, needed by PACE and Chip Authentication, which
// negotiate a cipher family before they have any reason to name an SM
// Mode string directly.
func ModeForCipher(cipher mrtdcrypto.Cipher) (Mode, bool) {
	switch cipher {
	case mrtdcrypto.Cipher3DES:
		return ModeDES3CBCCBC, true
	case mrtdcrypto.CipherAES128:
		return ModeAESCBCCMAC128, true
	case mrtdcrypto.CipherAES192:
		return ModeAESCBCCMAC192, true
	case mrtdcrypto.CipherAES256:
		return ModeAESCBCCMAC256, true
	default:
		return "", false
	}
}
