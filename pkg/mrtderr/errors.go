// Package mrtderr collects the error taxonomy shared by every layer of
// mrtdcore: codec failures, protocol failures and SOd verification failures
// are each a distinct, inspectable type rather than an opaque string, so a
// caller can branch on errors.As instead of parsing messages.
package mrtderr

import "fmt"

// MalformedTLV is returned by pkg/tlv when a byte stream does not contain a
// well-formed BER tag/length/value triple.
type MalformedTLV struct {
	Reason string
}

func (e *MalformedTLV) Error() string {
	return fmt.Sprintf("malformed TLV: %s", e.Reason)
}

// MalformedASN1 is returned by pkg/asn1x and the iso39794/sod codecs when a
// DER/BER structure does not match its expected schema.
type MalformedASN1 struct {
	Reason string
}

func (e *MalformedASN1) Error() string {
	return fmt.Sprintf("malformed ASN.1: %s", e.Reason)
}

// UnexpectedTag is returned when a reader expected one tag and found another.
type UnexpectedTag struct {
	Expected, Found uint32
}

func (e *UnexpectedTag) Error() string {
	return fmt.Sprintf("unexpected tag: expected %#x, found %#x", e.Expected, e.Found)
}

// UnsupportedField distinguishes "required tag missing" (fatal) from a
// caller choosing to warn-and-skip an unknown tag; it is returned only for
// the fatal case — callers that warn-and-skip do not construct this type.
type UnsupportedField struct {
	Tag    uint32
	Reason string
}

func (e *UnsupportedField) Error() string {
	return fmt.Sprintf("unsupported field (tag %#x): %s", e.Tag, e.Reason)
}

// UnsupportedAlgorithm is returned by pkg/mrtdcrypto and pkg/kdf when an OID
// or algorithm parameter falls outside the enumerated set this library
// implements.
type UnsupportedAlgorithm struct {
	OID string
}

func (e *UnsupportedAlgorithm) Error() string {
	return fmt.Sprintf("unsupported algorithm: %s", e.OID)
}

// CryptoFailed is returned for primitive-level failures: bad padding, MAC
// mismatch, signature verification failure.
type CryptoFailed struct {
	Stage string
	Cause error
}

func (e *CryptoFailed) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("crypto failed at %s: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("crypto failed at %s", e.Stage)
}

func (e *CryptoFailed) Unwrap() error { return e.Cause }

// ProtocolError is returned by pkg/protocol/* when an APDU round trip
// produced an error status word or a semantic check (mutual-auth token,
// signature, cryptogram) failed at a specific named stage.
type ProtocolError struct {
	Protocol string
	Stage    string
	Cause    error
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s failed: %v", e.Protocol, e.Stage, e.Cause)
	}
	return fmt.Sprintf("%s: %s failed", e.Protocol, e.Stage)
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// SessionTerminated is returned by pkg/sm once a wrapper has moved to its
// inert state (a malformed APDU or response, or a response MAC mismatch;
// the status word is returned to the caller, not checked). It is returned for every
// subsequent call on that wrapper, never just the one that triggered it.
type SessionTerminated struct {
	Cause error
}

func (e *SessionTerminated) Error() string {
	return fmt.Sprintf("secure messaging session terminated: %v", e.Cause)
}

func (e *SessionTerminated) Unwrap() error { return e.Cause }

// MismatchedDigest is returned by pkg/sod when a recomputed data-group hash
// does not match the hash recorded in the LDSSecurityObject.
type MismatchedDigest struct {
	DG int
}

func (e *MismatchedDigest) Error() string {
	return fmt.Sprintf("mismatched digest for DG%d", e.DG)
}

// SignatureInvalid is returned by pkg/sod when the CMS SignedData signature
// over the e-content does not verify against the embedded (or supplied)
// document signer certificate.
type SignatureInvalid struct {
	Cause error
}

func (e *SignatureInvalid) Error() string {
	return fmt.Sprintf("SOd signature invalid: %v", e.Cause)
}

func (e *SignatureInvalid) Unwrap() error { return e.Cause }

// UntrustedSigner is returned by pkg/sod only when the caller supplied a
// trust anchor and the document signer certificate does not chain to it.
// Without a trust anchor, verification is purely structural and this error
// is never returned.
type UntrustedSigner struct {
	Cause error
}

func (e *UntrustedSigner) Error() string {
	return fmt.Sprintf("untrusted SOd signer: %v", e.Cause)
}

func (e *UntrustedSigner) Unwrap() error { return e.Cause }

// TransportError wraps a failure reported by the external APDU transport.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// TransportTimeout is returned when the external APDU transport reports a
// timeout; the protocol state driving it is always abandoned, never resumed.
type TransportTimeout struct {
	Cause error
}

func (e *TransportTimeout) Error() string {
	return fmt.Sprintf("transport timeout: %v", e.Cause)
}

func (e *TransportTimeout) Unwrap() error { return e.Cause }

// MalformedRecord is returned by pkg/iso19794 when a fixed-layout
// biometric record's binary framing (magic marker, version, declared
// length) does not match what the format requires.
type MalformedRecord struct {
	Reason string
}

func (e *MalformedRecord) Error() string {
	return fmt.Sprintf("malformed biometric record: %s", e.Reason)
}

// AccessDenied is returned by pkg/cbeff when a biometric information
// template is statically protected (ISO 7816-11 Annex D, SMT tag 7D) and
// its payload data object is encrypted (tag 85): this module has no key
// material to decrypt it, and surfaces the denial consistently rather
// than attempting a silent skip.
type AccessDenied struct {
	Reason string
}

func (e *AccessDenied) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}
