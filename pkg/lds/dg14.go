package lds

import (
	"encoding/asn1"
	"strconv"
	"strings"

	"github.com/go-emrtd/mrtdcore/pkg/asn1x"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

// parseOID parses a dotted-decimal OID string. encoding/asn1 has no public
// constructor for asn1.ObjectIdentifier from a string (only the reverse, via
// String()), so this module supplies the one direction it needs: building
// the well-known SecurityInfo protocol OIDs named in the OID table below.
func parseOID(s string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(s, ".")
	oid := make(asn1.ObjectIdentifier, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, &mrtderr.MalformedASN1{Reason: "invalid OID arc " + p}
		}
		oid[i] = n
	}
	return oid, nil
}

// SecurityInfoKind classifies a SecurityInfo by its protocol OID's arc,
// as a tagged union, using OID-prefix dispatch
// grounded on original_source/jmrtd's SecurityInfo.java.
type SecurityInfoKind int

const (
	KindUnknown SecurityInfoKind = iota
	KindPACEInfo
	KindPACEDomainParameterInfo
	KindActiveAuthenticationInfo
	KindChipAuthenticationInfo
	KindChipAuthenticationPublicKeyInfo
	KindTerminalAuthenticationInfo
)

const (
	oidPACEPrefix = "0.4.0.127.0.7.2.2.4."
	oidCAPrefix   = "0.4.0.127.0.7.2.2.3."
	oidTA         = "0.4.0.127.0.7.2.2.2"
	oidAA         = "2.23.136.1.1.5"
)

// classify maps a protocol OID to its SecurityInfo kind. PACE/CA arcs
// are matched by prefix since cipher suites come in whole families of cipher-
// suite leaves (PACE's 0.4.0.127.0.7.2.2.4.{1..6}.{1..4}, CA's
// 0.4.0.127.0.7.2.2.3.{1,2}.{1..4}); a CA OID under arc 2 names the
// ChipAuthenticationPublicKeyInfo variant instead of
// ChipAuthenticationInfo, distinguished by arc 1 vs 2.
func classify(oid string) SecurityInfoKind {
	switch {
	case hasPrefix(oid, oidPACEPrefix):
		if oid == oidPACEPrefix+"2" {
			return KindPACEDomainParameterInfo
		}
		return KindPACEInfo
	case hasPrefix(oid, oidCAPrefix+"2."):
		return KindChipAuthenticationPublicKeyInfo
	case hasPrefix(oid, oidCAPrefix+"1."):
		return KindChipAuthenticationInfo
	case oid == oidTA:
		return KindTerminalAuthenticationInfo
	case oid == oidAA:
		return KindActiveAuthenticationInfo
	default:
		return KindUnknown
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// SecurityInfo is one entry of DG14's SecurityInfos SET OF: an OID plus
// the two ANY-typed fields called "mode-specific fields" here, kept as
// DER bytes (RequiredData/OptionalData) so an unrecognised future OID
// still round-trips, with a best-effort INTEGER decode of Version/
// ParameterID/KeyID for the kinds this module interprets further.
type SecurityInfo struct {
	OID          string
	Kind         SecurityInfoKind
	RequiredData []byte // DER encoding of the requiredData ANY field
	OptionalData []byte // DER encoding of optionalData, nil if absent

	Version               *int
	ParameterID           *int
	KeyID                 *int
	SignatureAlgorithmOID string
}

// NewPACEInfo builds a PACEInfo entry: requiredData is the protocol
// version, optionalData (when parameterID is non-nil) the PACE domain
// parameter identifier.
func NewPACEInfo(oid string, version int, parameterID *int) (SecurityInfo, error) {
	req, err := asn1.Marshal(version)
	if err != nil {
		return SecurityInfo{}, err
	}
	si := SecurityInfo{OID: oid, Kind: classify(oid), RequiredData: req, Version: &version, ParameterID: parameterID}
	if parameterID != nil {
		opt, err := asn1.Marshal(*parameterID)
		if err != nil {
			return SecurityInfo{}, err
		}
		si.OptionalData = opt
	}
	return si, nil
}

// NewChipAuthenticationInfo builds a ChipAuthenticationInfo entry.
func NewChipAuthenticationInfo(oid string, version int, keyID *int) (SecurityInfo, error) {
	req, err := asn1.Marshal(version)
	if err != nil {
		return SecurityInfo{}, err
	}
	si := SecurityInfo{OID: oid, Kind: classify(oid), RequiredData: req, Version: &version, KeyID: keyID}
	if keyID != nil {
		opt, err := asn1.Marshal(*keyID)
		if err != nil {
			return SecurityInfo{}, err
		}
		si.OptionalData = opt
	}
	return si, nil
}

// NewActiveAuthenticationInfo builds an ActiveAuthenticationInfo entry:
// requiredData is the protocol version, optionalData the signature
// algorithm OID — ICAO names the signature algorithm as a mandatory
// field in the SEQUENCE, modelled here as optionalData since this
// module's generic two-ANY-field shape has no room for a third
// mandatory field without a kind-specific struct, and every AA-info
// producer in practice supplies it.
func NewActiveAuthenticationInfo(version int, signatureAlgorithmOID string) (SecurityInfo, error) {
	req, err := asn1.Marshal(version)
	if err != nil {
		return SecurityInfo{}, err
	}
	sigOID, err := parseOID(signatureAlgorithmOID)
	if err != nil {
		return SecurityInfo{}, err
	}
	opt, err := asn1.Marshal(sigOID)
	if err != nil {
		return SecurityInfo{}, err
	}
	return SecurityInfo{
		OID: oidAA, Kind: KindActiveAuthenticationInfo,
		RequiredData: req, OptionalData: opt,
		Version: &version, SignatureAlgorithmOID: signatureAlgorithmOID,
	}, nil
}

// DG14 is EF.DG14: the SET OF SecurityInfo, tag 0x6E.
type DG14 struct {
	Infos []SecurityInfo
}

func (DG14) OuterTag() tlv.Tag { return tlv.TagDG14 }

func (d DG14) EncodeContent() []byte {
	set := asn1x.NewBuilder(asn1.ClassUniversal, asn1.TagSet)
	for _, info := range d.Infos {
		seq := asn1x.NewBuilder(asn1.ClassUniversal, asn1.TagSequence)
		if oid, err := parseOID(info.OID); err == nil {
			if oidBytes, err := asn1.Marshal(oid); err == nil {
				seq.AddRaw(oidBytes)
			}
		}
		seq.AddRaw(info.RequiredData)
		if info.OptionalData != nil {
			seq.AddRaw(info.OptionalData)
		}
		enc, err := seq.Bytes()
		if err == nil {
			set.AddRaw(enc)
		}
	}
	enc, _ := set.Bytes()
	return enc
}

// DecodeDG14 parses a full DG14 outer TLV (tag 0x6E) into a DG14.
func DecodeDG14(data []byte) (DG14, error) {
	content, err := Unwrap(data, tlv.TagDG14)
	if err != nil {
		return DG14{}, err
	}
	outer, err := asn1x.NewCursor(content).Expect(asn1.ClassUniversal, asn1.TagSet)
	if err != nil {
		return DG14{}, err
	}
	set := asn1x.Children(outer)

	var d DG14
	for !set.Done() {
		seqVal, err := set.Expect(asn1.ClassUniversal, asn1.TagSequence)
		if err != nil {
			return DG14{}, err
		}
		seq := asn1x.Children(seqVal)

		var oid asn1.ObjectIdentifier
		oidVal, err := seq.Next()
		if err != nil {
			return DG14{}, err
		}
		if _, err := asn1.Unmarshal(oidVal.FullBytes, &oid); err != nil {
			return DG14{}, &mrtderr.MalformedASN1{Reason: "SecurityInfo protocol OID: " + err.Error()}
		}

		reqVal, err := seq.Next()
		if err != nil {
			return DG14{}, err
		}
		info := SecurityInfo{OID: oid.String(), Kind: classify(oid.String()), RequiredData: reqVal.FullBytes}
		if v, ok := decodeOptionalInt(reqVal); ok {
			info.Version = &v
		}

		if !seq.Done() {
			optVal, err := seq.Next()
			if err != nil {
				return DG14{}, err
			}
			info.OptionalData = optVal.FullBytes
			if v, ok := decodeOptionalInt(optVal); ok {
				switch info.Kind {
				case KindChipAuthenticationInfo, KindChipAuthenticationPublicKeyInfo:
					info.KeyID = &v
				case KindPACEInfo:
					info.ParameterID = &v
				}
			}
		}
		d.Infos = append(d.Infos, info)
	}
	return d, nil
}

func decodeOptionalInt(v asn1.RawValue) (int, bool) {
	if v.Class != asn1.ClassUniversal || v.Tag != asn1.TagInteger {
		return 0, false
	}
	var n int
	if _, err := asn1.Unmarshal(v.FullBytes, &n); err != nil {
		return 0, false
	}
	return n, true
}
