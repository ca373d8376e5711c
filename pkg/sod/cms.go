package sod

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// Signed-attribute OIDs (RFC 5652 §11), the same pair
// remiblancher-qpki/pkg/cms/signed.go builds for every signature it
// produces.
var (
	oidContentType   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	oidMessageDigest = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
)

var digestAlgOIDs = map[mrtdcrypto.HashAlg]asn1.ObjectIdentifier{
	mrtdcrypto.HashSHA1:   {1, 3, 14, 3, 2, 26},
	mrtdcrypto.HashSHA224: {2, 16, 840, 1, 101, 3, 4, 2, 4},
	mrtdcrypto.HashSHA256: {2, 16, 840, 1, 101, 3, 4, 2, 1},
	mrtdcrypto.HashSHA384: {2, 16, 840, 1, 101, 3, 4, 2, 2},
	mrtdcrypto.HashSHA512: {2, 16, 840, 1, 101, 3, 4, 2, 3},
}

func hashAlgToOID(alg mrtdcrypto.HashAlg) (asn1.ObjectIdentifier, error) {
	oid, ok := digestAlgOIDs[alg]
	if !ok {
		return nil, &mrtderr.UnsupportedAlgorithm{OID: string(alg)}
	}
	return oid, nil
}

func oidToHashAlg(oid asn1.ObjectIdentifier) (mrtdcrypto.HashAlg, error) {
	for alg, want := range digestAlgOIDs {
		if oid.Equal(want) {
			return alg, nil
		}
	}
	return "", &mrtderr.UnsupportedAlgorithm{OID: oid.String()}
}

// parseOID parses a dotted-decimal OID string, the same stdlib gap-fill
// pkg/lds/dg14.go documents (encoding/asn1 has no public string
// constructor for asn1.ObjectIdentifier).
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

// attribute is RFC 5652's Attribute: a type OID plus a SET OF values,
// mirroring remiblancher-qpki/pkg/cms/signed.go's Attribute type
// exactly (same field shape, same rationale for the SET tag on Values).
type attribute struct {
	oid    asn1.ObjectIdentifier
	values []asn1.RawValue
}

type attributeWire struct {
	Type   asn1.ObjectIdentifier
	Values []asn1.RawValue `asn1:"set"`
}

func mustAttribute(oid asn1.ObjectIdentifier, value any) attribute {
	enc, err := asn1.Marshal(value)
	if err != nil {
		// Only ever called with values this package controls (OIDs,
		// byte slices); a marshal failure here is a programming error.
		panic("sod: attribute value did not marshal: " + err.Error())
	}
	return attribute{oid: oid, values: []asn1.RawValue{{FullBytes: enc}}}
}

func (a attribute) marshal() ([]byte, error) {
	return asn1.Marshal(attributeWire{Type: a.oid, Values: a.values})
}

// marshalSignedAttrsSetOf DER-encodes attrs as a SET OF Attribute with
// DER's sort-by-encoding rule applied, the same two-step (encode each,
// then sort, then wrap in a SET header) remiblancher-qpki's
// MarshalSignedAttrs uses — reimplemented here over this package's own
// attribute type rather than imported, since the source lives in a
// different module's internal cms package.
func marshalSignedAttrsSetOf(attrs []attribute) ([]byte, error) {
	encoded := make([][]byte, 0, len(attrs))
	for _, a := range attrs {
		enc, err := a.marshal()
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, enc)
	}
	sort.Slice(encoded, func(i, j int) bool { return bytes.Compare(encoded[i], encoded[j]) < 0 })

	total := 0
	for _, e := range encoded {
		total += len(e)
	}
	out := make([]byte, 0, total+4)
	out = append(out, 0x31) // universal SET tag
	out = appendBERLength(out, total)
	for _, e := range encoded {
		out = append(out, e...)
	}
	return out, nil
}

func appendBERLength(b []byte, n int) []byte {
	switch {
	case n < 128:
		return append(b, byte(n))
	case n < 256:
		return append(b, 0x81, byte(n))
	default:
		return append(b, 0x82, byte(n>>8), byte(n))
	}
}

// --- LDSSecurityObject ---

type ldsDataGroupHashWire struct {
	DataGroupNumber int
	HashValue       []byte
}

type ldsSecurityObjectWireV0 struct {
	Version         int
	DigestAlgorithm algorithmIdentifier
	DataGroupHashes []ldsDataGroupHashWire
}

type ldsSecurityObjectWireV1 struct {
	Version         int
	DigestAlgorithm algorithmIdentifier
	DataGroupHashes []ldsDataGroupHashWire
	VersionInfo     ldsVersionInfoWire
}

type ldsVersionInfoWire struct {
	LdsVersion     string
	UnicodeVersion string
}

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

func encodeLDSSecurityObject(alg mrtdcrypto.HashAlg, hashes []DataGroupHash, ldsVersion, unicodeVersion string) ([]byte, error) {
	oid, err := hashAlgToOID(alg)
	if err != nil {
		return nil, err
	}
	wireHashes := make([]ldsDataGroupHashWire, 0, len(hashes))
	sorted := append([]DataGroupHash(nil), hashes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })
	for _, h := range sorted {
		wireHashes = append(wireHashes, ldsDataGroupHashWire{DataGroupNumber: h.Number, HashValue: h.Hash})
	}
	digestAlg := algorithmIdentifier{Algorithm: oid}
	if ldsVersion != "" {
		return asn1.Marshal(ldsSecurityObjectWireV1{
			Version:         1,
			DigestAlgorithm: digestAlg,
			DataGroupHashes: wireHashes,
			VersionInfo:     ldsVersionInfoWire{LdsVersion: ldsVersion, UnicodeVersion: unicodeVersion},
		})
	}
	return asn1.Marshal(ldsSecurityObjectWireV0{
		Version:         0,
		DigestAlgorithm: digestAlg,
		DataGroupHashes: wireHashes,
	})
}

func decodeLDSSecurityObject(der []byte) (mrtdcrypto.HashAlg, []DataGroupHash, string, string, error) {
	var v1 ldsSecurityObjectWireV1
	if rest, err := asn1.Unmarshal(der, &v1); err == nil && len(rest) == 0 {
		alg, algErr := oidToHashAlg(v1.DigestAlgorithm.Algorithm)
		if algErr != nil {
			return "", nil, "", "", algErr
		}
		return alg, toDataGroupHashes(v1.DataGroupHashes), v1.VersionInfo.LdsVersion, v1.VersionInfo.UnicodeVersion, nil
	}
	var v0 ldsSecurityObjectWireV0
	if _, err := asn1.Unmarshal(der, &v0); err != nil {
		return "", nil, "", "", &mrtderr.MalformedASN1{Reason: "LDSSecurityObject: " + err.Error()}
	}
	alg, err := oidToHashAlg(v0.DigestAlgorithm.Algorithm)
	if err != nil {
		return "", nil, "", "", err
	}
	return alg, toDataGroupHashes(v0.DataGroupHashes), "", "", nil
}

func toDataGroupHashes(wire []ldsDataGroupHashWire) []DataGroupHash {
	out := make([]DataGroupHash, 0, len(wire))
	for _, w := range wire {
		out = append(out, DataGroupHash{Number: w.DataGroupNumber, Hash: w.HashValue})
	}
	return out
}

// --- CMS SignedData wire shapes, per RFC 5652 §5 ---

type contentInfoWire struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,tag:0"`
}

type signedDataWire struct {
	Version          int
	DigestAlgorithms []algorithmIdentifier `asn1:"set"`
	EncapContentInfo encapContentInfoWire
	Certificates     asn1.RawValue    `asn1:"optional,tag:0"`
	SignerInfos      []signerInfoWire `asn1:"set"`
}

// EContent's struct tag deliberately carries neither "explicit" nor a
// tag number: remiblancher-qpki/pkg/cms/signed.go documents that Go's
// encoding/asn1 does not apply an explicit tag correctly to a RawValue
// field, and builds/reads the [0] wrapper by hand instead. This type
// does the same — Encode fills FullBytes with an already explicit-[0]
// wrapped OCTET STRING via explicitWrap, and Parse reads it back out
// of the plain (untagged) RawValue it decodes into.
type encapContentInfoWire struct {
	EContentType asn1.ObjectIdentifier
	EContent     asn1.RawValue `asn1:"optional"`
}

type issuerAndSerialWire struct {
	Issuer       asn1.RawValue
	SerialNumber *big.Int
}

type signerInfoWire struct {
	Version            int
	SID                issuerAndSerialWire
	DigestAlgorithm    algorithmIdentifier
	SignedAttrs        asn1.RawValue `asn1:"optional,tag:0"`
	SignatureAlgorithm algorithmIdentifier
	Signature          []byte
}

var (
	oidRSAEncryption   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	oidRSASSAPSS       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10}
	oidECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	oidECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	oidECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
)

func signatureSchemeOID(scheme SignatureAlgorithm) asn1.ObjectIdentifier {
	switch scheme {
	case SigRSAPSS:
		return oidRSASSAPSS
	case SigECDSA:
		return oidECDSAWithSHA256
	default:
		return oidRSAEncryption
	}
}

func schemeFromSignatureOID(oid asn1.ObjectIdentifier) SignatureAlgorithm {
	switch {
	case oid.Equal(oidRSASSAPSS):
		return SigRSAPSS
	case oid.Equal(oidECDSAWithSHA256), oid.Equal(oidECDSAWithSHA384), oid.Equal(oidECDSAWithSHA512):
		return SigECDSA
	default:
		return SigRSAPKCS1v15
	}
}

// Encode serialises the Document as a DER ContentInfo
// { contentType=id-signedData, content=SignedData }; the EF.SOd outer
// 0x77 TLV is not added.
func (d *Document) Encode() ([]byte, error) {
	digestOID, err := hashAlgToOID(d.DigestAlgorithm)
	if err != nil {
		return nil, err
	}
	contentTypeOID, err := parseOID(d.ContentTypeOID)
	if err != nil {
		return nil, err
	}

	signedAttrsDER, err := marshalSignedAttrsSetOf(d.signerInfo.signedAttrs)
	if err != nil {
		return nil, err
	}
	// Re-tag the SET as [0] IMPLICIT for SignerInfo.signedAttrs, per
	// RFC 5652 §5.3: the DER bytes of the attributes (and their sort
	// order) are unchanged, only the outer tag differs from the bare
	// SET encoding used as the hash input. IMPLICIT only ever swaps the
	// leading identifier octet, so retag alone is correct here.
	signedAttrsField := asn1.RawValue{FullBytes: retag(signedAttrsDER, 0xA0)}

	// EContent is [0] EXPLICIT OCTET STRING: the wrapper must contain
	// the complete OCTET STRING TLV, not just its content, so this
	// wraps the whole thing rather than retagging it.
	eContentField := asn1.RawValue{FullBytes: explicitWrap(0xA0, mustOctetString(d.eContent))}

	sd := signedDataWire{
		Version:          1,
		DigestAlgorithms: []algorithmIdentifier{{Algorithm: digestOID}},
		EncapContentInfo: encapContentInfoWire{EContentType: contentTypeOID, EContent: eContentField},
		SignerInfos: []signerInfoWire{{
			Version: 1,
			SID: issuerAndSerialWire{
				Issuer:       asn1.RawValue{FullBytes: d.signerInfo.issuer},
				SerialNumber: d.signerInfo.serialNumber,
			},
			DigestAlgorithm:    algorithmIdentifier{Algorithm: digestOID},
			SignedAttrs:        signedAttrsField,
			SignatureAlgorithm: algorithmIdentifier{Algorithm: signatureSchemeOID(d.signerInfo.signatureScheme)},
			Signature:          d.signerInfo.signature,
		}},
	}
	if d.signerCert != nil {
		// Certificates is [0] IMPLICIT SET OF CertificateChoices: build
		// the genuine universal SET first (concatenated certificate
		// TLVs as its content), then swap only the leading tag octet —
		// unlike EContent/Content above, this field really is IMPLICIT.
		certs := append([]*x509.Certificate{d.signerCert}, d.otherCerts...)
		var setContent []byte
		for _, c := range certs {
			setContent = append(setContent, c.Raw...)
		}
		setDER := append([]byte{0x31}, appendBERLength(nil, len(setContent))...)
		setDER = append(setDER, setContent...)
		sd.Certificates = asn1.RawValue{FullBytes: retag(setDER, 0xA0)}
	}

	sdDER, err := asn1.Marshal(sd)
	if err != nil {
		return nil, &mrtderr.MalformedASN1{Reason: "SignedData: " + err.Error()}
	}

	// ContentInfo.content is [0] EXPLICIT ANY DEFINED BY contentType:
	// the wrapper's content is the complete SignedData TLV, tag and
	// length included, not SignedData's own content re-tagged.
	oidSignedData := asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
	ci := contentInfoWire{
		ContentType: oidSignedData,
		Content:     asn1.RawValue{FullBytes: explicitWrap(0xA0, sdDER)},
	}
	return asn1.Marshal(ci)
}

// Parse reads an EF.SOd's ContentInfo/SignedData and extracts the
// LDSSecurityObject e-content. It performs no signature
// verification — call Document.Verify for that.
func Parse(der []byte) (*Document, error) {
	var ci contentInfoWire
	if _, err := asn1.Unmarshal(der, &ci); err != nil {
		return nil, &mrtderr.MalformedASN1{Reason: "ContentInfo: " + err.Error()}
	}

	var sd signedDataWire
	if _, err := asn1.Unmarshal(ci.Content.Bytes, &sd); err != nil {
		return nil, &mrtderr.MalformedASN1{Reason: "SignedData: " + err.Error()}
	}
	if len(sd.SignerInfos) == 0 {
		return nil, &mrtderr.MalformedASN1{Reason: "SignedData has no SignerInfos"}
	}

	contentTypeOK := false
	for _, accepted := range acceptedContentTypeOIDs {
		oid, err := parseOID(accepted)
		if err == nil && oid.Equal(sd.EncapContentInfo.EContentType) {
			contentTypeOK = true
			break
		}
	}
	if !contentTypeOK {
		return nil, &mrtderr.UnsupportedAlgorithm{OID: sd.EncapContentInfo.EContentType.String()}
	}

	// EContent's struct field carries no tag override (see
	// encapContentInfoWire), so it decoded as whatever TLV was
	// actually there: the [0] EXPLICIT wrapper. Its content — .Bytes —
	// is exactly the inner OCTET STRING's own TLV.
	var eContent []byte
	if _, err := asn1.Unmarshal(sd.EncapContentInfo.EContent.Bytes, &eContent); err != nil {
		return nil, &mrtderr.MalformedASN1{Reason: "EncapContentInfo.eContent: " + err.Error()}
	}

	alg, hashes, ldsVersion, unicodeVersion, err := decodeLDSSecurityObject(eContent)
	if err != nil {
		return nil, err
	}

	si := sd.SignerInfos[0]
	attrs, err := parseSignedAttrs(si.SignedAttrs)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		ContentTypeOID:  sd.EncapContentInfo.EContentType.String(),
		DigestAlgorithm: alg,
		DataGroupHashes: hashes,
		LDSVersion:      ldsVersion,
		UnicodeVersion:  unicodeVersion,
		eContent:        eContent,
		signerInfo: signerInfo{
			issuer:          si.SID.Issuer.FullBytes,
			serialNumber:    si.SID.SerialNumber,
			digestAlgorithm: alg,
			signedAttrs:     attrs,
			signatureScheme: schemeFromSignatureOID(si.SignatureAlgorithm.Algorithm),
			signature:       si.Signature,
		},
	}

	if len(sd.Certificates.Bytes) > 0 {
		// sd.Certificates.Bytes is already the concatenated certificate
		// TLVs (the content of the [0] IMPLICIT SET, with no SET
		// header of its own) — exactly what ParseCertificates wants.
		certs, err := x509.ParseCertificates(sd.Certificates.Bytes)
		if err == nil && len(certs) > 0 {
			doc.signerCert = matchCertificate(certs, si.SID)
			if doc.signerCert == nil {
				doc.signerCert = certs[0]
			}
			for _, c := range certs {
				if c != doc.signerCert {
					doc.otherCerts = append(doc.otherCerts, c)
				}
			}
		}
	}

	return doc, nil
}

func matchCertificate(certs []*x509.Certificate, sid issuerAndSerialWire) *x509.Certificate {
	for _, c := range certs {
		if c.SerialNumber != nil && sid.SerialNumber != nil && c.SerialNumber.Cmp(sid.SerialNumber) == 0 {
			return c
		}
	}
	return nil
}

func parseSignedAttrs(field asn1.RawValue) ([]attribute, error) {
	if len(field.FullBytes) == 0 {
		return nil, &mrtderr.UnsupportedField{Tag: 0xA0, Reason: "SignerInfo missing signedAttrs"}
	}
	// The field was read as an implicit [0] constructed value; retag
	// its complete TLV (tag+length+content) back to the universal SET
	// tag the Attribute slice's own unmarshal expects.
	var wire []attributeWire
	setDER := retag(field.FullBytes, 0x31)
	if _, err := asn1.UnmarshalWithParams(setDER, &wire, "set"); err != nil {
		return nil, &mrtderr.MalformedASN1{Reason: "signedAttrs: " + err.Error()}
	}
	out := make([]attribute, 0, len(wire))
	for _, w := range wire {
		out = append(out, attribute{oid: w.Type, values: w.Values})
	}
	return out, nil
}

// retag rewrites the leading identifier octet of a DER TLV to newTag,
// used to move a SEQUENCE/SET between its bare universal encoding and
// the context-specific IMPLICIT tag RFC 5652 specifies for
// signedAttrs/certificates/content — the length and value octets (and
// therefore the signed bytes) are unaffected by this rewrite provided
// the original identifier was single-octet, which holds for every tag
// this module retags (all below 31).
func retag(der []byte, newTag byte) []byte {
	if len(der) == 0 {
		return der
	}
	out := append([]byte(nil), der...)
	out[0] = newTag
	return out
}

// explicitWrap wraps der — a complete TLV — inside a new outer
// constructed TLV tagged tag, per EXPLICIT tagging (X.690 §8.14): the
// wrapper's content is der in its entirety, tag and length included,
// not der's own content re-tagged. Contrast retag, which is only
// correct for IMPLICIT tagging.
func explicitWrap(tag byte, der []byte) []byte {
	out := []byte{tag}
	out = appendBERLength(out, len(der))
	return append(out, der...)
}

func mustOctetString(content []byte) []byte {
	enc, err := asn1.Marshal(content)
	if err != nil {
		panic("sod: octet string marshal: " + err.Error())
	}
	return enc
}
