// Package sod implements the Document Security Object (C11): a CMS
// SignedData whose e-content is an LDSSecurityObject carrying one hash
// per present data group. Build constructs one and signs it; Parse reads
// one back without touching any trust store; Verify recomputes each
// data group's hash from caller-supplied bytes and checks the CMS
// signature, optionally chaining the document signer certificate to a
// caller-supplied trust anchor.
//
// Grounded on original_source/jmrtd's SODFile.java/LDSSecurityObject.java
// for the wire shape (ICAO Doc 9303 Part 10 Appendix, via RFC 5652's
// SignedData) and on remiblancher-qpki/pkg/cms's signed.go/signer.go for
// the Go-idiomatic struct layout and the signed-attributes signing
// convention (messageDigest + contentType, DER SET OF, sorted before
// signing) — this module carries that same convention into the SOd's
// SignerInfo rather than signing the e-content directly, since Doc 9303
// explicitly permits (and most real DSC tooling uses) RFC 5652 signed
// attributes here and the pack's own CMS signer already establishes the
// pattern in this module's idiom.
package sod

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// Content-type OIDs accepted for the EncapsulatedContentInfo's
// eContentType: the canonical ICAO OID plus the two
// legacy alternates seen in the field.
const (
	OIDLDSSecurityObject    = "2.23.136.1.1.1"
	OIDLDSSecurityObjectAlt = "1.3.27.1.1.1"
	OIDLDSSecurityObjectSDU = "1.2.528.1.1006.1.20.1"
)

var acceptedContentTypeOIDs = []string{OIDLDSSecurityObject, OIDLDSSecurityObjectAlt, OIDLDSSecurityObjectSDU}

// SignatureAlgorithm selects how Build signs the signed attributes.
// Verify takes the key type from the certificate and, for RSA, chooses
// PSS or PKCS#1 v1.5 by the scheme recorded from the SignerInfo's
// signature algorithm OID.
type SignatureAlgorithm int

const (
	SigRSAPKCS1v15 SignatureAlgorithm = iota
	SigRSAPSS
	SigECDSA
)

// DataGroupHash is one entry of an LDSSecurityObject: a data group
// number (1..16) and the digest of that data group's full
// encoded bytes under the object's single shared digest algorithm.
type DataGroupHash struct {
	Number int
	Hash   []byte
}

// Document is the parsed/verifiable form of an EF.SOd (outer tag 0x77).
type Document struct {
	ContentTypeOID  string
	DigestAlgorithm mrtdcrypto.HashAlg
	DataGroupHashes []DataGroupHash
	LDSVersion      string // version info, omitted if empty
	UnicodeVersion  string

	eContent         []byte // the DER LDSSecurityObject actually signed over
	signerInfo       signerInfo
	signerCert       *x509.Certificate
	otherCerts       []*x509.Certificate
}

// Signer is the minimal capability Build needs: a private key able to
// produce a signature over a pre-hashed digest (the hash algorithm is
// passed to Sign), plus the scheme that key signs under. *rsa.PrivateKey/*ecdsa.PrivateKey
// satisfy this through the two adapter functions below.
type Signer interface {
	Sign(alg mrtdcrypto.HashAlg, digest []byte) ([]byte, error)
	SignatureAlgorithm() SignatureAlgorithm
	Public() crypto.PublicKey
}

type rsaSigner struct {
	priv   *rsa.PrivateKey
	scheme SignatureAlgorithm
}

func (s rsaSigner) Sign(alg mrtdcrypto.HashAlg, digest []byte) ([]byte, error) {
	if s.scheme == SigRSAPSS {
		return mrtdcrypto.SignRSAPSS(s.priv, alg, digest)
	}
	return mrtdcrypto.SignRSA(s.priv, alg, digest)
}
func (s rsaSigner) SignatureAlgorithm() SignatureAlgorithm { return s.scheme }
func (s rsaSigner) Public() crypto.PublicKey               { return &s.priv.PublicKey }

// NewRSASigner wraps an RSA document signing key. scheme selects
// PKCS#1 v1.5 (the overwhelming majority of deployed DSCs) or PSS.
func NewRSASigner(priv *rsa.PrivateKey, scheme SignatureAlgorithm) Signer {
	return rsaSigner{priv: priv, scheme: scheme}
}

type ecdsaSigner struct {
	priv *ecdsa.PrivateKey
}

func (s ecdsaSigner) Sign(_ mrtdcrypto.HashAlg, digest []byte) ([]byte, error) {
	return mrtdcrypto.SignECDSA(s.priv, digest)
}
func (s ecdsaSigner) SignatureAlgorithm() SignatureAlgorithm { return SigECDSA }
func (s ecdsaSigner) Public() crypto.PublicKey                { return &s.priv.PublicKey }

// NewECDSASigner wraps an EC document signing key.
func NewECDSASigner(priv *ecdsa.PrivateKey) Signer {
	return ecdsaSigner{priv: priv}
}

// BuildConfig configures Build.
type BuildConfig struct {
	DigestAlgorithm mrtdcrypto.HashAlg
	DataGroupHashes []DataGroupHash
	LDSVersion      string
	UnicodeVersion  string
	Signer          Signer
	Certificate     *x509.Certificate // the DSC embedded in SignerInfo/Certificates
	// SigningTime is not encoded: Build emits no signing-time attribute.
	SigningTime     time.Time
}

// Build constructs and signs a new Document: it DER-encodes the
// LDSSecurityObject e-content, wraps it in signed attributes
// (content-type + message-digest, per RFC 5652 §11's required pair for
// a SignedData whose SignerInfo carries SignedAttrs), signs those
// attributes, and embeds the result ready for Encode.
func Build(cfg BuildConfig) (*Document, error) {
	if cfg.Signer == nil {
		return nil, fmt.Errorf("sod: Signer is required")
	}
	if cfg.Certificate == nil {
		return nil, fmt.Errorf("sod: Certificate is required")
	}
	if len(cfg.DataGroupHashes) == 0 {
		return nil, fmt.Errorf("sod: at least one data group hash is required")
	}
	for _, h := range cfg.DataGroupHashes {
		if h.Number < 1 || h.Number > 16 {
			return nil, fmt.Errorf("sod: data group number %d out of range 1..16", h.Number)
		}
	}

	eContent, err := encodeLDSSecurityObject(cfg.DigestAlgorithm, cfg.DataGroupHashes, cfg.LDSVersion, cfg.UnicodeVersion)
	if err != nil {
		return nil, err
	}

	contentDigest, err := mrtdcrypto.Sum(cfg.DigestAlgorithm, eContent)
	if err != nil {
		return nil, err
	}

	contentTypeOID, err := parseOID(OIDLDSSecurityObject)
	if err != nil {
		return nil, err
	}
	attrs := []attribute{
		mustAttribute(oidContentType, contentTypeOID),
		mustAttribute(oidMessageDigest, contentDigest),
	}
	signedAttrsDER, err := marshalSignedAttrsSetOf(attrs)
	if err != nil {
		return nil, err
	}

	sigDigest, err := mrtdcrypto.Sum(cfg.DigestAlgorithm, signedAttrsDER)
	if err != nil {
		return nil, err
	}
	signature, err := cfg.Signer.Sign(cfg.DigestAlgorithm, sigDigest)
	if err != nil {
		return nil, err
	}

	si := signerInfo{
		issuer:            cfg.Certificate.RawIssuer,
		serialNumber:      cfg.Certificate.SerialNumber,
		digestAlgorithm:   cfg.DigestAlgorithm,
		signedAttrs:       attrs,
		signatureScheme:   cfg.Signer.SignatureAlgorithm(),
		signature:         signature,
	}

	return &Document{
		ContentTypeOID:  OIDLDSSecurityObject,
		DigestAlgorithm: cfg.DigestAlgorithm,
		DataGroupHashes: cfg.DataGroupHashes,
		LDSVersion:      cfg.LDSVersion,
		UnicodeVersion:  cfg.UnicodeVersion,
		eContent:        eContent,
		signerInfo:      si,
		signerCert:      cfg.Certificate,
	}, nil
}

// DataGroupHash returns the recorded hash for dg, mirroring JMRTD's
// getDataGroupHashes() but keyed one DG at a time so a caller verifying
// data groups as they stream off the chip doesn't need the whole map.
func (d *Document) DataGroupHash(dg int) ([]byte, bool) {
	for _, h := range d.DataGroupHashes {
		if h.Number == dg {
			return h.Hash, true
		}
	}
	return nil, false
}

// DigestAlgorithmOID returns the dotted-decimal OID of the digest
// algorithm named in the LDSSecurityObject.
func (d *Document) DigestAlgorithmOID() (string, error) {
	oid, err := hashAlgToOID(d.DigestAlgorithm)
	if err != nil {
		return "", err
	}
	return oid.String(), nil
}

// Certificate returns the document signer certificate embedded in the
// SignedData's Certificates field, if Parse found one.
func (d *Document) Certificate() *x509.Certificate { return d.signerCert }

// VerifyConfig configures Verify.
type VerifyConfig struct {
	// DataGroups supplies the full encoded bytes of each data group the
	// caller wants checked against the SOd's recorded hash, keyed by DG
	// number. Numbers absent from the SOd's own hash map are ignored;
	// numbers present in the SOd but absent here are not checked.
	DataGroups map[int][]byte
	// Certificate overrides the embedded signer certificate (used when
	// Parse found none, e.g. a detached-certificate profile).
	Certificate *x509.Certificate
	// TrustAnchors, when non-nil, causes Verify to additionally chain
	// the signer certificate to this pool; UntrustedSigner
	// is only ever returned when this is supplied.
	TrustAnchors *x509.CertPool
}

// Verify checks the CMS signature over the recorded e-content and, for
// every data group VerifyConfig.DataGroups supplies, recomputes its hash
// and compares it against the SOd's recorded value: a single tampered
// byte in any checked data group's bytes makes this fail with
// MismatchedDigest.
func (d *Document) Verify(cfg VerifyConfig) error {
	cert := cfg.Certificate
	if cert == nil {
		cert = d.signerCert
	}
	if cert == nil {
		return fmt.Errorf("sod: no document signer certificate available")
	}

	if err := d.verifySignature(cert); err != nil {
		return err
	}

	var dgNumbers []int
	for dg := range cfg.DataGroups {
		dgNumbers = append(dgNumbers, dg)
	}
	sort.Ints(dgNumbers)
	for _, dg := range dgNumbers {
		want, ok := d.DataGroupHash(dg)
		if !ok {
			continue
		}
		got, err := mrtdcrypto.Sum(d.DigestAlgorithm, cfg.DataGroups[dg])
		if err != nil {
			return err
		}
		if !bytes.Equal(want, got) {
			return &mrtderr.MismatchedDigest{DG: dg}
		}
	}

	if cfg.TrustAnchors != nil {
		opts := x509.VerifyOptions{Roots: cfg.TrustAnchors, Intermediates: x509.NewCertPool()}
		for _, c := range d.otherCerts {
			opts.Intermediates.AddCert(c)
		}
		if _, err := cert.Verify(opts); err != nil {
			return &mrtderr.UntrustedSigner{Cause: err}
		}
	}
	return nil
}

func (d *Document) verifySignature(cert *x509.Certificate) error {
	signedAttrsDER, err := marshalSignedAttrsSetOf(d.signerInfo.signedAttrs)
	if err != nil {
		return err
	}

	var digestField []byte
	for _, a := range d.signerInfo.signedAttrs {
		if a.oid.Equal(oidMessageDigest) {
			var raw []byte
			if len(a.values) == 1 {
				if _, err := asn1.Unmarshal(a.values[0].FullBytes, &raw); err != nil {
					return &mrtderr.MalformedASN1{Reason: "messageDigest attribute: " + err.Error()}
				}
			}
			digestField = raw
		}
	}
	contentDigest, err := mrtdcrypto.Sum(d.DigestAlgorithm, d.eContent)
	if err != nil {
		return err
	}
	if !bytes.Equal(digestField, contentDigest) {
		return &mrtderr.SignatureInvalid{Cause: fmt.Errorf("signed messageDigest attribute does not match e-content")}
	}

	sigDigest, err := mrtdcrypto.Sum(d.DigestAlgorithm, signedAttrsDER)
	if err != nil {
		return err
	}

	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		if d.signerInfo.signatureScheme == SigRSAPSS {
			return mrtdcrypto.VerifyRSAPSS(pub, d.DigestAlgorithm, sigDigest, d.signerInfo.signature)
		}
		return mrtdcrypto.VerifyRSA(pub, d.DigestAlgorithm, sigDigest, d.signerInfo.signature)
	case *ecdsa.PublicKey:
		return mrtdcrypto.VerifyECDSA(pub, sigDigest, d.signerInfo.signature)
	default:
		return &mrtderr.UnsupportedAlgorithm{OID: fmt.Sprintf("%T", pub)}
	}
}

// signerInfo is this module's trimmed RFC 5652 SignerInfo: issuer/serial
// identification (IssuerAndSerialNumber, the only SignerIdentifier form
// ICAO SOd producers use), the digest algorithm, the signed attributes
// that were actually signed over, and the resulting signature.
type signerInfo struct {
	issuer          []byte
	serialNumber    *big.Int
	digestAlgorithm mrtdcrypto.HashAlg
	signedAttrs     []attribute
	signatureScheme SignatureAlgorithm
	signature       []byte
}

