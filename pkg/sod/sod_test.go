package sod

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// selfSignedDSC builds a throwaway document signer certificate over a
// freshly generated RSA key, good enough for exercising Build/Verify
// without a real CSCA chain.
func selfSignedDSC(t *testing.T) (*rsa.PrivateKey, *x509.Certificate) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{CommonName: "Test DSC"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return priv, cert
}

func sampleBuildConfig(t *testing.T) (BuildConfig, map[int][]byte) {
	priv, cert := selfSignedDSC(t)

	dg1 := []byte("P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<")
	dg2 := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02, 0x03}

	dg1Hash, err := mrtdcrypto.Sum(mrtdcrypto.HashSHA256, dg1)
	require.NoError(t, err)
	dg2Hash, err := mrtdcrypto.Sum(mrtdcrypto.HashSHA256, dg2)
	require.NoError(t, err)

	cfg := BuildConfig{
		DigestAlgorithm: mrtdcrypto.HashSHA256,
		DataGroupHashes: []DataGroupHash{
			{Number: 2, Hash: dg2Hash},
			{Number: 1, Hash: dg1Hash},
		},
		Signer:      NewRSASigner(priv, SigRSAPKCS1v15),
		Certificate: cert,
	}
	return cfg, map[int][]byte{1: dg1, 2: dg2}
}

func TestBuildEncodeParseVerifyRoundTrip(t *testing.T) {
	cfg, dataGroups := sampleBuildConfig(t)

	doc, err := Build(cfg)
	require.NoError(t, err)

	der, err := doc.Encode()
	require.NoError(t, err)
	require.NotEmpty(t, der)

	parsed, err := Parse(der)
	require.NoError(t, err)

	assert.Equal(t, doc.DigestAlgorithm, parsed.DigestAlgorithm)
	assert.Equal(t, doc.ContentTypeOID, parsed.ContentTypeOID)
	assert.ElementsMatch(t, doc.DataGroupHashes, parsed.DataGroupHashes)
	require.NotNil(t, parsed.Certificate())
	assert.Equal(t, cfg.Certificate.SerialNumber, parsed.Certificate().SerialNumber)

	require.NoError(t, parsed.Verify(VerifyConfig{DataGroups: dataGroups}))
}

func TestBuildWithPSSRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "Test DSC PSS"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	dg := []byte("sample data group 15 bytes")
	hash, err := mrtdcrypto.Sum(mrtdcrypto.HashSHA256, dg)
	require.NoError(t, err)

	doc, err := Build(BuildConfig{
		DigestAlgorithm: mrtdcrypto.HashSHA256,
		DataGroupHashes: []DataGroupHash{{Number: 15, Hash: hash}},
		Signer:          NewRSASigner(priv, SigRSAPSS),
		Certificate:     cert,
	})
	require.NoError(t, err)

	wire, err := doc.Encode()
	require.NoError(t, err)

	parsed, err := Parse(wire)
	require.NoError(t, err)
	require.NoError(t, parsed.Verify(VerifyConfig{DataGroups: map[int][]byte{15: dg}}))
}

// TestSOdClosureOnTamperedDataGroup exercises the closure property: any
// single tampered byte in a covered data group's bytes must surface as
// MismatchedDigest, never a silent pass.
func TestSOdClosureOnTamperedDataGroup(t *testing.T) {
	cfg, dataGroups := sampleBuildConfig(t)

	doc, err := Build(cfg)
	require.NoError(t, err)

	der, err := doc.Encode()
	require.NoError(t, err)
	parsed, err := Parse(der)
	require.NoError(t, err)

	tampered := append([]byte(nil), dataGroups[1]...)
	tampered[0] ^= 0xFF

	err = parsed.Verify(VerifyConfig{DataGroups: map[int][]byte{1: tampered, 2: dataGroups[2]}})
	var mismatch *mrtderr.MismatchedDigest
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1, mismatch.DG)
}

func TestVerifyFailsOnTamperedSignature(t *testing.T) {
	cfg, dataGroups := sampleBuildConfig(t)

	doc, err := Build(cfg)
	require.NoError(t, err)

	der, err := doc.Encode()
	require.NoError(t, err)
	der[len(der)-1] ^= 0xFF

	parsed, err := Parse(der)
	if err != nil {
		// Flipping the trailing byte sometimes corrupts the DER
		// structure itself rather than just the signature value —
		// either failure mode is an acceptable outcome here.
		return
	}
	err = parsed.Verify(VerifyConfig{DataGroups: dataGroups})
	assert.Error(t, err)
}

func TestVerifyUntrustedSigner(t *testing.T) {
	cfg, dataGroups := sampleBuildConfig(t)

	doc, err := Build(cfg)
	require.NoError(t, err)
	der, err := doc.Encode()
	require.NoError(t, err)
	parsed, err := Parse(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	// An empty-of-this-signer pool: the self-signed DSC is never a
	// member, so chain verification must fail closed.
	err = parsed.Verify(VerifyConfig{DataGroups: dataGroups, TrustAnchors: pool})
	var untrusted *mrtderr.UntrustedSigner
	require.ErrorAs(t, err, &untrusted)
}

func TestDataGroupHashAccessor(t *testing.T) {
	cfg, _ := sampleBuildConfig(t)
	doc, err := Build(cfg)
	require.NoError(t, err)

	hash, ok := doc.DataGroupHash(1)
	assert.True(t, ok)
	assert.NotEmpty(t, hash)

	_, ok = doc.DataGroupHash(9)
	assert.False(t, ok)

	oid, err := doc.DigestAlgorithmOID()
	require.NoError(t, err)
	assert.Equal(t, "2.16.840.1.101.3.4.2.1", oid)
}
