package ca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
)

func TestParseOIDECDHAES128(t *testing.T) {
	params, err := ParseOID("0.4.0.127.0.7.2.2.3.2.2")
	require.NoError(t, err)
	assert.Equal(t, AgreementECDH, params.Agreement)
	assert.Equal(t, mrtdcrypto.CipherAES128, params.Cipher)
}

func TestParseOIDDH3DES(t *testing.T) {
	params, err := ParseOID("0.4.0.127.0.7.2.2.3.1.1")
	require.NoError(t, err)
	assert.Equal(t, AgreementDH, params.Agreement)
	assert.Equal(t, mrtdcrypto.Cipher3DES, params.Cipher)
}

func TestParseOIDRejectsUnknownArc(t *testing.T) {
	_, err := ParseOID("2.23.136.1.1.5")
	assert.Error(t, err)
}

func TestRunRejectsMissingECDHKey(t *testing.T) {
	_, err := Run(nil, Config{OID: "0.4.0.127.0.7.2.2.3.2.2"})
	assert.Error(t, err)
}
