package pace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
)

func TestParseOIDGMAESCBCCMAC128ECDH(t *testing.T) {
	params, err := ParseOID("0.4.0.127.0.7.2.2.4.2.2")
	require.NoError(t, err)
	assert.Equal(t, MappingGM, params.Mapping)
	assert.Equal(t, AgreementECDH, params.Agreement)
	assert.Equal(t, mrtdcrypto.CipherAES128, params.Cipher)
}

func TestParseOIDGMDH3DES(t *testing.T) {
	params, err := ParseOID("0.4.0.127.0.7.2.2.4.1.1")
	require.NoError(t, err)
	assert.Equal(t, MappingGM, params.Mapping)
	assert.Equal(t, AgreementDH, params.Agreement)
	assert.Equal(t, mrtdcrypto.Cipher3DES, params.Cipher)
}

func TestParseOIDIMHasNo3DESBranch(t *testing.T) {
	_, err := ParseOID("0.4.0.127.0.7.2.2.4.3.1")
	assert.Error(t, err)
}

func TestParseOIDCAMECDHAES256(t *testing.T) {
	params, err := ParseOID("0.4.0.127.0.7.2.2.4.6.4")
	require.NoError(t, err)
	assert.Equal(t, MappingCAM, params.Mapping)
	assert.Equal(t, AgreementECDH, params.Agreement)
	assert.Equal(t, mrtdcrypto.CipherAES256, params.Cipher)
}

func TestParseOIDUnknownArcRejected(t *testing.T) {
	_, err := ParseOID("1.2.3.4")
	assert.Error(t, err)
}

func TestMarshalOIDProducesDERTag06(t *testing.T) {
	der, err := marshalOID("0.4.0.127.0.7.2.2.4.2.2")
	require.NoError(t, err)
	assert.Equal(t, byte(0x06), der[0])
}
