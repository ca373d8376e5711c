package mrtdcrypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCBCRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 16)
	iv := bytes.Repeat([]byte{0x00}, 16)
	data := PadISO9797M2([]byte("hello eMRTD"), 16)

	ct, err := CBCEncrypt(CipherAES128, key, iv, data)
	require.NoError(t, err)

	pt, err := CBCDecrypt(CipherAES128, key, iv, ct)
	require.NoError(t, err)

	unpadded, err := UnpadISO9797M2(pt)
	require.NoError(t, err)
	assert.Equal(t, "hello eMRTD", string(unpadded))
}

func TestMACAES(t *testing.T) {
	key := bytes.Repeat([]byte{0x02}, 16)
	data := PadISO9797M2([]byte("ssc||apdu"), 16)
	mac1, err := MAC(CipherAES128, key, data)
	require.NoError(t, err)
	mac2, err := MAC(CipherAES128, key, data)
	require.NoError(t, err)
	assert.Equal(t, mac1, mac2)
	assert.Len(t, mac1, 16)
}

func TestMAC3DESRetail(t *testing.T) {
	key := bytes.Repeat([]byte{0x03}, 16)
	data := PadISO9797M2([]byte("bac mac input"), 8)
	mac, err := MAC(Cipher3DES, key, data)
	require.NoError(t, err)
	assert.Len(t, mac, 8)
}

func TestUnpadBadPadding(t *testing.T) {
	_, err := UnpadISO9797M2([]byte{0x01, 0x02, 0x00, 0x00})
	require.Error(t, err)
}

func TestHashSum(t *testing.T) {
	sum, err := Sum(HashSHA256, []byte("doc 9303"))
	require.NoError(t, err)
	assert.Len(t, sum, 32)

	sum3, err := Sum(HashSHA3_256, []byte("doc 9303"))
	require.NoError(t, err)
	assert.Len(t, sum3, 32)
	assert.NotEqual(t, sum, sum3)
}

func TestECPointGenericMap(t *testing.T) {
	curve := elliptic.P256()
	g := ECPoint{Curve: curve, X: curve.Params().Gx, Y: curve.Params().Gy}
	h := ScalarBaseMult(curve, []byte{0x05})
	s := []byte{0x02}

	mapped := GenericMap(g, s, h)
	assert.True(t, curve.IsOnCurve(mapped.X, mapped.Y))
}

func TestRSASignVerify(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	digest, err := Sum(HashSHA256, []byte("active authentication challenge"))
	require.NoError(t, err)

	sig, err := SignRSA(priv, HashSHA256, digest)
	require.NoError(t, err)
	require.NoError(t, VerifyRSA(&priv.PublicKey, HashSHA256, digest, sig))

	digest[0] ^= 0xFF
	assert.Error(t, VerifyRSA(&priv.PublicKey, HashSHA256, digest, sig))
}

func TestRSAPSSSignVerify(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	digest, err := Sum(HashSHA256, []byte("SOd e-content"))
	require.NoError(t, err)

	sig, err := SignRSAPSS(priv, HashSHA256, digest)
	require.NoError(t, err)
	require.NoError(t, VerifyRSAPSS(&priv.PublicKey, HashSHA256, digest, sig))

	digest[0] ^= 0xFF
	assert.Error(t, VerifyRSAPSS(&priv.PublicKey, HashSHA256, digest, sig))
}

func TestECDSASignVerify(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	digest, err := Sum(HashSHA256, []byte("sod content"))
	require.NoError(t, err)

	sig, err := SignECDSA(priv, digest)
	require.NoError(t, err)
	require.NoError(t, VerifyECDSA(&priv.PublicKey, digest, sig))
}
