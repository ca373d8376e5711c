package aa

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
)

// signISO9796 builds a scheme-1 representative and signs it with priv,
// the inverse of verifyISO9796 — used here only to manufacture a
// verifiable fixture, exactly the way a chip's INTERNAL AUTHENTICATE
// response would be built.
func signISO9796(priv *rsa.PrivateKey, challenge []byte) []byte {
	k := (priv.N.BitLen() + 7) / 8
	digest, err := mrtdcrypto.Sum(mrtdcrypto.HashSHA1, challenge)
	if err != nil {
		panic(err)
	}
	m1Len := k - 2 - len(digest)
	ir := make([]byte, k)
	ir[0] = 0x6A
	copy(ir[1+m1Len-len(challenge):1+m1Len], challenge)
	copy(ir[1+m1Len:], digest)
	ir[k-1] = 0xBC

	m := new(big.Int).SetBytes(ir)
	d := priv.D
	sig := new(big.Int).Exp(m, d, priv.N).Bytes()
	out := make([]byte, k)
	copy(out[k-len(sig):], sig)
	return out
}

func TestRunRSASucceeds(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	// Run generates its own random challenge, so the fake responder
	// can't precompute a signature in advance — it signs whatever
	// challenge bytes actually arrive in the APDU.
	cfg := Config{RSA: &PublicKeyRSA{Key: &priv.PublicKey}}
	sc := &signingCard{priv: priv}
	res, err := Run(sc, cfg)
	require.NoError(t, err)
	require.Len(t, res.Challenge, 8)
	require.NotEmpty(t, res.Signature)
}

// signingCard signs whatever 8-byte challenge it is handed, modelling a
// chip that actually holds the AA private key.
type signingCard struct {
	priv *rsa.PrivateKey
}

func (s *signingCard) Transmit(apdu []byte) ([]byte, error) {
	lc := int(apdu[4])
	challenge := apdu[5 : 5+lc]
	sig := signISO9796(s.priv, challenge)
	return append(sig, 0x90, 0x00), nil
}

func TestVerifyISO9796RejectsTamperedChallenge(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	challenge := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	sig := signISO9796(priv, challenge)

	require.NoError(t, verifyISO9796(&priv.PublicKey, challenge, sig))

	tampered := append([]byte{}, challenge...)
	tampered[0] ^= 0xFF
	require.Error(t, verifyISO9796(&priv.PublicKey, tampered, sig))
}

func TestRunECDSASucceeds(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	sc := &ecdsaSigningCard{priv: priv}
	cfg := Config{ECDSA: &PublicKeyECDSA{Key: &priv.PublicKey, HashAlg: mrtdcrypto.HashSHA256}}
	res, err := Run(sc, cfg)
	require.NoError(t, err)
	require.Len(t, res.Challenge, 8)
}

type ecdsaSigningCard struct {
	priv *ecdsa.PrivateKey
}

func (s *ecdsaSigningCard) Transmit(apdu []byte) ([]byte, error) {
	lc := int(apdu[4])
	challenge := apdu[5 : 5+lc]
	digest, err := mrtdcrypto.Sum(mrtdcrypto.HashSHA256, challenge)
	if err != nil {
		return nil, err
	}
	sig, err := mrtdcrypto.SignECDSA(s.priv, digest)
	if err != nil {
		return nil, err
	}
	return append(sig, 0x90, 0x00), nil
}
