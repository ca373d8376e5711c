package ta

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
)

// fakeCard replays a fixed queue of response APDUs, one per Transmit
// call, and records every request it was sent.
type fakeCard struct {
	responses [][]byte
	requests  [][]byte
	next      int
}

func (f *fakeCard) Transmit(apdu []byte) ([]byte, error) {
	f.requests = append(f.requests, apdu)
	resp := f.responses[f.next]
	f.next++
	return resp, nil
}

func sw9000() []byte { return []byte{0x90, 0x00} }

func TestSignRSAProducesVerifiableSignature(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	cfg := Config{RSA: &SignerRSA{Key: priv, HashAlg: mrtdcrypto.HashSHA256}}

	digest, err := mrtdcrypto.Sum(mrtdcrypto.HashSHA256, []byte("id-picc||nonce||pubkey-digest"))
	require.NoError(t, err)

	sig, err := sign(cfg, digest)
	require.NoError(t, err)
	assert.NoError(t, mrtdcrypto.VerifyRSA(&priv.PublicKey, mrtdcrypto.HashSHA256, digest, sig))
}

func TestSignECDSAProducesVerifiableSignature(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	cfg := Config{ECDSA: &SignerECDSA{Key: priv, HashAlg: mrtdcrypto.HashSHA256}}

	digest, err := mrtdcrypto.Sum(mrtdcrypto.HashSHA256, []byte("id-picc||nonce||pubkey-digest"))
	require.NoError(t, err)

	sig, err := sign(cfg, digest)
	require.NoError(t, err)
	assert.NoError(t, mrtdcrypto.VerifyECDSA(&priv.PublicKey, digest, sig))
}

func TestSignWithoutSignerFails(t *testing.T) {
	_, err := sign(Config{}, []byte("digest"))
	assert.ErrorIs(t, err, errNoSigner)
}

func TestRunFullSequenceSignsHashedData(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	nonce := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	card := &fakeCard{responses: [][]byte{
		sw9000(), // PSO:Verify Certificate (cert chain, one entry)
		sw9000(), // MSE:Set AT
		append(append([]byte{}, nonce...), sw9000()...), // GET CHALLENGE
		sw9000(), // EXTERNAL AUTHENTICATE
	}}

	cfg := Config{
		CVCertificateChain:    [][]byte{{0xAA, 0xBB}},
		IDPICC:                []byte("ID-PICC"),
		PCDEphemeralPublicKey: []byte{0x04, 0x01, 0x02},
		RSA:                   &SignerRSA{Key: priv, HashAlg: mrtdcrypto.HashSHA256},
	}

	err = Run(card, cfg)
	require.NoError(t, err)
	require.Len(t, card.requests, 4)

	pubKeyDigest, err := mrtdcrypto.Sum(mrtdcrypto.HashSHA256, cfg.PCDEphemeralPublicKey)
	require.NoError(t, err)
	signedData := append(append(append([]byte{}, cfg.IDPICC...), nonce...), pubKeyDigest...)
	digest, err := mrtdcrypto.Sum(mrtdcrypto.HashSHA256, signedData)
	require.NoError(t, err)

	externalAuthAPDU := card.requests[3]
	require.Greater(t, len(externalAuthAPDU), 5)
	sig := externalAuthAPDU[5:]
	assert.NoError(t, mrtdcrypto.VerifyRSA(&priv.PublicKey, mrtdcrypto.HashSHA256, digest, sig))
}

func TestRunPropagatesCertificateChainFailure(t *testing.T) {
	card := &fakeCard{responses: [][]byte{{0x6A, 0x80}}}
	cfg := Config{
		CVCertificateChain: [][]byte{{0xAA}},
		RSA:                &SignerRSA{HashAlg: mrtdcrypto.HashSHA256},
	}
	err := Run(card, cfg)
	assert.Error(t, err)
}
