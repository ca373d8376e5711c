package pace

import (
	"bytes"
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"

	"github.com/go-emrtd/mrtdcore/pkg/card"
	"github.com/go-emrtd/mrtdcore/pkg/kdf"
	"github.com/go-emrtd/mrtdcore/pkg/mrtdcrypto"
	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
	"github.com/go-emrtd/mrtdcore/pkg/sm"
	"github.com/go-emrtd/mrtdcore/pkg/tlv"
)

// runDH drives the classical finite-field PACE ceremony — the DH branches
// (1, 3, 5) of the PACE OID arc, with the same cipher suites ParseOID
// allows for ECDH — kept alongside runECDH for the handful of legacy
// MODP-group chips still seen in the field.
func runDH(t card.Transmitter, cfg Config, params Params, kpi, nonce []byte) (*Result, error) {
	if cfg.DH.P == nil || cfg.DH.G == nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateMappingDone), Cause: errDHParamsRequired}
	}

	gprime, err := mapGeneratorDH(t, cfg.DH, params.Mapping, nonce)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateMappingDone), Cause: err}
	}

	pcdPriv, pcdPub, err := ephemeralKeypairDH(cfg.DH, gprime)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateKeyAgreementDone), Cause: err}
	}
	resp, err := generalAuthenticate(t, tlv.Primitive(tag83, fixedLengthBytesMod(pcdPub, cfg.DH.P)).Encode())
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateKeyAgreementDone), Cause: err}
	}
	peerEphDO, ok := resp.Find(tag84)
	if !ok {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateKeyAgreementDone), Cause: errMissingDO}
	}
	peerPub := new(big.Int).SetBytes(peerEphDO.Value)

	shared := new(big.Int).Exp(peerPub, pcdPriv, cfg.DH.P)
	secret := fixedLengthBytesMod(shared, cfg.DH.P)

	kenc, err := kdf.DeriveKey(params.Cipher, secret, kdf.CounterEncryption)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateKeyAgreementDone), Cause: err}
	}
	kmac, err := kdf.DeriveKey(params.Cipher, secret, kdf.CounterMAC)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateKeyAgreementDone), Cause: err}
	}

	tpcd, err := macEncodedInt(params.Cipher, kmac, cfg.DH.P, peerPub)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateMutualAuthenticated), Cause: err}
	}
	authResp, err := generalAuthenticate(t, tlv.Primitive(tag85, tpcd).Encode())
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateMutualAuthenticated), Cause: err}
	}
	tpiccDO, ok := authResp.Find(tag86)
	if !ok {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateMutualAuthenticated), Cause: errMissingDO}
	}
	expectedTPICC, err := macEncodedInt(params.Cipher, kmac, cfg.DH.P, pcdPub)
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateMutualAuthenticated), Cause: err}
	}
	if !bytes.Equal(tpiccDO.Value, expectedTPICC) {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateMutualAuthenticated), Cause: errMutualAuthFailed}
	}

	mode, ok := sm.ModeForCipher(params.Cipher)
	if !ok {
		return nil, &mrtderr.ProtocolError{
			Protocol: "PACE", Stage: string(StateMutualAuthenticated),
			Cause: &mrtderr.UnsupportedAlgorithm{OID: cfg.OID},
		}
	}
	suite, _ := sm.SuiteFor(mode)
	wrapper, err := sm.NewWrapper(mode, kenc, kmac, make([]byte, suite.SSCSize))
	if err != nil {
		return nil, &mrtderr.ProtocolError{Protocol: "PACE", Stage: string(StateMutualAuthenticated), Cause: err}
	}
	return &Result{Wrapper: wrapper}, nil
}

func ephemeralKeypairDH(params mrtdcrypto.DHParams, g *big.Int) (priv, pub *big.Int, err error) {
	priv, err = rand.Int(rand.Reader, params.P)
	if err != nil {
		return nil, nil, &mrtderr.CryptoFailed{Stage: "PACE DH ephemeral keygen", Cause: err}
	}
	pub = new(big.Int).Exp(g, priv, params.P)
	return priv, pub, nil
}

func mapGeneratorDH(t card.Transmitter, params mrtdcrypto.DHParams, mapping Mapping, nonce []byte) (*big.Int, error) {
	switch mapping {
	case MappingGM, MappingCAM:
		return genericMapDH(t, params, nonce)
	case MappingIM:
		return integratedMapDH(params, nonce)
	default:
		return nil, errors.Errorf("pace: unsupported mapping %q", mapping)
	}
}

// genericMapDH computes G' = G^s * H mod P, H being the classical DH
// shared secret of a fresh mapping keypair exchanged via tags 81/82 —
// the finite-field analogue of genericMapECDH's point addition.
func genericMapDH(t card.Transmitter, params mrtdcrypto.DHParams, nonce []byte) (*big.Int, error) {
	mapPriv, mapPub, err := mrtdcrypto.GenerateDH(params)
	if err != nil {
		return nil, err
	}
	resp, err := generalAuthenticate(t, tlv.Primitive(tag81, fixedLengthBytesMod(mapPub, params.P)).Encode())
	if err != nil {
		return nil, err
	}
	peerDO, ok := resp.Find(tag82)
	if !ok {
		return nil, errMissingDO
	}
	peerPub := new(big.Int).SetBytes(peerDO.Value)
	h := mrtdcrypto.SharedDH(params, mapPriv, peerPub)

	s := new(big.Int).SetBytes(nonce)
	gs := new(big.Int).Exp(params.G, s, params.P)
	return new(big.Int).Mod(new(big.Int).Mul(gs, h), params.P), nil
}

// integratedMapDH mirrors integratedMapECDH's documented simplification
// for the DH family: see that function's comment for why TR-03110's
// exact ICART-derived DH mapping function isn't reproduced byte-exact.
func integratedMapDH(params mrtdcrypto.DHParams, nonce []byte) (*big.Int, error) {
	digest, err := mrtdcrypto.Sum(mrtdcrypto.HashSHA256, nonce)
	if err != nil {
		return nil, err
	}
	exp := new(big.Int).SetBytes(digest)
	return new(big.Int).Exp(params.G, exp, params.P), nil
}

func macEncodedInt(cipher mrtdcrypto.Cipher, kmac []byte, p *big.Int, v *big.Int) ([]byte, error) {
	encoded := fixedLengthBytesMod(v, p)
	padded := mrtdcrypto.PadISO9797M2(encoded, cipher.BlockSize())
	mac, err := mrtdcrypto.MAC(cipher, kmac, padded)
	if err != nil {
		return nil, err
	}
	return truncate8(mac), nil
}

// fixedLengthBytesMod renders v as a big-endian byte string padded to
// the byte width of the modulus p, for the same reason fixedLengthBytes
// does for EC field elements.
func fixedLengthBytesMod(v, p *big.Int) []byte {
	size := (p.BitLen() + 7) / 8
	b := v.Bytes()
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
