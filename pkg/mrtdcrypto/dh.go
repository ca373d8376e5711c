package mrtdcrypto

import (
	"crypto/ecdh"
	"crypto/elliptic"
	"crypto/rand"
	"math/big"

	"github.com/go-emrtd/mrtdcore/pkg/mrtderr"
)

// DHParams is a classical (finite-field) Diffie-Hellman group: the
// handful of MODP groups PACE-DH still names. No library in this
// module's pack covers classical DH (every example either skips it or
// uses ECDH), so it is implemented directly over math/big, the same way
// any from-scratch DH implementation would be without an ecosystem
// helper — recorded as a justified stdlib exception in DESIGN.md.
type DHParams struct {
	P *big.Int
	G *big.Int
}

// GenerateDH returns a fresh DH keypair for params.
func GenerateDH(params DHParams) (priv, pub *big.Int, err error) {
	priv, err = rand.Int(rand.Reader, params.P)
	if err != nil {
		return nil, nil, &mrtderr.CryptoFailed{Stage: "DH keygen", Cause: err}
	}
	pub = new(big.Int).Exp(params.G, priv, params.P)
	return priv, pub, nil
}

// SharedDH computes peerPub^priv mod p, the classical DH shared secret.
func SharedDH(params DHParams, priv, peerPub *big.Int) *big.Int {
	return new(big.Int).Exp(peerPub, priv, params.P)
}

// ECPoint is an affine point on an elliptic.Curve. PACE's Generic Mapping
// step (G' = map(s, G, H)) and Integrated Mapping step both need raw
// point addition/scalar multiplication that crypto/ecdh's opaque
// shared-secret API does not expose, so this module reaches past ecdh to
// stdlib crypto/elliptic directly for those two operations. Chip
// Authentication's ECDH agreement (pkg/protocol/ca) also uses
// crypto/elliptic's ScalarMult; ECDHShared below, the crypto/ecdh route,
// has no caller in this module.
type ECPoint struct {
	Curve elliptic.Curve
	X, Y  *big.Int
}

// Add returns p+q on the shared curve.
func (p ECPoint) Add(q ECPoint) ECPoint {
	x, y := p.Curve.Add(p.X, p.Y, q.X, q.Y)
	return ECPoint{Curve: p.Curve, X: x, Y: y}
}

// ScalarMult returns k*p.
func (p ECPoint) ScalarMult(k []byte) ECPoint {
	x, y := p.Curve.ScalarMult(p.X, p.Y, k)
	return ECPoint{Curve: p.Curve, X: x, Y: y}
}

// ScalarBaseMult returns k*G for the curve's base point.
func ScalarBaseMult(curve elliptic.Curve, k []byte) ECPoint {
	x, y := curve.ScalarBaseMult(k)
	return ECPoint{Curve: curve, X: x, Y: y}
}

// GenericMap computes PACE Generic Mapping's ephemeral domain generator
// G' = s·G + H, where H is the point on the shared classical DH/ECDH
// result and s is the encoded nonce.
func GenericMap(g ECPoint, s []byte, h ECPoint) ECPoint {
	return g.ScalarMult(s).Add(h)
}

// NISTCurve maps a curve name ("P256", "P384", "P521") to its
// crypto/ecdh.Curve, for use with ECDHShared.
func NISTCurve(name string) (ecdh.Curve, error) {
	switch name {
	case "P256":
		return ecdh.P256(), nil
	case "P384":
		return ecdh.P384(), nil
	case "P521":
		return ecdh.P521(), nil
	default:
		return nil, &mrtderr.UnsupportedAlgorithm{OID: name}
	}
}

// EllipticCurve maps the same curve names to stdlib crypto/elliptic's
// Curve, for the steps that use raw affine point arithmetic rather than
// crypto/ecdh's opaque handles: PACE's mapping and ephemeral key
// agreement, and Chip Authentication's key agreement.
// Doc 9303 also names several Brainpool curves (P256r1, P320r1, ...);
// none of them are in stdlib and no example in the pack imports a
// Brainpool curve implementation, so this module's PACE support is
// scoped to the NIST P-256/P-384/P-521 domain parameters only.
func EllipticCurve(name string) (elliptic.Curve, error) {
	switch name {
	case "P256":
		return elliptic.P256(), nil
	case "P384":
		return elliptic.P384(), nil
	case "P521":
		return elliptic.P521(), nil
	default:
		return nil, &mrtderr.UnsupportedAlgorithm{OID: name}
	}
}

// ECDHShared derives an ordinary static-ephemeral ECDH shared secret
// through crypto/ecdh's opaque API, with no point-arithmetic fixup.
func ECDHShared(curve ecdh.Curve, priv *ecdh.PrivateKey, peerPub *ecdh.PublicKey) ([]byte, error) {
	secret, err := priv.ECDH(peerPub)
	if err != nil {
		return nil, &mrtderr.CryptoFailed{Stage: "ECDH", Cause: err}
	}
	return secret, nil
}
