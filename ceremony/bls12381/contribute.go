package bls12381

import (
	"fmt"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/zkceremony/sequencer/ceremony"
)

// Domain separation tags: tau derivation from raw entropy, and the identity
// signature ciphersuite (minimal-signature BLS, pubkey in G2, signature in
// G1).
var (
	dstSecret    = []byte("KZG-CEREMONY-SECRET-BLS12381-SHA256-V1")
	dstSignature = []byte("BLS_SIG_BLS12381G1_XMD:SHA-256_SSWU_RO_POP_")
)

// AddEntropy fills in a contribution template with a secret derived from
// entropy: every power is scaled by the matching power of tau, the pot pubkey
// commits to tau, and the identity string (if any) is signed under tau. The
// template's powers must be the shard's current powers for the result to
// verify.
func AddEntropy(c *ceremony.Contribution, entropy [32]byte, identity string) error {
	taus, err := fr.Hash(entropy[:], dstSecret, 1)
	if err != nil {
		return fmt.Errorf("deriving secret: %v", err)
	}
	tau := taus[0]

	g1Pts, err := parseG1("G1", c.Powers.G1)
	if err != nil {
		return err
	}
	g2Pts, err := parseG2("G2", c.Powers.G2)
	if err != nil {
		return err
	}

	// g1[i] *= tau^i, g2[i] *= tau^i.
	var tauPow fr.Element
	tauPow.SetOne()
	var s big.Int
	for i := range g1Pts {
		if i > 0 {
			tauPow.Mul(&tauPow, &tau)
			g1Pts[i].ScalarMultiplication(&g1Pts[i], tauPow.BigInt(&s))
			if i < len(g2Pts) {
				g2Pts[i].ScalarMultiplication(&g2Pts[i], &s)
			}
		}
		b := g1Pts[i].Bytes()
		copy(c.Powers.G1[i][:], b[:])
	}
	for i := range g2Pts {
		b := g2Pts[i].Bytes()
		copy(c.Powers.G2[i][:], b[:])
	}

	var pubkey bls12381.G2Affine
	pubkey.ScalarMultiplication(&g2Gen, tau.BigInt(&s))
	pb := pubkey.Bytes()
	copy(c.PotPubkey[:], pb[:])

	if identity != "" {
		sig, err := signIdentity(tau, identity)
		if err != nil {
			return err
		}
		c.BlsSignature = sig
	} else {
		c.BlsSignature = nil
	}

	// Best effort: drop the secret before returning.
	tau.SetZero()
	tauPow.SetZero()
	s.SetInt64(0)
	return nil
}

func signIdentity(tau fr.Element, identity string) (ceremony.Signature, error) {
	h, err := bls12381.HashToG1([]byte(identity), dstSignature)
	if err != nil {
		return nil, fmt.Errorf("hashing identity to G1: %v", err)
	}
	var s big.Int
	h.ScalarMultiplication(&h, tau.BigInt(&s))
	b := h.Bytes()
	return b[:], nil
}

// VerifySignature checks a BLS signature over an identity string against a
// pot pubkey: e(sig, g2) == e(H(identity), pubkey). An empty signature never
// verifies.
func VerifySignature(pubkey ceremony.G2, identity string, sig ceremony.Signature) (bool, error) {
	if len(sig) != bls12381.SizeOfG1AffineCompressed {
		return false, nil
	}
	var sigPt bls12381.G1Affine
	if _, err := sigPt.SetBytes(sig); err != nil {
		return false, nil
	}
	if !sigPt.IsInSubGroup() {
		return false, nil
	}
	pubPt, err := parseOneG2("pubkey", pubkey)
	if err != nil {
		return false, err
	}
	h, err := bls12381.HashToG1([]byte(identity), dstSignature)
	if err != nil {
		return false, fmt.Errorf("hashing identity to G1: %v", err)
	}
	h.Neg(&h)
	ok, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{sigPt, h},
		[]bls12381.G2Affine{g2Gen, pubPt},
	)
	if err != nil {
		return false, fmt.Errorf("pairing check failed: %v", err)
	}
	return ok, nil
}
