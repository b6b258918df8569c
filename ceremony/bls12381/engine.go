package bls12381

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/zkceremony/sequencer/ceremony"
)

// Engine verifies contributions over BLS12-381. It is stateless and safe for
// concurrent use.
type Engine struct{}

var _ ceremony.Engine = Engine{}

var g1Gen, g2Gen = generators()

func generators() (bls12381.G1Affine, bls12381.G2Affine) {
	_, _, g1, g2 := bls12381.Generators()
	return g1, g2
}

// ValidateG1 checks that every point decodes to a curve point in the correct
// prime-order subgroup.
func (Engine) ValidateG1(points []ceremony.G1) error {
	_, err := parseG1("G1", points)
	return err
}

// ValidateG2 checks that every point decodes to a curve point in the correct
// prime-order subgroup.
func (Engine) ValidateG2(points []ceremony.G2) error {
	_, err := parseG2("G2", points)
	return err
}

// VerifyPubkey checks e(tau, g2) == e(prev, pubkey): the new running product
// is the previous one scaled by the secret committed in the pot pubkey.
func (Engine) VerifyPubkey(tau, prev ceremony.G1, pubkey ceremony.G2) error {
	tauPt, err := parseOneG1("G1", tau)
	if err != nil {
		return err
	}
	prevPt, err := parseOneG1("G1", prev)
	if err != nil {
		return err
	}
	pubPt, err := parseOneG2("pubkey", pubkey)
	if err != nil {
		return err
	}

	var negPrev bls12381.G1Affine
	negPrev.Neg(&prevPt)
	ok, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{tauPt, negPrev},
		[]bls12381.G2Affine{g2Gen, pubPt},
	)
	if err != nil {
		return fmt.Errorf("pairing check failed: %v", err)
	}
	if !ok {
		return ceremony.ErrPubkeyPairing
	}
	return nil
}

// VerifyG1 checks that powers form a geometric progression under the secret
// committed in tau. The per-index equations e(powers[i+1], g2) ==
// e(powers[i], tau) are collapsed into one pairing check with random scalars.
func (Engine) VerifyG1(powers []ceremony.G1, tau ceremony.G2) error {
	pts, err := parseG1("G1", powers)
	if err != nil {
		return err
	}
	tauPt, err := parseOneG2("G2", tau)
	if err != nil {
		return err
	}

	scalars, err := randomScalars(len(pts) - 1)
	if err != nil {
		return err
	}
	var lo, hi bls12381.G1Affine
	if _, err := lo.MultiExp(pts[:len(pts)-1], scalars, ecc.MultiExpConfig{}); err != nil {
		return fmt.Errorf("multiexp failed: %v", err)
	}
	if _, err := hi.MultiExp(pts[1:], scalars, ecc.MultiExpConfig{}); err != nil {
		return fmt.Errorf("multiexp failed: %v", err)
	}

	lo.Neg(&lo)
	ok, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{hi, lo},
		[]bls12381.G2Affine{g2Gen, tauPt},
	)
	if err != nil {
		return fmt.Errorf("pairing check failed: %v", err)
	}
	if !ok {
		return ceremony.ErrG1Pairing
	}
	return nil
}

// VerifyG2 checks that g1 and g2 commit to the same powers of the secret:
// e(g1[i], g2_generator) == e(g1_generator, g2[i]), batched with random
// scalars. Both slices must have the same length.
func (Engine) VerifyG2(g1 []ceremony.G1, g2 []ceremony.G2) error {
	g1Pts, err := parseG1("G1", g1)
	if err != nil {
		return err
	}
	g2Pts, err := parseG2("G2", g2)
	if err != nil {
		return err
	}
	if len(g1Pts) != len(g2Pts) {
		return &ceremony.PowersLengthError{Group: "G1", Expected: len(g2Pts), Actual: len(g1Pts)}
	}

	scalars, err := randomScalars(len(g1Pts))
	if err != nil {
		return err
	}
	var lhs bls12381.G1Affine
	if _, err := lhs.MultiExp(g1Pts, scalars, ecc.MultiExpConfig{}); err != nil {
		return fmt.Errorf("multiexp failed: %v", err)
	}
	var rhs bls12381.G2Affine
	if _, err := rhs.MultiExp(g2Pts, scalars, ecc.MultiExpConfig{}); err != nil {
		return fmt.Errorf("multiexp failed: %v", err)
	}

	var negG1Gen bls12381.G1Affine
	negG1Gen.Neg(&g1Gen)
	ok, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{lhs, negG1Gen},
		[]bls12381.G2Affine{g2Gen, rhs},
	)
	if err != nil {
		return fmt.Errorf("pairing check failed: %v", err)
	}
	if !ok {
		return ceremony.ErrG2Pairing
	}
	return nil
}

// randomScalars draws n uniform field elements for linear-combination
// batching.
func randomScalars(n int) ([]fr.Element, error) {
	scalars := make([]fr.Element, n)
	for i := range scalars {
		if _, err := scalars[i].SetRandom(); err != nil {
			return nil, fmt.Errorf("sampling batch scalar: %v", err)
		}
	}
	return scalars, nil
}

func parseG1(group string, points []ceremony.G1) ([]bls12381.G1Affine, error) {
	out := make([]bls12381.G1Affine, len(points))
	for i, p := range points {
		if _, err := out[i].SetBytes(p[:]); err != nil {
			return nil, &ceremony.InvalidPointError{Group: group, Index: i, Err: err}
		}
		if !out[i].IsInSubGroup() {
			return nil, &ceremony.InvalidPointError{
				Group: group, Index: i, Err: fmt.Errorf("not in prime-order subgroup"),
			}
		}
	}
	return out, nil
}

func parseG2(group string, points []ceremony.G2) ([]bls12381.G2Affine, error) {
	out := make([]bls12381.G2Affine, len(points))
	for i, p := range points {
		if _, err := out[i].SetBytes(p[:]); err != nil {
			return nil, &ceremony.InvalidPointError{Group: group, Index: i, Err: err}
		}
		if !out[i].IsInSubGroup() {
			return nil, &ceremony.InvalidPointError{
				Group: group, Index: i, Err: fmt.Errorf("not in prime-order subgroup"),
			}
		}
	}
	return out, nil
}

func parseOneG1(group string, p ceremony.G1) (bls12381.G1Affine, error) {
	pts, err := parseG1(group, []ceremony.G1{p})
	if err != nil {
		return bls12381.G1Affine{}, err
	}
	return pts[0], nil
}

func parseOneG2(group string, p ceremony.G2) (bls12381.G2Affine, error) {
	pts, err := parseG2(group, []ceremony.G2{p})
	if err != nil {
		return bls12381.G2Affine{}, err
	}
	return pts[0], nil
}
