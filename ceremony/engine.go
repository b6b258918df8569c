package ceremony

// Engine is the pairing-curve capability the protocol verifies contributions
// with. Implementations must be stateless and safe for concurrent use; every
// method operates on public data only.
//
// Validation methods return an *InvalidPointError for the first point that
// fails to decode into the prime-order subgroup. The pairing methods return
// the corresponding Err*Pairing value on inequality.
type Engine interface {
	// ValidateG1 checks that every point decodes to a curve point in the
	// correct subgroup.
	ValidateG1(points []G1) error

	// ValidateG2 checks that every point decodes to a curve point in the
	// correct subgroup.
	ValidateG2(points []G2) error

	// VerifyPubkey checks that tau is prev scaled by the same secret that
	// produces pubkey from the G2 generator:
	// e(tau, g2) == e(prev, pubkey).
	VerifyPubkey(tau G1, prev G1, pubkey G2) error

	// VerifyG1 checks that powers is a geometric progression under the
	// secret committed in tau: e(powers[i+1], g2) == e(powers[i], tau)
	// for all i.
	VerifyG1(powers []G1, tau G2) error

	// VerifyG2 checks that the two power vectors commit to the same
	// secret: e(g1[i], g2) == e(g1_generator, g2[i]) for all i. The g1
	// slice must have the same length as g2.
	VerifyG2(g1 []G1, g2 []G2) error
}
