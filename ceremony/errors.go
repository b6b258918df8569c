package ceremony

import (
	"errors"
	"fmt"
)

// Rejection reasons produced by Transcript.Verify and the Engine. Each failing
// check maps to a distinct value so callers can tell a malformed submission
// from a cryptographically unsound one.
var (
	// ErrZeroPubkey rejects a contribution whose pot pubkey is the group
	// identity: it would add no entropy.
	ErrZeroPubkey = errors.New("pot pubkey is the identity element")

	// ErrPubkeyPairing rejects a contribution whose updated running product
	// is not the prior product scaled by the secret committed in the pot
	// pubkey.
	ErrPubkeyPairing = errors.New("pot pubkey does not match the g1 update")

	// ErrG1Pairing rejects a contribution whose g1 powers are not a
	// consistent geometric progression under its own g2[1].
	ErrG1Pairing = errors.New("g1 powers are not consistent powers of tau")

	// ErrG2Pairing rejects a contribution whose g2 powers do not commit to
	// the same tau as its g1 powers.
	ErrG2Pairing = errors.New("g2 powers do not match g1 powers")
)

// PowersLengthError rejects a contribution whose power vectors do not match
// the shard sizes.
type PowersLengthError struct {
	Group    string // "G1" or "G2"
	Expected int
	Actual   int
}

func (e *PowersLengthError) Error() string {
	return fmt.Sprintf("expected %d %s powers, got %d", e.Expected, e.Group, e.Actual)
}

// InvalidPointError rejects a contribution containing a point that does not
// decode to an element of the prime-order subgroup.
type InvalidPointError struct {
	Group string // "G1", "G2" or "pubkey"
	Index int
	Err   error
}

func (e *InvalidPointError) Error() string {
	return fmt.Sprintf("invalid %s point at index %d: %v", e.Group, e.Index, e.Err)
}

func (e *InvalidPointError) Unwrap() error { return e.Err }
