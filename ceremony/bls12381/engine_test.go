package bls12381_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkceremony/sequencer/ceremony"
	"github.com/zkceremony/sequencer/ceremony/bls12381"
	"github.com/zkceremony/sequencer/testutils"
)

func TestValidContributionAccepted(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	c := testutils.ValidContribution(tr, 1, "eth|0x1234")

	require.NoError(t, tr.Verify(bls12381.Engine{}, c))
	require.NotEqual(t, ceremony.G1Generator(), c.Powers.G1[1],
		"contribution must move the running product off the generator")
	require.NotEqual(t, ceremony.G2Generator(), c.PotPubkey)
}

func TestSuccessiveContributionsAccepted(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	eng := bls12381.Engine{}

	c1 := testutils.ValidContribution(tr, 1, "")
	require.NoError(t, tr.Verify(eng, c1))
	tr.Add(c1)

	c2 := testutils.ValidContribution(tr, 2, "")
	require.NoError(t, tr.Verify(eng, c2))
	tr.Add(c2)

	require.Equal(t, 2, tr.NumParticipants())

	// A candidate built against the pre-c2 powers no longer verifies.
	stale := testutils.ValidContribution(ceremony.NewTranscript(4, 2), 3, "")
	err := tr.Verify(eng, stale)
	require.ErrorIs(t, err, ceremony.ErrPubkeyPairing)
}

func TestTamperedRunningProductRejected(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	c := testutils.ValidContribution(tr, 1, "")
	c.Powers.G1[1] = ceremony.G1Generator()

	err := tr.Verify(bls12381.Engine{}, c)
	require.ErrorIs(t, err, ceremony.ErrPubkeyPairing)
}

func TestInconsistentG1PowersRejected(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	c := testutils.ValidContribution(tr, 1, "")
	// Swap two higher powers: the knowledge-of-exponent check still holds
	// but the progression does not.
	c.Powers.G1[2], c.Powers.G1[3] = c.Powers.G1[3], c.Powers.G1[2]

	err := tr.Verify(bls12381.Engine{}, c)
	require.ErrorIs(t, err, ceremony.ErrG1Pairing)
}

func TestMismatchedG2PowersRejected(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	c := testutils.ValidContribution(tr, 1, "")
	// g2[0] must pair with g1[0]; replacing it with another valid point
	// breaks only the cross check.
	c.Powers.G2[0] = c.PotPubkey

	err := tr.Verify(bls12381.Engine{}, c)
	require.ErrorIs(t, err, ceremony.ErrG2Pairing)
}

func TestZeroPubkeyRejected(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	c := testutils.InvalidContribution(tr, 1)

	err := tr.Verify(bls12381.Engine{}, c)
	require.ErrorIs(t, err, ceremony.ErrZeroPubkey)
}

func TestMalformedPointRejected(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	c := testutils.ValidContribution(tr, 1, "")
	c.Powers.G1[2] = ceremony.G1{} // all-zero bytes are not a valid encoding

	var pointErr *ceremony.InvalidPointError
	err := tr.Verify(bls12381.Engine{}, c)
	require.ErrorAs(t, err, &pointErr)
	require.Equal(t, "G1", pointErr.Group)
	require.Equal(t, 2, pointErr.Index)
}

func TestIdentitySignature(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	c := testutils.ValidContribution(tr, 1, "git|123|alice")
	require.NotEmpty(t, c.BlsSignature)

	ok, err := bls12381.VerifySignature(c.PotPubkey, "git|123|alice", c.BlsSignature)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = bls12381.VerifySignature(c.PotPubkey, "git|456|mallory", c.BlsSignature)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = bls12381.VerifySignature(c.PotPubkey, "git|123|alice", nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAddEntropyIsDeterministic(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	c1 := testutils.ValidContribution(tr, 7, "")
	c2 := testutils.ValidContribution(tr, 7, "")
	require.Equal(t, c1.Powers, c2.Powers)
	require.Equal(t, c1.PotPubkey, c2.PotPubkey)

	c3 := testutils.ValidContribution(tr, 8, "")
	require.NotEqual(t, c1.PotPubkey, c3.PotPubkey)
}

func TestEngineRejectsIdentityInPowers(t *testing.T) {
	// The identity element is a valid subgroup member; it must pass
	// validation and fail the pairing checks instead.
	tr := ceremony.NewTranscript(4, 2)
	c := testutils.ValidContribution(tr, 1, "")
	c.Powers.G1[3] = ceremony.G1Identity()

	err := tr.Verify(bls12381.Engine{}, c)
	require.Error(t, err)
	require.False(t, errors.As(err, new(*ceremony.InvalidPointError)))
}
