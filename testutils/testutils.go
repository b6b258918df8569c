// Package testutils contains helpers shared by the package tests: a mock
// verification engine with scriptable failures and builders for valid and
// corrupted contributions.
package testutils

import (
	"github.com/zkceremony/sequencer/ceremony"
	"github.com/zkceremony/sequencer/ceremony/bls12381"
)

// MockEngine implements ceremony.Engine without any curve arithmetic. Every
// check passes unless the corresponding error field is set, and Calls records
// the order checks ran in.
type MockEngine struct {
	ValidateG1Err error
	ValidateG2Err error
	PubkeyErr     error
	G1Err         error
	G2Err         error

	Calls []string
}

func (m *MockEngine) ValidateG1(points []ceremony.G1) error {
	m.Calls = append(m.Calls, "ValidateG1")
	return m.ValidateG1Err
}

func (m *MockEngine) ValidateG2(points []ceremony.G2) error {
	m.Calls = append(m.Calls, "ValidateG2")
	return m.ValidateG2Err
}

func (m *MockEngine) VerifyPubkey(tau, prev ceremony.G1, pubkey ceremony.G2) error {
	m.Calls = append(m.Calls, "VerifyPubkey")
	return m.PubkeyErr
}

func (m *MockEngine) VerifyG1(powers []ceremony.G1, tau ceremony.G2) error {
	m.Calls = append(m.Calls, "VerifyG1")
	return m.G1Err
}

func (m *MockEngine) VerifyG2(g1 []ceremony.G1, g2 []ceremony.G2) error {
	m.Calls = append(m.Calls, "VerifyG2")
	return m.G2Err
}

// Entropy returns a deterministic 32-byte entropy block.
func Entropy(no byte) [32]byte {
	var e [32]byte
	for i := range e {
		e[i] = no
	}
	return e
}

// ValidContribution builds a contribution from deterministic entropy against
// the transcript's current powers. It panics on failure; test inputs are
// always well-formed.
func ValidContribution(t *ceremony.Transcript, no byte, identity string) *ceremony.Contribution {
	c := t.Contribution()
	if err := bls12381.AddEntropy(c, Entropy(no), identity); err != nil {
		panic(err)
	}
	return c
}

// InvalidContribution builds a valid contribution and then zeroes its pot
// pubkey, which must always be rejected.
func InvalidContribution(t *ceremony.Transcript, no byte) *ceremony.Contribution {
	c := ValidContribution(t, no, "")
	c.PotPubkey = ceremony.G2Identity()
	return c
}
