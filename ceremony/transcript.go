package ceremony

import (
	"encoding/json"
	"fmt"
)

// Transcript is the append-only record of a ceremony shard: the current
// Powers plus a Witness entry per accepted contribution. It is the single
// source of truth for shard progress; only the coordinator mutates it.
type Transcript struct {
	Powers  Powers
	Witness Witness
}

// Witness is the per-step audit log. The three slices are parallel and one
// longer than the number of participants: index 0 holds the sentinel entries
// of the fresh transcript (generator product, generator pubkey, empty
// signature).
type Witness struct {
	Products   []G1
	Pubkeys    []G2
	Signatures []Signature
}

// NewTranscript creates the transcript of a fresh shard with numG1 G1 powers
// and numG2 G2 powers. It panics unless numG1 >= numG2 >= 2; sizes come from
// validated configuration and a violation is a programmer error.
func NewTranscript(numG1, numG2 int) *Transcript {
	if numG1 < 2 || numG2 < 2 || numG1 < numG2 {
		panic(fmt.Sprintf("ceremony: invalid shard sizes (%d, %d)", numG1, numG2))
	}
	return &Transcript{
		Powers: NewPowers(numG1, numG2),
		Witness: Witness{
			Products:   []G1{g1Generator},
			Pubkeys:    []G2{g2Generator},
			Signatures: []Signature{nil},
		},
	}
}

// NumParticipants returns the number of accepted contributions.
func (t *Transcript) NumParticipants() int {
	return len(t.Witness.Pubkeys) - 1
}

// HasEntropy reports whether at least one participant has contributed, i.e.
// whether the artifact is yet trustworthy.
func (t *Transcript) HasEntropy() bool {
	return t.NumParticipants() > 0
}

// Contribution returns the template a participant fills in with secret
// randomness: a copy of the current powers, a generator pot pubkey and an
// empty signature. The copy shares no state with the transcript, so a
// rejected candidate never touches shared data.
func (t *Transcript) Contribution() *Contribution {
	return &Contribution{
		Powers:    t.Powers.Clone(),
		PotPubkey: g2Generator,
	}
}

// Verify decides whether c correctly and exclusively extends the current
// powers by one multiplicative factor. Checks run in order and stop at the
// first failure: shape, point encoding and subgroup membership, pot pubkey
// non-triviality, the knowledge-of-exponent pairing binding the pubkey to the
// g1 update, internal consistency of the g1 powers, and cross consistency of
// g1 against g2.
func (t *Transcript) Verify(e Engine, c *Contribution) error {
	if len(t.Powers.G1) != len(c.Powers.G1) {
		return &PowersLengthError{
			Group:    "G1",
			Expected: len(t.Powers.G1),
			Actual:   len(c.Powers.G1),
		}
	}
	if len(t.Powers.G2) != len(c.Powers.G2) {
		return &PowersLengthError{
			Group:    "G2",
			Expected: len(t.Powers.G2),
			Actual:   len(c.Powers.G2),
		}
	}

	if err := e.ValidateG1(c.Powers.G1); err != nil {
		return err
	}
	if err := e.ValidateG2(c.Powers.G2); err != nil {
		return err
	}
	if err := e.ValidateG2([]G2{c.PotPubkey}); err != nil {
		return err
	}

	if c.PotPubkey.IsIdentity() {
		return ErrZeroPubkey
	}

	if err := e.VerifyPubkey(c.Powers.G1[1], t.Powers.G1[1], c.PotPubkey); err != nil {
		return err
	}
	if err := e.VerifyG1(c.Powers.G1, c.Powers.G2[1]); err != nil {
		return err
	}
	if err := e.VerifyG2(c.Powers.G1[:len(c.Powers.G2)], c.Powers.G2); err != nil {
		return err
	}

	return nil
}

// Add appends a verified contribution: the new running product, pot pubkey
// and signature extend the witness and the contribution's powers replace the
// transcript's. The contribution must already have passed Verify; Add
// performs no re-validation. Callers are responsible for excluding concurrent
// readers for the duration of the call.
func (t *Transcript) Add(c *Contribution) {
	t.Witness.Products = append(t.Witness.Products, c.Powers.G1[1])
	t.Witness.Pubkeys = append(t.Witness.Pubkeys, c.PotPubkey)
	t.Witness.Signatures = append(t.Witness.Signatures, c.BlsSignature)
	t.Powers = c.Powers
}

// Clone returns a deep copy sharing no storage with t, for snapshotting the
// transcript outside its lock.
func (t *Transcript) Clone() *Transcript {
	c := &Transcript{
		Powers: t.Powers.Clone(),
		Witness: Witness{
			Products:   make([]G1, len(t.Witness.Products)),
			Pubkeys:    make([]G2, len(t.Witness.Pubkeys)),
			Signatures: make([]Signature, len(t.Witness.Signatures)),
		},
	}
	copy(c.Witness.Products, t.Witness.Products)
	copy(c.Witness.Pubkeys, t.Witness.Pubkeys)
	for i, s := range t.Witness.Signatures {
		if s != nil {
			c.Witness.Signatures[i] = append(Signature(nil), s...)
		}
	}
	return c
}

// transcriptJSON and witnessJSON enumerate the mapping between internal field
// names and the persisted schema's names in one place.
type transcriptJSON struct {
	NumG1Powers int         `json:"numG1Powers"`
	NumG2Powers int         `json:"numG2Powers"`
	PowersOfTau powersJSON  `json:"powersOfTau"`
	Witness     witnessJSON `json:"witness"`
}

type witnessJSON struct {
	RunningProducts []G1        `json:"runningProducts"`
	PotPubkeys      []G2        `json:"potPubkeys"`
	BlsSignatures   []Signature `json:"blsSignatures"`
}

func (t Transcript) MarshalJSON() ([]byte, error) {
	return json.Marshal(transcriptJSON{
		NumG1Powers: len(t.Powers.G1),
		NumG2Powers: len(t.Powers.G2),
		PowersOfTau: powersJSON{G1Powers: t.Powers.G1, G2Powers: t.Powers.G2},
		Witness: witnessJSON{
			RunningProducts: t.Witness.Products,
			PotPubkeys:      t.Witness.Pubkeys,
			BlsSignatures:   t.Witness.Signatures,
		},
	})
}

func (t *Transcript) UnmarshalJSON(data []byte) error {
	var raw transcriptJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := checkDeclaredSizes(raw.NumG1Powers, raw.NumG2Powers, raw.PowersOfTau); err != nil {
		return err
	}
	w := raw.Witness
	if len(w.RunningProducts) != len(w.PotPubkeys) ||
		len(w.RunningProducts) != len(w.BlsSignatures) {
		return fmt.Errorf("witness sequences have unequal lengths (%d, %d, %d)",
			len(w.RunningProducts), len(w.PotPubkeys), len(w.BlsSignatures))
	}
	if len(w.RunningProducts) == 0 {
		return fmt.Errorf("witness is missing the sentinel entry")
	}
	t.Powers = Powers{G1: raw.PowersOfTau.G1Powers, G2: raw.PowersOfTau.G2Powers}
	t.Witness = Witness{
		Products:   w.RunningProducts,
		Pubkeys:    w.PotPubkeys,
		Signatures: w.BlsSignatures,
	}
	return nil
}
