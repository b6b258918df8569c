package ceremony

import "encoding/json"

// Contribution is one participant's proposed update to a shard's Powers,
// together with the commitment to the secret used (the pot pubkey) and an
// optional BLS signature over the participant's identity. A Contribution is
// transient: it is consumed into the Transcript on acceptance and dropped on
// rejection.
type Contribution struct {
	Powers       Powers
	PotPubkey    G2
	BlsSignature Signature
}

// contributionJSON maps the internal fields onto the published schema.
type contributionJSON struct {
	NumG1Powers  int        `json:"numG1Powers"`
	NumG2Powers  int        `json:"numG2Powers"`
	PowersOfTau  powersJSON `json:"powersOfTau"`
	PotPubkey    G2         `json:"potPubkey"`
	BlsSignature Signature  `json:"blsSignature"`
}

type powersJSON struct {
	G1Powers []G1 `json:"G1Powers"`
	G2Powers []G2 `json:"G2Powers"`
}

func (c Contribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(contributionJSON{
		NumG1Powers:  len(c.Powers.G1),
		NumG2Powers:  len(c.Powers.G2),
		PowersOfTau:  powersJSON{G1Powers: c.Powers.G1, G2Powers: c.Powers.G2},
		PotPubkey:    c.PotPubkey,
		BlsSignature: c.BlsSignature,
	})
}

func (c *Contribution) UnmarshalJSON(data []byte) error {
	var raw contributionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := checkDeclaredSizes(raw.NumG1Powers, raw.NumG2Powers, raw.PowersOfTau); err != nil {
		return err
	}
	c.Powers = Powers{G1: raw.PowersOfTau.G1Powers, G2: raw.PowersOfTau.G2Powers}
	c.PotPubkey = raw.PotPubkey
	c.BlsSignature = raw.BlsSignature
	return nil
}

func checkDeclaredSizes(numG1, numG2 int, p powersJSON) error {
	if numG1 != len(p.G1Powers) {
		return &PowersLengthError{Group: "G1", Expected: numG1, Actual: len(p.G1Powers)}
	}
	if numG2 != len(p.G2Powers) {
		return &PowersLengthError{Group: "G2", Expected: numG2, Actual: len(p.G2Powers)}
	}
	return nil
}
