package ceremony_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/zkceremony/sequencer/ceremony"
	"github.com/zkceremony/sequencer/testutils"
)

func TestNewTranscript(t *testing.T) {
	for _, sizes := range [][2]int{{2, 2}, {4, 2}, {65, 65}, {4096, 65}} {
		tr := ceremony.NewTranscript(sizes[0], sizes[1])
		if got := tr.NumParticipants(); got != 0 {
			t.Errorf("NewTranscript(%d, %d).NumParticipants() = %d, want 0",
				sizes[0], sizes[1], got)
		}
		if tr.HasEntropy() {
			t.Errorf("NewTranscript(%d, %d).HasEntropy() = true, want false",
				sizes[0], sizes[1])
		}
		if len(tr.Powers.G1) != sizes[0] || len(tr.Powers.G2) != sizes[1] {
			t.Errorf("powers have sizes (%d, %d), want (%d, %d)",
				len(tr.Powers.G1), len(tr.Powers.G2), sizes[0], sizes[1])
		}
		for i, p := range tr.Powers.G1 {
			if p != ceremony.G1Generator() {
				t.Errorf("fresh g1[%d] is not the generator", i)
			}
		}
		for i, p := range tr.Powers.G2 {
			if p != ceremony.G2Generator() {
				t.Errorf("fresh g2[%d] is not the generator", i)
			}
		}
		w := tr.Witness
		if len(w.Products) != 1 || len(w.Pubkeys) != 1 || len(w.Signatures) != 1 {
			t.Errorf("fresh witness lengths (%d, %d, %d), want (1, 1, 1)",
				len(w.Products), len(w.Pubkeys), len(w.Signatures))
		}
		if w.Products[0] != ceremony.G1Generator() || w.Pubkeys[0] != ceremony.G2Generator() {
			t.Errorf("witness sentinel entries are not generators")
		}
		if len(w.Signatures[0]) != 0 {
			t.Errorf("witness sentinel signature is not empty")
		}
	}
}

func TestNewTranscriptPanicsOnInvalidSizes(t *testing.T) {
	for _, sizes := range [][2]int{{1, 1}, {1, 2}, {2, 1}, {2, 3}, {0, 0}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("NewTranscript(%d, %d) did not panic", sizes[0], sizes[1])
				}
			}()
			ceremony.NewTranscript(sizes[0], sizes[1])
		}()
	}
}

func TestTranscriptJSON(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	data, err := json.Marshal(tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g1 := ceremony.G1Generator().String()
	g2 := ceremony.G2Generator().String()
	expected := `{
		"numG1Powers": 4,
		"numG2Powers": 2,
		"powersOfTau": {
			"G1Powers": ["` + g1 + `", "` + g1 + `", "` + g1 + `", "` + g1 + `"],
			"G2Powers": ["` + g2 + `", "` + g2 + `"]
		},
		"witness": {
			"runningProducts": ["` + g1 + `"],
			"potPubkeys": ["` + g2 + `"],
			"blsSignatures": [""]
		}
	}`
	var got, want any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := json.Unmarshal([]byte(expected), &want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("transcript JSON mismatch:\ngot  %s\nwant %s", data, expected)
	}

	var back ceremony.Transcript
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(&back, tr) {
		t.Errorf("round-tripped transcript differs from original")
	}
}

func TestTranscriptJSONRejectsMalformed(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
	}{
		{"size mismatch", `{"numG1Powers":3,"numG2Powers":2,
			"powersOfTau":{"G1Powers":[],"G2Powers":[]},
			"witness":{"runningProducts":[],"potPubkeys":[],"blsSignatures":[]}}`},
		{"unequal witness", `{"numG1Powers":0,"numG2Powers":0,
			"powersOfTau":{"G1Powers":[],"G2Powers":[]},
			"witness":{"runningProducts":[],"potPubkeys":[],"blsSignatures":[""]}}`},
		{"missing sentinel", `{"numG1Powers":0,"numG2Powers":0,
			"powersOfTau":{"G1Powers":[],"G2Powers":[]},
			"witness":{"runningProducts":[],"potPubkeys":[],"blsSignatures":[]}}`},
	} {
		var tr ceremony.Transcript
		if err := json.Unmarshal([]byte(tc.doc), &tr); err == nil {
			t.Errorf("%s: expected error, got none", tc.name)
		}
	}
}

func TestContributionTemplateIsACopy(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	c := tr.Contribution()
	if c.PotPubkey != ceremony.G2Generator() {
		t.Errorf("template pot pubkey is not the generator")
	}
	if len(c.BlsSignature) != 0 {
		t.Errorf("template signature is not empty")
	}
	c.Powers.G1[1] = ceremony.G1Identity()
	if tr.Powers.G1[1] != ceremony.G1Generator() {
		t.Errorf("mutating the template mutated the transcript")
	}
}

func TestVerifyChecksRunInOrder(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	eng := &testutils.MockEngine{}
	// A template's pubkey is the generator, not the identity, so a mock
	// engine accepts it fully.
	if err := tr.Verify(eng, tr.Contribution()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"ValidateG1", "ValidateG2", "ValidateG2", "VerifyPubkey", "VerifyG1", "VerifyG2"}
	if !reflect.DeepEqual(eng.Calls, want) {
		t.Errorf("check order = %v, want %v", eng.Calls, want)
	}
}

func TestVerifyShapeMismatch(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	eng := &testutils.MockEngine{}

	c := tr.Contribution()
	c.Powers.G1 = c.Powers.G1[:3]
	var lenErr *ceremony.PowersLengthError
	err := tr.Verify(eng, c)
	if !errors.As(err, &lenErr) {
		t.Fatalf("expected PowersLengthError, got %v", err)
	}
	if lenErr.Group != "G1" || lenErr.Expected != 4 || lenErr.Actual != 3 {
		t.Errorf("unexpected length error: %+v", lenErr)
	}
	if len(eng.Calls) != 0 {
		t.Errorf("shape mismatch must reject before any engine call, got %v", eng.Calls)
	}

	c = tr.Contribution()
	c.Powers.G2 = append(c.Powers.G2, ceremony.G2Generator())
	err = tr.Verify(eng, c)
	if !errors.As(err, &lenErr) || lenErr.Group != "G2" {
		t.Fatalf("expected G2 PowersLengthError, got %v", err)
	}
}

func TestVerifyShortCircuits(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	boom := errors.New("boom")

	eng := &testutils.MockEngine{ValidateG1Err: boom}
	if err := tr.Verify(eng, tr.Contribution()); !errors.Is(err, boom) {
		t.Errorf("expected validation error, got %v", err)
	}
	if !reflect.DeepEqual(eng.Calls, []string{"ValidateG1"}) {
		t.Errorf("expected short circuit after ValidateG1, got %v", eng.Calls)
	}

	eng = &testutils.MockEngine{PubkeyErr: ceremony.ErrPubkeyPairing}
	if err := tr.Verify(eng, tr.Contribution()); !errors.Is(err, ceremony.ErrPubkeyPairing) {
		t.Errorf("expected pubkey pairing error, got %v", err)
	}
	if !reflect.DeepEqual(eng.Calls,
		[]string{"ValidateG1", "ValidateG2", "ValidateG2", "VerifyPubkey"}) {
		t.Errorf("expected short circuit after VerifyPubkey, got %v", eng.Calls)
	}
}

func TestVerifyRejectsZeroPubkey(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	eng := &testutils.MockEngine{}
	c := tr.Contribution()
	c.PotPubkey = ceremony.G2Identity()
	if err := tr.Verify(eng, c); !errors.Is(err, ceremony.ErrZeroPubkey) {
		t.Errorf("expected ErrZeroPubkey, got %v", err)
	}
	// The zero check runs after validation, before any pairing.
	if !reflect.DeepEqual(eng.Calls, []string{"ValidateG1", "ValidateG2", "ValidateG2"}) {
		t.Errorf("unexpected calls before zero-pubkey rejection: %v", eng.Calls)
	}
}

func TestAddGrowsWitness(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	c := tr.Contribution()
	c.Powers.G1[1] = ceremony.G1Identity() // stands in for a new running product
	c.PotPubkey = ceremony.G2Identity()
	c.BlsSignature = ceremony.Signature{1, 2, 3}

	before := tr.NumParticipants()
	tr.Add(c)

	if got := tr.NumParticipants(); got != before+1 {
		t.Errorf("NumParticipants() = %d, want %d", got, before+1)
	}
	w := tr.Witness
	if len(w.Products) != len(w.Pubkeys) || len(w.Products) != len(w.Signatures) {
		t.Errorf("witness lengths diverged: (%d, %d, %d)",
			len(w.Products), len(w.Pubkeys), len(w.Signatures))
	}
	if w.Products[1] != c.Powers.G1[1] {
		t.Errorf("running product is not the contribution's g1[1]")
	}
	if w.Pubkeys[1] != c.PotPubkey {
		t.Errorf("witness pubkey is not the contribution's pot pubkey")
	}
	if tr.Powers.G1[1] != c.Powers.G1[1] {
		t.Errorf("transcript powers were not replaced by the contribution's")
	}
	if !tr.HasEntropy() {
		t.Errorf("HasEntropy() = false after a contribution")
	}
}

func TestCloneIsDeep(t *testing.T) {
	tr := ceremony.NewTranscript(4, 2)
	c := tr.Clone()
	c.Powers.G1[0] = ceremony.G1Identity()
	c.Witness.Products[0] = ceremony.G1Identity()
	if tr.Powers.G1[0] != ceremony.G1Generator() || tr.Witness.Products[0] != ceremony.G1Generator() {
		t.Errorf("mutating a clone mutated the original")
	}
}
