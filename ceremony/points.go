package ceremony

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// G1 is a compressed G1 point. The encoding is opaque to this package;
// only the Engine interprets it.
type G1 [48]byte

// G2 is a compressed G2 point.
type G2 [96]byte

// Signature is a BLS signature over a contribution step, or empty.
// The empty value is the sentinel used for the zero-th witness entry.
type Signature []byte

// The compressed encodings of the BLS12-381 group generators and identity
// elements. The model layer needs them to build fresh transcripts and
// contribution templates; their algebraic meaning lives in the engine.
const (
	g1GeneratorHex = "97f1d3a73197d7942695638c4fa9ac0fc3688c4f9774b905a14e3a3f171bac586c55e83ff97a1aeffb3af00adb22c6bb"
	g2GeneratorHex = "93e02b6052719f607dacd3a088274f65596bd0d09920b61ab5da61bbdc7f5049334cf11213945d57e5ac7d055d042b7e024aa2b2f08f0a91260805272dc51051c6e47ad4fa403b02b4510b647ae3d1770bac0326a805bbefd48056c8c121bdb8"
)

var (
	g1Generator = mustG1(g1GeneratorHex)
	g2Generator = mustG2(g2GeneratorHex)
	g1Identity  = G1{0: 0xc0}
	g2Identity  = G2{0: 0xc0}
)

// G1Generator returns the compressed G1 generator.
func G1Generator() G1 { return g1Generator }

// G2Generator returns the compressed G2 generator.
func G2Generator() G2 { return g2Generator }

// G1Identity returns the compressed G1 point at infinity.
func G1Identity() G1 { return g1Identity }

// G2Identity returns the compressed G2 point at infinity.
func G2Identity() G2 { return g2Identity }

// IsIdentity reports whether p is the compressed point at infinity.
func (p G2) IsIdentity() bool { return p == g2Identity }

func mustG1(s string) G1 {
	var p G1
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(p) {
		panic("ceremony: bad G1 constant")
	}
	copy(p[:], b)
	return p
}

func mustG2(s string) G2 {
	var p G2
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(p) {
		panic("ceremony: bad G2 constant")
	}
	copy(p[:], b)
	return p
}

// String returns the 0x-prefixed hex encoding used by the transcript schema.
func (p G1) String() string { return "0x" + hex.EncodeToString(p[:]) }

func (p G2) String() string { return "0x" + hex.EncodeToString(p[:]) }

// String returns the 0x-prefixed hex encoding, or "" for the empty sentinel.
func (s Signature) String() string {
	if len(s) == 0 {
		return ""
	}
	return "0x" + hex.EncodeToString(s)
}

func (p G1) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

func (p *G1) UnmarshalJSON(data []byte) error {
	b, err := decodeHexJSON(data, len(*p), "G1")
	if err != nil {
		return err
	}
	copy(p[:], b)
	return nil
}

func (p G2) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

func (p *G2) UnmarshalJSON(data []byte) error {
	b, err := decodeHexJSON(data, len(*p), "G2")
	if err != nil {
		return err
	}
	copy(p[:], b)
	return nil
}

func (s Signature) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *Signature) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = nil
		return nil
	}
	if len(raw) < 2 || raw[:2] != "0x" {
		return fmt.Errorf("signature must be empty or 0x-prefixed hex")
	}
	b, err := hex.DecodeString(raw[2:])
	if err != nil {
		return fmt.Errorf("invalid signature hex: %v", err)
	}
	*s = b
	return nil
}

func decodeHexJSON(data []byte, size int, kind string) ([]byte, error) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) < 2 || raw[:2] != "0x" {
		return nil, fmt.Errorf("%s point must be 0x-prefixed hex", kind)
	}
	b, err := hex.DecodeString(raw[2:])
	if err != nil {
		return nil, fmt.Errorf("invalid %s point hex: %v", kind, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("%s point must be %d bytes, got %d", kind, size, len(b))
	}
	return b, nil
}
