package ceremony

// Powers holds the structured reference string of a ceremony shard: ordered
// vectors of G1 and G2 points where entry i commits to the i-th power of the
// accumulated secret. Index 0 is always the group generator.
type Powers struct {
	G1 []G1
	G2 []G2
}

// NewPowers returns all-generator powers of the given sizes, the state of a
// shard before any contribution.
func NewPowers(numG1, numG2 int) Powers {
	p := Powers{
		G1: make([]G1, numG1),
		G2: make([]G2, numG2),
	}
	for i := range p.G1 {
		p.G1[i] = g1Generator
	}
	for i := range p.G2 {
		p.G2[i] = g2Generator
	}
	return p
}

// Clone returns a deep copy that shares no backing storage with p.
func (p Powers) Clone() Powers {
	c := Powers{
		G1: make([]G1, len(p.G1)),
		G2: make([]G2, len(p.G2)),
	}
	copy(c.G1, p.G1)
	copy(c.G2, p.G2)
	return c
}
