package ceremony

// Batch is the persisted ceremony document: one transcript per shard plus the
// identities of everyone who contributed so far. Shards are fully independent
// (their sizes are fixed at creation and they never share state); the batch
// only groups them into a single durable artifact.
type Batch struct {
	ParticipantIDs []string      `json:"participantIds"`
	Transcripts    []*Transcript `json:"transcripts"`
}

// ShardSize is a shard's (numG1, numG2) configuration.
type ShardSize struct {
	NumG1 int
	NumG2 int
}

// NewBatch creates a batch of fresh transcripts, one per size. It panics on
// invalid sizes, like NewTranscript.
func NewBatch(sizes []ShardSize) *Batch {
	b := &Batch{Transcripts: make([]*Transcript, len(sizes))}
	for i, s := range sizes {
		b.Transcripts[i] = NewTranscript(s.NumG1, s.NumG2)
	}
	return b
}

// Sizes returns the shard sizes of the batch.
func (b *Batch) Sizes() []ShardSize {
	sizes := make([]ShardSize, len(b.Transcripts))
	for i, t := range b.Transcripts {
		sizes[i] = ShardSize{NumG1: len(t.Powers.G1), NumG2: len(t.Powers.G2)}
	}
	return sizes
}
