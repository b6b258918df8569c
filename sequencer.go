// Package sequencer coordinates a powers-of-tau trusted-setup ceremony: it
// admits participants through the lobby, verifies submitted contributions
// against the current transcripts, appends accepted contributions atomically,
// and persists the result.
package sequencer

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/sha3"

	"github.com/zkceremony/sequencer/ceremony"
	"github.com/zkceremony/sequencer/lobby"
)

// Coordinator-level errors. Verification rejections and admission errors pass
// through from the ceremony and lobby packages unchanged.
var (
	// ErrAlreadyContributed rejects a lobby entry from an identity that
	// already contributed, unless multi-contribution is enabled.
	ErrAlreadyContributed = errors.New("identity has already contributed")

	// ErrPersistFailed reports that an accepted contribution could not be
	// saved. The in-memory transcript retains the contribution; Persist
	// may be retried without redoing verification.
	ErrPersistFailed = errors.New("transcript persistence failed")
)

// Store is the durable storage capability for the batch document.
type Store interface {
	LoadOrCreate(sizes []ceremony.ShardSize) (*ceremony.Batch, error)
	Save(b *ceremony.Batch) error
}

// SignatureVerifier checks a BLS signature over an identity string against a
// pot pubkey. It is consumed as an opaque capability; the concrete curve
// implementation lives behind it.
type SignatureVerifier func(pubkey ceremony.G2, identity string, sig ceremony.Signature) (bool, error)

// Options configures the coordinator.
type Options struct {
	// Sizes lists the shard sizes of the ceremony.
	Sizes []ceremony.ShardSize
	// MultiContribution allows an identity to contribute more than once.
	MultiContribution bool
	// VerifySignature, when set, checks the BLS signature of an accepted
	// contribution against the contributor's identity. An invalid
	// signature is discarded and logged, never a rejection cause.
	VerifySignature SignatureVerifier
}

// shard pairs one transcript with its locks and counter. The RWMutex guards
// the transcript (readers: status and serialization; writer: Add); the
// counter gives cheap status polling without the read lock.
type shard struct {
	mu           sync.RWMutex
	transcript   *ceremony.Transcript
	participants atomic.Int64
}

// Sequencer is the ceremony coordinator.
type Sequencer struct {
	engine ceremony.Engine
	store  Store
	lobby  *lobby.Lobby
	opts   Options
	log    zerolog.Logger

	shards []*shard

	// idMu guards the contributed set and the participantIds slice of the
	// batch document.
	idMu        sync.Mutex
	contributed map[string]struct{}
	ids         []string

	// saveMu serializes persistence so renames cannot interleave.
	saveMu sync.Mutex
}

// New loads (or creates) the ceremony transcripts and returns a coordinator
// using the given verification engine and lobby.
func New(engine ceremony.Engine, store Store, lb *lobby.Lobby, opts Options,
	log zerolog.Logger) (*Sequencer, error) {

	batch, err := store.LoadOrCreate(opts.Sizes)
	if err != nil {
		return nil, fmt.Errorf("error loading transcript: %v", err)
	}

	s := &Sequencer{
		engine:      engine,
		store:       store,
		lobby:       lb,
		opts:        opts,
		log:         log,
		contributed: make(map[string]struct{}),
		ids:         batch.ParticipantIDs,
	}
	for _, t := range batch.Transcripts {
		sh := &shard{transcript: t}
		sh.participants.Store(int64(t.NumParticipants()))
		s.shards = append(s.shards, sh)
	}
	for _, id := range batch.ParticipantIDs {
		s.contributed[id] = struct{}{}
	}
	return s, nil
}

// NumShards returns the number of ceremony shards.
func (s *Sequencer) NumShards() int { return len(s.shards) }

// Join enters a verified identity into the lobby for a shard. Identities that
// already contributed are refused unless multi-contribution is enabled.
func (s *Sequencer) Join(identity string, shardIdx int) (*lobby.Session, error) {
	if !s.opts.MultiContribution {
		s.idMu.Lock()
		_, done := s.contributed[identity]
		s.idMu.Unlock()
		if done {
			return nil, ErrAlreadyContributed
		}
	}
	sess, err := s.lobby.Join(identity, shardIdx)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("session", sess.ID).Int("shard", shardIdx).Msg("participant joined lobby")
	return sess, nil
}

// TryContribute checks a session in. If the session holds its shard's slot it
// returns the contribution template built from the current powers; otherwise
// it returns the session's queue position.
func (s *Sequencer) TryContribute(sessionID string) (*ceremony.Contribution, int, error) {
	active, position, err := s.lobby.Checkin(sessionID)
	if err != nil {
		return nil, 0, err
	}
	if !active {
		return nil, position, nil
	}
	sess, err := s.lobby.Active(sessionID)
	if err != nil {
		return nil, 0, err
	}
	sh := s.shards[sess.Shard]
	sh.mu.RLock()
	c := sh.transcript.Contribution()
	sh.mu.RUnlock()
	return c, 0, nil
}

// Receipt acknowledges an accepted contribution.
type Receipt struct {
	Identity  string      `json:"identity"`
	Shard     int         `json:"shard"`
	Product   ceremony.G1 `json:"witness"`
	PotPubkey ceremony.G2 `json:"potPubkey"`
	Digest    string      `json:"digest"`
}

// Contribute runs one contribution cycle for the session holding a shard's
// slot: verify against the current transcript, and on acceptance append
// atomically, release the slot as completed, and persist. On rejection the
// slot is released as failed and the transcript is untouched.
func (s *Sequencer) Contribute(sessionID string, c *ceremony.Contribution) (*Receipt, error) {
	// Begin consumes the slot: a second submission for the same session is
	// refused here, so no two contributions can be verified against the
	// same powers and both accepted.
	sess, err := s.lobby.Begin(sessionID)
	if err != nil {
		return nil, err
	}
	sh := s.shards[sess.Shard]

	// Verification is pure and runs under the read lock only; the consumed
	// slot means no competing writer exists for this shard until Complete
	// or Fail releases it.
	sh.mu.RLock()
	verifyErr := sh.transcript.Verify(s.engine, c)
	sh.mu.RUnlock()
	if verifyErr != nil {
		if err := s.lobby.Fail(sessionID); err != nil {
			s.log.Error().Err(err).Str("session", sessionID).Msg("failed to release slot")
		}
		s.log.Info().Err(verifyErr).Str("session", sessionID).Int("shard", sess.Shard).
			Msg("contribution rejected")
		return nil, verifyErr
	}

	s.checkSignature(sess.Identity, c)

	sh.mu.Lock()
	sh.transcript.Add(c)
	product := sh.transcript.Witness.Products[len(sh.transcript.Witness.Products)-1]
	sh.mu.Unlock()
	sh.participants.Add(1)

	s.idMu.Lock()
	s.contributed[sess.Identity] = struct{}{}
	s.ids = append(s.ids, sess.Identity)
	s.idMu.Unlock()

	if err := s.lobby.Complete(sessionID); err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("failed to release slot")
	}
	s.log.Info().Str("session", sessionID).Int("shard", sess.Shard).
		Msg("contribution accepted")

	receipt := &Receipt{
		Identity:  sess.Identity,
		Shard:     sess.Shard,
		Product:   product,
		PotPubkey: c.PotPubkey,
	}
	receipt.Digest = receiptDigest(receipt)

	if err := s.Persist(); err != nil {
		s.log.Error().Err(err).Msg("persisting transcript")
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return receipt, nil
}

// checkSignature verifies a present BLS signature against the contributor's
// identity and strips it when invalid. Missing or invalid signatures never
// reject a contribution.
func (s *Sequencer) checkSignature(identity string, c *ceremony.Contribution) {
	if s.opts.VerifySignature == nil || len(c.BlsSignature) == 0 {
		return
	}
	ok, err := s.opts.VerifySignature(c.PotPubkey, identity, c.BlsSignature)
	if err != nil || !ok {
		s.log.Warn().Err(err).Str("identity", identity).
			Msg("discarding invalid contribution signature")
		c.BlsSignature = nil
	}
}

// Abort releases the session's slot (or queue place) without touching any
// transcript.
func (s *Sequencer) Abort(sessionID string) error {
	return s.lobby.Abort(sessionID)
}

// Persist snapshots the batch document and writes it to the store. It may be
// called again after a persistence failure; verification is never redone.
func (s *Sequencer) Persist() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.store.Save(s.snapshot())
}

// snapshot deep-copies the batch under the shard read locks so persistence
// I/O runs without holding any transcript lock.
func (s *Sequencer) snapshot() *ceremony.Batch {
	b := &ceremony.Batch{Transcripts: make([]*ceremony.Transcript, len(s.shards))}
	for i, sh := range s.shards {
		sh.mu.RLock()
		b.Transcripts[i] = sh.transcript.Clone()
		sh.mu.RUnlock()
	}
	s.idMu.Lock()
	b.ParticipantIDs = append([]string(nil), s.ids...)
	s.idMu.Unlock()
	return b
}

// ShardStatus is the externally visible progress of one shard.
type ShardStatus struct {
	NumG1Powers  int   `json:"numG1Powers"`
	NumG2Powers  int   `json:"numG2Powers"`
	Participants int64 `json:"participants"`
	HasEntropy   bool  `json:"hasEntropy"`
}

// Status reports per-shard progress from the atomic counters, without taking
// any transcript lock.
func (s *Sequencer) Status() []ShardStatus {
	out := make([]ShardStatus, len(s.shards))
	for i, sh := range s.shards {
		n := sh.participants.Load()
		out[i] = ShardStatus{
			NumG1Powers:  s.opts.Sizes[i].NumG1,
			NumG2Powers:  s.opts.Sizes[i].NumG2,
			Participants: n,
			HasEntropy:   n > 0,
		}
	}
	return out
}

// TranscriptJSON serializes the current batch document.
func (s *Sequencer) TranscriptJSON() ([]byte, error) {
	data, err := json.Marshal(s.snapshot())
	if err != nil {
		return nil, fmt.Errorf("error encoding transcript: %v", err)
	}
	return data, nil
}

// receiptDigest hashes the receipt fields with the variable-length identity
// length-prefixed, so no two distinct receipts serialize to the same input.
func receiptDigest(r *Receipt) string {
	h := sha3.New256()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(r.Identity)))
	h.Write(buf[:])
	h.Write([]byte(r.Identity))
	binary.BigEndian.PutUint64(buf[:], uint64(r.Shard))
	h.Write(buf[:])
	h.Write(r.Product[:])
	h.Write(r.PotPubkey[:])
	return fmt.Sprintf("0x%x", h.Sum(nil))
}
