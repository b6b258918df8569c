// Package lobby provides admission control for ceremony shards: participants
// queue up per shard and at most one session per shard is active at a time.
// Idle sessions are evicted by a periodic sweep.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// State is a session's position in the admission state machine.
type State string

const (
	// StateWaiting means the session is queued for its shard.
	StateWaiting State = "waiting"
	// StateActive means the session holds its shard's contribution slot.
	StateActive State = "active"
	// StateSubmitting means the session's submitted contribution is being
	// verified. The slot stays occupied; only Complete or Fail ends it.
	StateSubmitting State = "submitting"
)

// Admission errors. These are distinct from cryptographic rejections: they
// mean the caller holds no slot, not that a contribution is unsound.
var (
	ErrUnknownSession         = errors.New("unknown session")
	ErrNotActive              = errors.New("session does not hold the contribution slot")
	ErrLobbyFull              = errors.New("lobby is full")
	ErrAlreadyJoined          = errors.New("identity already has a session")
	ErrUnknownShard           = errors.New("unknown ceremony shard")
	ErrContributionInProgress = errors.New("contribution is being processed")
)

// Options configures lobby behavior.
type Options struct {
	// Timeout evicts any session whose last activity is older than this.
	Timeout time.Duration
	// SweepInterval is how often Run scans for timed-out sessions.
	SweepInterval time.Duration
	// MaxSize bounds the total number of sessions across all shards.
	MaxSize int
	// RequeueOnFailure returns a failed session to the back of its queue
	// instead of evicting it. Default is evict, to bound retry abuse.
	RequeueOnFailure bool
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 5 * time.Second
	}
	if o.MaxSize <= 0 {
		o.MaxSize = 1000
	}
	return o
}

// Session is one participant's admission state for a single shard.
type Session struct {
	ID       string
	Identity string
	Shard    int
	State    State

	joinedAt time.Time
	lastSeen time.Time
}

// Lobby schedules sessions onto per-shard contribution slots, FIFO by entry
// time. It holds its own lock, independent of any transcript lock; callers
// must never invoke lobby methods while holding a transcript lock.
type Lobby struct {
	mu     sync.Mutex
	opts   Options
	clk    clock.Clock
	shards int

	sessions map[string]*Session
	queues   [][]*Session // waiting sessions per shard, FIFO
	active   []*Session   // at most one per shard
}

// New creates a lobby for the given number of shards using the supplied
// clock. Tests pass a mock clock; production passes clock.New().
func New(shards int, opts Options, clk clock.Clock) *Lobby {
	if clk == nil {
		clk = clock.New()
	}
	return &Lobby{
		opts:     opts.withDefaults(),
		clk:      clk,
		shards:   shards,
		sessions: make(map[string]*Session),
		queues:   make([][]*Session, shards),
		active:   make([]*Session, shards),
	}
}

// Join creates a Waiting session for identity on the given shard. An identity
// may hold at most one session at a time.
func (l *Lobby) Join(identity string, shard int) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if shard < 0 || shard >= l.shards {
		return nil, fmt.Errorf("%w: %d", ErrUnknownShard, shard)
	}
	if len(l.sessions) >= l.opts.MaxSize {
		return nil, ErrLobbyFull
	}
	for _, s := range l.sessions {
		if s.Identity == identity {
			return nil, ErrAlreadyJoined
		}
	}

	now := l.clk.Now()
	s := &Session{
		ID:       uuid.NewString(),
		Identity: identity,
		Shard:    shard,
		State:    StateWaiting,
		joinedAt: now,
		lastSeen: now,
	}
	l.sessions[s.ID] = s
	l.queues[shard] = append(l.queues[shard], s)
	l.promoteLocked(shard)
	return s, nil
}

// Checkin records activity for a session and promotes it if it reached the
// head of its queue and the slot is free. It reports whether the session is
// now active and, if not, its zero-based queue position.
func (l *Lobby) Checkin(sessionID string) (active bool, position int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[sessionID]
	if !ok {
		return false, 0, ErrUnknownSession
	}
	s.lastSeen = l.clk.Now()
	l.promoteLocked(s.Shard)
	if s.State != StateWaiting {
		return true, 0, nil
	}
	for i, q := range l.queues[s.Shard] {
		if q.ID == sessionID {
			return false, i, nil
		}
	}
	return false, 0, ErrUnknownSession
}

// Active returns the session if and only if it currently holds its shard's
// slot (Active or Submitting), refreshing its activity timestamp.
func (l *Lobby) Active(sessionID string) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}
	if s.State == StateWaiting {
		return nil, ErrNotActive
	}
	s.lastSeen = l.clk.Now()
	return s, nil
}

// Begin consumes the contribution slot for a submission: it transitions the
// session from Active to Submitting and returns it. Exactly one caller can win
// the transition; every other Begin for the same session fails with
// ErrNotActive until Complete or Fail releases the slot, so at most one
// submission per slot can ever reach verification.
func (l *Lobby) Begin(sessionID string) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}
	if s.State != StateActive {
		return nil, ErrNotActive
	}
	s.State = StateSubmitting
	s.lastSeen = l.clk.Now()
	return s, nil
}

// Complete removes a session holding the slot after its contribution was
// accepted and frees the slot.
func (l *Lobby) Complete(sessionID string) error {
	return l.release(sessionID, false)
}

// Fail releases a session holding the slot after its contribution was
// rejected. The session is evicted, or requeued at the back when
// RequeueOnFailure is set.
func (l *Lobby) Fail(sessionID string) error {
	return l.release(sessionID, l.opts.RequeueOnFailure)
}

// Abort removes a session at the participant's request, freeing the slot if
// it was active. A submitting session cannot be aborted: its contribution is
// already being verified.
func (l *Lobby) Abort(sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	if s.State == StateSubmitting {
		return ErrContributionInProgress
	}
	l.removeLocked(s)
	l.promoteLocked(s.Shard)
	return nil
}

func (l *Lobby) release(sessionID string, requeue bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	if s.State == StateWaiting {
		return ErrNotActive
	}
	l.active[s.Shard] = nil
	if requeue {
		s.State = StateWaiting
		s.lastSeen = l.clk.Now()
		l.queues[s.Shard] = append(l.queues[s.Shard], s)
	} else {
		delete(l.sessions, s.ID)
	}
	l.promoteLocked(s.Shard)
	return nil
}

// Sweep evicts every session idle for longer than the timeout and promotes
// the freed slots. It returns the number of evicted sessions. Sweep is cheap
// (one pass over the session map) and safe to call at any time.
func (l *Lobby) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clk.Now().Add(-l.opts.Timeout)
	evicted := 0
	for _, s := range l.sessions {
		// A submitting session is under server control; evicting it would
		// free the slot mid-verification.
		if s.State != StateSubmitting && s.lastSeen.Before(cutoff) {
			l.removeLocked(s)
			evicted++
		}
	}
	for shard := range l.active {
		l.promoteLocked(shard)
	}
	return evicted
}

// Run sweeps on every tick until ctx is done. Eviction has no correctness
// dependency on exact timing; a delayed sweep only delays promotion.
func (l *Lobby) Run(ctx context.Context) error {
	t := l.clk.Ticker(l.opts.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			l.Sweep()
		}
	}
}

// Size returns the total number of sessions.
func (l *Lobby) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// promoteLocked grants the shard's slot to the head of its queue if the slot
// is free. Invariant: at most one active session per shard.
func (l *Lobby) promoteLocked(shard int) {
	if l.active[shard] != nil {
		return
	}
	q := l.queues[shard]
	if len(q) == 0 {
		return
	}
	s := q[0]
	l.queues[shard] = q[1:]
	s.State = StateActive
	s.lastSeen = l.clk.Now()
	l.active[shard] = s
}

// removeLocked deletes a session from the map, its queue, and the slot.
func (l *Lobby) removeLocked(s *Session) {
	delete(l.sessions, s.ID)
	if l.active[s.Shard] == s {
		l.active[s.Shard] = nil
		return
	}
	q := l.queues[s.Shard]
	for i, w := range q {
		if w == s {
			l.queues[s.Shard] = append(q[:i:i], q[i+1:]...)
			return
		}
	}
}
