package game

import (
	"math/rand"
	"sort"
	"time"

	"spotit-server/utils"
)

// MatchAttempt is one valid match recorded inside the arbitration
// window. ClientTimestamp is kept for diagnostics only; ordering trusts
// the server clock exclusively.
type MatchAttempt struct {
	PlayerID        string
	SymbolID        int
	ClientTimestamp int64
	ServerTimestamp time.Time
}

// pendingArbitration exists only during the short window after the
// first valid match of a round.
type pendingArbitration struct {
	round       int
	windowStart time.Time
	attempts    []MatchAttempt
}

type attemptWindow struct {
	windowStart time.Time
	count       int
}

// arbitrator handles rate limiting, penalties and simultaneous-match
// resolution. It is owned by the room actor and never locked.
type arbitrator struct {
	cfg utils.Config
	now func() time.Time
	rng *rand.Rand

	penalties map[string]time.Time      // playerID -> penaltyUntil
	attempts  map[string]*attemptWindow // connID -> current-second counter
	pending   *pendingArbitration
}

func newArbitrator(cfg utils.Config, now func() time.Time, rng *rand.Rand) *arbitrator {
	return &arbitrator{
		cfg:       cfg,
		now:       now,
		rng:       rng,
		penalties: make(map[string]time.Time),
		attempts:  make(map[string]*attemptWindow),
	}
}

// allowAttempt enforces the per-connection per-second budget. Rejected
// attempts are dropped silently to avoid timing feedback.
func (a *arbitrator) allowAttempt(connID string) bool {
	now := a.now()
	w, ok := a.attempts[connID]
	if !ok || now.Sub(w.windowStart) >= time.Second {
		a.attempts[connID] = &attemptWindow{windowStart: now, count: 1}
		return true
	}
	w.count++
	return w.count <= a.cfg.MaxMatchAttemptsPerSecond
}

func (a *arbitrator) dropAttemptCounter(connID string) {
	delete(a.attempts, connID)
}

// validSymbol checks the id is inside the symbol space.
func (a *arbitrator) validSymbol(symbolID int) bool {
	return symbolID >= 0 && symbolID < utils.TotalSymbols
}

// --- Penalties ---

func (a *arbitrator) inPenalty(playerID string) bool {
	until, ok := a.penalties[playerID]
	return ok && a.now().Before(until)
}

// penalize records a fresh penalty and returns its deadline. Attempts
// made while already penalized do not extend it.
func (a *arbitrator) penalize(playerID string) time.Time {
	until := a.now().Add(a.cfg.PenaltyDuration)
	a.penalties[playerID] = until
	return until
}

// penaltyRemaining is clamped at zero for snapshot rendering.
func (a *arbitrator) penaltyRemaining(playerID string) time.Duration {
	until, ok := a.penalties[playerID]
	if !ok {
		return 0
	}
	if d := until.Sub(a.now()); d > 0 {
		return d
	}
	return 0
}

func (a *arbitrator) clearPenalty(playerID string) {
	delete(a.penalties, playerID)
}

// --- Arbitration window ---

// submit records a valid match. The first attempt of a round opens the
// window and returns true so the caller can arm the window timer.
// Attempts for any other round are dropped.
func (a *arbitrator) submit(round int, attempt MatchAttempt) (opened bool) {
	if a.pending == nil {
		a.pending = &pendingArbitration{
			round:       round,
			windowStart: a.now(),
			attempts:    []MatchAttempt{attempt},
		}
		return true
	}
	if a.pending.round != round {
		return false
	}
	a.pending.attempts = append(a.pending.attempts, attempt)
	return false
}

func (a *arbitrator) hasPending(round int) bool {
	return a.pending != nil && a.pending.round == round
}

// resolve closes the window and picks the winner: earliest server
// timestamp first, ties broken uniformly at random. Client timestamps
// are untrusted and never consulted.
func (a *arbitrator) resolve(round int) (MatchAttempt, bool) {
	if !a.hasPending(round) {
		return MatchAttempt{}, false
	}
	attempts := a.pending.attempts
	a.pending = nil
	if len(attempts) == 0 {
		return MatchAttempt{}, false
	}

	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].ServerTimestamp.Before(attempts[j].ServerTimestamp)
	})
	ties := 1
	for ties < len(attempts) && attempts[ties].ServerTimestamp.Equal(attempts[0].ServerTimestamp) {
		ties++
	}
	return attempts[a.rng.Intn(ties)], true
}

// clear drops any pending window and all penalty bookkeeping; called on
// game end.
func (a *arbitrator) clear() {
	a.pending = nil
	a.penalties = make(map[string]time.Time)
	a.attempts = make(map[string]*attemptWindow)
}
