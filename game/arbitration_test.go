package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotit-server/utils"
)

// fakeClock drives time by hand so window and penalty math is exact.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestArbitrator() (*arbitrator, *fakeClock) {
	clock := newFakeClock()
	return newArbitrator(utils.DefaultConfig(), clock.Now, rand.New(rand.NewSource(1))), clock
}

func TestRateLimitPerConnection(t *testing.T) {
	arb, clock := newTestArbitrator()

	for i := 0; i < utils.DefaultConfig().MaxMatchAttemptsPerSecond; i++ {
		assert.True(t, arb.allowAttempt("c1"), "attempt %d should pass", i)
	}
	assert.False(t, arb.allowAttempt("c1"), "the 11th attempt in a second is dropped")
	assert.True(t, arb.allowAttempt("c2"), "budgets are per connection")

	clock.Advance(time.Second)
	assert.True(t, arb.allowAttempt("c1"), "the budget resets after a second")
}

func TestPenaltyLifecycle(t *testing.T) {
	arb, clock := newTestArbitrator()
	cfg := utils.DefaultConfig()

	assert.False(t, arb.inPenalty("p1"))
	until := arb.penalize("p1")
	assert.True(t, arb.inPenalty("p1"))
	assert.Equal(t, cfg.PenaltyDuration, arb.penaltyRemaining("p1"))

	clock.Advance(cfg.PenaltyDuration / 2)
	assert.True(t, arb.inPenalty("p1"))
	assert.Equal(t, cfg.PenaltyDuration/2, arb.penaltyRemaining("p1"))
	assert.Equal(t, until, arb.penalties["p1"], "the deadline does not move while serving")

	clock.Advance(cfg.PenaltyDuration / 2)
	assert.False(t, arb.inPenalty("p1"), "the boundary instant is not inside the penalty")
	assert.Zero(t, arb.penaltyRemaining("p1"))

	arb.penalize("p2")
	arb.clearPenalty("p2")
	assert.False(t, arb.inPenalty("p2"))
}

func TestSymbolRange(t *testing.T) {
	arb, _ := newTestArbitrator()
	assert.True(t, arb.validSymbol(0))
	assert.True(t, arb.validSymbol(utils.TotalSymbols-1))
	assert.False(t, arb.validSymbol(-1))
	assert.False(t, arb.validSymbol(utils.TotalSymbols))
}

func TestSubmitOpensWindowOnce(t *testing.T) {
	arb, _ := newTestArbitrator()

	opened := arb.submit(1, MatchAttempt{PlayerID: "p1"})
	assert.True(t, opened, "first attempt opens the window")
	assert.True(t, arb.hasPending(1))

	opened = arb.submit(1, MatchAttempt{PlayerID: "p2"})
	assert.False(t, opened, "later attempts join the open window")

	opened = arb.submit(2, MatchAttempt{PlayerID: "p3"})
	assert.False(t, opened, "attempts for another round are dropped")
	assert.False(t, arb.hasPending(2))
}

func TestResolveEarliestServerTimestampWins(t *testing.T) {
	arb, clock := newTestArbitrator()

	arb.submit(1, MatchAttempt{PlayerID: "slow", ServerTimestamp: clock.Now().Add(50 * time.Millisecond)})
	arb.submit(1, MatchAttempt{PlayerID: "fast", ServerTimestamp: clock.Now()})
	arb.submit(1, MatchAttempt{PlayerID: "mid", ServerTimestamp: clock.Now().Add(20 * time.Millisecond)})

	winner, ok := arb.resolve(1)
	require.True(t, ok)
	assert.Equal(t, "fast", winner.PlayerID)
	assert.False(t, arb.hasPending(1), "resolve closes the window")
}

func TestResolveTieBreakPicksAmongTied(t *testing.T) {
	arb, clock := newTestArbitrator()
	ts := clock.Now()

	arb.submit(1, MatchAttempt{PlayerID: "a", ServerTimestamp: ts})
	arb.submit(1, MatchAttempt{PlayerID: "b", ServerTimestamp: ts})
	arb.submit(1, MatchAttempt{PlayerID: "late", ServerTimestamp: ts.Add(time.Millisecond)})

	winner, ok := arb.resolve(1)
	require.True(t, ok)
	assert.Contains(t, []string{"a", "b"}, winner.PlayerID, "ties are broken among the tied attempts only")
}

func TestResolveWrongRound(t *testing.T) {
	arb, clock := newTestArbitrator()
	arb.submit(3, MatchAttempt{PlayerID: "p1", ServerTimestamp: clock.Now()})

	_, ok := arb.resolve(4)
	assert.False(t, ok)
	assert.True(t, arb.hasPending(3), "a foreign-round resolve leaves the window intact")
}

func TestClearDropsEverything(t *testing.T) {
	arb, clock := newTestArbitrator()
	arb.submit(1, MatchAttempt{PlayerID: "p1", ServerTimestamp: clock.Now()})
	arb.penalize("p1")
	arb.allowAttempt("c1")

	arb.clear()
	assert.False(t, arb.hasPending(1))
	assert.False(t, arb.inPenalty("p1"))
	assert.Empty(t, arb.attempts)
}
