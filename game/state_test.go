package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotit-server/utils"
)

func testPlayer(id, connID, name string) *Player {
	return &Player{
		ID:     id,
		ConnID: connID,
		Name:   name,
		Status: StatusConnected,
	}
}

func TestUniqueName(t *testing.T) {
	s := newRoomState(utils.DefaultConfig())
	assert.Equal(t, "Player", s.uniqueName(""), "empty names get a default")

	s.addPlayer(testPlayer("p1", "c1", "Alice"))
	assert.Equal(t, "Alice <2>", s.uniqueName("Alice"))

	s.addPlayer(testPlayer("p2", "c2", "Alice <2>"))
	assert.Equal(t, "Alice <3>", s.uniqueName("Alice"))
	assert.Equal(t, "Bob", s.uniqueName("Bob"))
}

func TestAddRemovePlayerBookkeeping(t *testing.T) {
	s := newRoomState(utils.DefaultConfig())
	p1 := testPlayer("p1", "c1", "Alice")
	p2 := testPlayer("p2", "c2", "Bob")
	s.addPlayer(p1)
	s.addPlayer(p2)
	s.hostID = "p1"

	assert.Equal(t, p1, s.playerByConn("c1"))
	assert.Equal(t, []string{"p1", "p2"}, s.playerOrder)

	s.removePlayer("p1")
	assert.Nil(t, s.playerByConn("c1"))
	assert.Empty(t, s.hostID, "removing the host clears the host id")
	assert.Equal(t, []string{"p2"}, s.playerOrder)
	assert.Equal(t, p2, s.firstPlayer())

	s.removePlayer("p2")
	assert.Empty(t, s.players)
	assert.Nil(t, s.firstPlayer())
}

func TestOrderedPlayersInsertionOrder(t *testing.T) {
	s := newRoomState(utils.DefaultConfig())
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("p%d", i)
		s.addPlayer(testPlayer(id, "c"+id, id))
	}
	ordered := s.orderedPlayers()
	require.Len(t, ordered, 5)
	for i, p := range ordered {
		assert.Equal(t, fmt.Sprintf("p%d", i), p.ID)
	}
}

func TestCapacityPredicates(t *testing.T) {
	cfg := utils.DefaultConfig()
	s := newRoomState(cfg)
	assert.False(t, s.hasEnoughPlayers())

	for i := 0; i < cfg.MaxPlayers; i++ {
		id := fmt.Sprintf("p%d", i)
		s.addPlayer(testPlayer(id, "c"+id, id))
	}
	assert.True(t, s.isRoomFull())
	assert.True(t, s.hasEnoughPlayers())

	s.players["p0"].Status = StatusDisconnected
	assert.Equal(t, cfg.MaxPlayers-1, s.connectedCount())
	assert.True(t, s.isRoomFull(), "disconnected players still occupy a slot")
}

func TestViewComputesIsYou(t *testing.T) {
	s := newRoomState(utils.DefaultConfig())
	p1 := testPlayer("p1", "c1", "Alice")
	p1.IsHost = true
	p1.CardStack = []int{1, 2, 3}
	p2 := testPlayer("p2", "c2", "Bob")
	s.addPlayer(p1)
	s.addPlayer(p2)

	views := s.views("p2")
	require.Len(t, views, 2)
	assert.False(t, views[0].IsYou)
	assert.True(t, views[1].IsYou)
	assert.True(t, views[0].IsHost)
	assert.Equal(t, 3, views[0].CardsRemaining)
}

func TestResetGameStateKeepsPlayers(t *testing.T) {
	s := newRoomState(utils.DefaultConfig())
	p := testPlayer("p1", "c1", "Alice")
	p.CardStack = []int{4, 5}
	s.addPlayer(p)
	s.phase = PhaseGameOver
	s.roundNumber = 9
	s.lastWinnerID = "p1"
	s.rejoinWindowEndsAt = time.Now()
	s.playersWantRematch["p1"] = true
	s.config.GameDuration = utils.GameDurationLong

	s.resetGameState()

	assert.Equal(t, PhaseWaiting, s.phase)
	assert.Zero(t, s.roundNumber)
	assert.Empty(t, s.lastWinnerID)
	assert.True(t, s.rejoinWindowEndsAt.IsZero())
	assert.Empty(t, s.playersWantRematch)
	assert.Nil(t, p.CardStack)
	assert.Len(t, s.players, 1, "players survive a game reset")
	assert.Equal(t, utils.GameDurationLong, s.config.GameDuration, "config survives a game reset")

	s.resetAll()
	assert.Empty(t, s.players)
	assert.Equal(t, DefaultRoomConfig(), s.config)
}

func TestTopCard(t *testing.T) {
	s := newRoomState(utils.DefaultConfig())
	p := testPlayer("p1", "c1", "Alice")
	s.addPlayer(p)
	assert.Nil(t, s.topCard(p), "empty stack has no top card")
	assert.Nil(t, s.topCard(nil))
}

func TestRoomConfigValidate(t *testing.T) {
	cfg := DefaultRoomConfig()
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.CardLayout = "diagonal"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.GameDuration = 30
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.CustomSymbols = []string{"a", "b"}
	assert.Error(t, bad.Validate())

	ok := cfg
	ok.CustomSymbols = make([]string, utils.TotalSymbols)
	assert.NoError(t, ok.Validate())
}
