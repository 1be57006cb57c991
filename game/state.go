package game

import (
	"fmt"
	"time"

	"spotit-server/deck"
	"spotit-server/utils"
)

// Phase is the top-level state label of a room.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseRoundEnd  Phase = "round_end"
	PhaseGameOver  Phase = "game_over"
)

// PlayerStatus tracks transport presence; identity survives disconnects
// until the grace period expires.
type PlayerStatus string

const (
	StatusConnected    PlayerStatus = "connected"
	StatusDisconnected PlayerStatus = "disconnected"
)

// Game end reasons.
const (
	EndReasonStackEmptied       = "stack_emptied"
	EndReasonLastPlayerStanding = "last_player_standing"
)

// Player is owned by the room state; nothing outside the room actor
// holds a reference to it. CardStack holds card ids, index 0 on top.
type Player struct {
	ID        string
	ConnID    string
	Name      string
	Status    PlayerStatus
	CardStack []int
	IsHost    bool
	JoinedAt  time.Time
	LastSeen  time.Time
}

// roomState is the State Store: the sole owner of room data. It does
// no I/O and holds no timers; every mutation happens on the room
// actor's message loop.
type roomState struct {
	cfg utils.Config

	phase  Phase
	hostID string
	config RoomConfig

	players      map[string]*Player
	playerOrder  []string // insertion order, drives host reassignment
	connToPlayer map[string]string
	disconnected map[string]time.Time // playerID -> disconnectedAt

	roundNumber          int
	centerCard           *deck.Card
	fullDeck             []deck.Card
	roundWinnerID        string
	roundMatchedSymbolID int

	lastGameEndReason string
	lastWinnerID      string
	lastWinnerName    string

	rejoinWindowEndsAt time.Time
	playersWantRematch map[string]bool
	roomExpiresAt      time.Time
}

func newRoomState(cfg utils.Config) *roomState {
	return &roomState{
		cfg:                  cfg,
		phase:                PhaseWaiting,
		config:               DefaultRoomConfig(),
		players:              make(map[string]*Player),
		connToPlayer:         make(map[string]string),
		disconnected:         make(map[string]time.Time),
		playersWantRematch:   make(map[string]bool),
		roundMatchedSymbolID: -1,
	}
}

// --- Predicates ---

func (s *roomState) connectedCount() int {
	n := 0
	for _, p := range s.players {
		if p.Status == StatusConnected {
			n++
		}
	}
	return n
}

func (s *roomState) isRoomFull() bool {
	return len(s.players) >= s.cfg.MaxPlayers
}

func (s *roomState) hasEnoughPlayers() bool {
	return s.connectedCount() >= s.cfg.MinPlayers
}

func (s *roomState) isNameTaken(name string) bool {
	for _, p := range s.players {
		if p.Name == name {
			return true
		}
	}
	return false
}

// uniqueName appends " <n>" until the name no longer collides.
func (s *roomState) uniqueName(base string) string {
	if base == "" {
		base = "Player"
	}
	if !s.isNameTaken(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s <%d>", base, n)
		if !s.isNameTaken(candidate) {
			return candidate
		}
	}
}

func (s *roomState) cardByID(id int) *deck.Card {
	for i := range s.fullDeck {
		if s.fullDeck[i].ID == id {
			return &s.fullDeck[i]
		}
	}
	return nil
}

func (s *roomState) playerByConn(connID string) *Player {
	if id, ok := s.connToPlayer[connID]; ok {
		return s.players[id]
	}
	return nil
}

// orderedPlayers returns players in insertion order.
func (s *roomState) orderedPlayers() []*Player {
	out := make([]*Player, 0, len(s.players))
	for _, id := range s.playerOrder {
		if p, ok := s.players[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *roomState) firstPlayer() *Player {
	for _, id := range s.playerOrder {
		if p, ok := s.players[id]; ok {
			return p
		}
	}
	return nil
}

// topCard returns the player's current top card, nil for empty stacks.
func (s *roomState) topCard(p *Player) *deck.Card {
	if p == nil || len(p.CardStack) == 0 {
		return nil
	}
	return s.cardByID(p.CardStack[0])
}

// allPlayersRemaining reports stack sizes in insertion order.
func (s *roomState) allPlayersRemaining() []PlayerCardsRemaining {
	out := make([]PlayerCardsRemaining, 0, len(s.players))
	for _, p := range s.orderedPlayers() {
		out = append(out, PlayerCardsRemaining{PlayerID: p.ID, CardsRemaining: len(p.CardStack)})
	}
	return out
}

// --- Mutations ---

func (s *roomState) addPlayer(p *Player) {
	s.players[p.ID] = p
	s.playerOrder = append(s.playerOrder, p.ID)
	if p.ConnID != "" {
		s.connToPlayer[p.ConnID] = p.ID
	}
}

// removePlayer deletes the player from every structure it appears in.
func (s *roomState) removePlayer(playerID string) {
	p, ok := s.players[playerID]
	if !ok {
		return
	}
	if p.ConnID != "" {
		delete(s.connToPlayer, p.ConnID)
	}
	delete(s.players, playerID)
	delete(s.disconnected, playerID)
	delete(s.playersWantRematch, playerID)
	for i, id := range s.playerOrder {
		if id == playerID {
			s.playerOrder = append(s.playerOrder[:i], s.playerOrder[i+1:]...)
			break
		}
	}
	if s.hostID == playerID {
		s.hostID = ""
	}
	if len(s.players) == 0 {
		s.hostID = ""
	}
}

// resetGameState clears everything a finished game leaves behind but
// keeps the players and their config.
func (s *roomState) resetGameState() {
	s.phase = PhaseWaiting
	s.roundNumber = 0
	s.centerCard = nil
	s.fullDeck = nil
	s.roundWinnerID = ""
	s.roundMatchedSymbolID = -1
	s.lastGameEndReason = ""
	s.lastWinnerID = ""
	s.lastWinnerName = ""
	s.rejoinWindowEndsAt = time.Time{}
	s.playersWantRematch = make(map[string]bool)
	for _, p := range s.players {
		p.CardStack = nil
	}
}

// resetAll additionally clears players and restores the default config.
func (s *roomState) resetAll() {
	s.resetGameState()
	s.players = make(map[string]*Player)
	s.playerOrder = nil
	s.connToPlayer = make(map[string]string)
	s.disconnected = make(map[string]time.Time)
	s.hostID = ""
	s.config = DefaultRoomConfig()
	s.roomExpiresAt = time.Time{}
}

// --- Projections ---

// view projects a player for a given recipient. This is the only place
// IsYou is computed.
func (s *roomState) view(p *Player, viewerID string) PlayerView {
	return PlayerView{
		ID:             p.ID,
		Name:           p.Name,
		Status:         p.Status,
		CardsRemaining: len(p.CardStack),
		IsHost:         p.IsHost,
		IsYou:          p.ID == viewerID,
	}
}

func (s *roomState) views(viewerID string) []PlayerView {
	out := make([]PlayerView, 0, len(s.players))
	for _, p := range s.orderedPlayers() {
		out = append(out, s.view(p, viewerID))
	}
	return out
}
