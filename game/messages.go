package game

import (
	"encoding/json"

	"github.com/lguibr/bollywood"
	"golang.org/x/net/websocket"

	"spotit-server/deck"
)

// --- Wire Envelope (Client <-> Server) ---

// ClientEnvelope is the frame every client message arrives in.
type ClientEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage is the frame every outgoing message is wrapped in.
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Client -> server message types.
const (
	MsgJoin         = "join"
	MsgReconnect    = "reconnect"
	MsgSetConfig    = "set_config"
	MsgStartGame    = "start_game"
	MsgMatchAttempt = "match_attempt"
	MsgLeave        = "leave"
	MsgKickPlayer   = "kick_player"
	MsgPing         = "ping"
	MsgPlayAgain    = "play_again"
)

// Server -> client message types.
const (
	MsgRoomState          = "room_state"
	MsgPlayerJoined       = "player_joined"
	MsgPlayerLeft         = "player_left"
	MsgPlayerDisconnected = "player_disconnected"
	MsgPlayerReconnected  = "player_reconnected"
	MsgConfigUpdated      = "config_updated"
	MsgCountdown          = "countdown"
	MsgRoundStart         = "round_start"
	MsgRoundWinner        = "round_winner"
	MsgGameOver           = "game_over"
	MsgPenalty            = "penalty"
	MsgRoomExpired        = "room_expired"
	MsgHostChanged        = "host_changed"
	MsgError              = "error"
	MsgPong               = "pong"
	MsgYouAreHost         = "you_are_host"
	MsgPlayAgainAck       = "play_again_ack"
	MsgSoloRejoinBoot     = "solo_rejoin_boot"
	MsgRoomReset          = "room_reset"
)

// ErrorCode identifies a policy or capacity rejection sent to a client.
type ErrorCode string

const (
	ErrRoomFull       ErrorCode = "ROOM_FULL"
	ErrRoomNotFound   ErrorCode = "ROOM_NOT_FOUND"
	ErrGameInProgress ErrorCode = "GAME_IN_PROGRESS"
	ErrPlayerNotFound ErrorCode = "PLAYER_NOT_FOUND"
	ErrNotHost        ErrorCode = "NOT_HOST"
	ErrInvalidState   ErrorCode = "INVALID_STATE"
	ErrInvalidMatch   ErrorCode = "INVALID_MATCH"
	ErrInPenalty      ErrorCode = "IN_PENALTY"
	ErrNameTaken      ErrorCode = "NAME_TAKEN"
)

// --- Client Payloads ---

type JoinPayload struct {
	PlayerName string `json:"playerName"`
}

type ReconnectPayload struct {
	PlayerID string `json:"playerId"`
}

type SetConfigPayload struct {
	Config RoomConfig `json:"config"`
}

type StartGamePayload struct {
	Config *RoomConfig `json:"config"`
}

type MatchAttemptPayload struct {
	SymbolID        int   `json:"symbolId"`
	ClientTimestamp int64 `json:"clientTimestamp"`
}

type KickPlayerPayload struct {
	PlayerID string `json:"playerId"`
}

type PingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// --- Server Payloads ---

type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type PlayerJoinedPayload struct {
	Player PlayerView `json:"player"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

type PlayerDisconnectedPayload struct {
	PlayerID string `json:"playerId"`
}

type PlayerReconnectedPayload struct {
	PlayerID string `json:"playerId"`
}

type ConfigUpdatedPayload struct {
	Config RoomConfig `json:"config"`
}

// CountdownPayload carries the remaining seconds; -1 means cancelled.
type CountdownPayload struct {
	Seconds int `json:"seconds"`
}

type HostChangedPayload struct {
	PlayerID string `json:"playerId"`
}

type PongPayload struct {
	ServerTimestamp int64 `json:"serverTimestamp"`
	ClientTimestamp int64 `json:"clientTimestamp"`
}

type PenaltyPayload struct {
	ServerTimestamp int64  `json:"serverTimestamp"`
	DurationMs      int64  `json:"durationMs"`
	Reason          string `json:"reason"`
}

type RoomExpiredPayload struct {
	Reason string `json:"reason"`
}

type PlayAgainAckPayload struct {
	PlayerID string `json:"playerId"`
}

type SoloRejoinBootPayload struct {
	Message string `json:"message"`
}

// PlayerView is the projection of a Player every client is allowed to
// see. IsYou is recipient-dependent and may only be set by the
// personalised broadcast path. Hands are never exposed.
type PlayerView struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Status         PlayerStatus `json:"status"`
	CardsRemaining int          `json:"cardsRemaining"`
	IsHost         bool         `json:"isHost"`
	IsYou          bool         `json:"isYou"`
}

// PlayerCardsRemaining is one entry of the all-players stack vector.
type PlayerCardsRemaining struct {
	PlayerID       string `json:"playerId"`
	CardsRemaining int    `json:"cardsRemaining"`
}

// Standing is one row of the final scoreboard; zero cards wins.
type Standing struct {
	PlayerID       string `json:"playerId"`
	PlayerName     string `json:"playerName"`
	CardsRemaining int    `json:"cardsRemaining"`
}

// RoomStatePayload is the personalised full snapshot. YourCard,
// YourCardsRemaining and PenaltyRemainingMs depend on the recipient.
type RoomStatePayload struct {
	Phase              Phase        `json:"phase"`
	RoundNumber        int          `json:"roundNumber"`
	Config             RoomConfig   `json:"config"`
	Players            []PlayerView `json:"players"`
	CenterCard         *deck.Card   `json:"centerCard,omitempty"`
	YourCard           *deck.Card   `json:"yourCard,omitempty"`
	YourCardsRemaining int          `json:"yourCardsRemaining"`
	PenaltyRemainingMs int64        `json:"penaltyRemainingMs"`
	RejoinWindowMs     int64        `json:"rejoinWindowMs,omitempty"`
	LastWinnerID       string       `json:"lastWinnerId,omitempty"`
	LastWinnerName     string       `json:"lastWinnerName,omitempty"`
	LastGameEndReason  string       `json:"lastGameEndReason,omitempty"`
}

// RoundStartPayload is the per-player round opener.
type RoundStartPayload struct {
	CenterCard          deck.Card              `json:"centerCard"`
	YourCard            *deck.Card             `json:"yourCard,omitempty"`
	YourCardsRemaining  int                    `json:"yourCardsRemaining"`
	AllPlayersRemaining []PlayerCardsRemaining `json:"allPlayersRemaining"`
	RoundNumber         int                    `json:"roundNumber"`
}

type RoundWinnerPayload struct {
	WinnerID             string `json:"winnerId"`
	WinnerName           string `json:"winnerName"`
	MatchedSymbolID      int    `json:"matchedSymbolId"`
	WinnerCardsRemaining int    `json:"winnerCardsRemaining"`
}

type GameOverPayload struct {
	WinnerID       string     `json:"winnerId"`
	WinnerName     string     `json:"winnerName"`
	FinalStandings []Standing `json:"finalStandings"`
	Reason         string     `json:"reason"`
	RejoinWindowMs int64      `json:"rejoinWindowMs"`
}

// --- Internal Actor Messages (server package -> room actor) ---

// ClientConnected registers a freshly upgraded connection with a room.
// ReconnectID is the optional ?reconnectId= query parameter.
type ClientConnected struct {
	ConnID      string
	Conn        *websocket.Conn
	ReconnectID string
}

// ClientMessage is one parsed wire frame from a connection.
type ClientMessage struct {
	ConnID  string
	Type    string
	Payload json.RawMessage
}

// ClientDisconnected signals the transport lost the connection.
type ClientDisconnected struct {
	ConnID string
}

// --- Timer-Fired Messages (timer service -> room actor mailbox) ---
// Each carries the context its handler needs to re-check preconditions;
// timers race state transitions only up to the mailbox boundary.

type roomTimeoutFired struct{}

type countdownTickFired struct{ Seconds int }

type roundEndFired struct{ Round int }

type arbitrationFired struct{ Round int }

type rejoinWindowFired struct{}

type gracePeriodFired struct{ PlayerID string }

type soloBootFired struct{ ConnID string }

// --- RoomManagerActor Messages ---

// FindRoomRequest asks the manager for the room actor serving RoomID,
// creating it when absent.
type FindRoomRequest struct {
	RoomID  string
	ReplyTo *bollywood.PID
}

// AssignRoomResponse answers FindRoomRequest; RoomPID is nil when the
// manager is at capacity.
type AssignRoomResponse struct {
	RoomID  string
	RoomPID *bollywood.PID
}

// RoomEmpty notifies the manager that a room has no players left.
type RoomEmpty struct {
	RoomID  string
	RoomPID *bollywood.PID
}

// RoomPlayerCount keeps the manager's room listing current.
type RoomPlayerCount struct {
	RoomID string
	Count  int
}

// GetRoomListRequest asks the manager for active rooms (served via Ask).
type GetRoomListRequest struct{}

// RoomListResponse maps room id to player count.
type RoomListResponse struct {
	Rooms map[string]int `json:"rooms"`
}
