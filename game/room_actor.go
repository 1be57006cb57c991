package game

import (
	"encoding/json"
	"math/rand"
	"runtime/debug"
	"time"

	"github.com/lguibr/bollywood"
	"go.uber.org/zap"

	"spotit-server/utils"
)

// RoomActor is the authoritative state machine for one room. Every
// mutation, timer callback and inbound message runs serially on its
// mailbox; there is no locking because there is no concurrent access.
type RoomActor struct {
	roomID     string
	cfg        utils.Config
	engine     *bollywood.Engine
	managerPID *bollywood.PID
	selfPID    *bollywood.PID
	logger     *zap.Logger

	now func() time.Time
	rng *rand.Rand

	state  *roomState
	timers *timerService
	arb    *arbitrator
	out    *broadcaster
}

// NewRoomActorProducer creates the producer for a room actor.
func NewRoomActorProducer(roomID string, cfg utils.Config, engine *bollywood.Engine, managerPID *bollywood.PID, logger *zap.Logger) bollywood.Producer {
	return func() bollywood.Actor {
		now := time.Now
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		return &RoomActor{
			roomID:     roomID,
			cfg:        cfg,
			engine:     engine,
			managerPID: managerPID,
			logger:     logger.With(zap.String("room", roomID)),
			now:        now,
			rng:        rng,
			state:      newRoomState(cfg),
			arb:        newArbitrator(cfg, now, rng),
		}
	}
}

// Receive is the single entry point; no failure may escape it.
func (a *RoomActor) Receive(ctx bollywood.Context) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic recovered in room actor",
				zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
	}()

	if a.selfPID == nil {
		a.selfPID = ctx.Self()
	}

	switch msg := ctx.Message().(type) {
	case bollywood.Started:
		a.timers = newTimerService(a.engine, a.selfPID)
		a.out = newBroadcaster(a.engine, a.selfPID, a.logger)
		a.logger.Info("room started")

	case ClientConnected:
		a.handleClientConnected(msg)

	case ClientMessage:
		a.routeClientMessage(msg)

	case ClientDisconnected:
		a.handleClientDisconnected(msg.ConnID)

	case roomTimeoutFired:
		a.handleRoomTimeout()

	case countdownTickFired:
		a.handleCountdownTick(msg.Seconds)

	case roundEndFired:
		a.handleRoundEnd(msg.Round)

	case arbitrationFired:
		a.handleArbitration(msg.Round)

	case rejoinWindowFired:
		a.handleRejoinWindowExpired()

	case gracePeriodFired:
		a.handleGraceExpired(msg.PlayerID)

	case soloBootFired:
		a.handleSoloBoot(msg.ConnID)

	case bollywood.Stopping:
		a.logger.Info("room stopping")
		if a.timers != nil {
			a.timers.clearAll()
		}
		if a.out != nil {
			a.out.closeAll()
		}

	case bollywood.Stopped:

	default:
		a.logger.Warn("unknown message", zap.Any("message", msg))
	}
}

// routeClientMessage dispatches one wire frame. Malformed payloads are
// logged and dropped without a reply.
func (a *RoomActor) routeClientMessage(msg ClientMessage) {
	switch msg.Type {
	case MsgJoin:
		var p JoinPayload
		if a.decode(msg, &p) {
			a.handleJoin(msg.ConnID, p.PlayerName)
		}
	case MsgReconnect:
		var p ReconnectPayload
		if a.decode(msg, &p) {
			a.handleReconnect(msg.ConnID, p.PlayerID)
		}
	case MsgSetConfig:
		var p SetConfigPayload
		if a.decode(msg, &p) {
			a.handleSetConfig(msg.ConnID, p.Config)
		}
	case MsgStartGame:
		var p StartGamePayload
		if a.decode(msg, &p) {
			a.handleStartGame(msg.ConnID, p.Config)
		}
	case MsgMatchAttempt:
		var p MatchAttemptPayload
		if a.decode(msg, &p) {
			a.handleMatchAttempt(msg.ConnID, p)
		}
	case MsgLeave:
		a.handleLeave(msg.ConnID)
	case MsgKickPlayer:
		var p KickPlayerPayload
		if a.decode(msg, &p) {
			a.handleKick(msg.ConnID, p.PlayerID)
		}
	case MsgPing:
		var p PingPayload
		if a.decode(msg, &p) {
			a.handlePing(msg.ConnID, p)
		}
	case MsgPlayAgain:
		a.handlePlayAgain(msg.ConnID)
	default:
		a.logger.Debug("dropping unknown client message",
			zap.String("conn", msg.ConnID), zap.String("type", msg.Type))
	}
}

func (a *RoomActor) decode(msg ClientMessage, into any) bool {
	if len(msg.Payload) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Payload, into); err != nil {
		a.logger.Debug("dropping malformed payload",
			zap.String("conn", msg.ConnID), zap.String("type", msg.Type), zap.Error(err))
		return false
	}
	return true
}

// sendError unicasts a policy/capacity rejection to one connection.
func (a *RoomActor) sendError(connID string, code ErrorCode, message string) {
	a.out.sendToConn(connID, errorMessage(code, message))
}

func (a *RoomActor) nowMillis() int64 {
	return a.now().UnixMilli()
}

// isRejoinWindowActive compares the clock against the recorded
// deadline rather than trusting the timer handle.
func (a *RoomActor) isRejoinWindowActive() bool {
	return !a.state.rejoinWindowEndsAt.IsZero() && a.now().Before(a.state.rejoinWindowEndsAt)
}

// notifyEmpty tells the manager this room can be torn down.
func (a *RoomActor) notifyEmpty() {
	if a.managerPID != nil && a.selfPID != nil {
		a.engine.Send(a.managerPID, RoomEmpty{RoomID: a.roomID, RoomPID: a.selfPID}, a.selfPID)
	}
}

// notifyPlayerCount reports the current membership to the manager.
func (a *RoomActor) notifyPlayerCount() {
	if a.managerPID != nil && a.selfPID != nil {
		a.engine.Send(a.managerPID, RoomPlayerCount{RoomID: a.roomID, Count: len(a.state.players)}, a.selfPID)
	}
}

// expireRoom is the terminal path: broadcast, close everything, reset.
func (a *RoomActor) expireRoom(reason string) {
	a.out.broadcastAll(ServerMessage{Type: MsgRoomExpired, Payload: RoomExpiredPayload{Reason: reason}})
	a.out.closeAll()
	a.timers.clearAll()
	a.state.resetAll()
	a.notifyEmpty()
}

// roomStateFor renders the personalised full snapshot for one viewer.
func (a *RoomActor) roomStateFor(viewerID string) RoomStatePayload {
	s := a.state
	viewer := s.players[viewerID]
	payload := RoomStatePayload{
		Phase:              s.phase,
		RoundNumber:        s.roundNumber,
		Config:             s.config,
		Players:            s.views(viewerID),
		CenterCard:         s.centerCard,
		PenaltyRemainingMs: a.arb.penaltyRemaining(viewerID).Milliseconds(),
	}
	if viewer != nil {
		payload.YourCard = s.topCard(viewer)
		payload.YourCardsRemaining = len(viewer.CardStack)
	}
	if s.phase == PhaseGameOver {
		payload.LastWinnerID = s.lastWinnerID
		payload.LastWinnerName = s.lastWinnerName
		payload.LastGameEndReason = s.lastGameEndReason
		if a.isRejoinWindowActive() {
			payload.RejoinWindowMs = s.rejoinWindowEndsAt.Sub(a.now()).Milliseconds()
		}
	}
	return payload
}

// sendRoomState unicasts a fresh snapshot to one player.
func (a *RoomActor) sendRoomState(p *Player) {
	if p == nil || p.ConnID == "" {
		return
	}
	a.out.sendToConn(p.ConnID, ServerMessage{Type: MsgRoomState, Payload: a.roomStateFor(p.ID)})
}

// broadcastSnapshots sends every connected player their own snapshot.
func (a *RoomActor) broadcastSnapshots() {
	a.out.broadcastPersonalised(a.state.orderedPlayers(), func(playerID string) (ServerMessage, bool) {
		return ServerMessage{Type: MsgRoomState, Payload: a.roomStateFor(playerID)}, true
	})
}
