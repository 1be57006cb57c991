package game

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"spotit-server/utils"
)

// handleClientConnected registers a fresh transport session. Nothing
// is sent until the client identifies itself with join or reconnect,
// except when the connect already carries a reconnect id.
func (a *RoomActor) handleClientConnected(msg ClientConnected) {
	a.out.register(msg.ConnID, msg.Conn)
	a.logger.Debug("client connected",
		zap.String("conn", msg.ConnID), zap.Bool("reconnect", msg.ReconnectID != ""))
	if msg.ReconnectID != "" {
		a.handleReconnect(msg.ConnID, msg.ReconnectID)
	}
}

// handleJoin admits a new player. Idempotent for a connection that is
// already mapped to a player: the snapshot is re-sent, nothing else
// happens.
func (a *RoomActor) handleJoin(connID, rawName string) {
	if !a.out.hasConn(connID) {
		return
	}
	if existing := a.state.playerByConn(connID); existing != nil {
		a.sendRoomState(existing)
		return
	}
	if a.state.isRoomFull() {
		a.sendError(connID, ErrRoomFull, "room already has the maximum number of players")
		return
	}
	if a.state.phase != PhaseWaiting {
		// A finished game whose rejoin window lapsed (or whose players
		// are all gone) makes way for a fresh lobby.
		if a.state.phase == PhaseGameOver && (!a.isRejoinWindowActive() || len(a.state.players) == 0) {
			a.resetForNewLobby()
		} else {
			a.sendError(connID, ErrGameInProgress, "a game is in progress, try again later")
			return
		}
	}

	name := a.state.uniqueName(utils.SanitizeName(rawName, a.cfg.MaxNameLength))
	now := a.now()
	player := &Player{
		ID:       uuid.NewString(),
		ConnID:   connID,
		Name:     name,
		Status:   StatusConnected,
		JoinedAt: now,
		LastSeen: now,
	}

	first := len(a.state.players) == 0
	if first {
		player.IsHost = true
		a.state.hostID = player.ID
		a.state.config = DefaultRoomConfig()
		a.state.roomExpiresAt = now.Add(a.cfg.RoomTimeout)
		a.timers.startRoomTimeout(a.cfg.RoomTimeout)
	}
	a.state.addPlayer(player)

	a.logger.Info("player joined",
		zap.String("player", player.ID), zap.String("name", name), zap.Bool("host", first))

	// Everyone already present learns about the newcomer; the newcomer
	// gets the full snapshot instead.
	recipients := make([]*Player, 0, len(a.state.players))
	for _, p := range a.state.orderedPlayers() {
		if p.ID != player.ID {
			recipients = append(recipients, p)
		}
	}
	a.out.broadcastPersonalised(recipients, func(viewerID string) (ServerMessage, bool) {
		return ServerMessage{
			Type:    MsgPlayerJoined,
			Payload: PlayerJoinedPayload{Player: a.state.view(player, viewerID)},
		}, true
	})

	if first {
		a.out.sendToConn(connID, ServerMessage{Type: MsgYouAreHost, Payload: struct{}{}})
	}
	a.sendRoomState(player)
	a.notifyPlayerCount()
}

// resetForNewLobby evicts whatever a dead game left behind so a join
// can proceed into a clean Waiting room.
func (a *RoomActor) resetForNewLobby() {
	for _, p := range a.state.orderedPlayers() {
		if p.ConnID != "" {
			a.out.closeConn(p.ConnID)
		}
	}
	a.timers.clearAll()
	a.arb.clear()
	a.state.resetAll()
}

// handleClientDisconnected marks the player disconnected and arms the
// grace timer; identity is preserved until it fires.
func (a *RoomActor) handleClientDisconnected(connID string) {
	a.out.unregister(connID)
	a.arb.dropAttemptCounter(connID)

	player := a.state.playerByConn(connID)
	if player == nil || player.ConnID != connID {
		return
	}
	delete(a.state.connToPlayer, connID)
	player.ConnID = ""
	player.Status = StatusDisconnected
	player.LastSeen = a.now()
	a.state.disconnected[player.ID] = player.LastSeen

	a.out.broadcastAll(ServerMessage{
		Type:    MsgPlayerDisconnected,
		Payload: PlayerDisconnectedPayload{PlayerID: player.ID},
	})

	grace := a.gracePeriodFor(player)
	a.timers.startGracePeriod(player.ID, grace)
	a.logger.Info("player disconnected",
		zap.String("player", player.ID), zap.Duration("grace", grace))
}

// gracePeriodFor implements the grace table: hosts and lobby players
// get the long period, anyone else mid-game gets the short one.
func (a *RoomActor) gracePeriodFor(p *Player) time.Duration {
	switch {
	case p.IsHost:
		return a.cfg.HostReconnectGracePeriod
	case a.state.phase == PhaseWaiting:
		return a.cfg.WaitingGracePeriod
	default:
		return a.cfg.ReconnectGracePeriod
	}
}

// handleGraceExpired removes the player if they are still gone.
func (a *RoomActor) handleGraceExpired(playerID string) {
	a.timers.stopGracePeriod(playerID)
	player, ok := a.state.players[playerID]
	if !ok || player.Status == StatusConnected {
		return
	}
	a.removePlayer(player)
}

// handleReconnect serves both the connect-time query parameter and the
// in-band reconnect message.
func (a *RoomActor) handleReconnect(connID, playerID string) {
	player, ok := a.state.players[playerID]
	if !ok {
		// Leave the connection open: the client may follow up with a
		// fresh join.
		a.sendError(connID, ErrPlayerNotFound, "unknown player id, send join to enter the room")
		return
	}

	if player.Status == StatusDisconnected {
		a.timers.stopGracePeriod(player.ID)
		delete(a.state.disconnected, player.ID)
		player.ConnID = connID
		player.Status = StatusConnected
		player.LastSeen = a.now()
		a.state.connToPlayer[connID] = player.ID
		if a.state.hostID == player.ID {
			player.IsHost = true
		}

		a.out.broadcastAll(ServerMessage{
			Type:    MsgPlayerReconnected,
			Payload: PlayerReconnectedPayload{PlayerID: player.ID},
		})
		a.sendRoomState(player)
		a.logger.Info("player reconnected", zap.String("player", player.ID))
		return
	}

	// Duplicated session: rebind to the newest connection quietly.
	if player.ConnID != "" && player.ConnID != connID {
		delete(a.state.connToPlayer, player.ConnID)
		a.out.closeConn(player.ConnID)
	}
	player.ConnID = connID
	player.LastSeen = a.now()
	a.state.connToPlayer[connID] = player.ID
	a.sendRoomState(player)
	a.logger.Info("duplicate session rebound", zap.String("player", player.ID))
}

// handleLeave is an explicit exit; no grace applies.
func (a *RoomActor) handleLeave(connID string) {
	player := a.state.playerByConn(connID)
	if player == nil {
		return
	}
	a.removePlayer(player)
}

// handleKick removes a player on the host's request.
func (a *RoomActor) handleKick(connID, targetID string) {
	requester := a.state.playerByConn(connID)
	if requester == nil || requester.ID != a.state.hostID {
		a.sendError(connID, ErrNotHost, "only the host can kick players")
		return
	}
	target, ok := a.state.players[targetID]
	if !ok {
		a.sendError(connID, ErrPlayerNotFound, "no such player")
		return
	}
	a.logger.Info("player kicked",
		zap.String("player", target.ID), zap.String("by", requester.ID))
	a.removePlayer(target)
}

// removePlayer deletes the player everywhere, reassigns the host when
// needed and lets the game engine react to the new player count.
func (a *RoomActor) removePlayer(player *Player) {
	wasHost := player.IsHost
	connID := player.ConnID

	a.timers.stopGracePeriod(player.ID)
	a.arb.clearPenalty(player.ID)
	a.state.removePlayer(player.ID)
	if connID != "" {
		a.out.closeConn(connID)
	}

	a.out.broadcastAll(ServerMessage{
		Type:    MsgPlayerLeft,
		Payload: PlayerLeftPayload{PlayerID: player.ID},
	})
	a.logger.Info("player removed", zap.String("player", player.ID))

	if wasHost {
		if next := a.state.firstPlayer(); next != nil {
			next.IsHost = true
			a.state.hostID = next.ID
			if next.ConnID != "" {
				a.out.sendToConn(next.ConnID, ServerMessage{Type: MsgYouAreHost, Payload: struct{}{}})
			}
			a.out.broadcastAll(ServerMessage{
				Type:    MsgHostChanged,
				Payload: HostChangedPayload{PlayerID: next.ID},
			})
		}
	}

	if len(a.state.players) == 0 {
		a.timers.clearAll()
		a.state.resetAll()
		a.notifyEmpty()
		return
	}
	a.notifyPlayerCount()
	a.onPlayerCountChanged()
}

// handlePing answers with both clocks so clients can estimate skew.
func (a *RoomActor) handlePing(connID string, p PingPayload) {
	a.out.sendToConn(connID, ServerMessage{
		Type:    MsgPong,
		Payload: PongPayload{ServerTimestamp: a.nowMillis(), ClientTimestamp: p.Timestamp},
	})
}
