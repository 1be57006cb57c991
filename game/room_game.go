package game

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"spotit-server/deck"
)

// handleSetConfig applies a host-submitted config in Waiting/GameOver.
func (a *RoomActor) handleSetConfig(connID string, cfg RoomConfig) {
	player := a.state.playerByConn(connID)
	if player == nil {
		return
	}
	if player.ID != a.state.hostID {
		a.sendError(connID, ErrNotHost, "only the host can change the configuration")
		return
	}
	if a.state.phase != PhaseWaiting && a.state.phase != PhaseGameOver {
		a.sendError(connID, ErrInvalidState, "configuration is locked while a game is running")
		return
	}
	if err := cfg.Validate(); err != nil {
		a.sendError(connID, ErrInvalidState, err.Error())
		return
	}
	a.state.config = cfg
	a.out.broadcastAll(ServerMessage{Type: MsgConfigUpdated, Payload: ConfigUpdatedPayload{Config: cfg}})
}

// handleStartGame begins the countdown towards a new game.
func (a *RoomActor) handleStartGame(connID string, cfg *RoomConfig) {
	player := a.state.playerByConn(connID)
	if player == nil {
		return
	}
	if player.ID != a.state.hostID {
		a.sendError(connID, ErrNotHost, "only the host can start the game")
		return
	}
	if a.state.phase != PhaseWaiting {
		a.sendError(connID, ErrInvalidState, "the game can only start from the lobby")
		return
	}
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			a.sendError(connID, ErrInvalidState, err.Error())
			return
		}
		a.state.config = *cfg
		a.out.broadcastAll(ServerMessage{Type: MsgConfigUpdated, Payload: ConfigUpdatedPayload{Config: *cfg}})
	}
	if !a.state.hasEnoughPlayers() {
		a.sendError(connID, ErrInvalidState, "need at least two connected players")
		return
	}

	a.state.phase = PhaseCountdown
	a.timers.stopRoomTimeout()
	a.timers.startCountdown(a.cfg.CountdownSeconds)
	a.logger.Info("countdown started")
}

// handleCountdownTick broadcasts the step and either recurses, starts
// the game, or reverts to the lobby when players dropped out meanwhile.
func (a *RoomActor) handleCountdownTick(seconds int) {
	if a.state.phase != PhaseCountdown || !a.timers.isCountdownActive() {
		return
	}
	a.out.broadcastAll(ServerMessage{Type: MsgCountdown, Payload: CountdownPayload{Seconds: seconds}})
	if seconds > 0 {
		a.timers.nextCountdownTick(seconds - 1)
		return
	}
	a.timers.stopCountdown()
	if a.state.hasEnoughPlayers() {
		a.startGame()
	} else {
		a.abortCountdown()
	}
}

// abortCountdown returns to Waiting, tells clients with a -1 tick and
// re-arms the lobby timer.
func (a *RoomActor) abortCountdown() {
	a.timers.stopCountdown()
	a.state.phase = PhaseWaiting
	a.out.broadcastAll(ServerMessage{Type: MsgCountdown, Payload: CountdownPayload{Seconds: -1}})
	a.state.roomExpiresAt = a.now().Add(a.cfg.RoomTimeout)
	a.timers.startRoomTimeout(a.cfg.RoomTimeout)
	a.logger.Info("countdown cancelled")
}

// startGame builds the deck, deals and opens round one.
func (a *RoomActor) startGame() {
	cfg := a.state.config
	cards, err := deck.NewStandard(cfg.CardSetID, cfg.CustomSymbols)
	if err != nil {
		a.logger.Error("deck build failed", zap.Error(err))
		a.abortCountdown()
		return
	}

	if cfg.GameDuration < len(cards) {
		cards = cards[:cfg.GameDuration]
	}
	deck.Shuffle(cards, a.rng)
	a.state.fullDeck = cards

	center := cards[0]
	a.state.centerCard = &center

	players := a.state.orderedPlayers()
	rest := cards[1:]
	perPlayer := len(rest) / len(players)
	for i, p := range players {
		stack := make([]int, 0, perPlayer)
		for _, c := range rest[i*perPlayer : (i+1)*perPlayer] {
			stack = append(stack, c.ID)
		}
		p.CardStack = stack
	}

	a.state.phase = PhasePlaying
	a.state.roundNumber = 1
	a.state.roundWinnerID = ""
	a.state.roundMatchedSymbolID = -1
	a.arb.clear()

	a.logger.Info("game started",
		zap.Int("deck", len(cards)), zap.Int("perPlayer", perPlayer), zap.Int("players", len(players)))
	a.broadcastRoundStart()
}

// broadcastRoundStart fans out the per-player round opener.
func (a *RoomActor) broadcastRoundStart() {
	center := a.state.centerCard
	if center == nil {
		return
	}
	remaining := a.state.allPlayersRemaining()
	round := a.state.roundNumber
	a.out.broadcastPersonalised(a.state.orderedPlayers(), func(playerID string) (ServerMessage, bool) {
		p := a.state.players[playerID]
		if p == nil {
			return ServerMessage{}, false
		}
		return ServerMessage{
			Type: MsgRoundStart,
			Payload: RoundStartPayload{
				CenterCard:          *center,
				YourCard:            a.state.topCard(p),
				YourCardsRemaining:  len(p.CardStack),
				AllPlayersRemaining: remaining,
				RoundNumber:         round,
			},
		}, true
	})
}

// handleMatchAttempt runs the full validation pipeline for one click.
func (a *RoomActor) handleMatchAttempt(connID string, attempt MatchAttemptPayload) {
	player := a.state.playerByConn(connID)
	if player == nil {
		return
	}
	if !a.arb.validSymbol(attempt.SymbolID) {
		a.logger.Debug("symbol out of range", zap.Int("symbol", attempt.SymbolID))
		return
	}
	if !a.arb.allowAttempt(connID) {
		return
	}
	// Clicks landing between rounds change nothing and get no reply.
	if a.state.phase != PhasePlaying {
		return
	}
	if len(player.CardStack) == 0 {
		return
	}
	if a.arb.inPenalty(player.ID) {
		a.sendError(connID, ErrInPenalty, "wait out your penalty before matching again")
		return
	}

	top := a.state.topCard(player)
	center := a.state.centerCard
	if top == nil || center == nil {
		return
	}
	if !top.HasSymbol(attempt.SymbolID) || !center.HasSymbol(attempt.SymbolID) {
		a.arb.penalize(player.ID)
		a.out.sendToConn(connID, ServerMessage{
			Type: MsgPenalty,
			Payload: PenaltyPayload{
				ServerTimestamp: a.nowMillis(),
				DurationMs:      a.cfg.PenaltyDuration.Milliseconds(),
				Reason:          "invalid_match",
			},
		})
		return
	}

	opened := a.arb.submit(a.state.roundNumber, MatchAttempt{
		PlayerID:        player.ID,
		SymbolID:        attempt.SymbolID,
		ClientTimestamp: attempt.ClientTimestamp,
		ServerTimestamp: a.now(),
	})
	if opened {
		a.timers.startArbitration(a.cfg.ArbitrationWindow, a.state.roundNumber)
	}
}

// handleArbitration closes the window and crowns the round winner.
func (a *RoomActor) handleArbitration(round int) {
	a.timers.stopArbitration()
	winner, ok := a.arb.resolve(round)
	if !ok {
		return
	}
	if a.state.phase != PhasePlaying || round != a.state.roundNumber {
		return
	}
	player, exists := a.state.players[winner.PlayerID]
	if !exists || len(player.CardStack) == 0 {
		return
	}
	a.processRoundWin(player, winner.SymbolID)
}

// processRoundWin pops the winner's top card onto the centre and either
// ends the game or schedules the next round.
func (a *RoomActor) processRoundWin(winner *Player, symbolID int) {
	a.state.phase = PhaseRoundEnd
	a.state.roundWinnerID = winner.ID
	a.state.roundMatchedSymbolID = symbolID

	topID := winner.CardStack[0]
	winner.CardStack = winner.CardStack[1:]
	a.state.centerCard = a.state.cardByID(topID)

	a.out.broadcastAll(ServerMessage{
		Type: MsgRoundWinner,
		Payload: RoundWinnerPayload{
			WinnerID:             winner.ID,
			WinnerName:           winner.Name,
			MatchedSymbolID:      symbolID,
			WinnerCardsRemaining: len(winner.CardStack),
		},
	})

	if len(winner.CardStack) == 0 {
		a.endGame(EndReasonStackEmptied, winner)
		return
	}
	a.timers.startRoundEnd(a.cfg.RoundTransitionDelay, a.state.roundNumber)
}

// handleRoundEnd advances to the next round unless the game ended in
// the meantime.
func (a *RoomActor) handleRoundEnd(round int) {
	if a.state.phase != PhaseRoundEnd || round != a.state.roundNumber {
		return
	}
	a.state.roundNumber++
	a.state.roundWinnerID = ""
	a.state.roundMatchedSymbolID = -1
	a.state.phase = PhasePlaying
	a.broadcastRoundStart()
}

// onPlayerCountChanged applies the phase rules after a removal.
func (a *RoomActor) onPlayerCountChanged() {
	switch a.state.phase {
	case PhaseCountdown:
		if !a.state.hasEnoughPlayers() {
			a.abortCountdown()
		}
	case PhasePlaying, PhaseRoundEnd:
		if a.state.connectedCount() >= a.cfg.MinPlayers {
			return
		}
		var survivor *Player
		for _, p := range a.state.orderedPlayers() {
			if p.Status == StatusConnected {
				survivor = p
				break
			}
		}
		a.endGame(EndReasonLastPlayerStanding, survivor)
	}
}

// endGame closes every in-game timer, computes standings and opens the
// rejoin window.
func (a *RoomActor) endGame(reason string, winner *Player) {
	a.timers.stopRoundEnd()
	a.timers.stopArbitration()
	a.timers.stopCountdown()
	a.arb.clear()

	a.state.phase = PhaseGameOver
	if reason == EndReasonLastPlayerStanding && winner != nil {
		winner.CardStack = nil
	}

	players := a.state.orderedPlayers()
	sort.SliceStable(players, func(i, j int) bool {
		return len(players[i].CardStack) < len(players[j].CardStack)
	})
	standings := make([]Standing, 0, len(players))
	for _, p := range players {
		standings = append(standings, Standing{
			PlayerID:       p.ID,
			PlayerName:     p.Name,
			CardsRemaining: len(p.CardStack),
		})
	}
	if winner == nil && len(players) > 0 {
		winner = players[0]
	}

	a.state.lastGameEndReason = reason
	if winner != nil {
		a.state.lastWinnerID = winner.ID
		a.state.lastWinnerName = winner.Name
	}
	a.state.rejoinWindowEndsAt = a.now().Add(a.cfg.RejoinWindow)
	a.timers.startRejoinWindow(a.cfg.RejoinWindow)

	payload := GameOverPayload{
		Reason:         reason,
		FinalStandings: standings,
		RejoinWindowMs: a.cfg.RejoinWindow.Milliseconds(),
	}
	if winner != nil {
		payload.WinnerID = winner.ID
		payload.WinnerName = winner.Name
	}
	a.out.broadcastAll(ServerMessage{Type: MsgGameOver, Payload: payload})
	a.logger.Info("game over", zap.String("reason", reason))
}

// handlePlayAgain records a rematch opt-in and closes the window early
// once enough players want another game.
func (a *RoomActor) handlePlayAgain(connID string) {
	player := a.state.playerByConn(connID)
	if player == nil {
		return
	}
	if a.state.phase != PhaseGameOver || !a.isRejoinWindowActive() {
		a.sendError(connID, ErrInvalidState, "the rejoin window is closed")
		return
	}
	if a.state.playersWantRematch[player.ID] {
		return
	}
	a.state.playersWantRematch[player.ID] = true
	a.out.broadcastAll(ServerMessage{
		Type:    MsgPlayAgainAck,
		Payload: PlayAgainAckPayload{PlayerID: player.ID},
	})

	opted := 0
	for _, p := range a.state.orderedPlayers() {
		if p.Status == StatusConnected && a.state.playersWantRematch[p.ID] {
			opted++
		}
	}
	if opted >= a.cfg.MinPlayers {
		a.timers.stopRejoinWindow()
		a.finishRejoinWindow()
	}
}

func (a *RoomActor) handleRejoinWindowExpired() {
	if a.state.phase != PhaseGameOver {
		return
	}
	a.finishRejoinWindow()
}

// finishRejoinWindow settles the rematch: nobody stays, one player is
// gently booted, or the opted-in players get a fresh lobby.
func (a *RoomActor) finishRejoinWindow() {
	a.state.rejoinWindowEndsAt = time.Time{}

	var opted, others []*Player
	for _, p := range a.state.orderedPlayers() {
		if p.Status == StatusConnected && a.state.playersWantRematch[p.ID] {
			opted = append(opted, p)
		} else {
			others = append(others, p)
		}
	}

	switch len(opted) {
	case 0:
		a.expireRoom("rejoin_window_expired")

	case 1:
		solo := opted[0]
		for _, p := range others {
			if p.ConnID != "" {
				a.out.closeConn(p.ConnID)
			}
			a.timers.stopGracePeriod(p.ID)
			a.state.removePlayer(p.ID)
		}
		// hostID stays paired with the remaining player until the boot
		// fires; removing a declining host cleared it.
		if a.state.hostID == "" {
			solo.IsHost = true
			a.state.hostID = solo.ID
		}
		a.out.sendToConn(solo.ConnID, ServerMessage{
			Type:    MsgSoloRejoinBoot,
			Payload: SoloRejoinBootPayload{Message: "nobody else wants a rematch, see you next time"},
		})
		a.timers.startSoloBoot(a.cfg.SoloBootDelay, solo.ConnID)

	default:
		for _, p := range others {
			if p.ConnID != "" {
				a.out.closeConn(p.ConnID)
			}
			a.timers.stopGracePeriod(p.ID)
			a.state.removePlayer(p.ID)
		}
		a.state.resetGameState()

		host := a.state.players[a.state.hostID]
		if host == nil {
			if next := a.state.firstPlayer(); next != nil {
				for _, p := range a.state.players {
					p.IsHost = false
				}
				next.IsHost = true
				a.state.hostID = next.ID
				if next.ConnID != "" {
					a.out.sendToConn(next.ConnID, ServerMessage{Type: MsgYouAreHost, Payload: struct{}{}})
				}
			}
		}

		a.state.roomExpiresAt = a.now().Add(a.cfg.RoomTimeout)
		a.timers.startRoomTimeout(a.cfg.RoomTimeout)
		a.notifyPlayerCount()
		a.out.broadcastAll(ServerMessage{Type: MsgRoomReset, Payload: struct{}{}})
		a.broadcastSnapshots()
		a.logger.Info("room reset for rematch", zap.Int("players", len(opted)))
	}
}

// handleSoloBoot closes the last rematch holdout and retires the room.
func (a *RoomActor) handleSoloBoot(connID string) {
	a.out.closeConn(connID)
	a.timers.clearAll()
	a.state.resetAll()
	a.notifyEmpty()
}

// handleRoomTimeout expires an idle lobby.
func (a *RoomActor) handleRoomTimeout() {
	if a.state.phase != PhaseWaiting {
		return
	}
	a.logger.Info("lobby expired")
	a.expireRoom("room_timeout")
}
