package game

import (
	"time"

	"github.com/lguibr/bollywood"
)

// timerService owns every deferred action of a room by named handle.
// A fired timer never touches state directly: it posts a message to
// the room's own mailbox, and the handler re-checks preconditions,
// because the timer races state transitions up to the mailbox boundary.
type timerService struct {
	engine *bollywood.Engine
	self   *bollywood.PID

	roomTimeout  *time.Timer
	countdown    *time.Timer
	roundEnd     *time.Timer
	rejoinWindow *time.Timer
	arbitration  *time.Timer
	soloBoot     *time.Timer
	grace        map[string]*time.Timer // playerID -> grace handle

	countdownActive bool
}

func newTimerService(engine *bollywood.Engine, self *bollywood.PID) *timerService {
	return &timerService{
		engine: engine,
		self:   self,
		grace:  make(map[string]*time.Timer),
	}
}

// post delivers msg to the room mailbox after d.
func (t *timerService) post(d time.Duration, msg any) *time.Timer {
	engine, self := t.engine, t.self
	return time.AfterFunc(d, func() {
		if engine != nil && self != nil {
			engine.Send(self, msg, nil)
		}
	})
}

func stop(timer **time.Timer) {
	if *timer != nil {
		(*timer).Stop()
		*timer = nil
	}
}

// --- Room timeout (lobby expiry) ---

func (t *timerService) startRoomTimeout(d time.Duration) {
	stop(&t.roomTimeout)
	t.roomTimeout = t.post(d, roomTimeoutFired{})
}

func (t *timerService) stopRoomTimeout() { stop(&t.roomTimeout) }

// --- Countdown (self-rescheduling 1s steps) ---

// startCountdown arms the first tick immediately; subsequent steps are
// scheduled by the handler via nextCountdownTick.
func (t *timerService) startCountdown(seconds int) {
	stop(&t.countdown)
	t.countdownActive = true
	t.countdown = t.post(0, countdownTickFired{Seconds: seconds})
}

func (t *timerService) nextCountdownTick(seconds int) {
	if !t.countdownActive {
		return
	}
	stop(&t.countdown)
	t.countdown = t.post(time.Second, countdownTickFired{Seconds: seconds})
}

func (t *timerService) stopCountdown() {
	stop(&t.countdown)
	t.countdownActive = false
}

func (t *timerService) isCountdownActive() bool { return t.countdownActive }

// --- Round transition ---

func (t *timerService) startRoundEnd(d time.Duration, round int) {
	stop(&t.roundEnd)
	t.roundEnd = t.post(d, roundEndFired{Round: round})
}

func (t *timerService) stopRoundEnd() { stop(&t.roundEnd) }

// --- Arbitration window ---

func (t *timerService) startArbitration(d time.Duration, round int) {
	stop(&t.arbitration)
	t.arbitration = t.post(d, arbitrationFired{Round: round})
}

func (t *timerService) stopArbitration() { stop(&t.arbitration) }

// --- Rejoin window ---

func (t *timerService) startRejoinWindow(d time.Duration) {
	stop(&t.rejoinWindow)
	t.rejoinWindow = t.post(d, rejoinWindowFired{})
}

func (t *timerService) stopRejoinWindow() { stop(&t.rejoinWindow) }

// --- Solo rejoin boot ---

func (t *timerService) startSoloBoot(d time.Duration, connID string) {
	stop(&t.soloBoot)
	t.soloBoot = t.post(d, soloBootFired{ConnID: connID})
}

// --- Per-player grace periods ---

func (t *timerService) startGracePeriod(playerID string, d time.Duration) {
	t.stopGracePeriod(playerID)
	t.grace[playerID] = t.post(d, gracePeriodFired{PlayerID: playerID})
}

func (t *timerService) stopGracePeriod(playerID string) {
	if timer, ok := t.grace[playerID]; ok {
		timer.Stop()
		delete(t.grace, playerID)
	}
}

// clearAll cancels every live handle; used on teardown and full reset.
func (t *timerService) clearAll() {
	stop(&t.roomTimeout)
	t.stopCountdown()
	stop(&t.roundEnd)
	stop(&t.rejoinWindow)
	stop(&t.arbitration)
	stop(&t.soloBoot)
	for id, timer := range t.grace {
		timer.Stop()
		delete(t.grace, id)
	}
}
