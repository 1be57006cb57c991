package game

import (
	"github.com/lguibr/bollywood"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

// broadcaster owns the connection registry of a room and serialises
// every outgoing frame. It runs on the room actor's goroutine, so a
// personalised fan-out is atomic with the handler that triggered it:
// no other message is processed between recipient A and recipient B.
type broadcaster struct {
	engine *bollywood.Engine
	self   *bollywood.PID
	logger *zap.Logger
	conns  map[string]*websocket.Conn
}

func newBroadcaster(engine *bollywood.Engine, self *bollywood.PID, logger *zap.Logger) *broadcaster {
	return &broadcaster{
		engine: engine,
		self:   self,
		logger: logger,
		conns:  make(map[string]*websocket.Conn),
	}
}

func (b *broadcaster) register(connID string, conn *websocket.Conn) {
	b.conns[connID] = conn
}

func (b *broadcaster) unregister(connID string) {
	delete(b.conns, connID)
}

func (b *broadcaster) hasConn(connID string) bool {
	_, ok := b.conns[connID]
	return ok
}

// closeConn closes and forgets a connection without emitting a
// disconnect signal; used when the room itself evicts the client.
func (b *broadcaster) closeConn(connID string) {
	if conn, ok := b.conns[connID]; ok {
		_ = conn.Close()
		delete(b.conns, connID)
	}
}

func (b *broadcaster) closeAll() {
	for id, conn := range b.conns {
		_ = conn.Close()
		delete(b.conns, id)
	}
}

// sendToConn writes one frame. A write failure is reported back to the
// room mailbox as a disconnect; the transport owns any blocking.
func (b *broadcaster) sendToConn(connID string, msg ServerMessage) {
	conn, ok := b.conns[connID]
	if !ok {
		return
	}
	if err := websocket.JSON.Send(conn, msg); err != nil {
		b.logger.Debug("write failed, signalling disconnect",
			zap.String("conn", connID), zap.String("type", msg.Type), zap.Error(err))
		if b.engine != nil && b.self != nil {
			b.engine.Send(b.self, ClientDisconnected{ConnID: connID}, nil)
		}
	}
}

// broadcastAll sends identical bytes to every registered connection.
// Only messages with no recipient-dependent fields may use it.
func (b *broadcaster) broadcastAll(msg ServerMessage) {
	for connID := range b.conns {
		b.sendToConn(connID, msg)
	}
}

// broadcastPersonalised renders a per-recipient payload for every
// connected recipient. It is the only legal path for messages whose
// payload depends on the recipient's identity (isYou, yourCard,
// penaltyRemainingMs).
func (b *broadcaster) broadcastPersonalised(recipients []*Player, render func(playerID string) (ServerMessage, bool)) {
	for _, p := range recipients {
		if p.Status != StatusConnected || p.ConnID == "" {
			continue
		}
		if msg, ok := render(p.ID); ok {
			b.sendToConn(p.ConnID, msg)
		}
	}
}

func errorMessage(code ErrorCode, message string) ServerMessage {
	return ServerMessage{Type: MsgError, Payload: ErrorPayload{Code: code, Message: message}}
}
