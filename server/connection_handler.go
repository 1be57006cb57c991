package server

import (
	"encoding/json"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/lguibr/bollywood"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"spotit-server/game"
)

// errActorStopping marks cleanup triggered by the actor's own shutdown,
// as opposed to the transport failing underneath it.
var errActorStopping = errors.New("connection handler actor stopping")

// readLoopExited is posted by the read goroutine when it returns.
type readLoopExited struct{}

// inboundFrame is one decoded wire envelope from the read goroutine.
type inboundFrame struct {
	envelope game.ClientEnvelope
}

// ConnectionHandlerActor owns one WebSocket connection: it resolves the
// room with the manager, registers the connection there, then pumps
// frames from its read goroutine into the room's mailbox.
type ConnectionHandlerActor struct {
	connID      string
	roomID      string
	reconnectID string
	conn        *websocket.Conn
	engine      *bollywood.Engine
	managerPID  *bollywood.PID
	roomPID     *bollywood.PID
	selfPID     *bollywood.PID
	logger      *zap.Logger

	stopReadLoop   chan struct{}
	readLoopDone   chan struct{}
	done           chan struct{}
	assigned       bool
	closeOnce      sync.Once
	disconnectSent bool
}

// ConnectionHandlerArgs bundles what the HTTP handler knows at upgrade
// time.
type ConnectionHandlerArgs struct {
	ConnID      string
	RoomID      string
	ReconnectID string
	Conn        *websocket.Conn
	Engine      *bollywood.Engine
	ManagerPID  *bollywood.PID
	Logger      *zap.Logger
	Done        chan struct{}
}

// NewConnectionHandlerProducer creates the producer for one connection.
func NewConnectionHandlerProducer(args ConnectionHandlerArgs) bollywood.Producer {
	return func() bollywood.Actor {
		return &ConnectionHandlerActor{
			connID:       args.ConnID,
			roomID:       args.RoomID,
			reconnectID:  args.ReconnectID,
			conn:         args.Conn,
			engine:       args.Engine,
			managerPID:   args.ManagerPID,
			logger:       args.Logger.With(zap.String("conn", args.ConnID), zap.String("room", args.RoomID)),
			stopReadLoop: make(chan struct{}),
			readLoopDone: make(chan struct{}),
			done:         args.Done,
		}
	}
}

func (a *ConnectionHandlerActor) Receive(ctx bollywood.Context) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic recovered in connection handler",
				zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			a.cleanup(errActorStopping)
		}
	}()

	if a.selfPID == nil {
		a.selfPID = ctx.Self()
	}

	switch msg := ctx.Message().(type) {
	case bollywood.Started:
		if a.managerPID == nil {
			a.logger.Error("no room manager, closing connection")
			a.cleanup(errors.New("missing room manager"))
			return
		}
		a.engine.Send(a.managerPID, game.FindRoomRequest{RoomID: a.roomID, ReplyTo: a.selfPID}, a.selfPID)

	case game.AssignRoomResponse:
		if msg.RoomPID == nil {
			a.sendRaw(game.ServerMessage{
				Type:    game.MsgError,
				Payload: game.ErrorPayload{Code: game.ErrRoomNotFound, Message: "server is at room capacity"},
			})
			a.cleanup(errors.New("room assignment failed"))
			return
		}
		a.roomPID = msg.RoomPID
		a.assigned = true
		a.engine.Send(a.roomPID, game.ClientConnected{
			ConnID:      a.connID,
			Conn:        a.conn,
			ReconnectID: a.reconnectID,
		}, a.selfPID)
		go a.readLoop(a.engine, a.selfPID)

	case inboundFrame:
		if a.assigned && a.roomPID != nil {
			a.engine.Send(a.roomPID, game.ClientMessage{
				ConnID:  a.connID,
				Type:    msg.envelope.Type,
				Payload: msg.envelope.Payload,
			}, a.selfPID)
		}

	case readLoopExited:
		a.cleanup(errors.New("read loop exited"))

	case bollywood.Stopping:
		a.signalAndWaitForReadLoop()
		a.performCleanupActions(errActorStopping)

	case bollywood.Stopped:
		a.closeOnce.Do(func() {
			if a.done != nil {
				close(a.done)
				a.done = nil
			}
		})

	default:
		a.logger.Debug("unknown message", zap.Any("message", msg))
	}
}

// readLoop blocks on the socket and posts frames to the actor mailbox.
// It never touches actor state beyond the channels it owns.
func (a *ConnectionHandlerActor) readLoop(engine *bollywood.Engine, selfPID *bollywood.PID) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic recovered in read loop",
				zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
		close(a.readLoopDone)
		if engine != nil && selfPID != nil {
			engine.Send(selfPID, readLoopExited{}, nil)
		}
	}()

	for {
		select {
		case <-a.stopReadLoop:
			return
		default:
		}

		conn := a.conn
		if conn == nil {
			return
		}
		var raw json.RawMessage
		if err := websocket.JSON.Receive(conn, &raw); err != nil {
			return
		}

		var envelope game.ClientEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Type == "" {
			a.logger.Debug("dropping unparseable frame", zap.Error(err))
			continue
		}
		engine.Send(selfPID, inboundFrame{envelope: envelope}, nil)
	}
}

// sendRaw writes one frame before any room registration exists.
func (a *ConnectionHandlerActor) sendRaw(msg game.ServerMessage) {
	if a.conn != nil {
		_ = websocket.JSON.Send(a.conn, msg)
	}
}

func (a *ConnectionHandlerActor) signalAndWaitForReadLoop() {
	select {
	case <-a.stopReadLoop:
		return
	default:
		close(a.stopReadLoop)
	}

	if a.conn != nil {
		_ = a.conn.Close()
	}

	select {
	case <-a.readLoopDone:
	case <-time.After(2 * time.Second):
		a.logger.Warn("timeout waiting for read loop to exit")
	}
}

// cleanup tears the session down and stops the actor unless the actor
// is already stopping.
func (a *ConnectionHandlerActor) cleanup(reason error) {
	a.signalAndWaitForReadLoop()
	a.performCleanupActions(reason)
	if !errors.Is(reason, errActorStopping) {
		if a.engine != nil && a.selfPID != nil {
			a.engine.Stop(a.selfPID)
		}
	}
}

// performCleanupActions reports the disconnect to the room exactly once
// and closes the socket.
func (a *ConnectionHandlerActor) performCleanupActions(reason error) {
	if a.assigned && a.roomPID != nil && !a.disconnectSent {
		a.disconnectSent = true
		a.engine.Send(a.roomPID, game.ClientDisconnected{ConnID: a.connID}, a.selfPID)
	}
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
	a.assigned = false
}
