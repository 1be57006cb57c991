package game

import (
	"fmt"
	"runtime/debug"

	"github.com/lguibr/bollywood"
	"go.uber.org/zap"

	"spotit-server/utils"
)

// maxRooms bounds the number of concurrently live rooms.
const maxRooms = 256

// RoomInfo is the manager's record of one live room.
type RoomInfo struct {
	PID         *bollywood.PID
	PlayerCount int
}

// RoomManagerActor owns the roomID -> room actor registry. Rooms are
// created on first demand and stopped once they report empty.
type RoomManagerActor struct {
	engine  *bollywood.Engine
	cfg     utils.Config
	logger  *zap.Logger
	rooms   map[string]*RoomInfo
	selfPID *bollywood.PID
}

// NewRoomManagerProducer creates the producer for the manager actor.
func NewRoomManagerProducer(engine *bollywood.Engine, cfg utils.Config, logger *zap.Logger) bollywood.Producer {
	return func() bollywood.Actor {
		return &RoomManagerActor{
			engine: engine,
			cfg:    cfg,
			logger: logger.With(zap.String("actor", "room_manager")),
			rooms:  make(map[string]*RoomInfo),
		}
	}
}

func (a *RoomManagerActor) Receive(ctx bollywood.Context) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic recovered in room manager",
				zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			if ctx.RequestID() != "" {
				ctx.Reply(fmt.Errorf("room manager panicked: %v", r))
			}
		}
	}()

	if a.selfPID == nil {
		a.selfPID = ctx.Self()
	}

	switch msg := ctx.Message().(type) {
	case bollywood.Started:
		a.logger.Info("room manager started")

	case FindRoomRequest:
		a.handleFindRoom(msg)

	case RoomPlayerCount:
		if info, ok := a.rooms[msg.RoomID]; ok {
			info.PlayerCount = msg.Count
		}

	case RoomEmpty:
		a.handleRoomEmpty(msg)

	case GetRoomListRequest:
		a.handleGetRoomList(ctx)

	case bollywood.Stopping:
		a.logger.Info("room manager stopping", zap.Int("rooms", len(a.rooms)))
		for id, info := range a.rooms {
			if info.PID != nil {
				a.engine.Stop(info.PID)
			}
			delete(a.rooms, id)
		}

	case bollywood.Stopped:

	default:
		a.logger.Warn("unknown message", zap.Any("message", msg))
		if ctx.RequestID() != "" {
			ctx.Reply(fmt.Errorf("unknown message type: %T", msg))
		}
	}
}

// handleFindRoom answers with the existing room actor or spawns one.
// A nil PID in the response means the manager is at capacity.
func (a *RoomManagerActor) handleFindRoom(msg FindRoomRequest) {
	if msg.ReplyTo == nil {
		return
	}

	if info, ok := a.rooms[msg.RoomID]; ok && info.PID != nil {
		a.engine.Send(msg.ReplyTo, AssignRoomResponse{RoomID: msg.RoomID, RoomPID: info.PID}, a.selfPID)
		return
	}

	if len(a.rooms) >= maxRooms {
		a.logger.Warn("room capacity reached", zap.Int("max", maxRooms))
		a.engine.Send(msg.ReplyTo, AssignRoomResponse{RoomID: msg.RoomID, RoomPID: nil}, a.selfPID)
		return
	}

	props := bollywood.NewProps(NewRoomActorProducer(msg.RoomID, a.cfg, a.engine, a.selfPID, a.logger))
	pid := a.engine.Spawn(props)
	if pid == nil {
		a.logger.Error("failed to spawn room actor", zap.String("room", msg.RoomID))
		a.engine.Send(msg.ReplyTo, AssignRoomResponse{RoomID: msg.RoomID, RoomPID: nil}, a.selfPID)
		return
	}

	a.rooms[msg.RoomID] = &RoomInfo{PID: pid}
	a.logger.Info("room created", zap.String("room", msg.RoomID))
	a.engine.Send(msg.ReplyTo, AssignRoomResponse{RoomID: msg.RoomID, RoomPID: pid}, a.selfPID)
}

// handleRoomEmpty tears the room down; a stale report for a room that
// was already replaced is ignored.
func (a *RoomManagerActor) handleRoomEmpty(msg RoomEmpty) {
	info, ok := a.rooms[msg.RoomID]
	if !ok {
		return
	}
	if msg.RoomPID != nil && info.PID != nil && info.PID != msg.RoomPID {
		return
	}
	delete(a.rooms, msg.RoomID)
	a.logger.Info("room removed", zap.String("room", msg.RoomID))
	if info.PID != nil {
		a.engine.Stop(info.PID)
	}
}

// handleGetRoomList serves the listing over Ask.
func (a *RoomManagerActor) handleGetRoomList(ctx bollywood.Context) {
	rooms := make(map[string]int, len(a.rooms))
	for id, info := range a.rooms {
		rooms[id] = info.PlayerCount
	}
	if ctx.RequestID() != "" {
		ctx.Reply(RoomListResponse{Rooms: rooms})
	}
}
