package server

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lguibr/bollywood"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"spotit-server/game"
)

// Server wires the HTTP surface to the actor system. One connection
// handler actor is spawned per accepted WebSocket.
type Server struct {
	engine     *bollywood.Engine
	managerPID *bollywood.PID
	logger     *zap.Logger
}

func New(engine *bollywood.Engine, managerPID *bollywood.PID, logger *zap.Logger) *Server {
	return &Server{
		engine:     engine,
		managerPID: managerPID,
		logger:     logger.With(zap.String("component", "server")),
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.handleRoomList).Methods(http.MethodGet)
	r.Handle("/ws/{roomId}", websocket.Handler(s.handleWebSocket))
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleRoomList asks the manager for the live room listing.
func (s *Server) handleRoomList(w http.ResponseWriter, _ *http.Request) {
	result, err := s.engine.Ask(s.managerPID, game.GetRoomListRequest{}, 2*time.Second)
	if err != nil {
		s.logger.Error("room list query failed", zap.Error(err))
		http.Error(w, "room listing unavailable", http.StatusServiceUnavailable)
		return
	}
	list, ok := result.(game.RoomListResponse)
	if !ok {
		s.logger.Error("unexpected room list reply", zap.Any("reply", result))
		http.Error(w, "room listing unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(list); err != nil {
		s.logger.Error("writing room list failed", zap.Error(err))
	}
}

// handleWebSocket runs for the lifetime of one connection. It blocks
// until the connection handler actor is fully stopped so the websocket
// package does not close the socket under the actor's feet.
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic recovered in websocket handler",
				zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
		_ = ws.Close()
	}()

	req := ws.Request()
	roomID := mux.Vars(req)["roomId"]
	if roomID == "" {
		s.logger.Warn("websocket request without room id")
		return
	}
	reconnectID := req.URL.Query().Get("reconnectId")
	connID := uuid.NewString()

	done := make(chan struct{})
	props := bollywood.NewProps(NewConnectionHandlerProducer(ConnectionHandlerArgs{
		ConnID:      connID,
		RoomID:      roomID,
		ReconnectID: reconnectID,
		Conn:        ws,
		Engine:      s.engine,
		ManagerPID:  s.managerPID,
		Logger:      s.logger,
		Done:        done,
	}))
	pid := s.engine.Spawn(props)
	if pid == nil {
		s.logger.Error("failed to spawn connection handler",
			zap.String("room", roomID), zap.String("conn", connID))
		return
	}

	<-done
}
