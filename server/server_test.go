package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lguibr/bollywood"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"spotit-server/game"
	"spotit-server/utils"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func setupTestServer(t *testing.T) (*httptest.Server, *bollywood.Engine) {
	t.Helper()
	engine := bollywood.NewEngine()
	logger := zap.NewNop()
	managerPID := engine.Spawn(bollywood.NewProps(game.NewRoomManagerProducer(engine, utils.DefaultConfig(), logger)))
	require.NotNil(t, managerPID)

	srv := New(engine, managerPID, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	time.Sleep(20 * time.Millisecond)
	return ts, engine
}

func dialRoom(t *testing.T, ts *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + roomID
	conn, err := websocket.Dial(wsURL, "", ts.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	require.NoError(t, websocket.JSON.Send(conn, map[string]any{"type": msgType, "payload": payload}))
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f frame
	require.NoError(t, websocket.JSON.Receive(conn, &f))
	return f
}

func readUntil(t *testing.T, conn *websocket.Conn, msgType string) frame {
	t.Helper()
	for i := 0; i < 20; i++ {
		f := readFrame(t, conn)
		if f.Type == msgType {
			return f
		}
	}
	t.Fatalf("never received %q", msgType)
	return frame{}
}

func TestHealthEndpoint(t *testing.T) {
	ts, engine := setupTestServer(t)
	defer engine.Shutdown(2 * time.Second)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestJoinRoomEndToEnd(t *testing.T) {
	ts, engine := setupTestServer(t)
	defer engine.Shutdown(2 * time.Second)

	conn := dialRoom(t, ts, "game-night")
	sendFrame(t, conn, game.MsgJoin, game.JoinPayload{PlayerName: "Alice"})

	f := readUntil(t, conn, game.MsgYouAreHost)
	assert.Equal(t, game.MsgYouAreHost, f.Type)

	f = readUntil(t, conn, game.MsgRoomState)
	var snapshot game.RoomStatePayload
	require.NoError(t, json.Unmarshal(f.Payload, &snapshot))
	assert.Equal(t, game.PhaseWaiting, snapshot.Phase)
	require.Len(t, snapshot.Players, 1)
	assert.Equal(t, "Alice", snapshot.Players[0].Name)
	assert.True(t, snapshot.Players[0].IsYou)
}

func TestTwoPlayersSeeEachOther(t *testing.T) {
	ts, engine := setupTestServer(t)
	defer engine.Shutdown(2 * time.Second)

	alice := dialRoom(t, ts, "game-night")
	sendFrame(t, alice, game.MsgJoin, game.JoinPayload{PlayerName: "Alice"})
	readUntil(t, alice, game.MsgRoomState)

	bob := dialRoom(t, ts, "game-night")
	sendFrame(t, bob, game.MsgJoin, game.JoinPayload{PlayerName: "Bob"})

	f := readUntil(t, alice, game.MsgPlayerJoined)
	var joined game.PlayerJoinedPayload
	require.NoError(t, json.Unmarshal(f.Payload, &joined))
	assert.Equal(t, "Bob", joined.Player.Name)

	f = readUntil(t, bob, game.MsgRoomState)
	var snapshot game.RoomStatePayload
	require.NoError(t, json.Unmarshal(f.Payload, &snapshot))
	assert.Len(t, snapshot.Players, 2)
}

func TestDisconnectIsBroadcast(t *testing.T) {
	ts, engine := setupTestServer(t)
	defer engine.Shutdown(2 * time.Second)

	alice := dialRoom(t, ts, "game-night")
	sendFrame(t, alice, game.MsgJoin, game.JoinPayload{PlayerName: "Alice"})
	readUntil(t, alice, game.MsgRoomState)

	bob := dialRoom(t, ts, "game-night")
	sendFrame(t, bob, game.MsgJoin, game.JoinPayload{PlayerName: "Bob"})
	readUntil(t, alice, game.MsgPlayerJoined)

	require.NoError(t, bob.Close())

	f := readUntil(t, alice, game.MsgPlayerDisconnected)
	var gone game.PlayerDisconnectedPayload
	require.NoError(t, json.Unmarshal(f.Payload, &gone))
	assert.NotEmpty(t, gone.PlayerID)
}

func TestPingPong(t *testing.T) {
	ts, engine := setupTestServer(t)
	defer engine.Shutdown(2 * time.Second)

	conn := dialRoom(t, ts, "game-night")
	sendFrame(t, conn, game.MsgJoin, game.JoinPayload{PlayerName: "Alice"})
	readUntil(t, conn, game.MsgRoomState)

	sent := time.Now().UnixMilli()
	sendFrame(t, conn, game.MsgPing, game.PingPayload{Timestamp: sent})

	f := readUntil(t, conn, game.MsgPong)
	var pong game.PongPayload
	require.NoError(t, json.Unmarshal(f.Payload, &pong))
	assert.Equal(t, sent, pong.ClientTimestamp)
	assert.NotZero(t, pong.ServerTimestamp)
}

func TestRoomListing(t *testing.T) {
	ts, engine := setupTestServer(t)
	defer engine.Shutdown(2 * time.Second)

	conn := dialRoom(t, ts, "listed-room")
	sendFrame(t, conn, game.MsgJoin, game.JoinPayload{PlayerName: "Alice"})
	readUntil(t, conn, game.MsgRoomState)
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get(ts.URL + "/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list game.RoomListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Contains(t, list.Rooms, "listed-room")
	assert.Equal(t, 1, list.Rooms["listed-room"])
}
