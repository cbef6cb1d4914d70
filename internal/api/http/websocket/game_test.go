package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"stop-game-be/internal/config"
	"stop-game-be/internal/service/dto"
	"stop-game-be/internal/service/errs"
	"stop-game-be/internal/state"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireResponse struct {
	RespType  string          `json:"response_type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	ErrKind   string          `json:"error_kind"`
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Port:              8080,
		RoomCodeRetries:   16,
		DefaultRounds:     3,
		DisconnectGrace:   time.Minute,
		TokenSecret:       "test-secret",
		TokenTTL:          time.Hour,
		SendBuffer:        32,
		RateLimit:         100,
		RateBurst:         100,
		HeartbeatInterval: time.Second,
		HeartbeatTimeout:  5 * time.Second,
	}
}

func newTestServer(t *testing.T, cfg *config.AppConfig) *httptest.Server {
	t.Helper()

	appState := state.NewAppState(cfg)
	t.Cleanup(appState.Close)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(appState, w, r)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func read(t *testing.T, conn *websocket.Conn) wireResponse {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var resp wireResponse
	require.NoError(t, conn.ReadJSON(&resp))

	return resp
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, respType string) wireResponse {
	t.Helper()

	for {
		resp := read(t, conn)
		if resp.RespType == respType {
			return resp
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, requestID string, reqType string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(dto.RequestWrapper{RequestID: requestID, ReqType: reqType, Data: raw}))
}

func connect(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, dto.ConnectedEvent) {
	t.Helper()

	conn := dial(t, srv, token)

	first := read(t, conn)
	require.Equal(t, dto.RESP_CONNECTED, first.RespType)

	var ev dto.ConnectedEvent
	require.NoError(t, json.Unmarshal(first.Data, &ev))
	require.NotEmpty(t, ev.PlayerID)
	require.NotEmpty(t, ev.Token)

	return conn, ev
}

func createRoom(t *testing.T, conn *websocket.Conn) dto.Room {
	t.Helper()

	send(t, conn, "create", dto.REQ_CREATE_ROOM, dto.CreateRoomRequest{Name: "room", Capacity: 4, DisplayName: "Alice"})

	ack := readUntil(t, conn, dto.RESP_ACK)
	require.Equal(t, "create", ack.RequestID)

	var body dto.RoomResponse
	require.NoError(t, json.Unmarshal(ack.Data, &body))

	return body.Room
}

func TestServeWS_JoinBroadcastsToMembers(t *testing.T) {
	srv := newTestServer(t, testConfig())

	alice, aliceEv := connect(t, srv, "")
	bob, bobEv := connect(t, srv, "")

	room := createRoom(t, alice)
	require.Len(t, room.Code, 6)

	send(t, bob, "join", dto.REQ_JOIN_ROOM, dto.JoinRoomRequest{Code: strings.ToLower(room.Code), DisplayName: "Bob"})

	// the broadcast precedes the requester's ack
	joined := read(t, bob)
	assert.Equal(t, dto.RESP_PLAYER_JOINED, joined.RespType)
	ack := read(t, bob)
	assert.Equal(t, dto.RESP_ACK, ack.RespType)
	assert.Equal(t, "join", ack.RequestID)

	seen := readUntil(t, alice, dto.RESP_PLAYER_JOINED)
	var ev dto.PlayerJoinedEvent
	require.NoError(t, json.Unmarshal(seen.Data, &ev))
	assert.Equal(t, bobEv.PlayerID, ev.Player.ID)
	assert.Equal(t, aliceEv.PlayerID, ev.Room.HostID)
}

func TestServeWS_RejectsMalformedAndUnknown(t *testing.T) {
	srv := newTestServer(t, testConfig())
	conn, _ := connect(t, srv, "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	resp := read(t, conn)
	assert.Equal(t, dto.RESP_ACTION_REJECTED, resp.RespType)
	assert.Equal(t, string(errs.InvalidPayload), resp.ErrKind)

	send(t, conn, "x", "Dance", nil)
	resp = read(t, conn)
	assert.Equal(t, dto.RESP_ACTION_REJECTED, resp.RespType)
	assert.Equal(t, "x", resp.RequestID)
	assert.Equal(t, string(errs.InvalidRoomState), resp.ErrKind)

	send(t, conn, "y", dto.REQ_LEAVE_ROOM, nil)
	resp = read(t, conn)
	assert.Equal(t, string(errs.NotInRoom), resp.ErrKind)
}

func TestServeWS_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1

	srv := newTestServer(t, cfg)
	conn, _ := connect(t, srv, "")

	send(t, conn, "1", dto.REQ_GET_ROOM_INFO, nil)
	send(t, conn, "2", dto.REQ_GET_ROOM_INFO, nil)

	first := read(t, conn)
	assert.Equal(t, string(errs.NotInRoom), first.ErrKind)

	second := read(t, conn)
	assert.Equal(t, dto.RESP_ACTION_REJECTED, second.RespType)
	assert.Equal(t, string(errs.RateLimited), second.ErrKind)
}

func TestServeWS_MalformedFramesCountTowardRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1

	srv := newTestServer(t, cfg)
	conn, _ := connect(t, srv, "")

	for i := 0; i < 3; i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	}

	assert.Equal(t, string(errs.InvalidPayload), read(t, conn).ErrKind)
	assert.Equal(t, string(errs.RateLimited), read(t, conn).ErrKind)
	assert.Equal(t, string(errs.RateLimited), read(t, conn).ErrKind)
}

func TestServeWS_ResumeWithToken(t *testing.T) {
	srv := newTestServer(t, testConfig())

	conn, ev := connect(t, srv, "")
	room := createRoom(t, conn)
	require.NoError(t, conn.Close())

	resumed, again := connect(t, srv, ev.Token)
	assert.True(t, again.Resumed)
	assert.Equal(t, ev.PlayerID, again.PlayerID)
	require.NotNil(t, again.Room)
	assert.Equal(t, room.Code, again.Room.Code)

	send(t, resumed, "info", dto.REQ_GET_ROOM_INFO, nil)
	ack := readUntil(t, resumed, dto.RESP_ACK)
	assert.Equal(t, "info", ack.RequestID)
}

func TestServeWS_BadTokenGetsFreshIdentity(t *testing.T) {
	srv := newTestServer(t, testConfig())

	_, ev := connect(t, srv, "not-a-token")
	assert.False(t, ev.Resumed)
	assert.Nil(t, ev.Room)
}

func TestServeWS_DisconnectLeavesRoomAfterGrace(t *testing.T) {
	cfg := testConfig()
	cfg.DisconnectGrace = 0

	srv := newTestServer(t, cfg)

	alice, _ := connect(t, srv, "")
	bob, bobEv := connect(t, srv, "")

	room := createRoom(t, alice)
	send(t, bob, "join", dto.REQ_JOIN_ROOM, dto.JoinRoomRequest{Code: room.Code, DisplayName: "Bob"})
	readUntil(t, bob, dto.RESP_ACK)
	readUntil(t, alice, dto.RESP_PLAYER_JOINED)

	require.NoError(t, bob.Close())

	left := readUntil(t, alice, dto.RESP_PLAYER_LEFT)
	var ev dto.PlayerLeftEvent
	require.NoError(t, json.Unmarshal(left.Data, &ev))
	assert.Equal(t, bobEv.PlayerID, ev.PlayerID)
	assert.Len(t, ev.Room.Players, 1)
}
