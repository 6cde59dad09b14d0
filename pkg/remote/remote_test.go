package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamburr/soccer/pkg/protocol"
)

type fakeCaller struct {
	mu    sync.Mutex
	calls []protocol.CallData
	err   error
}

func (f *fakeCaller) Call(_ context.Context, name string, raw map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, protocol.CallData{Function: name, Args: raw})
	return f.err
}

func (f *fakeCaller) last() protocol.CallData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func status() protocol.StatusData {
	return protocol.StatusData{Strategy: "attack", Started: true, Heading: 12}
}

func listen(t *testing.T, h *Hub, addr string) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	h.RegisterRoutes(app)
	h.RegisterAPIRoutes(app.Group("/api"))

	go app.Listen(addr)
	t.Cleanup(func() { app.Shutdown() })
	time.Sleep(100 * time.Millisecond)
	return app
}

func read(t *testing.T, ws *websocket.Conn) *protocol.Message {
	t.Helper()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.ParseMessage(data)
	require.NoError(t, err)
	return msg
}

func write(t *testing.T, ws *websocket.Conn, msg *protocol.Message) {
	t.Helper()

	data, err := msg.Bytes()
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, data))
}

func TestNewHub(t *testing.T) {
	h := NewHub(nil, nil)

	assert.Equal(t, 0, h.SessionCount())
	assert.Empty(t, h.SessionInfos())
	assert.Equal(t, Stats{}, h.Stats())
}

func TestSendTo_NotConnected(t *testing.T) {
	h := NewHub(nil, nil)

	msg, err := protocol.NewPingMessage("x")
	require.NoError(t, err)
	assert.ErrorIs(t, h.SendTo("nobody", msg), ErrNotConnected)
}

func TestConsoleRoute_RejectsPlainHTTP(t *testing.T) {
	h := NewHub(nil, nil)
	app := fiber.New()
	h.RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/ws/console", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestConsole_StatusOnConnect(t *testing.T) {
	h := NewHub(&fakeCaller{}, status)
	listen(t, h, ":18100")

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18100/ws/console/laptop", nil)
	require.NoError(t, err)
	defer ws.Close()

	msg := read(t, ws)
	require.Equal(t, protocol.TypeStatus, msg.Type)
	got, err := msg.GetStatusData()
	require.NoError(t, err)
	assert.Equal(t, "attack", got.Strategy)
	assert.True(t, got.Started)

	require.Eventually(t, func() bool { return h.SessionCount() == 1 }, time.Second, 10*time.Millisecond)
	infos := h.SessionInfos()
	require.Len(t, infos, 1)
	assert.Equal(t, "laptop", infos[0].ID)

	ws.Close()
	require.Eventually(t, func() bool { return h.SessionCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestConsole_Call(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantOK  bool
		wantErr string
	}{
		{name: "succeeds", wantOK: true},
		{name: "fails", err: errors.New("bad argument"), wantErr: "bad argument"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &fakeCaller{err: tt.err}
			h := NewHub(caller, nil)
			addr := []string{":18101", ":18102"}[i]
			listen(t, h, addr)

			ws, _, err := websocket.DefaultDialer.Dial("ws://localhost"+addr+"/ws/console", nil)
			require.NoError(t, err)
			defer ws.Close()

			call, err := protocol.NewCallMessage("drive", map[string]string{"speed": "0.5"})
			require.NoError(t, err)
			write(t, ws, call)

			msg := read(t, ws)
			require.Equal(t, protocol.TypeResult, msg.Type)
			res, err := msg.GetResultData()
			require.NoError(t, err)
			assert.Equal(t, call.ID, res.CallID)
			assert.Equal(t, "drive", res.Function)
			assert.Equal(t, tt.wantOK, res.OK)
			assert.Equal(t, tt.wantErr, res.Error)

			assert.Equal(t, "0.5", caller.last().Args["speed"])
			if tt.err != nil {
				assert.Equal(t, uint64(1), h.Stats().CallsFailed)
			}
		})
	}
}

func TestConsole_PingPong(t *testing.T) {
	h := NewHub(nil, nil)
	listen(t, h, ":18103")

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18103/ws/console", nil)
	require.NoError(t, err)
	defer ws.Close()

	ping, err := protocol.NewPingMessage("p1")
	require.NoError(t, err)
	write(t, ws, ping)

	msg := read(t, ws)
	require.Equal(t, protocol.TypePong, msg.Type)
	pong, err := msg.GetPongData()
	require.NoError(t, err)
	assert.Equal(t, "p1", pong.ID)
	assert.Equal(t, ping.Timestamp, pong.PingTS)
	assert.GreaterOrEqual(t, pong.LatencyMs, int64(0))

	require.Eventually(t, func() bool { return h.Stats().MessagesReceived == 1 }, time.Second, 10*time.Millisecond)
}

func TestRun_BroadcastsStatus(t *testing.T) {
	h := NewHub(nil, status)
	listen(t, h, ":18104")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx, 20*time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18104/ws/console", nil)
	require.NoError(t, err)
	defer ws.Close()

	// One on connect, then the ticker.
	for i := 0; i < 3; i++ {
		assert.Equal(t, protocol.TypeStatus, read(t, ws).Type)
	}
}

func TestAPIRoutes(t *testing.T) {
	h := NewHub(nil, nil)
	app := fiber.New()
	h.RegisterAPIRoutes(app.Group("/api"))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/consoles/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var stats Stats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 0, stats.Consoles)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/consoles", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"consoles":[],"count":0}`, string(body))
}
