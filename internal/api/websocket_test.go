package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/siddheshvrane/solar-dashboard/internal/dashboard"
	"github.com/siddheshvrane/solar-dashboard/internal/models"
	"github.com/siddheshvrane/solar-dashboard/internal/testutil"
)

func startHub(t *testing.T, p *fakePoller) (*Hub, *websocket.Conn) {
	t.Helper()
	h := newTestHandler(p, nil)
	hub := NewHub(h, zap.NewNop(), nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	RegisterRoutes(e, h, NewHealthHandler("test", p, nil), hub)
	srv := httptest.NewServer(e)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		srv.Close()
	})
	return hub, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_ConnectSendsDashboard(t *testing.T) {
	p := newFakePoller(testutil.Records(models.SourceSolar, 2), nil)
	hub, conn := startHub(t, p)

	msg := readMessage(t, conn)
	assert.Equal(t, MsgTypeConnected, msg.Type)
	assert.NotEmpty(t, msg.ID)

	msg = readMessage(t, conn)
	require.Equal(t, MsgTypeDashboard, msg.Type)
	var view dashboard.View
	require.NoError(t, json.Unmarshal(msg.Payload, &view))
	assert.Len(t, view.Tables[0].Rows, 2)

	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_PingPong(t *testing.T) {
	_, conn := startHub(t, newFakePoller(nil, nil))
	readMessage(t, conn)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypePing, ID: "p1"}))
	msg := readMessage(t, conn)
	assert.Equal(t, MsgTypePong, msg.Type)
	assert.Equal(t, "p1", msg.ID)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "bogus"}))
	msg = readMessage(t, conn)
	assert.Equal(t, MsgTypeError, msg.Type)
	assert.Contains(t, string(msg.Payload), "INVALID_TYPE")
}

func TestHub_BroadcastsOnUpdate(t *testing.T) {
	p := newFakePoller(nil, nil)
	_, conn := startHub(t, p)
	readMessage(t, conn)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return p.subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	snap := p.Snapshot()
	snap.Wind.Records = testutil.Records(models.SourceWind, 3)
	p.setSnapshot(snap)

	msg := readMessage(t, conn)
	require.Equal(t, MsgTypeDashboard, msg.Type)
	var view dashboard.View
	require.NoError(t, json.Unmarshal(msg.Payload, &view))
	assert.Len(t, view.Tables[1].Rows, 3)
}

func TestHub_RefreshMessage(t *testing.T) {
	p := newFakePoller(nil, nil)
	_, conn := startHub(t, p)
	readMessage(t, conn)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypeRefresh}))
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.refreshed) == 1
	}, 2*time.Second, 5*time.Millisecond)
}
