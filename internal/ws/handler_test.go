package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/teamfinder/internal/feed"
	"github.com/DoyleJ11/teamfinder/internal/types"
)

func dial(t *testing.T) (*websocket.Conn, *feed.Broadcaster) {
	t.Helper()
	b := feed.NewBroadcaster(context.Background())
	t.Cleanup(b.Close)

	srv := httptest.NewServer(Handler(b, zap.NewNop()))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	require.Eventually(t, func() bool { return b.Subscribers(context.Background()) == 1 }, time.Second, 10*time.Millisecond)
	return conn, b
}

func read(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHandler_StreamsEvents(t *testing.T) {
	conn, b := dial(t)

	b.Publish(feed.Event{Type: feed.SessionUpdated, SessionID: "s1", Kind: "search", Mode: "Zombies", Status: "recruiting", Members: 2, Capacity: 4})

	msg := read(t, conn)
	require.Equal(t, types.TypeSessionEvent, msg.Type)
	require.NotNil(t, msg.Event)
	require.Equal(t, "SessionUpdated", msg.Event.Event)
	require.Equal(t, "s1", msg.Event.SessionID)
	require.Equal(t, 2, msg.Event.Members)
}

func TestHandler_PingPong(t *testing.T) {
	conn, _ := dial(t)
	ctx := context.Background()

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"Ping"}`)))
	require.Equal(t, types.TypePong, read(t, conn).Type)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`nope`)))
	msg := read(t, conn)
	require.Equal(t, types.TypeError, msg.Type)
	require.Equal(t, "bad json", msg.Error)
}

func TestHandler_UnsubscribesOnClose(t *testing.T) {
	conn, b := dial(t)
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
	require.Eventually(t, func() bool { return b.Subscribers(context.Background()) == 0 }, time.Second, 10*time.Millisecond)
}
