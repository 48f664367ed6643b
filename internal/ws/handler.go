// Package ws streams session lifecycle events to browsers over a websocket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/teamfinder/internal/feed"
	"github.com/DoyleJ11/teamfinder/internal/types"
)

const (
	outboxSize   = 16
	writeTimeout = 3 * time.Second
)

func Handler(b *feed.Broadcaster, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("client_id", clientID))

		out := make(chan feed.Event, outboxSize)
		if !b.Subscribe(r.Context(), clientID, out) {
			conn.Close(websocket.StatusTryAgainLater, "feed unavailable")
			return
		}
		defer b.Unsubscribe(clientID)

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for ev := range out {
				if err := write(writeCtx, conn, types.FromFeed(ev)); err != nil {
					log.Debug("feed write failed", zap.Error(err))
					return
				}
			}
			// out is closed when the subscriber falls behind or the feed stops
			conn.Close(websocket.StatusPolicyViolation, "feed closed")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("feed read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(r.Context(), conn, types.ServerMessage{Type: types.TypeError, Error: "bad json"})
				continue
			}
			switch cm.Type {
			case types.TypePing:
				_ = write(r.Context(), conn, types.ServerMessage{Type: types.TypePong})
			default:
				_ = write(r.Context(), conn, types.ServerMessage{Type: types.TypeError, Error: "unknown type"})
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
