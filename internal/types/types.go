// Package types holds the JSON messages of the activity feed websocket.
package types

import (
	"time"

	"github.com/DoyleJ11/teamfinder/internal/feed"
)

const (
	TypePing         = "Ping"
	TypePong         = "Pong"
	TypeSessionEvent = "SessionEvent"
	TypeError        = "Error"
)

type ClientMessage struct {
	Type string `json:"type"` // "Ping"
}

type SessionEvent struct {
	Event     string    `json:"event"` // "SessionOpened" | "SessionUpdated" | "SessionClosed"
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	Members   int       `json:"members"`
	Capacity  int       `json:"capacity"`
	At        time.Time `json:"at"`
}

type ServerMessage struct {
	Type  string        `json:"type"` // "SessionEvent" | "Pong" | "Error"
	Event *SessionEvent `json:"event,omitempty"`
	Error string        `json:"error,omitempty"`
}

func FromFeed(ev feed.Event) ServerMessage {
	return ServerMessage{
		Type: TypeSessionEvent,
		Event: &SessionEvent{
			Event:     string(ev.Type),
			SessionID: ev.SessionID,
			Kind:      ev.Kind,
			Mode:      ev.Mode,
			Status:    ev.Status,
			Members:   ev.Members,
			Capacity:  ev.Capacity,
			At:        ev.At,
		},
	}
}
