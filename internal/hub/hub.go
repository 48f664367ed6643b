// Package hub is the session registry: the process-wide map from session id to the
// lobby that owns it. Only the hub goroutine touches the map.
package hub

import (
	"context"
	"errors"

	"github.com/DoyleJ11/teamfinder/internal/engine"
	"github.com/DoyleJ11/teamfinder/internal/lobby"
)

var ErrNotFound = errors.New("session not in registry")
var ErrExists = errors.New("session id already registered")
var ErrStopped = errors.New("registry stopped")

type HubMsg interface{ isHubMsg() }

type CreateLobby struct {
	State engine.State
	Reply chan *lobby.Lobby // nil if the id is taken
}

type GetLobby struct {
	ID    string
	Reply chan *lobby.Lobby // may be nil
}

type RemoveLobby struct {
	ID string
}

type CountLobbies struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg()  {}
func (GetLobby) isHubMsg()     {}
func (RemoveLobby) isHubMsg()  {}
func (CountLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	deps    lobby.Deps
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewHub starts an empty registry. Every lobby it creates shares deps and is removed
// from the registry when its session ends.
func NewHub(parent context.Context, deps lobby.Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	onClose := deps.OnClose
	deps.OnClose = func(id string) {
		h.Remove(id)
		if onClose != nil {
			onClose(id)
		}
	}
	h.deps = deps
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			// lobby contexts derive from h.ctx, so they stop with us
			clear(h.lobbies)
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if h.lobbies[msg.State.ID] != nil {
					msg.Reply <- nil
					break
				}
				lb := lobby.NewLobby(h.ctx, msg.State, h.deps)
				h.lobbies[msg.State.ID] = lb
				msg.Reply <- lb

			case GetLobby:
				msg.Reply <- h.lobbies[msg.ID]

			case RemoveLobby:
				delete(h.lobbies, msg.ID)

			case CountLobbies:
				msg.Reply <- len(h.lobbies)

			case ShutdownHub:
				h.cancel()
			}
		}
	}
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case <-h.done:
		return ErrStopped
	default:
	}
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) await(ctx context.Context, reply chan *lobby.Lobby) (*lobby.Lobby, error) {
	select {
	case lb := <-reply:
		return lb, nil
	case <-h.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Insert starts a lobby for s and registers it under s.ID.
func (h *Hub) Insert(ctx context.Context, s engine.State) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, CreateLobby{State: s, Reply: reply}); err != nil {
		return nil, err
	}
	lb, err := h.await(ctx, reply)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, ErrExists
	}
	return lb, nil
}

func (h *Hub) Get(ctx context.Context, id string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetLobby{ID: id, Reply: reply}); err != nil {
		return nil, err
	}
	lb, err := h.await(ctx, reply)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, ErrNotFound
	}
	return lb, nil
}

func (h *Hub) Remove(id string) {
	_ = h.send(context.Background(), RemoveLobby{ID: id})
}

func (h *Hub) Len(ctx context.Context) int {
	reply := make(chan int, 1)
	if err := h.send(ctx, CountLobbies{Reply: reply}); err != nil {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-h.done:
		return 0
	case <-ctx.Done():
		return 0
	}
}

// Shutdown stops the registry and every lobby in it. Live sessions are dropped; their
// durable records stay active.
func (h *Hub) Shutdown() {
	_ = h.send(context.Background(), ShutdownHub{})
	<-h.done
}
