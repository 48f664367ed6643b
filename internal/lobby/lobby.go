package lobby

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/teamfinder/internal/engine"
	"github.com/DoyleJ11/teamfinder/internal/feed"
	"github.com/DoyleJ11/teamfinder/internal/profile"
)

// ErrStorage wraps a durable write failure. The in-memory session is left as it was.
var ErrStorage = errors.New("storage failure")

// ErrClosed is returned for messages sent to a lobby whose loop has stopped.
var ErrClosed = errors.New("lobby closed")

type Store interface {
	AddMember(ctx context.Context, recordID uint, identity string) error
	CloseSession(ctx context.Context, recordID uint) error
}

type Directory interface {
	Lookup(ctx context.Context, identity string) (profile.Profile, error)
}

// Sink brings the rendered message in line with a snapshot.
type Sink interface {
	Sync(ctx context.Context, snap Snapshot) error
}

type Publisher interface {
	Publish(ev feed.Event)
}

type Deps struct {
	Store    Store
	Profiles Directory
	Sink     Sink
	Feed     Publisher
	Log      *zap.Logger

	// OnClose runs on the lobby goroutine once the session is terminal and its record closed.
	OnClose func(sessionID string)
}

// MessageRef locates the chat message that renders the session.
type MessageRef struct {
	ChannelID string
	MessageID string
}

type Msg interface{ isLobbyMsg() }

type Apply struct {
	Cmd   engine.Command
	Reply chan Result
}

func (Apply) isLobbyMsg() {}

type Attach struct {
	Ref MessageRef
}

func (Attach) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Snapshot struct {
	Version int
	State   engine.State
	Ref     MessageRef
}

type View struct {
	Version int
	State   engine.State
	Ref     MessageRef
}

// Result is the outcome of one Apply. Err is the rule or storage failure, in which case
// Snapshot is the unchanged session. SyncErr is a render failure after a committed change.
type Result struct {
	Snapshot Snapshot
	Events   []engine.Event
	Err      error
	SyncErr  error
}

type Lobby struct {
	inbox   chan Msg
	state   engine.State
	version int
	ref     MessageRef
	deps    Deps
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewLobby(parent context.Context, initial engine.State, deps Deps) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	l := &Lobby{
		inbox:  make(chan Msg, 64),
		state:  initial,
		deps:   deps,
		log:    log.With(zap.String("session_id", initial.ID), zap.String("kind", string(initial.Kind))),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Apply:
				res := l.apply(msg.Cmd)
				terminal := res.Err == nil && !res.Snapshot.State.Active()
				if terminal {
					l.close()
				}
				msg.Reply <- res
				if terminal {
					l.cancel()
					return
				}

			case Attach:
				l.ref = msg.Ref

			case GetState:
				msg.Reply <- View{Version: l.version, State: l.state, Ref: l.ref}

			case Shutdown:
				l.cancel()
				return
			}
		}
	}
}

func (l *Lobby) apply(cmd engine.Command) Result {
	if cmd.Type == engine.CmdJoin && l.state.Active() {
		registered, err := l.registered(cmd.Actor)
		if err != nil {
			return Result{Snapshot: l.snapshot(), Err: fmt.Errorf("%w: %w", ErrStorage, err)}
		}
		cmd.Registered = registered
	}

	events, newState, err := engine.Apply(l.state, cmd)
	if err != nil {
		return Result{Snapshot: l.snapshot(), Err: err}
	}

	// newState is only committed once the durable mirror agrees
	if err := l.persist(cmd, newState); err != nil {
		l.log.Warn("durable write failed, change discarded", zap.String("cmd", string(cmd.Type)), zap.Error(err))
		return Result{Snapshot: l.snapshot(), Err: fmt.Errorf("%w: %w", ErrStorage, err)}
	}

	l.state = newState
	l.version++
	snap := l.snapshot()
	res := Result{Snapshot: snap, Events: events}

	if l.deps.Sink != nil {
		if err := l.deps.Sink.Sync(l.ctx, snap); err != nil {
			l.log.Warn("render refresh failed", zap.Int("version", snap.Version), zap.Error(err))
			res.SyncErr = err
		}
	}
	l.publish(snap, events)
	return res
}

func (l *Lobby) registered(identity string) (bool, error) {
	if l.deps.Profiles == nil {
		return false, nil
	}
	_, err := l.deps.Profiles.Lookup(l.ctx, identity)
	if errors.Is(err, profile.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *Lobby) persist(cmd engine.Command, next engine.State) error {
	if l.deps.Store == nil {
		return nil
	}
	switch cmd.Type {
	case engine.CmdJoin:
		return l.deps.Store.AddMember(l.ctx, next.RecordID, cmd.Actor)
	case engine.CmdCancel, engine.CmdDraw:
		return l.deps.Store.CloseSession(l.ctx, next.RecordID)
	}
	return nil
}

func (l *Lobby) publish(snap Snapshot, events []engine.Event) {
	if l.deps.Feed == nil {
		return
	}
	typ := feed.SessionUpdated
	switch {
	case !snap.State.Active():
		typ = feed.SessionClosed
	case engine.ContainsEvent(events, engine.EvtSessionFilled):
		typ = feed.SessionFilled
	}
	l.deps.Feed.Publish(feed.Event{
		Type:      typ,
		SessionID: snap.State.ID,
		Kind:      string(snap.State.Kind),
		Mode:      snap.State.Config.Mode,
		Status:    string(snap.State.Status),
		Members:   len(snap.State.Members()),
		Capacity:  snap.State.Config.Capacity,
	})
}

func (l *Lobby) close() {
	l.log.Info("session closed", zap.String("status", string(l.state.Status)), zap.Int("members", len(l.state.Members())))
	if l.deps.OnClose != nil {
		l.deps.OnClose(l.state.ID)
	}
}

func (l *Lobby) snapshot() Snapshot {
	return Snapshot{Version: l.version, State: l.state, Ref: l.ref}
}

func (l *Lobby) ID() string { return l.state.ID }

// Send enqueues m. It fails with ErrClosed once the loop has stopped.
func (l *Lobby) Send(ctx context.Context, m Msg) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.inbox <- m:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do applies cmd and waits for the outcome. Commands on one lobby run one at a time in
// the order they were sent.
func (l *Lobby) Do(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	if err := l.Send(ctx, Apply{Cmd: cmd, Reply: reply}); err != nil {
		return Result{}, err
	}
	select {
	case res := <-reply:
		return res, nil
	case <-l.done:
		// the loop may have answered just before stopping
		select {
		case res := <-reply:
			return res, nil
		default:
			return Result{}, ErrClosed
		}
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (l *Lobby) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := l.Send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Expose the inbox so tests can send raw messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) Done() <-chan struct{} { return l.done }
