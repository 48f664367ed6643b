package lobby

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/teamfinder/internal/engine"
	"github.com/DoyleJ11/teamfinder/internal/feed"
	"github.com/DoyleJ11/teamfinder/internal/profile"
)

type fakeStore struct {
	mu       sync.Mutex
	members  []string
	closed   int
	failNext error
}

func (s *fakeStore) AddMember(_ context.Context, _ uint, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	s.members = append(s.members, identity)
	return nil
}

func (s *fakeStore) CloseSession(context.Context, uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	s.closed++
	return nil
}

func (s *fakeStore) failOnce(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *fakeStore) rows() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.members...)
}

type fakeDirectory map[string]bool

func (d fakeDirectory) Lookup(_ context.Context, identity string) (profile.Profile, error) {
	if !d[identity] {
		return profile.Profile{}, profile.ErrNotFound
	}
	return profile.Profile{Identity: identity, Handle: identity + "#1"}, nil
}

type chanSink chan Snapshot

func (c chanSink) Sync(_ context.Context, snap Snapshot) error {
	c <- snap
	return nil
}

type chanFeed chan feed.Event

func (c chanFeed) Publish(ev feed.Event) { c <- ev }

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s := <-ch:
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
		// good: no render
	}
}

type harness struct {
	lobby  *Lobby
	store  *fakeStore
	sink   chanSink
	feed   chanFeed
	closed chan string
}

func newHarness(t *testing.T, capacity int) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &harness{
		store:  &fakeStore{},
		sink:   make(chanSink, 32),
		feed:   make(chanFeed, 32),
		closed: make(chan string, 1),
	}
	init := engine.NewState("s1", engine.KindSearch, "owner", engine.Config{Platform: "PC", Mode: "Saqueo", Capacity: capacity})
	init.RecordID = 1

	h.lobby = NewLobby(ctx, init, Deps{
		Store:    h.store,
		Profiles: fakeDirectory{"owner": true, "a": true, "b": true, "c": true, "d": true},
		Sink:     h.sink,
		Feed:     h.feed,
		OnClose:  func(id string) { h.closed <- id },
	})
	return h
}

func (h *harness) do(t *testing.T, cmd engine.Command) Result {
	t.Helper()
	res, err := h.lobby.Do(context.Background(), cmd)
	require.NoError(t, err)
	return res
}

func TestLobby_Join_RendersAndVersionIncrements(t *testing.T) {
	h := newHarness(t, 4)

	res := h.do(t, engine.Command{Type: engine.CmdJoin, Actor: "a"})
	require.NoError(t, res.Err)
	require.Equal(t, 1, res.Snapshot.Version)
	require.Equal(t, []string{"a"}, res.Snapshot.State.Roster)

	snap := recvSnapshot(t, h.sink, 100*time.Millisecond)
	require.Equal(t, 1, snap.Version)
	require.Equal(t, []string{"a"}, h.store.rows())

	ev := <-h.feed
	require.Equal(t, feed.SessionUpdated, ev.Type)
	require.Equal(t, 2, ev.Members)
}

func TestLobby_Join_LastSeatPublishesFilled(t *testing.T) {
	h := newHarness(t, 2)

	res := h.do(t, engine.Command{Type: engine.CmdJoin, Actor: "a"})
	require.NoError(t, res.Err)
	require.True(t, engine.ContainsEvent(res.Events, engine.EvtSessionFilled))

	ev := <-h.feed
	require.Equal(t, feed.SessionFilled, ev.Type)
	require.Equal(t, 2, ev.Members)
	require.Equal(t, 2, ev.Capacity)
}

func TestLobby_Join_UnregisteredLeavesRosterAlone(t *testing.T) {
	h := newHarness(t, 4)

	res := h.do(t, engine.Command{Type: engine.CmdJoin, Actor: "stranger"})
	require.ErrorIs(t, res.Err, engine.ErrUnregistered)
	require.Empty(t, res.Snapshot.State.Roster)
	require.Equal(t, 0, res.Snapshot.Version)

	recvNoSnapshot(t, h.sink, 50*time.Millisecond)
	require.Empty(t, h.store.rows())
}

func TestLobby_Join_StorageFailureRollsBack(t *testing.T) {
	h := newHarness(t, 4)
	h.store.failOnce(errors.New("disk full"))

	res := h.do(t, engine.Command{Type: engine.CmdJoin, Actor: "a"})
	require.ErrorIs(t, res.Err, ErrStorage)
	require.Empty(t, res.Snapshot.State.Roster)
	recvNoSnapshot(t, h.sink, 50*time.Millisecond)

	view, err := h.lobby.View(context.Background())
	require.NoError(t, err)
	require.Empty(t, view.State.Roster)
	require.Equal(t, 0, view.Version)

	// the same identity can retry once storage recovers
	res = h.do(t, engine.Command{Type: engine.CmdJoin, Actor: "a"})
	require.NoError(t, res.Err)
	require.Equal(t, []string{"a"}, res.Snapshot.State.Roster)
}

func TestLobby_ConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	h := newHarness(t, 3)

	var wg sync.WaitGroup
	results := make(chan Result, 4)
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			res, err := h.lobby.Do(context.Background(), engine.Command{Type: engine.CmdJoin, Actor: id})
			if err == nil {
				results <- res
			}
		}(id)
	}
	wg.Wait()
	close(results)

	var ok, full int
	for res := range results {
		switch {
		case res.Err == nil:
			ok++
		case errors.Is(res.Err, engine.ErrFull):
			full++
		default:
			t.Fatalf("unexpected err: %v", res.Err)
		}
	}
	require.Equal(t, 2, ok)
	require.Equal(t, 2, full)

	view, err := h.lobby.View(context.Background())
	require.NoError(t, err)
	require.Len(t, view.State.Roster, 2)
	require.Len(t, h.store.rows(), 2)
}

func TestLobby_Cancel_ClosesRecordAndStops(t *testing.T) {
	h := newHarness(t, 4)

	res := h.do(t, engine.Command{Type: engine.CmdCancel, Actor: "a"})
	require.ErrorIs(t, res.Err, engine.ErrForbidden)
	require.True(t, res.Snapshot.State.Active())

	res = h.do(t, engine.Command{Type: engine.CmdCancel, Actor: "owner"})
	require.NoError(t, res.Err)
	require.Equal(t, engine.StatusCancelled, res.Snapshot.State.Status)

	// the terminal render goes out before the loop stops
	snap := recvSnapshot(t, h.sink, 100*time.Millisecond)
	require.False(t, snap.State.Active())

	select {
	case id := <-h.closed:
		require.Equal(t, "s1", id)
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("OnClose not called")
	}

	select {
	case <-h.lobby.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("lobby loop still running after cancel")
	}

	_, err := h.lobby.Do(context.Background(), engine.Command{Type: engine.CmdCancel, Actor: "owner"})
	require.ErrorIs(t, err, ErrClosed)
	require.Equal(t, 1, h.store.closed)
}

func TestLobby_Cancel_StorageFailureKeepsRecruiting(t *testing.T) {
	h := newHarness(t, 4)
	h.store.failOnce(errors.New("timeout"))

	res := h.do(t, engine.Command{Type: engine.CmdCancel, Actor: "owner"})
	require.ErrorIs(t, res.Err, ErrStorage)
	require.True(t, res.Snapshot.State.Active())

	select {
	case <-h.closed:
		t.Fatalf("OnClose called for a failed cancel")
	default:
	}
}

func TestLobby_Voice_AlwaysRenders(t *testing.T) {
	h := newHarness(t, 4)

	res := h.do(t, engine.Command{Type: engine.CmdSetVoice, Actor: "a", Voice: &engine.VoiceLink{ChannelID: "vc", Name: "Lobby"}})
	require.NoError(t, res.Err)
	recvSnapshot(t, h.sink, 100*time.Millisecond)

	res = h.do(t, engine.Command{Type: engine.CmdSetVoice, Actor: "a"})
	require.NoError(t, res.Err)
	snap := recvSnapshot(t, h.sink, 100*time.Millisecond)
	require.Nil(t, snap.State.Voice)
	require.Equal(t, 2, snap.Version)
}

func TestLobby_Attach_CarriesRefIntoSnapshots(t *testing.T) {
	h := newHarness(t, 4)
	require.NoError(t, h.lobby.Send(context.Background(), Attach{Ref: MessageRef{ChannelID: "c", MessageID: "m"}}))

	res := h.do(t, engine.Command{Type: engine.CmdJoin, Actor: "a"})
	require.Equal(t, MessageRef{ChannelID: "c", MessageID: "m"}, res.Snapshot.Ref)
}

func TestLobby_Draw_Match(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	init := engine.NewState("m1", engine.KindMatch, "owner", engine.Config{Mode: "Resurgimiento", Capacity: engine.OpenCapacity, GroupSize: 2})
	init.Roster = []string{"a", "b", "c"}
	st := &fakeStore{}
	l := NewLobby(ctx, init, Deps{Store: st})

	res, err := l.Do(ctx, engine.Command{Type: engine.CmdDraw, Actor: "owner", Rand: rand.New(rand.NewSource(3))})
	require.NoError(t, err)
	require.NoError(t, res.Err)
	require.Len(t, res.Snapshot.State.Groups, 2)
	require.Equal(t, 1, st.closed)
	<-l.Done()
}

func TestLobby_ShutdownStopsLoop(t *testing.T) {
	h := newHarness(t, 4)
	h.lobby.Inbox() <- Shutdown{}

	select {
	case <-h.lobby.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("lobby did not stop")
	}
	_, err := h.lobby.View(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}
