package dispatch

import (
	"context"

	"github.com/DoyleJ11/teamfinder/internal/lobby"
	"github.com/DoyleJ11/teamfinder/internal/render"
)

// Refresher re-renders a session message after every committed change. It is the
// lobby sink and runs on the lobby goroutine.
type Refresher struct {
	profiles Profiles
	chat     Chat
	render   *render.Renderer
}

func NewRefresher(profiles Profiles, chat Chat, r *render.Renderer) *Refresher {
	return &Refresher{profiles: profiles, chat: chat, render: r}
}

func (r *Refresher) Sync(ctx context.Context, snap lobby.Snapshot) error {
	// not posted yet
	if snap.Ref.MessageID == "" {
		return nil
	}
	dir := Directory(ctx, r.profiles, snap.State.Members())
	return r.chat.Edit(ctx, snap.Ref, r.render.Session(snap.State, dir))
}
