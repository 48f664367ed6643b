// Package dispatch routes button activations and session creation requests to the
// session that owns them and turns every outcome into a private notice.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/teamfinder/internal/engine"
	"github.com/DoyleJ11/teamfinder/internal/feed"
	"github.com/DoyleJ11/teamfinder/internal/hub"
	"github.com/DoyleJ11/teamfinder/internal/lobby"
	"github.com/DoyleJ11/teamfinder/internal/notice"
	"github.com/DoyleJ11/teamfinder/internal/profile"
	"github.com/DoyleJ11/teamfinder/internal/render"
	"github.com/DoyleJ11/teamfinder/internal/store"
	"github.com/DoyleJ11/teamfinder/pkg/types"
)

// ErrDelivery means the session message could not be posted. The session is cancelled.
var ErrDelivery = errors.New("session message delivery failed")

// Chat is the slice of the chat platform the dispatcher needs.
type Chat interface {
	// VoiceChannel returns the voice channel identity is connected to, or nil.
	VoiceChannel(ctx context.Context, guildID, identity string) (*engine.VoiceLink, error)
	Edit(ctx context.Context, ref lobby.MessageRef, msg render.Message) error
	Notify(ctx context.Context, identity, text string) error
}

type Registry interface {
	Insert(ctx context.Context, s engine.State) (*lobby.Lobby, error)
	Get(ctx context.Context, id string) (*lobby.Lobby, error)
}

type Records interface {
	CreateSession(ctx context.Context, rec *store.SessionRecord) (uint, error)
	CloseSession(ctx context.Context, recordID uint) error
	SetExternalRef(ctx context.Context, recordID uint, ref string) error
}

type Profiles interface {
	Lookup(ctx context.Context, identity string) (profile.Profile, error)
}

type Options struct {
	Registry Registry
	Records  Records
	Profiles Profiles
	Chat     Chat
	Renderer *render.Renderer
	Feed     lobby.Publisher
	Log      *zap.Logger

	// NewRand seeds each draw. Defaults to a time seeded source.
	NewRand func() *rand.Rand
}

type Dispatcher struct {
	registry Registry
	records  Records
	profiles Profiles
	chat     Chat
	render   *render.Renderer
	loc      *notice.Localizer
	feed     lobby.Publisher
	log      *zap.Logger
	newRand  func() *rand.Rand
}

func New(opts Options) *Dispatcher {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	newRand := opts.NewRand
	if newRand == nil {
		newRand = func() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) }
	}
	return &Dispatcher{
		registry: opts.Registry,
		records:  opts.Records,
		profiles: opts.Profiles,
		chat:     opts.Chat,
		render:   opts.Renderer,
		loc:      opts.Renderer.Localizer(),
		feed:     opts.Feed,
		log:      log,
		newRand:  newRand,
	}
}

// Activation is one button press.
type Activation struct {
	Component types.Component
	Actor     string
	GuildID   string
}

// Reply is what the activating user sees. Public messages, when present, are posted to
// the channel in order.
type Reply struct {
	Notice string
	Public []render.Message
}

func (d *Dispatcher) Dispatch(ctx context.Context, act Activation) Reply {
	comp := act.Component
	log := d.log.With(zap.String("session_id", comp.SessionID), zap.String("action", string(comp.Action)), zap.String("actor", act.Actor))

	lb, err := d.registry.Get(ctx, comp.SessionID)
	if err != nil {
		return Reply{Notice: d.Explain(err, comp.Action)}
	}

	// a failed voice lookup still re-renders the card through a refresh
	cmd, lookupErr := d.command(ctx, act)
	if lookupErr != nil && !errors.Is(lookupErr, ErrDelivery) {
		log.Error("building command failed", zap.Error(lookupErr))
		return Reply{Notice: d.loc.T(notice.Unexpected)}
	}

	res, err := lb.Do(ctx, cmd)
	if err != nil {
		return Reply{Notice: d.Explain(err, comp.Action)}
	}
	if res.Err != nil {
		log.Debug("activation rejected", zap.Error(res.Err))
		return Reply{Notice: d.Explain(res.Err, comp.Action)}
	}
	if res.SyncErr != nil {
		log.Warn("session message is stale", zap.Error(res.SyncErr))
	}
	if lookupErr != nil {
		log.Warn("voice lookup failed", zap.Error(lookupErr))
		return Reply{Notice: d.Explain(lookupErr, comp.Action)}
	}

	return d.success(ctx, cmd, res)
}

func (d *Dispatcher) command(ctx context.Context, act Activation) (engine.Command, error) {
	cmd := engine.Command{Actor: act.Actor}
	switch act.Component.Action {
	case types.ActionJoin:
		cmd.Type = engine.CmdJoin
	case types.ActionVoice:
		link, err := d.chat.VoiceChannel(ctx, act.GuildID, act.Actor)
		if err != nil {
			cmd.Type = engine.CmdRefresh
			return cmd, fmt.Errorf("%w: voice lookup: %w", ErrDelivery, err)
		}
		cmd.Type = engine.CmdSetVoice
		cmd.Voice = link
	case types.ActionCancel:
		cmd.Type = engine.CmdCancel
	case types.ActionDraw:
		cmd.Type = engine.CmdDraw
		cmd.Rand = d.newRand()
	case types.ActionRefresh:
		cmd.Type = engine.CmdRefresh
	default:
		return cmd, fmt.Errorf("%w: %s", engine.ErrUnsupportedCommand, act.Component.Action)
	}
	return cmd, nil
}

func (d *Dispatcher) success(ctx context.Context, cmd engine.Command, res lobby.Result) Reply {
	s := res.Snapshot.State
	switch cmd.Type {
	case engine.CmdJoin:
		switch s.Kind {
		case engine.KindMatch:
			return Reply{Notice: d.loc.T(notice.JoinedMatch)}
		case engine.KindTournament:
			return Reply{Notice: d.loc.T(notice.JoinedTournament)}
		}
		d.notifyOwner(ctx, cmd.Actor, s)
		if engine.ContainsEvent(res.Events, engine.EvtSessionFilled) {
			d.dm(ctx, s, d.loc.T(notice.OwnerFilledDM, s.Config.Mode, len(s.Members()), s.Config.Capacity))
		}
		return Reply{Notice: d.loc.T(notice.JoinedSearch, s.Config.Mode)}

	case engine.CmdSetVoice:
		if s.Voice == nil {
			return Reply{Notice: d.loc.T(notice.VoiceCleared)}
		}
		return Reply{Notice: d.loc.T(notice.VoiceSet, s.Voice.Name)}

	case engine.CmdCancel:
		switch s.Kind {
		case engine.KindMatch:
			return Reply{Notice: d.loc.T(notice.Cancelled)}
		case engine.KindTournament:
			return Reply{Notice: d.loc.T(notice.CancelledTourney)}
		}
		return Reply{Notice: d.loc.T(notice.CancelledSearch)}

	case engine.CmdDraw:
		return Reply{Notice: d.loc.T(notice.Drawn), Public: d.render.Draw(s, Directory(ctx, d.profiles, s.Members()))}
	}
	return Reply{Notice: d.loc.T(notice.Refreshed)}
}

// notifyOwner sends the search owner a direct message about a new member.
func (d *Dispatcher) notifyOwner(ctx context.Context, joiner string, s engine.State) {
	p, err := d.profiles.Lookup(ctx, joiner)
	if err != nil {
		d.log.Warn("joiner profile lookup failed", zap.String("session_id", s.ID), zap.Error(err))
		return
	}
	name := p.Username
	if name == "" {
		name = render.Mention(joiner)
	}
	d.dm(ctx, s, d.loc.T(notice.OwnerJoinedDM, name, p.Handle, s.Config.Mode, len(s.Members()), s.Config.Capacity))
}

// dm messages the session owner. Undelivered messages are only logged.
func (d *Dispatcher) dm(ctx context.Context, s engine.State, text string) {
	if err := d.chat.Notify(ctx, s.Owner, text); err != nil {
		d.log.Info("owner notification not delivered", zap.String("session_id", s.ID), zap.String("owner", s.Owner), zap.Error(err))
	}
}

// OpenRequest asks for a new session. Capacity may be left zero for matches and
// tournaments.
type OpenRequest struct {
	Kind      engine.Kind
	Owner     string
	GuildID   string
	ChannelID string
	Config    engine.Config
}

// Deliver posts the first render of a session and reports where it landed.
type Deliver func(ctx context.Context, msg render.Message) (lobby.MessageRef, error)

// Open creates a session, registers it and posts its message through deliver. When
// delivery fails the session is cancelled and ErrDelivery is returned.
func (d *Dispatcher) Open(ctx context.Context, req OpenRequest, deliver Deliver) (engine.State, error) {
	cfg := req.Config
	if req.Kind != engine.KindSearch && cfg.Capacity == 0 {
		cfg.Capacity = engine.OpenCapacity
	}
	if err := engine.ValidateConfig(req.Kind, cfg); err != nil {
		return engine.State{}, err
	}

	owner, err := d.profiles.Lookup(ctx, req.Owner)
	if errors.Is(err, profile.ErrNotFound) {
		return engine.State{}, engine.ErrUnregistered
	}
	if err != nil {
		return engine.State{}, fmt.Errorf("%w: %w", lobby.ErrStorage, err)
	}

	state := engine.NewState(uuid.NewString(), req.Kind, req.Owner, cfg)
	log := d.log.With(zap.String("session_id", state.ID), zap.String("kind", string(state.Kind)))

	recordID, err := d.records.CreateSession(ctx, &store.SessionRecord{
		SessionID:   state.ID,
		Kind:        string(state.Kind),
		OwnerRef:    state.Owner,
		Platform:    cfg.Platform,
		Mode:        cfg.Mode,
		MinSkill:    cfg.MinSkill,
		Capacity:    cfg.Capacity,
		GroupSize:   cfg.GroupSize,
		Description: cfg.Description,
		Prize:       cfg.Prize,
	})
	if err != nil {
		return engine.State{}, fmt.Errorf("%w: %w", lobby.ErrStorage, err)
	}
	state.RecordID = recordID

	if state.Kind == engine.KindSearch {
		link, err := d.chat.VoiceChannel(ctx, req.GuildID, req.Owner)
		if err != nil {
			log.Info("owner voice lookup failed", zap.Error(err))
		}
		state.Voice = link
	}

	lb, err := d.registry.Insert(ctx, state)
	if err != nil {
		if cerr := d.records.CloseSession(ctx, recordID); cerr != nil {
			log.Warn("closing orphaned record failed", zap.Error(cerr))
		}
		return engine.State{}, fmt.Errorf("register session: %w", err)
	}

	ref, err := deliver(ctx, d.render.Session(state, render.Directory{req.Owner: owner}))
	if err != nil {
		log.Warn("session message not delivered, cancelling", zap.Error(err))
		if res, cerr := lb.Do(ctx, engine.Command{Type: engine.CmdCancel, Actor: req.Owner}); cerr != nil || res.Err != nil {
			log.Error("cancelling undelivered session failed", zap.Error(errors.Join(cerr, res.Err)))
		}
		return engine.State{}, fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	if ref.ChannelID == "" {
		ref.ChannelID = req.ChannelID
	}

	if err := lb.Send(ctx, lobby.Attach{Ref: ref}); err != nil {
		log.Warn("attaching message failed", zap.Error(err))
	}
	if err := d.records.SetExternalRef(ctx, recordID, ref.MessageID); err != nil {
		log.Warn("recording message id failed", zap.Error(err))
	}

	if d.feed != nil {
		d.feed.Publish(feed.Event{
			Type:      feed.SessionOpened,
			SessionID: state.ID,
			Kind:      string(state.Kind),
			Mode:      cfg.Mode,
			Status:    string(state.Status),
			Members:   1,
			Capacity:  cfg.Capacity,
		})
	}
	log.Info("session opened", zap.String("owner", req.Owner), zap.String("mode", cfg.Mode))
	return state, nil
}

// Explain maps an error to the private notice shown to the user who caused it.
func (d *Dispatcher) Explain(err error, action types.Action) string {
	var verr *profile.ValidationError
	if errors.As(err, &verr) {
		if verr.Field == profile.FieldHandle {
			return d.loc.T(notice.InvalidHandle)
		}
		return d.loc.T(notice.InvalidSkill)
	}
	var cerr *engine.ConfigError
	if errors.As(err, &cerr) {
		return d.loc.T(notice.InvalidConfig, cerr.Field, cerr.Reason)
	}

	switch {
	case errors.Is(err, lobby.ErrStorage):
		d.log.Error("storage failure", zap.Error(err))
		return d.loc.T(notice.Storage)
	case errors.Is(err, ErrDelivery):
		return d.loc.T(notice.Delivery)
	case errors.Is(err, hub.ErrNotFound), errors.Is(err, lobby.ErrClosed):
		return d.loc.T(notice.SessionInactive)
	case errors.Is(err, engine.ErrNotFound):
		return d.loc.T(notice.NotFound)
	case errors.Is(err, engine.ErrUnregistered):
		return d.loc.T(notice.Unregistered)
	case errors.Is(err, profile.ErrNotFound):
		return d.loc.T(notice.NoProfile)
	case errors.Is(err, engine.ErrAlreadyJoined):
		return d.loc.T(notice.AlreadyJoined)
	case errors.Is(err, engine.ErrFull):
		return d.loc.T(notice.Full)
	case errors.Is(err, engine.ErrForbidden):
		if action == types.ActionDraw {
			return d.loc.T(notice.ForbiddenDraw)
		}
		return d.loc.T(notice.ForbiddenCancel)
	case errors.Is(err, engine.ErrNotEnoughEntrants):
		return d.loc.T(notice.NotEnough)
	case errors.Is(err, types.ErrInvalidComponent):
		return d.loc.T(notice.InvalidComponent)
	}
	d.log.Error("unexpected failure", zap.String("action", string(action)), zap.Error(err))
	return d.loc.T(notice.Unexpected)
}

// Directory looks up the profile of every identity. Identities without a profile, or
// whose lookup fails, are left out and render as unknown.
func Directory(ctx context.Context, profiles Profiles, identities []string) render.Directory {
	dir := make(render.Directory, len(identities))
	for _, id := range identities {
		if p, err := profiles.Lookup(ctx, id); err == nil {
			dir[id] = p
		}
	}
	return dir
}
