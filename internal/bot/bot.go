// Package bot is the Discord transport: it registers slash commands, answers
// interactions and hands button presses to the dispatcher.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/DoyleJ11/teamfinder/internal/dispatch"
	"github.com/DoyleJ11/teamfinder/internal/engine"
	"github.com/DoyleJ11/teamfinder/internal/lobby"
	"github.com/DoyleJ11/teamfinder/internal/notice"
	"github.com/DoyleJ11/teamfinder/internal/profile"
	"github.com/DoyleJ11/teamfinder/internal/render"
	"github.com/DoyleJ11/teamfinder/internal/store"
	"github.com/DoyleJ11/teamfinder/pkg/types"
)

// Bounds the store and chat calls made while answering one interaction.
const interactionTimeout = 10 * time.Second

const presence = "Warzone | /" + cmdSearch

type Records interface {
	ListActive(ctx context.Context) ([]store.SessionRecord, error)
	ListMembers(ctx context.Context, recordID uint) ([]store.Membership, error)
}

type Profiles interface {
	Upsert(ctx context.Context, reg profile.Registration) (profile.Profile, error)
	Lookup(ctx context.Context, identity string) (profile.Profile, error)
	List(ctx context.Context) ([]profile.Profile, error)
}

// Dispatcher runs session creation and button presses.
type Dispatcher interface {
	Dispatch(ctx context.Context, act dispatch.Activation) dispatch.Reply
	Open(ctx context.Context, req dispatch.OpenRequest, deliver dispatch.Deliver) (engine.State, error)
	Explain(err error, action types.Action) string
}

// Channels posts to guild channels and reads guild presences.
type Channels interface {
	Post(ctx context.Context, channelID string, msg render.Message) (lobby.MessageRef, error)
	Players(guildID string) (map[string][]string, error)
}

type Options struct {
	Session    *discordgo.Session
	Client     *Client
	Dispatcher Dispatcher
	Profiles   Profiles
	Records    Records
	Renderer   *render.Renderer
	Codec      *types.Codec
	GuildID    string // commands are registered globally when empty
	Log        *zap.Logger
}

type Bot struct {
	session  *discordgo.Session
	api      interactionAPI
	client   Channels
	dispatch Dispatcher
	profiles Profiles
	records  Records
	render   *render.Renderer
	loc      *notice.Localizer
	codec    *types.Codec
	guildID  string
	log      *zap.Logger

	ctx context.Context
}

func New(opts Options) *Bot {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		session:  opts.Session,
		api:      opts.Session,
		client:   opts.Client,
		dispatch: opts.Dispatcher,
		profiles: opts.Profiles,
		records:  opts.Records,
		render:   opts.Renderer,
		loc:      opts.Renderer.Localizer(),
		codec:    opts.Codec,
		guildID:  opts.GuildID,
		log:      log.Named("bot"),
		ctx:      context.Background(),
	}
}

// NewSession builds a discordgo session with the intents the bot relies on.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildPresences |
		discordgo.IntentsGuildMembers
	s.State.TrackPresences = true
	s.State.TrackVoice = true
	return s, nil
}

// Run connects, registers commands and serves interactions until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			b.log.Warn("discord close", zap.Error(err))
		}
	}()

	<-ctx.Done()
	return nil
}

// onReady runs on every (re)connect; overwriting the command set is idempotent.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("connected", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
	if err := s.UpdateGameStatus(0, presence); err != nil {
		b.log.Warn("set presence", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(b.ctx, interactionTimeout)
	defer cancel()
	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, b.guildID, commands(b.loc), discordgo.WithContext(ctx)); err != nil {
		b.log.Error("register commands", zap.Error(err))
		return
	}
	b.log.Info("commands registered", zap.Int("count", len(commandNames)), zap.String("guild_id", b.guildID))
}

func (b *Bot) onInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(b.ctx, interactionTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.onCommand(ctx, i.Interaction)
	case discordgo.InteractionMessageComponent:
		b.onComponent(ctx, i.Interaction)
	case discordgo.InteractionModalSubmit:
		b.onModal(ctx, i.Interaction)
	}
}

func (b *Bot) onComponent(ctx context.Context, i *discordgo.Interaction) {
	comp, err := b.codec.Decode(i.MessageComponentData().CustomID)
	if err != nil {
		b.notice(i, b.dispatch.Explain(err, ""))
		return
	}
	log := b.log.With(zap.String("session_id", comp.SessionID), zap.String("action", string(comp.Action)))

	// Discord drops interactions not acknowledged within three seconds
	if err := deferNotice(ctx, b.api, i); err != nil {
		log.Warn("acknowledging press failed", zap.Error(err))
		return
	}
	reply := b.dispatch.Dispatch(ctx, dispatch.Activation{Component: comp, Actor: actor(i).ID, GuildID: i.GuildID})
	if err := editNotice(ctx, b.api, i, reply.Notice); err != nil {
		log.Warn("interaction reply failed", zap.Error(err))
	}
	for n, msg := range reply.Public {
		if _, err := b.client.Post(ctx, i.ChannelID, msg); err != nil {
			log.Warn("posting draw failed", zap.Int("page", n+1), zap.Int("pages", len(reply.Public)), zap.Error(err))
			return
		}
	}
}

func (b *Bot) onModal(ctx context.Context, i *discordgo.Interaction) {
	data := i.ModalSubmitData()
	if data.CustomID != registerModalID {
		return
	}
	values := modalValues(data.Components)
	user := actor(i)

	ratio, err := profile.ParseSkillRatio(values[modalKDInput])
	if err != nil {
		b.notice(i, b.dispatch.Explain(err, ""))
		return
	}
	p, err := b.profiles.Upsert(ctx, profile.Registration{
		Identity:   user.ID,
		Username:   user.Username,
		Handle:     values[modalHandleInput],
		SkillRatio: ratio,
	})
	if err != nil {
		b.notice(i, b.dispatch.Explain(err, ""))
		return
	}
	b.log.Info("profile registered", zap.String("identity", user.ID), zap.String("handle", p.Handle))
	b.notice(i, b.loc.T(notice.Registered, p.Handle, p.SkillRatio))
}

func (b *Bot) onCommand(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	opts := optionMap(data.Options)
	log := b.log.With(zap.String("command", data.Name), zap.String("actor", actor(i).ID))

	switch data.Name {
	case cmdRegister:
		b.respond(i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseModal, Data: registerModal(b.loc)})

	case cmdProfile:
		b.showProfile(ctx, i, actor(i), false)

	case cmdViewProfile:
		target := actor(i)
		if o, ok := opts[optUser]; ok {
			target = o.UserValue(b.session)
		}
		b.showProfile(ctx, i, target, boolOption(opts, optPublic))

	case cmdSearch:
		b.open(ctx, i, engine.KindSearch, engine.Config{
			Platform:    stringOption(opts, optPlatform),
			Mode:        stringOption(opts, optMode),
			MinSkill:    floatOption(opts, optMinSkill, 0),
			Capacity:    int(intOption(opts, optMaxPlayers, 4)),
			Description: stringOption(opts, optDescription),
		})

	case cmdPrivate:
		b.open(ctx, i, engine.KindMatch, engine.Config{
			Mode:        stringOption(opts, optMode),
			GroupSize:   int(intOption(opts, optGroupSize, 0)),
			Description: stringOption(opts, optDescription),
		})

	case cmdTournament:
		b.open(ctx, i, engine.KindTournament, engine.Config{
			Mode:        stringOption(opts, optMode),
			GroupSize:   int(intOption(opts, optGroupSize, 0)),
			Prize:       stringOption(opts, optPrize),
			Description: stringOption(opts, optDescription),
		})

	case cmdEntrants:
		b.showEntrants(ctx, i, boolOption(opts, optPublic))

	case cmdPlayers:
		byGame, err := b.client.Players(i.GuildID)
		if err != nil {
			log.Warn("presence lookup failed", zap.Error(err))
			b.notice(i, b.loc.T(notice.Unexpected))
			return
		}
		b.card(i, b.render.Players(byGame), false)

	case cmdRegistered:
		profiles, err := b.profiles.List(ctx)
		if err != nil {
			log.Error("listing profiles failed", zap.Error(err))
			b.notice(i, b.loc.T(notice.Storage))
			return
		}
		b.card(i, b.render.Registered(profiles), boolOption(opts, optPublic))

	case cmdActive:
		recs, err := b.records.ListActive(ctx)
		if err != nil {
			log.Error("listing sessions failed", zap.Error(err))
			b.notice(i, b.loc.T(notice.Storage))
			return
		}
		b.card(i, b.render.Active(recs), false)

	case cmdHelp:
		b.card(i, b.render.Help(commandNames), boolOption(opts, optPublic))

	default:
		log.Warn("unknown command")
	}
}

// open creates a session whose message is the public reply to the command.
func (b *Bot) open(ctx context.Context, i *discordgo.Interaction, kind engine.Kind, cfg engine.Config) {
	req := dispatch.OpenRequest{Kind: kind, Owner: actor(i).ID, GuildID: i.GuildID, ChannelID: i.ChannelID, Config: cfg}
	card := &cardDelivery{api: b.api, interaction: i, codec: b.codec}
	_, err := b.dispatch.Open(ctx, req, card.deliver)
	if err == nil {
		return
	}
	text := b.dispatch.Explain(err, "")
	if !card.responded {
		b.notice(i, text)
		return
	}
	if werr := card.withdraw(ctx, text); werr != nil {
		b.log.Warn("withdrawing undelivered card failed", zap.String("interaction_id", i.ID), zap.Error(werr))
	}
}

func (b *Bot) showProfile(ctx context.Context, i *discordgo.Interaction, user *discordgo.User, public bool) {
	if user == nil {
		b.notice(i, b.loc.T(notice.Unexpected))
		return
	}
	p, err := b.profiles.Lookup(ctx, user.ID)
	if errors.Is(err, profile.ErrNotFound) {
		if user.ID == actor(i).ID {
			b.notice(i, b.loc.T(notice.NoProfile))
		} else {
			b.notice(i, b.loc.T(notice.UserNoProfile, render.Mention(user.ID)))
		}
		return
	}
	if err != nil {
		b.log.Error("profile lookup failed", zap.String("identity", user.ID), zap.Error(err))
		b.notice(i, b.loc.T(notice.Storage))
		return
	}
	b.card(i, b.render.Profile(p, user.Username), public)
}

// showEntrants lists the members of the caller's most recent open private match.
func (b *Bot) showEntrants(ctx context.Context, i *discordgo.Interaction, public bool) {
	recs, err := b.records.ListActive(ctx)
	if err != nil {
		b.log.Error("listing sessions failed", zap.Error(err))
		b.notice(i, b.loc.T(notice.Storage))
		return
	}
	rec, ok := latestMatch(recs, actor(i).ID)
	if !ok {
		b.notice(i, b.loc.T(notice.NoMatch))
		return
	}
	members, err := b.records.ListMembers(ctx, rec.ID)
	if err != nil {
		b.log.Error("listing members failed", zap.Uint("record_id", rec.ID), zap.Error(err))
		b.notice(i, b.loc.T(notice.Storage))
		return
	}
	rec.Members = members
	ids := []string{rec.OwnerRef}
	for _, m := range members {
		ids = append(ids, m.IdentityRef)
	}
	b.card(i, b.render.Entrants(rec, dispatch.Directory(ctx, b.profiles, ids)), public)
}

func latestMatch(recs []store.SessionRecord, owner string) (store.SessionRecord, bool) {
	var found store.SessionRecord
	ok := false
	for _, rec := range recs {
		if rec.Kind != string(engine.KindMatch) || rec.OwnerRef != owner {
			continue
		}
		if !ok || rec.CreatedAt.After(found.CreatedAt) {
			found, ok = rec, true
		}
	}
	return found, ok
}

func (b *Bot) card(i *discordgo.Interaction, msg render.Message, public bool) {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{toEmbed(msg)}}
	if !public {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	b.respond(i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseChannelMessageWithSource, Data: data})
}

// notice answers privately with text.
func (b *Bot) notice(i *discordgo.Interaction, text string) {
	b.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text, Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (b *Bot) respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) {
	if err := b.api.InteractionRespond(i, resp); err != nil {
		b.log.Warn("interaction reply failed", zap.String("interaction_id", i.ID), zap.Error(err))
	}
}

func actor(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	out := make(options, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return out
}

func stringOption(opts options, name string) string {
	if o, ok := opts[name]; ok {
		return strings.TrimSpace(o.StringValue())
	}
	return ""
}

func intOption(opts options, name string, def int64) int64 {
	if o, ok := opts[name]; ok {
		return o.IntValue()
	}
	return def
}

func floatOption(opts options, name string, def float64) float64 {
	if o, ok := opts[name]; ok {
		return o.FloatValue()
	}
	return def
}

func boolOption(opts options, name string) bool {
	if o, ok := opts[name]; ok {
		return o.BoolValue()
	}
	return false
}

// modalValues flattens submitted text inputs by custom id.
func modalValues(rows []discordgo.MessageComponent) map[string]string {
	out := make(map[string]string)
	for _, c := range rows {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				out[input.CustomID] = strings.TrimSpace(input.Value)
			}
		}
	}
	return out
}
