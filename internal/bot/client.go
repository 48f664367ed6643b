package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/DoyleJ11/teamfinder/internal/engine"
	"github.com/DoyleJ11/teamfinder/internal/lobby"
	"github.com/DoyleJ11/teamfinder/internal/render"
	"github.com/DoyleJ11/teamfinder/pkg/types"
)

// Client is the Discord side of a session: voice lookups, message edits and direct
// messages. It satisfies dispatch.Chat.
type Client struct {
	session *discordgo.Session
	codec   *types.Codec
}

func NewClient(s *discordgo.Session, codec *types.Codec) *Client {
	return &Client{session: s, codec: codec}
}

func (c *Client) VoiceChannel(ctx context.Context, guildID, identity string) (*engine.VoiceLink, error) {
	if guildID == "" {
		return nil, nil
	}
	vs, err := c.session.State.VoiceState(guildID, identity)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("voice state: %w", err)
	}
	if vs.ChannelID == "" {
		return nil, nil
	}

	ch, err := c.session.State.Channel(vs.ChannelID)
	if err != nil {
		ch, err = c.session.Channel(vs.ChannelID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("voice channel %s: %w", vs.ChannelID, err)
		}
	}
	return &engine.VoiceLink{ChannelID: ch.ID, Name: ch.Name}, nil
}

func (c *Client) Edit(ctx context.Context, ref lobby.MessageRef, msg render.Message) error {
	if _, err := c.session.ChannelMessageEditComplex(c.messageEdit(ref, msg), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit message %s: %w", ref.MessageID, err)
	}
	return nil
}

func (c *Client) Notify(ctx context.Context, identity, text string) error {
	ch, err := c.session.UserChannelCreate(identity, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	if _, err := c.session.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	return nil
}

// Post sends msg to a channel.
func (c *Client) Post(ctx context.Context, channelID string, msg render.Message) (lobby.MessageRef, error) {
	m, err := c.session.ChannelMessageSendComplex(channelID, c.messageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return lobby.MessageRef{}, fmt.Errorf("post to %s: %w", channelID, err)
	}
	return lobby.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID}, nil
}

// Players groups the members of guildID currently playing Call of Duty by game family.
// It reads the presence cache, so it needs the guild presences intent.
func (c *Client) Players(guildID string) (map[string][]string, error) {
	guild, err := c.session.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s: %w", guildID, err)
	}
	out := make(map[string][]string)
	for _, p := range guild.Presences {
		if p.User == nil {
			continue
		}
		for _, a := range p.Activities {
			if a == nil || a.Type != discordgo.ActivityTypeGame {
				continue
			}
			family, ok := classifyGame(a.Name)
			if !ok {
				continue
			}
			out[family] = append(out[family], c.displayName(guildID, p.User))
			break
		}
	}
	return out, nil
}

func (c *Client) displayName(guildID string, u *discordgo.User) string {
	if m, err := c.session.State.Member(guildID, u.ID); err == nil && m.Nick != "" {
		return m.Nick
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func classifyGame(name string) (string, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "warzone"):
		return render.GameWarzone, true
	case strings.Contains(lower, "black ops"):
		return render.GameBlackOps, true
	case strings.Contains(lower, "call of duty"), strings.Contains(lower, "modern warfare"):
		return render.GameOther, true
	}
	return "", false
}
