package bot

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/teamfinder/internal/lobby"
	"github.com/DoyleJ11/teamfinder/internal/render"
	"github.com/DoyleJ11/teamfinder/pkg/types"
)

// interactionAPI is the part of *discordgo.Session used to answer interactions.
type interactionAPI interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponse(i *discordgo.Interaction, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(i *discordgo.Interaction, wait bool, params *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// deferNotice acknowledges i with a private "thinking" reply that editNotice fills in later.
func deferNotice(ctx context.Context, api interactionAPI, i *discordgo.Interaction) error {
	return api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx))
}

func editNotice(ctx context.Context, api interactionAPI, i *discordgo.Interaction, text string) error {
	_, err := api.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &text}, discordgo.WithContext(ctx))
	return err
}

// cardDelivery posts a new session card as the public reply to the command that
// created it.
type cardDelivery struct {
	api         interactionAPI
	interaction *discordgo.Interaction
	codec       *types.Codec

	responded bool
	posted    render.Message
}

func (c *cardDelivery) deliver(ctx context.Context, msg render.Message) (lobby.MessageRef, error) {
	err := c.api.InteractionRespond(c.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{toEmbed(msg)},
			Components: toComponents(msg.Buttons, c.codec),
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return lobby.MessageRef{}, fmt.Errorf("respond: %w", err)
	}
	c.responded, c.posted = true, msg

	m, err := c.api.InteractionResponse(c.interaction, discordgo.WithContext(ctx))
	if err != nil {
		return lobby.MessageRef{}, fmt.Errorf("fetch response: %w", err)
	}
	return lobby.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID}, nil
}

// withdraw disables a card whose session failed to open after the card went out, and
// tells the owner privately. The interaction is already answered, so both go through
// the interaction webhook.
func (c *cardDelivery) withdraw(ctx context.Context, text string) error {
	card := c.posted
	card.Color = render.ColorRed
	card.Buttons = slices.Clone(card.Buttons)
	for i := range card.Buttons {
		card.Buttons[i].Disabled = true
	}
	embeds := []*discordgo.MessageEmbed{toEmbed(card)}
	components := toComponents(card.Buttons, c.codec)

	var errs error
	edit := &discordgo.WebhookEdit{Embeds: &embeds, Components: &components}
	if _, err := c.api.InteractionResponseEdit(c.interaction, edit, discordgo.WithContext(ctx)); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("disable card: %w", err))
	}
	params := &discordgo.WebhookParams{Content: text, Flags: discordgo.MessageFlagsEphemeral}
	if _, err := c.api.FollowupMessageCreate(c.interaction, false, params, discordgo.WithContext(ctx)); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("follow up: %w", err))
	}
	return errs
}
