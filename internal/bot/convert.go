package bot

import (
	"github.com/bwmarrin/discordgo"

	"github.com/DoyleJ11/teamfinder/internal/lobby"
	"github.com/DoyleJ11/teamfinder/internal/render"
	"github.com/DoyleJ11/teamfinder/pkg/types"
)

// Discord caps an action row at five buttons.
const rowSize = 5

var buttonStyles = map[render.Style]discordgo.ButtonStyle{
	render.StylePrimary:   discordgo.PrimaryButton,
	render.StyleSecondary: discordgo.SecondaryButton,
	render.StyleSuccess:   discordgo.SuccessButton,
	render.StyleDanger:    discordgo.DangerButton,
}

func toEmbed(msg render.Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       msg.Color,
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if msg.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: msg.Footer}
	}
	return embed
}

func toComponents(buttons []render.Button, codec *types.Codec) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons); start += rowSize {
		end := min(start+rowSize, len(buttons))
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			style, ok := buttonStyles[b.Style]
			if !ok {
				style = discordgo.SecondaryButton
			}
			row.Components = append(row.Components, discordgo.Button{
				Label:    b.Label,
				Style:    style,
				CustomID: codec.Encode(b.Component),
				Disabled: b.Disabled,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func (c *Client) messageSend(msg render.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{toEmbed(msg)},
		Components: toComponents(msg.Buttons, c.codec),
	}
}

func (c *Client) messageEdit(ref lobby.MessageRef, msg render.Message) *discordgo.MessageEdit {
	embeds := []*discordgo.MessageEmbed{toEmbed(msg)}
	components := toComponents(msg.Buttons, c.codec)
	edit := discordgo.NewMessageEdit(ref.ChannelID, ref.MessageID)
	edit.Embeds = &embeds
	edit.Components = &components
	return edit
}
