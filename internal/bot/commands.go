package bot

import (
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/DoyleJ11/teamfinder/internal/engine"
	"github.com/DoyleJ11/teamfinder/internal/notice"
)

const (
	cmdRegister      = "registrar"
	cmdProfile       = "perfil"
	cmdViewProfile   = "ver_perfil"
	cmdSearch        = "buscar_equipo"
	cmdPrivate       = "crear_privada"
	cmdTournament    = "crear_torneo"
	cmdEntrants      = "ver_inscritos"
	cmdPlayers       = "jugadores"
	cmdRegistered    = "jugadores_inscritos"
	cmdActive        = "busquedas_activas"
	cmdHelp          = "help"
	registerModalID  = "tf:register"
	modalHandleInput = "handle"
	modalKDInput     = "kd"
)

const (
	optPlatform    = "plataforma"
	optMode        = "modo"
	optMinSkill    = "kd_minimo"
	optMaxPlayers  = "max_jugadores"
	optDescription = "descripcion"
	optGroupSize   = "tamanio_equipo"
	optPrize       = "premio"
	optUser        = "usuario"
	optPublic      = "publico"
)

// commandNames is the order commands are listed in the help card.
var commandNames = []string{
	cmdRegister, cmdProfile, cmdViewProfile, cmdSearch, cmdPrivate, cmdTournament,
	cmdEntrants, cmdPlayers, cmdRegistered, cmdActive, cmdHelp,
}

// CommandNames lists the slash commands in help order.
func CommandNames() []string {
	return slices.Clone(commandNames)
}

func choices(values []string) []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, len(values))
	for i, v := range values {
		out[i] = &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v}
	}
	return out
}

func sizeChoices() []*discordgo.ApplicationCommandOptionChoice {
	return []*discordgo.ApplicationCommandOptionChoice{
		{Name: "2", Value: 2},
		{Name: "3", Value: 3},
		{Name: "4", Value: 4},
	}
}

// commands builds the slash command definitions with descriptions in the bot locale.
func commands(loc *notice.Localizer) []*discordgo.ApplicationCommand {
	zero := 0.0
	desc := func(name string) string { return loc.T(notice.HelpCommand(name)) }
	public := &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionBoolean, Name: optPublic, Description: loc.T(notice.OptPublic)}
	description := &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: optDescription, Description: loc.T(notice.OptDescription), MaxLength: 500}
	mode := &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: optMode, Description: loc.T(notice.OptMode), Required: true, Choices: choices(engine.Modes)}
	groupSize := &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionInteger, Name: optGroupSize, Description: loc.T(notice.OptGroupSize), Required: true, Choices: sizeChoices()}

	return []*discordgo.ApplicationCommand{
		{Name: cmdRegister, Description: desc(cmdRegister)},
		{Name: cmdProfile, Description: desc(cmdProfile)},
		{
			Name:        cmdViewProfile,
			Description: desc(cmdViewProfile),
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: optUser, Description: loc.T(notice.OptUser)},
				public,
			},
		},
		{
			Name:        cmdSearch,
			Description: desc(cmdSearch),
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: optPlatform, Description: loc.T(notice.OptPlatform), Required: true, Choices: choices(engine.Platforms)},
				mode,
				{Type: discordgo.ApplicationCommandOptionNumber, Name: optMinSkill, Description: loc.T(notice.OptMinSkill), MinValue: &zero},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: optMaxPlayers, Description: loc.T(notice.OptMaxPlayers), Choices: sizeChoices()},
				description,
			},
		},
		{
			Name:        cmdPrivate,
			Description: desc(cmdPrivate),
			Options:     []*discordgo.ApplicationCommandOption{mode, groupSize, description},
		},
		{
			Name:        cmdTournament,
			Description: desc(cmdTournament),
			Options: []*discordgo.ApplicationCommandOption{
				mode,
				groupSize,
				{Type: discordgo.ApplicationCommandOptionString, Name: optPrize, Description: loc.T(notice.OptPrize), Required: true, MaxLength: 128},
				description,
			},
		},
		{Name: cmdEntrants, Description: desc(cmdEntrants), Options: []*discordgo.ApplicationCommandOption{public}},
		{Name: cmdPlayers, Description: desc(cmdPlayers)},
		{Name: cmdRegistered, Description: desc(cmdRegistered), Options: []*discordgo.ApplicationCommandOption{public}},
		{Name: cmdActive, Description: desc(cmdActive)},
		{Name: cmdHelp, Description: desc(cmdHelp), Options: []*discordgo.ApplicationCommandOption{public}},
	}
}

// registerModal asks for the handle and skill ratio.
func registerModal(loc *notice.Localizer) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: registerModalID,
		Title:    loc.T(notice.ModalTitle),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    modalHandleInput,
					Label:       loc.T(notice.ModalHandle),
					Style:       discordgo.TextInputShort,
					Placeholder: "Ghost#12345",
					Required:    true,
					MinLength:   5,
					MaxLength:   27,
				},
			}},
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    modalKDInput,
					Label:       loc.T(notice.ModalKD),
					Style:       discordgo.TextInputShort,
					Placeholder: "1.2",
					Required:    true,
					MaxLength:   8,
				},
			}},
		},
	}
}
