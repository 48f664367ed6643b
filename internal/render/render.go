// Package render turns sessions and profiles into platform-neutral messages: an embed
// shaped card plus a row of buttons. The bot package converts them to Discord payloads.
package render

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/DoyleJ11/teamfinder/internal/engine"
	"github.com/DoyleJ11/teamfinder/internal/notice"
	"github.com/DoyleJ11/teamfinder/internal/profile"
	"github.com/DoyleJ11/teamfinder/pkg/types"
)

type Style int

const (
	StylePrimary Style = iota + 1
	StyleSecondary
	StyleSuccess
	StyleDanger
)

const (
	ColorBlue   = 0x3498db
	ColorGreen  = 0x2ecc71
	ColorRed    = 0xe74c3c
	ColorGold   = 0xf1c40f
	ColorPurple = 0x9b59b6
	ColorGrey   = 0x95a5a6
)

// Discord rejects field values over this length.
const maxFieldValue = 1024

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type Button struct {
	Label     string
	Style     Style
	Component types.Component
	Disabled  bool
}

type Message struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Buttons     []Button
	Footer      string
}

// Directory maps identities to their profiles. Missing entries render as unknown.
type Directory map[string]profile.Profile

type Renderer struct {
	loc *notice.Localizer
}

func New(loc *notice.Localizer) *Renderer {
	return &Renderer{loc: loc}
}

func (r *Renderer) Localizer() *notice.Localizer { return r.loc }

func Mention(identity string) string { return "<@" + identity + ">" }

// Session renders the live card of s. Terminal sessions keep their card but every
// button is disabled.
func (r *Renderer) Session(s engine.State, dir Directory) Message {
	var msg Message
	switch s.Kind {
	case engine.KindSearch:
		msg = r.search(s, dir)
	case engine.KindMatch:
		msg = r.match(s, dir)
	default:
		msg = r.tournament(s, dir)
	}

	if !s.Active() {
		msg.Color = ColorRed
		status := r.loc.T(notice.StatusCancelled)
		if s.Status == engine.StatusDrawn {
			msg.Color = ColorGrey
			status = r.loc.T(notice.StatusDrawn)
		}
		msg.Fields = append(msg.Fields, Field{Name: r.loc.T(notice.FieldStatus), Value: status})
	}
	msg.Buttons = r.buttons(s)
	msg.Footer = r.loc.T(notice.Footer, s.ID)
	return msg
}

func (r *Renderer) search(s engine.State, dir Directory) Message {
	msg := Message{
		Title:       r.loc.T(notice.SearchTitle),
		Description: r.loc.T(notice.SearchDesc, Mention(s.Owner)),
		Color:       ColorBlue,
	}
	if s.Status == engine.StatusCancelled {
		msg.Title = r.loc.T(notice.SearchCancelledTitle)
		msg.Description = r.loc.T(notice.SearchCancelledDesc, Mention(s.Owner))
	}

	msg.Fields = []Field{
		{Name: r.loc.T(notice.FieldPlatform), Value: s.Config.Platform, Inline: true},
		{Name: r.loc.T(notice.FieldMode), Value: s.Config.Mode, Inline: true},
		{Name: r.loc.T(notice.FieldMinSkill), Value: fmt.Sprintf("%.2f", s.Config.MinSkill), Inline: true},
	}
	msg.Fields = append(msg.Fields, r.roster(r.loc.T(notice.FieldTeam, len(s.Members()), s.Config.Capacity), s, dir)...)
	msg.Fields = append(msg.Fields, Field{Name: r.loc.T(notice.FieldOpenSlots), Value: strconv.Itoa(engine.OpenSlots(s)), Inline: true})
	if owner, ok := dir[s.Owner]; ok {
		msg.Fields = append(msg.Fields, Field{Name: r.loc.T(notice.FieldOwnerKD), Value: fmt.Sprintf("`%.2f`", owner.SkillRatio), Inline: true})
	}
	if s.Config.Description != "" {
		msg.Fields = append(msg.Fields, Field{Name: r.loc.T(notice.FieldDesc), Value: clip(s.Config.Description)})
	}

	voice := r.loc.T(notice.FieldVoiceNone)
	if s.Voice != nil {
		voice = "🔊 " + s.Voice.Name
	}
	msg.Fields = append(msg.Fields, Field{Name: r.loc.T(notice.FieldVoice), Value: voice})
	return msg
}

func (r *Renderer) match(s engine.State, dir Directory) Message {
	msg := Message{
		Title:       r.loc.T(notice.MatchTitle),
		Description: r.loc.T(notice.MatchDesc, Mention(s.Owner)),
		Color:       ColorGreen,
		Fields: []Field{
			{Name: r.loc.T(notice.FieldMode), Value: s.Config.Mode, Inline: true},
			{Name: r.loc.T(notice.FieldGroupSize), Value: r.loc.T(notice.FieldGroupValue, s.Config.GroupSize), Inline: true},
			{Name: r.loc.T(notice.FieldHost), Value: Mention(s.Owner), Inline: true},
		},
	}
	if s.Config.Description != "" {
		msg.Fields = append(msg.Fields, Field{Name: r.loc.T(notice.FieldDesc), Value: clip(s.Config.Description)})
	}
	msg.Fields = append(msg.Fields, r.roster(r.loc.T(notice.FieldMembers, len(s.Members())), s, dir)...)
	return msg
}

func (r *Renderer) tournament(s engine.State, dir Directory) Message {
	msg := Message{
		Title:       r.loc.T(notice.TournamentTitle),
		Description: r.loc.T(notice.TournamentDesc, Mention(s.Owner)),
		Color:       ColorGold,
		Fields: []Field{
			{Name: r.loc.T(notice.FieldMode), Value: s.Config.Mode, Inline: true},
			{Name: r.loc.T(notice.FieldGroupSize), Value: r.loc.T(notice.FieldGroupValue, s.Config.GroupSize), Inline: true},
			{Name: r.loc.T(notice.FieldOrganizer), Value: Mention(s.Owner), Inline: true},
			{Name: r.loc.T(notice.FieldPrize), Value: clip(s.Config.Prize), Inline: true},
		},
	}
	if s.Config.Description != "" {
		msg.Fields = append(msg.Fields, Field{Name: r.loc.T(notice.FieldDesc), Value: clip(s.Config.Description)})
	}
	msg.Fields = append(msg.Fields, r.roster(r.loc.T(notice.FieldTeams, len(s.Members())), s, dir)...)
	return msg
}

// roster lists every slot in join order, owner first, spread over as many fields as the
// value limit needs.
func (r *Renderer) roster(name string, s engine.State, dir Directory) []Field {
	slots := engine.Slots(s)
	lines := make([]string, 0, len(slots))
	for _, slot := range slots {
		line := fmt.Sprintf("%d. %s · `%s`", slot.Number, Mention(slot.Identity), r.Handle(dir, slot.Identity))
		if slot.Owner {
			line += " 👑"
		}
		lines = append(lines, line)
	}
	return chunkLines(name, lines)
}

// Handle is the registered handle of identity, or the localized unknown marker.
func (r *Renderer) Handle(dir Directory, identity string) string {
	if p, ok := dir[identity]; ok && p.Handle != "" {
		return p.Handle
	}
	return r.loc.T(notice.Unknown)
}

func (r *Renderer) buttons(s engine.State) []Button {
	actions := types.Actions(s.Kind)
	buttons := make([]Button, 0, len(actions))
	for _, action := range actions {
		label, style := r.buttonLook(s.Kind, action)
		buttons = append(buttons, Button{
			Label:     label,
			Style:     style,
			Component: types.Component{Kind: s.Kind, Action: action, SessionID: s.ID},
			Disabled:  !s.Active(),
		})
	}
	return buttons
}

func (r *Renderer) buttonLook(kind engine.Kind, action types.Action) (string, Style) {
	switch action {
	case types.ActionJoin:
		switch kind {
		case engine.KindMatch:
			return r.loc.T(notice.ButtonRegister), StyleSuccess
		case engine.KindTournament:
			return r.loc.T(notice.ButtonRegisterTeam), StyleSuccess
		}
		return r.loc.T(notice.ButtonJoin), StyleSuccess
	case types.ActionVoice:
		return r.loc.T(notice.ButtonVoice), StylePrimary
	case types.ActionDraw:
		if kind == engine.KindTournament {
			return r.loc.T(notice.ButtonBrackets), StylePrimary
		}
		return r.loc.T(notice.ButtonDraw), StylePrimary
	case types.ActionRefresh:
		return r.loc.T(notice.ButtonRefresh), StyleSecondary
	default:
		if kind == engine.KindSearch {
			return r.loc.T(notice.ButtonCancelSearch), StyleDanger
		}
		return r.loc.T(notice.ButtonCancel), StyleDanger
	}
}

func clip(s string) string {
	if len(s) <= maxFieldValue {
		return s
	}
	cut := maxFieldValue - len("…")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
