package render

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/DoyleJ11/teamfinder/internal/engine"
	"github.com/DoyleJ11/teamfinder/internal/notice"
	"github.com/DoyleJ11/teamfinder/internal/profile"
	"github.com/DoyleJ11/teamfinder/internal/store"
)

// Discord allows at most 25 fields per embed.
const maxFields = 25

// Discord caps the combined text of one embed. Page titles get some headroom.
const maxEmbedText = 6000 - 64

// Draw renders the public result of a drawn match or tournament. Every group or
// pairing is listed; results too large for one embed continue on further pages.
func (r *Renderer) Draw(s engine.State, dir Directory) []Message {
	head := Message{
		Title:       r.loc.T(notice.GroupsTitle),
		Description: r.loc.T(notice.GroupsDesc),
		Color:       ColorPurple,
	}
	placed := make(map[string]bool)
	var fields []Field

	if s.Kind == engine.KindTournament {
		head = Message{
			Title:       r.loc.T(notice.BracketTitle),
			Description: r.loc.T(notice.BracketDesc),
			Color:       ColorGold,
		}
		for i, p := range s.Pairings {
			placed[p.Home], placed[p.Away] = true, true
			fields = append(fields, Field{
				Name:  r.loc.T(notice.BracketMatch, i+1),
				Value: r.loc.T(notice.Versus, r.member(dir, p.Home), r.member(dir, p.Away)),
			})
		}
	} else {
		for i, group := range s.Groups {
			names := make([]string, len(group))
			for j, id := range group {
				names[j] = r.member(dir, id)
				placed[id] = true
			}
			fields = append(fields, Field{Name: r.loc.T(notice.GroupName, i+1), Value: clip(strings.Join(names, "\n")), Inline: true})
		}
	}

	var left []string
	for _, id := range s.Members() {
		if !placed[id] {
			left = append(left, r.member(dir, id))
		}
	}
	if len(left) > 0 {
		fields = append(fields, chunkLines(r.loc.T(notice.LeftOut), left)...)
	}
	return r.paginate(head, fields)
}

// paginate spreads fields over as many copies of head as the embed limits require.
// Only the first page keeps the description.
func (r *Renderer) paginate(head Message, fields []Field) []Message {
	budget := maxEmbedText - utf8.RuneCountInString(head.Title) - utf8.RuneCountInString(head.Description)
	var pages [][]Field
	var page []Field
	used := 0
	for _, f := range fields {
		n := utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
		if len(page) > 0 && (len(page) == maxFields || used+n > budget) {
			pages = append(pages, page)
			page, used = nil, 0
		}
		page = append(page, f)
		used += n
	}
	pages = append(pages, page)

	out := make([]Message, len(pages))
	for i, fs := range pages {
		msg := head
		msg.Fields = fs
		if len(pages) > 1 {
			msg.Title = r.loc.T(notice.DrawPage, head.Title, i+1, len(pages))
			if i > 0 {
				msg.Description = ""
			}
		}
		out[i] = msg
	}
	return out
}

func (r *Renderer) member(dir Directory, identity string) string {
	return fmt.Sprintf("%s (`%s`)", Mention(identity), r.Handle(dir, identity))
}

// Profile renders a profile card for the user shown as displayName.
func (r *Renderer) Profile(p profile.Profile, displayName string) Message {
	return Message{
		Title:       r.loc.T(notice.ProfileTitle, displayName),
		Description: r.loc.T(notice.ProfileDesc),
		Color:       ColorBlue,
		Fields: []Field{
			{Name: r.loc.T(notice.FieldDiscord), Value: Mention(p.Identity), Inline: true},
			{Name: r.loc.T(notice.FieldHandle), Value: "`" + p.Handle + "`", Inline: true},
			{Name: r.loc.T(notice.FieldKD), Value: fmt.Sprintf("`%.2f`", p.SkillRatio), Inline: true},
			{Name: r.loc.T(notice.FieldSince), Value: p.CreatedAt.Format("02/01/2006")},
		},
	}
}

// Registered lists every registered profile.
func (r *Renderer) Registered(profiles []profile.Profile) Message {
	msg := Message{
		Title:       r.loc.T(notice.RegisteredTitle),
		Description: r.loc.T(notice.RegisteredDesc),
		Color:       ColorBlue,
	}
	if len(profiles) == 0 {
		msg.Description = r.loc.T(notice.RegisteredEmpty)
		return msg
	}
	lines := make([]string, 0, len(profiles))
	for _, p := range profiles {
		lines = append(lines, fmt.Sprintf("%s · `%s` · K/D `%.2f`", Mention(p.Identity), p.Handle, p.SkillRatio))
	}
	msg.Fields = chunkLines(r.loc.T(notice.RegisteredTitle), lines)
	return msg
}

// Entrants lists the members of a durable match record.
func (r *Renderer) Entrants(rec store.SessionRecord, dir Directory) Message {
	msg := Message{
		Title:       r.loc.T(notice.EntrantsTitle),
		Description: r.loc.T(notice.EntrantsDesc),
		Color:       ColorGreen,
	}
	lines := []string{r.member(dir, rec.OwnerRef) + " 👑"}
	for _, m := range rec.Members {
		lines = append(lines, r.member(dir, m.IdentityRef))
	}
	msg.Fields = chunkLines(r.loc.T(notice.FieldMembers, len(lines)), lines)
	return msg
}

// Active lists open durable records.
func (r *Renderer) Active(recs []store.SessionRecord) Message {
	msg := Message{Title: r.loc.T(notice.ActiveTitle), Color: ColorBlue}
	if len(recs) == 0 {
		msg.Description = r.loc.T(notice.ActiveEmpty)
		return msg
	}
	lines := make([]string, 0, len(recs))
	for _, rec := range recs {
		lines = append(lines, r.loc.T(notice.ActiveEntry, r.kindName(engine.Kind(rec.Kind)), rec.Mode, len(rec.Members)+1, rec.Capacity)+" · "+Mention(rec.OwnerRef))
	}
	msg.Fields = chunkLines(r.loc.T(notice.ActiveTitle), lines)
	return msg
}

func (r *Renderer) kindName(k engine.Kind) string {
	switch k {
	case engine.KindMatch:
		return r.loc.T(notice.KindMatch)
	case engine.KindTournament:
		return r.loc.T(notice.KindTournament)
	}
	return r.loc.T(notice.KindSearch)
}

// Game families for the online players card.
const (
	GameWarzone  = "warzone"
	GameBlackOps = "blackops"
	GameOther    = "other"
)

// Players renders members currently playing Call of Duty, grouped by game family.
func (r *Renderer) Players(byGame map[string][]string) Message {
	msg := Message{
		Title:       r.loc.T(notice.PlayersTitle),
		Description: r.loc.T(notice.PlayersDesc),
		Color:       ColorGreen,
	}
	list := func(names []string, empty notice.Key) string {
		if len(names) == 0 {
			return r.loc.T(empty)
		}
		sorted := slices.Clone(names)
		slices.Sort(sorted)
		return clip(strings.Join(sorted, "\n"))
	}
	msg.Fields = append(msg.Fields,
		Field{Name: r.loc.T(notice.PlayersWarzone), Value: list(byGame[GameWarzone], notice.PlayersNoneWarzone)},
		Field{Name: r.loc.T(notice.PlayersBlackOps), Value: list(byGame[GameBlackOps], notice.PlayersNoneBlackOps)},
	)
	if others := byGame[GameOther]; len(others) > 0 {
		msg.Fields = append(msg.Fields, Field{Name: r.loc.T(notice.PlayersOther), Value: list(others, notice.ListEmpty)})
	}
	return msg
}

// Help renders the command list.
func (r *Renderer) Help(commands []string) Message {
	msg := Message{
		Title:       r.loc.T(notice.HelpTitle),
		Description: r.loc.T(notice.HelpDesc),
		Color:       ColorPurple,
	}
	for _, name := range commands {
		msg.Fields = append(msg.Fields, Field{Name: "/" + name, Value: r.loc.T(notice.HelpCommand(name))})
	}
	msg.Fields = append(msg.Fields, Field{Name: r.loc.T(notice.HelpButtons), Value: r.loc.T(notice.HelpButtonsBody)})
	return msg
}

// chunkLines packs lines into as few fields as the value limit allows.
func chunkLines(name string, lines []string) []Field {
	var fields []Field
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		fieldName := name
		if len(fields) > 0 {
			fieldName = "\u200b" // continuation fields have a blank name
		}
		fields = append(fields, Field{Name: fieldName, Value: b.String()})
		b.Reset()
	}
	for _, line := range lines {
		line = clip(line)
		if b.Len()+len(line)+1 > maxFieldValue {
			flush()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	flush()
	if len(fields) > maxFields {
		fields = fields[:maxFields]
	}
	return fields
}
