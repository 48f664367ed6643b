package render

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/teamfinder/internal/draw"
	"github.com/DoyleJ11/teamfinder/internal/engine"
	"github.com/DoyleJ11/teamfinder/internal/notice"
	"github.com/DoyleJ11/teamfinder/internal/profile"
	"github.com/DoyleJ11/teamfinder/pkg/types"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	loc, err := notice.NewLocalizer("es")
	require.NoError(t, err)
	return New(loc)
}

func field(t *testing.T, msg Message, prefix string) Field {
	t.Helper()
	for _, f := range msg.Fields {
		if strings.HasPrefix(f.Name, prefix) {
			return f
		}
	}
	t.Fatalf("no field starting with %q in %+v", prefix, msg.Fields)
	return Field{}
}

func TestSession_SearchCard(t *testing.T) {
	r := newRenderer(t)
	s := engine.NewState("s1", engine.KindSearch, "100", engine.Config{Platform: "PC", Mode: "Battle Royale", Capacity: 4, Description: "chill"})
	s.Roster = []string{"200", "300"}
	dir := Directory{
		"100": profile.Profile{Identity: "100", Handle: "Ghost#1", SkillRatio: 1.5},
		"200": profile.Profile{Identity: "200", Handle: "Soap#2"},
	}

	msg := r.Session(s, dir)

	require.Equal(t, "📣 BÚSQUEDA DE EQUIPO", msg.Title)
	team := field(t, msg, "👥 Equipo (3/4)")
	require.Contains(t, team.Value, "1. <@100> · `Ghost#1` 👑")
	require.Contains(t, team.Value, "2. <@200> · `Soap#2`")
	// profile gone between join and render
	require.Contains(t, team.Value, "3. <@300> · `Desconocido`")
	require.Equal(t, "No conectado a canal de voz", field(t, msg, "🔊").Value)
	require.Equal(t, "1", field(t, msg, "🪑").Value)

	require.Len(t, msg.Buttons, 3)
	for _, b := range msg.Buttons {
		require.False(t, b.Disabled)
		require.Equal(t, "s1", b.Component.SessionID)
	}
	require.Equal(t, types.ActionJoin, msg.Buttons[0].Component.Action)
}

func TestSession_CancelledDisablesButtons(t *testing.T) {
	r := newRenderer(t)
	s := engine.NewState("s1", engine.KindSearch, "100", engine.Config{Platform: "PC", Mode: "Zombies", Capacity: 2})
	s.Voice = &engine.VoiceLink{ChannelID: "vc", Name: "Squad"}
	s.Status = engine.StatusCancelled

	msg := r.Session(s, nil)
	require.Equal(t, "📢 BÚSQUEDA CANCELADA", msg.Title)
	require.Equal(t, ColorRed, msg.Color)
	require.Equal(t, "🔊 Squad", field(t, msg, "🔊").Value)
	for _, b := range msg.Buttons {
		require.True(t, b.Disabled)
	}
}

func TestSession_TournamentButtons(t *testing.T) {
	r := newRenderer(t)
	s := engine.NewState("t1", engine.KindTournament, "1", engine.Config{Mode: "Resurgimiento", Capacity: engine.OpenCapacity, GroupSize: 2, Prize: "Nitro"})

	msg := r.Session(s, nil)
	require.Equal(t, "Nitro", field(t, msg, "🎁").Value)
	labels := make([]string, len(msg.Buttons))
	for i, b := range msg.Buttons {
		labels[i] = b.Label
	}
	require.Equal(t, []string{"Inscribir Equipo", "Generar Brackets", "Actualizar", "Cancelar"}, labels)
}

func TestDraw_ListsLeftOut(t *testing.T) {
	r := newRenderer(t)
	s := engine.NewState("m1", engine.KindMatch, "a", engine.Config{Mode: "Resurgimiento", Capacity: engine.OpenCapacity, GroupSize: 2})
	s.Roster = []string{"b", "c"}
	s.Status = engine.StatusDrawn
	s.Groups = [][]string{{"c", "a"}}

	pages := r.Draw(s, nil)
	require.Len(t, pages, 1)
	msg := pages[0]
	require.Equal(t, "🎲 Sorteo de Equipos", msg.Title)
	require.Equal(t, "Equipo 1", msg.Fields[0].Name)
	require.Contains(t, field(t, msg, "Sin equipo").Value, "<@b>")
}

func TestDraw_Bracket(t *testing.T) {
	r := newRenderer(t)
	s := engine.NewState("t1", engine.KindTournament, "a", engine.Config{Mode: "Resurgimiento", Capacity: engine.OpenCapacity, GroupSize: 2})
	s.Roster = []string{"b"}
	s.Status = engine.StatusDrawn
	s.Pairings = []draw.Pairing{{Home: "b", Away: "a"}}

	pages := r.Draw(s, Directory{"a": {Handle: "A#1"}, "b": {Handle: "B#2"}})
	require.Len(t, pages, 1)
	msg := pages[0]
	require.Equal(t, "Partido 1", msg.Fields[0].Name)
	require.Equal(t, "<@b> (`B#2`) vs <@a> (`A#1`)", msg.Fields[0].Value)
}

// crowd builds a session of n members whose handles are as long as registration allows.
func crowd(kind engine.Kind, n int) (engine.State, Directory) {
	s := engine.NewState("big", kind, "100000000000000000", engine.Config{Mode: "Resurgimiento", Capacity: engine.OpenCapacity, GroupSize: 2})
	dir := Directory{}
	for i := range n {
		id := fmt.Sprintf("1%017d", i)
		if i > 0 {
			s.Roster = append(s.Roster, id)
		}
		dir[id] = profile.Profile{Identity: id, Handle: fmt.Sprintf("%016d#%010d", i, i)}
	}
	return s, dir
}

func embedText(msg Message) int {
	n := utf8.RuneCountInString(msg.Title) + utf8.RuneCountInString(msg.Description) + utf8.RuneCountInString(msg.Footer)
	for _, f := range msg.Fields {
		n += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
	}
	return n
}

func requireEmbedLimits(t *testing.T, msg Message) {
	t.Helper()
	require.LessOrEqual(t, len(msg.Fields), maxFields)
	require.LessOrEqual(t, embedText(msg), 6000)
	for _, f := range msg.Fields {
		require.LessOrEqual(t, len(f.Value), maxFieldValue)
	}
}

func TestSession_FullRosterListsEveryMember(t *testing.T) {
	r := newRenderer(t)
	for _, kind := range []engine.Kind{engine.KindMatch, engine.KindTournament} {
		s, dir := crowd(kind, engine.OpenCapacity)

		msg := r.Session(s, dir)
		requireEmbedLimits(t, msg)
		text := ""
		for _, f := range msg.Fields {
			text += f.Value + "\n"
		}
		for _, id := range s.Members() {
			require.Contains(t, text, "`"+dir[id].Handle+"`", kind)
		}
		require.NotContains(t, text, "…")
	}
}

func TestDraw_LargeMatchSpansPages(t *testing.T) {
	r := newRenderer(t)
	s, dir := crowd(engine.KindMatch, 100)
	members := s.Members()
	for i := 0; i < len(members); i += 2 {
		s.Groups = append(s.Groups, members[i:i+2])
	}
	s.Status = engine.StatusDrawn

	pages := r.Draw(s, dir)
	require.Greater(t, len(pages), 1)
	groups, text := 0, ""
	for i, page := range pages {
		requireEmbedLimits(t, page)
		require.Equal(t, fmt.Sprintf("🎲 Sorteo de Equipos (parte %d/%d)", i+1, len(pages)), page.Title)
		for _, f := range page.Fields {
			require.NotEqual(t, "Sin equipo", f.Name)
			if strings.HasPrefix(f.Name, "Equipo ") {
				groups++
			}
			text += f.Value + "\n"
		}
	}
	require.Equal(t, 50, groups)
	for _, id := range members {
		require.Contains(t, text, "<@"+id+">")
	}
	require.Empty(t, pages[1].Description)
}

func TestDraw_FullBracketKeepsLeftOut(t *testing.T) {
	r := newRenderer(t)
	s, dir := crowd(engine.KindTournament, engine.OpenCapacity-1)
	members := s.Members()
	for i := 0; i+1 < len(members); i += 2 {
		s.Pairings = append(s.Pairings, draw.Pairing{Home: members[i], Away: members[i+1]})
	}
	s.Status = engine.StatusDrawn

	pages := r.Draw(s, dir)
	for _, page := range pages {
		requireEmbedLimits(t, page)
	}
	last := pages[len(pages)-1]
	leftOut := last.Fields[len(last.Fields)-1]
	require.Equal(t, "Sin equipo", leftOut.Name)
	require.Contains(t, leftOut.Value, "<@"+members[len(members)-1]+">")
	require.Len(t, last.Fields, 25, "24 pairings plus the left out field")
}

func TestClip_RespectsLimitAndRunes(t *testing.T) {
	long := strings.Repeat("ñ", 900) // 1800 bytes
	got := clip(long)
	require.LessOrEqual(t, len(got), maxFieldValue)
	require.True(t, strings.HasSuffix(got, "…"))
	require.True(t, strings.HasPrefix(got, "ññ"))
}

func TestChunkLines_SplitsOnLimit(t *testing.T) {
	lines := make([]string, 40)
	for i := range lines {
		lines[i] = strings.Repeat("x", 60)
	}
	fields := chunkLines("Lista", lines)
	require.Greater(t, len(fields), 1)
	require.Equal(t, "Lista", fields[0].Name)
	for _, f := range fields {
		require.LessOrEqual(t, len(f.Value), maxFieldValue)
	}
}

func TestPlayers_EmptyFamilies(t *testing.T) {
	r := newRenderer(t)
	msg := r.Players(map[string][]string{GameBlackOps: {"zed", "amy"}})
	require.Len(t, msg.Fields, 2)
	require.Equal(t, "No hay jugadores en Warzone", msg.Fields[0].Value)
	require.Equal(t, "amy\nzed", msg.Fields[1].Value)
}
