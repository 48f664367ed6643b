// Package notice holds every user-facing string. Catalogs live in locales/*.yaml and are
// registered with golang.org/x/text/message; Spanish is the default community language.
package notice

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

const DefaultLocale = "es"

var ErrUnknownLocale = errors.New("unknown locale")

//go:embed locales/*.yaml
var localeFS embed.FS

type Key string

// Private replies.
const (
	SessionInactive  Key = "notice.session_inactive"
	NotFound         Key = "notice.not_found"
	Unregistered     Key = "notice.unregistered"
	AlreadyJoined    Key = "notice.already_joined"
	Full             Key = "notice.full"
	ForbiddenCancel  Key = "notice.forbidden_cancel"
	ForbiddenDraw    Key = "notice.forbidden_draw"
	NotEnough        Key = "notice.not_enough"
	Storage          Key = "notice.storage"
	Delivery         Key = "notice.delivery"
	Unexpected       Key = "notice.unexpected"
	InvalidComponent Key = "notice.invalid_component"
	InvalidHandle    Key = "notice.invalid_handle"
	InvalidSkill     Key = "notice.invalid_skill"
	InvalidConfig    Key = "notice.invalid_config"
	NoProfile        Key = "notice.no_profile"
	UserNoProfile    Key = "notice.user_no_profile"
	NoMatch          Key = "notice.no_match"

	Registered       Key = "ok.registered"
	JoinedSearch     Key = "ok.joined_search"
	JoinedMatch      Key = "ok.joined_match"
	JoinedTournament Key = "ok.joined_tournament"
	VoiceSet         Key = "ok.voice_set"
	VoiceCleared     Key = "ok.voice_cleared"
	CancelledSearch  Key = "ok.cancelled_search"
	Cancelled        Key = "ok.cancelled"
	CancelledTourney Key = "ok.cancelled_tournament"
	Drawn            Key = "ok.drawn"
	Refreshed        Key = "ok.refreshed"

	OwnerJoinedDM Key = "dm.joined"
	OwnerFilledDM Key = "dm.filled"
)

// Rendered messages.
const (
	SearchTitle          Key = "render.search_title"
	SearchDesc           Key = "render.search_desc"
	SearchCancelledTitle Key = "render.search_cancelled_title"
	SearchCancelledDesc  Key = "render.search_cancelled_desc"
	MatchTitle           Key = "render.match_title"
	MatchDesc            Key = "render.match_desc"
	TournamentTitle      Key = "render.tournament_title"
	TournamentDesc       Key = "render.tournament_desc"
	StatusCancelled      Key = "render.status_cancelled"
	StatusDrawn          Key = "render.status_drawn"
	Unknown              Key = "render.unknown"
	Footer               Key = "render.footer"

	FieldPlatform   Key = "field.platform"
	FieldMode       Key = "field.mode"
	FieldMinSkill   Key = "field.min_skill"
	FieldTeam       Key = "field.team"
	FieldOpenSlots  Key = "field.open_slots"
	FieldMembers    Key = "field.members"
	FieldTeams      Key = "field.teams"
	FieldGroupSize  Key = "field.group_size"
	FieldGroupValue Key = "field.group_size_value"
	FieldOwnerKD    Key = "field.owner_kd"
	FieldHost       Key = "field.host"
	FieldOrganizer  Key = "field.organizer"
	FieldPrize      Key = "field.prize"
	FieldDesc       Key = "field.description"
	FieldVoice      Key = "field.voice"
	FieldVoiceNone  Key = "field.voice_none"
	FieldStatus     Key = "field.status"
	FieldDiscord    Key = "field.discord"
	FieldHandle     Key = "field.handle"
	FieldKD         Key = "field.kd"
	FieldSince      Key = "field.registered_at"
	ListEmpty       Key = "field.list_empty"

	ButtonJoin         Key = "button.join"
	ButtonVoice        Key = "button.voice"
	ButtonCancelSearch Key = "button.cancel_search"
	ButtonRegister     Key = "button.register"
	ButtonRegisterTeam Key = "button.register_team"
	ButtonDraw         Key = "button.draw"
	ButtonBrackets     Key = "button.brackets"
	ButtonRefresh      Key = "button.refresh"
	ButtonCancel       Key = "button.cancel"

	GroupsTitle  Key = "draw.groups_title"
	GroupsDesc   Key = "draw.groups_desc"
	GroupName    Key = "draw.group"
	LeftOut      Key = "draw.left_out"
	DrawPage     Key = "draw.page"
	BracketTitle Key = "draw.bracket_title"
	BracketDesc  Key = "draw.bracket_desc"
	BracketMatch Key = "draw.match"
	Versus       Key = "draw.vs"

	ProfileTitle Key = "profile.title"
	ProfileDesc  Key = "profile.desc"

	PlayersTitle        Key = "players.title"
	PlayersDesc         Key = "players.desc"
	PlayersWarzone      Key = "players.warzone"
	PlayersBlackOps     Key = "players.blackops"
	PlayersOther        Key = "players.other"
	PlayersNoneWarzone  Key = "players.none_warzone"
	PlayersNoneBlackOps Key = "players.none_blackops"

	RegisteredTitle Key = "registered.title"
	RegisteredDesc  Key = "registered.desc"
	RegisteredEmpty Key = "registered.empty"

	EntrantsTitle Key = "entrants.title"
	EntrantsDesc  Key = "entrants.desc"

	ActiveTitle Key = "active.title"
	ActiveEmpty Key = "active.empty"
	ActiveEntry Key = "active.entry"

	HelpTitle       Key = "help.title"
	HelpDesc        Key = "help.desc"
	HelpButtons     Key = "help.buttons"
	HelpButtonsBody Key = "help.buttons_body"

	ModalTitle  Key = "modal.title"
	ModalHandle Key = "modal.handle"
	ModalKD     Key = "modal.kd"

	KindSearch     Key = "kind.search"
	KindMatch      Key = "kind.match"
	KindTournament Key = "kind.tournament"
)

// Slash command option descriptions.
const (
	OptPlatform    Key = "option.platform"
	OptMode        Key = "option.mode"
	OptMinSkill    Key = "option.min_skill"
	OptMaxPlayers  Key = "option.max_players"
	OptDescription Key = "option.description"
	OptGroupSize   Key = "option.group_size"
	OptPrize       Key = "option.prize"
	OptUser        Key = "option.user"
	OptPublic      Key = "option.public"
)

// HelpCommand is the help line for a slash command.
func HelpCommand(name string) Key { return Key("help.cmd." + name) }

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog is every locale's messages keyed by locale.
type Catalog map[string]map[string]string

func LoadCatalog() (Catalog, error) {
	files, err := fs.Glob(localeFS, "locales/*.yaml")
	if err != nil {
		return nil, err
	}
	cat := make(Catalog, len(files))
	for _, name := range files {
		raw, err := localeFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		locale := strings.TrimSpace(file.Locale)
		if locale == "" {
			locale = strings.TrimSuffix(path.Base(name), ".yaml")
		}
		if _, dup := cat[locale]; dup {
			return nil, fmt.Errorf("catalog %s: locale %q defined twice", name, locale)
		}
		cat[locale] = file.Messages
	}
	return cat, nil
}

// Register adds every message to the x/text default catalog.
func (c Catalog) Register() error {
	for locale, messages := range c {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		keys := make([]string, 0, len(messages))
		for key := range messages {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := message.SetString(tag, key, messages[key]); err != nil {
				return fmt.Errorf("register %s/%s: %w", locale, key, err)
			}
		}
	}
	return nil
}

var (
	registerOnce sync.Once
	registered   Catalog
	registerErr  error
)

func load() (Catalog, error) {
	registerOnce.Do(func() {
		registered, registerErr = LoadCatalog()
		if registerErr == nil {
			registerErr = registered.Register()
		}
	})
	return registered, registerErr
}

type Localizer struct {
	locale  string
	printer *message.Printer
}

func NewLocalizer(locale string) (*Localizer, error) {
	cat, err := load()
	if err != nil {
		return nil, err
	}
	if locale == "" {
		locale = DefaultLocale
	}
	if _, ok := cat[locale]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLocale, locale)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale tag %q: %w", locale, err)
	}
	return &Localizer{locale: locale, printer: message.NewPrinter(tag)}, nil
}

// MustLocalizer is NewLocalizer for locales known to be bundled.
func MustLocalizer(locale string) *Localizer {
	l, err := NewLocalizer(locale)
	if err != nil {
		panic(err)
	}
	return l
}

func (l *Localizer) Locale() string { return l.locale }

func (l *Localizer) T(key Key, args ...any) string {
	return l.printer.Sprintf(string(key), args...)
}
