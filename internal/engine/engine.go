package engine

import (
	"errors"
	"math/rand"
	"slices"

	"github.com/DoyleJ11/teamfinder/internal/draw"
	"github.com/DoyleJ11/teamfinder/pkg/types"
)

var ErrNotFound = errors.New("session not found")
var ErrUnregistered = errors.New("identity has no profile")
var ErrAlreadyJoined = errors.New("identity already in session")
var ErrFull = errors.New("session is full")
var ErrForbidden = errors.New("only the session owner may do that")
var ErrNotEnoughEntrants = errors.New("not enough entrants to draw")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Kind = types.Kind

const (
	KindSearch     = types.KindSearch
	KindMatch      = types.KindMatch
	KindTournament = types.KindTournament
)

type Status string

const (
	StatusRecruiting Status = "recruiting"
	StatusDrawn      Status = "drawn"
	StatusCancelled  Status = "cancelled"
)

type Config struct {
	Platform    string
	Mode        string
	MinSkill    float64
	Capacity    int // includes the owner
	GroupSize   int // team size for matches and tournaments
	Description string
	Prize       string
}

type VoiceLink struct {
	ChannelID string
	Name      string
}

// State is one session.
//
// Roster holds joined identities in join order and never contains the owner. The owner
// is always slot 0 of Members() and counts against Capacity, so a session is full when
// len(Roster) == Capacity-1.
type State struct {
	ID       string
	Kind     Kind
	Owner    string
	Config   Config
	Roster   []string
	Voice    *VoiceLink
	Status   Status
	RecordID uint
	Groups   [][]string
	Pairings []draw.Pairing
}

func (s State) Active() bool { return s.Status == StatusRecruiting }

// Members returns the owner followed by the roster.
func (s State) Members() []string {
	out := make([]string, 0, len(s.Roster)+1)
	out = append(out, s.Owner)
	return append(out, s.Roster...)
}

func (s State) Has(identity string) bool {
	return identity == s.Owner || slices.Contains(s.Roster, identity)
}

func (s State) Full() bool {
	return len(s.Roster) >= s.Config.Capacity-1
}

type CommandType string

const (
	CmdJoin     CommandType = "Join"
	CmdSetVoice CommandType = "SetVoice"
	CmdCancel   CommandType = "Cancel"
	CmdDraw     CommandType = "Draw"
	CmdRefresh  CommandType = "Refresh"
)

/*
	CmdJoin     -> EvtMemberJoined (+ EvtSessionFilled when the last slot is taken)
	CmdSetVoice -> EvtVoiceLinked | EvtVoiceCleared
	CmdCancel   -> EvtSessionCancelled
	CmdDraw     -> EvtGroupsDrawn (match) | EvtBracketDrawn (tournament)
	CmdRefresh  -> EvtRefreshed
*/

type Command struct {
	Type  CommandType
	Actor string

	// Registered reports whether Actor has a profile. Resolved by the caller before a join.
	Registered bool
	// Voice is the actor's current voice channel for CmdSetVoice; nil clears the link.
	Voice *VoiceLink
	// Rand drives CmdDraw.
	Rand *rand.Rand
}

type EventType string

const (
	EvtMemberJoined     EventType = "MemberJoined"
	EvtSessionFilled    EventType = "SessionFilled"
	EvtVoiceLinked      EventType = "VoiceLinked"
	EvtVoiceCleared     EventType = "VoiceCleared"
	EvtSessionCancelled EventType = "SessionCancelled"
	EvtGroupsDrawn      EventType = "GroupsDrawn"
	EvtBracketDrawn     EventType = "BracketDrawn"
	EvtRefreshed        EventType = "Refreshed"
)

type Event struct {
	Type     EventType
	Actor    string
	Position int // slot in Members() for EvtMemberJoined
}

// Apply validates cmd against s and returns the resulting events and state.
// s is never modified; on error the returned state is s.
func Apply(s State, cmd Command) ([]Event, State, error) {
	newState := s

	switch cmd.Type {
	case CmdJoin:
		if !s.Active() {
			return nil, s, ErrNotFound
		}
		if !cmd.Registered {
			return nil, s, ErrUnregistered
		}
		if s.Has(cmd.Actor) {
			return nil, s, ErrAlreadyJoined
		}
		if s.Full() {
			return nil, s, ErrFull
		}

		newState.Roster = append(slices.Clone(s.Roster), cmd.Actor)
		events := []Event{{Type: EvtMemberJoined, Actor: cmd.Actor, Position: len(newState.Roster)}}
		if newState.Full() {
			events = append(events, Event{Type: EvtSessionFilled})
		}
		return events, newState, nil

	case CmdSetVoice:
		if !s.Active() {
			return nil, s, ErrNotFound
		}
		if cmd.Voice == nil {
			newState.Voice = nil
			return []Event{{Type: EvtVoiceCleared, Actor: cmd.Actor}}, newState, nil
		}
		link := *cmd.Voice
		newState.Voice = &link
		return []Event{{Type: EvtVoiceLinked, Actor: cmd.Actor}}, newState, nil

	case CmdCancel:
		// ownership before liveness
		if cmd.Actor != s.Owner {
			return nil, s, ErrForbidden
		}
		if !s.Active() {
			return nil, s, ErrNotFound
		}
		newState.Status = StatusCancelled
		return []Event{{Type: EvtSessionCancelled, Actor: cmd.Actor}}, newState, nil

	case CmdDraw:
		if s.Kind == KindSearch {
			return nil, s, ErrUnsupportedCommand
		}
		if cmd.Actor != s.Owner {
			return nil, s, ErrForbidden
		}
		if !s.Active() {
			return nil, s, ErrNotFound
		}
		if !canDraw(s) {
			return nil, s, ErrNotEnoughEntrants
		}

		newState.Status = StatusDrawn
		if s.Kind == KindTournament {
			newState.Pairings = draw.Bracket(s.Members(), cmd.Rand)
			return []Event{{Type: EvtBracketDrawn, Actor: cmd.Actor}}, newState, nil
		}
		newState.Groups = draw.Groups(s.Members(), s.Config.GroupSize, cmd.Rand)
		return []Event{{Type: EvtGroupsDrawn, Actor: cmd.Actor}}, newState, nil

	case CmdRefresh:
		if !s.Active() {
			return nil, s, ErrNotFound
		}
		return []Event{{Type: EvtRefreshed, Actor: cmd.Actor}}, s, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func canDraw(s State) bool {
	entrants := len(s.Members())
	if s.Kind == KindTournament {
		return entrants >= 2
	}
	return s.Config.GroupSize > 0 && entrants >= s.Config.GroupSize
}
