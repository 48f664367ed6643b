package types

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"
	"strings"
)

// Component custom ids:
//   tf:<kind>:<action>:<session_id>:<sig>
//
// sig is the hex of the first 8 bytes of HMAC-SHA256(secret, "<kind>:<action>:<session_id>").
// A descriptor carries no session state; the session is looked up by id on every activation.

var ErrInvalidComponent = errors.New("invalid component")

const componentPrefix = "tf"

type Kind string

const (
	KindSearch     Kind = "search"
	KindMatch      Kind = "match"
	KindTournament Kind = "tournament"
)

type Action string

const (
	ActionJoin    Action = "join"
	ActionVoice   Action = "voice"
	ActionCancel  Action = "cancel"
	ActionDraw    Action = "draw"
	ActionRefresh Action = "refresh"
)

var kindActions = map[Kind][]Action{
	KindSearch:     {ActionJoin, ActionVoice, ActionCancel},
	KindMatch:      {ActionJoin, ActionDraw, ActionRefresh, ActionCancel},
	KindTournament: {ActionJoin, ActionDraw, ActionRefresh, ActionCancel},
}

// Actions returns the buttons a session of kind k shows, in display order.
func Actions(k Kind) []Action {
	return slices.Clone(kindActions[k])
}

type Component struct {
	Kind      Kind
	Action    Action
	SessionID string
}

func (c Component) Valid() bool {
	if c.SessionID == "" || strings.Contains(c.SessionID, ":") {
		return false
	}
	return slices.Contains(kindActions[c.Kind], c.Action)
}

type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

func (c *Codec) Encode(comp Component) string {
	body := string(comp.Kind) + ":" + string(comp.Action) + ":" + comp.SessionID
	return componentPrefix + ":" + body + ":" + c.sign(body)
}

func (c *Codec) Decode(customID string) (Component, error) {
	parts := strings.Split(customID, ":")
	if len(parts) != 5 || parts[0] != componentPrefix {
		return Component{}, ErrInvalidComponent
	}
	body := strings.Join(parts[1:4], ":")
	if !hmac.Equal([]byte(parts[4]), []byte(c.sign(body))) {
		return Component{}, ErrInvalidComponent
	}
	comp := Component{Kind: Kind(parts[1]), Action: Action(parts[2]), SessionID: parts[3]}
	if !comp.Valid() {
		return Component{}, ErrInvalidComponent
	}
	return comp, nil
}

func (c *Codec) sign(body string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil)[:8])
}
