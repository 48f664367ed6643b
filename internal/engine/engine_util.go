package engine

import (
	"fmt"
	"math"
	"slices"
	"unicode/utf8"
)

var Platforms = []string{"PC", "Xbox", "PlayStation", "Crossplay"}

var Modes = []string{"Battle Royale", "Resurgimiento", "Ranked BR", "Ranked Multijugador", "Zombies", "Saqueo"}

// Entrant ceiling for matches and tournaments, which have no party size of their own.
// A full roster still fits one embed on the live card.
const OpenCapacity = 50

// MaxPrizeLength matches the width of the durable prize column.
const MaxPrizeLength = 128

// ConfigError is a rejected session configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewState(id string, kind Kind, owner string, cfg Config) State {
	return State{
		ID:     id,
		Kind:   kind,
		Owner:  owner,
		Config: cfg,
		Roster: []string{},
		Status: StatusRecruiting,
	}
}

// ValidateConfig checks a configuration before the session exists.
func ValidateConfig(kind Kind, cfg Config) error {
	if !slices.Contains(Modes, cfg.Mode) {
		return &ConfigError{Field: "mode", Reason: "unknown mode"}
	}
	if math.IsNaN(cfg.MinSkill) || math.IsInf(cfg.MinSkill, 0) || cfg.MinSkill < 0 {
		return &ConfigError{Field: "min_skill", Reason: "must be a non-negative number"}
	}

	switch kind {
	case KindSearch:
		if !slices.Contains(Platforms, cfg.Platform) {
			return &ConfigError{Field: "platform", Reason: "unknown platform"}
		}
		if cfg.Capacity < 2 || cfg.Capacity > 4 {
			return &ConfigError{Field: "capacity", Reason: "must be 2, 3 or 4"}
		}
	case KindMatch, KindTournament:
		if cfg.GroupSize < 2 || cfg.GroupSize > 4 {
			return &ConfigError{Field: "group_size", Reason: "must be 2, 3 or 4"}
		}
		if cfg.Capacity < 2 || cfg.Capacity > OpenCapacity {
			return &ConfigError{Field: "capacity", Reason: fmt.Sprintf("must be between 2 and %d", OpenCapacity)}
		}
		if utf8.RuneCountInString(cfg.Prize) > MaxPrizeLength {
			return &ConfigError{Field: "prize", Reason: fmt.Sprintf("must be at most %d characters", MaxPrizeLength)}
		}
	default:
		return &ConfigError{Field: "kind", Reason: "unknown session kind"}
	}
	return nil
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
