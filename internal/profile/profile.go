// Package profile is the identity registry: it binds a Discord identity to a validated
// game handle and skill ratio.
package profile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/DoyleJ11/teamfinder/internal/store"
)

var ErrNotFound = errors.New("profile not found")

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}#[0-9]{1,10}$`)

type Profile = store.Profile

// ValidationError is input the user can correct and resubmit.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

const (
	FieldHandle     = "handle"
	FieldSkillRatio = "skill_ratio"
)

func ValidateHandle(handle string) error {
	if !handlePattern.MatchString(handle) {
		return &ValidationError{Field: FieldHandle, Reason: "expected name#digits"}
	}
	return nil
}

func ValidateSkillRatio(ratio float64) error {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio < 0 {
		return &ValidationError{Field: FieldSkillRatio, Reason: "must be a non-negative number"}
	}
	return nil
}

// ParseSkillRatio accepts "1.2" as well as "1,2".
func ParseSkillRatio(raw string) (float64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ValidationError{Field: FieldSkillRatio, Reason: "not a number"}
	}
	if err := ValidateSkillRatio(ratio); err != nil {
		return 0, err
	}
	return ratio, nil
}

type Registration struct {
	Identity   string
	Username   string
	Handle     string
	SkillRatio float64
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.Identity) == "" {
		return &ValidationError{Field: "identity", Reason: "missing"}
	}
	if err := ValidateHandle(r.Handle); err != nil {
		return err
	}
	return ValidateSkillRatio(r.SkillRatio)
}

type Store interface {
	UpsertProfile(ctx context.Context, p store.Profile) (store.Profile, error)
	GetProfile(ctx context.Context, identity string) (store.Profile, error)
	ListProfiles(ctx context.Context) ([]store.Profile, error)
}

type Registry struct {
	store Store
}

func NewRegistry(s Store) *Registry {
	return &Registry{store: s}
}

func (r *Registry) Upsert(ctx context.Context, reg Registration) (Profile, error) {
	reg.Handle = strings.TrimSpace(reg.Handle)
	if err := reg.Validate(); err != nil {
		return Profile{}, err
	}
	return r.store.UpsertProfile(ctx, store.Profile{
		Identity:   reg.Identity,
		Username:   reg.Username,
		Handle:     reg.Handle,
		SkillRatio: reg.SkillRatio,
	})
}

func (r *Registry) Lookup(ctx context.Context, identity string) (Profile, error) {
	p, err := r.store.GetProfile(ctx, identity)
	if errors.Is(err, store.ErrNotFound) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

func (r *Registry) List(ctx context.Context) ([]Profile, error) {
	return r.store.ListProfiles(ctx)
}
