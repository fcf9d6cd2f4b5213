package domain

import (
	"fmt"
	"strings"
)

// ReloadPolicy marks a unit as needing a restart of the shared context.
type ReloadPolicy int

const (
	// ReloadNone leaves the shared context untouched.
	ReloadNone ReloadPolicy = iota
	// ReloadBefore restarts the context before the unit runs.
	ReloadBefore
	// ReloadAfter schedules a restart for the next boundary after the unit completes.
	ReloadAfter
)

func (p ReloadPolicy) String() string {
	switch p {
	case ReloadBefore:
		return "before"
	case ReloadAfter:
		return "after"
	default:
		return "none"
	}
}

// ParseReloadPolicy accepts "before", "after", "none" or an empty string (none).
func ParseReloadPolicy(s string) (ReloadPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ReloadNone, nil
	case "before":
		return ReloadBefore, nil
	case "after":
		return ReloadAfter, nil
	}
	return ReloadNone, fmt.Errorf("unknown reload policy %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p ReloadPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ReloadPolicy) UnmarshalText(text []byte) error {
	v, err := ParseReloadPolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Unit identifies one schedulable test execution.
type Unit struct {
	// ID is unique within a run.
	ID string `json:"id" yaml:"id" toml:"id"`
	// Name is a display name, ID is used when empty.
	Name string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	// Policy overrides the policy declared in metadata when not ReloadNone.
	Policy ReloadPolicy `json:"policy,omitempty" yaml:"policy,omitempty" toml:"policy,omitempty"`
}

// DisplayName returns Name, falling back to ID.
func (u Unit) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}
