package domain

import (
	"reflect"
	"slices"
)

// Family is a named capability family of listeners.
// Membership is decided by a type assertion to the family's interface.
type Family struct {
	name   string
	iface  reflect.Type
	events []string
	match  func(any) bool
}

// NewFamily declares a family whose members implement T and which fires the given events.
func NewFamily[T any](name string, events ...string) Family {
	return Family{
		name:   name,
		iface:  reflect.TypeFor[T](),
		events: slices.Clone(events),
		match: func(v any) bool {
			_, ok := v.(T)
			return ok
		},
	}
}

// Name returns the family name.
func (f Family) Name() string { return f.name }

// Type returns the capability type members implement.
func (f Family) Type() reflect.Type { return f.iface }

// Events returns the events the family declares.
func (f Family) Events() []string { return slices.Clone(f.events) }

// HasEvent reports whether the family declares event.
func (f Family) HasEvent(event string) bool {
	return slices.Contains(f.events, event)
}

// Matches reports whether v belongs to the family.
func (f Family) Matches(v any) bool {
	return f.match != nil && f.match(v)
}

// IsZero reports whether f was never initialised.
func (f Family) IsZero() bool { return f.match == nil }

func (f Family) String() string { return f.name }
