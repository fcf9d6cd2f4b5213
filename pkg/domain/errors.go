package domain

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrConfiguration is returned when listener declarations, orders or extensions are inconsistent.
var ErrConfiguration = errors.New("configuration error")

// ErrResolution is returned when no listener or resolver can provide a requested type.
var ErrResolution = errors.New("resolution error")

// ErrListenerFailure is returned when a listener aborts the phase it was fired for.
var ErrListenerFailure = errors.New("listener failure")

// ErrContextNotCreated is returned when the shared context is requested through the
// injector before the manager has constructed it.
var ErrContextNotCreated = errors.New("test context not created")

// ConfigurationError describes an invalid pipeline or manager setup.
type ConfigurationError struct {
	Reason string
}

// NewConfigurationError formats a ConfigurationError.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ResolutionError names the type the injector could not provide.
type ResolutionError struct {
	Type  reflect.Type
	Cause error
}

// NewResolutionError returns a ResolutionError for t with an optional cause.
func NewResolutionError(t reflect.Type, cause error) *ResolutionError {
	return &ResolutionError{Type: t, Cause: cause}
}

func (e *ResolutionError) Error() string {
	name := "<nil>"
	if e.Type != nil {
		name = e.Type.String()
	}
	if e.Cause != nil {
		return fmt.Sprintf("cannot resolve %s: %v", name, e.Cause)
	}
	return fmt.Sprintf("cannot resolve %s: no listener or resolver supports it", name)
}

func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// ListenerFailure wraps an error returned by a listener while an event was fired.
type ListenerFailure struct {
	Event    string
	Listener string
	Err      error
}

func (e *ListenerFailure) Error() string {
	return fmt.Sprintf("listener %s failed on %s: %v", e.Listener, e.Event, e.Err)
}

func (e *ListenerFailure) Is(target error) bool {
	return target == ErrListenerFailure
}

func (e *ListenerFailure) Unwrap() error {
	return e.Err
}

// ErrSnapshotNotFound is returned when a store has no snapshot for a group.
var ErrSnapshotNotFound = errors.New("snapshot not found")
