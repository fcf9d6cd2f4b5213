// Package injector resolves typed values from the listener pipeline.
//
// Lookup is flat and first-match: registered listeners are consulted first, in
// pipeline order, by assignability of their concrete type; then resolvers, in
// the order declared for the "resolve" event. The first candidate wins even if
// a later one would be a closer fit.
package injector

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/aretw0/testctx/internal/logging"
	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/pipeline"
)

// Resolver provides values for types it supports.
type Resolver interface {
	Supports(inj *Injector, t reflect.Type) bool
	Resolve(inj *Injector, t reflect.Type) (any, error)
}

// LoadedListener is notified once the pipeline finished loading, before the shared context starts.
type LoadedListener interface {
	ListenerLoaded(inj *Injector) error
}

// ResolverFamily groups resolvers.
var ResolverFamily = domain.NewFamily[Resolver]("resolver", domain.EventResolve)

// LoadedFamily groups listeners notified by FireLoaded.
var LoadedFamily = domain.NewFamily[LoadedListener]("loaded", domain.EventListenerLoaded)

// Injector resolves values by type.
type Injector struct {
	pipe   *pipeline.Pipeline
	logger *slog.Logger
}

// Option configures an Injector.
type Option func(*Injector)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Injector) { i.logger = l }
}

// New creates an injector over p and loads the resolver family into it.
func New(p *pipeline.Pipeline, opts ...Option) (*Injector, error) {
	i := &Injector{pipe: p}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = logging.OrNop(i.logger)
	if err := p.Load(ResolverFamily); err != nil {
		return nil, fmt.Errorf("failed to load resolvers: %w", err)
	}
	return i, nil
}

// Pipeline returns the pipeline the injector reads from.
func (i *Injector) Pipeline() *pipeline.Pipeline { return i.pipe }

// Resolve returns the first listener assignable to t, else the value of the first
// resolver supporting t.
func (i *Injector) Resolve(t reflect.Type) (any, error) {
	if t == nil {
		return nil, domain.NewResolutionError(nil, nil)
	}
	if l, ok := i.listenerFor(t); ok {
		return l, nil
	}
	r, err := i.resolverFor(t)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.NewResolutionError(t, nil)
	}
	v, err := r.Resolve(i, t)
	if err != nil {
		return nil, domain.NewResolutionError(t, err)
	}
	return v, nil
}

// Supports reports whether Resolve would find a candidate for t.
func (i *Injector) Supports(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if _, ok := i.listenerFor(t); ok {
		return true
	}
	r, err := i.resolverFor(t)
	return err == nil && r != nil
}

// FireLoaded warms the pipeline and notifies LoadedListener implementations.
func (i *Injector) FireLoaded() error {
	if err := i.pipe.Warm(); err != nil {
		return err
	}
	return pipeline.Fire(i.pipe, LoadedFamily, domain.EventListenerLoaded, func(l LoadedListener) error {
		return l.ListenerLoaded(i)
	})
}

func (i *Injector) listenerFor(t reflect.Type) (any, bool) {
	for _, l := range i.pipe.All() {
		if reflect.TypeOf(l).AssignableTo(t) {
			return l, true
		}
	}
	return nil, false
}

func (i *Injector) resolverFor(t reflect.Type) (Resolver, error) {
	resolvers, err := pipeline.Members[Resolver](i.pipe, ResolverFamily, domain.EventResolve)
	if err != nil {
		return nil, err
	}
	for _, r := range resolvers {
		if r.Supports(i, t) {
			i.logger.Debug("resolver selected", "type", t.String(), "resolver", pipeline.Ref(r))
			return r, nil
		}
	}
	return nil, nil
}

// Get resolves a value of type T.
func Get[T any](i *Injector) (T, error) {
	var zero T
	v, err := i.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, domain.NewResolutionError(reflect.TypeFor[T](), fmt.Errorf("resolved value has type %T", v))
	}
	return out, nil
}

// MustGet is Get that panics on failure. Meant for test bodies.
func MustGet[T any](i *Injector) T {
	v, err := Get[T](i)
	if err != nil {
		panic(err)
	}
	return v
}
