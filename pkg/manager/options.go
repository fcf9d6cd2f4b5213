package manager

import (
	"log/slog"

	"github.com/aretw0/testctx/internal/logging"
	"github.com/aretw0/testctx/pkg/config"
	"github.com/aretw0/testctx/pkg/ports"
	"github.com/aretw0/testctx/pkg/registry"
)

type options struct {
	cfg       config.Config
	discovery ports.Discovery
	factory   ports.Factory
	scanner   ports.MetadataScanner
	observer  ports.LockObserver
	listeners []any
	logger    *slog.Logger
}

// Option configures a Manager or a Registry.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{cfg: config.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrNop(o.logger)
	return o
}

// WithConfig sets the manager configuration.
func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithDiscovery sets where listener families are discovered.
func WithDiscovery(d ports.Discovery) Option {
	return func(o *options) { o.discovery = d }
}

// WithFactory sets how include declarations are instantiated.
func WithFactory(f ports.Factory) Option {
	return func(o *options) { o.factory = f }
}

// WithCatalog uses r for both discovery and include declarations.
func WithCatalog(r *registry.Registry) Option {
	return func(o *options) {
		o.discovery = r
		o.factory = r
	}
}

// WithScanner sets the metadata source.
func WithScanner(s ports.MetadataScanner) Option {
	return func(o *options) { o.scanner = s }
}

// WithObserver receives reload gate transitions of every context.
func WithObserver(obs ports.LockObserver) Option {
	return func(o *options) { o.observer = obs }
}

// WithListeners registers listener instances in every pipeline the manager builds.
func WithListeners(listeners ...any) Option {
	return func(o *options) { o.listeners = append(o.listeners, listeners...) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
