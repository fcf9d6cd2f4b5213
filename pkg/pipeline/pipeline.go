package pipeline

import (
	"cmp"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/aretw0/testctx/internal/logging"
	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/ports"
)

type cacheKey struct {
	family string
	event  string
}

type cacheEntry struct {
	family    domain.Family
	listeners []any
}

// Pipeline is an ordered, type-deduplicated registry of listeners.
// It is safe for concurrent use. Listeners are always called without any
// pipeline lock held, so they may query the pipeline themselves.
type Pipeline struct {
	discovery ports.Discovery
	factory   ports.Factory
	scanner   ports.MetadataScanner
	logger    *slog.Logger

	mu         sync.RWMutex
	version    uint64
	listeners  []any
	types      map[reflect.Type]struct{}
	exclusions map[string]struct{}
	families   []domain.Family
	cache      map[cacheKey]cacheEntry
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDiscovery sets the source Load asks for family implementations.
func WithDiscovery(d ports.Discovery) Option {
	return func(p *Pipeline) { p.discovery = d }
}

// WithFactory sets the factory used by include declarations.
func WithFactory(f ports.Factory) Option {
	return func(p *Pipeline) { p.factory = f }
}

// WithScanner sets the metadata source for order declarations.
func WithScanner(s ports.MetadataScanner) Option {
	return func(p *Pipeline) { p.scanner = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		types:      make(map[reflect.Type]struct{}),
		exclusions: make(map[string]struct{}),
		cache:      make(map[cacheKey]cacheEntry),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrNop(p.logger)
	return p
}

// Register adds listeners that are not excluded and whose concrete type is not
// registered yet, then re-sorts the registry by type-level order.
func (p *Pipeline) Register(listeners ...any) error {
	for _, l := range listeners {
		if _, err := p.typeOrder(l); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var added []any
	for _, l := range listeners {
		if p.addLocked(l) {
			added = append(added, l)
		}
	}
	if len(added) == 0 {
		return nil
	}
	if err := p.sortByTypeOrder(p.listeners); err != nil {
		return err
	}
	p.invalidateLocked(added)
	return nil
}

// Load asks discovery for every implementation of the family, drops excluded
// and already registered types, and registers the rest in type-level order.
func (p *Pipeline) Load(family domain.Family) error {
	if family.IsZero() {
		return domain.NewConfigurationError("listener family is not initialised")
	}
	if family.Type().Kind() != reflect.Interface {
		return domain.NewConfigurationError("listener family %s must be an interface type, got %s", family.Name(), family.Type())
	}

	var found []any
	if p.discovery != nil {
		for l := range p.discovery.Discover(family) {
			if !family.Matches(l) {
				p.logger.Warn("discovered listener does not implement family", "family", family.Name(), "listener", Ref(l))
				continue
			}
			found = append(found, l)
		}
	}
	if err := p.sortByTypeOrder(found); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !slices.ContainsFunc(p.families, func(f domain.Family) bool { return f.Name() == family.Name() }) {
		p.families = append(p.families, family)
	}
	var added []any
	for _, l := range found {
		if p.addLocked(l) {
			added = append(added, l)
		}
	}
	p.logger.Debug("listeners loaded", "family", family.Name(), "discovered", len(found), "added", len(added))
	if len(added) == 0 {
		return nil
	}
	if err := p.sortByTypeOrder(p.listeners); err != nil {
		return err
	}
	p.invalidateLocked(added)
	return nil
}

// Exclude removes listeners matching the references and keeps them out of future loads.
func (p *Pipeline) Exclude(refs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ref := range refs {
		p.exclusions[ref] = struct{}{}
	}
	p.removeExcludedLocked()
}

// Declare applies include and exclude declarations. Exclusions are applied first.
func (p *Pipeline) Declare(decls ...domain.ListenerDeclaration) error {
	var refs []string
	for _, d := range decls {
		if d.Exclude != "" {
			refs = append(refs, d.Exclude)
		}
	}
	if len(refs) > 0 {
		p.Exclude(refs...)
	}

	for _, d := range decls {
		switch {
		case d.Instance != nil:
			if err := p.Register(d.Instance); err != nil {
				return err
			}
		case d.Include != "":
			if p.factory == nil {
				return domain.NewConfigurationError("cannot include listener %q: no factory configured", d.Include)
			}
			l, err := p.factory.Instantiate(d.Include)
			if err != nil {
				return domain.NewConfigurationError("cannot include listener %q: %v", d.Include, err)
			}
			if err := p.Register(l); err != nil {
				return err
			}
		}
	}
	return nil
}

// Listeners returns the family's members ordered for event.
func (p *Pipeline) Listeners(family domain.Family, event string) ([]any, error) {
	if !family.HasEvent(event) {
		return nil, domain.NewConfigurationError("listener family %s has no event %q", family.Name(), event)
	}
	key := cacheKey{family: family.Name(), event: event}

	p.mu.RLock()
	if e, ok := p.cache[key]; ok {
		out := slices.Clone(e.listeners)
		p.mu.RUnlock()
		return out, nil
	}
	version := p.version
	var members []any
	for _, l := range p.listeners {
		if family.Matches(l) {
			members = append(members, l)
		}
	}
	p.mu.RUnlock()

	keys := make([]int, len(members))
	for i, l := range members {
		o, err := p.eventOrder(l, event)
		if err != nil {
			return nil, err
		}
		keys[i] = o
	}
	sorted := slices.Clone(members)
	stableSort(sorted, keys)

	p.mu.Lock()
	if p.version == version {
		p.cache[key] = cacheEntry{family: family, listeners: sorted}
	}
	p.mu.Unlock()
	return slices.Clone(sorted), nil
}

// Warm re-applies exclusions and computes the ordering of every event of every
// loaded family, surfacing order declaration errors before anything is fired.
func (p *Pipeline) Warm() error {
	p.mu.Lock()
	p.removeExcludedLocked()
	families := slices.Clone(p.families)
	p.mu.Unlock()

	for _, f := range families {
		for _, e := range f.Events() {
			if _, err := p.Listeners(f, e); err != nil {
				return err
			}
		}
	}
	return nil
}

// All returns every registered listener in type-level order.
func (p *Pipeline) All() []any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.listeners)
}

// Families returns the families loaded so far.
func (p *Pipeline) Families() []domain.Family {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.families)
}

// Excluded reports whether the listener matches an exclusion.
func (p *Pipeline) Excluded(listener any) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.excludedLocked(listener)
}

func (p *Pipeline) addLocked(l any) bool {
	if l == nil || p.excludedLocked(l) {
		return false
	}
	t := reflect.TypeOf(l)
	if _, dup := p.types[t]; dup {
		return false
	}
	p.types[t] = struct{}{}
	p.listeners = append(p.listeners, l)
	p.logger.Debug("listener registered", "listener", Ref(l))
	return true
}

func (p *Pipeline) excludedLocked(l any) bool {
	if len(p.exclusions) == 0 {
		return false
	}
	if _, ok := p.exclusions[Ref(l)]; ok {
		return true
	}
	_, ok := p.exclusions[TypeRef(reflect.TypeOf(l))]
	return ok
}

func (p *Pipeline) removeExcludedLocked() {
	kept := p.listeners[:0]
	removed := false
	for _, l := range p.listeners {
		if p.excludedLocked(l) {
			delete(p.types, reflect.TypeOf(l))
			p.logger.Debug("listener excluded", "listener", Ref(l))
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	clear(p.listeners[len(kept):])
	p.listeners = kept
	if removed {
		p.version++
		clear(p.cache)
	}
}

// invalidateLocked drops cached orderings of every family one of the added listeners joins.
func (p *Pipeline) invalidateLocked(added []any) {
	p.version++
	for k, e := range p.cache {
		if slices.ContainsFunc(added, e.family.Matches) {
			delete(p.cache, k)
		}
	}
}

// sortByTypeOrder sorts in place by type-level order. It only reads listener metadata.
func (p *Pipeline) sortByTypeOrder(list []any) error {
	orders := make([]int, len(list))
	for i, l := range list {
		o, err := p.typeOrder(l)
		if err != nil {
			return err
		}
		orders[i] = o
	}
	stableSort(list, orders)
	return nil
}

// stableSort orders list by the parallel keys slice.
func stableSort(list []any, keys []int) {
	idx := make([]int, len(list))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int { return cmp.Compare(keys[a], keys[b]) })
	sorted := make([]any, len(list))
	for i, j := range idx {
		sorted[i] = list[j]
	}
	copy(list, sorted)
}

func (p *Pipeline) declarations(l any) []domain.Order {
	var out []domain.Order
	if o, ok := l.(Ordered); ok {
		out = append(out, domain.Order{Value: o.Order()})
	}
	if d, ok := l.(OrderDeclarer); ok {
		out = append(out, d.Orders()...)
	}
	if p.scanner != nil {
		out = append(out, p.scanner.Orders(Ref(l))...)
	}
	return out
}

func (p *Pipeline) typeOrder(l any) (int, error) {
	return p.orderFor(l, "")
}

func (p *Pipeline) eventOrder(l any, event string) (int, error) {
	o, found, err := p.declared(l, event)
	if err != nil || found {
		return o, err
	}
	return p.typeOrder(l)
}

func (p *Pipeline) orderFor(l any, event string) (int, error) {
	o, found, err := p.declared(l, event)
	if err != nil {
		return 0, err
	}
	if !found {
		return domain.DefaultOrder, nil
	}
	return o, nil
}

func (p *Pipeline) declared(l any, event string) (int, bool, error) {
	var matches []domain.Order
	for _, o := range p.declarations(l) {
		if o.Event == event {
			matches = append(matches, o)
		}
	}
	switch len(matches) {
	case 0:
		return 0, false, nil
	case 1:
		return matches[0].Value, true, nil
	}
	if event == "" {
		return 0, false, domain.NewConfigurationError("listener %s declares %d type-level orders, expected at most one", Ref(l), len(matches))
	}
	return 0, false, domain.NewConfigurationError("listener %s declares %d orders for event %q, expected at most one", Ref(l), len(matches), event)
}
