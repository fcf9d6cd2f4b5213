package pipeline

import (
	"github.com/aretw0/testctx/pkg/domain"
)

// Members returns the family's listeners ordered for event, typed as T.
// Listeners that do not implement T are skipped.
func Members[T any](p *Pipeline, family domain.Family, event string) ([]T, error) {
	all, err := p.Listeners(family, event)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, l := range all {
		if t, ok := l.(T); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Fire calls fn on every listener of the family in event order.
// The first error aborts the remaining listeners and is returned as a *domain.ListenerFailure.
func Fire[T any](p *Pipeline, family domain.Family, event string, fn func(T) error) error {
	all, err := p.Listeners(family, event)
	if err != nil {
		return err
	}
	for _, l := range all {
		t, ok := l.(T)
		if !ok {
			continue
		}
		p.logger.Debug("firing listener", "event", event, "listener", Ref(l))
		if err := fn(t); err != nil {
			return &domain.ListenerFailure{Event: event, Listener: Ref(l), Err: err}
		}
	}
	return nil
}
