package manager

import (
	"fmt"
	"reflect"

	"github.com/aretw0/testctx/pkg/config"
	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/injector"
	"github.com/aretw0/testctx/pkg/lifecycle"
	"github.com/aretw0/testctx/pkg/pipeline"
	"github.com/aretw0/testctx/pkg/reload"
)

var (
	reloadContextType    = reflect.TypeFor[*reload.Context]()
	lifecycleContextType = reflect.TypeFor[*lifecycle.Context]()
	injectorType         = reflect.TypeFor[*injector.Injector]()
	pipelineType         = reflect.TypeFor[*pipeline.Pipeline]()
	configType           = reflect.TypeFor[config.Config]()
)

// Supports makes the manager a resolver for the objects it owns.
func (m *Manager) Supports(_ *injector.Injector, t reflect.Type) bool {
	switch t {
	case reloadContextType, lifecycleContextType, injectorType, pipelineType, configType:
		return true
	}
	return false
}

// Resolve returns the manager's current context, injector, pipeline or configuration.
// Objects that were not constructed yet resolve to domain.ErrContextNotCreated.
func (m *Manager) Resolve(_ *injector.Injector, t reflect.Type) (any, error) {
	switch t {
	case configType:
		return m.opts.cfg, nil
	case injectorType:
		if i := m.inj.Load(); i != nil {
			return i, nil
		}
		return nil, domain.ErrContextNotCreated
	case pipelineType:
		if p := m.pipe.Load(); p != nil {
			return p, nil
		}
		return nil, domain.ErrContextNotCreated
	}

	c := m.ctx.Load()
	switch t {
	case reloadContextType:
		if c != nil {
			return c, nil
		}
		return nil, domain.ErrContextNotCreated
	case lifecycleContextType:
		if c != nil {
			return c.Context, nil
		}
		return nil, domain.ErrContextNotCreated
	}
	return nil, fmt.Errorf("manager %s cannot provide %s", m.id, t)
}
