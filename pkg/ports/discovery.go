package ports

import (
	"iter"

	"github.com/aretw0/testctx/pkg/domain"
)

// Discovery enumerates listener implementations available for a family.
// Each call may return fresh instances.
type Discovery interface {
	Discover(family domain.Family) iter.Seq[any]
}

// Factory builds a listener from a textual reference, used by include declarations.
type Factory interface {
	Instantiate(ref string) (any, error)
}
