package ports

import "github.com/aretw0/testctx/pkg/domain"

// MetadataScanner answers declarative questions about units and groups.
// Implementations must be safe for concurrent use.
type MetadataScanner interface {
	// GroupOf returns the group a unit belongs to.
	GroupOf(unitID string) (string, bool)
	// Policy returns the reload policy declared for a unit.
	Policy(unitID string) domain.ReloadPolicy
	// Declarations returns the include/exclude declarations of a group.
	Declarations(group string) []domain.ListenerDeclaration
	// Orders returns the order declarations attached to a listener reference.
	Orders(ref string) []domain.Order
	// Extensions returns the context extensions a group enables.
	Extensions(group string) []domain.Extension
}
