package memory

import (
	"slices"
	"sync"

	"github.com/aretw0/testctx/pkg/domain"
)

// Scanner implements ports.MetadataScanner from values set in code.
// Safe for concurrent use.
type Scanner struct {
	mu           sync.RWMutex
	groups       map[string]string
	policies     map[string]domain.ReloadPolicy
	declarations map[string][]domain.ListenerDeclaration
	orders       map[string][]domain.Order
	extensions   map[string][]domain.Extension
}

// NewScanner creates an empty scanner.
func NewScanner() *Scanner {
	return &Scanner{
		groups:       make(map[string]string),
		policies:     make(map[string]domain.ReloadPolicy),
		declarations: make(map[string][]domain.ListenerDeclaration),
		orders:       make(map[string][]domain.Order),
		extensions:   make(map[string][]domain.Extension),
	}
}

// SetGroup assigns a unit to a group.
func (s *Scanner) SetGroup(unitID, group string) *Scanner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[unitID] = group
	return s
}

// SetPolicy declares the reload policy of a unit.
func (s *Scanner) SetPolicy(unitID string, p domain.ReloadPolicy) *Scanner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[unitID] = p
	return s
}

// Declare appends listener declarations to a group.
func (s *Scanner) Declare(group string, decls ...domain.ListenerDeclaration) *Scanner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declarations[group] = append(s.declarations[group], decls...)
	return s
}

// SetOrders appends order declarations to a listener reference.
func (s *Scanner) SetOrders(ref string, orders ...domain.Order) *Scanner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[ref] = append(s.orders[ref], orders...)
	return s
}

// Enable appends context extensions to a group.
func (s *Scanner) Enable(group string, exts ...domain.Extension) *Scanner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extensions[group] = append(s.extensions[group], exts...)
	return s
}

func (s *Scanner) GroupOf(unitID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[unitID]
	return g, ok
}

func (s *Scanner) Policy(unitID string) domain.ReloadPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policies[unitID]
}

func (s *Scanner) Declarations(group string) []domain.ListenerDeclaration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.declarations[group])
}

func (s *Scanner) Orders(ref string) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.orders[ref])
}

func (s *Scanner) Extensions(group string) []domain.Extension {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.extensions[group])
}

// Groups returns every group mentioned by any declaration, sorted.
func (s *Scanner) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, g := range s.groups {
		seen[g] = struct{}{}
	}
	for g := range s.declarations {
		seen[g] = struct{}{}
	}
	for g := range s.extensions {
		seen[g] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	slices.Sort(out)
	return out
}

// OrderRefs returns every listener reference with order declarations, sorted.
func (s *Scanner) OrderRefs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.orders))
	for ref := range s.orders {
		out = append(out, ref)
	}
	slices.Sort(out)
	return out
}
