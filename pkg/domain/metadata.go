package domain

// DefaultOrder is assigned to listeners without any order declaration. It sorts last.
const DefaultOrder = 1<<30 - 1

// Order is a declared precedence. Lower values run first.
// An empty Event applies to the listener type as a whole.
type Order struct {
	Event string `json:"event,omitempty" yaml:"event,omitempty" toml:"event,omitempty"`
	Value int    `json:"value" yaml:"value" toml:"value"`
}

// ListenerDeclaration includes or excludes one listener by reference for a group.
// Exactly one of Include, Exclude or Instance is expected.
type ListenerDeclaration struct {
	// Include names a listener to instantiate through the catalog.
	Include string `json:"include,omitempty" yaml:"include,omitempty" toml:"include,omitempty"`
	// Exclude names a listener reference that must not take part in the pipeline.
	Exclude string `json:"exclude,omitempty" yaml:"exclude,omitempty" toml:"exclude,omitempty"`
	// Instance registers an already built listener.
	Instance any `json:"-" yaml:"-" toml:"-"`
}

// Extension names the context flavour a group enables.
type Extension struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	// Overrides names an extension this one replaces when both are enabled.
	Overrides string `json:"overrides,omitempty" yaml:"overrides,omitempty" toml:"overrides,omitempty"`
}

// Known extension names.
const (
	ExtensionDefault    = "default"
	ExtensionReloadable = "reloadable"
)
