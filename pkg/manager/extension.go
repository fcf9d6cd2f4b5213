package manager

import (
	"slices"
	"strings"

	"github.com/aretw0/testctx/pkg/domain"
)

// ActiveExtensions drops every extension overridden by another enabled one and
// returns the remaining names, sorted and deduplicated.
func ActiveExtensions(exts []domain.Extension) []string {
	enabled := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		enabled[e.Name] = struct{}{}
	}
	for _, e := range exts {
		if e.Overrides != "" && e.Overrides != e.Name {
			delete(enabled, e.Overrides)
		}
	}
	out := make([]string, 0, len(enabled))
	for name := range enabled {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// CheckExtensions returns the single active extension or a ConfigurationError.
func CheckExtensions(group string, exts []domain.Extension) (string, error) {
	active := ActiveExtensions(exts)
	if len(active) != 1 {
		return "", domain.NewConfigurationError("group %s must enable exactly one context extension, found %d: [%s]",
			group, len(active), strings.Join(active, ", "))
	}
	switch active[0] {
	case domain.ExtensionDefault, domain.ExtensionReloadable:
		return active[0], nil
	}
	return "", domain.NewConfigurationError("group %s enables unknown context extension %q", group, active[0])
}
