// Package file loads test context metadata from disk and persists group
// snapshots as JSON files.
package file

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/testctx/pkg/adapters/memory"
	"github.com/aretw0/testctx/pkg/config"
	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/manager"
)

// Format is a metadata file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatOf picks the encoding from a file extension. Unknown extensions read as YAML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Group is the metadata of one shared context group.
type Group struct {
	Extensions []domain.Extension           `json:"extensions,omitempty" yaml:"extensions,omitempty" toml:"extensions,omitempty"`
	Listeners  []domain.ListenerDeclaration `json:"listeners,omitempty" yaml:"listeners,omitempty" toml:"listeners,omitempty"`
	Units      []domain.Unit                `json:"units,omitempty" yaml:"units,omitempty" toml:"units,omitempty"`
}

// Document is a parsed metadata file.
//
//	properties:
//	  test.context.closable: false
//	groups:
//	  db:
//	    extensions: [{name: reloadable}]
//	    listeners:
//	      - include: app.Migrations
//	    units:
//	      - id: TestUsers
//	        policy: before
//	orders:
//	  app.Migrations:
//	    - {event: beforeStartContext, value: 0}
type Document struct {
	Properties map[string]any            `json:"properties,omitempty" yaml:"properties,omitempty" toml:"properties,omitempty"`
	Groups     map[string]Group          `json:"groups,omitempty" yaml:"groups,omitempty" toml:"groups,omitempty"`
	Orders     map[string][]domain.Order `json:"orders,omitempty" yaml:"orders,omitempty" toml:"orders,omitempty"`
}

// Load reads and parses the metadata file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}
	doc, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes data in the given format. The document is not validated.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatTOML:
		_, err = toml.Decode(string(data), &doc)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&doc); errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return nil, fmt.Errorf("unsupported metadata format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s metadata: %w", format, err)
	}
	doc.Properties = flatten(doc.Properties)
	return &doc, nil
}

// Validate reports every inconsistency in the document, joined.
func (d *Document) Validate() error {
	var errs []error
	owner := make(map[string]string)
	for _, name := range d.GroupNames() {
		g := d.Groups[name]
		if len(g.Extensions) > 0 {
			if _, err := manager.CheckExtensions(name, g.Extensions); err != nil {
				errs = append(errs, err)
			}
		}
		for i, decl := range g.Listeners {
			set := 0
			for _, v := range []string{decl.Include, decl.Exclude} {
				if v != "" {
					set++
				}
			}
			if set != 1 {
				errs = append(errs, domain.NewConfigurationError(
					"group %s listener %d must set exactly one of include or exclude", name, i))
			}
		}
		for _, u := range g.Units {
			if u.ID == "" {
				errs = append(errs, domain.NewConfigurationError("group %s has a unit without id", name))
				continue
			}
			if prev, ok := owner[u.ID]; ok && prev != name {
				errs = append(errs, domain.NewConfigurationError(
					"unit %s is assigned to both %s and %s", u.ID, prev, name))
				continue
			}
			owner[u.ID] = name
		}
	}
	for _, ref := range slices.Sorted(maps.Keys(d.Orders)) {
		seen := make(map[string]struct{})
		for _, o := range d.Orders[ref] {
			if _, dup := seen[o.Event]; dup {
				event := o.Event
				if event == "" {
					event = "<type>"
				}
				errs = append(errs, domain.NewConfigurationError(
					"listener %s declares more than one order for %s", ref, event))
			}
			seen[o.Event] = struct{}{}
		}
	}
	if _, err := d.Config(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// GroupNames returns the declared groups, sorted.
func (d *Document) GroupNames() []string {
	return slices.Sorted(maps.Keys(d.Groups))
}

// Config decodes the document properties.
func (d *Document) Config() (config.Config, error) {
	return config.Decode(d.Properties)
}

// Scanner builds a metadata scanner holding every declaration of the document.
func (d *Document) Scanner() *memory.Scanner {
	s := memory.NewScanner()
	for name, g := range d.Groups {
		s.Enable(name, g.Extensions...)
		s.Declare(name, g.Listeners...)
		for _, u := range g.Units {
			s.SetGroup(u.ID, name)
			if u.Policy != domain.ReloadNone {
				s.SetPolicy(u.ID, u.Policy)
			}
		}
	}
	for ref, orders := range d.Orders {
		s.SetOrders(ref, orders...)
	}
	return s
}

// flatten turns nested tables into dotted keys, so TOML's
// test.context.closable and YAML's "test.context.closable" read the same.
func flatten(in map[string]any) map[string]any {
	if len(in) == 0 {
		return in
	}
	out := make(map[string]any, len(in))
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if nested, ok := v.(map[string]any); ok {
				walk(key, nested)
				continue
			}
			out[key] = v
		}
	}
	walk("", in)
	return out
}
