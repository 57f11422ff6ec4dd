// Package config owns the session configuration: a generic hierarchical
// Namespace tree loaded from YAML, JSON or TOML, a validating check
// that backfills declared defaults with type coercion, and the typed
// section structs the rest of the program consumes.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Divider separates levels in dotted key paths.
const Divider = "."

// Namespace is a hierarchical key → value tree with dotted-path access.
type Namespace struct {
	data map[string]any
}

// NewNamespace builds an empty tree.
func NewNamespace() *Namespace {
	return &Namespace{data: map[string]any{}}
}

// LoadNamespace reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func LoadNamespace(path string) (*Namespace, error) {
	if path == "" {
		return nil, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tree := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &tree); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(b, &tree); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &tree); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return &Namespace{data: normalizeTree(tree)}, nil
}

// normalizeTree rewrites decoder-specific map types into plain
// map[string]any so lookups behave identically across formats.
func normalizeTree(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeTree(t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[fmt.Sprintf("%v", k)] = normalizeValue(item)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

// Get returns the value at a dotted path.
func (ns *Namespace) Get(path string) (any, bool) {
	parts := strings.Split(path, Divider)
	cur := any(ns.data)
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set stores a value at a dotted path, creating intermediate maps.
// Setting through a non-map value replaces it.
func (ns *Namespace) Set(path string, v any) {
	parts := strings.Split(path, Divider)
	m := ns.data
	for _, part := range parts[:len(parts)-1] {
		child, ok := m[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			m[part] = child
		}
		m = child
	}
	m[parts[len(parts)-1]] = v
}

// Has reports whether a dotted path exists.
func (ns *Namespace) Has(path string) bool {
	_, ok := ns.Get(path)
	return ok
}

// Save writes the tree as YAML. Reloading the file reproduces the same
// key set and scalar values.
func (ns *Namespace) Save(path string) error {
	b, err := yaml.Marshal(ns.data)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// Copy deep-copies the tree.
func (ns *Namespace) Copy() *Namespace {
	return &Namespace{data: normalizeTree(copyTree(ns.data))}
}

func copyTree(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyTree(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []int:
		return append([]int(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	default:
		return v
	}
}

// Summary renders the tree as indented lines for the REPL.
func (ns *Namespace) Summary() string {
	var sb strings.Builder
	writeSummary(&sb, ns.data, 0)
	return sb.String()
}

func writeSummary(sb *strings.Builder, m map[string]any, depth int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		indent := strings.Repeat("  ", depth)
		if child, ok := m[k].(map[string]any); ok {
			fmt.Fprintf(sb, "%s%s:\n", indent, k)
			writeSummary(sb, child, depth+1)
			continue
		}
		fmt.Fprintf(sb, "%s%s: %v\n", indent, k, m[k])
	}
}
