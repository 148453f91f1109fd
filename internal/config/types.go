// Package config implements the configuration merge engine for profile
// inheritance and agent overlays, plus provenance tracking for effective
// configuration values.
//
// Configuration trees are plain map[string]any values as decoded from YAML or
// JSON. Recognized top-level sections:
//
//   - session: scalar/object fields (orchestrator, context, ...), each either
//     a bare module-name string or an object {module, source?, config?}
//   - providers, tools, hooks: ordered module-entry lists keyed by "module"
//   - agents: a resolved map of agent-name -> agent-config on a parent, or a
//     Smart Single Value filter ("all", "none", or a list of names) on an
//     agent overlay
package config

// moduleSections are the top-level sections merged by module identity
// instead of by position.
var moduleSections = map[string]bool{
	"providers": true,
	"tools":     true,
	"hooks":     true,
}

// moduleID extracts the identity key of a module-entry. ok is false for
// malformed entries (non-map, or missing/non-string "module"), which are
// preserved verbatim by the merge and skipped by provenance tracking.
func moduleID(item any) (string, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := m["module"].(string)
	return id, ok
}

// CloneMap returns a deep copy of a configuration tree. Nested maps and
// slices are copied; scalars are shared.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
