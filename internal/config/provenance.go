package config

// Layer is one member of a profile inheritance chain: the raw configuration
// tree plus the label used for provenance attribution (usually the profile
// name).
type Layer struct {
	Name   string
	Config map[string]any
}

// Source records which chain member set a value and, when the value was
// overridden, which member held it immediately before. Override chains
// collapse to (most-recent, one-level-back); the full history is not kept.
type Source struct {
	Current  string
	Previous string
}

// Overridden reports whether the value replaced an earlier layer's value.
func (s Source) Overridden() bool {
	return s.Previous != ""
}

// ModuleKey identifies a module entry within its section.
type ModuleKey struct {
	Section string
	Module  string
}

// Sources is the provenance map for an effective configuration.
type Sources struct {
	// Session attributes each session field by key.
	Session map[string]Source
	// Modules attributes each providers/tools/hooks entry by identity.
	// Config-only edits do not reassign a module's attribution.
	Modules map[ModuleKey]Source
	// Agents attributes the agents section as a single opaque unit; the
	// zero value means no layer contributed agents.
	Agents Source
	// ConfigFields attributes individual config fields within a module.
	ConfigFields map[ModuleKey]map[string]Source
	// ConfigModifiedBy records the layer that last touched a module's
	// config without redefining the module itself.
	ConfigModifiedBy map[ModuleKey]string
}

// EffectiveConfig is the merged chain reshaped for lookup: module lists keyed
// by module id and agents keyed by agent name.
type EffectiveConfig struct {
	Session   map[string]any
	Providers map[string]map[string]any
	Tools     map[string]map[string]any
	Hooks     map[string]map[string]any
	Agents    map[string]map[string]any
	AgentDirs []string
}

// BuildEffectiveConfig merges an inheritance chain (root ancestor first,
// leaf-most override last) while recording which layer contributed each
// effective value. The provenance enables annotations like
// "[top, overrides base]" without re-deriving the merge.
func BuildEffectiveConfig(chain []Layer) (*EffectiveConfig, *Sources) {
	sources := &Sources{
		Session:          map[string]Source{},
		Modules:          map[ModuleKey]Source{},
		ConfigFields:     map[ModuleKey]map[string]Source{},
		ConfigModifiedBy: map[ModuleKey]string{},
	}

	merged := map[string]any{}

	for _, layer := range chain {
		trackSessionFields(merged, layer, sources)
		for section := range moduleSections {
			trackModuleSection(merged, layer, section, sources)
		}
		trackAgents(merged, layer, sources)

		merged = MergeProfiles(merged, layer.Config)
	}

	return reshapeEffective(merged), sources
}

func trackSessionFields(merged map[string]any, layer Layer, sources *Sources) {
	session, ok := layer.Config["session"].(map[string]any)
	if !ok {
		return
	}
	mergedSession, _ := merged["session"].(map[string]any)
	for field := range session {
		if _, exists := mergedSession[field]; !exists {
			sources.Session[field] = Source{Current: layer.Name}
		} else {
			prev := sources.Session[field].Current
			sources.Session[field] = Source{Current: layer.Name, Previous: prev}
		}
	}
}

func trackModuleSection(merged map[string]any, layer Layer, section string, sources *Sources) {
	items, ok := layer.Config[section].([]any)
	if !ok {
		return
	}
	mergedSection, _ := merged[section].([]any)

	for _, item := range items {
		id, ok := moduleID(item)
		if !ok {
			continue
		}
		key := ModuleKey{Section: section, Module: id}
		entry := item.(map[string]any)

		existing := findModule(mergedSection, id)
		if existing == nil {
			// New module from this layer. Its initial config fields are
			// attributed with the module itself, not individually.
			sources.Modules[key] = Source{Current: layer.Name}
			sources.ConfigFields[key] = map[string]Source{}
			continue
		}

		prev := sources.Modules[key].Current

		_, hasSource := entry["source"]
		cfg, hasConfig := entry["config"].(map[string]any)
		switch {
		case hasSource:
			// An explicit source redefines the module.
			sources.Modules[key] = Source{Current: layer.Name, Previous: prev}
		case hasConfig:
			// Config-only edit: ownership stays with the defining layer.
			sources.ConfigModifiedBy[key] = layer.Name
		}

		if hasConfig {
			fields := sources.ConfigFields[key]
			if fields == nil {
				fields = map[string]Source{}
				sources.ConfigFields[key] = fields
			}
			existingConfig, _ := existing["config"].(map[string]any)
			for cfgField := range cfg {
				if _, exists := existingConfig[cfgField]; !exists {
					fields[cfgField] = Source{Current: layer.Name}
					continue
				}
				old, ok := fields[cfgField]
				if !ok {
					old = Source{Current: prev}
				}
				fields[cfgField] = Source{Current: layer.Name, Previous: old.Current}
			}
		}
	}
}

func trackAgents(merged map[string]any, layer Layer, sources *Sources) {
	if _, ok := layer.Config["agents"]; !ok {
		return
	}
	if _, exists := merged["agents"]; !exists {
		sources.Agents = Source{Current: layer.Name}
	} else {
		sources.Agents = Source{Current: layer.Name, Previous: sources.Agents.Current}
	}
}

func findModule(section []any, id string) map[string]any {
	for _, item := range section {
		if itemID, ok := moduleID(item); ok && itemID == id {
			return item.(map[string]any)
		}
	}
	return nil
}

// reshapeEffective converts the merged chain result into its canonical
// lookup form.
func reshapeEffective(merged map[string]any) *EffectiveConfig {
	effective := &EffectiveConfig{
		Session:   map[string]any{},
		Providers: modulesByID(merged, "providers"),
		Tools:     modulesByID(merged, "tools"),
		Hooks:     modulesByID(merged, "hooks"),
		Agents:    map[string]map[string]any{},
	}

	if session, ok := merged["session"].(map[string]any); ok {
		effective.Session = session
	}

	// Agents arrive as {dirs, items} from profile merging; reshape items
	// into a map keyed by agent name, preserving dirs for discovery.
	if agents, ok := merged["agents"].(map[string]any); ok {
		if items, ok := agents["items"].([]any); ok {
			for _, item := range items {
				m, ok := item.(map[string]any)
				if !ok {
					continue
				}
				name, ok := m["name"].(string)
				if !ok {
					continue
				}
				effective.Agents[name] = m
			}
		}
		if dirs, ok := agents["dirs"].([]any); ok {
			for _, d := range dirs {
				if s, ok := d.(string); ok {
					effective.AgentDirs = append(effective.AgentDirs, s)
				}
			}
		}
	}

	return effective
}

func modulesByID(merged map[string]any, section string) map[string]map[string]any {
	out := map[string]map[string]any{}
	items, ok := merged[section].([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if id, ok := moduleID(item); ok {
			out[id] = item.(map[string]any)
		}
	}
	return out
}
