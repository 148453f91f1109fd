package config

// MergeProfiles deep-merges an overlay configuration onto a parent and
// returns a new tree; neither input is mutated.
//
// Rules, per section:
//   - scalars: the overlay value replaces the parent's when present
//   - nested objects: merged recursively, overlay keys win; if the two sides
//     disagree on representation (string vs object), the overlay wins
//     wholesale
//   - providers/tools/hooks: merged by "module" identity, parent order first,
//     new overlay entries appended in overlay order; within a matched entry,
//     "source" is replaced only when the overlay provides it and "config" is
//     deep-merged
//
// The agents access filter is NOT applied here; callers merging an agent
// overlay use MergeAgentOverlay instead.
func MergeProfiles(parent, overlay map[string]any) map[string]any {
	result := make(map[string]any, len(parent)+len(overlay))
	for k, v := range parent {
		result[k] = cloneValue(v)
	}

	for k, ov := range overlay {
		pv, exists := result[k]
		if !exists {
			result[k] = cloneValue(ov)
			continue
		}

		if moduleSections[k] {
			pl, pOK := pv.([]any)
			ol, oOK := ov.([]any)
			if pOK && oOK {
				result[k] = mergeModuleLists(pl, ol)
				continue
			}
		}

		result[k] = mergeValues(pv, ov)
	}

	return result
}

// mergeValues merges two already-cloned-or-raw values: map-on-map merges
// recursively, anything else lets the overlay win wholesale.
func mergeValues(parent, overlay any) any {
	pm, pOK := parent.(map[string]any)
	om, oOK := overlay.(map[string]any)
	if pOK && oOK {
		merged := CloneMap(pm)
		for k, ov := range om {
			if pv, exists := merged[k]; exists {
				merged[k] = mergeValues(pv, ov)
			} else {
				merged[k] = cloneValue(ov)
			}
		}
		return merged
	}
	return cloneValue(overlay)
}

// mergeModuleLists merges module-entry lists by identity key. Entries without
// a usable "module" key never participate in identity matching: parent ones
// stay in place, overlay ones are appended verbatim.
func mergeModuleLists(parent, overlay []any) []any {
	result := make([]any, 0, len(parent)+len(overlay))
	index := make(map[string]int, len(parent))

	for _, item := range parent {
		copied := cloneValue(item)
		if id, ok := moduleID(copied); ok {
			index[id] = len(result)
		}
		result = append(result, copied)
	}

	for _, item := range overlay {
		id, ok := moduleID(item)
		if !ok {
			result = append(result, cloneValue(item))
			continue
		}
		pos, exists := index[id]
		if !exists {
			index[id] = len(result)
			result = append(result, cloneValue(item))
			continue
		}
		entry, _ := result[pos].(map[string]any)
		result[pos] = mergeModuleEntry(entry, item.(map[string]any))
	}

	return result
}

// mergeModuleEntry merges one overlay module entry into its parent match.
// An explicit "source" in the overlay redefines the module; "config" keys
// merge field-by-field with parent keys surviving where untouched.
func mergeModuleEntry(parent, overlay map[string]any) map[string]any {
	merged := parent // already a fresh copy owned by mergeModuleLists
	for k, ov := range overlay {
		if k == "config" {
			pc, pOK := merged["config"].(map[string]any)
			oc, oOK := ov.(map[string]any)
			if pOK && oOK {
				merged["config"] = mergeValues(pc, oc)
				continue
			}
		}
		merged[k] = cloneValue(ov)
	}
	return merged
}

// MergeAgentOverlay merges an agent's partial mount plan onto the parent
// session's complete mount plan.
//
// The overlay's "agents" field is a Smart Single Value ("all", "none", or a
// list of agent names) while the parent's is an already-resolved map of agent
// configs, so the overlay's value is withheld from the generic merge and
// applied afterwards as a filter over the parent's resolved map:
//
//   - "all" or absent: inherit the parent's agents unchanged
//   - "none": sub-agent delegation disabled (empty map)
//   - list of names: subset of the parent's map; unknown names are silently
//     dropped
func MergeAgentOverlay(parent, overlay map[string]any) map[string]any {
	filter, hasFilter := overlay["agents"]
	if hasFilter {
		trimmed := make(map[string]any, len(overlay)-1)
		for k, v := range overlay {
			if k != "agents" {
				trimmed[k] = v
			}
		}
		overlay = trimmed
	}

	result := MergeProfiles(parent, overlay)
	if !hasFilter {
		return result
	}

	switch f := filter.(type) {
	case string:
		if f == "none" {
			result["agents"] = map[string]any{}
		}
		// "all" inherits the parent's resolved map, already in result.
	case []any:
		names := make(map[string]bool, len(f))
		for _, n := range f {
			if s, ok := n.(string); ok {
				names[s] = true
			}
		}
		result["agents"] = filterAgents(parent, names)
	case []string:
		names := make(map[string]bool, len(f))
		for _, n := range f {
			names[n] = true
		}
		result["agents"] = filterAgents(parent, names)
	}

	return result
}

func filterAgents(parent map[string]any, names map[string]bool) map[string]any {
	filtered := map[string]any{}
	parentAgents, _ := parent["agents"].(map[string]any)
	for name, cfg := range parentAgents {
		if names[name] {
			filtered[name] = cloneValue(cfg)
		}
	}
	return filtered
}
