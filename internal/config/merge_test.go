package config

import (
	"reflect"
	"testing"
)

func TestMergeProfiles_EmptyOverlayIsIdentity(t *testing.T) {
	t.Parallel()

	parent := map[string]any{
		"session": map[string]any{
			"orchestrator": "loop-basic",
			"max_tokens":   4000,
		},
		"providers": []any{
			map[string]any{"module": "provider-anthropic", "source": "git+https://example/providers"},
		},
		"agents": map[string]any{"zen-architect": map[string]any{}},
	}

	result := MergeProfiles(parent, map[string]any{})

	if !reflect.DeepEqual(result, parent) {
		t.Errorf("merge with empty overlay changed parent:\n got %#v\nwant %#v", result, parent)
	}
}

func TestMergeProfiles_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	parent := map[string]any{
		"providers": []any{
			map[string]any{"module": "a", "config": map[string]any{"x": 1}},
		},
	}
	overlay := map[string]any{
		"providers": []any{
			map[string]any{"module": "a", "config": map[string]any{"y": 2}},
		},
	}

	result := MergeProfiles(parent, overlay)

	merged := result["providers"].([]any)[0].(map[string]any)
	merged["config"].(map[string]any)["x"] = 99

	if got := parent["providers"].([]any)[0].(map[string]any)["config"].(map[string]any)["x"]; got != 1 {
		t.Errorf("parent mutated through merge result: x = %v", got)
	}
	if cfg := overlay["providers"].([]any)[0].(map[string]any)["config"].(map[string]any); len(cfg) != 1 {
		t.Errorf("overlay mutated through merge: %#v", cfg)
	}
}

func TestMergeProfiles_ScalarOverride(t *testing.T) {
	t.Parallel()

	parent := map[string]any{
		"session": map[string]any{"orchestrator": "loop-basic", "max_tokens": 4000},
	}
	overlay := map[string]any{
		"session": map[string]any{"max_tokens": 8000},
	}

	result := MergeProfiles(parent, overlay)

	session := result["session"].(map[string]any)
	if session["max_tokens"] != 8000 {
		t.Errorf("max_tokens = %v, want 8000", session["max_tokens"])
	}
	if session["orchestrator"] != "loop-basic" {
		t.Errorf("orchestrator = %v, want inherited loop-basic", session["orchestrator"])
	}
}

func TestMergeProfiles_RepresentationMismatchOverlayWins(t *testing.T) {
	t.Parallel()

	parent := map[string]any{
		"session": map[string]any{
			"orchestrator": map[string]any{"module": "loop-basic", "config": map[string]any{"depth": 3}},
		},
	}
	overlay := map[string]any{
		"session": map[string]any{"orchestrator": "loop-streaming"},
	}

	result := MergeProfiles(parent, overlay)

	if got := result["session"].(map[string]any)["orchestrator"]; got != "loop-streaming" {
		t.Errorf("orchestrator = %#v, want bare string from overlay", got)
	}

	// And the reverse: object overlay replaces bare string wholesale.
	back := MergeProfiles(result, parent)
	orch, ok := back["session"].(map[string]any)["orchestrator"].(map[string]any)
	if !ok || orch["module"] != "loop-basic" {
		t.Errorf("orchestrator = %#v, want parent object form", back["session"])
	}
}

func TestMergeProfiles_ModuleListMergesByKeyNotPosition(t *testing.T) {
	t.Parallel()

	parent := map[string]any{
		"providers": []any{
			map[string]any{"module": "a", "source": "src-a"},
			map[string]any{"module": "b", "source": "src-b", "config": map[string]any{"y": 2}},
		},
	}
	overlay := map[string]any{
		"providers": []any{
			map[string]any{"module": "b", "config": map[string]any{"x": 1}},
			map[string]any{"module": "c"},
		},
	}

	result := MergeProfiles(parent, overlay)

	providers := result["providers"].([]any)
	if len(providers) != 3 {
		t.Fatalf("got %d providers, want 3", len(providers))
	}

	order := make([]string, len(providers))
	for i, p := range providers {
		order[i], _ = moduleID(p)
	}
	if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
		t.Errorf("order = %v, want [a b c]", order)
	}

	b := providers[1].(map[string]any)
	if b["source"] != "src-b" {
		t.Errorf("b.source = %v, want parent's src-b (overlay gave no source)", b["source"])
	}
	cfg := b["config"].(map[string]any)
	if cfg["x"] != 1 || cfg["y"] != 2 {
		t.Errorf("b.config = %#v, want merged {x:1 y:2}", cfg)
	}
}

func TestMergeProfiles_ExplicitSourceRedefinesModule(t *testing.T) {
	t.Parallel()

	parent := map[string]any{
		"tools": []any{map[string]any{"module": "tool-web", "source": "v1"}},
	}
	overlay := map[string]any{
		"tools": []any{map[string]any{"module": "tool-web", "source": "v2"}},
	}

	result := MergeProfiles(parent, overlay)

	tool := result["tools"].([]any)[0].(map[string]any)
	if tool["source"] != "v2" {
		t.Errorf("source = %v, want overlay's v2", tool["source"])
	}
}

func TestMergeProfiles_EntriesWithoutModuleKeyArePreserved(t *testing.T) {
	t.Parallel()

	parent := map[string]any{
		"hooks": []any{map[string]any{"note": "orphan"}},
	}
	overlay := map[string]any{
		"hooks": []any{"bare-string", map[string]any{"module": "hooks-logging"}},
	}

	result := MergeProfiles(parent, overlay)

	hooks := result["hooks"].([]any)
	if len(hooks) != 3 {
		t.Fatalf("got %d hooks, want 3 (malformed entries pass through)", len(hooks))
	}
}

func TestMergeAgentOverlay_None(t *testing.T) {
	t.Parallel()

	parent := map[string]any{
		"agents": map[string]any{"foo": map[string]any{}, "bar": map[string]any{}},
	}

	result := MergeAgentOverlay(parent, map[string]any{"agents": "none"})

	agents := result["agents"].(map[string]any)
	if len(agents) != 0 {
		t.Errorf("agents = %#v, want empty map", agents)
	}
}

func TestMergeAgentOverlay_ListFiltersAndDropsUnknown(t *testing.T) {
	t.Parallel()

	parent := map[string]any{
		"agents": map[string]any{"foo": map[string]any{}, "bar": map[string]any{}},
	}
	overlay := map[string]any{"agents": []any{"foo", "unknown-agent"}}

	result := MergeAgentOverlay(parent, overlay)

	agents := result["agents"].(map[string]any)
	if len(agents) != 1 {
		t.Fatalf("agents = %#v, want only foo", agents)
	}
	if _, ok := agents["foo"]; !ok {
		t.Error("foo missing from filtered agents")
	}
}

func TestMergeAgentOverlay_AllAndAbsentInheritUnchanged(t *testing.T) {
	t.Parallel()

	parent := map[string]any{
		"agents": map[string]any{"foo": map[string]any{}, "bar": map[string]any{}},
	}

	for name, overlay := range map[string]map[string]any{
		"all":    {"agents": "all"},
		"absent": {},
	} {
		result := MergeAgentOverlay(parent, overlay)
		agents := result["agents"].(map[string]any)
		if len(agents) != 2 {
			t.Errorf("%s: agents = %#v, want parent's two agents", name, agents)
		}
	}
}

func TestMergeAgentOverlay_FilterNeverMergedAsDict(t *testing.T) {
	t.Parallel()

	parent := map[string]any{
		"agents":    map[string]any{"foo": map[string]any{"role": "x"}},
		"providers": []any{map[string]any{"module": "provider-anthropic"}},
	}
	overlay := map[string]any{
		"agents":    []any{"foo"},
		"providers": []any{map[string]any{"module": "provider-anthropic", "config": map[string]any{"temperature": 0.7}}},
	}

	result := MergeAgentOverlay(parent, overlay)

	// The filter list must not leak into the merged tree.
	agents, ok := result["agents"].(map[string]any)
	if !ok {
		t.Fatalf("agents = %#v, want resolved map form", result["agents"])
	}
	foo := agents["foo"].(map[string]any)
	if foo["role"] != "x" {
		t.Errorf("foo = %#v, want parent's config preserved", foo)
	}

	cfg := result["providers"].([]any)[0].(map[string]any)["config"].(map[string]any)
	if cfg["temperature"] != 0.7 {
		t.Errorf("provider config = %#v, want overlay merge applied", cfg)
	}
}
