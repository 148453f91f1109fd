package session

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var subSessionIDPattern = regexp.MustCompile(`^[0-9a-f]{16}-[0-9a-f]{16}_[a-z0-9-]+$`)

func TestGenerateSubSessionID_Format(t *testing.T) {
	t.Parallel()

	id := GenerateSubSessionID("zen-architect", "", "")
	assert.Regexp(t, subSessionIDPattern, id)
	assert.True(t, strings.HasSuffix(id, "_zen-architect"))
}

func TestGenerateSubSessionID_ChildSpansAreUnique(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := GenerateSubSessionID("agent", "", "")
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerateSubSessionID_ParentSpanFromHierarchicalID(t *testing.T) {
	t.Parallel()

	parent := "aaaaaaaaaaaaaaaa-bbbbbbbbbbbbbbbb_zen-architect"
	id := GenerateSubSessionID("bug-hunter", parent, "")

	// The child span of the parent becomes the parent span of the new id,
	// keeping the delegation chain linked.
	assert.True(t, strings.HasPrefix(id, "bbbbbbbbbbbbbbbb-"), "id = %s", id)
	assert.Regexp(t, subSessionIDPattern, id)
}

func TestGenerateSubSessionID_ParentSpanFromTraceID(t *testing.T) {
	t.Parallel()

	id := GenerateSubSessionID("worker", "plain-session-id", "0123456789abcdef0123456789abcdef")
	assert.True(t, strings.HasPrefix(id, "89abcdef01234567-"), "id = %s", id)
}

func TestGenerateSubSessionID_DefaultParentSpan(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name            string
		parentSessionID string
		traceID         string
	}{
		{"no context at all", "", ""},
		{"flat parent id, no trace", "my-session", ""},
		{"trace id too short", "", "0123456789abcdef"},
		{"trace id not hex", "", "0123456789abcdefZ123456789abcdef"},
		{"underscore but malformed spans", "short-spans_agent", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			id := GenerateSubSessionID("agent", tc.parentSessionID, tc.traceID)
			assert.True(t, strings.HasPrefix(id, DefaultParentSpan+"-"), "id = %s", id)
		})
	}
}

func TestGenerateSubSessionID_GrandchildChains(t *testing.T) {
	t.Parallel()

	root := GenerateSubSessionID("root-agent", "", "")
	child := GenerateSubSessionID("child-agent", root, "")

	rootChildSpan := strings.Split(strings.SplitN(root, "_", 2)[0], "-")[1]
	assert.True(t, strings.HasPrefix(child, rootChildSpan+"-"),
		"child %s must hang under root's child span %s", child, rootChildSpan)
}

func TestSlugifyAgentName(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in   string
		want string
	}{
		{"zen-architect", "zen-architect"},
		{"Web Search!", "web-search"},
		{"  Spaced  Out  ", "spaced-out"},
		{"UPPER_case.Name", "upper-case-name"},
		{"émigré agent", "migr-agent"},
		{"!!!", "agent"},
		{"", "agent"},
		{"a", "a"},
	} {
		assert.Equal(t, tc.want, slugifyAgentName(tc.in), "slugifyAgentName(%q)", tc.in)
	}
}
