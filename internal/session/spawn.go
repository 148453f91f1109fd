package session

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Sub-session ids embed trace-style spans so a tree of agent delegations can
// be reconstructed from ids alone: {parent-span}-{child-span}_{agent-slug}.
const (
	// SpanHexLen is the length of each span segment.
	SpanHexLen = 16
	// DefaultParentSpan is used when no parent span can be derived.
	DefaultParentSpan = "0000000000000000"
)

var (
	spanPattern    = regexp.MustCompile(`^[0-9a-f]{16}$`)
	traceIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)
	invalidRuns    = regexp.MustCompile(`[^a-z0-9]+`)
)

// GenerateSubSessionID builds the id for a spawned sub-agent session. The
// parent span is taken from the parent session id when it already follows
// the hierarchical format, otherwise from a 32-hex trace id, otherwise
// DefaultParentSpan. The child span is always fresh.
func GenerateSubSessionID(agentName, parentSessionID, traceID string) string {
	childSpan := strings.ReplaceAll(uuid.New().String(), "-", "")[:SpanHexLen]
	return parentSpan(parentSessionID, traceID) + "-" + childSpan + "_" + slugifyAgentName(agentName)
}

// parentSpan derives the span the new id hangs under. A hierarchical parent
// id contributes its own child span, keeping the chain linked.
func parentSpan(parentSessionID, traceID string) string {
	if idx := strings.LastIndex(parentSessionID, "_"); idx > 0 {
		spans := parentSessionID[:idx]
		if parent, child, ok := strings.Cut(spans, "-"); ok &&
			spanPattern.MatchString(parent) && spanPattern.MatchString(child) {
			return child
		}
	}
	if traceIDPattern.MatchString(traceID) {
		// Middle 16 hex of the 32-hex trace id.
		return traceID[8 : 8+SpanHexLen]
	}
	return DefaultParentSpan
}

// slugifyAgentName lowercases the agent name and collapses every run of
// non-alphanumeric characters to a single dash. Empty or fully-invalid names
// become "agent".
func slugifyAgentName(name string) string {
	slug := invalidRuns.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "agent"
	}
	return slug
}
