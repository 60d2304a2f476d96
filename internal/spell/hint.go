package spell

import (
	"fmt"
	"slices"
	"strings"
)

// Hint is an optimizer hint such as MAX_EXECUTION_TIME(1000).
type Hint struct {
	Text string
}

// IndexHintType is USE, FORCE or IGNORE.
type IndexHintType string

const (
	UseIndex    IndexHintType = "USE"
	ForceIndex  IndexHintType = "FORCE"
	IgnoreIndex IndexHintType = "IGNORE"
)

// IndexHintScope restricts an index hint to part of the statement. The zero
// value applies to the whole statement.
type IndexHintScope string

const (
	ScopeAll     IndexHintScope = ""
	ScopeJoin    IndexHintScope = "JOIN"
	ScopeOrderBy IndexHintScope = "ORDER BY"
	ScopeGroupBy IndexHintScope = "GROUP BY"
)

// IndexHint names indexes the planner should use, be forced to use, or
// ignore.
type IndexHint struct {
	Type    IndexHintType
	Scope   IndexHintScope
	Indexes []string
}

// ParseIndexHintType accepts use, force or ignore in any case.
func ParseIndexHintType(s string) (IndexHintType, error) {
	switch t := IndexHintType(strings.ToUpper(strings.TrimSpace(s))); t {
	case UseIndex, ForceIndex, IgnoreIndex:
		return t, nil
	case "":
		return UseIndex, nil
	default:
		return "", fmt.Errorf("unknown index hint type %q", s)
	}
}

// ParseIndexHintScope accepts join, order by or group by in any case.
func ParseIndexHintScope(s string) (IndexHintScope, error) {
	switch sc := IndexHintScope(strings.ToUpper(strings.Join(strings.Fields(s), " "))); sc {
	case ScopeAll, ScopeJoin, ScopeOrderBy, ScopeGroupBy:
		return sc, nil
	default:
		return "", fmt.Errorf("unknown index hint scope %q", s)
	}
}

// UniqueHints drops repeated optimizer hints, keeping first occurrences.
func UniqueHints(hints []Hint) []Hint {
	seen := make(map[string]bool, len(hints))
	var out []Hint
	for _, h := range hints {
		text := strings.TrimSpace(h.Text)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, Hint{Text: text})
	}
	return out
}

// MergeIndexHints folds hints of the same type and scope into one, keeping
// first-seen order of both hints and index names.
func MergeIndexHints(hints []IndexHint) []IndexHint {
	var out []IndexHint
	for _, h := range hints {
		merged := false
		for i := range out {
			if out[i].Type != h.Type || out[i].Scope != h.Scope {
				continue
			}
			for _, index := range h.Indexes {
				if !slices.Contains(out[i].Indexes, index) {
					out[i].Indexes = append(out[i].Indexes, index)
				}
			}
			merged = true
			break
		}
		if !merged {
			var indexes []string
			for _, index := range h.Indexes {
				if !slices.Contains(indexes, index) {
					indexes = append(indexes, index)
				}
			}
			out = append(out, IndexHint{Type: h.Type, Scope: h.Scope, Indexes: indexes})
		}
	}
	return out
}
