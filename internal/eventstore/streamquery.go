package eventstore

import (
	"fmt"
	"strings"
)

// StreamMatch is one DNF item: either an "any of these ids" clause or a
// "none of these ids" clause.
type StreamMatch struct {
	Any []string
	Not []string
}

// CompileStreamQuery turns a disjunctive-normal-form list of AND-blocks
// into an FTS5 MATCH expression. An empty input compiles to the empty
// string (no stream constraint).
func CompileStreamQuery(andBlocks [][]StreamMatch) string {
	if len(andBlocks) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(andBlocks))
	for _, block := range andBlocks {
		compiled := compileAndBlock(block)
		if compiled != "" {
			blocks = append(blocks, compiled)
		}
	}

	if len(blocks) == 0 {
		return ""
	}
	if len(blocks) == 1 {
		return blocks[0]
	}

	for i, b := range blocks {
		blocks[i] = "(" + b + ")"
	}
	return strings.Join(blocks, " OR ")
}

func compileAndBlock(items []StreamMatch) string {
	var anyTerms []string
	var notTerms []string

	for _, item := range items {
		if len(item.Any) > 0 && !containsWildcard(item.Any) {
			anyTerms = append(anyTerms, formatAny(item.Any))
		}
		for _, n := range item.Not {
			notTerms = append(notTerms, fmt.Sprintf(`NOT "%s"`, n))
		}
	}

	if len(anyTerms) == 0 {
		anyTerms = append(anyTerms, fmt.Sprintf(`"%s"`, universalTag))
	}

	var parts []string
	parts = append(parts, anyTerms...)
	parts = append(parts, notTerms...)

	return strings.Join(parts, " ")
}

func containsWildcard(ids []string) bool {
	for _, id := range ids {
		if id == "*" {
			return true
		}
	}
	return false
}

// formatAny renders a single {any: [...]} clause: a lone id is a bare
// quoted token; multiple ids are OR-grouped.
func formatAny(ids []string) string {
	if len(ids) == 1 {
		return fmt.Sprintf(`"%s"`, ids[0])
	}

	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf(`"%s"`, id)
	}
	return "(" + strings.Join(quoted, " OR ") + ")"
}
