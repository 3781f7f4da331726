package parsing

import (
	"strings"
)

// SplitList splits a comma-separated field, trimming pieces and dropping
// empty ones. Order of first appearance is kept and duplicates are removed.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

// NormalizeLabel trims whitespace and collapses internal runs of spaces.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
