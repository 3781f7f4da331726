package filter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/jonathan/portfolio-engine/internal/types"
)

const uncategorizedParent = "(Uncategorized)"

// TagCSV renders the tag hierarchy as "Top Level Tag,Sub Tag" rows, one per
// descendant of each top-level tag, followed by used tags that the hierarchy
// does not cover under "(Uncategorized)". It also reports how many orphans
// were found.
func TagCSV(hierarchy types.TagHierarchy, projects []types.Project) ([]byte, int, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Top Level Tag", "Sub Tag"}); err != nil {
		return nil, 0, fmt.Errorf("failed to write header: %w", err)
	}

	covered := StringSet{}
	for _, top := range hierarchy {
		covered[top.Label] = struct{}{}
		for _, label := range types.TagHierarchy(top.Children).Labels() {
			covered[label] = struct{}{}
			if err := w.Write([]string{top.Label, label}); err != nil {
				return nil, 0, fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	used := StringSet{}
	for _, p := range projects {
		for _, t := range p.Tags {
			used[t] = struct{}{}
		}
	}
	var orphans []string
	for t := range used {
		if !covered.Has(t) {
			orphans = append(orphans, t)
		}
	}
	sort.Strings(orphans)
	for _, t := range orphans {
		if err := w.Write([]string{uncategorizedParent, t}); err != nil {
			return nil, 0, fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), len(orphans), nil
}
