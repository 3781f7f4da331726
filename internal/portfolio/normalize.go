package portfolio

import (
	"strings"

	"github.com/jonathan/portfolio-engine/internal/parsing"
	"github.com/jonathan/portfolio-engine/internal/types"
)

// Normalize applies all normalization steps to a dataset in place
func Normalize(ds *Dataset) {
	for i := range ds.Projects {
		NormalizeProject(&ds.Projects[i])
	}
	ds.Hierarchy = NormalizeHierarchy(ds.Hierarchy)
}

// NormalizeProject trims text fields and deduplicates tags, keeping first-seen order.
func NormalizeProject(p *types.Project) {
	for _, field := range []*string{
		&p.Name, &p.Client, &p.ClientSort, &p.Company, &p.Location, &p.Category,
		&p.StartDate, &p.EndDate, &p.Year, &p.Description, &p.Title, &p.Role,
		&p.ProjectRole, &p.Image,
	} {
		*field = strings.TrimSpace(*field)
	}

	if p.Tags == nil {
		return
	}
	tags := make(types.Tags, 0, len(p.Tags))
	seen := make(map[string]struct{}, len(p.Tags))
	for _, tag := range p.Tags {
		tag = parsing.NormalizeLabel(tag)
		if tag == "" {
			continue
		}
		if _, exists := seen[tag]; exists {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	p.Tags = tags
}

// NormalizeHierarchy trims labels and drops nodes whose label is empty.
func NormalizeHierarchy(h []types.TagNode) []types.TagNode {
	if h == nil {
		return nil
	}
	out := make([]types.TagNode, 0, len(h))
	for _, n := range h {
		label := parsing.NormalizeLabel(n.Label)
		if label == "" {
			continue
		}
		out = append(out, types.TagNode{
			Label:    label,
			Children: NormalizeHierarchy(n.Children),
		})
	}
	if len(out) == 0 {
		return []types.TagNode{}
	}
	return out
}
