package filter

import (
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/jonathan/portfolio-engine/internal/types"
)

// ComputeFacets derives facet values for a record set. now resolves
// open-ended ranges.
func ComputeFacets(projects []types.Project, hierarchy types.TagHierarchy, now time.Time) types.Facets {
	entries := make([]entry, len(projects))
	for i, p := range projects {
		entries[i] = newEntry(p, now)
	}
	return computeFacets(entries, hierarchy)
}

func computeFacets(entries []entry, hierarchy types.TagHierarchy) types.Facets {
	years := StringSet{}
	clients := StringSet{}
	companies := StringSet{}
	categories := StringSet{}
	roles := StringSet{}
	tags := StringSet{}

	for i := range entries {
		e := &entries[i]
		for _, y := range e.years {
			years[y] = struct{}{}
		}
		if k := e.project.ClientKey(); k != "" {
			clients[k] = struct{}{}
		}
		if e.project.Company != "" {
			companies[e.project.Company] = struct{}{}
		}
		for _, cat := range e.categories {
			categories[cat] = struct{}{}
		}
		for _, r := range e.roles {
			roles[r] = struct{}{}
		}
		for _, t := range e.project.Tags {
			tags[t] = struct{}{}
		}
	}

	facets := types.Facets{
		Years:      SortYears(years.Sorted()),
		Clients:    clients.Sorted(),
		Companies:  companies.Sorted(),
		Categories: categories.Sorted(),
		Roles:      roles.Sorted(),
		Tags:       tags.Sorted(),
	}
	if hierarchy != nil {
		facets.TagTree = PruneHierarchy(hierarchy, tags)
	}
	return facets
}

// SortYears orders year labels numerically, most recent first, with the
// "Unknown" bucket (and any other non-numeric label) last.
func SortYears(labels []string) []string {
	out := slices.Clone(labels)
	sort.SliceStable(out, func(i, j int) bool {
		a, aErr := strconv.Atoi(out[i])
		b, bErr := strconv.Atoi(out[j])
		switch {
		case aErr == nil && bErr == nil:
			return a > b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		}
		return out[i] < out[j]
	})
	return out
}

// PruneHierarchy keeps the hierarchy nodes whose label is used or that have
// a kept descendant. Used tags missing from the hierarchy are appended as
// children of a top-level "Uncategorized" node, sorted alphabetically.
func PruneHierarchy(hierarchy types.TagHierarchy, used StringSet) []types.TagNode {
	var out []types.TagNode
	for i := range hierarchy {
		if n, ok := pruneNode(hierarchy[i], used); ok {
			out = append(out, n)
		}
	}

	known := NewStringSet(hierarchy.Labels()...)
	var orphans []string
	for t := range used {
		if !known.Has(t) {
			orphans = append(orphans, t)
		}
	}
	if len(orphans) > 0 {
		sort.Strings(orphans)
		bucket := types.TagNode{Label: types.UncategorizedLabel}
		for _, t := range orphans {
			bucket.Children = append(bucket.Children, types.TagNode{Label: t})
		}
		out = append(out, bucket)
	}
	return out
}

func pruneNode(n types.TagNode, used StringSet) (types.TagNode, bool) {
	kept := types.TagNode{Label: n.Label}
	for _, child := range n.Children {
		if c, ok := pruneNode(child, used); ok {
			kept.Children = append(kept.Children, c)
		}
	}
	return kept, used.Has(n.Label) || len(kept.Children) > 0
}

func cloneFacets(f types.Facets) types.Facets {
	return types.Facets{
		Years:      slices.Clone(f.Years),
		Clients:    slices.Clone(f.Clients),
		Companies:  slices.Clone(f.Companies),
		Categories: slices.Clone(f.Categories),
		Roles:      slices.Clone(f.Roles),
		Tags:       slices.Clone(f.Tags),
		TagTree:    cloneNodes(f.TagTree),
	}
}

func cloneNodes(nodes []types.TagNode) []types.TagNode {
	if nodes == nil {
		return nil
	}
	out := make([]types.TagNode, len(nodes))
	for i, n := range nodes {
		out[i] = types.TagNode{Label: n.Label, Children: cloneNodes(n.Children)}
	}
	return out
}
