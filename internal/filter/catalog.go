// Package filter implements the project catalog: free-text search, faceted
// multi-select filtering, recency sorting and the derived facet, stats and
// map views. A Catalog is immutable after construction and safe for
// concurrent use.
package filter

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/jonathan/portfolio-engine/internal/parsing"
	"github.com/jonathan/portfolio-engine/internal/types"
)

// Catalog holds a project dataset with per-record derived data.
type Catalog struct {
	entries   []entry
	hierarchy types.TagHierarchy
	now       func() time.Time
	facets    types.Facets
}

type entry struct {
	project    types.Project
	span       parsing.Span
	years      []string
	categories []string
	roles      []string
	haystack   string
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock sets the clock used to resolve open-ended date ranges.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCatalog builds a catalog over a copy of projects.
func NewCatalog(projects []types.Project, hierarchy types.TagHierarchy, opts ...Option) *Catalog {
	c := &Catalog{
		hierarchy: hierarchy,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	now := c.now()
	c.entries = make([]entry, len(projects))
	for i, p := range projects {
		p.Tags = slices.Clone(p.Tags)
		c.entries[i] = newEntry(p, now)
	}
	c.facets = computeFacets(c.entries, hierarchy)
	return c
}

func newEntry(p types.Project, now time.Time) entry {
	span := parsing.ProjectSpan(p, now)
	return entry{
		project:    p,
		span:       span,
		years:      span.YearLabels(),
		categories: parsing.SplitList(p.Category),
		roles:      parsing.SplitList(p.ProjectRole),
		haystack:   fold(searchText(p)),
	}
}

// searchText is the space-joined text free-text queries match against.
func searchText(p types.Project) string {
	parts := []string{
		p.Name,
		p.Client,
		p.Company,
		p.Description,
		p.Category,
		p.Location,
		p.RoleTitle(),
		p.ProjectRole,
	}
	parts = append(parts, p.Tags...)
	return strings.Join(parts, " ")
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Hierarchy returns the tag hierarchy the catalog was built with.
func (c *Catalog) Hierarchy() types.TagHierarchy {
	return c.hierarchy
}

// Projects returns a copy of the dataset in its original order.
func (c *Catalog) Projects() []types.Project {
	out := make([]types.Project, len(c.entries))
	for i := range c.entries {
		out[i] = c.entries[i].copyProject()
	}
	return out
}

func (e *entry) copyProject() types.Project {
	p := e.project
	p.Tags = slices.Clone(p.Tags)
	return p
}

// Filter returns the records matching criteria. With empty criteria the
// dataset is returned in original order; otherwise matches are ordered most
// recent first with ties kept in dataset order.
func (c *Catalog) Filter(criteria *Criteria) []types.Project {
	matched := c.match(criteria)
	if !criteria.IsEmpty() {
		slices.SortStableFunc(matched, func(a, b *entry) int {
			return parsing.CompareRecency(a.span, b.span)
		})
	}
	out := make([]types.Project, len(matched))
	for i, e := range matched {
		out[i] = e.copyProject()
	}
	return out
}

func (c *Catalog) match(criteria *Criteria) []*entry {
	out := make([]*entry, 0, len(c.entries))
	var needle string
	if criteria != nil && criteria.Text != "" {
		needle = fold(criteria.Text)
	}
	for i := range c.entries {
		e := &c.entries[i]
		if criteria == nil || e.matches(criteria, needle) {
			out = append(out, e)
		}
	}
	return out
}

func (e *entry) matches(c *Criteria, needle string) bool {
	if needle != "" && !strings.Contains(e.haystack, needle) {
		return false
	}
	if len(c.Years) > 0 && !c.Years.HasAny(e.years) {
		return false
	}
	if len(c.Clients) > 0 && !c.Clients.Has(e.project.ClientKey()) {
		return false
	}
	if len(c.Companies) > 0 && !c.Companies.Has(e.project.Company) {
		return false
	}
	if len(c.Categories) > 0 && !c.Categories.HasAny(e.categories) {
		return false
	}
	if len(c.Roles) > 0 && !c.Roles.HasAny(e.roles) {
		return false
	}
	if len(c.Tags) > 0 && !c.Tags.HasAny(e.project.Tags) {
		return false
	}
	return true
}

// Facets returns the facet values of the full dataset. Facets are not
// narrowed by the active criteria.
func (c *Catalog) Facets() types.Facets {
	return cloneFacets(c.facets)
}

// FacetsFor computes facets over a subset, for callers that want options to
// narrow as filters are applied.
func (c *Catalog) FacetsFor(projects []types.Project) types.Facets {
	now := c.now()
	entries := make([]entry, len(projects))
	for i, p := range projects {
		entries[i] = newEntry(p, now)
	}
	return computeFacets(entries, c.hierarchy)
}
