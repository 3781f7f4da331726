package filter

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/jonathan/portfolio-engine/internal/types"
)

// Dimension names one multi-select filter.
type Dimension string

// Filter dimensions. The string values double as HTTP query parameter names.
const (
	DimYears      Dimension = "year"
	DimClients    Dimension = "client"
	DimCompanies  Dimension = "company"
	DimCategories Dimension = "category"
	DimRoles      Dimension = "role"
	DimTags       Dimension = "tag"
)

// Dimensions lists every multi-select dimension in display order.
var Dimensions = []Dimension{DimYears, DimCategories, DimCompanies, DimClients, DimRoles, DimTags}

// UnknownDimensionError is returned when a dimension name is not recognized.
type UnknownDimensionError struct {
	Name string
}

func (e *UnknownDimensionError) Error() string {
	return fmt.Sprintf("unknown filter dimension: %q", e.Name)
}

// ParseDimension resolves a dimension name, accepting plural forms.
func ParseDimension(name string) (Dimension, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, "s")
	switch n {
	case "year":
		return DimYears, nil
	case "client":
		return DimClients, nil
	case "company", "companie":
		return DimCompanies, nil
	case "category", "categorie":
		return DimCategories, nil
	case "role":
		return DimRoles, nil
	case "tag":
		return DimTags, nil
	}
	return "", &UnknownDimensionError{Name: name}
}

// StringSet is an unordered set of labels. It encodes as a sorted JSON array.
type StringSet map[string]struct{}

// NewStringSet builds a set from values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// HasAny reports whether any of values is a member.
func (s StringSet) HasAny(values []string) bool {
	for _, v := range values {
		if s.Has(v) {
			return true
		}
	}
	return false
}

// Sorted returns the members in ascending order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON implements json.Marshaler.
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewStringSet(values...)
	return nil
}

// Criteria is the user-selected filter state. Values are OR-ed within a
// dimension and dimensions are AND-ed together. An empty dimension passes
// every record.
type Criteria struct {
	Text       string    `json:"text"`
	Years      StringSet `json:"years"`
	Clients    StringSet `json:"clients"`
	Companies  StringSet `json:"companies"`
	Categories StringSet `json:"categories"`
	Roles      StringSet `json:"roles"`
	Tags       StringSet `json:"tags"`
}

// NewCriteria returns empty criteria with every set allocated.
func NewCriteria() *Criteria {
	c := &Criteria{}
	c.Reset()
	return c
}

// Reset clears every dimension and the free text in one step.
func (c *Criteria) Reset() {
	c.Text = ""
	c.Years = StringSet{}
	c.Clients = StringSet{}
	c.Companies = StringSet{}
	c.Categories = StringSet{}
	c.Roles = StringSet{}
	c.Tags = StringSet{}
}

// IsEmpty reports whether no criterion is active.
func (c *Criteria) IsEmpty() bool {
	if c == nil {
		return true
	}
	return c.Text == "" &&
		len(c.Years) == 0 &&
		len(c.Clients) == 0 &&
		len(c.Companies) == 0 &&
		len(c.Categories) == 0 &&
		len(c.Roles) == 0 &&
		len(c.Tags) == 0
}

// Set returns the selection set for a dimension, allocating it if needed.
func (c *Criteria) Set(dim Dimension) (StringSet, error) {
	var target *StringSet
	switch dim {
	case DimYears:
		target = &c.Years
	case DimClients:
		target = &c.Clients
	case DimCompanies:
		target = &c.Companies
	case DimCategories:
		target = &c.Categories
	case DimRoles:
		target = &c.Roles
	case DimTags:
		target = &c.Tags
	default:
		return nil, &UnknownDimensionError{Name: string(dim)}
	}
	if *target == nil {
		*target = StringSet{}
	}
	return *target, nil
}

// Toggle adds value to the dimension if absent and removes it if present.
// Other dimensions are never touched.
func (c *Criteria) Toggle(dim Dimension, value string) error {
	set, err := c.Set(dim)
	if err != nil {
		return err
	}
	if set.Has(value) {
		delete(set, value)
	} else {
		set[value] = struct{}{}
	}
	return nil
}

// ToggleTag toggles a tag together with its whole subtree in the hierarchy.
// Selecting a parent selects every descendant; deselecting it removes the
// parent and every descendant, including ones selected individually.
func (c *Criteria) ToggleTag(hierarchy types.TagHierarchy, label string) {
	set, _ := c.Set(DimTags)
	subtree := hierarchy.Subtree(label)
	if set.Has(label) {
		for _, l := range subtree {
			delete(set, l)
		}
		return
	}
	for _, l := range subtree {
		set[l] = struct{}{}
	}
}

// Clone returns a deep copy.
func (c *Criteria) Clone() *Criteria {
	out := &Criteria{Text: c.Text}
	out.Years = cloneSet(c.Years)
	out.Clients = cloneSet(c.Clients)
	out.Companies = cloneSet(c.Companies)
	out.Categories = cloneSet(c.Categories)
	out.Roles = cloneSet(c.Roles)
	out.Tags = cloneSet(c.Tags)
	return out
}

func cloneSet(s StringSet) StringSet {
	out := make(StringSet, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// ParseCriteria builds criteria from query parameters: q for free text and a
// repeated parameter per dimension (year, client, company, category, role,
// tag). Tag values are expanded through the hierarchy so selecting a parent
// also selects its descendants.
func ParseCriteria(values url.Values, hierarchy types.TagHierarchy) *Criteria {
	c := NewCriteria()
	c.Text = values.Get("q")
	for _, dim := range Dimensions {
		for _, v := range values[string(dim)] {
			if v == "" {
				continue
			}
			if dim == DimTags {
				if !c.Tags.Has(v) {
					c.ToggleTag(hierarchy, v)
				}
				continue
			}
			set, _ := c.Set(dim)
			set[v] = struct{}{}
		}
	}
	return c
}
