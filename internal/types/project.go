// Package types provides type definitions for structured data used throughout the portfolio engine.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"math"
	"strings"
)

// Project represents a single project record from the portfolio dataset.
// Records are read-only once loaded; derived views never mutate them.
type Project struct {
	Name        string `json:"name"`
	Client      string `json:"client,omitempty"`
	ClientSort  string `json:"client_sort,omitempty"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Category    string `json:"category,omitempty"`
	Tags        Tags   `json:"tags"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Year        string `json:"year,omitempty"`
	Description string `json:"description,omitempty"`
	Title       string `json:"title,omitempty"`
	Role        string `json:"role,omitempty"`
	ProjectRole string `json:"project_role,omitempty"`
	Image       string `json:"image,omitempty"`
	Coords      Coords `json:"coords,omitzero"`
}

// RoleTitle returns the job title held on the project, preferring the
// newer "title" key over the legacy "role" key.
func (p Project) RoleTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Role
}

// ClientKey returns the value used for client faceting and matching.
func (p Project) ClientKey() string {
	if p.ClientSort != "" {
		return p.ClientSort
	}
	return p.Client
}

// Tags is a list of free-form labels. It decodes null or a missing key as an
// empty list and a bare string as a single tag.
type Tags []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = compactTags(list)
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = compactTags([]string{single})
		return nil
	}

	// Mixed arrays keep their string members.
	var mixed []any
	if err := json.Unmarshal(data, &mixed); err == nil {
		out := make([]string, 0, len(mixed))
		for _, v := range mixed {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		*t = compactTags(out)
		return nil
	}

	*t = Tags{}
	return nil
}

func compactTags(in []string) Tags {
	out := make(Tags, 0, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// Coords is a [longitude, latitude] pair. Malformed values decode to an
// invalid pair instead of failing the whole dataset.
type Coords struct {
	Lon   float64
	Lat   float64
	valid bool
}

// NewCoords returns a valid coordinate pair.
func NewCoords(lon, lat float64) Coords {
	return Coords{Lon: lon, Lat: lat, valid: true}
}

// Valid reports whether the pair can be placed on a map.
func (c Coords) Valid() bool {
	if !c.valid {
		return false
	}
	if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) {
		return false
	}
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// IsZero lets encoding/json omit invalid coordinates.
func (c Coords) IsZero() bool {
	return !c.valid
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Coords) UnmarshalJSON(data []byte) error {
	*c = Coords{}
	var pair []any
	if err := json.Unmarshal(data, &pair); err != nil || len(pair) != 2 {
		return nil
	}
	lon, ok1 := pair[0].(float64)
	lat, ok2 := pair[1].(float64)
	if !ok1 || !ok2 {
		return nil
	}
	*c = NewCoords(lon, lat)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Coords) MarshalJSON() ([]byte, error) {
	if !c.valid {
		return []byte("null"), nil
	}
	return json.Marshal([2]float64{c.Lon, c.Lat})
}

// Marker is a map placement for a project with valid coordinates.
type Marker struct {
	Name    string  `json:"name"`
	Client  string  `json:"client,omitempty"`
	Company string  `json:"company,omitempty"`
	Lon     float64 `json:"lon"`
	Lat     float64 `json:"lat"`
	Color   string  `json:"color"`
}
