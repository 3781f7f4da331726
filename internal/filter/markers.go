package filter

import "github.com/jonathan/portfolio-engine/internal/types"

// DefaultCompanyColor is used for unknown or empty company names.
const DefaultCompanyColor = "#64748b"

var companyColors = map[string]string{
	"Wade Trim":                                        "#43b02a",
	"KLH Engineers":                                    "#496980",
	"KLH Engineers, Inc.":                              "#496980",
	"KLH Engineers Inc.":                               "#496980",
	"Civil & Environmental Consultants":                "#fcb900",
	"Civil & Environmental Consultants, Inc.":          "#fcb900",
	"University of Pittsburgh":                         "#083b97",
	"Earth Processes & Environmental Flows Group":      "#083b97",
	"National Energy Technology Lab":                   "#3e3e3e",
	"National Energy Technology Laboratory (U.S. DOE)": "#3e3e3e",
	"Independent":                                      DefaultCompanyColor,
}

// CompanyColor returns the brand colour for a company.
func CompanyColor(company string) string {
	if c, ok := companyColors[company]; ok {
		return c
	}
	return DefaultCompanyColor
}

// Markers returns map placements for the projects that have valid
// coordinates. Projects without coordinates still appear in list results;
// only the map skips them.
func (c *Catalog) Markers(projects []types.Project) []types.Marker {
	out := make([]types.Marker, 0, len(projects))
	for _, p := range projects {
		if !p.Coords.Valid() {
			continue
		}
		out = append(out, types.Marker{
			Name:    p.Name,
			Client:  p.Client,
			Company: p.Company,
			Lon:     p.Coords.Lon,
			Lat:     p.Coords.Lat,
			Color:   CompanyColor(p.Company),
		})
	}
	return out
}
