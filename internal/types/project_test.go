package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_JSONDecoding(t *testing.T) {
	raw := `{
		"name": "Outfall Study",
		"client": "City of Pittsburgh",
		"client_sort": "Pittsburgh, City of",
		"company": "Wade Trim",
		"category": "Modeling, GIS",
		"tags": ["SWMM", " GIS ", ""],
		"start_date": "2021-01-01",
		"end_date": "present",
		"title": "Professional Engineer",
		"project_role": "Task Lead",
		"coords": [-79.99, 40.44]
	}`

	var p Project
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, "Outfall Study", p.Name)
	assert.Equal(t, "Pittsburgh, City of", p.ClientKey())
	assert.Equal(t, Tags{"SWMM", "GIS"}, p.Tags)
	assert.Equal(t, "Professional Engineer", p.RoleTitle())
	assert.Equal(t, "Task Lead", p.ProjectRole)
	require.True(t, p.Coords.Valid())
	assert.InDelta(t, -79.99, p.Coords.Lon, 1e-9)
	assert.InDelta(t, 40.44, p.Coords.Lat, 1e-9)
}

func TestProject_MissingOptionalFields(t *testing.T) {
	var p Project
	require.NoError(t, json.Unmarshal([]byte(`{"name": "Bare"}`), &p))

	assert.Empty(t, p.Tags)
	assert.False(t, p.Coords.Valid())
	assert.Equal(t, "", p.RoleTitle())
	assert.Equal(t, "", p.ClientKey())
}

func TestProject_LegacyRoleFallback(t *testing.T) {
	p := Project{Role: "Project Engineer"}
	assert.Equal(t, "Project Engineer", p.RoleTitle())
}

func TestTags_TolerantDecoding(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Tags
	}{
		{"null", `null`, Tags{}},
		{"single string", `"Hydraulics"`, Tags{"Hydraulics"}},
		{"mixed array", `["GIS", 3, null, "H&H"]`, Tags{"GIS", "H&H"}},
		{"object", `{"a": 1}`, Tags{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tags Tags
			require.NoError(t, json.Unmarshal([]byte(tt.json), &tags))
			assert.Equal(t, tt.want, tags)
		})
	}
}

func TestCoords_MalformedValuesAreInvalid(t *testing.T) {
	inputs := []string{
		`[]`,
		`null`,
		`[1]`,
		`[1, 2, 3]`,
		`["-80", "40"]`,
		`"-80;40"`,
		`[200, 40]`,
		`[-80, 95]`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			var c Coords
			require.NoError(t, json.Unmarshal([]byte(in), &c))
			assert.False(t, c.Valid())
		})
	}
}

func TestCoords_MarshalOmitsInvalid(t *testing.T) {
	out, err := json.Marshal(Project{Name: "No map"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "coords")

	out, err = json.Marshal(Project{Name: "Map", Coords: NewCoords(-80, 40)})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"coords":[-80,40]`)
}

func TestTagHierarchy_Subtree(t *testing.T) {
	h := TagHierarchy{
		{Label: "Modeling", Children: []TagNode{
			{Label: "H&H", Children: []TagNode{{Label: "SWMM"}, {Label: "HEC-RAS"}}},
			{Label: "Optimization"},
		}},
		{Label: "GIS"},
	}

	assert.Equal(t, []string{"Modeling", "H&H", "SWMM", "HEC-RAS", "Optimization"}, h.Subtree("Modeling"))
	assert.Equal(t, []string{"H&H", "SWMM", "HEC-RAS"}, h.Subtree("H&H"))
	assert.Equal(t, []string{"GIS"}, h.Subtree("GIS"))
	assert.Equal(t, []string{"Unlisted"}, h.Subtree("Unlisted"))
	assert.Equal(t, []string{"Modeling", "H&H", "SWMM", "HEC-RAS", "Optimization", "GIS"}, h.Labels())
}
