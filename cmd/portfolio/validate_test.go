package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/portfolio-engine/internal/portfolio"
)

func TestValidate_CleanDataset(t *testing.T) {
	out, err := runCLI(t, "validate", testProjects)
	require.NoError(t, err)
	assert.Contains(t, out, "DATASET VALIDATION")
	assert.Contains(t, out, "Status:   OK")
}

func TestValidate_UsesConfiguredProjects(t *testing.T) {
	out, err := runCLI(t, "--json", "validate", "-p", testProjects)
	require.NoError(t, err)

	report := decodeOutput[portfolio.Report](t, out)
	assert.Equal(t, 3, report.Records)
	assert.Empty(t, report.Errors)
}

func TestValidate_Errors(t *testing.T) {
	out, err := runCLI(t, "--json", "validate", "testdata/invalid_projects.json")
	require.ErrorIs(t, err, errInvalidDataset)

	report := decodeOutput[portfolio.Report](t, out)
	assert.Equal(t, 2, report.Records)
	assert.NotEmpty(t, report.Errors)

	fields := map[string]bool{}
	for _, issue := range report.Errors {
		fields[issue.Field] = true
	}
	assert.True(t, fields["image"], "missing image file is an error")
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := runCLI(t, "validate", "/nonexistent/projects.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestValidate_NoDataset(t *testing.T) {
	t.Setenv("PORTFOLIO_PROJECTS", "")
	_, err := runCLI(t, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no project dataset")
}

func TestValidate_IncludesHierarchy(t *testing.T) {
	hierarchy := filepath.Join(t.TempDir(), "tags.json")
	require.NoError(t, os.WriteFile(hierarchy, []byte(`[{"label": "Modeling", "children": [{"label": ""}]}]`), 0644))

	out, err := runCLI(t, "--json", "validate", "-p", testProjects, "--hierarchy", hierarchy)
	require.ErrorIs(t, err, errInvalidDataset)

	report := decodeOutput[portfolio.Report](t, out)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "(tag hierarchy)", report.Errors[0].Record)
}
