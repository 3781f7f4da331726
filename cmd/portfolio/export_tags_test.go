package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportTags_Stdout(t *testing.T) {
	out, err := runCLI(t, "export-tags", "-p", testProjects, "--hierarchy", testHierarchy)
	require.NoError(t, err)

	assert.Contains(t, out, "Top Level Tag,Sub Tag\n")
	assert.Contains(t, out, "Modeling,SWMM\n")
	assert.Contains(t, out, "Software,AI\n")
	assert.Contains(t, out, "(Uncategorized),Flow Monitoring\n")
}

func TestExportTags_OutFile(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "nested", "tags.csv")
	out, err := runCLI(t, "export-tags", "-p", testProjects, "--hierarchy", testHierarchy, "--out", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "1 uncategorized")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Modeling,HEC-RAS\n")
}

func TestExportTags_WithoutHierarchy(t *testing.T) {
	t.Setenv("PORTFOLIO_TAG_HIERARCHY", "")
	out, err := runCLI(t, "export-tags", "-p", testProjects)
	require.NoError(t, err)
	assert.Contains(t, out, "(Uncategorized),SWMM\n")
}
