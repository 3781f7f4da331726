package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/portfolio-engine/internal/achievements"
	"github.com/jonathan/portfolio-engine/internal/types"
)

func TestBadges(t *testing.T) {
	out, err := runCLI(t, "--json", "badges")
	require.NoError(t, err)

	badges := decodeOutput[[]types.Badge](t, out)
	assert.Equal(t, achievements.Catalog(), badges)
}

func TestBadges_Table(t *testing.T) {
	out, err := runCLI(t, "badges")
	require.NoError(t, err)
	for _, b := range achievements.Catalog() {
		assert.Contains(t, out, b.ID)
	}
}
