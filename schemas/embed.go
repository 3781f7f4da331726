// Package schemas embeds the JSON Schemas for the portfolio data files.
package schemas

import "embed"

// Schema file names.
const (
	ProjectDataset = "project_dataset.schema.json"
	TagHierarchy   = "tag_hierarchy.schema.json"
	BadgeSnapshot  = "badge_snapshot.schema.json"
)

// FS holds every schema file.
//
//go:embed *.schema.json
var FS embed.FS
