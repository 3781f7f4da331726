package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/portfolio-engine/internal/types"
)

// Dataset is the loaded project list plus the optional tag hierarchy.
type Dataset struct {
	Projects  []types.Project
	Hierarchy types.TagHierarchy
}

// LoadDataset loads the project file and, when tagsPath is non-empty, the tag hierarchy.
// Both are normalized before returning.
func LoadDataset(projectsPath, tagsPath string) (*Dataset, error) {
	projects, err := LoadProjects(projectsPath)
	if err != nil {
		return nil, err
	}

	var hierarchy types.TagHierarchy
	if tagsPath != "" {
		hierarchy, err = LoadTagHierarchy(tagsPath)
		if err != nil {
			return nil, err
		}
	}

	ds := &Dataset{Projects: projects, Hierarchy: hierarchy}
	Normalize(ds)
	return ds, nil
}

// LoadProjects loads a project list from a JSON file
func LoadProjects(path string) ([]types.Project, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			Path:    path,
			Message: fmt.Sprintf("failed to read file %s", path),
			Cause:   err,
		}
	}

	projects, err := ParseProjects(content)
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		loadErr.Path = path
	}
	return projects, err
}

// ParseProjects decodes a JSON array of project records.
func ParseProjects(content []byte) ([]types.Project, error) {
	var projects []types.Project
	if err := json.Unmarshal(content, &projects); err != nil {
		return nil, &LoadError{
			Message: "failed to unmarshal JSON",
			Cause:   err,
		}
	}
	if projects == nil {
		projects = []types.Project{}
	}
	return projects, nil
}

// LoadTagHierarchy loads a tag forest from JSON, or YAML when the file has a
// .yaml or .yml extension.
func LoadTagHierarchy(path string) (types.TagHierarchy, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			Path:    path,
			Message: fmt.Sprintf("failed to read file %s", path),
			Cause:   err,
		}
	}

	var hierarchy types.TagHierarchy
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &hierarchy); err != nil {
			return nil, &LoadError{Path: path, Message: "failed to unmarshal YAML", Cause: err}
		}
	default:
		if err := json.Unmarshal(content, &hierarchy); err != nil {
			return nil, &LoadError{Path: path, Message: "failed to unmarshal JSON", Cause: err}
		}
	}
	return hierarchy, nil
}
