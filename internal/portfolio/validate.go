package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/portfolio-engine/internal/parsing"
	"github.com/jonathan/portfolio-engine/internal/schemas"
	schemafiles "github.com/jonathan/portfolio-engine/schemas"
)

// Report collects the findings of a dataset check.
type Report struct {
	Records  int     `json:"records"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// OK reports whether the dataset has no errors. Warnings do not fail a dataset.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

func (r *Report) add(issue Issue) {
	if issue.Severity == SeverityWarning {
		r.Warnings = append(r.Warnings, issue)
		return
	}
	r.Errors = append(r.Errors, issue)
}

// ValidateOptions controls the file-system checks of ValidateDataset.
type ValidateOptions struct {
	// AssetRoot is the directory image paths are resolved against. Image
	// existence is not checked when it is empty.
	AssetRoot string
}

// ValidateDataset checks raw project JSON against the bundled schema and then
// applies the checks the schema cannot express: image files must exist,
// images should be WebP, names should be unique, and dates should parse.
// A document that is not JSON at all yields a single error.
func ValidateDataset(content []byte, opts ValidateOptions) *Report {
	report := &Report{Errors: []Issue{}, Warnings: []Issue{}}

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		report.add(Issue{Severity: SeverityError, Index: -1, Record: "(dataset)", Message: fmt.Sprintf("could not parse JSON: %v", err)})
		return report
	}
	report.Records = len(raw)

	if err := schemas.Validate(schemafiles.ProjectDataset, content); err != nil {
		var validationErr *schemas.ValidationError
		if !errors.As(err, &validationErr) {
			report.add(Issue{Severity: SeverityError, Index: -1, Record: "(dataset)", Message: err.Error()})
			return report
		}
		// One issue per record field; nested schema errors fold into it.
		type key struct {
			index int
			field string
		}
		var order []key
		messages := map[key][]string{}
		for _, fe := range validationErr.Errors {
			index, field := splitField(fe.Field)
			k := key{index, field}
			if _, ok := messages[k]; !ok {
				order = append(order, k)
			}
			messages[k] = append(messages[k], fe.Message)
		}
		for _, k := range order {
			report.add(Issue{
				Severity: SeverityError,
				Index:    k.index,
				Record:   recordLabel(raw, k.index),
				Field:    k.field,
				Message:  strings.Join(messages[k], "; "),
			})
		}
	}

	projects, err := ParseProjects(content)
	if err != nil {
		report.add(Issue{Severity: SeverityError, Index: -1, Record: "(dataset)", Message: err.Error()})
		return report
	}

	seen := make(map[string]int, len(projects))
	for i := range projects {
		p := projects[i]
		label := recordLabel(raw, i)

		if p.Name != "" {
			if first, dup := seen[p.Name]; dup {
				report.add(Issue{Severity: SeverityWarning, Index: i, Record: label, Field: "name",
					Message: fmt.Sprintf("duplicate of item %d", first)})
			} else {
				seen[p.Name] = i
			}
		}

		if p.Image != "" {
			if opts.AssetRoot != "" {
				local := filepath.Join(opts.AssetRoot, filepath.FromSlash(strings.TrimLeft(p.Image, "/")))
				if _, err := os.Stat(local); err != nil {
					report.add(Issue{Severity: SeverityError, Index: i, Record: label, Field: "image",
						Message: fmt.Sprintf("image does not exist: %s", local)})
				}
			}
			if !strings.HasSuffix(strings.ToLower(p.Image), ".webp") {
				report.add(Issue{Severity: SeverityWarning, Index: i, Record: label, Field: "image",
					Message: fmt.Sprintf("image is not WebP: %s", p.Image)})
			}
		}

		if !p.Coords.IsZero() && !p.Coords.Valid() {
			report.add(Issue{Severity: SeverityWarning, Index: i, Record: label, Field: "coords",
				Message: "coordinates are out of range"})
		}

		for _, d := range [...]struct{ field, value string }{
			{"start_date", p.StartDate},
			{"end_date", p.EndDate},
		} {
			if d.value == "" || parsing.IsPresent(d.value) {
				continue
			}
			if _, ok := parsing.ParseDate(d.value); !ok {
				report.add(Issue{Severity: SeverityWarning, Index: i, Record: label, Field: d.field,
					Message: fmt.Sprintf("unrecognized date %q", d.value)})
			}
		}
		if _, ok := parsing.FirstYear(p.Year); p.Year != "" && !ok {
			report.add(Issue{Severity: SeverityWarning, Index: i, Record: label, Field: "year",
				Message: fmt.Sprintf("no year found in %q", p.Year)})
		}
	}

	return report
}

// ValidateDatasetFile reads path and runs ValidateDataset on it.
func ValidateDatasetFile(path string, opts ValidateOptions) (*Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("failed to read file %s", path), Cause: err}
	}
	return ValidateDataset(content, opts), nil
}

// splitField turns a schema field path such as "3.coords.0" into (3, "coords").
func splitField(path string) (int, string) {
	head, rest, _ := strings.Cut(path, ".")
	index, err := strconv.Atoi(head)
	if err != nil {
		return -1, path
	}
	field, _, _ := strings.Cut(rest, ".")
	return index, field
}

func recordLabel(raw []map[string]json.RawMessage, index int) string {
	if index < 0 || index >= len(raw) {
		return "(dataset)"
	}
	var name string
	if err := json.Unmarshal(raw[index]["name"], &name); err == nil && strings.TrimSpace(name) != "" {
		return strings.TrimSpace(name)
	}
	return fmt.Sprintf("Item %d", index)
}

// hierarchyRecord labels tag hierarchy issues in a Report.
const hierarchyRecord = "(tag hierarchy)"

// ValidateHierarchyFile checks a tag hierarchy file against the bundled
// schema. Loading is lenient about blank labels; validation is not. YAML files
// are checked after decoding, so YAML syntax errors surface as a single issue.
func ValidateHierarchyFile(path string) (*Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("failed to read file %s", path), Cause: err}
	}

	report := &Report{Errors: []Issue{}, Warnings: []Issue{}}
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		var doc any
		if err := yaml.Unmarshal(content, &doc); err != nil {
			report.add(Issue{Severity: SeverityError, Index: -1, Record: hierarchyRecord, Message: fmt.Sprintf("could not parse YAML: %v", err)})
			return report, nil
		}
		if content, err = json.Marshal(doc); err != nil {
			report.add(Issue{Severity: SeverityError, Index: -1, Record: hierarchyRecord, Message: err.Error()})
			return report, nil
		}
	}

	var nodes []json.RawMessage
	if err := json.Unmarshal(content, &nodes); err == nil {
		report.Records = len(nodes)
	}

	if err := schemas.Validate(schemafiles.TagHierarchy, content); err != nil {
		var validationErr *schemas.ValidationError
		if !errors.As(err, &validationErr) {
			report.add(Issue{Severity: SeverityError, Index: -1, Record: hierarchyRecord, Message: err.Error()})
			return report, nil
		}
		for _, fe := range validationErr.Errors {
			index, _ := splitField(fe.Field)
			report.add(Issue{Severity: SeverityError, Index: index, Record: hierarchyRecord, Field: fe.Field, Message: fe.Message})
		}
	}
	return report, nil
}

// Merge appends other's findings to r. Record counts are not combined.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}
