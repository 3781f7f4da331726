// Package portfolio loads, normalizes, and validates the project dataset and tag hierarchy.
package portfolio

import "fmt"

// LoadError represents an error during file I/O or decoding
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("load error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("load error: %s", e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Severity grades a dataset issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single finding from ValidateDataset.
type Issue struct {
	Severity Severity `json:"severity"`
	Index    int      `json:"index"`
	Record   string   `json:"record"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Field != "" {
		return fmt.Sprintf("%s: %s %s: %s", i.Severity, i.Record, i.Field, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Record, i.Message)
}
