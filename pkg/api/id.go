package api

import (
	"regexp"
	"strings"
)

type (
	// StepID is a unique identifier for a step within a flow
	StepID string

	// RunID is a unique identifier for one execution of a flow
	RunID string
)

// InvalidIDChars matches characters not permitted in step and run IDs. Valid
// characters are: letters, digits, underscore, dot, hyphen, plus, space
var InvalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-+ ]`)

// SanitizeID lowercases an ID, removes invalid characters, replaces spaces
// with hyphens, and trims leading and trailing hyphens
func SanitizeID[T ~string](id T) T {
	lower := strings.ToLower(string(id))
	sanitized := InvalidIDChars.ReplaceAllString(lower, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return T(strings.Trim(sanitized, "-"))
}
