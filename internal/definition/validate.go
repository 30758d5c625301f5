package definition

import (
	"fmt"
	"strings"
)

// Violation is one failed validation rule.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError reports every violated rule of a definition. Generation
// must not proceed when it is returned.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return fmt.Sprintf("definition invalid (%d violations): %s", len(e.Violations), strings.Join(parts, "; "))
}

// Report is the outcome of validating one raw definition.
type Report struct {
	Violations []Violation `json:"violations"`
	Rewrites   []Rewrite   `json:"rewrites"`
	Notices    []string    `json:"notices"`
}

// Valid reports whether no rule was violated.
func (r *Report) Valid() bool {
	return len(r.Violations) == 0
}

// Err returns a *ValidationError when the report has violations.
func (r *Report) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Violations: append([]Violation{}, r.Violations...)}
}

// Validate applies alias rewrites and checks required fields without
// building a definition.
func Validate(raw map[string]any) *Report {
	_, report := Load(raw)
	return report
}

// check collects every violation in canonical field order.
func check(m map[string]any) []Violation {
	var out []Violation
	for _, field := range RequiredFields {
		v, present := m[field]
		if field == FieldSteps {
			if vi, bad := checkSteps(v, present); bad {
				out = append(out, vi)
			}
			continue
		}
		switch {
		case !present || v == nil:
			out = append(out, Violation{Field: field, Rule: "required", Message: field + " is required"})
		case !isScalar(v):
			out = append(out, Violation{Field: field, Rule: "type", Message: fmt.Sprintf("%s must be text or a number, got %s", field, describe(v))})
		case blank(stringify(v)):
			out = append(out, Violation{Field: field, Rule: "required", Message: field + " must not be empty"})
		}
	}
	return out
}

func checkSteps(v any, present bool) (Violation, bool) {
	if !present || v == nil {
		return Violation{Field: FieldSteps, Rule: "required", Message: "steps is required"}, true
	}
	switch v.(type) {
	case map[string]any, map[any]any:
		return Violation{Field: FieldSteps, Rule: "type", Message: "steps must be a list, got mapping"}, true
	}
	for _, s := range normalizeSequence(v) {
		if !blank(s) {
			return Violation{}, false
		}
	}
	return Violation{Field: FieldSteps, Rule: "nonEmpty", Message: "steps must contain at least one entry"}, true
}
