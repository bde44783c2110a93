package plan

import (
	"fmt"
	"strings"
)

// FieldError is a single structural problem found while validating a plan,
// reported with enough detail that an author can find and fix it without
// re-reading the whole document.
type FieldError struct {
	Field    string
	Expected string
	Actual   interface{}
	Message  string
}

// Error is raised for structural problems found in a parsed plan: invalid
// field values, duplicate or missing task ids, unknown dependencies, or a
// cyclic dependency graph. Malformed YAML and unknown fields are reported
// by Load as wrapped decode errors, not as *Error. It is always fatal
// before a run directory is created.
type Error struct {
	Errors []FieldError
}

func (e *Error) Add(field, expected string, actual interface{}, msg string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Expected: expected, Actual: actual, Message: msg})
}

func (e *Error) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *Error) Error() string {
	if !e.HasErrors() {
		return "no plan errors"
	}
	if len(e.Errors) == 1 {
		fe := e.Errors[0]
		return fmt.Sprintf("plan error in %s: %s", fe.Field, fe.Message)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "plan invalid, %d problem(s):\n", len(e.Errors))
	for i, fe := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s: %s (expected %s, got %v)\n", i+1, fe.Field, fe.Message, fe.Expected, fe.Actual)
	}
	return sb.String()
}
