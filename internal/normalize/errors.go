package normalize

import "fmt"

// ValidationError is the first violated constraint found while normalizing a
// request. Field names the offending input (after alias resolution; a
// required-group failure joins the group's alternatives with " or ") and
// Constraint states the requirement that failed, in user-displayable form.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("input %q: %s", e.Field, e.Constraint)
}

// Errorf builds a ValidationError with a formatted constraint message.
func Errorf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Constraint: fmt.Sprintf(format, args...)}
}
