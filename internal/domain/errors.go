package domain

import "fmt"

// ValidationError reports malformed input detected before any network
// activity. It is fatal to the run: there is nothing to screen against.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}
