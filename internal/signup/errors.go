// internal/signup/errors.go
package signup

import (
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/formpilot/internal/identity"
	"github.com/xkilldash9x/formpilot/internal/locator"
)

// ErrEmptyPool aliases the identity package's sentinel so callers of the
// runner need not import identity to check for it.
var ErrEmptyPool = identity.ErrEmptyPool

// ErrAlreadyClosed is returned by driver steps invoked after Close.
var ErrAlreadyClosed = errors.New("form driver already closed")

// ElementNotFoundError is returned when the next-control chain is exhausted.
type ElementNotFoundError = locator.ElementNotFoundError

// Kind separates failures that end an attempt quietly from those that are
// reported to the caller of RunOnce.
type Kind int

const (
	// Recovered failures are logged and mark the attempt unsuccessful.
	Recovered Kind = iota
	// Fatal failures are returned to the caller after cleanup.
	Fatal
)

func (k Kind) String() string {
	if k == Fatal {
		return "fatal"
	}
	return "recovered"
}

// StepError records which driver step failed and how the failure is treated.
type StepError struct {
	Step State
	Kind Kind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failure while reaching %s: %v", e.Kind, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// FieldNotVisibleError is returned when a form field did not become visible in time.
type FieldNotVisibleError struct {
	Field   string
	Locator locator.Candidate
	Timeout time.Duration
	Err     error
}

func (e *FieldNotVisibleError) Error() string {
	return fmt.Sprintf("field %q (%s) not visible within %s", e.Field, e.Locator, e.Timeout)
}

func (e *FieldNotVisibleError) Unwrap() error { return e.Err }

// SubmissionTimeoutError is returned when the field the submit keypress is
// sent to could not be found in time.
type SubmissionTimeoutError struct {
	Field   string
	Timeout time.Duration
	Err     error
}

func (e *SubmissionTimeoutError) Error() string {
	return fmt.Sprintf("form submission failed: field %q not visible within %s", e.Field, e.Timeout)
}

func (e *SubmissionTimeoutError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a Fatal StepError.
func IsFatal(err error) bool {
	var se *StepError
	return errors.As(err, &se) && se.Kind == Fatal
}
