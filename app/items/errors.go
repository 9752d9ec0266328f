package items

import "errors"

// Error categories surfaced to HTTP callers. Wrapped causes stay reachable
// with errors.Is/As; callers only branch on the category.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFoundOrForbidden = errors.New("not found or access denied")
	ErrUpstreamFailure     = errors.New("upstream failure")
	ErrPersistence         = errors.New("persistence error")
)

// inputError files a lower-level validation error under ErrInvalidInput
// without repeating the category in the message.
type inputError struct {
	err error
}

func invalidInput(err error) error {
	return &inputError{err: err}
}

func (e *inputError) Error() string {
	return e.err.Error()
}

func (e *inputError) Unwrap() []error {
	return []error{ErrInvalidInput, e.err}
}
