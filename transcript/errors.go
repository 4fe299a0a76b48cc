package transcript

import "errors"

// InputError reports malformed caller-supplied input: bad turn ordering,
// unknown event references, empty queries. It is always surfaced to the
// caller, never coerced.
type InputError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewInputError creates a new InputError.
func NewInputError(field, message string) *InputError {
	return &InputError{Field: field, Message: message}
}

// IsInputError checks whether an error is an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
