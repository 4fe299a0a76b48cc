package causal

import "errors"

// ConfigurationError reports an invalid construction-time setting, such as
// weights that do not sum to 1.0 or a non-positive window size. It is fatal
// at construction and never produced per-request.
type ConfigurationError struct {
	Setting string
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return "configuration " + e.Setting + ": " + e.Message
}

// IsConfigurationError checks whether an error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// CollaboratorError wraps a failure from an external collaborator (retrieval,
// reranking, embedding, explanation generation). It names which collaborator
// failed and is propagated without retry; retries belong to the orchestrator's
// callers.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

// Error implements the error interface.
func (e *CollaboratorError) Error() string {
	return e.Collaborator + " collaborator failed: " + e.Err.Error()
}

// Unwrap returns the underlying collaborator error.
func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// NewCollaboratorError wraps err with the name of the failing collaborator.
func NewCollaboratorError(collaborator string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Err: err}
}

// IsCollaboratorError checks whether an error is a CollaboratorError.
func IsCollaboratorError(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}
