package shared

// ErrorKind classifies a domain error by how callers should react to it.
type ErrorKind string

const (
	// ErrorKindValidation marks malformed input; nothing was mutated.
	ErrorKindValidation ErrorKind = "VALIDATION"
	// ErrorKindState marks an operation that is not legal from the current status.
	ErrorKindState ErrorKind = "STATE"
	// ErrorKindInvariant marks an operation that would violate a financial guarantee.
	ErrorKindInvariant ErrorKind = "INVARIANT"
	// ErrorKindIntegrity marks a should-be-impossible failure that must halt the
	// automated flow and be surfaced for operator review instead of retried.
	ErrorKindIntegrity ErrorKind = "INTEGRITY"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// IsRecoverable returns true if the caller can act on the error (fix input or
// wait for a legal state). Integrity errors are never recoverable.
func (e *DomainError) IsRecoverable() bool {
	return e.Kind != ErrorKindIntegrity
}

// NewValidationError creates a validation-kind domain error
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: ErrorKindValidation, Code: code, Message: message}
}

// NewStateError creates a state-kind domain error
func NewStateError(code, message string) *DomainError {
	return &DomainError{Kind: ErrorKindState, Code: code, Message: message}
}

// NewInvariantError creates an invariant-kind domain error
func NewInvariantError(code, message string) *DomainError {
	return &DomainError{Kind: ErrorKindInvariant, Code: code, Message: message}
}

// NewIntegrityError creates an integrity-kind domain error
func NewIntegrityError(code, message string) *DomainError {
	return &DomainError{Kind: ErrorKindIntegrity, Code: code, Message: message}
}

// Common domain errors
var (
	ErrNotFound            = NewValidationError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewValidationError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewStateError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewStateError("INVALID_STATE", "Operation not allowed in current state")
)
