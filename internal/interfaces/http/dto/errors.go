package dto

import (
	"net/http"

	"github.com/freteflow/backend/internal/domain/shared"
)

// Error codes returned by the HTTP layer itself. Domain errors carry their
// own codes and are mapped through GetHTTPStatus.
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// errorCodeHTTPStatus overrides the kind-level mapping for specific codes.
var errorCodeHTTPStatus = map[string]int{
	"NOT_FOUND":                 http.StatusNotFound,
	"ALREADY_EXISTS":            http.StatusConflict,
	"DUPLICATE_DOCUMENT_NUMBER": http.StatusConflict,
	"CONCURRENCY_CONFLICT":      http.StatusConflict,
}

// errorKindHTTPStatus maps an error kind to its default HTTP status.
// Validation failures are client errors, illegal transitions and invariant
// violations are conflicts with the current resource state, and integrity
// failures are server-side faults that must not look retryable.
var errorKindHTTPStatus = map[shared.ErrorKind]int{
	shared.ErrorKindValidation: http.StatusBadRequest,
	shared.ErrorKindState:      http.StatusConflict,
	shared.ErrorKindInvariant:  http.StatusUnprocessableEntity,
	shared.ErrorKindIntegrity:  http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for a domain error
func GetHTTPStatus(err *shared.DomainError) int {
	if status, ok := errorCodeHTTPStatus[err.Code]; ok {
		return status
	}
	if status, ok := errorKindHTTPStatus[err.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}
