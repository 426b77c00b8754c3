// Package errors provides standardized error handling for onboarding handlers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"

	ErrCodeHMACVerificationFailed ErrorCode = "HMAC_VERIFICATION_FAILED"
	ErrCodeCredentialResolution   ErrorCode = "CREDENTIAL_RESOLUTION_FAILED"

	ErrCodeStoreReferenceConflict ErrorCode = "STORE_REFERENCE_CONFLICT"

	ErrCodeAdyenCallFailed ErrorCode = "ADYEN_CALL_FAILED"

	ErrCodeRecordReadFailed   ErrorCode = "RECORD_READ_FAILED"
	ErrCodeRecordWriteFailed  ErrorCode = "RECORD_WRITE_FAILED"
	ErrCodePayloadWriteFailed ErrorCode = "PAYLOAD_WRITE_FAILED"
	ErrCodeEventPublishFailed ErrorCode = "EVENT_PUBLISH_FAILED"

	// An external side effect (entity or hosted link) exists but the
	// confirming record write failed. Automated retry could duplicate the
	// side effect, so this code carries operator-escalation wording.
	ErrCodePersistenceAfterSideEffect ErrorCode = "PERSISTENCE_AFTER_SIDE_EFFECT"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// HTTPStatus maps an error code to the response status surfaced by the
// service's entry points.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeMalformedPayload:
		return http.StatusBadRequest
	case ErrCodeHMACVerificationFailed:
		return http.StatusUnauthorized
	case ErrCodeStoreReferenceConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Is reports whether err carries the given error code.
func Is(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// NewValidationFailedError creates a non-retryable input validation error. The
// messages name each missing or malformed field.
func NewValidationFailedError(messages []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Submission validation failed",
		Details:   strings.Join(messages, "; "),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedPayloadError creates a non-retryable parse error.
func NewMalformedPayloadError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedPayload,
		Message:   "Request payload could not be parsed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewHMACVerificationFailedError creates a non-retryable authenticity error
// covering a whole notification batch. The sender is expected to redeliver
// the batch after correcting its credentials.
func NewHMACVerificationFailedError(itemErrors []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeHMACVerificationFailed,
		Message:   "Notification batch failed authenticity checks",
		Details:   strings.Join(itemErrors, "; "),
		Retryable: false,
		Metadata:  map[string]interface{}{"itemErrors": itemErrors},
		Timestamp: time.Now().UTC(),
	}
}

// NewCredentialResolutionError creates a retryable secret-store error; the
// calling handler cannot proceed without its credentials.
func NewCredentialResolutionError(secretName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCredentialResolution,
		Message:   "Failed to resolve credential from secret store",
		Details:   fmt.Sprintf("secret: %s, error: %s", secretName, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreReferenceConflictError creates a terminal conflict error. Store
// references are globally unique on the platform, so retrying with the same
// input can never succeed.
func NewStoreReferenceConflictError(reference string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreReferenceConflict,
		Message:   "Store reference already exists on the platform",
		Details:   fmt.Sprintf("reference: %s", reference),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdyenCallFailedError creates an external platform error. The whole outer
// trigger is the retry unit; no partial progress is persisted before the
// final write, so redelivery is safe.
func NewAdyenCallFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAdyenCallFailed,
		Message:   "Adyen API call failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordReadFailedError creates a retryable record store read error.
func NewRecordReadFailedError(merchantID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordReadFailed,
		Message:   "Failed to read merchant record",
		Details:   fmt.Sprintf("merchantId: %s, error: %s", merchantID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordWriteFailedError creates a retryable record store write error.
func NewRecordWriteFailedError(merchantID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordWriteFailed,
		Message:   "Failed to write merchant record",
		Details:   fmt.Sprintf("merchantId: %s, error: %s", merchantID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadWriteFailedError creates a retryable blob store error. The batch
// is rejected so the sender redelivers; nothing was published downstream.
func NewPayloadWriteFailedError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadWriteFailed,
		Message:   "Failed to persist raw notification payload",
		Details:   fmt.Sprintf("key: %s, error: %s", key, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEventPublishFailedError creates a retryable event bus error.
func NewEventPublishFailedError(category string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEventPublishFailed,
		Message:   "Failed to publish notification event",
		Details:   fmt.Sprintf("category: %s, error: %s", category, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceAfterSideEffectError creates the most severe error class: an
// external side effect exists (a hosted link was handed to a third party or
// an entity was created) but the confirming write failed.
func NewPersistenceAfterSideEffectError(merchantID string, err error) *StandardError {
	return &StandardError{
		Code:    ErrCodePersistenceAfterSideEffect,
		Message: "Onboarding link was generated but could not be recorded; escalate to an operator before retrying",
		Details: fmt.Sprintf("merchantId: %s, error: %s", merchantID, err.Error()),
		// Automated retry could duplicate external side effects.
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
