// Package errors provides structured error handling with i18n support.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Authentication errors
	CodeAuthenticationFailed Code = "AUTHENTICATION_FAILED"

	// Translation errors
	CodeTranslationUnavailable Code = "TRANSLATION_UNAVAILABLE"
	CodeUnsupportedLanguage    Code = "UNSUPPORTED_LANGUAGE"

	// Session errors
	CodeUnknownSession Code = "UNKNOWN_SESSION"
	CodeSessionExists  Code = "SESSION_EXISTS"

	// Request errors
	CodeInvalidMessage    Code = "INVALID_MESSAGE"
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeResourceExhausted Code = "RESOURCE_EXHAUSTED"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeAuthenticationFailed:
		return http.StatusUnauthorized
	case CodeUnsupportedLanguage,
		CodeInvalidMessage,
		CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnknownSession:
		return http.StatusNotFound
	case CodeSessionExists:
		return http.StatusConflict
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	case CodeTranslationUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a client may retry the same request unchanged.
func (c Code) Retryable() bool {
	switch c {
	case CodeTranslationUnavailable, CodeResourceExhausted:
		return true
	default:
		return false
	}
}
