// Package httputil renders the gateway's typed error taxonomy as HTTP
// responses, collapsing what used to be one helper per error kind into a
// single Kind-driven dispatch.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Kind is the closed set of error classes the gateway can return.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindAuthentication     Kind = "authentication"
	KindAuthorization      Kind = "authorization"
	KindUnsupportedModel   Kind = "unsupported_model"
	KindFileNotFound       Kind = "file_not_found"
	KindRateLimited        Kind = "rate_limited"
	KindServiceUnavailable Kind = "service_unavailable"
	KindUpstream           Kind = "upstream"
	KindTimeout            Kind = "timeout"
	KindCancelled          Kind = "cancelled"
	KindInternal           Kind = "internal"
)

// StatusCode maps a Kind to the HTTP status it should produce. Upstream
// has no single status; callers construct an *Error with an explicit
// status for that kind via NewUpstreamError.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindUnsupportedModel, KindFileNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is the gateway's typed error: every error that can reach an HTTP
// boundary carries a Kind so the handler never has to guess a status code.
type Error struct {
	Kind       Kind
	Message    string
	Details    string
	StatusCode int // overrides Kind.StatusCode() when non-zero, used for Upstream
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a typed error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a typed kind to an underlying error, preserving it for
// errors.Is/As while presenting a stable, user-facing message.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// NewUpstreamError builds an Upstream-kind error carrying the provider's
// own HTTP status, mapped through to the client as-is.
func NewUpstreamError(status int, message string) *Error {
	return &Error{Kind: KindUpstream, Message: message, StatusCode: status}
}

func (e *Error) status() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	return e.Kind.StatusCode()
}

// apiError is the wire shape returned to clients: {error: {type, message, details?}}.
type apiError struct {
	Error apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// WriteTypedError renders err as an HTTP response. If err is (or wraps) an
// *Error, its Kind drives the status and type; otherwise it is treated as
// KindInternal and the underlying message is not leaked to the client.
func WriteTypedError(w http.ResponseWriter, requestID string, err error) {
	var typed *Error
	if errors.As(err, &typed) {
		writeError(w, requestID, typed.status(), string(typed.Kind), typed.Message, typed.Details)
		return
	}
	writeError(w, requestID, http.StatusInternalServerError, string(KindInternal), "internal error", "")
}

// WriteError renders an explicit kind/message pair without requiring an
// *Error value, used by handlers that classify inline (e.g. auth).
func WriteError(w http.ResponseWriter, requestID string, kind Kind, message string) {
	writeError(w, requestID, kind.StatusCode(), string(kind), message, "")
}

func writeError(w http.ResponseWriter, requestID string, status int, errType, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiError{
		Error: apiErrorBody{Type: errType, Message: message, Details: details},
	})
}
