package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, "req_123", KindValidation, "test message")

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	if rid := w.Header().Get("X-Request-ID"); rid != "req_123" {
		t.Errorf("expected X-Request-ID req_123, got %s", rid)
	}

	var resp apiError
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error.Message != "test message" {
		t.Errorf("expected message 'test message', got %q", resp.Error.Message)
	}
	if resp.Error.Type != string(KindValidation) {
		t.Errorf("expected type %q, got %q", KindValidation, resp.Error.Type)
	}
}

func TestWriteTypedErrorUsesKindStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteTypedError(w, "req_456", NewError(KindAuthentication, "Invalid key"))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
	var resp apiError
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error.Type != string(KindAuthentication) {
		t.Errorf("expected type %q, got %q", KindAuthentication, resp.Error.Type)
	}
}

func TestWriteTypedErrorUpstreamCarriesProviderStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteTypedError(w, "req_789", NewUpstreamError(http.StatusTooManyRequests, "rate limited by provider"))

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", w.Code)
	}
}

func TestWriteTypedErrorDefaultsToInternalForUntypedError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteTypedError(w, "req_999", fmt.Errorf("unexpected failure: %w", fmt.Errorf("boom")))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	var resp apiError
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error.Message == "boom" {
		t.Error("untyped error's underlying message should not leak verbatim")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("network reset")
	wrapped := Wrap(KindServiceUnavailable, "provider call failed", cause)
	if wrapped.Unwrap() != cause {
		t.Error("expected Unwrap to return the wrapped cause")
	}
}

func TestKindStatusCodeCoversTaxonomy(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:         http.StatusUnprocessableEntity,
		KindAuthentication:     http.StatusUnauthorized,
		KindAuthorization:      http.StatusForbidden,
		KindUnsupportedModel:   http.StatusNotFound,
		KindFileNotFound:       http.StatusNotFound,
		KindRateLimited:        http.StatusTooManyRequests,
		KindServiceUnavailable: http.StatusServiceUnavailable,
		KindTimeout:            http.StatusGatewayTimeout,
		KindInternal:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.StatusCode(); got != want {
			t.Errorf("Kind(%s).StatusCode() = %d, want %d", kind, got, want)
		}
	}
}
