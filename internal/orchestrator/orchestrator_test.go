package orchestrator

import (
	"errors"
	"testing"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
	"github.com/teabranch/amazon-chat-completions-server/internal/httputil"
)

func TestValidateRequestRejectsEmptyMessages(t *testing.T) {
	err := validateRequest(&canonical.Request{Model: "gpt-4o-mini"})
	if err == nil {
		t.Fatal("expected error for empty messages")
	}
	var typed *httputil.Error
	if !errors.As(err, &typed) || typed.Kind != httputil.KindValidation {
		t.Errorf("expected KindValidation, got %v", err)
	}
}

func TestValidateRequestAcceptsNonEmptyMessages(t *testing.T) {
	req := &canonical.Request{
		Model:    "gpt-4o-mini",
		Messages: []canonical.Message{{Role: canonical.RoleUser, Text: "hi"}},
	}
	if err := validateRequest(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateFileIDsRejectsMalformedID(t *testing.T) {
	err := validateFileIDs([]string{"not-a-file-id"})
	if err == nil {
		t.Fatal("expected error for malformed file id")
	}
	var typed *httputil.Error
	if !errors.As(err, &typed) || typed.Kind != httputil.KindValidation {
		t.Errorf("expected KindValidation, got %v", err)
	}
}

func TestValidateFileIDsAcceptsWellFormedIDs(t *testing.T) {
	if err := validateFileIDs([]string{"file-abc123"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
