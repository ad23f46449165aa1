package titan

import (
	"strings"
	"testing"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
)

func TestRequestFromCanonicalFlattensWithSystemPreamble(t *testing.T) {
	req := &canonical.Request{
		Messages: []canonical.Message{
			{Role: canonical.RoleSystem, Text: "You are terse."},
			{Role: canonical.RoleUser, Text: "Hello"},
		},
	}
	data, err := RequestFromCanonical(req)
	if err != nil {
		t.Fatalf("RequestFromCanonical: %v", err)
	}
	back, err := RequestToCanonical(data)
	if err != nil {
		t.Fatalf("RequestToCanonical: %v", err)
	}
	prompt := back.Messages[0].Text
	if !strings.Contains(prompt, "You are terse.") {
		t.Errorf("expected system content flattened into preamble, got %q", prompt)
	}
	if !strings.Contains(prompt, "User: Hello") {
		t.Errorf("expected user turn prefixed, got %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Bot:") {
		t.Errorf("expected trailing Bot: cue, got %q", prompt)
	}
}

func TestMapCompletionReason(t *testing.T) {
	cases := map[string]canonical.FinishReason{
		"FINISH":           canonical.FinishStop,
		"LENGTH":           canonical.FinishLength,
		"CONTENT_FILTERED": canonical.FinishContentFilter,
		"SOMETHING_ELSE":   canonical.FinishError,
	}
	for reason, want := range cases {
		if got := MapCompletionReason(reason); got != want {
			t.Errorf("MapCompletionReason(%q) = %v, want %v", reason, got, want)
		}
	}
}

func TestResponseToCanonicalSingleAssistantMessage(t *testing.T) {
	body := []byte(`{"inputTextTokenCount":5,"results":[{"tokenCount":3,"outputText":"hi there","completionReason":"FINISH"}]}`)
	resp, err := ResponseToCanonical(body, "amazon.titan-text-express-v1")
	if err != nil {
		t.Fatalf("ResponseToCanonical: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Role != canonical.RoleAssistant {
		t.Fatalf("expected single assistant choice, got %+v", resp.Choices)
	}
	if resp.Choices[0].FinishReason != canonical.FinishStop {
		t.Errorf("expected FinishStop, got %v", resp.Choices[0].FinishReason)
	}
}
