package anthropic

import (
	"testing"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
)

func TestMapStopReasonCorrectedTable(t *testing.T) {
	cases := map[string]canonical.FinishReason{
		"end_turn":         canonical.FinishStop,
		"max_tokens":       canonical.FinishLength,
		"tool_use":         canonical.FinishToolCalls,
		"stop_sequence":    canonical.FinishStop,
		"content_filtered": canonical.FinishContentFilter,
	}
	for reason, want := range cases {
		if got := MapStopReason(reason); got != want {
			t.Errorf("MapStopReason(%q) = %v, want %v", reason, got, want)
		}
	}
}

func TestRequestFromCanonicalDefaultsMaxTokens(t *testing.T) {
	req := &canonical.Request{
		Messages: []canonical.Message{{Role: canonical.RoleUser, Text: "hi"}},
	}
	data, err := RequestFromCanonical(req)
	if err != nil {
		t.Fatalf("RequestFromCanonical: %v", err)
	}
	back, err := RequestToCanonical(data)
	if err != nil {
		t.Fatalf("RequestToCanonical: %v", err)
	}
	if back.MaxTokens == nil || *back.MaxTokens != DefaultMaxTokens {
		t.Fatalf("expected default max_tokens %d, got %+v", DefaultMaxTokens, back.MaxTokens)
	}
}

func TestSystemMessageSeparatedFromMessages(t *testing.T) {
	req := &canonical.Request{
		Messages: []canonical.Message{
			{Role: canonical.RoleSystem, Text: "be terse"},
			{Role: canonical.RoleUser, Text: "hi"},
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
	if len(back.Messages) != 2 {
		t.Fatalf("expected system message reconstituted as a leading message, got %d messages", len(back.Messages))
	}
	if back.Messages[0].Role != canonical.RoleSystem || back.Messages[0].Text != "be terse" {
		t.Errorf("expected system message preserved, got %+v", back.Messages[0])
	}
}

func TestStreamEventTextDelta(t *testing.T) {
	chunks, err := StreamEventToCanonical([]byte(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hi"}}`), "msg_1", "anthropic.claude-3-haiku")
	if err != nil {
		t.Fatalf("StreamEventToCanonical: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Choices[0].Delta.Content != "hi" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestStreamEventMessageStopIsSilent(t *testing.T) {
	chunks, err := StreamEventToCanonical([]byte(`{"type":"message_stop"}`), "msg_1", "anthropic.claude-3-haiku")
	if err != nil {
		t.Fatalf("StreamEventToCanonical: %v", err)
	}
	if chunks != nil {
		t.Errorf("expected no canonical chunk for message_stop, got %+v", chunks)
	}
}
