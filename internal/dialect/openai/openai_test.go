package openai

import (
	"encoding/json"
	"testing"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
)

func TestRequestRoundTripTextOnly(t *testing.T) {
	body := []byte(`{"model":"gpt-4o-mini","messages":[{"role":"system","content":"be terse"},{"role":"user","content":"hi"}],"max_tokens":128,"temperature":0.5}`)

	req, err := RequestToCanonical(body)
	if err != nil {
		t.Fatalf("RequestToCanonical: %v", err)
	}
	out, err := RequestFromCanonical(req)
	if err != nil {
		t.Fatalf("RequestFromCanonical: %v", err)
	}
	req2, err := RequestToCanonical(out)
	if err != nil {
		t.Fatalf("RequestToCanonical(round-trip): %v", err)
	}

	if len(req.Messages) != len(req2.Messages) {
		t.Fatalf("message count mismatch: %d vs %d", len(req.Messages), len(req2.Messages))
	}
	for i := range req.Messages {
		if req.Messages[i].Role != req2.Messages[i].Role {
			t.Errorf("role[%d]: %v != %v", i, req.Messages[i].Role, req2.Messages[i].Role)
		}
		if req.Messages[i].ContentString() != req2.Messages[i].ContentString() {
			t.Errorf("content[%d]: %q != %q", i, req.Messages[i].ContentString(), req2.Messages[i].ContentString())
		}
	}
	if *req.MaxTokens != *req2.MaxTokens {
		t.Errorf("max_tokens mismatch: %d != %d", *req.MaxTokens, *req2.MaxTokens)
	}
	if *req.Temperature != *req2.Temperature {
		t.Errorf("temperature mismatch: %v != %v", *req.Temperature, *req2.Temperature)
	}
}

func TestResponseFromCanonical(t *testing.T) {
	resp := &canonical.Response{
		ID: "resp_1", CreatedUnix: 100, Model: "gpt-4o-mini",
		Choices: []canonical.Choice{{
			Index:        0,
			Message:      canonical.Message{Role: canonical.RoleAssistant, Text: "hello there"},
			FinishReason: canonical.FinishStop,
		}},
		Usage: &canonical.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
	}
	data, err := ResponseFromCanonical(resp)
	if err != nil {
		t.Fatalf("ResponseFromCanonical: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["object"] != "chat.completion" {
		t.Errorf("expected object chat.completion, got %v", decoded["object"])
	}
}

func TestChunkRoundTrip(t *testing.T) {
	fr := canonical.FinishStop
	chunk := &canonical.Chunk{
		ID: "chunk_1", CreatedUnix: 5, Model: "gpt-4o-mini",
		Choices: []canonical.ChunkChoice{{
			Index:        0,
			Delta:        canonical.Delta{Content: "partial"},
			FinishReason: &fr,
		}},
	}
	data, err := ChunkFromCanonical(chunk)
	if err != nil {
		t.Fatalf("ChunkFromCanonical: %v", err)
	}
	back, err := StreamEventToCanonical(data)
	if err != nil {
		t.Fatalf("StreamEventToCanonical: %v", err)
	}
	if len(back) != 1 || back[0].Choices[0].Delta.Content != "partial" {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if back[0].Choices[0].FinishReason == nil || *back[0].Choices[0].FinishReason != canonical.FinishStop {
		t.Errorf("expected finish reason stop")
	}
}
