package strategy

import (
	"encoding/json"
	"testing"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
)

func TestOpenAIStrategyShapeAndParse(t *testing.T) {
	s := OpenAIStrategy{}
	req := &canonical.Request{
		Model:    "gpt-4o-mini",
		Messages: []canonical.Message{{Role: canonical.RoleUser, Text: "hi"}},
	}
	body, err := s.ShapeRequest(req)
	if err != nil {
		t.Fatalf("ShapeRequest: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("shaped body not valid JSON: %v", err)
	}
	if decoded["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v, want gpt-4o-mini", decoded["model"])
	}

	respBody := []byte(`{"id":"x","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`)
	resp, err := s.ParseResponse(respBody, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Text != "hello" {
		t.Errorf("unexpected parsed response: %+v", resp)
	}
}

func TestAnthropicStrategyFallsBackToRequestedModel(t *testing.T) {
	s := AnthropicStrategy{}
	respBody := []byte(`{"id":"msg_1","role":"assistant","content":[{"type":"text","text":"hi"}],"stop_reason":"end_turn"}`)
	resp, err := s.ParseResponse(respBody, "anthropic.claude-3-haiku-20240307-v1:0")
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if resp.Model != "anthropic.claude-3-haiku-20240307-v1:0" {
		t.Errorf("model = %q, want fallback to requested model", resp.Model)
	}
}

func TestTitanStrategyShape(t *testing.T) {
	s := TitanStrategy{}
	req := &canonical.Request{
		Model:    "amazon.titan-text-express-v1",
		Messages: []canonical.Message{{Role: canonical.RoleUser, Text: "hi"}},
	}
	body, err := s.ShapeRequest(req)
	if err != nil {
		t.Fatalf("ShapeRequest: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("shaped body not valid JSON: %v", err)
	}
	if _, ok := decoded["inputText"]; !ok {
		t.Errorf("titan request missing inputText: %s", body)
	}
}

func TestPluggableStrategyDefaultsMaxTokens(t *testing.T) {
	s := PluggableStrategy{}
	req := &canonical.Request{
		Model:    "meta.llama3-70b-instruct-v1:0",
		Messages: []canonical.Message{{Role: canonical.RoleUser, Text: "hi"}},
	}
	body, err := s.ShapeRequest(req)
	if err != nil {
		t.Fatalf("ShapeRequest: %v", err)
	}
	var decoded pluggableRequest
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want default 512", decoded.MaxTokens)
	}
}

func TestPluggableStrategyParseResponseLengthFinish(t *testing.T) {
	s := PluggableStrategy{}
	resp, err := s.ParseResponse([]byte(`{"generation":"text","stop_reason":"length"}`), "meta.llama3-70b-instruct-v1:0")
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if resp.Choices[0].FinishReason != canonical.FinishLength {
		t.Errorf("FinishReason = %v, want length", resp.Choices[0].FinishReason)
	}
}
