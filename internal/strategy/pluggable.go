package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
)

// PluggableStrategy is the thin strategy for Bedrock families the gateway
// doesn't specialize (ai21.*, cohere.*, meta.*, mistral.*). It shapes the
// smallest common request shape those families accept and reads their
// smallest common response shape, without the per-family nuance the
// Anthropic and Titan strategies carry. DefaultMaxTokens overrides the
// built-in 512 fallback when non-zero, letting internal/config's
// DEFAULT_MAX_TOKENS_PLUGGABLE take effect.
type PluggableStrategy struct {
	DefaultMaxTokens int
}

func (PluggableStrategy) Provider() Provider { return ProviderBedrock }

type pluggableRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

func (s PluggableStrategy) ShapeRequest(req *canonical.Request) ([]byte, error) {
	var prompt string
	for _, m := range req.Messages {
		prompt += m.ContentString() + "\n"
	}
	maxTokens := s.defaultMaxTokens()
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	body, err := json.Marshal(pluggableRequest{
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	})
	if err != nil {
		return nil, fmt.Errorf("pluggable: marshal request: %w", err)
	}
	return body, nil
}

func (s PluggableStrategy) defaultMaxTokens() int {
	if s.DefaultMaxTokens > 0 {
		return s.DefaultMaxTokens
	}
	return 512
}

type pluggableResponse struct {
	Generation string `json:"generation"`
	StopReason string `json:"stop_reason"`
}

func (PluggableStrategy) ParseResponse(body []byte, model string) (*canonical.Response, error) {
	var pr pluggableResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("pluggable: unmarshal response: %w", err)
	}
	finish := canonical.FinishStop
	if pr.StopReason == "length" || pr.StopReason == "max_tokens" {
		finish = canonical.FinishLength
	}
	return &canonical.Response{
		Model: model,
		Choices: []canonical.Choice{{
			Index:        0,
			Message:      canonical.Message{Role: canonical.RoleAssistant, Text: pr.Generation},
			FinishReason: finish,
		}},
	}, nil
}

func (PluggableStrategy) ParseStreamEvent(event []byte, id, model string) ([]canonical.Chunk, error) {
	var pr pluggableResponse
	if err := json.Unmarshal(event, &pr); err != nil {
		return nil, fmt.Errorf("pluggable: unmarshal stream event: %w", err)
	}
	return []canonical.Chunk{{
		ID: id, Model: model,
		Choices: []canonical.ChunkChoice{{Index: 0, Delta: canonical.Delta{Content: pr.Generation}}},
	}}, nil
}
