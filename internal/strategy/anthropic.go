package strategy

import (
	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
	"github.com/teabranch/amazon-chat-completions-server/internal/dialect/anthropic"
)

// AnthropicStrategy shapes requests for the Anthropic-on-Bedrock family
// (anthropic.*, <region>.anthropic.*). DefaultMaxTokens overrides the
// dialect package's own built-in default when non-zero, letting
// internal/config's DEFAULT_MAX_TOKENS_ANTHROPIC take effect.
type AnthropicStrategy struct {
	DefaultMaxTokens int
}

func (AnthropicStrategy) Provider() Provider { return ProviderBedrock }

func (s AnthropicStrategy) ShapeRequest(req *canonical.Request) ([]byte, error) {
	if req.MaxTokens == nil && s.DefaultMaxTokens > 0 {
		shaped := *req
		mt := s.DefaultMaxTokens
		shaped.MaxTokens = &mt
		return anthropic.RequestFromCanonical(&shaped)
	}
	return anthropic.RequestFromCanonical(req)
}

func (AnthropicStrategy) ParseResponse(body []byte, model string) (*canonical.Response, error) {
	resp, err := anthropic.ResponseToCanonical(body)
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = model
	}
	return resp, nil
}

func (AnthropicStrategy) ParseStreamEvent(event []byte, id, model string) ([]canonical.Chunk, error) {
	return anthropic.StreamEventToCanonical(event, id, model)
}
