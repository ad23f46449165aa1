package strategy

import (
	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
	"github.com/teabranch/amazon-chat-completions-server/internal/dialect/titan"
)

// TitanStrategy shapes requests for the Titan-on-Bedrock family
// (amazon.titan-*, <region>.amazon.titan-*). Titan's own dialect package
// applies no max_tokens default on its own; DefaultMaxTokens is what lets
// internal/config's DEFAULT_MAX_TOKENS_TITAN take effect.
type TitanStrategy struct {
	DefaultMaxTokens int
}

func (TitanStrategy) Provider() Provider { return ProviderBedrock }

func (s TitanStrategy) ShapeRequest(req *canonical.Request) ([]byte, error) {
	if req.MaxTokens == nil && s.DefaultMaxTokens > 0 {
		shaped := *req
		mt := s.DefaultMaxTokens
		shaped.MaxTokens = &mt
		return titan.RequestFromCanonical(&shaped)
	}
	return titan.RequestFromCanonical(req)
}

func (TitanStrategy) ParseResponse(body []byte, model string) (*canonical.Response, error) {
	return titan.ResponseToCanonical(body, model)
}

func (TitanStrategy) ParseStreamEvent(event []byte, id, model string) ([]canonical.Chunk, error) {
	return titan.StreamEventToCanonical(event, id, model)
}
