package strategy

import (
	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
	"github.com/teabranch/amazon-chat-completions-server/internal/dialect/openai"
)

// OpenAIStrategy shapes requests for the OpenAI-chat family (gpt-*, text-*,
// dall-e-*). It is a thin pass-through onto the openai dialect package,
// since the OpenAI provider IS the OpenAI dialect.
type OpenAIStrategy struct{}

func (OpenAIStrategy) Provider() Provider { return ProviderOpenAI }

func (OpenAIStrategy) ShapeRequest(req *canonical.Request) ([]byte, error) {
	return openai.RequestFromCanonical(req)
}

func (OpenAIStrategy) ParseResponse(body []byte, model string) (*canonical.Response, error) {
	return openai.ResponseToCanonical(body)
}

func (OpenAIStrategy) ParseStreamEvent(event []byte, id, model string) ([]canonical.Chunk, error) {
	return openai.StreamEventToCanonical(event)
}
