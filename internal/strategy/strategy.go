// Package strategy implements the per-model-family shaping triple
// {shape_request, parse_response, parse_stream_event} the router dispatches
// to once it has resolved a model id to a family. The OpenAI, Anthropic and
// Titan strategies are thin: they delegate wire shaping to the matching
// internal/dialect package and add only the family-specific concerns
// (defaults, event decoding) the dialect layer doesn't know about.
// PluggableStrategy has no dialect package and shapes its own minimal body.
package strategy

import (
	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
)

// Provider identifies which transport a Strategy's shaped request must be
// sent over.
type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderBedrock Provider = "bedrock"
)

// Strategy is the closed capability set C4 requires: shape a canonical
// request into a provider wire body, parse a provider response back to
// canonical, and parse one provider stream event into zero or more
// canonical chunks.
type Strategy interface {
	Provider() Provider
	ShapeRequest(req *canonical.Request) ([]byte, error)
	ParseResponse(body []byte, model string) (*canonical.Response, error)
	ParseStreamEvent(event []byte, id, model string) ([]canonical.Chunk, error)
}
