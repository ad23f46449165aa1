// Package router resolves a model identifier to a (Provider, Strategy)
// pair via a pure, memoized longest-prefix function: no config table, no
// side effects, same input always yields the same output.
package router

import (
	"fmt"
	"strings"
	"sync"

	"github.com/teabranch/amazon-chat-completions-server/internal/strategy"
)

// ErrUnsupportedModel is returned when no registered prefix matches.
type ErrUnsupportedModel struct {
	Model string
}

func (e *ErrUnsupportedModel) Error() string {
	return fmt.Sprintf("router: unsupported model %q", e.Model)
}

// route pairs a family's provider with its strategy.
type route struct {
	provider strategy.Provider
	strat    strategy.Strategy
}

// entry is one row of the prefix table: the longest match wins.
type entry struct {
	prefix string
	route  route
}

// regionPrefixes strip a leading regional qualifier (us., eu.) before
// family matching. Any ap-*. token (ap-southeast-1., ap-northeast-2.,
// ...) is handled separately by stripRegion since the region code itself
// is open-ended.
var regionPrefixes = []string{"us.", "eu."}

// Router is a pure function of model id to (Provider, Strategy), backed by
// a read-mostly memoization cache. It has no other state.
type Router struct {
	table []entry

	mu    sync.RWMutex
	cache map[string]route
}

// MaxTokensDefaults carries the per-family default max_tokens values
// applied when an inbound request omits max_tokens. A zero field leaves
// that family's own built-in default (the strategy's hardcoded fallback)
// in effect.
type MaxTokensDefaults struct {
	Anthropic int
	Titan     int
	Pluggable int
}

// New builds a Router with the family table fixed at construction. The
// table itself never changes after New returns; extending to a new
// family means adding a row here, not mutating at runtime.
func New(maxTokens MaxTokensDefaults) *Router {
	return &Router{
		table: []entry{
			{"gpt-", route{strategy.ProviderOpenAI, strategy.OpenAIStrategy{}}},
			{"text-", route{strategy.ProviderOpenAI, strategy.OpenAIStrategy{}}},
			{"dall-e-", route{strategy.ProviderOpenAI, strategy.OpenAIStrategy{}}},
			{"anthropic.", route{strategy.ProviderBedrock, strategy.AnthropicStrategy{DefaultMaxTokens: maxTokens.Anthropic}}},
			{"amazon.titan-", route{strategy.ProviderBedrock, strategy.TitanStrategy{DefaultMaxTokens: maxTokens.Titan}}},
			{"ai21.", route{strategy.ProviderBedrock, strategy.PluggableStrategy{DefaultMaxTokens: maxTokens.Pluggable}}},
			{"cohere.", route{strategy.ProviderBedrock, strategy.PluggableStrategy{DefaultMaxTokens: maxTokens.Pluggable}}},
			{"meta.", route{strategy.ProviderBedrock, strategy.PluggableStrategy{DefaultMaxTokens: maxTokens.Pluggable}}},
			{"mistral.", route{strategy.ProviderBedrock, strategy.PluggableStrategy{DefaultMaxTokens: maxTokens.Pluggable}}},
		},
		cache: make(map[string]route),
	}
}

// Route resolves model to (Provider, Strategy). Results are memoized keyed
// by the exact, unstripped model id; the normalized id is what's matched
// against, but callers still pass the original id downstream to the
// provider, since Bedrock model ids carry their region as part of the id.
func (r *Router) Route(model string) (strategy.Provider, strategy.Strategy, error) {
	r.mu.RLock()
	if rt, ok := r.cache[model]; ok {
		r.mu.RUnlock()
		return rt.provider, rt.strat, nil
	}
	r.mu.RUnlock()

	normalized := stripRegion(model)

	var best entry
	found := false
	for _, e := range r.table {
		if strings.HasPrefix(normalized, e.prefix) && len(e.prefix) > len(best.prefix) {
			best = e
			found = true
		}
	}
	if !found {
		return "", nil, &ErrUnsupportedModel{Model: model}
	}

	r.mu.Lock()
	r.cache[model] = best.route
	r.mu.Unlock()

	return best.route.provider, best.route.strat, nil
}

func stripRegion(model string) string {
	for _, p := range regionPrefixes {
		if strings.HasPrefix(model, p) {
			return strings.TrimPrefix(model, p)
		}
	}
	if strings.HasPrefix(model, "ap-") {
		if dot := strings.IndexByte(model, '.'); dot != -1 {
			return model[dot+1:]
		}
	}
	return model
}
