package providerclient

import (
	"fmt"
	"time"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
)

// StreamResult is one item off a provider client's streaming channel:
// either a canonical chunk or a terminal error. A received Err always
// means the channel is about to close.
type StreamResult struct {
	Chunk *canonical.Chunk
	Err   error
}

// UpstreamError carries a provider's HTTP status and message upward so
// internal/retry and internal/httputil can classify and render it
// without re-parsing provider-specific error bodies.
type UpstreamError struct {
	StatusCode int
	Message    string
	Kind       string
	RetryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("upstream %d: %s (%s)", e.StatusCode, e.Message, e.Kind)
	}
	return fmt.Sprintf("upstream %d: %s", e.StatusCode, e.Message)
}
