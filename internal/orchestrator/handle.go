package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
	"github.com/teabranch/amazon-chat-completions-server/internal/httputil"
	"github.com/teabranch/amazon-chat-completions-server/internal/knowledge"
	"github.com/teabranch/amazon-chat-completions-server/internal/retry"
	"github.com/teabranch/amazon-chat-completions-server/internal/telemetry"
)

// Handle runs the full non-streaming path: detect -> convert-in -> inject
// file context -> optional KB -> route -> invoke -> convert-out. The
// returned bytes are the response body in the requested target dialect.
func (o *Orchestrator) Handle(ctx context.Context, body []byte, targetFormatRaw string) ([]byte, error) {
	target, err := ResolveTargetFormat(targetFormatRaw)
	if err != nil {
		return nil, err
	}

	req, dialect, err := decodeRequest(body)
	if err != nil {
		return nil, httputil.Wrap(httputil.KindValidation, "could not parse request body", err)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if err := o.injectFileContext(ctx, req); err != nil {
		return nil, err
	}

	kb, err := o.applyKnowledgeBase(ctx, req)
	if err != nil {
		return nil, err
	}
	if kb.mode == knowledge.ModeDirectRAG && kb.directMsg != nil {
		if o.metrics != nil {
			o.metrics.RecordRequest(telemetry.RequestLabels{
				Dialect: string(dialect), Model: req.Model, Provider: "knowledge_base", Status: "success",
			})
		}
		return encodeResponse(kb.directMsg, target)
	}

	provider, strat, err := o.router.Route(req.Model)
	if err != nil {
		return nil, httputil.Wrap(httputil.KindUnsupportedModel, "model is not recognized by any routing family", err)
	}
	client, err := o.clientFor(provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var resp *canonical.Response
	invokeErr := retry.Do(ctx, o.retryCfg, string(provider), func(ctx context.Context) error {
		r, err := client.Invoke(ctx, strat, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	duration := time.Since(start)

	if o.health != nil {
		if invokeErr != nil {
			o.health.RecordFailure(string(provider))
		} else {
			o.health.RecordSuccess(string(provider))
		}
	}
	if invokeErr != nil {
		if o.metrics != nil {
			o.metrics.RecordRequest(telemetry.RequestLabels{
				Dialect: string(dialect), Model: req.Model, Provider: string(provider), Status: "error",
				DurationMs: float64(duration.Milliseconds()),
			})
		}
		return nil, classifyInvokeError(invokeErr)
	}

	attachCitations(resp, kb.citations)

	if o.metrics != nil {
		labels := telemetry.RequestLabels{
			Dialect: string(dialect), Model: req.Model, Provider: string(provider), Status: "success",
			DurationMs: float64(duration.Milliseconds()),
		}
		if resp.Usage != nil {
			labels.PromptTokens = resp.Usage.PromptTokens
			labels.CompletionTokens = resp.Usage.CompletionTokens
		}
		o.metrics.RecordRequest(labels)
	}

	return encodeResponse(resp, target)
}

// classifyInvokeError turns a retry-exhausted or terminal provider error
// into a typed httputil.Error, preserving cancellation and deadline
// classes so the HTTP layer returns the right status instead of a blanket
// upstream failure.
func classifyInvokeError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return httputil.Wrap(httputil.KindCancelled, "request was cancelled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return httputil.Wrap(httputil.KindTimeout, "provider call timed out", err)
	default:
		return httputil.Wrap(httputil.KindUpstream, "provider invocation failed", err)
	}
}
