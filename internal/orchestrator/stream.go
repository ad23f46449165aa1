package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
	"github.com/teabranch/amazon-chat-completions-server/internal/httputil"
	"github.com/teabranch/amazon-chat-completions-server/internal/knowledge"
	"github.com/teabranch/amazon-chat-completions-server/internal/providerclient"
	"github.com/teabranch/amazon-chat-completions-server/internal/retry"
)

var doneFrame = []byte("data: [DONE]\n\n")

type sseErrorFrame struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// HandleStream runs the streaming path: detect -> convert-in -> inject
// file context -> optional KB -> route -> provider.Stream -> per-chunk
// convert-out, returning a channel of already-framed SSE lines ending
// with the literal "data: [DONE]\n\n" frame. Setup errors (bad body,
// unknown target_format, unrouteable model) are returned directly, before
// any provider call; once streaming begins, errors are delivered as a
// final data frame carrying an error field, matching the non-retryable
// mid-stream contract.
func (o *Orchestrator) HandleStream(ctx context.Context, body []byte, targetFormatRaw string) (<-chan []byte, error) {
	target, err := ResolveTargetFormat(targetFormatRaw)
	if err != nil {
		return nil, err
	}

	req, _, err := decodeRequest(body)
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

	out := make(chan []byte, 16)

	if kb.mode == knowledge.ModeDirectRAG && kb.directMsg != nil {
		go o.streamDirectRAG(kb.directMsg, target, out)
		return out, nil
	}

	provider, strat, err := o.router.Route(req.Model)
	if err != nil {
		return nil, httputil.Wrap(httputil.KindUnsupportedModel, "model is not recognized by any routing family", err)
	}
	client, err := o.clientFor(provider)
	if err != nil {
		return nil, err
	}

	var upstream <-chan providerclient.StreamResult
	connectErr := retry.Do(ctx, o.retryCfg, string(provider), func(ctx context.Context) error {
		ch, err := client.Stream(ctx, strat, req)
		if err != nil {
			return err
		}
		upstream = ch
		return nil
	})
	if connectErr != nil {
		if o.health != nil {
			o.health.RecordFailure(string(provider))
		}
		return nil, classifyInvokeError(connectErr)
	}
	if o.health != nil {
		o.health.RecordSuccess(string(provider))
	}

	go o.pumpStream(ctx, upstream, target, string(provider), out)
	return out, nil
}

func (o *Orchestrator) streamDirectRAG(resp *canonical.Response, target TargetFormat, out chan []byte) {
	defer close(out)
	if len(resp.Choices) == 0 {
		out <- doneFrame
		return
	}
	c := resp.Choices[0]
	chunk := &canonical.Chunk{
		ID: resp.ID, CreatedUnix: resp.CreatedUnix, Model: resp.Model,
		Choices: []canonical.ChunkChoice{{Index: 0, Delta: canonical.Delta{Role: canonical.RoleAssistant, Content: c.Message.ContentString()}}},
	}
	if frame, err := frameChunk(chunk, target); err == nil {
		out <- frame
	}
	finish := c.FinishReason
	final := &canonical.Chunk{
		ID: resp.ID, CreatedUnix: resp.CreatedUnix, Model: resp.Model,
		Choices: []canonical.ChunkChoice{{Index: 0, FinishReason: &finish}},
	}
	if frame, err := frameChunk(final, target); err == nil {
		out <- frame
	}
	out <- doneFrame
}

func (o *Orchestrator) pumpStream(ctx context.Context, upstream <-chan providerclient.StreamResult, target TargetFormat, provider string, out chan []byte) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			slog.Info("streaming request cancelled", "provider", provider)
			return
		case result, ok := <-upstream:
			if !ok {
				out <- doneFrame
				return
			}
			if result.Err != nil {
				if !errors.Is(result.Err, context.Canceled) {
					out <- frameError(result.Err)
				}
				out <- doneFrame
				return
			}
			if o.metrics != nil {
				o.metrics.RecordStreamChunk(provider)
			}
			frame, err := frameChunk(result.Chunk, target)
			if err != nil {
				out <- frameError(err)
				out <- doneFrame
				return
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
		}
	}
}

func frameChunk(chunk *canonical.Chunk, target TargetFormat) ([]byte, error) {
	body, err := encodeChunk(chunk, target)
	if err != nil {
		return nil, err
	}
	return sseFrame(body), nil
}

func frameError(err error) []byte {
	frame := sseErrorFrame{}
	var typed *httputil.Error
	if errors.As(err, &typed) {
		frame.Error.Type = string(typed.Kind)
		frame.Error.Message = typed.Message
	} else {
		frame.Error.Type = string(httputil.KindUpstream)
		frame.Error.Message = "provider stream failed"
	}
	body, marshalErr := json.Marshal(frame)
	if marshalErr != nil {
		return doneFrame
	}
	return sseFrame(body)
}

func sseFrame(body []byte) []byte {
	out := make([]byte, 0, len(body)+8)
	out = append(out, []byte("data: ")...)
	out = append(out, body...)
	out = append(out, '\n', '\n')
	return out
}
