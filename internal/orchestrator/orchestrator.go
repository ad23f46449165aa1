// Package orchestrator binds detection, dialect conversion, file-context
// injection, knowledge-base retrieval, routing, and provider invocation
// into the single request lifecycle the HTTP layer drives: detect ->
// convert-in -> inject file context -> (optional KB) -> route -> invoke
// -> convert-out, for both the non-streaming and streaming paths.
package orchestrator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
	"github.com/teabranch/amazon-chat-completions-server/internal/detect"
	"github.com/teabranch/amazon-chat-completions-server/internal/dialect/anthropic"
	"github.com/teabranch/amazon-chat-completions-server/internal/dialect/openai"
	"github.com/teabranch/amazon-chat-completions-server/internal/dialect/titan"
	"github.com/teabranch/amazon-chat-completions-server/internal/files"
	"github.com/teabranch/amazon-chat-completions-server/internal/httputil"
	"github.com/teabranch/amazon-chat-completions-server/internal/knowledge"
	"github.com/teabranch/amazon-chat-completions-server/internal/providerclient"
	"github.com/teabranch/amazon-chat-completions-server/internal/retry"
	"github.com/teabranch/amazon-chat-completions-server/internal/router"
	"github.com/teabranch/amazon-chat-completions-server/internal/strategy"
	"github.com/teabranch/amazon-chat-completions-server/internal/telemetry"
)

// TargetFormat is one of the three response dialects a caller may request
// via the target_format query parameter. The zero value is invalid; use
// ResolveTargetFormat to apply the openai default.
type TargetFormat string

const (
	TargetOpenAI        TargetFormat = "openai"
	TargetBedrockClaude TargetFormat = "bedrock_claude"
	TargetBedrockTitan  TargetFormat = "bedrock_titan"
)

// ResolveTargetFormat validates a caller-supplied target_format value,
// defaulting to TargetOpenAI when raw is empty. Any other value is a
// validation error surfaced before any provider call is made.
func ResolveTargetFormat(raw string) (TargetFormat, error) {
	switch TargetFormat(raw) {
	case "":
		return TargetOpenAI, nil
	case TargetOpenAI, TargetBedrockClaude, TargetBedrockTitan:
		return TargetFormat(raw), nil
	default:
		return "", httputil.NewError(httputil.KindValidation, fmt.Sprintf("unsupported target_format %q", raw))
	}
}

// providerInvoker is the uniform surface both concrete provider clients
// expose; the orchestrator dispatches to one or the other purely by the
// Provider the router resolved, never branching on concrete type.
type providerInvoker interface {
	Invoke(ctx context.Context, strat strategy.Strategy, req *canonical.Request) (*canonical.Response, error)
	Stream(ctx context.Context, strat strategy.Strategy, req *canonical.Request) (<-chan providerclient.StreamResult, error)
}

// Orchestrator owns every component one request passes through, wired
// once at process startup.
type Orchestrator struct {
	router     *router.Router
	openai     providerInvoker
	bedrock    providerInvoker
	injector   *files.Injector
	retriever  *knowledge.Retriever
	thresholds knowledge.Thresholds
	retryCfg   retry.Config
	health     *providerclient.HealthTracker
	metrics    *telemetry.Metrics
}

// New builds an Orchestrator. injector and retriever may be nil: a nil
// injector means file_ids are rejected as validation errors, a nil
// retriever means knowledge_base_id is rejected the same way. Both are
// genuinely optional subsystems per their own packages.
func New(r *router.Router, openaiClient, bedrockClient providerInvoker, injector *files.Injector, retriever *knowledge.Retriever, thresholds knowledge.Thresholds, retryCfg retry.Config, health *providerclient.HealthTracker, metrics *telemetry.Metrics) *Orchestrator {
	return &Orchestrator{
		router:     r,
		openai:     openaiClient,
		bedrock:    bedrockClient,
		injector:   injector,
		retriever:  retriever,
		thresholds: thresholds,
		retryCfg:   retryCfg,
		health:     health,
		metrics:    metrics,
	}
}

// IsStreamingRequest peeks at the raw body's top-level "stream" field
// without fully decoding it, so the HTTP layer can pick Handle or
// HandleStream before paying for a full dialect conversion.
func IsStreamingRequest(body []byte) bool {
	var probe struct {
		Stream bool `json:"stream"`
	}
	_ = json.Unmarshal(body, &probe)
	return probe.Stream
}

// decodeRequest detects the inbound dialect and converts it to canonical,
// recording which dialect was detected for the caller.
func decodeRequest(body []byte) (*canonical.Request, detect.Dialect, error) {
	dialect := detect.DetectBytes(body)
	switch dialect {
	case detect.OpenAI:
		req, err := openai.RequestToCanonical(body)
		return req, dialect, err
	case detect.BedrockAnthropic:
		req, err := anthropic.RequestToCanonical(body)
		return req, dialect, err
	case detect.BedrockTitan:
		req, err := titan.RequestToCanonical(body)
		return req, dialect, err
	default:
		return nil, dialect, httputil.NewError(httputil.KindValidation, "unrecognized request dialect")
	}
}

// validateRequest enforces request-shape invariants that hold regardless
// of which dialect the request arrived in, checked immediately after
// decode and before file injection, knowledge-base routing, or model
// routing see the request.
func validateRequest(req *canonical.Request) error {
	if len(req.Messages) == 0 {
		return httputil.NewError(httputil.KindValidation, "messages must not be empty")
	}
	return nil
}

// encodeResponse renders a canonical response in the requested target
// dialect.
func encodeResponse(resp *canonical.Response, target TargetFormat) ([]byte, error) {
	switch target {
	case TargetBedrockClaude:
		return anthropic.ResponseFromCanonical(resp)
	case TargetBedrockTitan:
		return titan.ResponseFromCanonical(resp)
	default:
		return openai.ResponseFromCanonical(resp)
	}
}

// encodeChunk renders a canonical chunk in the requested target dialect,
// for one SSE data frame.
func encodeChunk(chunk *canonical.Chunk, target TargetFormat) ([]byte, error) {
	switch target {
	case TargetBedrockClaude:
		return anthropic.ChunkFromCanonical(chunk)
	case TargetBedrockTitan:
		return titan.ChunkFromCanonical(chunk)
	default:
		return openai.ChunkFromCanonical(chunk)
	}
}

// injectFileContext prepends the file-context preamble to the first user
// message in place, leaving req untouched when there are no file_ids.
func (o *Orchestrator) injectFileContext(ctx context.Context, req *canonical.Request) error {
	if len(req.FileIDs) == 0 {
		return nil
	}
	if o.injector == nil {
		return httputil.NewError(httputil.KindValidation, "file_ids given but no file store is configured")
	}
	if err := validateFileIDs(req.FileIDs); err != nil {
		return err
	}

	preamble, err := o.injector.BuildContext(ctx, req.FileIDs)
	if err != nil {
		return httputil.Wrap(httputil.KindFileNotFound, "no referenced file could be loaded", err)
	}
	if preamble == "" {
		return nil
	}

	for i := range req.Messages {
		if req.Messages[i].Role == canonical.RoleUser {
			prependToMessage(&req.Messages[i], preamble)
			return nil
		}
	}
	// No user message to attach to: synthesize one carrying only the
	// preamble, so the content still reaches the provider.
	req.Messages = append(req.Messages, canonical.Message{Role: canonical.RoleUser, Text: preamble})
	return nil
}

// validateFileIDs rejects any id that doesn't carry the "file-" prefix
// files.NewArtifactID always generates, before a single fetch is issued.
func validateFileIDs(ids []string) error {
	for _, id := range ids {
		if !strings.HasPrefix(id, "file-") {
			return httputil.NewError(httputil.KindValidation, fmt.Sprintf("file id %q is not a valid file id", id))
		}
	}
	return nil
}

func prependToMessage(m *canonical.Message, preamble string) {
	if m.Blocks == nil {
		m.Text = preamble + "\n\n" + m.Text
		return
	}
	m.Blocks = append([]canonical.ContentBlock{{Type: canonical.ContentText, Text: preamble + "\n\n"}}, m.Blocks...)
}

// kbOutcome records what the knowledge-base step did, so the response
// path knows whether to skip provider invocation entirely.
type kbOutcome struct {
	mode      knowledge.Mode
	directMsg *canonical.Response
	citations []canonical.Citation
}

// applyKnowledgeBase runs the KB routing decision and, for
// context_augmentation, mutates req in place the same way file injection
// does. For direct_rag it returns a fully-formed response and the caller
// must skip provider invocation.
func (o *Orchestrator) applyKnowledgeBase(ctx context.Context, req *canonical.Request) (*kbOutcome, error) {
	if req.KnowledgeBaseID == "" {
		return &kbOutcome{mode: knowledge.ModeSkip}, nil
	}
	if o.retriever == nil {
		return nil, httputil.NewError(httputil.KindValidation, "knowledge_base_id given but no knowledge base is configured")
	}

	mode := knowledge.Decide(req, o.thresholds)
	switch mode {
	case knowledge.ModeSkip:
		return &kbOutcome{mode: mode}, nil

	case knowledge.ModeDirectRAG:
		text, citations, err := o.retriever.GenerateDirect(ctx, req.KnowledgeBaseID, req.Model, lastUserText(req))
		if err != nil {
			return nil, httputil.Wrap(httputil.KindUpstream, "knowledge base retrieve-and-generate failed", err)
		}
		id, err := newID("kb")
		if err != nil {
			return nil, httputil.Wrap(httputil.KindInternal, "failed to allocate response id", err)
		}
		resp := &canonical.Response{
			ID:          id,
			CreatedUnix: time.Now().Unix(),
			Model:       req.Model,
			Choices: []canonical.Choice{{
				Index:        0,
				Message:      canonical.Message{Role: canonical.RoleAssistant, Text: text},
				FinishReason: canonical.FinishStop,
				Citations:    citations,
			}},
		}
		return &kbOutcome{mode: mode, directMsg: resp, citations: citations}, nil

	case knowledge.ModeContextAugmentation:
		result, err := o.retriever.Augment(ctx, req.KnowledgeBaseID, lastUserText(req), req.RetrievalConfig)
		if err != nil {
			return nil, httputil.Wrap(httputil.KindUpstream, "knowledge base retrieval failed", err)
		}
		if result.ContextBlock != "" {
			for i := range req.Messages {
				if req.Messages[i].Role == canonical.RoleUser {
					prependToMessage(&req.Messages[i], result.ContextBlock)
					break
				}
			}
		}
		return &kbOutcome{mode: mode, citations: result.Citations}, nil

	default:
		return &kbOutcome{mode: knowledge.ModeSkip}, nil
	}
}

func lastUserText(req *canonical.Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == canonical.RoleUser {
			return req.Messages[i].ContentString()
		}
	}
	return ""
}

// attachCitations copies KB citations onto a provider response's first
// choice, used when context_augmentation ran but the answer still came
// from the normal provider call.
func attachCitations(resp *canonical.Response, citations []canonical.Citation) {
	if len(citations) == 0 || len(resp.Choices) == 0 {
		return
	}
	resp.Choices[0].Citations = citations
}

func (o *Orchestrator) clientFor(provider strategy.Provider) (providerInvoker, error) {
	switch provider {
	case strategy.ProviderOpenAI:
		return o.openai, nil
	case strategy.ProviderBedrock:
		return o.bedrock, nil
	default:
		return nil, httputil.NewError(httputil.KindInternal, fmt.Sprintf("no client wired for provider %q", provider))
	}
}

func newID(prefix string) (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return prefix + "-" + hex.EncodeToString(buf), nil
}
