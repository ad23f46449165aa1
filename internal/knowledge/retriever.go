// Package knowledge implements the optional retrieval-augmented generation
// path: scoring whether a request should consult a knowledge base at all,
// choosing between a direct retrieve-and-generate call and a
// retrieve-then-inject context-augmentation call, and rendering citations.
package knowledge

import (
	"context"
	"fmt"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
)

// Mode is the KB routing decision for one request.
type Mode string

const (
	ModeSkip                Mode = "skip"
	ModeDirectRAG           Mode = "direct_rag"
	ModeContextAugmentation Mode = "context_augmentation"
)

// Thresholds tunes the confidence bands Decide uses. Defaults are 0.7/0.4;
// both are constructor arguments, not constants, since spec.md §9 leaves
// them tunable.
type Thresholds struct {
	DirectRAG           float64
	ContextAugmentation float64
}

// DefaultThresholds returns the bands named in the routing spec: >=0.7
// direct_rag, 0.4-0.7 context_augmentation, <0.4 skip.
func DefaultThresholds() Thresholds {
	return Thresholds{DirectRAG: 0.7, ContextAugmentation: 0.4}
}

// Decide resolves the KB routing mode for a request. Without a
// knowledge_base_id the mode is skip. With one and auto_kb=false, KB use
// is unconditional: direct_rag. With one and auto_kb=true, the confidence
// score of the user's latest message picks the band: direct_rag,
// context_augmentation, or skip below th.ContextAugmentation.
func Decide(req *canonical.Request, th Thresholds) Mode {
	if req.KnowledgeBaseID == "" {
		return ModeSkip
	}
	if !req.AutoKB {
		return ModeDirectRAG
	}
	score := Score(lastUserText(req))
	switch {
	case score >= th.DirectRAG:
		return ModeDirectRAG
	case score >= th.ContextAugmentation:
		return ModeContextAugmentation
	default:
		return ModeSkip
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

// KBBackend is the narrow surface the orchestrator needs from a knowledge
// base, so tests never import the AWS SDK directly.
type KBBackend interface {
	Retrieve(ctx context.Context, kbID, query string, cfg *canonical.RetrievalConfig) ([]canonical.Citation, error)
	RetrieveAndGenerate(ctx context.Context, kbID, modelArn, query string) (text string, citations []canonical.Citation, err error)
}

// Retriever binds a KBBackend to the routing decision, producing either an
// augmentation preamble (to prepend to the request like a file-context
// block) or a direct generation result.
type Retriever struct {
	backend    KBBackend
	thresholds Thresholds
}

func NewRetriever(backend KBBackend, thresholds Thresholds) *Retriever {
	return &Retriever{backend: backend, thresholds: thresholds}
}

// AugmentationResult is what context_augmentation mode produces: a
// rendered context block plus the citations it was built from, so the
// orchestrator can still attach citations to the final response even
// though generation happens through the normal provider path.
type AugmentationResult struct {
	ContextBlock string
	Citations    []canonical.Citation
}

// Augment retrieves top-k snippets for query and renders them into a
// context block in the same preamble idiom internal/files uses, so a
// downstream LLM call sees retrieved knowledge the same way it would see
// injected file content.
func (r *Retriever) Augment(ctx context.Context, kbID, query string, cfg *canonical.RetrievalConfig) (*AugmentationResult, error) {
	citations, err := r.backend.Retrieve(ctx, kbID, query, cfg)
	if err != nil {
		return nil, fmt.Errorf("knowledge: retrieve from %s: %w", kbID, err)
	}
	return &AugmentationResult{ContextBlock: renderCitationsBlock(citations), Citations: citations}, nil
}

// GenerateDirect delegates the whole answer to the KB's own
// retrieve-and-generate call, returning assistant text and citations for
// the orchestrator to wrap into a canonical.Response without invoking any
// chat provider at all.
func (r *Retriever) GenerateDirect(ctx context.Context, kbID, modelArn, query string) (string, []canonical.Citation, error) {
	text, citations, err := r.backend.RetrieveAndGenerate(ctx, kbID, modelArn, query)
	if err != nil {
		return "", nil, fmt.Errorf("knowledge: retrieve-and-generate from %s: %w", kbID, err)
	}
	return text, citations, nil
}

func renderCitationsBlock(citations []canonical.Citation) string {
	if len(citations) == 0 {
		return ""
	}
	out := "=== RETRIEVED KNOWLEDGE ===\n"
	for _, c := range citations {
		out += fmt.Sprintf("\n[%s]\n%s\n", c.Source, c.Snippet)
	}
	out += "\n========================"
	return out
}
