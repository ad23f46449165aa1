package knowledge

import (
	"context"
	"testing"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
)

func TestDecideSkipsWithoutKnowledgeBaseID(t *testing.T) {
	req := &canonical.Request{Messages: []canonical.Message{{Role: canonical.RoleUser, Text: "what is our refund policy?"}}}
	if got := Decide(req, DefaultThresholds()); got != ModeSkip {
		t.Errorf("expected ModeSkip, got %s", got)
	}
}

func TestDecideExplicitKBWithoutAutoIsUnconditionalDirectRAG(t *testing.T) {
	req := &canonical.Request{KnowledgeBaseID: "kb-1", AutoKB: false}
	if got := Decide(req, DefaultThresholds()); got != ModeDirectRAG {
		t.Errorf("expected ModeDirectRAG, got %s", got)
	}
}

func TestDecideAutoKBScoresLowConfidenceAsSkip(t *testing.T) {
	req := &canonical.Request{
		KnowledgeBaseID: "kb-1",
		AutoKB:          true,
		Messages:        []canonical.Message{{Role: canonical.RoleUser, Text: "hi"}},
	}
	if got := Decide(req, DefaultThresholds()); got != ModeSkip {
		t.Errorf("expected ModeSkip for low-confidence query, got %s", got)
	}
}

func TestDecideAutoKBHighConfidenceQueryTriggersDirectRAG(t *testing.T) {
	req := &canonical.Request{
		KnowledgeBaseID: "kb-1",
		AutoKB:          true,
		Messages:        []canonical.Message{{Role: canonical.RoleUser, Text: "According to our documentation, what is our refund policy?"}},
	}
	if got := Decide(req, DefaultThresholds()); got != ModeDirectRAG {
		t.Errorf("expected ModeDirectRAG for high-confidence query, got %s", got)
	}
}

type fakeBackend struct {
	citations []canonical.Citation
	genText   string
}

func (f *fakeBackend) Retrieve(ctx context.Context, kbID, query string, cfg *canonical.RetrievalConfig) ([]canonical.Citation, error) {
	return f.citations, nil
}

func (f *fakeBackend) RetrieveAndGenerate(ctx context.Context, kbID, modelArn, query string) (string, []canonical.Citation, error) {
	return f.genText, f.citations, nil
}

func TestAugmentRendersCitationsBlock(t *testing.T) {
	backend := &fakeBackend{citations: []canonical.Citation{{Source: "s3://bucket/doc.txt", Snippet: "refunds within 30 days"}}}
	r := NewRetriever(backend, DefaultThresholds())

	result, err := r.Augment(context.Background(), "kb-1", "refund policy", nil)
	if err != nil {
		t.Fatalf("Augment failed: %v", err)
	}
	if result.ContextBlock == "" {
		t.Error("expected non-empty context block")
	}
	if len(result.Citations) != 1 {
		t.Errorf("expected 1 citation, got %d", len(result.Citations))
	}
}

func TestGenerateDirectReturnsTextAndCitations(t *testing.T) {
	backend := &fakeBackend{genText: "refunds are allowed within 30 days", citations: []canonical.Citation{{Source: "doc.txt"}}}
	r := NewRetriever(backend, DefaultThresholds())

	text, citations, err := r.GenerateDirect(context.Background(), "kb-1", "model-arn", "refund policy")
	if err != nil {
		t.Fatalf("GenerateDirect failed: %v", err)
	}
	if text != "refunds are allowed within 30 days" {
		t.Errorf("unexpected text: %s", text)
	}
	if len(citations) != 1 {
		t.Errorf("expected 1 citation, got %d", len(citations))
	}
}
