package knowledge

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
)

const defaultTopK = 5

// BedrockAgentRuntime is the narrow slice of *bedrockagentruntime.Client
// this package calls, so tests can substitute a fake without a live AWS
// endpoint.
type BedrockAgentRuntime interface {
	Retrieve(ctx context.Context, params *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// BedrockBackend implements KBBackend against Bedrock Agent Runtime.
type BedrockBackend struct {
	client BedrockAgentRuntime
}

func NewBedrockBackend(client BedrockAgentRuntime) *BedrockBackend {
	return &BedrockBackend{client: client}
}

func (b *BedrockBackend) Retrieve(ctx context.Context, kbID, query string, cfg *canonical.RetrievalConfig) ([]canonical.Citation, error) {
	topK := int32(defaultTopK)
	if cfg != nil && cfg.TopK > 0 {
		topK = int32(cfg.TopK)
	}

	out, err := b.client.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(kbID),
		RetrievalQuery:  &types.KnowledgeBaseQuery{Text: aws.String(query)},
		RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(topK),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: bedrock retrieve: %w", err)
	}

	citations := make([]canonical.Citation, 0, len(out.RetrievalResults))
	for _, r := range out.RetrievalResults {
		citations = append(citations, resultToCitation(r))
	}
	return citations, nil
}

func (b *BedrockBackend) RetrieveAndGenerate(ctx context.Context, kbID, modelArn, query string) (string, []canonical.Citation, error) {
	out, err := b.client.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &types.RetrieveAndGenerateInput{Text: aws.String(query)},
		RetrieveAndGenerateConfiguration: &types.RetrieveAndGenerateConfiguration{
			Type: types.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(kbID),
				ModelArn:        aws.String(modelArn),
			},
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("knowledge: bedrock retrieve-and-generate: %w", err)
	}

	text := ""
	if out.Output != nil && out.Output.Text != nil {
		text = *out.Output.Text
	}

	citations := make([]canonical.Citation, 0, len(out.Citations))
	for _, c := range out.Citations {
		for _, ref := range c.RetrievedReferences {
			citations = append(citations, referenceToCitation(ref))
		}
	}
	return text, citations, nil
}

func resultToCitation(r types.KnowledgeBaseRetrievalResult) canonical.Citation {
	c := canonical.Citation{}
	if r.Content != nil && r.Content.Text != nil {
		c.Snippet = *r.Content.Text
	}
	if r.Location != nil && r.Location.S3Location != nil && r.Location.S3Location.Uri != nil {
		c.Source = *r.Location.S3Location.Uri
	}
	return c
}

func referenceToCitation(ref types.RetrievedReference) canonical.Citation {
	c := canonical.Citation{}
	if ref.Content != nil && ref.Content.Text != nil {
		c.Snippet = *ref.Content.Text
	}
	if ref.Location != nil && ref.Location.S3Location != nil && ref.Location.S3Location.Uri != nil {
		c.Source = *ref.Location.S3Location.Uri
	}
	return c
}
