package providerclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
	"github.com/teabranch/amazon-chat-completions-server/internal/strategy"
)

// BedrockInvoker is the narrow slice of *bedrockruntime.Client the gateway
// depends on, so tests can substitute a fake without standing up AWS
// credentials or a real endpoint.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

// BedrockClient invokes models through the Bedrock Runtime InvokeModel and
// InvokeModelWithResponseStream APIs, shaping/parsing through whichever
// strategy the router resolved for the requested model family.
type BedrockClient struct {
	invoker BedrockInvoker
}

// NewBedrockClient wraps an already-configured *bedrockruntime.Client (or
// any narrower BedrockInvoker, for tests).
func NewBedrockClient(invoker BedrockInvoker) *BedrockClient {
	return &BedrockClient{invoker: invoker}
}

// NewBedrockClientFromConfig builds the concrete *bedrockruntime.Client
// from a resolved aws.Config, then wraps it.
func NewBedrockClientFromConfig(cfg aws.Config) *BedrockClient {
	return &BedrockClient{invoker: bedrockruntime.NewFromConfig(cfg)}
}

// Invoke performs a single non-streaming model invocation.
func (c *BedrockClient) Invoke(ctx context.Context, strat strategy.Strategy, req *canonical.Request) (*canonical.Response, error) {
	body, err := strat.ShapeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("providerclient: shape bedrock request: %w", err)
	}

	out, err := c.invoker.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(req.Model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, classifyBedrockError(err)
	}

	return strat.ParseResponse(out.Body, req.Model)
}

// Stream performs a streaming model invocation and fans its event stream
// out to a channel of canonical chunks.
func (c *BedrockClient) Stream(ctx context.Context, strat strategy.Strategy, req *canonical.Request) (<-chan StreamResult, error) {
	body, err := strat.ShapeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("providerclient: shape bedrock stream request: %w", err)
	}

	out, err := c.invoker.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(req.Model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, classifyBedrockError(err)
	}

	results := make(chan StreamResult, 16)
	streamID := "bedrock-" + req.Model

	go func() {
		defer close(results)
		stream := out.GetStream()
		defer stream.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-stream.Events():
				if !ok {
					if err := stream.Err(); err != nil {
						results <- StreamResult{Err: fmt.Errorf("providerclient: bedrock stream: %w", err)}
					}
					return
				}
				chunkEvent, ok := event.(*types.ResponseStreamMemberChunk)
				if !ok {
					continue
				}
				chunks, err := strat.ParseStreamEvent(chunkEvent.Value.Bytes, streamID, req.Model)
				if err != nil {
					results <- StreamResult{Err: fmt.Errorf("providerclient: parse bedrock stream event: %w", err)}
					return
				}
				for i := range chunks {
					select {
					case <-ctx.Done():
						return
					case results <- StreamResult{Chunk: &chunks[i]}:
					}
				}
			}
		}
	}()

	return results, nil
}

// classifyBedrockError maps SDK error codes onto UpstreamError so
// internal/retry can tell throttling and transient service errors apart
// from hard failures like validation or access-denied.
func classifyBedrockError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("providerclient: bedrock invoke: %w", err)
	}

	status := 500
	switch apiErr.ErrorCode() {
	case "ThrottlingException":
		status = 429
	case "ServiceUnavailableException":
		status = 503
	case "ModelTimeoutException":
		status = 504
	case "ValidationException":
		status = 400
	case "AccessDeniedException":
		status = 403
	case "ResourceNotFoundException":
		status = 404
	case "ModelNotReadyException":
		status = 503
	}

	slog.Error("bedrock upstream error", "code", apiErr.ErrorCode(), "status", status, "message", apiErr.ErrorMessage())
	return &UpstreamError{StatusCode: status, Message: apiErr.ErrorMessage(), Kind: apiErr.ErrorCode()}
}
