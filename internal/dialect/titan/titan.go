// Package titan converts between the Bedrock Amazon Titan dialect and the
// canonical model. Titan has no role model at all: outbound conversion
// flattens the message list into a single prompt string, and inbound
// conversion (a response) yields a single assistant message.
package titan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
)

type wireTextGenerationConfig struct {
	MaxTokenCount int      `json:"maxTokenCount,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"topP,omitempty"`
	StopSequences []string `json:"stopSequences,omitempty"`
}

type wireRequest struct {
	InputText            string                    `json:"inputText"`
	TextGenerationConfig *wireTextGenerationConfig `json:"textGenerationConfig,omitempty"`
}

// RequestToCanonical parses a Titan request body into the canonical model.
// Since Titan carries no role structure, the whole inputText becomes a
// single user message; there is no lossless way to recover the original
// multi-turn structure once flattened, matching the dialect's one-way
// nature going in this direction.
func RequestToCanonical(body []byte) (*canonical.Request, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("titan: unmarshal request: %w", err)
	}
	req := &canonical.Request{
		Messages: []canonical.Message{{Role: canonical.RoleUser, Text: wr.InputText}},
	}
	if wr.TextGenerationConfig != nil {
		cfg := wr.TextGenerationConfig
		if cfg.MaxTokenCount > 0 {
			mt := cfg.MaxTokenCount
			req.MaxTokens = &mt
		}
		req.Temperature = cfg.Temperature
		req.TopP = cfg.TopP
		req.StopSequences = cfg.StopSequences
	}
	return req, nil
}

// RequestFromCanonical flattens a canonical request into Titan's
// single-prompt shape: messages are serialized with "User: " / "Bot:"
// prefixes and a trailing "Bot:" cue; leading system content is prepended
// as a preamble ahead of the turns.
func RequestFromCanonical(req *canonical.Request) ([]byte, error) {
	var sb strings.Builder
	for _, m := range req.Messages {
		switch m.Role {
		case canonical.RoleSystem:
			sb.WriteString(m.ContentString())
			sb.WriteString("\n\n")
		case canonical.RoleUser:
			sb.WriteString("User: ")
			sb.WriteString(m.ContentString())
			sb.WriteString("\n")
		case canonical.RoleAssistant:
			sb.WriteString("Bot: ")
			sb.WriteString(m.ContentString())
			sb.WriteString("\n")
		}
	}
	sb.WriteString("Bot:")

	wr := wireRequest{InputText: sb.String()}
	if req.MaxTokens != nil || req.Temperature != nil || req.TopP != nil || len(req.StopSequences) > 0 {
		cfg := &wireTextGenerationConfig{Temperature: req.Temperature, TopP: req.TopP, StopSequences: req.StopSequences}
		if req.MaxTokens != nil {
			cfg.MaxTokenCount = *req.MaxTokens
		}
		wr.TextGenerationConfig = cfg
	}
	return json.Marshal(wr)
}

type wireResult struct {
	TokenCount       int    `json:"tokenCount"`
	OutputText       string `json:"outputText"`
	CompletionReason string `json:"completionReason"`
}

type wireResponse struct {
	InputTextTokenCount int          `json:"inputTextTokenCount"`
	Results             []wireResult `json:"results"`
}

// MapCompletionReason maps Titan's completionReason to canonical finish
// reasons: FINISH->stop, LENGTH->length, CONTENT_FILTERED->content_filter,
// anything else->error.
func MapCompletionReason(reason string) canonical.FinishReason {
	switch reason {
	case "FINISH":
		return canonical.FinishStop
	case "LENGTH":
		return canonical.FinishLength
	case "CONTENT_FILTERED":
		return canonical.FinishContentFilter
	default:
		return canonical.FinishError
	}
}

func unmapCompletionReason(fr canonical.FinishReason) string {
	switch fr {
	case canonical.FinishStop:
		return "FINISH"
	case canonical.FinishLength:
		return "LENGTH"
	case canonical.FinishContentFilter:
		return "CONTENT_FILTERED"
	default:
		return "ERROR"
	}
}

// ResponseToCanonical parses a Titan response into the canonical model,
// yielding a single assistant message from outputText.
func ResponseToCanonical(body []byte, model string) (*canonical.Response, error) {
	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("titan: unmarshal response: %w", err)
	}
	resp := &canonical.Response{Model: model}
	promptTokens := wr.InputTextTokenCount
	var completionTokens int
	for i, r := range wr.Results {
		completionTokens += r.TokenCount
		resp.Choices = append(resp.Choices, canonical.Choice{
			Index:        i,
			Message:      canonical.Message{Role: canonical.RoleAssistant, Text: r.OutputText},
			FinishReason: MapCompletionReason(r.CompletionReason),
		})
	}
	resp.Usage = &canonical.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
	return resp, nil
}

// ResponseFromCanonical renders a canonical response in the Titan dialect,
// used when target_format=bedrock_titan.
func ResponseFromCanonical(resp *canonical.Response) ([]byte, error) {
	wr := wireResponse{}
	if resp.Usage != nil {
		wr.InputTextTokenCount = resp.Usage.PromptTokens
	}
	for _, c := range resp.Choices {
		wr.Results = append(wr.Results, wireResult{
			TokenCount:       len(c.Message.ContentString()),
			OutputText:       c.Message.ContentString(),
			CompletionReason: unmapCompletionReason(c.FinishReason),
		})
	}
	return json.Marshal(wr)
}

type streamResult struct {
	OutputText                string  `json:"outputText"`
	Index                     int     `json:"index"`
	TotalOutputTextTokenCount int     `json:"totalOutputTextTokenCount"`
	CompletionReason          *string `json:"completionReason"`
}

// StreamEventToCanonical parses one Titan event-stream JSON payload (already
// base64-decoded by the Bedrock client) into a canonical chunk.
func StreamEventToCanonical(event []byte, id, model string) ([]canonical.Chunk, error) {
	var r streamResult
	if err := json.Unmarshal(event, &r); err != nil {
		return nil, fmt.Errorf("titan: unmarshal stream event: %w", err)
	}
	cc := canonical.ChunkChoice{Index: r.Index, Delta: canonical.Delta{Content: r.OutputText}}
	if r.CompletionReason != nil {
		fr := MapCompletionReason(*r.CompletionReason)
		cc.FinishReason = &fr
	}
	return []canonical.Chunk{{ID: id, Model: model, Choices: []canonical.ChunkChoice{cc}}}, nil
}

// ChunkFromCanonical renders one canonical chunk's first choice in the
// Titan event-stream shape, used when target_format=bedrock_titan with
// stream=true. Titan has only one choice per event; additional choice
// indices in the canonical chunk are dropped.
func ChunkFromCanonical(chunk *canonical.Chunk) ([]byte, error) {
	r := streamResult{}
	if len(chunk.Choices) > 0 {
		c := chunk.Choices[0]
		r.Index = c.Index
		r.OutputText = c.Delta.Content
		if c.FinishReason != nil {
			reason := unmapCompletionReason(*c.FinishReason)
			r.CompletionReason = &reason
		}
	}
	if chunk.Usage != nil {
		r.TotalOutputTextTokenCount = chunk.Usage.CompletionTokens
	}
	return json.Marshal(r)
}
