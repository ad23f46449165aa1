// Package anthropic converts between the Bedrock Anthropic (Claude)
// messages dialect and the canonical model. The stop-reason mapping
// includes tool_use and content_filtered, which earlier versions of this
// mapping dropped.
package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
)

// DefaultMaxTokens is applied when the request omits max_tokens, since
// Anthropic requires the field.
const DefaultMaxTokens = 1024

const anthropicVersion = "bedrock-2023-05-31"

type wireContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type wireMessage struct {
	Role    string             `json:"role"`
	Content []wireContentBlock `json:"content"`
}

type wireTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type wireRequest struct {
	AnthropicVersion string        `json:"anthropic_version,omitempty"`
	Messages         []wireMessage `json:"messages"`
	System           string        `json:"system,omitempty"`
	MaxTokens        int           `json:"max_tokens"`
	Stream           bool          `json:"stream,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	StopSequences    []string      `json:"stop_sequences,omitempty"`
	Tools            []wireTool    `json:"tools,omitempty"`
}

func blocksToCanonical(blocks []wireContentBlock) (text string, cb []canonical.ContentBlock, calls []canonical.ToolCall) {
	mixed := false
	for _, b := range blocks {
		if b.Type != "text" {
			mixed = true
			break
		}
	}
	if !mixed {
		for _, b := range blocks {
			text += b.Text
		}
		return text, nil, nil
	}
	for _, b := range blocks {
		switch b.Type {
		case "text":
			cb = append(cb, canonical.ContentBlock{Type: canonical.ContentText, Text: b.Text})
		case "tool_use":
			calls = append(calls, canonical.ToolCall{ID: b.ID, Name: b.Name, ArgumentsJSON: string(b.Input)})
			cb = append(cb, canonical.ContentBlock{Type: canonical.ContentToolUse, ToolUseID: b.ID, ToolName: b.Name, ToolInput: b.Input})
		case "tool_result":
			cb = append(cb, canonical.ContentBlock{Type: canonical.ContentToolResult, ToolResultForID: b.ToolUseID, ToolResultText: b.Content})
		}
	}
	return "", cb, calls
}

// RequestToCanonical parses a Bedrock-Anthropic request body into the
// canonical model, promoting the top-level system field to a leading
// system Message.
func RequestToCanonical(body []byte) (*canonical.Request, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("anthropic: unmarshal request: %w", err)
	}
	req := &canonical.Request{
		Stream:        wr.Stream,
		Temperature:   wr.Temperature,
		TopP:          wr.TopP,
		StopSequences: wr.StopSequences,
	}
	if wr.MaxTokens > 0 {
		mt := wr.MaxTokens
		req.MaxTokens = &mt
	}
	if wr.System != "" {
		req.Messages = append(req.Messages, canonical.Message{Role: canonical.RoleSystem, Text: wr.System})
	}
	for _, m := range wr.Messages {
		text, blocks, calls := blocksToCanonical(m.Content)
		cm := canonical.Message{Role: canonical.Role(m.Role), Text: text, Blocks: blocks}
		if m.Role == "assistant" {
			cm.ToolCalls = calls
		}
		if len(blocks) == 1 && blocks[0].Type == canonical.ContentToolResult {
			cm.ToolCallID = blocks[0].ToolResultForID
			cm.Role = canonical.RoleTool
			cm.Text = blocks[0].ToolResultText
			cm.Blocks = nil
		}
		req.Messages = append(req.Messages, cm)
	}
	for _, t := range wr.Tools {
		req.Tools = append(req.Tools, canonical.ToolDef{Name: t.Name, Description: t.Description, Schema: t.InputSchema})
	}
	return req, nil
}

// RequestFromCanonical shapes a canonical request into the Bedrock-Anthropic
// wire body: system content is separated into the top-level field,
// max_tokens is defaulted when absent, and assistant tool calls / tool
// messages become tool_use / tool_result content blocks.
func RequestFromCanonical(req *canonical.Request) ([]byte, error) {
	wr := wireRequest{
		AnthropicVersion: anthropicVersion,
		Stream:           req.Stream,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		StopSequences:    req.StopSequences,
	}
	if req.MaxTokens != nil {
		wr.MaxTokens = *req.MaxTokens
	} else {
		wr.MaxTokens = DefaultMaxTokens
	}

	for _, m := range req.Messages {
		if m.Role == canonical.RoleSystem {
			if wr.System != "" {
				wr.System += "\n"
			}
			wr.System += m.ContentString()
			continue
		}
		wm := wireMessage{Role: string(m.Role)}
		if m.Role == canonical.RoleTool {
			wm.Role = "user"
			wm.Content = []wireContentBlock{{Type: "tool_result", ToolUseID: m.ToolCallID, Content: m.Text}}
			wr.Messages = append(wr.Messages, wm)
			continue
		}
		if len(m.ToolCalls) > 0 {
			if m.Text != "" {
				wm.Content = append(wm.Content, wireContentBlock{Type: "text", Text: m.Text})
			}
			for _, tc := range m.ToolCalls {
				wm.Content = append(wm.Content, wireContentBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: json.RawMessage(tc.ArgumentsJSON)})
			}
			wr.Messages = append(wr.Messages, wm)
			continue
		}
		if m.Blocks != nil {
			for _, b := range m.Blocks {
				if b.Type == canonical.ContentText {
					wm.Content = append(wm.Content, wireContentBlock{Type: "text", Text: b.Text})
				}
			}
		} else {
			wm.Content = []wireContentBlock{{Type: "text", Text: m.Text}}
		}
		wr.Messages = append(wr.Messages, wm)
	}

	for _, t := range req.Tools {
		wr.Tools = append(wr.Tools, wireTool{Name: t.Name, Description: t.Description, InputSchema: t.Schema})
	}

	return json.Marshal(wr)
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type wireResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Model      string             `json:"model"`
	Content    []wireContentBlock `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      wireUsage          `json:"usage"`
}

// MapStopReason implements the corrected Anthropic finish-reason mapping:
// end_turn->stop, max_tokens->length, tool_use->tool_calls,
// stop_sequence->stop, content_filtered->content_filter.
func MapStopReason(reason string) canonical.FinishReason {
	switch reason {
	case "end_turn":
		return canonical.FinishStop
	case "max_tokens":
		return canonical.FinishLength
	case "tool_use":
		return canonical.FinishToolCalls
	case "stop_sequence":
		return canonical.FinishStop
	case "content_filtered":
		return canonical.FinishContentFilter
	default:
		return canonical.FinishError
	}
}

func unmapStopReason(fr canonical.FinishReason) string {
	switch fr {
	case canonical.FinishStop:
		return "end_turn"
	case canonical.FinishLength:
		return "max_tokens"
	case canonical.FinishToolCalls:
		return "tool_use"
	case canonical.FinishContentFilter:
		return "content_filtered"
	default:
		return "end_turn"
	}
}

// ResponseToCanonical parses a Bedrock-Anthropic response into canonical.
func ResponseToCanonical(body []byte) (*canonical.Response, error) {
	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("anthropic: unmarshal response: %w", err)
	}
	text, blocks, calls := blocksToCanonical(wr.Content)
	msg := canonical.Message{Role: canonical.RoleAssistant, Text: text, Blocks: blocks, ToolCalls: calls}
	return &canonical.Response{
		ID:    wr.ID,
		Model: wr.Model,
		Choices: []canonical.Choice{{
			Index:        0,
			Message:      msg,
			FinishReason: MapStopReason(wr.StopReason),
		}},
		Usage: &canonical.Usage{
			PromptTokens:     wr.Usage.InputTokens,
			CompletionTokens: wr.Usage.OutputTokens,
			TotalTokens:      wr.Usage.InputTokens + wr.Usage.OutputTokens,
		},
	}, nil
}

// ResponseFromCanonical renders a canonical response in the Bedrock-
// Anthropic dialect, used when target_format=bedrock_claude.
func ResponseFromCanonical(resp *canonical.Response) ([]byte, error) {
	wr := wireResponse{
		ID:    resp.ID,
		Type:  "message",
		Role:  "assistant",
		Model: resp.Model,
	}
	if len(resp.Choices) > 0 {
		c := resp.Choices[0]
		wr.StopReason = unmapStopReason(c.FinishReason)
		if c.Message.Text != "" {
			wr.Content = append(wr.Content, wireContentBlock{Type: "text", Text: c.Message.Text})
		}
		for _, tc := range c.Message.ToolCalls {
			wr.Content = append(wr.Content, wireContentBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: json.RawMessage(tc.ArgumentsJSON)})
		}
	}
	if resp.Usage != nil {
		wr.Usage = wireUsage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens}
	}
	return json.Marshal(wr)
}

// streamEvent mirrors the subset of Anthropic SSE event shapes the adapter
// consumes: message_start, content_block_delta, message_delta, message_stop.
type streamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// StreamEventToCanonical converts one Anthropic event-stream payload into
// zero or more canonical chunks, tracking the id/model across the caller's
// held stream state so every chunk of one response shares a stable id.
func StreamEventToCanonical(event []byte, id, model string) ([]canonical.Chunk, error) {
	var ev streamEvent
	if err := json.Unmarshal(event, &ev); err != nil {
		return nil, fmt.Errorf("anthropic: unmarshal stream event: %w", err)
	}

	switch ev.Type {
	case "message_start":
		return []canonical.Chunk{{
			ID: id, Model: model,
			Choices: []canonical.ChunkChoice{{Index: 0, Delta: canonical.Delta{Role: canonical.RoleAssistant}}},
		}}, nil

	case "content_block_delta":
		switch ev.Delta.Type {
		case "text_delta":
			return []canonical.Chunk{{
				ID: id, Model: model,
				Choices: []canonical.ChunkChoice{{Index: ev.Index, Delta: canonical.Delta{Content: ev.Delta.Text}}},
			}}, nil
		case "input_json_delta":
			return []canonical.Chunk{{
				ID: id, Model: model,
				Choices: []canonical.ChunkChoice{{Index: ev.Index, Delta: canonical.Delta{
					ToolCalls: []canonical.ToolCall{{ArgumentsJSON: ev.Delta.PartialJSON}},
				}}},
			}}, nil
		}
		return nil, nil

	case "message_delta":
		fr := MapStopReason(ev.Delta.StopReason)
		return []canonical.Chunk{{
			ID: id, Model: model,
			Choices: []canonical.ChunkChoice{{Index: 0, Delta: canonical.Delta{}, FinishReason: &fr}},
			Usage:   &canonical.Usage{CompletionTokens: ev.Usage.OutputTokens},
		}}, nil

	default:
		// message_stop, content_block_start, content_block_stop, ping: no
		// canonical chunk carries new information.
		return nil, nil
	}
}

type wireStreamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index,omitempty"`
	Delta struct {
		Type       string `json:"type,omitempty"`
		Text       string `json:"text,omitempty"`
		StopReason string `json:"stop_reason,omitempty"`
	} `json:"delta"`
	Usage *struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
}

// ChunkFromCanonical renders one canonical chunk's first choice as a
// Bedrock-Anthropic SSE event, used when target_format=bedrock_claude with
// stream=true. A chunk that only carries role (stream start) becomes
// message_start; a chunk with a finish_reason becomes message_delta;
// anything else becomes a content_block_delta text_delta.
func ChunkFromCanonical(chunk *canonical.Chunk) ([]byte, error) {
	if len(chunk.Choices) == 0 {
		return json.Marshal(wireStreamEvent{Type: "ping"})
	}
	c := chunk.Choices[0]

	if c.FinishReason != nil {
		ev := wireStreamEvent{Type: "message_delta"}
		ev.Delta.StopReason = unmapStopReason(*c.FinishReason)
		if chunk.Usage != nil {
			ev.Usage = &struct {
				OutputTokens int `json:"output_tokens"`
			}{OutputTokens: chunk.Usage.CompletionTokens}
		}
		return json.Marshal(ev)
	}

	if c.Delta.Role != "" && c.Delta.Content == "" {
		return json.Marshal(wireStreamEvent{Type: "message_start"})
	}

	ev := wireStreamEvent{Type: "content_block_delta", Index: c.Index}
	ev.Delta.Type = "text_delta"
	ev.Delta.Text = c.Delta.Content
	return json.Marshal(ev)
}
