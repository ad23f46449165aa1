// Package openai converts between the OpenAI chat-completions wire dialect
// and the canonical model. Since canonical closely mirrors OpenAI's shape,
// this adapter is close to passthrough.
package openai

import (
	"encoding/json"
	"fmt"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
)

type wireMessage struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	Name       string          `json:"name,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall  `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireToolDef struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

type wireRequest struct {
	Model       string          `json:"model"`
	Messages    []wireMessage   `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
	Tools       []wireToolDef   `json:"tools,omitempty"`
	ToolChoice  json.RawMessage `json:"tool_choice,omitempty"`
}

// RequestToCanonical parses an OpenAI-shaped request body into the
// canonical model.
func RequestToCanonical(body []byte) (*canonical.Request, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("openai: unmarshal request: %w", err)
	}

	req := &canonical.Request{
		Model:         wr.Model,
		Temperature:   wr.Temperature,
		TopP:          wr.TopP,
		MaxTokens:     wr.MaxTokens,
		StopSequences: wr.Stop,
		Stream:        wr.Stream,
	}

	for _, m := range wr.Messages {
		cm := canonical.Message{
			Role:       canonical.Role(m.Role),
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, canonical.ToolCall{
				ID: tc.ID, Name: tc.Function.Name, ArgumentsJSON: tc.Function.Arguments,
			})
		}
		if len(m.Content) > 0 {
			var text string
			if json.Unmarshal(m.Content, &text) == nil {
				cm.Text = text
			} else {
				var blocks []json.RawMessage
				if json.Unmarshal(m.Content, &blocks) == nil {
					cm.Blocks = parseContentBlocks(blocks)
				}
			}
		}
		req.Messages = append(req.Messages, cm)
	}

	for _, t := range wr.Tools {
		req.Tools = append(req.Tools, canonical.ToolDef{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Schema:      t.Function.Parameters,
		})
	}

	return req, nil
}

func parseContentBlocks(raw []json.RawMessage) []canonical.ContentBlock {
	var blocks []canonical.ContentBlock
	for _, r := range raw {
		var probe struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			ImageURL struct {
				URL string `json:"url"`
			} `json:"image_url"`
		}
		if json.Unmarshal(r, &probe) != nil {
			continue
		}
		switch probe.Type {
		case "text":
			blocks = append(blocks, canonical.ContentBlock{Type: canonical.ContentText, Text: probe.Text})
		case "image_url":
			blocks = append(blocks, canonical.ContentBlock{Type: canonical.ContentImage, URL: probe.ImageURL.URL})
		}
	}
	return blocks
}

// RequestFromCanonical shapes a canonical request into an OpenAI-format wire
// body, used both to build the provider request for the OpenAI-chat family
// and to echo a canonical request back in the OpenAI dialect.
func RequestFromCanonical(req *canonical.Request) ([]byte, error) {
	wr := wireRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stop:        req.StopSequences,
		Stream:      req.Stream,
	}
	for _, m := range req.Messages {
		wm := wireMessage{
			Role:       string(m.Role),
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		content, err := json.Marshal(m.ContentString())
		if err != nil {
			return nil, fmt.Errorf("openai: marshal content: %w", err)
		}
		wm.Content = content
		for _, tc := range m.ToolCalls {
			var wtc wireToolCall
			wtc.ID = tc.ID
			wtc.Type = "function"
			wtc.Function.Name = tc.Name
			wtc.Function.Arguments = tc.ArgumentsJSON
			wm.ToolCalls = append(wm.ToolCalls, wtc)
		}
		wr.Messages = append(wr.Messages, wm)
	}
	for _, t := range req.Tools {
		var wt wireToolDef
		wt.Type = "function"
		wt.Function.Name = t.Name
		wt.Function.Description = t.Description
		wt.Function.Parameters = t.Schema
		wr.Tools = append(wr.Tools, wt)
	}
	return json.Marshal(wr)
}

type wireChoice struct {
	Index        int         `json:"index"`
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   *wireUsage   `json:"usage,omitempty"`
}

// ResponseToCanonical parses an OpenAI-shaped response into the canonical
// model, used to interpret the OpenAI provider's own responses.
func ResponseToCanonical(body []byte) (*canonical.Response, error) {
	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("openai: unmarshal response: %w", err)
	}
	resp := &canonical.Response{
		ID:          wr.ID,
		CreatedUnix: wr.Created,
		Model:       wr.Model,
	}
	if wr.Usage != nil {
		resp.Usage = &canonical.Usage{
			PromptTokens:     wr.Usage.PromptTokens,
			CompletionTokens: wr.Usage.CompletionTokens,
			TotalTokens:      wr.Usage.TotalTokens,
		}
	}
	for _, c := range wr.Choices {
		var text string
		if len(c.Message.Content) > 0 {
			json.Unmarshal(c.Message.Content, &text)
		}
		msg := canonical.Message{Role: canonical.Role(c.Message.Role), Text: text}
		for _, tc := range c.Message.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, canonical.ToolCall{
				ID: tc.ID, Name: tc.Function.Name, ArgumentsJSON: tc.Function.Arguments,
			})
		}
		resp.Choices = append(resp.Choices, canonical.Choice{
			Index:        c.Index,
			Message:      msg,
			FinishReason: canonical.FinishReason(c.FinishReason),
		})
	}
	return resp, nil
}

// ResponseFromCanonical renders a canonical response in the OpenAI dialect.
func ResponseFromCanonical(resp *canonical.Response) ([]byte, error) {
	wr := wireResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: resp.CreatedUnix,
		Model:   resp.Model,
	}
	if resp.Usage != nil {
		wr.Usage = &wireUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	for _, c := range resp.Choices {
		content, err := json.Marshal(c.Message.ContentString())
		if err != nil {
			return nil, fmt.Errorf("openai: marshal choice content: %w", err)
		}
		wm := wireMessage{Role: string(c.Message.Role), Content: content}
		for _, tc := range c.Message.ToolCalls {
			var wtc wireToolCall
			wtc.ID = tc.ID
			wtc.Type = "function"
			wtc.Function.Name = tc.Name
			wtc.Function.Arguments = tc.ArgumentsJSON
			wm.ToolCalls = append(wm.ToolCalls, wtc)
		}
		wr.Choices = append(wr.Choices, wireChoice{
			Index:        c.Index,
			Message:      wm,
			FinishReason: string(c.FinishReason),
		})
	}
	return json.Marshal(wr)
}

type wireDelta struct {
	Role      string         `json:"role,omitempty"`
	Content   string         `json:"content,omitempty"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireStreamChoice struct {
	Index        int       `json:"index"`
	Delta        wireDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

type wireStreamChunk struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []wireStreamChoice `json:"choices"`
}

// StreamEventToCanonical parses one OpenAI SSE data payload into canonical
// chunks, used to interpret the OpenAI provider's own stream.
func StreamEventToCanonical(event []byte) ([]canonical.Chunk, error) {
	var wc wireStreamChunk
	if err := json.Unmarshal(event, &wc); err != nil {
		return nil, fmt.Errorf("openai: unmarshal stream event: %w", err)
	}
	chunk := canonical.Chunk{ID: wc.ID, CreatedUnix: wc.Created, Model: wc.Model}
	for _, c := range wc.Choices {
		cc := canonical.ChunkChoice{
			Index: c.Index,
			Delta: canonical.Delta{Role: canonical.Role(c.Delta.Role), Content: c.Delta.Content},
		}
		for _, tc := range c.Delta.ToolCalls {
			cc.Delta.ToolCalls = append(cc.Delta.ToolCalls, canonical.ToolCall{
				ID: tc.ID, Name: tc.Function.Name, ArgumentsJSON: tc.Function.Arguments,
			})
		}
		if c.FinishReason != nil {
			fr := canonical.FinishReason(*c.FinishReason)
			cc.FinishReason = &fr
		}
		chunk.Choices = append(chunk.Choices, cc)
	}
	return []canonical.Chunk{chunk}, nil
}

// ChunkFromCanonical renders a canonical chunk in the OpenAI SSE dialect.
func ChunkFromCanonical(chunk *canonical.Chunk) ([]byte, error) {
	wc := wireStreamChunk{
		ID:      chunk.ID,
		Object:  "chat.completion.chunk",
		Created: chunk.CreatedUnix,
		Model:   chunk.Model,
	}
	for _, c := range chunk.Choices {
		wsc := wireStreamChoice{
			Index: c.Index,
			Delta: wireDelta{Role: string(c.Delta.Role), Content: c.Delta.Content},
		}
		for _, tc := range c.Delta.ToolCalls {
			var wtc wireToolCall
			wtc.ID = tc.ID
			wtc.Type = "function"
			wtc.Function.Name = tc.Name
			wtc.Function.Arguments = tc.ArgumentsJSON
			wsc.Delta.ToolCalls = append(wsc.Delta.ToolCalls, wtc)
		}
		if c.FinishReason != nil {
			fr := string(*c.FinishReason)
			wsc.FinishReason = &fr
		}
		wc.Choices = append(wc.Choices, wsc)
	}
	return json.Marshal(wc)
}
