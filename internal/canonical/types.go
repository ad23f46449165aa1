// Package canonical defines the dialect-neutral chat-completion model that
// every adapter, strategy, and orchestrator step is built around.
package canonical

import "encoding/json"

// Role identifies who authored a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FinishReason is the closed set of reasons a Choice stopped generating.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishError         FinishReason = "error"
)

// ToolChoiceMode selects how the model should use tools.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceRequired ToolChoiceMode = "required"
	ToolChoiceNamed    ToolChoiceMode = "named"
)

// ToolChoice selects tool-use behavior; Named carries the forced tool name.
type ToolChoice struct {
	Mode  ToolChoiceMode
	Named string
}

// ContentBlockType tags the variant carried by a ContentBlock.
type ContentBlockType string

const (
	ContentText       ContentBlockType = "text"
	ContentImage      ContentBlockType = "image"
	ContentToolUse    ContentBlockType = "tool_use"
	ContentToolResult ContentBlockType = "tool_result"
)

// ContentBlock is a tagged union over the four supported block variants.
// Exactly the fields for Type are meaningful; callers must switch
// exhaustively on Type rather than probe fields.
type ContentBlock struct {
	Type ContentBlockType `json:"type"`

	// Text variant.
	Text string `json:"text,omitempty"`

	// Image variant.
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`

	// ToolUse variant.
	ToolUseID string          `json:"id,omitempty"`
	ToolName  string          `json:"name,omitempty"`
	ToolInput json.RawMessage `json:"input,omitempty"`

	// ToolResult variant.
	ToolResultForID string `json:"tool_use_id,omitempty"`
	ToolResultText  string `json:"content,omitempty"`
}

// ToolCall is an assistant-emitted request to invoke a tool.
type ToolCall struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ArgumentsJSON string `json:"arguments_json_string"`
}

// ToolDef declares a tool the model may call.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"json_schema_for_arguments"`
}

// Message is a single turn. Content is either plain text (Text non-empty,
// Blocks nil) or an ordered list of ContentBlocks, never both.
type Message struct {
	Role       Role           `json:"role"`
	Text       string         `json:"-"`
	Blocks     []ContentBlock `json:"-"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`
}

// IsTextOnly reports whether the message carries plain text content only,
// with no tool calls or structured content blocks.
func (m Message) IsTextOnly() bool {
	return m.Blocks == nil && len(m.ToolCalls) == 0
}

// ContentString flattens the message content to a single string, joining
// only the Text blocks. Used by dialects (Titan) that have no block model.
func (m Message) ContentString() string {
	if m.Blocks == nil {
		return m.Text
	}
	var out string
	for _, b := range m.Blocks {
		if b.Type == ContentText {
			out += b.Text
		}
	}
	return out
}

// RetrievalConfig carries optional KB retrieval tuning.
type RetrievalConfig struct {
	TopK                      int             `json:"top_k,omitempty"`
	VectorSearchConfiguration json.RawMessage `json:"vector_search_configuration,omitempty"`
}

// Request is the canonical, dialect-neutral chat-completion request.
type Request struct {
	Model         string      `json:"model"`
	Messages      []Message   `json:"messages"`
	Temperature   *float64    `json:"temperature,omitempty"`
	TopP          *float64    `json:"top_p,omitempty"`
	MaxTokens     *int        `json:"max_tokens,omitempty"`
	StopSequences []string    `json:"stop_sequences,omitempty"`
	Stream        bool        `json:"stream"`
	Tools         []ToolDef   `json:"tools,omitempty"`
	ToolChoice    *ToolChoice `json:"tool_choice,omitempty"`
	FileIDs       []string    `json:"file_ids,omitempty"`

	KnowledgeBaseID string           `json:"knowledge_base_id,omitempty"`
	AutoKB          bool             `json:"auto_kb,omitempty"`
	RetrievalConfig *RetrievalConfig `json:"retrieval_config,omitempty"`
	CitationFormat  string           `json:"citation_format,omitempty"`

	// TargetFormat is the caller-selected response dialect; empty means the
	// default (OpenAI) applies. Populated by the orchestrator from the
	// request's query parameter, not part of any dialect's wire body.
	TargetFormat string `json:"-"`
}

// Usage reports token accounting for a completed exchange.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one candidate completion within a Response.
type Choice struct {
	Index        int          `json:"index"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
	Citations    []Citation   `json:"citations,omitempty"`
}

// Citation attributes part of a KB-augmented response to a source snippet.
type Citation struct {
	Source  string `json:"source"`
	Snippet string `json:"snippet,omitempty"`
}

// Response is the canonical, non-streaming chat-completion result.
type Response struct {
	ID          string   `json:"id"`
	CreatedUnix int64    `json:"created_unix"`
	Model       string   `json:"model"`
	Choices     []Choice `json:"choices"`
	Usage       *Usage   `json:"usage,omitempty"`
}

// Delta carries the incremental content of one streaming chunk for one
// choice index.
type Delta struct {
	Role      Role       `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ChunkChoice is one choice's delta within a streaming Chunk.
type ChunkChoice struct {
	Index        int           `json:"index"`
	Delta        Delta         `json:"delta"`
	FinishReason *FinishReason `json:"finish_reason,omitempty"`
}

// Chunk is one canonical streaming event.
type Chunk struct {
	ID          string        `json:"id"`
	CreatedUnix int64         `json:"created_unix"`
	Model       string        `json:"model"`
	Choices     []ChunkChoice `json:"choices"`
	Usage       *Usage        `json:"usage,omitempty"`
}
