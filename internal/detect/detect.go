// Package detect classifies an inbound chat-completion payload into one of
// the three recognized request dialects.
package detect

import "encoding/json"

// Dialect is one of the recognized inbound request shapes.
type Dialect string

const (
	OpenAI           Dialect = "openai"
	BedrockAnthropic Dialect = "bedrock_anthropic"
	BedrockTitan     Dialect = "bedrock_titan"
	Unknown          Dialect = "unknown"
)

// Detect classifies a decoded JSON document by key presence, evaluated in
// priority order: the first match wins. Detection never inspects value
// types beyond what's needed to confirm presence, so it is O(1) in the
// number of keys examined and stable across key-insertion-order
// permutations (map key order carries no meaning in Go or in the JSON it
// came from).
func Detect(doc map[string]json.RawMessage) Dialect {
	if _, ok := doc["anthropic_version"]; ok {
		return BedrockAnthropic
	}
	if _, ok := doc["inputText"]; ok {
		return BedrockTitan
	}
	if _, hasModel := doc["model"]; hasModel {
		if raw, hasMessages := doc["messages"]; hasMessages {
			var probe []json.RawMessage
			if json.Unmarshal(raw, &probe) == nil {
				return OpenAI
			}
		}
	}
	return Unknown
}

// DetectBytes decodes raw and delegates to Detect. A body that isn't a JSON
// object is always Unknown.
func DetectBytes(body []byte) Dialect {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return Unknown
	}
	return Detect(doc)
}
