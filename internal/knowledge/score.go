package knowledge

import (
	"regexp"
	"strings"
)

// questionPattern flags queries shaped like a question, one signal the
// confidence score weighs toward retrieval.
var questionPattern = regexp.MustCompile(`(?i)\b(what|who|when|where|why|how|which|does|is|are|can|could)\b.*\?\s*$`)

// knowledgeKeywords are terms that, in isolation, suggest the user is
// asking the gateway to consult a knowledge base rather than chat freely.
var knowledgeKeywords = []string{
	"according to", "in our docs", "in the documentation", "per the policy",
	"lookup", "look up", "find information about", "search for",
	"reference", "cite", "source", "knowledge base", "kb article",
}

// Score produces a confidence in [0, 1] that text warrants a knowledge-base
// lookup, combining keyword presence with question-shape detection. It is
// a simple additive heuristic, not a model: 0.5 for an explicit knowledge
// keyword, plus 0.3 for a question shape, minus 0.2 for text of three
// words or fewer, clamped to [0, 1].
func Score(text string) float64 {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)

	var score float64
	for _, kw := range knowledgeKeywords {
		if strings.Contains(lower, kw) {
			score += 0.5
			break
		}
	}
	if questionPattern.MatchString(text) {
		score += 0.3
	}
	if len(strings.Fields(text)) <= 3 {
		score -= 0.2
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
