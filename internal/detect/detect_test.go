package detect

import "testing"

func TestDetectPriority(t *testing.T) {
	cases := []struct {
		name string
		body string
		want Dialect
	}{
		{"anthropic wins over inputText", `{"anthropic_version":"bedrock-2023-05-31","inputText":"x"}`, BedrockAnthropic},
		{"titan", `{"inputText":"hello","textGenerationConfig":{}}`, BedrockTitan},
		{"openai", `{"model":"gpt-4o-mini","messages":[{"role":"user","content":"hi"}]}`, OpenAI},
		{"messages not a list", `{"model":"gpt-4o-mini","messages":"hi"}`, Unknown},
		{"missing messages", `{"model":"gpt-4o-mini"}`, Unknown},
		{"empty object", `{}`, Unknown},
		{"not an object", `[1,2,3]`, Unknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DetectBytes([]byte(c.body)); got != c.want {
				t.Errorf("DetectBytes(%s) = %v, want %v", c.body, got, c.want)
			}
		})
	}
}

func TestDetectStableAcrossKeyOrder(t *testing.T) {
	a := DetectBytes([]byte(`{"model":"gpt-4o","messages":[]}`))
	b := DetectBytes([]byte(`{"messages":[],"model":"gpt-4o"}`))
	if a != b {
		t.Errorf("detection depends on key order: %v vs %v", a, b)
	}
	if a != OpenAI {
		t.Errorf("expected OpenAI, got %v", a)
	}
}
