package router

import (
	"testing"

	"github.com/teabranch/amazon-chat-completions-server/internal/strategy"
)

func TestRoutePureAcrossInvocations(t *testing.T) {
	r := New(MaxTokensDefaults{})
	p1, s1, err := r.Route("anthropic.claude-3-haiku-20240307-v1:0")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	p2, s2, err := r.Route("anthropic.claude-3-haiku-20240307-v1:0")
	if err != nil {
		t.Fatalf("Route (second call): %v", err)
	}
	if p1 != p2 {
		t.Errorf("provider differs across invocations: %v vs %v", p1, p2)
	}
	if _, ok := s1.(strategy.AnthropicStrategy); !ok {
		t.Errorf("expected AnthropicStrategy, got %T", s1)
	}
	_ = s2
}

func TestRouteStripsRegionToken(t *testing.T) {
	r := New(MaxTokensDefaults{})
	p, s, err := r.Route("us.anthropic.claude-3-haiku-20240307-v1:0")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if p != strategy.ProviderBedrock {
		t.Errorf("expected bedrock provider, got %v", p)
	}
	if _, ok := s.(strategy.AnthropicStrategy); !ok {
		t.Errorf("expected AnthropicStrategy after region strip, got %T", s)
	}
}

func TestRouteStripsAnyAPRegionWildcard(t *testing.T) {
	r := New(MaxTokensDefaults{})
	for _, model := range []string{
		"ap-southeast-1.anthropic.claude-3-haiku-20240307-v1:0",
		"ap-northeast-2.anthropic.claude-3-haiku-20240307-v1:0",
	} {
		p, s, err := r.Route(model)
		if err != nil {
			t.Fatalf("Route(%s): %v", model, err)
		}
		if p != strategy.ProviderBedrock {
			t.Errorf("Route(%s) provider = %v, want bedrock", model, p)
		}
		if _, ok := s.(strategy.AnthropicStrategy); !ok {
			t.Errorf("Route(%s) = %T, want AnthropicStrategy after ap-* region strip", model, s)
		}
	}
}

func TestRouteTitanFamilyPrefix(t *testing.T) {
	r := New(MaxTokensDefaults{})
	_, s, err := r.Route("amazon.titan-text-express-v1")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if _, ok := s.(strategy.TitanStrategy); !ok {
		t.Errorf("expected TitanStrategy, got %T", s)
	}
}

func TestRouteUnsupportedModel(t *testing.T) {
	r := New(MaxTokensDefaults{})
	_, _, err := r.Route("does-not-exist-1")
	if err == nil {
		t.Fatal("expected error for unsupported model")
	}
	if _, ok := err.(*ErrUnsupportedModel); !ok {
		t.Errorf("expected *ErrUnsupportedModel, got %T", err)
	}
}

func TestRouteOpenAIFamilies(t *testing.T) {
	r := New(MaxTokensDefaults{})
	for _, m := range []string{"gpt-4o-mini", "text-embedding-3-small", "dall-e-3"} {
		p, _, err := r.Route(m)
		if err != nil {
			t.Fatalf("Route(%s): %v", m, err)
		}
		if p != strategy.ProviderOpenAI {
			t.Errorf("Route(%s) provider = %v, want openai", m, p)
		}
	}
}
