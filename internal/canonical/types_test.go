package canonical

import "testing"

func TestMessageContentStringPlainText(t *testing.T) {
	m := Message{Role: RoleUser, Text: "hello"}
	if !m.IsTextOnly() {
		t.Fatalf("expected plain-text message to be text-only")
	}
	if got := m.ContentString(); got != "hello" {
		t.Errorf("expected 'hello', got %q", got)
	}
}

func TestMessageContentStringBlocks(t *testing.T) {
	m := Message{
		Role: RoleUser,
		Blocks: []ContentBlock{
			{Type: ContentText, Text: "part one "},
			{Type: ContentImage, MediaType: "image/png", Data: "base64"},
			{Type: ContentText, Text: "part two"},
		},
	}
	if m.IsTextOnly() {
		t.Fatalf("expected block-carrying message to not be text-only")
	}
	if got := m.ContentString(); got != "part one part two" {
		t.Errorf("expected text blocks concatenated, got %q", got)
	}
}
