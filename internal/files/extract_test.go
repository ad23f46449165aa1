package files

import (
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	got := Extract("text/plain", []byte("hello world"))
	if got != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestExtractCSVTruncatesLongFiles(t *testing.T) {
	var b strings.Builder
	b.WriteString("a,b\n")
	for i := 0; i < 30; i++ {
		b.WriteString("1,2\n")
	}
	got := extractCSV([]byte(b.String()))
	if !strings.Contains(got, "more rows truncated") {
		t.Errorf("expected truncation note, got %q", got)
	}
}

func TestExtractJSONIncludesTopLevelKeySummary(t *testing.T) {
	got := extractJSON([]byte(`{"name":"x","count":3,"items":[1,2]}`))
	if !strings.Contains(got, "top-level keys:") {
		t.Errorf("missing key summary: %q", got)
	}
	if !strings.Contains(got, "name: string") {
		t.Errorf("missing name:string in summary: %q", got)
	}
}

func TestExtractMarkupStripsTags(t *testing.T) {
	got := extractMarkup([]byte("<html><body><p>Hello</p></body></html>"))
	if got != "Hello" {
		t.Errorf("got %q, want %q", got, "Hello")
	}
}

func TestExtractUnsupportedTypeIsPlaceholder(t *testing.T) {
	got := Extract("application/pdf", []byte{1, 2, 3})
	if !strings.Contains(got, "unsupported file type") {
		t.Errorf("got %q", got)
	}
}
