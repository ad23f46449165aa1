package files

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeMetadata struct {
	artifacts map[string]*Artifact
}

func (f *fakeMetadata) Get(ctx context.Context, id string) (*Artifact, error) {
	a, ok := f.artifacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

type fakeObjects struct {
	data map[string][]byte
}

func (f *fakeObjects) Put(ctx context.Context, key string, body []byte, contentType string) error {
	f.data[key] = body
	return nil
}

func (f *fakeObjects) Get(ctx context.Context, key string) ([]byte, error) {
	b, ok := f.data[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func TestInjectorBuildContextSuccess(t *testing.T) {
	meta := &fakeMetadata{artifacts: map[string]*Artifact{
		"file-1": {ID: "file-1", OriginalFilename: "notes.txt", MediaType: "text/plain", Status: StatusProcessed},
	}}
	objs := &fakeObjects{data: map[string][]byte{
		ObjectKey("file-1", "notes.txt"): []byte("hello"),
	}}

	inj := NewInjector(meta, objs)
	out, err := inj.BuildContext(context.Background(), []string{"file-1"})
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("expected extracted content in context, got %q", out)
	}
	if !strings.HasPrefix(out, contextHeader) {
		t.Errorf("expected header prefix, got %q", out)
	}
}

func TestInjectorBuildContextPartialFailureSurvives(t *testing.T) {
	meta := &fakeMetadata{artifacts: map[string]*Artifact{
		"file-1": {ID: "file-1", OriginalFilename: "notes.txt", MediaType: "text/plain", Status: StatusProcessed},
	}}
	objs := &fakeObjects{data: map[string][]byte{
		ObjectKey("file-1", "notes.txt"): []byte("hello"),
	}}

	inj := NewInjector(meta, objs)
	out, err := inj.BuildContext(context.Background(), []string{"file-1", "file-missing"})
	if err != nil {
		t.Fatalf("expected partial success, got error: %v", err)
	}
	if !strings.Contains(out, "hello") || !strings.Contains(out, "could not be processed") {
		t.Errorf("expected mix of success and failure notes, got %q", out)
	}
}

func TestInjectorBuildContextAllFailuresError(t *testing.T) {
	meta := &fakeMetadata{artifacts: map[string]*Artifact{}}
	objs := &fakeObjects{data: map[string][]byte{}}

	inj := NewInjector(meta, objs)
	_, err := inj.BuildContext(context.Background(), []string{"file-missing-1", "file-missing-2"})
	if err == nil {
		t.Fatal("expected error when every file fails to load")
	}
}

func TestInjectorBuildContextEmptyFileIDs(t *testing.T) {
	inj := NewInjector(&fakeMetadata{artifacts: map[string]*Artifact{}}, &fakeObjects{data: map[string][]byte{}})
	out, err := inj.BuildContext(context.Background(), nil)
	if err != nil || out != "" {
		t.Fatalf("expected empty, nil-error result, got %q, %v", out, err)
	}
}

func TestCacheKeyIsOrderIndependent(t *testing.T) {
	if CacheKey([]string{"a", "b"}) != CacheKey([]string{"b", "a"}) {
		t.Error("expected CacheKey to be order-independent")
	}
}

func TestInjectorBuildContextPreservesCSVHeaderVerbatim(t *testing.T) {
	csv := "Date,Product,Sales\n2024-01-01,A,150\n2024-01-02,B,200\n"
	meta := &fakeMetadata{artifacts: map[string]*Artifact{
		"file-XYZ": {ID: "file-XYZ", OriginalFilename: "sales.csv", MediaType: "text/csv", Status: StatusProcessed},
	}}
	objs := &fakeObjects{data: map[string][]byte{
		ObjectKey("file-XYZ", "sales.csv"): []byte(csv),
	}}

	inj := NewInjector(meta, objs)
	out, err := inj.BuildContext(context.Background(), []string{"file-XYZ"})
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	if !strings.Contains(out, "Date,Product,Sales") {
		t.Errorf("expected verbatim CSV header line, got %q", out)
	}
	if !strings.Contains(out, "**Processed Content:**") {
		t.Errorf("expected processed-content label, got %q", out)
	}
}

func TestInjectorBuildContextIsIdempotentForSameFileIDs(t *testing.T) {
	meta := &fakeMetadata{artifacts: map[string]*Artifact{
		"file-1": {ID: "file-1", OriginalFilename: "notes.txt", MediaType: "text/plain", Status: StatusProcessed, CreatedUnix: 1700000000},
	}}
	objs := &fakeObjects{data: map[string][]byte{
		ObjectKey("file-1", "notes.txt"): []byte("hello"),
	}}

	inj := NewInjector(meta, objs)
	first, err := inj.BuildContext(context.Background(), []string{"file-1"})
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	second, err := inj.BuildContext(context.Background(), []string{"file-1"})
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	if first != second {
		t.Errorf("expected identical preamble bytes for identical file_ids, got %q vs %q", first, second)
	}
}

func TestInjectorBuildContextIsIdempotentForJSONArtifact(t *testing.T) {
	meta := &fakeMetadata{artifacts: map[string]*Artifact{
		"file-2": {ID: "file-2", OriginalFilename: "data.json", MediaType: "application/json", Status: StatusProcessed, CreatedUnix: 1700000000},
	}}
	objs := &fakeObjects{data: map[string][]byte{
		ObjectKey("file-2", "data.json"): []byte(`{"zebra": 1, "apple": 2, "mango": {"nested": true}}`),
	}}

	inj := NewInjector(meta, objs)
	var renders []string
	for i := 0; i < 5; i++ {
		out, err := inj.BuildContext(context.Background(), []string{"file-2"})
		if err != nil {
			t.Fatalf("BuildContext: %v", err)
		}
		renders = append(renders, out)
	}
	for i := 1; i < len(renders); i++ {
		if renders[i] != renders[0] {
			t.Errorf("expected identical preamble bytes for a JSON artifact across calls, got %q vs %q", renders[0], renders[i])
		}
	}
}
