package files

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

const contextHeader = "=== UPLOADED FILES CONTEXT ==="
const contextFooter = "========================"

// maxConcurrentFetches bounds how many artifacts are fetched and extracted
// concurrently per request.
const maxConcurrentFetches = 4

// fetchResult pairs one artifact id with either its extracted text or an
// error. Individual failures don't abort the whole injection unless every
// file fails.
type fetchResult struct {
	id       string
	artifact *Artifact
	text     string
	err      error
}

// metadataReader is the narrow slice of MetadataStore the injector needs,
// so tests can substitute a fake store.
type metadataReader interface {
	Get(ctx context.Context, id string) (*Artifact, error)
}

// Injector builds the file-context preamble for a chat request's file_ids.
type Injector struct {
	metadata metadataReader
	objects  ObjectStore
}

func NewInjector(metadata metadataReader, objects ObjectStore) *Injector {
	return &Injector{metadata: metadata, objects: objects}
}

// BuildContext fetches and extracts every artifact in fileIDs, concurrently
// up to maxConcurrentFetches, and renders them into one framed preamble
// string using the canonical per-file block shape: a header line naming
// the file, media type, and size, a creation timestamp, and the processed
// content. It returns an error only if every file failed; a subset of
// failures is rendered inline as placeholder notes so the request can
// still proceed with what succeeded.
func (inj *Injector) BuildContext(ctx context.Context, fileIDs []string) (string, error) {
	if len(fileIDs) == 0 {
		return "", nil
	}

	results := make([]fetchResult, len(fileIDs))
	sem := make(chan struct{}, maxConcurrentFetches)
	var wg sync.WaitGroup

	for i, id := range fileIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = inj.fetchOne(ctx, id)
		}(i, id)
	}
	wg.Wait()

	var b strings.Builder
	failures := 0
	b.WriteString(contextHeader)
	for _, r := range results {
		if r.err != nil {
			failures++
			slog.Error("file context fetch failed", "file_id", r.id, "error", r.err)
			fmt.Fprintf(&b, "\n\n[File content could not be processed: %v]", r.err)
			continue
		}
		b.WriteString("\n\n")
		b.WriteString(renderBlock(r.artifact, r.text))
	}
	b.WriteString("\n")
	b.WriteString(contextFooter)

	if failures == len(results) {
		return "", fmt.Errorf("files: all %d referenced files failed to load", failures)
	}

	out := b.String()
	if len(out) > MaxContextBytes {
		out = out[:MaxContextBytes] + "\n...[context truncated]"
	}
	return out, nil
}

// renderBlock frames one extracted artifact per the canonical preamble
// shape: a file header naming name/media-type/size, a creation timestamp,
// and the processed content.
func renderBlock(a *Artifact, text string) string {
	created := time.Unix(a.CreatedUnix, 0).UTC().Format(time.RFC3339)
	return fmt.Sprintf(
		"\U0001F4C4 **File: %s** (%s, %s)\nCreated: %s\n\n**Processed Content:**\n%s",
		a.OriginalFilename, a.MediaType, formatSize(a.SizeBytes), created, text,
	)
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for n/div >= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func (inj *Injector) fetchOne(ctx context.Context, id string) fetchResult {
	artifact, err := inj.metadata.Get(ctx, id)
	if err != nil {
		return fetchResult{id: id, err: err}
	}
	if artifact.Status != StatusProcessed {
		return fetchResult{id: id, err: fmt.Errorf("artifact not ready (status=%s)", artifact.Status)}
	}
	data, err := inj.objects.Get(ctx, ObjectKey(artifact.ID, artifact.OriginalFilename))
	if err != nil {
		return fetchResult{id: id, err: err}
	}
	return fetchResult{id: id, artifact: artifact, text: Extract(artifact.MediaType, data)}
}

// CacheKey produces a stable, order-independent key for a set of file_ids:
// the same ids listed in any order yield the same key.
func CacheKey(fileIDs []string) string {
	sorted := append([]string(nil), fileIDs...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
