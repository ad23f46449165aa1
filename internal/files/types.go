// Package files implements the Files subsystem: uploaded artifacts are
// stored in object storage, their metadata persisted and cache-aside
// read through Redis, and their extracted text injected into chat
// requests that reference them by id.
package files

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an Artifact.
type Status string

const (
	StatusUploaded  Status = "uploaded"
	StatusProcessed Status = "processed"
	StatusError     Status = "error"
)

// MaxFileSizeBytes bounds a single upload, per the Open Question decision
// in DESIGN.md.
const MaxFileSizeBytes = 10 * 1024 * 1024

// MaxContextBytes bounds the total injected file-context preamble across
// all file_ids on one request.
const MaxContextBytes = 256 * 1024

// Artifact is the persisted record of one uploaded file.
type Artifact struct {
	ID               string `json:"id"`
	OriginalFilename string `json:"original_filename"`
	MediaType        string `json:"media_type"`
	SizeBytes        int64  `json:"size_bytes"`
	CreatedUnix      int64  `json:"created_unix"`
	Purpose          string `json:"purpose"`
	Status           Status `json:"status"`
}

// NewArtifactID generates an id of the form "file-" followed by a UUIDv4
// with its hyphens stripped, matching the OpenAI Files id shape closely
// enough for client familiarity while staying provider-neutral.
func NewArtifactID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("files: generate id: %w", err)
	}
	return "file-" + strings.ReplaceAll(id.String(), "-", ""), nil
}

// ObjectKey is the storage key an Artifact's bytes live under.
func ObjectKey(id, filename string) string {
	return fmt.Sprintf("files/%s-%s", id, sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "upload"
	}
	return string(out)
}
