package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/teabranch/amazon-chat-completions-server/internal/files"
	"github.com/teabranch/amazon-chat-completions-server/internal/httputil"
)

// FilesHandler serves the Files subsystem's HTTP surface.
type FilesHandler struct {
	metadata *files.MetadataStore
	objects  files.ObjectStore
}

func NewFilesHandler(metadata *files.MetadataStore, objects files.ObjectStore) *FilesHandler {
	return &FilesHandler{metadata: metadata, objects: objects}
}

type fileResponse struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
	Status    string `json:"status"`
}

func toFileResponse(a *files.Artifact) fileResponse {
	return fileResponse{
		ID: a.ID, Object: "file", Bytes: a.SizeBytes, CreatedAt: a.CreatedUnix,
		Filename: a.OriginalFilename, Purpose: a.Purpose, Status: string(a.Status),
	}
}

// Upload handles POST /v1/files (multipart/form-data: file, purpose).
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	if err := r.ParseMultipartForm(files.MaxFileSizeBytes + (1 << 20)); err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindValidation, "could not parse multipart form", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindValidation, "missing \"file\" field", err))
		return
	}
	defer file.Close()

	purpose := r.FormValue("purpose")

	data, err := io.ReadAll(io.LimitReader(file, files.MaxFileSizeBytes+1))
	if err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindInternal, "could not read uploaded file", err))
		return
	}
	if len(data) > files.MaxFileSizeBytes {
		httputil.WriteTypedError(w, reqID, httputil.NewError(httputil.KindValidation, "uploaded file exceeds the maximum allowed size"))
		return
	}

	id, err := files.NewArtifactID()
	if err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindInternal, "could not allocate file id", err))
		return
	}

	mediaType := header.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	artifact := &files.Artifact{
		ID:               id,
		OriginalFilename: header.Filename,
		MediaType:        mediaType,
		SizeBytes:        int64(len(data)),
		CreatedUnix:      time.Now().Unix(),
		Purpose:          purpose,
		Status:           files.StatusUploaded,
	}

	if err := h.objects.Put(r.Context(), files.ObjectKey(artifact.ID, artifact.OriginalFilename), data, mediaType); err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindInternal, "could not store uploaded file", err))
		return
	}
	if err := h.metadata.Insert(r.Context(), artifact); err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindInternal, "could not persist file metadata", err))
		return
	}

	artifact.Status = files.StatusProcessed
	if err := h.metadata.UpdateStatus(r.Context(), artifact.ID, files.StatusProcessed); err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindInternal, "could not update file status", err))
		return
	}

	writeJSON(w, http.StatusOK, toFileResponse(artifact))
}

// List handles GET /v1/files?purpose=&limit=.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	purpose := r.URL.Query().Get("purpose")
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteTypedError(w, reqID, httputil.NewError(httputil.KindValidation, "limit must be an integer"))
			return
		}
		limit = n
	}

	artifacts, err := h.metadata.List(r.Context(), purpose, limit)
	if err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindInternal, "could not list files", err))
		return
	}

	out := make([]fileResponse, 0, len(artifacts))
	for i := range artifacts {
		out = append(out, toFileResponse(&artifacts[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": out})
}

// Get handles GET /v1/files/{id}.
func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	reqID := w.Header().Get("X-Request-ID")

	a, err := h.metadata.Get(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(a))
}

// Content handles GET /v1/files/{id}/content.
func (h *FilesHandler) Content(w http.ResponseWriter, r *http.Request, id string) {
	reqID := w.Header().Get("X-Request-ID")

	a, err := h.metadata.Get(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, reqID, err)
		return
	}

	data, err := h.objects.Get(r.Context(), files.ObjectKey(a.ID, a.OriginalFilename))
	if err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindInternal, "could not read file content", err))
		return
	}

	w.Header().Set("Content-Type", a.MediaType)
	w.Write(data)
}

// Delete handles DELETE /v1/files/{id}.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	reqID := w.Header().Get("X-Request-ID")

	a, err := h.metadata.Get(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, reqID, err)
		return
	}

	if err := h.objects.Delete(r.Context(), files.ObjectKey(a.ID, a.OriginalFilename)); err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindInternal, "could not delete stored file", err))
		return
	}
	if err := h.metadata.Delete(r.Context(), id); err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindInternal, "could not delete file metadata", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "object": "file", "deleted": true})
}

// Health handles GET /v1/files/health, a liveness probe for the storage
// backend: can the metadata store reach the database.
func (h *FilesHandler) Health(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	if _, err := h.metadata.List(r.Context(), "", 1); err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindServiceUnavailable, "file storage backend is unreachable", err))
		return
	}
	writeHealthy(w)
}

func (h *FilesHandler) writeLookupError(w http.ResponseWriter, reqID string, err error) {
	if errors.Is(err, files.ErrNotFound) {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindFileNotFound, "file not found", err))
		return
	}
	httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindInternal, "could not look up file", err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
