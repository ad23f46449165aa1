// Package httpapi wires the gateway's chi handlers: chat completions,
// file management, knowledge-base lookup, and health probes.
package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/teabranch/amazon-chat-completions-server/internal/httputil"
	"github.com/teabranch/amazon-chat-completions-server/internal/orchestrator"
)

// ChatHandler serves the unified chat completions endpoint.
type ChatHandler struct {
	orch *orchestrator.Orchestrator
}

func NewChatHandler(orch *orchestrator.Orchestrator) *ChatHandler {
	return &ChatHandler{orch: orch}
}

// Completions handles POST /v1/chat/completions, dispatching to the
// streaming or non-streaming orchestrator path based on the request
// body's own "stream" field, with target_format taken from the query
// string.
func (h *ChatHandler) Completions(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindValidation, "could not read request body", err))
		return
	}

	targetFormat := r.URL.Query().Get("target_format")

	if orchestrator.IsStreamingRequest(body) {
		h.serveStream(w, r, body, targetFormat)
		return
	}

	respBody, err := h.orch.Handle(r.Context(), body, targetFormat)
	if err != nil {
		httputil.WriteTypedError(w, reqID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if reqID != "" {
		w.Header().Set("X-Request-ID", reqID)
	}
	w.Write(respBody)
}

func (h *ChatHandler) serveStream(w http.ResponseWriter, r *http.Request, body []byte, targetFormat string) {
	reqID := w.Header().Get("X-Request-ID")

	frames, err := h.orch.HandleStream(r.Context(), body, targetFormat)
	if err != nil {
		httputil.WriteTypedError(w, reqID, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteTypedError(w, reqID, httputil.NewError(httputil.KindInternal, "response writer does not support streaming"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if reqID != "" {
		w.Header().Set("X-Request-ID", reqID)
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			slog.Info("client disconnected mid-stream", "request_id", reqID)
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// Health handles GET /v1/chat/completions/health.
func (h *ChatHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeHealthy(w)
}

func writeHealthy(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}
