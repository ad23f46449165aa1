package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/teabranch/amazon-chat-completions-server/internal/canonical"
	"github.com/teabranch/amazon-chat-completions-server/internal/config"
	"github.com/teabranch/amazon-chat-completions-server/internal/httputil"
	"github.com/teabranch/amazon-chat-completions-server/internal/knowledge"
)

// KnowledgeHandler serves the optional knowledge-base lookup and retrieval
// endpoints. The base registry is a static, configured list (see
// config.KnowledgeBaseConfig) rather than discovered from Bedrock Agent
// control-plane, since that SDK package isn't part of the gateway's stack.
type KnowledgeHandler struct {
	bases     []config.KnowledgeBaseConfig
	retriever *knowledge.Retriever
}

func NewKnowledgeHandler(bases []config.KnowledgeBaseConfig, retriever *knowledge.Retriever) *KnowledgeHandler {
	return &KnowledgeHandler{bases: bases, retriever: retriever}
}

func (h *KnowledgeHandler) lookup(id string) (*config.KnowledgeBaseConfig, bool) {
	for i := range h.bases {
		if h.bases[i].ID == id {
			return &h.bases[i], true
		}
	}
	return nil, false
}

// List handles GET /v1/knowledge-bases.
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": h.bases})
}

// Get handles GET /v1/knowledge-bases/{id}.
func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	reqID := w.Header().Get("X-Request-ID")
	kb, ok := h.lookup(id)
	if !ok {
		httputil.WriteTypedError(w, reqID, httputil.NewError(httputil.KindValidation, fmt.Sprintf("knowledge base %q is not configured", id)))
		return
	}
	writeJSON(w, http.StatusOK, kb)
}

type queryRequest struct {
	Query           string                     `json:"query"`
	RetrievalConfig *canonical.RetrievalConfig `json:"retrieval_config,omitempty"`
}

// Query handles POST /v1/knowledge-bases/{id}/query, a plain retrieval call
// returning citations without any generation step.
func (h *KnowledgeHandler) Query(w http.ResponseWriter, r *http.Request, id string) {
	reqID := w.Header().Get("X-Request-ID")
	if _, ok := h.lookup(id); !ok {
		httputil.WriteTypedError(w, reqID, httputil.NewError(httputil.KindValidation, fmt.Sprintf("knowledge base %q is not configured", id)))
		return
	}
	if h.retriever == nil {
		httputil.WriteTypedError(w, reqID, httputil.NewError(httputil.KindValidation, "no knowledge base backend is configured"))
		return
	}

	var req queryRequest
	if err := decodeJSONBody(r, &req); err != nil {
		httputil.WriteTypedError(w, reqID, err)
		return
	}

	result, err := h.retriever.Augment(r.Context(), id, req.Query, req.RetrievalConfig)
	if err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindUpstream, "knowledge base retrieval failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"citations": result.Citations})
}

type generateRequest struct {
	Query string `json:"query"`
	Model string `json:"model"`
}

// RetrieveAndGenerate handles POST /v1/knowledge-bases/{id}/retrieve-and-generate,
// delegating the full answer to the knowledge base's own generation call.
func (h *KnowledgeHandler) RetrieveAndGenerate(w http.ResponseWriter, r *http.Request, id string) {
	reqID := w.Header().Get("X-Request-ID")
	if _, ok := h.lookup(id); !ok {
		httputil.WriteTypedError(w, reqID, httputil.NewError(httputil.KindValidation, fmt.Sprintf("knowledge base %q is not configured", id)))
		return
	}
	if h.retriever == nil {
		httputil.WriteTypedError(w, reqID, httputil.NewError(httputil.KindValidation, "no knowledge base backend is configured"))
		return
	}

	var req generateRequest
	if err := decodeJSONBody(r, &req); err != nil {
		httputil.WriteTypedError(w, reqID, err)
		return
	}

	text, citations, err := h.retriever.GenerateDirect(r.Context(), id, req.Model, req.Query)
	if err != nil {
		httputil.WriteTypedError(w, reqID, httputil.Wrap(httputil.KindUpstream, "knowledge base retrieve-and-generate failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"text": text, "citations": citations})
}

// Delete handles DELETE /v1/knowledge-bases/{id}. The registry is a static
// configuration list, not a mutable store, so deletion is unsupported
// rather than silently accepted.
func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	reqID := w.Header().Get("X-Request-ID")
	httputil.WriteTypedError(w, reqID, httputil.NewError(httputil.KindValidation, "knowledge base registry is statically configured and does not support deletion"))
}

func decodeJSONBody(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return httputil.Wrap(httputil.KindValidation, "could not read request body", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return httputil.Wrap(httputil.KindValidation, "could not parse request body", err)
	}
	return nil
}
