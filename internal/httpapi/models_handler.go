package httpapi

import (
	"fmt"
	"net/http"

	"github.com/teabranch/amazon-chat-completions-server/internal/httputil"
)

// modelInfo describes one routable model family for discovery purposes.
// The router itself is a pure prefix-matching function with no enumerable
// list, so this catalog is curated by hand and kept in sync with
// internal/router.New's table.
type modelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

var modelCatalog = []modelInfo{
	{ID: "gpt-4o", Object: "model", OwnedBy: "openai"},
	{ID: "gpt-4o-mini", Object: "model", OwnedBy: "openai"},
	{ID: "gpt-4-turbo", Object: "model", OwnedBy: "openai"},
	{ID: "gpt-3.5-turbo", Object: "model", OwnedBy: "openai"},
	{ID: "anthropic.claude-3-5-sonnet-20241022-v2:0", Object: "model", OwnedBy: "bedrock"},
	{ID: "anthropic.claude-3-haiku-20240307-v1:0", Object: "model", OwnedBy: "bedrock"},
	{ID: "amazon.titan-text-express-v1", Object: "model", OwnedBy: "bedrock"},
	{ID: "amazon.titan-text-lite-v1", Object: "model", OwnedBy: "bedrock"},
	{ID: "ai21.jamba-1-5-large-v1:0", Object: "model", OwnedBy: "bedrock"},
	{ID: "cohere.command-r-plus-v1:0", Object: "model", OwnedBy: "bedrock"},
	{ID: "meta.llama3-1-70b-instruct-v1:0", Object: "model", OwnedBy: "bedrock"},
	{ID: "mistral.mistral-large-2407-v1:0", Object: "model", OwnedBy: "bedrock"},
}

// ModelsHandler serves GET /v1/models, the static routable-model catalog.
type ModelsHandler struct{}

func NewModelsHandler() *ModelsHandler { return &ModelsHandler{} }

func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": modelCatalog})
}

func (h *ModelsHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	reqID := w.Header().Get("X-Request-ID")
	for _, m := range modelCatalog {
		if m.ID == id {
			writeJSON(w, http.StatusOK, m)
			return
		}
	}
	httputil.WriteTypedError(w, reqID, httputil.NewError(httputil.KindUnsupportedModel, fmt.Sprintf("model %q is not recognized", id)))
}
