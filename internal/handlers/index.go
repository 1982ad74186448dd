package handlers

import (
	"net/http"

	"patriotpilot/internal/storage"
)

// IndexInfoHandler reports the manifest of the index being served.
type IndexInfoHandler struct {
	manifest storage.Manifest
}

// NewIndexInfoHandler creates a new IndexInfoHandler.
func NewIndexInfoHandler(manifest storage.Manifest) *IndexInfoHandler {
	return &IndexInfoHandler{manifest: manifest}
}

// ServeHTTP returns the manifest as JSON.
//
// swagger:route GET /api/v1/index indexInfo
//
// # Describe the loaded index
//
// Returns build id, embedding model, dimension, chunk count and chunk length stats.
func (h *IndexInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, h.manifest)
}
