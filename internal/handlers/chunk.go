package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"patriotpilot/internal/contextutil"
)

// ChunkSource looks up chunk text by ordinal. Implemented by *storage.Snapshot.
type ChunkSource interface {
	Chunk(ordinal int) (string, bool)
}

// ChunkHandler serves single chunks by ordinal.
type ChunkHandler struct {
	chunks ChunkSource
}

// NewChunkHandler creates a new ChunkHandler.
func NewChunkHandler(chunks ChunkSource) *ChunkHandler {
	return &ChunkHandler{chunks: chunks}
}

// ChunkResponse is one stored chunk.
//
// swagger:model ChunkResponse
type ChunkResponse struct {
	Ordinal int    `json:"ordinal"`
	Text    string `json:"text"`
}

// ServeHTTP returns the chunk named by the {ordinal} path parameter.
//
// swagger:route GET /api/v1/chunks/{ordinal} getChunk
//
// # Get a chunk
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/ChunkResponse"
//	'400':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'404':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *ChunkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	raw := chi.URLParam(r, "ordinal")
	ordinal, err := strconv.Atoi(raw)
	if err != nil {
		logger.WarnContext(ctx, "invalid chunk ordinal", "ordinal", raw)
		writeError(w, http.StatusBadRequest, "Ordinal must be an integer")
		return
	}

	text, ok := h.chunks.Chunk(ordinal)
	if !ok {
		writeError(w, http.StatusNotFound, "Chunk not found")
		return
	}

	writeJSON(ctx, w, ChunkResponse{Ordinal: ordinal, Text: text})
}
