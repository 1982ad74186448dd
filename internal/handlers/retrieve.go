package handlers

import (
	"encoding/json"
	"net/http"

	"patriotpilot/internal/contextutil"
	"patriotpilot/internal/rag"
)

// RetrieveHandler ranks chunks for a query without generating an answer.
type RetrieveHandler struct {
	service RetrievalService
}

// NewRetrieveHandler creates a new RetrieveHandler.
func NewRetrieveHandler(service RetrievalService) *RetrieveHandler {
	return &RetrieveHandler{service: service}
}

// RetrieveRequest represents the HTTP request payload for retrieval.
//
// swagger:model RetrieveRequest
type RetrieveRequest struct {
	Query     string   `json:"query"`
	Policy    string   `json:"policy,omitempty"`
	K         int      `json:"k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// RetrieveResponse represents ranked chunks.
//
// swagger:model RetrieveResponse
type RetrieveResponse struct {
	Hits   []SourceResponse `json:"hits"`
	Policy string           `json:"policy"`
}

// ServeHTTP handles retrieval requests.
//
// swagger:route POST /api/v1/retrieve retrieveChunks
//
// # Retrieve chunks
//
// Returns the chunks selected for a query under the requested policy, best first.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/RetrieveResponse"
//	'400':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *RetrieveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.Retrieve(ctx, rag.RetrieveRequest{
		Query:     req.Query,
		Policy:    req.Policy,
		K:         req.K,
		Threshold: req.Threshold,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to retrieve chunks")
		return
	}

	writeJSON(ctx, w, RetrieveResponse{
		Hits:   toSourceResponses(resp.Hits),
		Policy: resp.Policy,
	})
}
