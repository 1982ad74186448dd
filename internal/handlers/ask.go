package handlers

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retrieval_service.go -package=mocks patriotpilot/internal/handlers RetrievalService

import (
	"context"
	"encoding/json"
	"net/http"

	"patriotpilot/internal/contextutil"
	"patriotpilot/internal/rag"
	"patriotpilot/internal/retrieval"
)

// RetrievalService answers grounded questions and ranks chunks.
// Implemented by *rag.Service.
type RetrievalService interface {
	Ask(ctx context.Context, req rag.AskRequest) (rag.AskResponse, error)
	Retrieve(ctx context.Context, req rag.RetrieveRequest) (rag.RetrieveResponse, error)
}

// AskHandler handles HTTP requests for grounded questions.
type AskHandler struct {
	service RetrievalService
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(service RetrievalService) *AskHandler {
	return &AskHandler{service: service}
}

// AskRequest represents the HTTP request payload for asking a question.
//
// swagger:model AskRequest
type AskRequest struct {
	// Question is the question to answer. Required.
	Question string `json:"question"`
	// Policy is the retrieval policy, "topk" or "threshold". Optional; the server default applies.
	Policy string `json:"policy,omitempty"`
	// K is the number of chunks for the topk policy. Optional.
	K int `json:"k,omitempty"`
	// Threshold is the minimum cosine similarity for the threshold policy. Optional.
	Threshold *float64 `json:"threshold,omitempty"`
}

// AskResponse represents the HTTP response payload for a grounded answer.
//
// swagger:model AskResponse
type AskResponse struct {
	// Answer is the generated answer, verbatim.
	Answer string `json:"answer"`
	// Sources lists the chunks the answer was grounded in, best first.
	Sources []SourceResponse `json:"sources"`
	// Policy describes the retrieval policy that was applied.
	Policy string `json:"policy"`
	// ContextLength is the size of the assembled context.
	ContextLength int `json:"context_length"`
}

// SourceResponse is one retrieved chunk.
//
// swagger:model SourceResponse
type SourceResponse struct {
	// Ordinal is the chunk's position in the index.
	Ordinal int `json:"ordinal"`
	// Text is the chunk text.
	Text string `json:"text"`
	// Distance is the Euclidean distance between the normalized query and chunk vectors.
	Distance float64 `json:"distance"`
	// Similarity is the cosine similarity between query and chunk.
	Similarity float64 `json:"similarity"`
}

func toSourceResponses(hits []retrieval.Hit) []SourceResponse {
	out := make([]SourceResponse, 0, len(hits))
	for _, h := range hits {
		out = append(out, SourceResponse{
			Ordinal:    h.Ordinal,
			Text:       h.Text,
			Distance:   h.Distance,
			Similarity: h.Similarity,
		})
	}
	return out
}

// ServeHTTP handles HTTP requests for grounded questions.
//
// Ask a question and get an answer generated from the chunks retrieved for it.
//
// swagger:route POST /api/v1/ask askQuestion
//
// # Ask a question
//
// Embeds the question, retrieves chunks under the requested policy, assembles
// them into a prompt and returns the generated answer with its sources.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// parameters:
//   - in: body
//     name: body
//     required: true
//     schema:
//     "$ref": "#/definitions/AskRequest"
//
// responses:
//
//	'200':
//	  description: Answer with sources
//	  schema:
//	    "$ref": "#/definitions/AskResponse"
//	'400':
//	  description: Bad request (empty question or invalid policy)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding or LLM service error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Too many requests in flight
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.Ask(ctx, rag.AskRequest{
		Question:  req.Question,
		Policy:    req.Policy,
		K:         req.K,
		Threshold: req.Threshold,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to answer question")
		return
	}

	logger.InfoContext(ctx, "question answered", "policy", resp.Policy, "sources", len(resp.Sources))
	writeJSON(ctx, w, AskResponse{
		Answer:        resp.Answer,
		Sources:       toSourceResponses(resp.Sources),
		Policy:        resp.Policy,
		ContextLength: resp.ContextLength,
	})
}
