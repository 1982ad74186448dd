package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"patriotpilot/internal/contextutil"
	"patriotpilot/internal/storage"
	"patriotpilot/internal/vectorstore"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	chunkCount         int
	dimension          int
	buildID            string
	vectorStore        vectorstore.VectorStore
	collectionName     string
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler for the index described by
// manifest. vectorStore may be nil when queries are served from the
// in-process index.
func NewHealthHandler(manifest storage.Manifest, vectorStore vectorstore.VectorStore, collectionName string) *HealthHandler {
	return &HealthHandler{
		chunkCount:         manifest.ChunkCount,
		dimension:          manifest.Dimension,
		buildID:            manifest.BuildID,
		vectorStore:        vectorStore,
		collectionName:     collectionName,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// ChunkCount is the number of chunks in the loaded index
	ChunkCount int `json:"chunk_count"`

	// Dimension is the embedding dimension of the loaded index
	Dimension int `json:"dimension"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// Returns 200 OK if healthy, 503 Service Unavailable otherwise.
//
// swagger:route GET /api/health healthCheck
//
// # Health check endpoint
//
// Reports the loaded index and, when queries go to Qdrant, whether its
// collection still holds one point per chunk.
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: System is healthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: System is unhealthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"index": "ok"}
	var issues []string

	if h.vectorStore != nil {
		if err := h.checkVectorStore(checkCtx, logger); err != nil {
			checks["vector_store"] = "error"
			issues = append(issues, err.Error())
		} else {
			checks["vector_store"] = "ok"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:     status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		ChunkCount: h.chunkCount,
		Dimension:  h.dimension,
		Checks:     checks,
		Issues:     issues,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}

// checkVectorStore verifies the collection holds exactly the points of the
// loaded build.
func (h *HealthHandler) checkVectorStore(ctx context.Context, logger *slog.Logger) error {
	err := vectorstore.CheckSync(ctx, h.vectorStore, h.collectionName, h.buildID, h.chunkCount)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, vectorstore.ErrOutOfSync):
		logger.WarnContext(ctx, "vector store out of sync with index", "collection", h.collectionName, "build_id", h.buildID, "error", err)
		return errors.New("vector_store_out_of_sync")
	default:
		logger.WarnContext(ctx, "vector store health check failed", "error", err)
		return errors.New("vector_store_unavailable")
	}
}
