package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"patriotpilot/internal/handlers"
	"patriotpilot/internal/service"
	"patriotpilot/internal/storage"
	"patriotpilot/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	RetrievalService handlers.RetrievalService
	ChatService      service.ChatService
	Chunks           handlers.ChunkSource
	Manifest         storage.Manifest

	// VectorStore is nil unless queries are served from Qdrant.
	VectorStore    vectorstore.VectorStore
	CollectionName string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.RetrievalService)
	retrieveHandler := handlers.NewRetrieveHandler(deps.RetrievalService)
	chatHandler := handlers.NewChatHandler(deps.ChatService)
	chunkHandler := handlers.NewChunkHandler(deps.Chunks)
	indexHandler := handlers.NewIndexInfoHandler(deps.Manifest)
	healthHandler := handlers.NewHealthHandler(deps.Manifest, deps.VectorStore, deps.CollectionName)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/v1", func(r chi.Router) {
			r.Method(http.MethodPost, "/ask", askHandler)
			r.Method(http.MethodPost, "/retrieve", retrieveHandler)
			r.Method(http.MethodPost, "/chat", chatHandler)
			r.Method(http.MethodGet, "/chunks/{ordinal}", chunkHandler)
			r.Method(http.MethodGet, "/index", indexHandler)
		})
	})

	return r
}
