// Package container wires configuration into the runtime objects shared by
// the API server and the CLI.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"patriotpilot/internal/config"
	"patriotpilot/internal/corpus"
	"patriotpilot/internal/indexer"
	"patriotpilot/internal/llm"
	"patriotpilot/internal/normalizer"
	"patriotpilot/internal/rag"
	"patriotpilot/internal/retrieval"
	"patriotpilot/internal/service"
	"patriotpilot/internal/storage"
	"patriotpilot/internal/vectorstore"
)

// Container holds the long-lived clients built from one Config.
type Container struct {
	Config    *config.Config
	Store     storage.PairStore
	Embedder  *llm.EmbeddingsClient
	Generator *llm.Client

	// VectorStore is nil unless QDRANT_URL is set.
	VectorStore vectorstore.VectorStore

	logger  *slog.Logger
	closers []io.Closer
}

// New opens the pair store and builds the embedding and generation clients.
// The Qdrant client is created only when QDRANT_URL is set.
func New(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{Config: cfg, logger: logger}

	store, err := c.openStore()
	if err != nil {
		return nil, err
	}
	c.Store = store

	if cfg.QdrantURL != "" {
		qs, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		c.closers = append(c.closers, qs)
		c.VectorStore = qs
	}

	embedOpts := llm.Options{MaxRetries: cfg.EmbeddingMaxRetries, RequestTimeout: cfg.EmbedTimeout}
	c.Embedder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDim, embedOpts).
		WithRateLimit(cfg.EmbeddingRPS, cfg.EmbeddingConcurrency)

	genOpts := llm.Options{MaxRetries: cfg.LLMMaxRetries, RequestTimeout: cfg.GenerateTimeout}
	c.Generator = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.LLMMaxTokens, genOpts)

	return c, nil
}

func (c *Container) openStore() (storage.PairStore, error) {
	cfg := c.Config
	if cfg.StoreBackend != config.StoreBackendSQLite {
		c.logger.Debug("using file store", "index", cfg.IndexPath, "metadata", cfg.MetadataPath)
		return storage.NewFileStore(cfg.IndexPath, cfg.MetadataPath), nil
	}

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	c.closers = append(c.closers, db)
	c.logger.Debug("using sqlite store", "path", cfg.DBPath)
	return storage.NewSQLiteStore(db), nil
}

// Close releases the database and Qdrant connections.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// TokenCounter returns the tiktoken counter, or nil when its encoding cannot
// be loaded. Callers that only use it for stats tolerate nil.
func (c *Container) TokenCounter() *llm.TokenCounter {
	tc, err := llm.NewTokenCounter(llm.DefaultEncoding)
	if err != nil {
		c.logger.Warn("token counter unavailable", "encoding", llm.DefaultEncoding, "error", err)
		return nil
	}
	return tc
}

// Pipeline builds the indexing pipeline over DATA_DIR. mirror selects whether
// the build is also written to Qdrant.
func (c *Container) Pipeline(mirror bool) (*indexer.Pipeline, error) {
	cfg := c.Config
	var mirrorStore vectorstore.VectorStore
	if mirror {
		if c.VectorStore == nil {
			return nil, errors.New("QDRANT_URL must be set to mirror the index")
		}
		mirrorStore = c.VectorStore
	}

	opts := indexer.BuilderOptions{
		Dimension:   cfg.EmbeddingDim,
		BatchSize:   cfg.EmbeddingBatchSize,
		Concurrency: cfg.EmbeddingConcurrency,
		ChunkSize:   cfg.ChunkSize,
	}
	if tc := c.TokenCounter(); tc != nil {
		opts.Tokens = tc
	}

	return indexer.NewPipeline(
		corpus.NewScanner(cfg.DataDir),
		normalizer.New(cfg.ChunkSize),
		indexer.NewBuilder(c.Embedder, opts),
		c.Store,
		mirrorStore,
		cfg.QdrantCollection,
	), nil
}

// LoadSnapshot loads the persisted pair and verifies it against the configured
// embedding dimension. When queries go to Qdrant the collection must hold one
// point per chunk, all written by the loaded build. Every failure is ErrIndexLoad.
func (c *Container) LoadSnapshot(ctx context.Context) (*storage.Snapshot, error) {
	snap, err := c.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := snap.Validate(c.Config.EmbeddingDim); err != nil {
		return nil, err
	}

	if c.Config.SearchBackend == config.SearchBackendQdrant {
		if c.VectorStore == nil {
			return nil, fmt.Errorf("%w: qdrant search backend without a Qdrant client", service.ErrIndexLoad)
		}
		if err := vectorstore.CheckSync(ctx, c.VectorStore, c.Config.QdrantCollection, snap.Manifest.BuildID, len(snap.Chunks)); err != nil {
			return nil, service.WrapError(service.Classify(service.ErrIndexLoad, err), "qdrant collection does not match the loaded index")
		}
	}

	c.logger.Info("index loaded",
		"build_id", snap.Manifest.BuildID,
		"chunks", len(snap.Chunks),
		"dimension", snap.Index.Dim(),
		"search_backend", c.Config.SearchBackend,
	)
	return snap, nil
}

// Searcher returns the configured search backend over snap.
func (c *Container) Searcher(snap *storage.Snapshot) retrieval.Searcher {
	if c.Config.SearchBackend == config.SearchBackendQdrant && c.VectorStore != nil {
		return retrieval.NewQdrantSearcher(c.VectorStore, c.Config.QdrantCollection)
	}
	return retrieval.NewLocalSearcher(snap.Index)
}

// Budget returns the context budget in the configured unit. Token budgets fall
// back to characters when the encoding cannot be loaded.
func (c *Container) Budget() rag.Budget {
	cfg := c.Config
	if cfg.ContextBudgetUnit == config.BudgetUnitTokens {
		if tc := c.TokenCounter(); tc != nil {
			return rag.TokenBudget{Max: cfg.MaxContextLength, Counter: tc}
		}
		c.logger.Warn("falling back to character budget")
	}
	return rag.CharBudget{Max: cfg.MaxContextLength}
}

// RetrievalService builds the query-time service over a loaded snapshot.
func (c *Container) RetrievalService(snap *storage.Snapshot) *rag.Service {
	cfg := c.Config
	retriever := retrieval.NewRetriever(c.Embedder, c.Searcher(snap), snap.Chunks, snap.Index.Dim())
	return rag.NewService(retriever, c.Generator, rag.NewAssembler(c.Budget()), rag.Options{
		Policy:          retrieval.PolicyKind(cfg.RetrievalPolicy),
		K:               cfg.TopK,
		Threshold:       cfg.SimilarityThreshold,
		MaxInflight:     cfg.MaxInflight,
		AdmissionWait:   rag.DefaultAdmissionWait,
		EmbedTimeout:    cfg.EmbedTimeout,
		GenerateTimeout: cfg.GenerateTimeout,
	})
}

// ChatService builds the ungrounded chat service.
func (c *Container) ChatService() service.ChatService {
	return service.NewChatService(c.Generator)
}

// Ping checks that the embedding and generation services answer.
func (c *Container) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.Embedder.Ping(ctx); err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}
	if err := c.Generator.Ping(ctx); err != nil {
		return fmt.Errorf("LLM service: %w", err)
	}
	return nil
}
