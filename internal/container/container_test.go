package container

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"patriotpilot/internal/config"
	"patriotpilot/internal/rag"
	"patriotpilot/internal/retrieval"
	"patriotpilot/internal/service"
	"patriotpilot/internal/storage"
	"patriotpilot/internal/vectorindex"
	vsmocks "patriotpilot/internal/vectorstore/mocks"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataDir:            filepath.Join(dir, "records"),
		StoreBackend:       backend,
		IndexPath:          filepath.Join(dir, "index.bin"),
		MetadataPath:       filepath.Join(dir, "metadata.json"),
		DBPath:             filepath.Join(dir, "pilot.db"),
		QdrantCollection:   "chunks",
		SearchBackend:      config.SearchBackendLocal,
		EmbeddingBaseURL:   "http://localhost:8081",
		EmbeddingModelName: "e5-large-v2",
		EmbeddingDim:       2,
		EmbeddingBatchSize: 8,
		LLMBaseURL:         "http://localhost:8080",
		LLMModelName:       "test-model",
		LLMAPIKey:          "dummy-key",
		LLMMaxTokens:       50,
		ChunkSize:          512,
		RetrievalPolicy:    config.PolicyTopK,
		TopK:               3,
		MaxContextLength:   512,
		ContextBudgetUnit:  config.BudgetUnitChars,
		MaxInflight:        2,
		EmbedTimeout:       time.Second,
		GenerateTimeout:    time.Second,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func saveSnapshot(t *testing.T, store storage.PairStore, chunks []string) {
	t.Helper()
	index, err := vectorindex.NewFlat(2)
	if err != nil {
		t.Fatal(err)
	}
	for i := range chunks {
		vec := []float32{float32(i + 1), 1}
		if err := index.Add(vectorindex.Normalize(vec)); err != nil {
			t.Fatal(err)
		}
	}
	snap := &storage.Snapshot{
		Index:  index,
		Chunks: chunks,
		Manifest: storage.Manifest{
			BuildID:    "build-1",
			Dimension:  2,
			ChunkCount: len(chunks),
			Metric:     storage.MetricL2Normalized,
			CreatedAt:  time.Now().UTC(),
		},
	}
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func TestNew_StoreBackends(t *testing.T) {
	tests := []struct {
		backend string
		check   func(storage.PairStore) bool
	}{
		{config.StoreBackendFile, func(s storage.PairStore) bool { _, ok := s.(*storage.FileStore); return ok }},
		{config.StoreBackendSQLite, func(s storage.PairStore) bool { _, ok := s.(*storage.SQLiteStore); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			c, err := New(testConfig(t, tt.backend), quietLogger())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer func() { _ = c.Close() }()

			if !tt.check(c.Store) {
				t.Errorf("Store = %T", c.Store)
			}
			if c.VectorStore != nil {
				t.Error("VectorStore should be nil without QDRANT_URL")
			}
			if c.Embedder.Dimension() != 2 {
				t.Errorf("Embedder.Dimension() = %d, want 2", c.Embedder.Dimension())
			}
		})
	}
}

func TestLoadSnapshot(t *testing.T) {
	for _, backend := range []string{config.StoreBackendFile, config.StoreBackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			c, err := New(testConfig(t, backend), quietLogger())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer func() { _ = c.Close() }()

			saveSnapshot(t, c.Store, []string{"a", "b", "c"})

			snap, err := c.LoadSnapshot(context.Background())
			if err != nil {
				t.Fatalf("LoadSnapshot() error = %v", err)
			}
			if len(snap.Chunks) != 3 || snap.Index.Len() != 3 {
				t.Errorf("loaded %d chunks, %d vectors", len(snap.Chunks), snap.Index.Len())
			}
		})
	}
}

func TestLoadSnapshot_DimensionMismatch(t *testing.T) {
	cfg := testConfig(t, config.StoreBackendFile)
	c, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	saveSnapshot(t, c.Store, []string{"a"})

	cfg.EmbeddingDim = 1024
	_, err = c.LoadSnapshot(context.Background())
	if !errors.Is(err, service.ErrIndexLoad) {
		t.Errorf("LoadSnapshot() error = %v, want ErrIndexLoad", err)
	}
}

func TestLoadSnapshot_MissingPair(t *testing.T) {
	c, err := New(testConfig(t, config.StoreBackendFile), quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.LoadSnapshot(context.Background()); !errors.Is(err, service.ErrIndexLoad) {
		t.Errorf("LoadSnapshot() error = %v, want ErrIndexLoad", err)
	}
}

func TestLoadSnapshot_QdrantSync(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*vsmocks.MockVectorStore)
		wantErr bool
	}{
		{
			name: "in sync",
			setup: func(m *vsmocks.MockVectorStore) {
				m.EXPECT().Count(gomock.Any(), "chunks").Return(2, nil)
				m.EXPECT().CountBuild(gomock.Any(), "chunks", "build-1").Return(2, nil)
			},
		},
		{
			name: "fewer points",
			setup: func(m *vsmocks.MockVectorStore) {
				m.EXPECT().Count(gomock.Any(), "chunks").Return(1, nil)
			},
			wantErr: true,
		},
		{
			name: "same count from a previous build",
			setup: func(m *vsmocks.MockVectorStore) {
				m.EXPECT().Count(gomock.Any(), "chunks").Return(2, nil)
				m.EXPECT().CountBuild(gomock.Any(), "chunks", "build-1").Return(0, nil)
			},
			wantErr: true,
		},
		{
			name: "count fails",
			setup: func(m *vsmocks.MockVectorStore) {
				m.EXPECT().Count(gomock.Any(), "chunks").Return(0, errors.New("unavailable"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			cfg := testConfig(t, config.StoreBackendFile)
			cfg.SearchBackend = config.SearchBackendQdrant
			c, err := New(cfg, quietLogger())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			saveSnapshot(t, c.Store, []string{"a", "b"})

			store := vsmocks.NewMockVectorStore(ctrl)
			tt.setup(store)
			c.VectorStore = store

			_, err = c.LoadSnapshot(context.Background())
			if tt.wantErr {
				if !errors.Is(err, service.ErrIndexLoad) {
					t.Errorf("LoadSnapshot() error = %v, want ErrIndexLoad", err)
				}
				return
			}
			if err != nil {
				t.Errorf("LoadSnapshot() error = %v", err)
			}
		})
	}
}

func TestSearcherSelection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig(t, config.StoreBackendFile)
	c, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	index, _ := vectorindex.NewFlat(2)
	snap := &storage.Snapshot{Index: index}

	if _, ok := c.Searcher(snap).(*retrieval.LocalSearcher); !ok {
		t.Error("local backend should search the in-process index")
	}

	cfg.SearchBackend = config.SearchBackendQdrant
	c.VectorStore = vsmocks.NewMockVectorStore(ctrl)
	if _, ok := c.Searcher(snap).(*retrieval.QdrantSearcher); !ok {
		t.Error("qdrant backend should search the collection")
	}
}

func TestBudget_Chars(t *testing.T) {
	c, err := New(testConfig(t, config.StoreBackendFile), quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	budget, ok := c.Budget().(rag.CharBudget)
	if !ok || budget.Max != 512 {
		t.Errorf("Budget() = %#v, want CharBudget{Max: 512}", c.Budget())
	}
}

func TestPipeline_MirrorRequiresQdrant(t *testing.T) {
	c, err := New(testConfig(t, config.StoreBackendFile), quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Pipeline(true); err == nil {
		t.Error("Pipeline(true) without QDRANT_URL should fail")
	}
}

func TestNew_RetryBudgets(t *testing.T) {
	var embedCalls, chatCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/embeddings" {
			embedCalls.Add(1)
		} else {
			chatCalls.Add(1)
		}
		w.Header().Set("Retry-After-Ms", "1")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig(t, config.StoreBackendFile)
	cfg.EmbeddingBaseURL = server.URL
	cfg.LLMBaseURL = server.URL
	cfg.EmbeddingMaxRetries = 0
	cfg.LLMMaxRetries = 2
	c, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	if _, err := c.Embedder.Embed(ctx, "query"); err == nil {
		t.Error("Embed() against a failing server should return error")
	}
	if _, err := c.Generator.Generate(ctx, "prompt"); err == nil {
		t.Error("Generate() against a failing server should return error")
	}

	if n := embedCalls.Load(); n != 1 {
		t.Errorf("embedding requests = %d, want 1", n)
	}
	if n := chatCalls.Load(); n != 3 {
		t.Errorf("chat requests = %d, want 3", n)
	}
}
