package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"patriotpilot/internal/contextutil"
)

// upsertBatchSize caps the number of points sent in one Upsert call.
const upsertBatchSize = 256

// QdrantStore implements VectorStore using Qdrant with Euclidean distance.
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr string) (*QdrantStore, error) {
	host, port, err := grpcAddress(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client: client,
	}, nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// grpcAddress derives the gRPC host and port from the Qdrant HTTP URL.
func grpcAddress(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err != nil {
			return "", 0, fmt.Errorf("invalid Qdrant port %q: %w", parsedURL.Port(), err)
		}
		// gRPC port is typically HTTP port + 1
		port = httpPort + 1
	}
	return host, port, nil
}

// buildIDField is the payload key holding the build that wrote a point.
const buildIDField = "build_id"

// Replace drops and recreates the collection, then upserts points in batches.
func (s *QdrantStore) Replace(ctx context.Context, collection, buildID string, dim int, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if dim <= 0 {
		return fmt.Errorf("vector size must be positive, got %d", dim)
	}
	if buildID == "" {
		return fmt.Errorf("build id must not be empty")
	}
	for _, p := range points {
		if len(p.Vec) != dim {
			return fmt.Errorf("point %d has dimension %d, expected %d", p.Ordinal, len(p.Vec), dim)
		}
	}

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, collection); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}

	logger.InfoContext(ctx, "creating collection", "collection", collection, "vector_size", dim)
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	for batch := range slices.Chunk(points, upsertBatchSize) {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         toPointStructs(buildID, batch),
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to upsert points", "collection", collection, "count", len(batch), "error", err)
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}

	logger.InfoContext(ctx, "collection replaced", "collection", collection, "build_id", buildID, "count", len(points))
	return nil
}

// Nearest performs an exact k-nearest search.
func (s *QdrantStore) Nearest(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	return s.query(ctx, collection, query, uint64(k), nil)
}

// Within returns all points within maxDistance of query. The limit is the
// collection size so no qualifying point is cut off.
func (s *QdrantStore) Within(ctx context.Context, collection string, query []float32, maxDistance float64) ([]SearchResult, error) {
	if maxDistance < 0 {
		return nil, fmt.Errorf("max distance must not be negative")
	}
	n, err := s.Count(ctx, collection)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []SearchResult{}, nil
	}
	return s.query(ctx, collection, query, uint64(n), qdrant.PtrOf(float32(maxDistance)))
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(n), nil
}

// CountBuild returns the exact number of points whose payload carries buildID.
func (s *QdrantStore) CountBuild(ctx context.Context, collection, buildID string) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(buildIDField, buildID)},
		},
		Exact: qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points for build %s: %w", buildID, err)
	}
	return int(n), nil
}

func (s *QdrantStore) query(ctx context.Context, collection string, query []float32, limit uint64, threshold *float32) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		ScoreThreshold: threshold,
		Params:         &qdrant.SearchParams{Exact: qdrant.PtrOf(true)},
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", collection, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := fromScoredPoints(scoredPoints)
	logger.DebugContext(ctx, "search completed", "collection", collection, "limit", limit, "results", len(results))
	return results, nil
}

func toPointStructs(buildID string, points []Point) []*qdrant.PointStruct {
	out := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		out = append(out, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(p.Ordinal)),
			Vectors: qdrant.NewVectors(p.Vec...),
			Payload: qdrant.NewValueMap(map[string]any{"ordinal": p.Ordinal, buildIDField: buildID}),
		})
	}
	return out
}

// fromScoredPoints converts Qdrant hits and orders them by distance, then
// ordinal, matching the local index.
func fromScoredPoints(points []*qdrant.ScoredPoint) []SearchResult {
	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		if p.GetId() == nil {
			continue
		}
		results = append(results, SearchResult{
			Ordinal:  int(p.GetId().GetNum()),
			Distance: float64(p.GetScore()),
		})
	}
	slices.SortStableFunc(results, func(a, b SearchResult) int {
		if a.Distance != b.Distance {
			if a.Distance < b.Distance {
				return -1
			}
			return 1
		}
		return a.Ordinal - b.Ordinal
	})
	return results
}
