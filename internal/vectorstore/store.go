package vectorstore

import (
	"context"
	"fmt"
	"math"
)

// Record is a single indexed chunk.
type Record struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Match is a query result. Lower Distance is closer.
type Match struct {
	ID       string
	Content  string
	Metadata map[string]string
	Distance float64
}

// Store is a collection-scoped vector index.
type Store interface {
	// Upsert adds or replaces records in collection.
	Upsert(ctx context.Context, collection string, records []Record) error
	// Query returns at most k records nearest to vector, closest first.
	Query(ctx context.Context, collection string, vector []float32, k int) ([]Match, error)
	// Close releases backend resources.
	Close() error
}

// Backend names accepted by New.
const (
	BackendChroma   = "chroma"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Backend     string
	ChromaURL   string
	DatabaseURL string

	// ChromaAPIVersion selects the Chroma REST API; see ChromaConfig.
	ChromaAPIVersion string
	ChromaTenant     string
	ChromaDatabase   string
}

// New creates the Store named by cfg.Backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendChroma, "":
		return NewChromaStore(ChromaConfig{
			URL:        cfg.ChromaURL,
			APIVersion: cfg.ChromaAPIVersion,
			Tenant:     cfg.ChromaTenant,
			Database:   cfg.ChromaDatabase,
		})
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.Backend)
	}
}

// cosineDistance returns 1 - cos(a, b). Mismatched or zero vectors are
// maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
