package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Chroma REST API versions. v1 is served by Chroma releases before 1.0;
// 1.0 and later only serve v2, which scopes collections by tenant and
// database.
const (
	ChromaAPIv1 = "v1"
	ChromaAPIv2 = "v2"

	DefaultChromaTenant   = "default_tenant"
	DefaultChromaDatabase = "default_database"
)

// ChromaStore implements Store against the Chroma REST API.
type ChromaStore struct {
	baseURL     string
	apiRoot     string // e.g. "/api/v1"
	collections string // collection routes prefix
	httpClient  *http.Client

	mu  sync.Mutex
	ids map[string]string // collection name -> collection id
}

var _ Store = (*ChromaStore)(nil)

// ChromaConfig holds configuration for the Chroma store.
type ChromaConfig struct {
	URL     string // e.g., "http://localhost:8001"
	Timeout time.Duration

	// APIVersion is ChromaAPIv1 (default) or ChromaAPIv2.
	APIVersion string
	// Tenant and Database scope v2 collections. Ignored for v1.
	Tenant   string
	Database string

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// NewChromaStore creates a Chroma-backed store. Collections are created
// lazily on first use.
func NewChromaStore(cfg ChromaConfig) (*ChromaStore, error) {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:8001"
	}
	if cfg.Tenant == "" {
		cfg.Tenant = DefaultChromaTenant
	}
	if cfg.Database == "" {
		cfg.Database = DefaultChromaDatabase
	}

	var apiRoot, collections string
	switch cfg.APIVersion {
	case ChromaAPIv1, "":
		apiRoot = "/api/v1"
		collections = apiRoot + "/collections"
	case ChromaAPIv2:
		apiRoot = "/api/v2"
		collections = apiRoot + "/tenants/" + url.PathEscape(cfg.Tenant) +
			"/databases/" + url.PathEscape(cfg.Database) + "/collections"
	default:
		return nil, fmt.Errorf("unsupported chroma API version %q", cfg.APIVersion)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &ChromaStore{
		baseURL:     strings.TrimSuffix(cfg.URL, "/"),
		apiRoot:     apiRoot,
		collections: collections,
		httpClient:  client,
		ids:         map[string]string{},
	}, nil
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type chromaAddRequest struct {
	IDs        []string            `json:"ids"`
	Embeddings [][]float32         `json:"embeddings"`
	Documents  []string            `json:"documents"`
	Metadatas  []map[string]string `json:"metadatas"`
}

type chromaQueryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

type chromaQueryResponse struct {
	IDs       [][]string            `json:"ids"`
	Documents [][]string            `json:"documents"`
	Metadatas [][]map[string]string `json:"metadatas"`
	Distances [][]float64           `json:"distances"`
}

// post sends body as JSON to path and decodes the response into out.
func (s *ChromaStore) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chroma request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chroma %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode chroma response: %w", err)
	}
	return nil
}

// collectionID resolves (and creates if needed) the collection id for name.
func (s *ChromaStore) collectionID(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	id, ok := s.ids[name]
	s.mu.Unlock()
	if ok {
		return id, nil
	}

	var col chromaCollection
	err := s.post(ctx, s.collections, map[string]any{
		"name":          name,
		"get_or_create": true,
		"metadata":      map[string]string{"hnsw:space": "cosine"},
	}, &col)
	if err != nil {
		return "", fmt.Errorf("failed to get or create collection %s: %w", name, err)
	}
	if col.ID == "" {
		return "", fmt.Errorf("chroma returned no id for collection %s", name)
	}

	s.mu.Lock()
	s.ids[name] = col.ID
	s.mu.Unlock()
	return col.ID, nil
}

// Upsert adds records to the collection.
func (s *ChromaStore) Upsert(ctx context.Context, collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	id, err := s.collectionID(ctx, collection)
	if err != nil {
		return err
	}

	req := chromaAddRequest{
		IDs:        make([]string, len(records)),
		Embeddings: make([][]float32, len(records)),
		Documents:  make([]string, len(records)),
		Metadatas:  make([]map[string]string, len(records)),
	}
	for i, r := range records {
		req.IDs[i] = r.ID
		req.Embeddings[i] = r.Embedding
		req.Documents[i] = r.Content
		req.Metadatas[i] = r.Metadata
	}

	if err := s.post(ctx, s.collections+"/"+id+"/upsert", req, nil); err != nil {
		return fmt.Errorf("failed to upsert records: %w", err)
	}
	return nil
}

// Query returns up to k nearest records.
func (s *ChromaStore) Query(ctx context.Context, collection string, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}
	id, err := s.collectionID(ctx, collection)
	if err != nil {
		return nil, err
	}

	var resp chromaQueryResponse
	err = s.post(ctx, s.collections+"/"+id+"/query", chromaQueryRequest{
		QueryEmbeddings: [][]float32{vector},
		NResults:        k,
		Include:         []string{"documents", "metadatas", "distances"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}

	if len(resp.IDs) == 0 {
		return []Match{}, nil
	}

	ids := resp.IDs[0]
	matches := make([]Match, 0, len(ids))
	for i, mid := range ids {
		m := Match{ID: mid}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			m.Content = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			m.Metadata = resp.Metadatas[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			m.Distance = resp.Distances[0][i]
		}
		matches = append(matches, m)
	}

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Heartbeat checks that the Chroma server is reachable.
func (s *ChromaStore) Heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+s.apiRoot+"/heartbeat", nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chroma heartbeat failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chroma heartbeat returned %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections.
func (s *ChromaStore) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
