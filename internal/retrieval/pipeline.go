package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/gmail-ai-agent/internal/gmail"
	"github.com/teemow/gmail-ai-agent/internal/llm"
	"github.com/teemow/gmail-ai-agent/internal/logging"
	"github.com/teemow/gmail-ai-agent/internal/vectorstore"
)

// DefaultCollection is the vector collection holding email chunks.
const DefaultCollection = "emails"

// Recorder receives one observation per vector store operation.
type Recorder interface {
	RecordVectorOperation(ctx context.Context, operation, status string, duration time.Duration)
}

// Pipeline indexes and searches email chunks.
type Pipeline struct {
	splitter   Splitter
	embedder   llm.Embedder
	store      vectorstore.Store
	collection string
	recorder   Recorder
	logger     logging.Logger
	newID      func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSplitter overrides the chunking parameters.
func WithSplitter(s Splitter) Option {
	return func(p *Pipeline) { p.splitter = s }
}

// WithCollection overrides the collection name.
func WithCollection(name string) Option {
	return func(p *Pipeline) { p.collection = name }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a Pipeline over embedder and store.
func NewPipeline(embedder llm.Embedder, store vectorstore.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		splitter:   NewSplitter(),
		embedder:   embedder,
		store:      store,
		collection: DefaultCollection,
		logger:     logging.NewSlogAdapter(nil),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Chunks splits one email into chunks. Each email is split on its own so no
// chunk mixes content from two emails.
func (p *Pipeline) Chunks(e gmail.Email) []Chunk {
	md := MetadataFor(e)
	parts := p.splitter.Split(FormatDocument(e))
	chunks := make([]Chunk, 0, len(parts))
	for _, part := range parts {
		chunks = append(chunks, Chunk{Content: part, Metadata: md})
	}
	return chunks
}

// Index chunks, embeds and stores emails. It returns the number of chunks
// written. Chunk ids are random, so indexing the same email twice stores it
// twice.
func (p *Pipeline) Index(ctx context.Context, emails []gmail.Email) (int, error) {
	var chunks []Chunk
	for _, e := range emails {
		chunks = append(chunks, p.Chunks(e)...)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.Record{
			ID:        p.newID(),
			Content:   c.Content,
			Metadata:  c.Metadata.toMap(),
			Embedding: vectors[i],
		}
	}

	start := time.Now()
	err = p.store.Upsert(ctx, p.collection, records)
	p.record(ctx, "upsert", err, start)
	if err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	p.logger.Info("indexed emails",
		logging.Collection(p.collection),
		"emails", len(emails),
		logging.Count(len(records)))
	return len(records), nil
}

// Search returns at most k chunks nearest to query, in store order.
func (p *Pipeline) Search(ctx context.Context, query string, k int) ([]Chunk, error) {
	if k <= 0 {
		return []Chunk{}, nil
	}

	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	start := time.Now()
	matches, err := p.store.Query(ctx, p.collection, vectors[0], k)
	p.record(ctx, "query", err, start)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	if len(matches) > k {
		matches = matches[:k]
	}
	chunks := make([]Chunk, 0, len(matches))
	for _, m := range matches {
		chunks = append(chunks, Chunk{Content: m.Content, Metadata: metadataFromMap(m.Metadata)})
	}
	return chunks, nil
}

func (p *Pipeline) record(ctx context.Context, operation string, err error, start time.Time) {
	if p.recorder == nil {
		return
	}
	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
	}
	p.recorder.RecordVectorOperation(ctx, operation, status, time.Since(start))
}
