package retrieval

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmail-ai-agent/internal/gmail"
	"github.com/teemow/gmail-ai-agent/internal/logging"
	"github.com/teemow/gmail-ai-agent/internal/vectorstore"
)

// bagOfWords embeds text as hashed word counts so related texts land close
// together without a model.
type bagOfWords struct {
	calls int
	err   error
}

func (b *bagOfWords) Embed(_ context.Context, texts []string) ([][]float32, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 64)
		for _, w := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			vec[h.Sum32()%64]++
		}
		out[i] = vec
	}
	return out, nil
}

type opRecorder struct {
	ops []string
}

func (r *opRecorder) RecordVectorOperation(_ context.Context, op, status string, _ time.Duration) {
	r.ops = append(r.ops, op+":"+status)
}

func testEmails() []gmail.Email {
	return []gmail.Email{
		{ID: "fatura", Subject: "Fatura de energia", Sender: "conta@luz.com", Body: "Sua fatura de energia vence amanhã", Labels: []string{"INBOX"}},
		{ID: "reuniao", Subject: "Reunião de projeto", Sender: "chefe@empresa.com", Body: "Reunião sobre o projeto na sexta", Labels: []string{"INBOX", "IMPORTANT"}},
		{ID: "viagem", Subject: "Reserva de hotel", Sender: "hotel@viagem.com", Body: "Sua reserva de hotel está confirmada", Labels: []string{"INBOX", "UNREAD"}},
	}
}

func TestFormatDocument(t *testing.T) {
	doc := FormatDocument(gmail.Email{
		Subject: "Oi",
		Sender:  "ana@example.com",
		Date:    "Mon, 1 Jan 2024",
		Body:    "corpo",
		Snippet: "trecho",
		Labels:  []string{"INBOX", "UNREAD"},
	})

	assert.Equal(t, "Assunto: Oi\nRemetente: ana@example.com\nData: Mon, 1 Jan 2024\nConteúdo: corpo\nSnippet: trecho\nLabels: INBOX, UNREAD", doc)
}

func TestMetadataMapRoundTrip(t *testing.T) {
	md := Metadata{EmailID: "a", Subject: "s", Sender: "x", Date: "d", Labels: []string{"INBOX", "UNREAD"}}
	assert.Equal(t, md, metadataFromMap(md.toMap()))

	empty := Metadata{EmailID: "b", Labels: []string{}}
	assert.Equal(t, empty, metadataFromMap(empty.toMap()))
}

func TestPipeline_IndexAndSearch(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	rec := &opRecorder{}
	p := NewPipeline(&bagOfWords{}, store, WithRecorder(rec), WithLogger(logging.Discard()))
	ctx := context.Background()

	n, err := p.Index(ctx, testEmails())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, store.Len(DefaultCollection))

	chunks, err := p.Search(ctx, "reunião projeto sexta", 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "reuniao", chunks[0].Metadata.EmailID)
	assert.Equal(t, []string{"INBOX", "IMPORTANT"}, chunks[0].Metadata.Labels)

	assert.Equal(t, []string{"upsert:success", "query:success"}, rec.ops)
}

func TestPipeline_SearchNeverExceedsK(t *testing.T) {
	p := NewPipeline(&bagOfWords{}, vectorstore.NewMemoryStore(),
		WithSplitter(Splitter{ChunkSize: 40, ChunkOverlap: 10}),
		WithLogger(logging.Discard()))
	ctx := context.Background()

	indexed := map[string]bool{}
	emails := testEmails()[:2]
	for _, e := range emails {
		indexed[e.ID] = true
	}
	n, err := p.Index(ctx, emails)
	require.NoError(t, err)
	require.Greater(t, n, 2)

	for _, k := range []int{0, 1, 2, 5, 100} {
		chunks, err := p.Search(ctx, "hotel reserva confirmada", k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(chunks), k)
		for _, c := range chunks {
			assert.True(t, indexed[c.Metadata.EmailID], "unexpected email %s", c.Metadata.EmailID)
		}
	}
}

func TestPipeline_ChunkingIdempotent(t *testing.T) {
	p := NewPipeline(&bagOfWords{}, vectorstore.NewMemoryStore(),
		WithSplitter(Splitter{ChunkSize: 50, ChunkOverlap: 10}))

	e := testEmails()[0]
	e.Body = strings.Repeat("energia elétrica residencial ", 20)

	first := p.Chunks(e)
	second := p.Chunks(e)
	assert.Equal(t, first, second)
	for _, c := range first {
		assert.Equal(t, e.ID, c.Metadata.EmailID)
	}
}

func TestPipeline_DuplicateIndexStoresTwice(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	p := NewPipeline(&bagOfWords{}, store, WithLogger(logging.Discard()))
	ctx := context.Background()

	_, err := p.Index(ctx, testEmails()[:1])
	require.NoError(t, err)
	_, err = p.Index(ctx, testEmails()[:1])
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len(DefaultCollection))
}

func TestPipeline_Errors(t *testing.T) {
	ctx := context.Background()

	emb := &bagOfWords{err: errors.New("quota")}
	p := NewPipeline(emb, vectorstore.NewMemoryStore(), WithLogger(logging.Discard()))

	_, err := p.Index(ctx, testEmails())
	assert.ErrorContains(t, err, "quota")

	_, err = p.Search(ctx, "x", 3)
	assert.ErrorContains(t, err, "quota")

	n, err := p.Index(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	calls := emb.calls
	chunks, err := p.Search(ctx, "x", 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, calls, emb.calls, "k <= 0 must not call the embedder")
}
