package retrieval

import (
	"strings"
	"unicode/utf8"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order, coarsest first.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter recursively splits text into chunks of at most ChunkSize
// characters, with roughly ChunkOverlap characters shared between
// consecutive chunks. It is deterministic: identical input always yields
// identical chunk boundaries.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewSplitter returns a Splitter with the default parameters.
func NewSplitter() Splitter {
	return Splitter{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		Separators:   DefaultSeparators,
	}
}

// Split divides text into chunks.
func (s Splitter) Split(text string) []string {
	if s.ChunkSize <= 0 {
		s.ChunkSize = DefaultChunkSize
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		s.ChunkOverlap = 0
	}
	seps := s.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	return s.split(text, seps)
}

func (s Splitter) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, candidate := range seps {
		if candidate == "" {
			sep = candidate
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	var chunks, good []string
	for _, piece := range strings.Split(text, sep) {
		if piece == "" {
			continue
		}
		if utf8.RuneCountInString(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good, sep)...)
			good = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good, sep)...)
	}
	return chunks
}

// merge packs pieces into chunks no longer than ChunkSize, carrying up to
// ChunkOverlap characters of trailing pieces into the next chunk.
func (s Splitter) merge(pieces []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)
	var (
		chunks  []string
		current []string
		total   int
	)

	joined := func() {
		if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
			chunks = append(chunks, doc)
		}
	}

	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}

		if total+n+extra > s.ChunkSize && len(current) > 0 {
			joined()
			for total > s.ChunkOverlap || (total > 0 && total+n+sepIf(len(current) > 0, sepLen) > s.ChunkSize) {
				total -= utf8.RuneCountInString(current[0]) + sepIf(len(current) > 1, sepLen)
				current = current[1:]
			}
		}

		current = append(current, p)
		total += n + sepIf(len(current) > 1, sepLen)
	}
	joined()
	return chunks
}

func sepIf(cond bool, n int) int {
	if cond {
		return n
	}
	return 0
}
