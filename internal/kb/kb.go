// Package kb implements the bot's knowledge base: an embedding index over
// processed page chunks, persisted as a JSON file.
package kb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"

	"github.com/baltabekpro/iitu-bot/internal/processor"

	"crawshaw.dev/jsonfile"
)

// embedBatchSize is how many chunks are embedded per API call during Build.
const embedBatchSize = 100

// RelevanceThreshold is the minimum cosine similarity for a search hit to be
// considered an answerable match.
const RelevanceThreshold = 0.5

// Embedder turns text into embedding vectors.
type Embedder interface {
	// Embed embeds a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds several texts at once, returning one vector per text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Entry is a single indexed chunk with its embedding vector.
type Entry struct {
	Chunk  processor.Chunk `json:"chunk"`
	Vector []float32       `json:"vector"`
}

type index struct {
	Entries []Entry `json:"entries"`
}

// KB is a knowledge base backed by a JSON file on disk. All mutations are
// atomic: a partially written index is never observable.
type KB struct {
	f        *jsonfile.JSONFile[index]
	embedder Embedder
}

// Open opens the knowledge base at path, creating an empty one if the file
// does not exist.
func Open(path string, embedder Embedder) (*KB, error) {
	f, err := jsonfile.Load[index](path)
	if errors.Is(err, fs.ErrNotExist) {
		f, err = jsonfile.New[index](path)
	}
	if err != nil {
		return nil, err
	}
	return &KB{f: f, embedder: embedder}, nil
}

// Size returns the number of indexed chunks.
func (kb *KB) Size() int {
	var n int
	kb.f.Read(func(ix *index) {
		n = len(ix.Entries)
	})
	return n
}

// Build embeds chunks in batches and replaces the whole index with them.
func (kb *KB) Build(ctx context.Context, chunks []processor.Chunk) error {
	entries := make([]Entry, 0, len(chunks))

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := kb.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("kb: embedding batch %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("kb: embedding batch %d-%d: got %d vectors for %d texts", start, end, len(vectors), len(batch))
		}

		for i, c := range batch {
			entries = append(entries, Entry{Chunk: c, Vector: vectors[i]})
		}
	}

	return kb.f.Write(func(ix *index) error {
		ix.Entries = entries
		return nil
	})
}

// Result is a single search hit.
type Result struct {
	Chunk      processor.Chunk
	Similarity float64
}

// Relevant reports whether the hit is similar enough to base an answer on.
func (r Result) Relevant() bool { return r.Similarity >= RelevanceThreshold }

// Search returns up to n entries most similar to query, best first.
func (kb *KB) Search(ctx context.Context, query string, n int) ([]Result, error) {
	vec, err := kb.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("kb: embedding query: %w", err)
	}

	var results []Result
	kb.f.Read(func(ix *index) {
		results = make([]Result, 0, len(ix.Entries))
		for _, e := range ix.Entries {
			results = append(results, Result{
				Chunk:      e.Chunk,
				Similarity: cosineSimilarity(vec, e.Vector),
			})
		}
	})

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
