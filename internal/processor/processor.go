// Package processor turns scraped pages into knowledge base chunks.
package processor

import (
	"context"
	"encoding/json"
	"os"

	"github.com/baltabekpro/iitu-bot/internal/atomicio"
	"github.com/baltabekpro/iitu-bot/internal/logger"
	"github.com/baltabekpro/iitu-bot/internal/scraper"
)

// improveLimit is how many runes of page text are passed to the model for
// cleanup. Longer pages are improved only up to this limit.
const improveLimit = 2000

const improveSystemPrompt = "Ты редактор текстов. Улучши предоставленный текст: " +
	"сделай его понятным и структурированным, сохрани всю фактическую информацию. " +
	"Отвечай только улучшенным текстом, без пояснений."

// Chunk is a single knowledge base entry with its source metadata.
type Chunk struct {
	Content         string `json:"content"`
	SourceURL       string `json:"source_url"`
	PageTitle       string `json:"page_title"`
	PageDescription string `json:"page_description"`
	ChunkIndex      int    `json:"chunk_index"`
	TotalChunks     int    `json:"total_chunks"`
}

// Generator produces text from a prompt. *gemini.Client satisfies it.
type Generator interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

// Processor converts pages into chunks, optionally running page text through
// a model cleanup pass first.
type Processor struct {
	// Splitter breaks page text into chunks.
	Splitter *Splitter
	// Generator, when set, is used to clean up page text before splitting.
	// Cleanup failures fall back to the raw text.
	Generator Generator
	// Logf is used for progress reporting. Defaults to a no-op.
	Logf logger.Logf
}

// Process converts pages into chunks.
func (p *Processor) Process(ctx context.Context, pages []scraper.Page) ([]Chunk, error) {
	var chunks []Chunk

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := page.Text
		if p.Generator != nil {
			improved, err := p.improve(ctx, text)
			if err != nil {
				p.logf("Improving text of %s failed, using raw text: %v", page.URL, err)
			} else {
				text = improved
			}
		}

		parts := p.Splitter.Split(text)
		for i, part := range parts {
			chunks = append(chunks, Chunk{
				Content:         part,
				SourceURL:       page.URL,
				PageTitle:       page.Title,
				PageDescription: page.Description,
				ChunkIndex:      i,
				TotalChunks:     len(parts),
			})
		}
		p.logf("Processed %s: %d chunks", page.URL, len(parts))
	}

	return chunks, nil
}

func (p *Processor) improve(ctx context.Context, text string) (string, error) {
	runes := []rune(text)
	if len(runes) > improveLimit {
		text = string(runes[:improveLimit])
	}
	return p.Generator.GenerateText(ctx, improveSystemPrompt, text)
}

func (p *Processor) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}

// SaveChunks writes chunks to path atomically as indented JSON.
func SaveChunks(path string, chunks []Chunk) error {
	b, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return err
	}
	return atomicio.WriteFile(path, b, 0o644)
}

// LoadChunks reads chunks previously written by [SaveChunks].
func LoadChunks(path string) ([]Chunk, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var chunks []Chunk
	if err := json.Unmarshal(b, &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}
