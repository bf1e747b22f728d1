package processor

import (
	"strings"
	"unicode/utf8"
)

// defaultSeparators are tried in order, from coarse (paragraphs) to fine
// (single characters).
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter breaks long text into overlapping chunks, preferring to cut on
// paragraph and sentence boundaries.
type Splitter struct {
	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int
	// ChunkOverlap is how many trailing runes of a chunk are carried over to
	// the start of the next one.
	ChunkOverlap int
}

// Split splits text into chunks of at most ChunkSize runes each. A
// non-positive ChunkSize returns the text as a single chunk.
func (sp *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if sp.ChunkSize <= 0 {
		return []string{text}
	}
	return sp.split(text, 0)
}

func (sp *Splitter) split(text string, sepIdx int) []string {
	if utf8.RuneCountInString(text) <= sp.ChunkSize {
		return []string{text}
	}
	if sepIdx >= len(defaultSeparators) || defaultSeparators[sepIdx] == "" {
		return sp.hardCut(text)
	}

	sep := defaultSeparators[sepIdx]
	pieces := strings.SplitAfter(text, sep)
	if len(pieces) == 1 {
		// Separator not present, try a finer one.
		return sp.split(text, sepIdx+1)
	}

	var units []string
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		if utf8.RuneCountInString(piece) > sp.ChunkSize {
			units = append(units, sp.split(piece, sepIdx+1)...)
			continue
		}
		units = append(units, piece)
	}
	return sp.merge(units)
}

// merge greedily packs units into chunks of at most ChunkSize runes. When a
// chunk fills up, trailing units of up to ChunkOverlap runes are carried over
// to the start of the next chunk.
func (sp *Splitter) merge(units []string) []string {
	var (
		chunks []string
		cur    []string
		curLen int
	)

	for _, unit := range units {
		n := utf8.RuneCountInString(unit)
		if curLen > 0 && curLen+n > sp.ChunkSize {
			if chunk := strings.TrimSpace(strings.Join(cur, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// Keep the tail of the chunk as overlap for the next one,
			// dropping more whenever the new unit would not fit otherwise.
			for len(cur) > 0 && (curLen > sp.ChunkOverlap || curLen+n > sp.ChunkSize) {
				curLen -= utf8.RuneCountInString(cur[0])
				cur = cur[1:]
			}
		}
		cur = append(cur, unit)
		curLen += n
	}

	if chunk := strings.TrimSpace(strings.Join(cur, "")); chunk != "" {
		if len(chunks) == 0 || chunks[len(chunks)-1] != chunk {
			chunks = append(chunks, chunk)
		}
	}

	return chunks
}

// hardCut slices text into fixed-size rune windows, stepping by
// ChunkSize-ChunkOverlap.
func (sp *Splitter) hardCut(text string) []string {
	runes := []rune(text)
	step := sp.ChunkSize - sp.ChunkOverlap
	if step <= 0 {
		step = sp.ChunkSize
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+sp.ChunkSize, len(runes))
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
