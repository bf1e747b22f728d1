package processor

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortText(t *testing.T) {
	sp := &Splitter{ChunkSize: 100, ChunkOverlap: 20}
	got := sp.Split("short text")
	if len(got) != 1 || got[0] != "short text" {
		t.Fatalf("want single chunk, got %q", got)
	}
}

func TestSplitEmptyText(t *testing.T) {
	sp := &Splitter{ChunkSize: 100, ChunkOverlap: 20}
	if got := sp.Split("   \n\n  "); got != nil {
		t.Fatalf("want no chunks, got %q", got)
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	sp := &Splitter{ChunkSize: 50, ChunkOverlap: 10}

	var sb strings.Builder
	for range 30 {
		sb.WriteString("Какое-то предложение. ")
	}

	chunks := sp.Split(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("want multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > sp.ChunkSize {
			t.Errorf("chunk %d has %d runes, want at most %d", i, n, sp.ChunkSize)
		}
	}
}

func TestSplitMixedUnitSizes(t *testing.T) {
	// A short unit retained as overlap must not push the next chunk over
	// the size limit.
	sp := &Splitter{ChunkSize: 10, ChunkOverlap: 5}

	chunks := sp.Split("aaa bbbbbbbbb ccc")

	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > sp.ChunkSize {
			t.Errorf("chunk %d (%q) has %d runes, want at most %d", i, c, n, sp.ChunkSize)
		}
	}
	joined := strings.Join(chunks, " ")
	for _, want := range []string{"aaa", "bbbbbbbbb", "ccc"} {
		if !strings.Contains(joined, want) {
			t.Errorf("chunks %q must contain %q", chunks, want)
		}
	}
}

func TestSplitZeroChunkSize(t *testing.T) {
	sp := &Splitter{ChunkSize: 0, ChunkOverlap: 0}
	got := sp.Split("abc")
	if len(got) != 1 || got[0] != "abc" {
		t.Fatalf("want the whole text as one chunk, got %q", got)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	sp := &Splitter{ChunkSize: 30, ChunkOverlap: 0}

	text := "First paragraph here.\n\nSecond paragraph here."
	chunks := sp.Split(text)

	if len(chunks) != 2 {
		t.Fatalf("want 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "First paragraph here." {
		t.Errorf("first chunk = %q, want the first paragraph", chunks[0])
	}
	if chunks[1] != "Second paragraph here." {
		t.Errorf("second chunk = %q, want the second paragraph", chunks[1])
	}
}

func TestSplitCarriesOverlap(t *testing.T) {
	sp := &Splitter{ChunkSize: 40, ChunkOverlap: 25}

	text := "Alpha sentence one. Beta sentence two. Gamma sentence three."
	chunks := sp.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("want multiple chunks, got %q", chunks)
	}

	// Every chunk after the first must repeat some tail of its predecessor.
	for i := 1; i < len(chunks); i++ {
		words := strings.Fields(chunks[i])
		if len(words) == 0 {
			t.Fatalf("chunk %d is empty", i)
		}
		if !strings.Contains(chunks[i-1], words[0]) {
			t.Errorf("chunk %d (%q) does not overlap with its predecessor (%q)", i, chunks[i], chunks[i-1])
		}
	}
}

func TestSplitHardCutsUnbreakableText(t *testing.T) {
	sp := &Splitter{ChunkSize: 10, ChunkOverlap: 2}

	text := strings.Repeat("x", 35)
	chunks := sp.Split(text)

	if len(chunks) < 4 {
		t.Fatalf("want at least 4 chunks, got %d", len(chunks))
	}
	var total int
	for i, c := range chunks {
		n := utf8.RuneCountInString(c)
		if n > sp.ChunkSize {
			t.Errorf("chunk %d has %d runes, want at most %d", i, n, sp.ChunkSize)
		}
		total += n
	}
	if total < 35 {
		t.Errorf("chunks cover %d runes, want at least the whole input", total)
	}
}
