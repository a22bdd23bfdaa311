package services

import (
	"strings"
	"testing"
)

func TestChunkTextShortInput(t *testing.T) {
	text := strings.Repeat("a", 50)
	chunks := ChunkText(text, 1000, 150)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("single chunk should equal the input")
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	chunks := ChunkText("", 1000, 150)
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestChunkTextSizesAndOverlap(t *testing.T) {
	text := strings.Repeat("0123456789", 250) // 2500 chars
	chunkSize, overlap := 1000, 150
	chunks := ChunkText(text, chunkSize, overlap)

	for i, chunk := range chunks[:len(chunks)-1] {
		if len(chunk) != chunkSize {
			t.Errorf("chunk %d length = %d, want %d", i, len(chunk), chunkSize)
		}
	}

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		tail := prev[len(prev)-overlap:]
		if len(chunks[i]) >= overlap && chunks[i][:overlap] != tail {
			t.Errorf("chunk %d does not start with the previous chunk's last %d chars", i, overlap)
		}
	}
}

func TestChunkTextCoversInput(t *testing.T) {
	text := strings.Repeat("abcdefghij", 333) // 3330 chars
	chunkSize, overlap := 1000, 150
	chunks := ChunkText(text, chunkSize, overlap)

	// Rebuild the input by dropping each chunk's overlapping prefix.
	var rebuilt strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			rebuilt.WriteString(chunk)
			continue
		}
		if len(chunk) > overlap {
			rebuilt.WriteString(chunk[overlap:])
		}
	}
	if rebuilt.String() != text {
		t.Error("chunks do not reconstruct the input")
	}
}

func TestChunkTextAdvance(t *testing.T) {
	// With size 10 and overlap 3 the window advances by 7 per chunk.
	text := "abcdefghijklmnopqrst" // 20 chars
	chunks := ChunkText(text, 10, 3)

	want := []string{"abcdefghij", "hijklmnopq", "opqrst"}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d: %v", len(chunks), len(want), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}
