package chunker_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/alan-mat/saidia/internal/chunker"
)

func makeWords(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return words
}

func TestSplitCoversAllWords(t *testing.T) {
	words := makeWords(1234)
	text := strings.Join(words, " ")

	chunks, err := chunker.Split(text, chunker.Config{Size: 300, Overlap: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for _, c := range chunks {
		for _, w := range strings.Fields(c) {
			seen[w] = true
		}
	}
	for _, w := range words {
		if !seen[w] {
			t.Fatalf("word '%s' missing from chunks", w)
		}
	}
}

func TestSplitOverlap(t *testing.T) {
	size, overlap := 20, 5
	words := makeWords(100)
	text := strings.Join(words, " ")

	chunks, err := chunker.Split(text, chunker.Config{Size: size, Overlap: overlap})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		cur := strings.Fields(chunks[i])

		n := min(overlap, len(cur))
		tail := prev[len(prev)-overlap:]
		for j := range n {
			if cur[j] != tail[j] {
				t.Errorf("chunk %d does not start with the last %d words of chunk %d", i, overlap, i-1)
				break
			}
		}
	}
}

func TestSplitStride(t *testing.T) {
	size, overlap := 20, 5
	words := makeWords(100)
	text := strings.Join(words, " ")

	chunks, err := chunker.Split(text, chunker.Config{Size: size, Overlap: overlap})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stride := size - overlap
	want := (len(words) + stride - 1) / stride
	if len(chunks) != want {
		t.Errorf("expected %d chunks, got %d", want, len(chunks))
	}

	for i, c := range chunks {
		got := strings.Fields(c)[0]
		if got != words[i*stride] {
			t.Errorf("chunk %d starts with '%s', expected '%s'", i, got, words[i*stride])
		}
	}
}

func TestSplitShortText(t *testing.T) {
	chunks, err := chunker.Split("Hello world", chunker.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Hello world" {
		t.Errorf("expected chunk 'Hello world', got '%s'", chunks[0])
	}
}

func TestSplitEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t \n"} {
		chunks, err := chunker.Split(text, chunker.DefaultConfig())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chunks) != 0 {
			t.Errorf("expected no chunks for input %q, got %d", text, len(chunks))
		}
	}
}

func TestSplitInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  chunker.Config
	}{
		{"overlap equals size", chunker.Config{Size: 50, Overlap: 50}},
		{"overlap exceeds size", chunker.Config{Size: 50, Overlap: 60}},
		{"negative overlap", chunker.Config{Size: 50, Overlap: -1}},
		{"zero size", chunker.Config{Size: 0, Overlap: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chunker.Split("some words here", tt.cfg)
			if err == nil {
				t.Errorf("expected error for config %+v, got nil", tt.cfg)
			}
		})
	}
}
