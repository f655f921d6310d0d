package chunker

import (
	"fmt"
	"strings"
)

// Config controls the word windowing.
type Config struct {
	// Size is the target number of words per chunk.
	Size int
	// Overlap is the number of words shared between consecutive chunks.
	Overlap int
}

func DefaultConfig() Config {
	return Config{
		Size:    300,
		Overlap: 50,
	}
}

// Split breaks text into overlapping windows of whitespace-separated words.
// A chunk starts every Size-Overlap words and contains up to Size words; the
// last chunk may be shorter. Every word of the input appears in at least one
// chunk. Empty input yields no chunks.
//
// Size must be strictly greater than Overlap and Overlap must be
// non-negative, otherwise the stride would not advance and Split returns an
// error instead of looping.
func Split(text string, cfg Config) ([]string, error) {
	if cfg.Overlap < 0 {
		return nil, fmt.Errorf("invalid chunk config: overlap must be non-negative, got %d", cfg.Overlap)
	}
	if cfg.Size <= cfg.Overlap {
		return nil, fmt.Errorf("invalid chunk config: size (%d) must be greater than overlap (%d)", cfg.Size, cfg.Overlap)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	stride := cfg.Size - cfg.Overlap
	chunks := make([]string, 0, (len(words)+stride-1)/stride)

	for start := 0; start < len(words); start += stride {
		end := min(start+cfg.Size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}

	return chunks, nil
}
