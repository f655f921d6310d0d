package pipeline_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/alan-mat/saidia/internal/api"
	"github.com/alan-mat/saidia/internal/chunker"
	"github.com/alan-mat/saidia/internal/extract"
	"github.com/alan-mat/saidia/internal/pipeline"
	"github.com/alan-mat/saidia/internal/vector"
)

// fakeEmbedder maps every text to a 2-dim vector derived from its length,
// so nearness is deterministic and easy to reason about in tests.
type fakeEmbedder struct {
	queryVec []float32
	err      error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.queryVec != nil {
		return f.queryVec, nil
	}
	return embed(q), nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*api.DocumentEmbedding, 0, len(docs))
	for _, doc := range docs {
		values := make([][]float32, 0, len(doc.Chunks))
		for _, c := range doc.Chunks {
			values = append(values, embed(c))
		}
		out = append(out, &api.DocumentEmbedding{Title: doc.Title, Chunks: doc.Chunks, Values: values})
	}
	return out, nil
}

func (f *fakeEmbedder) GetDimensions() uint { return 2 }

func embed(s string) []float32 {
	return []float32{float32(len(s)), float32(len(strings.Fields(s)))}
}

type fakeStream struct {
	chunks []string
	pos    int
}

func (s *fakeStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *fakeStream) Close() error { return nil }

// fakeGenerator records the last prompt and streams back a canned answer.
type fakeGenerator struct {
	lastPrompt string
	answer     string
	err        error
}

func (f *fakeGenerator) Generate(ctx context.Context, req api.GenerationRequest) (api.CompletionStream, error) {
	f.lastPrompt = req.Prompt
	if f.err != nil {
		return nil, f.err
	}
	return &fakeStream{chunks: []string{f.answer}}, nil
}

func newTestPipeline(gen *fakeGenerator, cfg pipeline.Config) *pipeline.Pipeline {
	return pipeline.New(extract.New(), &fakeEmbedder{}, gen, vector.MemoryBuilder{}, cfg)
}

func TestIngest(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.Chunk = chunker.Config{Size: 5, Overlap: 1}
	p := newTestPipeline(&fakeGenerator{answer: "ok"}, cfg)

	text := strings.Repeat("alpha beta gamma delta epsilon ", 4)
	doc := extract.Document{Name: "notes.txt", Data: []byte(text)}

	di, err := p.Ingest(context.Background(), doc)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(di.Chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if di.Index.Len() != len(di.Chunks) {
		t.Errorf("index has %d vectors for %d chunks", di.Index.Len(), len(di.Chunks))
	}
}

func TestIngestEmptyDocument(t *testing.T) {
	p := newTestPipeline(&fakeGenerator{answer: "ok"}, pipeline.DefaultConfig())

	doc := extract.Document{Name: "image.png", Data: []byte{0x89, 0x50}}
	_, err := p.Ingest(context.Background(), doc)
	if !errors.Is(err, pipeline.ErrEmptyDocument) {
		t.Errorf("got %v, expected ErrEmptyDocument", err)
	}
}

func TestRetrieveOrdersByDistance(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.TopK = 2
	p := newTestPipeline(&fakeGenerator{answer: "ok"}, cfg)

	chunks := []string{"aa", "aaaa bb", "aaaaaaaa bb cc"}
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		vectors[i] = embed(c)
	}
	idx, err := vector.NewMemoryIndex(vectors)
	if err != nil {
		t.Fatalf("NewMemoryIndex failed: %v", err)
	}

	// the question embeds to the same vector as chunks[1]
	matched, err := p.Retrieve(context.Background(), "aaaa bb", chunks, idx)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(matched) != 2 {
		t.Fatalf("got %d chunks, expected 2", len(matched))
	}
	if matched[0] != "aaaa bb" {
		t.Errorf("closest chunk is %q, expected 'aaaa bb'", matched[0])
	}
}

func TestRetrieveClampsTopK(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.TopK = 10
	p := newTestPipeline(&fakeGenerator{answer: "ok"}, cfg)

	chunks := []string{"one", "two"}
	idx, err := vector.NewMemoryIndex([][]float32{embed("one"), embed("two")})
	if err != nil {
		t.Fatalf("NewMemoryIndex failed: %v", err)
	}

	matched, err := p.Retrieve(context.Background(), "one", chunks, idx)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(matched) != 2 {
		t.Errorf("got %d chunks, expected all 2", len(matched))
	}
}

func TestAnswerPromptContainsChunksVerbatim(t *testing.T) {
	gen := &fakeGenerator{answer: "  The answer.  "}
	p := newTestPipeline(gen, pipeline.DefaultConfig())

	chunks := []string{"first snippet", "second snippet"}
	got := p.Answer(context.Background(), "What is it?", chunks)

	if got != "The answer." {
		t.Errorf("got %q, expected trimmed 'The answer.'", got)
	}
	for _, c := range chunks {
		if !strings.Contains(gen.lastPrompt, "- "+c+"\n") {
			t.Errorf("prompt missing bullet for %q:\n%s", c, gen.lastPrompt)
		}
	}
	if !strings.Contains(gen.lastPrompt, "Question: What is it?") {
		t.Errorf("prompt missing question:\n%s", gen.lastPrompt)
	}
	if !strings.HasSuffix(gen.lastPrompt, "Answer:") {
		t.Errorf("prompt must end with 'Answer:':\n%s", gen.lastPrompt)
	}
	// bullets keep retrieval order
	if strings.Index(gen.lastPrompt, "first snippet") > strings.Index(gen.lastPrompt, "second snippet") {
		t.Error("chunk order not preserved in prompt")
	}
}

func TestAnswerDegradesOnGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	p := newTestPipeline(gen, pipeline.DefaultConfig())

	got := p.Answer(context.Background(), "anything?", []string{"chunk"})
	if !strings.Contains(got, "Could not get a response") {
		t.Errorf("expected fallback answer, got %q", got)
	}
}

func TestAskEndToEnd(t *testing.T) {
	gen := &fakeGenerator{answer: "It is covered in the document."}
	cfg := pipeline.DefaultConfig()
	cfg.TopK = 1
	p := newTestPipeline(gen, cfg)

	chunks := []string{"short", "a much longer chunk of text here"}
	idx, err := vector.NewMemoryIndex([][]float32{embed(chunks[0]), embed(chunks[1])})
	if err != nil {
		t.Fatalf("NewMemoryIndex failed: %v", err)
	}

	answer, err := p.Ask(context.Background(), "short", chunks, idx)
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != "It is covered in the document." {
		t.Errorf("got %q", answer)
	}
	if !strings.Contains(gen.lastPrompt, "- short\n") {
		t.Errorf("expected nearest chunk in prompt:\n%s", gen.lastPrompt)
	}
	if strings.Contains(gen.lastPrompt, "much longer chunk") {
		t.Errorf("TopK=1 prompt must not contain the second chunk:\n%s", gen.lastPrompt)
	}
}

func TestAskEmbedFailure(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	p := pipeline.New(extract.New(), &fakeEmbedder{err: errors.New("embedder down")}, gen, vector.MemoryBuilder{}, pipeline.DefaultConfig())

	idx, err := vector.NewMemoryIndex([][]float32{{1, 2}})
	if err != nil {
		t.Fatalf("NewMemoryIndex failed: %v", err)
	}

	_, err = p.Ask(context.Background(), "q", []string{"chunk"}, idx)
	if err == nil {
		t.Error("expected error when question embedding fails")
	}
}
