// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package pipeline composes extraction, chunking, embedding, indexing,
// retrieval and generation into the ingest and ask flows.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/google/uuid"

	"github.com/alan-mat/saidia/internal/api"
	"github.com/alan-mat/saidia/internal/chunker"
	"github.com/alan-mat/saidia/internal/extract"
	"github.com/alan-mat/saidia/internal/provider"
	"github.com/alan-mat/saidia/internal/vector"
)

var ErrEmptyDocument = errors.New("no text could be extracted from document")

const (
	DefaultTopK        = 3
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 500

	// DegradedAnswer stands in for a model response when generation
	// fails. The user still gets an answer shaped reply, the cause goes
	// to the log.
	DegradedAnswer = "Could not get a response from the language model. You may have exhausted your API quota or encountered a network issue."

	promptAnswerWithSnippets = `You are a helpful assistant. Use the following document snippets to answer the user's question.

Document Snippets:
{{range .Chunks}}- {{.}}
{{end}}
Question: {{.Question}}
Answer:`
)

// Config carries the tunables of both flows. The zero value is not usable,
// call DefaultConfig and override fields as needed.
type Config struct {
	Chunk chunker.Config

	// TopK is the number of chunks retrieved as context for a question.
	TopK int

	Temperature float32
	MaxTokens   int
	ModelName   string

	// Rerank reorders retrieved chunks with a cross-encoder before
	// generation. Requires a reranker provider.
	Rerank bool
}

func DefaultConfig() Config {
	return Config{
		Chunk:       chunker.DefaultConfig(),
		TopK:        DefaultTopK,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// DocumentIndex is the searchable result of ingesting one document.
// Chunks[i] holds the text behind index position i.
type DocumentIndex struct {
	Chunks []string
	Index  vector.Index
}

// Pipeline wires the providers together. Embedder and generator are
// required; an OCR provider (inside the extractor) and a reranker are
// optional.
type Pipeline struct {
	extractor *extract.Extractor
	embedder  provider.Embedder
	generator provider.Generator
	reranker  provider.Reranker
	builder   vector.Builder
	cfg       Config

	promptTemplate *template.Template
}

func New(extractor *extract.Extractor, embedder provider.Embedder, generator provider.Generator, builder vector.Builder, cfg Config) *Pipeline {
	return &Pipeline{
		extractor:      extractor,
		embedder:       embedder,
		generator:      generator,
		builder:        builder,
		cfg:            cfg,
		promptTemplate: template.Must(template.New("promptAnswerWithSnippets").Parse(promptAnswerWithSnippets)),
	}
}

// WithReranker enables the optional rerank stage of Ask.
func (p *Pipeline) WithReranker(r provider.Reranker) *Pipeline {
	p.reranker = r
	return p
}

// Ingest extracts text from doc, chunks it, embeds every chunk and builds a
// searchable index over the embeddings. It fails with ErrEmptyDocument when
// extraction yields nothing to index.
func (p *Pipeline) Ingest(ctx context.Context, doc extract.Document) (*DocumentIndex, error) {
	text := p.extractor.Extract(ctx, doc)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("ingest %q: %w", doc.Name, ErrEmptyDocument)
	}

	chunks, err := chunker.Split(text, p.cfg.Chunk)
	if err != nil {
		return nil, fmt.Errorf("ingest %q: %w", doc.Name, err)
	}
	slog.Info("document chunked", "name", doc.Name, "chunks", len(chunks))

	embeddings, err := p.embedder.EmbedDocuments(ctx, []*api.EmbedDocumentRequest{
		{Title: doc.Name, Chunks: chunks},
	})
	if err != nil {
		return nil, fmt.Errorf("ingest %q: failed to embed chunks: %w", doc.Name, err)
	}

	vectors := make([][]float32, 0, len(chunks))
	for _, emb := range embeddings {
		vectors = append(vectors, emb.Values...)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("ingest %q: embedder returned %d vectors for %d chunks", doc.Name, len(vectors), len(chunks))
	}

	index, err := p.builder.Build(ctx, uuid.NewString(), vectors)
	if err != nil {
		return nil, fmt.Errorf("ingest %q: failed to build index: %w", doc.Name, err)
	}

	return &DocumentIndex{Chunks: chunks, Index: index}, nil
}

// Retrieve embeds the question and returns the chunk texts nearest to it,
// closest first, at most TopK.
func (p *Pipeline) Retrieve(ctx context.Context, question string, chunks []string, index vector.Index) ([]string, error) {
	queryVec, err := p.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	k := p.cfg.TopK
	if k <= 0 {
		k = DefaultTopK
	}

	hits, err := index.Search(ctx, queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	matched := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(chunks) {
			return nil, fmt.Errorf("index returned position %d for %d chunks", hit.Position, len(chunks))
		}
		slog.Debug("retrieved chunk", "position", hit.Position, "distance", hit.Distance)
		matched = append(matched, chunks[hit.Position])
	}
	return matched, nil
}

// AnswerStream starts a completion for the question grounded in the given
// context chunks and returns the raw token stream. The caller owns the
// stream and must close it, usually via api.StreamReadAll or by piping it
// to a message stream.
func (p *Pipeline) AnswerStream(ctx context.Context, question string, contextChunks []string) (api.CompletionStream, error) {
	type templatePayload struct {
		Chunks   []string
		Question string
	}
	tp := templatePayload{Chunks: contextChunks, Question: question}

	var buf bytes.Buffer
	if err := p.promptTemplate.Execute(&buf, tp); err != nil {
		return nil, fmt.Errorf("failed to render prompt template: %w", err)
	}

	req := api.GenerationRequest{
		Prompt:      buf.String(),
		ModelName:   p.cfg.ModelName,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	}

	stream, err := p.generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	return stream, nil
}

// Answer asks the generator for a completion grounded in the given context
// chunks. It never fails: when the model cannot be reached the returned text
// is a fixed fallback and the cause is logged.
func (p *Pipeline) Answer(ctx context.Context, question string, contextChunks []string) string {
	stream, err := p.AnswerStream(ctx, question, contextChunks)
	if err != nil {
		slog.Error("generation failed", "question", question, "err", err)
		return DegradedAnswer
	}

	answer, err := api.StreamReadAll(ctx, stream)
	if err != nil {
		slog.Error("generation stream failed", "question", question, "err", err)
		return DegradedAnswer
	}

	return strings.TrimSpace(answer)
}

// RetrieveContext selects the context chunks for a question: nearest
// neighbors by vector distance, reordered by the reranker when one is
// configured.
func (p *Pipeline) RetrieveContext(ctx context.Context, question string, chunks []string, index vector.Index) ([]string, error) {
	matched, err := p.Retrieve(ctx, question, chunks, index)
	if err != nil {
		return nil, err
	}

	if p.cfg.Rerank && p.reranker != nil {
		matched = p.rerank(ctx, question, matched)
	}
	return matched, nil
}

// Ask runs the full question flow against an ingested document: retrieve
// the nearest chunks, optionally rerank them, then generate an answer.
func (p *Pipeline) Ask(ctx context.Context, question string, chunks []string, index vector.Index) (string, error) {
	matched, err := p.RetrieveContext(ctx, question, chunks, index)
	if err != nil {
		return "", err
	}

	return p.Answer(ctx, question, matched), nil
}

// rerank reorders the retrieved chunks by cross-encoder relevance. Failures
// keep the vector-distance order.
func (p *Pipeline) rerank(ctx context.Context, question string, matched []string) []string {
	resp, err := p.reranker.Rerank(ctx, api.RerankRequest{
		Query:     question,
		Documents: matched,
		Limit:     len(matched),
	})
	if err != nil {
		slog.Warn("rerank failed, keeping retrieval order", "err", err)
		return matched
	}

	reranked := make([]string, 0, len(resp.Documents))
	for _, doc := range resp.Documents {
		reranked = append(reranked, doc.Content)
	}
	if len(reranked) == 0 {
		// threshold filtered everything, better to answer from the
		// original retrieval than from nothing
		return matched
	}
	return reranked
}
