package provider

import (
	"context"
	"errors"

	"github.com/alan-mat/saidia/internal/api"
)

var (
	ErrInvalidEmbedderType  = errors.New("no embedder found for given type")
	ErrInvalidGeneratorType = errors.New("no generator found for given type")
	ErrInvalidOCRType       = errors.New("no ocr provider found for given type")
	ErrInvalidRerankerType  = errors.New("no reranker found for given type")
)

// ErrNoText is returned by an OCR provider when the document was processed
// successfully but contained no recognizable text. Callers treat it the same
// as a processing failure (empty text), but it is logged differently.
var ErrNoText = api.ErrNoText

// Embedder maps texts into a fixed-dimension vector space. The same Embedder
// instance must be used for indexing a document and for embedding the
// questions asked against it; mixing models silently breaks retrieval.
type Embedder interface {
	EmbedQuery(ctx context.Context, q string) ([]float32, error)
	EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error)
	GetDimensions() uint
}

// Generator produces a text completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, req api.GenerationRequest) (api.CompletionStream, error)
}

// OCR recognizes text in a document that yielded no usable text through
// layout extraction. The input is the raw file, base64 encoded.
type OCR interface {
	Recognize(ctx context.Context, base64file string) (*api.DocumentContent, error)
}

type Reranker interface {
	Rerank(ctx context.Context, req api.RerankRequest) (*api.RerankResponse, error)
}

type EmbedderType int
type GeneratorType int
type OCRType int
type RerankerType int

const (
	EmbedderTypeOpenAI EmbedderType = iota
	EmbedderTypeGemini
)

const (
	GeneratorTypeOpenAI GeneratorType = iota
	GeneratorTypeGemini
)

const (
	OCRTypeMistral OCRType = iota
)

const (
	RerankerTypeCohere RerankerType = iota
)

var embedderTypeMap = map[string]EmbedderType{
	"openai": EmbedderTypeOpenAI,
	"gemini": EmbedderTypeGemini,
}

var generatorTypeMap = map[string]GeneratorType{
	"openai": GeneratorTypeOpenAI,
	"gemini": GeneratorTypeGemini,
}

var ocrTypeMap = map[string]OCRType{
	"mistral": OCRTypeMistral,
}

var rerankerTypeMap = map[string]RerankerType{
	"cohere": RerankerTypeCohere,
}

func ParseEmbedderType(name string) (EmbedderType, error) {
	t, ok := embedderTypeMap[name]
	if !ok {
		return 0, ErrInvalidEmbedderType
	}
	return t, nil
}

func ParseGeneratorType(name string) (GeneratorType, error) {
	t, ok := generatorTypeMap[name]
	if !ok {
		return 0, ErrInvalidGeneratorType
	}
	return t, nil
}

func ParseOCRType(name string) (OCRType, error) {
	t, ok := ocrTypeMap[name]
	if !ok {
		return 0, ErrInvalidOCRType
	}
	return t, nil
}

func ParseRerankerType(name string) (RerankerType, error) {
	t, ok := rerankerTypeMap[name]
	if !ok {
		return 0, ErrInvalidRerankerType
	}
	return t, nil
}
