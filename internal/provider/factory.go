package provider

import (
	"github.com/alan-mat/saidia/internal/provider/cohere"
	"github.com/alan-mat/saidia/internal/provider/gemini"
	"github.com/alan-mat/saidia/internal/provider/mistral"
	"github.com/alan-mat/saidia/internal/provider/openai"
)

func NewEmbedder(t EmbedderType) (Embedder, error) {
	switch t {
	case EmbedderTypeOpenAI:
		return openai.New(), nil
	case EmbedderTypeGemini:
		return gemini.New(), nil
	default:
		return nil, ErrInvalidEmbedderType
	}
}

func NewGenerator(t GeneratorType) (Generator, error) {
	switch t {
	case GeneratorTypeOpenAI:
		return openai.New(), nil
	case GeneratorTypeGemini:
		return gemini.New(), nil
	default:
		return nil, ErrInvalidGeneratorType
	}
}

func NewOCR(t OCRType) (OCR, error) {
	switch t {
	case OCRTypeMistral:
		return mistral.New(), nil
	default:
		return nil, ErrInvalidOCRType
	}
}

func NewReranker(t RerankerType) (Reranker, error) {
	switch t {
	case RerankerTypeCohere:
		return cohere.New(), nil
	default:
		return nil, ErrInvalidRerankerType
	}
}
