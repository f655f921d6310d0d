package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/alan-mat/saidia/internal/api"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

const (
	embedMaxChunksLength = 2048
	embedConcurrency     = 4
)

type OpenAIProvider struct {
	client     *openai.Client
	vectorDims int
}

func New() *OpenAIProvider {
	c := openai.NewClient(os.Getenv("OPENAI_API_KEY"))
	return &OpenAIProvider{
		client:     c,
		vectorDims: 1024,
	}
}

func (p OpenAIProvider) Generate(ctx context.Context, req api.GenerationRequest) (api.CompletionStream, error) {
	openaiReq := openai.ChatCompletionRequest{
		Model:       openai.GPT4Dot1Nano,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		Stream: true,
	}

	if req.ModelName != "" {
		openaiReq.Model = req.ModelName
	}

	s, err := p.client.CreateChatCompletionStream(ctx, openaiReq)
	if err != nil {
		return nil, err
	}

	completionStream := &OpenAIChatStream{
		stream: s,
	}
	return completionStream, nil
}

func (p OpenAIProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	openaiReq := &openai.EmbeddingRequestStrings{
		Input:          []string{q},
		Model:          "text-embedding-3-small",
		EncodingFormat: "float",
		Dimensions:     p.vectorDims,
	}

	res, err := p.client.CreateEmbeddings(ctx, openaiReq)
	if err != nil {
		return nil, err
	}

	return res.Data[0].Embedding, nil
}

func (p OpenAIProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	docEmbeddings := make([]*api.DocumentEmbedding, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for i, doc := range docs {
		if len(doc.Chunks) > embedMaxChunksLength {
			return nil, fmt.Errorf("length of chunks exceeds limit: accepts '%d', received '%d'", embedMaxChunksLength, len(doc.Chunks))
		}

		g.Go(func() error {
			openaiReq := &openai.EmbeddingRequestStrings{
				Input:          doc.Chunks,
				Model:          "text-embedding-3-small",
				EncodingFormat: "float",
				Dimensions:     p.vectorDims,
			}

			res, err := p.client.CreateEmbeddings(gctx, openaiReq)
			if err != nil {
				return fmt.Errorf("failed to create embeddings for document '%s': %w", doc.Title, err)
			}

			vals := make([][]float32, 0, len(res.Data))
			for _, e := range res.Data {
				vals = append(vals, e.Embedding)
			}

			docEmbeddings[i] = &api.DocumentEmbedding{
				Title:  doc.Title,
				Chunks: doc.Chunks,
				Values: vals,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return docEmbeddings, nil
}

func (p OpenAIProvider) GetDimensions() uint {
	return uint(p.vectorDims)
}

type OpenAIChatStream struct {
	stream *openai.ChatCompletionStream
}

func (s OpenAIChatStream) Recv() (string, error) {
	res, err := s.stream.Recv()
	if err != nil {
		return "", err
	}

	return res.Choices[0].Delta.Content, nil
}

func (s OpenAIChatStream) Close() error {
	return s.stream.Close()
}
