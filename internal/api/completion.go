package api

import (
	"context"
	"errors"
	"io"
)

type GenerationRequest struct {
	// Required
	Prompt string

	// Optional params
	ModelName   string
	Temperature float32
	MaxTokens   int
}

type CompletionStream interface {
	Recv() (string, error)
	Close() error
}

type completionStreamPayload struct {
	content string
	err     error
}

// StreamReadAll receives from a completion stream accumulating the results
// and returning the streamed chunks as a whole. If an error is received from
// the CompletionStream, the accumulated text so far is returned alongside it.
// Calling this function will always close the underlying stream.
func StreamReadAll(ctx context.Context, stream CompletionStream) (string, error) {
	defer stream.Close()
	dataChan := make(chan completionStreamPayload)

	go func() {
		defer close(dataChan)

		for {
			chunk, err := stream.Recv()

			if errors.Is(err, io.EOF) {
				return
			}

			payload := completionStreamPayload{content: chunk, err: err}
			select {
			case dataChan <- payload:
			case <-ctx.Done():
				// reader gave up, stop instead of blocking forever
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var acc string

	for {
		select {
		case <-ctx.Done():
			return acc, ctx.Err()
		case payload, ok := <-dataChan:
			if !ok {
				// data stream closed
				return acc, nil
			}

			if payload.err != nil {
				return acc, payload.err
			}

			acc += payload.content
		}
	}
}
