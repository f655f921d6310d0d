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

// Package transport carries results between the worker and the server:
// request traces record the state of an async task, message streams relay
// generated answer tokens as they are produced.
package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/alan-mat/saidia/internal/api"
)

var (
	TraceExpiry  = time.Hour * 24
	StreamExpiry = time.Minute * 10
)

var ErrTraceNotFound = errors.New("trace not found")

type Transport interface {
	GetMessageStream(id string) (MessageStream, error)
	SetTrace(ctx context.Context, trace *RequestTrace) error
	GetTrace(ctx context.Context, traceID string) (*RequestTrace, error)
}

type MessageStream interface {
	Send(ctx context.Context, payload MessageStreamPayload) error

	Recv(ctx context.Context) (*MessageStreamPayload, error)

	// Text reads the stream until its final payload and returns the
	// concatenated content.
	Text(ctx context.Context) (string, error)

	GetID() string
}

type MessageStreamPayload struct {
	ID      int    `json:"id"`
	Status  string `json:"status"`
	Content string `json:"content"`

	// Final marks the last payload of a stream. Readers stop after it.
	Final bool `json:"final"`
}

const (
	StatusOK  = "OK"
	StatusErr = "ERR"

	// StatusDegraded marks a final payload whose content replaces anything
	// streamed before it. Readers discard the partial text and return the
	// final content as the full answer.
	StatusDegraded = "DEGRADED"
)

// RequestTrace records the lifecycle of one async task. Ingest traces carry
// the session created for the document once completed; ask traces carry the
// question asked.
type RequestTrace struct {
	ID          string `redis:"id"`
	Status      int    `redis:"status"`
	StartedAt   int64  `redis:"started_at"`
	CompletedAt int64  `redis:"completed_at"`

	Query        string `redis:"query"`
	SessionID    string `redis:"session_id"`
	DocumentName string `redis:"document_name"`
	Error        string `redis:"error"`
}

type TraceStatus int

const (
	TraceStatusUnspecified = iota
	TraceStatusRunning
	TraceStatusCompleted
	TraceStatusFailed
)

// ProcessCompletionStream pipes a completion stream into a message stream
// payload by payload and returns the full accumulated text. A receive error
// mid-stream leaves the message stream without a final payload; the caller
// decides how the stream ends.
func ProcessCompletionStream(ctx context.Context, ms MessageStream, cs api.CompletionStream) (string, error) {
	defer cs.Close()

	var sink string
	msgID := 0

	for {
		chunk, err := cs.Recv()
		if errors.Is(err, io.EOF) {
			if sendErr := ms.Send(ctx, MessageStreamPayload{ID: msgID, Status: StatusOK, Final: true}); sendErr != nil {
				slog.Warn("failed to finalize message stream", "stream", ms.GetID(), "err", sendErr)
			}
			return sink, nil
		}

		if err != nil {
			return sink, err
		}

		sink += chunk

		if err := ms.Send(ctx, MessageStreamPayload{
			ID:      msgID,
			Status:  StatusOK,
			Content: chunk,
		}); err != nil {
			slog.Debug("failed sending chunk to message stream", "stream", ms.GetID(), "err", err)
		}

		msgID += 1
	}
}
