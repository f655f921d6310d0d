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

package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/alan-mat/saidia/internal/blob"
	"github.com/alan-mat/saidia/internal/extract"
	"github.com/alan-mat/saidia/internal/pipeline"
	"github.com/alan-mat/saidia/internal/session"
	"github.com/alan-mat/saidia/internal/transport"
)

type TaskHandler struct {
	transport transport.Transport
	blobs     blob.Store
	pipeline  *pipeline.Pipeline
	sessions  *session.Manager
}

func NewTaskHandler(tp transport.Transport, blobs blob.Store, p *pipeline.Pipeline, sessions *session.Manager) *TaskHandler {
	return &TaskHandler{
		transport: tp,
		blobs:     blobs,
		pipeline:  p,
		sessions:  sessions,
	}
}

func (h *TaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	switch t.Type() {
	case TypeIngest:
		return h.processIngest(ctx, t)
	case TypeAsk:
		return h.processAsk(ctx, t)
	default:
		return fmt.Errorf("unrecognized task type '%s' (%w)", t.Type(), asynq.SkipRetry)
	}
}

func (h *TaskHandler) processIngest(ctx context.Context, t *asynq.Task) error {
	var p ingestTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid ingest payload: %v (%w)", err, asynq.SkipRetry)
	}

	id := t.ResultWriter().TaskID()
	slog.Info("received ingest task", "id", id, "document", p.DocumentName, "object", p.ObjectName)

	trace := &transport.RequestTrace{
		ID:           id,
		Status:       transport.TraceStatusRunning,
		StartedAt:    time.Now().UnixNano(),
		DocumentName: p.DocumentName,
	}
	if err := h.transport.SetTrace(ctx, trace); err != nil {
		slog.Error("failed to set trace", "id", id, "err", err)
	}

	data, err := h.blobs.Fetch(ctx, p.ObjectName)
	if err != nil {
		h.failTrace(ctx, trace, fmt.Sprintf("failed to fetch document: %v", err))
		if errors.Is(err, blob.ErrNotFound) {
			return fmt.Errorf("document object missing: %v (%w)", err, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to fetch document: %w", err)
	}

	di, err := h.pipeline.Ingest(ctx, extract.Document{Name: p.DocumentName, Data: data})
	if err != nil {
		h.failTrace(ctx, trace, err.Error())
		if errors.Is(err, pipeline.ErrEmptyDocument) {
			return fmt.Errorf("%v (%w)", err, asynq.SkipRetry)
		}
		return err
	}

	s := h.sessions.Create(p.DocumentName, di.Chunks, di.Index)

	// the uploaded payload is only needed for ingestion
	if err := h.blobs.Remove(ctx, p.ObjectName); err != nil {
		slog.Warn("failed to remove ingested object", "object", p.ObjectName, "err", err)
	}

	trace.SessionID = s.ID
	trace.Status = transport.TraceStatusCompleted
	trace.CompletedAt = time.Now().UnixNano()
	if err := h.transport.SetTrace(ctx, trace); err != nil {
		slog.Error("failed to set trace", "id", id, "err", err)
	}

	return nil
}

func (h *TaskHandler) processAsk(ctx context.Context, t *asynq.Task) error {
	var p askTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid ask payload: %v (%w)", err, asynq.SkipRetry)
	}

	id := t.ResultWriter().TaskID()
	slog.Info("received ask task", "id", id, "session", p.SessionID, "question", p.Question)

	ms, err := h.transport.GetMessageStream(id)
	if err != nil {
		return fmt.Errorf("failed to initialize message stream: %v (%w)", err, asynq.SkipRetry)
	}

	trace := &transport.RequestTrace{
		ID:        id,
		Status:    transport.TraceStatusRunning,
		StartedAt: time.Now().UnixNano(),
		Query:     p.Question,
		SessionID: p.SessionID,
	}
	if err := h.transport.SetTrace(ctx, trace); err != nil {
		slog.Error("failed to set trace", "id", id, "err", err)
	}

	s, err := h.sessions.Get(p.SessionID)
	if err != nil {
		h.failStream(ctx, ms, fmt.Sprintf("session unavailable: %v", err))
		h.failTrace(ctx, trace, err.Error())
		return fmt.Errorf("session '%s': %v (%w)", p.SessionID, err, asynq.SkipRetry)
	}

	matched, err := h.pipeline.RetrieveContext(ctx, p.Question, s.Chunks, s.Index)
	if err != nil {
		h.failStream(ctx, ms, "retrieval failed")
		h.failTrace(ctx, trace, err.Error())
		return err
	}

	cs, err := h.pipeline.AnswerStream(ctx, p.Question, matched)
	if err != nil {
		// degrade like the one-shot flow instead of erroring the stream
		slog.Error("generation failed", "id", id, "err", err)
		h.degradeStream(ctx, ms)
	} else {
		if _, err := transport.ProcessCompletionStream(ctx, ms, cs); err != nil {
			// generation broke mid-stream, the degraded final supersedes
			// whatever was already sent
			slog.Error("generation stream failed", "id", id, "err", err)
			h.degradeStream(ctx, ms)
		}
	}

	trace.Status = transport.TraceStatusCompleted
	trace.CompletedAt = time.Now().UnixNano()
	if err := h.transport.SetTrace(ctx, trace); err != nil {
		slog.Error("failed to set trace", "id", id, "err", err)
	}

	return nil
}

func (h *TaskHandler) degradeStream(ctx context.Context, ms transport.MessageStream) {
	err := ms.Send(ctx, transport.MessageStreamPayload{
		Status:  transport.StatusDegraded,
		Content: pipeline.DegradedAnswer,
		Final:   true,
	})
	if err != nil {
		slog.Warn("failed to write final message to stream", "stream", ms.GetID(), "err", err)
	}
}

func (h *TaskHandler) failStream(ctx context.Context, ms transport.MessageStream, content string) {
	err := ms.Send(ctx, transport.MessageStreamPayload{
		Status:  transport.StatusErr,
		Content: content,
		Final:   true,
	})
	if err != nil {
		slog.Warn("failed to write error message to stream", "stream", ms.GetID(), "err", err)
	}
}

func (h *TaskHandler) failTrace(ctx context.Context, trace *transport.RequestTrace, reason string) {
	trace.Status = transport.TraceStatusFailed
	trace.CompletedAt = time.Now().UnixNano()
	trace.Error = reason
	if err := h.transport.SetTrace(ctx, trace); err != nil {
		slog.Error("failed to set trace", "id", trace.ID, "err", err)
	}
}
