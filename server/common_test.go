package server

import (
	"context"
	"errors"
	"testing"

	"github.com/alan-mat/saidia/internal/pipeline"
	"github.com/alan-mat/saidia/internal/transport"
)

type queuedStream struct {
	payloads []transport.MessageStreamPayload
	pos      int
}

func (s *queuedStream) Send(ctx context.Context, payload transport.MessageStreamPayload) error {
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *queuedStream) Recv(ctx context.Context) (*transport.MessageStreamPayload, error) {
	if s.pos >= len(s.payloads) {
		return nil, errors.New("no more messages")
	}
	p := s.payloads[s.pos]
	s.pos++
	return &p, nil
}

func (s *queuedStream) Text(ctx context.Context) (string, error) { return "", nil }

func (s *queuedStream) GetID() string { return "test-stream" }

func TestReadAnswerAccumulatesUntilFinal(t *testing.T) {
	ms := &queuedStream{payloads: []transport.MessageStreamPayload{
		{Status: transport.StatusOK, Content: "The answer "},
		{Status: transport.StatusOK, Content: "is 42."},
		{Status: transport.StatusOK, Final: true},
	}}

	answer, err := readAnswer(context.Background(), "t1", ms)
	if err != nil {
		t.Fatalf("readAnswer failed: %v", err)
	}
	if answer != "The answer is 42." {
		t.Errorf("got %q", answer)
	}
}

func TestReadAnswerDegradedFinalReplacesPartial(t *testing.T) {
	ms := &queuedStream{payloads: []transport.MessageStreamPayload{
		{Status: transport.StatusOK, Content: "The answer "},
		{Status: transport.StatusDegraded, Content: pipeline.DegradedAnswer, Final: true},
	}}

	answer, err := readAnswer(context.Background(), "t2", ms)
	if err != nil {
		t.Fatalf("readAnswer failed: %v", err)
	}
	if answer != pipeline.DegradedAnswer {
		t.Errorf("got %q, expected the degraded answer alone", answer)
	}
}

func TestReadAnswerErrFinal(t *testing.T) {
	ms := &queuedStream{payloads: []transport.MessageStreamPayload{
		{Status: transport.StatusErr, Content: "session unavailable", Final: true},
	}}

	if _, err := readAnswer(context.Background(), "t3", ms); err == nil {
		t.Fatal("expected error from ERR final")
	}
}

func TestTraceStatusString(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{transport.TraceStatusUnspecified, "unspecified"},
		{transport.TraceStatusRunning, "running"},
		{transport.TraceStatusCompleted, "completed"},
		{transport.TraceStatusFailed, "failed"},
		{99, "unspecified"},
	}
	for _, c := range cases {
		if got := traceStatusString(c.status); got != c.want {
			t.Errorf("status %d: got %q, want %q", c.status, got, c.want)
		}
	}
}
