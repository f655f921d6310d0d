// Package tasks defines the async task types exchanged between the server
// and the worker, and the handler that executes them.
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// TypeIngest processes an uploaded document into a queryable session.
	// The payload names the blob object holding the raw file.
	TypeIngest = "saidia:ingest"

	// TypeAsk answers a question against an existing session, streaming
	// the answer over the task's message stream.
	TypeAsk = "saidia:ask"
)

type ingestTaskPayload struct {
	ObjectName   string `json:"object_name"`
	DocumentName string `json:"document_name"`
}

func NewIngestTask(objectName, documentName string) (*asynq.Task, error) {
	payload, err := json.Marshal(ingestTaskPayload{
		ObjectName:   objectName,
		DocumentName: documentName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize ingest payload: %w", err)
	}
	return asynq.NewTask(TypeIngest, payload), nil
}

type askTaskPayload struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

func NewAskTask(sessionID, question string) (*asynq.Task, error) {
	payload, err := json.Marshal(askTaskPayload{
		SessionID: sessionID,
		Question:  question,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize ask payload: %w", err)
	}
	return asynq.NewTask(TypeAsk, payload), nil
}
