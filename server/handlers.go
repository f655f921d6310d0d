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

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alan-mat/saidia/internal/tasks"
	"github.com/alan-mat/saidia/internal/transport"
)

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !supportedExtensions[strings.ToLower(filepath.Ext(filename))] {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.config.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.config.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.config.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	objectName := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	if err := s.blobs.Store(r.Context(), objectName, data); err != nil {
		jsonError(w, "failed to store document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	task, err := tasks.NewIngestTask(objectName, filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	info, err := s.asynqClient.EnqueueContext(r.Context(), task)
	if err != nil {
		jsonError(w, "failed to queue document: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"trace_id": info.ID,
		"document": filename,
		"poll_url": fmt.Sprintf("/api/traces/%s", info.ID),
	})
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "traceID")

	trace, err := s.transport.GetTrace(r.Context(), traceID)
	if err != nil {
		if errors.Is(err, transport.ErrTraceNotFound) {
			jsonError(w, "trace not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to read trace", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"trace_id": trace.ID,
		"status":   traceStatusString(trace.Status),
	}
	if trace.SessionID != "" {
		resp["session_id"] = trace.SessionID
	}
	if trace.DocumentName != "" {
		resp["document"] = trace.DocumentName
	}
	if trace.Error != "" {
		resp["error"] = trace.Error
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func traceStatusString(status int) string {
	switch status {
	case transport.TraceStatusRunning:
		return "running"
	case transport.TraceStatusCompleted:
		return "completed"
	case transport.TraceStatusFailed:
		return "failed"
	}
	return "unspecified"
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}

	task, err := tasks.NewAskTask(sessionID, req.Question)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	info, err := s.asynqClient.EnqueueContext(r.Context(), task)
	if err != nil {
		jsonError(w, "failed to queue question: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	ms, err := s.transport.GetMessageStream(info.ID)
	if err != nil {
		jsonError(w, "failed to open answer stream", http.StatusInternalServerError)
		return
	}

	answer, err := readAnswer(r.Context(), info.ID, ms)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"trace_id": info.ID,
		"session":  sessionID,
		"question": req.Question,
		"answer":   strings.TrimSpace(answer),
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
