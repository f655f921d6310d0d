// Package server exposes the HTTP API: document upload, trace polling and
// question answering. All heavy work is queued for the worker; the server
// only talks to redis and the blob store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/alan-mat/saidia/internal/blob"
	"github.com/alan-mat/saidia/internal/transport"
)

type ServerConfig struct {
	ListenHost string
	ListenPort int

	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int

	// MaxUploadBytes bounds the size of an uploaded document.
	MaxUploadBytes int64

	Blobs blob.Store
}

func DefaultConfig() ServerConfig {
	return ServerConfig{
		ListenPort:     8080,
		RedisAddr:      "localhost:6379",
		MaxUploadBytes: 32 << 20,
	}
}

type Server struct {
	config ServerConfig

	blobs       blob.Store
	transport   transport.Transport
	asynqClient *asynq.Client

	router chi.Router
}

func New(config ServerConfig) *Server {
	return &Server{
		config: config,
		blobs:  config.Blobs,
	}
}

// Serve blocks until ctx is cancelled, then shuts the listener down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     s.config.RedisAddr,
		Username: s.config.RedisUsername,
		Password: s.config.RedisPassword,
		DB:       s.config.RedisDB,
	})
	defer rdb.Close()

	s.transport = transport.NewRedisTransport(rdb)

	s.asynqClient = asynq.NewClientFromRedisClient(rdb)
	defer s.asynqClient.Close()

	s.setupRoutes()

	lisAddr := fmt.Sprintf("%s:%d", s.config.ListenHost, s.config.ListenPort)
	httpServer := &http.Server{
		Addr:    lisAddr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "listener", lisAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)

	r.Get("/health", s.handleHealth)

	r.Post("/api/documents", s.handleUploadDocument)
	r.Get("/api/traces/{traceID}", s.handleGetTrace)
	r.Post("/api/sessions/{sessionID}/ask", s.handleAsk)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
