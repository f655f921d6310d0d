// Package worker runs the ingestion and answering tasks queued by the
// server. It owns the provider clients, the session store and the vector
// index builders; the server never touches those directly.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/alan-mat/saidia/internal/blob"
	"github.com/alan-mat/saidia/internal/extract"
	"github.com/alan-mat/saidia/internal/pipeline"
	"github.com/alan-mat/saidia/internal/provider"
	"github.com/alan-mat/saidia/internal/session"
	"github.com/alan-mat/saidia/internal/tasks"
	"github.com/alan-mat/saidia/internal/transport"
	"github.com/alan-mat/saidia/internal/vector"
)

type WorkerConfig struct {
	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int

	Concurrency int

	EmbedderType  provider.EmbedderType
	GeneratorType provider.GeneratorType

	// OCR and reranking are optional stages.
	OCRType      *provider.OCRType
	RerankerType *provider.RerankerType

	IndexType  vector.IndexType
	QdrantHost string
	QdrantPort int

	SessionTTL time.Duration

	Pipeline pipeline.Config
	Quality  extract.QualityPolicy

	Blobs blob.Store
}

func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		RedisAddr:   "localhost:6379",
		Concurrency: 10,
		IndexType:   vector.IndexTypeMemory,
		SessionTTL:  session.DefaultTTL,
		Pipeline:    pipeline.DefaultConfig(),
		Quality:     extract.DefaultQualityPolicy(),
	}
}

type Worker struct {
	config WorkerConfig

	rdb         *redis.Client
	asynqServer *asynq.Server

	transport transport.Transport
	sessions  *session.Manager
}

func New(config WorkerConfig) *Worker {
	return &Worker{
		config: config,
	}
}

// Start runs the task loop until the asynq server stops. The context bounds
// background jobs like session sweeping.
func (w *Worker) Start(ctx context.Context) error {
	w.rdb = redis.NewClient(&redis.Options{
		Addr:     w.config.RedisAddr,
		Username: w.config.RedisUsername,
		Password: w.config.RedisPassword,
		DB:       w.config.RedisDB,
	})
	defer w.rdb.Close()

	w.asynqServer = asynq.NewServerFromRedisClient(
		w.rdb,
		asynq.Config{
			Concurrency: w.config.Concurrency,
		},
	)

	w.transport = transport.NewRedisTransport(w.rdb)
	w.sessions = session.NewManager(w.config.SessionTTL)

	p, err := w.buildPipeline()
	if err != nil {
		return err
	}

	go w.sweepSessions(ctx)

	mux := asynq.NewServeMux()
	handler := tasks.NewTaskHandler(w.transport, w.config.Blobs, p, w.sessions)
	mux.Handle(tasks.TypeIngest, handler)
	mux.Handle(tasks.TypeAsk, handler)

	slog.Info("worker starting", "concurrency", w.config.Concurrency, "index", w.config.IndexType)
	return w.asynqServer.Run(mux)
}

func (w *Worker) buildPipeline() (*pipeline.Pipeline, error) {
	embedder, err := provider.NewEmbedder(w.config.EmbedderType)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	generator, err := provider.NewGenerator(w.config.GeneratorType)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	extractOpts := []extract.Option{
		extract.WithQualityPolicy(w.config.Quality),
	}
	if w.config.OCRType != nil {
		ocr, err := provider.NewOCR(*w.config.OCRType)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ocr provider: %w", err)
		}
		extractOpts = append(extractOpts, extract.WithOCR(ocr))
	}
	extractor := extract.New(extractOpts...)

	builder, err := w.buildIndexBuilder()
	if err != nil {
		return nil, err
	}

	p := pipeline.New(extractor, embedder, generator, builder, w.config.Pipeline)

	if w.config.RerankerType != nil {
		reranker, err := provider.NewReranker(*w.config.RerankerType)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize reranker: %w", err)
		}
		p = p.WithReranker(reranker)
	}

	return p, nil
}

func (w *Worker) buildIndexBuilder() (vector.Builder, error) {
	switch w.config.IndexType {
	case vector.IndexTypeMemory:
		return vector.MemoryBuilder{}, nil
	case vector.IndexTypeQdrant:
		if w.config.QdrantHost == "" {
			return vector.NewQdrantBuilderDefault()
		}
		return vector.NewQdrantBuilder(w.config.QdrantHost, w.config.QdrantPort)
	default:
		return nil, vector.ErrInvalidIndexType
	}
}

// sweepSessions reclaims expired sessions that are never queried again.
func (w *Worker) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sessions.Sweep()
		}
	}
}
