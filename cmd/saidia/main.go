package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"github.com/alan-mat/saidia/internal/blob"
	"github.com/alan-mat/saidia/internal/chunker"
	"github.com/alan-mat/saidia/internal/extract"
	"github.com/alan-mat/saidia/internal/pipeline"
	"github.com/alan-mat/saidia/internal/provider"
	"github.com/alan-mat/saidia/internal/vector"
	"github.com/alan-mat/saidia/server"
	"github.com/alan-mat/saidia/worker"
)

const (
	ProgramName   = "Saidia"
	Version       = "v0.1.0"
	RepositoryUrl = "github.com/alan-mat/saidia"
)

type serveCmd struct{}

type workerCmd struct{}

type askCmd struct {
	File     string `arg:"positional,required" help:"document to ask about (pdf, docx or txt)"`
	Question string `arg:"positional,required" help:"question to answer from the document"`
}

type args struct {
	Server *serveCmd  `arg:"subcommand:serve" help:"start the saidia API server"`
	Worker *workerCmd `arg:"subcommand:work" help:"start the saidia worker"`
	Ask    *askCmd    `arg:"subcommand:ask" help:"ask a question about a document, without a server"`

	Config string `arg:"--config,-c" default:"saidia.yaml" help:"path to config file"`
	Debug  bool   `arg:"--debug" help:"enable debug logging"`
}

func (args) Version() string {
	return fmt.Sprintf("%s %s", ProgramName, Version)
}

func (args) Epilogue() string {
	return fmt.Sprintf("For more information visit %s", RepositoryUrl)
}

func main() {
	var args args

	p, err := arg.NewParser(arg.Config{Program: strings.ToLower(ProgramName)}, &args)
	if err != nil {
		log.Fatalf("there was an error in the definition of the Go struct: %v", err)
	}
	p.MustParse(os.Args[1:])

	if p.Subcommand() == nil {
		p.WriteUsage(os.Stdout)
		os.Exit(0)
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}

	level := slog.LevelInfo
	if args.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	conf, err := ReadConfig(args.Config)
	if err != nil {
		log.Fatalf("failed to read config '%s': %v", args.Config, err)
	}

	switch p.Subcommand().(type) {
	case *serveCmd:
		err = startServer(conf)
	case *workerCmd:
		err = startWorker(conf)
	case *askCmd:
		err = runAsk(conf, args.Ask)
	default:
		p.FailSubcommand("unrecognized command", p.SubcommandNames()...)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func startServer(conf *config) error {
	blobs, err := buildBlobStore(conf)
	if err != nil {
		return err
	}

	sc := server.DefaultConfig()
	if conf.Server.ListenHost != "" {
		sc.ListenHost = conf.Server.ListenHost
	}
	if conf.Server.ListenPort != 0 {
		sc.ListenPort = conf.Server.ListenPort
	}
	if conf.Server.MaxUploadBytes != 0 {
		sc.MaxUploadBytes = conf.Server.MaxUploadBytes
	}
	sc.RedisAddr = conf.Transport.Addr
	sc.RedisUsername = conf.Transport.Username
	sc.RedisPassword = conf.Transport.Password
	sc.RedisDB = conf.Transport.DB
	sc.Blobs = blobs

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(sc).Serve(ctx)
}

func startWorker(conf *config) error {
	blobs, err := buildBlobStore(conf)
	if err != nil {
		return err
	}

	wc := worker.DefaultConfig()
	wc.RedisAddr = conf.Transport.Addr
	wc.RedisUsername = conf.Transport.Username
	wc.RedisPassword = conf.Transport.Password
	wc.RedisDB = conf.Transport.DB
	if conf.Worker.Workers != 0 {
		wc.Concurrency = conf.Worker.Workers
	}
	if conf.Worker.SessionTTLMinutes != 0 {
		wc.SessionTTL = time.Duration(conf.Worker.SessionTTLMinutes) * time.Minute
	}
	wc.Blobs = blobs

	if err := applyProviders(conf, &wc); err != nil {
		return err
	}

	if conf.VectorStore.Backend != "" {
		it, err := vector.ParseIndexType(conf.VectorStore.Backend)
		if err != nil {
			return fmt.Errorf("invalid vector store backend '%s': %w", conf.VectorStore.Backend, err)
		}
		wc.IndexType = it
		wc.QdrantHost = conf.VectorStore.Host
		wc.QdrantPort = conf.VectorStore.Port
	}

	wc.Pipeline = buildPipelineConfig(conf)
	wc.Quality = buildQualityPolicy(conf)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return worker.New(wc).Start(ctx)
}

// runAsk executes the full pipeline in-process against a single document,
// without redis or a running worker.
func runAsk(conf *config, cmd *askCmd) error {
	data, err := os.ReadFile(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	embedderType, err := provider.ParseEmbedderType(conf.Providers.Embedder)
	if err != nil {
		return fmt.Errorf("invalid embedder '%s': %w", conf.Providers.Embedder, err)
	}
	embedder, err := provider.NewEmbedder(embedderType)
	if err != nil {
		return err
	}

	generatorType, err := provider.ParseGeneratorType(conf.Providers.Generator)
	if err != nil {
		return fmt.Errorf("invalid generator '%s': %w", conf.Providers.Generator, err)
	}
	generator, err := provider.NewGenerator(generatorType)
	if err != nil {
		return err
	}

	extractOpts := []extract.Option{
		extract.WithQualityPolicy(buildQualityPolicy(conf)),
	}
	if conf.Providers.OCR != "" {
		ocrType, err := provider.ParseOCRType(conf.Providers.OCR)
		if err != nil {
			return fmt.Errorf("invalid ocr provider '%s': %w", conf.Providers.OCR, err)
		}
		ocr, err := provider.NewOCR(ocrType)
		if err != nil {
			return err
		}
		extractOpts = append(extractOpts, extract.WithOCR(ocr))
	}

	p := pipeline.New(
		extract.New(extractOpts...),
		embedder,
		generator,
		vector.MemoryBuilder{},
		buildPipelineConfig(conf),
	)

	if conf.Pipeline.Rerank && conf.Providers.Reranker != "" {
		rerankerType, err := provider.ParseRerankerType(conf.Providers.Reranker)
		if err != nil {
			return fmt.Errorf("invalid reranker '%s': %w", conf.Providers.Reranker, err)
		}
		reranker, err := provider.NewReranker(rerankerType)
		if err != nil {
			return err
		}
		p = p.WithReranker(reranker)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	di, err := p.Ingest(ctx, extract.Document{Name: cmd.File, Data: data})
	if err != nil {
		return err
	}
	defer di.Index.Close()

	answer, err := p.Ask(ctx, cmd.Question, di.Chunks, di.Index)
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}

func applyProviders(conf *config, wc *worker.WorkerConfig) error {
	embedderType, err := provider.ParseEmbedderType(conf.Providers.Embedder)
	if err != nil {
		return fmt.Errorf("invalid embedder '%s': %w", conf.Providers.Embedder, err)
	}
	wc.EmbedderType = embedderType

	generatorType, err := provider.ParseGeneratorType(conf.Providers.Generator)
	if err != nil {
		return fmt.Errorf("invalid generator '%s': %w", conf.Providers.Generator, err)
	}
	wc.GeneratorType = generatorType

	if conf.Providers.OCR != "" {
		ocrType, err := provider.ParseOCRType(conf.Providers.OCR)
		if err != nil {
			return fmt.Errorf("invalid ocr provider '%s': %w", conf.Providers.OCR, err)
		}
		wc.OCRType = &ocrType
	}

	if conf.Providers.Reranker != "" {
		rerankerType, err := provider.ParseRerankerType(conf.Providers.Reranker)
		if err != nil {
			return fmt.Errorf("invalid reranker '%s': %w", conf.Providers.Reranker, err)
		}
		wc.RerankerType = &rerankerType
	}

	return nil
}

func buildPipelineConfig(conf *config) pipeline.Config {
	pc := pipeline.DefaultConfig()
	if conf.Pipeline.ChunkSize != 0 {
		pc.Chunk = chunker.Config{
			Size:    conf.Pipeline.ChunkSize,
			Overlap: conf.Pipeline.ChunkOverlap,
		}
	}
	if conf.Pipeline.TopK != 0 {
		pc.TopK = conf.Pipeline.TopK
	}
	if conf.Pipeline.Temperature != 0 {
		pc.Temperature = conf.Pipeline.Temperature
	}
	if conf.Pipeline.MaxTokens != 0 {
		pc.MaxTokens = conf.Pipeline.MaxTokens
	}
	pc.ModelName = conf.Pipeline.Model
	pc.Rerank = conf.Pipeline.Rerank
	return pc
}

func buildQualityPolicy(conf *config) extract.QualityPolicy {
	qp := extract.DefaultQualityPolicy()
	if conf.Pipeline.MinWords != 0 {
		qp.MinWords = conf.Pipeline.MinWords
	}
	if conf.Pipeline.WatermarkToken != "" {
		qp.WatermarkToken = conf.Pipeline.WatermarkToken
	}
	if conf.Pipeline.MaxWatermarkHits != 0 {
		qp.MaxWatermarkHits = conf.Pipeline.MaxWatermarkHits
	}
	return qp
}

func buildBlobStore(conf *config) (blob.Store, error) {
	st, err := blob.ParseStoreType(conf.Blob.Backend)
	if err != nil {
		return nil, fmt.Errorf("invalid blob backend '%s': %w", conf.Blob.Backend, err)
	}

	switch st {
	case blob.StoreTypeMinio:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return blob.NewMinioStore(ctx, conf.Blob.Endpoint, conf.Blob.Bucket, conf.Blob.Secure)
	default:
		return blob.NewLocalStore(conf.Blob.Dir)
	}
}
