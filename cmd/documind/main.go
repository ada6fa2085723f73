// Command documind answers questions over a private document corpus using
// hybrid retrieval with guardrails, grounding validation, and an evaluation
// mode for golden Q&A sets.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/documind-ai/documind-go/internal/adapters/chunkstore"
	"github.com/documind-ai/documind-go/internal/adapters/embedding"
	"github.com/documind-ai/documind-go/internal/adapters/filewatcher"
	"github.com/documind-ai/documind-go/internal/adapters/history"
	"github.com/documind-ai/documind-go/internal/adapters/llm"
	"github.com/documind-ai/documind-go/internal/adapters/loader"
	"github.com/documind-ai/documind-go/internal/config"
	"github.com/documind-ai/documind-go/internal/domain/entities"
	"github.com/documind-ai/documind-go/internal/domain/ports"
	"github.com/documind-ai/documind-go/internal/domain/usecases"
	"github.com/documind-ai/documind-go/internal/evaluation"
	"github.com/documind-ai/documind-go/internal/grounding"
	"github.com/documind-ai/documind-go/internal/guardrails"
	"github.com/documind-ai/documind-go/internal/retrieval/fusion"
	"github.com/documind-ai/documind-go/internal/retrieval/lexical"
	"github.com/documind-ai/documind-go/internal/retrieval/semantic"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config YAML")
	evalPath := flag.String("eval", "", "run evaluation from a golden Q&A YAML file instead of the REPL")
	evalName := flag.String("eval-name", "golden", "name recorded for the evaluation run")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, cleanup, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}
	defer cleanup()

	for _, path := range flag.Args() {
		if err := app.ingestFile(ctx, path); err != nil {
			logger.WithError(err).WithField("path", path).Error("ingest failed")
		}
	}

	if cfg.WatchDir != "" {
		if err := app.watch(ctx, cfg.WatchDir); err != nil {
			logger.WithError(err).Error("could not start corpus watcher")
		}
	}

	if *evalPath != "" {
		if err := app.runEval(ctx, *evalName, *evalPath); err != nil {
			logger.Fatalf("evaluation: %v", err)
		}
		return
	}

	app.repl(ctx)
}

type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	loader  ports.DocumentLoader
	ingest  *usecases.IngestUseCase
	query   *usecases.QueryUseCase
	harness *evaluation.Harness
	watcher ports.FileWatcher
}

func buildApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*app, func(), error) {
	embedder, err := buildEmbedder(cfg.Embedder, logger)
	if err != nil {
		return nil, nil, err
	}
	completer, err := buildLLM(cfg.LLM, logger)
	if err != nil {
		return nil, nil, err
	}

	lex := lexical.NewIndex(lexical.Config{
		K1:              cfg.Retrieval.BM25K1,
		B:               cfg.Retrieval.BM25B,
		FilterStopwords: cfg.Retrieval.FilterStopwords,
	}, logger)
	sem := semantic.NewIndex(logger)
	fuser := fusion.NewEngine(cfg.Retrieval.RRFK)
	guard := guardrails.NewEngine(guardrails.Config{
		MaxInputChars:   cfg.Guardrails.MaxInputChars,
		MaxOutputChars:  cfg.Guardrails.MaxOutputChars,
		MaxControlChars: cfg.Guardrails.MaxControlChars,
	}, logger)
	validator := grounding.NewValidator(grounding.Config{
		Threshold:     cfg.Grounding.Threshold,
		WeightByScore: cfg.Grounding.WeightByScore,
	}, logger)

	var repo ports.ChunkRepository
	var sink ports.HistorySink
	cleanup := func() {}

	switch cfg.Storage.Type {
	case "memory":
		repo = chunkstore.NewMemoryStore()
	default:
		store, err := chunkstore.NewSQLiteStore(cfg.Storage.DataPath)
		if err != nil {
			return nil, nil, err
		}
		histSink, err := history.NewSQLiteSink(cfg.Storage.DataPath)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		repo, sink = store, histSink
		cleanup = func() {
			histSink.Close()
			store.Close()
		}

		// Rebuild the in-memory indices from persisted chunks.
		chunks, err := store.LoadAll(ctx)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("loading persisted chunks: %w", err)
		}
		for _, c := range chunks {
			if err := sem.Add(c); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("rebuilding semantic index: %w", err)
			}
			lex.Add(c)
		}
		if len(chunks) > 0 {
			logger.WithField("chunks", len(chunks)).Info("indices rebuilt from storage")
		}
	}

	ingest := usecases.NewIngestUseCase(embedder, repo, lex, sem, usecases.IngestConfig{
		ChunkSize:       cfg.Ingestion.ChunkSize,
		ChunkOverlap:    cfg.Ingestion.ChunkOverlap,
		ProviderTimeout: time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
	}, logger)

	query := usecases.NewQueryUseCase(embedder, completer, repo, sink, guard, validator,
		lex, sem, fuser, usecases.QueryConfig{
			TopK:            cfg.Retrieval.TopK,
			RetrieveK:       cfg.Retrieval.RetrieveK,
			ProviderTimeout: time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		}, logger)

	harness := evaluation.NewHarness(query, sink, evaluation.Config{
		Workers:             cfg.Evaluation.Workers,
		HitOverlapThreshold: cfg.Evaluation.HitOverlapThreshold,
	}, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		loader:  loader.NewTextLoader(),
		ingest:  ingest,
		query:   query,
		harness: harness,
	}, cleanup, nil
}

func buildEmbedder(cfg config.ProviderConfig, logger *logrus.Logger) (ports.EmbeddingService, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	switch cfg.Type {
	case "ollama", "":
		return embedding.NewOllamaAdapter(cfg.BaseURL, cfg.Model, timeout, logger), nil
	case "openai":
		return embedding.NewOpenAIAdapter(embedding.OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			APIKeyEnv: cfg.APIKeyEnv,
			Model:     cfg.Model,
			Timeout:   timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}

func buildLLM(cfg config.ProviderConfig, logger *logrus.Logger) (ports.CompletionService, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	switch cfg.Type {
	case "ollama", "":
		return llm.NewOllamaAdapter(cfg.BaseURL, cfg.Model, timeout, logger), nil
	case "openai":
		return llm.NewOpenAIAdapter(llm.OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKeyEnv:   cfg.APIKeyEnv,
			Model:       cfg.Model,
			Timeout:     timeout,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown llm type %q", cfg.Type)
	}
}

func (a *app) ingestFile(ctx context.Context, path string) error {
	_, text, err := a.loader.Load(ctx, path)
	if err != nil {
		return err
	}
	doc, err := a.ingest.Ingest(ctx, path, text)
	if err != nil {
		return err
	}
	a.logger.WithFields(logrus.Fields{
		"document_id": doc.ID,
		"chunks":      len(doc.ChunkIDs),
	}).Info("ingested")
	return nil
}

func (a *app) watch(ctx context.Context, dir string) error {
	w, err := filewatcher.NewFSNotifyWatcher(a.loader.SupportedExtensions(), filewatcher.DefaultDebounce, a.logger)
	if err != nil {
		return err
	}
	a.watcher = w

	events, err := w.Watch(ctx, dir)
	if err != nil {
		return err
	}
	go func() {
		for ev := range events {
			switch ev.Operation {
			case ports.FileCreated, ports.FileModified:
				if err := a.ingestFile(ctx, ev.Path); err != nil {
					a.logger.WithError(err).WithField("path", ev.Path).Warn("watch ingest failed")
				}
			case ports.FileDeleted:
				if err := a.ingest.DeleteByFilename(ctx, ev.Path); err != nil {
					a.logger.WithError(err).WithField("path", ev.Path).Warn("watch delete failed")
				} else {
					a.logger.WithField("path", ev.Path).Info("file removed from corpus")
				}
			}
		}
	}()
	a.logger.WithField("dir", dir).Info("watching corpus directory")
	return nil
}

func (a *app) runEval(ctx context.Context, name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var goldens []entities.GoldenQA
	if err := yaml.Unmarshal(data, &goldens); err != nil {
		return fmt.Errorf("parsing golden set: %w", err)
	}

	summary, results := a.harness.Run(ctx, name, goldens)
	for i, r := range results {
		status := "miss"
		if r.RetrievalHit {
			status = "hit"
		}
		if r.Err != "" {
			status = "error"
		}
		fmt.Printf("[%d/%d] %-5s faithfulness=%.2f latency=%s  %s\n",
			i+1, len(results), status, r.Faithfulness, r.Latency.Round(time.Millisecond), r.Question)
	}
	fmt.Printf("\n%s: retrieval_accuracy=%.1f%% avg_faithfulness=%.2f avg_latency=%s\n",
		summary.TestName, summary.RetrievalAccuracy*100, summary.AvgFaithfulness,
		summary.AvgLatency.Round(time.Millisecond))
	return nil
}

// shortID abbreviates a chunk id for display. Ids from externally seeded
// stores may be shorter than the hash-derived ones.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (a *app) repl(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Ask a question (empty line to quit):")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			return
		}

		answer, err := a.query.Ask(ctx, question)
		if err != nil {
			if pe, ok := entities.IsProviderError(err); ok && pe.Retryable {
				fmt.Println("A provider is unavailable right now; please try again.")
			} else {
				fmt.Printf("error: %v\n", err)
			}
			continue
		}

		fmt.Println(answer.Text)
		if len(answer.Flags) > 0 {
			fmt.Printf("  flags: %s\n", strings.Join(answer.Flags, ", "))
		}
		if !answer.Refused {
			fmt.Printf("  confidence: %.2f  latency: %s\n",
				answer.Confidence, answer.Latency.Round(time.Millisecond))
			for _, src := range answer.Sources {
				fmt.Printf("  - [%s] %.60s\n", shortID(src.ChunkID), src.Text)
			}
		}
	}
}
