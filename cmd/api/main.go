package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/jiwoo-ai/jiwoo/internal/api"
	"github.com/jiwoo-ai/jiwoo/internal/company"
	"github.com/jiwoo-ai/jiwoo/internal/config"
	"github.com/jiwoo-ai/jiwoo/internal/database"
	"github.com/jiwoo-ai/jiwoo/internal/engine"
	"github.com/jiwoo-ai/jiwoo/internal/extract"
	"github.com/jiwoo-ai/jiwoo/internal/index"
	"github.com/jiwoo-ai/jiwoo/internal/ingest"
	"github.com/jiwoo-ai/jiwoo/internal/intent"
	"github.com/jiwoo-ai/jiwoo/internal/llm"
	"github.com/jiwoo-ai/jiwoo/internal/logging"
	"github.com/jiwoo-ai/jiwoo/internal/memory"
	mw "github.com/jiwoo-ai/jiwoo/internal/middleware"
	inats "github.com/jiwoo-ai/jiwoo/internal/nats"
	"github.com/jiwoo-ai/jiwoo/internal/prompt"
	iredis "github.com/jiwoo-ai/jiwoo/internal/redis"
	"github.com/jiwoo-ai/jiwoo/internal/retrieval"
	"github.com/jiwoo-ai/jiwoo/internal/server"
	"github.com/jiwoo-ai/jiwoo/internal/websearch"
	"github.com/jiwoo-ai/jiwoo/internal/writeback"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(cfg.Log)

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var checks []api.HealthCheck

	// LLM provider
	provider, err := llm.NewProvider(ctx, cfg.LLM, cfg.Index.Dimension)
	if err != nil {
		return err
	}
	if c, ok := provider.(io.Closer); ok {
		defer c.Close()
	}
	slog.Info("llm provider ready", "provider", provider.Name(), "chat_model", cfg.LLM.ChatModel)

	var tokenizer llm.Tokenizer
	tokenizer, err = llm.NewTiktokenTokenizer(cfg.Prompt.Encoding)
	if err != nil {
		slog.Warn("tiktoken unavailable, counting bytes instead", "error", err, "encoding", cfg.Prompt.Encoding)
		tokenizer = llm.ByteTokenizer{}
	}

	// Similarity indexes: documents and company profiles
	var idx, companyIdx index.Index
	switch cfg.Index.Backend {
	case "postgres":
		pool, err := database.Open(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()

		pg := index.NewPostgresIndex(pool, cfg.Index.Table, cfg.Index.Dimension)
		if err := pg.EnsureCollection(ctx); err != nil {
			return err
		}
		idx = pg

		companies := index.NewPostgresIndex(pool, cfg.Index.CompanyTable, cfg.Index.Dimension)
		if err := companies.EnsureCollection(ctx); err != nil {
			return err
		}
		companyIdx = companies
		checks = append(checks, api.HealthCheck{Name: "database", Check: func(ctx context.Context) error {
			return database.HealthCheck(ctx, pool)
		}})
	default:
		slog.Warn("using in-process index, records are lost on restart")
		idx = index.NewMemoryIndex(cfg.Index.Dimension)
		companyIdx = index.NewMemoryIndex(cfg.Index.Dimension)
	}

	// Redis backs memory, the search cache and the rate limiter. It is
	// mandatory only for the redis memory backend.
	var redisClient *goredis.Client
	redisClient, err = iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		if cfg.Memory.Backend == "redis" {
			return err
		}
		slog.Warn("redis unavailable, running without cache and rate limit", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		checks = append(checks, api.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return iredis.HealthCheck(ctx, redisClient)
		}})
	}

	var store memory.Store
	if cfg.Memory.Backend == "redis" {
		store = memory.NewRedisStore(redisClient, cfg.Memory.TTL)
	} else {
		store = memory.NewInProcessStore()
	}
	mem := memory.NewService(store, tokenizer, cfg.Memory.Capacity, cfg.Memory.SummaryTokens)

	// Web search
	var searcher websearch.Searcher
	if cfg.Search.SerperAPIKey != "" {
		searcher = websearch.NewSerperClient(cfg.Search.SerperAPIKey, cfg.Search.Endpoint, cfg.Search.NumResults)
		if redisClient != nil {
			searcher = websearch.NewCachedSearcher(searcher, redisClient, cfg.Search.CacheTTL)
		}
	}

	// Write-back: through NATS when configured, inline otherwise
	cache := writeback.NewCache(provider, idx, cfg.Timeouts.Embed)
	var persister writeback.Persister = cache
	var consumer *writeback.Consumer
	if cfg.NATS.URL != "" {
		natsClient, err := inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			return err
		}
		defer natsClient.Close()

		persister = inats.NewPublisher(natsClient.JetStream())
		consumer = writeback.NewConsumer(cache, inats.NewConsumerManager(natsClient.JetStream()))
		checks = append(checks, api.HealthCheck{Name: "nats", Check: natsClient.HealthCheck})
	}

	eng := engine.New(engine.Deps{
		Completer: provider,
		Analyzer:  intent.NewAnalyzer(provider, cfg.Timeouts.Completion),
		Queries:   intent.NewQueryGenerator(provider, cfg.Retrieval.MaxQueries, cfg.Timeouts.Completion),
		Retriever: retrieval.New(provider, idx, searcher, retrieval.Options{
			EmbedTimeout:  cfg.Timeouts.Embed,
			SearchTimeout: cfg.Timeouts.Search,
		}),
		Assembler: prompt.NewAssembler(tokenizer, cfg.Prompt.MaxTokens),
		Memory:    mem,
		Extractor: extract.NewPipeline(provider, cfg.Timeouts.Completion),
		Persister: persister,
	}, engine.Options{
		TopK:              cfg.Retrieval.TopK,
		Threshold:         cfg.Retrieval.Threshold,
		Temperature:       cfg.LLM.Temperature,
		MaxAnswerTokens:   cfg.LLM.MaxAnswerTokens,
		CompletionTimeout: cfg.Timeouts.Completion,
	})
	engineHandler := engine.NewHandler(eng)

	loader := ingest.NewLoader(provider, idx, ingest.NewSplitter(ingest.DefaultChunkSize), cfg.Timeouts.Embed)
	ingestHandler := ingest.NewHandler(loader)
	companyHandler := company.NewHandler(company.NewDirectory(provider, companyIdx, cfg.Timeouts.Embed))

	routerCfg := api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		HealthChecks:       checks,
	}
	if redisClient != nil && cfg.RateLimit.ChatRequests > 0 {
		limiter := mw.NewRateLimiter(redisClient, "ratelimit:chat:", cfg.RateLimit.ChatRequests, cfg.RateLimit.WindowSeconds)
		routerCfg.ChatRateLimiter = limiter.Middleware
	}

	router := api.NewRouter(routerCfg, api.HandlerSet{
		Chat:        engineHandler.Chat,
		GetMemory:   engineHandler.GetMemory,
		ClearMemory: engineHandler.ClearMemory,
		AddRecord:   ingestHandler.Create,

		AddCompany:      companyHandler.Create,
		SearchCompanies: companyHandler.Search,
	})

	g, gctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error { return consumer.Start(gctx) })
	}
	g.Go(func() error {
		err := server.New(cfg.Server, router).Start(gctx)
		stop()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
