package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/apresai/mulmoprep/internal/config"
	"github.com/apresai/mulmoprep/internal/ingest"
	"github.com/apresai/mulmoprep/internal/llm"
	"github.com/apresai/mulmoprep/internal/mcpserver"
	"github.com/apresai/mulmoprep/internal/observability"
	"github.com/apresai/mulmoprep/internal/script"
	"github.com/apresai/mulmoprep/internal/storage"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		observability.InitLogger(os.Stderr, slog.LevelInfo).Error("Invalid configuration", "error", err)
		return 1
	}
	level, err := observability.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		observability.InitLogger(os.Stderr, slog.LevelInfo).Error("Invalid configuration", "error", err)
		return 1
	}
	// stdout carries the protocol in stdio mode.
	logger := observability.InitLogger(os.Stderr, level)

	logger.Info("MulmoPrep MCP Server starting...", "version", Version, "transport", cfg.MCPTransport)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.OTLPEndpoint != "" {
		tp, err := observability.InitTracer(ctx, "mulmoprep-mcp", Version, cfg.Environment)
		if err != nil {
			logger.Warn("Failed to init tracer, continuing without tracing", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					logger.Error("Tracer shutdown error", "error", err)
				}
			}()
		}
	}

	awsCfg, err := storage.LoadAWSConfig(ctx, cfg.AWSRegion)
	if err != nil {
		logger.Error("Failed to load AWS config", "error", err)
		return 1
	}

	var keys *config.Keys
	if cfg.SecretPrefix != "" {
		keys = config.LoadKeys(ctx, secretsmanager.NewFromConfig(awsCfg), cfg.SecretPrefix, llm.DefaultConfig().Providers, logger, config.MCPAPIKeyName)
	}
	apiKey, err := cfg.ResolveMCPAPIKey(keys)
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		return 1
	}

	llmCfg := cfg.LLMConfig(keys)
	llmCfg.HTTPClient = ingest.NewHTTPClient(120 * time.Second)
	llmCfg.Logger = logger

	extractor, err := ingest.NewExtractor(cfg.Extractor)
	if err != nil {
		logger.Error("Invalid extractor", "error", err)
		return 1
	}
	provider, _ := llm.ParseProvider(cfg.Provider)

	// Script URLs arrive from remote callers over http; reference URLs
	// always come from tool arguments or script content.
	loaderClient := ingest.NewHTTPClient(script.LoadTimeout)
	if cfg.MCPTransport == mcpserver.TransportHTTP {
		loaderClient = ingest.NewPublicHTTPClient(script.LoadTimeout)
	}

	srv, err := mcpserver.New(mcpserver.Config{
		Version:        Version,
		Transport:      cfg.MCPTransport,
		Addr:           cfg.MCPAddr,
		APIKey:         apiKey,
		Provider:       provider,
		Model:          cfg.Model,
		FetchMaxLength: cfg.FetchMaxLength,
	}, mcpserver.Deps{
		Loader: script.NewLoader(loaderClient, storage.NewFromConfig(awsCfg)),
		LLM:    llm.New(llmCfg),
		Fetcher: ingest.NewFetcher(
			ingest.WithHTTPClient(ingest.NewPublicHTTPClient(ingest.FetchTimeout)),
			ingest.WithExtractor(extractor),
			ingest.WithLogger(logger),
		),
	}, logger)
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		return 1
	}

	if err := srv.Start(ctx); err != nil {
		logger.Error("Server error", "error", err)
		return 1
	}
	return 0
}
