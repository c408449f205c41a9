package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/resumer/internal/api"
	"github.com/dgallion1/resumer/internal/config"
	"github.com/dgallion1/resumer/internal/export"
	"github.com/dgallion1/resumer/internal/llm"
	"github.com/dgallion1/resumer/internal/parser"
	"github.com/dgallion1/resumer/internal/pipeline"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads and validates configuration from the --config file and
// the environment.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	level.UnmarshalText([]byte(cfg.LogLevel))
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// generator is a model backend that holds idle connections until closed.
type generator interface {
	llm.Generator
	Close()
}

func newGenerator(cfg config.Config) generator {
	if cfg.LLMProvider == "openai" {
		return llm.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout)
	}
	return llm.NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.LLMTimeout)
}

func retryPolicy(cfg config.Config) pipeline.RetryPolicy {
	return pipeline.RetryPolicy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBaseDelay}
}

// buildDeps wires the document pipeline. The orchestrator is left nil.
func buildDeps(cfg config.Config, gen llm.Generator, log *slog.Logger) api.Deps {
	svc := llm.NewService(gen, cfg.OutputLanguage, log)
	extractor := parser.NewExtractor(parser.Options{PDFFallback: cfg.PDFFallbackPdftotext})
	exporter := export.NewPDFExporter(cfg.OutputDirectory, log)

	return api.Deps{
		Processor: pipeline.NewProcessor(extractor, svc, exporter, retryPolicy(cfg), log),
		LLM:       svc,
		Files:     export.NewStore(cfg.OutputDirectory),
		Retry:     retryPolicy(cfg),
		Version:   version,
	}
}
