package llm

import (
	"context"
	"log/slog"
	"time"
)

// Generator sends a single prompt to a model and returns its completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Service builds the summary prompts and records call statistics.
// Each method makes exactly one call; retrying is up to the caller.
type Service struct {
	gen           Generator
	probeLanguage string
	log           *slog.Logger

	Stats *CallStats
}

func NewService(gen Generator, probeLanguage string, log *slog.Logger) *Service {
	return &Service{
		gen:           gen,
		probeLanguage: probeLanguage,
		log:           log,
		Stats:         NewCallStats(time.Hour),
	}
}

// TestConnection sends a short probe prompt and returns the reply.
func (s *Service) TestConnection(ctx context.Context) (string, error) {
	return s.generate(ctx, "probe", BuildProbePrompt(s.probeLanguage))
}

// Summarize summarizes one subsection.
func (s *Service) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	return s.generate(ctx, "subsection", BuildSubSectionPrompt(req))
}

// SummarizeText summarizes a free-standing piece of content.
func (s *Service) SummarizeText(ctx context.Context, content, language string) (string, error) {
	return s.generate(ctx, "text", BuildTextPrompt(content, language))
}

// Model returns the underlying model name.
func (s *Service) Model() string {
	return s.gen.Model()
}

func (s *Service) generate(ctx context.Context, kind, prompt string) (string, error) {
	start := time.Now()
	out, err := s.gen.Generate(ctx, prompt)
	elapsed := time.Since(start)
	s.Stats.Record(elapsed, err)

	s.log.Debug("llm call",
		"kind", kind,
		"model", s.gen.Model(),
		"prompt_tokens_est", EstimateTokens(prompt),
		"duration_ms", elapsed.Milliseconds(),
		"ok", err == nil,
	)
	return out, err
}
