package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/resumer/internal/export"
	"github.com/dgallion1/resumer/internal/outline"
)

const (
	DefaultSectionPattern    = "Unit"
	DefaultSubSectionPattern = "Lesson"
	DefaultTitle             = "Document Summary"
)

// TextExtractor turns an input file into plain text.
type TextExtractor interface {
	ExtractFile(path string) (string, error)
}

// LLM is the remote model as the processor sees it.
type LLM interface {
	Summarizer
	TestConnection(ctx context.Context) (string, error)
}

// Exporter writes the summarized sections and returns the output path.
type Exporter interface {
	Export(sections []outline.Section, filename, title string) (string, error)
}

// Request describes one document run. Empty fields take defaults.
type Request struct {
	InputPath         string
	SectionPattern    string
	SubSectionPattern string
	Title             string
	Filename          string
	Subject           string
	Language          string
}

// Statistics summarizes a run.
type Statistics struct {
	TotalSections       int   `json:"totalSections"`
	TotalSubSections    int   `json:"totalSubSections"`
	SuccessfulSummaries int   `json:"successfulSummaries"`
	ProcessingTimeMs    int64 `json:"processingTimeMs"`
}

// Result is the outcome of Process. It is always returned, never an error.
type Result struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	OutputPath string      `json:"outputPath,omitempty"`
	Statistics *Statistics `json:"statistics,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Progress reports how far a run has got.
type Progress struct {
	Stage            JobStatus
	TotalSections    int
	TotalSubSections int
	Processed        int
	Succeeded        int
}

// ProgressFunc receives stage changes and per-subsection updates.
type ProgressFunc func(Progress)

// Processor runs extract, detect, summarize and export for one document.
type Processor struct {
	extractor  TextExtractor
	llm        LLM
	exporter   Exporter
	summarizer *SectionSummarizer
	log        *slog.Logger
	now        func() time.Time
}

func NewProcessor(extractor TextExtractor, llm LLM, exporter Exporter, policy RetryPolicy, log *slog.Logger) *Processor {
	return &Processor{
		extractor:  extractor,
		llm:        llm,
		exporter:   exporter,
		summarizer: NewSectionSummarizer(llm, policy, log),
		log:        log,
		now:        time.Now,
	}
}

func (r Request) withDefaults(now time.Time) Request {
	if strings.TrimSpace(r.SectionPattern) == "" {
		r.SectionPattern = DefaultSectionPattern
	}
	if strings.TrimSpace(r.SubSectionPattern) == "" {
		r.SubSectionPattern = DefaultSubSectionPattern
	}
	if strings.TrimSpace(r.Title) == "" {
		r.Title = DefaultTitle
	}
	if strings.TrimSpace(r.Filename) == "" {
		r.Filename = export.DefaultFilename(now)
	}
	return r
}

// Process runs the whole document pipeline. The connectivity probe, text
// extraction and section detection are fatal; individual subsection failures
// are not.
func (p *Processor) Process(ctx context.Context, req Request, progress ProgressFunc) Result {
	start := p.now()
	req = req.withDefaults(start)
	log := p.log.With("input", req.InputPath, "section_pattern", req.SectionPattern, "subsection_pattern", req.SubSectionPattern)
	if progress == nil {
		progress = func(Progress) {}
	}

	elapsed := func() int64 { return p.now().Sub(start).Milliseconds() }
	fail := func(stage string, err error, stats Statistics) Result {
		stats.ProcessingTimeMs = elapsed()
		log.Error("document processing failed", "stage", stage, "error", err)
		return Result{
			Success:    false,
			Message:    "Document processing failed",
			Statistics: &stats,
			Error:      err.Error(),
		}
	}

	reply, err := p.llm.TestConnection(ctx)
	if err != nil {
		return fail("preflight", fmt.Errorf("llm connection test failed: %w", err), Statistics{})
	}
	log.Info("llm connection ok", "reply", truncateForLog(reply, 80))

	progress(Progress{Stage: StatusExtracting})
	text, err := p.extractor.ExtractFile(req.InputPath)
	if err != nil {
		return fail("extract", err, Statistics{})
	}
	log.Info("text extracted", "chars", len(text))

	detector, err := outline.NewDetector(req.SectionPattern, req.SubSectionPattern)
	if err != nil {
		return fail("detect", err, Statistics{})
	}
	sections := detector.WithLogger(log).Detect(text)
	for _, w := range outline.NumberingWarnings(sections) {
		log.Warn("marker numbering", "detail", w)
	}

	stats := Statistics{
		TotalSections:    len(sections),
		TotalSubSections: outline.CountSubSections(sections),
	}
	log.Info("sections detected", "sections", stats.TotalSections, "subsections", stats.TotalSubSections)

	if len(sections) == 0 {
		stats.ProcessingTimeMs = elapsed()
		return Result{
			Success:    false,
			Message:    fmt.Sprintf("No sections found using patterns: %s/%s", req.SectionPattern, req.SubSectionPattern),
			Statistics: &stats,
			Error:      "No document structure detected",
		}
	}

	progress(Progress{Stage: StatusSummarizing, TotalSections: stats.TotalSections, TotalSubSections: stats.TotalSubSections})
	processed := 0
	summarized, sumStats, err := p.summarizer.SummarizeSections(ctx, sections, SummaryOptions{
		Subject:  req.Subject,
		Language: req.Language,
	}, func(_, _ int, ok bool) {
		processed++
		if ok {
			stats.SuccessfulSummaries++
		}
		progress(Progress{
			Stage:            StatusSummarizing,
			TotalSections:    stats.TotalSections,
			TotalSubSections: stats.TotalSubSections,
			Processed:        processed,
			Succeeded:        stats.SuccessfulSummaries,
		})
	})
	stats.SuccessfulSummaries = sumStats.Succeeded
	if err != nil {
		return fail("summarize", err, stats)
	}

	progress(Progress{Stage: StatusExporting, TotalSections: stats.TotalSections, TotalSubSections: stats.TotalSubSections, Processed: processed, Succeeded: stats.SuccessfulSummaries})
	outputPath, err := p.exporter.Export(summarized, req.Filename, req.Title)
	if err != nil {
		return fail("export", fmt.Errorf("export pdf: %w", err), stats)
	}

	stats.ProcessingTimeMs = elapsed()
	log.Info("document processed",
		"output", outputPath,
		"successful_summaries", stats.SuccessfulSummaries,
		"failed_summaries", sumStats.Failed,
		"duration_ms", stats.ProcessingTimeMs,
	)
	return Result{
		Success:    true,
		Message:    "Processing completed successfully",
		OutputPath: outputPath,
		Statistics: &stats,
	}
}

func truncateForLog(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
