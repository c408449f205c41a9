package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/resumer/internal/llm"
	"github.com/dgallion1/resumer/internal/outline"
)

const (
	// SummarySeparator joins the subsection blocks of one section summary.
	SummarySeparator = "\n\n---\n\n"

	// FailedSummaryNotice stands in for a subsection whose summary could not be generated.
	FailedSummaryNotice = "Error generating summary for this lesson after multiple attempts"
)

// Summarizer is the remote summarization call made for each subsection.
type Summarizer interface {
	Summarize(ctx context.Context, req llm.SummaryRequest) (string, error)
}

// SummaryOptions are the generation parameters shared by every subsection of a run.
type SummaryOptions struct {
	Subject  string
	Language string
}

// SummaryStats counts remote calls over one run.
type SummaryStats struct {
	Succeeded int
	Failed    int
}

// SubSectionDone is called after each subsection, successful or not.
type SubSectionDone func(section, subSection int, ok bool)

// SectionSummarizer fills in Section.Summary one subsection at a time.
type SectionSummarizer struct {
	llm    Summarizer
	policy RetryPolicy
	log    *slog.Logger
}

func NewSectionSummarizer(s Summarizer, policy RetryPolicy, log *slog.Logger) *SectionSummarizer {
	return &SectionSummarizer{llm: s, policy: policy, log: log}
}

// SummarizeSections returns a copy of sections with every Summary populated.
// Subsections are summarized strictly in order, never concurrently. A failed
// subsection gets a placeholder block and the run continues; only context
// cancellation, checked between subsections, stops it early.
func (s *SectionSummarizer) SummarizeSections(ctx context.Context, sections []outline.Section, opts SummaryOptions, done SubSectionDone) ([]outline.Section, SummaryStats, error) {
	out := make([]outline.Section, len(sections))
	var stats SummaryStats

	for i, sec := range sections {
		out[i] = sec
		blocks := make([]string, 0, len(sec.SubSections))

		for j, sub := range sec.SubSections {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}

			log := s.log.With("section", sec.Number, "subsection", sub.Number)
			req := llm.SummaryRequest{
				Title:    sub.Title,
				Content:  sub.Content,
				Subject:  opts.Subject,
				Language: opts.Language,
			}
			op := fmt.Sprintf("summarize %q", sub.Title)
			summary, err := Retry(ctx, op, s.policy, log, func(ctx context.Context) (string, error) {
				return s.llm.Summarize(ctx, req)
			})

			ok := err == nil
			switch {
			case ok:
				stats.Succeeded++
				blocks = append(blocks, formatBlock(sub.Title, summary))
			case ctx.Err() != nil:
				return nil, stats, ctx.Err()
			default:
				stats.Failed++
				log.Error("subsection summary failed, using placeholder", "error", err)
				blocks = append(blocks, formatBlock(sub.Title, FailedSummaryNotice))
			}

			if done != nil {
				done(i, j, ok)
			}
		}

		out[i].Summary = strings.Join(blocks, SummarySeparator)
		s.log.Info("section summarized",
			"section", sec.Number,
			"title", sec.Title,
			"subsections", len(sec.SubSections),
		)
	}
	return out, stats, nil
}

func formatBlock(title, body string) string {
	return "**" + title + "**\n\n" + body
}
