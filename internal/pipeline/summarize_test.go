package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dgallion1/resumer/internal/llm"
	"github.com/dgallion1/resumer/internal/outline"
)

// scriptedSummarizer fails a title a fixed number of times before answering.
type scriptedSummarizer struct {
	mu       sync.Mutex
	failures map[string]int
	calls    []string
	inFlight int
	maxSeen  int
}

func (s *scriptedSummarizer) Summarize(_ context.Context, req llm.SummaryRequest) (string, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxSeen {
		s.maxSeen = s.inFlight
	}
	s.calls = append(s.calls, req.Title)
	remaining := s.failures[req.Title]
	if remaining > 0 {
		s.failures[req.Title] = remaining - 1
	}
	s.inFlight--
	s.mu.Unlock()

	if remaining != 0 {
		return "", errors.New("endpoint unavailable")
	}
	return "summary of " + req.Content, nil
}

func testSections() []outline.Section {
	return []outline.Section{
		{Number: 1, Title: "Unit 1", SubSections: []outline.SubSection{
			{Number: 1, Title: "Lesson 1", Content: "Hello"},
			{Number: 2, Title: "Lesson 2", Content: "World"},
		}},
		{Number: 2, Title: "Unit 2", SubSections: []outline.SubSection{
			{Number: 1, Title: "Lesson 1b", Content: "Bye"},
		}},
	}
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 1, Timer: &recordingTimer{}}
}

func TestSummarizeSections_AllSucceed(t *testing.T) {
	fake := &scriptedSummarizer{failures: map[string]int{}}
	s := NewSectionSummarizer(fake, fastPolicy(), discardLogger())

	out, stats, err := s.SummarizeSections(context.Background(), testSections(), SummaryOptions{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Succeeded != 3 || stats.Failed != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	want := "**Lesson 1**\n\nsummary of Hello\n\n---\n\n**Lesson 2**\n\nsummary of World"
	if out[0].Summary != want {
		t.Errorf("section 1 summary:\n got %q\nwant %q", out[0].Summary, want)
	}
	if out[1].Summary != "**Lesson 1b**\n\nsummary of Bye" {
		t.Errorf("unexpected section 2 summary %q", out[1].Summary)
	}
	if fake.maxSeen != 1 {
		t.Errorf("expected sequential calls, saw %d in flight", fake.maxSeen)
	}
	if strings.Join(fake.calls, ",") != "Lesson 1,Lesson 2,Lesson 1b" {
		t.Errorf("unexpected call order %v", fake.calls)
	}
}

func TestSummarizeSections_DoesNotMutateInput(t *testing.T) {
	in := testSections()
	s := NewSectionSummarizer(&scriptedSummarizer{failures: map[string]int{}}, fastPolicy(), discardLogger())
	if _, _, err := s.SummarizeSections(context.Background(), in, SummaryOptions{}, nil); err != nil {
		t.Fatal(err)
	}
	for _, sec := range in {
		if sec.Summary != "" {
			t.Errorf("input section %q was modified", sec.Title)
		}
	}
}

func TestSummarizeSections_RecoversWithinRetryBudget(t *testing.T) {
	fake := &scriptedSummarizer{failures: map[string]int{"Lesson 2": 2}}
	s := NewSectionSummarizer(fake, fastPolicy(), discardLogger())

	out, stats, err := s.SummarizeSections(context.Background(), testSections(), SummaryOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Succeeded != 3 {
		t.Errorf("expected 3 successes, got %+v", stats)
	}
	if strings.Contains(out[0].Summary, FailedSummaryNotice) {
		t.Error("did not expect a placeholder")
	}
	if len(fake.calls) != 5 {
		t.Errorf("expected 5 calls, got %d", len(fake.calls))
	}
}

func TestSummarizeSections_PlaceholderOnExhaustion(t *testing.T) {
	fake := &scriptedSummarizer{failures: map[string]int{"Lesson 1": -1}}
	s := NewSectionSummarizer(fake, fastPolicy(), discardLogger())

	out, stats, err := s.SummarizeSections(context.Background(), testSections(), SummaryOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Succeeded != 2 || stats.Failed != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	blocks := strings.Split(out[0].Summary, SummarySeparator)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0] != "**Lesson 1**\n\n"+FailedSummaryNotice {
		t.Errorf("unexpected placeholder block %q", blocks[0])
	}
	if blocks[1] != "**Lesson 2**\n\nsummary of World" {
		t.Errorf("run should continue after a failure, got %q", blocks[1])
	}
	count := 0
	for _, c := range fake.calls {
		if c == "Lesson 1" {
			count++
		}
	}
	if count != 3 {
		t.Errorf("expected 3 attempts for the failing subsection, got %d", count)
	}
}

func TestSummarizeSections_AllFail(t *testing.T) {
	fake := &scriptedSummarizer{failures: map[string]int{"Lesson 1": -1, "Lesson 2": -1, "Lesson 1b": -1}}
	s := NewSectionSummarizer(fake, fastPolicy(), discardLogger())

	out, stats, err := s.SummarizeSections(context.Background(), testSections(), SummaryOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Succeeded != 0 || stats.Failed != 3 {
		t.Errorf("unexpected stats %+v", stats)
	}
	for _, sec := range out {
		if !strings.Contains(sec.Summary, FailedSummaryNotice) {
			t.Errorf("section %q missing placeholder", sec.Title)
		}
	}
}

func TestSummarizeSections_SectionWithoutSubsections(t *testing.T) {
	s := NewSectionSummarizer(&scriptedSummarizer{failures: map[string]int{}}, fastPolicy(), discardLogger())
	out, _, err := s.SummarizeSections(context.Background(), []outline.Section{{Number: 1, Title: "Unit 1", SubSections: []outline.SubSection{}}}, SummaryOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Summary != "" {
		t.Errorf("expected empty summary, got %q", out[0].Summary)
	}
}

func TestSummarizeSections_ProgressCallback(t *testing.T) {
	fake := &scriptedSummarizer{failures: map[string]int{"Lesson 2": -1}}
	s := NewSectionSummarizer(fake, fastPolicy(), discardLogger())

	var seen []string
	_, _, err := s.SummarizeSections(context.Background(), testSections(), SummaryOptions{}, func(sec, sub int, ok bool) {
		mark := "ok"
		if !ok {
			mark = "fail"
		}
		seen = append(seen, strings.Join([]string{string(rune('0' + sec)), string(rune('0' + sub)), mark}, ":"))
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "0:0:ok,0:1:fail,1:0:ok"
	if strings.Join(seen, ",") != want {
		t.Errorf("expected %q, got %q", want, strings.Join(seen, ","))
	}
}

func TestSummarizeSections_CancelledBetweenSubsections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &scriptedSummarizer{failures: map[string]int{}}
	s := NewSectionSummarizer(fake, fastPolicy(), discardLogger())

	_, _, err := s.SummarizeSections(ctx, testSections(), SummaryOptions{}, func(int, int, bool) {
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(fake.calls) != 1 {
		t.Errorf("expected to stop after the first subsection, got %d calls", len(fake.calls))
	}
}
