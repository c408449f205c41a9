package outline

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func mustDetect(t *testing.T, text string) []Section {
	t.Helper()
	sections, err := DetectSections(text, "Unit", "Lesson")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sections
}

func TestDetect_TwoSections(t *testing.T) {
	text := "Unit 1\nLesson 1\nHello\nLesson 2\nWorld\nUnit 2\nLesson 1\nBye"
	sections := mustDetect(t, text)

	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if len(sections[0].SubSections) != 2 {
		t.Fatalf("expected 2 subsections in section 1, got %d", len(sections[0].SubSections))
	}
	if sections[0].SubSections[0].Content != "Hello" {
		t.Errorf("expected %q, got %q", "Hello", sections[0].SubSections[0].Content)
	}
	if sections[0].SubSections[1].Content != "World" {
		t.Errorf("expected %q, got %q", "World", sections[0].SubSections[1].Content)
	}
	if len(sections[1].SubSections) != 1 {
		t.Fatalf("expected 1 subsection in section 2, got %d", len(sections[1].SubSections))
	}
	if sections[1].SubSections[0].Content != "Bye" {
		t.Errorf("expected %q, got %q", "Bye", sections[1].SubSections[0].Content)
	}
	if sections[1].Number != 2 || sections[1].Title != "Unit 2" {
		t.Errorf("unexpected section 2 header: %d %q", sections[1].Number, sections[1].Title)
	}
}

func TestDetect_EmptyText(t *testing.T) {
	if sections := mustDetect(t, ""); len(sections) != 0 {
		t.Errorf("expected no sections, got %d", len(sections))
	}
}

func TestDetect_SectionWithoutSubSections(t *testing.T) {
	sections := mustDetect(t, "Unit 7\nsome intro text\nmore text")
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if sections[0].Number != 7 {
		t.Errorf("expected number 7, got %d", sections[0].Number)
	}
	if len(sections[0].SubSections) != 0 {
		t.Errorf("expected no subsections, got %d", len(sections[0].SubSections))
	}
}

func TestDetect_OrphanSubSectionDiscarded(t *testing.T) {
	sections := mustDetect(t, "Lesson 1\norphan content\nmore orphan")
	if len(sections) != 0 {
		t.Fatalf("expected 0 sections, got %d", len(sections))
	}
}

func TestDetect_OrphanBeforeFirstSection(t *testing.T) {
	sections := mustDetect(t, "Lesson 9\nlost\nUnit 1\nLesson 1\nkept")
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	subs := sections[0].SubSections
	if len(subs) != 1 || subs[0].Content != "kept" || subs[0].Number != 1 {
		t.Errorf("unexpected subsections: %+v", subs)
	}
}

func TestDetect_OrphanIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	d, err := NewDetector("Unit", "Lesson")
	if err != nil {
		t.Fatal(err)
	}
	d.WithLogger(log).Detect("intro\nLesson 3\nUnit 1")
	if !strings.Contains(buf.String(), "line=2") {
		t.Errorf("expected warning naming line 2, got %q", buf.String())
	}
}

func TestDetect_ContentBeforeFirstSubSectionDropped(t *testing.T) {
	sections := mustDetect(t, "preamble\nUnit 1\nunit intro\nLesson 1\nbody")
	if len(sections) != 1 || len(sections[0].SubSections) != 1 {
		t.Fatalf("unexpected structure: %+v", sections)
	}
	if got := sections[0].SubSections[0].Content; got != "body" {
		t.Errorf("expected %q, got %q", "body", got)
	}
}

func TestDetect_ContentIsTrimmedJoin(t *testing.T) {
	text := "Unit 1\nLesson 1\n\n  first line\n\nsecond line  \n\nLesson 2"
	sections := mustDetect(t, text)
	subs := sections[0].SubSections
	if len(subs) != 2 {
		t.Fatalf("expected 2 subsections, got %d", len(subs))
	}
	want := "first line\n\nsecond line"
	if subs[0].Content != want {
		t.Errorf("expected %q, got %q", want, subs[0].Content)
	}
	if subs[1].Content != "" {
		t.Errorf("expected empty content for trailing marker, got %q", subs[1].Content)
	}
}

func TestDetect_CaseInsensitiveAndTrailingText(t *testing.T) {
	sections := mustDetect(t, "UNIT 3 - Foundations\nlesson 12: Intro  \ncontent")
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if sections[0].Title != "UNIT 3 - Foundations" || sections[0].Number != 3 {
		t.Errorf("unexpected section: %+v", sections[0])
	}
	sub := sections[0].SubSections[0]
	if sub.Title != "lesson 12: Intro" || sub.Number != 12 {
		t.Errorf("unexpected subsection: %+v", sub)
	}
}

func TestDetect_MarkerMustStartLine(t *testing.T) {
	sections := mustDetect(t, "Unit 1\nLesson 1\nsee Unit 2 for more\n  Lesson 2 indented")
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	subs := sections[0].SubSections
	if len(subs) != 1 {
		t.Fatalf("expected 1 subsection, got %d", len(subs))
	}
	if !strings.Contains(subs[0].Content, "see Unit 2") || !strings.Contains(subs[0].Content, "Lesson 2 indented") {
		t.Errorf("expected non-anchored markers kept as content, got %q", subs[0].Content)
	}
}

func TestDetect_MarkerNeedsDigits(t *testing.T) {
	sections := mustDetect(t, "Unit one\nUnit 1\nLesson\nLesson 1\nx")
	if len(sections) != 1 || len(sections[0].SubSections) != 1 {
		t.Fatalf("unexpected structure: %+v", sections)
	}
}

func TestDetect_SectionPatternTakesPrecedence(t *testing.T) {
	sections, err := DetectSections("Part 1\nPart 2\nbody", "Part", "Part")
	if err != nil {
		t.Fatal(err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	for _, s := range sections {
		if len(s.SubSections) != 0 {
			t.Errorf("expected no subsections in %q", s.Title)
		}
	}
}

func TestDetect_DuplicateAndOutOfOrderNumbersKept(t *testing.T) {
	sections := mustDetect(t, "Unit 2\nLesson 5\na\nLesson 5\nb\nUnit 1\nLesson 3\nc")
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Number != 2 || sections[1].Number != 1 {
		t.Errorf("expected numbers kept in document order, got %d, %d", sections[0].Number, sections[1].Number)
	}
	if got := len(sections[0].SubSections); got != 2 {
		t.Errorf("expected duplicate subsection numbers kept, got %d subsections", got)
	}
	if w := NumberingWarnings(sections); len(w) != 2 {
		t.Errorf("expected 2 numbering warnings, got %v", w)
	}
}

func TestDetect_SubSectionCountMatchesMarkersAfterFirstSection(t *testing.T) {
	text := strings.Join([]string{
		"Lesson 0", "x",
		"Unit 1", "Lesson 1", "a", "Lesson 2", "b",
		"Unit 2",
		"Unit 3", "Lesson 1", "c", "Lesson 2", "Lesson 3", "d",
	}, "\n")
	sections := mustDetect(t, text)
	if got := CountSubSections(sections); got != 5 {
		t.Errorf("expected 5 subsections, got %d", got)
	}

	var titles []string
	for _, s := range sections {
		for _, sub := range s.SubSections {
			titles = append(titles, sub.Title)
		}
	}
	want := "Lesson 1,Lesson 2,Lesson 1,Lesson 2,Lesson 3"
	if got := strings.Join(titles, ","); got != want {
		t.Errorf("expected order %q, got %q", want, got)
	}
}

func TestDetect_AlternationKeyword(t *testing.T) {
	sections, err := DetectSections("Chapter 1\nLesson 1\na\nUnit 2\nLesson 1\nb", "Unit|Chapter", "Lesson")
	if err != nil {
		t.Fatal(err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
}

func TestNewDetector_InvalidPattern(t *testing.T) {
	if _, err := NewDetector("Unit[", "Lesson"); err == nil {
		t.Error("expected error for invalid section pattern")
	}
	if _, err := NewDetector("Unit", "  "); err == nil {
		t.Error("expected error for empty subsection pattern")
	}
}

func TestDetect_CRLFInput(t *testing.T) {
	sections := mustDetect(t, "Unit 1\r\nLesson 1\r\nHello\r\n")
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if sections[0].Title != "Unit 1" {
		t.Errorf("expected trimmed title, got %q", sections[0].Title)
	}
	if got := sections[0].SubSections[0].Content; got != "Hello" {
		t.Errorf("expected %q, got %q", "Hello", got)
	}
}
