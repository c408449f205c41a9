package outline

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Detector splits document text into sections and subsections. A marker line
// starts with a keyword (case-insensitive), whitespace, then a run of digits.
type Detector struct {
	section    *regexp.Regexp
	subSection *regexp.Regexp
	log        *slog.Logger
}

// NewDetector compiles the two marker keywords. Keywords are regular
// expression fragments, so "Unit|Chapter" matches either word.
func NewDetector(sectionKeyword, subSectionKeyword string) (*Detector, error) {
	section, err := markerPattern(sectionKeyword)
	if err != nil {
		return nil, fmt.Errorf("section pattern: %w", err)
	}
	subSection, err := markerPattern(subSectionKeyword)
	if err != nil {
		return nil, fmt.Errorf("subsection pattern: %w", err)
	}
	return &Detector{section: section, subSection: subSection}, nil
}

// WithLogger returns a copy of d that reports discarded subsection markers.
func (d *Detector) WithLogger(log *slog.Logger) *Detector {
	cp := *d
	cp.log = log
	return &cp
}

// DetectSections is a convenience wrapper around NewDetector and Detect.
func DetectSections(text, sectionKeyword, subSectionKeyword string) ([]Section, error) {
	d, err := NewDetector(sectionKeyword, subSectionKeyword)
	if err != nil {
		return nil, err
	}
	return d.Detect(text), nil
}

func markerPattern(keyword string) (*regexp.Regexp, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("empty marker keyword")
	}
	re, err := regexp.Compile(`(?i)^(?:` + keyword + `)\s+(?P<number>\d+)`)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", keyword, err)
	}
	return re, nil
}

// detectState is carried from one line to the next.
type detectState struct {
	sections []Section
	section  *Section
	sub      *SubSection
	buffer   []string

	orphans []int // 1-based line numbers of subsection markers seen before any section
}

// Detect makes a single pass over the lines of text. Lines before the first
// subsection of a section, and subsection markers before any section, are
// dropped. Numbers are taken as-is, without uniqueness or order checks.
func (d *Detector) Detect(text string) []Section {
	var st detectState
	for i, line := range strings.Split(text, "\n") {
		st = d.step(st, i+1, line)
	}
	st = st.closeSection()

	if d.log != nil {
		for _, lineNo := range st.orphans {
			d.log.Warn("subsection marker before any section, discarded", "line", lineNo)
		}
	}
	return st.sections
}

func (d *Detector) step(st detectState, lineNo int, line string) detectState {
	// A section marker wins even when the line also matches the subsection pattern.
	if m := d.section.FindStringSubmatch(line); m != nil {
		st = st.closeSection()
		st.section = &Section{
			Number:      markerNumber(d.section, m),
			Title:       strings.TrimSpace(line),
			SubSections: []SubSection{},
		}
		return st
	}

	if m := d.subSection.FindStringSubmatch(line); m != nil {
		if st.section == nil {
			st.orphans = append(st.orphans, lineNo)
			return st
		}
		st = st.flushSubSection()
		st.sub = &SubSection{
			Number: markerNumber(d.subSection, m),
			Title:  strings.TrimSpace(line),
		}
		return st
	}

	if st.sub != nil {
		st.buffer = append(st.buffer, line)
	}
	return st
}

// flushSubSection attaches the in-progress subsection to the current section.
func (st detectState) flushSubSection() detectState {
	if st.sub != nil && st.section != nil {
		sub := *st.sub
		sub.Content = strings.TrimSpace(strings.Join(st.buffer, "\n"))
		st.section.SubSections = append(st.section.SubSections, sub)
	}
	st.sub = nil
	st.buffer = nil
	return st
}

// closeSection flushes the pending subsection, then appends the current section.
func (st detectState) closeSection() detectState {
	st = st.flushSubSection()
	if st.section != nil {
		st.sections = append(st.sections, *st.section)
		st.section = nil
	}
	return st
}

func markerNumber(re *regexp.Regexp, match []string) int {
	idx := re.SubexpIndex("number")
	if idx < 0 || idx >= len(match) {
		return 0
	}
	n, err := strconv.Atoi(match[idx])
	if err != nil {
		return 0
	}
	return n
}
