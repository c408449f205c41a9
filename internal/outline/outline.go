package outline

import "fmt"

// Section is a top-level unit of a document, opened by a section marker line.
type Section struct {
	Number      int          `json:"number"`       // Digits captured from the marker line
	Title       string       `json:"title"`        // Marker line, trimmed
	SubSections []SubSection `json:"sub_sections"` // In document order
	Summary     string       `json:"summary,omitempty"`
}

// SubSection is a unit nested in a Section, opened by a subsection marker line.
type SubSection struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Content string `json:"content"` // Trimmed body up to the next marker
}

// CountSubSections returns the total number of subsections across sections.
func CountSubSections(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.SubSections)
	}
	return n
}

// NumberingWarnings reports duplicate or non-increasing marker numbers.
// Detection accepts such numbering as-is; these are diagnostics only.
func NumberingWarnings(sections []Section) []string {
	var warnings []string
	for i, s := range sections {
		if i > 0 && s.Number <= sections[i-1].Number {
			warnings = append(warnings, fmt.Sprintf("section %q follows %q out of order", s.Title, sections[i-1].Title))
		}
		for j, sub := range s.SubSections {
			if j > 0 && sub.Number <= s.SubSections[j-1].Number {
				warnings = append(warnings, fmt.Sprintf("subsection %q in %q follows %q out of order", sub.Title, s.Title, s.SubSections[j-1].Title))
			}
		}
	}
	return warnings
}
