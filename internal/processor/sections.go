package processor

import (
	"regexp"
	"strings"
)

// Header-detection patterns for legal, CPS, and toxicology documents.
// Tested in order against each trimmed line; first match wins.
var sectionPatterns = []*regexp.Regexp{
	// Court document patterns
	regexp.MustCompile(`^(?:I{1,3}\.|A\.|1\.)\s+.+$`),
	regexp.MustCompile(`^(?:INTRODUCTION|BACKGROUND|FACTS|ARGUMENT|CONCLUSION|ORDER)$`),
	regexp.MustCompile(`^(?:Plaintiff|Defendant|Court|Judge|Case|No\.|Date)`),

	// CPS/family court patterns
	regexp.MustCompile(`^(?:PETITION|COMPLAINT|RESPONSE|MOTION|ORDER|REPORT)$`),
	regexp.MustCompile(`^(?:Child|Parent|Guardian|Attorney|Social Worker)`),

	// Medical/toxicology patterns
	regexp.MustCompile(`^(?:LABORATORY REPORT|TOXICOLOGY RESULTS|ANALYSIS|METHODOLOGY)$`),
	regexp.MustCompile(`^(?:Patient|Specimen|Test|Result|Reference Range)`),

	// General patterns
	regexp.MustCompile(`^[A-Z][A-Z\s]{2,}:`), // ALL CAPS headers
	regexp.MustCompile(`^\d+\.\s+.+$`),       // Numbered sections
}

// ExtractSections partitions extracted text into titled sections using a
// single left-to-right pass over the lines. A line matching a header
// pattern closes the current section and opens a new one with that line as
// title. Other non-empty lines append to the open section. If nothing
// matched, the whole text is wrapped in a single "Document Content"
// section. Pure function; identical input yields identical output.
func ExtractSections(text string) []DocumentSection {
	sections := make([]DocumentSection, 0)

	lines := strings.Split(text, "\n")
	var current *DocumentSection

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if line != "" && isSectionHeader(line) {
			// Close the current section if it has both title and content
			if current != nil && current.Title != "" && current.Content != "" {
				sections = append(sections, *current)
			}

			current = &DocumentSection{
				Title:      line,
				Confidence: 0.8,
			}
		} else if current != nil && line != "" {
			current.Content += line + "\n"
		}
	}

	// Flush the last open section
	if current != nil && current.Title != "" && current.Content != "" {
		sections = append(sections, *current)
	}

	// Fallback: a single section holding the entire text
	if len(sections) == 0 {
		sections = append(sections, DocumentSection{
			Title:      "Document Content",
			Content:    text,
			Confidence: 0.9,
		})
	}

	return sections
}

func isSectionHeader(line string) bool {
	for _, pattern := range sectionPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}
