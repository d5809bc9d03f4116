/**
 * Section extraction tests
 *
 * Validates the single-pass section scanner against legal, CPS, and
 * toxicology document shapes, plus the fallback path for unstructured
 * text.
 */

package processor

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractSectionsHeaders(t *testing.T) {
	testCases := []struct {
		name           string
		text           string
		expectedTitles []string
	}{
		{
			name: "court document with all-caps headers",
			text: "INTRODUCTION\nThis case concerns the removal of a child.\nFACTS\nOn January 3 the child was removed.\nCONCLUSION\nThe order should be vacated.",
			expectedTitles: []string{
				"INTRODUCTION",
				"FACTS",
				"CONCLUSION",
			},
		},
		{
			name: "numbered sections",
			text: "1. Statement of Facts\nThe facts are as follows.\n2. Legal Argument\nThe argument proceeds in two parts.",
			expectedTitles: []string{
				"1. Statement of Facts",
				"2. Legal Argument",
			},
		},
		{
			name: "toxicology report headers",
			text: "LABORATORY REPORT\nSample received intact.\nMETHODOLOGY\nGC-MS confirmation performed.",
			expectedTitles: []string{
				"LABORATORY REPORT",
				"METHODOLOGY",
			},
		},
		{
			name: "party-prefix headers",
			text: "Plaintiff alleges as follows\nParagraph one of the complaint.\nDefendant responds\nParagraph one of the answer.",
			expectedTitles: []string{
				"Plaintiff alleges as follows",
				"Defendant responds",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sections := ExtractSections(tc.text)

			if len(sections) != len(tc.expectedTitles) {
				t.Fatalf("expected %d sections, got %d: %+v", len(tc.expectedTitles), len(sections), sections)
			}

			for i, section := range sections {
				if section.Title != tc.expectedTitles[i] {
					t.Errorf("section %d: expected title %q, got %q", i, tc.expectedTitles[i], section.Title)
				}
				if section.Content == "" {
					t.Errorf("section %d (%q): content is empty", i, section.Title)
				}
				if section.Confidence != 0.8 {
					t.Errorf("section %d: expected confidence 0.8, got %v", i, section.Confidence)
				}
			}
		})
	}
}

func TestExtractSectionsFallback(t *testing.T) {
	text := "just some unstructured prose\nwith no recognizable headers at all"

	sections := ExtractSections(text)

	if len(sections) != 1 {
		t.Fatalf("expected single fallback section, got %d", len(sections))
	}

	if sections[0].Title != "Document Content" {
		t.Errorf("expected fallback title %q, got %q", "Document Content", sections[0].Title)
	}

	if sections[0].Content != text {
		t.Errorf("fallback section should hold the entire text, got %q", sections[0].Content)
	}

	if sections[0].Confidence != 0.9 {
		t.Errorf("expected fallback confidence 0.9, got %v", sections[0].Confidence)
	}
}

func TestExtractSectionsPreservesLineOrder(t *testing.T) {
	text := "FACTS\nfirst line\nsecond line\nthird line"

	sections := ExtractSections(text)

	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}

	// Content lines appear in input order, newline-joined
	expected := "first line\nsecond line\nthird line\n"
	if sections[0].Content != expected {
		t.Errorf("expected content %q, got %q", expected, sections[0].Content)
	}
}

func TestExtractSectionsSkipsBlankLines(t *testing.T) {
	text := "FACTS\n\nfirst line\n\n\nsecond line\n"

	sections := ExtractSections(text)

	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}

	if strings.Contains(sections[0].Content, "\n\n") {
		t.Errorf("blank lines should be dropped, got %q", sections[0].Content)
	}
}

func TestExtractSectionsHeaderWithoutContentDropped(t *testing.T) {
	// Two consecutive headers: the first has no content and is not emitted
	text := "INTRODUCTION\nFACTS\nthe only body line"

	sections := ExtractSections(text)

	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d: %+v", len(sections), sections)
	}

	if sections[0].Title != "FACTS" {
		t.Errorf("expected title FACTS, got %q", sections[0].Title)
	}
}

func TestExtractSectionsDeterministic(t *testing.T) {
	text := "INTRODUCTION\nalpha\nFACTS\nbravo\ncharlie\nCONCLUSION\ndelta"

	first := ExtractSections(text)
	second := ExtractSections(text)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical input produced different output:\n%+v\n%+v", first, second)
	}
}
