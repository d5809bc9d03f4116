/**
 * Response parser tests
 *
 * Validates violation extraction from free-text model replies, severity
 * aggregation, the authenticity and custody heuristics, and the fail-soft
 * default for garbled replies.
 */

package analysis

import (
	"strings"
	"testing"
)

func TestParseAnalysisResponseSingleViolation(t *testing.T) {
	reply := strings.Join([]string{
		"Violation: Due Process Failure",
		"The parent was not notified before the hearing.",
		"Legal basis: 14th Amendment",
		"Severity: critical",
		"Remedy: File motion to compel",
	}, "\n")

	result := ParseAnalysisResponse(reply)

	if len(result.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(result.Violations))
	}

	v := result.Violations[0]
	if v.Type != "Due Process Failure" {
		t.Errorf("expected type %q, got %q", "Due Process Failure", v.Type)
	}
	if v.LegalBasis != "14th Amendment" {
		t.Errorf("expected legal basis %q, got %q", "14th Amendment", v.LegalBasis)
	}
	if v.Severity != SeverityCritical {
		t.Errorf("expected severity critical, got %q", v.Severity)
	}
	if len(v.Remedies) != 1 || v.Remedies[0] != "File motion to compel" {
		t.Errorf("expected remedy %q, got %v", "File motion to compel", v.Remedies)
	}
	if !strings.Contains(v.Description, "The parent was not notified") {
		t.Errorf("expected description to carry the body line, got %q", v.Description)
	}

	if result.Severity != SeverityCritical {
		t.Errorf("expected overall severity critical, got %q", result.Severity)
	}
	if result.Confidence != 0.8 {
		t.Errorf("expected confidence 0.8, got %v", result.Confidence)
	}
}

func TestParseAnalysisResponseNoViolations(t *testing.T) {
	result := ParseAnalysisResponse("The document appears to be in order. No concerns identified.")

	if len(result.Violations) != 0 {
		t.Fatalf("expected no violations, got %d", len(result.Violations))
	}

	if result.Severity != SeverityLow {
		t.Errorf("expected overall severity low for empty violations, got %q", result.Severity)
	}

	if !result.Authenticity.IsAuthentic {
		t.Errorf("expected authentic by default")
	}

	if !result.ChainOfCustody.Intact {
		t.Errorf("expected custody intact by default")
	}
}

func TestParseAnalysisResponseMultipleViolationsMaxSeverity(t *testing.T) {
	reply := strings.Join([]string{
		"Violation: Notice Defect",
		"Severity: low",
		"",
		"Violation: Evidence Tampering",
		"Severity: high",
		"",
		"Violation: Procedural Error",
		"Severity: medium",
	}, "\n")

	result := ParseAnalysisResponse(reply)

	if len(result.Violations) != 3 {
		t.Fatalf("expected 3 violations, got %d", len(result.Violations))
	}

	if result.Severity != SeverityHigh {
		t.Errorf("expected overall severity high (the maximum), got %q", result.Severity)
	}
}

func TestParseAnalysisResponseDefaultSeverityMedium(t *testing.T) {
	// A violation with no Severity line keeps the medium default
	reply := "Violation: Unspecified Concern\nSome descriptive text about the concern."

	result := ParseAnalysisResponse(reply)

	if len(result.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(result.Violations))
	}

	if result.Violations[0].Severity != SeverityMedium {
		t.Errorf("expected default severity medium, got %q", result.Violations[0].Severity)
	}

	if result.Severity != SeverityMedium {
		t.Errorf("expected overall severity medium, got %q", result.Severity)
	}
}

func TestParseAnalysisResponseAuthenticityHeuristic(t *testing.T) {
	testCases := []struct {
		name      string
		reply     string
		authentic bool
	}{
		{
			name:      "clean reply",
			reply:     "The document raises no concerns.",
			authentic: true,
		},
		{
			name:      "forged",
			reply:     "The signature page appears forged.",
			authentic: false,
		},
		{
			name:      "inauthentic",
			reply:     "Formatting suggests the exhibit is inauthentic.",
			authentic: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ParseAnalysisResponse(tc.reply)
			if result.Authenticity.IsAuthentic != tc.authentic {
				t.Errorf("expected IsAuthentic=%v, got %v", tc.authentic, result.Authenticity.IsAuthentic)
			}
		})
	}
}

func TestParseAnalysisResponseCustodyHeuristic(t *testing.T) {
	testCases := []struct {
		name   string
		reply  string
		intact bool
	}{
		{
			name:   "no custody discussion",
			reply:  "Routine toxicology report with expected values.",
			intact: true,
		},
		{
			name:   "chain mentioned but not broken",
			reply:  "The chain of custody documentation is complete.",
			intact: true,
		},
		{
			name:   "chain broken",
			reply:  "The chain of custody was broken between collection and testing.",
			intact: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ParseAnalysisResponse(tc.reply)
			if result.ChainOfCustody.Intact != tc.intact {
				t.Errorf("expected Intact=%v, got %v", tc.intact, result.ChainOfCustody.Intact)
			}
		})
	}
}

func TestSafeDefaultResult(t *testing.T) {
	result := safeDefaultResult()

	if len(result.Violations) != 0 {
		t.Errorf("safe default should carry no violations")
	}
	if !result.Authenticity.IsAuthentic {
		t.Errorf("safe default should presume authenticity")
	}
	if !result.ChainOfCustody.Intact {
		t.Errorf("safe default should presume custody intact")
	}
	if result.Severity != SeverityLow {
		t.Errorf("expected severity low, got %q", result.Severity)
	}
	if result.Confidence != 0.5 {
		t.Errorf("expected confidence 0.5, got %v", result.Confidence)
	}
	if len(result.Recommendations) != 1 || result.Recommendations[0] != "Manual review recommended" {
		t.Errorf("expected manual review recommendation, got %v", result.Recommendations)
	}
}

func TestOverallSeverityUnrecognizedCountsAsMedium(t *testing.T) {
	violations := []Violation{{Type: "X", Severity: Severity("unknown")}}

	if got := overallSeverity(violations); got != SeverityMedium {
		t.Errorf("expected unrecognized severity to rank as medium, got %q", got)
	}
}
