/**
 * Response parser - violation extraction from free-text model replies
 *
 * The model is not guaranteed to follow any schema, so this is deliberate
 * keyword scraping: a single pass over the reply lines keyed on English
 * label prefixes. The heuristic is isolated here so a schema-constrained
 * replacement can slot in behind ParseAnalysisResponse without touching
 * the service.
 */

package analysis

import (
	"log"
	"regexp"
	"strings"
)

var (
	violationLabel = regexp.MustCompile(`(?i)^(violation|issue)?:?\s*`)
	legalLabel     = regexp.MustCompile(`(?i)^(legal basis|citation)?:?\s*`)
	remedyLabel    = regexp.MustCompile(`(?i)^(remedy|recommendation)?:?\s*`)
	severityToken  = regexp.MustCompile(`critical|high|medium|low`)
)

var rankToSeverity = map[int]Severity{
	4: SeverityCritical,
	3: SeverityHigh,
	2: SeverityMedium,
	1: SeverityLow,
}

// ParseAnalysisResponse converts a free-text model reply into a structured
// AnalysisResult. Any panic during parsing degrades to the safe default
// rather than failing the analysis flow: a garbled reply must never crash
// the request.
func ParseAnalysisResponse(reply string) (result *AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: panic while parsing analysis response: %v", r)
			result = safeDefaultResult()
		}
	}()

	violations := extractViolations(reply)
	lower := strings.ToLower(reply)

	return &AnalysisResult{
		Violations: violations,
		Authenticity: AuthenticityReport{
			IsAuthentic:     !strings.Contains(lower, "inauthentic") && !strings.Contains(lower, "forged"),
			Issues:          []string{},
			MissingElements: []string{},
			Recommendations: []string{"Document appears authentic"},
		},
		ChainOfCustody: ChainOfCustodyReport{
			// Only a boolean flag is derived; custody events are never
			// reconstructed from prose.
			Intact:   !strings.Contains(lower, "chain") || !strings.Contains(lower, "broken"),
			Gaps:     []string{},
			Timeline: []CustodyEvent{},
		},
		Recommendations: []string{"Consult with legal counsel", "Preserve all related documents"},
		Severity:        overallSeverity(violations),
		Confidence:      0.8,
	}
}

// extractViolations runs the line-scanning pass. A line containing
// "violation" or "issue" opens a new record; while one is open, labeled
// lines set fields and any other non-blank line extends the description.
func extractViolations(reply string) []Violation {
	violations := make([]Violation, 0)
	var current *Violation

	for _, line := range strings.Split(reply, "\n") {
		lower := strings.ToLower(line)

		if strings.Contains(lower, "violation") || strings.Contains(lower, "issue") {
			if current != nil && current.Type != "" {
				violations = append(violations, *current)
			}
			current = &Violation{
				Type:     violationLabel.ReplaceAllString(line, ""),
				Severity: SeverityMedium,
				Evidence: []string{},
				Remedies: []string{},
			}
			continue
		}

		if current == nil {
			continue
		}

		switch {
		case strings.Contains(line, "Legal basis:") || strings.Contains(line, "Citation:"):
			current.LegalBasis = legalLabel.ReplaceAllString(line, "")
		case strings.Contains(line, "Severity:") || strings.Contains(line, "Priority:"):
			if token := severityToken.FindString(lower); token != "" {
				current.Severity = Severity(token)
			}
		case strings.Contains(line, "Remedy:") || strings.Contains(line, "Recommendation:"):
			current.Remedies = append(current.Remedies, remedyLabel.ReplaceAllString(line, ""))
		case strings.TrimSpace(line) != "":
			current.Description += line + " "
		}
	}

	if current != nil && current.Type != "" {
		violations = append(violations, *current)
	}

	return violations
}

// overallSeverity is the maximum severity rank among the violations
// (critical > high > medium > low), low when there are none. A violation
// with an unrecognized severity counts as medium.
func overallSeverity(violations []Violation) Severity {
	if len(violations) == 0 {
		return SeverityLow
	}

	maxRank := 0
	for _, v := range violations {
		rank := v.Severity.Rank()
		if rank == 0 {
			rank = severityRank[SeverityMedium]
		}
		if rank > maxRank {
			maxRank = rank
		}
	}

	if sev, ok := rankToSeverity[maxRank]; ok {
		return sev
	}
	return SeverityMedium
}

// safeDefaultResult is the documented fail-soft output: no violations,
// authenticity and custody presumed intact, low severity, halved
// confidence, manual review flagged.
func safeDefaultResult() *AnalysisResult {
	return &AnalysisResult{
		Violations: []Violation{},
		Authenticity: AuthenticityReport{
			IsAuthentic:     true,
			Issues:          []string{},
			MissingElements: []string{},
			Recommendations: []string{},
		},
		ChainOfCustody: ChainOfCustodyReport{
			Intact:   true,
			Gaps:     []string{},
			Timeline: []CustodyEvent{},
		},
		Recommendations: []string{"Manual review recommended"},
		Severity:        SeverityLow,
		Confidence:      0.5,
	}
}
