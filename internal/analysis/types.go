/**
 * Analysis types - structured results produced from model replies
 */

package analysis

// Chat modes; each selects a distinct system prompt
const (
	ModeResearch  = "research"
	ModeDrafting  = "drafting"
	ModeAnalysis  = "analysis"
	ModeEducation = "education"
)

// Document analysis types; each selects a distinct instruction prompt
const (
	TypeConstitutional = "constitutional"
	TypeToxicology     = "toxicology"
	TypeCPS            = "cps"
	TypeCourtOrder     = "court-order"
)

// Severity levels for violations, ordered critical > high > medium > low
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

var severityRank = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
}

// Rank returns the numeric ordering of a severity (critical=4 .. low=1),
// 0 for unrecognized values.
func (s Severity) Rank() int {
	return severityRank[s]
}

// ChatTurn is one prior turn of conversation history
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatContext carries the conversation state for a chat request
type ChatContext struct {
	Mode                string     `json:"mode"`
	ConversationHistory []ChatTurn `json:"conversationHistory"`
}

// ChatResponse is the structured reply to a chat request
type ChatResponse struct {
	Content           string   `json:"content"`
	Confidence        float64  `json:"confidence"`
	Sources           []string `json:"sources,omitempty"`
	FollowUpQuestions []string `json:"followUpQuestions,omitempty"`
}

// Violation is one typed violation extracted from the model's reply
type Violation struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	LegalBasis  string   `json:"legalBasis"`
	Evidence    []string `json:"evidence"`
	Severity    Severity `json:"severity"`
	Remedies    []string `json:"remedies"`
}

// AuthenticityReport flags authenticity concerns in the analyzed document
type AuthenticityReport struct {
	IsAuthentic     bool     `json:"isAuthentic"`
	Issues          []string `json:"issues"`
	MissingElements []string `json:"missingElements"`
	Recommendations []string `json:"recommendations"`
}

// CustodyEvent is one entry in a chain-of-custody timeline
type CustodyEvent struct {
	Date     string `json:"date"`
	Action   string `json:"action"`
	Actor    string `json:"actor"`
	Verified bool   `json:"verified"`
}

// ChainOfCustodyReport flags custody gaps in the analyzed document
type ChainOfCustodyReport struct {
	Intact   bool           `json:"intact"`
	Gaps     []string       `json:"gaps"`
	Timeline []CustodyEvent `json:"timeline"`
}

// AnalysisResult is the structured output of one document analysis
type AnalysisResult struct {
	Violations      []Violation          `json:"violations"`
	Authenticity    AuthenticityReport   `json:"authenticity"`
	ChainOfCustody  ChainOfCustodyReport `json:"chainOfCustody"`
	Recommendations []string             `json:"recommendations"`
	Severity        Severity             `json:"severity"`
	Confidence      float64              `json:"confidence"`
}
