/**
 * Analysis service for the Nora's Law analysis worker
 *
 * Orchestrates single-shot model calls: legal-assistant chat, document
 * analysis, and document generation. Every call path passes through the
 * shared rate limiter before touching the model endpoint; an exhausted
 * budget surfaces immediately and is never retried internally.
 */

package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/noraslaw/analysis-worker/internal/clients"
	apperrors "github.com/noraslaw/analysis-worker/internal/errors"
	"github.com/noraslaw/analysis-worker/internal/logging"
)

// CompletionClient is the model endpoint contract the service depends on
type CompletionClient interface {
	Complete(ctx context.Context, req *clients.CompletionRequest) (string, error)
}

// Legal citation patterns: federal statutes, case names, reporter citations
var citationPattern = regexp.MustCompile(`42 U\.S\.C\. § \d+|[A-Z][a-z]+ v\. [A-Z][a-z]+|\d+ U\.S\. \d+`)

// Service orchestrates model calls and response parsing
type Service struct {
	llm     CompletionClient
	limiter *RateLimiter
	logger  *logging.Logger
	model   string
}

// NewService creates an analysis service. The rate limiter is injected so
// callers sharing a budget across services can pass the same instance.
func NewService(llm CompletionClient, limiter *RateLimiter, model string) (*Service, error) {
	if llm == nil {
		return nil, fmt.Errorf("completion client is required")
	}

	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}

	if model == "" {
		model = "gpt-4-turbo-preview"
	}

	return &Service{
		llm:     llm,
		limiter: limiter,
		logger:  logging.NewLogger("analysis"),
		model:   model,
	}, nil
}

// Chat answers a user message in one of the four assistant modes, with at
// most the last 10 turns of history for context.
func (s *Service) Chat(ctx context.Context, message string, chatCtx *ChatContext) (*ChatResponse, error) {
	if err := s.checkRateLimit(); err != nil {
		return nil, err
	}

	mode := ModeResearch
	history := []ChatTurn{}
	if chatCtx != nil {
		if chatCtx.Mode != "" {
			mode = chatCtx.Mode
		}
		history = chatCtx.ConversationHistory
	}

	if len(history) > 10 {
		history = history[len(history)-10:]
	}

	messages := make([]clients.Message, 0, len(history)+2)
	messages = append(messages, clients.Message{Role: "system", Content: getSystemPrompt(mode)})
	for _, turn := range history {
		messages = append(messages, clients.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, clients.Message{Role: "user", Content: message})

	content, err := s.llm.Complete(ctx, &clients.CompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		// Transport detail is logged, not surfaced to the user
		s.logger.Error("chat completion failed", "mode", mode, "error", err)
		return nil, apperrors.NewModelCallFailedError("chat", err)
	}

	if content == "" {
		content = "I apologize, but I was unable to generate a response."
	}

	return &ChatResponse{
		Content:           content,
		Confidence:        0.85,
		Sources:           extractSources(content),
		FollowUpQuestions: generateFollowUpQuestions(mode),
	}, nil
}

// AnalyzeDocument sends extracted text to the model with a type-specific
// instruction prompt and parses the free-text reply into a structured
// result. Parse failures degrade to the safe default inside the parser;
// model failures are fatal to the request.
func (s *Service) AnalyzeDocument(ctx context.Context, text string, analysisType string) (*AnalysisResult, error) {
	if err := s.checkRateLimit(); err != nil {
		return nil, err
	}

	content, err := s.llm.Complete(ctx, &clients.CompletionRequest{
		Model: s.model,
		Messages: []clients.Message{
			{Role: "system", Content: getAnalysisPrompt(analysisType)},
			{Role: "user", Content: fmt.Sprintf("Analyze this document:\n\n%s", text)},
		},
		Temperature: 0.3,
		MaxTokens:   3000,
	})
	if err != nil {
		s.logger.Error("document analysis failed", "type", analysisType, "error", err)
		return nil, apperrors.NewModelCallFailedError("analysis", err)
	}

	return ParseAnalysisResponse(content), nil
}

// GenerateDocument produces a legal document from a template and
// JSON-serialized data.
func (s *Service) GenerateDocument(ctx context.Context, template string, data interface{}) (string, error) {
	if err := s.checkRateLimit(); err != nil {
		return "", err
	}

	dataJSON, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize document data: %w", err)
	}

	prompt := fmt.Sprintf(`Generate a legal document using this template and data:

Template: %s
Data: %s

Generate a complete, professional legal document.`, template, string(dataJSON))

	content, err := s.llm.Complete(ctx, &clients.CompletionRequest{
		Model: s.model,
		Messages: []clients.Message{
			{Role: "system", Content: "You are a legal document drafting expert. Generate accurate, professional legal documents."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.5,
		MaxTokens:   4000,
	})
	if err != nil {
		s.logger.Error("document generation failed", "error", err)
		return "", apperrors.NewModelCallFailedError("generation", err)
	}

	if content == "" {
		return "Unable to generate document.", nil
	}

	return content, nil
}

// checkRateLimit performs the atomic check-then-record against the shared
// budget and converts exhaustion into the typed error the caller surfaces
// to the user.
func (s *Service) checkRateLimit() error {
	if !s.limiter.Allow() {
		limit, window := s.limiter.Limit()
		s.logger.Warn("rate limit exceeded", "limit", limit, "window", window)
		return apperrors.NewRateLimitExceededError(limit, window)
	}
	return nil
}

// extractSources pulls legal citations out of the reply text
func extractSources(content string) []string {
	return citationPattern.FindAllString(content, -1)
}

// generateFollowUpQuestions returns up to two canned mode-specific
// follow-up questions.
func generateFollowUpQuestions(mode string) []string {
	questions := followUpQuestions[mode]
	if len(questions) > 2 {
		questions = questions[:2]
	}
	return questions
}
