/**
 * Analysis service tests
 *
 * Uses a fake completion client to validate prompt assembly, history
 * truncation, source extraction, rate limiting, and fallback replies
 * without a live model endpoint.
 */

package analysis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/noraslaw/analysis-worker/internal/clients"
	apperrors "github.com/noraslaw/analysis-worker/internal/errors"
)

// fakeCompletionClient records the last request and returns a scripted reply
type fakeCompletionClient struct {
	lastRequest *clients.CompletionRequest
	reply       string
	err         error
}

func (f *fakeCompletionClient) Complete(ctx context.Context, req *clients.CompletionRequest) (string, error) {
	f.lastRequest = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestService(t *testing.T, fake *fakeCompletionClient) *Service {
	t.Helper()
	svc, err := NewService(fake, NewRateLimiter(50, 60*time.Second), "test-model")
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestChatExtractsSourcesAndFollowUps(t *testing.T) {
	fake := &fakeCompletionClient{
		reply: "Under 42 U.S.C. § 1983 and Troxel v. Granville, the parent has a protected interest.",
	}
	svc := newTestService(t, fake)

	resp, err := svc.Chat(context.Background(), "What are my rights?", &ChatContext{Mode: ModeResearch})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Content != fake.reply {
		t.Errorf("expected reply to pass through")
	}

	if resp.Confidence != 0.85 {
		t.Errorf("expected confidence 0.85, got %v", resp.Confidence)
	}

	if len(resp.Sources) != 2 {
		t.Fatalf("expected 2 citations, got %v", resp.Sources)
	}
	if resp.Sources[0] != "42 U.S.C. § 1983" {
		t.Errorf("expected statute citation, got %q", resp.Sources[0])
	}
	if resp.Sources[1] != "Troxel v. Granville" {
		t.Errorf("expected case citation, got %q", resp.Sources[1])
	}

	if len(resp.FollowUpQuestions) == 0 || len(resp.FollowUpQuestions) > 2 {
		t.Errorf("expected 1-2 follow-up questions, got %d", len(resp.FollowUpQuestions))
	}

	// Request shape: system prompt first, user message last
	req := fake.lastRequest
	if req.Temperature != 0.7 || req.MaxTokens != 2000 {
		t.Errorf("expected temperature 0.7 / 2000 tokens, got %v / %d", req.Temperature, req.MaxTokens)
	}
	if req.Messages[0].Role != "system" {
		t.Errorf("expected system message first, got %q", req.Messages[0].Role)
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" || last.Content != "What are my rights?" {
		t.Errorf("expected user message last, got %+v", last)
	}
}

func TestChatTruncatesHistory(t *testing.T) {
	fake := &fakeCompletionClient{reply: "ok"}
	svc := newTestService(t, fake)

	history := make([]ChatTurn, 25)
	for i := range history {
		history[i] = ChatTurn{Role: "user", Content: fmt.Sprintf("turn %d", i)}
	}

	_, err := svc.Chat(context.Background(), "latest question", &ChatContext{
		Mode:                ModeAnalysis,
		ConversationHistory: history,
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	// system + last 10 history turns + current message
	if len(fake.lastRequest.Messages) != 12 {
		t.Fatalf("expected 12 messages, got %d", len(fake.lastRequest.Messages))
	}

	// Oldest retained turn is number 15 of 25
	if fake.lastRequest.Messages[1].Content != "turn 15" {
		t.Errorf("expected oldest retained turn to be %q, got %q", "turn 15", fake.lastRequest.Messages[1].Content)
	}
}

func TestChatEmptyReplyFallback(t *testing.T) {
	fake := &fakeCompletionClient{reply: ""}
	svc := newTestService(t, fake)

	resp, err := svc.Chat(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Content != "I apologize, but I was unable to generate a response." {
		t.Errorf("expected apology fallback, got %q", resp.Content)
	}
}

func TestChatModelFailure(t *testing.T) {
	fake := &fakeCompletionClient{err: fmt.Errorf("connection refused")}
	svc := newTestService(t, fake)

	_, err := svc.Chat(context.Background(), "hello", nil)
	if err == nil {
		t.Fatalf("expected error")
	}

	if !apperrors.IsCode(err, apperrors.ErrorModelCallFailed) {
		t.Errorf("expected MODEL_CALL_FAILED, got %v", err)
	}
}

func TestChatRateLimitExceeded(t *testing.T) {
	fake := &fakeCompletionClient{reply: "ok"}
	svc, err := NewService(fake, NewRateLimiter(1, 60*time.Second), "test-model")
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if _, err := svc.Chat(context.Background(), "first", nil); err != nil {
		t.Fatalf("first call should succeed: %v", err)
	}

	_, err = svc.Chat(context.Background(), "second", nil)
	if err == nil {
		t.Fatalf("expected rate limit error")
	}

	if !apperrors.IsCode(err, apperrors.ErrorRateLimitExceeded) {
		t.Errorf("expected RATE_LIMIT_EXCEEDED, got %v", err)
	}
}

func TestAnalyzeDocumentRequestShape(t *testing.T) {
	fake := &fakeCompletionClient{
		reply: "Violation: Due Process Failure\nSeverity: critical",
	}
	svc := newTestService(t, fake)

	result, err := svc.AnalyzeDocument(context.Background(), "court order text", TypeConstitutional)
	if err != nil {
		t.Fatalf("AnalyzeDocument failed: %v", err)
	}

	req := fake.lastRequest
	if req.Temperature != 0.3 || req.MaxTokens != 3000 {
		t.Errorf("expected temperature 0.3 / 3000 tokens, got %v / %d", req.Temperature, req.MaxTokens)
	}
	if req.Messages[1].Content != "Analyze this document:\n\ncourt order text" {
		t.Errorf("unexpected user message: %q", req.Messages[1].Content)
	}

	if len(result.Violations) != 1 {
		t.Fatalf("expected parsed violation, got %d", len(result.Violations))
	}
	if result.Severity != SeverityCritical {
		t.Errorf("expected overall severity critical, got %q", result.Severity)
	}
}

func TestGenerateDocument(t *testing.T) {
	fake := &fakeCompletionClient{reply: "MOTION TO COMPEL\n..."}
	svc := newTestService(t, fake)

	doc, err := svc.GenerateDocument(context.Background(), "motion", map[string]interface{}{
		"caseNumber": "24-JV-0113",
	})
	if err != nil {
		t.Fatalf("GenerateDocument failed: %v", err)
	}

	if doc != fake.reply {
		t.Errorf("expected generated document to pass through")
	}

	req := fake.lastRequest
	if req.Temperature != 0.5 || req.MaxTokens != 4000 {
		t.Errorf("expected temperature 0.5 / 4000 tokens, got %v / %d", req.Temperature, req.MaxTokens)
	}
}

func TestGenerateDocumentEmptyReplyFallback(t *testing.T) {
	fake := &fakeCompletionClient{reply: ""}
	svc := newTestService(t, fake)

	doc, err := svc.GenerateDocument(context.Background(), "motion", nil)
	if err != nil {
		t.Fatalf("GenerateDocument failed: %v", err)
	}

	if doc != "Unable to generate document." {
		t.Errorf("expected fallback text, got %q", doc)
	}
}
