package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type stubGenerator struct {
	response     string
	err          error
	lastPrompt   string
	lastMimeType string
}

func (s *stubGenerator) GenerateDocument(_ context.Context, prompt, mimeType string, _ []byte) (string, error) {
	s.lastPrompt = prompt
	s.lastMimeType = mimeType
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestAnalyzerExtractsStructuredFields(t *testing.T) {
	stub := &stubGenerator{response: `{
		"personal_info": {"name": "Jane Doe", "email": "jane@example.com", "phone": "+1 555 0100"},
		"skills": ["Go", "SQL"],
		"education": [{"text": "BSc Computer Science, MIT"}],
		"experience": [{"title": "Backend Engineer", "years": 3}],
		"executive_summary": "Experienced backend engineer.",
		"experience_highlights": ["Led migration to Go"],
		"education_highlights": ["Graduated with honors"],
		"interesting_facts": ["Speaks three languages"],
		"raw_text": "Jane Doe resume text"
	}`}
	analyzer := NewAnalyzer(stub, 0, zap.NewNop())

	result, err := analyzer.Analyze(context.Background(), "resume.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Partial {
		t.Fatalf("expected structured result, got partial")
	}
	if result.Name != "Jane Doe" {
		t.Fatalf("unexpected name: %q", result.Name)
	}
	if result.Email != "jane@example.com" {
		t.Fatalf("unexpected email: %q", result.Email)
	}
	if len(result.Skills) != 2 || result.Skills[0] != "Go" {
		t.Fatalf("unexpected skills: %v", result.Skills)
	}
	if len(result.Experience) != 1 || result.Experience[0].Years != 3 {
		t.Fatalf("unexpected experience: %v", result.Experience)
	}
	if result.RawText != "Jane Doe resume text" {
		t.Fatalf("unexpected raw text: %q", result.RawText)
	}
	if stub.lastMimeType != "application/pdf" {
		t.Fatalf("unexpected mime type: %q", stub.lastMimeType)
	}
	if stub.lastPrompt == "" {
		t.Fatalf("expected prompt to be sent")
	}
}

func TestAnalyzerHandlesCodeBlockResponse(t *testing.T) {
	stub := &stubGenerator{response: "```json\n{\"skills\": [\"go\"], \"raw_text\": \"text\"}\n```"}
	analyzer := NewAnalyzer(stub, 0, zap.NewNop())

	result, err := analyzer.Analyze(context.Background(), "resume.docx", []byte("bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Skills) != 1 || result.Skills[0] != "go" {
		t.Fatalf("unexpected skills: %v", result.Skills)
	}
	if !strings.Contains(stub.lastMimeType, "wordprocessingml") {
		t.Fatalf("unexpected mime type: %q", stub.lastMimeType)
	}
}

func TestAnalyzerCoercesWeaklyTypedFields(t *testing.T) {
	stub := &stubGenerator{response: `{"experience": [{"title": "Dev", "years": "4"}], "raw_text": "x"}`}
	analyzer := NewAnalyzer(stub, 0, zap.NewNop())

	result, err := analyzer.Analyze(context.Background(), "resume.pdf", []byte("bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Experience) != 1 || result.Experience[0].Years != 4 {
		t.Fatalf("expected string years to be coerced, got %v", result.Experience)
	}
}

func TestAnalyzerDegradesToPartialOnNonJSON(t *testing.T) {
	stub := &stubGenerator{response: "This candidate seems strong, but here is prose instead of JSON."}
	analyzer := NewAnalyzer(stub, 0, zap.NewNop())

	result, err := analyzer.Analyze(context.Background(), "resume.pdf", []byte("bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Partial {
		t.Fatalf("expected partial result")
	}
	if result.RawText != stub.response {
		t.Fatalf("expected raw text preserved, got %q", result.RawText)
	}
	if len(result.Skills) != 0 {
		t.Fatalf("expected no structured fields, got %v", result.Skills)
	}
}

func TestAnalyzerPropagatesGeneratorError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("quota exceeded")}
	analyzer := NewAnalyzer(stub, 0, zap.NewNop())

	if _, err := analyzer.Analyze(context.Background(), "resume.pdf", []byte("bytes")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAnalyzerRejectsEmptyDocument(t *testing.T) {
	analyzer := NewAnalyzer(&stubGenerator{}, 0, zap.NewNop())

	if _, err := analyzer.Analyze(context.Background(), "resume.pdf", nil); err == nil {
		t.Fatalf("expected error for empty document")
	}
}
