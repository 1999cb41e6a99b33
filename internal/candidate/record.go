// Package candidate owns the persisted representation of accepted resumes:
// the encrypted per-candidate records, the processing log, and the decision
// state machine.
package candidate

import (
	"fmt"
	"time"

	"github.com/cvlens/cvlens/internal/analyze"
)

// Status is the user-driven decision state of a record.
type Status string

const (
	StatusNew        Status = "new"
	StatusInterested Status = "interested"
	StatusPass       Status = "pass"
)

// ParseStatus validates a decision status supplied by the user.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNew, StatusInterested, StatusPass:
		return Status(s), nil
	default:
		return "", fmt.Errorf("invalid status %q: must be new, interested or pass", s)
	}
}

// Processing log vocabulary.
const (
	ActionFetch   = "fetch"
	ActionAnalyze = "analyze"
	ActionScore   = "score"

	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metadata is the plaintext message/document context captured at ingestion.
type Metadata struct {
	SourceMessageID string
	DocumentHash    string
	ReceivedAt      time.Time
	SenderAddress   string
	SenderName      string
	Subject         string
	Filename        string
	SizeBytes       int64
}

// Record is the persisted form of one accepted resume. Fields of type []byte
// are AEAD ciphertext produced by the store's cipher box; they are either nil
// (not yet produced) or must decrypt successfully.
type Record struct {
	SourceMessageID string    `json:"source_message_id"`
	DocumentHash    string    `json:"document_hash"`
	ReceivedAt      time.Time `json:"received_at"`
	SenderAddress   string    `json:"sender_address"`
	SenderName      string    `json:"sender_name"`
	Subject         string    `json:"subject"`
	Filename        string    `json:"filename"`
	SizeBytes       int64     `json:"size_bytes"`

	CandidateName  []byte `json:"candidate_name,omitempty"`
	CandidateEmail []byte `json:"candidate_email,omitempty"`
	CandidatePhone []byte `json:"candidate_phone,omitempty"`
	Notes          []byte `json:"notes,omitempty"`

	Skills               []byte `json:"skills,omitempty"`
	Education            []byte `json:"education,omitempty"`
	Experience           []byte `json:"experience,omitempty"`
	ExecutiveSummary     []byte `json:"executive_summary,omitempty"`
	ExperienceHighlights []byte `json:"experience_highlights,omitempty"`
	EducationHighlights  []byte `json:"education_highlights,omitempty"`
	InterestingFacts     []byte `json:"interesting_facts,omitempty"`
	RawText              []byte `json:"raw_text,omitempty"`

	Score          float64 `json:"score"`
	ScoreBreakdown []byte  `json:"score_breakdown,omitempty"`

	Status        Status   `json:"status"`
	Tags          []string `json:"tags,omitempty"`
	Analyzed      bool     `json:"analyzed"`
	Scored        bool     `json:"scored"`
	AnalysisError string   `json:"analysis_error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// PlainRecord is the fully decrypted view of a Record, built by Store.Decrypt.
// It must never be persisted.
type PlainRecord struct {
	SourceMessageID string
	DocumentHash    string
	ReceivedAt      time.Time
	SenderAddress   string
	SenderName      string
	Subject         string
	Filename        string
	SizeBytes       int64

	CandidateName  string
	CandidateEmail string
	CandidatePhone string
	Notes          string

	Skills               []string
	Education            []analyze.EducationEntry
	Experience           []analyze.ExperienceEntry
	ExecutiveSummary     string
	ExperienceHighlights []string
	EducationHighlights  []string
	InterestingFacts     []string
	RawText              string

	Score          float64
	ScoreBreakdown map[string]any

	Status        Status
	Tags          []string
	Analyzed      bool
	Scored        bool
	AnalysisError string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}

// TotalExperienceYears sums the structured experience entries.
func (p *PlainRecord) TotalExperienceYears() float64 {
	var total float64
	for _, entry := range p.Experience {
		total += entry.Years
	}
	return total
}

// LogEntry is one line of the append-only processing log.
type LogEntry struct {
	SourceMessageID string    `json:"source_message_id"`
	Action          string    `json:"action"`
	Outcome         string    `json:"outcome"`
	Message         string    `json:"message,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
