// Package ingest drives the resume pipeline: pulling messages from the mail
// source, choosing the resume-like attachment on each message, content
// addressing it and feeding the store, the analyzer and the scoring engine.
package ingest

import (
	"path/filepath"
	"strings"

	"github.com/cvlens/cvlens/internal/mail"
)

// Selection heuristics. Kept as data so the rules are testable apart from the
// pipeline that applies them.
var (
	defaultAllowedExtensions = []string{".pdf", ".doc", ".docx"}

	// Administrative-document terms that mark an attachment as not-a-resume
	// even when the extension and size look right.
	defaultExclusionTerms = []string{
		"nda", "agreement", "contract", "form", "consent",
		"policy", "certificate", "transcript", "invoice", "receipt",
	}

	// Terms that let a small attachment through the size gate.
	defaultResumeTerms = []string{
		"resume", "cv", "curriculum", "vitae", "profile", "bio",
	}
)

const (
	defaultMaxSizeBytes   = 10 << 20
	defaultSmallFileBytes = 50 << 10
)

// Selector picks the single best resume-like attachment from a message.
type Selector struct {
	AllowedExtensions []string
	ExclusionTerms    []string
	ResumeTerms       []string
	MaxSizeBytes      int64
	SmallFileBytes    int64
}

// NewSelector returns a selector with the default rules tables.
func NewSelector() *Selector {
	return &Selector{
		AllowedExtensions: defaultAllowedExtensions,
		ExclusionTerms:    defaultExclusionTerms,
		ResumeTerms:       defaultResumeTerms,
		MaxSizeBytes:      defaultMaxSizeBytes,
		SmallFileBytes:    defaultSmallFileBytes,
	}
}

// Select filters the attachments and returns the best surviving one, or nil
// when none looks like a resume. Ties are broken by first-seen order, so the
// choice is stable across runs.
func (s *Selector) Select(attachments []*mail.Attachment) *mail.Attachment {
	var best *mail.Attachment
	bestScore := -1

	for _, att := range attachments {
		if !s.eligible(att) {
			continue
		}
		if score := s.score(att); score > bestScore {
			best = att
			bestScore = score
		}
	}

	return best
}

func (s *Selector) eligible(att *mail.Attachment) bool {
	name := strings.ToLower(att.Name)
	ext := filepath.Ext(name)

	allowed := false
	for _, e := range s.AllowedExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	if att.SizeBytes > s.MaxSizeBytes {
		return false
	}
	for _, term := range s.ExclusionTerms {
		if strings.Contains(name, term) {
			return false
		}
	}
	if att.SizeBytes < s.SmallFileBytes && !containsAny(name, s.ResumeTerms) {
		return false
	}

	return true
}

// score ranks the survivors of one message: resumes are usually the larger,
// distinctly-named attachment among bundles that also carry forms.
func (s *Selector) score(att *mail.Attachment) int {
	name := strings.ToLower(att.Name)

	// The name bonuses are tiered, not additive: only the strongest term
	// counts, so "curriculum_vitae_resume.pdf" scores as a resume, not 16+.
	score := 0
	switch {
	case strings.Contains(name, "resume"):
		score += 10
	case strings.Contains(name, "cv"):
		score += 8
	case strings.Contains(name, "curriculum"), strings.Contains(name, "vitae"):
		score += 6
	}

	switch {
	case att.SizeBytes > 200<<10:
		score += 5
	case att.SizeBytes > 100<<10:
		score += 3
	case att.SizeBytes > 50<<10:
		score++
	}

	if filepath.Ext(name) == ".pdf" {
		score += 2
	}

	return score
}

func containsAny(name string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(name, term) {
			return true
		}
	}
	return false
}
