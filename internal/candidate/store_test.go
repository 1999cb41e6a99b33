package candidate

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cvlens/cvlens/internal/analyze"
	"github.com/cvlens/cvlens/internal/cipherbox"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	box, err := cipherbox.New(bytes.Repeat([]byte{0x11}, 32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store, err := Open(afero.NewMemMapFs(), "data", box, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store
}

func testMetadata(messageID, hash string) Metadata {
	return Metadata{
		SourceMessageID: messageID,
		DocumentHash:    hash,
		ReceivedAt:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		SenderAddress:   "jane@example.com",
		SenderName:      "Jane Doe",
		Subject:         "Application",
		Filename:        "Jane_Resume.pdf",
		SizeBytes:       300 * 1024,
	}
}

func testAnalysis() *analyze.Analysis {
	return &analyze.Analysis{
		Name:             "Jane Doe",
		Email:            "jane@example.com",
		Phone:            "+1 555 0100",
		Skills:           []string{"go", "sql"},
		Education:        []analyze.EducationEntry{{Text: "BSc Computer Science"}},
		Experience:       []analyze.ExperienceEntry{{Title: "Engineer", Years: 4}},
		ExecutiveSummary: "Strong backend engineer.",
		RawText:          "full resume text",
	}
}

func TestCreateDeduplicatesByHash(t *testing.T) {
	store := testStore(t)

	result, err := store.Create(testMetadata("msg-1", "hash-a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != Created {
		t.Fatalf("expected Created, got %v", result)
	}

	// Same document arriving on a different message under a different name.
	meta := testMetadata("msg-2", "hash-a")
	meta.Filename = "copy_of_resume.pdf"
	result, err = store.Create(meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != Duplicate {
		t.Fatalf("expected Duplicate, got %v", result)
	}

	if store.Count() != 1 {
		t.Fatalf("expected 1 record after duplicate create, got %d", store.Count())
	}
}

func TestCreateDeduplicatesByMessageID(t *testing.T) {
	store := testStore(t)

	if _, err := store.Create(testMetadata("msg-1", "hash-a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := store.Create(testMetadata("msg-1", "hash-b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != Duplicate {
		t.Fatalf("expected Duplicate, got %v", result)
	}
}

func TestAnalysisRoundTrip(t *testing.T) {
	store := testStore(t)

	if _, err := store.Create(testMetadata("msg-1", "hash-a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.ApplyAnalysis("msg-1", testAnalysis()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, ok := store.ByMessageID("msg-1")
	if !ok {
		t.Fatalf("expected record")
	}

	if !rec.Analyzed {
		t.Fatalf("expected record to be analyzed")
	}
	if rec.ProcessedAt == nil {
		t.Fatalf("expected processed timestamp")
	}
	if string(rec.CandidateName) == "Jane Doe" {
		t.Fatalf("candidate name stored in plaintext")
	}

	plain, err := store.Decrypt(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plain.CandidateName != "Jane Doe" {
		t.Fatalf("unexpected name: %q", plain.CandidateName)
	}
	if len(plain.Skills) != 2 || plain.Skills[1] != "sql" {
		t.Fatalf("unexpected skills: %v", plain.Skills)
	}
	if plain.TotalExperienceYears() != 4 {
		t.Fatalf("unexpected experience years: %v", plain.TotalExperienceYears())
	}
}

func TestPartialAnalysisAccepted(t *testing.T) {
	store := testStore(t)

	if _, err := store.Create(testMetadata("msg-1", "hash-a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.ApplyAnalysis("msg-1", &analyze.Analysis{RawText: "prose only", Partial: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := store.ByMessageID("msg-1")
	plain, err := store.Decrypt(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plain.RawText != "prose only" {
		t.Fatalf("unexpected raw text: %q", plain.RawText)
	}
	if len(plain.Skills) != 0 {
		t.Fatalf("expected empty skills, got %v", plain.Skills)
	}
	if !plain.Analyzed {
		t.Fatalf("expected partial analysis to mark the record analyzed")
	}
}

func TestApplyScoreRequiresAnalysis(t *testing.T) {
	store := testStore(t)

	if _, err := store.Create(testMetadata("msg-1", "hash-a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.ApplyScore("msg-1", 75, map[string]any{"total": 75}); err == nil {
		t.Fatalf("expected scoring an unanalyzed record to fail")
	}

	if err := store.ApplyAnalysis("msg-1", testAnalysis()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.ApplyScore("msg-1", 75, map[string]any{"total": 75}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := store.ByMessageID("msg-1")
	if !rec.Scored || !rec.Analyzed {
		t.Fatalf("expected scored implies analyzed, got scored=%v analyzed=%v", rec.Scored, rec.Analyzed)
	}
	if rec.Score != 75 {
		t.Fatalf("unexpected score: %v", rec.Score)
	}
}

func TestDecisionResetKeepsProcessingFlags(t *testing.T) {
	store := testStore(t)

	if _, err := store.Create(testMetadata("msg-1", "hash-a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.ApplyAnalysis("msg-1", testAnalysis()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.ApplyScore("msg-1", 60, map[string]any{"total": 60}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	notes := "met at the conference"
	if err := store.SetDecision("msg-1", StatusPass, &notes, []string{"backend"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SetDecision("msg-1", StatusNew, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := store.ByMessageID("msg-1")
	if rec.Status != StatusNew {
		t.Fatalf("unexpected status: %v", rec.Status)
	}
	if !rec.Analyzed || !rec.Scored || rec.Score != 60 {
		t.Fatalf("reset must not clear processing state: analyzed=%v scored=%v score=%v",
			rec.Analyzed, rec.Scored, rec.Score)
	}
	if len(rec.Tags) != 1 || rec.Tags[0] != "backend" {
		t.Fatalf("reset must not clear tags: %v", rec.Tags)
	}

	plain, err := store.Decrypt(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plain.Notes != notes {
		t.Fatalf("unexpected notes: %q", plain.Notes)
	}
}

func TestSetDecisionRejectsUnknownStatus(t *testing.T) {
	store := testStore(t)

	if _, err := store.Create(testMetadata("msg-1", "hash-a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.SetDecision("msg-1", Status("maybe"), nil, nil); err == nil {
		t.Fatalf("expected invalid status to be rejected")
	}
}

func TestDecryptTamperedRecordFails(t *testing.T) {
	store := testStore(t)

	if _, err := store.Create(testMetadata("msg-1", "hash-a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.ApplyAnalysis("msg-1", testAnalysis()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := store.ByMessageID("msg-1")
	tampered := *rec
	tampered.CandidateName = append([]byte(nil), rec.CandidateName...)
	tampered.CandidateName[len(tampered.CandidateName)-1] ^= 0x01

	_, err := store.Decrypt(&tampered)
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}
	if !strings.Contains(err.Error(), "candidate_name") {
		t.Fatalf("expected field name in error, got %v", err)
	}
}

func TestStoreReloadsFromDisk(t *testing.T) {
	fs := afero.NewMemMapFs()
	box, err := cipherbox.New(bytes.Repeat([]byte{0x11}, 32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store, err := Open(fs, "data", box, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Create(testMetadata("msg-1", "hash-a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.ApplyAnalysis("msg-1", testAnalysis()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reopened, err := Open(fs, "data", box, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reopened.Count() != 1 {
		t.Fatalf("expected 1 record after reload, got %d", reopened.Count())
	}

	result, err := reopened.Create(testMetadata("msg-2", "hash-a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != Duplicate {
		t.Fatalf("expected dedup to survive reload, got %v", result)
	}

	rec, _ := reopened.ByMessageID("msg-1")
	plain, err := reopened.Decrypt(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plain.CandidateName != "Jane Doe" {
		t.Fatalf("unexpected name after reload: %q", plain.CandidateName)
	}
}

func TestProcessingLogAppendOnly(t *testing.T) {
	store := testStore(t)

	first := LogEntry{SourceMessageID: "msg-1", Action: ActionFetch, Outcome: OutcomeSuccess, Message: "Processed: a.pdf"}
	second := LogEntry{SourceMessageID: "msg-2", Action: ActionFetch, Outcome: OutcomeSkipped, Message: "No valid resume attachments"}

	if err := store.Log(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Log(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := store.Entries()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].SourceMessageID != "msg-1" || entries[1].Outcome != OutcomeSkipped {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be stamped")
	}
}

func TestPurgeAllClearsRecordsAndLog(t *testing.T) {
	store := testStore(t)

	if _, err := store.Create(testMetadata("msg-1", "hash-a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Log(LogEntry{SourceMessageID: "msg-1", Action: ActionFetch, Outcome: OutcomeSuccess}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := store.PurgeAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Records != 1 {
		t.Fatalf("expected 1 purged record, got %d", result.Records)
	}
	if !result.CacheClearRequired {
		t.Fatalf("purge must instruct the caller to clear the attachment cache")
	}
	if store.Count() != 0 {
		t.Fatalf("expected empty store, got %d records", store.Count())
	}

	entries, err := store.Entries()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty log, got %d entries", len(entries))
	}

	// The store stays usable after a purge.
	if _, err := store.Create(testMetadata("msg-1", "hash-a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
