package candidate

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cvlens/cvlens/internal/analyze"
	"github.com/cvlens/cvlens/internal/cipherbox"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	recordsDirName = "records"
	logFileName    = "processing.log.jsonl"
	purgeDirName   = ".purge"
)

// ErrCorruptRecord marks a record whose encrypted fields fail to decrypt.
// Batch operations must surface it per record, never abort on it.
var ErrCorruptRecord = errors.New("corrupt candidate record")

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("candidate record not found")

// CreateResult is the outcome of a create attempt. Duplicate is a normal
// control-flow outcome, not an error.
type CreateResult int

const (
	Created CreateResult = iota
	Duplicate
)

// PurgeResult reports what a purge removed and reminds the caller that the
// attachment cache lives outside the store and must be cleared alongside.
type PurgeResult struct {
	Records            int
	CacheClearRequired bool
}

// Store persists one encrypted record per accepted resume as a JSON document
// on the given filesystem, plus an append-only processing log. All exported
// methods are safe for concurrent use; the mutex makes every operation
// single-writer by construction.
type Store struct {
	fs     afero.Fs
	dir    string
	box    *cipherbox.Box
	logger *zap.Logger

	mu        sync.Mutex
	byHash    map[string]*Record
	byMessage map[string]*Record
}

// Open loads all existing records from dir into memory, creating the layout
// on first use.
func Open(fs afero.Fs, dir string, box *cipherbox.Box, logger *zap.Logger) (*Store, error) {
	s := &Store{
		fs:        fs,
		dir:       dir,
		box:       box,
		logger:    logger,
		byHash:    make(map[string]*Record),
		byMessage: make(map[string]*Record),
	}

	if err := fs.MkdirAll(s.recordsDir(), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	entries, err := afero.ReadDir(fs, s.recordsDir())
	if err != nil {
		return nil, fmt.Errorf("read store directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := afero.ReadFile(fs, filepath.Join(s.recordsDir(), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read record %s: %w", entry.Name(), err)
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", entry.Name(), err)
		}

		s.byHash[rec.DocumentHash] = &rec
		s.byMessage[rec.SourceMessageID] = &rec
	}

	logger.Debug("candidate store opened", zap.String("dir", dir), zap.Int("records", len(s.byHash)))

	return s, nil
}

func (s *Store) recordsDir() string { return filepath.Join(s.dir, recordsDirName) }
func (s *Store) logPath() string    { return filepath.Join(s.dir, logFileName) }

// Create stores a new record for the given metadata. When the document hash or
// the source message is already known it performs no write and reports
// Duplicate.
func (s *Store) Create(meta Metadata) (CreateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byHash[meta.DocumentHash]; ok {
		return Duplicate, nil
	}
	if _, ok := s.byMessage[meta.SourceMessageID]; ok {
		return Duplicate, nil
	}

	now := time.Now().UTC()
	rec := &Record{
		SourceMessageID: meta.SourceMessageID,
		DocumentHash:    meta.DocumentHash,
		ReceivedAt:      meta.ReceivedAt,
		SenderAddress:   meta.SenderAddress,
		SenderName:      meta.SenderName,
		Subject:         meta.Subject,
		Filename:        meta.Filename,
		SizeBytes:       meta.SizeBytes,
		Status:          StatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.persist(rec); err != nil {
		return Created, err
	}

	s.byHash[rec.DocumentHash] = rec
	s.byMessage[rec.SourceMessageID] = rec

	return Created, nil
}

// ByMessageID returns the record created for the given source message.
func (s *Store) ByMessageID(id string) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byMessage[id]
	return rec, ok
}

// ByHash returns the record with the given document hash.
func (s *Store) ByHash(hash string) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byHash[hash]
	return rec, ok
}

// All returns every record ordered by creation time.
func (s *Store) All() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(*Record) bool { return true })
}

// Unanalyzed returns records the analysis pass still has to process.
func (s *Store) Unanalyzed() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(r *Record) bool { return !r.Analyzed })
}

// Unscored returns analyzed records the scoring pass still has to process.
func (s *Store) Unscored() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(r *Record) bool { return r.Analyzed && !r.Scored })
}

func (s *Store) sorted(keep func(*Record) bool) []*Record {
	records := make([]*Record, 0, len(s.byHash))
	for _, rec := range s.byHash {
		if keep(rec) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].DocumentHash < records[j].DocumentHash
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}

// ApplyAnalysis encrypts and stores the analyzer's output on the record,
// marks it analyzed and stamps the processing time. Absent optional fields
// stay absent; partial analyses are accepted.
func (s *Store) ApplyAnalysis(messageID string, result *analyze.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byMessage[messageID]
	if !ok {
		return fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}

	updated := *rec

	var err error
	seal := func(target *[]byte, value string) {
		if err != nil || value == "" {
			return
		}
		*target, err = s.box.EncryptString(value)
	}
	sealJSON := func(target *[]byte, length int, value any) {
		if err != nil || length == 0 {
			return
		}
		*target, err = s.box.EncryptJSON(value)
	}

	seal(&updated.CandidateName, result.Name)
	seal(&updated.CandidateEmail, result.Email)
	seal(&updated.CandidatePhone, result.Phone)
	seal(&updated.ExecutiveSummary, result.ExecutiveSummary)
	seal(&updated.RawText, result.RawText)
	sealJSON(&updated.Skills, len(result.Skills), result.Skills)
	sealJSON(&updated.Education, len(result.Education), result.Education)
	sealJSON(&updated.Experience, len(result.Experience), result.Experience)
	sealJSON(&updated.ExperienceHighlights, len(result.ExperienceHighlights), result.ExperienceHighlights)
	sealJSON(&updated.EducationHighlights, len(result.EducationHighlights), result.EducationHighlights)
	sealJSON(&updated.InterestingFacts, len(result.InterestingFacts), result.InterestingFacts)
	if err != nil {
		return fmt.Errorf("encrypt analysis fields: %w", err)
	}

	now := time.Now().UTC()
	updated.Analyzed = true
	updated.AnalysisError = ""
	updated.ProcessedAt = &now
	updated.UpdatedAt = now

	return s.replace(rec, &updated)
}

// SetAnalysisError records a per-item analysis failure. The record stays
// unanalyzed and is retried on the next pass.
func (s *Store) SetAnalysisError(messageID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byMessage[messageID]
	if !ok {
		return fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}

	updated := *rec
	updated.AnalysisError = message
	updated.UpdatedAt = time.Now().UTC()

	return s.replace(rec, &updated)
}

// ApplyScore stores the weighted score and its encrypted breakdown. Scoring
// an unanalyzed record violates the state machine and is rejected.
func (s *Store) ApplyScore(messageID string, score float64, breakdown any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byMessage[messageID]
	if !ok {
		return fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}

	if !rec.Analyzed {
		return fmt.Errorf("record %s is not analyzed yet", messageID)
	}

	sealed, err := s.box.EncryptJSON(breakdown)
	if err != nil {
		return fmt.Errorf("encrypt score breakdown: %w", err)
	}

	updated := *rec
	updated.Score = score
	updated.ScoreBreakdown = sealed
	updated.Scored = true
	updated.UpdatedAt = time.Now().UTC()

	return s.replace(rec, &updated)
}

// SetDecision applies a user decision. It is legal in any state and never
// touches the analysis/scoring flags: resetting the status to new keeps the
// record analyzed and scored.
func (s *Store) SetDecision(messageID string, status Status, notes *string, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byMessage[messageID]
	if !ok {
		return fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}

	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}

	updated := *rec
	updated.Status = status
	if notes != nil {
		sealed, err := s.box.EncryptString(*notes)
		if err != nil {
			return fmt.Errorf("encrypt notes: %w", err)
		}
		updated.Notes = sealed
	}
	if tags != nil {
		updated.Tags = tags
	}
	updated.UpdatedAt = time.Now().UTC()

	return s.replace(rec, &updated)
}

// Decrypt builds the fully decrypted view of a record. Any field that fails
// to authenticate yields ErrCorruptRecord; the caller decides whether to skip
// the record or abort.
func (s *Store) Decrypt(rec *Record) (*PlainRecord, error) {
	plain := &PlainRecord{
		SourceMessageID: rec.SourceMessageID,
		DocumentHash:    rec.DocumentHash,
		ReceivedAt:      rec.ReceivedAt,
		SenderAddress:   rec.SenderAddress,
		SenderName:      rec.SenderName,
		Subject:         rec.Subject,
		Filename:        rec.Filename,
		SizeBytes:       rec.SizeBytes,
		Score:           rec.Score,
		Status:          rec.Status,
		Tags:            rec.Tags,
		Analyzed:        rec.Analyzed,
		Scored:          rec.Scored,
		AnalysisError:   rec.AnalysisError,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
		ProcessedAt:     rec.ProcessedAt,
	}

	var err error
	open := func(target *string, payload []byte, field string) {
		if err != nil {
			return
		}
		var value string
		if value, err = s.box.DecryptString(payload); err != nil {
			err = fmt.Errorf("%w: %s field %s", ErrCorruptRecord, rec.DocumentHash, field)
			return
		}
		*target = value
	}
	openJSON := func(target any, payload []byte, field string) {
		if err != nil {
			return
		}
		if jsonErr := s.box.DecryptJSON(payload, target); jsonErr != nil {
			err = fmt.Errorf("%w: %s field %s", ErrCorruptRecord, rec.DocumentHash, field)
		}
	}

	open(&plain.CandidateName, rec.CandidateName, "candidate_name")
	open(&plain.CandidateEmail, rec.CandidateEmail, "candidate_email")
	open(&plain.CandidatePhone, rec.CandidatePhone, "candidate_phone")
	open(&plain.Notes, rec.Notes, "notes")
	open(&plain.ExecutiveSummary, rec.ExecutiveSummary, "executive_summary")
	open(&plain.RawText, rec.RawText, "raw_text")
	openJSON(&plain.Skills, rec.Skills, "skills")
	openJSON(&plain.Education, rec.Education, "education")
	openJSON(&plain.Experience, rec.Experience, "experience")
	openJSON(&plain.ExperienceHighlights, rec.ExperienceHighlights, "experience_highlights")
	openJSON(&plain.EducationHighlights, rec.EducationHighlights, "education_highlights")
	openJSON(&plain.InterestingFacts, rec.InterestingFacts, "interesting_facts")
	openJSON(&plain.ScoreBreakdown, rec.ScoreBreakdown, "score_breakdown")
	if err != nil {
		return nil, err
	}

	return plain, nil
}

// Log appends one entry to the processing log.
func (s *Store) Log(entry LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	file, err := s.fs.OpenFile(s.logPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open processing log: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append processing log: %w", err)
	}

	return nil
}

// Entries reads the full processing log in order.
func (s *Store) Entries() ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.fs.Open(s.logPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open processing log: %w", err)
	}
	defer file.Close()

	var entries []LogEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("decode processing log entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read processing log: %w", err)
	}

	return entries, nil
}

// PurgeAll removes every record and the processing log together. Both are
// moved aside before deletion so a half-completed purge never leaves a
// partially cleared store behind. The attachment cache is not owned by the
// store; the result tells the caller it must be cleared as well.
func (s *Store) PurgeAll() (PurgeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := PurgeResult{Records: len(s.byHash), CacheClearRequired: true}

	trash := filepath.Join(s.dir, purgeDirName)
	if err := s.fs.RemoveAll(trash); err != nil {
		return result, fmt.Errorf("clear purge staging: %w", err)
	}
	if err := s.fs.MkdirAll(trash, 0o700); err != nil {
		return result, fmt.Errorf("create purge staging: %w", err)
	}

	if err := s.fs.Rename(s.recordsDir(), filepath.Join(trash, recordsDirName)); err != nil {
		return result, fmt.Errorf("stage records for purge: %w", err)
	}

	if exists, _ := afero.Exists(s.fs, s.logPath()); exists {
		if err := s.fs.Rename(s.logPath(), filepath.Join(trash, logFileName)); err != nil {
			// Roll the records back so the store stays consistent.
			if restoreErr := s.fs.Rename(filepath.Join(trash, recordsDirName), s.recordsDir()); restoreErr != nil {
				return result, fmt.Errorf("stage log for purge: %v (records restore failed: %w)", err, restoreErr)
			}
			return result, fmt.Errorf("stage log for purge: %w", err)
		}
	}

	if err := s.fs.RemoveAll(trash); err != nil {
		return result, fmt.Errorf("remove purged data: %w", err)
	}
	if err := s.fs.MkdirAll(s.recordsDir(), 0o700); err != nil {
		return result, fmt.Errorf("recreate store directory: %w", err)
	}

	s.byHash = make(map[string]*Record)
	s.byMessage = make(map[string]*Record)

	s.logger.Info("purged all candidate data", zap.Int("records", result.Records))

	return result, nil
}

// replace persists the updated record and swaps it into the indexes only
// after the write succeeded, so a failed write never leaves memory and disk
// disagreeing.
func (s *Store) replace(old, updated *Record) error {
	if err := s.persist(updated); err != nil {
		return err
	}

	s.byHash[old.DocumentHash] = updated
	s.byMessage[old.SourceMessageID] = updated

	return nil
}

// persist writes the record to a temp file and renames it into place, so the
// record is updated across all fields in one step or not at all.
func (s *Store) persist(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	final := filepath.Join(s.recordsDir(), rec.DocumentHash+".json")
	tmp := final + ".tmp"

	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	if err := s.fs.Rename(tmp, final); err != nil {
		// Some filesystems refuse to rename over an existing file.
		if removeErr := s.fs.Remove(final); removeErr != nil {
			return fmt.Errorf("commit record: %w", err)
		}
		if err := s.fs.Rename(tmp, final); err != nil {
			return fmt.Errorf("commit record: %w", err)
		}
	}

	return nil
}
