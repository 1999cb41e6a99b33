package candidate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ReportRow is one decrypted, flat export row per candidate. Building rows is
// the only bulk path where decrypted PII leaves the store, and rows are
// produced on demand, never persisted.
type ReportRow struct {
	Name            string
	Email           string
	Phone           string
	Score           float64
	Scored          bool
	Status          Status
	Skills          string
	Education       string
	ExperienceYears float64
	Filename        string
	ReceivedAt      time.Time
	Notes           string
}

// Report decrypts every record into a flat row. Corrupt records are logged
// and excluded instead of failing the whole export.
func (s *Store) Report() ([]*ReportRow, error) {
	var rows []*ReportRow
	for _, rec := range s.All() {
		plain, err := s.Decrypt(rec)
		if err != nil {
			if errors.Is(err, ErrCorruptRecord) {
				s.logger.Warn("excluding corrupt record from report",
					zap.String("document_hash", rec.DocumentHash),
					zap.Error(err),
				)
				continue
			}
			return nil, err
		}

		education := make([]string, 0, len(plain.Education))
		for _, entry := range plain.Education {
			education = append(education, entry.Text)
		}

		rows = append(rows, &ReportRow{
			Name:            plain.CandidateName,
			Email:           plain.CandidateEmail,
			Phone:           plain.CandidatePhone,
			Score:           plain.Score,
			Scored:          plain.Scored,
			Status:          plain.Status,
			Skills:          strings.Join(plain.Skills, ", "),
			Education:       strings.Join(education, "; "),
			ExperienceYears: plain.TotalExperienceYears(),
			Filename:        plain.Filename,
			ReceivedAt:      plain.ReceivedAt,
			Notes:           plain.Notes,
		})
	}

	return rows, nil
}

var csvHeader = []string{
	"name", "email", "phone", "score", "status", "skills",
	"education", "experience_years", "resume_filename", "received_at", "notes",
}

// WriteCSV writes report rows as CSV. Unscored candidates export an empty
// score column rather than a misleading zero.
func WriteCSV(w io.Writer, rows []*ReportRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, row := range rows {
		score := ""
		if row.Scored {
			score = strconv.FormatFloat(row.Score, 'f', 2, 64)
		}

		record := []string{
			row.Name,
			row.Email,
			row.Phone,
			score,
			string(row.Status),
			row.Skills,
			row.Education,
			strconv.FormatFloat(row.ExperienceYears, 'f', 1, 64),
			row.Filename,
			row.ReceivedAt.UTC().Format(time.RFC3339),
			row.Notes,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// DumpToTmpFile writes the rows to a temp CSV file and returns its name.
func DumpToTmpFile(rows []*ReportRow) (string, error) {
	file, err := os.CreateTemp("", "candidates_*.csv")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := WriteCSV(file, rows); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	return file.Name(), nil
}
