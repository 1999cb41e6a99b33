package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/cvlens/cvlens/internal/analyze"
	"github.com/cvlens/cvlens/internal/logger"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

type documentGenerator interface {
	GenerateDocument(ctx context.Context, prompt, mimeType string, document []byte) (string, error)
}

// Analyzer extracts structured resume fields from document bytes via Gemini.
type Analyzer struct {
	generator documentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

func NewAnalyzer(generator documentGenerator, maxLogLength int, log *zap.Logger) *Analyzer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Analyzer{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// Analyze sends the document to Gemini and parses the structured response.
// A response that is not valid JSON degrades to a raw-text-only partial
// result instead of failing the item.
func (a *Analyzer) Analyze(ctx context.Context, filename string, document []byte) (*analyze.Analysis, error) {
	if len(document) == 0 {
		return nil, fmt.Errorf("document is required")
	}

	mimeType, ok := mimeTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		mimeType = "application/octet-stream"
	}

	a.logger.Debug("gemini analyze request",
		zap.String("filename", filename),
		zap.Int("document_bytes", len(document)),
		zap.String("mime_type", mimeType),
	)

	raw, err := a.generator.GenerateDocument(ctx, promptTemplate, mimeType, document)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("gemini analyze response",
		zap.String("filename", filename),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, a.maxLogLen)),
	)

	result, err := parseResponse(raw)
	if err != nil {
		a.logger.Warn("gemini response is not structured, degrading to raw text",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return &analyze.Analysis{RawText: raw, Partial: true}, nil
	}

	return result, nil
}

func parseResponse(raw string) (*analyze.Analysis, error) {
	cleaned := extractJSON(strings.TrimSpace(raw))

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	// personal_info may arrive nested or flattened; lift it before decoding.
	if nested, ok := data["personal_info"].(map[string]any); ok {
		for key, value := range nested {
			if _, present := data[key]; !present {
				data[key] = value
			}
		}
	}

	result := &analyze.Analysis{}
	cfg := &mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
	}
	decoder, _ := mapstructure.NewDecoder(cfg)
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}

	return result, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
