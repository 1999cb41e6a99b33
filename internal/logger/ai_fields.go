package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured field keys identifying the AI analysis backend in log output.
const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
)

// StringField is one key/value pair destined for a zap field.
type StringField struct {
	Key   string
	Value string
}

// StringFields turns the pairs into zap fields, trimming whitespace and
// dropping entries whose key or value ends up empty.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, substituting a no-op logger for a
// nil one so callers never have to guard.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields names the analyzer's provider and model. Empty values are
// dropped so log entries stay compact when one is unknown.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields tags every entry of the returned logger with the
// provider/model pair.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}
