package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/cvlens/cvlens/internal/analyze"
	"github.com/cvlens/cvlens/internal/analyze/gemini"
	"github.com/cvlens/cvlens/internal/candidate"
	"github.com/cvlens/cvlens/internal/cipherbox"
	"github.com/cvlens/cvlens/internal/graph"
	"github.com/cvlens/cvlens/internal/ingest"
	"github.com/cvlens/cvlens/internal/logger"
	"github.com/cvlens/cvlens/internal/scoring"
	"github.com/cvlens/cvlens/internal/secrets"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultMaxLogLength = 300

// openStore builds the cipher box from the configured key and opens the
// candidate store together with its companion attachment cache.
func openStore(config *Config, logger *zap.Logger) (*candidate.Store, *ingest.Cache, error) {
	key, err := secrets.LoadKey(secrets.Source{
		Name: "encryption key",
		File: config.KeyFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("loading the encryption key: %w", err)
	}

	box, err := cipherbox.New(key)
	if err != nil {
		return nil, nil, err
	}

	fs := afero.NewOsFs()
	store, err := candidate.Open(fs, config.DataDir, box, logger)
	if err != nil {
		return nil, nil, err
	}

	return store, ingest.NewCache(fs, config.CacheDir), nil
}

// mailSource builds the Microsoft Graph client from the configured token file.
func mailSource(config *Config, logger *zap.Logger) (*graph.Client, error) {
	token, err := secrets.Load(secrets.Source{
		Name: "graph token",
		File: config.Mail.TokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("loading the graph token: %w", err)
	}

	client := graph.New(logger, token)
	if config.Mail.UserAgent != "" {
		client.UserAgent = config.Mail.UserAgent
	}

	return client, nil
}

// newAnalyzer builds the configured AI analysis collaborator. Gemini is the
// only provider.
func newAnalyzer(ctx context.Context, config *Config, logger *zap.Logger) (analyze.Analyzer, error) {
	gcfg := &GeminiConfig{}
	if config.AI != nil && config.AI.Gemini != nil {
		gcfg = config.AI.Gemini
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: gcfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("loading the gemini api key: %w", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model, gcfg.MaxRetries, logger)
	if err != nil {
		return nil, err
	}

	maxLogLength := gcfg.MaxLogLength
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return gemini.NewAnalyzer(generator, maxLogLength, logger), nil
}

// loadJobProfile loads and validates the scoring configuration.
func loadJobProfile(config *Config, logger *zap.Logger) (*scoring.JobProfile, error) {
	return scoring.LoadProfile(config.JobProfile, logger)
}

// retentionStart returns the lower bound of the ingestion window.
func retentionStart(config *Config) time.Time {
	days := config.RetentionDays
	if days <= 0 {
		days = defaultRetentionDays
	}
	return time.Now().UTC().AddDate(0, 0, -days)
}

func newLogger() (*zap.Logger, error) {
	return logger.New(viper.GetBool("json"), viper.GetBool("debug"))
}
