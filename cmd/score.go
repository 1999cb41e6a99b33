package cmd

import (
	"context"
	"log"

	"github.com/cvlens/cvlens/internal/ingest"
	"github.com/cvlens/cvlens/internal/scoring"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score analyzed records against the job profile",
	Run: func(_ *cobra.Command, _ []string) {
		runScore()
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func runScore() {
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	store, cache, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening the candidate store", zap.Error(err))
	}

	profile, err := loadJobProfile(config, logger)
	if err != nil {
		logger.Fatal("loading the job profile", zap.Error(err))
	}

	engine := scoring.NewEngine(profile, logger)
	pipeline := ingest.NewPipeline(nil, ingest.NewSelector(), store, cache, nil, engine, logger)

	summary, err := pipeline.Score(context.Background())
	if err != nil {
		logger.Fatal("scoring records", zap.Error(err))
	}

	logger.Info("scoring finished",
		zap.Int("processed", summary.Processed),
		zap.Int("errors", summary.Errors),
	)
}
