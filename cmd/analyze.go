package cmd

import (
	"context"
	"log"

	"github.com/cvlens/cvlens/internal/ingest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run AI analysis over records that have no analysis yet",
	Run: func(_ *cobra.Command, _ []string) {
		runAnalyze()
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze() {
	ctx := context.Background()

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

	analyzer, err := newAnalyzer(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating the analyzer", zap.Error(err))
	}

	pipeline := ingest.NewPipeline(nil, ingest.NewSelector(), store, cache, analyzer, nil, logger)

	summary, err := pipeline.Analyze(ctx)
	if err != nil {
		logger.Fatal("analyzing records", zap.Error(err))
	}

	logger.Info("analysis finished",
		zap.Int("processed", summary.Processed),
		zap.Int("errors", summary.Errors),
	)
}
