package cmd

import (
	"context"
	"log"

	"github.com/cvlens/cvlens/internal/ingest"
	"github.com/cvlens/cvlens/internal/scoring"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: sync, analyze and score in sequence",
	Run: func(_ *cobra.Command, _ []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run() {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting cvlens", zap.String("version", version))

	store, cache, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening the candidate store", zap.Error(err))
	}

	source, err := mailSource(config, logger)
	if err != nil {
		logger.Fatal("creating the mail client", zap.Error(err))
	}

	analyzer, err := newAnalyzer(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating the analyzer", zap.Error(err))
	}

	profile, err := loadJobProfile(config, logger)
	if err != nil {
		logger.Fatal("loading the job profile", zap.Error(err))
	}

	pipeline := ingest.NewPipeline(
		source,
		ingest.NewSelector(),
		store,
		cache,
		analyzer,
		scoring.NewEngine(profile, logger),
		logger,
	)

	synced, analyzed, scored, err := pipeline.Run(ctx, config.Mail.Folder, retentionStart(config))
	if err != nil {
		logger.Fatal("running the pipeline", zap.Error(err))
	}

	logger.Info("pipeline finished",
		zap.Int("synced", synced.Processed),
		zap.Int("sync_errors", synced.Errors),
		zap.Int("analyzed", analyzed.Processed),
		zap.Int("analyze_errors", analyzed.Errors),
		zap.Int("scored", scored.Processed),
		zap.Int("score_errors", scored.Errors),
		zap.Int("records", store.Count()),
	)
}
