package cmd

import (
	"context"
	"log"

	"github.com/cvlens/cvlens/internal/ingest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch recent messages and ingest resume attachments",
	Run: func(_ *cobra.Command, _ []string) {
		runSync()
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync() {
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

	source, err := mailSource(config, logger)
	if err != nil {
		logger.Fatal("creating the mail client", zap.Error(err))
	}

	pipeline := ingest.NewPipeline(source, ingest.NewSelector(), store, cache, nil, nil, logger)

	summary, err := pipeline.Sync(context.Background(), config.Mail.Folder, retentionStart(config))
	if err != nil {
		logger.Fatal("syncing the mailbox", zap.Error(err))
	}

	logger.Info("sync finished",
		zap.Int("processed", summary.Processed),
		zap.Int("errors", summary.Errors),
		zap.Int("records", store.Count()),
	)
}
