package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List mail folders with their ids",
	Run: func(_ *cobra.Command, _ []string) {
		runFolders()
	},
}

func init() {
	rootCmd.AddCommand(foldersCmd)
}

func runFolders() {
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	source, err := mailSource(config, logger)
	if err != nil {
		logger.Fatal("creating the mail client", zap.Error(err))
	}

	folders, err := source.Folders(context.Background())
	if err != nil {
		logger.Fatal("listing folders", zap.Error(err))
	}

	for _, folder := range folders {
		fmt.Printf("%s\t%s\n", folder.FullPath, folder.ID)
	}
}
