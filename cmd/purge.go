package cmd

import (
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every candidate record, the processing log and the attachment cache",
	Run: func(cmd *cobra.Command, _ []string) {
		runPurge(cmd)
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)

	purgeCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

func runPurge(cmd *cobra.Command) {
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

	if cmd.Flag("yes").Value.String() == "false" {
		prompt := promptui.Select{
			Label: "Delete all candidate data? This cannot be undone",
			Items: []string{PromptNo, PromptYes},
		}

		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action != PromptYes {
			logger.Info("exiting", zap.String("reason", "purge not confirmed"))
			return
		}
	}

	result, err := store.PurgeAll()
	if err != nil {
		logger.Fatal("purging the store", zap.Error(err))
	}

	if result.CacheClearRequired {
		if err := cache.Clear(); err != nil {
			logger.Fatal("clearing the attachment cache", zap.Error(err))
		}
	}

	logger.Info("purge finished", zap.Int("records", result.Records))
}
