package cmd

import (
	"log"

	"github.com/cvlens/cvlens/internal/candidate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var decideCmd = &cobra.Command{
	Use:   "decide <message-id> <new|interested|pass>",
	Short: "Record a decision on a candidate",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runDecide(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().String("notes", "", "free-text notes, stored encrypted")
	decideCmd.Flags().StringSlice("tags", nil, "replace the record's tags")
}

func runDecide(cmd *cobra.Command, args []string) {
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	status, err := candidate.ParseStatus(args[1])
	if err != nil {
		logger.Fatal("parsing the status", zap.Error(err))
	}

	store, _, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening the candidate store", zap.Error(err))
	}

	var notes *string
	if cmd.Flags().Changed("notes") {
		value, _ := cmd.Flags().GetString("notes")
		notes = &value
	}

	var tags []string
	if cmd.Flags().Changed("tags") {
		tags, _ = cmd.Flags().GetStringSlice("tags")
	}

	if err := store.SetDecision(args[0], status, notes, tags); err != nil {
		logger.Fatal("recording the decision", zap.Error(err))
	}

	logger.Info("decision recorded",
		zap.String("message_id", args[0]),
		zap.String("status", string(status)),
	)
}
