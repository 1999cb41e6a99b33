package cmd

import (
	"log"
	"os"

	"github.com/cvlens/cvlens/internal/candidate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export decrypted candidate rows to a CSV file",
	Run: func(cmd *cobra.Command, _ []string) {
		runExport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "output file. Default is a temporary file.")
}

func runExport(cmd *cobra.Command) {
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	store, _, err := openStore(config, logger)
	if err != nil {
		logger.Fatal("opening the candidate store", zap.Error(err))
	}

	rows, err := store.Report()
	if err != nil {
		logger.Fatal("building the report", zap.Error(err))
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		filename, err := candidate.DumpToTmpFile(rows)
		if err != nil {
			logger.Fatal("dumping the report to file", zap.Error(err))
		}
		logger.Info("report written", zap.String("filename", filename), zap.Int("rows", len(rows)))
		return
	}

	file, err := os.Create(output)
	if err != nil {
		logger.Fatal("creating the output file", zap.Error(err))
	}
	defer file.Close()

	if err := candidate.WriteCSV(file, rows); err != nil {
		logger.Fatal("writing the report", zap.Error(err))
	}

	logger.Info("report written", zap.String("filename", output), zap.Int("rows", len(rows)))
}
