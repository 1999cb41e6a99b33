package cmd

import (
	"errors"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "cvlens"

	defaultRetentionDays = 30
	defaultMailFolder    = "inbox"
)

type Config struct {
	DataDir       string      `mapstructure:"data-dir"`
	CacheDir      string      `mapstructure:"cache-dir"`
	RetentionDays int         `mapstructure:"retention-days"`
	KeyFile       string      `mapstructure:"key-file"`
	JobProfile    string      `mapstructure:"job-profile"`
	Mail          *MailConfig `mapstructure:"mail"`
	AI            *AIConfig   `mapstructure:"ai"`
}

type MailConfig struct {
	TokenFile string `mapstructure:"token-file"`
	Folder    string `mapstructure:"folder"`
	UserAgent string `mapstructure:"user-agent"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cvlens ingests resume attachments from a mailbox, analyzes them with AI and scores candidates against a job profile",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("key-file", "CVLENS_KEY_FILE"); err != nil {
		log.Fatalf("binding CVLENS_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("mail.token-file", "GRAPH_TOKEN_FILE"); err != nil {
		log.Fatalf("binding GRAPH_TOKEN_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cvlens.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("data-dir", app+"-data")
	viper.SetDefault("retention-days", defaultRetentionDays)
	viper.SetDefault("job-profile", "job-profile.yaml")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing default config is fine: defaults and environment
		// bindings still apply. An explicitly given file must exist.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.CacheDir == "" {
		config.CacheDir = filepath.Join(config.DataDir, "attachments")
	}
	if config.Mail == nil {
		config.Mail = &MailConfig{}
	}
	if config.Mail.Folder == "" {
		config.Mail.Folder = defaultMailFolder
	}

	return config, nil
}
