package cmd

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/job-matcher/internal/ai/gemini"
	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/store"
)

const (
	app = "job-matcher"
)

type Config struct {
	Store       store.Config    `mapstructure:"store"`
	Matching    *MatchingConfig `mapstructure:"matching"`
	ExcludeFile string          `mapstructure:"exclude-file"`
	Exclude     *struct {
		Companies []string `mapstructure:"companies"`
	} `mapstructure:"exclude"`
	AI *AIConfig `mapstructure:"ai"`
}

type MatchingConfig struct {
	MinScore float64 `mapstructure:"min-score"`
	TopN     int     `mapstructure:"top-n"`
	Workers  int     `mapstructure:"workers"`
}

type AIConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider"`
	MinimumFitScore float64       `mapstructure:"minimum-fit-score"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string                 `mapstructure:"api-key"`
	APIKeyFile   string                 `mapstructure:"api-key-file"`
	Model        string                 `mapstructure:"model"`
	MaxRetries   int                    `mapstructure:"max-retries"`
	MaxLogLength int                    `mapstructure:"max-log-length"`
	Prompt       gemini.PromptOverrides `mapstructure:"prompt"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-matcher ranks job postings against a candidate profile and explains the skill gaps",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("store.mongo.uri-file", "JOB_MATCHER_MONGO_URI_FILE"); err != nil {
		log.Fatalf("binding JOB_MATCHER_MONGO_URI_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	viper.SetDefault("store.driver", store.DriverFile)
	viper.SetDefault("store.profile-file", "profile.json")
	viper.SetDefault("store.jobs-file", "jobs.json")
	viper.SetDefault("matching.min-score", matching.DefaultMinScore)
	viper.SetDefault("matching.top-n", matching.DefaultTopN)
	viper.SetDefault("ai.provider", gemini.Provider)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// An explicit config must exist; the default one is optional since
	// every setting has a usable default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
