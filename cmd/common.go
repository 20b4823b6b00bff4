package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/ai/gemini"
	"github.com/spigell/job-matcher/internal/fingerprint"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/records"
	"github.com/spigell/job-matcher/internal/secrets"
	"github.com/spigell/job-matcher/internal/store"
)

// bootstrap builds the logger and reads the config. Failures are fatal.
func bootstrap() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}
	if config.Matching == nil {
		config.Matching = &MatchingConfig{MinScore: matching.DefaultMinScore, TopN: matching.DefaultTopN}
	}

	logger.Info("starting the job-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

// redacted returns a copy of config safe for logging.
func redacted(config *Config) Config {
	c := *config
	if c.Store.Mongo.URI != "" {
		c.Store.Mongo.URI = "***"
	}
	if c.AI != nil && c.AI.Gemini != nil && c.AI.Gemini.APIKey != "" {
		aiCfg := *c.AI
		geminiCfg := *aiCfg.Gemini
		geminiCfg.APIKey = "***"
		aiCfg.Gemini = &geminiCfg
		c.AI = &aiCfg
	}
	return c
}

// loadRecords opens the configured store and reads the profile and jobs.
// The caller owns the returned store.
func loadRecords(ctx context.Context, config *Config, logger *zap.Logger) (store.Store, *records.Profile, *records.Jobs) {
	st, err := store.Open(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err), zap.String("driver", config.Store.Driver))
	}

	profile, err := st.Profile(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Fatal("profile not found",
				zap.Error(err),
				zap.String("hint", "check store.profile-file or store.mongo.user-id"),
			)
		}
		logger.Fatal("loading the profile", zap.Error(err))
	}

	jobs, err := st.Jobs(ctx)
	if err != nil {
		logger.Fatal("loading jobs", zap.Error(err))
	}

	logger.Info("records loaded", zap.Int("jobs", jobs.Len()))
	return st, profile, jobs
}

func newEncoder(config *Config, logger *zap.Logger) *fingerprint.Encoder {
	encoder := fingerprint.New(logger)
	encoder.SetWorkers(config.Matching.Workers)
	return encoder
}

func newAIMatcher(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Matcher, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai filter is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	minScore := max(cfg.MinimumFitScore, 0)

	matcher := gemini.NewMatcher(generator, minScore, cfg.Gemini.MaxLogLength,
		logger.With(zap.Float64("minimum_fit_score", minScore)))
	matcher.SetPromptOverrides(cfg.Gemini.Prompt)

	return matcher, nil
}
