// Package store loads profiles and job postings and persists their
// fingerprints.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/records"
)

const (
	DriverFile  = "file"
	DriverMongo = "mongo"
)

var ErrNotFound = errors.New("not found")

type Store interface {
	Profile(ctx context.Context) (*records.Profile, error)
	Jobs(ctx context.Context) (*records.Jobs, error)
	// SaveProfileFingerprint replaces the cached profile fingerprint.
	SaveProfileFingerprint(ctx context.Context, fp []float64) error
	// SaveJobFingerprints replaces the cached fingerprints of the given job IDs.
	// Unknown IDs are skipped.
	SaveJobFingerprints(ctx context.Context, fps map[string][]float64) error
	Close(ctx context.Context) error
}

type Config struct {
	Driver      string      `mapstructure:"driver"`
	ProfileFile string      `mapstructure:"profile-file"`
	JobsFile    string      `mapstructure:"jobs-file"`
	Mongo       MongoConfig `mapstructure:"mongo"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	URIFile  string `mapstructure:"uri-file"`
	Database string `mapstructure:"database"`
	UserID   string `mapstructure:"user-id"`
}

// Open returns the store selected by cfg.Driver. An empty driver means file.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", DriverFile:
		return NewFileStore(cfg.ProfileFile, cfg.JobsFile, logger)
	case DriverMongo:
		return NewMongoStore(ctx, cfg.Mongo, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
