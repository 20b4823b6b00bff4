package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/records"
)

type inactiveFilter struct {
	toggle
	logger *zap.Logger
}

// NewInactive creates a filter that drops postings flagged as closed.
func NewInactive(logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inactiveFilter{logger: logger}
}

func (f *inactiveFilter) Name() string { return "inactive" }

func (f *inactiveFilter) Validate() error { return nil }

func (f *inactiveFilter) Apply(_ context.Context, jobs *records.Jobs) (*records.Jobs, Step, error) {
	initial := jobs.Len()

	excluded := jobs.ExcludeInactive()
	if len(excluded) > 0 {
		f.logger.Debug("excluding inactive jobs", zap.Strings("excluded_jobs", excluded))
	}

	return jobs, newStep(initial, jobs), nil
}
