package filtering

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/records"
)

type matchScoreFilter struct {
	toggle
	matcher  *matching.Matcher
	profile  *records.Profile
	minScore float64
	topN     int
	logger   *zap.Logger
}

// NewMatchScore creates the ranking step. It keeps postings scoring at least
// minScore against profile, best first, at most topN of them.
func NewMatchScore(matcher *matching.Matcher, profile *records.Profile, minScore float64, topN int, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &matchScoreFilter{
		matcher:  matcher,
		profile:  profile,
		minScore: minScore,
		topN:     topN,
		logger:   logger,
	}
}

func (f *matchScoreFilter) Name() string { return "match_score" }

func (f *matchScoreFilter) Validate() error {
	if f.matcher == nil {
		return errors.New("matcher is required")
	}
	if f.profile == nil {
		return errors.New("profile is required")
	}
	if f.minScore < 0 || f.minScore > 100 {
		return errors.New("min score must be between 0 and 100")
	}
	if f.topN < 1 {
		return errors.New("top n must be positive")
	}
	return nil
}

func (f *matchScoreFilter) Apply(_ context.Context, jobs *records.Jobs) (*records.Jobs, Step, error) {
	initial := jobs.Len()

	matches := f.matcher.Rank(f.profile, jobs.Values(), f.minScore, f.topN)

	ranked := &records.Jobs{Items: make([]*records.Job, 0, len(matches))}
	for i := range matches {
		ranked.Items = append(ranked.Items, &matches[i].Job)
	}

	if len(matches) > 0 {
		f.logger.Debug("best match",
			zap.String("job_id", matches[0].Job.ID),
			zap.Float64("score", matches[0].Score),
		)
	}

	return ranked, newStep(initial, ranked), nil
}

func (f *matchScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{
			"min_score": strconv.FormatFloat(f.minScore, 'f', -1, 64),
			"top_n":     strconv.Itoa(f.topN),
		},
	}
}
