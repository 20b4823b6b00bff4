package matching

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/fingerprint"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/records"
)

const (
	DefaultMinScore = 40.0
	DefaultTopN     = 50
)

// Match is a job copy together with its score against a profile.
type Match struct {
	Job   records.Job
	Score float64
}

// Matcher ranks jobs and analyzes skill gaps. Every method is total: faults
// are logged and turned into the documented fallback value.
type Matcher struct {
	encoder *fingerprint.Encoder
	logger  *zap.Logger
}

func NewMatcher(encoder *fingerprint.Encoder, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if encoder == nil {
		encoder = fingerprint.New(logger)
	}

	return &Matcher{
		encoder: encoder,
		logger:  logger,
	}
}

// ScorePair scores a single profile/job pair, using cached fingerprints when
// both records carry one.
func (m *Matcher) ScorePair(profile *records.Profile, job *records.Job) float64 {
	return Score(m.encoder.ProfileFingerprint(profile), m.encoder.JobFingerprint(job))
}

// Rank scores every job against the profile, keeps the ones scoring at least
// minScore and returns the first topN of them, best first. Jobs with equal
// scores keep their input order. A non-positive topN yields no matches.
//
// Missing fingerprints are computed on the fly and not written back; the
// returned matches hold copies, jobs itself is left as it was.
func (m *Matcher) Rank(profile *records.Profile, jobs []records.Job, minScore float64, topN int) (matches []Match) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("ranking jobs failed", zap.Error(fmt.Errorf("%v", r)))
			matches = []Match{}
		}
	}()

	profileFP := m.encoder.ProfileFingerprint(profile)
	if profileFP.IsZero() {
		m.logger.Warn("profile has no fingerprint text, nothing can match")
	}

	matches = make([]Match, 0, len(jobs))
	for i := range jobs {
		job := jobs[i]

		score := Score(profileFP, m.encoder.JobFingerprint(&job))
		if score < minScore {
			continue
		}

		job.MatchScore = score
		matches = append(matches, Match{Job: job, Score: score})
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})

	matches = matches[:min(max(topN, 0), len(matches))]

	logger.WithFields(m.logger, logger.ProfileFields(profile)...).Info("found matching jobs",
		zap.Int("jobs", len(jobs)),
		zap.Int("matches", len(matches)),
		zap.Float64("min_score", minScore),
		zap.Int("top_n", topN),
	)

	return matches
}
