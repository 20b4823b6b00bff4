package filtering

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/records"
)

type AIFitFilterConfig struct {
	Enabled         bool
	Provider        string
	MinimumFitScore float64
	Model           string
}

type AIFitFilterDeps struct {
	Logger      *zap.Logger
	Matcher     ai.Matcher
	Profile     *records.Profile
	ExcludeFile string
}

type aiFitFilter struct {
	toggle
	config *AIFitFilterConfig
	deps   *AIFitFilterDeps
}

// NewAIFit creates the AI-based filtering step. Postings the model rejects
// are dropped and, when an exclude file is configured, recorded there.
// Postings the model failed to assess are kept with the error attached.
func NewAIFit(cfg *AIFitFilterConfig, deps *AIFitFilterDeps) Filter {
	f := &aiFitFilter{config: cfg, deps: deps}
	if cfg == nil || !cfg.Enabled {
		f.Disable("disabled in configuration")
	}
	return f
}

// AIFitName is the name of the AI-based filtering step.
const AIFitName = "ai_fit"

func (f *aiFitFilter) Name() string { return AIFitName }

func (f *aiFitFilter) Validate() error {
	if f.deps == nil {
		return errors.New("deps are not initialized: filter is not usable")
	}
	if f.deps.Matcher == nil {
		return errors.New("ai matcher is required when ai filter is enabled")
	}
	if f.deps.Profile == nil {
		return errors.New("profile is required for AI evaluation")
	}
	if f.deps.Logger == nil {
		f.deps.Logger = zap.NewNop()
	}
	return nil
}

func (f *aiFitFilter) Apply(ctx context.Context, jobs *records.Jobs) (*records.Jobs, Step, error) {
	initial := jobs.Len()
	approved := make([]*records.Job, 0, initial)
	var rejected []*records.Job

	for _, job := range jobs.Items {
		if err := ctx.Err(); err != nil {
			return jobs, Step{}, err
		}

		log := logger.WithFields(f.deps.Logger, logger.JobFields(job)...)

		assessment, err := f.deps.Matcher.Evaluate(ctx, f.deps.Profile, job)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return jobs, Step{}, err
			}
			log.Warn("AI evaluation failed", zap.Error(err))
			job.AI = &records.AIAssessment{Error: err.Error()}
			approved = append(approved, job)
			continue
		}

		job.AI = assessment.ToRecord()

		if !assessment.Fit {
			log.Info("job rejected by AI provider",
				zap.Float64("ai_score", assessment.Score),
				zap.String("reason", assessment.Reason),
			)
			rejected = append(rejected, job)
			continue
		}

		log.Info("job approved by AI", zap.Float64("ai_score", assessment.Score))
		approved = append(approved, job)
	}

	jobs.Items = approved

	if err := f.appendToExcludeFile(rejected); err != nil {
		f.deps.Logger.Warn("failed to append rejected jobs to exclude file", zap.Error(err))
	}

	f.deps.Logger.Info("AI filtering completed",
		zap.Int("initial_jobs", initial),
		zap.Int("approved_jobs", len(approved)),
	)

	return jobs, newStep(initial, jobs), nil
}

func (f *aiFitFilter) appendToExcludeFile(rejected []*records.Job) error {
	path := strings.TrimSpace(f.deps.ExcludeFile)
	if path == "" || len(rejected) == 0 {
		return nil
	}

	excluded, err := records.GetExcludedJobsFromFile(path)
	if err != nil {
		return fmt.Errorf("load excluded jobs: %w", err)
	}

	for _, job := range rejected {
		reason := ""
		if job.AI != nil {
			reason = job.AI.Reason
		}
		excluded.Append((&records.Jobs{Items: []*records.Job{job}}).ToExcluded(records.ExcludeActorAI, reason))
	}

	if err := excluded.ToFile(path); err != nil {
		return fmt.Errorf("write excluded jobs: %w", err)
	}

	f.deps.Logger.Info("rejected jobs appended to exclude file",
		zap.Int("jobs", len(rejected)),
		zap.String("exclude_file", path),
	)
	return nil
}

func (f *aiFitFilter) Status() Status {
	details := map[string]string{}
	if f.config != nil {
		details["provider"] = f.config.Provider
		details["model"] = f.config.Model
		details["minimum_fit_score"] = strconv.FormatFloat(f.config.MinimumFitScore, 'f', -1, 64)
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
