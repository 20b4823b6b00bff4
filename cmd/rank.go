package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/filtering"
	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/records"
)

const (
	PromptExit                = "Exit"
	PromptBack                = "back"
	PromptReportByCompany     = "Report by company"
	PromptSkillGap            = "Skill gap for a job"
	PromptSkillGapSummary     = "Skill gap summary"
	PromptExcludeJobs         = "Exclude jobs"
	PromptAppendToExcludeFile = "Append all jobs to exclude file"
	PromptJobsToFile          = "Dump jobs to file"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptReportByCompany, PromptSkillGap, PromptSkillGapSummary, PromptExcludeJobs, PromptJobsToFile, PromptExit},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank job postings against the profile",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().BoolP("auto-approve", "y", false, "print the company report and exit without prompting")
	rankCmd.Flags().StringP("exclude-file", "e", "", "file with jobs to exclude. Default is unset.")
	rankCmd.Flags().Float64("min-score", matching.DefaultMinScore, "minimum match score (0-100)")
	rankCmd.Flags().Int("top-n", matching.DefaultTopN, "maximum number of matches to keep")

	viper.BindPFlag("exclude-file", rankCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("matching.min-score", rankCmd.Flags().Lookup("min-score"))
	viper.BindPFlag("matching.top-n", rankCmd.Flags().Lookup("top-n"))
}

func rank(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := bootstrap()
	defer logger.Sync()

	st, profile, jobs := loadRecords(ctx, config, logger)
	defer st.Close(ctx)

	if jobs.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs found"))
		return
	}

	matcher := matching.NewMatcher(newEncoder(config, logger), logger)
	filters := prepareFilters(ctx, config, matcher, profile, logger)

	for _, status := range filters.Describe() {
		logger.Debug("filter configured",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	filtered, err := filters.RunFilters(ctx, jobs)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}
	jobs = filtered

	if jobs.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs left after filters"))
		return
	}

	for i, job := range jobs.Items {
		logger.Info("match",
			zap.Int("rank", i+1),
			zap.Float64("score", job.MatchScore),
			zap.String("job_id", job.ID),
			zap.String("title", job.Title),
			zap.String("company", job.Company),
		)
	}

	if cmd.Flag("auto-approve").Value.String() == "true" {
		if err := handleAction(PromptReportByCompany, logger, config, matcher, profile, jobs); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		logger.Info("current list of jobs", zap.Int("count", jobs.Len()))

		if err := handleAction(action, logger, config, matcher, profile, jobs); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, config *Config, matcher *matching.Matcher, profile *records.Profile, jobs *records.Jobs) error {
	switch action {
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptReportByCompany:
		pretty, _ := json.MarshalIndent(jobs.ReportByCompany(), "", "  ")
		logger.Info(string(pretty), zap.Int("jobs count", jobs.Len()))
		return nil
	case PromptSkillGap:
		return skillGapPrompt(logger, matcher, profile, jobs)
	case PromptSkillGapSummary:
		pretty, _ := json.MarshalIndent(matcher.SummarizeSkillGaps(profile, jobs.Values()), "", "  ")
		logger.Info(string(pretty))
		return nil
	case PromptExcludeJobs:
		return manualExclude(logger, config, jobs)
	case PromptJobsToFile:
		filename, err := jobs.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func jobLabel(job *records.Job) string {
	return fmt.Sprintf("%s %s / %s / %s / %s",
		job.ID, job.Title, job.Company, strconv.FormatFloat(job.MatchScore, 'f', 2, 64), job.URL,
	)
}

func selectJob(label string, jobs *records.Jobs, extra ...string) (string, error) {
	items := make([]string, 0, jobs.Len()+len(extra)+1)
	for _, job := range jobs.Items {
		items = append(items, jobLabel(job))
	}
	items = append(items, extra...)

	jobPrompt := promptui.Select{
		Label: label,
		Items: append(items, PromptBack),
	}

	_, selected, err := jobPrompt.Run()
	return selected, err
}

func skillGapPrompt(logger *zap.Logger, matcher *matching.Matcher, profile *records.Profile, jobs *records.Jobs) error {
	for {
		selected, err := selectJob("Choose a job and press ENTER", jobs)
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		jobID := strings.Split(selected, " ")[0]
		job := jobs.FindByID(jobID)
		if job == nil {
			return fmt.Errorf("there is no such job id %s", jobID)
		}

		pretty, _ := json.MarshalIndent(matcher.AnalyzeSkillGap(profile, job), "", "  ")
		logger.Info(string(pretty), zap.String("job_id", job.ID))
	}
}

func manualExclude(logger *zap.Logger, config *Config, jobs *records.Jobs) error {
	excludeFile := strings.TrimSpace(config.ExcludeFile)
	if excludeFile == "" {
		logger.Warn("exclude file is not configured", zap.String("hint", "set exclude-file or pass -e"))
		return nil
	}

	for {
		var extra []string
		if jobs.Len() != 0 {
			extra = append(extra, PromptAppendToExcludeFile)
		}

		selected, err := selectJob("Choose a job to exclude and press ENTER", jobs, extra...)
		if err != nil {
			return err
		}

		toExclude := jobs
		switch selected {
		case PromptBack:
			return nil
		case PromptAppendToExcludeFile:
		default:
			jobID := strings.Split(selected, " ")[0]
			job := jobs.FindByID(jobID)
			if job == nil {
				return fmt.Errorf("there is no such job id %s", jobID)
			}
			toExclude = &records.Jobs{Items: []*records.Job{job}}
		}

		excluded, err := records.GetExcludedJobsFromFile(excludeFile)
		if err != nil {
			return err
		}

		excluded.Append(toExclude.ToExcluded(records.ExcludeActorUser, "excluded manually"))

		if err = excluded.ToFile(excludeFile); err != nil {
			return err
		}

		logger.Info("appended to exclude file", zap.String("filename", excludeFile), zap.Int("jobs", toExclude.Len()))

		jobs.Exclude(records.JobIDField, excluded.IDs())
	}
}

func prepareFilters(ctx context.Context, config *Config, matcher *matching.Matcher, profile *records.Profile, logger *zap.Logger) *filtering.Filtering {
	var companies []string
	if config.Exclude != nil {
		companies = config.Exclude.Companies
	}

	aiFilter, aiErr := prepareAIFilter(ctx, config.AI, profile, logger, config.ExcludeFile)

	steps := []filtering.Filter{
		filtering.NewInactive(logger),
		filtering.NewExcludedCompanies(companies, logger),
		filtering.NewExcludeFile(config.ExcludeFile, logger),
		filtering.NewMatchScore(matcher, profile, config.Matching.MinScore, config.Matching.TopN, logger),
		aiFilter,
	}

	filters := filtering.New(steps, logger)
	if aiErr != nil {
		logger.Warn("skipping AI filter", zap.Error(aiErr))
		filters.DisableByName(filtering.AIFitName, aiErr.Error())
	}

	return filters
}

// prepareAIFilter always returns the ai_fit step. When the AI matcher cannot
// be built the step comes back without one, together with the error.
func prepareAIFilter(ctx context.Context, config *AIConfig, profile *records.Profile, logger *zap.Logger, excludeFile string) (filtering.Filter, error) {
	if config == nil || !config.Enabled {
		return filtering.NewAIFit(&filtering.AIFitFilterConfig{Enabled: false}, nil), nil
	}

	filterConfig := &filtering.AIFitFilterConfig{
		Enabled:         config.Enabled,
		Provider:        config.Provider,
		MinimumFitScore: config.MinimumFitScore,
	}
	if config.Gemini != nil {
		filterConfig.Model = config.Gemini.Model
	}
	deps := &filtering.AIFitFilterDeps{
		Logger:      logger,
		Profile:     profile,
		ExcludeFile: excludeFile,
	}

	matcher, err := newAIMatcher(ctx, config, logger)
	if err != nil {
		return filtering.NewAIFit(filterConfig, deps), fmt.Errorf("building ai matcher: %w", err)
	}
	deps.Matcher = matcher

	return filtering.NewAIFit(filterConfig, deps), nil
}
