package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/store"
)

var gapCmd = &cobra.Command{
	Use:   "gap",
	Short: "Show the skill gap for one job or a summary over all active jobs",
	Run: func(cmd *cobra.Command, _ []string) {
		gap(cmd)
	},
}

func init() {
	rootCmd.AddCommand(gapCmd)

	gapCmd.Flags().String("job", "", "job id to analyze. Without it a summary over all active jobs is printed")
}

func gap(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := bootstrap()
	defer logger.Sync()

	st, profile, jobs := loadRecords(ctx, config, logger)
	defer st.Close(ctx)

	matcher := matching.NewMatcher(newEncoder(config, logger), logger)

	var report any
	if jobID, _ := cmd.Flags().GetString("job"); jobID != "" {
		job := jobs.FindByID(jobID)
		if job == nil {
			logger.Fatal("job not found", zap.Error(fmt.Errorf("job %s: %w", jobID, store.ErrNotFound)))
		}
		report = matcher.AnalyzeSkillGap(profile, job)
	} else {
		jobs.ExcludeInactive()
		report = matcher.SummarizeSkillGaps(profile, jobs.Values())
	}

	pretty, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatal("encoding the report", zap.Error(err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
}
