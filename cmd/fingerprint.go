package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Compute missing fingerprints and write them back to the store",
	Run: func(cmd *cobra.Command, _ []string) {
		encodeAll(cmd)
	},
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)

	fingerprintCmd.Flags().BoolP("force", "f", false, "recompute fingerprints that are already cached")
}

func encodeAll(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := bootstrap()
	defer logger.Sync()

	st, profile, jobs := loadRecords(ctx, config, logger)
	defer st.Close(ctx)

	force, _ := cmd.Flags().GetBool("force")
	encoder := newEncoder(config, logger)

	if force || !profile.HasFingerprint() {
		if err := st.SaveProfileFingerprint(ctx, encoder.EncodeProfile(profile)); err != nil {
			logger.Fatal("saving the profile fingerprint", zap.Error(err))
		}
		logger.Info("profile fingerprint saved", zap.String("profile_id", profile.ID))
	}

	values := jobs.Values()
	encoded, count, err := encoder.EncodeJobs(ctx, values, force)
	if err != nil {
		logger.Fatal("encoding jobs", zap.Error(err))
	}
	if count == 0 {
		logger.Info("all job fingerprints are up to date", zap.Int("jobs", len(values)))
		return
	}

	fps := make(map[string][]float64, count)
	for i := range encoded {
		if force || !values[i].HasFingerprint() {
			fps[encoded[i].ID] = encoded[i].Fingerprint
		}
	}

	if err := st.SaveJobFingerprints(ctx, fps); err != nil {
		logger.Fatal("saving job fingerprints", zap.Error(err))
	}

	logger.Info("job fingerprints saved", zap.Int("jobs", len(fps)))
}
