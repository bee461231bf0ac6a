package main

import (
	internalconsumer "github.com/blockparser/blockparser/internal/consumer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newSimpleStatsCommand(cfg *runConfig, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "simplestats",
		Short: "Write stats.csv (per-height tx count, fee, warning count) and scripttypes.csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := resolveCoin(cfg)
			if err != nil {
				return err
			}
			entry := log.WithField("cmd", "simplestats")
			cons := &internalconsumer.StatsAggregator{OutputDir: cfg.outputDir, Profile: profile}
			if err := runPipeline(cfg, profile, cons, entry); err != nil {
				return err
			}
			result := cons.Result()
			entry.WithFields(logrus.Fields{
				"height_rows":  result.RowsWritten,
				"final_height": result.FinalHeight,
			}).Info("simplestats finished")
			return nil
		},
	}
}
