package main

import (
	internalconsumer "github.com/blockparser/blockparser/internal/consumer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newBalancesCommand(cfg *runConfig, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Write balances.csv: each address's net satoshi balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := resolveCoin(cfg)
			if err != nil {
				return err
			}
			entry := log.WithField("cmd", "balances")
			cons := &internalconsumer.BalanceTracker{OutputDir: cfg.outputDir, Profile: profile}
			if err := runPipeline(cfg, profile, cons, entry); err != nil {
				return err
			}
			result := cons.Result()
			entry.WithFields(logrus.Fields{
				"addresses":    result.RowsWritten,
				"final_height": result.FinalHeight,
			}).Info("balances finished")
			return nil
		},
	}
}
