package main

import (
	internalconsumer "github.com/blockparser/blockparser/internal/consumer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newOpReturnCommand(cfg *runConfig, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "opreturn",
		Short: "Write opreturn.csv: one row per OP_RETURN output",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := resolveCoin(cfg)
			if err != nil {
				return err
			}
			entry := log.WithField("cmd", "opreturn")
			cons := &internalconsumer.OpReturnDumper{OutputDir: cfg.outputDir, Profile: profile}
			if err := runPipeline(cfg, profile, cons, entry); err != nil {
				return err
			}
			result := cons.Result()
			entry.WithFields(logrus.Fields{
				"rows":         result.RowsWritten,
				"final_height": result.FinalHeight,
			}).Info("opreturn finished")
			return nil
		},
	}
}
