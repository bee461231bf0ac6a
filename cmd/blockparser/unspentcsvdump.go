package main

import (
	internalconsumer "github.com/blockparser/blockparser/internal/consumer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newUnspentCSVDumpCommand(cfg *runConfig, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "unspentcsvdump",
		Short: "Write unspent.csv: the UTXO set surviving at the end of the run",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := resolveCoin(cfg)
			if err != nil {
				return err
			}
			entry := log.WithField("cmd", "unspentcsvdump")
			cons := &internalconsumer.UTXODumper{OutputDir: cfg.outputDir, Profile: profile}
			if err := runPipeline(cfg, profile, cons, entry); err != nil {
				return err
			}
			result := cons.Result()
			entry.WithFields(logrus.Fields{
				"utxos":        result.RowsWritten,
				"final_height": result.FinalHeight,
			}).Info("unspentcsvdump finished")
			return nil
		},
	}
}
