package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/blockparser/blockparser/pkg/blockfile"
	"github.com/blockparser/blockparser/pkg/chainindex"
	"github.com/blockparser/blockparser/pkg/coin"
	"github.com/blockparser/blockparser/pkg/consumer"
	"github.com/blockparser/blockparser/pkg/dispatch"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// runPipeline wires up the chain index and ordered dispatch pipeline for a
// given coin profile and consumer, and is shared by every subcommand.
func runPipeline(cfg *runConfig, profile coin.Profile, cons consumer.Consumer, log *logrus.Entry) error {
	if err := requireBlockchainDir(cfg); err != nil {
		return err
	}

	files, err := blockfile.Discover(cfg.blockchainDir)
	if err != nil {
		return fmt.Errorf("discover block files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no blk*.dat files found in %s", cfg.blockchainDir)
	}

	xorKey, err := blockfile.ReadXORKey(cfg.blockchainDir)
	if err != nil {
		return fmt.Errorf("read xor key: %w", err)
	}

	log.WithField("files", len(files)).Info("building header table")
	table, err := chainindex.BuildHeaderTable(files, profile, xorKey)
	if err != nil {
		return fmt.Errorf("build header table: %w", err)
	}

	indexPath := filepath.Join(cfg.outputDir, fmt.Sprintf("chainindex.%s.json", profile.Name))
	_, prevChain, _, ok, err := chainindex.Load(indexPath)
	if err != nil {
		log.WithError(err).Warn("discarding unreadable chain index, rebuilding")
		ok = false
	}
	if ok {
		log.WithField("previous_tip", len(prevChain)-1).Info("found existing chain index; re-selecting against the full header table in case the corpus has grown")
	}

	// Always re-derive the canonical chain from the freshly built header
	// table rather than trusting a persisted chain wholesale: the corpus
	// may have grown (more blk*.dat files, a deeper tip, or even a reorg)
	// since the index was last written, and the header table already
	// reflects every block on disk right now.
	log.Info("selecting canonical chain")
	chainHashes, err := chainindex.SelectLongestChain(table, profile.GenesisHash)
	if err != nil {
		return fmt.Errorf("select longest chain: %w", err)
	}
	if err := chainindex.Save(indexPath, profile.Name, chainHashes, len(chainHashes)); err != nil {
		log.WithError(err).Warn("failed to persist chain index, continuing without it")
	}

	bar := progressbar.Default(int64(len(chainHashes)), "decoding blocks")
	progressFn := func(height, total int) {
		_ = bar.Set(height + 1)
	}

	dispatchCfg := dispatch.Config{
		Files:        files,
		Table:        table,
		Chain:        chainHashes,
		Profile:      profile,
		XORKey:       xorKey,
		Workers:      cfg.workers,
		Backlog:      cfg.backlog,
		StartHeight:  cfg.start,
		EndHeight:    cfg.end,
		VerifyBlocks: cfg.verify,
		Progress:     progressFn,
	}

	ctx := context.Background()
	summary, err := dispatch.Run(ctx, dispatchCfg, cons)
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	log.WithFields(logrus.Fields{
		"coin":   summary.Coin,
		"blocks": summary.BlocksApplied,
	}).Info("run complete")
	return nil
}

func resolveCoin(cfg *runConfig) (coin.Profile, error) {
	profile, ok := coin.ByName(cfg.coinName)
	if !ok {
		return coin.Profile{}, &flagValidationError{msg: fmt.Sprintf("blockparser: unknown coin %q", cfg.coinName)}
	}
	return profile, nil
}
