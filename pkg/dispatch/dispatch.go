// Package dispatch runs the ordered parallel pipeline: a fixed pool of
// workers decodes blocks file by file, a single reorder stage releases
// them to a Consumer strictly in height order, and a bounded backlog
// throttles the workers whenever the consumer falls behind.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/blockparser/blockparser/pkg/blockfile"
	"github.com/blockparser/blockparser/pkg/chain"
	"github.com/blockparser/blockparser/pkg/chainindex"
	"github.com/blockparser/blockparser/pkg/coin"
	"github.com/blockparser/blockparser/pkg/consumer"
	"github.com/blockparser/blockparser/pkg/verify"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called once per block released to the consumer, with the
// height just released and the total blocks the run covers. cmd/blockparser
// wires this to a schollz/progressbar/v3 bar; tests pass nil.
type ProgressFunc func(height, total int)

// Config is everything Run needs: the resolved canonical chain, where its
// blocks live on disk, how many workers to run, how deep the reorder
// backlog may grow before workers stall, and the range of heights to
// actually dispatch.
type Config struct {
	Files        []blockfile.File
	Table        map[chainhash.Hash]chainindex.Entry
	Chain        []chainhash.Hash // height-ordered, index == height
	Profile      coin.Profile
	XORKey       []byte
	Workers      int
	Backlog      int
	StartHeight  int
	EndHeight    int // exclusive; 0 means "through the end of Chain"
	VerifyBlocks bool
	Progress     ProgressFunc
}

type task struct {
	fileID int
	path   string
	hashes []chainhash.Hash // canonical-chain hashes living in this file, ascending height
}

type result struct {
	height int
	block  *chain.Block
}

// admissionWindow gates which height a worker may decode next: a worker
// may start height h only once h - next < backlog, so the block the
// reorder stage is actually waiting on is always immediately admissible
// regardless of how far other workers have raced ahead. A plain counting
// semaphore can't guarantee that — it only bounds how many blocks are
// outstanding, not which ones, so an adversarial completion order can
// starve the one block everyone else is blocked on.
type admissionWindow struct {
	mu      sync.Mutex
	cond    *sync.Cond
	next    int
	backlog int
}

func newAdmissionWindow(ctx context.Context, start, backlog int) *admissionWindow {
	w := &admissionWindow{next: start, backlog: backlog}
	w.cond = sync.NewCond(&w.mu)
	go func() {
		<-ctx.Done()
		w.mu.Lock()
		w.cond.Broadcast()
		w.mu.Unlock()
	}()
	return w
}

func (w *admissionWindow) wait(ctx context.Context, height int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for height-w.next >= w.backlog {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.cond.Wait()
	}
	return ctx.Err()
}

func (w *admissionWindow) advance(to int) {
	w.mu.Lock()
	w.next = to
	w.mu.Unlock()
	w.cond.Broadcast()
}

// Run decodes every block in [StartHeight, EndHeight) and delivers them to
// cons strictly in height order. The first error from decoding, a verify
// check, or the consumer itself cancels every other in-flight worker and
// is returned once everything has unwound.
func Run(ctx context.Context, cfg Config, cons consumer.Consumer) (consumer.Summary, error) {
	end := cfg.EndHeight
	if end == 0 || end > len(cfg.Chain) {
		end = len(cfg.Chain)
	}
	if cfg.StartHeight < 0 || cfg.StartHeight > end {
		return consumer.Summary{}, fmt.Errorf("dispatch: invalid range [%d, %d)", cfg.StartHeight, end)
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	backlog := cfg.Backlog
	if backlog < 1 {
		backlog = 1
	}

	heightOf := make(map[chainhash.Hash]int, end-cfg.StartHeight)
	byFile := make(map[int][]chainhash.Hash)
	for h := cfg.StartHeight; h < end; h++ {
		hash := cfg.Chain[h]
		heightOf[hash] = h
		entry, ok := cfg.Table[hash]
		if !ok {
			return consumer.Summary{}, fmt.Errorf("dispatch: height %d (%s) missing from header table", h, hash)
		}
		byFile[entry.FileID] = append(byFile[entry.FileID], hash)
	}

	var tasks []task
	for _, f := range cfg.Files {
		hashes, ok := byFile[f.ID]
		if !ok {
			continue
		}
		tasks = append(tasks, task{fileID: f.ID, path: f.Path, hashes: hashes})
	}

	if err := cons.OnStart(cfg.Profile.Name, cfg.StartHeight); err != nil {
		return consumer.Summary{}, fmt.Errorf("consumer OnStart: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	taskCh := make(chan task)
	resultsCh := make(chan result, workers)
	window := newAdmissionWindow(gctx, cfg.StartHeight, backlog)

	g.Go(func() error {
		defer close(taskCh)
		for _, t := range tasks {
			select {
			case taskCh <- t:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var workersWG sync.WaitGroup
	workersWG.Add(workers)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			defer workersWG.Done()
			return runWorker(gctx, taskCh, resultsCh, window, cfg, heightOf)
		})
	}
	go func() {
		workersWG.Wait()
		close(resultsCh)
	}()

	total := end - cfg.StartHeight
	applied := 0
	g.Go(func() error {
		n, err := reorder(gctx, resultsCh, window, cfg.StartHeight, cons, cfg.Progress, total)
		applied = n
		return err
	})

	runErr := g.Wait()
	completeErr := cons.OnComplete(runErr)
	if runErr == nil {
		runErr = completeErr
	}

	return consumer.Summary{
		Coin:          cfg.Profile.Name,
		StartHeight:   cfg.StartHeight,
		BlocksApplied: applied,
		Err:           runErr,
	}, runErr
}

// runWorker pulls file tasks off taskCh and decodes every canonical-chain
// block in that file, waiting at the admission window before each one so
// no worker can race more than Backlog heights ahead of the block the
// reorder stage is actually waiting to release.
func runWorker(ctx context.Context, taskCh <-chan task, resultsCh chan<- result, window *admissionWindow, cfg Config, heightOf map[chainhash.Hash]int) error {
	for {
		select {
		case t, ok := <-taskCh:
			if !ok {
				return nil
			}
			if err := processTask(ctx, t, resultsCh, window, cfg, heightOf); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func processTask(ctx context.Context, t task, resultsCh chan<- result, window *admissionWindow, cfg Config, heightOf map[chainhash.Hash]int) error {
	region, err := blockfile.Open(t.path, cfg.XORKey)
	if err != nil {
		return fmt.Errorf("open %s: %w", t.path, err)
	}
	defer region.Close()

	for _, hash := range t.hashes {
		height := heightOf[hash]
		if err := window.wait(ctx, height); err != nil {
			return err
		}

		entry, ok := cfg.Table[hash]
		if !ok {
			return fmt.Errorf("file %d: no entry for %s", t.fileID, hash)
		}
		raw, err := region.ReadAt(entry.Offset, int(entry.Size))
		if err != nil {
			return fmt.Errorf("file %d: read block %s: %w", t.fileID, hash, err)
		}

		block, err := chain.DecodeBlock(t.fileID, entry.Offset, raw, cfg.Profile)
		if err != nil {
			return fmt.Errorf("file %d: decode block %s: %w", t.fileID, hash, err)
		}

		if cfg.VerifyBlocks {
			// The parent to check against is the previous canonical-chain
			// block, not this entry's own PrevHash field — that field is
			// this block's own header value and would make the check a
			// tautology. At StartHeight there's no in-range parent to
			// compare against, so the chain-link check is skipped there.
			expectedPrev := chainhash.Hash{}
			if height > cfg.StartHeight {
				expectedPrev = cfg.Chain[height-1]
			}
			if err := verify.Block(block, expectedPrev); err != nil {
				return err
			}
		}

		select {
		case resultsCh <- result{height: height, block: block}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// reorder is the pipeline's single fan-in stage: it holds decoded blocks
// that arrived ahead of their turn in a map, and releases them to cons
// strictly in ascending height order as soon as each next height arrives,
// advancing the admission window each time so waiting workers can proceed.
func reorder(ctx context.Context, resultsCh <-chan result, window *admissionWindow, startHeight int, cons consumer.Consumer, progress ProgressFunc, total int) (int, error) {
	pending := make(map[int]*chain.Block)
	next := startHeight
	released := 0

	release := func(height int, b *chain.Block) error {
		if err := cons.OnBlock(height, b); err != nil {
			return &consumer.Error{Consumer: fmt.Sprintf("%T", cons), Height: height, Err: err}
		}
		released++
		if progress != nil {
			progress(height, total)
		}
		return nil
	}

	for {
		select {
		case r, ok := <-resultsCh:
			if !ok {
				return released, nil
			}
			pending[r.height] = r.block
			for {
				b, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if err := release(next, b); err != nil {
					return released, err
				}
				next++
				window.advance(next)
			}
		case <-ctx.Done():
			return released, ctx.Err()
		}
	}
}
