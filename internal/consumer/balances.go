package consumer

import (
	"fmt"

	"github.com/blockparser/blockparser/pkg/chain"
	"github.com/blockparser/blockparser/pkg/coin"
	"github.com/blockparser/blockparser/pkg/script"
)

// BalanceTracker accumulates each address's net satoshi balance across
// every output and input it appears in. It only tracks outputs that
// resolve to an address; OP_RETURN and other non-standard scripts carry
// no address and are skipped, same as a real wallet's balance view would
// skip them.
//
// Inputs don't carry the spent output's value inline, so BalanceTracker
// keeps a running ledger of every output it has seen (by txid:vout) and
// looks the value up when the matching input arrives. A spend that
// references an output this run never saw (spent before StartHeight) is
// silently ignored rather than treated as an error.
type BalanceTracker struct {
	OutputDir string
	Profile   coin.Profile

	balances map[string]int64
	seenOut  map[string]outputRef
	final    int
}

type outputRef struct {
	addr  string
	value uint64
}

func (b *BalanceTracker) OnStart(coinName string, startHeight int) error {
	b.balances = make(map[string]int64)
	b.seenOut = make(map[string]outputRef)
	return nil
}

func (b *BalanceTracker) OnBlock(height int, blk *chain.Block) error {
	for _, tx := range blk.Transactions {
		for vout, out := range tx.TxOut {
			addr := script.Address(out.PkScript, b.Profile)
			if addr == "" {
				continue
			}
			b.balances[addr] += int64(out.Value)
			b.seenOut[outpointKey(tx.Txid.String(), vout)] = outputRef{addr: addr, value: out.Value}
		}

		if tx.IsCoinbase() {
			continue
		}
		for _, in := range tx.TxIn {
			key := outpointKey(in.PrevTxid.String(), int(in.PrevIndex))
			ref, ok := b.seenOut[key]
			if !ok {
				continue
			}
			b.balances[ref.addr] -= int64(ref.value)
			delete(b.seenOut, key)
		}
	}
	b.final = height
	return nil
}

func (b *BalanceTracker) OnComplete(err error) error {
	if err != nil {
		return err
	}

	f, ferr := openCSV(b.OutputDir, "balances.csv")
	if ferr != nil {
		return ferr
	}
	for addr, sats := range b.balances {
		if werr := f.writeRow(addr, fmt.Sprintf("%d", sats)); werr != nil {
			f.close()
			return werr
		}
	}
	return f.close()
}

// Result reports how many distinct addresses were tracked and the last
// height processed.
func (b *BalanceTracker) Result() Summary {
	return Summary{RowsWritten: len(b.balances), FinalHeight: b.final}
}
