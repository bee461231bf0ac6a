package consumer

import (
	"fmt"

	"github.com/blockparser/blockparser/pkg/chain"
	"github.com/blockparser/blockparser/pkg/coin"
	"github.com/blockparser/blockparser/pkg/script"
)

// outpointKey is the "txid:vout" string an unspent output is tracked
// under, matching the on-disk convention other Bitcoin tooling uses for
// the same concept.
func outpointKey(txid string, vout int) string {
	return fmt.Sprintf("%s:%d", txid, vout)
}

type utxoEntry struct {
	value   uint64
	addr    string
	typ     script.Type
	height  int
	txid    string
	vout    int
}

// UTXODumper builds an in-memory unspent-output set as blocks arrive,
// removing entries as they're spent by later inputs, and dumps whatever
// survives to unspent.csv at on_complete.
type UTXODumper struct {
	OutputDir string
	Profile   coin.Profile

	set   map[string]utxoEntry
	final int
}

func (u *UTXODumper) OnStart(coinName string, startHeight int) error {
	u.set = make(map[string]utxoEntry)
	return nil
}

func (u *UTXODumper) OnBlock(height int, b *chain.Block) error {
	for _, tx := range b.Transactions {
		for vout, out := range tx.TxOut {
			u.set[outpointKey(tx.Txid.String(), vout)] = utxoEntry{
				value:  out.Value,
				addr:   script.Address(out.PkScript, u.Profile),
				typ:    script.Classify(out.PkScript),
				height: height,
				txid:   tx.Txid.String(),
				vout:   vout,
			}
		}

		if tx.IsCoinbase() {
			continue
		}
		for _, in := range tx.TxIn {
			delete(u.set, outpointKey(in.PrevTxid.String(), int(in.PrevIndex)))
		}
	}
	u.final = height
	return nil
}

func (u *UTXODumper) OnComplete(err error) error {
	if err != nil {
		return err
	}

	f, ferr := openCSV(u.OutputDir, "unspent.csv")
	if ferr != nil {
		return ferr
	}
	for _, e := range u.set {
		if werr := f.writeRow(
			e.txid,
			fmt.Sprintf("%d", e.vout),
			fmt.Sprintf("%d", e.value),
			string(e.typ),
			e.addr,
			fmt.Sprintf("%d", e.height),
		); werr != nil {
			f.close()
			return werr
		}
	}
	return f.close()
}

// Result reports the final UTXO set size and the last height processed.
func (u *UTXODumper) Result() Summary {
	return Summary{RowsWritten: len(u.set), FinalHeight: u.final}
}
