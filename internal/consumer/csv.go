// Package consumer holds the reference Consumer implementations wired up
// by cmd/blockparser: CSV dumps, a UTXO snapshot, address balances,
// aggregate statistics, and an OP_RETURN payload dump. None of these are
// part of the core's contract — they exist to exercise it.
package consumer

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blockparser/blockparser/pkg/chain"
	"github.com/blockparser/blockparser/pkg/coin"
	"github.com/blockparser/blockparser/pkg/script"
)

// Summary is returned by Result on every reference consumer once a run
// completes: how many rows it wrote and the last height it saw.
type Summary struct {
	RowsWritten int
	FinalHeight int
}

// csvFile is one `;`-separated, `\n`-terminated output file, buffered and
// opened in truncate mode by openCSV. CSVDumper and OpReturnDumper open
// theirs at OnStart, StatsAggregator opens stats.csv on the first block,
// and the remaining files are written in one go at OnComplete.
type csvFile struct {
	f *os.File
	w *bufio.Writer
}

func openCSV(dir, name string) (*csvFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &csvFile{f: f, w: bufio.NewWriter(f)}, nil
}

func (c *csvFile) writeRow(fields ...string) error {
	for i, field := range fields {
		if i > 0 {
			if err := c.w.WriteByte(';'); err != nil {
				return err
			}
		}
		if _, err := c.w.WriteString(field); err != nil {
			return err
		}
	}
	return c.w.WriteByte('\n')
}

func (c *csvFile) close() error {
	if err := c.w.Flush(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}

// hexLower is the CSV convention for byte blobs: lowercase hex, no 0x
// prefix.
func hexLower(b []byte) string {
	return hex.EncodeToString(b)
}

// CSVDumper writes blocks.csv, transactions.csv, inputs.csv, and
// outputs.csv — one row per block, transaction, input, and output
// respectively, in delivery order.
type CSVDumper struct {
	OutputDir string
	Profile   coin.Profile

	blocks *csvFile
	txs    *csvFile
	inputs *csvFile
	outs   *csvFile
	rows   int
	final  int
}

func (d *CSVDumper) OnStart(coinName string, startHeight int) error {
	var err error
	if d.blocks, err = openCSV(d.OutputDir, "blocks.csv"); err != nil {
		return err
	}
	if d.txs, err = openCSV(d.OutputDir, "transactions.csv"); err != nil {
		return err
	}
	if d.inputs, err = openCSV(d.OutputDir, "inputs.csv"); err != nil {
		return err
	}
	if d.outs, err = openCSV(d.OutputDir, "outputs.csv"); err != nil {
		return err
	}
	return nil
}

func (d *CSVDumper) OnBlock(height int, b *chain.Block) error {
	hash := b.Hash()
	if err := d.blocks.writeRow(
		fmt.Sprintf("%d", height),
		hash.String(),
		hexLower(b.Header.PrevHash[:]),
		fmt.Sprintf("%d", b.Header.Time),
		fmt.Sprintf("%d", len(b.Transactions)),
		fmt.Sprintf("%d", b.Size),
	); err != nil {
		return err
	}

	for txIdx, tx := range b.Transactions {
		if err := d.txs.writeRow(
			fmt.Sprintf("%d", height),
			fmt.Sprintf("%d", txIdx),
			tx.Txid.String(),
			fmt.Sprintf("%d", tx.Version),
			fmt.Sprintf("%d", tx.LockTime),
			fmt.Sprintf("%t", tx.HasWitness),
		); err != nil {
			return err
		}

		for vin, in := range tx.TxIn {
			if err := d.inputs.writeRow(
				tx.Txid.String(),
				fmt.Sprintf("%d", vin),
				in.PrevTxid.String(),
				fmt.Sprintf("%d", in.PrevIndex),
				hexLower(in.ScriptSig),
				fmt.Sprintf("%d", in.Sequence),
			); err != nil {
				return err
			}
		}

		for vout, out := range tx.TxOut {
			typ := script.Classify(out.PkScript)
			addr := script.Address(out.PkScript, d.Profile)
			if err := d.outs.writeRow(
				tx.Txid.String(),
				fmt.Sprintf("%d", vout),
				fmt.Sprintf("%d", out.Value),
				string(typ),
				addr,
				hexLower(out.PkScript),
			); err != nil {
				return err
			}
			d.rows++
		}
	}
	d.final = height
	return nil
}

func (d *CSVDumper) OnComplete(err error) error {
	for _, f := range []*csvFile{d.blocks, d.txs, d.inputs, d.outs} {
		if f == nil {
			continue
		}
		if cerr := f.close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Result reports how many output rows were written, for callers that want
// a Summary rather than just an error.
func (d *CSVDumper) Result() Summary {
	return Summary{RowsWritten: d.rows, FinalHeight: d.final}
}
