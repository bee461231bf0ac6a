package consumer

import (
	"fmt"

	"github.com/blockparser/blockparser/pkg/chain"
	"github.com/blockparser/blockparser/pkg/coin"
	"github.com/blockparser/blockparser/pkg/script"
)

// OpReturnDumper writes one row to opreturn.csv per OP_RETURN output:
// height, txid, vout, a best-effort protocol tag, the raw payload hex,
// and the UTF-8 decode when the payload happens to be valid text.
type OpReturnDumper struct {
	OutputDir string
	Profile   coin.Profile

	out   *csvFile
	rows  int
	final int
}

func (o *OpReturnDumper) OnStart(coinName string, startHeight int) error {
	f, err := openCSV(o.OutputDir, "opreturn.csv")
	if err != nil {
		return err
	}
	o.out = f
	return nil
}

func (o *OpReturnDumper) OnBlock(height int, b *chain.Block) error {
	for _, tx := range b.Transactions {
		for vout, txOut := range tx.TxOut {
			if script.Classify(txOut.PkScript) != script.OpReturn {
				continue
			}

			payloadHex, payloadUTF8, protocol := script.ParseOpReturn(txOut.PkScript)
			utf8Field := ""
			if payloadUTF8 != nil {
				utf8Field = *payloadUTF8
			}

			if err := o.out.writeRow(
				fmt.Sprintf("%d", height),
				tx.Txid.String(),
				fmt.Sprintf("%d", vout),
				protocol,
				payloadHex,
				utf8Field,
			); err != nil {
				return err
			}
			o.rows++
		}
	}
	o.final = height
	return nil
}

func (o *OpReturnDumper) OnComplete(err error) error {
	if o.out == nil {
		return err
	}
	if cerr := o.out.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Result reports how many OP_RETURN rows were written and the last
// height processed.
func (o *OpReturnDumper) Result() Summary {
	return Summary{RowsWritten: o.rows, FinalHeight: o.final}
}
