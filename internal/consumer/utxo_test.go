package consumer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blockparser/blockparser/pkg/chain"
	"github.com/blockparser/blockparser/pkg/coin"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func coinbaseBlock(txid byte) *chain.Block {
	return &chain.Block{
		Transactions: []chain.Transaction{
			{
				TxIn:  []chain.TxIn{{PrevIndex: 0xFFFFFFFF}},
				TxOut: []chain.TxOut{{Value: 5000000000, PkScript: []byte{0x76, 0xa9, 0x14}}},
				Txid:  chainhash.Hash{txid},
			},
		},
	}
}

func spendingBlock(spendTxid byte, spendVout uint32, newTxid byte) *chain.Block {
	return &chain.Block{
		Transactions: []chain.Transaction{
			{
				TxIn: []chain.TxIn{
					{PrevTxid: chainhash.Hash{spendTxid}, PrevIndex: spendVout},
				},
				TxOut: []chain.TxOut{{Value: 100, PkScript: []byte{0x76, 0xa9, 0x14}}},
				Txid:  chainhash.Hash{newTxid},
			},
		},
	}
}

func TestUTXODumperTracksUnspentAcrossBlocks(t *testing.T) {
	dir := t.TempDir()
	u := &UTXODumper{OutputDir: dir, Profile: coin.Bitcoin}

	require.NoError(t, u.OnStart("bitcoin", 0))
	require.NoError(t, u.OnBlock(0, coinbaseBlock(1)))
	require.NoError(t, u.OnBlock(1, coinbaseBlock(2)))
	require.NoError(t, u.OnComplete(nil))

	require.Equal(t, 2, u.Result().RowsWritten)

	raw, err := os.ReadFile(filepath.Join(dir, "unspent.csv"))
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(raw), "\n"))
}

func TestUTXODumperRemovesSpentOutpoints(t *testing.T) {
	dir := t.TempDir()
	u := &UTXODumper{OutputDir: dir, Profile: coin.Bitcoin}

	require.NoError(t, u.OnStart("bitcoin", 0))
	require.NoError(t, u.OnBlock(0, coinbaseBlock(1)))
	require.NoError(t, u.OnBlock(1, spendingBlock(1, 0, 2)))
	require.NoError(t, u.OnComplete(nil))

	require.Equal(t, 1, u.Result().RowsWritten)

	raw, err := os.ReadFile(filepath.Join(dir, "unspent.csv"))
	require.NoError(t, err)
	txid2 := chainhash.Hash{2}.String()
	require.Contains(t, string(raw), txid2)
	txid1 := chainhash.Hash{1}.String()
	require.NotContains(t, string(raw), txid1)
}

func TestUTXODumperCoinbaseInputsNeverSpendAnything(t *testing.T) {
	dir := t.TempDir()
	u := &UTXODumper{OutputDir: dir, Profile: coin.Bitcoin}

	require.NoError(t, u.OnStart("bitcoin", 0))
	require.NoError(t, u.OnBlock(0, coinbaseBlock(1)))
	require.NoError(t, u.OnComplete(nil))

	require.Equal(t, 1, u.Result().RowsWritten)
}

func TestUTXODumperResultTracksFinalHeight(t *testing.T) {
	u := &UTXODumper{OutputDir: t.TempDir(), Profile: coin.Bitcoin}
	require.NoError(t, u.OnStart("bitcoin", 0))
	require.NoError(t, u.OnBlock(0, coinbaseBlock(1)))
	require.NoError(t, u.OnBlock(5, coinbaseBlock(2)))
	require.NoError(t, u.OnComplete(nil))

	require.Equal(t, 5, u.Result().FinalHeight)
}
