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

func TestStatsAggregatorCountsTransactionsPerHeight(t *testing.T) {
	dir := t.TempDir()
	s := &StatsAggregator{OutputDir: dir, Profile: coin.Bitcoin}

	require.NoError(t, s.OnStart("bitcoin", 0))
	require.NoError(t, s.OnBlock(0, coinbaseBlock(1)))
	require.NoError(t, s.OnComplete(nil))

	raw, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	require.NoError(t, err)
	fields := strings.Split(strings.TrimSuffix(string(raw), "\n"), ";")
	require.Equal(t, "0", fields[0])
	require.Equal(t, "1", fields[1]) // one coinbase tx
}

func TestStatsAggregatorComputesFeeWhenSpentOutputKnown(t *testing.T) {
	dir := t.TempDir()
	s := &StatsAggregator{OutputDir: dir, Profile: coin.Bitcoin}

	require.NoError(t, s.OnStart("bitcoin", 0))
	require.NoError(t, s.OnBlock(0, &chain.Block{
		Transactions: []chain.Transaction{
			{TxIn: []chain.TxIn{{PrevIndex: 0xFFFFFFFF}}, TxOut: []chain.TxOut{{Value: 1000, PkScript: []byte{0x6a}}}, Txid: chainhash.Hash{1}},
		},
	}))
	require.NoError(t, s.OnBlock(1, &chain.Block{
		Transactions: []chain.Transaction{
			{
				TxIn:  []chain.TxIn{{PrevTxid: chainhash.Hash{1}, PrevIndex: 0}},
				TxOut: []chain.TxOut{{Value: 900, PkScript: []byte{0x6a}}},
				Txid:  chainhash.Hash{2},
			},
		},
	}))
	require.NoError(t, s.OnComplete(nil))

	lines := readLines(t, filepath.Join(dir, "stats.csv"))
	require.Len(t, lines, 2)
	secondFields := strings.Split(lines[1], ";")
	require.Equal(t, "100", secondFields[2]) // fee = 1000 - 900
}

func TestStatsAggregatorReportsUnknownFeeAsNegativeOne(t *testing.T) {
	dir := t.TempDir()
	s := &StatsAggregator{OutputDir: dir, Profile: coin.Bitcoin}

	require.NoError(t, s.OnStart("bitcoin", 0))
	// Spends an outpoint never observed in this run.
	require.NoError(t, s.OnBlock(0, &chain.Block{
		Transactions: []chain.Transaction{
			{
				TxIn:  []chain.TxIn{{PrevTxid: chainhash.Hash{99}, PrevIndex: 0}},
				TxOut: []chain.TxOut{{Value: 500, PkScript: []byte{0x6a}}},
				Txid:  chainhash.Hash{1},
			},
		},
	}))
	require.NoError(t, s.OnComplete(nil))

	lines := readLines(t, filepath.Join(dir, "stats.csv"))
	fields := strings.Split(lines[0], ";")
	require.Equal(t, "-1", fields[2])
}

func TestStatsAggregatorWritesScriptTypeHistogram(t *testing.T) {
	dir := t.TempDir()
	s := &StatsAggregator{OutputDir: dir, Profile: coin.Bitcoin}

	require.NoError(t, s.OnStart("bitcoin", 0))
	require.NoError(t, s.OnBlock(0, coinbaseBlock(1)))
	require.NoError(t, s.OnComplete(nil))

	_, err := os.Stat(filepath.Join(dir, "scripttypes.csv"))
	require.NoError(t, err)
}
