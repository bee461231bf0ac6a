package consumer

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blockparser/blockparser/pkg/chain"
	"github.com/blockparser/blockparser/pkg/coin"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func sampleBlock() *chain.Block {
	return &chain.Block{
		Header: chain.BlockHeader{
			Version: 1,
			Time:    1231006505,
		},
		Size: 285,
		Transactions: []chain.Transaction{
			{
				Version: 1,
				TxIn: []chain.TxIn{
					{PrevIndex: 0xFFFFFFFF, ScriptSig: []byte{0x04}, Sequence: 0xFFFFFFFF},
				},
				TxOut: []chain.TxOut{
					{Value: 5000000000, PkScript: []byte{0x6a}},
					{Value: 100, PkScript: []byte{0x76, 0xa9, 0x14}},
				},
				Txid: chainhash.Hash{0x01},
			},
		},
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestCSVDumperWritesExpectedFiles(t *testing.T) {
	dir := t.TempDir()
	d := &CSVDumper{OutputDir: dir, Profile: coin.Bitcoin}

	require.NoError(t, d.OnStart("bitcoin", 0))
	require.NoError(t, d.OnBlock(0, sampleBlock()))
	require.NoError(t, d.OnComplete(nil))

	for _, name := range []string{"blocks.csv", "transactions.csv", "inputs.csv", "outputs.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, "%s should exist", name)
	}
}

func TestCSVDumperRowsAreSemicolonSeparatedAndNewlineTerminated(t *testing.T) {
	dir := t.TempDir()
	d := &CSVDumper{OutputDir: dir, Profile: coin.Bitcoin}

	require.NoError(t, d.OnStart("bitcoin", 0))
	require.NoError(t, d.OnBlock(0, sampleBlock()))
	require.NoError(t, d.OnComplete(nil))

	raw, err := os.ReadFile(filepath.Join(dir, "blocks.csv"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(raw), "\n"))

	lines := readLines(t, filepath.Join(dir, "blocks.csv"))
	require.Len(t, lines, 1)
	fields := strings.Split(lines[0], ";")
	require.Len(t, fields, 6) // height;hash;prevhash;time;txcount;size
	require.Equal(t, "0", fields[0])
}

func TestCSVDumperOutputsHaveNoHexPrefix(t *testing.T) {
	dir := t.TempDir()
	d := &CSVDumper{OutputDir: dir, Profile: coin.Bitcoin}

	require.NoError(t, d.OnStart("bitcoin", 0))
	require.NoError(t, d.OnBlock(0, sampleBlock()))
	require.NoError(t, d.OnComplete(nil))

	lines := readLines(t, filepath.Join(dir, "inputs.csv"))
	require.Len(t, lines, 1)
	fields := strings.Split(lines[0], ";")
	scriptSigField := fields[4]
	require.False(t, strings.HasPrefix(scriptSigField, "0x"))
	require.Equal(t, strings.ToLower(scriptSigField), scriptSigField)
}

func TestCSVDumperOutputRowCountMatchesVoutSum(t *testing.T) {
	dir := t.TempDir()
	d := &CSVDumper{OutputDir: dir, Profile: coin.Bitcoin}

	require.NoError(t, d.OnStart("bitcoin", 0))

	blocks := []*chain.Block{sampleBlock(), sampleBlock(), sampleBlock()}
	wantRows := 0
	for i, b := range blocks {
		require.NoError(t, d.OnBlock(i, b))
		for _, tx := range b.Transactions {
			wantRows += len(tx.TxOut)
		}
	}
	require.NoError(t, d.OnComplete(nil))

	require.Equal(t, wantRows, d.Result().RowsWritten)

	lines := readLines(t, filepath.Join(dir, "outputs.csv"))
	require.Len(t, lines, wantRows)
}

func TestCSVDumperResultTracksFinalHeight(t *testing.T) {
	dir := t.TempDir()
	d := &CSVDumper{OutputDir: dir, Profile: coin.Bitcoin}

	require.NoError(t, d.OnStart("bitcoin", 0))
	require.NoError(t, d.OnBlock(0, sampleBlock()))
	require.NoError(t, d.OnBlock(1, sampleBlock()))
	require.NoError(t, d.OnBlock(2, sampleBlock()))
	require.NoError(t, d.OnComplete(nil))

	require.Equal(t, 2, d.Result().FinalHeight)
}

func TestCSVDumperOnCompletePreservesUpstreamError(t *testing.T) {
	dir := t.TempDir()
	d := &CSVDumper{OutputDir: dir, Profile: coin.Bitcoin}

	require.NoError(t, d.OnStart("bitcoin", 0))
	upstreamErr := errors.New("truncated block")
	err := d.OnComplete(upstreamErr)
	require.Equal(t, upstreamErr, err)
}
