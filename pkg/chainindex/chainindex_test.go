package chainindex

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func hashOf(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func TestSelectLongestChainPicksLongerOverShorter(t *testing.T) {
	genesis := hashOf(0)
	a1, a2 := hashOf(1), hashOf(2) // main chain: genesis -> a1 -> a2
	b1 := hashOf(3)                // stale fork: genesis -> b1

	table := map[chainhash.Hash]Entry{
		genesis: {Bits: 0x207fffff},
		a1:      {PrevHash: genesis, Bits: 0x207fffff},
		a2:      {PrevHash: a1, Bits: 0x207fffff},
		b1:      {PrevHash: genesis, Bits: 0x207fffff},
	}

	chain, err := SelectLongestChain(table, genesis)
	require.NoError(t, err)
	require.Equal(t, []chainhash.Hash{genesis, a1, a2}, chain)
}

func TestSelectLongestChainTieBreaksOnHash(t *testing.T) {
	genesis := hashOf(0)
	tipLow := hashOf(0x01)
	tipHigh := hashOf(0xff)

	table := map[chainhash.Hash]Entry{
		genesis: {Bits: 0x207fffff},
		tipLow:  {PrevHash: genesis, Bits: 0x207fffff},
		tipHigh: {PrevHash: genesis, Bits: 0x207fffff},
	}

	chain, err := SelectLongestChain(table, genesis)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	// chainhash.Hash.String() reverses byte order for display, so the tip
	// with the lexicographically greatest *displayed* hash wins.
	winner := chain[1]
	require.Equal(t, tipHigh, winner)
}

func TestSelectLongestChainNoTips(t *testing.T) {
	genesis := hashOf(0)
	a := hashOf(1)
	b := hashOf(2)
	// a cycle: no hash is un-referenced, so there are no tip candidates.
	table := map[chainhash.Hash]Entry{
		a: {PrevHash: b},
		b: {PrevHash: a},
	}
	_, err := SelectLongestChain(table, genesis)
	require.Error(t, err)
}

func TestSelectLongestChainOrphanedTipSkipped(t *testing.T) {
	genesis := hashOf(0)
	good := hashOf(1)
	orphanTip := hashOf(2) // references a prevhash with no entry

	table := map[chainhash.Hash]Entry{
		genesis:   {Bits: 0x207fffff},
		good:      {PrevHash: genesis, Bits: 0x207fffff},
		orphanTip: {PrevHash: hashOf(0x99), Bits: 0x207fffff},
	}

	chain, err := SelectLongestChain(table, genesis)
	require.NoError(t, err)
	require.Equal(t, []chainhash.Hash{genesis, good}, chain)
}

func TestBlockWorkIncreasesWithDifficulty(t *testing.T) {
	easy := blockWork(0x207fffff) // regtest-style minimum difficulty
	hard := blockWork(0x1d00ffff) // mainnet genesis difficulty
	require.True(t, hard.Cmp(easy) > 0)
}
