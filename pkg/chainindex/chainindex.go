// Package chainindex builds and persists the canonical chain: it scans
// every header across every blk*.dat file, resolves the single longest
// chain out of however many competing tips the data directory holds (stale
// side-chains included), and persists that chain with an index watermark.
// Nothing in this module resumes dispatch from a persisted index: each run
// rebuilds the header table and re-selects the chain from scratch.
package chainindex

import (
	"fmt"
	"math/big"

	"github.com/blockparser/blockparser/pkg/blockfile"
	"github.com/blockparser/blockparser/pkg/coin"
	"github.com/blockparser/blockparser/pkg/cursor"
	"github.com/blockparser/blockparser/pkg/digest"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChainStorageError is returned for failures building or persisting the
// chain index: no tip candidate at all, no tip with a path to genesis, a
// corrupt persisted file, or an I/O failure during the atomic write.
type ChainStorageError struct {
	Msg string
}

func (e *ChainStorageError) Error() string { return "chain storage: " + e.Msg }

// Entry is everything the index needs to know about one on-disk block
// header without re-reading its transactions.
type Entry struct {
	PrevHash chainhash.Hash
	Bits     uint32
	FileID   int
	Offset   int64
	Size     uint32
}

// BuildHeaderTable scans every frame in every file, decoding only the
// 80-byte header of each, and returns a hash -> Entry table covering every
// block on disk regardless of which chain it ultimately belongs to.
func BuildHeaderTable(files []blockfile.File, profile coin.Profile, xorKey []byte) (map[chainhash.Hash]Entry, error) {
	table := make(map[chainhash.Hash]Entry)

	for _, f := range files {
		region, err := blockfile.Open(f.Path, xorKey)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Path, err)
		}

		for _, fr := range region.Frames(profile.Magic) {
			if len(fr.Raw) < 80 {
				continue
			}
			cur := cursor.New(fr.Raw[:80])
			if err := cur.Advance(4); err != nil {
				continue
			}
			prevHashBytes, err := cur.ReadFixed(32)
			if err != nil {
				continue
			}
			_, _ = cur.ReadFixed(32) // merkle root, unused for indexing
			_, _ = cur.ReadU32LE()   // time, unused for indexing
			bits, err := readBitsAt(fr.Raw)
			if err != nil {
				continue
			}

			hash := digest.DoubleSHA256(fr.Raw[:80])
			var prevHash chainhash.Hash
			copy(prevHash[:], prevHashBytes)

			table[hash] = Entry{
				PrevHash: prevHash,
				Bits:     bits,
				FileID:   f.ID,
				Offset:   fr.Offset,
				Size:     uint32(len(fr.Raw)),
			}
		}

		if err := region.Close(); err != nil {
			return nil, fmt.Errorf("close %s: %w", f.Path, err)
		}
	}

	return table, nil
}

// readBitsAt reads the bits field (offset 72, 4 bytes) directly out of the
// raw 80-byte header, since the work computation needs it independent of
// BuildHeaderTable's own cursor position.
func readBitsAt(raw []byte) (uint32, error) {
	if len(raw) < 80 {
		return 0, fmt.Errorf("header too short")
	}
	return uint32(raw[72]) | uint32(raw[73])<<8 | uint32(raw[74])<<16 | uint32(raw[75])<<24, nil
}

// blockWork converts a compact "bits" difficulty target into the amount of
// expected SHA-256 work a block representing it contributes to its chain:
// 2^256 / (target+1), the same quantity Bitcoin Core sums to compare
// chains of unequal length but comparable (or harder) per-block difficulty.
func blockWork(bits uint32) *big.Int {
	target := compactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	denom := new(big.Int).Add(target, big.NewInt(1))
	numerator := new(big.Int).Lsh(big.NewInt(1), 256)
	return new(big.Int).Div(numerator, denom)
}

// compactToBig expands Bitcoin's compact (a.k.a. "nBits") difficulty
// representation into a big.Int target.
func compactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	exponent := uint(compact >> 24)

	var target big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		target.SetInt64(int64(mantissa))
	} else {
		target.SetInt64(int64(mantissa))
		target.Lsh(&target, 8*(exponent-3))
	}
	if compact&0x00800000 != 0 {
		target.Neg(&target)
	}
	return &target
}

// SelectLongestChain resolves the single canonical chain out of table:
// every hash never referenced as someone else's PrevHash is a tip
// candidate; each candidate's chain is walked back to genesis, and the
// candidate with the greatest cumulative work wins, ties broken by the
// lexicographically greatest tip hash (encoded as it displays, i.e. the
// reversed byte order chainhash.Hash.String() produces) so the result is
// deterministic across runs regardless of table iteration order.
func SelectLongestChain(table map[chainhash.Hash]Entry, genesisHash chainhash.Hash) ([]chainhash.Hash, error) {
	referenced := make(map[chainhash.Hash]bool, len(table))
	for _, e := range table {
		referenced[e.PrevHash] = true
	}

	var tips []chainhash.Hash
	for h := range table {
		if !referenced[h] {
			tips = append(tips, h)
		}
	}
	if len(tips) == 0 {
		return nil, &ChainStorageError{Msg: "no tip candidates found in header table"}
	}

	var bestChain []chainhash.Hash
	var bestWork *big.Int

	for _, tip := range tips {
		chain, work, err := walkToGenesis(table, tip, genesisHash)
		if err != nil {
			continue // orphaned tip with no path to genesis: not a candidate
		}
		switch {
		case bestWork == nil:
			bestChain, bestWork = chain, work
		case work.Cmp(bestWork) > 0:
			bestChain, bestWork = chain, work
		case work.Cmp(bestWork) == 0 && tip.String() > bestChain[len(bestChain)-1].String():
			bestChain, bestWork = chain, work
		}
	}

	if bestChain == nil {
		return nil, &ChainStorageError{Msg: "every tip candidate failed to resolve to genesis"}
	}
	return bestChain, nil
}

// walkToGenesis follows PrevHash links from tip back to genesisHash,
// returning the chain in height order (genesis first) and its total work.
func walkToGenesis(table map[chainhash.Hash]Entry, tip, genesisHash chainhash.Hash) ([]chainhash.Hash, *big.Int, error) {
	var reversed []chainhash.Hash
	totalWork := big.NewInt(0)

	cur := tip
	for {
		entry, ok := table[cur]
		if !ok {
			return nil, nil, fmt.Errorf("hash %s has no header entry", cur)
		}
		reversed = append(reversed, cur)
		totalWork.Add(totalWork, blockWork(entry.Bits))

		if cur == genesisHash {
			break
		}
		if entry.PrevHash == (chainhash.Hash{}) {
			return nil, nil, fmt.Errorf("chain from %s terminates before reaching genesis", tip)
		}
		cur = entry.PrevHash
	}

	chain := make([]chainhash.Hash, len(reversed))
	for i, h := range reversed {
		chain[len(reversed)-1-i] = h
	}
	return chain, totalWork, nil
}
