package verify

import (
	"errors"
	"testing"

	"github.com/blockparser/blockparser/pkg/chain"
	"github.com/blockparser/blockparser/pkg/digest"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func blockWithTxids(txids []chainhash.Hash, merkleRoot chainhash.Hash, prevHash chainhash.Hash) *chain.Block {
	txs := make([]chain.Transaction, len(txids))
	for i, id := range txids {
		txs[i] = chain.Transaction{Txid: id}
	}
	return &chain.Block{
		Header: chain.BlockHeader{
			MerkleRoot: merkleRoot,
			PrevHash:   prevHash,
		},
		Transactions: txs,
	}
}

func TestBlockPassesWhenConsistent(t *testing.T) {
	txids := []chainhash.Hash{digest.DoubleSHA256([]byte("tx1")), digest.DoubleSHA256([]byte("tx2"))}
	root := digest.MerkleRoot(txids)
	prev := digest.DoubleSHA256([]byte("parent"))

	b := blockWithTxids(txids, root, prev)
	require.NoError(t, Block(b, prev))
}

func TestBlockDetectsMerkleMismatch(t *testing.T) {
	txids := []chainhash.Hash{digest.DoubleSHA256([]byte("tx1"))}
	wrongRoot := digest.DoubleSHA256([]byte("not-the-root"))

	b := blockWithTxids(txids, wrongRoot, chainhash.Hash{})
	err := Block(b, chainhash.Hash{})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	require.Equal(t, MerkleMismatch, verr.Kind)
}

func TestBlockDetectsChainLinkMismatch(t *testing.T) {
	txids := []chainhash.Hash{digest.DoubleSHA256([]byte("tx1"))}
	root := digest.MerkleRoot(txids)
	actualPrev := digest.DoubleSHA256([]byte("actual-parent"))
	expectedPrev := digest.DoubleSHA256([]byte("different-parent"))

	b := blockWithTxids(txids, root, actualPrev)
	err := Block(b, expectedPrev)
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	require.Equal(t, ChainLinkMismatch, verr.Kind)
}

func TestBlockSkipsChainLinkCheckForZeroExpectedPrev(t *testing.T) {
	txids := []chainhash.Hash{digest.DoubleSHA256([]byte("genesis-coinbase"))}
	root := digest.MerkleRoot(txids)

	b := blockWithTxids(txids, root, digest.DoubleSHA256([]byte("whatever")))
	require.NoError(t, Block(b, chainhash.Hash{}))
}
