// Package verify implements the two opt-in structural checks a block can
// be held to once decoded: that its header's merkle root matches its own
// transactions, and that its header's prev-hash links to the parent the
// chain index resolved for it.
package verify

import (
	"fmt"

	"github.com/blockparser/blockparser/pkg/chain"
	"github.com/blockparser/blockparser/pkg/digest"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Kind distinguishes the two failure modes this package can report.
type Kind string

const (
	MerkleMismatch    Kind = "merkle_mismatch"
	ChainLinkMismatch Kind = "chain_link_mismatch"
)

// Error is returned by Block when a check fails.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Block checks b's merkle root against its own transactions and, when
// expectedPrevHash is non-zero, checks that b's header links to it.
// Pass a zero chainhash.Hash for expectedPrevHash to skip the chain-link
// check (e.g. for genesis, whose PrevHash is legitimately all-zero).
func Block(b *chain.Block, expectedPrevHash chainhash.Hash) error {
	txids := make([]chainhash.Hash, len(b.Transactions))
	for i, tx := range b.Transactions {
		txids[i] = tx.Txid
	}
	got := digest.MerkleRoot(txids)
	if got != b.Header.MerkleRoot {
		return &Error{
			Kind: MerkleMismatch,
			Msg:  fmt.Sprintf("block %s: computed merkle root %s, header says %s", b.Hash(), got, b.Header.MerkleRoot),
		}
	}

	if expectedPrevHash != (chainhash.Hash{}) && b.Header.PrevHash != expectedPrevHash {
		return &Error{
			Kind: ChainLinkMismatch,
			Msg:  fmt.Sprintf("block %s: header prev hash %s does not match resolved parent %s", b.Hash(), b.Header.PrevHash, expectedPrevHash),
		}
	}

	return nil
}
