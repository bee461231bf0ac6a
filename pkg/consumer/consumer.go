// Package consumer defines the contract every block sink implements:
// OnStart once, OnBlock for every block in height order, OnComplete once.
// A Consumer is always driven from a single goroutine — dispatch owns
// reordering blocks into height order before they ever reach one — so
// implementations never need their own locking.
package consumer

import (
	"fmt"

	"github.com/blockparser/blockparser/pkg/chain"
)

// Consumer receives the decoded chain in height order. Implementations
// must not retain a Block or its byte slices (ScriptSig, PkScript, Witness
// elements) past the OnBlock call that delivered them. Those slices are
// copied out of the block file by the transaction decoder, so they do not
// alias the memory-mapped region dispatch unmaps after each file.
type Consumer interface {
	// OnStart is called once before the first OnBlock, with the coin name
	// and starting height the run covers.
	OnStart(coinName string, startHeight int) error
	// OnBlock is called once per block, strictly in ascending height order.
	OnBlock(height int, block *chain.Block) error
	// OnComplete is called once after the last OnBlock, successful or not.
	// err is the first error the run failed with, nil on a clean finish.
	OnComplete(err error) error
}

// Error wraps a failure raised by a Consumer, identifying which one and at
// what height, so dispatch's first-error cancellation can report something
// actionable instead of a bare wrapped error.
type Error struct {
	Consumer string
	Height   int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("consumer %q at height %d: %v", e.Consumer, e.Height, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Summary is returned to the caller once a run finishes, successful or
// not: how far it actually got and whatever error ended it early.
type Summary struct {
	Coin          string
	StartHeight   int
	BlocksApplied int
	Err           error
}
