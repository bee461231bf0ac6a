// Package chain holds the core data model — BlockHeader, Block,
// Transaction, TxIn, TxOut — and the decoder that turns raw framed block
// bytes into them.
package chain

import (
	"github.com/blockparser/blockparser/pkg/digest"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BlockHeader is the 80-byte block header. Raw retains the exact on-disk
// bytes so Hash() (and verification) never has to re-serialize the parsed
// fields.
type BlockHeader struct {
	Version    int32
	PrevHash   chainhash.Hash
	MerkleRoot chainhash.Hash
	Time       uint32
	Bits       uint32
	Nonce      uint32
	Raw        [80]byte
}

// Hash is the double-SHA-256 of the raw header bytes, compared/stored in
// wire (little-endian) order.
func (h BlockHeader) Hash() chainhash.Hash {
	return digest.DoubleSHA256(h.Raw[:])
}

// Block is a single fully-decoded block plus the framing metadata recorded
// when it was read off disk.
type Block struct {
	Header       BlockHeader
	FileID       int
	Offset       int64
	Size         uint32
	Transactions []Transaction
}

// Hash is shorthand for Header.Hash().
func (b *Block) Hash() chainhash.Hash { return b.Header.Hash() }

// TxOut is a transaction output.
type TxOut struct {
	Value    uint64
	PkScript []byte
}

// TxIn is a transaction input, with an attached witness stack when the
// parent transaction is segwit.
type TxIn struct {
	PrevTxid  chainhash.Hash
	PrevIndex uint32
	ScriptSig []byte
	Sequence  uint32
	Witness   [][]byte
}

// coinbasePrevIndex is the sentinel previous-output index (0xFFFFFFFF) that
// marks a coinbase input; paired with a zero PrevTxid.
const coinbasePrevIndex = 0xFFFFFFFF

// IsCoinbase reports whether in is the null-outpoint sentinel input that
// every block's first transaction carries.
func (in TxIn) IsCoinbase() bool {
	return in.PrevIndex == coinbasePrevIndex && in.PrevTxid == (chainhash.Hash{})
}

// Transaction is a fully-decoded transaction.
type Transaction struct {
	Version     int32
	TxIn        []TxIn
	TxOut       []TxOut
	LockTime    uint32
	HasWitness  bool
	Txid        chainhash.Hash
	Wtxid       chainhash.Hash // equal to Txid when !HasWitness
	SerializeSz int            // total bytes including witness
	BaseSz      int            // bytes excluding witness (for weight/vbytes)
}

// IsCoinbase reports whether tx is a block's coinbase transaction: exactly
// one input, and that input is the null-outpoint sentinel.
func (tx Transaction) IsCoinbase() bool {
	return len(tx.TxIn) == 1 && tx.TxIn[0].IsCoinbase()
}

// Weight is the BIP141 transaction weight: 3x the non-witness size plus the
// total serialized size.
func (tx Transaction) Weight() int {
	return tx.BaseSz*3 + tx.SerializeSz
}

// VBytes is the weight expressed in virtual bytes, rounding up.
func (tx Transaction) VBytes() int {
	return (tx.Weight() + 3) / 4
}

// CoinbaseHeight extracts the block height a BIP34-compliant coinbase
// scriptSig commits to: a minimal push of a little-endian integer as the
// very first element. Returns 0 when the script does not start with a push
// of 1 to 8 bytes that fits in scriptSig. It cannot tell a pre-BIP34
// coinbase from a BIP34 one: a pre-BIP34 scriptSig that starts with such a
// push decodes to whatever integer those bytes hold.
func CoinbaseHeight(scriptSig []byte) int64 {
	if len(scriptSig) < 2 {
		return 0
	}
	pushLen := int(scriptSig[0])
	if pushLen < 1 || pushLen > 8 || 1+pushLen > len(scriptSig) {
		return 0
	}
	var height int64
	for i, b := range scriptSig[1 : 1+pushLen] {
		height |= int64(b) << (8 * i)
	}
	return height
}
