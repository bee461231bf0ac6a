package chain

import (
	"fmt"

	"github.com/blockparser/blockparser/pkg/coin"
	"github.com/blockparser/blockparser/pkg/cursor"
	"github.com/btcsuite/btcd/wire"
)

// DecodeHeader reads the fixed 80-byte block header off cur.
func DecodeHeader(cur *cursor.Cursor) (BlockHeader, error) {
	raw, err := cur.ReadFixed(80)
	if err != nil {
		return BlockHeader{}, fmt.Errorf("decode header: %w", err)
	}

	sub := cursor.New(raw)
	version, err := sub.ReadI32LE()
	if err != nil {
		return BlockHeader{}, fmt.Errorf("decode header version: %w", err)
	}
	prevHashBytes, err := sub.ReadFixed(32)
	if err != nil {
		return BlockHeader{}, fmt.Errorf("decode header prev hash: %w", err)
	}
	merkleBytes, err := sub.ReadFixed(32)
	if err != nil {
		return BlockHeader{}, fmt.Errorf("decode header merkle root: %w", err)
	}
	timeVal, err := sub.ReadU32LE()
	if err != nil {
		return BlockHeader{}, fmt.Errorf("decode header time: %w", err)
	}
	bits, err := sub.ReadU32LE()
	if err != nil {
		return BlockHeader{}, fmt.Errorf("decode header bits: %w", err)
	}
	nonce, err := sub.ReadU32LE()
	if err != nil {
		return BlockHeader{}, fmt.Errorf("decode header nonce: %w", err)
	}

	hdr := BlockHeader{
		Version: version,
		Time:    timeVal,
		Bits:    bits,
		Nonce:   nonce,
	}
	copy(hdr.PrevHash[:], prevHashBytes)
	copy(hdr.MerkleRoot[:], merkleBytes)
	copy(hdr.Raw[:], raw)
	return hdr, nil
}

// DecodeBlock parses a complete block from raw framed bytes (the payload
// between a blk*.dat frame's magic/size prefix and the next frame — see
// pkg/blockfile), tagging it with the file/offset it was read from.
func DecodeBlock(fileID int, offset int64, raw []byte, profile coin.Profile) (*Block, error) {
	cur := cursor.New(raw)

	hdr, err := DecodeHeader(cur)
	if err != nil {
		return nil, err
	}

	txCount, err := cur.ReadVarInt()
	if err != nil {
		return nil, fmt.Errorf("decode tx count: %w", err)
	}

	txs := make([]Transaction, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx, err := decodeTransaction(cur, profile)
		if err != nil {
			return nil, fmt.Errorf("decode tx %d/%d: %w", i, txCount, err)
		}
		txs = append(txs, tx)
	}

	return &Block{
		Header:       hdr,
		FileID:       fileID,
		Offset:       offset,
		Size:         uint32(len(raw)),
		Transactions: txs,
	}, nil
}

// decodeTransaction hands the cursor's remaining bytes to btcd's wire
// decoder and folds the result back into our own Transaction shape. Coins
// with SegwitEnabled false use DeserializeNoWitness so a legacy scriptSig
// that happens to start with the segwit marker/flag pair is never
// misread as a witness transaction.
func decodeTransaction(cur *cursor.Cursor, profile coin.Profile) (Transaction, error) {
	r := cur.Reader()
	startLen := r.Len()

	var wtx wire.MsgTx
	var err error
	if profile.SegwitEnabled {
		err = wtx.Deserialize(r)
	} else {
		err = wtx.DeserializeNoWitness(r)
	}
	if err != nil {
		cur.SyncFrom(r)
		return Transaction{}, fmt.Errorf("wire decode: %w", err)
	}
	cur.SyncFrom(r)

	serializeSz := startLen - r.Len()
	hasWitness := profile.SegwitEnabled && wtx.HasWitness()

	tx := Transaction{
		Version:     wtx.Version,
		LockTime:    wtx.LockTime,
		HasWitness:  hasWitness,
		Txid:        wtx.TxHash(),
		SerializeSz: serializeSz,
		BaseSz:      wtx.SerializeSizeStripped(),
	}
	if hasWitness {
		tx.Wtxid = wtx.WitnessHash()
	} else {
		tx.Wtxid = tx.Txid
	}

	tx.TxIn = make([]TxIn, len(wtx.TxIn))
	for i, in := range wtx.TxIn {
		var witness [][]byte
		if len(in.Witness) > 0 {
			witness = make([][]byte, len(in.Witness))
			copy(witness, in.Witness)
		}
		tx.TxIn[i] = TxIn{
			PrevTxid:  in.PreviousOutPoint.Hash,
			PrevIndex: in.PreviousOutPoint.Index,
			ScriptSig: in.SignatureScript,
			Sequence:  in.Sequence,
			Witness:   witness,
		}
	}

	tx.TxOut = make([]TxOut, len(wtx.TxOut))
	for i, out := range wtx.TxOut {
		tx.TxOut[i] = TxOut{
			Value:    uint64(out.Value),
			PkScript: out.PkScript,
		}
	}

	return tx, nil
}
