package chainindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// persisted is the on-disk shape of a resolved chain index. Index is the
// watermark Save was given; Load returns it, but no caller in this module
// resumes from it (cmd/blockparser saves Index == len(Hashes) before
// dispatching and always dispatches the full requested range). HashesLen is
// written alongside Index as the tail of the file so an external tool can
// tell a complete write from a partial one without trusting len(Hashes)
// from a possibly-truncated JSON array: a well-formed file always has
// HashesLen == len(Hashes), and the invariant Index <= HashesLen must hold
// on every load — a file where either doesn't hold is corrupt and is
// rejected rather than silently clamped.
type persisted struct {
	Coin      string   `json:"coin"`
	Hashes    []string `json:"hashes"`
	HashesLen int      `json:"hashes_len"`
	Index     int      `json:"index"`
}

// Save writes chain and the index watermark to path, using a
// write-temp-then-rename so a crash mid-write never leaves a half-written
// file for the next run to trip over.
func Save(path string, coinName string, chain []chainhash.Hash, index int) error {
	if index < 0 || index > len(chain) {
		return &ChainStorageError{Msg: fmt.Sprintf("refusing to persist index %d against %d hashes", index, len(chain))}
	}

	hashes := make([]string, len(chain))
	for i, h := range chain {
		hashes[i] = h.String()
	}

	data, err := json.MarshalIndent(persisted{
		Coin:      coinName,
		Hashes:    hashes,
		HashesLen: len(hashes),
		Index:     index,
	}, "", "  ")
	if err != nil {
		return &ChainStorageError{Msg: "marshal chain index: " + err.Error()}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".chainindex-*.tmp")
	if err != nil {
		return &ChainStorageError{Msg: "create temp file: " + err.Error()}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &ChainStorageError{Msg: "write temp file: " + err.Error()}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &ChainStorageError{Msg: "sync temp file: " + err.Error()}
	}
	if err := tmp.Close(); err != nil {
		return &ChainStorageError{Msg: "close temp file: " + err.Error()}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &ChainStorageError{Msg: "rename temp file into place: " + err.Error()}
	}
	return nil
}

// Load reads a previously-persisted chain index. A missing file is not an
// error: it reports ok=false so the caller knows to build the index from
// scratch.
func Load(path string) (coinName string, chain []chainhash.Hash, index int, ok bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil, 0, false, nil
	}
	if err != nil {
		return "", nil, 0, false, &ChainStorageError{Msg: "read chain index: " + err.Error()}
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return "", nil, 0, false, &ChainStorageError{Msg: "corrupt chain index file: " + err.Error()}
	}
	if p.HashesLen != len(p.Hashes) {
		return "", nil, 0, false, &ChainStorageError{Msg: fmt.Sprintf("corrupt chain index: hashes_len %d does not match %d hashes (partial write?)", p.HashesLen, len(p.Hashes))}
	}
	if p.Index < 0 || p.Index > len(p.Hashes) {
		return "", nil, 0, false, &ChainStorageError{Msg: fmt.Sprintf("corrupt chain index: index %d exceeds %d hashes", p.Index, len(p.Hashes))}
	}

	chain = make([]chainhash.Hash, len(p.Hashes))
	for i, s := range p.Hashes {
		h, err := chainhash.NewHashFromStr(s)
		if err != nil {
			return "", nil, 0, false, &ChainStorageError{Msg: "corrupt chain index hash " + s + ": " + err.Error()}
		}
		chain[i] = *h
	}
	return p.Coin, chain, p.Index, true, nil
}
