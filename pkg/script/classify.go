// Package script classifies scriptPubKeys into the standard output types,
// disassembles scripts for display, and derives addresses from recognized
// patterns.
package script

import (
	"github.com/btcsuite/btcd/btcec/v2"
)

// Type names a recognized (or unrecognized) scriptPubKey pattern.
type Type string

const (
	P2PK        Type = "p2pk"
	P2PKH       Type = "p2pkh"
	P2SH        Type = "p2sh"
	P2MS        Type = "p2ms"
	P2WPKH      Type = "p2wpkh"
	P2WSH       Type = "p2wsh"
	P2TR        Type = "p2tr"
	OpReturn    Type = "op_return"
	NonStandard Type = "non_standard"
)

// Opcodes relevant to classification (Bitcoin Core script/script.h values).
const (
	opFalse          = 0x00
	op1              = 0x51
	op16             = 0x60
	opReturnByte     = 0x6a
	opDup            = 0x76
	opEqual          = 0x87
	opEqualVerify    = 0x88
	opHash160        = 0xa9
	opCheckSig       = 0xac
	opCheckMultisig  = 0xae
	opPushData1      = 0x4c
	opPushData2      = 0x4d
	opPushData4      = 0x4e
	maxDirectPushLen = 0x4b
)

// element is one decoded script token: either a data push or a bare opcode.
type element struct {
	isPush bool
	data   []byte
	op     byte
}

// toElements decodes script into a flat token list. Returns ok=false when
// the script is malformed (a push claims more bytes than remain) — callers
// treat that as non-standard, not a decode failure, matching spec.md §4.3's
// "classify as non-standard, continue" recovery.
func toElements(scr []byte) ([]element, bool) {
	var elems []element
	i := 0
	for i < len(scr) {
		b := scr[i]
		i++
		switch {
		case b == opFalse:
			elems = append(elems, element{op: b})
		case b >= 0x01 && b <= maxDirectPushLen:
			n := int(b)
			if i+n > len(scr) {
				return nil, false
			}
			elems = append(elems, element{isPush: true, data: scr[i : i+n]})
			i += n
		case b == opPushData1:
			if i >= len(scr) {
				return nil, false
			}
			n := int(scr[i])
			i++
			if i+n > len(scr) {
				return nil, false
			}
			elems = append(elems, element{isPush: true, data: scr[i : i+n]})
			i += n
		case b == opPushData2:
			if i+2 > len(scr) {
				return nil, false
			}
			n := int(scr[i]) | int(scr[i+1])<<8
			i += 2
			if i+n > len(scr) {
				return nil, false
			}
			elems = append(elems, element{isPush: true, data: scr[i : i+n]})
			i += n
		case b == opPushData4:
			if i+4 > len(scr) {
				return nil, false
			}
			n := int(scr[i]) | int(scr[i+1])<<8 | int(scr[i+2])<<16 | int(scr[i+3])<<24
			i += 4
			if i+n > len(scr) {
				return nil, false
			}
			elems = append(elems, element{isPush: true, data: scr[i : i+n]})
			i += n
		default:
			elems = append(elems, element{op: b})
		}
	}
	return elems, true
}

func isSmallInt(e element) (n int, ok bool) {
	if e.isPush || e.op < op1 || e.op > op16 {
		return 0, false
	}
	return int(e.op) - op1 + 1, true
}

func isValidPubkey(data []byte) bool {
	if len(data) != 33 && len(data) != 65 {
		return false
	}
	_, err := btcec.ParsePubKey(data)
	return err == nil
}

// Classify recognizes a scriptPubKey and returns its Type. Recognition
// order follows spec.md §4.3 exactly: P2PK, P2PKH, P2SH, P2MS, P2WPKH,
// P2WSH, P2TR, OP_RETURN, then non-standard. The earliest matching pattern
// wins — in particular a 1-of-1 P2MS script is never mistaken for P2PK
// because P2PK requires a bare pubkey push with no leading OP_1.
func Classify(scriptPubKey []byte) Type {
	if len(scriptPubKey) == 0 {
		return NonStandard
	}

	elems, ok := toElements(scriptPubKey)
	if !ok {
		return NonStandard
	}

	if isP2PK(elems) {
		return P2PK
	}
	if isP2PKH(elems) {
		return P2PKH
	}
	if isP2SH(elems) {
		return P2SH
	}
	if isP2MS(elems) {
		return P2MS
	}
	if isWitnessPush(elems, opFalse, 20) {
		return P2WPKH
	}
	if isWitnessPush(elems, opFalse, 32) {
		return P2WSH
	}
	if isWitnessPush(elems, op1, 32) {
		return P2TR
	}
	if scriptPubKey[0] == opReturnByte {
		return OpReturn
	}
	return NonStandard
}

func isP2PK(elems []element) bool {
	if len(elems) != 2 {
		return false
	}
	return elems[0].isPush && isValidPubkey(elems[0].data) && !elems[1].isPush && elems[1].op == opCheckSig
}

func isP2PKH(elems []element) bool {
	if len(elems) != 5 {
		return false
	}
	return !elems[0].isPush && elems[0].op == opDup &&
		!elems[1].isPush && elems[1].op == opHash160 &&
		elems[2].isPush && len(elems[2].data) == 20 &&
		!elems[3].isPush && elems[3].op == opEqualVerify &&
		!elems[4].isPush && elems[4].op == opCheckSig
}

func isP2SH(elems []element) bool {
	if len(elems) != 3 {
		return false
	}
	return !elems[0].isPush && elems[0].op == opHash160 &&
		elems[1].isPush && len(elems[1].data) == 20 &&
		!elems[2].isPush && elems[2].op == opEqual
}

// isP2MS matches <OP_M> <pubkey>+ <OP_N> OP_CHECKMULTISIG with 1<=M<=N<=3
// and every intervening push a valid 33/65-byte key.
func isP2MS(elems []element) bool {
	if len(elems) < 4 {
		return false
	}
	last := elems[len(elems)-1]
	if last.isPush || last.op != opCheckMultisig {
		return false
	}
	nElem := elems[len(elems)-2]
	n, ok := isSmallInt(nElem)
	if !ok || n < 1 || n > 3 {
		return false
	}
	mElem := elems[0]
	m, ok := isSmallInt(mElem)
	if !ok || m < 1 || m > n {
		return false
	}
	keyElems := elems[1 : len(elems)-2]
	if len(keyElems) != n {
		return false
	}
	for _, k := range keyElems {
		if !k.isPush || !isValidPubkey(k.data) {
			return false
		}
	}
	return true
}

// isWitnessPush matches <witnessVersionOp> <push of exactly size bytes>
// with nothing else.
func isWitnessPush(elems []element, witnessVersionOp byte, size int) bool {
	if len(elems) != 2 {
		return false
	}
	if elems[0].isPush || elems[0].op != witnessVersionOp {
		return false
	}
	return elems[1].isPush && len(elems[1].data) == size
}
