package chain

// LocktimeType classifies a transaction's nLockTime field.
func LocktimeType(locktime uint32) string {
	switch {
	case locktime == 0:
		return "none"
	case locktime < 500000000:
		return "block_height"
	default:
		return "unix_timestamp"
	}
}

// ParseRelativeTimelock decodes a BIP68 relative timelock from an input's
// sequence number.
func ParseRelativeTimelock(sequence uint32) (enabled bool, kind string, value uint32) {
	if sequence&(1<<31) != 0 {
		return false, "", 0
	}
	if sequence >= 0xfffffffe {
		return false, "", 0
	}
	if sequence&(1<<22) != 0 {
		return true, "time", (sequence & 0xffff) * 512
	}
	return true, "blocks", sequence & 0xffff
}

// IsRBFSignaling reports whether any input's sequence number signals
// BIP125 replace-by-fee.
func IsRBFSignaling(tx Transaction) bool {
	for _, in := range tx.TxIn {
		if in.Sequence < 0xfffffffe {
			return true
		}
	}
	return false
}
