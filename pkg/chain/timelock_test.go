package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocktimeType(t *testing.T) {
	require.Equal(t, "none", LocktimeType(0))
	require.Equal(t, "block_height", LocktimeType(500000))
	require.Equal(t, "unix_timestamp", LocktimeType(500000001))
}

func TestParseRelativeTimelockDisabled(t *testing.T) {
	enabled, _, _ := ParseRelativeTimelock(1 << 31)
	require.False(t, enabled)

	enabled, _, _ = ParseRelativeTimelock(0xfffffffe)
	require.False(t, enabled)
}

func TestParseRelativeTimelockBlocks(t *testing.T) {
	enabled, kind, value := ParseRelativeTimelock(144)
	require.True(t, enabled)
	require.Equal(t, "blocks", kind)
	require.Equal(t, uint32(144), value)
}

func TestParseRelativeTimelockTime(t *testing.T) {
	enabled, kind, value := ParseRelativeTimelock((1 << 22) | 2)
	require.True(t, enabled)
	require.Equal(t, "time", kind)
	require.Equal(t, uint32(1024), value) // 2 * 512
}

func TestIsRBFSignaling(t *testing.T) {
	tx := Transaction{TxIn: []TxIn{{Sequence: 0xfffffffd}}}
	require.True(t, IsRBFSignaling(tx))

	tx = Transaction{TxIn: []TxIn{{Sequence: 0xffffffff}}}
	require.False(t, IsRBFSignaling(tx))
}
