package script

import (
	"testing"

	"github.com/blockparser/blockparser/pkg/coin"
	"github.com/stretchr/testify/require"
)

func TestAddressP2PKHStable(t *testing.T) {
	scr := []byte{0x76, 0xa9, 0x14}
	scr = append(scr, make([]byte, 20)...)
	scr = append(scr, 0x88, 0xac)

	a1 := Address(scr, coin.Bitcoin)
	a2 := Address(scr, coin.Bitcoin)
	require.NotEmpty(t, a1)
	require.Equal(t, a1, a2, "decoding the same output twice must yield identical addresses")
}

func TestAddressP2WPKHRequiresSegwit(t *testing.T) {
	scr := append([]byte{0x00, 0x14}, make([]byte, 20)...)

	nonSegwit := coin.Bitcoin
	nonSegwit.SegwitEnabled = false
	require.Empty(t, Address(scr, nonSegwit))

	require.NotEmpty(t, Address(scr, coin.Bitcoin))
}

func TestAddressOpReturnIsEmpty(t *testing.T) {
	scr := []byte{0x6a, 0x04, 'd', 'a', 't', 'a'}
	require.Empty(t, Address(scr, coin.Bitcoin))
}
