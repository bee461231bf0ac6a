package coin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	p, ok := ByName("btc")
	require.True(t, ok)
	require.Equal(t, Bitcoin, p)

	_, ok = ByName("dogecoin")
	require.False(t, ok)
}

func TestParamsCarriesVersionBytes(t *testing.T) {
	params := Litecoin.Params()
	require.Equal(t, Litecoin.P2PKHVersion, params.PubKeyHashAddrID)
	require.Equal(t, Litecoin.P2SHVersion, params.ScriptHashAddrID)
	require.Equal(t, Litecoin.Bech32HRP, params.Bech32HRPSegwit)
}
