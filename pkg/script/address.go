package script

import (
	"github.com/blockparser/blockparser/pkg/coin"
	"github.com/btcsuite/btcd/btcutil"
)

// Address derives the address string for a scriptPubKey given the coin
// whose address-version bytes and bech32 HRP should be used. Returns empty
// when the script's Type carries no address (OP_RETURN, P2PK, P2MS, and
// non-standard all classify fine but have no single-address encoding in
// this implementation; P2PK/P2MS addresses are a wallet-software convention
// this parser does not invent).
func Address(scriptPubKey []byte, profile coin.Profile) string {
	typ := Classify(scriptPubKey)
	params := profile.Params()

	var addr btcutil.Address
	var err error

	switch typ {
	case P2PKH:
		addr, err = btcutil.NewAddressPubKeyHash(scriptPubKey[3:23], params)
	case P2SH:
		addr, err = btcutil.NewAddressScriptHash(scriptPubKey[2:22], params)
	case P2WPKH:
		if !profile.SegwitEnabled {
			return ""
		}
		addr, err = btcutil.NewAddressWitnessPubKeyHash(scriptPubKey[2:22], params)
	case P2WSH:
		if !profile.SegwitEnabled {
			return ""
		}
		addr, err = btcutil.NewAddressWitnessScriptHash(scriptPubKey[2:34], params)
	case P2TR:
		if !profile.SegwitEnabled {
			return ""
		}
		addr, err = btcutil.NewAddressTaproot(scriptPubKey[2:34], params)
	default:
		return ""
	}

	if err != nil {
		return ""
	}
	return addr.EncodeAddress()
}
