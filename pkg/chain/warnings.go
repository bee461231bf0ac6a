package chain

import "github.com/blockparser/blockparser/pkg/script"

// dustThreshold is the satoshi value below which a non-OP_RETURN output is
// considered uneconomical to spend.
const dustThreshold = 546

// highFeeSats and highFeeRate are the thresholds GenerateWarnings flags a
// transaction's fee against.
const (
	highFeeSats = 1_000_000
	highFeeRate = 200.0
)

// GenerateWarnings derives a transaction's warning codes from its fee and
// outputs. feeSats/feeRate are computed by the caller (fee requires the
// spent outputs' values, which this package doesn't track).
func GenerateWarnings(tx Transaction, feeSats int64, feeRate float64) []string {
	var warnings []string

	if feeSats > highFeeSats || feeRate > highFeeRate {
		warnings = append(warnings, "HIGH_FEE")
	}

	for _, out := range tx.TxOut {
		if script.Classify(out.PkScript) != script.OpReturn && out.Value < dustThreshold {
			warnings = append(warnings, "DUST_OUTPUT")
			break
		}
	}

	for _, out := range tx.TxOut {
		if script.Classify(out.PkScript) == script.NonStandard {
			warnings = append(warnings, "UNKNOWN_OUTPUT_SCRIPT")
			break
		}
	}

	if IsRBFSignaling(tx) {
		warnings = append(warnings, "RBF_SIGNALING")
	}

	return warnings
}
