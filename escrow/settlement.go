package escrow

import "math/big"

// SplitFee divides value between the counterparty payout and the platform
// fee. The fee is floor(value * feePercent / 100); integer division rounds
// the fractional remainder down, so the payout absorbs everything the fee
// does not claim and no value is created or destroyed.
func SplitFee(value *big.Int, feePercent uint64) (payout, fee *big.Int) {
	total := cloneBigInt(value)
	fee = new(big.Int).Mul(total, new(big.Int).SetUint64(feePercent))
	fee.Div(fee, big.NewInt(100))
	payout = new(big.Int).Sub(total, fee)
	return payout, fee
}

// MaxArbiterFee returns the largest arbiter fee permitted for a deposit of
// the supplied amount, floor(amount * 10 / 100).
func MaxArbiterFee(amount *big.Int) *big.Int {
	max := new(big.Int).Mul(cloneBigInt(amount), big.NewInt(MaxArbiterFeePercent))
	return max.Div(max, big.NewInt(100))
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
