package coordinator

import "github.com/holiman/uint256"

// bpOf computes amount * bp / 10,000 using 256-bit intermediate
// arithmetic so large fee/reward pools never overflow a uint64 multiply,
// grounded on go-ethereum's use of holiman/uint256 for exact fixed-point
// fee math (core EIP-1559 base fee and gas-price computations follow the
// same widen-multiply-narrow shape).
func bpOf(amount, bp uint64) uint64 {
	a := uint256.NewInt(amount)
	b := uint256.NewInt(bp)
	a.Mul(a, b)
	d := uint256.NewInt(BasisPointsDenominator)
	a.Div(a, d)
	return a.Uint64()
}
