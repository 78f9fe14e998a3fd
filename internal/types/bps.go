package types

import sdkmath "cosmossdk.io/math"

// BpsDenominator is the basis-point scale used for every proportional split.
const BpsDenominator = 10_000

// BpsDenom is BpsDenominator as a math.Int, for full-precision bps math.
var BpsDenom = sdkmath.NewInt(BpsDenominator)

// ApplyBps computes amount * bps / 10000 with the multiplication performed
// strictly before the division. math.Int is big-int backed, so the
// intermediate product never overflows and small operands never lose the
// numerator to early truncation.
func ApplyBps(amount sdkmath.Int, bps uint16) sdkmath.Int {
	return amount.Mul(sdkmath.NewInt(int64(bps))).Quo(BpsDenom)
}
