package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

var (
	decOne       = decimal.NewFromInt(1)
	decTwo       = decimal.NewFromInt(2)
	decBpsDenom  = decimal.NewFromInt(BpsDenominator)
	decBaseRate  = decimal.NewFromInt(BaseCommissionBps).Div(decBpsDenom)
	decLateRate  = decimal.NewFromInt(LateCommissionBps).Div(decBpsDenom)
	decEarlyFrac = decimal.NewFromInt(EarlyBetThreshold).Div(decimal.NewFromInt(100))
)

// ElapsedFraction devuelve qué parte del mercado transcurrió en ts, acotada a [0, 1].
func ElapsedFraction(ts, start, end time.Time) decimal.Decimal {
	total := end.Sub(start)
	if total <= 0 {
		return decOne
	}
	elapsed := ts.Sub(start)
	if elapsed <= 0 {
		return decimal.Zero
	}
	if elapsed >= total {
		return decOne
	}
	return decimal.NewFromInt(int64(elapsed)).Div(decimal.NewFromInt(int64(total)))
}

// CommissionRate devuelve la tasa (fracción, no bps) para una fracción transcurrida e.
//
//	linear:      base × (1 + e)
//	exponential: base × 2^(2e)
//	logarithmic: base × (1 + ln(1 + e))
//	tiered:      base si e < 33%, late (50 bps) en otro caso
//
// La tasa siempre está entre 25 y 100 bps.
func CommissionRate(e decimal.Decimal, curve CommissionCurve) decimal.Decimal {
	switch curve {
	case CurveExponential:
		factor, err := decTwo.PowWithPrecision(decTwo.Mul(e), 16)
		if err != nil {
			factor = decOne
		}
		return decBaseRate.Mul(factor)
	case CurveLogarithmic:
		ln, err := decOne.Add(e).Ln(16)
		if err != nil {
			ln = decimal.Zero
		}
		return decBaseRate.Mul(decOne.Add(ln))
	case CurveTiered:
		if e.LessThan(decEarlyFrac) {
			return decBaseRate
		}
		return decLateRate
	default:
		return decBaseRate.Mul(decOne.Add(e))
	}
}

// Commission calcula la comisión de una apuesta de monto gross realizada en ts.
// El resultado es floor(gross × tasa) y siempre es menor que gross, así que
// el monto neto de una apuesta aceptada nunca es 0.
func Commission(gross uint64, ts, start, end time.Time, curve CommissionCurve) uint64 {
	if gross == 0 {
		return 0
	}
	rate := CommissionRate(ElapsedFraction(ts, start, end), curve)
	fee := amountToDecimal(gross).Mul(rate).Floor()
	c := decimalToAmount(fee)
	if c >= gross {
		return gross - 1
	}
	return c
}

// amountToDecimal convierte un monto uint64 sin perder precisión por encima de MaxInt64.
func amountToDecimal(a uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(a), 0)
}

// decimalToAmount trunca un decimal no negativo a uint64.
func decimalToAmount(d decimal.Decimal) uint64 {
	if d.Sign() <= 0 {
		return 0
	}
	bi := d.Floor().BigInt()
	if !bi.IsUint64() {
		return ^uint64(0)
	}
	return bi.Uint64()
}
