package domain

// fixedpoint.go: aritmética entera con overflow explícito.
//
// Los montos son uint64 en unidades base (lamports). Los productos intermedios
// se hacen en 256 bits para que amount × totalPool no desborde antes de dividir.

import (
	"fmt"

	"github.com/holiman/uint256"
)

// BpsDenominator es el divisor de los basis points (10 000 bps = 100%).
const BpsDenominator = 10_000

// AddAmount suma dos montos; falla con ErrMathOverflow si no cabe en uint64.
func AddAmount(a, b uint64) (uint64, error) {
	z := new(uint256.Int).Add(uint256.NewInt(a), uint256.NewInt(b))
	if !z.IsUint64() {
		return 0, fmt.Errorf("%w: %d + %d", ErrMathOverflow, a, b)
	}
	return z.Uint64(), nil
}

// SubAmount resta b de a; falla si el resultado sería negativo.
func SubAmount(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d", ErrMathOverflow, a, b)
	}
	return a - b, nil
}

// MulAmount multiplica un monto por un factor entero.
func MulAmount(a, b uint64) (uint64, error) {
	z, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !z.IsUint64() {
		return 0, fmt.Errorf("%w: %d * %d", ErrMathOverflow, a, b)
	}
	return z.Uint64(), nil
}

// MulDiv calcula floor(a × b / d) con el producto en 256 bits.
// Es la operación base de payouts y porcentajes.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, fmt.Errorf("%w: division by zero", ErrMathOverflow)
	}
	z, overflow := new(uint256.Int).MulDivOverflow(uint256.NewInt(a), uint256.NewInt(b), uint256.NewInt(d))
	if overflow || !z.IsUint64() {
		return 0, fmt.Errorf("%w: %d * %d / %d", ErrMathOverflow, a, b, d)
	}
	return z.Uint64(), nil
}

// ApplyBps devuelve floor(amount × bps / 10 000).
func ApplyBps(amount, bps uint64) (uint64, error) {
	return MulDiv(amount, bps, BpsDenominator)
}

// Percent devuelve floor(part × 100 / total), o 0 si total es 0.
func Percent(part, total uint64) uint64 {
	if total == 0 {
		return 0
	}
	p, err := MulDiv(part, 100, total)
	if err != nil {
		return 0
	}
	return p
}

// SumAmounts suma una lista de montos con overflow explícito.
func SumAmounts(amounts []uint64) (uint64, error) {
	var total uint64
	for _, a := range amounts {
		var err error
		if total, err = AddAmount(total, a); err != nil {
			return 0, err
		}
	}
	return total, nil
}
