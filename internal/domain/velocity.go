package domain

import "time"

// MaxAllowed devuelve el monto máximo que una sola apuesta puede aportar ahora.
//
// Fórmula:
//
//	hours   = floor((end - now) / 1h)
//	allowed = max(totalPool × factor / 100 / hours, MinVelocity)
//
// Con pool vacío o menos de una hora restante el límite es MinVelocity.
// El límite crece con el pool y se afloja a medida que el cierre se aleja.
func MaxAllowed(totalPool uint64, now, end time.Time, limits Limits) uint64 {
	hours := int64(end.Sub(now) / time.Hour)
	if totalPool == 0 || hours <= 0 {
		return limits.MinVelocity
	}
	allowed, err := MulDiv(totalPool, limits.VelocityFactorPct, 100*uint64(hours))
	if err != nil {
		// Solo desborda si el resultado no cabe en uint64: sin límite efectivo.
		return ^uint64(0)
	}
	return max(allowed, limits.MinVelocity)
}
