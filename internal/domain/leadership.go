package domain

import (
	"slices"
	"time"
)

// LeadershipTime devuelve cuánto tiempo lideró cada opción durante total,
// medido desde start.
//
// Las apuestas se recorren en orden temporal (empates en orden de inserción).
// Antes de cada apuesta se acredita el tiempo transcurrido al líder vigente:
// la opción con mayor pool acumulado, la de menor índice en caso de empate.
// Sin apuestas procesadas todos los pools empatan en 0, así que la opción 0
// se lleva el tramo previo a la primera apuesta. Tras la última apuesta el
// líder final se queda con el resto hasta total.
//
// Sin apuestas nadie lidera y todas las duraciones son 0. Con al menos una
// apuesta las duraciones suman exactamente total.
func LeadershipTime(bets []Bet, numOptions int, start time.Time, total time.Duration) []time.Duration {
	out := make([]time.Duration, numOptions)
	if numOptions == 0 || total <= 0 {
		return out
	}

	sorted := make([]Bet, 0, len(bets))
	for _, b := range bets {
		if b.Option >= 0 && b.Option < numOptions {
			sorted = append(sorted, b)
		}
	}
	if len(sorted) == 0 {
		return out
	}
	slices.SortStableFunc(sorted, func(a, b Bet) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	pools := make([]uint64, numOptions)
	leader := 0
	var prev time.Duration
	for _, b := range sorted {
		offset := min(max(b.Timestamp.Sub(start), 0), total)
		out[leader] += offset - prev
		prev = offset

		pools[b.Option] += b.Net
		leader = argmaxPool(pools)
	}
	out[leader] += total - prev
	return out
}

// argmaxPool devuelve el índice del pool más grande; en empate gana el menor índice.
func argmaxPool(pools []uint64) int {
	best := 0
	for i := 1; i < len(pools); i++ {
		if pools[i] > pools[best] {
			best = i
		}
	}
	return best
}
