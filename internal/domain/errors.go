package domain

import (
	"errors"
	"fmt"
)

// Errores del motor. Todos son locales y no reintentables: indican un error
// del llamador, nunca un fallo transitorio. Usar errors.Is para distinguirlos.
var (
	ErrValidation            = errors.New("validation error")
	ErrMarketNotActive       = errors.New("market is not active")
	ErrMarketEnded           = errors.New("market has already ended")
	ErrMarketNotEnded        = errors.New("market not yet ended")
	ErrInvalidOption         = errors.New("invalid option index")
	ErrBetTooSmall           = errors.New("bet amount too small")
	ErrVelocityLimitExceeded = errors.New("exceeds velocity limit")
	ErrHardcapExceeded       = errors.New("exceeds market hardcap")
	ErrMarketAlreadyResolved = errors.New("market already resolved")
	ErrMarketNotResolved     = errors.New("market not resolved")
	ErrNotWinner             = errors.New("not a winner")
	ErrAlreadyClaimed        = errors.New("already claimed")
	ErrNothingToClaim        = errors.New("nothing to claim")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrMathOverflow          = errors.New("arithmetic overflow")
	ErrNoBetsPlaced          = errors.New("no bets placed yet")
	ErrResolutionClosed      = errors.New("resolution window closed")
	ErrMarketNotFound        = errors.New("market not found")
	ErrMarketExists          = errors.New("market already exists")
)

// ValidationError describe un input mal formado al crear un mercado
// o al configurar sus parámetros. Se compara con errors.Is(err, ErrValidation).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// VelocityError lleva el monto rechazado y el límite vigente en el momento de la apuesta.
type VelocityError struct {
	Attempted uint64
	Limit     uint64
}

func (e *VelocityError) Error() string {
	return fmt.Sprintf("%s: attempted %d, limit %d", ErrVelocityLimitExceeded, e.Attempted, e.Limit)
}

func (e *VelocityError) Unwrap() error { return ErrVelocityLimitExceeded }
