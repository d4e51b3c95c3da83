package ports

import (
	"context"

	"github.com/alejandrodnm/paribet/internal/domain"
)

// EventSink recibe los eventos de las transiciones aceptadas.
type EventSink interface {
	Publish(ctx context.Context, events []domain.Event) error
}

// Notifier presenta el estado de un mercado al usuario.
type Notifier interface {
	// NotifyStandings muestra pools, odds y scores en vivo.
	NotifyStandings(ctx context.Context, m *domain.Market, standings []domain.Standing) error

	// NotifyResolution muestra la decisión final y su desglose.
	NotifyResolution(ctx context.Context, m *domain.Market, res domain.Resolution) error

	// NotifyClaims muestra los pagos a bettors y la devolución de stake a votantes.
	NotifyClaims(ctx context.Context, m *domain.Market, claims []domain.ClaimResult, voters []domain.VoterSettlement) error
}
