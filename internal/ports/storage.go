package ports

import (
	"context"

	"github.com/alejandrodnm/paribet/internal/domain"
)

// ActionStore persiste el log append-only de cada mercado junto con el
// snapshot resultante. El log es la fuente de verdad; el snapshot es caché.
type ActionStore interface {
	// AppendAction guarda una acción aceptada y el estado del mercado tras aplicarla.
	// Debe ser atómico: o se guardan ambos o ninguno.
	AppendAction(ctx context.Context, action domain.Action, snapshot *domain.Market) error

	// LoadActions devuelve el log de un mercado ordenado por Seq.
	LoadActions(ctx context.Context, marketID string) ([]domain.Action, error)

	// LoadMarket devuelve el último snapshot, o domain.ErrMarketNotFound.
	LoadMarket(ctx context.Context, marketID string) (*domain.Market, error)

	// ListMarkets devuelve los IDs de todos los mercados guardados.
	ListMarkets(ctx context.Context) ([]string, error)

	// CountByPhase cuenta los mercados guardados según la fase de su snapshot.
	CountByPhase(ctx context.Context) (map[domain.Phase]int, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
