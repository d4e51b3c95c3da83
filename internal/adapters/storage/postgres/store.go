// Package postgres guarda el log de acciones de paribet en PostgreSQL vía pgx.
// Mismo modelo que el store SQLite: log append-only + snapshot por mercado.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alejandrodnm/paribet/internal/domain"
	"github.com/alejandrodnm/paribet/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS paribet_markets (
    market_id  TEXT PRIMARY KEY,
    seq        BIGINT      NOT NULL,
    phase      TEXT        NOT NULL,
    snapshot   JSONB       NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS paribet_actions (
    market_id TEXT        NOT NULL,
    seq       BIGINT      NOT NULL,
    kind      TEXT        NOT NULL,
    actor     TEXT        NOT NULL,
    ts        TIMESTAMPTZ NOT NULL,
    payload   JSONB       NOT NULL,
    PRIMARY KEY (market_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_paribet_actions_actor ON paribet_actions(actor);
`

// Config son los parámetros de conexión.
type Config struct {
	DSN      string
	MaxConns int
	MinConns int
}

// IsDSN indica si la cadena apunta a PostgreSQL.
func IsDSN(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// Store implementa ports.ActionStore sobre un pgxpool.Pool.
type Store struct {
	pool *pgxpool.Pool
}

// New abre el pool, verifica la conexión y aplica el schema.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// AppendAction inserta la acción y hace upsert del snapshot en una transacción.
func (s *Store) AppendAction(ctx context.Context, action domain.Action, snapshot *domain.Market) error {
	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("postgres: marshal action: %w", err)
	}
	snap, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("postgres: marshal snapshot: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertAction = `
		INSERT INTO paribet_actions (market_id, seq, kind, actor, ts, payload)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.Exec(ctx, insertAction,
		action.MarketID, int64(action.Seq), string(action.Kind), action.Actor, action.Timestamp.UTC(), payload,
	); err != nil {
		return fmt.Errorf("postgres: insert action %s#%d: %w", action.MarketID, action.Seq, err)
	}

	const upsertMarket = `
		INSERT INTO paribet_markets (market_id, seq, phase, snapshot, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (market_id) DO UPDATE SET
			seq        = EXCLUDED.seq,
			phase      = EXCLUDED.phase,
			snapshot   = EXCLUDED.snapshot,
			updated_at = EXCLUDED.updated_at`
	if _, err := tx.Exec(ctx, upsertMarket,
		snapshot.ID, int64(snapshot.Seq), snapshot.Phase.String(), snap,
	); err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", snapshot.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// LoadActions devuelve el log del mercado ordenado por seq.
func (s *Store) LoadActions(ctx context.Context, marketID string) ([]domain.Action, error) {
	const query = `SELECT payload FROM paribet_actions WHERE market_id = $1 ORDER BY seq ASC`
	rows, err := s.pool.Query(ctx, query, marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: load actions %s: %w", marketID, err)
	}
	defer rows.Close()

	var actions []domain.Action
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan action: %w", err)
		}
		var a domain.Action
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal action %s: %w", marketID, err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate actions: %w", err)
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("postgres: %w: %s", domain.ErrMarketNotFound, marketID)
	}
	return actions, nil
}

// LoadMarket devuelve el último snapshot guardado.
func (s *Store) LoadMarket(ctx context.Context, marketID string) (*domain.Market, error) {
	const query = `SELECT snapshot FROM paribet_markets WHERE market_id = $1`
	var snap []byte
	if err := s.pool.QueryRow(ctx, query, marketID).Scan(&snap); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("postgres: %w: %s", domain.ErrMarketNotFound, marketID)
		}
		return nil, fmt.Errorf("postgres: load market %s: %w", marketID, err)
	}
	var m domain.Market
	if err := json.Unmarshal(snap, &m); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal market %s: %w", marketID, err)
	}
	return &m, nil
}

// ListMarkets devuelve los IDs guardados en orden alfabético.
func (s *Store) ListMarkets(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT market_id FROM paribet_markets ORDER BY market_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: collect market ids: %w", err)
	}
	return ids, nil
}

// CountByPhase cuenta mercados por fase según el último snapshot.
func (s *Store) CountByPhase(ctx context.Context) (map[domain.Phase]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT phase, COUNT(*) FROM paribet_markets GROUP BY phase`)
	if err != nil {
		return nil, fmt.Errorf("postgres: count by phase: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Phase]int)
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan phase count: %w", err)
		}
		var p domain.Phase
		if err := p.UnmarshalText([]byte(name)); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		out[p] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate phase counts: %w", err)
	}
	return out, nil
}

// Close libera el pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

var _ ports.ActionStore = (*Store)(nil)
