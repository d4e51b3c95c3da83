package storage

// sqlite.go: log append-only de acciones + snapshot por mercado.
//
// Estrategia:
//   - `actions`: una fila por acción aceptada, PK (market_id, seq). Es la fuente
//     de verdad: reaplicarla reconstruye el mercado.
//   - `markets`: UNA fila por mercado (UPSERT) con el último snapshot en JSON.
//     Es caché de lectura; si se pierde se recupera con el replay.
//   - Ambas se escriben en la misma transacción: nunca hay acción sin snapshot.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/paribet/internal/domain"
	"github.com/alejandrodnm/paribet/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
-- Último estado de cada mercado
CREATE TABLE IF NOT EXISTS markets (
    market_id  TEXT PRIMARY KEY,
    seq        INTEGER  NOT NULL,
    phase      TEXT     NOT NULL,
    snapshot   TEXT     NOT NULL,
    updated_at DATETIME NOT NULL
);

-- Log append-only, nunca se actualiza ni se borra
CREATE TABLE IF NOT EXISTS actions (
    market_id TEXT     NOT NULL,
    seq       INTEGER  NOT NULL,
    kind      TEXT     NOT NULL,
    actor     TEXT     NOT NULL,
    ts        DATETIME NOT NULL,
    payload   TEXT     NOT NULL,
    PRIMARY KEY (market_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_actions_actor ON actions(actor);
CREATE INDEX IF NOT EXISTS idx_markets_phase ON markets(phase);
`

// SQLiteStorage implementa ports.ActionStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// AppendAction inserta la acción y hace upsert del snapshot en una transacción.
// Una acción con (market_id, seq) repetido falla por la PK.
func (s *SQLiteStorage) AppendAction(ctx context.Context, action domain.Action, snapshot *domain.Market) error {
	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("storage.AppendAction: encode action: %w", err)
	}
	snap, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("storage.AppendAction: encode snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.AppendAction: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO actions (market_id, seq, kind, actor, ts, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		action.MarketID, action.Seq, string(action.Kind), action.Actor, action.Timestamp.UTC(), string(payload),
	); err != nil {
		return fmt.Errorf("storage.AppendAction: insert %s#%d: %w", action.MarketID, action.Seq, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO markets (market_id, seq, phase, snapshot, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(market_id) DO UPDATE SET
			seq        = excluded.seq,
			phase      = excluded.phase,
			snapshot   = excluded.snapshot,
			updated_at = excluded.updated_at
	`, snapshot.ID, snapshot.Seq, snapshot.Phase.String(), string(snap), time.Now().UTC()); err != nil {
		return fmt.Errorf("storage.AppendAction: upsert market %s: %w", snapshot.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.AppendAction: commit: %w", err)
	}
	return nil
}

// LoadActions devuelve el log del mercado ordenado por seq.
func (s *SQLiteStorage) LoadActions(ctx context.Context, marketID string) ([]domain.Action, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM actions WHERE market_id = ? ORDER BY seq ASC`, marketID)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadActions: query: %w", err)
	}
	defer rows.Close()

	var actions []domain.Action
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("storage.LoadActions: scan row: %w", err)
		}
		var a domain.Action
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("storage.LoadActions: decode %s: %w", marketID, err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.LoadActions: %w", err)
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("storage.LoadActions: %w: %s", domain.ErrMarketNotFound, marketID)
	}
	return actions, nil
}

// LoadMarket devuelve el último snapshot guardado.
func (s *SQLiteStorage) LoadMarket(ctx context.Context, marketID string) (*domain.Market, error) {
	var snap string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM markets WHERE market_id = ?`, marketID).Scan(&snap)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage.LoadMarket: %w: %s", domain.ErrMarketNotFound, marketID)
	}
	if err != nil {
		return nil, fmt.Errorf("storage.LoadMarket: query: %w", err)
	}
	var m domain.Market
	if err := json.Unmarshal([]byte(snap), &m); err != nil {
		return nil, fmt.Errorf("storage.LoadMarket: decode %s: %w", marketID, err)
	}
	return &m, nil
}

// ListMarkets devuelve los IDs guardados en orden alfabético.
func (s *SQLiteStorage) ListMarkets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT market_id FROM markets ORDER BY market_id`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListMarkets: query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage.ListMarkets: scan row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountByPhase cuenta mercados por fase según el último snapshot.
func (s *SQLiteStorage) CountByPhase(ctx context.Context) (map[domain.Phase]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phase, COUNT(*) FROM markets GROUP BY phase`)
	if err != nil {
		return nil, fmt.Errorf("storage.CountByPhase: query: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Phase]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("storage.CountByPhase: scan row: %w", err)
		}
		var p domain.Phase
		if err := p.UnmarshalText([]byte(name)); err != nil {
			return nil, fmt.Errorf("storage.CountByPhase: %w", err)
		}
		out[p] = n
	}
	return out, rows.Err()
}

var _ ports.ActionStore = (*SQLiteStorage)(nil)

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
