package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/alejandrodnm/paribet/internal/adapters/storage/postgres"
	"github.com/alejandrodnm/paribet/internal/ports"
)

// Backend devuelve el motor que corresponde al DSN: "postgres" para URLs
// postgres://, "sqlite" para cualquier otra ruta (incluida ":memory:").
func Backend(dsn string) string {
	if postgres.IsDSN(dsn) {
		return "postgres"
	}
	return "sqlite"
}

// Open abre el ActionStore que corresponde al DSN.
func Open(ctx context.Context, dsn string) (ports.ActionStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("storage.Open: empty dsn")
	}
	switch Backend(dsn) {
	case "postgres":
		st, err := postgres.New(ctx, postgres.Config{DSN: dsn})
		if err != nil {
			return nil, fmt.Errorf("storage.Open: %w", err)
		}
		return st, nil
	default:
		path := strings.TrimPrefix(dsn, "sqlite://")
		st, err := NewSQLiteStorage(path)
		if err != nil {
			return nil, fmt.Errorf("storage.Open: %w", err)
		}
		return st, nil
	}
}
