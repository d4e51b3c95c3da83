package storage_test

import (
	"context"
	"testing"

	"github.com/alejandrodnm/paribet/internal/adapters/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/paribet?sslmode=disable": "postgres",
		"postgresql://localhost/paribet":                        "postgres",
		"data/paribet.db":                                       "sqlite",
		"sqlite://data/paribet.db":                              "sqlite",
		":memory:":                                              "sqlite",
	}
	for dsn, want := range cases {
		assert.Equal(t, want, storage.Backend(dsn), dsn)
	}
}

func TestOpen_SQLiteMemory(t *testing.T) {
	st, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer st.Close()

	ids, err := st.ListMarkets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := storage.Open(context.Background(), "  ")
	assert.Error(t, err)
}
