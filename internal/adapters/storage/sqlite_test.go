package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/paribet/internal/adapters/storage"
	"github.com/alejandrodnm/paribet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0  = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	env = domain.Env{
		Limits: domain.Limits{MinBetAmount: 1, MinVelocity: 1 << 62, VelocityFactorPct: 20},
		Admin:  "admin",
	}
)

// applyAll aplica las acciones con seq consecutivo y guarda cada paso en el store.
func applyAll(t *testing.T, st *storage.SQLiteStorage, actions []domain.Action) *domain.Market {
	t.Helper()
	var m *domain.Market
	for i, a := range actions {
		a.Seq = uint64(i + 1)
		next, _, _, err := domain.Apply(m, a, env)
		require.NoError(t, err, "action %d", i)
		require.NoError(t, st.AppendAction(context.Background(), a, next))
		m = next
	}
	return m
}

func marketLog(id string) []domain.Action {
	return []domain.Action{
		{
			Kind: domain.ActionCreateMarket, MarketID: id, Actor: "creator", Timestamp: t0,
			Create: &domain.CreateMarketInput{
				Question: "Will it rain?",
				Options:  []string{"yes", "no"},
				EndTime:  t0.Add(48 * time.Hour),
			},
		},
		{Kind: domain.ActionPlaceBet, MarketID: id, Actor: "alice", Timestamp: t0.Add(time.Hour), Option: 0, Amount: 1_000},
		{Kind: domain.ActionPlaceBet, MarketID: id, Actor: "bob", Timestamp: t0.Add(2 * time.Hour), Option: 1, Amount: 400},
	}
}

func TestSQLiteStorage_AppendAndLoad(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	want := applyAll(t, db, marketLog("rain"))

	got, err := db.LoadMarket(ctx, "rain")
	require.NoError(t, err)
	assert.Equal(t, want.Seq, got.Seq)
	assert.Equal(t, want.OptionPools, got.OptionPools)
	assert.Equal(t, want.TotalPool, got.TotalPool)
	assert.Len(t, got.Bets, 2)
	assert.True(t, want.EndTime.Equal(got.EndTime))

	actions, err := db.LoadActions(ctx, "rain")
	require.NoError(t, err)
	require.Len(t, actions, 3)
	for i, a := range actions {
		assert.Equal(t, uint64(i+1), a.Seq)
	}
	assert.Equal(t, domain.ActionCreateMarket, actions[0].Kind)
	require.NotNil(t, actions[0].Create)
	assert.Equal(t, []string{"yes", "no"}, actions[0].Create.Options)
	assert.Equal(t, uint64(400), actions[2].Amount)
}

func TestSQLiteStorage_ReplayMatchesSnapshot(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	applyAll(t, db, marketLog("rain"))

	actions, err := db.LoadActions(ctx, "rain")
	require.NoError(t, err)
	rebuilt, err := domain.Replay(actions, env)
	require.NoError(t, err)

	stored, err := db.LoadMarket(ctx, "rain")
	require.NoError(t, err)
	assert.Equal(t, stored.TotalPool, rebuilt.TotalPool)
	assert.Equal(t, stored.LeadingOption, rebuilt.LeadingOption)
	assert.Equal(t, stored.Seq, rebuilt.Seq)
}

func TestSQLiteStorage_DuplicateSeqRejected(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	log := marketLog("rain")
	m := applyAll(t, db, log[:2])

	dup := log[1]
	dup.Seq = 2
	err = db.AppendAction(ctx, dup, m)
	assert.Error(t, err)

	// la transacción fallida no dejó rastro
	actions, err := db.LoadActions(ctx, "rain")
	require.NoError(t, err)
	assert.Len(t, actions, 2)
}

func TestSQLiteStorage_NotFound(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.LoadMarket(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)

	_, err = db.LoadActions(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)
}

func TestSQLiteStorage_ListAndCount(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	applyAll(t, db, marketLog("b-market"))
	applyAll(t, db, marketLog("a-market"))

	ids, err := db.ListMarkets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-market", "b-market"}, ids)

	counts, err := db.CountByPhase(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.PhaseBetting])
	assert.Zero(t, counts[domain.PhaseSettled])
}

func TestSQLiteStorage_EmptyList(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ids, err := db.ListMarkets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
