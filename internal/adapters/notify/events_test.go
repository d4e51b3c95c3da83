package notify_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/paribet/internal/adapters/notify"
	"github.com/alejandrodnm/paribet/internal/domain"
)

func TestLogSink_Publish(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := notify.NewLogSink(logger)

	opt := 0
	winner := domain.OutcomeUncertain
	err := sink.Publish(context.Background(), []domain.Event{
		{Kind: domain.EventBetPlaced, MarketID: "m1", Actor: "alice", Timestamp: t0, Option: &opt, Amount: 990, Pool: 990},
		{Kind: domain.EventVelocityLimitTriggered, MarketID: "m1", Actor: "whale", Timestamp: t0, Amount: 9_000, Limit: 5_000},
		{Kind: domain.EventMarketResolved, MarketID: "m1", Timestamp: t0, Winner: &winner},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "event=bet_placed")
	assert.Contains(t, out, "amount=990")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "limit=5000")
	assert.Contains(t, out, "winner=uncertain")
}
