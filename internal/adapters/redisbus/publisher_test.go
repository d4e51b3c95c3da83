package redisbus_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/paribet/internal/adapters/redisbus"
	"github.com/alejandrodnm/paribet/internal/domain"
)

func TestChannelNaming(t *testing.T) {
	p := redisbus.NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "")
	defer p.Close()
	assert.Equal(t, "paribet:events:m1", p.Channel("m1"))
	assert.Equal(t, "paribet:stream:m1", p.Stream("m1"))

	q := redisbus.NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "staging")
	defer q.Close()
	assert.Equal(t, "staging:events:m1", q.Channel("m1"))
}

func TestEncode(t *testing.T) {
	opt := 1
	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	b, err := redisbus.Encode(domain.Event{
		Kind:      domain.EventBetPlaced,
		MarketID:  "m1",
		Actor:     "alice",
		Timestamp: ts,
		Option:    &opt,
		Amount:    990,
		Pool:      1_490,
		Odds:      []uint64{33, 66},
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "bet_placed", got["kind"])
	assert.Equal(t, "m1", got["market_id"])
	assert.Equal(t, float64(1), got["option"])
	assert.Equal(t, float64(990), got["amount"])
	assert.NotContains(t, got, "winner")
	assert.NotContains(t, got, "refund")
}

func TestPublish_Empty(t *testing.T) {
	p := redisbus.NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "")
	defer p.Close()
	assert.NoError(t, p.Publish(context.Background(), nil))
}

func TestPublish_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	p := redisbus.NewWithClient(rdb, "")
	defer p.Close()

	err := p.Publish(context.Background(), []domain.Event{{Kind: domain.EventMarketCreated, MarketID: "m1"}})
	assert.ErrorContains(t, err, "redisbus: publish 1 events")
}

func TestPublish_RateLimitHonorsContext(t *testing.T) {
	p := redisbus.NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}), "")
	defer p.Close()
	p.SetRate(0.001, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	events := []domain.Event{{Kind: domain.EventMarketCreated, MarketID: "m1"}}

	// el primer pipeline consume el burst y falla contra el puerto cerrado
	_ = p.Publish(ctx, events)
	err := p.Publish(ctx, events)
	assert.ErrorContains(t, err, "redisbus: rate limit")
}
