package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"BandSentinel/internal/model"
)

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// LatestPrices keeps the newest observation per symbol in Redis so other
// processes can read it without touching the database.
type LatestPrices struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLatestPrices(client *redis.Client, ttl time.Duration) *LatestPrices {
	return &LatestPrices{client: client, ttl: ttl}
}

func latestKey(symbol string) string { return "latest:" + symbol }

func (c *LatestPrices) SetLatest(ctx context.Context, obs model.PriceObservation) error {
	data, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("failed to marshal price: %w", err)
	}
	if err := c.client.Set(ctx, latestKey(obs.Symbol), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set latest price in redis: %w", err)
	}
	return nil
}

// GetLatest returns nil without error when nothing is cached.
func (c *LatestPrices) GetLatest(ctx context.Context, symbol string) (*model.PriceObservation, error) {
	data, err := c.client.Get(ctx, latestKey(model.NormalizeSymbol(symbol))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest price from redis: %w", err)
	}
	var obs model.PriceObservation
	if err := json.Unmarshal(data, &obs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price: %w", err)
	}
	return &obs, nil
}

// SignalPublisher broadcasts actionable signals on a Redis channel and keeps
// the last one per symbol.
type SignalPublisher struct {
	client  *redis.Client
	channel string
}

func NewSignalPublisher(client *redis.Client, channel string) *SignalPublisher {
	return &SignalPublisher{client: client, channel: channel}
}

func (p *SignalPublisher) Name() string { return "redis" }

func lastSignalKey(symbol string) string { return "signal:last:" + symbol }

func (p *SignalPublisher) Notify(ctx context.Context, sig model.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}
	pipe := p.client.Pipeline()
	pipe.Set(ctx, lastSignalKey(sig.Symbol), data, 0)
	pipe.Publish(ctx, p.channel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish signal: %w", err)
	}
	return nil
}

// LastSignal returns nil without error when no signal was published for symbol.
func (p *SignalPublisher) LastSignal(ctx context.Context, symbol string) (*model.Signal, error) {
	data, err := p.client.Get(ctx, lastSignalKey(model.NormalizeSymbol(symbol))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last signal: %w", err)
	}
	var sig model.Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signal: %w", err)
	}
	return &sig, nil
}
