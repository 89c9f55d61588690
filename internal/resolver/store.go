package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/cache/keys"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/cache/redisstore"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/model"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/observability"
)

// Store persists resolved coordinates across restarts. Only successful
// resolutions are saved so that misses are retried by the next process.
type Store interface {
	Load(ctx context.Context, country string, cities []string) (map[string]model.Coordinate, error)
	Save(ctx context.Context, country, city string, c model.Coordinate) error
}

type NopStore struct{}

func (NopStore) Load(context.Context, string, []string) (map[string]model.Coordinate, error) {
	return nil, nil
}

func (NopStore) Save(context.Context, string, string, model.Coordinate) error { return nil }

type RedisStore struct {
	logger    *slog.Logger
	cli       *redisstore.Client
	ttl       time.Duration
	opTimeout time.Duration
}

func NewRedisStore(logger *slog.Logger, cli *redisstore.Client, ttl, opTimeout time.Duration) *RedisStore {
	return &RedisStore{logger: logger, cli: cli, ttl: ttl, opTimeout: opTimeout}
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *RedisStore) Load(ctx context.Context, country string, cities []string) (map[string]model.Coordinate, error) {
	if len(cities) == 0 {
		return map[string]model.Coordinate{}, nil
	}
	ks := make([]string, len(cities))
	for i, c := range cities {
		ks[i] = keys.Coordinate(country, c)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	raw, err := s.cli.MGet(ctx, ks)
	if err != nil {
		return nil, fmt.Errorf("coordinate store load: %w", err)
	}

	out := make(map[string]model.Coordinate, len(raw))
	for i, city := range cities {
		b, ok := raw[ks[i]]
		if !ok {
			continue
		}
		var c model.Coordinate
		err := json.Unmarshal(b, &c)
		observability.ObserveStoreOp("decode", err)
		if err != nil {
			// the city is geocoded again and the entry overwritten
			s.logger.WarnContext(ctx, "corrupt stored coordinate", "city", city, "key", ks[i], "err", err)
			continue
		}
		out[city] = c
	}
	return out, nil
}

func (s *RedisStore) Save(ctx context.Context, country, city string, c model.Coordinate) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode coordinate: %w", err)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.cli.Set(ctx, keys.Coordinate(country, city), b, s.ttl); err != nil {
		return fmt.Errorf("coordinate store save: %w", err)
	}
	return nil
}
