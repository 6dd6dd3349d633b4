package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Store persists session-scoped carts. A missing session yields an empty
// cart, not an error.
type Store interface {
	// Get loads the cart for a session.
	Get(ctx context.Context, sessionID string) (*Cart, error)

	// Save serialises and persists the cart for a session.
	Save(ctx context.Context, sessionID string, cart *Cart) error

	// Clear deletes the cart for a session.
	Clear(ctx context.Context, sessionID string) error
}

// redisStore implements Store on Redis, one JSON blob per session with a
// sliding TTL. Abandoned carts expire on their own.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed cart store and verifies connectivity.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration, logger zerolog.Logger) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger = logger.With().Str("component", "cart-store").Logger()
	logger.Info().Str("addr", addr).Dur("ttl", ttl).Msg("cart store initialised")

	return &redisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func cartKey(sessionID string) string {
	return "cart:" + sessionID
}

// Get loads the cart for a session.
func (s *redisStore) Get(ctx context.Context, sessionID string) (*Cart, error) {
	payload, err := s.client.Get(ctx, cartKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return &Cart{}, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to load cart")
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var cart Cart
	if err := json.Unmarshal([]byte(payload), &cart); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to decode cart")
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}

	return &cart, nil
}

// Save serialises and persists the cart for a session.
func (s *redisStore) Save(ctx context.Context, sessionID string, cart *Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := s.client.Set(ctx, cartKey(sessionID), payload, s.ttl).Err(); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to save cart")
		return fmt.Errorf("failed to save cart: %w", err)
	}

	s.logger.Debug().
		Str("session_id", sessionID).
		Int("items", len(cart.Items)).
		Msg("cart saved")

	return nil
}

// Clear deletes the cart for a session.
func (s *redisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
