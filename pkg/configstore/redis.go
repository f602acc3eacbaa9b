package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// KeyPrefix is prepended to every key, e.g. "flow:global:".
	KeyPrefix string `yaml:"key_prefix"`
}

// RedisStore serves values from Redis string keys.
//
// Values written with Set are stored as JSON so numbers and booleans keep their type.
// A key holding text that is not valid JSON is returned as that text, which lets
// operators set plain values with redis-cli.
type RedisStore struct {
	redisClient *redis.Client
	keyPrefix   string
	logger      zerolog.Logger
}

// NewRedisStore creates and connects a new RedisStore.
// It pings the Redis server to ensure connectivity before returning.
func NewRedisStore(ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis.")

	return &RedisStore{
		redisClient: rdb,
		keyPrefix:   cfg.KeyPrefix,
		logger:      logger.With().Str("component", "RedisStore").Logger(),
	}, nil
}

// Get reads key from Redis. A missing key and a Redis failure both return absent.
func (s *RedisStore) Get(ctx context.Context, key string) flowvalue.Value {
	raw, err := s.redisClient.Get(ctx, s.keyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Error().Err(err).Str("key", key).Msg("Unexpected Redis error during lookup.")
		}
		return flowvalue.Absent()
	}

	var value flowvalue.Value
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return flowvalue.Of(raw)
	}
	return value
}

// Set stores value under key as JSON with no expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", key, err)
	}
	if err := s.redisClient.Set(ctx, s.keyPrefix+key, jsonData, 0).Err(); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to set value in Redis.")
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	if s.redisClient != nil {
		s.logger.Info().Msg("Closing Redis client connection...")
		return s.redisClient.Close()
	}
	return nil
}
