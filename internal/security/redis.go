package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/insightdelivered/statement-importer/internal/models"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// RedisCatalog stores each security as a JSON value under "security:<ISIN>".
type RedisCatalog struct {
	client *redis.Client
	prefix string
}

func NewRedisCatalog(client *redis.Client) *RedisCatalog {
	return &RedisCatalog{
		client: client,
		prefix: "security:",
	}
}

func (c *RedisCatalog) FindByISIN(ctx context.Context, isin string) (models.Security, error) {
	raw, err := c.client.Get(ctx, c.prefix+isin).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Security{}, ErrNotFound
	}
	if err != nil {
		return models.Security{}, err
	}

	var s models.Security
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.Security{}, fmt.Errorf("decode security %s: %w", isin, err)
	}
	return s, nil
}

// Insert uses SETNX so that concurrent importers agree on one record.
func (c *RedisCatalog) Insert(ctx context.Context, s models.Security) (models.Security, bool, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return models.Security{}, false, err
	}

	ok, err := c.client.SetNX(ctx, c.prefix+s.ISIN, raw, 0).Result()
	if err != nil {
		return models.Security{}, false, err
	}
	if ok {
		return s, true, nil
	}

	stored, err := c.FindByISIN(ctx, s.ISIN)
	return stored, false, err
}
