package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type redisPreferenceRepository struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisPreferenceRepository stores preferences in a Redis hash per
// client. Alternative backend to Postgres, selected via config.
func NewRedisPreferenceRepository(client *redis.Client, log *zap.Logger) PreferenceRepository {
	return &redisPreferenceRepository{
		client: client,
		log:    log.With(zap.String("repository", "preference-redis")),
	}
}

func prefHashKey(clientID string) string {
	return "preferences:" + clientID
}

func (r *redisPreferenceRepository) Get(ctx context.Context, clientID, key string) (string, error) {
	value, err := r.client.HGet(ctx, prefHashKey(clientID), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		r.log.Error("Failed to read preference",
			zap.Error(err),
			zap.String("client_id", clientID),
			zap.String("key", key),
		)
		return "", fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, nil
}

func (r *redisPreferenceRepository) Set(ctx context.Context, clientID, key, value string) error {
	if err := r.client.HSet(ctx, prefHashKey(clientID), key, value).Err(); err != nil {
		r.log.Error("Failed to write preference",
			zap.Error(err),
			zap.String("client_id", clientID),
			zap.String("key", key),
		)
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}
