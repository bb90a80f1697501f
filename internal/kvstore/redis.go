package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/ev-storefront/internal/config"
)

// Redis — реализация Store поверх redis.
type Redis struct {
	Db *redis.Client
}

// InitRedis подключается к redis по настройкам из конфига и проверяет
// соединение пингом.
func InitRedis(ctx context.Context, cfg config.RedisConnection) (*Redis, error) {
	const op = "kvstore.InitRedis"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Redis{Db: db}, nil
}

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	const op = "kvstore.Redis.Get"
	val, err := r.Db.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Db.Set(ctx, key, jsonData, ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, key string) error {
	return r.Db.Del(ctx, key).Err()
}
