package monitor

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/you/lp-tools/internal/config"
)

// StateStore помнит направление последнего доставленного алерта по ключу пары.
type StateStore interface {
	Last(ctx context.Context, key string) (Direction, error)
	Save(ctx context.Context, key string, d Direction, at time.Time) error
}

type MemoryStore struct {
	mu sync.Mutex
	m  map[string]Direction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]Direction)}
}

func (s *MemoryStore) Last(_ context.Context, key string) (Direction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[key], nil
}

func (s *MemoryStore) Save(_ context.Context, key string, d Direction, _ time.Time) error {
	s.mu.Lock()
	s.m[key] = d
	s.mu.Unlock()
	return nil
}

// RedisStore хранит состояние в HASH <prefix>alert:<key> и индексирует ключи в ZSET <prefix>alert:active
// (score: время последнего изменения, мс). Переживает перезапуски монитора.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Username: cfg.Username,
		Password: cfg.Password,
	})
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) hashKey(key string) string { return s.prefix + "alert:" + key }
func (s *RedisStore) indexKey() string          { return s.prefix + "alert:active" }

func (s *RedisStore) Last(ctx context.Context, key string) (Direction, error) {
	v, err := s.rdb.HGet(ctx, s.hashKey(key), "direction").Result()
	if errors.Is(err, redis.Nil) {
		return None, nil
	}
	if err != nil {
		return None, err
	}
	return parseDirection(v), nil
}

func (s *RedisStore) Save(ctx context.Context, key string, d Direction, at time.Time) error {
	tsMs := at.UnixMilli()
	if err := s.rdb.HSet(ctx, s.hashKey(key), map[string]interface{}{
		"direction": d.String(),
		"ts_ms":     strconv.FormatInt(tsMs, 10),
	}).Err(); err != nil {
		return err
	}
	return s.rdb.ZAdd(ctx, s.indexKey(), redis.Z{
		Score: float64(tsMs), Member: key,
	}).Err()
}
