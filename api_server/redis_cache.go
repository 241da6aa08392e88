package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// REDIS_URL 优先，否则 REDIS_HOST/PORT/DB/USERNAME/PASSWORD/SSL
func newRedisClientFromEnv() (*redis.Client, error) {
	if url := getenv("REDIS_URL", ""); url != "" {
		opt, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return redis.NewClient(opt), nil
	}

	opt := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", getenv("REDIS_HOST", "127.0.0.1"), getenvInt("REDIS_PORT", 6379)),
		DB:       getenvInt("REDIS_DB", 0),
		Username: getenv("REDIS_USERNAME", ""),
		Password: getenv("REDIS_PASSWORD", ""),
	}
	if getenvBool("REDIS_SSL", false) {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opt), nil
}

func pingRedis(rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err()
}

// redisAPIKeyCache 一个 hash 存全部 key，不设过期，额度变动后由调用方回填
type redisAPIKeyCache struct {
	rdb     *redis.Client
	hashKey string
}

func newRedisAPIKeyCache(rdb *redis.Client, hashKey string) *redisAPIKeyCache {
	if strings.TrimSpace(hashKey) == "" {
		hashKey = "douyin:api_keys"
	}
	return &redisAPIKeyCache{rdb: rdb, hashKey: hashKey}
}

// Close 不关 rdb，rdb 和 cookie 池共用，由 main 关闭
func (c *redisAPIKeyCache) Close() error { return nil }

func (c *redisAPIKeyCache) Get(ctx context.Context, apiKey string) (*APIKeyRow, bool, error) {
	raw, err := c.rdb.HGet(ctx, c.hashKey, apiKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var row APIKeyRow
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		// 脏数据当 miss
		return nil, false, nil
	}
	return &row, true, nil
}

func (c *redisAPIKeyCache) Set(ctx context.Context, row *APIKeyRow) error {
	if row == nil || strings.TrimSpace(row.Key) == "" {
		return fmt.Errorf("invalid row")
	}
	b, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return c.rdb.HSet(ctx, c.hashKey, row.Key, string(b)).Err()
}
