package main

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// redisCookieStore
//
//	<prefix>:ids   SET  全部 cookie id
//	<prefix>:data  HASH id -> Cookie 头
//	<prefix>:use   ZSET id -> 使用次数
type redisCookieStore struct {
	rdb    *redis.Client
	prefix string
}

func newRedisCookieStore(rdb *redis.Client, prefix string) *redisCookieStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "douyin:cookie_pool"
	}
	return &redisCookieStore{rdb: rdb, prefix: prefix}
}

func (s *redisCookieStore) keys() (idsKey, dataKey, useKey string) {
	return s.prefix + ":ids", s.prefix + ":data", s.prefix + ":use"
}

func (s *redisCookieStore) name() string { return "redis" }

func (s *redisCookieStore) count(ctx context.Context) (int64, error) {
	idsKey, _, _ := s.keys()
	return s.rdb.SCard(ctx, idsKey).Result()
}

func (s *redisCookieStore) put(ctx context.Context, id, header string) error {
	idsKey, dataKey, useKey := s.keys()
	pipe := s.rdb.Pipeline()
	pipe.SAdd(ctx, idsKey, id)
	pipe.HSet(ctx, dataKey, id, header)
	// 不覆盖已有计数
	pipe.ZAddNX(ctx, useKey, redis.Z{Member: id, Score: 0})
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisCookieStore) pickLeastUsed(ctx context.Context) (string, bool, error) {
	idsKey, dataKey, useKey := s.keys()
	// data 里缺失的 id 顺手清掉再取下一个
	for i := 0; i < 3; i++ {
		ids, err := s.rdb.ZRange(ctx, useKey, 0, 0).Result()
		if err != nil {
			return "", false, err
		}
		if len(ids) == 0 {
			return "", false, nil
		}
		id := ids[0]
		header, err := s.rdb.HGet(ctx, dataKey, id).Result()
		if errors.Is(err, redis.Nil) {
			pipe := s.rdb.Pipeline()
			pipe.ZRem(ctx, useKey, id)
			pipe.SRem(ctx, idsKey, id)
			if _, err := pipe.Exec(ctx); err != nil {
				return "", false, err
			}
			continue
		}
		if err != nil {
			return "", false, err
		}
		if err := s.rdb.ZIncrBy(ctx, useKey, 1, id).Err(); err != nil {
			return "", false, err
		}
		return header, true, nil
	}
	return "", false, nil
}

func (s *redisCookieStore) evictMostUsed(ctx context.Context) (string, bool, error) {
	idsKey, dataKey, useKey := s.keys()

	ids, err := s.rdb.ZRevRange(ctx, useKey, 0, 0).Result()
	if err != nil {
		return "", false, err
	}
	var victim string
	if len(ids) > 0 {
		victim = strings.TrimSpace(ids[0])
	}
	if victim == "" {
		v, err := s.rdb.SPop(ctx, idsKey).Result()
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		victim = v
	}

	pipe := s.rdb.Pipeline()
	pipe.SRem(ctx, idsKey, victim)
	pipe.HDel(ctx, dataKey, victim)
	pipe.ZRem(ctx, useKey, victim)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", false, err
	}
	return victim, true, nil
}

func (s *redisCookieStore) clear(ctx context.Context) error {
	idsKey, dataKey, useKey := s.keys()
	return s.rdb.Del(ctx, idsKey, dataKey, useKey).Err()
}
