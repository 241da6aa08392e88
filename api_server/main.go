package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"dy_code/douyin"
)

func main() {
	loadEnv()
	cfg := loadConfig()

	db, err := openDB(cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	repo := NewRepo(db)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("ensure schema failed: %v", err)
		}
	}

	// api_key 缓存 + cookie 池，后端一起按 CACHE_BACKEND 选
	var (
		cache   APIKeyCache
		cookies *CookiePool
		rdb     *redis.Client
	)
	switch cfg.CacheBackend {
	case "mem":
		cache = newMemAPIKeyCache(cfg.APIKeyCacheTTL)
		cookies = NewCookiePool(newMemCookieStore(), cfg.MaxCookies)
	default:
		rdb, err = newRedisClientFromEnv()
		if err != nil {
			log.Fatalf("redis init failed: %v", err)
		}
		if err := pingRedis(rdb); err != nil {
			log.Fatalf("redis ping failed: %v", err)
		}
		defer rdb.Close()
		cache = newRedisAPIKeyCache(rdb, cfg.APIKeysHashKey)
		cookies = NewCookiePool(newRedisCookieStore(rdb, cfg.CookiePoolKey), cfg.MaxCookies)
	}
	defer cache.Close()
	log.Printf("[cache] backend=%s", cfg.CacheBackend)

	dy, err := douyin.NewClient(cfg.Douyin)
	if err != nil {
		log.Fatalf("douyin client init failed: %v", err)
	}

	srv := NewServer(cfg, repo, cache, cookies, dy)
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("api listening on %s", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Printf("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
}
