package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dy_code/douyin"
)

type Config struct {
	Addr string

	DBHost string
	DBPort int
	DBUser string
	DBPass string
	DBName string

	AdminPasswordMD5 string

	// redis | mem
	CacheBackend   string
	APIKeyCacheTTL time.Duration
	APIKeysHashKey string

	CookiePoolKey string
	MaxCookies    int64

	// 每次 sign / search 扣的额度
	SignCost   int64
	SearchCost int64

	Douyin douyin.Config
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func loadConfig() Config {
	// API_ADDR 优先；否则 API_HOST:API_PORT，默认 0.0.0.0:8080
	apiHost := getenv("API_HOST", "0.0.0.0")
	apiPort := getenvInt("API_PORT", 8080)

	backend := strings.ToLower(getenv("CACHE_BACKEND", "redis"))
	if backend != "mem" {
		backend = "redis"
	}
	ttl := getenvInt("API_KEY_CACHE_TTL_SEC", 30)
	if ttl <= 0 {
		ttl = 30
	}
	maxCookies := getenvInt64("MAX_COOKIES", 0)
	if maxCookies < 0 {
		maxCookies = 0
	}

	return Config{
		Addr: getenv("API_ADDR", fmt.Sprintf("%s:%d", apiHost, apiPort)),

		DBHost: getenv("DB_HOST", "127.0.0.1"),
		DBPort: getenvInt("DB_PORT", 3306),
		DBUser: getenv("DB_USER", "root"),
		DBPass: getenv("DB_PASSWORD", "123456"),
		DBName: getenv("DB_NAME", "dy_sign"),

		// 存放明文密码的 MD5(hex小写)
		AdminPasswordMD5: strings.ToLower(getenv("ADMIN_PASSWORD_MD5", "")),

		CacheBackend:   backend,
		APIKeyCacheTTL: time.Duration(ttl) * time.Second,
		APIKeysHashKey: getenv("REDIS_API_KEYS_KEY", "douyin:api_keys"),

		CookiePoolKey: getenv("REDIS_COOKIE_POOL_KEY", "douyin:cookie_pool"),
		MaxCookies:    maxCookies,

		SignCost:   getenvInt64("SIGN_COST", 1),
		SearchCost: getenvInt64("SEARCH_COST", 5),

		Douyin: douyin.Config{
			Cookie:       getenv("DOUYIN_COOKIE", ""),
			UserAgent:    getenv("DOUYIN_USER_AGENT", douyin.DefaultUserAgent),
			ProxyURL:     getenv("HTTP_PROXY_URL", ""),
			MinDelay:     time.Duration(getenvInt("SEARCH_MIN_DELAY_MS", 1500)) * time.Millisecond,
			MaxDelay:     time.Duration(getenvInt("SEARCH_MAX_DELAY_MS", 3500)) * time.Millisecond,
			RPS:          getenvFloat("SEARCH_RPS", 0),
			UseTikHub:    getenvBool("USE_TIKHUB", false),
			TikHubAPIKey: getenv("TIKHUB_API_KEY", ""),
			TikHubBase:   getenv("TIKHUB_API_BASE", douyin.DefaultTikHubAPIBase),
			Timeout:      time.Duration(getenvInt("SEARCH_TIMEOUT_SEC", 60)) * time.Second,
		},
	}
}

func (c Config) MySQLDSN() string {
	// parseTime 用于扫描 TIMESTAMP；utf8mb4 避免字符集问题
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=Local",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName,
	)
}
