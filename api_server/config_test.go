package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"API_ADDR", "API_HOST", "API_PORT", "CACHE_BACKEND", "SIGN_COST", "SEARCH_RPS", "USE_TIKHUB", "SEARCH_MIN_DELAY_MS"} {
		t.Setenv(k, "")
	}
	cfg := loadConfig()
	if cfg.Addr != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.CacheBackend != "redis" {
		t.Errorf("CacheBackend = %q", cfg.CacheBackend)
	}
	if cfg.SignCost != 1 || cfg.SearchCost != 5 {
		t.Errorf("costs = %d/%d", cfg.SignCost, cfg.SearchCost)
	}
	if cfg.Douyin.MinDelay != 1500*time.Millisecond || cfg.Douyin.UseTikHub {
		t.Errorf("douyin = %+v", cfg.Douyin)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("API_ADDR", "")
	t.Setenv("API_HOST", "127.0.0.1")
	t.Setenv("API_PORT", "9000")
	t.Setenv("CACHE_BACKEND", "MEM")
	t.Setenv("API_KEY_CACHE_TTL_SEC", "-3")
	t.Setenv("SIGN_COST", "2")
	t.Setenv("SEARCH_RPS", "0.5")
	t.Setenv("USE_TIKHUB", "true")
	t.Setenv("ADMIN_PASSWORD_MD5", "ABCDEF")
	t.Setenv("DB_PORT", "not-a-number")

	cfg := loadConfig()
	if cfg.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.CacheBackend != "mem" || cfg.APIKeyCacheTTL != 30*time.Second {
		t.Errorf("cache = %q %v", cfg.CacheBackend, cfg.APIKeyCacheTTL)
	}
	if cfg.SignCost != 2 || cfg.Douyin.RPS != 0.5 || !cfg.Douyin.UseTikHub {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.AdminPasswordMD5 != "abcdef" {
		t.Errorf("AdminPasswordMD5 = %q", cfg.AdminPasswordMD5)
	}
	if cfg.DBPort != 3306 {
		t.Errorf("DBPort = %d", cfg.DBPort)
	}
}

func TestGetenvBool(t *testing.T) {
	tests := []struct {
		v    string
		def  bool
		want bool
	}{
		{"", true, true},
		{"1", false, true},
		{"Yes", false, true},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("DY_TEST_BOOL", tt.v)
		if got := getenvBool("DY_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("getenvBool(%q, %v) = %v", tt.v, tt.def, got)
		}
	}
}

func TestLoadEnvFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(p, []byte("DY_TEST_FROM_FILE=hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", p)
	t.Setenv("DY_TEST_FROM_FILE", "old")
	if got := loadEnv(); got != p {
		t.Fatalf("loadEnv = %q", got)
	}
	// Overload 覆盖已有环境变量
	if v := os.Getenv("DY_TEST_FROM_FILE"); v != "hello" {
		t.Fatalf("DY_TEST_FROM_FILE = %q", v)
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := Config{DBUser: "u", DBPass: "p", DBHost: "h", DBPort: 1, DBName: "n"}
	if got := cfg.MySQLDSN(); got != "u:p@tcp(h:1)/n?parseTime=true&charset=utf8mb4&loc=Local" {
		t.Fatalf("dsn = %q", got)
	}
}

func TestMemAPIKeyCacheTTL(t *testing.T) {
	ctx := context.Background()
	c := newMemAPIKeyCache(time.Minute)
	now := time.Unix(1700000000, 0)
	c.now = func() time.Time { return now }

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("unexpected hit")
	}
	row := &APIKeyRow{Key: "k", Credit: 3}
	_ = c.Set(ctx, row)
	row.Credit = 99 // 缓存存的是副本
	got, ok, _ := c.Get(ctx, "k")
	if !ok || got.Credit != 3 {
		t.Fatalf("Get = %+v %v", got, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expired entry still returned")
	}
}
