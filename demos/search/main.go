package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dy_code/douyin"
)

type cliFlags struct {
	Keyword  string
	Count    int
	Platform string
	OutDir   string
	Workers  int
	SignOnly bool
}

func loadEnv() {
	if p := os.Getenv("ENV_FILE"); p != "" {
		_ = godotenv.Overload(p)
		log.Printf("[env] loaded: %s", p)
		return
	}
	name := ".env.linux"
	if runtime.GOOS == "windows" {
		name = ".env.windows"
	}
	// demos/search -> 仓库根目录
	for _, p := range []string{name, filepath.Join("..", "..", name)} {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			_ = godotenv.Overload(p)
			log.Printf("[env] loaded: %s", p)
			return
		}
	}
}

func envInt(name string, def int) int {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	loadEnv()

	var flags cliFlags
	flag.StringVar(&flags.Keyword, "k", "", "Search keyword (English is translated)")
	flag.IntVar(&flags.Count, "n", 10, "Result count")
	flag.StringVar(&flags.Platform, "platform", douyin.PlatformDouyin, "douyin or tiktok (tiktok needs TikHub)")
	flag.StringVar(&flags.OutDir, "o", "", "Download videos into this directory")
	flag.IntVar(&flags.Workers, "c", 3, "Download concurrency")
	flag.BoolVar(&flags.SignOnly, "sign", false, "Only print the signed search URL")
	flag.Parse()

	if flags.Keyword == "" {
		flag.Usage()
		os.Exit(2)
	}

	useTikHub := strings.EqualFold(os.Getenv("USE_TIKHUB"), "true") || os.Getenv("USE_TIKHUB") == "1"
	client, err := douyin.NewClient(douyin.Config{
		Cookie:       os.Getenv("DOUYIN_COOKIE"),
		UserAgent:    os.Getenv("DOUYIN_USER_AGENT"),
		ProxyURL:     os.Getenv("HTTP_PROXY_URL"),
		MinDelay:     time.Duration(envInt("SEARCH_MIN_DELAY_MS", 1500)) * time.Millisecond,
		MaxDelay:     time.Duration(envInt("SEARCH_MAX_DELAY_MS", 3500)) * time.Millisecond,
		UseTikHub:    useTikHub,
		TikHubAPIKey: os.Getenv("TIKHUB_API_KEY"),
		TikHubBase:   os.Getenv("TIKHUB_API_BASE"),
	})
	if err != nil {
		log.Fatalf("init client: %v", err)
	}

	if flags.SignOnly {
		kw := flags.Keyword
		if douyin.NeedsTranslation(kw) {
			kw = douyin.TranslateKeyword(kw)
		}
		u, err := client.SignedSearchURL(kw, flags.Count)
		if err != nil {
			log.Fatalf("sign: %v", err)
		}
		fmt.Println(u)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	videos, err := client.Search(ctx, douyin.SearchRequest{Keyword: flags.Keyword, Count: flags.Count, Platform: flags.Platform})
	if err != nil {
		log.Fatalf("search: %v", err)
	}
	log.Printf("[search] got %d videos", len(videos))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(videos)

	if flags.OutDir == "" || len(videos) == 0 {
		return
	}

	workers := max(flags.Workers, 1)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var okCount int
	for _, v := range videos {
		wg.Add(1)
		sem <- struct{}{}
		go func(v douyin.Video) {
			defer wg.Done()
			defer func() { <-sem }()
			path := filepath.Join(flags.OutDir, v.VideoID+".mp4")
			if _, err := client.Download(ctx, v.DownloadURL, path); err != nil {
				log.Printf("[download] %s failed: %v", v.VideoID, err)
				return
			}
			mu.Lock()
			okCount++
			mu.Unlock()
		}(v)
	}
	wg.Wait()
	log.Printf("[download] done %d/%d -> %s", okCount, len(videos), flags.OutDir)
}
