// Package douyin 抖音 web 搜索/下载。签名交给 abogus，token 交给 tokens，这里只管 HTTP。
package douyin

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"dy_code/abogus"
	"dy_code/source"
	"dy_code/tokens"
)

const (
	DouyinDomain         = "https://www.douyin.com"
	VideoSearchEndpoint  = DouyinDomain + "/aweme/v1/web/search/item/"
	DefaultTikHubAPIBase = "https://api.tikhub.io"
	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36"

	PlatformDouyin = "douyin"
	PlatformTikTok = "tiktok"
)

// ErrUnsupportedPlatform 免费接口只支持抖音
var ErrUnsupportedPlatform = errors.New("douyin: free search only supports platform douyin")

// StatusError 非 200 响应
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("douyin: http %d: %s", e.Code, body)
}

// Config 客户端配置，零值字段用默认值
type Config struct {
	Cookie    string
	UserAgent string
	ProxyURL  string

	// 每次搜索前随机等待 [MinDelay, MaxDelay]，模拟人工操作
	MinDelay time.Duration
	MaxDelay time.Duration
	// 全局限速（次/秒），<=0 不限
	RPS float64

	UseTikHub    bool
	TikHubAPIKey string
	TikHubBase   string

	SearchEndpoint string
	Timeout        time.Duration
}

// Client 可并发使用
type Client struct {
	cfg     Config
	http    *http.Client
	signer  *abogus.Signer
	tokens  *tokens.Generator
	limiter *rate.Limiter
	rand    source.Rand
	sleep   func(ctx context.Context, d time.Duration) error
}

// ClientOption 构造选项
type ClientOption func(*Client)

// WithSigner 替换签名器
func WithSigner(s *abogus.Signer) ClientOption {
	return func(c *Client) { c.signer = s }
}

// WithTokens 替换 token 生成器
func WithTokens(g *tokens.Generator) ClientOption {
	return func(c *Client) { c.tokens = g }
}

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithRand 随机延迟用的随机源
func WithRand(r source.Rand) ClientOption {
	return func(c *Client) { c.rand = r }
}

// NewClient 代理地址非法时返回错误
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.SearchEndpoint == "" {
		cfg.SearchEndpoint = VideoSearchEndpoint
	}
	if cfg.TikHubBase == "" {
		cfg.TikHubBase = DefaultTikHubAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}

	// 目标站证书链经常被中间代理替换，不校验
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("douyin: invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout, Transport: transport},
		signer: abogus.NewSigner(),
		tokens: tokens.New(nil, nil),
		rand:   source.Crypto(),
		sleep:  sleepCtx,
	}
	if cfg.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SearchRequest 一次搜索
type SearchRequest struct {
	Keyword  string
	Count    int
	Platform string // 缺省 douyin
	Cookie   string // 非空时覆盖 Config.Cookie
}

// Search 按关键词搜索视频
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Video, error) {
	if req.Platform == "" {
		req.Platform = PlatformDouyin
	}
	if req.Count <= 0 {
		req.Count = 20
	}
	if req.Cookie == "" {
		req.Cookie = c.cfg.Cookie
	}
	log.Printf("[search] %s keyword=%q count=%d", req.Platform, req.Keyword, req.Count)

	if c.cfg.UseTikHub && c.cfg.TikHubAPIKey != "" {
		return c.searchTikHub(ctx, req)
	}
	if req.Platform != PlatformDouyin {
		log.Printf("[search] free search only supports douyin, got %q", req.Platform)
		return nil, ErrUnsupportedPlatform
	}
	return c.searchDouyin(ctx, req)
}

// SignedSearchURL 生成带 a_bogus 的完整搜索 URL，不发请求
func (c *Client) SignedSearchURL(keyword string, count int) (string, error) {
	params := SearchParams(keyword, count, c.tokens)
	ab, err := c.signer.Sign(params)
	if err != nil {
		return "", err
	}
	params.Add("a_bogus", ab)
	return c.cfg.SearchEndpoint + "?" + params.Encode(), nil
}

func (c *Client) pace(ctx context.Context) error {
	if c.cfg.MaxDelay > 0 {
		d := c.cfg.MinDelay
		if span := c.cfg.MaxDelay - c.cfg.MinDelay; span > 0 {
			d += time.Duration(c.rand.Intn(int(span/time.Millisecond)+1)) * time.Millisecond
		}
		log.Printf("[search] waiting %.1fs before search", d.Seconds())
		if err := c.sleep(ctx, d); err != nil {
			return err
		}
	}
	if c.limiter != nil {
		return c.limiter.Wait(ctx)
	}
	return nil
}

func (c *Client) searchDouyin(ctx context.Context, sr SearchRequest) ([]Video, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	keyword := sr.Keyword
	if NeedsTranslation(keyword) {
		keyword = TranslateKeyword(keyword)
	}

	fullURL, err := c.SignedSearchURL(keyword, sr.Count)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	c.setBrowserHeaders(req, DouyinDomain+"/search/"+url.PathEscape(keyword))
	if sr.Cookie != "" {
		req.Header.Set("Cookie", sr.Cookie)
	} else {
		log.Printf("[search] no douyin cookie configured, may hit verify_check")
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return ParseSearchResults(body)
}

func (c *Client) setBrowserHeaders(req *http.Request, referer string) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Referer", referer)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Sec-Ch-Ua", `"Chromium";v="130", "Google Chrome";v="130", "Not?A_Brand";v="99"`)
	req.Header.Set("Sec-Ch-Ua-Mobile", "?0")
	req.Header.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
}

func (c *Client) searchTikHub(ctx context.Context, sr SearchRequest) ([]Video, error) {
	path := "/api/v1/douyin/web/fetch_video_search_result"
	if sr.Platform != PlatformDouyin {
		path = "/api/v1/tiktok/web/fetch_video_search_result"
	}
	q := url.Values{}
	q.Set("keyword", sr.Keyword)
	q.Set("count", strconv.Itoa(sr.Count))
	q.Set("offset", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.cfg.TikHubBase, "/")+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.TikHubAPIKey)
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var root struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("parse tikhub response: %w", err)
	}
	return parseSearchMap(root.Data), nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// Download 流式下载视频到 savePath，返回写入字节数。失败时删除半截文件
func (c *Client) Download(ctx context.Context, videoURL, savePath string) (int64, error) {
	log.Printf("[download] %s", videoURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Referer", DouyinDomain+"/")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{Code: resp.StatusCode}
	}

	if dir := filepath.Dir(savePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}
	f, err := os.Create(savePath)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(savePath)
		return 0, fmt.Errorf("download %s: %w", videoURL, err)
	}
	log.Printf("[download] saved %s (%d bytes)", savePath, n)
	return n, nil
}
