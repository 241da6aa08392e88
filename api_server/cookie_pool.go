package main

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type CookieImportMode string

const (
	CookieImportAppend    CookieImportMode = "append"
	CookieImportOverwrite CookieImportMode = "overwrite"
	CookieImportEvict     CookieImportMode = "evict"
)

func parseCookieImportMode(s string) CookieImportMode {
	switch m := CookieImportMode(strings.ToLower(strings.TrimSpace(s))); m {
	case CookieImportOverwrite, CookieImportEvict:
		return m
	default:
		return CookieImportAppend
	}
}

type CookieImportResult struct {
	Mode       CookieImportMode `json:"mode"`
	Backend    string           `json:"backend"`
	InputCount int              `json:"input_count"`
	Imported   int              `json:"imported"`
	Invalid    int              `json:"invalid"`
	TotalNow   int64            `json:"total_now"`
	Remaining  []string         `json:"remaining_cookies"` // 池满未写入的原始行
	EvictedIDs []string         `json:"evicted_ids"`
	MaxCookies int64            `json:"max_cookies"`
}

// cookieStore 池子的存储原语；use 计数随 pick 自增
type cookieStore interface {
	name() string
	count(ctx context.Context) (int64, error)
	// put 已存在的 id 只更新内容，不重置 use
	put(ctx context.Context, id, header string) error
	pickLeastUsed(ctx context.Context) (header string, ok bool, err error)
	evictMostUsed(ctx context.Context) (id string, ok bool, err error)
	clear(ctx context.Context) error
}

// CookiePool 搜索用的抖音 web cookie，按使用次数轮转
type CookiePool struct {
	store      cookieStore
	maxCookies int64 // 0 不限
}

func NewCookiePool(store cookieStore, maxCookies int64) *CookiePool {
	return &CookiePool{store: store, maxCookies: maxCookies}
}

// Pick 取使用次数最少的 cookie；池空时 ok=false
func (p *CookiePool) Pick(ctx context.Context) (string, bool, error) {
	return p.store.pickLeastUsed(ctx)
}

func (p *CookiePool) Count(ctx context.Context) (int64, error) {
	return p.store.count(ctx)
}

func (p *CookiePool) Clear(ctx context.Context) error {
	return p.store.clear(ctx)
}

func (p *CookiePool) Import(ctx context.Context, mode CookieImportMode, lines []string) (*CookieImportResult, error) {
	res := &CookieImportResult{
		Mode:       mode,
		Backend:    p.store.name(),
		InputCount: len(lines),
		MaxCookies: p.maxCookies,
	}
	if mode == CookieImportOverwrite {
		if err := p.store.clear(ctx); err != nil {
			return nil, err
		}
	}

	for _, raw := range lines {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		m, ok := parseCookieLine(raw)
		if !ok {
			res.Invalid++
			continue
		}

		if p.maxCookies > 0 {
			n, err := p.store.count(ctx)
			if err != nil {
				return nil, err
			}
			if n >= p.maxCookies && mode != CookieImportEvict {
				res.Remaining = append(res.Remaining, raw)
				continue
			}
			// 淘汰 use 最大的腾位置
			for n >= p.maxCookies {
				victim, ok, err := p.store.evictMostUsed(ctx)
				if err != nil {
					return nil, err
				}
				if !ok {
					break
				}
				res.EvictedIDs = append(res.EvictedIDs, victim)
				n--
			}
			if n >= p.maxCookies {
				res.Remaining = append(res.Remaining, raw)
				continue
			}
		}

		if err := p.store.put(ctx, cookieID(m), cookieHeader(m)); err != nil {
			return nil, fmt.Errorf("write cookie: %w", err)
		}
		res.Imported++
	}

	total, err := p.store.count(ctx)
	if err != nil {
		return nil, err
	}
	res.TotalNow = total
	return res, nil
}

// parseCookieLine 支持 JSON 对象或 "k=v; k2=v2"
func parseCookieLine(line string) (map[string]string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}
	if strings.HasPrefix(line, "{") {
		var m map[string]string
		if err := json.Unmarshal([]byte(line), &m); err != nil || len(m) == 0 {
			return nil, false
		}
		return m, true
	}
	out := map[string]string{}
	for _, part := range strings.Split(line, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// cookieHeader 按 key 排序拼成 Cookie 头
func cookieHeader(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(m[k])
	}
	return sb.String()
}

// cookieID 有登录态用 sessionid，其次 ttwid，都没有就对整串取 sha1
func cookieID(m map[string]string) string {
	for _, k := range []string{"sessionid", "sessionid_ss", "sid_tt", "ttwid"} {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	h := sha1.Sum([]byte(cookieHeader(m)))
	return hex.EncodeToString(h[:])
}

// memCookieStore CACHE_BACKEND=mem 时的单进程实现
type memCookieStore struct {
	mu    sync.Mutex
	seq   int64
	items map[string]*memCookie
}

type memCookie struct {
	header string
	uses   int64
	seq    int64
}

func newMemCookieStore() *memCookieStore {
	return &memCookieStore{items: map[string]*memCookie{}}
}

func (s *memCookieStore) name() string { return "mem" }

func (s *memCookieStore) count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.items)), nil
}

func (s *memCookieStore) put(_ context.Context, id, header string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		it.header = header
		return nil
	}
	s.seq++
	s.items[id] = &memCookie{header: header, seq: s.seq}
	return nil
}

func (s *memCookieStore) pickLeastUsed(context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *memCookie
	for _, it := range s.items {
		if best == nil || it.uses < best.uses || (it.uses == best.uses && it.seq < best.seq) {
			best = it
		}
	}
	if best == nil {
		return "", false, nil
	}
	best.uses++
	return best.header, true, nil
}

func (s *memCookieStore) evictMostUsed(context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var victim string
	var best *memCookie
	for id, it := range s.items {
		if best == nil || it.uses > best.uses || (it.uses == best.uses && it.seq < best.seq) {
			victim, best = id, it
		}
	}
	if best == nil {
		return "", false, nil
	}
	delete(s.items, victim)
	return victim, true, nil
}

func (s *memCookieStore) clear(context.Context) error {
	s.mu.Lock()
	s.items = map[string]*memCookie{}
	s.mu.Unlock()
	return nil
}
