package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dy_code/abogus"
	"dy_code/douyin"
	"dy_code/tokens"
)

const (
	defaultSearchCount = 20
	maxSearchCount     = 100
)

// keyStore 由 *Repo 实现
type keyStore interface {
	GetAPIKey(ctx context.Context, key string) (*APIKeyRow, error)
	UpsertAPIKeyAddCredit(ctx context.Context, apiKey, merchantName string, creditDelta int64) error
	ConsumeCredit(ctx context.Context, apiKey, action, detail string, cost int64) (string, error)
	GetSignLog(ctx context.Context, apiKey, requestID string) (*SignLog, error)
}

// APIKeyCache redis 或进程内实现，见 CACHE_BACKEND
type APIKeyCache interface {
	Get(ctx context.Context, key string) (*APIKeyRow, bool, error)
	Set(ctx context.Context, row *APIKeyRow) error
	Close() error
}

type searcher interface {
	Search(ctx context.Context, req douyin.SearchRequest) ([]douyin.Video, error)
}

type Server struct {
	cfg     Config
	repo    keyStore
	cache   APIKeyCache
	cookies *CookiePool
	search  searcher
	signer  *abogus.Signer
	tokens  *tokens.Generator
	metrics *metrics
}

func NewServer(cfg Config, repo keyStore, cache APIKeyCache, cookies *CookiePool, search searcher) *Server {
	return &Server{
		cfg:     cfg,
		repo:    repo,
		cache:   cache,
		cookies: cookies,
		search:  search,
		signer:  abogus.NewSigner(),
		tokens:  tokens.New(nil, nil),
		metrics: newMetrics(),
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", s.metrics.handler())
	mux.HandleFunc("/api", s.handleAPI)
	s.routesAdmin(mux)
	return mux
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
	action := "invalid"
	defer func() { s.metrics.observe(action, rec.code, start) }()

	// form-data / x-www-form-urlencoded / query 都行
	if err := r.ParseForm(); err != nil {
		writeJSON(rec, http.StatusBadRequest, map[string]string{"error": "invalid form"})
		return
	}

	key := strings.TrimSpace(r.FormValue("key"))
	if key == "" {
		writeJSON(rec, http.StatusUnauthorized, map[string]string{"error": "missing key"})
		return
	}
	// 先读 cache，miss 再回源 DB 并回填
	row, err := s.validateAPIKey(r.Context(), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(rec, http.StatusUnauthorized, map[string]string{"error": "invalid key"})
			return
		}
		log.Printf("[api] validate key failed: %v", err)
		writeJSON(rec, http.StatusInternalServerError, map[string]string{"error": "auth error"})
		return
	}
	if !row.IsActive {
		writeJSON(rec, http.StatusUnauthorized, map[string]string{"error": "key disabled"})
		return
	}

	switch a := strings.ToLower(strings.TrimSpace(r.FormValue("action"))); a {
	case "sign":
		action = a
		s.handleSign(rec, r, key)
	case "tokens":
		action = a
		s.handleTokens(rec)
	case "search":
		action = a
		s.handleSearch(rec, r, key)
	case "status":
		action = a
		s.handleStatus(rec, r, key)
	default:
		writeJSON(rec, http.StatusBadRequest, map[string]string{"error": "invalid action"})
	}
}

// handleSign query 原样按顺序签名；with_tokens=1 时先追加 msToken/verifyFp
func (s *Server) handleSign(w http.ResponseWriter, r *http.Request, apiKey string) {
	raw := strings.TrimSpace(r.FormValue("query"))
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing query"})
		return
	}
	params, err := abogus.ParseQuery(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid query"})
		return
	}

	out := map[string]string{}
	if r.FormValue("with_tokens") == "1" {
		msToken, verifyFp := s.tokens.MsToken(), s.tokens.VerifyFp()
		params.Set("msToken", msToken)
		params.Set("verifyFp", verifyFp)
		out["msToken"] = msToken
		out["verifyFp"] = verifyFp
	}

	ab, err := s.signer.Sign(params)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	query := params.Encode()

	requestID, ok := s.charge(w, r.Context(), apiKey, "sign", query, s.cfg.SignCost)
	if !ok {
		return
	}
	out["a_bogus"] = ab
	out["query"] = query
	out["signed_query"] = query + "&a_bogus=" + url.QueryEscape(ab)
	out["request_id"] = requestID
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTokens(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{
		"msToken":  s.tokens.MsToken(),
		"verifyFp": s.tokens.VerifyFp(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, apiKey string) {
	keyword := strings.TrimSpace(r.FormValue("keyword"))
	if keyword == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing keyword"})
		return
	}
	count := defaultSearchCount
	if v := strings.TrimSpace(r.FormValue("count")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid count"})
			return
		}
		count = min(n, maxSearchCount)
	}
	if s.search == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "search disabled"})
		return
	}

	req := douyin.SearchRequest{
		Keyword:  keyword,
		Count:    count,
		Platform: strings.ToLower(strings.TrimSpace(r.FormValue("platform"))),
		Cookie:   s.pickCookie(r.Context()),
	}
	videos, err := s.search.Search(r.Context(), req)
	if err != nil {
		var se *douyin.StatusError
		switch {
		case errors.Is(err, douyin.ErrUnsupportedPlatform):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.As(err, &se):
			log.Printf("[api] search upstream status %d", se.Code)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream status " + strconv.Itoa(se.Code)})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "search timeout"})
		default:
			log.Printf("[api] search failed: %v", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "search failed"})
		}
		return
	}
	s.metrics.searchVids.Observe(float64(len(videos)))
	if videos == nil {
		videos = []douyin.Video{}
	}

	requestID, ok := s.charge(w, r.Context(), apiKey, "search", keyword, s.cfg.SearchCost)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"videos": videos, "request_id": requestID})
}

// pickCookie 池空或出错返回空串，由 douyin 客户端回退到 DOUYIN_COOKIE
func (s *Server) pickCookie(parent context.Context) string {
	if s.cookies == nil {
		return ""
	}
	ctx, cancel := withTimeout(parent)
	defer cancel()
	c, ok, err := s.cookies.Pick(ctx)
	switch {
	case err != nil:
		log.Printf("[api] cookie pool pick failed: %v", err)
		s.metrics.poolPicks.WithLabelValues("error").Inc()
		return ""
	case !ok:
		s.metrics.poolPicks.WithLabelValues("empty").Inc()
		return ""
	}
	s.metrics.poolPicks.WithLabelValues("hit").Inc()
	return c
}

// charge 扣额度并写日志；失败时已写好响应，返回 ok=false
func (s *Server) charge(w http.ResponseWriter, parent context.Context, apiKey, action, detail string, cost int64) (string, bool) {
	ctx, cancel := withTimeout(parent)
	defer cancel()
	requestID, err := s.repo.ConsumeCredit(ctx, apiKey, action, detail, cost)
	if err != nil {
		switch {
		case errors.Is(err, errInsufficientCredit):
			writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "insufficient credit"})
		case errors.Is(err, errKeyDisabled):
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "key disabled"})
		case errors.Is(err, sql.ErrNoRows):
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid key"})
		default:
			log.Printf("[api] consume credit failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return "", false
	}
	s.metrics.credit.WithLabelValues(action).Add(float64(cost))
	// 扣减后刷新 cache，避免额度变脏
	if err := s.refreshAPIKeyCache(parent, apiKey); err != nil {
		log.Printf("[api] refresh cache failed: %v", err)
	}
	return requestID, true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, apiKey string) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if id := strings.TrimSpace(r.FormValue("request_id")); id != "" {
		l, err := s.repo.GetSignLog(ctx, apiKey, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "request not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db error"})
			return
		}
		writeJSON(w, http.StatusOK, l)
		return
	}

	// 额度直接读 DB，不走 cache
	row, err := s.repo.GetAPIKey(ctx, apiKey)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"merchant_name": row.MerchantName,
		"credit":        row.Credit,
		"total_credit":  row.TotalCredit,
		"sign_cost":     s.cfg.SignCost,
		"search_cost":   s.cfg.SearchCost,
	})
}

func (s *Server) validateAPIKey(parent context.Context, key string) (*APIKeyRow, error) {
	ctx, cancel := withTimeout(parent)
	defer cancel()

	if s.cache != nil {
		if row, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			return row, nil
		}
	}
	row, err := s.repo.GetAPIKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, row)
	}
	return row, nil
}

func (s *Server) refreshAPIKeyCache(parent context.Context, key string) error {
	if s.cache == nil {
		return nil
	}
	ctx, cancel := withTimeout(parent)
	defer cancel()
	row, err := s.repo.GetAPIKey(ctx, key)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, row)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Printf("write json error: %v", err)
	}
}
