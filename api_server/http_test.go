package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"dy_code/abogus"
	"dy_code/douyin"
	"dy_code/source"
	"dy_code/tokens"
)

const goldenKeywordTest = "OwIODDDDDDdOX5YD56KLfY3q6XuVYmQI0SVkMD2f/aDOqL39HMYg9exoIBGvXY8jwG/-IeEjy4hbT3ohrQ2y0Hwf9W0L/25ksDSkKl5Q5xSSs1X9eghgJ04qmkt5SMx2RvB-rOXmqhZHKRbp09oHmhK4b1dzFgf3qJLz-D=="

type fakeStore struct {
	mu       sync.Mutex
	keys     map[string]*APIKeyRow
	logs     map[string]*SignLog
	getCalls int
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		keys: map[string]*APIKeyRow{
			"k1":   {Key: "k1", MerchantName: "m", IsActive: true, Credit: 10, TotalCredit: 10},
			"poor": {Key: "poor", IsActive: true},
			"off":  {Key: "off", IsActive: false, Credit: 100},
		},
		logs: map[string]*SignLog{},
	}
}

func (f *fakeStore) GetAPIKey(_ context.Context, key string) (*APIKeyRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	row, ok := f.keys[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *row
	return &cp, nil
}

func (f *fakeStore) UpsertAPIKeyAddCredit(_ context.Context, key, merchant string, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.keys[key]
	if !ok {
		row = &APIKeyRow{Key: key}
		f.keys[key] = row
	}
	if merchant != "" {
		row.MerchantName = merchant
	}
	row.IsActive = true
	row.Credit += delta
	row.TotalCredit += delta
	return nil
}

func (f *fakeStore) ConsumeCredit(_ context.Context, key, action, detail string, cost int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.keys[key]
	if !ok {
		return "", sql.ErrNoRows
	}
	if !row.IsActive {
		return "", errKeyDisabled
	}
	if row.Credit < cost {
		return "", errInsufficientCredit
	}
	row.Credit -= cost
	f.seq++
	id := "req-" + strconv.Itoa(f.seq)
	f.logs[id] = &SignLog{RequestID: id, APIKey: key, Action: action, Cost: cost, Detail: detail}
	return id, nil
}

func (f *fakeStore) GetSignLog(_ context.Context, key, id string) (*SignLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.logs[id]
	if !ok || l.APIKey != key {
		return nil, sql.ErrNoRows
	}
	return l, nil
}

func (f *fakeStore) credit(key string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[key].Credit
}

type fakeSearcher struct {
	got    douyin.SearchRequest
	videos []douyin.Video
	err    error
}

func (f *fakeSearcher) Search(_ context.Context, req douyin.SearchRequest) ([]douyin.Video, error) {
	f.got = req
	return f.videos, f.err
}

type testEnv struct {
	srv     *Server
	store   *fakeStore
	search  *fakeSearcher
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	search := &fakeSearcher{videos: []douyin.Video{{VideoID: "1", DownloadURL: "https://v/1.mp4"}}}
	cfg := Config{SignCost: 1, SearchCost: 5, AdminPasswordMD5: md5HexLower("pw")}
	srv := NewServer(cfg, store, newMemAPIKeyCache(0), NewCookiePool(newMemCookieStore(), 0), search)
	srv.signer = abogus.NewSigner(abogus.WithClock(source.Fixed(1700000000000)), abogus.WithRand(source.NewSequence(0)))
	srv.tokens = tokens.New(source.Fixed(1700000000000), source.Seeded(1))
	return &testEnv{srv: srv, store: store, search: search, handler: srv.routes()}
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr.Code, rr.Body.Bytes()
}

func (e *testEnv) get(t *testing.T, path string) (int, []byte) {
	t.Helper()
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	body, _ := io.ReadAll(rr.Body)
	return rr.Code, body
}

func decodeMap(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return m
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	code, body := e.get(t, "/healthz")
	if code != http.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz = %d %q", code, body)
	}
}

func TestAPIAuth(t *testing.T) {
	tests := []struct {
		name string
		key  string
		code int
		err  string
	}{
		{"missing", "", http.StatusUnauthorized, "missing key"},
		{"unknown", "nope", http.StatusUnauthorized, "invalid key"},
		{"disabled", "off", http.StatusUnauthorized, "key disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			code, body := e.post(t, "/api", url.Values{"key": {tt.key}, "action": {"tokens"}})
			if code != tt.code {
				t.Fatalf("code = %d, want %d (%s)", code, tt.code, body)
			}
			if got := decodeMap(t, body)["error"]; got != tt.err {
				t.Errorf("error = %v, want %q", got, tt.err)
			}
		})
	}
}

func TestAPIInvalidAction(t *testing.T) {
	e := newTestEnv(t)
	code, _ := e.post(t, "/api", url.Values{"key": {"k1"}, "action": {"dance"}})
	if code != http.StatusBadRequest {
		t.Fatalf("code = %d", code)
	}
}

func TestAPISign(t *testing.T) {
	e := newTestEnv(t)
	code, body := e.post(t, "/api", url.Values{"key": {"k1"}, "action": {"sign"}, "query": {"keyword=test"}})
	if code != http.StatusOK {
		t.Fatalf("code = %d (%s)", code, body)
	}
	m := decodeMap(t, body)
	if m["a_bogus"] != goldenKeywordTest {
		t.Errorf("a_bogus = %v", m["a_bogus"])
	}
	if m["query"] != "keyword=test" {
		t.Errorf("query = %v", m["query"])
	}
	if m["signed_query"] != "keyword=test&a_bogus="+url.QueryEscape(goldenKeywordTest) {
		t.Errorf("signed_query = %v", m["signed_query"])
	}
	id, _ := m["request_id"].(string)
	if id == "" {
		t.Fatal("missing request_id")
	}
	if got := e.store.credit("k1"); got != 9 {
		t.Errorf("credit = %d, want 9", got)
	}
	if l := e.store.logs[id]; l == nil || l.Action != "sign" || l.Detail != "keyword=test" {
		t.Errorf("sign log = %+v", l)
	}
}

func TestAPISignWithTokens(t *testing.T) {
	e := newTestEnv(t)
	code, body := e.post(t, "/api", url.Values{
		"key": {"k1"}, "action": {"sign"}, "query": {"keyword=a&msToken=old"}, "with_tokens": {"1"},
	})
	if code != http.StatusOK {
		t.Fatalf("code = %d (%s)", code, body)
	}
	m := decodeMap(t, body)
	ms, _ := m["msToken"].(string)
	fp, _ := m["verifyFp"].(string)
	if len(ms) != 128 || !strings.HasPrefix(fp, "verify_") {
		t.Fatalf("tokens = %q %q", ms, fp)
	}
	params, err := abogus.ParseQuery(m["query"].(string))
	if err != nil {
		t.Fatal(err)
	}
	// msToken 原位替换，verifyFp 追加在末尾
	if params[1].Key != "msToken" || params[1].Value != ms {
		t.Errorf("params[1] = %+v", params[1])
	}
	if params[2].Key != "verifyFp" || params[2].Value != fp {
		t.Errorf("params[2] = %+v", params[2])
	}
	want := e.srv.signer.SignQuery(m["query"].(string))
	if m["a_bogus"] != want {
		t.Errorf("a_bogus does not cover returned query")
	}
}

func TestAPISignErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		query string
		code  int
	}{
		{"missing query", "k1", "", http.StatusBadRequest},
		{"bad escape", "k1", "a=%zz", http.StatusBadRequest},
		{"empty param key", "k1", "=x&a=1", http.StatusBadRequest},
		{"no credit", "poor", "a=1", http.StatusPaymentRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			code, body := e.post(t, "/api", url.Values{"key": {tt.key}, "action": {"sign"}, "query": {tt.query}})
			if code != tt.code {
				t.Fatalf("code = %d, want %d (%s)", code, tt.code, body)
			}
			if len(e.store.logs) != 0 {
				t.Errorf("unexpected sign log on failure")
			}
		})
	}
}

func TestAPITokensFree(t *testing.T) {
	e := newTestEnv(t)
	code, body := e.post(t, "/api", url.Values{"key": {"k1"}, "action": {"tokens"}})
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	m := decodeMap(t, body)
	if ms, _ := m["msToken"].(string); len(ms) != 128 {
		t.Errorf("msToken len = %d", len(ms))
	}
	if e.store.credit("k1") != 10 {
		t.Errorf("tokens should not consume credit")
	}
}

func TestAPISearch(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.srv.cookies.Import(context.Background(), CookieImportAppend, []string{"ttwid=abc; odin_tt=x"}); err != nil {
		t.Fatal(err)
	}
	code, body := e.post(t, "/api", url.Values{"key": {"k1"}, "action": {"search"}, "keyword": {"food"}, "count": {"500"}})
	if code != http.StatusOK {
		t.Fatalf("code = %d (%s)", code, body)
	}
	if e.search.got.Keyword != "food" || e.search.got.Count != maxSearchCount {
		t.Errorf("search req = %+v", e.search.got)
	}
	if e.search.got.Cookie != "odin_tt=x; ttwid=abc" {
		t.Errorf("cookie = %q", e.search.got.Cookie)
	}
	m := decodeMap(t, body)
	if vids, _ := m["videos"].([]any); len(vids) != 1 {
		t.Errorf("videos = %v", m["videos"])
	}
	if e.store.credit("k1") != 5 {
		t.Errorf("credit = %d, want 5", e.store.credit("k1"))
	}
}

func TestAPISearchErrors(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		err  error
		code int
	}{
		{"missing keyword", url.Values{}, nil, http.StatusBadRequest},
		{"bad count", url.Values{"keyword": {"x"}, "count": {"-1"}}, nil, http.StatusBadRequest},
		{"platform", url.Values{"keyword": {"x"}, "platform": {"tiktok"}}, douyin.ErrUnsupportedPlatform, http.StatusBadRequest},
		{"upstream", url.Values{"keyword": {"x"}}, &douyin.StatusError{Code: 403}, http.StatusBadGateway},
		{"timeout", url.Values{"keyword": {"x"}}, context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", url.Values{"keyword": {"x"}}, errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.search.err = tt.err
			tt.form.Set("key", "k1")
			tt.form.Set("action", "search")
			code, body := e.post(t, "/api", tt.form)
			if code != tt.code {
				t.Fatalf("code = %d, want %d (%s)", code, tt.code, body)
			}
			if e.store.credit("k1") != 10 {
				t.Errorf("failed search consumed credit")
			}
		})
	}
}

func TestAPIStatus(t *testing.T) {
	e := newTestEnv(t)
	_, body := e.post(t, "/api", url.Values{"key": {"k1"}, "action": {"sign"}, "query": {"a=1"}})
	id := decodeMap(t, body)["request_id"].(string)

	code, body := e.post(t, "/api", url.Values{"key": {"k1"}, "action": {"status"}})
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if m := decodeMap(t, body); m["credit"] != float64(9) || m["total_credit"] != float64(10) {
		t.Errorf("status = %v", m)
	}

	code, body = e.post(t, "/api", url.Values{"key": {"k1"}, "action": {"status"}, "request_id": {id}})
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if m := decodeMap(t, body); m["action"] != "sign" || m["detail"] != "a=1" {
		t.Errorf("log = %v", m)
	}

	code, _ = e.post(t, "/api", url.Values{"key": {"k1"}, "action": {"status"}, "request_id": {"missing"}})
	if code != http.StatusNotFound {
		t.Errorf("missing request code = %d", code)
	}
}

func TestAPIKeyCacheBackfill(t *testing.T) {
	e := newTestEnv(t)
	for i := 0; i < 3; i++ {
		if code, _ := e.post(t, "/api", url.Values{"key": {"k1"}, "action": {"tokens"}}); code != http.StatusOK {
			t.Fatalf("code = %d", code)
		}
	}
	if e.store.getCalls != 1 {
		t.Fatalf("db lookups = %d, want 1", e.store.getCalls)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.post(t, "/api", url.Values{"key": {"k1"}, "action": {"tokens"}})
	e.post(t, "/api", url.Values{"key": {"nope"}, "action": {"tokens"}})

	code, body := e.get(t, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	for _, want := range []string{
		`dy_api_requests_total{action="tokens",code="200"} 1`,
		`dy_api_requests_total{action="invalid",code="401"} 1`,
		`dy_api_action_duration_seconds_count{action="tokens"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
