package main

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

func md5HexLower(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (s *Server) routesAdmin(mux *http.ServeMux) {
	mux.HandleFunc("/admin", s.handleAdminPage)
	mux.HandleFunc("/admin/api_keys/add", s.handleAdminAddAPIKey)
	mux.HandleFunc("/admin/cookies/import", s.handleAdminImportCookies)
	mux.HandleFunc("/admin/cookies/clear", s.handleAdminClearCookies)
	mux.HandleFunc("/admin/cookies/stats", s.handleAdminCookiesStats)
}

func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeHTML(w, http.StatusOK, adminHTML)
}

func (s *Server) handleAdminAddAPIKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeHTML(w, http.StatusBadRequest, "invalid form")
		return
	}
	if s.cfg.AdminPasswordMD5 == "" {
		writeHTML(w, http.StatusInternalServerError, "ADMIN_PASSWORD_MD5 not set")
		return
	}
	if !s.adminAuth(r) {
		writeHTML(w, http.StatusUnauthorized, "invalid password")
		return
	}

	apiKey := strings.TrimSpace(r.FormValue("api_key"))
	merchant := strings.TrimSpace(r.FormValue("merchant_name"))
	if apiKey == "" {
		writeHTML(w, http.StatusBadRequest, "api_key is required")
		return
	}
	delta, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("credit_delta")), 10, 64)
	if err != nil || delta <= 0 {
		writeHTML(w, http.StatusBadRequest, "credit_delta must be > 0")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.repo.UpsertAPIKeyAddCredit(ctx, apiKey, merchant, delta); err != nil {
		writeHTML(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	// 新增/追加后立即回填 cache
	if err := s.refreshAPIKeyCache(r.Context(), apiKey); err != nil {
		log.Printf("[admin] refresh cache failed: %v", err)
	}
	log.Printf("[admin] api key %s credit +%d", apiKey, delta)
	writeHTML(w, http.StatusOK, "ok")
}

func writeHTML(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

const adminHTML = `<!doctype html>
<html lang="zh-CN">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  <title>a_bogus Admin</title>
  <style>
    body { font-family: -apple-system,BlinkMacSystemFont,Segoe UI,Roboto,Helvetica,Arial; background:#10131a; color:#e6edf3; margin:0; }
    .wrap { max-width: 760px; margin: 40px auto; padding: 0 16px; }
    .card { background:#171c27; border:1px solid #2b3445; border-radius:10px; padding:16px; margin-bottom:14px; }
    h1 { margin: 0 0 8px; font-size: 20px; }
    h2 { margin: 0 0 8px; font-size: 16px; }
    label { display:block; font-size:12px; color:#9aa7bd; margin:10px 0 4px; }
    input, select, textarea { width:100%; box-sizing:border-box; padding:8px 10px; border-radius:8px; border:1px solid #33405a; background:#0f131b; color:#e6edf3; }
    textarea { min-height:110px; font-family: ui-monospace, Menlo, Consolas, monospace; }
    button { margin-top:12px; padding:8px 14px; border-radius:8px; border:1px solid #33405a; background:#fe2c55; color:white; cursor:pointer; }
    .small { font-size:12px; color:#9aa7bd; }
    .out { white-space: pre-wrap; background:#0f131b; border:1px solid #33405a; border-radius:8px; padding:8px 10px; min-height:48px; font-family: ui-monospace, Menlo, Consolas, monospace; }
  </style>
</head>
<body>
  <div class="wrap">
    <div class="card">
      <h1>a_bogus 签名服务</h1>
      <p class="small">写操作都需要 <code>password</code>，后端用 MD5(password) 与 <code>ADMIN_PASSWORD_MD5</code> 比对。</p>
    </div>

    <div class="card">
      <h2>新增/追加 API Key 额度</h2>
      <form method="post" action="/admin/api_keys/add">
        <label>管理员密码</label>
        <input name="password" type="password" required />
        <label>API Key</label>
        <input name="api_key" type="text" required />
        <label>商家名称（可选）</label>
        <input name="merchant_name" type="text" />
        <label>增加额度（credit_delta &gt; 0）</label>
        <input name="credit_delta" type="number" min="1" step="1" value="1000" required />
        <button type="submit">提交</button>
      </form>
    </div>

    <div class="card">
      <h2>导入搜索 Cookie</h2>
      <p class="small">每行一个：JSON 对象，或浏览器里复制的 <code>k=v; k2=v2</code>。<code>overwrite</code> 先清空；<code>evict</code> 池满时淘汰使用最多的。</p>
      <form id="cookieForm">
        <label>管理员密码</label>
        <input name="password" type="password" required />
        <label>模式</label>
        <select name="mode">
          <option value="append">append</option>
          <option value="overwrite">overwrite</option>
          <option value="evict">evict</option>
        </select>
        <label>Cookies</label>
        <textarea name="cookies"></textarea>
        <label>或上传文件</label>
        <input name="cookies_file" type="file" />
        <button type="submit">导入</button>
        <button type="button" id="statsBtn">统计</button>
      </form>
      <div id="cookieOut" class="out"></div>
    </div>
  </div>
<script>
  const out = document.getElementById('cookieOut');
  document.getElementById('cookieForm').addEventListener('submit', async (e) => {
    e.preventDefault();
    const resp = await fetch('/admin/cookies/import', { method: 'POST', body: new FormData(e.target) });
    out.textContent = resp.status + '\n' + await resp.text();
  });
  document.getElementById('statsBtn').addEventListener('click', async () => {
    const resp = await fetch('/admin/cookies/stats');
    out.textContent = resp.status + '\n' + await resp.text();
  });
</script>
</body>
</html>`
