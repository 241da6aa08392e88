package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxImportBytes = 32 << 20

func (s *Server) adminAuth(r *http.Request) bool {
	if s.cfg.AdminPasswordMD5 == "" {
		return false
	}
	return md5HexLower(r.FormValue("password")) == s.cfg.AdminPasswordMD5
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readFormTextOrFile 上传文件优先，其次文本框
func readFormTextOrFile(r *http.Request, textField, fileField string, maxBytes int64) (string, error) {
	if fileField != "" {
		if f, _, err := r.FormFile(fileField); err == nil {
			defer f.Close()
			b, err := io.ReadAll(io.LimitReader(f, maxBytes))
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(string(b)), nil
		}
	}
	return strings.TrimSpace(r.FormValue(textField)), nil
}

func (s *Server) handleAdminImportCookies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxImportBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form"})
		return
	}
	if !s.adminAuth(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid password"})
		return
	}
	if s.cookies == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "cookie pool disabled"})
		return
	}

	raw, err := readFormTextOrFile(r, "cookies", "cookies_file", maxImportBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read cookies failed: " + err.Error()})
		return
	}
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing cookies"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	res, err := s.cookies.Import(ctx, parseCookieImportMode(r.FormValue("mode")), splitLines(raw))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAdminClearCookies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeHTML(w, http.StatusBadRequest, "invalid form")
		return
	}
	if !s.adminAuth(r) {
		writeHTML(w, http.StatusUnauthorized, "invalid password")
		return
	}
	if s.cookies == nil {
		writeHTML(w, http.StatusServiceUnavailable, "cookie pool disabled")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if err := s.cookies.Clear(ctx); err != nil {
		writeHTML(w, http.StatusInternalServerError, "clear error: "+err.Error())
		return
	}
	writeHTML(w, http.StatusOK, "ok")
}

func (s *Server) handleAdminCookiesStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.cookies == nil {
		writeJSON(w, http.StatusOK, map[string]any{"count": 0, "backend": "none"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	n, err := s.cookies.Count(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":       n,
		"backend":     s.cookies.store.name(),
		"max_cookies": s.cookies.maxCookies,
	})
}
