package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	errKeyDisabled        = errors.New("api key disabled")
	errInsufficientCredit = errors.New("insufficient credit")
)

// detail 列最多存这么多字符
const maxDetailLen = 1024

type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) EnsureSchema(ctx context.Context) error {
	const ddlKeys = `
CREATE TABLE IF NOT EXISTS api_keys (
  api_key VARCHAR(128) NOT NULL COMMENT 'Client API key',
  merchant_name VARCHAR(128) NOT NULL DEFAULT '' COMMENT 'Merchant name',
  is_active TINYINT(1) NOT NULL DEFAULT 1 COMMENT '1=active,0=disabled',
  credit BIGINT NOT NULL DEFAULT 0 COMMENT 'Remaining credit (sign/search consume it)',
  total_credit BIGINT NOT NULL DEFAULT 0 COMMENT 'Lifetime credited amount',
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
  PRIMARY KEY (api_key),
  KEY idx_is_active (is_active)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='API keys + credits';`

	const ddlLogs = `
CREATE TABLE IF NOT EXISTS sign_logs (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
  request_id CHAR(36) NOT NULL COMMENT 'UUID returned to client',
  api_key VARCHAR(128) NOT NULL,
  action VARCHAR(32) NOT NULL COMMENT 'sign/search',
  cost BIGINT NOT NULL DEFAULT 0,
  detail TEXT NOT NULL COMMENT 'signed query or search keyword',
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (id),
  UNIQUE KEY uk_request_id (request_id),
  KEY idx_api_key (api_key),
  KEY idx_created_at (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='Billed sign/search calls';`

	if _, err := r.db.ExecContext(ctx, ddlKeys); err != nil {
		return fmt.Errorf("create api_keys: %w", err)
	}
	// 老库补列，重复列 (Error 1060) 忽略
	if _, err := r.db.ExecContext(ctx, `ALTER TABLE api_keys ADD COLUMN total_credit BIGINT NOT NULL DEFAULT 0 COMMENT 'Lifetime credited amount'`); err != nil {
		if !strings.Contains(err.Error(), "Duplicate column name") {
			return err
		}
	}
	if _, err := r.db.ExecContext(ctx, ddlLogs); err != nil {
		return fmt.Errorf("create sign_logs: %w", err)
	}
	return nil
}

func (r *Repo) GetAPIKey(ctx context.Context, key string) (*APIKeyRow, error) {
	const q = `SELECT api_key, merchant_name, is_active, credit, total_credit, created_at, updated_at FROM api_keys WHERE api_key = ?`
	var k APIKeyRow
	var active int
	if err := r.db.QueryRowContext(ctx, q, key).Scan(&k.Key, &k.MerchantName, &active, &k.Credit, &k.TotalCredit, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	k.IsActive = active != 0
	return &k, nil
}

// UpsertAPIKeyAddCredit 不存在则创建；存在则 credit/total_credit 同时加 delta，merchant_name 非空才覆盖
func (r *Repo) UpsertAPIKeyAddCredit(ctx context.Context, apiKey string, merchantName string, creditDelta int64) error {
	const q = `
INSERT INTO api_keys (api_key, merchant_name, is_active, credit, total_credit)
VALUES (?, ?, 1, ?, ?)
ON DUPLICATE KEY UPDATE
  merchant_name = IF(VALUES(merchant_name) <> '', VALUES(merchant_name), merchant_name),
  is_active = 1,
  credit = credit + VALUES(credit),
  total_credit = total_credit + VALUES(total_credit)
`
	_, err := r.db.ExecContext(ctx, q, apiKey, merchantName, creditDelta, creditDelta)
	return err
}

// ConsumeCredit 原子：锁 key、扣额度、写 sign_logs，返回 request_id
func (r *Repo) ConsumeCredit(ctx context.Context, apiKey, action, detail string, cost int64) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var isActive int
	var credit int64
	if err := tx.QueryRowContext(ctx, `SELECT is_active, credit FROM api_keys WHERE api_key = ? FOR UPDATE`, apiKey).Scan(&isActive, &credit); err != nil {
		return "", err
	}
	if isActive == 0 {
		return "", errKeyDisabled
	}
	if credit < cost {
		return "", errInsufficientCredit
	}
	if cost > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE api_keys SET credit = credit - ? WHERE api_key = ?`, cost, apiKey); err != nil {
			return "", err
		}
	}

	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen]
	}
	requestID := uuid.NewString()
	const q = `INSERT INTO sign_logs (request_id, api_key, action, cost, detail) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, requestID, apiKey, action, cost, detail); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return requestID, nil
}

func (r *Repo) GetSignLog(ctx context.Context, apiKey, requestID string) (*SignLog, error) {
	const q = `SELECT id, request_id, api_key, action, cost, detail, created_at FROM sign_logs WHERE request_id = ? AND api_key = ?`
	var l SignLog
	if err := r.db.QueryRowContext(ctx, q, requestID, apiKey).Scan(&l.ID, &l.RequestID, &l.APIKey, &l.Action, &l.Cost, &l.Detail, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 3*time.Second)
}
