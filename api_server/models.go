package main

import "time"

type APIKeyRow struct {
	Key          string
	MerchantName string
	IsActive     bool
	Credit       int64
	TotalCredit  int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SignLog 每次计费调用一条
type SignLog struct {
	ID        int64     `json:"-"`
	RequestID string    `json:"request_id"`
	APIKey    string    `json:"-"`
	Action    string    `json:"action"`
	Cost      int64     `json:"cost"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
