package models

import (
	"time"
)

// TokenInfo mirrors the per-student API token hash kept in redis.
type TokenInfo struct {
	Token           string    `json:"token"`
	RequestCount    int       `json:"request_count"`
	LastRequestTime time.Time `json:"last_request_dttm_utc"`
	CreatedTime     time.Time `json:"created_dttm_utc"`
}
