package model

import "time"

// CallType distinguishes the two proxy directions in the audit log.
type CallType int

const (
	CallProxy        CallType = 0
	CallReverseProxy CallType = 1
)

// AuditLog records one downstream call made through the gateway. Entries are
// written after each call and are never read back by the gateway itself.
type AuditLog struct {
	ID               string    `json:"id" db:"id"`
	Type             CallType  `json:"type" db:"type"`
	Method           string    `json:"method" db:"method"`
	FromBlockCode    int       `json:"from_block_code" db:"from_block_code"`
	FromBlockVersion int       `json:"from_block_version" db:"from_block_version"`
	FromURL          string    `json:"from_url" db:"from_url"`
	ToBlockCode      int       `json:"to_block_code" db:"to_block_code"`
	ToBlockVersion   int       `json:"to_block_version" db:"to_block_version"`
	ToURL            string    `json:"to_url" db:"to_url"`
	Disabled         bool      `json:"disabled" db:"disabled"`
	CreatedBy        string    `json:"created_by" db:"created_by"`
	UpdatedBy        string    `json:"updated_by" db:"updated_by"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}
