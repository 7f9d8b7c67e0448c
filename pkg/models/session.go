package models

import "time"

// Session is an authenticated API session identified by an opaque token
type Session struct {
	ID         string    `json:"session" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	LastUsedAt time.Time `json:"last_used_at" db:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
}

// UniqueCode is a short-lived code mailed to a user, e.g. for password reset
type UniqueCode struct {
	Email     string    `db:"email"`
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"`
}
