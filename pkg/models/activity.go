package models

import "time"

// UserActivity is a UI event reported by a client
type UserActivity struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Event     string    `json:"event" db:"event"`
	Value     string    `json:"value" db:"value"`
	ExtraData string    `json:"extra_data" db:"extra_data"`
	ArticleID *int64    `json:"article_id,omitempty" db:"article_id"`
	CreatedAt time.Time `json:"time" db:"created_at"`
}
