package models

import "time"

// Feed is an RSS or Atom source of articles
type Feed struct {
	ID            int64      `json:"id" db:"id"`
	URL           string     `json:"url" db:"url"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	Language      string     `json:"language" db:"language"`
	ImageURL      string     `json:"image_url" db:"image_url"`
	LastCrawledAt *time.Time `json:"last_crawled_time,omitempty" db:"last_crawled_at"`
	Deactivated   bool       `json:"-" db:"deactivated"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
