package models

import "time"

// Article is a text a user can read and bookmark words in
type Article struct {
	ID           int64      `json:"id" db:"id"`
	URL          string     `json:"url" db:"url"`
	Title        string     `json:"title" db:"title"`
	Authors      string     `json:"authors" db:"authors"`
	Content      string     `json:"content,omitempty" db:"content"`
	Summary      string     `json:"summary" db:"summary"`
	Language     string     `json:"language" db:"language"`
	WordCount    int        `json:"metrics_word_count" db:"word_count"`
	FKDifficulty int        `json:"metrics_difficulty" db:"fk_difficulty"`
	CEFRLevel    string     `json:"cefr_level" db:"cefr_level"`
	PublishedAt  *time.Time `json:"published_time,omitempty" db:"published_at"`
	FeedID       *int64     `json:"feed_id,omitempty" db:"feed_id"`
	UploaderID   *int64     `json:"uploader_id,omitempty" db:"uploader_id"`
	Broken       bool       `json:"-" db:"broken"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// UserArticle holds a user's interaction with an article
type UserArticle struct {
	UserID    int64      `json:"user_id" db:"user_id"`
	ArticleID int64      `json:"article_id" db:"article_id"`
	Opened    *time.Time `json:"opened,omitempty" db:"opened"`
	Liked     bool       `json:"liked" db:"liked"`
	Starred   bool       `json:"starred" db:"starred"`
}

// ArticleWithUserInfo is an article as seen by a specific user
type ArticleWithUserInfo struct {
	Article
	Opened  *time.Time `json:"opened,omitempty" db:"opened"`
	Liked   bool       `json:"liked" db:"liked"`
	Starred bool       `json:"starred" db:"starred"`
}
