package models

import "time"

// Bookmark is a user's saved translation encountered while reading
type Bookmark struct {
	ID          int64      `json:"id" db:"id"`
	UserID      int64      `json:"user_id" db:"user_id"`
	MeaningID   int64      `json:"meaning_id" db:"meaning_id"`
	ArticleID   *int64     `json:"article_id,omitempty" db:"article_id"`
	Context     string     `json:"context" db:"context"`
	Starred     bool       `json:"starred" db:"starred"`
	Learned     bool       `json:"learned" db:"learned"`
	LearnedAt   *time.Time `json:"learned_time,omitempty" db:"learned_at"`
	FitForStudy bool       `json:"fit_for_study" db:"fit_for_study"`
	CreatedAt   time.Time  `json:"time" db:"created_at"`
}

// BookmarkView joins a bookmark with its meaning, as returned to clients
type BookmarkView struct {
	Bookmark
	Origin              string `json:"from" db:"origin"`
	OriginLanguage      string `json:"from_lang" db:"origin_language"`
	Translation         string `json:"to" db:"translation"`
	TranslationLanguage string `json:"to_lang" db:"translation_language"`
	Frequency           string `json:"frequency" db:"frequency"`
	PhraseType          string `json:"phrase_type" db:"phrase_type"`
}

// BookmarksForDay groups bookmarks created on the same calendar day
type BookmarksForDay struct {
	Date      string         `json:"date"`
	Bookmarks []BookmarkView `json:"bookmarks"`
}
