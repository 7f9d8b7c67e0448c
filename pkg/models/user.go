package models

import "time"

// User represents a learner or teacher account
type User struct {
	ID                 int64     `json:"id" db:"id"`
	Email              string    `json:"email" db:"email"`
	Name               string    `json:"name" db:"name"`
	PasswordHash       string    `json:"-" db:"password_hash"`
	LearnedLanguage    string    `json:"learned_language" db:"learned_language"`
	NativeLanguage     string    `json:"native_language" db:"native_language"`
	CEFRLevel          string    `json:"cefr_level" db:"cefr_level"`
	IsTeacher          bool      `json:"is_teacher" db:"is_teacher"`
	CohortID           *int64    `json:"cohort_id,omitempty" db:"cohort_id"`
	TelegramChatID     *int64    `json:"-" db:"telegram_chat_id"`
	ProductiveEnabled  bool      `json:"productive_exercises_enabled" db:"productive_enabled"`
	MaxWordsInPipeline int       `json:"max_words_in_pipeline" db:"max_words_in_pipeline"`
	NotificationHour   int       `json:"notification_hour" db:"notification_hour"` // Hour of day for reminders (0-23)
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// DefaultMaxWordsInPipeline is used when a user has not chosen a pipeline size
const DefaultMaxWordsInPipeline = 10
