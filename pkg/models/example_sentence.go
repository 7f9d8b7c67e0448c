package models

import "time"

// ExampleSentence illustrates a meaning in context
type ExampleSentence struct {
	ID          int64     `json:"id" db:"id"`
	MeaningID   int64     `json:"meaning_id" db:"meaning_id"`
	Sentence    string    `json:"sentence" db:"sentence"`
	Translation string    `json:"translation" db:"translation"`
	CEFRLevel   string    `json:"cefr_level" db:"cefr_level"`
	Source      string    `json:"source" db:"source"` // "llm" or "article"
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
