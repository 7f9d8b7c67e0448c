package models

import "time"

// ExerciseOutcome is a single recorded practice attempt on a bookmark
type ExerciseOutcome struct {
	ID           int64     `json:"id" db:"id"`
	BookmarkID   int64     `json:"bookmark_id" db:"bookmark_id"`
	Outcome      string    `json:"outcome" db:"outcome"`
	Source       string    `json:"source" db:"source"`
	SolvingSpeed int       `json:"solving_speed" db:"solving_speed"` // milliseconds
	CreatedAt    time.Time `json:"time" db:"created_at"`
}
