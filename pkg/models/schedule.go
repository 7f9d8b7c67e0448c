package models

import "time"

// LearningCycle is the phase a scheduled bookmark is practised in
type LearningCycle string

const (
	// Receptive: recognise the meaning of the word
	CycleReceptive LearningCycle = "receptive"
	// Productive: produce the word from its translation
	CycleProductive LearningCycle = "productive"
)

// Schedule tracks spaced-repetition state for a bookmark in practice
type Schedule struct {
	BookmarkID         int64         `json:"bookmark_id" db:"bookmark_id"`
	LearningCycle      LearningCycle `json:"learning_cycle" db:"learning_cycle"`
	CoolingInterval    int           `json:"cooling_interval" db:"cooling_interval"` // minutes
	ConsecutiveCorrect int           `json:"consecutive_correct_answers" db:"consecutive_correct"`
	NextPracticeTime   time.Time     `json:"next_practice_time" db:"next_practice_time"`
	LastOutcome        string        `json:"last_outcome" db:"last_outcome"`
	EasinessFactor     float64       `json:"-" db:"easiness_factor"` // only used by SM2
	Repetitions        int           `json:"-" db:"repetitions"`
}

// ScheduledBookmark is a bookmark together with its schedule
type ScheduledBookmark struct {
	BookmarkView
	Schedule *Schedule `json:"schedule,omitempty"`
}
