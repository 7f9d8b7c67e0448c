package models

import "time"

// Cohort is a teacher-managed classroom of students
type Cohort struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	InviteCode  string    `json:"inv_code" db:"invite_code"`
	Language    string    `json:"language_code" db:"language"`
	MaxStudents int       `json:"max_students" db:"max_students"`
	CEFRLevel   string    `json:"declared_level" db:"cefr_level"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CohortInfo adds derived fields returned to teachers
type CohortInfo struct {
	Cohort
	StudentCount int `json:"cur_students" db:"student_count"`
}

// StudentActivity summarises what a student did in a time window
type StudentActivity struct {
	UserID         int64  `json:"id" db:"id"`
	Name           string `json:"name" db:"name"`
	Email          string `json:"email" db:"email"`
	BookmarkCount  int    `json:"bookmark_count" db:"bookmark_count"`
	ExerciseCount  int    `json:"exercise_count" db:"exercise_count"`
	LearnedCount   int    `json:"learned_count" db:"learned_count"`
	ArticlesOpened int    `json:"articles_opened" db:"articles_opened"`
}
