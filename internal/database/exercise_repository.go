package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/zeeguu/pkg/models"
)

// ExerciseRepository handles database operations for exercise outcomes
type ExerciseRepository struct{}

// NewExerciseRepository creates a new repository instance
func NewExerciseRepository() *ExerciseRepository {
	return &ExerciseRepository{}
}

// Create records an outcome
func (r *ExerciseRepository) Create(ctx context.Context, o *models.ExerciseOutcome) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	id, err := insert(ctx, `
		INSERT INTO exercise_outcomes (bookmark_id, outcome, source, solving_speed, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		o.BookmarkID, o.Outcome, o.Source, o.SolvingSpeed, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record exercise outcome: %w", err)
	}
	o.ID = id
	return nil
}

// ListForBookmark returns a bookmark's outcomes, oldest first
func (r *ExerciseRepository) ListForBookmark(ctx context.Context, bookmarkID int64) ([]models.ExerciseOutcome, error) {
	var outcomes []models.ExerciseOutcome
	err := list(ctx, &outcomes, `
		SELECT id, bookmark_id, outcome, source, solving_speed, created_at
		FROM exercise_outcomes WHERE bookmark_id = ? ORDER BY created_at, id`, bookmarkID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercise outcomes: %w", err)
	}
	return outcomes, nil
}

// GetUserStatsByPeriod returns outcome counts for a user between two times, inclusive
func (r *ExerciseRepository) GetUserStatsByPeriod(ctx context.Context, userID int64, start, end time.Time) (map[string]int, error) {
	var rows []struct {
		Outcome string `db:"outcome"`
		Count   int    `db:"n"`
	}
	err := list(ctx, &rows, `
		SELECT e.outcome, COUNT(*) AS n FROM exercise_outcomes e
		JOIN bookmarks b ON b.id = e.bookmark_id
		WHERE b.user_id = ? AND e.created_at >= ? AND e.created_at <= ?
		GROUP BY e.outcome`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get exercise stats: %w", err)
	}
	stats := make(map[string]int, len(rows))
	for _, row := range rows {
		stats[row.Outcome] = row.Count
	}
	return stats, nil
}
