package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/zeeguu/pkg/models"
)

const scheduleColumns = `s.bookmark_id, s.learning_cycle, s.cooling_interval, s.consecutive_correct,
	s.next_practice_time, s.last_outcome, s.easiness_factor, s.repetitions`

// scheduledRow is a bookmark row joined with its schedule
type scheduledRow struct {
	models.BookmarkView
	models.Schedule
}

func (r scheduledRow) toModel() models.ScheduledBookmark {
	s := r.Schedule
	return models.ScheduledBookmark{BookmarkView: r.BookmarkView, Schedule: &s}
}

// ScheduleRepository handles database operations for spaced-repetition schedules
type ScheduleRepository struct{}

// NewScheduleRepository creates a new repository instance
func NewScheduleRepository() *ScheduleRepository {
	return &ScheduleRepository{}
}

// Get returns the schedule of a bookmark
func (r *ScheduleRepository) Get(ctx context.Context, bookmarkID int64) (*models.Schedule, error) {
	var s models.Schedule
	if err := get(ctx, &s, "SELECT "+scheduleColumns+" FROM schedules s WHERE s.bookmark_id = ?", bookmarkID); err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &s, nil
}

// Upsert creates or replaces the schedule of a bookmark
func (r *ScheduleRepository) Upsert(ctx context.Context, s *models.Schedule) error {
	err := execAny(ctx, `
		INSERT INTO schedules (
			bookmark_id, learning_cycle, cooling_interval, consecutive_correct,
			next_practice_time, last_outcome, easiness_factor, repetitions
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (bookmark_id) DO UPDATE SET
			learning_cycle = excluded.learning_cycle,
			cooling_interval = excluded.cooling_interval,
			consecutive_correct = excluded.consecutive_correct,
			next_practice_time = excluded.next_practice_time,
			last_outcome = excluded.last_outcome,
			easiness_factor = excluded.easiness_factor,
			repetitions = excluded.repetitions`,
		s.BookmarkID, s.LearningCycle, s.CoolingInterval, s.ConsecutiveCorrect,
		s.NextPracticeTime, s.LastOutcome, s.EasinessFactor, s.Repetitions,
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

// Delete removes the schedule of a bookmark, if any
func (r *ScheduleRepository) Delete(ctx context.Context, bookmarkID int64) error {
	if err := execAny(ctx, "DELETE FROM schedules WHERE bookmark_id = ?", bookmarkID); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

// ListDue returns the user's scheduled bookmarks in a language that are due at now
func (r *ScheduleRepository) ListDue(ctx context.Context, userID int64, language string, now time.Time) ([]models.ScheduledBookmark, error) {
	return r.listScheduled(ctx, "AND s.next_practice_time <= ?", userID, language, now)
}

// ListInPipeline returns all of the user's scheduled bookmarks in a language
func (r *ScheduleRepository) ListInPipeline(ctx context.Context, userID int64, language string) ([]models.ScheduledBookmark, error) {
	return r.listScheduled(ctx, "", userID, language)
}

func (r *ScheduleRepository) listScheduled(ctx context.Context, cond string, userID int64, language string, extra ...interface{}) ([]models.ScheduledBookmark, error) {
	var rows []scheduledRow
	args := append([]interface{}{userID, language}, extra...)
	err := list(ctx, &rows, "SELECT "+bookmarkViewColumns+", "+scheduleColumns+bookmarkFrom+`
		JOIN schedules s ON s.bookmark_id = b.id
		WHERE b.user_id = ? AND m.origin_language = ? `+cond+`
		ORDER BY s.next_practice_time, b.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled bookmarks: %w", err)
	}
	result := make([]models.ScheduledBookmark, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}

// CountInPipeline returns how many of the user's bookmarks are scheduled
func (r *ScheduleRepository) CountInPipeline(ctx context.Context, userID int64, language string) (int, error) {
	var n int
	err := get(ctx, &n, `
		SELECT COUNT(*) FROM schedules s
		JOIN bookmarks b ON b.id = s.bookmark_id
		JOIN meanings m ON m.id = b.meaning_id
		WHERE b.user_id = ? AND m.origin_language = ?`, userID, language)
	if err != nil {
		return 0, fmt.Errorf("failed to count pipeline: %w", err)
	}
	return n, nil
}

// DueCounts returns, per user, how many scheduled bookmarks in the user's
// learned language are due at now
func (r *ScheduleRepository) DueCounts(ctx context.Context, now time.Time) (map[int64]int, error) {
	var rows []struct {
		UserID int64 `db:"user_id"`
		Due    int   `db:"due"`
	}
	err := list(ctx, &rows, `
		SELECT b.user_id, COUNT(*) AS due FROM schedules s
		JOIN bookmarks b ON b.id = s.bookmark_id
		JOIN meanings m ON m.id = b.meaning_id
		JOIN users u ON u.id = b.user_id
		WHERE s.next_practice_time <= ? AND m.origin_language = u.learned_language
		GROUP BY b.user_id`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count due schedules: %w", err)
	}
	counts := make(map[int64]int, len(rows))
	for _, row := range rows {
		counts[row.UserID] = row.Due
	}
	return counts, nil
}
