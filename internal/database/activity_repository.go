package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/zeeguu/pkg/models"
)

// ActivityRepository stores UI events reported by clients
type ActivityRepository struct{}

// NewActivityRepository creates a new repository instance
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{}
}

// Create records an event
func (r *ActivityRepository) Create(ctx context.Context, a *models.UserActivity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	id, err := insert(ctx, `
		INSERT INTO user_activity (user_id, event, value, extra_data, article_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Event, a.Value, a.ExtraData, a.ArticleID, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	a.ID = id
	return nil
}

// ListForUser returns a user's most recent events
func (r *ActivityRepository) ListForUser(ctx context.Context, userID int64, limit int) ([]models.UserActivity, error) {
	var events []models.UserActivity
	err := list(ctx, &events, `
		SELECT id, user_id, event, value, extra_data, article_id, created_at
		FROM user_activity WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return events, nil
}
