package service

import (
	"context"
	"strings"

	"github.com/example/zeeguu/internal/apperr"
	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/pkg/models"
)

// ActivityEvent is a UI event reported by a client
type ActivityEvent struct {
	Event     string
	Value     string
	ExtraData string
	ArticleID *int64
}

// ActivityService stores client UI events
type ActivityService struct {
	activity *database.ActivityRepository
	now      Clock
}

// NewActivityService creates the service
func NewActivityService() *ActivityService {
	return &ActivityService{activity: database.NewActivityRepository(), now: utcNow}
}

// UploadActivity stores an event for the user
func (s *ActivityService) UploadActivity(ctx context.Context, user *models.User, e ActivityEvent) error {
	event := strings.TrimSpace(e.Event)
	if event == "" {
		return apperr.BadRequest("event is required")
	}
	err := s.activity.Create(ctx, &models.UserActivity{
		UserID:    user.ID,
		Event:     event,
		Value:     e.Value,
		ExtraData: e.ExtraData,
		ArticleID: e.ArticleID,
		CreatedAt: s.now(),
	})
	return translate(err, "activity")
}

// Recent returns the user's latest events, newest first
func (s *ActivityService) Recent(ctx context.Context, user *models.User, limit int) ([]models.UserActivity, error) {
	if limit <= 0 {
		limit = 50
	}
	list, err := s.activity.ListForUser(ctx, user.ID, limit)
	if err != nil {
		return nil, translate(err, "activity")
	}
	if list == nil {
		list = []models.UserActivity{}
	}
	return list, nil
}
