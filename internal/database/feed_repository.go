package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/zeeguu/pkg/models"
)

const feedColumns = "f.id, f.url, f.title, f.description, f.language, f.image_url, f.last_crawled_at, f.deactivated, f.created_at"

// FeedRepository handles database operations for RSS feeds
type FeedRepository struct{}

// NewFeedRepository creates a new repository instance
func NewFeedRepository() *FeedRepository {
	return &FeedRepository{}
}

// Create inserts a feed
func (r *FeedRepository) Create(ctx context.Context, f *models.Feed) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	id, err := insert(ctx, `
		INSERT INTO feeds (url, title, description, language, image_url, deactivated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.URL, f.Title, f.Description, f.Language, f.ImageURL, f.Deactivated, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create feed: %w", err)
	}
	f.ID = id
	return nil
}

// GetByID returns a feed
func (r *FeedRepository) GetByID(ctx context.Context, id int64) (*models.Feed, error) {
	var f models.Feed
	if err := get(ctx, &f, "SELECT "+feedColumns+" FROM feeds f WHERE f.id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return &f, nil
}

// GetByURL returns a feed by URL
func (r *FeedRepository) GetByURL(ctx context.Context, url string) (*models.Feed, error) {
	var f models.Feed
	if err := get(ctx, &f, "SELECT "+feedColumns+" FROM feeds f WHERE f.url = ?", url); err != nil {
		return nil, fmt.Errorf("failed to get feed by url: %w", err)
	}
	return &f, nil
}

// ListActive returns all feeds that should be crawled
func (r *FeedRepository) ListActive(ctx context.Context) ([]models.Feed, error) {
	var feeds []models.Feed
	if err := list(ctx, &feeds, "SELECT "+feedColumns+" FROM feeds f WHERE f.deactivated = ? ORDER BY f.id", false); err != nil {
		return nil, fmt.Errorf("failed to list active feeds: %w", err)
	}
	return feeds, nil
}

// ListByLanguage returns active feeds for a language
func (r *FeedRepository) ListByLanguage(ctx context.Context, language string) ([]models.Feed, error) {
	var feeds []models.Feed
	err := list(ctx, &feeds, "SELECT "+feedColumns+" FROM feeds f WHERE f.language = ? AND f.deactivated = ? ORDER BY f.title", language, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	return feeds, nil
}

// TouchCrawled records a completed crawl, refreshing feed metadata when known
func (r *FeedRepository) TouchCrawled(ctx context.Context, f *models.Feed, at time.Time) error {
	err := exec(ctx, "UPDATE feeds SET title = ?, description = ?, image_url = ?, last_crawled_at = ? WHERE id = ?",
		f.Title, f.Description, f.ImageURL, at, f.ID)
	if err != nil {
		return fmt.Errorf("failed to update feed crawl time: %w", err)
	}
	f.LastCrawledAt = &at
	return nil
}

// Follow subscribes a user to a feed; following twice is a no-op
func (r *FeedRepository) Follow(ctx context.Context, userID, feedID int64) error {
	err := execAny(ctx, "INSERT INTO feed_follows (user_id, feed_id) VALUES (?, ?) ON CONFLICT DO NOTHING", userID, feedID)
	if err != nil {
		return fmt.Errorf("failed to follow feed: %w", err)
	}
	return nil
}

// Unfollow removes a subscription
func (r *FeedRepository) Unfollow(ctx context.Context, userID, feedID int64) error {
	if err := exec(ctx, "DELETE FROM feed_follows WHERE user_id = ? AND feed_id = ?", userID, feedID); err != nil {
		return fmt.Errorf("failed to unfollow feed: %w", err)
	}
	return nil
}

// ListFollowed returns the feeds a user follows
func (r *FeedRepository) ListFollowed(ctx context.Context, userID int64) ([]models.Feed, error) {
	var feeds []models.Feed
	err := list(ctx, &feeds, `
		SELECT `+feedColumns+` FROM feeds f
		JOIN feed_follows ff ON ff.feed_id = f.id
		WHERE ff.user_id = ?
		ORDER BY f.title`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followed feeds: %w", err)
	}
	return feeds, nil
}
