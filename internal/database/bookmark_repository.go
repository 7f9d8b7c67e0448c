package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/zeeguu/pkg/models"
)

const bookmarkViewColumns = `b.id, b.user_id, b.meaning_id, b.article_id, b.context, b.starred, b.learned,
	b.learned_at, b.fit_for_study, b.created_at,
	m.origin, m.origin_language, m.translation, m.translation_language, m.frequency, m.phrase_type`

const bookmarkFrom = " FROM bookmarks b JOIN meanings m ON m.id = b.meaning_id "

// BookmarkRepository handles database operations for bookmarks
type BookmarkRepository struct{}

// NewBookmarkRepository creates a new repository instance
func NewBookmarkRepository() *BookmarkRepository {
	return &BookmarkRepository{}
}

// Create inserts a bookmark; the same meaning twice for a user yields ErrDuplicate
func (r *BookmarkRepository) Create(ctx context.Context, b *models.Bookmark) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	id, err := insert(ctx, `
		INSERT INTO bookmarks (user_id, meaning_id, article_id, context, starred, learned, learned_at, fit_for_study, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.MeaningID, b.ArticleID, b.Context, b.Starred, b.Learned, b.LearnedAt, b.FitForStudy, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bookmark: %w", err)
	}
	b.ID = id
	return nil
}

// CreateIfAbsent inserts a bookmark unless the user already has one for
// its meaning, reporting whether a row was inserted
func (r *BookmarkRepository) CreateIfAbsent(ctx context.Context, b *models.Bookmark) (bool, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	id, err := insert(ctx, `
		INSERT INTO bookmarks (user_id, meaning_id, article_id, context, starred, learned, learned_at, fit_for_study, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, meaning_id) DO NOTHING`,
		b.UserID, b.MeaningID, b.ArticleID, b.Context, b.Starred, b.Learned, b.LearnedAt, b.FitForStudy, b.CreatedAt,
	)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create bookmark: %w", err)
	}
	b.ID = id
	return true, nil
}

// GetByID returns a bookmark joined with its meaning
func (r *BookmarkRepository) GetByID(ctx context.Context, id int64) (*models.BookmarkView, error) {
	var v models.BookmarkView
	if err := get(ctx, &v, "SELECT "+bookmarkViewColumns+bookmarkFrom+"WHERE b.id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}
	return &v, nil
}

// GetByUserAndMeaning returns the user's bookmark for a meaning
func (r *BookmarkRepository) GetByUserAndMeaning(ctx context.Context, userID, meaningID int64) (*models.BookmarkView, error) {
	var v models.BookmarkView
	err := get(ctx, &v, "SELECT "+bookmarkViewColumns+bookmarkFrom+"WHERE b.user_id = ? AND b.meaning_id = ?", userID, meaningID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark by meaning: %w", err)
	}
	return &v, nil
}

// Update stores the mutable fields of a bookmark
func (r *BookmarkRepository) Update(ctx context.Context, b *models.Bookmark) error {
	err := exec(ctx, `
		UPDATE bookmarks SET meaning_id = ?, article_id = ?, context = ?, starred = ?, learned = ?,
			learned_at = ?, fit_for_study = ?
		WHERE id = ?`,
		b.MeaningID, b.ArticleID, b.Context, b.Starred, b.Learned, b.LearnedAt, b.FitForStudy, b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bookmark: %w", err)
	}
	return nil
}

// Delete removes a bookmark; its schedule and outcomes cascade
func (r *BookmarkRepository) Delete(ctx context.Context, id int64) error {
	if err := exec(ctx, "DELETE FROM bookmarks WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}

// SetStarred stars or unstars a bookmark
func (r *BookmarkRepository) SetStarred(ctx context.Context, id int64, starred bool) error {
	if err := exec(ctx, "UPDATE bookmarks SET starred = ? WHERE id = ?", starred, id); err != nil {
		return fmt.Errorf("failed to star bookmark: %w", err)
	}
	return nil
}

// SetLearned marks a bookmark learned at the given time
func (r *BookmarkRepository) SetLearned(ctx context.Context, id int64, at time.Time) error {
	if err := exec(ctx, "UPDATE bookmarks SET learned = ?, learned_at = ? WHERE id = ?", true, at, id); err != nil {
		return fmt.Errorf("failed to mark bookmark learned: %w", err)
	}
	return nil
}

// ListByUser returns a user's bookmarks created since the given time, newest first
func (r *BookmarkRepository) ListByUser(ctx context.Context, userID int64, since time.Time) ([]models.BookmarkView, error) {
	var views []models.BookmarkView
	err := list(ctx, &views, "SELECT "+bookmarkViewColumns+bookmarkFrom+
		"WHERE b.user_id = ? AND b.created_at >= ? ORDER BY b.created_at DESC, b.id DESC", userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	return views, nil
}

// ListByArticle returns the bookmarks a user made in an article
func (r *BookmarkRepository) ListByArticle(ctx context.Context, userID, articleID int64) ([]models.BookmarkView, error) {
	var views []models.BookmarkView
	err := list(ctx, &views, "SELECT "+bookmarkViewColumns+bookmarkFrom+
		"WHERE b.user_id = ? AND b.article_id = ? ORDER BY b.id", userID, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list article bookmarks: %w", err)
	}
	return views, nil
}

// ListLearned returns recently learned bookmarks
func (r *BookmarkRepository) ListLearned(ctx context.Context, userID int64, limit int) ([]models.BookmarkView, error) {
	var views []models.BookmarkView
	err := list(ctx, &views, "SELECT "+bookmarkViewColumns+bookmarkFrom+
		"WHERE b.user_id = ? AND b.learned = ? ORDER BY b.learned_at DESC LIMIT ?", userID, true, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list learned bookmarks: %w", err)
	}
	return views, nil
}

// ListCandidatesForStudy returns unscheduled bookmarks that are fit for study,
// in the user's learned language, newest first
func (r *BookmarkRepository) ListCandidatesForStudy(ctx context.Context, userID int64, language string, limit int) ([]models.BookmarkView, error) {
	var views []models.BookmarkView
	err := list(ctx, &views, "SELECT "+bookmarkViewColumns+bookmarkFrom+`
		LEFT JOIN schedules s ON s.bookmark_id = b.id
		WHERE b.user_id = ? AND m.origin_language = ? AND b.learned = ? AND b.fit_for_study = ?
		AND s.bookmark_id IS NULL
		ORDER BY b.created_at DESC, b.id DESC
		LIMIT ?`, userID, language, false, true, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list study candidates: %w", err)
	}
	return views, nil
}

// TopBookmarks returns the user's starred bookmarks first, then the most recent
func (r *BookmarkRepository) TopBookmarks(ctx context.Context, userID int64, limit int) ([]models.BookmarkView, error) {
	var views []models.BookmarkView
	err := list(ctx, &views, "SELECT "+bookmarkViewColumns+bookmarkFrom+
		"WHERE b.user_id = ? AND b.learned = ? ORDER BY b.starred DESC, b.created_at DESC LIMIT ?", userID, false, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top bookmarks: %w", err)
	}
	return views, nil
}

// ListAllByUser returns every bookmark of a user, oldest first
func (r *BookmarkRepository) ListAllByUser(ctx context.Context, userID int64) ([]models.BookmarkView, error) {
	var views []models.BookmarkView
	if err := list(ctx, &views, "SELECT "+bookmarkViewColumns+bookmarkFrom+"WHERE b.user_id = ? ORDER BY b.id", userID); err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	return views, nil
}
