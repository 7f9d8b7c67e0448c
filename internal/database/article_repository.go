package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/zeeguu/pkg/models"
)

const articleColumns = `a.id, a.url, a.title, a.authors, a.content, a.summary, a.language, a.word_count,
	a.fk_difficulty, a.cefr_level, a.published_at, a.feed_id, a.uploader_id, a.broken, a.created_at`

// articleSummaryColumns leaves the content empty for list responses
const articleSummaryColumns = `a.id, a.url, a.title, a.authors, '' AS content, a.summary, a.language, a.word_count,
	a.fk_difficulty, a.cefr_level, a.published_at, a.feed_id, a.uploader_id, a.broken, a.created_at`

// ArticleRepository handles database operations for articles
type ArticleRepository struct{}

// NewArticleRepository creates a new repository instance
func NewArticleRepository() *ArticleRepository {
	return &ArticleRepository{}
}

// Create inserts an article; a URL that already exists yields ErrDuplicate
func (r *ArticleRepository) Create(ctx context.Context, a *models.Article) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	id, err := insert(ctx, `
		INSERT INTO articles (
			url, title, authors, content, summary, language, word_count, fk_difficulty,
			cefr_level, published_at, feed_id, uploader_id, broken, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.URL, a.Title, a.Authors, a.Content, a.Summary, a.Language, a.WordCount, a.FKDifficulty,
		a.CEFRLevel, a.PublishedAt, a.FeedID, a.UploaderID, a.Broken, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}
	a.ID = id
	return nil
}

// GetByID returns an article including its content
func (r *ArticleRepository) GetByID(ctx context.Context, id int64) (*models.Article, error) {
	var a models.Article
	if err := get(ctx, &a, "SELECT "+articleColumns+" FROM articles a WHERE a.id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return &a, nil
}

// GetByURL returns an article by its canonical URL
func (r *ArticleRepository) GetByURL(ctx context.Context, url string) (*models.Article, error) {
	var a models.Article
	if err := get(ctx, &a, "SELECT "+articleColumns+" FROM articles a WHERE a.url = ?", url); err != nil {
		return nil, fmt.Errorf("failed to get article by url: %w", err)
	}
	return &a, nil
}

// ExistingURLs returns the subset of urls already stored
func (r *ArticleRepository) ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(urls) == 0 {
		return found, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(urls)), ",")
	args := make([]interface{}, len(urls))
	for i, u := range urls {
		args[i] = u
	}
	var existing []string
	if err := list(ctx, &existing, "SELECT url FROM articles WHERE url IN ("+placeholders+")", args...); err != nil {
		return nil, fmt.Errorf("failed to check article urls: %w", err)
	}
	for _, u := range existing {
		found[u] = true
	}
	return found, nil
}

// ListRecent returns non-broken articles in a language whose CEFR level is one
// of levels (any level when levels is empty), newest first
func (r *ArticleRepository) ListRecent(ctx context.Context, language string, levels []string, limit int) ([]models.Article, error) {
	query := "SELECT " + articleSummaryColumns + " FROM articles a WHERE a.language = ? AND a.broken = ? AND a.uploader_id IS NULL"
	args := []interface{}{language, false}
	if len(levels) > 0 {
		query += " AND a.cefr_level IN (" + strings.TrimSuffix(strings.Repeat("?,", len(levels)), ",") + ")"
		for _, l := range levels {
			args = append(args, l)
		}
	}
	query += " ORDER BY COALESCE(a.published_at, a.created_at) DESC, a.id DESC LIMIT ?"
	args = append(args, limit)

	var articles []models.Article
	if err := list(ctx, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list recent articles: %w", err)
	}
	return articles, nil
}

// Search finds articles in a language whose title or content contains the query
func (r *ArticleRepository) Search(ctx context.Context, language, query string, limit int) ([]models.Article, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var articles []models.Article
	err := list(ctx, &articles, `
		SELECT `+articleSummaryColumns+`
		FROM articles a
		WHERE a.language = ? AND a.broken = ? AND a.uploader_id IS NULL
		AND (LOWER(a.title) LIKE ? OR LOWER(a.content) LIKE ?)
		ORDER BY COALESCE(a.published_at, a.created_at) DESC
		LIMIT ?`, language, false, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	return articles, nil
}

// MarkBroken hides an article whose content could not be used
func (r *ArticleRepository) MarkBroken(ctx context.Context, id int64) error {
	if err := exec(ctx, "UPDATE articles SET broken = ? WHERE id = ?", true, id); err != nil {
		return fmt.Errorf("failed to mark article broken: %w", err)
	}
	return nil
}

// ListUploadedBy returns a user's own texts
func (r *ArticleRepository) ListUploadedBy(ctx context.Context, userID int64) ([]models.Article, error) {
	var articles []models.Article
	err := list(ctx, &articles, "SELECT "+articleSummaryColumns+" FROM articles a WHERE a.uploader_id = ? ORDER BY a.created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploaded articles: %w", err)
	}
	return articles, nil
}

// GetUserArticle returns the user's interaction with an article, or a zero value
func (r *ArticleRepository) GetUserArticle(ctx context.Context, userID, articleID int64) (*models.UserArticle, error) {
	ua := models.UserArticle{UserID: userID, ArticleID: articleID}
	err := get(ctx, &ua, "SELECT user_id, article_id, opened, liked, starred FROM user_articles WHERE user_id = ? AND article_id = ?", userID, articleID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get user article: %w", err)
	}
	return &ua, nil
}

// SaveUserArticle upserts the user's interaction with an article
func (r *ArticleRepository) SaveUserArticle(ctx context.Context, ua *models.UserArticle) error {
	err := execAny(ctx, `
		INSERT INTO user_articles (user_id, article_id, opened, liked, starred) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, article_id) DO UPDATE SET
			opened = excluded.opened,
			liked = excluded.liked,
			starred = excluded.starred`,
		ua.UserID, ua.ArticleID, ua.Opened, ua.Liked, ua.Starred,
	)
	if err != nil {
		return fmt.Errorf("failed to save user article: %w", err)
	}
	return nil
}

// ListStarredOrLiked returns articles the user starred or liked
func (r *ArticleRepository) ListStarredOrLiked(ctx context.Context, userID int64) ([]models.ArticleWithUserInfo, error) {
	var articles []models.ArticleWithUserInfo
	err := list(ctx, &articles, `
		SELECT `+articleSummaryColumns+`, ua.opened, ua.liked, ua.starred
		FROM articles a
		JOIN user_articles ua ON ua.article_id = a.id
		WHERE ua.user_id = ? AND (ua.liked = ? OR ua.starred = ?)
		ORDER BY a.id DESC`, userID, true, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list starred or liked articles: %w", err)
	}
	return articles, nil
}
