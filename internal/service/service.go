// Package service implements the application operations behind the API.
// Services translate repository errors into apperr errors carrying an HTTP
// status; handlers only decode input and encode output.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/example/zeeguu/internal/ai"
	"github.com/example/zeeguu/internal/apperr"
	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/internal/difficulty"
	"github.com/example/zeeguu/internal/spaced_repetition"
	"github.com/example/zeeguu/pkg/models"
)

// Clock returns the current time; tests replace it
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// translate maps lower-layer errors to apperr errors. what names the
// entity for not-found and conflict messages.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, database.ErrNotFound):
		return apperr.NotFound("%s not found", what).Wrap(err)
	case errors.Is(err, database.ErrDuplicate):
		return apperr.Conflict("%s already exists", what).Wrap(err)
	case errors.Is(err, ai.ErrNoProvider):
		return apperr.Unavailable("language model not configured").Wrap(err)
	case errors.Is(err, spaced_repetition.ErrUnknownOutcome):
		return apperr.BadRequest("unknown exercise outcome").Wrap(err)
	default:
		return apperr.Internal(err)
	}
}

// levelOr normalises a CEFR level, using fallback when it is not valid
func levelOr(level, fallback string) string {
	if l := difficulty.ParseLevel(level); l != "" {
		return l
	}
	return fallback
}

// visibleArticle loads an article the user may see. Uploaded texts belong to
// their uploader; anyone else gets ErrNotFound.
func visibleArticle(ctx context.Context, articles *database.ArticleRepository, user *models.User, articleID int64) (*models.Article, error) {
	article, err := articles.GetByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if article.UploaderID != nil && *article.UploaderID != user.ID {
		return nil, database.ErrNotFound
	}
	return article, nil
}
