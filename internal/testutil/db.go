// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/pkg/models"
)

// SetupDB points the global connection at a fresh in-memory SQLite
// database with all migrations applied.
func SetupDB(t *testing.T) {
	t.Helper()
	db, err := database.Open(database.Options{Type: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		db.Close()
	})
}

// CreateUser inserts a user learning lang with sensible defaults.
func CreateUser(t *testing.T, email, lang string) *models.User {
	t.Helper()
	u := &models.User{
		Email:              email,
		Name:               email,
		PasswordHash:       "x",
		LearnedLanguage:    lang,
		NativeLanguage:     "en",
		CEFRLevel:          "A2",
		ProductiveEnabled:  true,
		MaxWordsInPipeline: models.DefaultMaxWordsInPipeline,
		NotificationHour:   9,
	}
	require.NoError(t, database.NewUserRepository().Create(context.Background(), u))
	return u
}

// CreateBookmark stores origin -> translation for the user and returns the view.
func CreateBookmark(t *testing.T, userID int64, origin, originLang, translation string, at time.Time) *models.BookmarkView {
	t.Helper()
	ctx := context.Background()
	m, err := database.NewMeaningRepository().FindOrCreate(ctx, origin, originLang, translation, "en")
	require.NoError(t, err)

	bookmarks := database.NewBookmarkRepository()
	b := &models.Bookmark{
		UserID:      userID,
		MeaningID:   m.ID,
		Context:     "ein " + origin + " hier",
		FitForStudy: true,
		CreatedAt:   at.UTC(),
	}
	require.NoError(t, bookmarks.Create(ctx, b))
	v, err := bookmarks.GetByID(ctx, b.ID)
	require.NoError(t, err)
	return v
}
