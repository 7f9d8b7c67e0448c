package service

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/zeeguu/internal/ai"
	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/internal/excel"
	"github.com/example/zeeguu/internal/logging"
	"github.com/example/zeeguu/internal/testutil"
	"github.com/example/zeeguu/pkg/models"
)

func newBookmarks(t *testing.T, p ai.Provider) *BookmarkService {
	t.Helper()
	var assistant *ai.Assistant
	if p != nil {
		assistant = ai.NewAssistant(p, logging.Discard())
	}
	s := NewBookmarkService(assistant, logging.Discard())
	s.now, _ = clockAt(testNow)
	return s
}

func TestFitForStudy(t *testing.T) {
	assert.True(t, FitForStudy("Haus", "Das Haus."))
	assert.True(t, FitForStudy("auf jeden Fall", "Ja, auf jeden Fall."))
	assert.False(t, FitForStudy("das ist mir Wurst", "Das ist mir Wurst."))
	assert.False(t, FitForStudy("Haus", " "))
	assert.False(t, FitForStudy("", "x"))
}

func TestContributeTranslation(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s := newBookmarks(t, nil)
	user := testutil.CreateUser(t, "anna@example.com", "de")

	_, err := s.ContributeTranslation(ctx, user, Contribution{From: "de", To: "en", Word: " ", Translation: "x"})
	requireStatus(t, err, http.StatusBadRequest)
	_, err = s.ContributeTranslation(ctx, user, Contribution{From: "de", To: "xx", Word: "Haus", Translation: "house"})
	requireStatus(t, err, http.StatusBadRequest)
	missing := int64(999)
	_, err = s.ContributeTranslation(ctx, user, Contribution{From: "de", To: "en", Word: "Haus", Translation: "house", ArticleID: &missing})
	requireStatus(t, err, http.StatusNotFound)

	first, err := s.ContributeTranslation(ctx, user, Contribution{From: "de", To: "en", Word: "Haus", Translation: "house"})
	require.NoError(t, err)
	assert.Equal(t, "Haus", first.Origin)
	assert.False(t, first.FitForStudy, "no context yet")

	second, err := s.ContributeTranslation(ctx, user, Contribution{From: "de", To: "en", Word: "Haus", Translation: "house", Context: "Das Haus ist alt."})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Das Haus ist alt.", second.Context)
	assert.True(t, second.FitForStudy)

	long, err := s.ContributeTranslation(ctx, user, Contribution{From: "de", To: "en", Word: "das ist mir Wurst", Translation: "I don't care", Context: "Das ist mir Wurst."})
	require.NoError(t, err)
	assert.False(t, long.FitForStudy)
}

func TestUpdateBookmarkRelinksMeaning(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s := newBookmarks(t, nil)
	user := testutil.CreateUser(t, "anna@example.com", "de")
	other := testutil.CreateUser(t, "ben@example.com", "de")
	b := testutil.CreateBookmark(t, user.ID, "Bank", "de", "bank", testNow)
	testutil.CreateBookmark(t, user.ID, "Bank", "de", "bench", testNow)

	translation := "bench"
	_, err := s.UpdateBookmark(ctx, user, b.ID, BookmarkPatch{Translation: &translation})
	requireStatus(t, err, http.StatusConflict)

	translation = "seat"
	_, err = s.UpdateBookmark(ctx, other, b.ID, BookmarkPatch{Translation: &translation})
	requireStatus(t, err, http.StatusNotFound)

	updated, err := s.UpdateBookmark(ctx, user, b.ID, BookmarkPatch{Translation: &translation})
	require.NoError(t, err)
	assert.Equal(t, "seat", updated.Translation)
	assert.NotEqual(t, b.MeaningID, updated.MeaningID)

	empty := ""
	updated, err = s.UpdateBookmark(ctx, user, b.ID, BookmarkPatch{Context: &empty})
	require.NoError(t, err)
	assert.False(t, updated.FitForStudy)
}

func TestBookmarksByDayStarAndDelete(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s := newBookmarks(t, nil)
	user := testutil.CreateUser(t, "anna@example.com", "de")
	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	a := testutil.CreateBookmark(t, user.ID, "Haus", "de", "house", day1)
	testutil.CreateBookmark(t, user.ID, "Baum", "de", "tree", day2)
	testutil.CreateBookmark(t, user.ID, "Hund", "de", "dog", day2.Add(time.Hour))

	days, err := s.BookmarksByDay(ctx, user, day1.Add(-time.Hour), false)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-03-02", days[0].Date)
	require.Len(t, days[0].Bookmarks, 2)
	assert.Equal(t, "Hund", days[0].Bookmarks[0].Origin)
	assert.Empty(t, days[0].Bookmarks[0].Context)
	assert.Equal(t, "2024-03-01", days[1].Date)

	require.NoError(t, s.SetStarred(ctx, user, a.ID, true))
	top, err := s.TopBookmarks(ctx, user, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Haus", top[0].Origin)

	require.NoError(t, s.DeleteBookmark(ctx, user, a.ID))
	requireStatus(t, s.DeleteBookmark(ctx, user, a.ID), http.StatusNotFound)
}

func TestAlternativeSentences(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	p := &fakeProvider{reply: func(string) string {
		return `[{"sentence":"Das Haus ist groß.","translation":"The house is big."},
			{"sentence":"Unser Haus hat einen Garten.","translation":"Our house has a garden."},
			{"sentence":"Ohne das Wort.","translation":"Without the word."}]`
	}}
	s := newBookmarks(t, p)
	user := testutil.CreateUser(t, "anna@example.com", "de")
	b := testutil.CreateBookmark(t, user.ID, "Haus", "de", "house", testNow)

	got, err := s.AlternativeSentences(ctx, user, b.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "llm", got[0].Source)
	assert.Equal(t, "A2", got[0].CEFRLevel)

	stored, err := database.NewExampleSentenceRepository().ListForMeaning(ctx, b.MeaningID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// without a provider only stored sentences are returned
	plain := newBookmarks(t, nil)
	got, err = plain.AlternativeSentences(ctx, user, b.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestValidateAndClassify(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	p := &fakeProvider{reply: func(prompt string) string {
		if strings.Contains(prompt, "Classify") {
			return `{"frequency":"common","phrase_type":"single_word"}`
		}
		return `{"valid":false,"correction":"bank","reason":"money"}`
	}}
	s := newBookmarks(t, p)
	user := testutil.CreateUser(t, "anna@example.com", "de")
	b := testutil.CreateBookmark(t, user.ID, "Bank", "de", "bench", testNow)

	verdict, err := s.ValidateAndClassify(ctx, user, b.ID)
	require.NoError(t, err)
	assert.False(t, verdict.Valid)
	assert.Equal(t, "bank", verdict.Correction)

	updated, err := s.Bookmark(ctx, user, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "bank", updated.Translation)

	m, err := database.NewMeaningRepository().GetByID(ctx, updated.MeaningID)
	require.NoError(t, err)
	assert.True(t, m.Validated)
	assert.Equal(t, models.FrequencyCommon, m.Frequency)
	assert.Equal(t, models.PhraseSingleWord, m.PhraseType)

	rejected, err := database.NewMeaningRepository().GetByID(ctx, b.MeaningID)
	require.NoError(t, err)
	assert.False(t, rejected.Validated)
	assert.Equal(t, models.FrequencyUnknown, rejected.Frequency)

	_, err = newBookmarks(t, nil).ValidateAndClassify(ctx, user, b.ID)
	requireStatus(t, err, http.StatusServiceUnavailable)
}

func TestClassifyPending(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	p := &fakeProvider{reply: func(string) string { return `{"frequency":"rare","phrase_type":"idiom"}` }}
	s := newBookmarks(t, p)
	user := testutil.CreateUser(t, "anna@example.com", "de")
	testutil.CreateBookmark(t, user.ID, "Haus", "de", "house", testNow)
	testutil.CreateBookmark(t, user.ID, "Baum", "de", "tree", testNow)

	n, err := s.ClassifyPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.ClassifyPending(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = newBookmarks(t, nil).ClassifyPending(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExportImportRoundTrip(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s := newBookmarks(t, nil)
	anna := testutil.CreateUser(t, "anna@example.com", "de")
	ben := testutil.CreateUser(t, "ben@example.com", "de")
	testutil.CreateBookmark(t, anna.ID, "Haus", "de", "house", testNow)
	testutil.CreateBookmark(t, anna.ID, "Baum", "de", "tree", testNow)
	testutil.CreateBookmark(t, ben.ID, "Baum", "de", "tree", testNow)

	var buf bytes.Buffer
	require.NoError(t, s.Export(ctx, anna, &buf, excel.FormatXLSX))

	res, err := s.Import(ctx, ben, &buf, excel.FormatXLSX, "de", "en")
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalProcessed)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Empty(t, res.Errors)

	all, err := database.NewBookmarkRepository().ListAllByUser(ctx, ben.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.Import(ctx, ben, strings.NewReader("word,translation\n"), excel.FormatCSV, "de", "en")
	requireStatus(t, err, http.StatusBadRequest)
	_, err = s.Import(ctx, ben, strings.NewReader("a,b\n"), excel.FormatCSV, "de", "zz")
	requireStatus(t, err, http.StatusBadRequest)
}
