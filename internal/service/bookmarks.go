package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/zeeguu/internal/ai"
	"github.com/example/zeeguu/internal/apperr"
	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/internal/excel"
	"github.com/example/zeeguu/pkg/models"
)

const (
	// MaxWordsFitForStudy is the longest phrase scheduled for practice
	MaxWordsFitForStudy = 3
	// MinExampleSentences is how many examples a meaning should have
	MinExampleSentences = 3
)

// Contribution is a translation the user looked up while reading
type Contribution struct {
	From        string
	To          string
	Word        string
	Translation string
	Context     string
	ArticleID   *int64
}

// BookmarkPatch holds the bookmark fields to change; nil fields are kept
type BookmarkPatch struct {
	Translation *string `json:"translation"`
	Context     *string `json:"context"`
}

// BookmarkService manages a user's saved translations
type BookmarkService struct {
	meanings  *database.MeaningRepository
	bookmarks *database.BookmarkRepository
	examples  *database.ExampleSentenceRepository
	articles  *database.ArticleRepository
	assistant *ai.Assistant
	logger    logrus.FieldLogger
	now       Clock
}

// NewBookmarkService creates the service; assistant may be disabled
func NewBookmarkService(assistant *ai.Assistant, logger logrus.FieldLogger) *BookmarkService {
	return &BookmarkService{
		meanings:  database.NewMeaningRepository(),
		bookmarks: database.NewBookmarkRepository(),
		examples:  database.NewExampleSentenceRepository(),
		articles:  database.NewArticleRepository(),
		assistant: assistant,
		logger:    logger,
		now:       utcNow,
	}
}

// FitForStudy reports whether a phrase is short enough to practise and
// comes with a context sentence
func FitForStudy(word, context string) bool {
	n := len(strings.Fields(word))
	return n > 0 && n <= MaxWordsFitForStudy && strings.TrimSpace(context) != ""
}

// ContributeTranslation saves a looked-up translation as a bookmark.
// Saving the same meaning again updates the existing bookmark's context.
func (s *BookmarkService) ContributeTranslation(ctx context.Context, user *models.User, c Contribution) (*models.BookmarkView, error) {
	view, _, err := s.contribute(ctx, user, c)
	return view, err
}

// contribute reports whether the bookmark was new
func (s *BookmarkService) contribute(ctx context.Context, user *models.User, c Contribution) (*models.BookmarkView, bool, error) {
	c.Word = strings.TrimSpace(c.Word)
	c.Translation = strings.TrimSpace(c.Translation)
	c.Context = strings.TrimSpace(c.Context)
	switch {
	case c.Word == "" || c.Translation == "":
		return nil, false, apperr.BadRequest("word and translation are required")
	case !supportedLanguage(c.From) || !supportedLanguage(c.To):
		return nil, false, apperr.BadRequest("unsupported language pair %s-%s", c.From, c.To)
	}

	var id int64
	var created bool
	err := database.WithTx(ctx, func(ctx context.Context) error {
		if c.ArticleID != nil {
			if _, err := visibleArticle(ctx, s.articles, user, *c.ArticleID); err != nil {
				return translate(err, "article")
			}
		}
		meaning, err := s.meanings.FindOrCreate(ctx, c.Word, c.From, c.Translation, c.To)
		if err != nil {
			return err
		}

		b := &models.Bookmark{
			UserID:      user.ID,
			MeaningID:   meaning.ID,
			ArticleID:   c.ArticleID,
			Context:     c.Context,
			FitForStudy: FitForStudy(c.Word, c.Context),
			CreatedAt:   s.now(),
		}
		created, err = s.bookmarks.CreateIfAbsent(ctx, b)
		if err != nil {
			return err
		}
		if created {
			id = b.ID
			return nil
		}

		existing, err := s.bookmarks.GetByUserAndMeaning(ctx, user.ID, meaning.ID)
		if err != nil {
			return err
		}
		upd := existing.Bookmark
		if c.Context != "" {
			upd.Context = c.Context
		}
		if c.ArticleID != nil {
			upd.ArticleID = c.ArticleID
		}
		upd.FitForStudy = FitForStudy(c.Word, upd.Context)
		id = upd.ID
		return s.bookmarks.Update(ctx, &upd)
	})
	if err != nil {
		return nil, false, translate(err, "bookmark")
	}
	view, err := s.bookmarks.GetByID(ctx, id)
	if err != nil {
		return nil, false, translate(err, "bookmark")
	}
	return view, created, nil
}

// owned returns the bookmark when it belongs to user
func (s *BookmarkService) owned(ctx context.Context, user *models.User, id int64) (*models.BookmarkView, error) {
	b, err := s.bookmarks.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "bookmark")
	}
	if b.UserID != user.ID {
		return nil, apperr.NotFound("bookmark not found")
	}
	return b, nil
}

// Bookmark returns one of the user's bookmarks
func (s *BookmarkService) Bookmark(ctx context.Context, user *models.User, id int64) (*models.BookmarkView, error) {
	return s.owned(ctx, user, id)
}

// BookmarksByDay groups the user's bookmarks since the given time by
// creation day, newest day first
func (s *BookmarkService) BookmarksByDay(ctx context.Context, user *models.User, since time.Time, withContext bool) ([]models.BookmarksForDay, error) {
	views, err := s.bookmarks.ListByUser(ctx, user.ID, since)
	if err != nil {
		return nil, translate(err, "bookmark")
	}
	return GroupByDay(views, withContext), nil
}

// GroupByDay groups bookmarks by UTC creation date, keeping their order
func GroupByDay(views []models.BookmarkView, withContext bool) []models.BookmarksForDay {
	days := []models.BookmarksForDay{}
	index := map[string]int{}
	for _, v := range views {
		if !withContext {
			v.Context = ""
		}
		date := v.CreatedAt.UTC().Format("2006-01-02")
		i, ok := index[date]
		if !ok {
			i = len(days)
			index[date] = i
			days = append(days, models.BookmarksForDay{Date: date})
		}
		days[i].Bookmarks = append(days[i].Bookmarks, v)
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	return days
}

// DeleteBookmark removes a bookmark with its schedule and outcomes
func (s *BookmarkService) DeleteBookmark(ctx context.Context, user *models.User, id int64) error {
	if _, err := s.owned(ctx, user, id); err != nil {
		return err
	}
	return translate(s.bookmarks.Delete(ctx, id), "bookmark")
}

// SetStarred stars or unstars a bookmark
func (s *BookmarkService) SetStarred(ctx context.Context, user *models.User, id int64, starred bool) error {
	if _, err := s.owned(ctx, user, id); err != nil {
		return err
	}
	return translate(s.bookmarks.SetStarred(ctx, id, starred), "bookmark")
}

// UpdateBookmark changes the context or translation of a bookmark. A new
// translation re-links the bookmark to the matching meaning.
func (s *BookmarkService) UpdateBookmark(ctx context.Context, user *models.User, id int64, patch BookmarkPatch) (*models.BookmarkView, error) {
	err := database.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.owned(ctx, user, id)
		if err != nil {
			return err
		}
		b := current.Bookmark
		if patch.Context != nil {
			b.Context = strings.TrimSpace(*patch.Context)
		}
		if patch.Translation != nil {
			translation := strings.TrimSpace(*patch.Translation)
			if translation == "" {
				return apperr.BadRequest("translation cannot be empty")
			}
			if translation != current.Translation {
				if err := s.relink(ctx, &b, current, translation); err != nil {
					return err
				}
			}
		}
		b.FitForStudy = FitForStudy(current.Origin, b.Context)
		return s.bookmarks.Update(ctx, &b)
	})
	if err != nil {
		return nil, translate(err, "bookmark")
	}
	return s.owned(ctx, user, id)
}

// relink points b at the meaning of its origin with a new translation
func (s *BookmarkService) relink(ctx context.Context, b *models.Bookmark, current *models.BookmarkView, translation string) error {
	meaning, err := s.meanings.FindOrCreate(ctx, current.Origin, current.OriginLanguage, translation, current.TranslationLanguage)
	if err != nil {
		return err
	}
	if other, err := s.bookmarks.GetByUserAndMeaning(ctx, b.UserID, meaning.ID); err == nil && other.ID != b.ID {
		return apperr.Conflict("a bookmark with this translation already exists")
	}
	b.MeaningID = meaning.ID
	return nil
}

// TopBookmarks returns starred bookmarks first, then the most recent
func (s *BookmarkService) TopBookmarks(ctx context.Context, user *models.User, count int) ([]models.BookmarkView, error) {
	if count <= 0 {
		return nil, apperr.BadRequest("count must be positive")
	}
	views, err := s.bookmarks.TopBookmarks(ctx, user.ID, count)
	if err != nil {
		return nil, translate(err, "bookmark")
	}
	if views == nil {
		views = []models.BookmarkView{}
	}
	return views, nil
}

// ValidateAndClassify asks the language model whether the bookmark's
// translation fits its context. A corrected translation re-links the
// bookmark; the meaning's classification is stored either way.
func (s *BookmarkService) ValidateAndClassify(ctx context.Context, user *models.User, id int64) (*ai.Verdict, error) {
	b, err := s.owned(ctx, user, id)
	if err != nil {
		return nil, err
	}
	verdict, err := s.assistant.ValidateTranslation(ctx, b.Origin, b.Translation, b.Context, b.OriginLanguage, b.TranslationLanguage)
	if err != nil {
		return nil, s.llmError(err)
	}

	meaningID := b.MeaningID
	err = database.WithTx(ctx, func(ctx context.Context) error {
		bookmark := b.Bookmark
		if !verdict.Valid && verdict.Correction != "" {
			if err := s.relink(ctx, &bookmark, b, verdict.Correction); err != nil {
				return err
			}
			if err := s.bookmarks.Update(ctx, &bookmark); err != nil {
				return err
			}
			meaningID = bookmark.MeaningID
		}
		return s.meanings.MarkValidated(ctx, meaningID)
	})
	if err != nil {
		return nil, translate(err, "bookmark")
	}

	if err := s.classify(ctx, meaningID); err != nil {
		s.logger.WithError(err).WithField("meaning_id", meaningID).Warn("Meaning classification failed")
	}
	return verdict, nil
}

func (s *BookmarkService) classify(ctx context.Context, meaningID int64) error {
	m, err := s.meanings.GetByID(ctx, meaningID)
	if err != nil {
		return err
	}
	freq, phrase, err := s.assistant.ClassifyMeaning(ctx, m)
	if err != nil {
		return err
	}
	return s.meanings.UpdateClassification(ctx, m.ID, freq, phrase)
}

// ClassifyPending classifies up to limit meanings that are still unknown
// and returns how many were classified
func (s *BookmarkService) ClassifyPending(ctx context.Context, limit int) (int, error) {
	if !s.assistant.Enabled() {
		return 0, nil
	}
	pending, err := s.meanings.ListUnclassified(ctx, limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, m := range pending {
		if err := s.classify(ctx, m.ID); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

// AlternativeSentences returns example sentences for the bookmark's
// meaning, generating more when fewer than MinExampleSentences exist
func (s *BookmarkService) AlternativeSentences(ctx context.Context, user *models.User, id int64) ([]models.ExampleSentence, error) {
	b, err := s.owned(ctx, user, id)
	if err != nil {
		return nil, err
	}
	stored, err := s.examples.ListForMeaning(ctx, b.MeaningID)
	if err != nil {
		return nil, translate(err, "example")
	}
	if len(stored) >= MinExampleSentences || !s.assistant.Enabled() {
		return nonNilExamples(stored), nil
	}

	meaning, err := s.meanings.GetByID(ctx, b.MeaningID)
	if err != nil {
		return nil, translate(err, "meaning")
	}
	level := levelOr(user.CEFRLevel, "A1")
	generated, err := s.assistant.GenerateExamples(ctx, meaning, level, MinExampleSentences-len(stored))
	if err != nil {
		s.logger.WithError(err).WithField("meaning_id", meaning.ID).Warn("Example generation failed")
		return nonNilExamples(stored), nil
	}
	for _, ex := range generated {
		sentence := &models.ExampleSentence{
			MeaningID:   meaning.ID,
			Sentence:    ex.Sentence,
			Translation: ex.Translation,
			CEFRLevel:   level,
			Source:      "llm",
			CreatedAt:   s.now(),
		}
		if err := s.examples.Create(ctx, sentence); err != nil {
			return nil, translate(err, "example")
		}
		stored = append(stored, *sentence)
	}
	return stored, nil
}

func nonNilExamples(list []models.ExampleSentence) []models.ExampleSentence {
	if list == nil {
		return []models.ExampleSentence{}
	}
	return list
}

func (s *BookmarkService) llmError(err error) error {
	if errors.Is(err, ai.ErrNoProvider) {
		return translate(err, "")
	}
	s.logger.WithError(err).Warn("Language model request failed")
	return apperr.Unavailable("language model request failed").Wrap(err)
}

// Export writes all of the user's bookmarks as a spreadsheet
func (s *BookmarkService) Export(ctx context.Context, user *models.User, w io.Writer, format excel.Format) error {
	views, err := s.bookmarks.ListAllByUser(ctx, user.ID)
	if err != nil {
		return translate(err, "bookmark")
	}
	rows := make([]excel.ExportRow, 0, len(views))
	for _, v := range views {
		rows = append(rows, excel.ExportRow{
			Word:        v.Origin,
			Translation: v.Translation,
			Context:     v.Context,
			From:        v.OriginLanguage,
			To:          v.TranslationLanguage,
			Starred:     v.Starred,
			Learned:     v.Learned,
			Created:     v.CreatedAt,
		})
	}
	if err := excel.Export(w, format, rows); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Import adds the words of a spreadsheet as bookmarks in from -> to
func (s *BookmarkService) Import(ctx context.Context, user *models.User, r io.Reader, format excel.Format, from, to string) (*excel.ImportResult, error) {
	if !supportedLanguage(from) || !supportedLanguage(to) {
		return nil, apperr.BadRequest("unsupported language pair %s-%s", from, to)
	}
	result, err := excel.ImportWords(r, format, excel.DefaultImportConfig(), func(e excel.Entry) (excel.Outcome, error) {
		_, created, err := s.contribute(ctx, user, Contribution{
			From:        from,
			To:          to,
			Word:        e.Word,
			Translation: e.Translation,
			Context:     e.Context,
		})
		if err != nil {
			return excel.Skipped, errors.New(apperr.PublicMessage(err))
		}
		if created {
			return excel.Created, nil
		}
		return excel.Updated, nil
	})
	if err != nil {
		if errors.Is(err, excel.ErrEmptyFile) {
			return result, apperr.BadRequest("the file contains no words")
		}
		return nil, apperr.BadRequest("could not read file").Wrap(err)
	}
	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID, "created": result.Created, "updated": result.Updated, "errors": len(result.Errors),
	}).Info("Bookmarks imported")
	return result, nil
}
