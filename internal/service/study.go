package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/zeeguu/internal/apperr"
	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/internal/exercises"
	"github.com/example/zeeguu/internal/metrics"
	"github.com/example/zeeguu/internal/spaced_repetition"
	"github.com/example/zeeguu/pkg/models"
)

// distractorPool is how many of the user's bookmarks feed multiple choice options
const distractorPool = 50

// OutcomeReport is an exercise result sent by a client
type OutcomeReport struct {
	BookmarkID   int64
	Outcome      string
	Source       string
	SolvingSpeed int
}

// StudyService schedules bookmarks for practice and records outcomes
type StudyService struct {
	bookmarks *database.BookmarkRepository
	schedules *database.ScheduleRepository
	outcomes  *database.ExerciseRepository
	algorithm spaced_repetition.Algorithm
	builder   *exercises.Builder
	logger    logrus.FieldLogger
	now       Clock
}

// NewStudyService creates the service using the given scheduling algorithm
func NewStudyService(algorithm spaced_repetition.Algorithm, builder *exercises.Builder, logger logrus.FieldLogger) *StudyService {
	if algorithm == nil {
		algorithm = spaced_repetition.NewBasicSR()
	}
	if builder == nil {
		builder = exercises.NewBuilder(nil)
	}
	return &StudyService{
		bookmarks: database.NewBookmarkRepository(),
		schedules: database.NewScheduleRepository(),
		outcomes:  database.NewExerciseRepository(),
		algorithm: algorithm,
		builder:   builder,
		logger:    logger,
		now:       utcNow,
	}
}

// BookmarksToStudy tops the pipeline up with new bookmarks and returns
// at most count due bookmarks in practice order
func (s *StudyService) BookmarksToStudy(ctx context.Context, user *models.User, count int) ([]models.ScheduledBookmark, error) {
	if count <= 0 {
		return nil, apperr.BadRequest("count must be positive")
	}
	now := s.now()
	var due []models.ScheduledBookmark
	err := database.WithTx(ctx, func(ctx context.Context) error {
		if err := s.fillPipeline(ctx, user, now); err != nil {
			return err
		}
		var err error
		due, err = s.schedules.ListDue(ctx, user.ID, user.LearnedLanguage, now)
		return err
	})
	if err != nil {
		return nil, translate(err, "schedule")
	}
	return spaced_repetition.Prioritize(due, count), nil
}

// fillPipeline schedules new candidates while the pipeline has room
func (s *StudyService) fillPipeline(ctx context.Context, user *models.User, now time.Time) error {
	max := user.MaxWordsInPipeline
	if max <= 0 {
		max = models.DefaultMaxWordsInPipeline
	}
	inPipeline, err := s.schedules.CountInPipeline(ctx, user.ID, user.LearnedLanguage)
	if err != nil {
		return err
	}
	if inPipeline >= max {
		return nil
	}
	candidates, err := s.bookmarks.ListCandidatesForStudy(ctx, user.ID, user.LearnedLanguage, max-inPipeline)
	if err != nil {
		return err
	}
	for _, c := range candidates {
		if err := s.schedules.Upsert(ctx, spaced_repetition.NewSchedule(c.ID, now)); err != nil {
			return err
		}
	}
	if len(candidates) > 0 {
		s.logger.WithFields(logrus.Fields{"user_id": user.ID, "added": len(candidates)}).Debug("Pipeline topped up")
	}
	return nil
}

// Exercises builds practice items for the bookmarks to study
func (s *StudyService) Exercises(ctx context.Context, user *models.User, count int) ([]exercises.Exercise, error) {
	items, err := s.BookmarksToStudy(ctx, user, count)
	if err != nil {
		return nil, err
	}
	pool, err := s.bookmarks.TopBookmarks(ctx, user.ID, distractorPool)
	if err != nil {
		return nil, translate(err, "bookmark")
	}
	return s.builder.Build(items, pool), nil
}

// ReportOutcome records an exercise result and reschedules the bookmark.
// A learned bookmark leaves the pipeline.
func (s *StudyService) ReportOutcome(ctx context.Context, user *models.User, report OutcomeReport) (*spaced_repetition.Result, error) {
	outcome, err := spaced_repetition.ParseOutcome(report.Outcome)
	if err != nil {
		return nil, translate(err, "outcome")
	}
	if report.SolvingSpeed < 0 {
		return nil, apperr.BadRequest("solving speed cannot be negative")
	}

	now := s.now()
	var result spaced_repetition.Result
	err = database.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.bookmarks.GetByID(ctx, report.BookmarkID)
		if err != nil {
			return err
		}
		if b.UserID != user.ID {
			return apperr.Forbidden("bookmark belongs to another user")
		}

		err = s.outcomes.Create(ctx, &models.ExerciseOutcome{
			BookmarkID:   b.ID,
			Outcome:      string(outcome),
			Source:       report.Source,
			SolvingSpeed: report.SolvingSpeed,
			CreatedAt:    now,
		})
		if err != nil {
			return err
		}
		if b.Learned {
			result = spaced_repetition.Result{Learned: true}
			return nil
		}

		schedule, err := s.schedules.Get(ctx, b.ID)
		if errors.Is(err, database.ErrNotFound) {
			schedule = spaced_repetition.NewSchedule(b.ID, now)
		} else if err != nil {
			return err
		}

		result = s.algorithm.Update(schedule, outcome, now, user.ProductiveEnabled)
		if !result.Learned {
			return s.schedules.Upsert(ctx, result.Schedule)
		}
		if err := s.bookmarks.SetLearned(ctx, b.ID, now); err != nil {
			return err
		}
		if err := s.schedules.Delete(ctx, b.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "bookmark")
	}

	metrics.RecordExerciseOutcome(string(outcome.First()), result.Learned)
	s.logger.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"bookmark_id": report.BookmarkID,
		"outcome":     outcome,
		"learned":     result.Learned,
	}).Debug("Exercise outcome recorded")
	return &result, nil
}

// BookmarksInPipeline returns every scheduled bookmark of the user
func (s *StudyService) BookmarksInPipeline(ctx context.Context, user *models.User) ([]models.ScheduledBookmark, error) {
	list, err := s.schedules.ListInPipeline(ctx, user.ID, user.LearnedLanguage)
	if err != nil {
		return nil, translate(err, "schedule")
	}
	if list == nil {
		list = []models.ScheduledBookmark{}
	}
	return list, nil
}

// LearnedBookmarks returns the most recently learned bookmarks
func (s *StudyService) LearnedBookmarks(ctx context.Context, user *models.User, count int) ([]models.BookmarkView, error) {
	if count <= 0 {
		return nil, apperr.BadRequest("count must be positive")
	}
	list, err := s.bookmarks.ListLearned(ctx, user.ID, count)
	if err != nil {
		return nil, translate(err, "bookmark")
	}
	if list == nil {
		list = []models.BookmarkView{}
	}
	return list, nil
}

// History returns the outcomes recorded for one of the user's bookmarks
func (s *StudyService) History(ctx context.Context, user *models.User, bookmarkID int64) ([]models.ExerciseOutcome, error) {
	b, err := s.bookmarks.GetByID(ctx, bookmarkID)
	if err != nil {
		return nil, translate(err, "bookmark")
	}
	if b.UserID != user.ID {
		return nil, apperr.NotFound("bookmark not found")
	}
	list, err := s.outcomes.ListForBookmark(ctx, bookmarkID)
	if err != nil {
		return nil, translate(err, "outcome")
	}
	if list == nil {
		list = []models.ExerciseOutcome{}
	}
	return list, nil
}

// OutcomeStats counts the user's outcomes over the last days by outcome
func (s *StudyService) OutcomeStats(ctx context.Context, user *models.User, days int) (map[string]int, error) {
	if days <= 0 {
		return nil, apperr.BadRequest("days must be positive")
	}
	end := s.now()
	stats, err := s.outcomes.GetUserStatsByPeriod(ctx, user.ID, end.Add(-time.Duration(days)*24*time.Hour), end)
	if err != nil {
		return nil, translate(err, "outcome")
	}
	return stats, nil
}

// DueCount returns how many bookmarks the user could practise now
func (s *StudyService) DueCount(ctx context.Context, user *models.User) (int, error) {
	due, err := s.schedules.ListDue(ctx, user.ID, user.LearnedLanguage, s.now())
	if err != nil {
		return 0, translate(err, "schedule")
	}
	return len(due), nil
}

// DueCounts returns the number of due bookmarks per user
func (s *StudyService) DueCounts(ctx context.Context) (map[int64]int, error) {
	return s.schedules.DueCounts(ctx, s.now())
}
