package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/zeeguu/internal/apperr"
	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/internal/difficulty"
	"github.com/example/zeeguu/pkg/models"
)

// NewCohort is the input of CreateCohort
type NewCohort struct {
	Name        string
	InviteCode  string
	Language    string
	MaxStudents int
	CEFRLevel   string
}

// CohortPatch holds the cohort fields to change; nil fields are kept
type CohortPatch struct {
	Name        *string
	InviteCode  *string
	MaxStudents *int
	CEFRLevel   *string
}

// CohortService manages teacher cohorts
type CohortService struct {
	cohorts  *database.CohortRepository
	users    *database.UserRepository
	articles *database.ArticleRepository
	logger   logrus.FieldLogger
	now      Clock
}

// NewCohortService creates the service
func NewCohortService(logger logrus.FieldLogger) *CohortService {
	return &CohortService{
		cohorts:  database.NewCohortRepository(),
		users:    database.NewUserRepository(),
		articles: database.NewArticleRepository(),
		logger:   logger,
		now:      utcNow,
	}
}

// IsTeacher reports whether the user may create cohorts
func (s *CohortService) IsTeacher(user *models.User) bool {
	return user.IsTeacher
}

// CreateCohort creates a cohort taught by teacher
func (s *CohortService) CreateCohort(ctx context.Context, teacher *models.User, in NewCohort) (*models.CohortInfo, error) {
	if !teacher.IsTeacher {
		return nil, apperr.Forbidden("only teachers can create cohorts")
	}
	cohort := &models.Cohort{
		Name:        strings.TrimSpace(in.Name),
		InviteCode:  strings.TrimSpace(in.InviteCode),
		Language:    in.Language,
		MaxStudents: in.MaxStudents,
		CEFRLevel:   levelOr(in.CEFRLevel, "A1"),
		CreatedAt:   s.now(),
	}
	switch {
	case cohort.Name == "":
		return nil, apperr.BadRequest("name is required")
	case cohort.InviteCode == "":
		return nil, apperr.BadRequest("invite code is required")
	case cohort.MaxStudents <= 0:
		return nil, apperr.BadRequest("max students must be positive")
	case !supportedLanguage(cohort.Language):
		return nil, apperr.BadRequest("unsupported language %q", cohort.Language)
	}

	if err := s.cohorts.Create(ctx, cohort, teacher.ID); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperr.Conflict("invite code already in use").Wrap(err)
		}
		return nil, translate(err, "cohort")
	}
	s.logger.WithFields(logrus.Fields{"cohort_id": cohort.ID, "teacher_id": teacher.ID}).Info("Cohort created")
	return &models.CohortInfo{Cohort: *cohort}, nil
}

// joinableCohort locks the cohort for code and returns it when it still
// has room; callers run it in a transaction
func joinableCohort(ctx context.Context, cohorts *database.CohortRepository, code string) (*models.CohortInfo, error) {
	cohort, err := cohorts.LockByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperr.BadRequest("invalid invite code")
		}
		return nil, err
	}
	if cohort.StudentCount >= cohort.MaxStudents {
		return nil, apperr.BadRequest("cohort is full")
	}
	return cohort, nil
}

// JoinCohort moves a student into the cohort with the invite code
func (s *CohortService) JoinCohort(ctx context.Context, student *models.User, code string) (*models.CohortInfo, error) {
	var cohort *models.CohortInfo
	err := database.WithTx(ctx, func(ctx context.Context) error {
		var err error
		cohort, err = joinableCohort(ctx, s.cohorts, strings.TrimSpace(code))
		if err != nil {
			return err
		}
		if student.CohortID != nil && *student.CohortID == cohort.ID {
			return nil
		}
		if err := s.users.SetCohort(ctx, student.ID, &cohort.ID); err != nil {
			return err
		}
		cohort.StudentCount++
		return nil
	})
	if err != nil {
		return nil, translate(err, "cohort")
	}
	student.CohortID = &cohort.ID
	return cohort, nil
}

// LeaveCohort removes a student from their cohort
func (s *CohortService) LeaveCohort(ctx context.Context, student *models.User) error {
	if err := s.users.SetCohort(ctx, student.ID, nil); err != nil {
		return translate(err, "user")
	}
	student.CohortID = nil
	return nil
}

// HasPermission reports whether user teaches the cohort
func (s *CohortService) HasPermission(ctx context.Context, user *models.User, cohortID int64) (bool, error) {
	ok, err := s.cohorts.IsTeacher(ctx, cohortID, user.ID)
	if err != nil {
		return false, translate(err, "cohort")
	}
	return ok, nil
}

func (s *CohortService) requireTeacher(ctx context.Context, user *models.User, cohortID int64) error {
	ok, err := s.HasPermission(ctx, user, cohortID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("no permission for this cohort")
	}
	return nil
}

// CohortInfo returns a cohort the user teaches
func (s *CohortService) CohortInfo(ctx context.Context, teacher *models.User, cohortID int64) (*models.CohortInfo, error) {
	if err := s.requireTeacher(ctx, teacher, cohortID); err != nil {
		return nil, err
	}
	info, err := s.cohorts.GetByID(ctx, cohortID)
	if err != nil {
		return nil, translate(err, "cohort")
	}
	return info, nil
}

// CohortsInfo returns every cohort the user teaches
func (s *CohortService) CohortsInfo(ctx context.Context, teacher *models.User) ([]models.CohortInfo, error) {
	cohorts, err := s.cohorts.ListForTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, translate(err, "cohort")
	}
	return cohorts, nil
}

// UpdateCohort applies a patch to a cohort the user teaches
func (s *CohortService) UpdateCohort(ctx context.Context, teacher *models.User, cohortID int64, patch CohortPatch) (*models.CohortInfo, error) {
	info, err := s.CohortInfo(ctx, teacher, cohortID)
	if err != nil {
		return nil, err
	}
	cohort := info.Cohort
	if patch.Name != nil {
		if cohort.Name = strings.TrimSpace(*patch.Name); cohort.Name == "" {
			return nil, apperr.BadRequest("name is required")
		}
	}
	if patch.InviteCode != nil {
		if cohort.InviteCode = strings.TrimSpace(*patch.InviteCode); cohort.InviteCode == "" {
			return nil, apperr.BadRequest("invite code is required")
		}
	}
	if patch.MaxStudents != nil {
		if *patch.MaxStudents < info.StudentCount || *patch.MaxStudents <= 0 {
			return nil, apperr.BadRequest("max students must be at least the current %d students", info.StudentCount)
		}
		cohort.MaxStudents = *patch.MaxStudents
	}
	if patch.CEFRLevel != nil {
		if !difficulty.ValidLevel(*patch.CEFRLevel) {
			return nil, apperr.BadRequest("invalid CEFR level %q", *patch.CEFRLevel)
		}
		cohort.CEFRLevel = difficulty.ParseLevel(*patch.CEFRLevel)
	}
	if err := s.cohorts.Update(ctx, &cohort); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperr.Conflict("invite code already in use").Wrap(err)
		}
		return nil, translate(err, "cohort")
	}
	return &models.CohortInfo{Cohort: cohort, StudentCount: info.StudentCount}, nil
}

// RemoveCohort deletes an empty cohort
func (s *CohortService) RemoveCohort(ctx context.Context, teacher *models.User, cohortID int64) error {
	info, err := s.CohortInfo(ctx, teacher, cohortID)
	if err != nil {
		return err
	}
	if info.StudentCount > 0 {
		return apperr.Conflict("cohort still has %d students", info.StudentCount)
	}
	return translate(s.cohorts.Delete(ctx, cohortID), "cohort")
}

// AddColleague makes the user with email a teacher of the cohort
func (s *CohortService) AddColleague(ctx context.Context, teacher *models.User, cohortID int64, email string) error {
	if err := s.requireTeacher(ctx, teacher, cohortID); err != nil {
		return err
	}
	err := database.WithTx(ctx, func(ctx context.Context) error {
		colleague, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if !colleague.IsTeacher {
			colleague.IsTeacher = true
			if err := s.users.Update(ctx, colleague); err != nil {
				return err
			}
		}
		return s.cohorts.AddTeacher(ctx, cohortID, colleague.ID)
	})
	return translate(err, "user")
}

// StudentsActivity summarises each student's work over the last days
func (s *CohortService) StudentsActivity(ctx context.Context, teacher *models.User, cohortID int64, days int) ([]models.StudentActivity, error) {
	if days <= 0 {
		return nil, apperr.BadRequest("days must be positive")
	}
	if err := s.requireTeacher(ctx, teacher, cohortID); err != nil {
		return nil, err
	}
	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	activity, err := s.cohorts.StudentsActivity(ctx, cohortID, since)
	if err != nil {
		return nil, translate(err, "cohort")
	}
	return activity, nil
}

// AddArticleToCohort publishes an article to the cohort's students
func (s *CohortService) AddArticleToCohort(ctx context.Context, teacher *models.User, cohortID, articleID int64) error {
	if err := s.requireTeacher(ctx, teacher, cohortID); err != nil {
		return err
	}
	if _, err := visibleArticle(ctx, s.articles, teacher, articleID); err != nil {
		return translate(err, "article")
	}
	return translate(s.cohorts.AddArticle(ctx, cohortID, articleID, s.now()), "article")
}

// RemoveArticleFromCohort unpublishes an article
func (s *CohortService) RemoveArticleFromCohort(ctx context.Context, teacher *models.User, cohortID, articleID int64) error {
	if err := s.requireTeacher(ctx, teacher, cohortID); err != nil {
		return err
	}
	return translate(s.cohorts.RemoveArticle(ctx, cohortID, articleID), "article")
}

// CohortArticles returns the articles published to the student's cohort
func (s *CohortService) CohortArticles(ctx context.Context, student *models.User) ([]models.Article, error) {
	if student.CohortID == nil {
		return []models.Article{}, nil
	}
	articles, err := s.cohorts.ListArticles(ctx, *student.CohortID)
	if err != nil {
		return nil, translate(err, "cohort")
	}
	return articles, nil
}
