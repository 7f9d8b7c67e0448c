package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/zeeguu/pkg/models"
)

const cohortColumns = "c.id, c.name, c.invite_code, c.language, c.max_students, c.cefr_level, c.created_at"

// CohortRepository handles database operations for cohorts
type CohortRepository struct{}

// NewCohortRepository creates a new repository instance
func NewCohortRepository() *CohortRepository {
	return &CohortRepository{}
}

// Create inserts a cohort and registers its first teacher
func (r *CohortRepository) Create(ctx context.Context, cohort *models.Cohort, teacherID int64) error {
	if cohort.CreatedAt.IsZero() {
		cohort.CreatedAt = time.Now().UTC()
	}
	return WithTx(ctx, func(ctx context.Context) error {
		id, err := insert(ctx, `
			INSERT INTO cohorts (name, invite_code, language, max_students, cefr_level, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			cohort.Name, cohort.InviteCode, cohort.Language, cohort.MaxStudents, cohort.CEFRLevel, cohort.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create cohort: %w", err)
		}
		cohort.ID = id
		return r.AddTeacher(ctx, id, teacherID)
	})
}

// GetByID returns a cohort with its student count
func (r *CohortRepository) GetByID(ctx context.Context, id int64) (*models.CohortInfo, error) {
	var info models.CohortInfo
	err := get(ctx, &info, `
		SELECT `+cohortColumns+`, (SELECT COUNT(*) FROM users u WHERE u.cohort_id = c.id) AS student_count
		FROM cohorts c WHERE c.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get cohort: %w", err)
	}
	return &info, nil
}

// GetByInviteCode returns a cohort with its student count
func (r *CohortRepository) GetByInviteCode(ctx context.Context, code string) (*models.CohortInfo, error) {
	var info models.CohortInfo
	err := get(ctx, &info, `
		SELECT `+cohortColumns+`, (SELECT COUNT(*) FROM users u WHERE u.cohort_id = c.id) AS student_count
		FROM cohorts c WHERE c.invite_code = ?`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get cohort by invite code: %w", err)
	}
	return &info, nil
}

// LockByInviteCode row-locks the cohort with code for the rest of the
// transaction and returns it with a student count taken under the lock.
// Run it inside WithTx so concurrent joins see each other's students.
func (r *CohortRepository) LockByInviteCode(ctx context.Context, code string) (*models.CohortInfo, error) {
	// a no-op write takes the row lock on postgres and the write lock on sqlite
	if err := exec(ctx, "UPDATE cohorts SET invite_code = invite_code WHERE invite_code = ?", code); err != nil {
		return nil, fmt.Errorf("failed to lock cohort: %w", err)
	}
	return r.GetByInviteCode(ctx, code)
}

// Update modifies a cohort
func (r *CohortRepository) Update(ctx context.Context, cohort *models.Cohort) error {
	err := exec(ctx, `
		UPDATE cohorts SET name = ?, invite_code = ?, language = ?, max_students = ?, cefr_level = ?
		WHERE id = ?`,
		cohort.Name, cohort.InviteCode, cohort.Language, cohort.MaxStudents, cohort.CEFRLevel, cohort.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update cohort: %w", err)
	}
	return nil
}

// Delete removes a cohort; teacher links and cohort articles cascade
func (r *CohortRepository) Delete(ctx context.Context, id int64) error {
	if err := exec(ctx, "DELETE FROM cohorts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete cohort: %w", err)
	}
	return nil
}

// AddTeacher grants a user teacher rights on a cohort; it is idempotent
func (r *CohortRepository) AddTeacher(ctx context.Context, cohortID, userID int64) error {
	err := execAny(ctx, "INSERT INTO cohort_teachers (cohort_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING", cohortID, userID)
	if err != nil {
		return fmt.Errorf("failed to add teacher: %w", err)
	}
	return nil
}

// IsTeacher reports whether the user teaches the cohort
func (r *CohortRepository) IsTeacher(ctx context.Context, cohortID, userID int64) (bool, error) {
	var n int
	if err := get(ctx, &n, "SELECT COUNT(*) FROM cohort_teachers WHERE cohort_id = ? AND user_id = ?", cohortID, userID); err != nil {
		return false, fmt.Errorf("failed to check teacher: %w", err)
	}
	return n > 0, nil
}

// ListForTeacher returns the cohorts a user teaches
func (r *CohortRepository) ListForTeacher(ctx context.Context, userID int64) ([]models.CohortInfo, error) {
	var cohorts []models.CohortInfo
	err := list(ctx, &cohorts, `
		SELECT `+cohortColumns+`, (SELECT COUNT(*) FROM users u WHERE u.cohort_id = c.id) AS student_count
		FROM cohorts c
		JOIN cohort_teachers t ON t.cohort_id = c.id
		WHERE t.user_id = ?
		ORDER BY c.name, c.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cohorts: %w", err)
	}
	return cohorts, nil
}

// AddArticle publishes an article to a cohort; re-adding is a no-op
func (r *CohortRepository) AddArticle(ctx context.Context, cohortID, articleID int64, now time.Time) error {
	err := execAny(ctx, `
		INSERT INTO cohort_articles (cohort_id, article_id, published_at) VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING`, cohortID, articleID, now)
	if err != nil {
		return fmt.Errorf("failed to add article to cohort: %w", err)
	}
	return nil
}

// RemoveArticle unpublishes an article from a cohort
func (r *CohortRepository) RemoveArticle(ctx context.Context, cohortID, articleID int64) error {
	if err := exec(ctx, "DELETE FROM cohort_articles WHERE cohort_id = ? AND article_id = ?", cohortID, articleID); err != nil {
		return fmt.Errorf("failed to remove article from cohort: %w", err)
	}
	return nil
}

// ListArticles returns the articles published to a cohort, newest first
func (r *CohortRepository) ListArticles(ctx context.Context, cohortID int64) ([]models.Article, error) {
	var articles []models.Article
	err := list(ctx, &articles, `
		SELECT `+articleSummaryColumns+`
		FROM articles a
		JOIN cohort_articles ca ON ca.article_id = a.id
		WHERE ca.cohort_id = ?
		ORDER BY ca.published_at DESC`, cohortID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cohort articles: %w", err)
	}
	return articles, nil
}

// StudentsActivity summarises each student's work since the given time
func (r *CohortRepository) StudentsActivity(ctx context.Context, cohortID int64, since time.Time) ([]models.StudentActivity, error) {
	var activity []models.StudentActivity
	err := list(ctx, &activity, `
		SELECT u.id, u.name, u.email,
			(SELECT COUNT(*) FROM bookmarks b WHERE b.user_id = u.id AND b.created_at >= ?) AS bookmark_count,
			(SELECT COUNT(*) FROM exercise_outcomes e JOIN bookmarks b ON b.id = e.bookmark_id
				WHERE b.user_id = u.id AND e.created_at >= ?) AS exercise_count,
			(SELECT COUNT(*) FROM bookmarks b WHERE b.user_id = u.id AND b.learned_at >= ?) AS learned_count,
			(SELECT COUNT(*) FROM user_articles ua WHERE ua.user_id = u.id AND ua.opened >= ?) AS articles_opened
		FROM users u
		WHERE u.cohort_id = ?
		ORDER BY u.name, u.id`, since, since, since, since, cohortID)
	if err != nil {
		return nil, fmt.Errorf("failed to get students activity: %w", err)
	}
	return activity, nil
}
