package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/internal/logging"
	"github.com/example/zeeguu/internal/testutil"
	"github.com/example/zeeguu/pkg/models"
)

func newTeacher(t *testing.T, email string) *models.User {
	t.Helper()
	u := testutil.CreateUser(t, email, "de")
	u.IsTeacher = true
	require.NoError(t, database.NewUserRepository().Update(context.Background(), u))
	return u
}

func TestCohortLifecycle(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s := NewCohortService(logging.Discard())
	s.now, _ = clockAt(testNow)

	teacher := newTeacher(t, "teacher@example.com")
	student := testutil.CreateUser(t, "student@example.com", "de")

	_, err := s.CreateCohort(ctx, student, NewCohort{Name: "x", InviteCode: "x", Language: "de", MaxStudents: 3})
	requireStatus(t, err, http.StatusForbidden)

	_, err = s.CreateCohort(ctx, teacher, NewCohort{Name: "German", InviteCode: "abc", Language: "de", MaxStudents: 0})
	requireStatus(t, err, http.StatusBadRequest)

	cohort, err := s.CreateCohort(ctx, teacher, NewCohort{Name: "German", InviteCode: "abc", Language: "de", MaxStudents: 3, CEFRLevel: "b1"})
	require.NoError(t, err)
	assert.Equal(t, "B1", cohort.CEFRLevel)

	_, err = s.CreateCohort(ctx, teacher, NewCohort{Name: "Other", InviteCode: "abc", Language: "de", MaxStudents: 3})
	requireStatus(t, err, http.StatusConflict)

	ok, err := s.HasPermission(ctx, teacher, cohort.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = s.CohortInfo(ctx, student, cohort.ID)
	requireStatus(t, err, http.StatusForbidden)

	joined, err := s.JoinCohort(ctx, student, "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, joined.StudentCount)
	require.NotNil(t, student.CohortID)

	_, err = s.JoinCohort(ctx, student, "wrong")
	requireStatus(t, err, http.StatusBadRequest)

	info, err := s.CohortInfo(ctx, teacher, cohort.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, info.StudentCount)

	requireStatus(t, s.RemoveCohort(ctx, teacher, cohort.ID), http.StatusConflict)

	zero := 0
	_, err = s.UpdateCohort(ctx, teacher, cohort.ID, CohortPatch{MaxStudents: &zero})
	requireStatus(t, err, http.StatusBadRequest)
	name := "German B1"
	updated, err := s.UpdateCohort(ctx, teacher, cohort.ID, CohortPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "German B1", updated.Name)

	list, err := s.CohortsInfo(ctx, teacher)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "German B1", list[0].Name)

	require.NoError(t, s.LeaveCohort(ctx, student))
	assert.Nil(t, student.CohortID)
	require.NoError(t, s.RemoveCohort(ctx, teacher, cohort.ID))
	_, err = s.CohortInfo(ctx, teacher, cohort.ID)
	requireStatus(t, err, http.StatusForbidden)
}

func TestAddColleague(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s := NewCohortService(logging.Discard())

	teacher := newTeacher(t, "teacher@example.com")
	colleague := testutil.CreateUser(t, "colleague@example.com", "de")
	cohort, err := s.CreateCohort(ctx, teacher, NewCohort{Name: "German", InviteCode: "abc", Language: "de", MaxStudents: 3})
	require.NoError(t, err)

	requireStatus(t, s.AddColleague(ctx, teacher, cohort.ID, "nobody@example.com"), http.StatusNotFound)
	requireStatus(t, s.AddColleague(ctx, colleague, cohort.ID, "teacher@example.com"), http.StatusForbidden)

	require.NoError(t, s.AddColleague(ctx, teacher, cohort.ID, "Colleague@example.com"))
	ok, err := s.HasPermission(ctx, colleague, cohort.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := database.NewUserRepository().GetByID(ctx, colleague.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsTeacher)
}

func TestCohortArticlesAndActivity(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s := NewCohortService(logging.Discard())
	s.now, _ = clockAt(testNow)

	teacher := newTeacher(t, "teacher@example.com")
	student := testutil.CreateUser(t, "student@example.com", "de")
	cohort, err := s.CreateCohort(ctx, teacher, NewCohort{Name: "German", InviteCode: "abc", Language: "de", MaxStudents: 3})
	require.NoError(t, err)
	_, err = s.JoinCohort(ctx, student, "abc")
	require.NoError(t, err)

	articles, err := s.CohortArticles(ctx, student)
	require.NoError(t, err)
	assert.Empty(t, articles)

	a := &models.Article{URL: "https://example.com/a", Title: "A", Language: "de", CEFRLevel: "A2"}
	require.NoError(t, database.NewArticleRepository().Create(ctx, a))

	requireStatus(t, s.AddArticleToCohort(ctx, teacher, cohort.ID, 999), http.StatusNotFound)
	require.NoError(t, s.AddArticleToCohort(ctx, teacher, cohort.ID, a.ID))
	require.NoError(t, s.AddArticleToCohort(ctx, teacher, cohort.ID, a.ID))

	articles, err = s.CohortArticles(ctx, student)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "A", articles[0].Title)

	testutil.CreateBookmark(t, student.ID, "Haus", "de", "house", testNow.Add(-time.Hour))
	testutil.CreateBookmark(t, student.ID, "Baum", "de", "tree", testNow.Add(-10*24*time.Hour))

	activity, err := s.StudentsActivity(ctx, teacher, cohort.ID, 7)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, student.ID, activity[0].UserID)
	assert.Equal(t, 1, activity[0].BookmarkCount)

	_, err = s.StudentsActivity(ctx, teacher, cohort.ID, 0)
	requireStatus(t, err, http.StatusBadRequest)

	require.NoError(t, s.RemoveArticleFromCohort(ctx, teacher, cohort.ID, a.ID))
	requireStatus(t, s.RemoveArticleFromCohort(ctx, teacher, cohort.ID, a.ID), http.StatusNotFound)
}

func TestJoinFullCohort(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s := NewCohortService(logging.Discard())

	teacher := newTeacher(t, "teacher@example.com")
	first := testutil.CreateUser(t, "first@example.com", "de")
	second := testutil.CreateUser(t, "second@example.com", "de")
	_, err := s.CreateCohort(ctx, teacher, NewCohort{Name: "Small", InviteCode: "one", Language: "de", MaxStudents: 1})
	require.NoError(t, err)

	joined, err := s.JoinCohort(ctx, first, "one")
	require.NoError(t, err)
	assert.Equal(t, 1, joined.StudentCount)

	_, err = s.JoinCohort(ctx, second, "one")
	requireStatus(t, err, http.StatusBadRequest)

	stored, err := database.NewUserRepository().GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CohortID)
}
