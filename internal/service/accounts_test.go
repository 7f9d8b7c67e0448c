package service

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/zeeguu/internal/testutil"
)

func TestAddUserAndLogin(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s, _ := newAccounts(t)

	session, err := s.AddUser(ctx, NewUser{Email: " Anna@Example.com", Password: "secret", LearnedLanguage: "de"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, testNow.Add(24*time.Hour), session.ExpiresAt)

	user, err := s.Authenticate(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", user.Email)
	assert.Equal(t, "anna", user.Name)
	assert.Equal(t, "A1", user.CEFRLevel)

	// served from the cache the second time
	again, err := s.Authenticate(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, err = s.AddUser(ctx, NewUser{Email: "anna@example.com", Password: "secret", LearnedLanguage: "de"})
	requireStatus(t, err, http.StatusConflict)

	login, err := s.Login(ctx, "ANNA@example.com", "secret")
	require.NoError(t, err)
	assert.NotEqual(t, session.ID, login.ID)

	_, err = s.Login(ctx, "anna@example.com", "wrong")
	requireStatus(t, err, http.StatusUnauthorized)
	_, err = s.Login(ctx, "nobody@example.com", "secret")
	requireStatus(t, err, http.StatusUnauthorized)

	require.NoError(t, s.Logout(ctx, login.ID))
	_, err = s.Authenticate(ctx, login.ID)
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestAddUserValidation(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s, _ := newAccounts(t)

	_, err := s.AddUser(ctx, NewUser{Email: "not-an-email", Password: "secret"})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = s.AddUser(ctx, NewUser{Email: "a@b.org", Password: "abc"})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = s.AddUser(ctx, NewUser{Email: "a@b.org", Password: "abcd", LearnedLanguage: "xx"})
	requireStatus(t, err, http.StatusBadRequest)

	s.opts.RequireInviteCode = true
	_, err = s.AddUser(ctx, NewUser{Email: "a@b.org", Password: "abcd"})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestAddUserWithInviteCode(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s, _ := newAccounts(t)
	cohorts := NewCohortService(s.logger)

	teacher := testutil.CreateUser(t, "teacher@example.com", "fr")
	teacher.IsTeacher = true
	_, err := cohorts.CreateCohort(ctx, teacher, NewCohort{Name: "French 1", InviteCode: "bonjour", Language: "fr", MaxStudents: 1})
	require.NoError(t, err)

	session, err := s.AddUser(ctx, NewUser{Email: "s1@example.com", Password: "secret", InviteCode: "bonjour"})
	require.NoError(t, err)
	student, err := s.Authenticate(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, student.CohortID)
	assert.Equal(t, "fr", student.LearnedLanguage)

	_, err = s.AddUser(ctx, NewUser{Email: "s2@example.com", Password: "secret", InviteCode: "bonjour"})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = s.AddUser(ctx, NewUser{Email: "s3@example.com", Password: "secret", InviteCode: "nope"})
	requireStatus(t, err, http.StatusBadRequest)

	// the failed registrations left nothing behind
	_, err = s.Login(ctx, "s2@example.com", "secret")
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestResetPassword(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s, mailer := newAccounts(t)
	clock, advance := clockAt(testNow)
	s.now = clock

	_, err := s.AddUser(ctx, NewUser{Email: "anna@example.com", Password: "secret", LearnedLanguage: "de"})
	require.NoError(t, err)

	requireStatus(t, s.SendResetCode(ctx, "unknown@example.com"), http.StatusBadRequest)

	require.NoError(t, s.SendResetCode(ctx, "anna@example.com"))
	require.Len(t, mailer.sent, 1)
	code := regexp.MustCompile(`\b\d{4}\b`).FindString(mailer.sent[0].text)
	require.Len(t, code, 4)

	wrong := "0000"
	if code == wrong {
		wrong = "1111"
	}
	requireStatus(t, s.ResetPassword(ctx, "anna@example.com", wrong, "newpass"), http.StatusBadRequest)
	requireStatus(t, s.ResetPassword(ctx, "anna@example.com", code, "no"), http.StatusBadRequest)

	require.NoError(t, s.ResetPassword(ctx, "anna@example.com", code, "newpass"))
	_, err = s.Login(ctx, "anna@example.com", "newpass")
	require.NoError(t, err)

	// codes are single use
	requireStatus(t, s.ResetPassword(ctx, "anna@example.com", code, "again!"), http.StatusBadRequest)

	// and expire after an hour
	require.NoError(t, s.SendResetCode(ctx, "anna@example.com"))
	code = regexp.MustCompile(`\b\d{4}\b`).FindString(mailer.sent[1].text)
	advance(2 * time.Hour)
	requireStatus(t, s.ResetPassword(ctx, "anna@example.com", code, "late!"), http.StatusBadRequest)
}

func TestUpdateSettings(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s, _ := newAccounts(t)
	user := testutil.CreateUser(t, "anna@example.com", "de")

	bad := 24
	_, err := s.UpdateSettings(ctx, user, SettingsPatch{NotificationHour: &bad})
	requireStatus(t, err, http.StatusBadRequest)

	level := "b2"
	hour := 18
	productive := false
	updated, err := s.UpdateSettings(ctx, user, SettingsPatch{CEFRLevel: &level, NotificationHour: &hour, ProductiveEnabled: &productive})
	require.NoError(t, err)
	assert.Equal(t, "B2", updated.CEFRLevel)
	assert.Equal(t, 18, updated.NotificationHour)
	assert.False(t, updated.ProductiveEnabled)

	_, err = s.SetLanguages(ctx, updated, "en", "en")
	requireStatus(t, err, http.StatusBadRequest)

	switched, err := s.SetLanguages(ctx, updated, "fr", "en")
	require.NoError(t, err)
	assert.Equal(t, "fr", switched.LearnedLanguage)
}

func TestTelegramLink(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s, _ := newAccounts(t)
	user := testutil.CreateUser(t, "anna@example.com", "de")

	code, err := s.LinkTelegram(ctx, user)
	require.NoError(t, err)
	assert.Len(t, code, 12)

	linked, err := s.RedeemTelegram(ctx, code, 4242)
	require.NoError(t, err)
	assert.Equal(t, user.ID, linked.ID)

	byChat, err := s.UserByTelegramChat(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byChat.ID)

	_, err = s.RedeemTelegram(ctx, code, 4242)
	requireStatus(t, err, http.StatusBadRequest)
}

func TestPurgeExpiredSessions(t *testing.T) {
	testutil.SetupDB(t)
	ctx := context.Background()
	s, _ := newAccounts(t)
	clock, advance := clockAt(testNow)
	s.now = clock

	_, err := s.AddUser(ctx, NewUser{Email: "anna@example.com", Password: "secret", LearnedLanguage: "de"})
	require.NoError(t, err)

	n, err := s.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	advance(25 * time.Hour)
	n, err = s.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
