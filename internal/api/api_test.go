package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/zeeguu/internal/ai"
	"github.com/example/zeeguu/internal/cache"
	"github.com/example/zeeguu/internal/feeds"
	"github.com/example/zeeguu/internal/logging"
	"github.com/example/zeeguu/internal/mail"
	"github.com/example/zeeguu/internal/service"
	"github.com/example/zeeguu/internal/testutil"
)

type noFetcher struct{}

func (noFetcher) Fetch(context.Context, string) (*feeds.Extracted, error) {
	return nil, feeds.ErrTooLarge
}

type fieldsSplitter struct{}

func (fieldsSplitter) SplitSentences(text, _ string) []string { return []string{text} }
func (fieldsSplitter) Words(text, _ string) []string          { return strings.Fields(text) }

func newTestServer(t *testing.T, opts Options) http.Handler {
	t.Helper()
	testutil.SetupDB(t)
	logger := logging.Discard()
	svc := Services{
		Accounts: service.NewAccountService(cache.NewMemory(), mail.NewLog(logger), service.AccountOptions{
			BcryptCost: bcrypt.MinCost,
			SessionTTL: time.Hour,
		}, logger),
		Cohorts:   service.NewCohortService(logger),
		Articles:  service.NewArticleService(noFetcher{}, fieldsSplitter{}, logger),
		Bookmarks: service.NewBookmarkService(ai.NewAssistant(nil, logger), logger),
		Study:     service.NewStudyService(nil, nil, logger),
		Activity:  service.NewActivityService(),
	}
	if opts.RatePerSec == 0 {
		opts = Options{RatePerSec: 1000, Burst: 1000}
	}
	return NewServer(svc, opts, logger).Router()
}

func do(t *testing.T, h http.Handler, method, target, session string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if session != "" {
		req.Header.Set("Authorization", "Bearer "+session)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func register(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/add_user/"+email, "", url.Values{
		"password":         {"secret"},
		"username":         {"Ada"},
		"learned_language": {"de"},
		"native_language":  {"en"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		Session string `json:"session"`
	}
	decode(t, rec, &body)
	require.NotEmpty(t, body.Session)
	return body.Session
}

func TestAccountFlow(t *testing.T) {
	h := newTestServer(t, Options{})
	session := register(t, h, "ada@example.com")

	rec := do(t, h, http.MethodPost, "/add_user/ada@example.com", "", url.Values{"password": {"secret"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/session/ada@example.com", "", url.Values{"password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/validate?session="+session, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/get_user_details", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var user map[string]interface{}
	decode(t, rec, &user)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, "de", user["learned_language"])
	assert.NotContains(t, user, "password_hash")

	req := httptest.NewRequest(http.MethodPost, "/user_settings", strings.NewReader(`{"notification_hour": 25}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/user_settings", strings.NewReader(`{"notification_hour": 7, "productive_exercises_enabled": false}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &user)
	assert.EqualValues(t, 7, user["notification_hour"])
	assert.Equal(t, false, user["productive_exercises_enabled"])

	rec = do(t, h, http.MethodGet, "/logout_session", session, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/validate", session, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequiresSession(t *testing.T) {
	h := newTestServer(t, Options{})

	rec := do(t, h, http.MethodGet, "/bookmarks_in_pipeline", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.NotEmpty(t, body["error"])

	rec = do(t, h, http.MethodGet, "/bookmarks_in_pipeline", "not-a-session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookmarkAndStudyFlow(t *testing.T) {
	h := newTestServer(t, Options{})
	session := register(t, h, "ben@example.com")

	rec := do(t, h, http.MethodPost, "/contribute_translation/de/en", session, url.Values{
		"word":        {"Hund"},
		"translation": {"dog"},
		"context":     {"Der Hund bellt."},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var bookmark struct {
		ID          int64  `json:"id"`
		From        string `json:"from"`
		To          string `json:"to"`
		FitForStudy bool   `json:"fit_for_study"`
	}
	decode(t, rec, &bookmark)
	assert.Equal(t, "Hund", bookmark.From)
	assert.Equal(t, "dog", bookmark.To)
	assert.True(t, bookmark.FitForStudy)

	rec = do(t, h, http.MethodGet, "/bookmarks_by_day?with_context=false", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var days []struct {
		Bookmarks []struct {
			Context string `json:"context"`
		} `json:"bookmarks"`
	}
	decode(t, rec, &days)
	require.Len(t, days, 1)
	require.Len(t, days[0].Bookmarks, 1)
	assert.Empty(t, days[0].Bookmarks[0].Context)

	rec = do(t, h, http.MethodGet, "/bookmarks_to_study/5", session, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var due []map[string]interface{}
	decode(t, rec, &due)
	require.Len(t, due, 1)

	rec = do(t, h, http.MethodPost, "/report_exercise_outcome", session, url.Values{
		"bookmark_id": {"1"}, "outcome": {"nonsense"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/report_exercise_outcome", session, url.Values{
		"bookmark_id":   {jsonID(bookmark.ID)},
		"outcome":       {"TOO_EASY"},
		"source":        {"test"},
		"solving_speed": {"1200"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result outcomeResponse
	decode(t, rec, &result)
	assert.True(t, result.Learned)

	rec = do(t, h, http.MethodGet, "/learned_bookmarks/10", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var learned []map[string]interface{}
	decode(t, rec, &learned)
	assert.Len(t, learned, 1)

	rec = do(t, h, http.MethodGet, "/export_bookmarks?format=csv", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bookmarks.csv")
	assert.Contains(t, rec.Body.String(), "Hund,dog")
}

func TestOtherUsersBookmarkIsHidden(t *testing.T) {
	h := newTestServer(t, Options{})
	owner := register(t, h, "owner@example.com")
	other := register(t, h, "other@example.com")

	rec := do(t, h, http.MethodPost, "/contribute_translation/de/en", owner, url.Values{
		"word": {"Katze"}, "translation": {"cat"}, "context": {"Die Katze schläft."},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var bookmark struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &bookmark)

	rec = do(t, h, http.MethodPost, "/delete_bookmark/"+jsonID(bookmark.ID), other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/star_bookmark/"+jsonID(bookmark.ID), owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCohortRequiresTeacher(t *testing.T) {
	h := newTestServer(t, Options{})
	session := register(t, h, "student@example.com")

	rec := do(t, h, http.MethodPost, "/create_own_cohort", session, url.Values{
		"name": {"Class"}, "inv_code": {"abc"}, "language_code": {"de"}, "max_students": {"10"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodGet, "/is_teacher", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]bool
	decode(t, rec, &body)
	assert.False(t, body["is_teacher"])

	rec = do(t, h, http.MethodPost, "/join_cohort", session, url.Values{"inv_code": {"missing"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivity(t *testing.T) {
	h := newTestServer(t, Options{})
	session := register(t, h, "eve@example.com")

	rec := do(t, h, http.MethodPost, "/upload_user_activity_data", session, url.Values{"value": {"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/upload_user_activity_data", session, url.Values{
		"event": {"OPEN_ARTICLE"}, "value": {"1"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/user_activity_data/10", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []map[string]interface{}
	decode(t, rec, &events)
	assert.Len(t, events, 1)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, Options{RatePerSec: 1, Burst: 1})

	rec := do(t, h, http.MethodGet, "/available_languages", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/available_languages", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// health checks are not limited
	rec = do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitIgnoresUnverifiedSessions(t *testing.T) {
	h := newTestServer(t, Options{RatePerSec: 1, Burst: 1})
	session := register(t, h, "ada@example.com")

	// the registration used up this client's anonymous allowance
	limited := 0
	for i := 0; i < 20; i++ {
		target := fmt.Sprintf("/reset_password/ada@example.com?session=bogus%d", i)
		rec := do(t, h, http.MethodPost, target, "", url.Values{"code": {"0000"}, "password": {"guess"}})
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 20, limited)

	for i := 0; i < 5; i++ {
		rec := do(t, h, http.MethodGet, "/bookmarks_in_pipeline", fmt.Sprintf("bogus%d", i), nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	}

	// a signed-in user has a bucket of their own
	rec := do(t, h, http.MethodGet, "/bookmarks_in_pipeline", session, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/bookmarks_in_pipeline", session, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRequestIDAndNotFound(t *testing.T) {
	h := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/no/such/route", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, logging.Discard())
	rl.getLimiter("a")
	rl.Cleanup(-time.Second)
	assert.Empty(t, rl.limiters)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
