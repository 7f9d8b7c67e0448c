package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandlerUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(InstrumentHandler)
	r.HandleFunc("/top_bookmarks/{count}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/top_bookmarks/{count}", "418"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/top_bookmarks/5", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/top_bookmarks/{count}", "418"))
	assert.Equal(t, before+1, after)
}

func TestRecordersAndHandler(t *testing.T) {
	RecordExerciseOutcome("C", true)
	RecordCrawl(2, 1, 0)
	RecordLLMRequest("anthropic", time.Second, true)
	RecordJobRun("crawl", 0, false)

	assert.GreaterOrEqual(t, testutil.ToFloat64(bookmarksLearned), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(crawledArticles.WithLabelValues("created")), 2.0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "zeeguu_study_exercise_outcomes_total"))
}
