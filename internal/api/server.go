// Package api exposes the services over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/example/zeeguu/internal/apperr"
	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/internal/metrics"
	"github.com/example/zeeguu/internal/service"
	"github.com/example/zeeguu/pkg/models"
)

const healthTimeout = 2 * time.Second

// Services are the handlers' dependencies
type Services struct {
	Accounts  *service.AccountService
	Cohorts   *service.CohortService
	Articles  *service.ArticleService
	Bookmarks *service.BookmarkService
	Study     *service.StudyService
	Activity  *service.ActivityService
}

// Options configures the router
type Options struct {
	RatePerSec int
	Burst      int
}

// Server routes API requests to the services
type Server struct {
	svc     Services
	limiter *RateLimiter
	logger  logrus.FieldLogger
}

// authedHandler is a handler for a request with a valid session
type authedHandler func(w http.ResponseWriter, r *http.Request, user *models.User)

// NewServer creates a Server
func NewServer(svc Services, opts Options, logger logrus.FieldLogger) *Server {
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 20
	}
	if opts.Burst <= 0 {
		opts.Burst = 2 * opts.RatePerSec
	}
	return &Server{
		svc:     svc,
		limiter: NewRateLimiter(opts.RatePerSec, opts.Burst, logger),
		logger:  logger,
	}
}

// Limiter returns the server's rate limiter so its cleanup can be scheduled
func (s *Server) Limiter() *RateLimiter {
	return s.limiter
}

// Router builds the HTTP handler with all routes and middleware
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(metrics.InstrumentHandler)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	s.accountRoutes(r)
	s.cohortRoutes(r)
	s.articleRoutes(r)
	s.bookmarkRoutes(r)
	s.studyRoutes(r)
	s.activityRoutes(r)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, s.logger, apperr.NotFound("no such endpoint"))
	})
	// mux middleware only runs for matched routes
	return requestLogger(s.logger)(recoverer(s.logger)(r))
}

// public rate limits an anonymous route per client IP
func (s *Server) public(h http.HandlerFunc) http.Handler {
	return s.limiter.Handler(h)
}

// authed resolves the session before calling h. Requests without a valid
// session count against the client IP; the rest against the user.
func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.authenticate(r)
		if err != nil {
			if key := ipKey(r); !s.limiter.Allow(key) {
				s.limiter.reject(w, r, key)
				return
			}
			writeError(w, r, s.logger, err)
			return
		}
		if key := userKey(user.ID); !s.limiter.Allow(key) {
			s.limiter.reject(w, r, key)
			return
		}
		h(w, r, user)
	}
}

func (s *Server) authenticate(r *http.Request) (*models.User, error) {
	token := sessionToken(r)
	if token == "" {
		return nil, apperr.Unauthorized("session required")
	}
	return s.svc.Accounts.Authenticate(r.Context(), token)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, s.logger, err)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if database.DB == nil || database.DB.PingContext(ctx) != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
