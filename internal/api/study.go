package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/zeeguu/internal/service"
	"github.com/example/zeeguu/pkg/models"
)

func (s *Server) studyRoutes(r *mux.Router) {
	r.HandleFunc("/bookmarks_to_study/{count}", s.authed(s.bookmarksToStudy)).Methods(http.MethodGet)
	r.HandleFunc("/bookmarks_in_pipeline", s.authed(s.bookmarksInPipeline)).Methods(http.MethodGet)
	r.HandleFunc("/report_exercise_outcome", s.authed(s.reportOutcome)).Methods(http.MethodPost)
	r.HandleFunc("/learned_bookmarks/{count}", s.authed(s.learnedBookmarks)).Methods(http.MethodGet)
	r.HandleFunc("/exercises/{count}", s.authed(s.exercises)).Methods(http.MethodGet)
	r.HandleFunc("/exercise_history/{id}", s.authed(s.exerciseHistory)).Methods(http.MethodGet)
	r.HandleFunc("/exercise_stats/{days}", s.authed(s.exerciseStats)).Methods(http.MethodGet)
}

func (s *Server) bookmarksToStudy(w http.ResponseWriter, r *http.Request, user *models.User) {
	n, err := pathInt(r, "count")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items, err := s.svc.Study.BookmarksToStudy(r.Context(), user, n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) bookmarksInPipeline(w http.ResponseWriter, r *http.Request, user *models.User) {
	items, err := s.svc.Study.BookmarksInPipeline(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type outcomeResponse struct {
	Learned  bool             `json:"learned"`
	Advanced bool             `json:"advanced"`
	Schedule *models.Schedule `json:"schedule,omitempty"`
}

func (s *Server) reportOutcome(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := p.id("bookmark_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	outcome, err := p.required("outcome")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	speed, err := p.intValue("solving_speed", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.svc.Study.ReportOutcome(r.Context(), user, service.OutcomeReport{
		BookmarkID:   id,
		Outcome:      outcome,
		Source:       p.str("source"),
		SolvingSpeed: speed,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse{Learned: res.Learned, Advanced: res.Advanced, Schedule: res.Schedule})
}

func (s *Server) learnedBookmarks(w http.ResponseWriter, r *http.Request, user *models.User) {
	n, err := pathInt(r, "count")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items, err := s.svc.Study.LearnedBookmarks(r.Context(), user, n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) exercises(w http.ResponseWriter, r *http.Request, user *models.User) {
	n, err := pathInt(r, "count")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items, err := s.svc.Study.Exercises(r.Context(), user, n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) exerciseHistory(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items, err := s.svc.Study.History(r.Context(), user, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) exerciseStats(w http.ResponseWriter, r *http.Request, user *models.User) {
	days, err := pathInt(r, "days")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	stats, err := s.svc.Study.OutcomeStats(r.Context(), user, days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
