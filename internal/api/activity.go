package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/zeeguu/internal/service"
	"github.com/example/zeeguu/pkg/models"
)

func (s *Server) activityRoutes(r *mux.Router) {
	r.HandleFunc("/upload_user_activity_data", s.authed(s.uploadActivity)).Methods(http.MethodPost)
	r.HandleFunc("/user_activity_data/{count}", s.authed(s.recentActivity)).Methods(http.MethodGet)
}

func (s *Server) uploadActivity(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	articleID, err := p.optionalID("article_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	err = s.svc.Activity.UploadActivity(r.Context(), user, service.ActivityEvent{
		Event:     p.str("event"),
		Value:     p.str("value"),
		ExtraData: p.str("extra_data"),
		ArticleID: articleID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) recentActivity(w http.ResponseWriter, r *http.Request, user *models.User) {
	n, err := pathInt(r, "count")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events, err := s.svc.Activity.Recent(r.Context(), user, n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
