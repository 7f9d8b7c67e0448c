package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/zeeguu/internal/service"
	"github.com/example/zeeguu/pkg/models"
)

func (s *Server) cohortRoutes(r *mux.Router) {
	r.HandleFunc("/create_own_cohort", s.authed(s.createCohort)).Methods(http.MethodPost)
	r.HandleFunc("/join_cohort", s.authed(s.joinCohort)).Methods(http.MethodPost)
	r.HandleFunc("/leave_cohort", s.authed(s.leaveCohort)).Methods(http.MethodPost)
	r.HandleFunc("/cohort_info/{id}", s.authed(s.cohortInfo)).Methods(http.MethodGet)
	r.HandleFunc("/update_cohort/{id}", s.authed(s.updateCohort)).Methods(http.MethodPost)
	r.HandleFunc("/remove_cohort/{id}", s.authed(s.removeCohort)).Methods(http.MethodPost)
	r.HandleFunc("/add_colleague_to_cohort", s.authed(s.addColleague)).Methods(http.MethodPost)
	r.HandleFunc("/users_from_cohort/{id}/{days}", s.authed(s.studentsActivity)).Methods(http.MethodGet)
	r.HandleFunc("/has_permission_for_cohort/{id}", s.authed(s.hasPermission)).Methods(http.MethodGet)
	r.HandleFunc("/is_teacher", s.authed(s.isTeacher)).Methods(http.MethodGet)
	r.HandleFunc("/cohorts_info", s.authed(s.cohortsInfo)).Methods(http.MethodGet)
	r.HandleFunc("/add_article_to_cohort", s.authed(s.addArticleToCohort)).Methods(http.MethodPost)
	r.HandleFunc("/delete_article_from_cohort", s.authed(s.removeArticleFromCohort)).Methods(http.MethodPost)
	r.HandleFunc("/cohort_articles", s.authed(s.cohortArticles)).Methods(http.MethodGet)
}

func (s *Server) createCohort(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	maxStudents, err := p.intValue("max_students", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cohort, err := s.svc.Cohorts.CreateCohort(r.Context(), user, service.NewCohort{
		Name:        p.str("name"),
		InviteCode:  p.str("inv_code"),
		Language:    p.str("language_code"),
		MaxStudents: maxStudents,
		CEFRLevel:   p.str("declared_level"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cohort)
}

func (s *Server) joinCohort(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cohort, err := s.svc.Cohorts.JoinCohort(r.Context(), user, p.str("inv_code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cohort)
}

func (s *Server) leaveCohort(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := s.svc.Cohorts.LeaveCohort(r.Context(), user); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) cohortInfo(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cohort, err := s.svc.Cohorts.CohortInfo(r.Context(), user, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cohort)
}

func (s *Server) updateCohort(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	patch := service.CohortPatch{
		Name:       p.optionalString("name"),
		InviteCode: p.optionalString("inv_code"),
		CEFRLevel:  p.optionalString("declared_level"),
	}
	if patch.MaxStudents, err = p.optionalInt("max_students"); err != nil {
		s.fail(w, r, err)
		return
	}
	cohort, err := s.svc.Cohorts.UpdateCohort(r.Context(), user, id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cohort)
}

func (s *Server) removeCohort(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Cohorts.RemoveCohort(r.Context(), user, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) addColleague(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := p.id("cohort_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	email, err := p.required("colleague_email")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Cohorts.AddColleague(r.Context(), user, id, email); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) studentsActivity(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	days, err := pathInt(r, "days")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	students, err := s.svc.Cohorts.StudentsActivity(r.Context(), user, id, days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (s *Server) hasPermission(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok, err := s.svc.Cohorts.HasPermission(r.Context(), user, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"permission": ok})
}

func (s *Server) isTeacher(w http.ResponseWriter, r *http.Request, user *models.User) {
	writeJSON(w, http.StatusOK, map[string]bool{"is_teacher": s.svc.Cohorts.IsTeacher(user)})
}

func (s *Server) cohortsInfo(w http.ResponseWriter, r *http.Request, user *models.User) {
	cohorts, err := s.svc.Cohorts.CohortsInfo(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cohorts)
}

// cohortArticle reads the cohort_id and article_id parameters
func cohortArticle(r *http.Request) (int64, int64, error) {
	p, err := readParams(r)
	if err != nil {
		return 0, 0, err
	}
	cohortID, err := p.id("cohort_id")
	if err != nil {
		return 0, 0, err
	}
	articleID, err := p.id("article_id")
	if err != nil {
		return 0, 0, err
	}
	return cohortID, articleID, nil
}

func (s *Server) addArticleToCohort(w http.ResponseWriter, r *http.Request, user *models.User) {
	cohortID, articleID, err := cohortArticle(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Cohorts.AddArticleToCohort(r.Context(), user, cohortID, articleID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) removeArticleFromCohort(w http.ResponseWriter, r *http.Request, user *models.User) {
	cohortID, articleID, err := cohortArticle(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Cohorts.RemoveArticleFromCohort(r.Context(), user, cohortID, articleID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) cohortArticles(w http.ResponseWriter, r *http.Request, user *models.User) {
	articles, err := s.svc.Cohorts.CohortArticles(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}
