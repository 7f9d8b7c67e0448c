package api

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/example/zeeguu/internal/service"
	"github.com/example/zeeguu/pkg/models"
)

func (s *Server) accountRoutes(r *mux.Router) {
	r.Handle("/add_user/{email}", s.public(s.addUser)).Methods(http.MethodPost)
	r.Handle("/session/{email}", s.public(s.login)).Methods(http.MethodPost)
	r.Handle("/send_code/{email}", s.public(s.sendCode)).Methods(http.MethodPost)
	r.Handle("/reset_password/{email}", s.public(s.resetPassword)).Methods(http.MethodPost)
	r.Handle("/available_languages", s.public(s.availableLanguages)).Methods(http.MethodGet)

	r.HandleFunc("/validate", s.authed(s.validate)).Methods(http.MethodGet)
	r.HandleFunc("/logout_session", s.authed(s.logout)).Methods(http.MethodGet)
	r.HandleFunc("/get_user_details", s.authed(s.userDetails)).Methods(http.MethodGet)
	r.HandleFunc("/user_settings", s.authed(s.userSettings)).Methods(http.MethodPost)
	r.HandleFunc("/telegram_link_code", s.authed(s.telegramLinkCode)).Methods(http.MethodGet)
}

func (s *Server) addUser(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.svc.Accounts.AddUser(r.Context(), service.NewUser{
		Email:           mux.Vars(r)["email"],
		Password:        p["password"],
		Name:            p.str("username"),
		LearnedLanguage: p.str("learned_language"),
		NativeLanguage:  p.str("native_language"),
		CEFRLevel:       p.str("cefr_level"),
		InviteCode:      p.str("invite_code"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.svc.Accounts.Login(r.Context(), mux.Vars(r)["email"], p["password"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) sendCode(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Accounts.SendResetCode(r.Context(), mux.Vars(r)["email"]); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Accounts.ResetPassword(r.Context(), mux.Vars(r)["email"], p.str("code"), p["password"]); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

type language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (s *Server) availableLanguages(w http.ResponseWriter, r *http.Request) {
	langs := make([]language, 0, len(models.Languages))
	for code, name := range models.Languages {
		langs = append(langs, language{Code: code, Name: name})
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].Code < langs[j].Code })
	writeJSON(w, http.StatusOK, langs)
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request, user *models.User) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true, "user_id": user.ID})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := s.svc.Accounts.Logout(r.Context(), sessionToken(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) userDetails(w http.ResponseWriter, r *http.Request, user *models.User) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) userSettings(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	patch := service.SettingsPatch{
		Name:            p.optionalString("name"),
		LearnedLanguage: p.optionalString("learned_language"),
		NativeLanguage:  p.optionalString("native_language"),
		CEFRLevel:       p.optionalString("cefr_level"),
	}
	if patch.ProductiveEnabled, err = p.optionalBool("productive_exercises_enabled"); err != nil {
		s.fail(w, r, err)
		return
	}
	if patch.MaxWordsInPipeline, err = p.optionalInt("max_words_in_pipeline"); err != nil {
		s.fail(w, r, err)
		return
	}
	if patch.NotificationHour, err = p.optionalInt("notification_hour"); err != nil {
		s.fail(w, r, err)
		return
	}

	updated, err := s.svc.Accounts.UpdateSettings(r.Context(), user, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) telegramLinkCode(w http.ResponseWriter, r *http.Request, user *models.User) {
	code, err := s.svc.Accounts.LinkTelegram(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}
