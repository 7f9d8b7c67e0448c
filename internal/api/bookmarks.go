package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/zeeguu/internal/apperr"
	"github.com/example/zeeguu/internal/excel"
	"github.com/example/zeeguu/internal/service"
	"github.com/example/zeeguu/pkg/models"
)

// maxImportSize bounds uploaded word lists
const maxImportSize = 5 << 20

func (s *Server) bookmarkRoutes(r *mux.Router) {
	r.HandleFunc("/contribute_translation/{from}/{to}", s.authed(s.contributeTranslation)).Methods(http.MethodPost)
	r.HandleFunc("/bookmarks_by_day", s.authed(s.bookmarksByDay)).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/delete_bookmark/{id}", s.authed(s.deleteBookmark)).Methods(http.MethodPost)
	r.HandleFunc("/star_bookmark/{id}", s.authed(s.starBookmark(true))).Methods(http.MethodPost)
	r.HandleFunc("/unstar_bookmark/{id}", s.authed(s.starBookmark(false))).Methods(http.MethodPost)
	r.HandleFunc("/update_bookmark/{id}", s.authed(s.updateBookmark)).Methods(http.MethodPost)
	r.HandleFunc("/validate_bookmark/{id}", s.authed(s.validateBookmark)).Methods(http.MethodPost)
	r.HandleFunc("/top_bookmarks/{count}", s.authed(s.topBookmarks)).Methods(http.MethodGet)
	r.HandleFunc("/alternative_sentences/{id}", s.authed(s.alternativeSentences)).Methods(http.MethodGet)
	r.HandleFunc("/export_bookmarks", s.authed(s.exportBookmarks)).Methods(http.MethodGet)
	r.HandleFunc("/import_bookmarks", s.authed(s.importBookmarks)).Methods(http.MethodPost)
}

func (s *Server) contributeTranslation(w http.ResponseWriter, r *http.Request, user *models.User) {
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
	vars := mux.Vars(r)
	bookmark, err := s.svc.Bookmarks.ContributeTranslation(r.Context(), user, service.Contribution{
		From:        vars["from"],
		To:          vars["to"],
		Word:        p.str("word"),
		Translation: p.str("translation"),
		Context:     p.str("context"),
		ArticleID:   articleID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmark)
}

func (s *Server) bookmarksByDay(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	withContext := true
	if p.has("with_context") {
		if withContext, err = p.boolValue("with_context"); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	var since time.Time
	if v := p.str("after_date"); v != "" {
		if since, err = time.Parse("2006-01-02", v); err != nil {
			s.fail(w, r, apperr.BadRequest("after_date must be YYYY-MM-DD"))
			return
		}
	}
	days, err := s.svc.Bookmarks.BookmarksByDay(r.Context(), user, since, withContext)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) deleteBookmark(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Bookmarks.DeleteBookmark(r.Context(), user, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) starBookmark(starred bool) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, user *models.User) {
		id, err := pathID(r, "id")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if err := s.svc.Bookmarks.SetStarred(r.Context(), user, id, starred); err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w)
	}
}

func (s *Server) updateBookmark(w http.ResponseWriter, r *http.Request, user *models.User) {
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
	bookmark, err := s.svc.Bookmarks.UpdateBookmark(r.Context(), user, id, service.BookmarkPatch{
		Translation: p.optionalString("translation"),
		Context:     p.optionalString("context"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmark)
}

func (s *Server) validateBookmark(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	verdict, err := s.svc.Bookmarks.ValidateAndClassify(r.Context(), user, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":      verdict.Valid,
		"correction": verdict.Correction,
		"reason":     verdict.Reason,
	})
}

func (s *Server) topBookmarks(w http.ResponseWriter, r *http.Request, user *models.User) {
	n, err := pathInt(r, "count")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bookmarks, err := s.svc.Bookmarks.TopBookmarks(r.Context(), user, n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarks)
}

func (s *Server) alternativeSentences(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sentences, err := s.svc.Bookmarks.AlternativeSentences(r.Context(), user, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sentences)
}

func (s *Server) exportBookmarks(w http.ResponseWriter, r *http.Request, user *models.User) {
	format := excel.FormatXLSX
	contentType := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if r.URL.Query().Get("format") == string(excel.FormatCSV) {
		format = excel.FormatCSV
		contentType = "text/csv; charset=utf-8"
	}

	// buffered so a failed export can still answer with a JSON error
	var buf bytes.Buffer
	if err := s.svc.Bookmarks.Export(r.Context(), user, &buf, format); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bookmarks.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) importBookmarks(w http.ResponseWriter, r *http.Request, user *models.User) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, apperr.BadRequest("file is required"))
		return
	}
	defer file.Close()

	result, err := s.svc.Bookmarks.Import(r.Context(), user, file, excel.FormatFromName(header.Filename),
		p.str("from"), p.str("to"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
