package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/zeeguu/pkg/models"
)

const (
	defaultArticleCount = 20
	maxArticleCount     = 100
)

func (s *Server) articleRoutes(r *mux.Router) {
	r.HandleFunc("/user_articles/recommended", s.authed(s.recommended)).Methods(http.MethodGet)
	r.HandleFunc("/user_articles/starred_or_liked", s.authed(s.starredOrLiked)).Methods(http.MethodGet)
	r.HandleFunc("/user_article", s.authed(s.userArticle)).Methods(http.MethodGet)
	r.HandleFunc("/user_article", s.authed(s.updateUserArticle)).Methods(http.MethodPost)
	r.HandleFunc("/article_opened", s.authed(s.articleOpened)).Methods(http.MethodPost)
	r.HandleFunc("/find_or_create_article", s.authed(s.findOrCreateArticle)).Methods(http.MethodPost)
	r.HandleFunc("/upload_own_text", s.authed(s.uploadOwnText)).Methods(http.MethodPost)
	r.HandleFunc("/own_texts", s.authed(s.ownTexts)).Methods(http.MethodGet)
	r.HandleFunc("/report_broken_article", s.authed(s.reportBroken)).Methods(http.MethodPost)
	r.HandleFunc("/search/{query}", s.authed(s.search)).Methods(http.MethodGet)

	r.HandleFunc("/interesting_feeds/{lang}", s.authed(s.interestingFeeds)).Methods(http.MethodGet)
	r.HandleFunc("/start_following_feed", s.authed(s.followFeed)).Methods(http.MethodPost)
	r.HandleFunc("/stop_following_feed/{id}", s.authed(s.unfollowFeed)).Methods(http.MethodPost)
	r.HandleFunc("/get_feeds_being_followed", s.authed(s.followedFeeds)).Methods(http.MethodGet)
	r.HandleFunc("/add_feed", s.authed(s.addFeed)).Methods(http.MethodPost)
}

// count reads the count parameter, clamped to maxArticleCount
func count(p params) (int, error) {
	n, err := p.intValue("count", defaultArticleCount)
	if err != nil {
		return 0, err
	}
	if n <= 0 || n > maxArticleCount {
		n = maxArticleCount
	}
	return n, nil
}

func (s *Server) recommended(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := count(p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	articles, err := s.svc.Articles.Recommended(r.Context(), user, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) starredOrLiked(w http.ResponseWriter, r *http.Request, user *models.User) {
	articles, err := s.svc.Articles.StarredOrLiked(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) userArticle(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := p.id("article_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	article, err := s.svc.Articles.UserArticle(r.Context(), user, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *Server) updateUserArticle(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := p.id("article_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	liked, err := p.optionalBool("liked")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	starred, err := p.optionalBool("starred")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if liked != nil {
		if err := s.svc.Articles.SetLiked(ctx, user, id, *liked); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if starred != nil {
		if err := s.svc.Articles.SetStarred(ctx, user, id, *starred); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	writeOK(w)
}

func (s *Server) articleOpened(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := p.id("article_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Articles.ArticleOpened(r.Context(), user, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) findOrCreateArticle(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pageURL, err := p.required("url")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	article, err := s.svc.Articles.FindOrCreateArticle(r.Context(), user, pageURL, p.str("language"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *Server) uploadOwnText(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	article, err := s.svc.Articles.UploadOwnText(r.Context(), user, p.str("title"), p.str("content"), p.str("language"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, article)
}

func (s *Server) ownTexts(w http.ResponseWriter, r *http.Request, user *models.User) {
	articles, err := s.svc.Articles.OwnTexts(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) reportBroken(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := p.id("article_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Articles.ReportBroken(r.Context(), user, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := count(p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	articles, err := s.svc.Articles.Search(r.Context(), user, mux.Vars(r)["query"], limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) interestingFeeds(w http.ResponseWriter, r *http.Request, user *models.User) {
	feeds, err := s.svc.Articles.InterestingFeeds(r.Context(), mux.Vars(r)["lang"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feeds)
}

func (s *Server) followFeed(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := p.id("source_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Articles.FollowFeed(r.Context(), user, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) unfollowFeed(w http.ResponseWriter, r *http.Request, user *models.User) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Articles.UnfollowFeed(r.Context(), user, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) followedFeeds(w http.ResponseWriter, r *http.Request, user *models.User) {
	feeds, err := s.svc.Articles.FollowedFeeds(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feeds)
}

func (s *Server) addFeed(w http.ResponseWriter, r *http.Request, user *models.User) {
	p, err := readParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	feedURL, err := p.required("url")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	feed, err := s.svc.Articles.AddFeed(r.Context(), user, feedURL, p.str("language"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, feed)
}
