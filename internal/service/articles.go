package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/example/zeeguu/internal/apperr"
	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/internal/difficulty"
	"github.com/example/zeeguu/internal/feeds"
	"github.com/example/zeeguu/pkg/models"
)

const (
	defaultArticleLimit = 20
	// ownTextScheme prefixes the synthetic URL of uploaded texts
	ownTextScheme = "own-text:"
)

// UserArticle is an article as shown to a reader, with their bookmarks in it
type UserArticle struct {
	models.ArticleWithUserInfo
	Bookmarks []models.BookmarkView `json:"translations"`
}

// ArticleService serves articles and feeds to readers
type ArticleService struct {
	articles  *database.ArticleRepository
	feeds     *database.FeedRepository
	bookmarks *database.BookmarkRepository
	fetcher   feeds.ArticleFetcher
	splitter  difficulty.Splitter
	logger    logrus.FieldLogger
	now       Clock
}

// NewArticleService creates the service
func NewArticleService(fetcher feeds.ArticleFetcher, splitter difficulty.Splitter, logger logrus.FieldLogger) *ArticleService {
	return &ArticleService{
		articles:  database.NewArticleRepository(),
		feeds:     database.NewFeedRepository(),
		bookmarks: database.NewBookmarkRepository(),
		fetcher:   fetcher,
		splitter:  splitter,
		logger:    logger,
		now:       utcNow,
	}
}

// FindOrCreateArticle returns the stored article for pageURL, downloading
// and extracting it on first request. An empty language uses the reader's.
func (s *ArticleService) FindOrCreateArticle(ctx context.Context, user *models.User, pageURL, language string) (*models.Article, error) {
	pageURL = strings.TrimSpace(pageURL)
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, apperr.BadRequest("invalid url")
	}
	if language == "" {
		language = user.LearnedLanguage
	}
	if !supportedLanguage(language) {
		return nil, apperr.BadRequest("unsupported language %q", language)
	}

	existing, err := s.articles.GetByURL(ctx, pageURL)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, translate(err, "article")
	}

	ex, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		s.logger.WithError(err).WithField("url", pageURL).Warn("Article download failed")
		if errors.Is(err, feeds.ErrTooLarge) {
			return nil, apperr.BadRequest("article is too large")
		}
		return nil, apperr.BadRequest("could not download article").Wrap(err)
	}
	article := feeds.NewArticle(ex, pageURL, language, s.splitter)
	article.CreatedAt = s.now()

	if err := s.articles.Create(ctx, article); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			// created concurrently
			existing, err := s.articles.GetByURL(ctx, pageURL)
			return existing, translate(err, "article")
		}
		return nil, translate(err, "article")
	}
	s.logger.WithFields(logrus.Fields{"article_id": article.ID, "cefr": article.CEFRLevel}).Info("Article created")
	return article, nil
}

// UploadOwnText stores a text the user pasted in
func (s *ArticleService) UploadOwnText(ctx context.Context, user *models.User, title, content, language string) (*models.Article, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.BadRequest("content is required")
	}
	if language == "" {
		language = user.LearnedLanguage
	}
	if !supportedLanguage(language) {
		return nil, apperr.BadRequest("unsupported language %q", language)
	}

	article := feeds.NewArticle(&feeds.Extracted{Title: strings.TrimSpace(title), Text: content},
		ownTextScheme+uuid.NewString(), language, s.splitter)
	if article.Title == article.URL {
		article.Title = feeds.Summarize(content, 40)
	}
	article.UploaderID = &user.ID
	article.CreatedAt = s.now()
	if err := s.articles.Create(ctx, article); err != nil {
		return nil, translate(err, "article")
	}
	return article, nil
}

// OwnTexts returns the texts the user uploaded
func (s *ArticleService) OwnTexts(ctx context.Context, user *models.User) ([]models.Article, error) {
	articles, err := s.articles.ListUploadedBy(ctx, user.ID)
	return articles, translate(err, "article")
}

// Recommended returns recent articles in the learned language within one
// CEFR level of the reader, or of any level when none match
func (s *ArticleService) Recommended(ctx context.Context, user *models.User, limit int) ([]models.Article, error) {
	if limit <= 0 {
		limit = defaultArticleLimit
	}
	articles, err := s.articles.ListRecent(ctx, user.LearnedLanguage, difficulty.Window(user.CEFRLevel, 1), limit)
	if err != nil {
		return nil, translate(err, "article")
	}
	if len(articles) == 0 {
		articles, err = s.articles.ListRecent(ctx, user.LearnedLanguage, nil, limit)
		if err != nil {
			return nil, translate(err, "article")
		}
	}
	if articles == nil {
		articles = []models.Article{}
	}
	return articles, nil
}

// UserArticle returns an article with the reader's state and bookmarks
func (s *ArticleService) UserArticle(ctx context.Context, user *models.User, articleID int64) (*UserArticle, error) {
	article, err := visibleArticle(ctx, s.articles, user, articleID)
	if err != nil {
		return nil, translate(err, "article")
	}
	ua, err := s.articles.GetUserArticle(ctx, user.ID, articleID)
	if err != nil {
		return nil, translate(err, "article")
	}
	bookmarks, err := s.bookmarks.ListByArticle(ctx, user.ID, articleID)
	if err != nil {
		return nil, translate(err, "bookmark")
	}
	if bookmarks == nil {
		bookmarks = []models.BookmarkView{}
	}
	return &UserArticle{
		ArticleWithUserInfo: models.ArticleWithUserInfo{
			Article: *article,
			Opened:  ua.Opened,
			Liked:   ua.Liked,
			Starred: ua.Starred,
		},
		Bookmarks: bookmarks,
	}, nil
}

func (s *ArticleService) updateUserArticle(ctx context.Context, user *models.User, articleID int64, fn func(*models.UserArticle)) error {
	err := database.WithTx(ctx, func(ctx context.Context) error {
		if _, err := visibleArticle(ctx, s.articles, user, articleID); err != nil {
			return err
		}
		ua, err := s.articles.GetUserArticle(ctx, user.ID, articleID)
		if err != nil {
			return err
		}
		fn(ua)
		return s.articles.SaveUserArticle(ctx, ua)
	})
	return translate(err, "article")
}

// ArticleOpened records that the reader opened the article
func (s *ArticleService) ArticleOpened(ctx context.Context, user *models.User, articleID int64) error {
	now := s.now()
	return s.updateUserArticle(ctx, user, articleID, func(ua *models.UserArticle) { ua.Opened = &now })
}

// SetLiked likes or unlikes an article
func (s *ArticleService) SetLiked(ctx context.Context, user *models.User, articleID int64, liked bool) error {
	return s.updateUserArticle(ctx, user, articleID, func(ua *models.UserArticle) { ua.Liked = liked })
}

// SetStarred stars or unstars an article
func (s *ArticleService) SetStarred(ctx context.Context, user *models.User, articleID int64, starred bool) error {
	return s.updateUserArticle(ctx, user, articleID, func(ua *models.UserArticle) { ua.Starred = starred })
}

// StarredOrLiked returns the articles the reader starred or liked
func (s *ArticleService) StarredOrLiked(ctx context.Context, user *models.User) ([]models.ArticleWithUserInfo, error) {
	articles, err := s.articles.ListStarredOrLiked(ctx, user.ID)
	if err != nil {
		return nil, translate(err, "article")
	}
	if articles == nil {
		articles = []models.ArticleWithUserInfo{}
	}
	return articles, nil
}

// Search finds articles in the learned language matching query
func (s *ArticleService) Search(ctx context.Context, user *models.User, query string, limit int) ([]models.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.BadRequest("empty search")
	}
	if limit <= 0 {
		limit = defaultArticleLimit
	}
	articles, err := s.articles.Search(ctx, user.LearnedLanguage, query, limit)
	if err != nil {
		return nil, translate(err, "article")
	}
	if articles == nil {
		articles = []models.Article{}
	}
	return articles, nil
}

// ReportBroken hides an article whose text is unusable
func (s *ArticleService) ReportBroken(ctx context.Context, user *models.User, articleID int64) error {
	if _, err := visibleArticle(ctx, s.articles, user, articleID); err != nil {
		return translate(err, "article")
	}
	return translate(s.articles.MarkBroken(ctx, articleID), "article")
}

// InterestingFeeds lists the active feeds in a language
func (s *ArticleService) InterestingFeeds(ctx context.Context, language string) ([]models.Feed, error) {
	list, err := s.feeds.ListByLanguage(ctx, language)
	if err != nil {
		return nil, translate(err, "feed")
	}
	if list == nil {
		list = []models.Feed{}
	}
	return list, nil
}

// FollowFeed subscribes the reader to a feed
func (s *ArticleService) FollowFeed(ctx context.Context, user *models.User, feedID int64) error {
	if _, err := s.feeds.GetByID(ctx, feedID); err != nil {
		return translate(err, "feed")
	}
	return translate(s.feeds.Follow(ctx, user.ID, feedID), "feed")
}

// UnfollowFeed removes a subscription
func (s *ArticleService) UnfollowFeed(ctx context.Context, user *models.User, feedID int64) error {
	return translate(s.feeds.Unfollow(ctx, user.ID, feedID), "subscription")
}

// FollowedFeeds lists the reader's subscriptions
func (s *ArticleService) FollowedFeeds(ctx context.Context, user *models.User) ([]models.Feed, error) {
	list, err := s.feeds.ListFollowed(ctx, user.ID)
	if err != nil {
		return nil, translate(err, "feed")
	}
	if list == nil {
		list = []models.Feed{}
	}
	return list, nil
}

// AddFeed registers a new feed for crawling; only teachers may add feeds
func (s *ArticleService) AddFeed(ctx context.Context, user *models.User, feedURL, language string) (*models.Feed, error) {
	if !user.IsTeacher {
		return nil, apperr.Forbidden("only teachers can add feeds")
	}
	parsed, err := url.Parse(strings.TrimSpace(feedURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, apperr.BadRequest("invalid url")
	}
	if !supportedLanguage(language) {
		return nil, apperr.BadRequest("unsupported language %q", language)
	}
	feed := &models.Feed{URL: parsed.String(), Language: language, CreatedAt: s.now()}
	if err := s.feeds.Create(ctx, feed); err != nil {
		return nil, translate(err, "feed")
	}
	return feed, nil
}
