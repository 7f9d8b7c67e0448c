// Package feeds crawls RSS/Atom feeds and stores their articles.
package feeds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/internal/difficulty"
	"github.com/example/zeeguu/internal/metrics"
	"github.com/example/zeeguu/pkg/models"
)

// MinWords is the shortest article the crawler keeps
const MinWords = 30

// CrawlReport summarises a crawl run
type CrawlReport struct {
	Feeds   int `json:"feeds"`
	New     int `json:"new"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (r *CrawlReport) add(o CrawlReport) {
	r.Feeds += o.Feeds
	r.New += o.New
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// Crawler downloads feed items concurrently through a bounded worker pool
type Crawler struct {
	feeds    *database.FeedRepository
	articles *database.ArticleRepository
	fetcher  *Extractor
	pages    ArticleFetcher
	splitter difficulty.Splitter
	workers  int
	logger   logrus.FieldLogger

	// MaxItemsPerFeed caps how many new items one feed contributes per run
	MaxItemsPerFeed int

	running atomic.Bool
}

// NewCrawler creates a crawler using workers concurrent downloads
func NewCrawler(extractor *Extractor, splitter difficulty.Splitter, workers int, logger logrus.FieldLogger) *Crawler {
	return &Crawler{
		feeds:           database.NewFeedRepository(),
		articles:        database.NewArticleRepository(),
		fetcher:         extractor,
		pages:           extractor,
		splitter:        splitter,
		workers:         workers,
		logger:          logger,
		MaxItemsPerFeed: 20,
	}
}

// ErrCrawlRunning is returned when CrawlAll is called during a run
var ErrCrawlRunning = errors.New("crawl already running")

// CrawlAll crawls every active feed. A failing feed is logged and counted
// but does not stop the run.
func (c *Crawler) CrawlAll(ctx context.Context) (CrawlReport, error) {
	if !c.running.CompareAndSwap(false, true) {
		return CrawlReport{}, ErrCrawlRunning
	}
	defer c.running.Store(false)

	feeds, err := c.feeds.ListActive(ctx)
	if err != nil {
		return CrawlReport{}, err
	}

	var total CrawlReport
	for i := range feeds {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		report, err := c.CrawlFeed(ctx, &feeds[i])
		if err != nil {
			c.logger.WithFields(logrus.Fields{"feed": feeds[i].URL, "error": err}).Warn("Feed crawl failed")
			report.Failed++
		}
		total.add(report)
	}
	total.Feeds = len(feeds)

	metrics.RecordCrawl(total.New, total.Skipped, total.Failed)
	c.logger.WithFields(logrus.Fields{
		"feeds":   total.Feeds,
		"new":     total.New,
		"skipped": total.Skipped,
		"failed":  total.Failed,
	}).Info("Crawl finished")
	return total, nil
}

// CrawlFeed fetches one feed and stores its unseen items
func (c *Crawler) CrawlFeed(ctx context.Context, feed *models.Feed) (CrawlReport, error) {
	body, err := c.fetcher.Download(ctx, feed.URL)
	if err != nil {
		return CrawlReport{}, err
	}
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return CrawlReport{}, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]*gofeed.Item, 0, len(parsed.Items))
	links := make([]string, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if link := strings.TrimSpace(item.Link); link != "" {
			items = append(items, item)
			links = append(links, link)
		}
	}
	known, err := c.articles.ExistingURLs(ctx, links)
	if err != nil {
		return CrawlReport{}, err
	}

	var report CrawlReport
	var mu sync.Mutex
	count := func(f func(r *CrawlReport)) {
		mu.Lock()
		f(&report)
		mu.Unlock()
	}

	pool := NewWorkerPool(c.workers, c.workers*2)
	pool.OnError = func(err error) {
		c.logger.WithFields(logrus.Fields{"feed": feed.URL, "error": err}).Debug("Feed item failed")
		count(func(r *CrawlReport) { r.Failed++ })
	}
	pool.Start(ctx)

	submitted := 0
	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		if known[link] || submitted >= c.MaxItemsPerFeed {
			count(func(r *CrawlReport) { r.Skipped++ })
			continue
		}
		known[link] = true
		submitted++

		item := item
		err := pool.Submit(ctx, func(ctx context.Context) error {
			created, err := c.storeItem(ctx, feed, item)
			if err != nil {
				return err
			}
			count(func(r *CrawlReport) {
				if created {
					r.New++
				} else {
					r.Skipped++
				}
			})
			return nil
		})
		if err != nil {
			break
		}
	}
	pool.Close()

	feed.Title = firstNonEmpty(feed.Title, parsed.Title)
	feed.Description = firstNonEmpty(feed.Description, parsed.Description)
	if parsed.Image != nil {
		feed.ImageURL = firstNonEmpty(feed.ImageURL, parsed.Image.URL)
	}
	if err := c.feeds.TouchCrawled(ctx, feed, time.Now().UTC()); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

// storeItem extracts and saves one item; false means it was not worth keeping
func (c *Crawler) storeItem(ctx context.Context, feed *models.Feed, item *gofeed.Item) (bool, error) {
	link := strings.TrimSpace(item.Link)
	ex, err := c.pages.Fetch(ctx, link)
	if err != nil && item.Content != "" {
		ex, err = FromHTML([]byte(item.Content), link)
	}
	if err != nil {
		return false, err
	}
	if ex.Title == "" {
		ex.Title = strings.TrimSpace(item.Title)
	}
	if ex.Authors == "" && len(item.Authors) > 0 && item.Authors[0] != nil {
		ex.Authors = item.Authors[0].Name
	}

	article := NewArticle(ex, link, feed.Language, c.splitter)
	if article.WordCount < MinWords {
		return false, nil
	}
	article.FeedID = &feed.ID
	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		article.PublishedAt = &published
	}

	if err := c.articles.Create(ctx, article); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
