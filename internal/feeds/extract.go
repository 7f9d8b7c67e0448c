package feeds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"github.com/example/zeeguu/internal/difficulty"
	"github.com/example/zeeguu/pkg/models"
)

// MaxBodySize limits downloaded pages and feeds
const MaxBodySize = 10 * 1024 * 1024

const summaryLength = 300

// ErrTooLarge is returned for responses above MaxBodySize
var ErrTooLarge = errors.New("response exceeds size limit")

// Extracted is the readable part of a web page
type Extracted struct {
	Title    string
	Authors  string
	SiteName string
	Text     string
}

// ArticleFetcher downloads a page and extracts its main text
type ArticleFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Extracted, error)
}

// Extractor fetches pages over HTTP and runs readability on them
type Extractor struct {
	client    *http.Client
	userAgent string
}

// NewExtractor creates an Extractor; a nil client gets a 30 second timeout
func NewExtractor(client *http.Client) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Extractor{
		client:    client,
		userAgent: "Mozilla/5.0 (compatible; ZeeguuCrawler/1.0)",
	}
}

// Download returns the body of pageURL, refusing anything above MaxBodySize
func (e *Extractor) Download(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", pageURL, resp.StatusCode)
	}
	if resp.ContentLength > MaxBodySize {
		return nil, ErrTooLarge
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}
	if len(body) > MaxBodySize {
		return nil, ErrTooLarge
	}
	return body, nil
}

// Fetch implements ArticleFetcher
func (e *Extractor) Fetch(ctx context.Context, pageURL string) (*Extracted, error) {
	body, err := e.Download(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return FromHTML(body, pageURL)
}

// FromHTML extracts the readable content of an HTML document
func FromHTML(html []byte, pageURL string) (*Extracted, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", pageURL, err)
	}
	article, err := readability.FromReader(bytes.NewReader(SanitizeRuby(html)), parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("no readable content at %s", pageURL)
	}
	return &Extracted{
		Title:    strings.TrimSpace(article.Title),
		Authors:  strings.TrimSpace(article.Byline),
		SiteName: article.SiteName,
		Text:     text,
	}, nil
}

var (
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes furigana (<rt>, <rp>) so it is not duplicated
// into the extracted text
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, nil)
	return reRP.ReplaceAll(cleaned, nil)
}

// NewArticle builds an article with difficulty metrics from extracted text
func NewArticle(ex *Extracted, pageURL, lang string, s difficulty.Splitter) *models.Article {
	est := difficulty.Assess(s, ex.Text, lang)
	title := ex.Title
	if title == "" {
		title = pageURL
	}
	return &models.Article{
		URL:          pageURL,
		Title:        title,
		Authors:      ex.Authors,
		Content:      ex.Text,
		Summary:      Summarize(ex.Text, summaryLength),
		Language:     lang,
		WordCount:    est.WordCount,
		FKDifficulty: est.FKDifficulty,
		CEFRLevel:    est.CEFRLevel,
		CreatedAt:    time.Now().UTC(),
	}
}

// Summarize returns the start of text, cut at a word boundary within max runes
func Summarize(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)[:max]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > max/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
