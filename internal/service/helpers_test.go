package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/zeeguu/internal/apperr"
	"github.com/example/zeeguu/internal/cache"
	"github.com/example/zeeguu/internal/feeds"
	"github.com/example/zeeguu/internal/logging"
)

var testNow = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

// clockAt returns a Clock that can be moved forward
func clockAt(t time.Time) (Clock, func(time.Duration)) {
	var mu sync.Mutex
	now := t
	return func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}, func(d time.Duration) {
			mu.Lock()
			now = now.Add(d)
			mu.Unlock()
		}
}

type sentMail struct {
	to, subject, text string
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, text string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, text})
	return nil
}

func newAccounts(t *testing.T) (*AccountService, *recordingMailer) {
	t.Helper()
	m := &recordingMailer{}
	s := NewAccountService(cache.NewMemory(), m, AccountOptions{BcryptCost: bcrypt.MinCost, SessionTTL: 24 * time.Hour}, logging.Discard())
	s.now, _ = clockAt(testNow)
	return s, m
}

// fakeFetcher serves canned pages by URL
type fakeFetcher struct {
	pages map[string]*feeds.Extracted
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL string) (*feeds.Extracted, error) {
	f.calls++
	if ex, ok := f.pages[pageURL]; ok {
		return ex, nil
	}
	return nil, errors.New("status 404")
}

// spaceSplitter splits on periods and whitespace
type spaceSplitter struct{}

func (spaceSplitter) SplitSentences(text, _ string) []string {
	var out []string
	for _, s := range strings.Split(text, ".") {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func (spaceSplitter) Words(text, _ string) []string { return strings.Fields(text) }

// fakeProvider answers every prompt with a fixed reply
type fakeProvider struct {
	reply   func(prompt string) string
	prompts []string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Complete(_ context.Context, _, prompt string, _ int) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return p.reply(prompt), nil
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, apperr.HTTPStatus(err), "error: %v", err)
}
