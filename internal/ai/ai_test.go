package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/zeeguu/pkg/models"
)

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, "be brief", req.System)
		assert.Equal(t, 50, req.MaxTokens)

		io.WriteString(w, `{"content":[{"type":"text","text":" Hallo "},{"type":"tool_use","id":"x"}]}`)
	}))
	defer srv.Close()

	p := NewAnthropic(ProviderConfig{APIKey: "secret", Model: "claude-test", BaseURL: srv.URL})
	out, err := p.Complete(context.Background(), "be brief", "Say hi", 50)
	require.NoError(t, err)
	assert.Equal(t, "Hallo", out)
}

func TestAnthropicAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	_, err := NewAnthropic(ProviderConfig{BaseURL: srv.URL}).Complete(context.Background(), "", "x", 10)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "slow down", apiErr.Message)
	assert.True(t, apiErr.Temporary())
}

func TestDeepSeekComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"ok\n"}}]}`)
	}))
	defer srv.Close()

	out, err := NewDeepSeek(ProviderConfig{APIKey: "key", Model: "deepseek-chat", BaseURL: srv.URL}).
		Complete(context.Background(), "sys", "prompt", 10)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestDeepSeekEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := NewDeepSeek(ProviderConfig{BaseURL: srv.URL}).Complete(context.Background(), "", "x", 10)
	assert.True(t, errors.Is(err, ErrBadResponse))
}

type fakeProvider struct {
	name    string
	answers []string
	errs    []error
	calls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(context.Context, string, string, int) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.answers) {
		return f.answers[i], nil
	}
	return f.answers[len(f.answers)-1], nil
}

func TestWithRetry(t *testing.T) {
	p := &fakeProvider{
		name:    "fake",
		errs:    []error{&APIError{Status: 503}, &APIError{Status: 500}},
		answers: []string{"", "", "done"},
	}
	out, err := WithRetry(p, 3, time.Millisecond).Complete(context.Background(), "", "", 1)
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 3, p.calls)

	p = &fakeProvider{name: "fake", errs: []error{&APIError{Status: 400}}, answers: []string{"never"}}
	_, err = WithRetry(p, 3, time.Millisecond).Complete(context.Background(), "", "", 1)
	assert.Error(t, err)
	assert.Equal(t, 1, p.calls, "client errors are not retried")
}

func TestFallback(t *testing.T) {
	broken := &fakeProvider{name: "a", errs: []error{errors.New("down")}, answers: []string{""}}
	good := &fakeProvider{name: "b", answers: []string{"from b"}}

	f := Fallback(broken, good)
	assert.Equal(t, "a,b", f.Name())
	out, err := f.Complete(context.Background(), "", "", 1)
	require.NoError(t, err)
	assert.Equal(t, "from b", out)

	_, err = Fallback().Complete(context.Background(), "", "", 1)
	assert.True(t, errors.Is(err, ErrNoProvider))
}

func newTestAssistant(answer string) *Assistant {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewAssistant(&fakeProvider{name: "fake", answers: []string{answer}}, logger)
}

func TestGenerateExamples(t *testing.T) {
	a := newTestAssistant("Here you go:\n```json\n" + `[
		{"sentence": "Das Haus ist groß.", "translation": "The house is big."},
		{"sentence": "Wir wohnen hier.", "translation": "We live here."},
		{"sentence": "Ein altes haus.", "translation": "An old house."}
	]` + "\n```")
	m := &models.Meaning{Origin: "Haus", OriginLanguage: "de", Translation: "house", TranslationLanguage: "en"}

	examples, err := a.GenerateExamples(context.Background(), m, "A2", 3)
	require.NoError(t, err)
	require.Len(t, examples, 2)
	assert.Equal(t, "Das Haus ist groß.", examples[0].Sentence)
	assert.Equal(t, "An old house.", examples[1].Translation)

	_, err = newTestAssistant("sorry, no").GenerateExamples(context.Background(), m, "A2", 3)
	assert.True(t, errors.Is(err, ErrBadResponse))
}

func TestValidateTranslation(t *testing.T) {
	v, err := newTestAssistant(`{"valid": false, "correction": "bank (of a river)", "reason": "river context"}`).
		ValidateTranslation(context.Background(), "Ufer", "bank", "Am Ufer", "de", "en")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "bank (of a river)", v.Correction)

	v, err = newTestAssistant(`{"valid": false, "correction": "Bank"}`).
		ValidateTranslation(context.Background(), "Bank", "bank", "", "de", "en")
	require.NoError(t, err)
	assert.True(t, v.Valid, "a correction equal to the translation is no correction")

	_, err = newTestAssistant(`{"reason": "?"}`).
		ValidateTranslation(context.Background(), "x", "y", "", "de", "en")
	assert.True(t, errors.Is(err, ErrBadResponse))
}

func TestClassifyMeaning(t *testing.T) {
	m := &models.Meaning{Origin: "ins Gras beißen", OriginLanguage: "de", Translation: "bite the dust"}
	freq, phrase, err := newTestAssistant(`{"frequency": "Rare", "phrase_type": "idiom"}`).ClassifyMeaning(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, models.FrequencyRare, freq)
	assert.Equal(t, models.PhraseIdiom, phrase)

	freq, phrase, err = newTestAssistant(`{"frequency": "sometimes", "phrase_type": "proverb"}`).ClassifyMeaning(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, models.FrequencyUnknown, freq)
	assert.Equal(t, models.PhraseUnknown, phrase)
}

func TestDisabledAssistant(t *testing.T) {
	a := NewAssistant(nil, logrus.New())
	assert.False(t, a.Enabled())
	_, err := a.GenerateExamples(context.Background(), &models.Meaning{}, "A1", 1)
	assert.True(t, errors.Is(err, ErrNoProvider))
}
