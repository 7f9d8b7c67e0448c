package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/example/zeeguu/pkg/models"
)

const tutorSystem = "You are an experienced language teacher. You answer with JSON only, without explanations or markdown."

// Example is a generated usage example for a word
type Example struct {
	Sentence    string
	Translation string
}

// Verdict is the model's opinion on a user's translation
type Verdict struct {
	Valid      bool
	Correction string
	Reason     string
}

// Assistant runs the language-learning prompts against a Provider
type Assistant struct {
	provider Provider
	logger   logrus.FieldLogger
}

// NewAssistant creates an Assistant; a nil provider disables all operations
func NewAssistant(p Provider, logger logrus.FieldLogger) *Assistant {
	return &Assistant{provider: p, logger: logger}
}

// Enabled reports whether a provider is configured
func (a *Assistant) Enabled() bool {
	return a != nil && a.provider != nil
}

func (a *Assistant) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if !a.Enabled() {
		return "", ErrNoProvider
	}
	return a.provider.Complete(ctx, tutorSystem, prompt, maxTokens)
}

// GenerateExamples asks for n sentences at the given CEFR level that use
// the meaning's origin word. Sentences not containing the word are dropped.
func (a *Assistant) GenerateExamples(ctx context.Context, m *models.Meaning, cefr string, n int) ([]Example, error) {
	prompt := fmt.Sprintf(
		"Write %d different, natural example sentences in %s at CEFR level %s that use %q in the sense of %q (%s).\n"+
			"Return a JSON array of objects with the keys \"sentence\" and \"translation\" (translation into %s).",
		n, models.LanguageName(m.OriginLanguage), cefr, m.Origin, m.Translation,
		models.LanguageName(m.TranslationLanguage), models.LanguageName(m.TranslationLanguage),
	)
	out, err := a.complete(ctx, prompt, 200*n)
	if err != nil {
		return nil, err
	}

	raw := extractJSON(out, '[', ']')
	if raw == "" || !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrBadResponse)
	}

	var examples []Example
	for _, item := range gjson.Parse(raw).Array() {
		ex := Example{
			Sentence:    strings.TrimSpace(item.Get("sentence").String()),
			Translation: strings.TrimSpace(item.Get("translation").String()),
		}
		if ex.Sentence == "" || !containsWord(ex.Sentence, m.Origin) {
			a.logger.WithFields(logrus.Fields{"word": m.Origin, "sentence": ex.Sentence}).Debug("Dropping generated example")
			continue
		}
		examples = append(examples, ex)
		if len(examples) == n {
			break
		}
	}
	return examples, nil
}

// ValidateTranslation checks whether translation is right for word as used in sentence
func (a *Assistant) ValidateTranslation(ctx context.Context, word, translation, sentence, from, to string) (*Verdict, error) {
	prompt := fmt.Sprintf(
		"A learner of %s translated the %s word or phrase %q as %q (%s).\n"+
			"Context sentence: %q\n"+
			"Is this translation correct in this context? Answer with a JSON object with the keys "+
			"\"valid\" (boolean), \"correction\" (the correct translation if it is not valid, else empty) and \"reason\" (short).",
		models.LanguageName(from), models.LanguageName(from), word, translation, models.LanguageName(to), sentence,
	)
	out, err := a.complete(ctx, prompt, 300)
	if err != nil {
		return nil, err
	}

	raw := extractJSON(out, '{', '}')
	if raw == "" || !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrBadResponse)
	}
	res := gjson.Parse(raw)
	if !res.Get("valid").Exists() {
		return nil, fmt.Errorf("%w: missing verdict", ErrBadResponse)
	}
	v := &Verdict{
		Valid:      res.Get("valid").Bool(),
		Correction: strings.TrimSpace(res.Get("correction").String()),
		Reason:     res.Get("reason").String(),
	}
	if v.Valid || strings.EqualFold(v.Correction, translation) {
		v.Valid = true
		v.Correction = ""
	}
	return v, nil
}

// ClassifyMeaning labels how frequent a meaning is and what kind of phrase it is
func (a *Assistant) ClassifyMeaning(ctx context.Context, m *models.Meaning) (models.Frequency, models.PhraseType, error) {
	prompt := fmt.Sprintf(
		"Classify the %s expression %q meaning %q.\n"+
			"Return a JSON object with \"frequency\" (one of unique, common, uncommon, rare) and "+
			"\"phrase_type\" (one of single_word, collocation, idiom, expression, arbitrary_multi_word).",
		models.LanguageName(m.OriginLanguage), m.Origin, m.Translation,
	)
	out, err := a.complete(ctx, prompt, 100)
	if err != nil {
		return models.FrequencyUnknown, models.PhraseUnknown, err
	}

	raw := extractJSON(out, '{', '}')
	if raw == "" || !gjson.Valid(raw) {
		return models.FrequencyUnknown, models.PhraseUnknown, fmt.Errorf("%w: expected a JSON object", ErrBadResponse)
	}
	res := gjson.Parse(raw)
	freq := models.ParseFrequency(strings.ToLower(strings.TrimSpace(res.Get("frequency").String())))
	phrase := models.ParsePhraseType(strings.ToLower(strings.TrimSpace(res.Get("phrase_type").String())))
	return freq, phrase, nil
}

// extractJSON returns the outermost open..close span of s, skipping any
// prose or code fences the model put around it
func extractJSON(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func containsWord(sentence, word string) bool {
	return strings.Contains(strings.ToLower(sentence), strings.ToLower(strings.TrimSpace(word)))
}
