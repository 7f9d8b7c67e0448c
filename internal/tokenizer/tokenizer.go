// Package tokenizer splits article text into sentences and words.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"github.com/neurosnap/sentences"
	sentencesdata "github.com/neurosnap/sentences/data"
)

// Tokenizer is safe for concurrent use
type Tokenizer struct {
	punkt *sentences.DefaultSentenceTokenizer

	kagomeOnce sync.Once
	kagome     *tokenizer.Tokenizer
	kagomeErr  error
}

// New loads the Punkt sentence model. The Japanese dictionary is loaded
// on first use.
func New() (*Tokenizer, error) {
	training, err := sentencesdata.Asset("english.json")
	if err != nil {
		return nil, fmt.Errorf("failed to load punkt model: %w", err)
	}
	storage, err := sentences.LoadTraining(training)
	if err != nil {
		return nil, fmt.Errorf("failed to parse punkt model: %w", err)
	}
	return &Tokenizer{punkt: sentences.NewSentenceTokenizer(storage)}, nil
}

func (t *Tokenizer) japanese() (*tokenizer.Tokenizer, error) {
	t.kagomeOnce.Do(func() {
		t.kagome, t.kagomeErr = tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	})
	return t.kagome, t.kagomeErr
}

// SplitSentences returns the trimmed, non-empty sentences of text
func (t *Tokenizer) SplitSentences(text, lang string) []string {
	var out []string
	if lang == "ja" {
		for _, s := range splitJapanese(text) {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	// Punkt does not treat blank lines as boundaries; paragraphs are split first
	for _, para := range strings.Split(text, "\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		for _, s := range t.punkt.Tokenize(para) {
			if txt := strings.TrimSpace(s.Text); txt != "" {
				out = append(out, txt)
			}
		}
	}
	return out
}

// Words returns the words of text. Japanese words are returned in
// dictionary form; other languages keep their surface form.
func (t *Tokenizer) Words(text, lang string) []string {
	if lang == "ja" {
		if words, err := t.japaneseWords(text); err == nil {
			return words
		}
	}
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
}

func (t *Tokenizer) japaneseWords(text string) ([]string, error) {
	tk, err := t.japanese()
	if err != nil {
		return nil, err
	}
	var words []string
	for _, token := range tk.Tokenize(text) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}
		features := token.Features()
		// 記号 is punctuation and other symbols
		if len(features) > 0 && features[0] == "記号" {
			continue
		}
		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		words = append(words, base)
	}
	return words, nil
}

// WordCount returns the number of words in text
func (t *Tokenizer) WordCount(text, lang string) int {
	return len(t.Words(text, lang))
}

// ContextFor returns the first sentence of text containing word, or "".
// Single words must match a whole word; phrases match as substrings.
func (t *Tokenizer) ContextFor(text, word, lang string) string {
	needle := strings.ToLower(strings.TrimSpace(word))
	if needle == "" {
		return ""
	}
	phrase := len(t.Words(needle, lang)) != 1 || lang == "ja"
	for _, s := range t.SplitSentences(text, lang) {
		if phrase {
			if strings.Contains(strings.ToLower(s), needle) {
				return s
			}
			continue
		}
		for _, w := range t.Words(s, lang) {
			if strings.ToLower(w) == needle {
				return s
			}
		}
	}
	return ""
}

// splitJapanese splits on 。！？ and newlines
func splitJapanese(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
