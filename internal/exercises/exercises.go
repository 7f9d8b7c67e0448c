// Package exercises turns scheduled bookmarks into practice items.
package exercises

import (
	"math/rand"
	"regexp"
	"strings"

	"github.com/example/zeeguu/pkg/models"
)

// Type represents the different kinds of exercises
type Type string

const (
	// MultipleChoice asks for the translation among a few options
	MultipleChoice Type = "multiple_choice"
	// Cloze asks for the word blanked out of its context
	Cloze Type = "cloze"
	// Translate asks the learner to produce the word from its translation
	Translate Type = "translate"
)

// Blank replaces the practised word in cloze contexts
const Blank = "_______"

// DistractorCount is the number of wrong options in a multiple choice item
const DistractorCount = 3

// Exercise is a single practice item
type Exercise struct {
	BookmarkID   int64    `json:"bookmark_id"`
	Type         Type     `json:"type"`
	Prompt       string   `json:"prompt"`
	Context      string   `json:"context,omitempty"`
	Options      []string `json:"options,omitempty"`
	CorrectIndex int      `json:"-"`
	Answer       string   `json:"-"`
	From         string   `json:"from_lang"`
	To           string   `json:"to_lang"`
}

// Builder creates exercises for a set of bookmarks
type Builder struct {
	rnd *rand.Rand
}

// NewBuilder creates a builder; a nil source seeds from the clock
func NewBuilder(src rand.Source) *Builder {
	if src == nil {
		src = rand.NewSource(rand.Int63())
	}
	return &Builder{rnd: rand.New(src)}
}

// Build creates one exercise per bookmark. Distractors for multiple
// choice come from the translations in pool.
func (b *Builder) Build(items []models.ScheduledBookmark, pool []models.BookmarkView) []Exercise {
	exercises := make([]Exercise, 0, len(items))
	for _, item := range items {
		exercises = append(exercises, b.buildOne(item, pool))
	}
	return exercises
}

func (b *Builder) buildOne(item models.ScheduledBookmark, pool []models.BookmarkView) Exercise {
	ex := Exercise{
		BookmarkID: item.ID,
		From:       item.OriginLanguage,
		To:         item.TranslationLanguage,
	}

	switch b.typeFor(item, pool) {
	case Translate:
		ex.Type = Translate
		ex.Prompt = item.Translation
		ex.Context = blankOut(item.Context, item.Origin)
		ex.Answer = item.Origin
	case Cloze:
		ex.Type = Cloze
		ex.Prompt = item.Translation
		ex.Context = blankOut(item.Context, item.Origin)
		ex.Answer = item.Origin
	default:
		ex.Type = MultipleChoice
		ex.Prompt = item.Origin
		ex.Context = item.Context
		ex.Answer = item.Translation
		ex.Options, ex.CorrectIndex = b.options(item, pool)
	}
	return ex
}

// typeFor picks the exercise type from the learning cycle
func (b *Builder) typeFor(item models.ScheduledBookmark, pool []models.BookmarkView) Type {
	if item.Schedule != nil && item.Schedule.LearningCycle == models.CycleProductive {
		return Translate
	}
	canCloze := item.Context != "" && containsFold(item.Context, item.Origin)
	canChoose := len(distractors(item, pool)) > 0
	switch {
	case canCloze && canChoose:
		if b.rnd.Intn(2) == 0 {
			return Cloze
		}
		return MultipleChoice
	case canCloze:
		return Cloze
	default:
		return MultipleChoice
	}
}

// options returns the shuffled answer options and the index of the correct one
func (b *Builder) options(item models.ScheduledBookmark, pool []models.BookmarkView) ([]string, int) {
	wrong := distractors(item, pool)
	b.rnd.Shuffle(len(wrong), func(i, j int) {
		wrong[i], wrong[j] = wrong[j], wrong[i]
	})
	if len(wrong) > DistractorCount {
		wrong = wrong[:DistractorCount]
	}

	all := append(wrong, item.Translation)
	correctIndex := len(all) - 1
	b.rnd.Shuffle(len(all), func(i, j int) {
		if i == correctIndex {
			correctIndex = j
		} else if j == correctIndex {
			correctIndex = i
		}
		all[i], all[j] = all[j], all[i]
	})
	return all, correctIndex
}

// distractors returns unique translations from pool that differ from the item's
func distractors(item models.ScheduledBookmark, pool []models.BookmarkView) []string {
	seen := map[string]bool{strings.ToLower(item.Translation): true}
	var out []string
	for _, p := range pool {
		key := strings.ToLower(p.Translation)
		if p.ID == item.ID || seen[key] || p.TranslationLanguage != item.TranslationLanguage {
			continue
		}
		seen[key] = true
		out = append(out, p.Translation)
	}
	return out
}

// blankOut replaces the first case-insensitive occurrence of word with Blank
func blankOut(sentence, word string) string {
	if sentence == "" || word == "" {
		return sentence
	}
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(word))
	if err != nil {
		return sentence
	}
	loc := re.FindStringIndex(sentence)
	if loc == nil {
		return sentence
	}
	return sentence[:loc[0]] + Blank + sentence[loc[1]:]
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
