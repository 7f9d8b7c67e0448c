package difficulty

import (
	"strings"
	"unicode"
)

// Splitter breaks text into sentences and words
type Splitter interface {
	SplitSentences(text, lang string) []string
	Words(text, lang string) []string
}

// Estimate is the difficulty assessment of a text
type Estimate struct {
	WordCount    int
	FKDifficulty int // 0 (easiest) .. 100 (hardest)
	CEFRLevel    string
}

// flesch holds the reading-ease constants of a language:
// ease = base - sentenceWeight*wordsPerSentence - syllableWeight*syllablesPerWord
type flesch struct {
	base, sentenceWeight, syllableWeight float64
}

var fleschByLanguage = map[string]flesch{
	"en": {206.835, 1.015, 84.6},
	"de": {180, 1, 58.5},
	"fr": {207, 1.015, 73.6},
	"es": {206.84, 1.02, 60},
	"it": {217, 1.3, 60},
	"nl": {206.835, 0.93, 77},
}

// Assess computes the difficulty of text in lang
func Assess(s Splitter, text, lang string) Estimate {
	words := s.Words(text, lang)
	if len(words) == 0 {
		return Estimate{CEFRLevel: LevelForScore(0)}
	}
	sentences := len(s.SplitSentences(text, lang))
	if sentences == 0 {
		sentences = 1
	}

	var score int
	if lang == "ja" {
		score = japaneseScore(text, sentences)
	} else {
		score = fleschDifficulty(words, sentences, lang)
	}
	return Estimate{
		WordCount:    len(words),
		FKDifficulty: score,
		CEFRLevel:    LevelForScore(score),
	}
}

func fleschDifficulty(words []string, sentences int, lang string) int {
	c, ok := fleschByLanguage[lang]
	if !ok {
		c = fleschByLanguage["en"]
	}
	syllables := 0
	for _, w := range words {
		syllables += CountSyllables(w)
	}
	wordsPerSentence := float64(len(words)) / float64(sentences)
	syllablesPerWord := float64(syllables) / float64(len(words))
	ease := c.base - c.sentenceWeight*wordsPerSentence - c.syllableWeight*syllablesPerWord
	return clamp(int(100 - ease))
}

// japaneseScore weighs the share of kanji and the sentence length in characters
func japaneseScore(text string, sentences int) int {
	var chars, kanji int
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		chars++
		if unicode.Is(unicode.Han, r) {
			kanji++
		}
	}
	if chars == 0 {
		return 0
	}
	kanjiRatio := float64(kanji) / float64(chars)
	charsPerSentence := float64(chars) / float64(sentences)
	return clamp(int(kanjiRatio*100 + charsPerSentence*0.6))
}

const vowels = "aeiouyäöüáàâéèêëíìîïóòôúùûåæœ"

// CountSyllables approximates syllables as groups of consecutive vowels
func CountSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune(vowels, r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
