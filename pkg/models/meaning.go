package models

// Frequency classifies how common a meaning is in everyday language
type Frequency string

const (
	FrequencyUnique   Frequency = "unique"
	FrequencyCommon   Frequency = "common"
	FrequencyUncommon Frequency = "uncommon"
	FrequencyRare     Frequency = "rare"
	FrequencyUnknown  Frequency = "unknown"
)

// PhraseType classifies the shape of the origin expression
type PhraseType string

const (
	PhraseSingleWord         PhraseType = "single_word"
	PhraseCollocation        PhraseType = "collocation"
	PhraseIdiom              PhraseType = "idiom"
	PhraseExpression         PhraseType = "expression"
	PhraseArbitraryMultiWord PhraseType = "arbitrary_multi_word"
	PhraseUnknown            PhraseType = "unknown"
)

// Meaning is an (origin word, translation) pair shared by all users
type Meaning struct {
	ID                  int64      `json:"id" db:"id"`
	Origin              string     `json:"origin" db:"origin"`
	OriginLanguage      string     `json:"from_lang" db:"origin_language"`
	Translation         string     `json:"translation" db:"translation"`
	TranslationLanguage string     `json:"to_lang" db:"translation_language"`
	Frequency           Frequency  `json:"frequency" db:"frequency"`
	PhraseType          PhraseType `json:"phrase_type" db:"phrase_type"`
	Validated           bool       `json:"validated" db:"validated"`
}

// ParseFrequency maps free text to a known frequency, defaulting to unknown
func ParseFrequency(s string) Frequency {
	switch f := Frequency(s); f {
	case FrequencyUnique, FrequencyCommon, FrequencyUncommon, FrequencyRare:
		return f
	}
	return FrequencyUnknown
}

// ParsePhraseType maps free text to a known phrase type, defaulting to unknown
func ParsePhraseType(s string) PhraseType {
	switch p := PhraseType(s); p {
	case PhraseSingleWord, PhraseCollocation, PhraseIdiom, PhraseExpression, PhraseArbitraryMultiWord:
		return p
	}
	return PhraseUnknown
}
