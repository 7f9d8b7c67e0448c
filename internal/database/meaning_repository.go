package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/zeeguu/pkg/models"
)

const meaningColumns = "id, origin, origin_language, translation, translation_language, frequency, phrase_type, validated"

// MeaningRepository handles database operations for meanings
type MeaningRepository struct{}

// NewMeaningRepository creates a new repository instance
func NewMeaningRepository() *MeaningRepository {
	return &MeaningRepository{}
}

// FindOrCreate returns the meaning for the pair, creating it if needed.
// Concurrent creators of the same pair both end up with the same row.
func (r *MeaningRepository) FindOrCreate(ctx context.Context, origin, originLang, translation, translationLang string) (*models.Meaning, error) {
	m := &models.Meaning{
		Origin:              strings.TrimSpace(origin),
		OriginLanguage:      originLang,
		Translation:         strings.TrimSpace(translation),
		TranslationLanguage: translationLang,
		Frequency:           models.FrequencyUnknown,
		PhraseType:          models.PhraseUnknown,
	}

	existing, err := r.find(ctx, m)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	id, err := insert(ctx, `
		INSERT INTO meanings (origin, origin_language, translation, translation_language, frequency, phrase_type, validated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (origin, origin_language, translation, translation_language) DO NOTHING`,
		m.Origin, m.OriginLanguage, m.Translation, m.TranslationLanguage, m.Frequency, m.PhraseType, false,
	)
	if errors.Is(err, ErrNotFound) {
		// Lost the race against another request: nothing was inserted
		return r.find(ctx, m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create meaning: %w", err)
	}
	m.ID = id
	return m, nil
}

func (r *MeaningRepository) find(ctx context.Context, m *models.Meaning) (*models.Meaning, error) {
	var found models.Meaning
	err := get(ctx, &found, "SELECT "+meaningColumns+` FROM meanings
		WHERE origin = ? AND origin_language = ? AND translation = ? AND translation_language = ?`,
		m.Origin, m.OriginLanguage, m.Translation, m.TranslationLanguage)
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// GetByID returns a meaning
func (r *MeaningRepository) GetByID(ctx context.Context, id int64) (*models.Meaning, error) {
	var m models.Meaning
	if err := get(ctx, &m, "SELECT "+meaningColumns+" FROM meanings WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to get meaning: %w", err)
	}
	return &m, nil
}

// UpdateClassification stores the frequency and phrase type of a meaning
func (r *MeaningRepository) UpdateClassification(ctx context.Context, id int64, freq models.Frequency, phrase models.PhraseType) error {
	if err := exec(ctx, "UPDATE meanings SET frequency = ?, phrase_type = ? WHERE id = ?", freq, phrase, id); err != nil {
		return fmt.Errorf("failed to update meaning classification: %w", err)
	}
	return nil
}

// MarkValidated flags a meaning whose translation was checked
func (r *MeaningRepository) MarkValidated(ctx context.Context, id int64) error {
	if err := exec(ctx, "UPDATE meanings SET validated = ? WHERE id = ?", true, id); err != nil {
		return fmt.Errorf("failed to mark meaning validated: %w", err)
	}
	return nil
}

// ListUnclassified returns meanings still waiting for classification
func (r *MeaningRepository) ListUnclassified(ctx context.Context, limit int) ([]models.Meaning, error) {
	var meanings []models.Meaning
	err := list(ctx, &meanings, "SELECT "+meaningColumns+" FROM meanings WHERE frequency = ? ORDER BY id LIMIT ?", models.FrequencyUnknown, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unclassified meanings: %w", err)
	}
	return meanings, nil
}
