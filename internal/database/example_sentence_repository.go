package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/zeeguu/pkg/models"
)

// ExampleSentenceRepository handles database operations for example sentences
type ExampleSentenceRepository struct{}

// NewExampleSentenceRepository creates a new repository instance
func NewExampleSentenceRepository() *ExampleSentenceRepository {
	return &ExampleSentenceRepository{}
}

// Create stores a sentence
func (r *ExampleSentenceRepository) Create(ctx context.Context, s *models.ExampleSentence) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	id, err := insert(ctx, `
		INSERT INTO example_sentences (meaning_id, sentence, translation, cefr_level, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.MeaningID, s.Sentence, s.Translation, s.CEFRLevel, s.Source, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create example sentence: %w", err)
	}
	s.ID = id
	return nil
}

// ListForMeaning returns the sentences stored for a meaning
func (r *ExampleSentenceRepository) ListForMeaning(ctx context.Context, meaningID int64) ([]models.ExampleSentence, error) {
	var sentences []models.ExampleSentence
	err := list(ctx, &sentences, `
		SELECT id, meaning_id, sentence, translation, cefr_level, source, created_at
		FROM example_sentences WHERE meaning_id = ? ORDER BY id`, meaningID)
	if err != nil {
		return nil, fmt.Errorf("failed to list example sentences: %w", err)
	}
	return sentences, nil
}
