package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/zeeguu/pkg/models"
)

const userColumns = `id, email, name, password_hash, learned_language, native_language, cefr_level,
	is_teacher, cohort_id, telegram_chat_id, productive_enabled, max_words_in_pipeline,
	notification_hour, created_at`

// UserRepository handles database operations for users
type UserRepository struct{}

// NewUserRepository creates a new repository instance
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// Create inserts a new user. Emails are stored lower-cased.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.MaxWordsInPipeline == 0 {
		user.MaxWordsInPipeline = models.DefaultMaxWordsInPipeline
	}
	id, err := insert(ctx, `
		INSERT INTO users (
			email, name, password_hash, learned_language, native_language, cefr_level,
			is_teacher, cohort_id, productive_enabled, max_words_in_pipeline, notification_hour, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email, user.Name, user.PasswordHash, user.LearnedLanguage, user.NativeLanguage, user.CEFRLevel,
		user.IsTeacher, user.CohortID, user.ProductiveEnabled, user.MaxWordsInPipeline, user.NotificationHour, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id
	return nil
}

// GetByID returns a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := get(ctx, &user, "SELECT "+userColumns+" FROM users WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &user, nil
}

// GetByEmail returns a user by e-mail address, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := get(ctx, &user, "SELECT "+userColumns+" FROM users WHERE email = ?", strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// GetByTelegramChat returns the user linked to a Telegram chat
func (r *UserRepository) GetByTelegramChat(ctx context.Context, chatID int64) (*models.User, error) {
	var user models.User
	if err := get(ctx, &user, "SELECT "+userColumns+" FROM users WHERE telegram_chat_id = ?", chatID); err != nil {
		return nil, fmt.Errorf("failed to get user by telegram chat: %w", err)
	}
	return &user, nil
}

// Update modifies user settings
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	err := exec(ctx, `
		UPDATE users SET
			name = ?,
			learned_language = ?,
			native_language = ?,
			cefr_level = ?,
			is_teacher = ?,
			productive_enabled = ?,
			max_words_in_pipeline = ?,
			notification_hour = ?
		WHERE id = ?`,
		user.Name, user.LearnedLanguage, user.NativeLanguage, user.CEFRLevel, user.IsTeacher,
		user.ProductiveEnabled, user.MaxWordsInPipeline, user.NotificationHour, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	if err := exec(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, userID); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// SetCohort moves a user into a cohort; nil removes them from any cohort
func (r *UserRepository) SetCohort(ctx context.Context, userID int64, cohortID *int64) error {
	if err := exec(ctx, "UPDATE users SET cohort_id = ? WHERE id = ?", cohortID, userID); err != nil {
		return fmt.Errorf("failed to set cohort: %w", err)
	}
	return nil
}

// SetTelegramChat links a Telegram chat to the user
func (r *UserRepository) SetTelegramChat(ctx context.Context, userID int64, chatID *int64) error {
	if err := exec(ctx, "UPDATE users SET telegram_chat_id = ? WHERE id = ?", chatID, userID); err != nil {
		return fmt.Errorf("failed to set telegram chat: %w", err)
	}
	return nil
}

// ListByCohort returns the students of a cohort
func (r *UserRepository) ListByCohort(ctx context.Context, cohortID int64) ([]models.User, error) {
	var users []models.User
	err := list(ctx, &users, "SELECT "+userColumns+" FROM users WHERE cohort_id = ? ORDER BY name, id", cohortID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cohort users: %w", err)
	}
	return users, nil
}

// ListForNotification returns users with a linked chat whose reminder hour matches
func (r *UserRepository) ListForNotification(ctx context.Context, hour int) ([]models.User, error) {
	var users []models.User
	err := list(ctx, &users,
		"SELECT "+userColumns+" FROM users WHERE telegram_chat_id IS NOT NULL AND notification_hour = ?", hour)
	if err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}
	return users, nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if err := exec(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// CreateTelegramLinkCode stores a one-time code that links a chat to the user
func (r *UserRepository) CreateTelegramLinkCode(ctx context.Context, userID int64, code string, expiresAt time.Time) error {
	err := execAny(ctx, "INSERT INTO telegram_link_codes (code, user_id, expires_at) VALUES (?, ?, ?)", code, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to create telegram link code: %w", err)
	}
	return nil
}

// RedeemTelegramLinkCode consumes a code and returns the user it belongs to
func (r *UserRepository) RedeemTelegramLinkCode(ctx context.Context, code string, now time.Time) (int64, error) {
	var userID int64
	err := WithTx(ctx, func(ctx context.Context) error {
		if err := get(ctx, &userID, "SELECT user_id FROM telegram_link_codes WHERE code = ? AND expires_at > ?", code, now); err != nil {
			return err
		}
		return exec(ctx, "DELETE FROM telegram_link_codes WHERE code = ?", code)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to redeem telegram link code: %w", err)
	}
	return userID, nil
}
