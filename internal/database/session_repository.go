package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/zeeguu/pkg/models"
)

// SessionRepository handles database operations for API sessions
type SessionRepository struct{}

// NewSessionRepository creates a new repository instance
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// Create stores a new session
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	err := execAny(ctx, "INSERT INTO sessions (id, user_id, last_used_at, expires_at) VALUES (?, ?, ?, ?)",
		s.ID, s.UserID, s.LastUsedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get returns a session that has not expired at now
func (r *SessionRepository) Get(ctx context.Context, id string, now time.Time) (*models.Session, error) {
	var s models.Session
	err := get(ctx, &s, "SELECT id, user_id, last_used_at, expires_at FROM sessions WHERE id = ? AND expires_at > ?", id, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// Touch records session use
func (r *SessionRepository) Touch(ctx context.Context, id string, now time.Time) error {
	return execAny(ctx, "UPDATE sessions SET last_used_at = ? WHERE id = ?", now, id)
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := exec(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired purges sessions that expired before now and returns how many
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := conn(ctx).ExecContext(ctx, q("DELETE FROM sessions WHERE expires_at <= ?"), now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// PutUniqueCode stores (or replaces) a code for an e-mail address
func (r *SessionRepository) PutUniqueCode(ctx context.Context, c *models.UniqueCode) error {
	return WithTx(ctx, func(ctx context.Context) error {
		if err := execAny(ctx, "DELETE FROM unique_codes WHERE email = ?", c.Email); err != nil {
			return fmt.Errorf("failed to clear unique code: %w", err)
		}
		if err := execAny(ctx, "INSERT INTO unique_codes (email, code, expires_at) VALUES (?, ?, ?)", c.Email, c.Code, c.ExpiresAt); err != nil {
			return fmt.Errorf("failed to store unique code: %w", err)
		}
		return nil
	})
}

// GetUniqueCode returns the current code for an e-mail address
func (r *SessionRepository) GetUniqueCode(ctx context.Context, email string) (*models.UniqueCode, error) {
	var c models.UniqueCode
	if err := get(ctx, &c, "SELECT email, code, expires_at FROM unique_codes WHERE email = ?", email); err != nil {
		return nil, fmt.Errorf("failed to get unique code: %w", err)
	}
	return &c, nil
}

// DeleteUniqueCode removes the code for an e-mail address
func (r *SessionRepository) DeleteUniqueCode(ctx context.Context, email string) error {
	return execAny(ctx, "DELETE FROM unique_codes WHERE email = ?", email)
}
