package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/zeeguu/internal/apperr"
	"github.com/example/zeeguu/internal/cache"
	"github.com/example/zeeguu/internal/database"
	"github.com/example/zeeguu/internal/difficulty"
	mailer "github.com/example/zeeguu/internal/mail"
	"github.com/example/zeeguu/pkg/models"
)

const (
	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 4
	resetCodeTTL      = time.Hour
	telegramCodeTTL   = 15 * time.Minute
	// sessions are cached at most this long so revocations propagate
	maxCacheTTL = time.Hour
)

// NewUser is the input of AddUser
type NewUser struct {
	Email           string
	Password        string
	Name            string
	LearnedLanguage string
	NativeLanguage  string
	CEFRLevel       string
	InviteCode      string
}

// SettingsPatch holds the user settings to change; nil fields are kept
type SettingsPatch struct {
	Name               *string `json:"name"`
	LearnedLanguage    *string `json:"learned_language"`
	NativeLanguage     *string `json:"native_language"`
	CEFRLevel          *string `json:"cefr_level"`
	ProductiveEnabled  *bool   `json:"productive_exercises_enabled"`
	MaxWordsInPipeline *int    `json:"max_words_in_pipeline"`
	NotificationHour   *int    `json:"notification_hour"`
}

// AccountOptions configures the AccountService
type AccountOptions struct {
	BcryptCost        int
	SessionTTL        time.Duration
	RequireInviteCode bool
}

// AccountService handles registration, sessions and user settings
type AccountService struct {
	users    *database.UserRepository
	sessions *database.SessionRepository
	cohorts  *database.CohortRepository
	cache    cache.SessionCache
	mailer   mailer.Mailer
	opts     AccountOptions
	logger   logrus.FieldLogger
	now      Clock
}

// NewAccountService creates the service
func NewAccountService(sessionCache cache.SessionCache, m mailer.Mailer, opts AccountOptions, logger logrus.FieldLogger) *AccountService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.SessionTTL == 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	return &AccountService{
		users:    database.NewUserRepository(),
		sessions: database.NewSessionRepository(),
		cohorts:  database.NewCohortRepository(),
		cache:    sessionCache,
		mailer:   m,
		opts:     opts,
		logger:   logger,
		now:      utcNow,
	}
}

// AddUser registers an account and opens a session for it. A known
// invite code places the user in that cohort.
func (s *AccountService) AddUser(ctx context.Context, in NewUser) (*models.Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperr.BadRequest("password must be at least %d characters", MinPasswordLength)
	}
	if s.opts.RequireInviteCode && strings.TrimSpace(in.InviteCode) == "" {
		return nil, apperr.BadRequest("an invite code is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	user := &models.User{
		Email:              email,
		Name:               strings.TrimSpace(in.Name),
		PasswordHash:       string(hash),
		LearnedLanguage:    in.LearnedLanguage,
		NativeLanguage:     in.NativeLanguage,
		CEFRLevel:          levelOr(in.CEFRLevel, "A1"),
		ProductiveEnabled:  true,
		MaxWordsInPipeline: models.DefaultMaxWordsInPipeline,
		NotificationHour:   9,
	}
	if user.Name == "" {
		user.Name = strings.SplitN(email, "@", 2)[0]
	}
	if user.NativeLanguage == "" {
		user.NativeLanguage = "en"
	}

	var session *models.Session
	err = database.WithTx(ctx, func(ctx context.Context) error {
		if code := strings.TrimSpace(in.InviteCode); code != "" {
			cohort, err := joinableCohort(ctx, s.cohorts, code)
			if err != nil {
				return err
			}
			user.CohortID = &cohort.ID
			if user.LearnedLanguage == "" {
				user.LearnedLanguage = cohort.Language
			}
		}
		if user.LearnedLanguage == "" {
			user.LearnedLanguage = "de"
		}
		if !supportedLanguage(user.LearnedLanguage) || !supportedLanguage(user.NativeLanguage) {
			return apperr.BadRequest("unsupported language")
		}
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return apperr.Conflict("there is already an account for this email").Wrap(err)
			}
			return err
		}
		var err error
		session, err = s.newSession(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, translate(err, "user")
	}
	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "cohort": user.CohortID != nil}).Info("User registered")
	return session, nil
}

// Login checks credentials and opens a session
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, translate(err, "user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	session, err := s.newSession(ctx, user.ID)
	if err != nil {
		return nil, translate(err, "session")
	}
	return session, nil
}

func (s *AccountService) newSession(ctx context.Context, userID int64) (*models.Session, error) {
	now := s.now()
	session := &models.Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		LastUsedAt: now,
		ExpiresAt:  now.Add(s.opts.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Authenticate resolves a session id to its user
func (s *AccountService) Authenticate(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, apperr.Unauthorized("missing session")
	}

	userID, ok, err := s.cache.Get(ctx, sessionID)
	if err != nil {
		s.logger.WithError(err).Warn("Session cache lookup failed")
	}
	if !ok {
		now := s.now()
		session, err := s.sessions.Get(ctx, sessionID, now)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, apperr.Unauthorized("invalid or expired session")
			}
			return nil, translate(err, "session")
		}
		userID = session.UserID
		if err := s.sessions.Touch(ctx, sessionID, now); err != nil {
			s.logger.WithError(err).Warn("Failed to touch session")
		}
		ttl := session.ExpiresAt.Sub(now)
		if ttl > maxCacheTTL {
			ttl = maxCacheTTL
		}
		if err := s.cache.Set(ctx, sessionID, userID, ttl); err != nil {
			s.logger.WithError(err).Warn("Failed to cache session")
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid or expired session")
		}
		return nil, translate(err, "user")
	}
	return user, nil
}

// Logout ends a session
func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.logger.WithError(err).Warn("Failed to evict session from cache")
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, database.ErrNotFound) {
		return translate(err, "session")
	}
	return nil
}

// PurgeExpiredSessions removes sessions past their expiry
func (s *AccountService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}

// SendResetCode mails a short-lived password reset code
func (s *AccountService) SendResetCode(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return apperr.BadRequest("email unknown")
		}
		return translate(err, "user")
	}
	code, err := digits(4)
	if err != nil {
		return apperr.Internal(err)
	}
	err = s.sessions.PutUniqueCode(ctx, &models.UniqueCode{Email: user.Email, Code: code, ExpiresAt: s.now().Add(resetCodeTTL)})
	if err != nil {
		return translate(err, "code")
	}
	body := fmt.Sprintf("Hi %s,\n\nyour password reset code is %s. It is valid for one hour.\n", user.Name, code)
	if err := s.mailer.Send(ctx, user.Email, "Password reset code", body); err != nil {
		return apperr.Unavailable("could not send email").Wrap(err)
	}
	return nil
}

// ResetPassword sets a new password when code matches the mailed one
func (s *AccountService) ResetPassword(ctx context.Context, email, code, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < MinPasswordLength {
		return apperr.BadRequest("password must be at least %d characters", MinPasswordLength)
	}
	stored, err := s.sessions.GetUniqueCode(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return apperr.BadRequest("invalid code")
		}
		return translate(err, "code")
	}
	if stored.Code != strings.TrimSpace(code) || !s.now().Before(stored.ExpiresAt) {
		return apperr.BadRequest("invalid code")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return translate(err, "user")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return apperr.Internal(err)
	}
	err = database.WithTx(ctx, func(ctx context.Context) error {
		if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
			return err
		}
		return s.sessions.DeleteUniqueCode(ctx, email)
	})
	return translate(err, "user")
}

// UpdateSettings applies a settings patch and returns the updated user
func (s *AccountService) UpdateSettings(ctx context.Context, user *models.User, patch SettingsPatch) (*models.User, error) {
	updated := *user
	if patch.Name != nil {
		updated.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.LearnedLanguage != nil {
		updated.LearnedLanguage = *patch.LearnedLanguage
	}
	if patch.NativeLanguage != nil {
		updated.NativeLanguage = *patch.NativeLanguage
	}
	if patch.CEFRLevel != nil {
		if !difficulty.ValidLevel(*patch.CEFRLevel) {
			return nil, apperr.BadRequest("invalid CEFR level %q", *patch.CEFRLevel)
		}
		updated.CEFRLevel = difficulty.ParseLevel(*patch.CEFRLevel)
	}
	if patch.ProductiveEnabled != nil {
		updated.ProductiveEnabled = *patch.ProductiveEnabled
	}
	if patch.MaxWordsInPipeline != nil {
		if *patch.MaxWordsInPipeline < 1 || *patch.MaxWordsInPipeline > 100 {
			return nil, apperr.BadRequest("max words in pipeline must be between 1 and 100")
		}
		updated.MaxWordsInPipeline = *patch.MaxWordsInPipeline
	}
	if patch.NotificationHour != nil {
		if *patch.NotificationHour < 0 || *patch.NotificationHour > 23 {
			return nil, apperr.BadRequest("notification hour must be between 0 and 23")
		}
		updated.NotificationHour = *patch.NotificationHour
	}
	if !supportedLanguage(updated.LearnedLanguage) || !supportedLanguage(updated.NativeLanguage) {
		return nil, apperr.BadRequest("unsupported language")
	}
	if updated.LearnedLanguage == updated.NativeLanguage {
		return nil, apperr.BadRequest("learned and native language must differ")
	}

	if err := s.users.Update(ctx, &updated); err != nil {
		return nil, translate(err, "user")
	}
	return &updated, nil
}

// SetLanguages changes the learned and native language
func (s *AccountService) SetLanguages(ctx context.Context, user *models.User, learned, native string) (*models.User, error) {
	return s.UpdateSettings(ctx, user, SettingsPatch{LearnedLanguage: &learned, NativeLanguage: &native})
}

// LinkTelegram issues a one-time code the user sends to the bot
func (s *AccountService) LinkTelegram(ctx context.Context, user *models.User) (string, error) {
	code := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if err := s.users.CreateTelegramLinkCode(ctx, user.ID, code, s.now().Add(telegramCodeTTL)); err != nil {
		return "", translate(err, "link code")
	}
	return code, nil
}

// RedeemTelegram links chatID to the account that issued code
func (s *AccountService) RedeemTelegram(ctx context.Context, code string, chatID int64) (*models.User, error) {
	var user *models.User
	err := database.WithTx(ctx, func(ctx context.Context) error {
		userID, err := s.users.RedeemTelegramLinkCode(ctx, strings.TrimSpace(code), s.now())
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apperr.BadRequest("invalid or expired link code")
			}
			return err
		}
		// a chat belongs to one account at a time
		if prev, err := s.users.GetByTelegramChat(ctx, chatID); err == nil && prev.ID != userID {
			if err := s.users.SetTelegramChat(ctx, prev.ID, nil); err != nil {
				return err
			}
		}
		if err := s.users.SetTelegramChat(ctx, userID, &chatID); err != nil {
			return err
		}
		user, err = s.users.GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, translate(err, "user")
	}
	return user, nil
}

// UserByTelegramChat returns the account linked to a chat
func (s *AccountService) UserByTelegramChat(ctx context.Context, chatID int64) (*models.User, error) {
	user, err := s.users.GetByTelegramChat(ctx, chatID)
	if err != nil {
		return nil, translate(err, "user")
	}
	return user, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.BadRequest("invalid email")
	}
	return email, nil
}

func supportedLanguage(code string) bool {
	_, ok := models.Languages[code]
	return ok
}

// digits returns n random decimal digits
func digits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
