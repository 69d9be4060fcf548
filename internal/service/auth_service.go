package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fonteyn/internal/database"
	"fonteyn/internal/domain"
	"fonteyn/internal/events"
	"fonteyn/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	repo       domain.Repository
	sessions   domain.SessionRepository
	eventBus   domain.EventPublisher
	sessionTTL time.Duration
	bcryptCost int
	logger     *zerolog.Logger
}

func NewAuthService(repo domain.Repository, sessions domain.SessionRepository, eventBus domain.EventPublisher, sessionTTL time.Duration, bcryptCost int, logger *zerolog.Logger) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = models.DefaultSessionTTL * time.Second
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = models.DefaultBcryptCost
	}
	return &AuthService{
		repo:       repo,
		sessions:   sessions,
		eventBus:   eventBus,
		sessionTTL: sessionTTL,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register stores a new user with a salted bcrypt hash of the password.
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrAuthFailure
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateUsername) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", username).Msg("create user failed")
		return nil, ErrStorage
	}

	if s.eventBus != nil {
		payload := events.UserEventPayload{UserID: user.ID, Username: user.Username}
		if err := s.eventBus.PublishJSON(events.EventUserRegistered, payload); err != nil {
			s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("publish event error")
		}
	}

	s.logger.Info().Int64("user_id", user.ID).Str("username", username).Msg("user registered")
	return user, nil
}

// Login verifies credentials and establishes an opaque server-side session.
// Unknown user and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.Session, error) {
	username = strings.TrimSpace(username)

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrAuthFailure
		}
		s.logger.Error().Err(err).Str("username", username).Msg("lookup user failed")
		return nil, ErrStorage
	}

	// bcrypt comparison is constant-time over the hash
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrAuthFailure
	}

	now := time.Now()
	session := &models.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("create session failed")
		return nil, ErrStorage
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user logged in")
	return session, nil
}

// Logout destroys the session; unknown tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		s.logger.Error().Err(err).Msg("delete session failed")
		return ErrStorage
	}
	return nil
}

// Authenticate resolves a token to the owning user id.
func (s *AuthService) Authenticate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrNotAuthenticated
	}
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		s.logger.Error().Err(err).Msg("get session failed")
		return 0, ErrStorage
	}
	if session == nil {
		return 0, ErrNotAuthenticated
	}
	return session.UserID, nil
}

// UserByID loads the user record for an authenticated id.
func (s *AuthService) UserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		s.logger.Error().Err(err).Int64("user_id", id).Msg("lookup user failed")
		return nil, ErrStorage
	}
	return user, nil
}

// CheckLoginRateLimit gates repeated login attempts per client key.
func (s *AuthService) CheckLoginRateLimit(ctx context.Context, key string, limit int, window time.Duration) bool {
	allowed, err := s.sessions.CheckRateLimit(ctx, key, limit, window)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed, allowing")
		return true
	}
	return allowed
}
