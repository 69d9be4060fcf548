package repository

import (
	"context"
	"sync/atomic"
	"time"

	"fonteyn/internal/domain"
	"fonteyn/internal/models"

	"github.com/rs/zerolog"
)

// FailoverSessionRepository prefers the primary store and falls back to
// the secondary when the primary errors, probing for recovery once a
// minute. Sessions created during an outage live only in the fallback.
type FailoverSessionRepository struct {
	primary   domain.SessionRepository
	fallback  domain.SessionRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSessionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary session repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck = time.Now()
}

func (r *FailoverSessionRepository) Create(ctx context.Context, session *models.Session) error {
	if !r.isDown.Load() {
		err := r.primary.Create(ctx, session)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Create(ctx, session)
}

func (r *FailoverSessionRepository) Get(ctx context.Context, token string) (*models.Session, error) {
	if !r.isDown.Load() {
		session, err := r.primary.Get(ctx, token)
		if err == nil {
			return session, nil
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		session, err := r.primary.Get(ctx, token)
		if err == nil {
			r.isDown.Store(false)
			return session, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.Get(ctx, token)
}

func (r *FailoverSessionRepository) Delete(ctx context.Context, token string) error {
	if !r.isDown.Load() {
		err := r.primary.Delete(ctx, token)
		if err == nil {
			// Clear the fallback too so a failover window can't revive the session.
			_ = r.fallback.Delete(ctx, token)
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Delete(ctx, token)
}

func (r *FailoverSessionRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
