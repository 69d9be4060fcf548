package service

import (
	"context"
	"errors"

	"fonteyn/internal/database"
	"fonteyn/internal/domain"
	"fonteyn/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService is the read-only accommodation listing. Seeding happens
// once at startup from config; there is no mutation path.
type CatalogService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewCatalogService(repo domain.Repository, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{repo: repo, logger: logger}
}

func (s *CatalogService) ListAccommodations(ctx context.Context) ([]*models.Accommodation, error) {
	accommodations, err := s.repo.GetAccommodations(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("list accommodations failed")
		return nil, ErrStorage
	}
	return accommodations, nil
}

func (s *CatalogService) GetAccommodationByName(ctx context.Context, name string) (*models.Accommodation, error) {
	accommodation, err := s.repo.GetAccommodationByName(ctx, name)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("name", name).Msg("get accommodation failed")
		return nil, ErrStorage
	}
	return accommodation, nil
}
