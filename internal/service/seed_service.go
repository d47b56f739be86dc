package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// VenueCacheInvalidator drops cached venue listings after an import.
type VenueCacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

// SeedService imports the venue hierarchy the scheduler validates against.
type SeedService interface {
	SeedVenues(ctx context.Context, token string, payload dto.VenueSeedRequest) (dto.VenueSeedResponse, error)
}

type seedService struct {
	seeder    repository.VenueSeeder
	cache     VenueCacheInvalidator
	validator *validator.Validate
	enabled   bool
	token     string
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(seeder repository.VenueSeeder, cache VenueCacheInvalidator, validate *validator.Validate, enabled bool, token string, timeout time.Duration, logger zerolog.Logger) SeedService {
	return &seedService{
		seeder:    seeder,
		cache:     cache,
		validator: validate,
		enabled:   enabled,
		token:     token,
		timeout:   timeout,
		logger:    logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedVenues(ctx context.Context, token string, payload dto.VenueSeedRequest) (dto.VenueSeedResponse, error) {
	if !s.enabled {
		return dto.VenueSeedResponse{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return dto.VenueSeedResponse{}, ErrSeedUnauthorized
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.VenueSeedResponse{}, err
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	stats, err := s.seeder.SeedHierarchy(storeCtx, payload.Models())
	if err != nil {
		return dto.VenueSeedResponse{}, storeError(err, "venues")
	}

	if s.cache != nil {
		if err := s.cache.InvalidateCache(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate venue cache after seeding")
		}
	}

	s.logger.Info().
		Int64("companies", stats.Companies).
		Int64("locations", stats.Locations).
		Int64("places", stats.Places).
		Msg("venues seeded")

	return dto.VenueSeedResponse{
		Companies: stats.Companies,
		Locations: stats.Locations,
		Places:    stats.Places,
	}, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}
