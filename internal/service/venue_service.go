package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/observability"
	"github.com/noah-isme/agenda-api/internal/repository"
	"github.com/noah-isme/agenda-api/internal/scheduling"
)

// VenueService walks the company -> location -> place hierarchy. Listings
// are cached; anything feeding a validation is read fresh.
type VenueService interface {
	ListLocations(ctx context.Context, companyID uint) ([]dto.LocationResponse, error)
	ListPlaces(ctx context.Context, companyID uint, locationID *uint) ([]dto.PlaceResponse, error)
	CapacityOf(ctx context.Context, placeID uint) (dto.PlaceCapacityResponse, error)
	ResolvePlaces(ctx context.Context, ids []uint) (map[uint]scheduling.PlaceInfo, error)
	InvalidateCache(ctx context.Context) error
}

const venueCachePattern = "venues:v1:*"

type venueService struct {
	repo    repository.VenueRepository
	cache   *redis.Client
	ttl     time.Duration
	timeout time.Duration
	logger  zerolog.Logger
}

// NewVenueService constructs the venue hierarchy resolver.
func NewVenueService(repo repository.VenueRepository, cache *redis.Client, ttl, timeout time.Duration, logger zerolog.Logger) VenueService {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &venueService{
		repo:    repo,
		cache:   cache,
		ttl:     ttl,
		timeout: timeout,
		logger:  logger.With().Str("component", "venue_service").Logger(),
	}
}

func (s *venueService) ListLocations(ctx context.Context, companyID uint) ([]dto.LocationResponse, error) {
	cacheKey := fmt.Sprintf("venues:v1:locations:%d", companyID)
	var cached []dto.LocationResponse
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	locations, err := retryRead(storeCtx, "locations", func(ctx context.Context) ([]models.Location, error) {
		return s.repo.ListLocations(ctx, companyID)
	})
	if err != nil {
		return nil, err
	}

	response := dto.NewLocationResponseSlice(locations)
	s.writeCache(ctx, cacheKey, response)
	return response, nil
}

func (s *venueService) ListPlaces(ctx context.Context, companyID uint, locationID *uint) ([]dto.PlaceResponse, error) {
	cacheKey := fmt.Sprintf("venues:v1:places:%d:all", companyID)
	if locationID != nil {
		cacheKey = fmt.Sprintf("venues:v1:places:%d:%d", companyID, *locationID)
	}
	var cached []dto.PlaceResponse
	if s.readCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	places, err := retryRead(storeCtx, "places", func(ctx context.Context) ([]models.Place, error) {
		return s.repo.ListPlaces(ctx, companyID, locationID)
	})
	if err != nil {
		return nil, err
	}

	response := dto.NewPlaceResponseSlice(places)
	s.writeCache(ctx, cacheKey, response)
	return response, nil
}

func (s *venueService) CapacityOf(ctx context.Context, placeID uint) (dto.PlaceCapacityResponse, error) {
	storeCtx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	place, err := retryRead(storeCtx, "place", func(ctx context.Context) (models.Place, error) {
		return s.repo.GetPlace(ctx, placeID)
	})
	if err != nil {
		return dto.PlaceCapacityResponse{}, err
	}

	return dto.PlaceCapacityResponse{
		PlaceID:       place.ID,
		Capacity:      place.Capacity,
		Unconstrained: !place.HasCapacity(),
	}, nil
}

// ResolvePlaces loads the given places straight from the store. Unknown ids
// are simply absent from the result; the validator reports them.
func (s *venueService) ResolvePlaces(ctx context.Context, ids []uint) (map[uint]scheduling.PlaceInfo, error) {
	resolved := make(map[uint]scheduling.PlaceInfo, len(ids))
	if len(ids) == 0 {
		return resolved, nil
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	places, err := retryRead(storeCtx, "places", func(ctx context.Context) ([]models.Place, error) {
		return s.repo.FindPlaces(ctx, ids)
	})
	if err != nil {
		return nil, err
	}

	for _, place := range places {
		info := scheduling.PlaceInfo{
			ID:       place.ID,
			Name:     place.Name,
			Capacity: place.Capacity,
		}
		if place.Location != nil {
			info.CompanyID = place.Location.CompanyID
		}
		resolved[place.ID] = info
	}
	return resolved, nil
}

// InvalidateCache drops every cached listing so the next read hits the store.
func (s *venueService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	iter := s.cache.Scan(ctx, 0, venueCachePattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.cache.Del(ctx, keys...).Err()
}

func (s *venueService) readCache(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}
	payload, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("venue cache read failed")
			observability.VenueCacheRequests().WithLabelValues("error").Inc()
		} else {
			observability.VenueCacheRequests().WithLabelValues("miss").Inc()
		}
		return false
	}
	if err := json.Unmarshal(payload, target); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding malformed venue cache entry")
		return false
	}
	observability.VenueCacheRequests().WithLabelValues("hit").Inc()
	return true
}

func (s *venueService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache venue listing")
	}
}
