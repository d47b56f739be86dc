package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/agenda-api/internal/models"
)

// VenueRepository reads the company -> location -> place hierarchy.
type VenueRepository interface {
	ListLocations(ctx context.Context, companyID uint) ([]models.Location, error)
	ListPlaces(ctx context.Context, companyID uint, locationID *uint) ([]models.Place, error)
	GetPlace(ctx context.Context, id uint) (models.Place, error)
	FindPlaces(ctx context.Context, ids []uint) ([]models.Place, error)
}

type venueRepository struct {
	db *gorm.DB
}

// NewVenueRepository instantiates a GORM-backed venue repository.
func NewVenueRepository(db *gorm.DB) VenueRepository {
	return &venueRepository{db: db}
}

func (r *venueRepository) ListLocations(ctx context.Context, companyID uint) ([]models.Location, error) {
	locations := make([]models.Location, 0)
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("name ASC").
		Order("id ASC").
		Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

func (r *venueRepository) ListPlaces(ctx context.Context, companyID uint, locationID *uint) ([]models.Place, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Place{}).
		Select("places.*").
		Joins("JOIN locations ON locations.id = places.location_id").
		Where("locations.company_id = ?", companyID)

	if locationID != nil {
		query = query.Where("places.location_id = ?", *locationID)
	}

	places := make([]models.Place, 0)
	if err := query.Order("places.name ASC").Order("places.id ASC").Find(&places).Error; err != nil {
		return nil, err
	}
	return places, nil
}

func (r *venueRepository) GetPlace(ctx context.Context, id uint) (models.Place, error) {
	var place models.Place
	if err := r.db.WithContext(ctx).Preload("Location").First(&place, id).Error; err != nil {
		return models.Place{}, err
	}
	return place, nil
}

func (r *venueRepository) FindPlaces(ctx context.Context, ids []uint) ([]models.Place, error) {
	places := make([]models.Place, 0, len(ids))
	if len(ids) == 0 {
		return places, nil
	}
	if err := r.db.WithContext(ctx).Preload("Location").Where("id IN ?", ids).Find(&places).Error; err != nil {
		return nil, err
	}
	return places, nil
}
