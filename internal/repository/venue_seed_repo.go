package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/agenda-api/internal/models"
)

// VenueSeedStats counts the rows written by a hierarchy import.
type VenueSeedStats struct {
	Companies int64
	Locations int64
	Places    int64
}

// VenueSeeder imports a company -> location -> place hierarchy. Rows are
// matched by name within their parent, so re-running an import updates in place.
type VenueSeeder interface {
	SeedHierarchy(ctx context.Context, companies []models.Company) (VenueSeedStats, error)
}

// NewVenueSeeder returns the GORM-backed importer.
func NewVenueSeeder(db *gorm.DB) VenueSeeder {
	return &venueRepository{db: db}
}

func (r *venueRepository) SeedHierarchy(ctx context.Context, companies []models.Company) (VenueSeedStats, error) {
	var stats VenueSeedStats
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, input := range companies {
			var company models.Company
			if err := tx.Where("name = ?", input.Name).
				FirstOrCreate(&company, models.Company{Name: input.Name}).Error; err != nil {
				return err
			}
			stats.Companies++

			for _, loc := range input.Locations {
				var location models.Location
				if err := tx.Where("company_id = ? AND name = ?", company.ID, loc.Name).
					Assign(map[string]interface{}{"address": loc.Address}).
					FirstOrCreate(&location, models.Location{CompanyID: company.ID, Name: loc.Name}).Error; err != nil {
					return err
				}
				stats.Locations++

				for _, p := range loc.Places {
					var place models.Place
					if err := tx.Where("location_id = ? AND name = ?", location.ID, p.Name).
						Assign(map[string]interface{}{"capacity": p.Capacity, "description": p.Description}).
						FirstOrCreate(&place, models.Place{LocationID: location.ID, Name: p.Name}).Error; err != nil {
						return err
					}
					stats.Places++
				}
			}
		}
		return nil
	})
	if err != nil {
		return VenueSeedStats{}, err
	}
	return stats, nil
}
