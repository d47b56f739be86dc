package dto

import (
	"strings"

	"github.com/noah-isme/agenda-api/internal/models"
)

// LocationResponse represents a company site.
type LocationResponse struct {
	ID        uint   `json:"id"`
	CompanyID uint   `json:"company_id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
}

// PlaceResponse represents a room inside a location. A nil capacity means
// the room is unconstrained.
type PlaceResponse struct {
	ID          uint   `json:"id"`
	LocationID  uint   `json:"location_id"`
	Name        string `json:"name"`
	Capacity    *int   `json:"capacity"`
	Description string `json:"description"`
}

// PlaceCapacityResponse answers a capacity lookup for a single place.
type PlaceCapacityResponse struct {
	PlaceID       uint `json:"place_id"`
	Capacity      *int `json:"capacity"`
	Unconstrained bool `json:"unconstrained"`
}

// PlaceListQuery filters places by location.
type PlaceListQuery struct {
	LocationID uint `query:"location_id"`
}

// NewLocationResponse converts a location model to DTO.
func NewLocationResponse(model models.Location) LocationResponse {
	return LocationResponse{
		ID:        model.ID,
		CompanyID: model.CompanyID,
		Name:      model.Name,
		Address:   model.Address,
	}
}

// NewLocationResponseSlice converts a slice of locations.
func NewLocationResponseSlice(items []models.Location) []LocationResponse {
	out := make([]LocationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewLocationResponse(item))
	}
	return out
}

// NewPlaceResponse converts a place model to DTO.
func NewPlaceResponse(model models.Place) PlaceResponse {
	return PlaceResponse{
		ID:          model.ID,
		LocationID:  model.LocationID,
		Name:        model.Name,
		Capacity:    model.Capacity,
		Description: model.Description,
	}
}

// NewPlaceResponseSlice converts a slice of places.
func NewPlaceResponseSlice(items []models.Place) []PlaceResponse {
	out := make([]PlaceResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewPlaceResponse(item))
	}
	return out
}

// VenueSeedRequest is the hierarchy import accepted by the seeding endpoint.
type VenueSeedRequest struct {
	Companies []VenueSeedCompany `json:"companies" validate:"required,min=1,dive"`
}

// VenueSeedCompany is one company with its locations.
type VenueSeedCompany struct {
	Name      string              `json:"name" validate:"required,max=255"`
	Locations []VenueSeedLocation `json:"locations" validate:"dive"`
}

// VenueSeedLocation is one site with its rooms.
type VenueSeedLocation struct {
	Name    string           `json:"name" validate:"required,max=255"`
	Address string           `json:"address" validate:"max=512"`
	Places  []VenueSeedPlace `json:"places" validate:"dive"`
}

// VenueSeedPlace is one room; a missing capacity leaves it unconstrained.
type VenueSeedPlace struct {
	Name        string `json:"name" validate:"required,max=255"`
	Capacity    *int   `json:"capacity" validate:"omitempty,min=1"`
	Description string `json:"description" validate:"max=5000"`
}

// VenueSeedResponse reports how many rows the import wrote.
type VenueSeedResponse struct {
	Companies int64 `json:"companies"`
	Locations int64 `json:"locations"`
	Places    int64 `json:"places"`
}

// Models converts the request into GORM models, trimming names.
func (r VenueSeedRequest) Models() []models.Company {
	companies := make([]models.Company, 0, len(r.Companies))
	for _, c := range r.Companies {
		company := models.Company{Name: strings.TrimSpace(c.Name)}
		for _, l := range c.Locations {
			location := models.Location{Name: strings.TrimSpace(l.Name), Address: strings.TrimSpace(l.Address)}
			for _, p := range l.Places {
				location.Places = append(location.Places, models.Place{
					Name:        strings.TrimSpace(p.Name),
					Capacity:    p.Capacity,
					Description: strings.TrimSpace(p.Description),
				})
			}
			company.Locations = append(company.Locations, location)
		}
		companies = append(companies, company)
	}
	return companies
}
