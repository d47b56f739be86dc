package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/agenda-api/internal/service"
	"github.com/noah-isme/agenda-api/internal/utils"
)

// VenueHandler exposes the read-only venue hierarchy.
type VenueHandler struct {
	service service.VenueService
	logger  zerolog.Logger
}

// NewVenueHandler constructs the handler.
func NewVenueHandler(service service.VenueService, logger zerolog.Logger) *VenueHandler {
	return &VenueHandler{
		service: service,
		logger:  logger.With().Str("component", "venue_handler").Logger(),
	}
}

// Register wires the venue routes on the API root.
func (h *VenueHandler) Register(router fiber.Router) {
	router.Get("/companies/:companyID/locations", h.listLocations)
	router.Get("/companies/:companyID/places", h.listPlaces)
	router.Get("/places/:id/capacity", h.capacity)
}

func (h *VenueHandler) listLocations(c *fiber.Ctx) error {
	companyID, err := parseUintParam(c, "companyID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid company id")
	}

	locations, err := h.service.ListLocations(requestContext(c), companyID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "locations retrieved", locations)
}

func (h *VenueHandler) listPlaces(c *fiber.Ctx) error {
	companyID, err := parseUintParam(c, "companyID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid company id")
	}

	var locationID *uint
	if raw := c.Query("location_id"); raw != "" {
		parsed, err := parseQueryInt(c, "location_id")
		if err != nil || parsed <= 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid location_id")
		}
		id := uint(parsed)
		locationID = &id
	}

	places, err := h.service.ListPlaces(requestContext(c), companyID, locationID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "places retrieved", places)
}

func (h *VenueHandler) capacity(c *fiber.Ctx) error {
	placeID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid place id")
	}

	capacity, err := h.service.CapacityOf(requestContext(c), placeID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "capacity retrieved", capacity)
}
