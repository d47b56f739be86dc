package dto

import (
	"time"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/scheduling"
)

// EventCreateRequest is the payload to create an event. Dates use YYYY-MM-DD.
type EventCreateRequest struct {
	CompanyID      uint   `json:"company_id" validate:"required"`
	Title          string `json:"titulo" validate:"max=255"`
	Description    string `json:"descripcion" validate:"max=5000"`
	StartDate      string `json:"fecha_inicio" validate:"max=10"`
	EndDate        string `json:"fecha_fin" validate:"max=10"`
	Modality       string `json:"modalidad" validate:"max=32"`
	HeadcountLimit *int   `json:"cupos"`
	PlaceID        *uint  `json:"lugar"`
}

// EventUpdateRequest patches an event. Nil fields are left untouched.
type EventUpdateRequest struct {
	Title          *string `json:"titulo" validate:"omitempty,max=255"`
	Description    *string `json:"descripcion" validate:"omitempty,max=5000"`
	StartDate      *string `json:"fecha_inicio" validate:"omitempty,max=10"`
	EndDate        *string `json:"fecha_fin" validate:"omitempty,max=10"`
	Modality       *string `json:"modalidad" validate:"omitempty,max=32"`
	HeadcountLimit *int    `json:"cupos"`
	PlaceID        *uint   `json:"lugar"`
	Status         *string `json:"estado" validate:"omitempty,oneof=draft published cancelled finished"`
}

// Draft converts the create payload into a scheduling draft.
func (r EventCreateRequest) Draft() scheduling.EventDraft {
	return scheduling.EventDraft{
		Title:          r.Title,
		Description:    r.Description,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		Modality:       r.Modality,
		HeadcountLimit: r.HeadcountLimit,
		PlaceID:        r.PlaceID,
	}
}

// Merge overlays the patch on an existing draft.
func (r EventUpdateRequest) Merge(draft scheduling.EventDraft) scheduling.EventDraft {
	if r.Title != nil {
		draft.Title = *r.Title
	}
	if r.Description != nil {
		draft.Description = *r.Description
	}
	if r.StartDate != nil {
		draft.StartDate = *r.StartDate
	}
	if r.EndDate != nil {
		draft.EndDate = *r.EndDate
	}
	if r.Modality != nil {
		draft.Modality = *r.Modality
	}
	if r.HeadcountLimit != nil {
		draft.HeadcountLimit = r.HeadcountLimit
	}
	if r.PlaceID != nil {
		draft.PlaceID = r.PlaceID
	}
	return draft
}

// EventResponse represents an event returned to clients.
type EventResponse struct {
	ID             uint      `json:"id"`
	CompanyID      uint      `json:"company_id"`
	OrganizerID    string    `json:"organizer_id"`
	Title          string    `json:"titulo"`
	Description    string    `json:"descripcion"`
	StartDate      string    `json:"fecha_inicio"`
	EndDate        string    `json:"fecha_fin"`
	Modality       string    `json:"modalidad"`
	HeadcountLimit *int      `json:"cupos"`
	PlaceID        *uint     `json:"lugar"`
	Status         string    `json:"estado"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewEventResponse converts an event model to DTO.
func NewEventResponse(model models.Event) EventResponse {
	return EventResponse{
		ID:             model.ID,
		CompanyID:      model.CompanyID,
		OrganizerID:    model.OrganizerID,
		Title:          model.Title,
		Description:    model.Description,
		StartDate:      model.StartDate.String(),
		EndDate:        model.EndDate.String(),
		Modality:       string(model.Modality),
		HeadcountLimit: model.HeadcountLimit,
		PlaceID:        model.PlaceID,
		Status:         string(model.Status),
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

// ActivityRequest carries a full activity draft, for creation and dry-run
// validation. Times use HH:MM.
type ActivityRequest struct {
	Title       string `json:"titulo" validate:"max=255"`
	Description string `json:"descripcion" validate:"max=5000"`
	Date        string `json:"fecha_actividad" validate:"max=10"`
	StartTime   string `json:"hora_inicio" validate:"max=8"`
	EndTime     string `json:"hora_fin" validate:"max=8"`
	Modality    string `json:"modalidad" validate:"max=32"`
	PlaceIDs    []uint `json:"lugares" validate:"max=50"`
	VirtualURL  string `json:"url_virtual" validate:"max=512"`
	Speaker     string `json:"ponente" validate:"max=255"`
	Headcount   *int   `json:"cupos"`
}

// Draft converts the payload into a scheduling draft.
func (r ActivityRequest) Draft() scheduling.ActivityDraft {
	return scheduling.ActivityDraft{
		Title:       r.Title,
		Description: r.Description,
		Date:        r.Date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Modality:    r.Modality,
		PlaceIDs:    append([]uint(nil), r.PlaceIDs...),
		VirtualURL:  r.VirtualURL,
		Speaker:     r.Speaker,
		Headcount:   r.Headcount,
	}
}

// ActivityUpdateRequest patches an activity. When Version is set the write
// only succeeds if the stored activity still has that version.
type ActivityUpdateRequest struct {
	Title       *string `json:"titulo" validate:"omitempty,max=255"`
	Description *string `json:"descripcion" validate:"omitempty,max=5000"`
	Date        *string `json:"fecha_actividad" validate:"omitempty,max=10"`
	StartTime   *string `json:"hora_inicio" validate:"omitempty,max=8"`
	EndTime     *string `json:"hora_fin" validate:"omitempty,max=8"`
	Modality    *string `json:"modalidad" validate:"omitempty,max=32"`
	PlaceIDs    *[]uint `json:"lugares"`
	VirtualURL  *string `json:"url_virtual" validate:"omitempty,max=512"`
	Speaker     *string `json:"ponente" validate:"omitempty,max=255"`
	Headcount   *int    `json:"cupos"`
	Version     *uint   `json:"version"`
}

// Merge overlays the patch on an existing draft.
func (r ActivityUpdateRequest) Merge(draft scheduling.ActivityDraft) scheduling.ActivityDraft {
	if r.Title != nil {
		draft.Title = *r.Title
	}
	if r.Description != nil {
		draft.Description = *r.Description
	}
	if r.Date != nil {
		draft.Date = *r.Date
	}
	if r.StartTime != nil {
		draft.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		draft.EndTime = *r.EndTime
	}
	if r.Modality != nil {
		draft.Modality = *r.Modality
	}
	if r.PlaceIDs != nil {
		draft.PlaceIDs = append([]uint(nil), (*r.PlaceIDs)...)
	}
	if r.VirtualURL != nil {
		draft.VirtualURL = *r.VirtualURL
	}
	if r.Speaker != nil {
		draft.Speaker = *r.Speaker
	}
	if r.Headcount != nil {
		draft.Headcount = r.Headcount
	}
	return draft
}

// ActivityResponse represents an activity returned to clients.
type ActivityResponse struct {
	ID          uint      `json:"id"`
	EventID     uint      `json:"event_id"`
	Title       string    `json:"titulo"`
	Description string    `json:"descripcion"`
	Date        string    `json:"fecha_actividad"`
	StartTime   string    `json:"hora_inicio"`
	EndTime     string    `json:"hora_fin"`
	Modality    string    `json:"modalidad"`
	PlaceIDs    []uint    `json:"lugares"`
	VirtualURL  string    `json:"url_virtual"`
	Speaker     string    `json:"ponente"`
	Headcount   *int      `json:"cupos"`
	Version     uint      `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewActivityResponse converts an activity model to DTO.
func NewActivityResponse(model models.Activity) ActivityResponse {
	placeIDs := model.PlaceIDs
	if placeIDs == nil {
		placeIDs = []uint{}
	}
	return ActivityResponse{
		ID:          model.ID,
		EventID:     model.EventID,
		Title:       model.Title,
		Description: model.Description,
		Date:        model.Date.String(),
		StartTime:   models.FormatClock(model.StartTime),
		EndTime:     models.FormatClock(model.EndTime),
		Modality:    string(model.Modality),
		PlaceIDs:    placeIDs,
		VirtualURL:  model.VirtualURL,
		Speaker:     model.Speaker,
		Headcount:   model.Headcount,
		Version:     model.Version,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewActivityResponseSlice converts a slice of activities.
func NewActivityResponseSlice(items []models.Activity) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewActivityResponse(item))
	}
	return out
}

// ActivityValidationResponse is the outcome of a dry-run validation.
type ActivityValidationResponse struct {
	Valid    bool                    `json:"valid"`
	Activity *ActivityResponse       `json:"activity,omitempty"`
	Errors   []scheduling.FieldError `json:"errors"`
}
