package scheduling

import (
	"strings"

	"github.com/noah-isme/agenda-api/internal/models"
)

// EventDraft is an event as typed by the organizer.
type EventDraft struct {
	Title          string
	Description    string
	StartDate      string
	EndDate        string
	Modality       string
	HeadcountLimit *int
	PlaceID        *uint
}

// DraftFromEvent renders a stored event back into draft form.
func DraftFromEvent(event models.Event) EventDraft {
	return EventDraft{
		Title:          event.Title,
		Description:    event.Description,
		StartDate:      event.StartDate.String(),
		EndDate:        event.EndDate.String(),
		Modality:       string(event.Modality),
		HeadcountLimit: event.HeadcountLimit,
		PlaceID:        event.PlaceID,
	}
}

// NormalizedEvent is an event draft that passed every rule.
type NormalizedEvent struct {
	Title          string
	Description    string
	StartDate      models.Date
	EndDate        models.Date
	Modality       models.EventModality
	HeadcountLimit *int
	PlaceID        *uint
}

// Apply copies the normalized fields onto a stored event.
func (n NormalizedEvent) Apply(event *models.Event) {
	event.Title = n.Title
	event.Description = n.Description
	event.StartDate = n.StartDate
	event.EndDate = n.EndDate
	event.Modality = n.Modality
	event.HeadcountLimit = n.HeadcountLimit
	event.PlaceID = n.PlaceID
}

// EventResult is either a normalized event or the list of violations.
type EventResult struct {
	Event  NormalizedEvent
	Errors []FieldError
}

// Valid reports whether the event can be persisted.
func (r EventResult) Valid() bool {
	return len(r.Errors) == 0
}

// ParseEventModality maps user input to a known event modality.
func ParseEventModality(value string) (models.EventModality, bool) {
	switch foldKey(value) {
	case "presencial", "in_person":
		return models.EventModalityInPerson, true
	case "virtual", "online":
		return models.EventModalityVirtual, true
	case "hibrido", "hibrida", "hybrid":
		return models.EventModalityHybrid, true
	default:
		return "", false
	}
}

// ValidateEvent checks an event draft for the given company. places holds the
// resolved room referenced by draft.PlaceID, if any.
func ValidateEvent(companyID uint, draft EventDraft, places map[uint]PlaceInfo) EventResult {
	var errs errorList
	out := NormalizedEvent{
		Title:          strings.TrimSpace(draft.Title),
		Description:    strings.TrimSpace(draft.Description),
		HeadcountLimit: draft.HeadcountLimit,
	}

	if out.Title == "" {
		errs.add(FieldTitle, "el título es obligatorio")
	}

	start, startOK := parseRequiredDate(draft.StartDate, FieldStartDate, &errs)
	end, endOK := parseRequiredDate(draft.EndDate, FieldEndDate, &errs)
	if startOK && endOK {
		if end.Before(start) {
			errs.addf(FieldEndDate, "la fecha de fin (%s) no puede ser anterior a la de inicio (%s)", end, start)
		}
		out.StartDate, out.EndDate = start, end
	}

	modality, ok := ParseEventModality(draft.Modality)
	if !ok {
		errs.add(FieldModality, "la modalidad debe ser Presencial, Virtual o Híbrido")
	}
	out.Modality = modality

	if modality.NeedsRoom() {
		if draft.PlaceID == nil {
			errs.add(FieldPlace, "la modalidad requiere un lugar físico")
		} else if place, found := places[*draft.PlaceID]; !found {
			errs.addf(FieldPlace, "el lugar %d no existe", *draft.PlaceID)
		} else if place.CompanyID != companyID {
			errs.addf(FieldPlace, "el lugar %q no pertenece a la empresa del evento", place.Name)
		} else {
			id := *draft.PlaceID
			out.PlaceID = &id
		}
	}

	if limit := out.HeadcountLimit; limit != nil {
		if *limit <= 0 {
			errs.add(FieldHeadcount, "los cupos deben ser mayores que cero")
		} else if out.PlaceID != nil {
			if capacity, ok := minCapacity([]uint{*out.PlaceID}, places); ok && *limit > capacity {
				errs.capacity(*limit, capacity)
			}
		}
	}

	if len(errs) > 0 {
		return EventResult{Errors: errs}
	}
	return EventResult{Event: out}
}

// parseRequiredDate reports ok=true only when the value was present and parsed.
func parseRequiredDate(raw, field string, errs *errorList) (models.Date, bool) {
	if strings.TrimSpace(raw) == "" {
		errs.add(field, "la fecha es obligatoria")
		return models.Date{}, false
	}
	day, err := models.ParseDate(raw)
	if err != nil {
		errs.add(field, "la fecha debe tener formato AAAA-MM-DD")
		return models.Date{}, false
	}
	return day, true
}
