package scheduling

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"

	"github.com/noah-isme/agenda-api/internal/models"
)

var urlCheck = validator.New()

// ActivityDraft is an activity as typed by the organizer, before any parsing.
type ActivityDraft struct {
	Title       string
	Description string
	Date        string
	StartTime   string
	EndTime     string
	Modality    string
	PlaceIDs    []uint
	VirtualURL  string
	Speaker     string
	Headcount   *int
}

// DraftFromActivity renders a stored activity back into draft form so that a
// partial change can be merged and the whole thing re-validated.
func DraftFromActivity(activity models.Activity) ActivityDraft {
	return ActivityDraft{
		Title:       activity.Title,
		Description: activity.Description,
		Date:        activity.Date.String(),
		StartTime:   models.FormatClock(activity.StartTime),
		EndTime:     models.FormatClock(activity.EndTime),
		Modality:    string(activity.Modality),
		PlaceIDs:    append([]uint(nil), activity.PlaceIDs...),
		VirtualURL:  activity.VirtualURL,
		Speaker:     activity.Speaker,
		Headcount:   activity.Headcount,
	}
}

// Merge overlays a speaker proposal on the draft. Fields the proposal leaves
// nil keep their current value.
func (d ActivityDraft) Merge(proposal models.ScheduleChangeProposal) ActivityDraft {
	merged := d
	merged.PlaceIDs = append([]uint(nil), d.PlaceIDs...)
	if proposal.Title != nil {
		merged.Title = *proposal.Title
	}
	if proposal.Description != nil {
		merged.Description = *proposal.Description
	}
	if proposal.Date != nil {
		merged.Date = *proposal.Date
	}
	if proposal.StartTime != nil {
		merged.StartTime = *proposal.StartTime
	}
	if proposal.EndTime != nil {
		merged.EndTime = *proposal.EndTime
	}
	return merged
}

// NormalizedActivity is a draft that passed every rule, ready to persist.
type NormalizedActivity struct {
	Title       string
	Description string
	Date        models.Date
	StartTime   datatypes.Time
	EndTime     datatypes.Time
	Modality    models.ActivityModality
	PlaceIDs    []uint
	VirtualURL  string
	Speaker     string
	Headcount   *int
}

// Apply copies the normalized fields onto a stored activity.
func (n NormalizedActivity) Apply(activity *models.Activity) {
	activity.Title = n.Title
	activity.Description = n.Description
	activity.Date = n.Date
	activity.StartTime = n.StartTime
	activity.EndTime = n.EndTime
	activity.Modality = n.Modality
	activity.PlaceIDs = append([]uint(nil), n.PlaceIDs...)
	activity.VirtualURL = n.VirtualURL
	activity.Speaker = n.Speaker
	activity.Headcount = n.Headcount
}

// ActivityResult is either a normalized activity (no Errors) or the full list
// of violations.
type ActivityResult struct {
	Activity NormalizedActivity
	Errors   []FieldError
}

// Valid reports whether the draft can be persisted.
func (r ActivityResult) Valid() bool {
	return len(r.Errors) == 0
}

// ParseActivityModality maps user input to a known modality.
func ParseActivityModality(value string) (models.ActivityModality, bool) {
	switch foldKey(value) {
	case "presencial", "in_person":
		return models.ActivityModalityInPerson, true
	case "virtual", "online":
		return models.ActivityModalityVirtual, true
	case "hibrida", "hibrido", "hybrid":
		return models.ActivityModalityHybrid, true
	default:
		return "", false
	}
}

// ValidateActivity checks a draft against its parent event. places must hold
// every place the caller could resolve for draft.PlaceIDs; ids missing from the
// map are reported as unknown.
func ValidateActivity(event models.Event, draft ActivityDraft, places map[uint]PlaceInfo) ActivityResult {
	var errs errorList
	out := NormalizedActivity{
		Title:       strings.TrimSpace(draft.Title),
		Description: strings.TrimSpace(draft.Description),
		VirtualURL:  strings.TrimSpace(draft.VirtualURL),
		Speaker:     strings.TrimSpace(draft.Speaker),
		Headcount:   draft.Headcount,
	}

	if out.Title == "" {
		errs.add(FieldTitle, "el título es obligatorio")
	}
	if out.Description == "" {
		errs.add(FieldDescription, "la descripción es obligatoria")
	}

	validateActivityDate(event, draft.Date, &out, &errs)
	validateActivityTimes(draft.StartTime, draft.EndTime, &out, &errs)
	validateActivityVenue(event, draft, places, &out, &errs)
	validateActivityHeadcount(event, places, &out, &errs)

	if len(errs) > 0 {
		return ActivityResult{Errors: errs}
	}
	return ActivityResult{Activity: out}
}

func validateActivityDate(event models.Event, raw string, out *NormalizedActivity, errs *errorList) {
	if strings.TrimSpace(raw) == "" {
		errs.add(FieldActivityDate, "la fecha es obligatoria")
		return
	}
	day, err := models.ParseDate(raw)
	if err != nil {
		errs.add(FieldActivityDate, "la fecha debe tener formato AAAA-MM-DD")
		return
	}
	if !event.Covers(day) {
		errs.addf(FieldActivityDate, "la fecha %s está fuera del rango del evento (%s a %s)", day, event.StartDate, event.EndDate)
		return
	}
	out.Date = day
}

func validateActivityTimes(rawStart, rawEnd string, out *NormalizedActivity, errs *errorList) {
	var startOK, endOK bool
	if strings.TrimSpace(rawStart) == "" {
		errs.add(FieldStartTime, "la hora de inicio es obligatoria")
	} else if start, err := models.ParseClock(rawStart); err != nil {
		errs.add(FieldStartTime, "la hora de inicio debe tener formato HH:MM")
	} else {
		out.StartTime, startOK = start, true
	}

	if strings.TrimSpace(rawEnd) == "" {
		errs.add(FieldEndTime, "la hora de fin es obligatoria")
	} else if end, err := models.ParseClock(rawEnd); err != nil {
		errs.add(FieldEndTime, "la hora de fin debe tener formato HH:MM")
	} else {
		out.EndTime, endOK = end, true
	}

	if startOK && endOK && out.StartTime >= out.EndTime {
		errs.addf(FieldEndTime, "la hora de fin (%s) debe ser posterior a la hora de inicio (%s)",
			models.FormatClock(out.EndTime), models.FormatClock(out.StartTime))
	}
}

func validateActivityVenue(event models.Event, draft ActivityDraft, places map[uint]PlaceInfo, out *NormalizedActivity, errs *errorList) {
	modality, ok := ParseActivityModality(draft.Modality)
	if !ok {
		errs.add(FieldModality, "la modalidad debe ser presencial, virtual o hibrida")
		return
	}
	out.Modality = modality

	out.PlaceIDs = []uint{}
	if modality.NeedsRoom() {
		ids := dedupe(draft.PlaceIDs)
		if len(ids) == 0 {
			errs.add(FieldPlaces, "debe seleccionar al menos un lugar")
		}
		for _, id := range ids {
			place, found := places[id]
			switch {
			case !found:
				errs.addf(FieldPlaces, "el lugar %d no existe", id)
			case place.CompanyID != event.CompanyID:
				errs.addf(FieldPlaces, "el lugar %q no pertenece a la empresa del evento", place.Name)
			}
		}
		out.PlaceIDs = ids
	}

	if modality.NeedsURL() {
		if out.VirtualURL == "" {
			errs.add(FieldVirtualURL, "la URL virtual es obligatoria")
		} else if err := urlCheck.Var(out.VirtualURL, "url"); err != nil {
			errs.add(FieldVirtualURL, "la URL virtual no es válida")
		}
	} else {
		out.VirtualURL = ""
	}
}

func validateActivityHeadcount(event models.Event, places map[uint]PlaceInfo, out *NormalizedActivity, errs *errorList) {
	requested := out.Headcount
	if requested == nil {
		requested = event.HeadcountLimit
	}
	if requested == nil {
		return
	}
	if *requested <= 0 {
		errs.add(FieldHeadcount, "los cupos deben ser mayores que cero")
		return
	}
	if capacity, ok := minCapacity(out.PlaceIDs, places); ok && *requested > capacity {
		errs.capacity(*requested, capacity)
	}
}
