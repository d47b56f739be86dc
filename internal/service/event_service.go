package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/repository"
	"github.com/noah-isme/agenda-api/internal/scheduling"
)

// EventService manages events and the activities scheduled inside them.
// Every write goes through the schedule validator first.
type EventService interface {
	CreateEvent(ctx context.Context, actor Actor, payload dto.EventCreateRequest) (dto.EventResponse, error)
	GetEvent(ctx context.Context, id uint) (dto.EventResponse, error)
	UpdateEvent(ctx context.Context, actor Actor, id uint, payload dto.EventUpdateRequest) (dto.EventResponse, error)
	ListActivities(ctx context.Context, eventID uint) ([]dto.ActivityResponse, error)
	ValidateActivity(ctx context.Context, eventID uint, payload dto.ActivityRequest) (dto.ActivityValidationResponse, error)
	CreateActivity(ctx context.Context, actor Actor, eventID uint, payload dto.ActivityRequest) (dto.ActivityResponse, error)
	UpdateActivity(ctx context.Context, actor Actor, activityID uint, payload dto.ActivityUpdateRequest) (dto.ActivityResponse, error)
	DeleteActivity(ctx context.Context, actor Actor, activityID uint) error
}

type eventService struct {
	repo      repository.EventRepository
	schedule  ScheduleValidator
	audit     AuditRecorder
	validator *validator.Validate
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewEventService constructs the event service.
func NewEventService(repo repository.EventRepository, schedule ScheduleValidator, audit AuditRecorder, validate *validator.Validate, timeout time.Duration, logger zerolog.Logger) EventService {
	return &eventService{
		repo:      repo,
		schedule:  schedule,
		audit:     audit,
		validator: validate,
		timeout:   timeout,
		logger:    logger.With().Str("component", "event_service").Logger(),
	}
}

func (s *eventService) CreateEvent(ctx context.Context, actor Actor, payload dto.EventCreateRequest) (dto.EventResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EventResponse{}, err
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.schedule.ValidateEvent(ctx, payload.CompanyID, payload.Draft())
	if err != nil {
		return dto.EventResponse{}, err
	}
	if !result.Valid() {
		return dto.EventResponse{}, newValidationError(result.Errors)
	}

	event := models.Event{
		CompanyID:   payload.CompanyID,
		OrganizerID: strings.TrimSpace(actor.ID),
		Status:      models.EventStatusDraft,
	}
	result.Event.Apply(&event)

	if err := s.repo.CreateEvent(ctx, &event); err != nil {
		return dto.EventResponse{}, storeError(err, "event")
	}

	s.logger.Info().Uint("event_id", event.ID).Str("organizer_id", event.OrganizerID).Msg("event created")
	recordAudit(ctx, s.audit, s.logger, AuditEntry{
		Actor:      actor,
		Action:     "event.created",
		EntityType: "event",
		EntityID:   uintPtr(event.ID),
		Metadata:   map[string]interface{}{"company_id": event.CompanyID},
	})

	return dto.NewEventResponse(event), nil
}

func (s *eventService) GetEvent(ctx context.Context, id uint) (dto.EventResponse, error) {
	event, err := s.loadEvent(ctx, id)
	if err != nil {
		return dto.EventResponse{}, err
	}
	return dto.NewEventResponse(event), nil
}

func (s *eventService) UpdateEvent(ctx context.Context, actor Actor, id uint, payload dto.EventUpdateRequest) (dto.EventResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EventResponse{}, err
	}

	event, err := s.loadEvent(ctx, id)
	if err != nil {
		return dto.EventResponse{}, err
	}
	if err := authorizeOrganizer(actor, event); err != nil {
		return dto.EventResponse{}, err
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.schedule.ValidateEvent(ctx, event.CompanyID, payload.Merge(scheduling.DraftFromEvent(event)))
	if err != nil {
		return dto.EventResponse{}, err
	}
	if !result.Valid() {
		return dto.EventResponse{}, newValidationError(result.Errors)
	}

	candidate := event
	result.Event.Apply(&candidate)
	if payload.Status != nil {
		candidate.Status = models.EventStatus(*payload.Status)
	}

	checked, err := s.checkCapacity(ctx, event, candidate)
	if err != nil {
		return dto.EventResponse{}, err
	}

	guard := func(activities []models.Activity) error {
		var outside []uint
		for _, activity := range activities {
			if !candidate.Covers(activity.Date) {
				outside = append(outside, activity.ID)
			}
		}
		if len(outside) > 0 {
			return &ActivityConflictError{Cause: ErrEventRangeConflict, ActivityIDs: outside}
		}
		if checked == nil {
			return nil
		}
		for _, activity := range activities {
			if activity.Headcount != nil {
				continue
			}
			if version, ok := checked[activity.ID]; !ok || version != activity.Version {
				return ErrScheduleChanged
			}
		}
		return nil
	}

	if err := s.repo.UpdateEvent(ctx, &candidate, guard); err != nil {
		return dto.EventResponse{}, storeError(err, "event")
	}
	event = candidate

	s.logger.Info().Uint("event_id", event.ID).Msg("event updated")
	recordAudit(ctx, s.audit, s.logger, AuditEntry{
		Actor:      actor,
		Action:     "event.updated",
		EntityType: "event",
		EntityID:   uintPtr(event.ID),
		Metadata: map[string]interface{}{
			"start_date": event.StartDate.String(),
			"end_date":   event.EndDate.String(),
			"status":     string(event.Status),
		},
	})

	return dto.NewEventResponse(event), nil
}

// checkCapacity re-validates the activities that inherit the event's headcount
// limit when that limit changes. It returns the id and version of every
// activity it checked, or nil when the change cannot affect capacity.
func (s *eventService) checkCapacity(ctx context.Context, current, next models.Event) (map[uint]uint, error) {
	if next.HeadcountLimit == nil || sameLimit(current.HeadcountLimit, next.HeadcountLimit) {
		return nil, nil
	}

	activities, err := s.repo.ListActivities(ctx, current.ID)
	if err != nil {
		return nil, storeError(err, "activities")
	}

	checked := make(map[uint]uint, len(activities))
	var over []uint
	for _, activity := range activities {
		if activity.Headcount != nil {
			continue
		}
		result, err := s.schedule.ValidateActivity(ctx, next, scheduling.DraftFromActivity(activity))
		if err != nil {
			return nil, err
		}
		if exceedsCapacity(result.Errors) {
			over = append(over, activity.ID)
		}
		checked[activity.ID] = activity.Version
	}
	if len(over) > 0 {
		s.logger.Warn().Uint("event_id", current.ID).Int("headcount_limit", *next.HeadcountLimit).
			Interface("activity_ids", over).Msg("headcount limit rejected")
		return nil, &ActivityConflictError{Cause: ErrEventCapacityConflict, ActivityIDs: over}
	}
	return checked, nil
}

func sameLimit(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func exceedsCapacity(fields []scheduling.FieldError) bool {
	for _, field := range fields {
		if field.Field == scheduling.FieldHeadcount {
			return true
		}
	}
	return false
}

func (s *eventService) ListActivities(ctx context.Context, eventID uint) ([]dto.ActivityResponse, error) {
	if _, err := s.loadEvent(ctx, eventID); err != nil {
		return nil, err
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	activities, err := retryRead(ctx, "activities", func(ctx context.Context) ([]models.Activity, error) {
		return s.repo.ListActivities(ctx, eventID)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewActivityResponseSlice(activities), nil
}

func (s *eventService) ValidateActivity(ctx context.Context, eventID uint, payload dto.ActivityRequest) (dto.ActivityValidationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityValidationResponse{}, err
	}

	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return dto.ActivityValidationResponse{}, err
	}

	result, err := s.schedule.ValidateActivity(ctx, event, payload.Draft())
	if err != nil {
		return dto.ActivityValidationResponse{}, err
	}

	response := dto.ActivityValidationResponse{Valid: result.Valid(), Errors: result.Errors}
	if response.Errors == nil {
		response.Errors = []scheduling.FieldError{}
	}
	if result.Valid() {
		activity := models.Activity{EventID: event.ID}
		result.Activity.Apply(&activity)
		normalized := dto.NewActivityResponse(activity)
		response.Activity = &normalized
	}
	return response, nil
}

func (s *eventService) CreateActivity(ctx context.Context, actor Actor, eventID uint, payload dto.ActivityRequest) (dto.ActivityResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityResponse{}, err
	}

	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return dto.ActivityResponse{}, err
	}
	if err := authorizeOrganizer(actor, event); err != nil {
		return dto.ActivityResponse{}, err
	}

	result, err := s.schedule.ValidateActivity(ctx, event, payload.Draft())
	if err != nil {
		return dto.ActivityResponse{}, err
	}
	if !result.Valid() {
		return dto.ActivityResponse{}, newValidationError(result.Errors)
	}

	activity := models.Activity{EventID: event.ID}
	result.Activity.Apply(&activity)

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.CreateActivity(ctx, &activity); err != nil {
		return dto.ActivityResponse{}, storeError(err, "activity")
	}

	s.logger.Info().Uint("activity_id", activity.ID).Uint("event_id", event.ID).Msg("activity created")
	recordAudit(ctx, s.audit, s.logger, AuditEntry{
		Actor:      actor,
		Action:     "activity.created",
		EntityType: "activity",
		EntityID:   uintPtr(activity.ID),
		Metadata:   map[string]interface{}{"event_id": event.ID},
	})

	return dto.NewActivityResponse(activity), nil
}

func (s *eventService) UpdateActivity(ctx context.Context, actor Actor, activityID uint, payload dto.ActivityUpdateRequest) (dto.ActivityResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityResponse{}, err
	}

	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return dto.ActivityResponse{}, err
	}
	if payload.Version != nil && *payload.Version != activity.Version {
		return dto.ActivityResponse{}, ErrActivityStale
	}

	event, err := s.loadEvent(ctx, activity.EventID)
	if err != nil {
		return dto.ActivityResponse{}, err
	}
	if err := authorizeOrganizer(actor, event); err != nil {
		return dto.ActivityResponse{}, err
	}

	result, err := s.schedule.ValidateActivity(ctx, event, payload.Merge(scheduling.DraftFromActivity(activity)))
	if err != nil {
		return dto.ActivityResponse{}, err
	}
	if !result.Valid() {
		return dto.ActivityResponse{}, newValidationError(result.Errors)
	}

	result.Activity.Apply(&activity)

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.UpdateActivity(ctx, &activity); err != nil {
		return dto.ActivityResponse{}, storeError(err, "activity")
	}

	s.logger.Info().Uint("activity_id", activity.ID).Uint("version", activity.Version).Msg("activity updated")
	recordAudit(ctx, s.audit, s.logger, AuditEntry{
		Actor:      actor,
		Action:     "activity.updated",
		EntityType: "activity",
		EntityID:   uintPtr(activity.ID),
		Metadata:   map[string]interface{}{"version": activity.Version},
	})

	return dto.NewActivityResponse(activity), nil
}

func (s *eventService) DeleteActivity(ctx context.Context, actor Actor, activityID uint) error {
	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return err
	}
	event, err := s.loadEvent(ctx, activity.EventID)
	if err != nil {
		return err
	}
	if err := authorizeOrganizer(actor, event); err != nil {
		return err
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.DeleteActivity(ctx, activityID); err != nil {
		return storeError(err, "activity")
	}

	s.logger.Info().Uint("activity_id", activityID).Msg("activity deleted")
	recordAudit(ctx, s.audit, s.logger, AuditEntry{
		Actor:      actor,
		Action:     "activity.deleted",
		EntityType: "activity",
		EntityID:   uintPtr(activityID),
	})
	return nil
}

func (s *eventService) loadEvent(ctx context.Context, id uint) (models.Event, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	return retryRead(ctx, "event", func(ctx context.Context) (models.Event, error) {
		return s.repo.GetEvent(ctx, id)
	})
}

func (s *eventService) loadActivity(ctx context.Context, id uint) (models.Activity, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	return retryRead(ctx, "activity", func(ctx context.Context) (models.Activity, error) {
		return s.repo.GetActivity(ctx, id)
	})
}

// authorizeOrganizer lets the event's organizer and admins touch its schedule.
// Events created without an organizer are open to any organizer.
func authorizeOrganizer(actor Actor, event models.Event) error {
	if actor.IsAdmin() || event.OrganizerID == "" || event.OrganizerID == strings.TrimSpace(actor.ID) {
		return nil
	}
	return ErrForbidden
}
