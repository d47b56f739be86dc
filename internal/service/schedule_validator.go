package service

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/observability"
	"github.com/noah-isme/agenda-api/internal/scheduling"
)

// ScheduleValidator resolves the places a draft refers to and runs the
// scheduling rules against them. Rule violations come back as data in the
// result; the error is reserved for store failures.
type ScheduleValidator interface {
	ValidateActivity(ctx context.Context, event models.Event, draft scheduling.ActivityDraft) (scheduling.ActivityResult, error)
	ValidateEvent(ctx context.Context, companyID uint, draft scheduling.EventDraft) (scheduling.EventResult, error)
}

type scheduleValidator struct {
	venues PlaceResolver
	logger zerolog.Logger
	tracer trace.Tracer
}

// PlaceResolver loads place details for validation.
type PlaceResolver interface {
	ResolvePlaces(ctx context.Context, ids []uint) (map[uint]scheduling.PlaceInfo, error)
}

// NewScheduleValidator constructs the validator.
func NewScheduleValidator(venues PlaceResolver, logger zerolog.Logger) ScheduleValidator {
	return &scheduleValidator{
		venues: venues,
		logger: logger.With().Str("component", "schedule_validator").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/agenda-api/internal/service/scheduling"),
	}
}

func (v *scheduleValidator) ValidateActivity(ctx context.Context, event models.Event, draft scheduling.ActivityDraft) (scheduling.ActivityResult, error) {
	spanCtx, span := v.tracer.Start(ctx, "schedule.validate_activity", trace.WithAttributes(
		attribute.Int64("event.id", int64(event.ID)),
		attribute.Int("activity.places", len(draft.PlaceIDs)),
	))
	defer span.End()

	places, err := v.venues.ResolvePlaces(spanCtx, draft.PlaceIDs)
	if err != nil {
		span.RecordError(err)
		return scheduling.ActivityResult{}, err
	}

	result := scheduling.ValidateActivity(event, draft, places)
	v.observe("activity", result.Errors)
	span.SetAttributes(attribute.Bool("schedule.valid", result.Valid()))
	return result, nil
}

func (v *scheduleValidator) ValidateEvent(ctx context.Context, companyID uint, draft scheduling.EventDraft) (scheduling.EventResult, error) {
	spanCtx, span := v.tracer.Start(ctx, "schedule.validate_event", trace.WithAttributes(
		attribute.Int64("company.id", int64(companyID)),
	))
	defer span.End()

	var ids []uint
	if draft.PlaceID != nil {
		ids = []uint{*draft.PlaceID}
	}
	places, err := v.venues.ResolvePlaces(spanCtx, ids)
	if err != nil {
		span.RecordError(err)
		return scheduling.EventResult{}, err
	}

	result := scheduling.ValidateEvent(companyID, draft, places)
	v.observe("event", result.Errors)
	span.SetAttributes(attribute.Bool("schedule.valid", result.Valid()))
	return result, nil
}

func (v *scheduleValidator) observe(subject string, violations []scheduling.FieldError) {
	if len(violations) == 0 {
		observability.ScheduleValidations().WithLabelValues(subject, "ok").Inc()
		return
	}
	observability.ScheduleValidations().WithLabelValues(subject, "invalid").Inc()
	for _, violation := range violations {
		observability.ScheduleViolations().WithLabelValues(violation.Field).Inc()
	}
	v.logger.Debug().Str("subject", subject).Int("violations", len(violations)).Msg("schedule draft rejected")
}
