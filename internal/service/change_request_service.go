package service

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/observability"
	"github.com/noah-isme/agenda-api/internal/repository"
	"github.com/noah-isme/agenda-api/internal/scheduling"
)

//go:embed schemas/proposal.schema.json
var proposalSchemaJSON string

var proposalSchema = jsonschema.MustCompileString("proposal.schema.json", proposalSchemaJSON)

// ChangeRequestService drives a speaker's request through the organizer's
// inbox. Applying a proposal and resolving the request are separate calls:
// approving never applies the proposal and applying never approves.
type ChangeRequestService interface {
	Submit(ctx context.Context, actor Actor, payload dto.SpeakerRequestCreate) (dto.SpeakerRequestResponse, error)
	ListSubmitted(ctx context.Context, actor Actor, query dto.AssignmentListQuery) ([]dto.AssignmentRequestResponse, dto.PaginationMeta, error)
	Open(ctx context.Context, actor Actor, notificationID uint) (dto.NotificationDetailResponse, error)
	ApplyProposal(ctx context.Context, actor Actor, notificationID uint) (dto.ApplyProposalResponse, error)
	Approve(ctx context.Context, actor Actor, notificationID uint, payload dto.ResolutionRequest) (dto.AssignmentRequestResponse, error)
	Reject(ctx context.Context, actor Actor, notificationID uint, payload dto.ResolutionRequest) (dto.AssignmentRequestResponse, error)
	Archive(ctx context.Context, actor Actor, notificationID uint) (dto.NotificationResponse, error)
	Delete(ctx context.Context, actor Actor, notificationID uint) error
}

type changeRequestService struct {
	notifications repository.NotificationRepository
	assignments   repository.AssignmentRepository
	events        repository.EventRepository
	schedule      ScheduleValidator
	notifier      NotificationService
	publisher     EventPublisher
	audit         AuditRecorder
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	timeout       time.Duration
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewChangeRequestService constructs the workflow. notifier and publisher may
// be nil, in which case the matching side effect is skipped.
func NewChangeRequestService(
	notifications repository.NotificationRepository,
	assignments repository.AssignmentRepository,
	events repository.EventRepository,
	schedule ScheduleValidator,
	notifier NotificationService,
	publisher EventPublisher,
	audit AuditRecorder,
	validate *validator.Validate,
	timeout time.Duration,
	logger zerolog.Logger,
) ChangeRequestService {
	return &changeRequestService{
		notifications: notifications,
		assignments:   assignments,
		events:        events,
		schedule:      schedule,
		notifier:      notifier,
		publisher:     publisher,
		audit:         audit,
		validator:     validate,
		sanitizer:     bluemonday.StrictPolicy(),
		timeout:       timeout,
		logger:        logger.With().Str("component", "change_request_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/agenda-api/internal/service/change_request"),
		now:           time.Now,
	}
}

func (s *changeRequestService) Submit(ctx context.Context, actor Actor, payload dto.SpeakerRequestCreate) (dto.SpeakerRequestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SpeakerRequestResponse{}, err
	}
	speakerID := strings.TrimSpace(actor.ID)
	if speakerID == "" {
		return dto.SpeakerRequestResponse{}, ErrActorRequired
	}

	proposal, err := s.parseProposal(payload.Proposal)
	if err != nil {
		return dto.SpeakerRequestResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "change_request.submit", trace.WithAttributes(
		attribute.String("speaker.id", speakerID),
		attribute.Int64("activity.id", int64(payload.ActivityID)),
	))
	defer span.End()

	activity, err := s.loadActivity(spanCtx, payload.ActivityID)
	if err != nil {
		return dto.SpeakerRequestResponse{}, err
	}
	event, err := s.loadEvent(spanCtx, activity.EventID)
	if err != nil {
		return dto.SpeakerRequestResponse{}, err
	}
	if strings.TrimSpace(event.OrganizerID) == "" {
		s.logger.Warn().Uint("event_id", event.ID).Uint("activity_id", activity.ID).Msg("request has no organizer to notify")
		return dto.SpeakerRequestResponse{}, ErrEventWithoutOrganizer
	}

	request := models.AssignmentRequest{
		SpeakerID:     speakerID,
		ActivityID:    activity.ID,
		Status:        models.AssignmentStatusPending,
		Justification: s.clean(payload.Justification),
	}

	title := "Solicitud de asignación"
	message := fmt.Sprintf("El ponente %s solicita la actividad \"%s\"", speakerID, activity.Title)
	if proposal != nil {
		title = "Solicitud de cambio de agenda"
		message = fmt.Sprintf("El ponente %s propone cambios para la actividad \"%s\"", speakerID, activity.Title)
	}
	activityID := activity.ID
	notification := models.Notification{
		RecipientID: event.OrganizerID,
		Title:       title,
		Type:        models.NotificationTypeAssignmentRequest,
		State:       models.NotificationStatePending,
		Message:     message,
		Payload: datatypes.NewJSONType(models.NotificationPayload{
			SpeakerID:  speakerID,
			ActivityID: &activityID,
			Proposal:   proposal,
		}),
	}

	storeCtx, cancel := withStoreTimeout(spanCtx, s.timeout)
	defer cancel()

	if err := s.assignments.Create(storeCtx, &request, &notification); err != nil {
		span.RecordError(err)
		mapped := storeError(err, "assignment request")
		s.observe("submit", mapped)
		return dto.SpeakerRequestResponse{}, mapped
	}
	s.observe("submit", nil)

	if s.notifier != nil {
		s.notifier.Deliver(spanCtx, notification)
	}

	s.logger.Info().
		Uint("assignment_id", request.ID).
		Uint("notification_id", notification.ID).
		Str("speaker_id", speakerID).
		Bool("has_proposal", proposal != nil).
		Msg("assignment request submitted")
	recordAudit(spanCtx, s.audit, s.logger, AuditEntry{
		Actor:      actor,
		Action:     "assignment.submitted",
		EntityType: "assignment_request",
		EntityID:   uintPtr(request.ID),
		Metadata: map[string]interface{}{
			"activity_id":     activity.ID,
			"notification_id": notification.ID,
		},
	})

	return dto.SpeakerRequestResponse{
		Assignment:     dto.NewAssignmentRequestResponse(request),
		NotificationID: notification.ID,
	}, nil
}

func (s *changeRequestService) ListSubmitted(ctx context.Context, actor Actor, query dto.AssignmentListQuery) ([]dto.AssignmentRequestResponse, dto.PaginationMeta, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, dto.PaginationMeta{}, err
	}
	speakerID := strings.TrimSpace(actor.ID)
	if speakerID == "" {
		return nil, dto.PaginationMeta{}, ErrActorRequired
	}
	page := maxInt(query.Page, 1)
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	filter := repository.AssignmentFilter{
		SpeakerID:  speakerID,
		ActivityID: query.ActivityID,
		Status:     models.AssignmentStatus(query.Status),
		Sort:       query.Sort,
		Page:       page,
		PageSize:   pageSize,
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	type listing struct {
		items []models.AssignmentRequest
		total int64
	}
	result, err := retryRead(ctx, "assignment requests", func(ctx context.Context) (listing, error) {
		items, total, err := s.assignments.ListWithFilter(ctx, filter)
		return listing{items: items, total: total}, err
	})
	if err != nil {
		return nil, dto.PaginationMeta{}, err
	}

	responses := make([]dto.AssignmentRequestResponse, 0, len(result.items))
	for _, item := range result.items {
		responses = append(responses, dto.NewAssignmentRequestResponse(item))
	}
	meta := dto.PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: result.total,
		TotalPages: int(math.Ceil(float64(result.total) / float64(pageSize))),
	}
	return responses, meta, nil
}

// Open moves a pending notification to read and returns it together with the
// request and proposal it carries.
func (s *changeRequestService) Open(ctx context.Context, actor Actor, notificationID uint) (dto.NotificationDetailResponse, error) {
	notification, err := s.loadNotification(ctx, actor, notificationID)
	if err != nil {
		return dto.NotificationDetailResponse{}, err
	}

	if notification.State == models.NotificationStatePending {
		now := s.now().UTC()
		storeCtx, cancel := withStoreTimeout(ctx, s.timeout)
		moved, err := s.notifications.MarkRead(storeCtx, notification.ID, now)
		cancel()
		if err != nil {
			return dto.NotificationDetailResponse{}, storeError(err, "notification")
		}
		if moved {
			notification.State = models.NotificationStateRead
			notification.ReadAt = &now
			s.observe("open", nil)
			recordAudit(ctx, s.audit, s.logger, AuditEntry{
				Actor:      actor,
				Action:     "notification.read",
				EntityType: "notification",
				EntityID:   uintPtr(notification.ID),
			})
		} else if notification, err = s.loadNotification(ctx, actor, notificationID); err != nil {
			return dto.NotificationDetailResponse{}, err
		}
	}

	detail := dto.NotificationDetailResponse{Notification: dto.NewNotificationResponse(notification)}
	if !notification.IsAssignmentRequest() {
		return detail, nil
	}

	payload := notification.Payload.Data()
	request, err := s.findAssignment(ctx, payload)
	switch {
	case err == nil:
		response := dto.NewAssignmentRequestResponse(request)
		detail.Assignment = &response
	case !errors.Is(err, ErrNotFound):
		return dto.NotificationDetailResponse{}, err
	}
	if payload.Proposal != nil && !payload.Proposal.IsEmpty() {
		detail.Proposal = payload.Proposal
	}
	return detail, nil
}

// ApplyProposal merges the proposal into the activity as it is stored right
// now and persists it if the result still satisfies every scheduling rule.
// Re-applying an already applied proposal succeeds without writing.
func (s *changeRequestService) ApplyProposal(ctx context.Context, actor Actor, notificationID uint) (dto.ApplyProposalResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "change_request.apply", trace.WithAttributes(
		attribute.Int64("notification.id", int64(notificationID)),
	))
	defer span.End()

	notification, err := s.loadNotification(spanCtx, actor, notificationID)
	if err != nil {
		return dto.ApplyProposalResponse{}, err
	}
	if !notification.IsAssignmentRequest() {
		return dto.ApplyProposalResponse{}, ErrNotAssignmentRequest
	}
	payload := notification.Payload.Data()
	if payload.Proposal == nil || payload.Proposal.IsEmpty() {
		return dto.ApplyProposalResponse{}, ErrProposalMissing
	}

	activityID, err := s.targetActivity(spanCtx, payload)
	if err != nil {
		return dto.ApplyProposalResponse{}, err
	}
	activity, err := s.loadActivity(spanCtx, activityID)
	if err != nil {
		return dto.ApplyProposalResponse{}, err
	}
	event, err := s.loadEvent(spanCtx, activity.EventID)
	if err != nil {
		return dto.ApplyProposalResponse{}, err
	}

	result, err := s.schedule.ValidateActivity(spanCtx, event, scheduling.DraftFromActivity(activity).Merge(*payload.Proposal))
	if err != nil {
		span.RecordError(err)
		return dto.ApplyProposalResponse{}, err
	}
	if !result.Valid() {
		verr := newValidationError(result.Errors)
		verr.conflict = venueViolation(result.Errors)
		s.observe("apply", verr)
		return dto.ApplyProposalResponse{}, verr
	}

	updated := activity
	result.Activity.Apply(&updated)
	if sameSchedule(activity, updated) {
		s.observe("apply", nil)
		return dto.ApplyProposalResponse{NotificationID: notification.ID, Activity: dto.NewActivityResponse(activity)}, nil
	}

	storeCtx, cancel := withStoreTimeout(spanCtx, s.timeout)
	defer cancel()

	if err := s.events.UpdateActivity(storeCtx, &updated); err != nil {
		span.RecordError(err)
		mapped := storeError(err, "activity")
		s.observe("apply", mapped)
		return dto.ApplyProposalResponse{}, mapped
	}
	s.observe("apply", nil)

	s.logger.Info().
		Uint("notification_id", notification.ID).
		Uint("activity_id", updated.ID).
		Uint("version", updated.Version).
		Msg("schedule change proposal applied")
	recordAudit(spanCtx, s.audit, s.logger, AuditEntry{
		Actor:      actor,
		Action:     "activity.proposal_applied",
		EntityType: "activity",
		EntityID:   uintPtr(updated.ID),
		Metadata: map[string]interface{}{
			"notification_id": notification.ID,
			"version":         updated.Version,
		},
	})

	return dto.ApplyProposalResponse{NotificationID: notification.ID, Activity: dto.NewActivityResponse(updated)}, nil
}

func (s *changeRequestService) Approve(ctx context.Context, actor Actor, notificationID uint, payload dto.ResolutionRequest) (dto.AssignmentRequestResponse, error) {
	return s.resolve(ctx, actor, notificationID, models.AssignmentStatusApproved, payload)
}

func (s *changeRequestService) Reject(ctx context.Context, actor Actor, notificationID uint, payload dto.ResolutionRequest) (dto.AssignmentRequestResponse, error) {
	return s.resolve(ctx, actor, notificationID, models.AssignmentStatusRejected, payload)
}

// resolve decides the request with a compare-and-set on its pending status,
// so of two concurrent decisions exactly one wins.
func (s *changeRequestService) resolve(ctx context.Context, actor Actor, notificationID uint, status models.AssignmentStatus, payload dto.ResolutionRequest) (dto.AssignmentRequestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentRequestResponse{}, err
	}
	action := "approve"
	if status == models.AssignmentStatusRejected {
		action = "reject"
	}

	spanCtx, span := s.tracer.Start(ctx, "change_request."+action, trace.WithAttributes(
		attribute.Int64("notification.id", int64(notificationID)),
	))
	defer span.End()

	notification, err := s.loadNotification(spanCtx, actor, notificationID)
	if err != nil {
		return dto.AssignmentRequestResponse{}, err
	}
	if !notification.IsAssignmentRequest() {
		return dto.AssignmentRequestResponse{}, ErrNotAssignmentRequest
	}
	request, err := s.findAssignment(spanCtx, notification.Payload.Data())
	if err != nil {
		return dto.AssignmentRequestResponse{}, err
	}
	if request.IsResolved() {
		s.observe(action, ErrAssignmentAlreadyResolved)
		s.logger.Warn().Uint("assignment_id", request.ID).Str("status", string(request.Status)).Str("action", action).Msg("assignment request already resolved")
		return dto.AssignmentRequestResponse{}, ErrAssignmentAlreadyResolved
	}

	comment := s.clean(payload.Comment)
	resolvedAt := s.now().UTC()

	storeCtx, cancel := withStoreTimeout(spanCtx, s.timeout)
	moved, err := s.assignments.TransitionStatus(storeCtx, request.ID, status, comment, actor.ID, resolvedAt)
	cancel()
	if err != nil {
		span.RecordError(err)
		mapped := storeError(err, "assignment request")
		s.observe(action, mapped)
		return dto.AssignmentRequestResponse{}, mapped
	}
	if !moved {
		s.observe(action, ErrAssignmentAlreadyResolved)
		s.logger.Warn().Uint("assignment_id", request.ID).Str("action", action).Msg("assignment request already resolved")
		return dto.AssignmentRequestResponse{}, ErrAssignmentAlreadyResolved
	}
	s.observe(action, nil)

	request.Status = status
	request.OrganizerComment = comment
	request.ResolvedBy = actor.ID
	request.ResolvedAt = &resolvedAt

	s.logger.Info().
		Uint("assignment_id", request.ID).
		Uint("notification_id", notification.ID).
		Str("status", string(status)).
		Msg("assignment request resolved")
	recordAudit(spanCtx, s.audit, s.logger, AuditEntry{
		Actor:      actor,
		Action:     "assignment." + string(status),
		EntityType: "assignment_request",
		EntityID:   uintPtr(request.ID),
		Metadata: map[string]interface{}{
			"notification_id": notification.ID,
			"activity_id":     request.ActivityID,
		},
	})

	s.announceResolution(spanCtx, notification, request)

	return dto.NewAssignmentRequestResponse(request), nil
}

// announceResolution emits the outbound event and tells the speaker. The
// decision is already stored, so failures here are logged and swallowed.
func (s *changeRequestService) announceResolution(ctx context.Context, notification models.Notification, request models.AssignmentRequest) {
	if s.publisher != nil {
		event := AssignmentResolvedEvent{
			AssignmentRequestID: request.ID,
			NotificationID:      notification.ID,
			SpeakerID:           request.SpeakerID,
			ActivityID:          request.ActivityID,
			Status:              request.Status,
			Comment:             request.OrganizerComment,
			ResolvedBy:          request.ResolvedBy,
			ResolvedAt:          *request.ResolvedAt,
		}
		if err := s.publisher.PublishResolution(ctx, event); err != nil {
			s.logger.Warn().Err(err).Uint("assignment_id", request.ID).Msg("failed to emit assignment resolution")
		}
	}

	if s.notifier == nil {
		return
	}
	title := "Solicitud aprobada"
	if request.Status == models.AssignmentStatusRejected {
		title = "Solicitud rechazada"
	}
	activityID := request.ActivityID
	speakerNotice := models.Notification{
		RecipientID: request.SpeakerID,
		Title:       title,
		Type:        models.NotificationTypeAssignmentResolved,
		Message:     request.OrganizerComment,
		Payload: datatypes.NewJSONType(models.NotificationPayload{
			AssignmentRequestID: uintPtr(request.ID),
			SpeakerID:           request.SpeakerID,
			ActivityID:          &activityID,
			Status:              request.Status,
			Comment:             request.OrganizerComment,
		}),
	}
	if err := s.notifier.Publish(ctx, &speakerNotice); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", request.ID).Msg("failed to notify speaker")
	}
}

// Archive moves a pending or read notification to archived. Archiving twice
// returns the archived notification.
func (s *changeRequestService) Archive(ctx context.Context, actor Actor, notificationID uint) (dto.NotificationResponse, error) {
	notification, err := s.loadNotification(ctx, actor, notificationID)
	if err != nil {
		return dto.NotificationResponse{}, err
	}
	if notification.State == models.NotificationStateArchived {
		return dto.NewNotificationResponse(notification), nil
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.timeout)
	moved, err := s.notifications.Archive(storeCtx, notification.ID)
	cancel()
	if err != nil {
		return dto.NotificationResponse{}, storeError(err, "notification")
	}
	if !moved {
		if notification, err = s.loadNotification(ctx, actor, notificationID); err != nil {
			return dto.NotificationResponse{}, err
		}
		return dto.NewNotificationResponse(notification), nil
	}

	notification.State = models.NotificationStateArchived
	s.observe("archive", nil)
	recordAudit(ctx, s.audit, s.logger, AuditEntry{
		Actor:      actor,
		Action:     "notification.archived",
		EntityType: "notification",
		EntityID:   uintPtr(notification.ID),
	})
	return dto.NewNotificationResponse(notification), nil
}

// Delete removes the notification whatever its state. The assignment request
// it points at is kept.
func (s *changeRequestService) Delete(ctx context.Context, actor Actor, notificationID uint) error {
	notification, err := s.loadNotification(ctx, actor, notificationID)
	if err != nil {
		return err
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.notifications.Delete(storeCtx, notification.ID); err != nil {
		mapped := storeError(err, "notification")
		s.observe("delete", mapped)
		return mapped
	}
	s.observe("delete", nil)

	s.logger.Info().Uint("notification_id", notification.ID).Str("state", string(notification.State)).Msg("notification deleted")
	recordAudit(ctx, s.audit, s.logger, AuditEntry{
		Actor:      actor,
		Action:     "notification.deleted",
		EntityType: "notification",
		EntityID:   uintPtr(notification.ID),
		Metadata:   map[string]interface{}{"state": string(notification.State)},
	})
	return nil
}

func (s *changeRequestService) parseProposal(raw json.RawMessage) (*models.ScheduleChangeProposal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var document interface{}
	if err := json.Unmarshal(trimmed, &document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProposal, err)
	}
	if err := proposalSchema.Validate(document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProposal, err)
	}

	var proposal models.ScheduleChangeProposal
	if err := json.Unmarshal(trimmed, &proposal); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProposal, err)
	}
	for _, field := range []*string{proposal.Title, proposal.Description} {
		if field != nil {
			*field = s.clean(*field)
		}
	}
	if proposal.IsEmpty() {
		return nil, nil
	}
	return &proposal, nil
}

func (s *changeRequestService) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

// loadNotification reads the notification and checks the actor may act on it.
func (s *changeRequestService) loadNotification(ctx context.Context, actor Actor, id uint) (models.Notification, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	notification, err := retryRead(ctx, "notification", func(ctx context.Context) (models.Notification, error) {
		return s.notifications.FindByID(ctx, id)
	})
	if err != nil {
		return models.Notification{}, err
	}
	if !actor.IsAdmin() && notification.RecipientID != strings.TrimSpace(actor.ID) {
		return models.Notification{}, ErrForbidden
	}
	return notification, nil
}

// findAssignment follows the payload's request id, falling back to the
// (speaker, activity) pair for payloads written without one.
func (s *changeRequestService) findAssignment(ctx context.Context, payload models.NotificationPayload) (models.AssignmentRequest, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	if payload.AssignmentRequestID != nil {
		return retryRead(ctx, "assignment request", func(ctx context.Context) (models.AssignmentRequest, error) {
			return s.assignments.GetByID(ctx, *payload.AssignmentRequestID)
		})
	}
	if payload.ActivityID == nil || payload.SpeakerID == "" {
		return models.AssignmentRequest{}, fmt.Errorf("assignment request: %w", ErrNotFound)
	}
	return retryRead(ctx, "assignment request", func(ctx context.Context) (models.AssignmentRequest, error) {
		return s.assignments.FindByPair(ctx, payload.SpeakerID, *payload.ActivityID)
	})
}

func (s *changeRequestService) targetActivity(ctx context.Context, payload models.NotificationPayload) (uint, error) {
	if payload.ActivityID != nil {
		return *payload.ActivityID, nil
	}
	request, err := s.findAssignment(ctx, payload)
	if err != nil {
		return 0, err
	}
	return request.ActivityID, nil
}

func (s *changeRequestService) loadActivity(ctx context.Context, id uint) (models.Activity, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	return retryRead(ctx, "activity", func(ctx context.Context) (models.Activity, error) {
		return s.events.GetActivity(ctx, id)
	})
}

func (s *changeRequestService) loadEvent(ctx context.Context, id uint) (models.Event, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	return retryRead(ctx, "event", func(ctx context.Context) (models.Event, error) {
		return s.events.GetEvent(ctx, id)
	})
}

func (s *changeRequestService) observe(action string, err error) {
	outcome := "ok"
	var verr *ValidationError
	switch {
	case err == nil:
	case errors.Is(err, ErrConflict):
		outcome = "conflict"
	case errors.As(err, &verr):
		outcome = "invalid"
	case errors.Is(err, ErrTransport):
		outcome = "transport"
	default:
		outcome = "error"
	}
	observability.WorkflowTransitions().WithLabelValues(action, outcome).Inc()
}

// sameSchedule reports whether two versions of an activity hold the same values.
func sameSchedule(a, b models.Activity) bool {
	return a.Title == b.Title &&
		a.Description == b.Description &&
		a.Date == b.Date &&
		a.StartTime == b.StartTime &&
		a.EndTime == b.EndTime &&
		a.Modality == b.Modality &&
		a.VirtualURL == b.VirtualURL &&
		a.Speaker == b.Speaker &&
		sameHeadcount(a.Headcount, b.Headcount) &&
		slices.Equal(a.PlaceIDs, b.PlaceIDs)
}

func sameHeadcount(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
