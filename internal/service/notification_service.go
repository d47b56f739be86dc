package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/observability"
	"github.com/noah-isme/agenda-api/internal/repository"
)

const (
	notificationsTopic = "notifications"
	replayLimit        = 100
)

// NotificationService stores inbox items and streams them to connected
// recipients. Other nodes are reached through Redis pub/sub or NATS.
type NotificationService interface {
	Publish(ctx context.Context, notification *models.Notification) error
	Deliver(ctx context.Context, notification models.Notification)
	List(ctx context.Context, actor Actor, query dto.NotificationListQuery) ([]dto.NotificationResponse, error)
	Replay(ctx context.Context, recipientID string, afterID uint) ([]dto.NotificationResponse, error)
	Subscribe(recipientID string) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo       repository.NotificationRepository
	transports []busTransport
	validator  *validator.Validate
	timeout    time.Duration
	logger     zerolog.Logger
	tracer     trace.Tracer
	inbox      *inboxHub
	nodeID     string
}

// inboxEnvelope is what travels between nodes.
type inboxEnvelope struct {
	Node         string                   `json:"node"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

// NewNotificationService constructs a notification service. Both clients may
// be nil, in which case delivery stays local to this node. An empty
// channelBase disables cross-node fan-out.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, timeout time.Duration, logger zerolog.Logger) NotificationService {
	var transports []busTransport
	if strings.TrimSpace(channelBase) != "" {
		transports = newBusTransports(redisClient, natsConn, channelBase)
	}

	return &notificationService{
		repo:       repo,
		transports: transports,
		validator:  validate,
		timeout:    timeout,
		logger:     logger.With().Str("component", "notification_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/agenda-api/internal/service/notification"),
		inbox:      newInboxHub(),
		nodeID:     uuid.NewString(),
	}
}

// Start subscribes to the fan-out topic on every transport. Each node listens
// on its own queue group so that all of them see every event.
func (s *notificationService) Start(ctx context.Context) {
	group := "agenda-inbox-" + s.nodeID
	for _, transport := range s.transports {
		if err := transport.listen(ctx, notificationsTopic, group, s.receive); err != nil {
			s.logger.Error().Err(err).Str("transport", transport.name()).Msg("notification fan-out unavailable")
		}
	}
}

// Publish stores the notification and pushes it to the recipient's live inbox.
func (s *notificationService) Publish(ctx context.Context, notification *models.Notification) error {
	if strings.TrimSpace(notification.RecipientID) == "" {
		return errors.New("notification recipient is required")
	}
	if notification.Type == "" {
		notification.Type = models.NotificationTypeGeneric
	}

	ctx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(
		attribute.String("notification.recipient_id", notification.RecipientID),
		attribute.String("notification.type", string(notification.Type)),
	))
	defer span.End()

	storeCtx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.Create(storeCtx, notification); err != nil {
		span.RecordError(err)
		return storeError(err, "notification")
	}

	s.Deliver(ctx, *notification)
	return nil
}

// Deliver pushes an already stored notification to live streams here and on
// other nodes. Fan-out failures are logged only.
func (s *notificationService) Deliver(ctx context.Context, notification models.Notification) {
	item := dto.NewNotificationResponse(notification)
	s.pushLocal(item)

	if len(s.transports) == 0 {
		return
	}
	payload, err := json.Marshal(inboxEnvelope{Node: s.nodeID, Notification: item, SentAt: time.Now().UTC()})
	if err == nil {
		err = publishAll(ctx, s.transports, notificationsTopic, payload)
	}
	if err != nil {
		s.logger.Warn().Err(err).Uint("notification_id", notification.ID).Msg("notification fan-out failed")
	}
}

func (s *notificationService) List(ctx context.Context, actor Actor, query dto.NotificationListQuery) ([]dto.NotificationResponse, error) {
	if strings.TrimSpace(actor.ID) == "" {
		return nil, errors.New("user id is required")
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	filter := repository.NotificationFilter{
		State:  models.NotificationState(query.State),
		Type:   models.NotificationType(query.Type),
		Limit:  query.Limit,
		Offset: query.Offset,
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	notifications, err := retryRead(ctx, "notifications", func(ctx context.Context) ([]models.Notification, error) {
		return s.repo.ListByRecipient(ctx, actor.ID, filter)
	})
	if err != nil {
		return nil, err
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

// Replay returns the recipient's notifications created after afterID, oldest
// first, so a reconnecting stream can catch up.
func (s *notificationService) Replay(ctx context.Context, recipientID string, afterID uint) ([]dto.NotificationResponse, error) {
	if afterID == 0 {
		return nil, nil
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	missed, err := retryRead(ctx, "notifications", func(ctx context.Context) ([]models.Notification, error) {
		return s.repo.ListByRecipient(ctx, recipientID, repository.NotificationFilter{AfterID: afterID, Limit: replayLimit})
	})
	if err != nil {
		return nil, err
	}
	return dto.NewNotificationResponseSlice(missed), nil
}

// Subscribe opens a live stream for the recipient. The returned func closes
// it and may be called more than once.
func (s *notificationService) Subscribe(recipientID string) (<-chan dto.NotificationResponse, func()) {
	stream := s.inbox.open(recipientID)
	observability.SSEClientsActive().Inc()

	var once sync.Once
	return stream, func() {
		once.Do(func() {
			s.inbox.close(recipientID, stream)
			observability.SSEClientsActive().Dec()
		})
	}
}

func (s *notificationService) pushLocal(item dto.NotificationResponse) {
	observability.NotificationsPublishedTotal().WithLabelValues(item.Type).Inc()
	if skipped := s.inbox.push(item); skipped > 0 {
		s.logger.Warn().Str("recipient_id", item.RecipientID).Int("streams", skipped).Msg("slow inbox stream skipped a notification")
	}
}

func (s *notificationService) receive(payload []byte) {
	var envelope inboxEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification fan-out payload")
		return
	}
	if envelope.Node == s.nodeID {
		return
	}

	item := envelope.Notification
	if item.Type == "" {
		item.Type = string(models.NotificationTypeGeneric)
	}
	s.pushLocal(item)
}
