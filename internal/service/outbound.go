package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/agenda-api/internal/models"
)

// AssignmentResolvedTopic names the outbound event emitted after approve/reject.
const AssignmentResolvedTopic = "assignment.resolved"

// AssignmentResolvedEvent tells downstream collaborators a request was decided.
type AssignmentResolvedEvent struct {
	ID                  string                  `json:"id"`
	Type                string                  `json:"type"`
	AssignmentRequestID uint                    `json:"assignment_request_id"`
	NotificationID      uint                    `json:"notification_id"`
	SpeakerID           string                  `json:"speaker_id"`
	ActivityID          uint                    `json:"activity_id"`
	Status              models.AssignmentStatus `json:"status"`
	Comment             string                  `json:"comment,omitempty"`
	ResolvedBy          string                  `json:"resolved_by"`
	ResolvedAt          time.Time               `json:"resolved_at"`
}

// EventPublisher emits domain events to the outside world.
type EventPublisher interface {
	PublishResolution(ctx context.Context, event AssignmentResolvedEvent) error
}

type brokerPublisher struct {
	transports []busTransport
}

// NewBrokerPublisher emits events on Redis and NATS, whichever are configured.
// Redis receives them on "<base>:assignment.resolved", NATS on
// "<base>.assignment.resolved".
func NewBrokerPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string) EventPublisher {
	return &brokerPublisher{transports: newBusTransports(redisClient, natsConn, channelBase)}
}

func (p *brokerPublisher) PublishResolution(ctx context.Context, event AssignmentResolvedEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.Type = AssignmentResolvedTopic

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return publishAll(ctx, p.transports, AssignmentResolvedTopic, payload)
}
