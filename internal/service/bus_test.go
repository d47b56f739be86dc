package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/dto"
	"github.com/noah-isme/agenda-api/internal/models"
)

func TestNewBusTransportsPicksConfiguredClients(t *testing.T) {
	require.Empty(t, newBusTransports(nil, nil, "agenda"))

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	transports := newBusTransports(client, nil, "")
	require.Len(t, transports, 1)
	require.Equal(t, "redis", transports[0].name())
	require.Equal(t, "agenda:notifications", transports[0].(*redisBus).channel(notificationsTopic))

	subjects := &natsBus{prefix: "agenda"}
	require.Equal(t, "agenda.assignment.resolved", subjects.subject(AssignmentResolvedTopic))
}

func TestBrokerPublisherEmitsResolutionOnRedis(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan []byte, 1)
	bus := &redisBus{client: client, prefix: "congreso"}
	require.NoError(t, bus.listen(ctx, AssignmentResolvedTopic, "", func(payload []byte) {
		received <- payload
	}))

	publisher := NewBrokerPublisher(client, nil, "congreso")
	require.NoError(t, publisher.PublishResolution(ctx, AssignmentResolvedEvent{
		AssignmentRequestID: 3,
		SpeakerID:           "42",
		Status:              models.AssignmentStatusApproved,
	}))

	select {
	case payload := <-received:
		var event AssignmentResolvedEvent
		require.NoError(t, json.Unmarshal(payload, &event))
		require.NotEmpty(t, event.ID)
		require.Equal(t, AssignmentResolvedTopic, event.Type)
		require.Equal(t, uint(3), event.AssignmentRequestID)
		require.Equal(t, models.AssignmentStatusApproved, event.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("resolution event not published")
	}
}

func TestBrokerPublisherReportsTransportFailure(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	server.Close()

	err := NewBrokerPublisher(client, nil, "agenda").PublishResolution(context.Background(), AssignmentResolvedEvent{})
	require.Error(t, err)
}

func TestInboxHubSkipsFullStreams(t *testing.T) {
	hub := newInboxHub()
	stream := hub.open("7")

	for i := 0; i < inboxBufferSize; i++ {
		require.Zero(t, hub.push(dto.NotificationResponse{ID: uint(i + 1), RecipientID: "7"}))
	}
	require.Equal(t, 1, hub.push(dto.NotificationResponse{ID: 99, RecipientID: "7"}))
	require.Zero(t, hub.push(dto.NotificationResponse{ID: 100, RecipientID: "8"}))

	hub.close("7", stream)
	hub.close("7", stream)
	require.Len(t, stream, inboxBufferSize)
}
