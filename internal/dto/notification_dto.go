package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/agenda-api/internal/models"
)

// NotificationListQuery filters a recipient's inbox.
type NotificationListQuery struct {
	State  string `query:"state" validate:"omitempty,oneof=pending read archived"`
	Type   string `query:"type" validate:"omitempty,oneof=assignment_request assignment_resolved generic"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

// AssignmentListQuery filters and pages the requests a speaker has filed.
type AssignmentListQuery struct {
	Status     string `query:"status" validate:"omitempty,oneof=pending approved rejected"`
	ActivityID *uint  `query:"activity_id" validate:"omitempty,min=1"`
	Sort       string `query:"sort" validate:"omitempty,oneof=created_at -created_at status -status"`
	Page       int    `query:"page" validate:"omitempty,min=1"`
	PageSize   int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// NotificationResponse represents an inbox item returned to clients.
type NotificationResponse struct {
	ID          uint                       `json:"id"`
	RecipientID string                     `json:"recipient_id"`
	Title       string                     `json:"title"`
	Type        string                     `json:"type"`
	State       string                     `json:"state"`
	Message     string                     `json:"message"`
	Payload     models.NotificationPayload `json:"payload"`
	ReadAt      *time.Time                 `json:"read_at,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          model.ID,
		RecipientID: model.RecipientID,
		Title:       model.Title,
		Type:        string(model.Type),
		State:       string(model.State),
		Message:     model.Message,
		Payload:     model.Payload.Data(),
		ReadAt:      model.ReadAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

// AssignmentRequestResponse represents a speaker's request.
type AssignmentRequestResponse struct {
	ID               uint       `json:"id"`
	SpeakerID        string     `json:"speaker_id"`
	ActivityID       uint       `json:"activity_id"`
	Status           string     `json:"status"`
	Justification    string     `json:"justificacion"`
	OrganizerComment string     `json:"comentario"`
	ResolvedBy       string     `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NewAssignmentRequestResponse converts an assignment request model to DTO.
func NewAssignmentRequestResponse(model models.AssignmentRequest) AssignmentRequestResponse {
	return AssignmentRequestResponse{
		ID:               model.ID,
		SpeakerID:        model.SpeakerID,
		ActivityID:       model.ActivityID,
		Status:           string(model.Status),
		Justification:    model.Justification,
		OrganizerComment: model.OrganizerComment,
		ResolvedBy:       model.ResolvedBy,
		ResolvedAt:       model.ResolvedAt,
		CreatedAt:        model.CreatedAt,
	}
}

// NotificationDetailResponse is what an organizer sees after opening an item.
type NotificationDetailResponse struct {
	Notification NotificationResponse           `json:"notification"`
	Assignment   *AssignmentRequestResponse     `json:"assignment,omitempty"`
	Proposal     *models.ScheduleChangeProposal `json:"proposal,omitempty"`
}

// ResolutionRequest carries the organizer's optional comment.
type ResolutionRequest struct {
	Comment string `json:"comentario" validate:"max=2000"`
}

// ApplyProposalResponse returns the activity after the proposal was merged.
type ApplyProposalResponse struct {
	NotificationID uint             `json:"notification_id"`
	Activity       ActivityResponse `json:"activity"`
}

// SpeakerRequestCreate is filed by a speaker who wants a schedule change.
// Proposal is kept raw so its shape can be checked against the schema.
type SpeakerRequestCreate struct {
	ActivityID    uint            `json:"activity_id" validate:"required"`
	Justification string          `json:"justificacion" validate:"max=2000"`
	Proposal      json.RawMessage `json:"propuesta"`
}

// SpeakerRequestResponse acknowledges a filed request.
type SpeakerRequestResponse struct {
	Assignment     AssignmentRequestResponse `json:"assignment"`
	NotificationID uint                      `json:"notification_id"`
}
