package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType discriminates the payload carried by a notification.
type NotificationType string

const (
	NotificationTypeAssignmentRequest  NotificationType = "assignment_request"
	NotificationTypeAssignmentResolved NotificationType = "assignment_resolved"
	NotificationTypeGeneric            NotificationType = "generic"
)

// NotificationState only moves forward: pending -> read -> archived.
type NotificationState string

const (
	NotificationStatePending  NotificationState = "pending"
	NotificationStateRead     NotificationState = "read"
	NotificationStateArchived NotificationState = "archived"
)

// ScheduleChangeProposal is a speaker's partial edit of an activity. Its JSON
// names match the activity's mutable wire fields so applying it is a plain
// field merge. Nil fields are left untouched.
type ScheduleChangeProposal struct {
	Title       *string `json:"titulo,omitempty"`
	Description *string `json:"descripcion,omitempty"`
	Date        *string `json:"fecha_actividad,omitempty"`
	StartTime   *string `json:"hora_inicio,omitempty"`
	EndTime     *string `json:"hora_fin,omitempty"`
}

// IsEmpty reports whether the proposal changes nothing.
func (p ScheduleChangeProposal) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Date == nil && p.StartTime == nil && p.EndTime == nil
}

// NotificationPayload is stored as JSON next to the notification.
type NotificationPayload struct {
	AssignmentRequestID *uint                   `json:"assignment_request_id,omitempty"`
	SpeakerID           string                  `json:"speaker_id,omitempty"`
	ActivityID          *uint                   `json:"activity_id,omitempty"`
	Proposal            *ScheduleChangeProposal `json:"proposal,omitempty"`
	Status              AssignmentStatus        `json:"status,omitempty"`
	Comment             string                  `json:"comment,omitempty"`
}

// Notification is an inbox item addressed to a single recipient.
type Notification struct {
	ID          uint                                    `gorm:"primaryKey" json:"id"`
	RecipientID string                                  `gorm:"size:64;index;not null" json:"recipient_id"`
	Title       string                                  `gorm:"size:255;not null" json:"title"`
	Type        NotificationType                        `gorm:"size:64;not null" json:"type"`
	State       NotificationState                       `gorm:"size:16;not null;default:pending;index" json:"state"`
	Message     string                                  `gorm:"type:text" json:"message"`
	Payload     datatypes.JSONType[NotificationPayload] `json:"payload"`
	ReadAt      *time.Time                              `json:"read_at"`
	CreatedAt   time.Time                               `json:"created_at"`
	UpdatedAt   time.Time                               `json:"updated_at"`
}

// IsAssignmentRequest reports whether the notification carries an assignment request.
func (n Notification) IsAssignmentRequest() bool {
	return n.Type == NotificationTypeAssignmentRequest
}

// AssignmentStatus is the organizer's decision on a speaker's request.
type AssignmentStatus string

const (
	AssignmentStatusPending  AssignmentStatus = "pending"
	AssignmentStatusApproved AssignmentStatus = "approved"
	AssignmentStatusRejected AssignmentStatus = "rejected"
)

// AssignmentRequest links a speaker to an activity pending organizer approval.
// Once resolved it never changes again. A partial unique index keeps at most
// one pending request per speaker and activity.
type AssignmentRequest struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	SpeakerID        string           `gorm:"size:64;not null;index:idx_assignment_pair;uniqueIndex:idx_assignment_open,where:status = 'pending'" json:"speaker_id"`
	ActivityID       uint             `gorm:"not null;index:idx_assignment_pair;uniqueIndex:idx_assignment_open,where:status = 'pending'" json:"activity_id"`
	Status           AssignmentStatus `gorm:"size:16;not null;default:pending" json:"status"`
	Justification    string           `gorm:"type:text" json:"justification"`
	OrganizerComment string           `gorm:"type:text" json:"organizer_comment"`
	ResolvedBy       string           `gorm:"size:64" json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// IsResolved reports whether the organizer already decided on the request.
func (a AssignmentRequest) IsResolved() bool {
	return a.Status == AssignmentStatusApproved || a.Status == AssignmentStatusRejected
}
