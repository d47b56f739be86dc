package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventModality describes how attendees join an event.
type EventModality string

const (
	EventModalityInPerson EventModality = "Presencial"
	EventModalityVirtual  EventModality = "Virtual"
	EventModalityHybrid   EventModality = "Híbrido"
)

// NeedsRoom reports whether the modality requires a physical place.
func (m EventModality) NeedsRoom() bool {
	return m == EventModalityInPerson || m == EventModalityHybrid
}

// EventStatus tracks the event lifecycle managed by the organizer.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusFinished  EventStatus = "finished"
)

// Event is the multi-day container an organizer schedules activities in.
type Event struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	CompanyID      uint          `gorm:"index;not null" json:"company_id"`
	OrganizerID    string        `gorm:"size:64;index" json:"organizer_id"`
	Title          string        `gorm:"size:255;not null" json:"title"`
	Description    string        `gorm:"type:text" json:"description"`
	StartDate      Date          `gorm:"not null" json:"start_date"`
	EndDate        Date          `gorm:"not null" json:"end_date"`
	Modality       EventModality `gorm:"size:32;not null" json:"modality"`
	HeadcountLimit *int          `json:"headcount_limit"`
	PlaceID        *uint         `json:"place_id"`
	Status         EventStatus   `gorm:"size:32;not null;default:draft" json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Covers reports whether the given day falls within the event's range.
func (e Event) Covers(day Date) bool {
	return day.Within(e.StartDate, e.EndDate)
}

// ActivityModality describes how a single session is delivered.
type ActivityModality string

const (
	ActivityModalityInPerson ActivityModality = "presencial"
	ActivityModalityVirtual  ActivityModality = "virtual"
	ActivityModalityHybrid   ActivityModality = "hibrida"
)

// NeedsRoom reports whether the modality requires at least one place.
func (m ActivityModality) NeedsRoom() bool {
	return m == ActivityModalityInPerson || m == ActivityModalityHybrid
}

// NeedsURL reports whether the modality requires a virtual URL.
func (m ActivityModality) NeedsURL() bool {
	return m == ActivityModalityVirtual || m == ActivityModalityHybrid
}

// Activity is a scheduled session within an event. PlaceIDs is hydrated from
// the ordered activity_places join rows.
type Activity struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	EventID     uint             `gorm:"index;not null" json:"event_id"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	Date        Date             `gorm:"not null" json:"date"`
	StartTime   datatypes.Time   `gorm:"not null" json:"-"`
	EndTime     datatypes.Time   `gorm:"not null" json:"-"`
	Modality    ActivityModality `gorm:"size:32;not null" json:"modality"`
	VirtualURL  string           `gorm:"size:512" json:"virtual_url"`
	Speaker     string           `gorm:"size:255" json:"speaker"`
	Headcount   *int             `json:"headcount"`
	Version     uint             `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Event       *Event           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	PlaceIDs    []uint           `gorm:"-" json:"place_ids"`
}

// ActivityPlace joins an activity to a place, keeping the selection order.
type ActivityPlace struct {
	ActivityID uint `gorm:"primaryKey"`
	PlaceID    uint `gorm:"primaryKey;index"`
	Position   int  `gorm:"not null"`
}
