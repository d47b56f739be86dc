package models

import "time"

// Company owns locations and, through them, places. Read-only for scheduling.
type Company struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Locations []Location `json:"locations,omitempty"`
}

// Location is a site belonging to a company.
type Location struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CompanyID uint      `gorm:"index;not null" json:"company_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Address   string    `gorm:"size:512" json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Places    []Place   `json:"places,omitempty"`
}

// Place is a physical room inside a location. A nil capacity means the room
// does not constrain headcount.
type Place struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LocationID  uint      `gorm:"index;not null" json:"location_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Capacity    *int      `json:"capacity"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Location    *Location `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"location,omitempty"`
}

// HasCapacity reports whether the place limits headcount.
func (p Place) HasCapacity() bool {
	return p.Capacity != nil
}
