package models

import (
	"time"

	"gorm.io/gorm"
)

// Race represents a race that users can register for.
// Registered is a cached count of confirmed registrations; it is only
// ever moved by the registration handlers, in the same transaction as
// the status change that crosses the confirmed boundary.
type Race struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"not null;index" json:"name"`
	Place       string         `json:"place"`
	Province    string         `json:"province"`
	Photo       string         `json:"photo"`
	URL         string         `json:"url"`
	DistanceKm  float64        `json:"distance_km"`
	Date        time.Time      `json:"date"`
	Slope       int            `json:"slope"`
	Registered  int            `gorm:"not null;default:0" json:"registered"`
	OrganizerID *uint          `json:"organizer_id,omitempty"`

	// Relationships
	Organizer *User `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
}
