package models

import (
	"time"

	"gorm.io/gorm"
)

// Club represents a running club.
// Members is a cached membership count maintained alongside the
// ClubMembership bridge rows. The manager ownership edge is independent
// of membership.
type Club struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
	Province  string         `json:"province"`
	Place     string         `json:"place"`
	Photo     string         `json:"photo"`
	Members   int            `gorm:"not null;default:0" json:"members"`
	ManagerID *uint          `json:"manager_id,omitempty"`

	// Relationships
	Manager *User `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
}
