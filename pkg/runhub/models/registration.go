package models

import "time"

// RegistrationStatus represents the lifecycle state of a registration
type RegistrationStatus string

const (
	StatusPending   RegistrationStatus = "pending"
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusCancelled RegistrationStatus = "cancelled"
)

// Registration is the join entity between a user and a race, keyed by
// the pair. It carries the lifecycle status plus an optional mark
// (finish time, position, comment, pace) that only means anything while
// the registration is confirmed. Rows are hard-deleted only as part of
// user deletion.
type Registration struct {
	UserID           uint               `gorm:"primaryKey" json:"user_id"`
	RaceID           uint               `gorm:"primaryKey" json:"race_id"`
	RegistrationDate time.Time          `json:"registration_date"`
	Status           RegistrationStatus `gorm:"type:varchar(20);not null" json:"status"`
	FinishTime       *Duration          `json:"finish_time,omitempty"`
	Position         *int               `json:"position,omitempty"`
	Comment          string             `json:"comment,omitempty"`
	Pace             *Duration          `json:"pace,omitempty"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Race Race `gorm:"foreignKey:RaceID" json:"race,omitempty"`
}
