package models

import (
	"time"

	"gorm.io/plugin/soft_delete"
)

// Role represents a user's system-wide role
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizator"
	RoleClubAdmin Role = "club-administrator"
	RoleUser      Role = "user"
)

// User represents a user in the system.
// UID is the external identity provider's id for this user and never
// changes; the numeric ID is purely local. Deletion is a soft delete so
// the reassignment ledger can still resolve a former owner's email.
// DeletedAt is a milli timestamp (0 = live) rather than a nullable
// column so it can take part in the unique index: email uniqueness is
// enforced among live rows only, and a deleted user's email can be
// registered again.
type User struct {
	ID           uint                  `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	DeletedAt    soft_delete.DeletedAt `gorm:"softDelete:milli;uniqueIndex:udx_users_email" json:"-"`
	UID          string                `gorm:"index;not null" json:"uid"`
	Email        string                `gorm:"uniqueIndex:udx_users_email;not null" json:"email"`
	PasswordHash string                `json:"-"`
	Name         string                `gorm:"not null" json:"name"`
	Surname      string                `json:"surname"`
	Role         Role                  `gorm:"type:varchar(30);default:'user'" json:"role"`

	// Relationships
	ClubMemberships []ClubMembership `gorm:"foreignKey:UserID" json:"club_memberships,omitempty"`
	Registrations   []Registration   `gorm:"foreignKey:UserID" json:"registrations,omitempty"`
}
