package models

import "time"

// ClubMembership represents the many-to-many relationship between users
// and clubs. Rows are hard-deleted; membership mutation always goes
// through explicit bridge-table operations, never through an in-memory
// collection on User.
type ClubMembership struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_club" json:"user_id"`
	ClubID    uint      `gorm:"not null;uniqueIndex:idx_user_club" json:"club_id"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Club Club `gorm:"foreignKey:ClubID" json:"club,omitempty"`
}
