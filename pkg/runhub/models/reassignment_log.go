package models

import "time"

// ReassignmentEntityType identifies what kind of entity a log row is about
type ReassignmentEntityType string

const (
	EntityTypeRace ReassignmentEntityType = "RACE"
	EntityTypeClub ReassignmentEntityType = "CLUB"
)

// ReassignmentLog is one append-only ledger row recording that ownership
// of an entity moved from one user to another. Rows are never updated
// and outlive both the entity and the users they reference, which is why
// FromUserID is nullable. CreatedAt is assigned by the store, not the
// application.
type ReassignmentLog struct {
	ID         uint                   `gorm:"primarykey" json:"id"`
	EntityType ReassignmentEntityType `gorm:"type:varchar(10);not null;index:idx_log_target" json:"entity_type"`
	EntityID   uint                   `gorm:"not null" json:"entity_id"`
	FromUserID *uint                  `json:"from_user_id,omitempty"`
	ToUserID   uint                   `gorm:"not null;index:idx_log_target" json:"to_user_id"`
	CreatedAt  time.Time              `gorm:"->;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}
