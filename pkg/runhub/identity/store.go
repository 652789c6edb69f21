package identity

import (
	"errors"

	"github.com/runhub-dev/runhub/pkg/runhub/apperr"
	"github.com/runhub-dev/runhub/pkg/runhub/models"
	"gorm.io/gorm"
)

// Store is the single authorization capability shared by all handlers.
// Role checks go through here instead of being re-derived ad hoc in each
// feature package.
type Store struct {
	db *gorm.DB
}

// NewStore creates an identity store over the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store bound to the given transaction so lookups see
// the transaction's own writes.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// FindByUID looks up a user by external identity uid.
func (s *Store) FindByUID(uid string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("uid = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return &user, nil
}

// HasRole reports whether the user currently holds the role.
func (s *Store) HasRole(userID uint, role models.Role) (bool, error) {
	var count int64
	err := s.db.Model(&models.User{}).
		Where("id = ? AND role = ?", userID, role).
		Count(&count).Error
	return count > 0, err
}

// RequireRole returns a forbidden error unless the user holds the role.
func (s *Store) RequireRole(userID uint, role models.Role) error {
	ok, err := s.HasRole(userID, role)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("User must hold role '" + string(role) + "'")
	}
	return nil
}
