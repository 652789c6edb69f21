package users

import (
	"log"

	"github.com/runhub-dev/runhub/pkg/runhub/apperr"
	"github.com/runhub-dev/runhub/pkg/runhub/models"
	"gorm.io/gorm"
)

// deleteUserAsAdmin removes the target user, first transferring every
// ownership edge (races organized, clubs managed) to the acting admin
// and writing one ledger row per transferred entity. Steps run in one
// transaction: either everything moves and the user is gone, or
// nothing changed. The returned postCommit callback performs the
// best-effort external identity delete and must only be invoked after
// the transaction has committed.
func (h *Handler) deleteUserAsAdmin(actingUID, targetUID string) (postCommit func(), err error) {
	err = h.db.Transaction(func(tx *gorm.DB) error {
		store := h.store.WithTx(tx)

		acting, err := store.FindByUID(actingUID)
		if err != nil {
			return err
		}
		if err := store.RequireRole(acting.ID, models.RoleAdmin); err != nil {
			return err
		}
		if actingUID == targetUID {
			return apperr.Forbidden("Admins cannot delete their own account through this path")
		}

		target, err := store.FindByUID(targetUID)
		if err != nil {
			return err
		}

		// Discovery happens before the bulk updates so the audit rows
		// cover exactly the affected set.
		var raceIDs []uint
		if target.Role == models.RoleOrganizer {
			if err := tx.Model(&models.Race{}).
				Where("organizer_id = ?", target.ID).
				Pluck("id", &raceIDs).Error; err != nil {
				return err
			}
		}

		var clubIDs []uint
		if target.Role == models.RoleClubAdmin {
			if err := tx.Model(&models.Club{}).
				Where("manager_id = ?", target.ID).
				Pluck("id", &clubIDs).Error; err != nil {
				return err
			}
		}

		if len(raceIDs) > 0 {
			if err := tx.Model(&models.Race{}).
				Where("id IN ?", raceIDs).
				Update("organizer_id", acting.ID).Error; err != nil {
				return err
			}
		}
		if len(clubIDs) > 0 {
			if err := tx.Model(&models.Club{}).
				Where("id IN ?", clubIDs).
				Update("manager_id", acting.ID).Error; err != nil {
				return err
			}
		}

		// One ledger row per transferred entity; users who owned
		// nothing produce no log noise at all.
		logs := make([]models.ReassignmentLog, 0, len(raceIDs)+len(clubIDs))
		for _, id := range raceIDs {
			logs = append(logs, models.ReassignmentLog{
				EntityType: models.EntityTypeRace,
				EntityID:   id,
				FromUserID: &target.ID,
				ToUserID:   acting.ID,
			})
		}
		for _, id := range clubIDs {
			logs = append(logs, models.ReassignmentLog{
				EntityType: models.EntityTypeClub,
				EntityID:   id,
				FromUserID: &target.ID,
				ToUserID:   acting.ID,
			})
		}
		if len(logs) > 0 {
			if err := tx.Create(&logs).Error; err != nil {
				return err
			}
		}

		return deleteLocalUser(tx, target)
	})
	if err != nil {
		return nil, err
	}

	return h.identityDeleteAfterCommit(targetUID), nil
}

// deleteOwnAccount is the self-service path: no reassignment, no audit,
// no admin check. The caller's memberships, registrations and user row
// go away in one transaction.
func (h *Handler) deleteOwnAccount(uid string) (postCommit func(), err error) {
	err = h.db.Transaction(func(tx *gorm.DB) error {
		user, err := h.store.WithTx(tx).FindByUID(uid)
		if err != nil {
			return err
		}
		return deleteLocalUser(tx, user)
	})
	if err != nil {
		return nil, err
	}

	return h.identityDeleteAfterCommit(uid), nil
}

// deleteLocalUser detaches the user's club memberships through the
// bridge table, drops their registration rows and soft-deletes the user
// row. Membership removal never touches an in-memory collection: the
// bridge rows are deleted directly and each affected club's member
// count is decremented once, floored at zero.
func deleteLocalUser(tx *gorm.DB, user *models.User) error {
	var clubIDs []uint
	if err := tx.Model(&models.ClubMembership{}).
		Where("user_id = ?", user.ID).
		Pluck("club_id", &clubIDs).Error; err != nil {
		return err
	}

	if len(clubIDs) > 0 {
		if err := tx.Where("user_id = ?", user.ID).
			Delete(&models.ClubMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Club{}).
			Where("id IN ?", clubIDs).
			UpdateColumn("members", gorm.Expr("CASE WHEN members > 0 THEN members - 1 ELSE 0 END")).Error; err != nil {
			return err
		}
	}

	// The user's own participation history is not ownership and is not
	// migrated anywhere; the rows are simply removed.
	if err := tx.Where("user_id = ?", user.ID).
		Delete(&models.Registration{}).Error; err != nil {
		return err
	}

	return tx.Delete(&models.User{}, user.ID).Error
}

// identityDeleteAfterCommit returns the best-effort side effect that
// removes the external identity. A failure here is logged and swallowed:
// the committed local deletion stays authoritative and is never rolled
// back for an external-system failure.
func (h *Handler) identityDeleteAfterCommit(uid string) func() {
	return func() {
		if err := h.provider.DeleteIdentity(uid); err != nil {
			log.Printf("best-effort identity delete failed for uid %s: %v", uid, err)
		}
	}
}
