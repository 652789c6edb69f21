package registrations

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/runhub-dev/runhub/pkg/runhub/apperr"
	"github.com/runhub-dev/runhub/pkg/runhub/auth"
	"github.com/runhub-dev/runhub/pkg/runhub/identity"
	"github.com/runhub-dev/runhub/pkg/runhub/models"
	"gorm.io/gorm"
)

// Handler handles registration lifecycle requests.
//
// Every state transition runs inside one database transaction so the
// status change and the race's confirmed-count cache move as a single
// unit. The two transitions that cross the confirmed boundary are the
// only places the counter is touched.
type Handler struct {
	db    *gorm.DB
	store *identity.Store
}

// NewHandler creates a new registrations handler
func NewHandler(db *gorm.DB, store *identity.Store) *Handler {
	return &Handler{db: db, store: store}
}

// RegistrationResponse represents one of the caller's registrations
type RegistrationResponse struct {
	RaceID           uint      `json:"race_id"`
	RaceName         string    `json:"race_name"`
	Place            string    `json:"place"`
	DistanceKm       float64   `json:"distance_km"`
	RaceDate         time.Time `json:"race_date"`
	Photo            string    `json:"photo,omitempty"`
	RegistrationDate time.Time `json:"registration_date"`
	Status           string    `json:"status"`
}

func raceIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid race ID"})
		return 0, false
	}
	return uint(id), true
}

// PreRegister creates or revives a pending registration
// @Summary Pre-register for a race
// @Description Create a pending registration, or revive a cancelled one
// @Tags registrations
// @Produce json
// @Param id path int true "Race ID"
// @Success 200 {object} map[string]string "Registration pending"
// @Failure 404 {object} map[string]string "User or race not found"
// @Failure 409 {object} map[string]string "Already registered"
// @Security BearerAuth
// @Router /races/{id}/registration [post]
func (h *Handler) PreRegister(c *gin.Context) {
	uid, _ := auth.GetUID(c)
	raceID, ok := raceIDParam(c)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		user, err := h.store.WithTx(tx).FindByUID(uid)
		if err != nil {
			return err
		}

		var race models.Race
		if err := tx.First(&race, raceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Race not found")
			}
			return err
		}

		var reg models.Registration
		err = tx.Where("user_id = ? AND race_id = ?", user.ID, raceID).First(&reg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			reg = models.Registration{
				UserID:           user.ID,
				RaceID:           raceID,
				RegistrationDate: time.Now(),
				Status:           models.StatusPending,
			}
			return tx.Create(&reg).Error
		}
		if err != nil {
			return err
		}

		switch reg.Status {
		case models.StatusPending:
			// already pending, nothing to do
			return nil
		case models.StatusCancelled:
			// re-registration after cancellation revives the row
			return tx.Model(&models.Registration{}).
				Where("user_id = ? AND race_id = ?", user.ID, raceID).
				Updates(map[string]interface{}{
					"status":            models.StatusPending,
					"registration_date": time.Now(),
				}).Error
		default:
			return apperr.Conflict("User is already registered for this race")
		}
	})
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Registration pending"})
}

// Confirm confirms a pending registration
// @Summary Confirm a registration
// @Description Move a pending registration to confirmed and bump the race's confirmed count
// @Tags registrations
// @Produce json
// @Param id path int true "Race ID"
// @Success 200 {object} map[string]string "Registration confirmed"
// @Failure 404 {object} map[string]string "User not found"
// @Failure 422 {object} map[string]string "Illegal transition"
// @Security BearerAuth
// @Router /races/{id}/registration/confirm [put]
func (h *Handler) Confirm(c *gin.Context) {
	uid, _ := auth.GetUID(c)
	raceID, ok := raceIDParam(c)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		user, err := h.store.WithTx(tx).FindByUID(uid)
		if err != nil {
			return err
		}

		var reg models.Registration
		err = tx.Where("user_id = ? AND race_id = ?", user.ID, raceID).First(&reg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.InvalidTransition("No registration exists for this race")
		}
		if err != nil {
			return err
		}

		switch reg.Status {
		case models.StatusConfirmed:
			// repeat confirmations succeed without moving the counter
			return nil
		case models.StatusCancelled:
			return apperr.InvalidTransition("Cannot confirm a cancelled registration")
		}

		// The status flip is conditional on still being pending, so a
		// concurrent confirm that got there first makes this a no-op
		// instead of a double increment.
		res := tx.Model(&models.Registration{}).
			Where("user_id = ? AND race_id = ? AND status = ?", user.ID, raceID, models.StatusPending).
			Update("status", models.StatusConfirmed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		return tx.Model(&models.Race{}).Where("id = ?", raceID).
			UpdateColumn("registered", gorm.Expr("registered + 1")).Error
	})
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Registration confirmed"})
}

// Cancel cancels a registration
// @Summary Cancel a registration
// @Description Cancel a pending or confirmed registration; only a confirmed one moves the race's confirmed count
// @Tags registrations
// @Produce json
// @Param id path int true "Race ID"
// @Success 200 {object} map[string]string "Registration cancelled"
// @Failure 404 {object} map[string]string "Registration not found"
// @Security BearerAuth
// @Router /races/{id}/registration/cancel [put]
func (h *Handler) Cancel(c *gin.Context) {
	uid, _ := auth.GetUID(c)
	raceID, ok := raceIDParam(c)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		user, err := h.store.WithTx(tx).FindByUID(uid)
		if err != nil {
			return err
		}

		var reg models.Registration
		err = tx.Where("user_id = ? AND race_id = ?", user.ID, raceID).First(&reg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Registration not found")
		}
		if err != nil {
			return err
		}

		switch reg.Status {
		case models.StatusCancelled:
			// already cancelled, nothing to do
			return nil
		case models.StatusPending:
			return tx.Model(&models.Registration{}).
				Where("user_id = ? AND race_id = ? AND status = ?", user.ID, raceID, models.StatusPending).
				Update("status", models.StatusCancelled).Error
		}

		// Leaving the confirmed state undoes its counter contribution.
		// The flip is conditional for the same reason Confirm's is.
		res := tx.Model(&models.Registration{}).
			Where("user_id = ? AND race_id = ? AND status = ?", user.ID, raceID, models.StatusConfirmed).
			Update("status", models.StatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		// Floored at zero; the invariant means this never actually hits
		// the floor, but a bad decrement must not go negative.
		return tx.Model(&models.Race{}).Where("id = ?", raceID).
			UpdateColumn("registered", gorm.Expr("CASE WHEN registered > 0 THEN registered - 1 ELSE 0 END")).Error
	})
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Registration cancelled"})
}

// Status returns the caller's registration status for one race
// @Summary Get registration status
// @Tags registrations
// @Produce json
// @Param id path int true "Race ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /races/{id}/registration [get]
func (h *Handler) Status(c *gin.Context) {
	uid, _ := auth.GetUID(c)
	raceID, ok := raceIDParam(c)
	if !ok {
		return
	}

	user, err := h.store.FindByUID(uid)
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	var reg models.Registration
	err = h.db.Where("user_id = ? AND race_id = ?", user.ID, raceID).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, gin.H{"status": nil})
		return
	}
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(reg.Status)})
}

// List returns the caller's registrations, optionally filtered by status
// @Summary List my registrations
// @Tags registrations
// @Produce json
// @Param status query string false "Filter by status (pending|confirmed|cancelled)"
// @Success 200 {array} RegistrationResponse
// @Security BearerAuth
// @Router /registrations [get]
func (h *Handler) List(c *gin.Context) {
	uid, _ := auth.GetUID(c)

	user, err := h.store.FindByUID(uid)
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	q := h.db.Preload("Race").Where("user_id = ?", user.ID)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var regs []models.Registration
	if err := q.Find(&regs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch registrations"})
		return
	}

	out := make([]RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		if reg.Race.ID == 0 {
			// race deleted since the registration; nothing to show
			continue
		}
		out = append(out, RegistrationResponse{
			RaceID:           reg.RaceID,
			RaceName:         reg.Race.Name,
			Place:            reg.Race.Place,
			DistanceKm:       reg.Race.DistanceKm,
			RaceDate:         reg.Race.Date,
			Photo:            reg.Race.Photo,
			RegistrationDate: reg.RegistrationDate,
			Status:           string(reg.Status),
		})
	}

	c.JSON(http.StatusOK, out)
}

// RegisterRoutes registers registration routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/races/:id/registration", h.PreRegister)
	rg.PUT("/races/:id/registration/confirm", h.Confirm)
	rg.PUT("/races/:id/registration/cancel", h.Cancel)
	rg.GET("/races/:id/registration", h.Status)
	rg.GET("/registrations", h.List)
}
