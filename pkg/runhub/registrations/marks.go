package registrations

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/runhub-dev/runhub/pkg/runhub/apperr"
	"github.com/runhub-dev/runhub/pkg/runhub/auth"
	"github.com/runhub-dev/runhub/pkg/runhub/models"
	"gorm.io/gorm"
)

// MarkRequest represents the request to record a mark for a finished race
type MarkRequest struct {
	Time     string `json:"time" binding:"required"`
	Position *int   `json:"position"`
	Comment  string `json:"comment"`
	Pace     string `json:"pace"`
}

// MarkResponse represents a confirmed registration projected to its mark
type MarkResponse struct {
	RaceID     uint             `json:"race_id"`
	RaceName   string           `json:"race_name"`
	RaceDate   time.Time        `json:"race_date"`
	FinishTime *models.Duration `json:"finish_time,omitempty"`
	Position   *int             `json:"position,omitempty"`
	Comment    string           `json:"comment,omitempty"`
	Pace       *models.Duration `json:"pace,omitempty"`
}

// RecordMark records or overwrites the caller's mark for a race
// @Summary Record a mark
// @Description Record finish time, position, comment and pace for a confirmed race
// @Tags marks
// @Accept json
// @Produce json
// @Param id path int true "Race ID"
// @Param request body MarkRequest true "Mark details"
// @Success 200 {object} map[string]string "Mark recorded"
// @Failure 400 {object} map[string]string "Malformed time or pace"
// @Failure 404 {object} map[string]string "Registration not found"
// @Failure 422 {object} map[string]string "Registration not confirmed"
// @Security BearerAuth
// @Router /races/{id}/mark [put]
func (h *Handler) RecordMark(c *gin.Context) {
	uid, _ := auth.GetUID(c)
	raceID, ok := raceIDParam(c)
	if !ok {
		return
	}

	var req MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	finishTime, err := models.ParseDuration(req.Time)
	if err != nil {
		apperr.JSON(c, apperr.Validation(err.Error()))
		return
	}

	var pace *models.Duration
	if req.Pace != "" {
		parsed, err := models.ParseDuration(req.Pace)
		if err != nil {
			apperr.JSON(c, apperr.Validation(err.Error()))
			return
		}
		pace = &parsed
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		reg, err := h.findConfirmed(tx, uid, raceID)
		if err != nil {
			return err
		}

		// a new mark overwrites every field of the previous one
		return tx.Model(reg).Updates(map[string]interface{}{
			"finish_time": finishTime,
			"position":    req.Position,
			"comment":     req.Comment,
			"pace":        pace,
		}).Error
	})
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Mark recorded"})
}

// ClearMark removes the caller's mark for a race
// @Summary Clear a mark
// @Description Reset all mark fields for a confirmed race
// @Tags marks
// @Produce json
// @Param id path int true "Race ID"
// @Success 200 {object} map[string]string "Mark cleared"
// @Failure 404 {object} map[string]string "Registration not found"
// @Failure 422 {object} map[string]string "Registration not confirmed"
// @Security BearerAuth
// @Router /races/{id}/mark [delete]
func (h *Handler) ClearMark(c *gin.Context) {
	uid, _ := auth.GetUID(c)
	raceID, ok := raceIDParam(c)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		reg, err := h.findConfirmed(tx, uid, raceID)
		if err != nil {
			return err
		}

		return tx.Model(reg).Updates(map[string]interface{}{
			"finish_time": nil,
			"position":    nil,
			"comment":     "",
			"pace":        nil,
		}).Error
	})
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Mark cleared"})
}

// ListMarks returns the caller's confirmed registrations as marks
// @Summary List my marks
// @Description All confirmed registrations, whether or not a mark has been recorded yet
// @Tags marks
// @Produce json
// @Success 200 {array} MarkResponse
// @Security BearerAuth
// @Router /marks [get]
func (h *Handler) ListMarks(c *gin.Context) {
	uid, _ := auth.GetUID(c)

	user, err := h.store.FindByUID(uid)
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	var regs []models.Registration
	if err := h.db.Preload("Race").
		Where("user_id = ? AND status = ?", user.ID, models.StatusConfirmed).
		Find(&regs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch marks"})
		return
	}

	out := make([]MarkResponse, 0, len(regs))
	for _, reg := range regs {
		if reg.Race.ID == 0 {
			// race deleted since the registration; nothing to show
			continue
		}
		out = append(out, MarkResponse{
			RaceID:     reg.RaceID,
			RaceName:   reg.Race.Name,
			RaceDate:   reg.Race.Date,
			FinishTime: reg.FinishTime,
			Position:   reg.Position,
			Comment:    reg.Comment,
			Pace:       reg.Pace,
		})
	}

	c.JSON(http.StatusOK, out)
}

// findConfirmed resolves the caller's registration and enforces the
// confirmed-only rule shared by mark operations.
func (h *Handler) findConfirmed(tx *gorm.DB, uid string, raceID uint) (*models.Registration, error) {
	user, err := h.store.WithTx(tx).FindByUID(uid)
	if err != nil {
		return nil, err
	}

	var reg models.Registration
	err = tx.Where("user_id = ? AND race_id = ?", user.ID, raceID).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Registration not found")
	}
	if err != nil {
		return nil, err
	}

	if reg.Status != models.StatusConfirmed {
		return nil, apperr.InvalidState("Only confirmed races accept marks")
	}
	return &reg, nil
}

// RegisterMarkRoutes registers mark routes on the given router group
func (h *Handler) RegisterMarkRoutes(rg *gin.RouterGroup) {
	rg.PUT("/races/:id/mark", h.RecordMark)
	rg.DELETE("/races/:id/mark", h.ClearMark)
	rg.GET("/marks", h.ListMarks)
}
