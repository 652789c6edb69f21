package clubs

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/runhub-dev/runhub/pkg/runhub/apperr"
	"github.com/runhub-dev/runhub/pkg/runhub/auth"
	"github.com/runhub-dev/runhub/pkg/runhub/identity"
	"github.com/runhub-dev/runhub/pkg/runhub/models"
	"gorm.io/gorm"
)

// Handler handles club requests
type Handler struct {
	db    *gorm.DB
	store *identity.Store
}

// NewHandler creates a new clubs handler
func NewHandler(db *gorm.DB, store *identity.Store) *Handler {
	return &Handler{db: db, store: store}
}

// CreateClubRequest represents the request to create a club
type CreateClubRequest struct {
	Name     string `json:"name" binding:"required"`
	Province string `json:"province"`
	Place    string `json:"place"`
	Photo    string `json:"photo"`
}

// UpdateClubRequest represents the request to update a club
type UpdateClubRequest struct {
	Name     string `json:"name"`
	Province string `json:"province"`
	Place    string `json:"place"`
	Photo    string `json:"photo"`
}

// ClubResponse represents a club in API responses
type ClubResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Province string `json:"province"`
	Place    string `json:"place"`
	Photo    string `json:"photo"`
	Members  int    `json:"members"`
}

func toClubResponse(club models.Club) ClubResponse {
	return ClubResponse{
		ID:       club.ID,
		Name:     club.Name,
		Province: club.Province,
		Place:    club.Place,
		Photo:    club.Photo,
		Members:  club.Members,
	}
}

func clubIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return 0, false
	}
	return uint(id), true
}

// List returns all clubs
// @Summary List clubs
// @Tags clubs
// @Produce json
// @Success 200 {array} ClubResponse
// @Router /clubs [get]
func (h *Handler) List(c *gin.Context) {
	var clubs []models.Club
	if err := h.db.Find(&clubs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch clubs"})
		return
	}

	out := make([]ClubResponse, len(clubs))
	for i, club := range clubs {
		out[i] = toClubResponse(club)
	}
	c.JSON(http.StatusOK, out)
}

// Get returns a specific club
// @Summary Get a club
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Success 200 {object} ClubResponse
// @Failure 404 {object} map[string]string "Club not found"
// @Router /clubs/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}

	var club models.Club
	if err := h.db.First(&club, clubID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Club not found"})
		return
	}

	c.JSON(http.StatusOK, toClubResponse(club))
}

// Create creates a new club with the caller as manager
// @Summary Create a club
// @Description Create a club (requires club-administrator or admin role)
// @Tags clubs
// @Accept json
// @Produce json
// @Param request body CreateClubRequest true "Club details"
// @Success 201 {object} ClubResponse
// @Failure 403 {object} map[string]string "Role check failed"
// @Security BearerAuth
// @Router /clubs [post]
func (h *Handler) Create(c *gin.Context) {
	uid, _ := auth.GetUID(c)

	var req CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.FindByUID(uid)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	if user.Role != models.RoleClubAdmin && user.Role != models.RoleAdmin {
		apperr.JSON(c, apperr.Forbidden("User must hold role 'club-administrator'"))
		return
	}

	club := models.Club{
		Name:      req.Name,
		Province:  req.Province,
		Place:     req.Place,
		Photo:     req.Photo,
		ManagerID: &user.ID,
	}
	if err := h.db.Create(&club).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create club"})
		return
	}

	c.JSON(http.StatusCreated, toClubResponse(club))
}

// Update updates a club (manager or admin only)
// @Summary Update a club
// @Tags clubs
// @Accept json
// @Produce json
// @Param id path int true "Club ID"
// @Param request body UpdateClubRequest true "Updated club details"
// @Success 200 {object} ClubResponse
// @Failure 403 {object} map[string]string "Not the club manager"
// @Failure 404 {object} map[string]string "Club not found"
// @Security BearerAuth
// @Router /clubs/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}

	var req UpdateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	club, err := h.manageableClub(c, clubID)
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	if req.Name != "" {
		club.Name = req.Name
	}
	if req.Province != "" {
		club.Province = req.Province
	}
	if req.Place != "" {
		club.Place = req.Place
	}
	if req.Photo != "" {
		club.Photo = req.Photo
	}

	if err := h.db.Save(club).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update club"})
		return
	}

	c.JSON(http.StatusOK, toClubResponse(*club))
}

// Delete deletes a club (manager or admin only)
// @Summary Delete a club
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Success 200 {object} map[string]string "Club deleted"
// @Failure 403 {object} map[string]string "Not the club manager"
// @Failure 404 {object} map[string]string "Club not found"
// @Security BearerAuth
// @Router /clubs/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}

	club, err := h.manageableClub(c, clubID)
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("club_id = ?", club.ID).Delete(&models.ClubMembership{}).Error; err != nil {
			return err
		}
		return tx.Delete(club).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete club"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Club deleted"})
}

// Join adds the caller as a member of a club
// @Summary Join a club
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Success 200 {object} map[string]string "Joined"
// @Failure 404 {object} map[string]string "User or club not found"
// @Failure 409 {object} map[string]string "Already a member"
// @Security BearerAuth
// @Router /clubs/{id}/join [put]
func (h *Handler) Join(c *gin.Context) {
	uid, _ := auth.GetUID(c)
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		user, err := h.store.WithTx(tx).FindByUID(uid)
		if err != nil {
			return err
		}

		var club models.Club
		if err := tx.First(&club, clubID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Club not found")
			}
			return err
		}

		var existing models.ClubMembership
		err = tx.Where("user_id = ? AND club_id = ?", user.ID, clubID).First(&existing).Error
		if err == nil {
			return apperr.Conflict("User is already a member of this club")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		membership := models.ClubMembership{UserID: user.ID, ClubID: clubID}
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}

		return tx.Model(&models.Club{}).Where("id = ?", clubID).
			UpdateColumn("members", gorm.Expr("members + 1")).Error
	})
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User joined the club successfully"})
}

// Leave removes the caller from a club
// @Summary Leave a club
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Success 200 {object} map[string]string "Left"
// @Failure 404 {object} map[string]string "Membership not found"
// @Security BearerAuth
// @Router /clubs/{id}/leave [put]
func (h *Handler) Leave(c *gin.Context) {
	uid, _ := auth.GetUID(c)
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		user, err := h.store.WithTx(tx).FindByUID(uid)
		if err != nil {
			return err
		}

		res := tx.Where("user_id = ? AND club_id = ?", user.ID, clubID).Delete(&models.ClubMembership{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("User is not a member of this club")
		}

		return tx.Model(&models.Club{}).Where("id = ?", clubID).
			UpdateColumn("members", gorm.Expr("CASE WHEN members > 0 THEN members - 1 ELSE 0 END")).Error
	})
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User left the club successfully"})
}

// manageableClub loads the club and checks the caller may manage it.
func (h *Handler) manageableClub(c *gin.Context, clubID uint) (*models.Club, error) {
	uid, _ := auth.GetUID(c)

	user, err := h.store.FindByUID(uid)
	if err != nil {
		return nil, err
	}

	var club models.Club
	if err := h.db.First(&club, clubID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Club not found")
		}
		return nil, err
	}

	if user.Role != models.RoleAdmin {
		if club.ManagerID == nil || *club.ManagerID != user.ID {
			return nil, apperr.Forbidden("Only the club manager can manage this club")
		}
	}
	return &club, nil
}

// RegisterRoutes registers public club routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
}

// RegisterMemberRoutes registers routes that require authentication
func (h *Handler) RegisterMemberRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.PUT("/:id/join", h.Join)
	rg.PUT("/:id/leave", h.Leave)
}
