package races

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/runhub-dev/runhub/pkg/runhub/apperr"
	"github.com/runhub-dev/runhub/pkg/runhub/auth"
	"github.com/runhub-dev/runhub/pkg/runhub/identity"
	"github.com/runhub-dev/runhub/pkg/runhub/models"
	"gorm.io/gorm"
)

// Handler handles race requests
type Handler struct {
	db    *gorm.DB
	store *identity.Store
}

// NewHandler creates a new races handler
func NewHandler(db *gorm.DB, store *identity.Store) *Handler {
	return &Handler{db: db, store: store}
}

// RaceRequest represents the request to create or update a race
type RaceRequest struct {
	Name        string    `json:"name"`
	Place       string    `json:"place"`
	Province    string    `json:"province"`
	Photo       string    `json:"photo"`
	URL         string    `json:"url"`
	DistanceKm  float64   `json:"distance_km"`
	Date        time.Time `json:"date"`
	Slope       int       `json:"slope"`
	OrganizerID *uint     `json:"organizer_id"`
}

// RaceResponse represents a race in API responses
type RaceResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Place       string    `json:"place"`
	Province    string    `json:"province"`
	Photo       string    `json:"photo"`
	URL         string    `json:"url"`
	DistanceKm  float64   `json:"distance_km"`
	Date        time.Time `json:"date"`
	Slope       int       `json:"slope"`
	Registered  int       `json:"registered"`
	OrganizerID *uint     `json:"organizer_id,omitempty"`
}

func toRaceResponse(race models.Race) RaceResponse {
	return RaceResponse{
		ID:          race.ID,
		Name:        race.Name,
		Place:       race.Place,
		Province:    race.Province,
		Photo:       race.Photo,
		URL:         race.URL,
		DistanceKm:  race.DistanceKm,
		Date:        race.Date,
		Slope:       race.Slope,
		Registered:  race.Registered,
		OrganizerID: race.OrganizerID,
	}
}

func raceIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid race ID"})
		return 0, false
	}
	return uint(id), true
}

// requireOrganizer resolves the caller and checks they may manage races.
func (h *Handler) requireOrganizer(uid string) (*models.User, error) {
	user, err := h.store.FindByUID(uid)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleAdmin && user.Role != models.RoleOrganizer {
		return nil, apperr.Forbidden("User must be admin or organizator")
	}
	return user, nil
}

// List returns all races
// @Summary List races
// @Tags races
// @Produce json
// @Success 200 {array} RaceResponse
// @Router /races [get]
func (h *Handler) List(c *gin.Context) {
	var races []models.Race
	if err := h.db.Order("date desc").Find(&races).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch races"})
		return
	}

	out := make([]RaceResponse, len(races))
	for i, race := range races {
		out[i] = toRaceResponse(race)
	}
	c.JSON(http.StatusOK, out)
}

// Get returns a specific race
// @Summary Get a race
// @Tags races
// @Produce json
// @Param id path int true "Race ID"
// @Success 200 {object} RaceResponse
// @Failure 404 {object} map[string]string "Race not found"
// @Router /races/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	raceID, ok := raceIDParam(c)
	if !ok {
		return
	}

	var race models.Race
	if err := h.db.First(&race, raceID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Race not found"})
		return
	}

	c.JSON(http.StatusOK, toRaceResponse(race))
}

// ListMine returns the caller's races; admins see every race
// @Summary List my races
// @Tags races
// @Produce json
// @Success 200 {array} RaceResponse
// @Failure 403 {object} map[string]string "Role check failed"
// @Security BearerAuth
// @Router /races/mine [get]
func (h *Handler) ListMine(c *gin.Context) {
	uid, _ := auth.GetUID(c)

	user, err := h.requireOrganizer(uid)
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	q := h.db.Order("date desc")
	if user.Role != models.RoleAdmin {
		q = q.Where("organizer_id = ?", user.ID)
	}

	var races []models.Race
	if err := q.Find(&races).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch races"})
		return
	}

	out := make([]RaceResponse, len(races))
	for i, race := range races {
		out[i] = toRaceResponse(race)
	}
	c.JSON(http.StatusOK, out)
}

// Create creates a race owned by the caller
// @Summary Create a race
// @Description Create a race (requires organizator or admin role); race names are unique
// @Tags races
// @Accept json
// @Produce json
// @Param request body RaceRequest true "Race details"
// @Success 201 {object} RaceResponse
// @Failure 403 {object} map[string]string "Role check failed"
// @Failure 409 {object} map[string]string "Duplicate race name"
// @Security BearerAuth
// @Router /races [post]
func (h *Handler) Create(c *gin.Context) {
	uid, _ := auth.GetUID(c)

	var req RaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.requireOrganizer(uid)
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		apperr.JSON(c, apperr.Validation("Race name is required"))
		return
	}

	var count int64
	h.db.Model(&models.Race{}).Where("LOWER(name) = LOWER(?)", name).Count(&count)
	if count > 0 {
		apperr.JSON(c, apperr.Conflict("A race with that name already exists"))
		return
	}

	race := models.Race{
		Name:        name,
		Place:       req.Place,
		Province:    req.Province,
		Photo:       req.Photo,
		URL:         req.URL,
		DistanceKm:  req.DistanceKm,
		Date:        req.Date,
		Slope:       req.Slope,
		OrganizerID: &user.ID,
	}
	if err := h.db.Create(&race).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create race"})
		return
	}

	c.JSON(http.StatusCreated, toRaceResponse(race))
}

// Update updates one of the caller's races
// @Summary Update a race
// @Description Update a race; only an admin may change the organizer, and only to a user holding 'organizator'
// @Tags races
// @Accept json
// @Produce json
// @Param id path int true "Race ID"
// @Param request body RaceRequest true "Updated race details"
// @Success 200 {object} RaceResponse
// @Failure 403 {object} map[string]string "Not your race"
// @Failure 404 {object} map[string]string "Race not found"
// @Failure 409 {object} map[string]string "Duplicate race name"
// @Security BearerAuth
// @Router /races/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	raceID, ok := raceIDParam(c)
	if !ok {
		return
	}

	var req RaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, race, err := h.manageableRace(c, raceID)
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" && !strings.EqualFold(name, race.Name) {
		var count int64
		h.db.Model(&models.Race{}).
			Where("LOWER(name) = LOWER(?) AND id <> ?", name, race.ID).Count(&count)
		if count > 0 {
			apperr.JSON(c, apperr.Conflict("A race with that name already exists"))
			return
		}
		race.Name = name
	}
	if req.Place != "" {
		race.Place = req.Place
	}
	if req.Province != "" {
		race.Province = req.Province
	}
	if req.Photo != "" {
		race.Photo = req.Photo
	}
	if req.URL != "" {
		race.URL = req.URL
	}
	if req.DistanceKm != 0 {
		race.DistanceKm = req.DistanceKm
	}
	if !req.Date.IsZero() {
		race.Date = req.Date
	}
	if req.Slope != 0 {
		race.Slope = req.Slope
	}

	if req.OrganizerID != nil {
		if user.Role != models.RoleAdmin {
			apperr.JSON(c, apperr.Forbidden("Only an admin can change the race organizer"))
			return
		}
		if err := h.store.RequireRole(*req.OrganizerID, models.RoleOrganizer); err != nil {
			apperr.JSON(c, err)
			return
		}
		race.OrganizerID = req.OrganizerID
	}

	if err := h.db.Save(race).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update race"})
		return
	}

	c.JSON(http.StatusOK, toRaceResponse(*race))
}

// Delete deletes one of the caller's races
// @Summary Delete a race
// @Tags races
// @Produce json
// @Param id path int true "Race ID"
// @Success 200 {object} map[string]string "Race deleted"
// @Failure 403 {object} map[string]string "Not your race"
// @Failure 404 {object} map[string]string "Race not found"
// @Security BearerAuth
// @Router /races/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	raceID, ok := raceIDParam(c)
	if !ok {
		return
	}

	_, race, err := h.manageableRace(c, raceID)
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	if err := h.db.Delete(race).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete race"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Race deleted"})
}

// ListPending returns pending registrations for one of the caller's races
// @Summary List pending registrations for a race
// @Tags races
// @Produce json
// @Param id path int true "Race ID"
// @Success 200 {array} PendingRegistrationResponse
// @Failure 403 {object} map[string]string "Not your race"
// @Security BearerAuth
// @Router /races/{id}/pending [get]
func (h *Handler) ListPending(c *gin.Context) {
	raceID, ok := raceIDParam(c)
	if !ok {
		return
	}

	if _, _, err := h.manageableRace(c, raceID); err != nil {
		apperr.JSON(c, err)
		return
	}

	var regs []models.Registration
	if err := h.db.Preload("User").
		Where("race_id = ? AND status = ?", raceID, models.StatusPending).
		Find(&regs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch registrations"})
		return
	}

	out := make([]PendingRegistrationResponse, len(regs))
	for i, reg := range regs {
		out[i] = PendingRegistrationResponse{
			UserUID:          reg.User.UID,
			UserName:         reg.User.Name,
			UserEmail:        reg.User.Email,
			RegistrationDate: reg.RegistrationDate,
		}
	}
	c.JSON(http.StatusOK, out)
}

// PendingRegistrationResponse represents a pending registrant for a race
type PendingRegistrationResponse struct {
	UserUID          string    `json:"user_uid"`
	UserName         string    `json:"user_name"`
	UserEmail        string    `json:"user_email"`
	RegistrationDate time.Time `json:"registration_date"`
}

// CancelPending bulk-cancels all pending registrations for a race.
// Pending registrations never contributed to the confirmed count, so the
// counter is untouched.
// @Summary Cancel all pending registrations for a race
// @Tags races
// @Produce json
// @Param id path int true "Race ID"
// @Success 200 {object} map[string]int64 "Number of registrations cancelled"
// @Failure 403 {object} map[string]string "Not your race"
// @Security BearerAuth
// @Router /races/{id}/pending [delete]
func (h *Handler) CancelPending(c *gin.Context) {
	raceID, ok := raceIDParam(c)
	if !ok {
		return
	}

	if _, _, err := h.manageableRace(c, raceID); err != nil {
		apperr.JSON(c, err)
		return
	}

	res := h.db.Model(&models.Registration{}).
		Where("race_id = ? AND status = ?", raceID, models.StatusPending).
		Update("status", models.StatusCancelled)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel registrations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cancelled": res.RowsAffected})
}

// manageableRace loads the race and checks the caller may manage it.
func (h *Handler) manageableRace(c *gin.Context, raceID uint) (*models.User, *models.Race, error) {
	uid, _ := auth.GetUID(c)

	user, err := h.requireOrganizer(uid)
	if err != nil {
		return nil, nil, err
	}

	var race models.Race
	if err := h.db.First(&race, raceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("Race not found")
		}
		return nil, nil, err
	}

	if user.Role != models.RoleAdmin {
		if race.OrganizerID == nil || *race.OrganizerID != user.ID {
			return nil, nil, apperr.Forbidden("You cannot manage this race")
		}
	}
	return user, &race, nil
}

// RegisterRoutes registers public race routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
}

// RegisterOrganizerRoutes registers routes that require authentication
func (h *Handler) RegisterOrganizerRoutes(rg *gin.RouterGroup) {
	rg.GET("/mine", h.ListMine)
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/pending", h.ListPending)
	rg.DELETE("/:id/pending", h.CancelPending)
}
