package users

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/runhub-dev/runhub/pkg/runhub/apperr"
	"github.com/runhub-dev/runhub/pkg/runhub/auth"
	"github.com/runhub-dev/runhub/pkg/runhub/identity"
	"github.com/runhub-dev/runhub/pkg/runhub/models"
	"gorm.io/gorm"
)

// Handler handles user management requests
type Handler struct {
	db       *gorm.DB
	store    *identity.Store
	provider identity.Provider
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB, store *identity.Store, provider identity.Provider) *Handler {
	return &Handler{db: db, store: store, provider: provider}
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID      uint   `json:"id"`
	UID     string `json:"uid"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Role    string `json:"role"`
}

// CreateUserRequest represents the admin request to create a user
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Surname  string `json:"surname"`
	Role     string `json:"role"`
}

// UpdateUserRequest represents the request to update a user's profile
type UpdateUserRequest struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

func toUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:      user.ID,
		UID:     user.UID,
		Email:   user.Email,
		Name:    user.Name,
		Surname: user.Surname,
		Role:    string(user.Role),
	}
}

// List returns all users (admin only)
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {array} UserResponse
// @Security BearerAuth
// @Router /users [get]
func (h *Handler) List(c *gin.Context) {
	var users []models.User
	if err := h.db.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	out := make([]UserResponse, len(users))
	for i, user := range users {
		out[i] = toUserResponse(user)
	}
	c.JSON(http.StatusOK, out)
}

// Get returns a user by external uid
// @Summary Get a user
// @Tags users
// @Produce json
// @Param uid path string true "External identity UID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{uid} [get]
func (h *Handler) Get(c *gin.Context) {
	user, err := h.store.FindByUID(c.Param("uid"))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(*user))
}

// GetRole returns a user's role
// @Summary Get a user's role
// @Tags users
// @Produce json
// @Param uid path string true "External identity UID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{uid}/role [get]
func (h *Handler) GetRole(c *gin.Context) {
	user, err := h.store.FindByUID(c.Param("uid"))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": string(user.Role)})
}

// Update updates the caller's name and surname
// @Summary Update profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body UpdateUserRequest true "Updated profile"
// @Success 200 {object} UserResponse
// @Security BearerAuth
// @Router /users/me [put]
func (h *Handler) Update(c *gin.Context) {
	uid, _ := auth.GetUID(c)

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.store.FindByUID(uid)
	if err != nil {
		apperr.JSON(c, err)
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Surname != "" {
		user.Surname = req.Surname
	}

	if err := h.db.Save(user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(*user))
}

// Create creates a user with a freshly provisioned external identity (admin only)
// @Summary Create a user
// @Description Provision the external identity first, then the local row correlated by its uid
// @Tags users
// @Accept json
// @Produce json
// @Param request body CreateUserRequest true "User details"
// @Success 201 {object} UserResponse
// @Failure 409 {object} map[string]string "Email already registered"
// @Security BearerAuth
// @Router /users [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		apperr.JSON(c, apperr.Conflict("Email already registered"))
		return
	}

	role := models.Role(req.Role)
	switch role {
	case models.RoleAdmin, models.RoleOrganizer, models.RoleClubAdmin, models.RoleUser:
	case "":
		role = models.RoleUser
	default:
		apperr.JSON(c, apperr.Validation("Unknown role '"+req.Role+"'"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	uid, err := h.provider.CreateIdentity(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Identity provider rejected the creation"})
		return
	}

	user := models.User{
		UID:          uid,
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Surname:      req.Surname,
		Role:         role,
	}
	if err := h.db.Create(&user).Error; err != nil {
		// the local row never materialized; don't leave the freshly
		// provisioned identity orphaned
		h.identityDeleteAfterCommit(uid)()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Delete removes a user, reassigning their owned races and clubs to the
// acting admin (admin only)
// @Summary Delete a user
// @Description Transfer the target's ownership edges to the caller, write the audit ledger, remove the user and best-effort delete the external identity
// @Tags users
// @Produce json
// @Param uid path string true "External identity UID of the target"
// @Success 200 {object} map[string]string "User deleted"
// @Failure 403 {object} map[string]string "Not an admin, or self-deletion"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{uid} [delete]
func (h *Handler) Delete(c *gin.Context) {
	actingUID, _ := auth.GetUID(c)
	targetUID := c.Param("uid")

	postCommit, err := h.deleteUserAsAdmin(actingUID, targetUID)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	postCommit()

	c.JSON(http.StatusOK, gin.H{"message": "User reassigned (if owner) and deleted"})
}

// DeleteMe removes the caller's own account (no reassignment)
// @Summary Delete my account
// @Description Remove the caller's memberships, registrations and user row, then best-effort delete the external identity
// @Tags users
// @Produce json
// @Success 200 {object} map[string]string "Account deleted"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/me [delete]
func (h *Handler) DeleteMe(c *gin.Context) {
	uid, _ := auth.GetUID(c)

	postCommit, err := h.deleteOwnAccount(uid)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	postCommit()

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

// RegisterRoutes registers self-service user routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/me", h.Update)
	rg.DELETE("/me", h.DeleteMe)
	rg.GET("/:uid", h.Get)
	rg.GET("/:uid/role", h.GetRole)
}

// RegisterAdminRoutes registers admin-only user routes
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.DELETE("/:uid", h.Delete)
}
