package reassignments

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/runhub-dev/runhub/pkg/runhub/apperr"
	"github.com/runhub-dev/runhub/pkg/runhub/auth"
	"github.com/runhub-dev/runhub/pkg/runhub/identity"
	"github.com/runhub-dev/runhub/pkg/runhub/models"
	"gorm.io/gorm"
)

// deletedUserEmail is shown when the former owner's row has been purged
// entirely and the ledger can no longer resolve an email.
const deletedUserEmail = "deleted user"

// Handler handles reassignment history requests.
//
// The ledger is write-only history; these endpoints are pure read-side
// projections joining the newest log entry per entity against current
// entity state. Entities deleted after being reassigned are silently
// dropped from the result.
type Handler struct {
	db    *gorm.DB
	store *identity.Store
}

// NewHandler creates a new reassignments handler
func NewHandler(db *gorm.DB, store *identity.Store) *Handler {
	return &Handler{db: db, store: store}
}

// ReassignedRaceResponse represents a race reassigned to the caller
type ReassignedRaceResponse struct {
	ID                  uint      `json:"id"`
	Name                string    `json:"name"`
	Place               string    `json:"place"`
	DistanceKm          float64   `json:"distance_km"`
	Photo               string    `json:"photo"`
	Date                time.Time `json:"date"`
	ReassignedFromEmail string    `json:"reassigned_from_email"`
	ReassignedAt        time.Time `json:"reassigned_at"`
}

// ReassignedClubResponse represents a club reassigned to the caller
type ReassignedClubResponse struct {
	ID                  uint      `json:"id"`
	Name                string    `json:"name"`
	Province            string    `json:"province"`
	Place               string    `json:"place"`
	Members             int       `json:"members"`
	Photo               string    `json:"photo"`
	ReassignedFromEmail string    `json:"reassigned_from_email"`
	ReassignedAt        time.Time `json:"reassigned_at"`
}

// latestLogs returns the caller's ledger rows for one entity type,
// collapsed to the newest entry per entity id, newest first.
func (h *Handler) latestLogs(uid string, entityType models.ReassignmentEntityType) ([]models.ReassignmentLog, error) {
	user, err := h.store.FindByUID(uid)
	if err != nil {
		return nil, err
	}

	var logs []models.ReassignmentLog
	if err := h.db.
		Where("to_user_id = ? AND entity_type = ?", user.ID, entityType).
		Order("created_at DESC, id DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}

	// an entity can be reassigned more than once; the newest entry wins
	seen := make(map[uint]bool, len(logs))
	out := logs[:0]
	for _, l := range logs {
		if seen[l.EntityID] {
			continue
		}
		seen[l.EntityID] = true
		out = append(out, l)
	}
	return out, nil
}

// fromEmails resolves the former owners' emails for a set of log rows.
// Soft-deleted users still resolve; rows whose user is gone entirely, or
// whose from_user_id is null, fall back to the deleted-user marker.
func (h *Handler) fromEmails(logs []models.ReassignmentLog) (map[uint]string, error) {
	ids := make([]uint, 0, len(logs))
	for _, l := range logs {
		if l.FromUserID != nil {
			ids = append(ids, *l.FromUserID)
		}
	}

	emails := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return emails, nil
	}

	var users []models.User
	if err := h.db.Unscoped().Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		emails[u.ID] = u.Email
	}
	return emails, nil
}

func fromEmail(l models.ReassignmentLog, emails map[uint]string) string {
	if l.FromUserID != nil {
		if email, ok := emails[*l.FromUserID]; ok {
			return email
		}
	}
	return deletedUserEmail
}

// Races returns the races reassigned to the caller
// @Summary List races reassigned to me
// @Tags reassignments
// @Produce json
// @Success 200 {array} ReassignedRaceResponse
// @Security BearerAuth
// @Router /admin/reassigned/races [get]
func (h *Handler) Races(c *gin.Context) {
	uid, _ := auth.GetUID(c)

	logs, err := h.latestLogs(uid, models.EntityTypeRace)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	if len(logs) == 0 {
		c.JSON(http.StatusOK, []ReassignedRaceResponse{})
		return
	}

	ids := make([]uint, len(logs))
	for i, l := range logs {
		ids[i] = l.EntityID
	}

	var races []models.Race
	if err := h.db.Where("id IN ?", ids).Find(&races).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch races"})
		return
	}
	byID := make(map[uint]models.Race, len(races))
	for _, r := range races {
		byID[r.ID] = r
	}

	emails, err := h.fromEmails(logs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve former owners"})
		return
	}

	out := make([]ReassignedRaceResponse, 0, len(logs))
	for _, l := range logs {
		race, ok := byID[l.EntityID]
		if !ok {
			// race deleted since the reassignment; not an error
			continue
		}
		out = append(out, ReassignedRaceResponse{
			ID:                  race.ID,
			Name:                race.Name,
			Place:               race.Place,
			DistanceKm:          race.DistanceKm,
			Photo:               race.Photo,
			Date:                race.Date,
			ReassignedFromEmail: fromEmail(l, emails),
			ReassignedAt:        l.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, out)
}

// Clubs returns the clubs reassigned to the caller
// @Summary List clubs reassigned to me
// @Tags reassignments
// @Produce json
// @Success 200 {array} ReassignedClubResponse
// @Security BearerAuth
// @Router /admin/reassigned/clubs [get]
func (h *Handler) Clubs(c *gin.Context) {
	uid, _ := auth.GetUID(c)

	logs, err := h.latestLogs(uid, models.EntityTypeClub)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	if len(logs) == 0 {
		c.JSON(http.StatusOK, []ReassignedClubResponse{})
		return
	}

	ids := make([]uint, len(logs))
	for i, l := range logs {
		ids[i] = l.EntityID
	}

	var clubs []models.Club
	if err := h.db.Where("id IN ?", ids).Find(&clubs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch clubs"})
		return
	}
	byID := make(map[uint]models.Club, len(clubs))
	for _, cl := range clubs {
		byID[cl.ID] = cl
	}

	emails, err := h.fromEmails(logs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve former owners"})
		return
	}

	out := make([]ReassignedClubResponse, 0, len(logs))
	for _, l := range logs {
		club, ok := byID[l.EntityID]
		if !ok {
			continue
		}
		out = append(out, ReassignedClubResponse{
			ID:                  club.ID,
			Name:                club.Name,
			Province:            club.Province,
			Place:               club.Place,
			Members:             club.Members,
			Photo:               club.Photo,
			ReassignedFromEmail: fromEmail(l, emails),
			ReassignedAt:        l.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, out)
}

// RegisterRoutes registers reassignment history routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/races", h.Races)
	rg.GET("/clubs", h.Clubs)
}
