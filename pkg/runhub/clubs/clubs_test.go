package clubs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/runhub-dev/runhub/pkg/runhub/auth"
	"github.com/runhub-dev/runhub/pkg/runhub/identity"
	"github.com/runhub-dev/runhub/pkg/runhub/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
	hash, _ := auth.HashPassword("password123")
	user := models.User{
		UID:          "uid-" + email,
		Email:        email,
		PasswordHash: hash,
		Name:         "Test User",
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestClub(t *testing.T, db *gorm.DB, name string, managerID *uint) models.Club {
	club := models.Club{Name: name, Province: "Madrid", ManagerID: managerID}
	if err := db.Create(&club).Error; err != nil {
		t.Fatalf("Failed to create test club: %v", err)
	}
	return club
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, identity.NewStore(db))

	public := r.Group("/api/clubs")
	handler.RegisterRoutes(public)

	authed := r.Group("/api/clubs", auth.AuthMiddleware())
	handler.RegisterMemberRoutes(authed)

	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.UID, user.Email, string(user.Role))
	return "Bearer " + token
}

func doRequest(router *gin.Engine, method, path, authHeader string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func clubMembers(t *testing.T, db *gorm.DB, clubID uint) int {
	var club models.Club
	if err := db.First(&club, clubID).Error; err != nil {
		t.Fatalf("Failed to reload club: %v", err)
	}
	return club.Members
}

func TestCreateClubRequiresRole(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "runner@example.com", models.RoleUser)

	resp := doRequest(router, "POST", "/api/clubs", getAuthHeader(user),
		CreateClubRequest{Name: "Road Runners"})
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for plain user, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateClubSetsCallerAsManager(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	manager := createTestUser(t, db, "manager@example.com", models.RoleClubAdmin)

	resp := doRequest(router, "POST", "/api/clubs", getAuthHeader(manager),
		CreateClubRequest{Name: "Road Runners", Province: "Madrid"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var club models.Club
	db.First(&club, "name = ?", "Road Runners")
	if club.ManagerID == nil || *club.ManagerID != manager.ID {
		t.Errorf("Expected caller to become club manager")
	}
}

func TestJoinIncrementsMembers(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "runner@example.com", models.RoleUser)
	club := createTestClub(t, db, "Road Runners", nil)

	resp := doRequest(router, "PUT", "/api/clubs/1/join", getAuthHeader(user), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	if got := clubMembers(t, db, club.ID); got != 1 {
		t.Errorf("Expected members to be 1, got %d", got)
	}

	var count int64
	db.Model(&models.ClubMembership{}).Where("user_id = ? AND club_id = ?", user.ID, club.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected one membership row, got %d", count)
	}
}

func TestJoinTwiceIsConflict(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "runner@example.com", models.RoleUser)
	club := createTestClub(t, db, "Road Runners", nil)

	doRequest(router, "PUT", "/api/clubs/1/join", getAuthHeader(user), nil)
	resp := doRequest(router, "PUT", "/api/clubs/1/join", getAuthHeader(user), nil)
	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for duplicate join, got %d: %s", resp.Code, resp.Body.String())
	}

	// the conflict must not bump the counter a second time
	if got := clubMembers(t, db, club.ID); got != 1 {
		t.Errorf("Expected members to stay 1, got %d", got)
	}
}

func TestJoinUnknownClub(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "runner@example.com", models.RoleUser)

	resp := doRequest(router, "PUT", "/api/clubs/999/join", getAuthHeader(user), nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestLeaveDecrementsMembers(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "runner@example.com", models.RoleUser)
	club := createTestClub(t, db, "Road Runners", nil)

	doRequest(router, "PUT", "/api/clubs/1/join", getAuthHeader(user), nil)
	resp := doRequest(router, "PUT", "/api/clubs/1/leave", getAuthHeader(user), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	if got := clubMembers(t, db, club.ID); got != 0 {
		t.Errorf("Expected members to be 0, got %d", got)
	}
}

func TestLeaveWithoutMembership(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "runner@example.com", models.RoleUser)
	club := createTestClub(t, db, "Road Runners", nil)

	resp := doRequest(router, "PUT", "/api/clubs/1/leave", getAuthHeader(user), nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := clubMembers(t, db, club.ID); got != 0 {
		t.Errorf("Expected members untouched at 0, got %d", got)
	}
}

func TestLeaveFloorsCounterAtZero(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "runner@example.com", models.RoleUser)
	club := createTestClub(t, db, "Road Runners", nil)

	// membership row without a matching counter bump, e.g. after a manual fix
	db.Create(&models.ClubMembership{UserID: user.ID, ClubID: club.ID})

	resp := doRequest(router, "PUT", "/api/clubs/1/leave", getAuthHeader(user), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := clubMembers(t, db, club.ID); got != 0 {
		t.Errorf("Expected counter floored at 0, got %d", got)
	}
}

func TestUpdateClubByManager(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	manager := createTestUser(t, db, "manager@example.com", models.RoleClubAdmin)
	createTestClub(t, db, "Road Runners", &manager.ID)

	resp := doRequest(router, "PUT", "/api/clubs/1", getAuthHeader(manager),
		UpdateClubRequest{Place: "Valencia"})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var out ClubResponse
	json.Unmarshal(resp.Body.Bytes(), &out)
	if out.Place != "Valencia" {
		t.Errorf("Expected place updated, got %s", out.Place)
	}
}

func TestUpdateClubForbiddenForNonManager(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	manager := createTestUser(t, db, "manager@example.com", models.RoleClubAdmin)
	other := createTestUser(t, db, "other@example.com", models.RoleClubAdmin)
	createTestClub(t, db, "Road Runners", &manager.ID)

	resp := doRequest(router, "PUT", "/api/clubs/1", getAuthHeader(other),
		UpdateClubRequest{Place: "Valencia"})
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDeleteClubRemovesMemberships(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)
	member := createTestUser(t, db, "runner@example.com", models.RoleUser)
	club := createTestClub(t, db, "Road Runners", nil)
	db.Create(&models.ClubMembership{UserID: member.ID, ClubID: club.ID})

	resp := doRequest(router, "DELETE", "/api/clubs/1", getAuthHeader(admin), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.ClubMembership{}).Where("club_id = ?", club.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected memberships removed with the club, got %d", count)
	}
}

func TestListClubsIsPublic(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestClub(t, db, "Road Runners", nil)
	createTestClub(t, db, "Trail Crew", nil)

	resp := doRequest(router, "GET", "/api/clubs", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200 without auth, got %d: %s", resp.Code, resp.Body.String())
	}

	var out []ClubResponse
	json.Unmarshal(resp.Body.Bytes(), &out)
	if len(out) != 2 {
		t.Errorf("Expected 2 clubs, got %d", len(out))
	}
}
