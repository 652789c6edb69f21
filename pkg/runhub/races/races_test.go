package races

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

func createTestRace(t *testing.T, db *gorm.DB, name string, organizerID *uint) models.Race {
	race := models.Race{Name: name, Place: "Madrid", Date: time.Now().Add(30 * 24 * time.Hour), OrganizerID: organizerID}
	if err := db.Create(&race).Error; err != nil {
		t.Fatalf("Failed to create test race: %v", err)
	}
	return race
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, identity.NewStore(db))

	public := r.Group("/api/races")
	handler.RegisterRoutes(public)

	authed := r.Group("/api/races", auth.AuthMiddleware())
	handler.RegisterOrganizerRoutes(authed)

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

func TestCreateRaceRequiresOrganizerRole(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "runner@example.com", models.RoleUser)

	resp := doRequest(router, "POST", "/api/races", getAuthHeader(user),
		RaceRequest{Name: "City Marathon"})
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for plain user, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateRaceSetsCallerAsOrganizer(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	organizer := createTestUser(t, db, "org@example.com", models.RoleOrganizer)

	resp := doRequest(router, "POST", "/api/races", getAuthHeader(organizer),
		RaceRequest{Name: "City Marathon", Place: "Madrid", DistanceKm: 42.195})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var race models.Race
	db.First(&race, "name = ?", "City Marathon")
	if race.OrganizerID == nil || *race.OrganizerID != organizer.ID {
		t.Errorf("Expected caller to become race organizer")
	}
}

func TestCreateRaceDuplicateNameCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	organizer := createTestUser(t, db, "org@example.com", models.RoleOrganizer)
	createTestRace(t, db, "City Marathon", &organizer.ID)

	resp := doRequest(router, "POST", "/api/races", getAuthHeader(organizer),
		RaceRequest{Name: "  city marathon  "})
	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for duplicate name, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateRaceBlankName(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	organizer := createTestUser(t, db, "org@example.com", models.RoleOrganizer)

	resp := doRequest(router, "POST", "/api/races", getAuthHeader(organizer),
		RaceRequest{Name: "   "})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for blank name, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestListMineFiltersByOrganizer(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org1 := createTestUser(t, db, "org1@example.com", models.RoleOrganizer)
	org2 := createTestUser(t, db, "org2@example.com", models.RoleOrganizer)
	createTestRace(t, db, "Race One", &org1.ID)
	createTestRace(t, db, "Race Two", &org2.ID)

	resp := doRequest(router, "GET", "/api/races/mine", getAuthHeader(org1), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var out []RaceResponse
	json.Unmarshal(resp.Body.Bytes(), &out)
	if len(out) != 1 || out[0].Name != "Race One" {
		t.Errorf("Expected only the caller's race, got %v", out)
	}
}

func TestListMineAdminSeesAll(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)
	org := createTestUser(t, db, "org@example.com", models.RoleOrganizer)
	createTestRace(t, db, "Race One", &org.ID)
	createTestRace(t, db, "Race Two", nil)

	resp := doRequest(router, "GET", "/api/races/mine", getAuthHeader(admin), nil)
	var out []RaceResponse
	json.Unmarshal(resp.Body.Bytes(), &out)
	if len(out) != 2 {
		t.Errorf("Expected admin to see all races, got %d", len(out))
	}
}

func TestUpdateRaceForbiddenForOtherOrganizer(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	owner := createTestUser(t, db, "owner@example.com", models.RoleOrganizer)
	other := createTestUser(t, db, "other@example.com", models.RoleOrganizer)
	createTestRace(t, db, "City Marathon", &owner.ID)

	resp := doRequest(router, "PUT", "/api/races/1", getAuthHeader(other),
		RaceRequest{Place: "Valencia"})
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUpdateOrganizerChangeAdminOnly(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	owner := createTestUser(t, db, "owner@example.com", models.RoleOrganizer)
	other := createTestUser(t, db, "other@example.com", models.RoleOrganizer)
	createTestRace(t, db, "City Marathon", &owner.ID)

	resp := doRequest(router, "PUT", "/api/races/1", getAuthHeader(owner),
		RaceRequest{OrganizerID: &other.ID})
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 when a non-admin changes the organizer, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUpdateOrganizerMustHoldRole(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)
	runner := createTestUser(t, db, "runner@example.com", models.RoleUser)
	createTestRace(t, db, "City Marathon", nil)

	resp := doRequest(router, "PUT", "/api/races/1", getAuthHeader(admin),
		RaceRequest{OrganizerID: &runner.ID})
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 assigning a non-organizer, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUpdateOrganizerByAdmin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@example.com", models.RoleAdmin)
	org := createTestUser(t, db, "org@example.com", models.RoleOrganizer)
	createTestRace(t, db, "City Marathon", nil)

	resp := doRequest(router, "PUT", "/api/races/1", getAuthHeader(admin),
		RaceRequest{OrganizerID: &org.ID})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var race models.Race
	db.First(&race, 1)
	if race.OrganizerID == nil || *race.OrganizerID != org.ID {
		t.Errorf("Expected organizer reassigned")
	}
}

func TestListPendingForOwnRace(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestUser(t, db, "org@example.com", models.RoleOrganizer)
	runner := createTestUser(t, db, "runner@example.com", models.RoleUser)
	race := createTestRace(t, db, "City Marathon", &org.ID)
	db.Create(&models.Registration{UserID: runner.ID, RaceID: race.ID, Status: models.StatusPending, RegistrationDate: time.Now()})

	resp := doRequest(router, "GET", "/api/races/1/pending", getAuthHeader(org), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var out []PendingRegistrationResponse
	json.Unmarshal(resp.Body.Bytes(), &out)
	if len(out) != 1 || out[0].UserEmail != "runner@example.com" {
		t.Errorf("Expected the pending registrant, got %v", out)
	}
}

func TestCancelPendingLeavesCounterAlone(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestUser(t, db, "org@example.com", models.RoleOrganizer)
	r1 := createTestUser(t, db, "r1@example.com", models.RoleUser)
	r2 := createTestUser(t, db, "r2@example.com", models.RoleUser)
	race := createTestRace(t, db, "City Marathon", &org.ID)

	// one confirmed (already counted) and one pending
	db.Model(&models.Race{}).Where("id = ?", race.ID).UpdateColumn("registered", 1)
	db.Create(&models.Registration{UserID: r1.ID, RaceID: race.ID, Status: models.StatusConfirmed, RegistrationDate: time.Now()})
	db.Create(&models.Registration{UserID: r2.ID, RaceID: race.ID, Status: models.StatusPending, RegistrationDate: time.Now()})

	resp := doRequest(router, "DELETE", "/api/races/1/pending", getAuthHeader(org), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body map[string]int64
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body["cancelled"] != 1 {
		t.Errorf("Expected 1 cancelled registration, got %d", body["cancelled"])
	}

	var reg models.Registration
	db.Where("user_id = ? AND race_id = ?", r2.ID, race.ID).First(&reg)
	if reg.Status != models.StatusCancelled {
		t.Errorf("Expected pending registration cancelled, got %s", reg.Status)
	}

	var reloaded models.Race
	db.First(&reloaded, race.ID)
	if reloaded.Registered != 1 {
		t.Errorf("Expected counter untouched at 1, got %d", reloaded.Registered)
	}
}

func TestGetRaceIsPublic(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestRace(t, db, "City Marathon", nil)

	resp := doRequest(router, "GET", "/api/races/1", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200 without auth, got %d: %s", resp.Code, resp.Body.String())
	}

	var out RaceResponse
	json.Unmarshal(resp.Body.Bytes(), &out)
	if out.Name != "City Marathon" {
		t.Errorf("Expected race in response, got %s", out.Name)
	}
}
