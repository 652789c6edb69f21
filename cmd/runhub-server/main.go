package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/runhub-dev/runhub/pkg/runhub/auth"
	"github.com/runhub-dev/runhub/pkg/runhub/clubs"
	"github.com/runhub-dev/runhub/pkg/runhub/database"
	"github.com/runhub-dev/runhub/pkg/runhub/identity"
	"github.com/runhub-dev/runhub/pkg/runhub/models"
	"github.com/runhub-dev/runhub/pkg/runhub/races"
	"github.com/runhub-dev/runhub/pkg/runhub/reassignments"
	"github.com/runhub-dev/runhub/pkg/runhub/registrations"
	"github.com/runhub-dev/runhub/pkg/runhub/users"
)

// @title RunHub API
// @version 1.0
// @description Race and club management backend with registration lifecycle and ownership reassignment.

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	// Get database path from environment or use default
	dbPath := os.Getenv("RUNHUB_DB_PATH")
	if dbPath == "" {
		dbPath = "runhub.db"
	}

	// Connect to database
	if err := database.Connect(dbPath); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Pick the identity provider: the external admin API when
	// configured, an in-process one for local development.
	provider := selectIdentityProvider()

	// Create default admin user if no admin exists
	if err := ensureAdminExists(provider); err != nil {
		log.Fatalf("Failed to ensure admin user exists: %v", err)
	}

	db := database.GetDB()
	store := identity.NewStore(db)

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		authHandler := auth.NewHandler(db, provider)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Races: browsing is public, management requires auth
		racesHandler := races.NewHandler(db, store)
		racesHandler.RegisterRoutes(api.Group("/races"))
		racesHandler.RegisterOrganizerRoutes(api.Group("/races", auth.AuthMiddleware()))

		// Clubs: browsing is public, create/manage/join require auth
		clubsHandler := clubs.NewHandler(db, store)
		clubsHandler.RegisterRoutes(api.Group("/clubs"))
		clubsHandler.RegisterMemberRoutes(api.Group("/clubs", auth.AuthMiddleware()))

		// Registration lifecycle and marks (protected)
		regHandler := registrations.NewHandler(db, store)
		authed := api.Group("", auth.AuthMiddleware())
		regHandler.RegisterRoutes(authed)
		regHandler.RegisterMarkRoutes(authed)

		// User management
		usersHandler := users.NewHandler(db, store, provider)
		usersHandler.RegisterRoutes(api.Group("/users", auth.AuthMiddleware()))
		usersHandler.RegisterAdminRoutes(api.Group("/admin/users", auth.AuthMiddleware(), auth.RequireAdmin()))

		// Reassignment history (admin only)
		reassignedHandler := reassignments.NewHandler(db, store)
		reassignedHandler.RegisterRoutes(api.Group("/admin/reassigned", auth.AuthMiddleware(), auth.RequireAdmin()))
	}

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting RunHub server on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// selectIdentityProvider picks the external identity provider from the
// environment, falling back to the in-process one for development.
func selectIdentityProvider() identity.Provider {
	baseURL := os.Getenv("IDENTITY_PROVIDER_URL")
	if baseURL == "" {
		log.Println("IDENTITY_PROVIDER_URL not set - using in-process identity provider")
		return identity.NewLocalProvider()
	}
	return identity.NewRESTProvider(baseURL, os.Getenv("IDENTITY_PROVIDER_TOKEN"))
}

// ensureAdminExists creates a default admin user if no admin exists in
// the database.
func ensureAdminExists(provider identity.Provider) error {
	db := database.GetDB()

	// Check if any admin user exists
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil // Admin already exists
	}

	uid, err := provider.CreateIdentity("admin@runhub.local", "changeme")
	if err != nil {
		return err
	}

	hashedPassword, err := auth.HashPassword("changeme")
	if err != nil {
		return err
	}

	adminUser := models.User{
		UID:          uid,
		Email:        "admin@runhub.local",
		Name:         "Admin",
		PasswordHash: hashedPassword,
		Role:         models.RoleAdmin,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Printf("Created default admin user: admin@runhub.local (password: changeme)")
	return nil
}
