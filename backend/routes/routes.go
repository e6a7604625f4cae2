package routes

import (
	"log"

	"kosync/backend/config"
	"kosync/backend/controllers"
	"kosync/backend/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *log.Logger) {
	requireAuth := middleware.RequireAuth(logger)
	requireAdmin := middleware.RequireAdmin(logger)

	// Sync protocol routes
	syncController := controllers.NewSyncController(db, cfg, logger)
	app.Get("/", syncController.Index)
	app.Get("/healthcheck", syncController.HealthCheck)
	app.Get("/users/auth", syncController.AuthoriseUser)
	app.Post("/users/create", syncController.CreateUser)
	app.Put("/syncs/progress", requireAuth, syncController.SyncProgress)
	app.Get("/syncs/progress/:hash", requireAuth, syncController.GetProgress)

	// Management routes
	manageController := controllers.NewManageController(db, cfg, logger)
	app.Get("/manage/users", requireAdmin, manageController.GetUsers)
	app.Post("/manage/users", requireAdmin, manageController.CreateUser)
	// The documents listing allows self-access, so its ownership check
	// lives in the controller instead of the admin middleware.
	app.Get("/manage/users/documents", manageController.GetDocuments)
	app.Put("/manage/users/active", requireAdmin, manageController.UpdateUserActive)
	app.Put("/manage/users/password", requireAdmin, manageController.UpdatePassword)
}
