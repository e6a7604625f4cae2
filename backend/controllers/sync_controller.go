package controllers

import (
	"errors"
	"log"
	"time"

	"kosync/backend/config"
	"kosync/backend/middleware"
	"kosync/backend/models"
	"kosync/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncController serves the KOReader-facing endpoints: health, login check,
// self-service registration and per-document progress sync.
type SyncController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Logger *log.Logger
}

func NewSyncController(db *gorm.DB, cfg *config.Config, logger *log.Logger) *SyncController {
	return &SyncController{DB: db, Cfg: cfg, Logger: logger}
}

func (sc *SyncController) Index(c *fiber.Ctx) error {
	return c.SendString("kosync server is running.")
}

func (sc *SyncController) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"state": "OK",
	})
}

// AuthoriseUser answers the KOReader login check. Unlike every other
// endpoint it distinguishes missing credentials, unknown users and inactive
// accounts in its messages; the client surfaces them to the reader.
func (sc *SyncController) AuthoriseUser(c *fiber.Ctx) error {
	username := c.Get("x-auth-user")
	passwordHash := c.Get("x-auth-key")

	if username == "" || passwordHash == "" {
		middleware.Audit(c, sc.Logger, "Request to /users/auth without credentials")
		return utils.Message(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	identity := middleware.IdentityFrom(c)

	if !identity.Authenticated {
		middleware.Audit(c, sc.Logger, "Login to [%s] attempted with invalid credentials.", username)
		return utils.Message(c, fiber.StatusUnauthorized, "User could not be found")
	}

	if !identity.Active {
		middleware.Audit(c, sc.Logger, "Login to inactive account [%s] attempted.", username)
		return utils.Message(c, fiber.StatusUnauthorized, "User is inactive")
	}

	middleware.Audit(c, sc.Logger, "User [%s] logged in.", username)
	return c.JSON(fiber.Map{
		"username": identity.Username,
	})
}

// CreateUser is the open registration endpoint. The password field already
// carries the client-side digest and is stored verbatim — the admin creation
// endpoint hashes server-side instead, and KOReader depends on the
// difference. Failures use 402 per the sync protocol.
func (sc *SyncController) CreateUser(c *fiber.Ctx) error {
	if sc.Cfg.RegistrationDisabled {
		middleware.Audit(c, sc.Logger, "Account creation attempted but registration is disabled.")
		return utils.Message(c, fiber.StatusPaymentRequired, "User registration is disabled")
	}

	var payload models.UserCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var existing models.User
	err := sc.DB.Where("username = ?", payload.Username).First(&existing).Error
	if err == nil {
		middleware.Audit(c, sc.Logger, "Account creation attempted with existing username - [%s].", payload.Username)
		return utils.Message(c, fiber.StatusPaymentRequired, "User already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.InternalServerError(c, "Could not query database")
	}

	user := models.User{
		Username:     payload.Username,
		PasswordHash: payload.Password,
		IsActive:     true,
	}

	if err := sc.DB.Create(&user).Error; err != nil {
		// Concurrent registration of the same username loses on the
		// unique index rather than the lookup above.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Message(c, fiber.StatusPaymentRequired, "User already exists")
		}
		return utils.InternalServerError(c, "Could not create user")
	}

	middleware.Audit(c, sc.Logger, "User [%s] created.", payload.Username)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"username": payload.Username,
	})
}

// SyncProgress applies a progress push with last-write-wins semantics. The
// record for (user, document hash) is created or overwritten in one upsert
// keyed on the composite unique index, and the timestamp is always server
// time, never the client's.
func (sc *SyncController) SyncProgress(c *fiber.Ctx) error {
	var payload models.DocumentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	identity := middleware.IdentityFrom(c)

	var user models.User
	if err := sc.DB.Where("username = ?", identity.Username).First(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	document := models.Document{
		UserID:       user.ID,
		DocumentHash: payload.Document,
		Progress:     payload.Progress,
		Percentage:   payload.Percentage,
		Device:       payload.Device,
		DeviceID:     payload.DeviceID,
		Timestamp:    time.Now().UTC(),
	}

	err := sc.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "document_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"progress", "percentage", "device", "device_id", "timestamp",
		}),
	}).Create(&document).Error
	if err != nil {
		return utils.InternalServerError(c, "Could not update progress")
	}

	middleware.Audit(c, sc.Logger, "Received progress update for user [%s] from device [%s] with document hash [%s].",
		identity.Username, payload.Device, payload.Document)
	return c.JSON(fiber.Map{
		"document":  document.DocumentHash,
		"timestamp": document.Timestamp,
	})
}

// GetProgress returns the stored progress for one document hash. A hash
// that was never pushed answers 502, not 401 — KOReader treats "not found
// on server" as a normal first-sync condition, distinct from an auth error.
func (sc *SyncController) GetProgress(c *fiber.Ctx) error {
	documentHash := c.Params("hash")
	identity := middleware.IdentityFrom(c)

	var user models.User
	if err := sc.DB.Where("username = ?", identity.Username).First(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var document models.Document
	err := sc.DB.Where("user_id = ? AND document_hash = ?", user.ID, documentHash).First(&document).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		middleware.Audit(c, sc.Logger, "Document hash [%s] not found for user [%s].", documentHash, identity.Username)
		return utils.Message(c, fiber.StatusBadGateway, "Document not found on server")
	}
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	middleware.Audit(c, sc.Logger, "Received progress request for user [%s] with document hash [%s].",
		identity.Username, documentHash)
	return c.JSON(fiber.Map{
		"device":     document.Device,
		"device_id":  document.DeviceID,
		"document":   document.DocumentHash,
		"percentage": document.Percentage,
		"progress":   document.Progress,
		"timestamp":  document.Timestamp.Unix(),
	})
}
