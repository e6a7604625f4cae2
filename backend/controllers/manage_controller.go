package controllers

import (
	"errors"
	"log"
	"strings"

	"kosync/backend/config"
	"kosync/backend/middleware"
	"kosync/backend/models"
	"kosync/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ManageController serves the /manage administration surface. All routes
// except the documents listing sit behind RequireAdmin; the documents
// listing additionally admits a user asking for their own records.
type ManageController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Logger *log.Logger
}

func NewManageController(db *gorm.DB, cfg *config.Config, logger *log.Logger) *ManageController {
	return &ManageController{DB: db, Cfg: cfg, Logger: logger}
}

// GetUsers lists every account as a summary projection. Password digests
// are never included.
func (mc *ManageController) GetUsers(c *fiber.Ctx) error {
	identity := middleware.IdentityFrom(c)

	var users []models.User
	if err := mc.DB.Order("created_at").Find(&users).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	summaries := make([]fiber.Map, 0, len(users))
	for _, user := range users {
		var documentCount int64
		mc.DB.Model(&models.Document{}).Where("user_id = ?", user.ID).Count(&documentCount)

		summaries = append(summaries, fiber.Map{
			"id":              user.ID,
			"username":        user.Username,
			"isAdministrator": user.IsAdministrator,
			"isActive":        user.IsActive,
			"documentCount":   documentCount,
		})
	}

	middleware.Audit(c, mc.Logger, "User [%s] requested /manage/users", identity.Username)
	return c.JSON(summaries)
}

// CreateUser creates an account from a plaintext password, hashed
// server-side. Contrast with the public registration endpoint, which stores
// the client-supplied digest verbatim.
func (mc *ManageController) CreateUser(c *fiber.Ctx) error {
	identity := middleware.IdentityFrom(c)

	var payload models.UserCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var existing models.User
	err := mc.DB.Where("username = ?", payload.Username).First(&existing).Error
	if err == nil {
		return utils.BadRequest(c, "User already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.InternalServerError(c, "Could not query database")
	}

	user := models.User{
		Username:        payload.Username,
		PasswordHash:    utils.HashPassword(payload.Password),
		IsActive:        true,
		IsAdministrator: false,
	}

	if err := mc.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.BadRequest(c, "User already exists")
		}
		return utils.InternalServerError(c, "Could not create user")
	}

	middleware.Audit(c, mc.Logger, "User [%s] created by user [%s]", payload.Username, identity.Username)
	return utils.Message(c, fiber.StatusOK, "User created successfully")
}

// GetDocuments lists the progress records of the requested user. Admins may
// ask for anyone; a regular user only for themselves. The ownership check
// runs between the authentication and active checks, matching the denial
// order everywhere else.
func (mc *ManageController) GetDocuments(c *fiber.Ctx) error {
	identity := middleware.IdentityFrom(c)
	username := c.Query("username")

	if !identity.Authenticated {
		if identity.Username == "" {
			middleware.Audit(c, mc.Logger, "Unauthenticated GET request to /manage/users/documents.")
		} else {
			middleware.Audit(c, mc.Logger, "Unauthenticated GET request to /manage/users/documents with username [%s].", identity.Username)
		}
		return utils.Unauthorized(c)
	}

	if !middleware.CanAccessUser(identity, username) {
		middleware.Audit(c, mc.Logger, "Unauthorized GET request to /manage/users/documents from user [%s].", identity.Username)
		return utils.Unauthorized(c)
	}

	if !identity.Active {
		middleware.Audit(c, mc.Logger, "GET request to /manage/users/documents received from inactive user [%s].", identity.Username)
		return utils.Unauthorized(c)
	}

	var user models.User
	err := mc.DB.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.BadRequest(c, "User does not exist")
	}
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var documents []models.Document
	if err := mc.DB.Where("user_id = ?", user.ID).Order("document_hash").Find(&documents).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	middleware.Audit(c, mc.Logger, "User [%s]'s documents requested by [%s]", username, identity.Username)
	return c.JSON(documents)
}

// UpdateUserActive flips the active flag of the target user. The admin
// account cannot be toggled.
func (mc *ManageController) UpdateUserActive(c *fiber.Ctx) error {
	identity := middleware.IdentityFrom(c)
	username := c.Query("username")

	if username == "admin" {
		middleware.Audit(c, mc.Logger, "Attempt to toggle admin user active from user [%s].", identity.Username)
		return utils.BadRequest(c, "Cannot update admin user")
	}

	var user models.User
	err := mc.DB.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		middleware.Audit(c, mc.Logger, "PUT request to /manage/users/active received from [%s] but target username [%s] does not exist.", identity.Username, username)
		return utils.BadRequest(c, "User does not exist")
	}
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	user.IsActive = !user.IsActive
	if err := mc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user")
	}

	state := "inactive"
	if user.IsActive {
		state = "active"
	}
	middleware.Audit(c, mc.Logger, "User [%s] set to %s by user [%s]", username, state, identity.Username)

	if user.IsActive {
		return utils.Message(c, fiber.StatusOK, "User marked as active")
	}
	return utils.Message(c, fiber.StatusOK, "User marked as inactive")
}

// UpdatePassword rotates the target user's password, hashed server-side.
// Blank or whitespace-only passwords are rejected because KOReader will not
// log in with one; the admin account is rotated via ADMIN_PASSWORD instead.
func (mc *ManageController) UpdatePassword(c *fiber.Ctx) error {
	identity := middleware.IdentityFrom(c)
	username := c.Query("username")

	var payload models.PasswordChangeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if strings.TrimSpace(payload.Password) == "" {
		return utils.BadRequest(c, "Password cannot be empty or whitespace")
	}

	if username == "admin" {
		middleware.Audit(c, mc.Logger, "Attempt to change admin password from user [%s].", identity.Username)
		return utils.BadRequest(c, "Cannot update admin user")
	}

	var user models.User
	err := mc.DB.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		middleware.Audit(c, mc.Logger, "Password change request received from [%s] but target username [%s] does not exist.", identity.Username, username)
		return utils.BadRequest(c, "User does not exist")
	}
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	user.PasswordHash = utils.HashPassword(payload.Password)
	if err := mc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user")
	}

	middleware.Audit(c, mc.Logger, "User [%s]'s password updated by [%s].", username, identity.Username)
	return utils.Message(c, fiber.StatusOK, "Password changed successfully")
}
