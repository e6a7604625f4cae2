package middleware

import (
	"log"
	"strings"

	"kosync/backend/models"
	"kosync/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Identity is the authentication verdict for one request, resolved from the
// x-auth-user / x-auth-key headers exactly once and carried as a plain value.
// Missing headers yield an anonymous identity; a digest mismatch yields
// Authenticated=false; a matching but disabled account yields
// Authenticated=true, Active=false so log lines can tell the cases apart.
type Identity struct {
	Username      string
	Authenticated bool
	Active        bool
	Admin         bool
}

const identityKey = "identity"

// ResolveIdentity looks the supplied credentials up against the user store.
// Absent credentials are a normal outcome, not an error.
func ResolveIdentity(db *gorm.DB, username, passwordHash string) Identity {
	identity := Identity{Username: username}

	if username == "" || passwordHash == "" {
		return identity
	}

	var user models.User
	err := db.Where("username = ? AND password_hash = ?", username, passwordHash).First(&user).Error
	if err != nil {
		return identity
	}

	identity.Authenticated = true
	identity.Active = user.IsActive
	identity.Admin = user.IsAdministrator

	return identity
}

// IdentityMiddleware resolves the request credentials once and stores the
// result for every downstream check.
func IdentityMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(identityKey, ResolveIdentity(db, c.Get("x-auth-user"), c.Get("x-auth-key")))
		return c.Next()
	}
}

// IdentityFrom returns the identity resolved for this request. Requests that
// never passed through IdentityMiddleware count as anonymous.
func IdentityFrom(c *fiber.Ctx) Identity {
	identity, _ := c.Locals(identityKey).(Identity)
	return identity
}

// CanAccessUser reports whether identity may operate on target's resources:
// administrators always, everyone else only on their own username.
func CanAccessUser(identity Identity, target string) bool {
	return identity.Admin || strings.EqualFold(identity.Username, target)
}

// RequireAuth admits authenticated, active users. Denials are logged with
// the resolved client address but answered with the uniform 401 body.
func RequireAuth(logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := IdentityFrom(c)

		if !identity.Authenticated {
			if identity.Username == "" {
				Audit(c, logger, "Unauthenticated %s request to %s.", c.Method(), c.Path())
			} else {
				Audit(c, logger, "Unauthenticated %s request to %s with username [%s].", c.Method(), c.Path(), identity.Username)
			}
			return utils.Unauthorized(c)
		}

		if !identity.Active {
			Audit(c, logger, "%s request to %s received from inactive user [%s].", c.Method(), c.Path(), identity.Username)
			return utils.Unauthorized(c)
		}

		return c.Next()
	}
}

// RequireAdmin admits active administrators. Check order is authentication,
// then role, then active flag; the first failing check is what gets logged.
func RequireAdmin(logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := IdentityFrom(c)

		if !identity.Authenticated {
			if identity.Username == "" {
				Audit(c, logger, "Unauthenticated %s request to %s.", c.Method(), c.Path())
			} else {
				Audit(c, logger, "Unauthenticated %s request to %s with username [%s].", c.Method(), c.Path(), identity.Username)
			}
			return utils.Unauthorized(c)
		}

		if !identity.Admin {
			Audit(c, logger, "Unauthorized %s request to %s from user [%s].", c.Method(), c.Path(), identity.Username)
			return utils.Unauthorized(c)
		}

		if !identity.Active {
			Audit(c, logger, "%s request to %s received from inactive user [%s].", c.Method(), c.Path(), identity.Username)
			return utils.Unauthorized(c)
		}

		return c.Next()
	}
}
