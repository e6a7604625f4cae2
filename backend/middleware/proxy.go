package middleware

import (
	"log"
	"net"
	"strings"

	"kosync/backend/config"

	"github.com/gofiber/fiber/v2"
)

// Origin is the classified source of a request. It feeds audit logging only
// and never takes part in authorization decisions.
type Origin struct {
	ClientIP        string
	ViaTrustedProxy bool
	// Flagged marks requests that bypassed the configured proxies; audit
	// lines for them carry a "*" after the address.
	Flagged bool
}

const originKey = "origin"

// ClassifyOrigin determines the effective client address. Only connections
// from a trusted proxy may substitute the first X-Forwarded-For entry, and
// only when it parses as an IP address. The second return value reports a
// trusted proxy that failed to forward a usable address.
func ClassifyOrigin(remoteIP, forwardedFor string, trustedProxies []string) (Origin, bool) {
	origin := Origin{
		ClientIP: remoteIP,
		Flagged:  len(trustedProxies) > 0,
	}

	trusted := false
	for _, proxy := range trustedProxies {
		if proxy == remoteIP {
			trusted = true
			break
		}
	}
	if !trusted {
		return origin, false
	}

	origin.ViaTrustedProxy = true
	origin.Flagged = false

	forwarded := forwardedFor
	if i := strings.Index(forwarded, ","); i >= 0 {
		forwarded = forwarded[:i]
	}
	forwarded = strings.TrimSpace(forwarded)

	if forwarded != "" && net.ParseIP(forwarded) != nil {
		origin.ClientIP = forwarded
		return origin, false
	}

	return origin, true
}

// OriginMiddleware classifies the request source once and stores it for the
// request logger and audit lines.
func OriginMiddleware(cfg *config.Config, logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin, misconfigured := ClassifyOrigin(c.IP(), c.Get("X-Forwarded-For"), cfg.TrustedProxies)
		if misconfigured {
			logger.Printf("Trusted proxy [%s] failed to forward client IP address.", c.IP())
		}
		c.Locals(originKey, origin)
		return c.Next()
	}
}

// OriginFrom returns the classified origin, falling back to the connecting
// address when OriginMiddleware is not installed.
func OriginFrom(c *fiber.Ctx) Origin {
	if origin, ok := c.Locals(originKey).(Origin); ok {
		return origin
	}
	return Origin{ClientIP: c.IP()}
}

// Audit writes a log line prefixed with the classified client address.
func Audit(c *fiber.Ctx, logger *log.Logger, format string, args ...interface{}) {
	origin := OriginFrom(c)
	tag := ""
	if origin.Flagged {
		tag = "*"
	}
	logger.Printf("[%s]%s "+format, append([]interface{}{origin.ClientIP, tag}, args...)...)
}
