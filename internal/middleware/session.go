package middleware

import (
	"encoding/json"
	"strings"

	"homefind-backend/internal/application/identity"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// SessionCookieName is set by the identity provider's sign-in flow.
	SessionCookieName  = "homefind.sid"
	SessionRedisPrefix = "session:"
)

type sessionData struct {
	User *identity.User `json:"user"`
}

// Session loads the signed-in user from the Redis session named by the
// cookie. The API never writes sessions; sign-in and sign-out belong to the
// identity provider.
func Session(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := sessionIDFromCookie(c.Cookies(SessionCookieName))
		if sessionID == "" || rdb == nil {
			return c.Next()
		}
		b, err := rdb.Get(c.UserContext(), SessionRedisPrefix+sessionID).Bytes()
		if err != nil {
			if err != redis.Nil {
				log.Warn().Err(err).Msg("session lookup failed")
			}
			return c.Next()
		}
		var data sessionData
		if err := json.Unmarshal(b, &data); err != nil {
			log.Warn().Err(err).Msg("session decode failed")
			return c.Next()
		}
		if data.User != nil && data.User.UserID != "" {
			SetUser(c, data.User)
		}
		return c.Next()
	}
}

// Cookies may be "s:id" or "s:id.signature"; the id is the first part.
func sessionIDFromCookie(v string) string {
	if strings.HasPrefix(v, "s:") {
		v = strings.SplitN(v[2:], ".", 2)[0]
	}
	return v
}
