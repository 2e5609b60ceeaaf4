package middleware

import (
	"homefind-backend/internal/application/agents"
	"homefind-backend/internal/application/identity"
	"homefind-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// RequirePlan runs after RequireAuth and lets through users whose identity
// record carries plan.
func RequirePlan(provider identity.Provider, plan string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		ok, err := provider.HasActivePlan(c.UserContext(), u.UserID, plan)
		if err != nil {
			log.Error().Err(err).Str("user_id", u.UserID).Msg("plan check failed")
			return response.Error(c, "Could not verify plan", fiber.StatusInternalServerError, nil)
		}
		if !ok {
			return response.Error(c, agents.ErrPlanRequired.Error(), fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}

// CurrentUser returns the session user, or nil if not logged in.
func CurrentUser(c *fiber.Ctx) *identity.User {
	u, _ := c.Locals(userLocal).(*identity.User)
	return u
}

// SetUser puts u in Locals the way Session does. Used by tests and by
// routes that authenticate without a cookie.
func SetUser(c *fiber.Ctx, u *identity.User) {
	c.Locals(userLocal, u)
}
