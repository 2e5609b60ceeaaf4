package auth

import (
	"homefind-backend/internal/application/identity"
	"homefind-backend/internal/application/onboarding"
	"homefind-backend/internal/interfaces/handlers/httperr"
	"homefind-backend/internal/middleware"
	"homefind-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints. Sign-in and sign-out are
// owned by the identity provider; the API only reports who is signed in.
type Handlers struct {
	Onboarding *onboarding.Reconciler
	Identity   identity.Provider
	AgentPlan  string
}

// Me GET /api/v1/auth/me. Returns the session user with their onboarding
// state, repairing stale profile flags on the way.
func (h *Handlers) Me(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		cookieVal := c.Cookies(middleware.SessionCookieName)
		log.Info().Str("path", "/auth/me").
			Bool("cookie_present", cookieVal != "").
			Msg("auth/me: returning 401 Not authenticated")
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}

	ctx := c.UserContext()
	res, err := h.Onboarding.Reconcile(ctx, user.UserID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	isAgent, err := h.Identity.HasActivePlan(ctx, user.UserID, h.AgentPlan)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.UserID).Msg("auth/me: plan check failed")
	}

	data := fiber.Map{
		"user":       user,
		"onboarding": res,
		"isAgent":    isAgent,
	}
	if !res.Complete() {
		data["redirect"] = httperr.BuyerOnboardingPath
		if isAgent {
			data["redirect"] = httperr.AgentOnboardingPath
		}
	}
	return response.Success(c, "Authenticated", data, nil)
}
