// Package httperr maps service errors to the standard error envelope.
package httperr

import (
	"errors"

	"homefind-backend/internal/application/agents"
	"homefind-backend/internal/application/leads"
	"homefind-backend/internal/application/policies/ownership"
	"homefind-backend/internal/application/search"
	"homefind-backend/internal/application/user"
	"homefind-backend/internal/middleware"
	"homefind-backend/internal/pkg/response"
	"homefind-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Where the frontend sends users who must finish onboarding first.
const (
	BuyerOnboardingPath = "/onboarding"
	AgentOnboardingPath = "/dashboard/onboarding"
)

// Respond writes err as an error response.
func Respond(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, validation.ErrInvalid):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, leads.ErrOnboardingRequired), errors.Is(err, user.ErrOnboardingRequired):
		return response.Error(c, err.Error(), fiber.StatusForbidden, fiber.Map{"redirect": BuyerOnboardingPath})
	case errors.Is(err, agents.ErrAgentNotFound):
		return response.Error(c, err.Error(), fiber.StatusForbidden, fiber.Map{"redirect": AgentOnboardingPath})
	case errors.Is(err, ownership.ErrUnauthorized), errors.Is(err, agents.ErrPlanRequired):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, search.ErrListingNotFound),
		errors.Is(err, leads.ErrLeadNotFound),
		errors.Is(err, ownership.ErrNotFound),
		errors.Is(err, user.ErrProfileNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, leads.ErrAlreadyContacted):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Str("path", c.Path()).Msg("request failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

// ParamUUID parses a path parameter as a UUID.
func ParamUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, validation.Failf("Invalid %s format", name)
	}
	return id, nil
}
