package agents

import (
	agentsvc "homefind-backend/internal/application/agents"
	"homefind-backend/internal/application/analytics"
	"homefind-backend/internal/interfaces/handlers/httperr"
	"homefind-backend/internal/middleware"
	"homefind-backend/internal/pkg/response"
	"homefind-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the agent profile and the dashboard numbers.
type Handlers struct {
	Service *agentsvc.Service
	Reports *analytics.Service
}

// Ensure POST /api/v1/dashboard/agent. Creates the agent profile on first visit.
func (h *Handlers) Ensure(c *fiber.Ctx) error {
	agent, created, err := h.Service.EnsureAgent(c.UserContext(), *middleware.CurrentUser(c))
	if err != nil {
		return httperr.Respond(c, err)
	}
	data := fiber.Map{"agent": agent, "created": created}
	if !agent.IsComplete() {
		data["redirect"] = httperr.AgentOnboardingPath
	}
	if created {
		return response.SuccessCreated(c, "Agent profile created", data, nil)
	}
	return response.Success(c, "Agent profile fetched", data, nil)
}

func parseProfile(c *fiber.Ctx) (agentsvc.ProfileInput, error) {
	var in agentsvc.ProfileInput
	if err := c.BodyParser(&in); err != nil {
		return in, validation.Failf("Invalid request body")
	}
	return in, nil
}

// CompleteOnboarding POST /api/v1/dashboard/onboarding
func (h *Handlers) CompleteOnboarding(c *fiber.Ctx) error {
	in, err := parseProfile(c)
	if err != nil {
		return httperr.Respond(c, err)
	}
	agent, err := h.Service.CompleteOnboarding(c.UserContext(), middleware.CurrentUser(c).UserID, in)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Agent onboarding completed", agent, nil)
}

// GetProfile GET /api/v1/dashboard/profile
func (h *Handlers) GetProfile(c *fiber.Ctx) error {
	agent, err := h.Service.GetProfile(c.UserContext(), middleware.CurrentUser(c).UserID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Agent profile fetched", agent, nil)
}

// UpdateProfile PUT /api/v1/dashboard/profile
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	in, err := parseProfile(c)
	if err != nil {
		return httperr.Respond(c, err)
	}
	agent, err := h.Service.UpdateProfile(c.UserContext(), middleware.CurrentUser(c).UserID, in)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Agent profile updated", agent, nil)
}

// Stats GET /api/v1/dashboard/stats
func (h *Handlers) Stats(c *fiber.Ctx) error {
	agent, err := h.Service.GetProfile(c.UserContext(), middleware.CurrentUser(c).UserID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	stats, err := h.Reports.Dashboard(c.UserContext(), agent.AgentID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Dashboard stats fetched", stats, nil)
}

// Analytics GET /api/v1/dashboard/analytics
func (h *Handlers) Analytics(c *fiber.Ctx) error {
	agent, err := h.Service.GetProfile(c.UserContext(), middleware.CurrentUser(c).UserID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	report, err := h.Reports.Analytics(c.UserContext(), agent.AgentID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Analytics fetched", report, nil)
}
