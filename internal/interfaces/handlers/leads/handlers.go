package leads

import (
	leadsvc "homefind-backend/internal/application/leads"
	"homefind-backend/internal/interfaces/handlers/httperr"
	"homefind-backend/internal/middleware"
	"homefind-backend/internal/pkg/response"
	"homefind-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *leadsvc.Service
}

// Create POST /api/v1/leads
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in leadsvc.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return httperr.Respond(c, validation.Failf("Invalid request body"))
	}
	lead, err := h.Service.Create(c.UserContext(), middleware.CurrentUser(c).UserID, in)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.SuccessCreated(c, "Your message has been sent to the agent", lead, nil)
}

// List GET /api/v1/dashboard/leads
func (h *Handlers) List(c *fiber.Ctx) error {
	leads, err := h.Service.ListForAgent(c.UserContext(), middleware.CurrentUser(c).UserID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Leads fetched successfully", leads, fiber.Map{"count": len(leads)})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus PATCH /api/v1/dashboard/leads/:id/status
func (h *Handlers) UpdateStatus(c *fiber.Ctx) error {
	id, err := httperr.ParamUUID(c, "id")
	if err != nil {
		return httperr.Respond(c, err)
	}
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return httperr.Respond(c, validation.Failf("Invalid request body"))
	}
	lead, err := h.Service.UpdateStatus(c.UserContext(), middleware.CurrentUser(c).UserID, id, req.Status)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Lead status updated", lead, nil)
}
