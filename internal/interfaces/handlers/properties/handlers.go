package properties

import (
	"homefind-backend/internal/application/search"
	"homefind-backend/internal/interfaces/handlers/httperr"
	"homefind-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the public search pages.
type Handlers struct {
	Service   *search.Service
	Assembler search.Assembler
}

// Search GET /api/v1/properties. Malformed query values are ignored, never rejected.
func (h *Handlers) Search(c *fiber.Ctx) error {
	filter := search.Normalize(c.Queries())
	page, err := h.Service.Search(c.UserContext(), filter)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Properties fetched successfully", fiber.Map{
		"items":      h.Assembler.Cards(page.Items),
		"totalCount": page.TotalCount,
		"totalPages": page.TotalPages,
		"page":       page.Page,
		"pageSize":   page.PageSize,
	}, fiber.Map{"filter": filter})
}

// Get GET /api/v1/properties/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := httperr.ParamUUID(c, "id")
	if err != nil {
		return httperr.Respond(c, err)
	}
	listing, err := h.Service.GetListing(c.UserContext(), id)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Property fetched successfully", h.Assembler.Card(listing), nil)
}

// Amenities GET /api/v1/amenities
func (h *Handlers) Amenities(c *fiber.Ctx) error {
	amenities, err := h.Service.Amenities(c.UserContext())
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Amenities fetched successfully", amenities, nil)
}
