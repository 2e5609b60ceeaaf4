package listings

import (
	"homefind-backend/internal/application/geocoding"
	listsvc "homefind-backend/internal/application/listings"
	"homefind-backend/internal/application/search"
	"homefind-backend/internal/domain"
	"homefind-backend/internal/interfaces/handlers/httperr"
	"homefind-backend/internal/middleware"
	"homefind-backend/internal/pkg/response"
	"homefind-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers serves listing management on the agent dashboard. Payloads are
// passed raw to the service, which validates them against the listing schemas.
type Handlers struct {
	Service   *listsvc.Service
	Geocoder  geocoding.Geocoder
	Assembler search.Assembler
}

// List GET /api/v1/dashboard/listings
func (h *Handlers) List(c *fiber.Ctx) error {
	listings, err := h.Service.ListForAgent(c.UserContext(), middleware.CurrentUser(c).UserID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Listings fetched successfully", h.Assembler.Cards(listings), fiber.Map{"count": len(listings)})
}

// Create POST /api/v1/dashboard/listings
func (h *Handlers) Create(c *fiber.Ctx) error {
	l, err := h.Service.Create(c.UserContext(), middleware.CurrentUser(c).UserID, c.Body())
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", h.view(l), nil)
}

// Update PUT /api/v1/dashboard/listings/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := httperr.ParamUUID(c, "id")
	if err != nil {
		return httperr.Respond(c, err)
	}
	l, err := h.Service.Update(c.UserContext(), middleware.CurrentUser(c).UserID, id, c.Body())
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Listing updated successfully", h.view(l), nil)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus PATCH /api/v1/dashboard/listings/:id/status
func (h *Handlers) UpdateStatus(c *fiber.Ctx) error {
	id, err := httperr.ParamUUID(c, "id")
	if err != nil {
		return httperr.Respond(c, err)
	}
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return httperr.Respond(c, validation.Failf("Invalid request body"))
	}
	l, err := h.Service.UpdateStatus(c.UserContext(), middleware.CurrentUser(c).UserID, id, req.Status)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Listing status updated", h.view(l), nil)
}

// Delete DELETE /api/v1/dashboard/listings/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := httperr.ParamUUID(c, "id")
	if err != nil {
		return httperr.Respond(c, err)
	}
	if err := h.Service.Delete(c.UserContext(), middleware.CurrentUser(c).UserID, id); err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Listing deleted successfully", fiber.Map{"listing_id": id}, nil)
}

// Events GET /api/v1/dashboard/listings/:id/events
func (h *Handlers) Events(c *fiber.Ctx) error {
	id, err := httperr.ParamUUID(c, "id")
	if err != nil {
		return httperr.Respond(c, err)
	}
	events, err := h.Service.Events(c.UserContext(), middleware.CurrentUser(c).UserID, id)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Listing events fetched", events, nil)
}

// Geocode GET /api/v1/dashboard/geocode?address=
func (h *Handlers) Geocode(c *fiber.Ctx) error {
	if h.Geocoder == nil {
		return response.Error(c, "Geocoding service unavailable", fiber.StatusBadGateway, nil)
	}
	address := c.Query("address")
	res, err := h.Geocoder.Geocode(c.UserContext(), address)
	if err != nil {
		log.Warn().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("geocode failed")
		return response.Error(c, "Geocoding service unavailable", fiber.StatusBadGateway, nil)
	}
	if res == nil {
		return response.Success(c, "No result", nil, nil)
	}
	return response.Success(c, "Address geocoded", fiber.Map{
		"latitude":         res.Latitude,
		"longitude":        res.Longitude,
		"formattedAddress": res.FormattedAddress,
		"geohash":          geocoding.Cell(res.Latitude, res.Longitude),
	}, nil)
}

type listingResponse struct {
	search.ListingView
	Geohash string `json:"geohash,omitempty"`
}

func (h *Handlers) view(l *domain.Listing) listingResponse {
	return listingResponse{ListingView: h.Assembler.Card(l), Geohash: l.Geohash}
}
