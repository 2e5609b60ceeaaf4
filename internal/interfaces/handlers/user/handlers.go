package user

import (
	"homefind-backend/internal/application/search"
	usersvc "homefind-backend/internal/application/user"
	"homefind-backend/internal/interfaces/handlers/httperr"
	"homefind-backend/internal/middleware"
	"homefind-backend/internal/pkg/response"
	"homefind-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves buyer onboarding, the buyer profile and saved listings.
// Every route runs behind RequireAuth.
type Handlers struct {
	Service   *usersvc.Service
	Assembler search.Assembler
}

func parseProfile(c *fiber.Ctx) (usersvc.ProfileInput, error) {
	var in usersvc.ProfileInput
	if err := c.BodyParser(&in); err != nil {
		return in, validation.Failf("Invalid request body")
	}
	return in, nil
}

// CompleteOnboarding POST /api/v1/onboarding/user
func (h *Handlers) CompleteOnboarding(c *fiber.Ctx) error {
	in, err := parseProfile(c)
	if err != nil {
		return httperr.Respond(c, err)
	}
	p, err := h.Service.CompleteOnboarding(c.UserContext(), *middleware.CurrentUser(c), in)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.SuccessCreated(c, "Onboarding completed", p, nil)
}

// GetProfile GET /api/v1/profile
func (h *Handlers) GetProfile(c *fiber.Ctx) error {
	p, err := h.Service.GetProfile(c.UserContext(), middleware.CurrentUser(c).UserID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Profile fetched successfully", p, nil)
}

// UpdateProfile PUT /api/v1/profile
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	in, err := parseProfile(c)
	if err != nil {
		return httperr.Respond(c, err)
	}
	p, err := h.Service.UpdateProfile(c.UserContext(), middleware.CurrentUser(c).UserID, in)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Profile updated successfully", p, nil)
}

// ToggleSaved POST /api/v1/saved/:listing_id/toggle
func (h *Handlers) ToggleSaved(c *fiber.Ctx) error {
	listingID, err := httperr.ParamUUID(c, "listing_id")
	if err != nil {
		return httperr.Respond(c, err)
	}
	saved, err := h.Service.ToggleSaved(c.UserContext(), *middleware.CurrentUser(c), listingID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	msg := "Listing removed from saved"
	if saved {
		msg = "Listing saved"
	}
	return response.Success(c, msg, fiber.Map{"listing_id": listingID, "saved": saved}, nil)
}

// SavedIDs GET /api/v1/saved/ids
func (h *Handlers) SavedIDs(c *fiber.Ctx) error {
	ids, err := h.Service.SavedIDs(c.UserContext(), middleware.CurrentUser(c).UserID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Saved listing ids fetched", ids, nil)
}

// Saved GET /api/v1/saved
func (h *Handlers) Saved(c *fiber.Ctx) error {
	listings, err := h.Service.SavedListings(c.UserContext(), middleware.CurrentUser(c).UserID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return response.Success(c, "Saved listings fetched", h.Assembler.Cards(listings), nil)
}
