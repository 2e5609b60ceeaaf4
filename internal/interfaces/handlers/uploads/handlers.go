package uploads

import (
	"errors"

	agentsvc "homefind-backend/internal/application/agents"
	uploadsvc "homefind-backend/internal/application/uploads"
	"homefind-backend/internal/interfaces/handlers/httperr"
	"homefind-backend/internal/middleware"
	"homefind-backend/internal/pkg/response"
	"homefind-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
	Agents  *agentsvc.Service
}

type uploadRequest struct {
	FileName string `json:"file_name"`
}

// ListingImage POST /api/v1/dashboard/uploads/listing-image
func (h *Handlers) ListingImage(c *fiber.Ctx) error {
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil || req.FileName == "" {
		return response.Error(c, "file_name is required", fiber.StatusBadRequest, nil)
	}

	agent, err := h.Agents.GetProfile(c.UserContext(), middleware.CurrentUser(c).UserID)
	if err != nil {
		return httperr.Respond(c, err)
	}

	res, err := h.Service.ListingImageURL(c.UserContext(), agent.AgentID, req.FileName)
	if err != nil {
		if errors.Is(err, validation.ErrInvalid) {
			return httperr.Respond(c, err)
		}
		log.Error().Err(err).Str("bucket", uploadsvc.ListingImagesBucket).Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}
