package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"skillbridge/recommender/internal/models"
	"skillbridge/recommender/internal/services"
)

type TitlesHandler struct {
	orchestrator services.Orchestrator
}

func NewTitlesHandler(orchestrator services.Orchestrator) *TitlesHandler {
	return &TitlesHandler{orchestrator: orchestrator}
}

// HandleListTitles handles GET /job-titles. The catalog is fetched once and
// served from cache afterwards.
func (h *TitlesHandler) HandleListTitles(c *fiber.Ctx) error {
	titles, err := h.orchestrator.JobTitles(c.Context())
	if err != nil {
		return gatewayErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"titles": titles,
	})
}

// HandleRefreshTitles handles POST /job-titles/refresh: drop the cached
// catalog and fetch it again.
func (h *TitlesHandler) HandleRefreshTitles(c *fiber.Ctx) error {
	h.orchestrator.ClearTitleCache()
	titles, err := h.orchestrator.JobTitles(c.Context())
	if err != nil {
		return gatewayErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"titles": titles,
	})
}

// HandleTechStack handles POST /job-titles/techstack: fetch the expected
// stack for a title and reconcile it against the user's profile.
func (h *TitlesHandler) HandleTechStack(c *fiber.Ctx) error {
	userID := c.Get(headerUserID)
	if userID == "" {
		return errMissingUser(c)
	}

	var req models.TechStackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title is required",
		})
	}

	insight, err := h.orchestrator.TechStackForTitle(c.Context(), userID, req.Title)
	if err != nil {
		return gatewayErrorResponse(c, err)
	}
	return c.JSON(insight)
}

func gatewayErrorResponse(c *fiber.Ctx, err error) error {
	var gwErr *services.GatewayError
	if errors.As(err, &gwErr) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": gwErr.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}
