package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"skillbridge/recommender/internal/models"
	"skillbridge/recommender/internal/repositories"
	"skillbridge/recommender/internal/services"
)

type RecommendationHandler struct {
	orchestrator services.Orchestrator
	runRepo      repositories.RunRepository
}

func NewRecommendationHandler(
	orchestrator services.Orchestrator,
	runRepo repositories.RunRepository,
) *RecommendationHandler {
	return &RecommendationHandler{
		orchestrator: orchestrator,
		runRepo:      runRepo,
	}
}

// HandleSnapshot handles GET /recommendations: the live view of the user's
// pipeline, including the busy flag while a stage is in flight.
func (h *RecommendationHandler) HandleSnapshot(c *fiber.Ctx) error {
	userID := c.Get(headerUserID)
	if userID == "" {
		return errMissingUser(c)
	}
	return c.JSON(h.orchestrator.Snapshot(userID))
}

// HandleClear handles POST /recommendations/clear: back to idle, all
// intermediate results discarded.
func (h *RecommendationHandler) HandleClear(c *fiber.Ctx) error {
	userID := c.Get(headerUserID)
	if userID == "" {
		return errMissingUser(c)
	}
	h.orchestrator.Clear(userID)
	return c.JSON(h.orchestrator.Snapshot(userID))
}

// HandleGetRun handles GET /runs/:id for polling a specific run's outcome.
func (h *RecommendationHandler) HandleGetRun(c *fiber.Ctx) error {
	idParam := c.Params("id")
	runID, err := uuid.Parse(idParam)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid run ID format",
		})
	}

	run, err := h.runRepo.FindByID(runID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Run not found",
		})
	}

	response := models.RunResponse{
		ID:     run.ID.String(),
		Status: string(run.Status),
	}

	if run.SkillsJSON != nil {
		if err := json.Unmarshal([]byte(*run.SkillsJSON), &response.Skills); err != nil {
			response.Skills = nil
		}
	}
	if run.MatchesJSON != nil {
		if err := json.Unmarshal([]byte(*run.MatchesJSON), &response.Matches); err != nil {
			response.Matches = nil
		}
	}
	if run.ResumeURL != nil {
		response.Resume = &models.ResumeReference{
			URL:       *run.ResumeURL,
			Filename:  run.Filename,
			SizeBytes: run.SizeBytes,
			MimeType:  run.MimeType,
		}
	}
	if run.Status == models.RunErrored {
		response.FailedStage = run.FailedStage
		response.ErrorMessage = run.ErrorMessage
	}

	return c.JSON(response)
}
