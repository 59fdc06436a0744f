package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"skillbridge/recommender/internal/models"
	"skillbridge/recommender/internal/services"
)

type ResumeHandler struct {
	ingest       services.IngestService
	orchestrator services.Orchestrator
	worker       services.Worker
}

func NewResumeHandler(
	ingest services.IngestService,
	orchestrator services.Orchestrator,
	worker services.Worker,
) *ResumeHandler {
	return &ResumeHandler{
		ingest:       ingest,
		orchestrator: orchestrator,
		worker:       worker,
	}
}

// HandleUpload handles POST /resume: validate the file, start a pipeline
// run, and hand it to the worker pool. Validation failures are terminal and
// local; nothing is sent to any external service.
func (h *ResumeHandler) HandleUpload(c *fiber.Ctx) error {
	userID := c.Get(headerUserID)
	if userID == "" {
		return errMissingUser(c)
	}

	fileHeader, err := c.FormFile("resume")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing 'resume' file field",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to open uploaded file",
		})
	}
	defer src.Close()

	normalized, err := h.ingest.Normalize(
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		src,
	)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			meta := models.UploadedFileMeta{
				Filename:  fileHeader.Filename,
				SizeBytes: fileHeader.Size,
				MimeType:  fileHeader.Header.Get("Content-Type"),
			}
			run, recordErr := h.orchestrator.FailValidation(userID, meta, verr)
			if recordErr != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to record run",
				})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"id":    run.ID.String(),
				"stage": models.StageValidation,
				"error": verr.Message,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read uploaded file",
		})
	}

	handle, err := h.orchestrator.Begin(userID, normalized)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to start pipeline run",
		})
	}

	if !h.worker.Enqueue(handle) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "service is busy, try again shortly",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(models.UploadResponse{
		ID:     handle.Run.ID.String(),
		Status: string(models.RunUploading),
	})
}

// The fronting auth layer resolves the session and forwards the user
// identity in this header; this service never sees credentials.
const headerUserID = "X-User-ID"

func errMissingUser(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "missing " + headerUserID + " header",
	})
}
