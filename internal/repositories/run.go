package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"skillbridge/recommender/internal/models"
)

type RunRepository interface {
	Create(run *models.PipelineRun) error
	FindByID(id uuid.UUID) (*models.PipelineRun, error)
	UpdateStatus(id uuid.UUID, status models.RunStatus) error
	UpdateResumeURL(id uuid.UUID, url string) error
	UpdateSkills(id uuid.UUID, skillsJSON string) error
	UpdateMatches(id uuid.UUID, matchesJSON string) error
	UpdateError(id uuid.UUID, stage, errorMsg string) error
	MarkSuperseded(id uuid.UUID) error
}

type runRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Create(run *models.PipelineRun) error {
	if err := r.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to create pipeline run: %w", err)
	}
	return nil
}

func (r *runRepository) FindByID(id uuid.UUID) (*models.PipelineRun, error) {
	var run models.PipelineRun
	if err := r.db.Where("id = ?", id).First(&run).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("pipeline run not found")
		}
		return nil, fmt.Errorf("failed to find pipeline run: %w", err)
	}
	return &run, nil
}

func (r *runRepository) UpdateStatus(id uuid.UUID, status models.RunStatus) error {
	return r.update(id, map[string]interface{}{
		"status": status,
	})
}

func (r *runRepository) UpdateResumeURL(id uuid.UUID, url string) error {
	return r.update(id, map[string]interface{}{
		"resume_url": url,
	})
}

func (r *runRepository) UpdateSkills(id uuid.UUID, skillsJSON string) error {
	return r.update(id, map[string]interface{}{
		"skills_json": skillsJSON,
	})
}

// UpdateMatches records the final stage's output and moves the run to ready.
func (r *runRepository) UpdateMatches(id uuid.UUID, matchesJSON string) error {
	return r.update(id, map[string]interface{}{
		"matches_json": matchesJSON,
		"status":       models.RunReady,
	})
}

func (r *runRepository) UpdateError(id uuid.UUID, stage, errorMsg string) error {
	return r.update(id, map[string]interface{}{
		"status":        models.RunErrored,
		"failed_stage":  stage,
		"error_message": errorMsg,
	})
}

func (r *runRepository) MarkSuperseded(id uuid.UUID) error {
	return r.update(id, map[string]interface{}{
		"status": models.RunSuperseded,
	})
}

func (r *runRepository) update(id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result := r.db.Model(&models.PipelineRun{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update pipeline run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("pipeline run not found")
	}
	return nil
}
