package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunUploading  RunStatus = "uploading"
	RunParsing    RunStatus = "parsing"
	RunMatching   RunStatus = "matching"
	RunReady      RunStatus = "ready"
	RunErrored    RunStatus = "errored"
	RunSuperseded RunStatus = "superseded"
)

// Pipeline stage tags surfaced to the client on failure. These are the only
// structured error information the UI sees.
const (
	StageValidation = "validation"
	StageUpload     = "upload"
	StageParse      = "parse"
	StageMatch      = "match"
)

// PipelineRun is one attempt to go from an uploaded resume to a job-match
// list. Skills and matches are stored as JSON so the result endpoint can be
// polled after the in-memory session is gone.
type PipelineRun struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID       string    `gorm:"type:text;not null;index" json:"user_id"`
	Filename     string    `gorm:"type:text" json:"filename"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     string    `gorm:"type:text" json:"mime_type"`
	Status       RunStatus `gorm:"not null;default:'uploading'" json:"status"`
	ResumeURL    *string   `gorm:"type:text" json:"resume_url,omitempty"`
	SkillsJSON   *string   `gorm:"type:jsonb" json:"-"`
	MatchesJSON  *string   `gorm:"type:jsonb" json:"-"`
	FailedStage  *string   `gorm:"type:text" json:"failed_stage,omitempty"`
	ErrorMessage *string   `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
