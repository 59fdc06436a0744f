package models

type UploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type TechStackRequest struct {
	Title string `json:"title" validate:"required"`
}

type RunResponse struct {
	ID           string           `json:"id"`
	Status       string           `json:"status"`
	Skills       []string         `json:"skills,omitempty"`
	Matches      []JobMatch       `json:"matches,omitempty"`
	Resume       *ResumeReference `json:"resume,omitempty"`
	FailedStage  *string          `json:"failed_stage,omitempty"`
	ErrorMessage *string          `json:"error_message,omitempty"`
}
