package models

// UserProfileSnapshot is the slice of the externally owned user profile this
// service reads and writes. The profile backend owns the entity; the core
// only reads techStack for reconciliation and replaces resumeData after a
// successful upload.
type UserProfileSnapshot struct {
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	TechStack []string         `json:"techStack"`
	Resume    *ResumeReference `json:"resumeData"`
}
