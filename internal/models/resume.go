package models

import "time"

// UploadedFileMeta describes an uploaded resume without carrying its payload.
// The payload itself lives on the normalized file and is dropped once the
// pipeline run that consumed it finishes.
type UploadedFileMeta struct {
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
	PageCount int    `json:"page_count,omitempty"`
}

// ResumeReference is the durable pointer written into the user's profile
// after a successful upload. It survives any downstream recommendation
// failure.
type ResumeReference struct {
	URL        string    `json:"url"`
	PublicID   string    `json:"public_id,omitempty"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}
