package models

import (
	"time"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusSucceeded  JobStatus = "succeeded"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition can leave the status.
func (s JobStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job is a single manuscript conversion request and its lifecycle record.
// DocxURL/PdfURL are only set once the job has succeeded; ErrorMessage only
// once it has failed.
type Job struct {
	ID           string
	TraceID      string
	ContentText  string
	Mapping      map[string]any
	TemplateURL  string
	Status       JobStatus
	Progress     int
	DocxURL      string
	PdfURL       string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}
