package dto

import "errors"

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrEmptyContent = errors.New("contentText is required")
)

type ConvertRequest struct {
	ContentText string         `json:"contentText"`
	Mapping     map[string]any `json:"mapping,omitempty"`
	TemplateURL string         `json:"templateUrl,omitempty"`
}

type ConvertResponse struct {
	JobID string `json:"jobId"`
}

type StatusResponse struct {
	JobID    string `json:"jobId"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	DocxURL  string `json:"docxUrl,omitempty"`
	PdfURL   string `json:"pdfUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

type UploadResponse struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}
