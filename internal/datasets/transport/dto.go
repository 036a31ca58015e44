package transport

import (
	"github.com/google/uuid"

	"marketscope_backend/internal/ingest"
)

// UploadDatasetForm binds the multipart metadata fields of a dataset upload.
// The files themselves are read from the multipart form directly.
type UploadDatasetForm struct {
	Name        string `form:"name" validate:"required,min=1,max=200"`
	Vertical    string `form:"vertical" validate:"omitempty,oneof=medspa mortgage"`
	PracticeZip string `form:"practiceZip" validate:"omitempty,zip5"`
}

type DatasetResponse struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	Vertical        string           `json:"vertical"`
	PracticeZip     string           `json:"practiceZip,omitempty"`
	CustomerRows    int              `json:"customerRows"`
	CompetitorRows  int              `json:"competitorRows"`
	DemographicRows int              `json:"demographicRows"`
	Warnings        []ingest.Warning `json:"warnings"`
	CreatedAt       string           `json:"createdAt"`
	UpdatedAt       string           `json:"updatedAt"`
}

type DatasetListResponse struct {
	Items []DatasetResponse `json:"items"`
	Total int               `json:"total"`
}

type FileDownloadResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}
