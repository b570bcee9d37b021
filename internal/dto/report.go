package dto

import "github.com/noah-isme/school-admin-api/internal/models"

// ReportRequest captures POST /reports/generate payload.
type ReportRequest struct {
	Type           models.ReportType   `json:"type" validate:"required"`
	AcademicYearID string              `json:"academic_year_id,omitempty"`
	GradeID        string              `json:"grade_id,omitempty"`
	From           string              `json:"from,omitempty"`
	To             string              `json:"to,omitempty"`
	Format         models.ReportFormat `json:"format" validate:"required"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ReportType   `json:"type"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
