package models

import "time"

// IngestJobStatus is the lifecycle state of a menu ingest job
type IngestJobStatus string

const (
	IngestJobStatusPending     IngestJobStatus = "pending"
	IngestJobStatusRunning     IngestJobStatus = "running"
	IngestJobStatusNeedsReview IngestJobStatus = "needs_review"
	IngestJobStatusPublished   IngestJobStatus = "published"
	IngestJobStatusFailed      IngestJobStatus = "failed"
)

// Parser error codes recorded on failed or requeued jobs
const (
	IngestErrorFileNotFound = "FILE_NOT_FOUND"
	IngestErrorOCRFailed    = "OCR_FAILED"
	IngestErrorInvalidJSON  = "INVALID_JSON"
	IngestErrorDBError      = "DB_ERROR"
)

// jobTransitions is the legal transition table. A running job can be requeued
// to pending when the parser fails with a retryable error and attempts remain.
var jobTransitions = map[IngestJobStatus][]IngestJobStatus{
	IngestJobStatusPending:     {IngestJobStatusRunning, IngestJobStatusFailed},
	IngestJobStatusRunning:     {IngestJobStatusNeedsReview, IngestJobStatusPending, IngestJobStatusFailed},
	IngestJobStatusNeedsReview: {IngestJobStatusPublished, IngestJobStatusFailed},
	IngestJobStatusPublished:   {},
	IngestJobStatusFailed:      {},
}

// IsValid reports whether the status is a known lifecycle state
func (s IngestJobStatus) IsValid() bool {
	_, ok := jobTransitions[s]
	return ok
}

// IsTerminal reports whether the status permits no further transitions
func (s IngestJobStatus) IsTerminal() bool {
	return s == IngestJobStatusPublished || s == IngestJobStatusFailed
}

// CanTransition reports whether from -> to is a legal lifecycle transition
func (s IngestJobStatus) CanTransition(to IngestJobStatus) bool {
	for _, next := range jobTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsRetryableIngestError reports whether the error code allows a requeue.
// FILE_NOT_FOUND never resolves itself so the job fails immediately.
func IsRetryableIngestError(code string) bool {
	switch code {
	case IngestErrorOCRFailed, IngestErrorInvalidJSON, IngestErrorDBError:
		return true
	default:
		return false
	}
}

// IngestJob represents one menu-image-to-structured-data conversion attempt
type IngestJob struct {
	ID            string          `db:"id" json:"id"`
	TenantID      string          `db:"tenant_id" json:"tenant_id"`
	VenueID       string          `db:"venue_id" json:"venue_id"`
	FilePath      string          `db:"file_path" json:"file_path"`
	Status        IngestJobStatus `db:"status" json:"status"`
	ErrorCode     *string         `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage  *string         `db:"error_message" json:"error_message,omitempty"`
	AttemptCount  int             `db:"attempt_count" json:"attempt_count"`
	NextAttemptAt *time.Time      `db:"next_attempt_at" json:"next_attempt_at,omitempty"`
	StartedAt     *time.Time      `db:"started_at" json:"started_at,omitempty"`
	FinishedAt    *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	CreatedBy     string          `db:"created_by" json:"created_by"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// CreateIngestJobRequest is the payload for creating an ingest job
type CreateIngestJobRequest struct {
	VenueID   string `json:"venue_id" validate:"required"`
	FilePath  string `json:"file_path" validate:"required"`
	CreatedBy string `json:"created_by"`
}

// IngestJobListResponse is a paginated list of ingest jobs
type IngestJobListResponse struct {
	Jobs     []IngestJob `json:"jobs"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}
