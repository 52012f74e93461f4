package model

import (
	"fmt"
	"time"
)

// SyncStatus is the lifecycle state of one per-property sync operation.
type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "pending"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
)

// SyncOperation records one attempt to push a property's rate calendar to
// the channel, including retry accounting and the final classification.
// Terminal states are Completed and Failed.
type SyncOperation struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	PropertyID    int64      `json:"property_id" gorm:"index;not null"`
	Status        SyncStatus `json:"status" gorm:"size:16;not null"`
	AttemptNumber int        `json:"attempt_number"`
	MaxAttempts   int        `json:"max_attempts"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	DurationMs    *int64     `json:"duration_ms,omitempty"`
	HTTPStatus    *int       `json:"http_status,omitempty"`
	ErrorType     string     `json:"error_type,omitempty" gorm:"size:32"`
	ErrorMessage  *string    `json:"error_message,omitempty" gorm:"type:text"`
	Recoverable   bool       `json:"recoverable"`
}

// TableName maps SyncOperation to the sync_operations table.
func (SyncOperation) TableName() string {
	return "sync_operations"
}

// Complete marks the operation as successfully finished.
func (op *SyncOperation) Complete(httpStatus int) {
	now := time.Now().UTC()
	op.Status = SyncStatusCompleted
	op.CompletedAt = &now
	ms := now.Sub(op.StartedAt).Milliseconds()
	op.DurationMs = &ms
	op.HTTPStatus = &httpStatus
}

// Fail marks the operation as terminally failed with its classification.
func (op *SyncOperation) Fail(errorType string, message string, recoverable bool) {
	now := time.Now().UTC()
	op.Status = SyncStatusFailed
	op.CompletedAt = &now
	ms := now.Sub(op.StartedAt).Milliseconds()
	op.DurationMs = &ms
	op.ErrorType = errorType
	op.ErrorMessage = &message
	op.Recoverable = recoverable
}

// BatchSyncResult aggregates the per-property operations of one batch push.
// Results keep submission order.
type BatchSyncResult struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Results    []*SyncOperation `json:"results"`
	Duration   time.Duration    `json:"duration"`
	Summary    string           `json:"summary"`
}

// Summarize fills the counters and the human-readable summary line from the
// collected results.
func (r *BatchSyncResult) Summarize(duration time.Duration) {
	r.Successful = 0
	r.Failed = 0
	for _, op := range r.Results {
		if op.Status == SyncStatusCompleted {
			r.Successful++
		} else {
			r.Failed++
		}
	}
	r.Duration = duration
	r.Summary = fmt.Sprintf("synced %d/%d properties (%d failed) in %s",
		r.Successful, r.Total, r.Failed, duration.Round(time.Millisecond))
}
