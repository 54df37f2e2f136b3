package domain

import "time"

// FailedItem is one object that could not be copied.
type FailedItem struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// ReplicationReport summarizes a bucket replication run.
// TotalProcessed always equals SuccessCount + len(FailedItems).
type ReplicationReport struct {
	SuccessCount   int          `json:"success_count"`
	TotalProcessed int          `json:"total_processed"`
	FailedItems    []FailedItem `json:"failed_files"`
}

// Backup statuses.
const (
	BackupCompleted             = "completed"
	BackupCompletedWithWarnings = "completed_with_warnings"
	BackupFailed                = "failed"
)

// BackupResult is what the admin backup trigger returns.
type BackupResult struct {
	Status     string             `json:"status"`
	Message    string             `json:"message"`
	Source     string             `json:"source"`
	Target     string             `json:"target"`
	Results    *ReplicationReport `json:"results,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// BucketHealth is the reachability of one configured bucket.
type BucketHealth struct {
	Role     string `json:"role"`
	Bucket   string `json:"bucket"`
	Presence string `json:"presence"`
	Error    string `json:"error,omitempty"`
}
