package model

import "time"

// SyncRunStatus is the lifecycle state of a reconciliation run ledger row.
type SyncRunStatus string

const (
	SyncRunInProgress SyncRunStatus = "in_progress"
	SyncRunCompleted  SyncRunStatus = "completed"
)

// SyncRun is one ledger entry of a changelog reconciliation attempt. A completed
// run's Token is the low-water-mark for the next run's window. A row stuck
// in_progress after a crash blocks future runs until an operator clears it.
type SyncRun struct {
	ID          string        `json:"id"`
	Token       int64         `json:"token"`
	Status      SyncRunStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// SyncTotals holds the per-category outcome counts of one reconciliation run.
type SyncTotals struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
	Security int `json:"security"`
	Failed   int `json:"failed"`
}
