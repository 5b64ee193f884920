package progress

import (
	"context"
	"time"
)

// Status is the lifecycle state of a processing task.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is one task's pollable progress snapshot. Writers replace the whole
// record on every update so readers never see a half-written state.
type Record struct {
	TaskID     string `json:"task_id"`
	Status     Status `json:"status"`
	Percent    int    `json:"percent"`
	Message    string `json:"message"`
	OutputPath string `json:"output_path,omitempty"`
	// TranscriptFiles lists the transcript, subtitle, and audio artifacts
	// produced alongside the output.
	TranscriptFiles []string  `json:"transcript_files,omitempty"`
	Degraded        bool      `json:"degraded,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Store persists progress records for polling.
type Store interface {
	// Put replaces the record for its task ID, inserting if absent.
	Put(ctx context.Context, record *Record) error
	// Get returns the record for a task, or nil when unknown.
	Get(ctx context.Context, taskID string) (*Record, error)
	// List returns all records, most recently updated first.
	List(ctx context.Context) ([]*Record, error)
	Close() error
}
