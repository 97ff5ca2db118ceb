// Package model contains models passed between the request layer and the
// batch workers.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/talentscore/internal/domain/assessment"
)

// Job is one queued video analysis.
type Job struct {
	ID         string
	Request    assessment.Request
	EnqueuedAt time.Time
}

// NewJob wraps req in a Job with a fresh ID.
func NewJob(req assessment.Request) Job {
	return Job{
		ID:         uuid.NewString(),
		Request:    req,
		EnqueuedAt: time.Now(),
	}
}

// Result is the outcome of a processed Job.
type Result struct {
	JobID      string                `json:"jobId"`
	VideoID    string                `json:"videoId"`
	Assessment assessment.Assessment `json:"assessment"`
	Strategy   assessment.Strategy   `json:"strategy"`
	QueuedFor  time.Duration         `json:"queuedFor"`
	Took       time.Duration         `json:"took"`
}
