// Package retry decides what happens to a job whose handler failed.
package retry

import (
	"time"

	"github.com/joshu-sajeev/hrqueue/internal/config"
	"github.com/joshu-sajeev/hrqueue/internal/models"
)

// Policy retries a failing job until Limit failures have been recorded,
// waiting linearly longer each time.
type Policy struct {
	Limit     int
	BaseDelay time.Duration
	// GraceUnit is how long the poller holds a failed job before writing the
	// retry, multiplied by the attempt number.
	GraceUnit time.Duration
}

func NewPolicy(limit int, baseDelay, graceUnit time.Duration) Policy {
	return Policy{Limit: limit, BaseDelay: baseDelay, GraceUnit: graceUnit}
}

func DefaultPolicy() Policy {
	return NewPolicy(config.DefaultRetryLimit, config.DefaultJobDelay, config.DefaultRetryGrace)
}

// ShouldRetry counts the failure being handled together with job.Retry.
// With Limit 3 the third consecutive failure abandons the job.
func (p Policy) ShouldRetry(job *models.Job) bool {
	return job.Retry+1 < p.Limit
}

// NextDelay is BaseDelay * (retry+1).
func (p Policy) NextDelay(job *models.Job) time.Duration {
	return p.BaseDelay * time.Duration(job.Retry+1)
}

func (p Policy) Grace(job *models.Job) time.Duration {
	return p.GraceUnit * time.Duration(job.Retry+1)
}
