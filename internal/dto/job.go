package dto

import (
	"encoding/json"
	"time"

	"github.com/joshu-sajeev/hrqueue/internal/config"
)

// JobCreateDTO is the enqueue request. Delay is in milliseconds; a nil Delay
// falls back to the configured default job delay.
type JobCreateDTO struct {
	Kind     string          `json:"kind" validate:"required"`
	Data     json.RawMessage `json:"data"`
	Priority int             `json:"priority" validate:"gte=-1000,lte=1000"`
	Delay    *int64          `json:"delay,omitempty" validate:"omitempty,gte=0"`
	Cron     *string         `json:"cron,omitempty"`
	Date     *time.Time      `json:"date,omitempty"`
}

// JobUpdateDTO is the administrative partial update. Omitted fields are kept.
type JobUpdateDTO struct {
	Priority  *int       `json:"priority,omitempty" validate:"omitempty,gte=-1000,lte=1000"`
	Delay     *int64     `json:"delay,omitempty" validate:"omitempty,gte=0"`
	Date      *time.Time `json:"date,omitempty"`
	ClearDate bool       `json:"clear_date,omitempty"`
	Cron      *string    `json:"cron,omitempty"`
	Force     *bool      `json:"force,omitempty"`
}

// EnqueueOptions are the scheduling knobs of a typed enqueue.
type EnqueueOptions struct {
	Priority int
	Delay    *time.Duration
	Cron     string
	Date     *time.Time
}

type JobResponseDTO struct {
	ID        uint            `json:"id"`
	State     config.JobState `json:"state"`
	Kind      string          `json:"kind"`
	Data      json.RawMessage `json:"data,omitempty"`
	Priority  int             `json:"priority"`
	Delay     *int64          `json:"delay,omitempty"`
	Date      *time.Time      `json:"date,omitempty"`
	Cron      *string         `json:"cron,omitempty"`
	Retry     int             `json:"retry"`
	Runs      int             `json:"runs"`
	Force     bool            `json:"force"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type JobListQuery struct {
	State config.JobState `form:"state"`
	Kind  string          `form:"kind"`
	Limit int             `form:"limit" validate:"gte=0,lte=1000"`
}
