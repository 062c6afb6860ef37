package models

import (
	"time"

	"github.com/joshu-sajeev/hrqueue/internal/config"
	"gorm.io/datatypes"
)

// Job is a deferred or recurring unit of work persisted in the jobs table.
// Delay is expressed in milliseconds and measured from CreatedAt; Date, when
// set, supersedes it.
type Job struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	State     config.JobState `gorm:"type:varchar(20);not null;default:'scheduled';index;index:idx_jobs_state_priority,priority:1"`
	Kind      string          `gorm:"type:varchar(255);not null;index"`
	Data      datatypes.JSON  `gorm:"type:jsonb"`
	Priority  int             `gorm:"not null;default:0;index:idx_jobs_state_priority,priority:2"`
	Delay     *int64
	Date      *time.Time
	Cron      *string `gorm:"type:varchar(255)"`
	Retry     int     `gorm:"not null;default:0"`
	Runs      int     `gorm:"not null;default:0"`
	Force     bool    `gorm:"not null;default:false"`
	Error     *string `gorm:"type:text"`
	ClaimedAt *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// IsRecurring reports whether the job carries a cron expression.
func (j *Job) IsRecurring() bool {
	return j.Cron != nil && *j.Cron != ""
}

// JobFilter narrows List results. Zero values match everything.
type JobFilter struct {
	State config.JobState
	Kind  string
	Limit int
}

// JobUpdate is a partial update of a job row. Nil fields are left untouched.
type JobUpdate struct {
	State         *config.JobState
	Error         *string
	Retry         *int
	Delay         *int64
	Date          *time.Time
	ClearDate     bool
	Cron          *string
	Priority      *int
	Force         *bool
	IncrementRuns bool
}

// Columns converts the update into the column map handed to the store.
func (u JobUpdate) Columns() map[string]any {
	cols := make(map[string]any)
	if u.State != nil {
		cols["state"] = *u.State
	}
	if u.Error != nil {
		cols["error"] = *u.Error
	}
	if u.Retry != nil {
		cols["retry"] = *u.Retry
	}
	if u.Delay != nil {
		cols["delay"] = *u.Delay
	}
	if u.ClearDate {
		cols["date"] = nil
	} else if u.Date != nil {
		cols["date"] = *u.Date
	}
	if u.Cron != nil {
		cols["cron"] = *u.Cron
	}
	if u.Priority != nil {
		cols["priority"] = *u.Priority
	}
	if u.Force != nil {
		cols["force"] = *u.Force
	}
	return cols
}

func (u JobUpdate) IsEmpty() bool {
	return len(u.Columns()) == 0 && !u.IncrementRuns
}
