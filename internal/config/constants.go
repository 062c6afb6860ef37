package config

import "time"

type JobState string

const (
	JobStateScheduled JobState = "scheduled"
	JobStatePending   JobState = "pending"
	JobStateCompleted JobState = "completed"
)

var AllowedJobStates = []JobState{JobStateScheduled, JobStatePending, JobStateCompleted}

const (
	DefaultRetryLimit          = 3
	DefaultJobDelay            = 30 * time.Second
	DefaultRetryGrace          = 3 * time.Second
	DefaultQueueAlarmThreshold = 300
	DefaultPollInterval        = 5 * time.Second
)

// Valid reports whether s is one of the states the poller knows about.
func (s JobState) Valid() bool {
	for _, v := range AllowedJobStates {
		if v == s {
			return true
		}
	}
	return false
}
