package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joshu-sajeev/hrqueue/internal/config"
	"github.com/joshu-sajeev/hrqueue/internal/job"
	"github.com/joshu-sajeev/hrqueue/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

var _ job.JobRepoInterface = (*JobRepository)(nil)

// Create inserts a new job record into the database. It uses the provided
// context for cancellation and timeout propagation. Returns an error if the
// database operation fails.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// Get retrieves a single job record by its ID. Returns the job if found,
// or an error wrapping gorm.ErrRecordNotFound if the job doesn't exist.
func (r *JobRepository) Get(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job not found: %w", err)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// List retrieves jobs matching the filter, highest priority first.
func (r *JobRepository) List(ctx context.Context, filter models.JobFilter) ([]models.Job, error) {
	q := r.db.WithContext(ctx).Model(&models.Job{})
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var jobs []models.Job
	if err := q.Order("priority DESC").Order("id ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// ClaimNext atomically picks the highest-priority job in state that is not
// in exclude and moves it to pending. On PostgreSQL the row is selected with
// FOR UPDATE SKIP LOCKED so concurrent claimers never see the same row; other
// dialects rely on the transaction plus the state guard on the update.
// Claiming leaves updated_at untouched: it is the reference time for cron
// evaluation. Returns nil, nil when nothing is claimable.
func (r *JobRepository) ClaimNext(ctx context.Context, state config.JobState, exclude []uint) (*models.Job, error) {
	var claimed *models.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("state = ?", state)
		if len(exclude) > 0 {
			q = q.Where("id NOT IN ?", exclude)
		}
		if r.supportsSkipLocked() {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var job models.Job
		if err := q.Order("priority DESC").Order("id ASC").Take(&job).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		now := r.db.NowFunc()
		res := tx.Model(&models.Job{}).
			Where("id = ? AND state = ?", job.ID, state).
			UpdateColumns(map[string]any{
				"state":      config.JobStatePending,
				"claimed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		job.State = config.JobStatePending
		job.ClaimedAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim next %s job: %w", state, err)
	}
	return claimed, nil
}

// Update applies a partial update. Updating a missing row is not an error.
func (r *JobRepository) Update(ctx context.Context, id uint, update models.JobUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	cols := update.Columns()
	if update.IncrementRuns {
		cols["runs"] = gorm.Expr("runs + ?", 1)
	}

	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(cols).Error; err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// Delete removes the job. Deleting a missing row is not an error.
func (r *JobRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Job{}, id).Error; err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// ListStuckJobs returns pending jobs claimed more than lease ago.
func (r *JobRepository) ListStuckJobs(ctx context.Context, lease time.Duration) ([]models.Job, error) {
	cutoff := r.db.NowFunc().Add(-lease)

	var jobs []models.Job
	if err := r.db.WithContext(ctx).
		Where("state = ? AND claimed_at < ?", config.JobStatePending, cutoff).
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list stuck jobs: %w", err)
	}
	return jobs, nil
}

// Release returns a pending job to scheduled. A job that already left
// pending is left alone.
func (r *JobRepository) Release(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND state = ?", id, config.JobStatePending).
		Updates(map[string]any{"state": config.JobStateScheduled, "claimed_at": nil}).Error; err != nil {
		return fmt.Errorf("release job: %w", err)
	}
	return nil
}

func (r *JobRepository) supportsSkipLocked() bool {
	return r.db.Dialector.Name() == "postgres"
}
