package job

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/joshu-sajeev/hrqueue/common"
	"github.com/joshu-sajeev/hrqueue/internal/config"
	"github.com/joshu-sajeev/hrqueue/internal/cronexpr"
	"github.com/joshu-sajeev/hrqueue/internal/dto"
	"github.com/joshu-sajeev/hrqueue/internal/models"
	"github.com/joshu-sajeev/hrqueue/internal/registry"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultListLimit = 100

type JobService struct {
	repo         JobRepoInterface
	kinds        KindRegistry
	defaultDelay time.Duration
}

// NewJobService returns a service that stores jobs in repo. Jobs enqueued
// without a delay wait defaultDelay before their first run.
func NewJobService(repo JobRepoInterface, kinds KindRegistry, defaultDelay time.Duration) *JobService {
	return &JobService{repo: repo, kinds: kinds, defaultDelay: defaultDelay}
}

var _ JobServiceInterface = (*JobService)(nil)

// CreateJob validates the kind, its data and the schedule, then persists a
// new scheduled job. It returns a typed API error for validation failures
// and an internal error for persistence failures.
func (s *JobService) CreateJob(ctx context.Context, req *dto.JobCreateDTO) (*dto.JobResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request canceled or timed out")
	}

	data := req.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	if !json.Valid(data) {
		return nil, common.Errf(http.StatusBadRequest, "data must be valid JSON")
	}

	job, err := s.newJob(req.Kind, data, req.Priority, req.Delay, req.Cron, req.Date)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, repoError(err, "failed to add job to database")
	}

	return toResponse(job), nil
}

// Enqueue is the typed entry point for in-process producers: the kind is
// taken from the payload type.
func (s *JobService) Enqueue(ctx context.Context, payload dto.Payload, opts dto.EnqueueOptions) (*models.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, common.Errf(http.StatusBadRequest, "encode %s payload: %v", payload.Kind(), err)
	}

	var delay *int64
	if opts.Delay != nil {
		ms := opts.Delay.Milliseconds()
		delay = &ms
	}
	var cron *string
	if opts.Cron != "" {
		cron = &opts.Cron
	}

	job, err := s.newJob(payload.Kind(), data, opts.Priority, delay, cron, opts.Date)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, repoError(err, "failed to add job to database")
	}
	return job, nil
}

func (s *JobService) newJob(kind string, data json.RawMessage, priority int, delay *int64, cron *string, date *time.Time) (*models.Job, error) {
	if !s.kinds.Has(kind) {
		return nil, common.NewAPIError(
			http.StatusBadRequest,
			"unknown job kind",
			map[string]any{
				"provided": kind,
				"allowed":  s.kinds.Kinds(),
			},
		)
	}

	if err := s.kinds.Validate(kind, data); err != nil {
		var verr *registry.ValidationError
		if errors.As(err, &verr) {
			return nil, common.NewAPIError(http.StatusBadRequest, "invalid job data", verr.Fields)
		}
		return nil, common.Errf(http.StatusBadRequest, "invalid job data: %v", err)
	}

	if cron != nil && *cron == "" {
		cron = nil
	}
	if cron != nil {
		if err := cronexpr.Validate(*cron); err != nil {
			return nil, common.Errf(http.StatusBadRequest, "%v", err)
		}
	}

	if delay == nil {
		ms := s.defaultDelay.Milliseconds()
		delay = &ms
	}
	if *delay < 0 {
		return nil, common.Errf(http.StatusBadRequest, "delay must not be negative")
	}

	return &models.Job{
		State:    config.JobStateScheduled,
		Kind:     kind,
		Data:     datatypes.JSON(data),
		Priority: priority,
		Delay:    delay,
		Date:     date,
		Cron:     cron,
	}, nil
}

// GetJobByID retrieves a job by ID.
func (s *JobService) GetJobByID(ctx context.Context, id uint) (*dto.JobResponseDTO, error) {
	job, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(job), nil
}

// ListJobs returns jobs matching the query, highest priority first.
func (s *JobService) ListJobs(ctx context.Context, query dto.JobListQuery) ([]dto.JobResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	if query.State != "" && !query.State.Valid() {
		return nil, common.NewAPIError(
			http.StatusBadRequest,
			"invalid job state",
			map[string]any{
				"provided": query.State,
				"allowed":  config.AllowedJobStates,
			},
		)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	jobs, err := s.repo.List(ctx, models.JobFilter{State: query.State, Kind: query.Kind, Limit: limit})
	if err != nil {
		return nil, repoError(err, "failed to list jobs")
	}

	dtos := make([]dto.JobResponseDTO, len(jobs))
	for i := range jobs {
		dtos[i] = *toResponse(&jobs[i])
	}
	return dtos, nil
}

// UpdateJob applies an administrative partial update. The scheduler picks
// the new values up on its next evaluation of the job.
func (s *JobService) UpdateJob(ctx context.Context, id uint, req *dto.JobUpdateDTO) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}

	if req.Cron != nil && *req.Cron != "" {
		if err := cronexpr.Validate(*req.Cron); err != nil {
			return common.Errf(http.StatusBadRequest, "%v", err)
		}
	}

	update := models.JobUpdate{
		Priority:  req.Priority,
		Delay:     req.Delay,
		Date:      req.Date,
		ClearDate: req.ClearDate,
		Cron:      req.Cron,
		Force:     req.Force,
	}
	if update.IsEmpty() {
		return common.Errf(http.StatusBadRequest, "no fields to update")
	}

	if err := s.repo.Update(ctx, id, update); err != nil {
		return repoError(err, "failed to update job")
	}
	return nil
}

// ForceRun marks a job to run on the next tick regardless of its cron
// schedule. The flag is cleared once the run succeeds.
func (s *JobService) ForceRun(ctx context.Context, id uint) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}

	force := true
	if err := s.repo.Update(ctx, id, models.JobUpdate{Force: &force}); err != nil {
		return repoError(err, "failed to force job")
	}
	return nil
}

// DeleteJob cancels a job. Deleting a job that no longer exists succeeds.
func (s *JobService) DeleteJob(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return repoError(err, "failed to delete job")
	}
	return nil
}

func (s *JobService) get(ctx context.Context, id uint) (*models.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	job, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.Errf(http.StatusNotFound, "job not found")
		}
		return nil, repoError(err, "failed to fetch job")
	}
	return job, nil
}

func repoError(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return common.Errf(http.StatusRequestTimeout, "request timed out")
	}
	return common.Errf(http.StatusInternalServerError, "%s", msg)
}

func toResponse(job *models.Job) *dto.JobResponseDTO {
	return &dto.JobResponseDTO{
		ID:        job.ID,
		State:     job.State,
		Kind:      job.Kind,
		Data:      json.RawMessage(job.Data),
		Priority:  job.Priority,
		Delay:     job.Delay,
		Date:      job.Date,
		Cron:      job.Cron,
		Retry:     job.Retry,
		Runs:      job.Runs,
		Force:     job.Force,
		Error:     job.Error,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}
