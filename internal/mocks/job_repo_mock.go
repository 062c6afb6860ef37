package mocks

import (
	"context"
	"time"

	"github.com/joshu-sajeev/hrqueue/internal/config"
	"github.com/joshu-sajeev/hrqueue/internal/models"
	"github.com/stretchr/testify/mock"
)

type JobRepoMock struct {
	mock.Mock
}

func (m *JobRepoMock) Create(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *JobRepoMock) Get(ctx context.Context, id uint) (*models.Job, error) {
	args := m.Called(ctx, id)

	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *JobRepoMock) List(ctx context.Context, filter models.JobFilter) ([]models.Job, error) {
	args := m.Called(ctx, filter)

	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

func (m *JobRepoMock) ClaimNext(ctx context.Context, state config.JobState, exclude []uint) (*models.Job, error) {
	args := m.Called(ctx, state, exclude)

	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *JobRepoMock) Update(ctx context.Context, id uint, update models.JobUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *JobRepoMock) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *JobRepoMock) ListStuckJobs(ctx context.Context, lease time.Duration) ([]models.Job, error) {
	args := m.Called(ctx, lease)

	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

func (m *JobRepoMock) Release(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
