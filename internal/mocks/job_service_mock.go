package mocks

import (
	"context"

	"github.com/joshu-sajeev/hrqueue/internal/dto"
	"github.com/joshu-sajeev/hrqueue/internal/models"
	"github.com/stretchr/testify/mock"
)

type JobServiceMock struct {
	mock.Mock
}

func (m *JobServiceMock) CreateJob(ctx context.Context, req *dto.JobCreateDTO) (*dto.JobResponseDTO, error) {
	args := m.Called(ctx, req)

	resp, _ := args.Get(0).(*dto.JobResponseDTO)
	return resp, args.Error(1)
}

func (m *JobServiceMock) Enqueue(ctx context.Context, payload dto.Payload, opts dto.EnqueueOptions) (*models.Job, error) {
	args := m.Called(ctx, payload, opts)

	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *JobServiceMock) GetJobByID(ctx context.Context, id uint) (*dto.JobResponseDTO, error) {
	args := m.Called(ctx, id)

	resp, _ := args.Get(0).(*dto.JobResponseDTO)
	return resp, args.Error(1)
}

func (m *JobServiceMock) ListJobs(ctx context.Context, query dto.JobListQuery) ([]dto.JobResponseDTO, error) {
	args := m.Called(ctx, query)

	jobs, _ := args.Get(0).([]dto.JobResponseDTO)
	return jobs, args.Error(1)
}

func (m *JobServiceMock) UpdateJob(ctx context.Context, id uint, req *dto.JobUpdateDTO) error {
	args := m.Called(ctx, id, req)
	return args.Error(0)
}

func (m *JobServiceMock) ForceRun(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *JobServiceMock) DeleteJob(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
