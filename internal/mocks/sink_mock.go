package mocks

import (
	"context"

	"github.com/joshu-sajeev/hrqueue/internal/models"
	"github.com/stretchr/testify/mock"
)

type SinkMock struct {
	mock.Mock
}

func (m *SinkMock) OnError(ctx context.Context, err error, job *models.Job) {
	m.Called(ctx, err, job)
}

func (m *SinkMock) OnRetryLimitExceeded(ctx context.Context, err error, job *models.Job) {
	m.Called(ctx, err, job)
}

func (m *SinkMock) OnQueueTooLong(ctx context.Context) {
	m.Called(ctx)
}
