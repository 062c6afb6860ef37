package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshu-sajeev/hrqueue/internal/config"
	"github.com/joshu-sajeev/hrqueue/internal/dto"
	"github.com/joshu-sajeev/hrqueue/internal/models"
)

// JobRepoInterface defines the contract for job repository operations.
type JobRepoInterface interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id uint) (*models.Job, error)
	List(ctx context.Context, filter models.JobFilter) ([]models.Job, error)
	ClaimNext(ctx context.Context, state config.JobState, exclude []uint) (*models.Job, error)
	Update(ctx context.Context, id uint, update models.JobUpdate) error
	Delete(ctx context.Context, id uint) error
	ListStuckJobs(ctx context.Context, lease time.Duration) ([]models.Job, error)
	Release(ctx context.Context, id uint) error
}

// KindRegistry is the part of the handler registry the service validates
// enqueue requests against.
type KindRegistry interface {
	Has(kind string) bool
	Kinds() []string
	Validate(kind string, raw json.RawMessage) error
}

// JobServiceInterface defines the contract for job business logic operations.
type JobServiceInterface interface {
	CreateJob(ctx context.Context, req *dto.JobCreateDTO) (*dto.JobResponseDTO, error)
	Enqueue(ctx context.Context, payload dto.Payload, opts dto.EnqueueOptions) (*models.Job, error)
	GetJobByID(ctx context.Context, id uint) (*dto.JobResponseDTO, error)
	ListJobs(ctx context.Context, query dto.JobListQuery) ([]dto.JobResponseDTO, error)
	UpdateJob(ctx context.Context, id uint, req *dto.JobUpdateDTO) error
	ForceRun(ctx context.Context, id uint) error
	DeleteJob(ctx context.Context, id uint) error
}

// JobHandlerInterface defines the contract for HTTP request handlers.
type JobHandlerInterface interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
	Update(c *gin.Context)
	Run(c *gin.Context)
	Delete(c *gin.Context)
}
