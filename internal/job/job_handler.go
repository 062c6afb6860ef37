package job

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joshu-sajeev/hrqueue/common"
	"github.com/joshu-sajeev/hrqueue/internal/dto"
	"github.com/joshu-sajeev/hrqueue/middleware"
)

type JobHandler struct {
	service JobServiceInterface
}

func NewJobHandler(s JobServiceInterface) *JobHandler {
	return &JobHandler{service: s}
}

var _ JobHandlerInterface = (*JobHandler)(nil)

// RegisterRoutes mounts the job admin endpoints on r.
func RegisterRoutes(r gin.IRouter, h JobHandlerInterface) {
	jobs := r.Group("/jobs")
	jobs.POST("", h.Create)
	jobs.GET("", h.List)
	jobs.GET("/:id", h.Get)
	jobs.PATCH("/:id", h.Update)
	jobs.DELETE("/:id", h.Delete)
	jobs.POST("/:id/run", h.Run)
}

// Create handles HTTP requests for enqueueing a new job.
// It validates and binds the request body, delegates business logic
// to the JobService, and returns HTTP 201 with the stored job.
func (h *JobHandler) Create(c *gin.Context) {
	var req dto.JobCreateDTO

	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	resp, err := h.service.CreateJob(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Get handles HTTP requests to fetch a job by its ID.
func (h *JobHandler) Get(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	resp, err := h.service.GetJobByID(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// List handles HTTP requests to list jobs, optionally filtered by state
// and kind.
func (h *JobHandler) List(c *gin.Context) {
	var query dto.JobListQuery
	if !middleware.BindQuery(c, &query) {
		return
	}

	jobs, err := h.service.ListJobs(c.Request.Context(), query)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// Update handles HTTP requests to change a job's scheduling fields.
// It returns HTTP 204 on success.
func (h *JobHandler) Update(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	var req dto.JobUpdateDTO
	if !middleware.Bind(c, &req) {
		return
	}

	if err := h.service.UpdateJob(c.Request.Context(), id, &req); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Run handles HTTP requests to run a job on the next tick.
func (h *JobHandler) Run(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	if err := h.service.ForceRun(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusAccepted)
}

// Delete handles HTTP requests to cancel a job. Missing jobs are not an
// error.
func (h *JobHandler) Delete(c *gin.Context) {
	id, ok := jobID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteJob(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func jobID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id < 1 {
		c.Error(common.Errf(http.StatusBadRequest, "invalid ID"))
		return 0, false
	}
	return uint(id), true
}
