package job

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshu-sajeev/hrqueue/common"
	"github.com/joshu-sajeev/hrqueue/internal/config"
	"github.com/joshu-sajeev/hrqueue/internal/dto"
	"github.com/joshu-sajeev/hrqueue/internal/mocks"
	"github.com/joshu-sajeev/hrqueue/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestRouter(svc JobServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.TimeoutMiddleware(5*time.Second), middleware.ErrorHandler())
	RegisterRoutes(r, NewJobHandler(svc))
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJobHandler_Create(t *testing.T) {
	created := &dto.JobResponseDTO{
		ID:    1,
		State: config.JobStateScheduled,
		Kind:  dto.KindDeactivateUser,
		Data:  json.RawMessage(`{"user_id":"u-1"}`),
		Delay: ptr(int64(30000)),
	}

	tests := []struct {
		name           string
		body           string
		setupMock      func(*mocks.JobServiceMock)
		expectedStatus int
	}{
		{
			name: "successful job creation",
			body: `{"kind":"user.deactivate","data":{"user_id":"u-1"}}`,
			setupMock: func(m *mocks.JobServiceMock) {
				m.On("CreateJob", mock.Anything, mock.MatchedBy(func(req *dto.JobCreateDTO) bool {
					return req.Kind == dto.KindDeactivateUser && req.Delay == nil
				})).Return(created, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid request body JSON",
			body:           "{invalid json}",
			setupMock:      func(m *mocks.JobServiceMock) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing kind",
			body:           `{"data":{}}`,
			setupMock:      func(m *mocks.JobServiceMock) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "priority out of range",
			body:           `{"kind":"ping","priority":5000}`,
			setupMock:      func(m *mocks.JobServiceMock) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown kind",
			body: `{"kind":"payroll.close_month"}`,
			setupMock: func(m *mocks.JobServiceMock) {
				m.On("CreateJob", mock.Anything, mock.Anything).
					Return(nil, common.NewAPIError(http.StatusBadRequest, "unknown job kind", map[string]any{
						"provided": "payroll.close_month",
					}))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "database connection error",
			body: `{"kind":"ping"}`,
			setupMock: func(m *mocks.JobServiceMock) {
				m.On("CreateJob", mock.Anything, mock.Anything).
					Return(nil, common.Errf(http.StatusInternalServerError, "failed to add job to database"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.JobServiceMock)
			tt.setupMock(mockService)

			w := serve(newTestRouter(mockService), http.MethodPost, "/jobs", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code, "Status code mismatch for test: %s", tt.name)
			if tt.expectedStatus == http.StatusCreated {
				var got dto.JobResponseDTO
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, uint(1), got.ID)
				assert.Equal(t, config.JobStateScheduled, got.State)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestJobHandler_Get(t *testing.T) {
	validJobResponse := &dto.JobResponseDTO{
		ID:    1,
		State: config.JobStateCompleted,
		Kind:  dto.KindPing,
		Data:  json.RawMessage(`{"message":"hi"}`),
		Runs:  1,
	}

	tests := []struct {
		name           string
		jobID          string
		setupMock      func(*mocks.JobServiceMock)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "successful fetch",
			jobID: "1",
			setupMock: func(m *mocks.JobServiceMock) {
				m.On("GetJobByID", mock.Anything, uint(1)).Return(validJobResponse, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"id":1,"state":"completed","kind":"ping","data":{"message":"hi"},"priority":0,"retry":0,"runs":1,"force":false,"created_at":"0001-01-01T00:00:00Z","updated_at":"0001-01-01T00:00:00Z"}`,
		},
		{
			name:  "job not found",
			jobID: "2",
			setupMock: func(m *mocks.JobServiceMock) {
				m.On("GetJobByID", mock.Anything, uint(2)).
					Return(nil, common.Errf(http.StatusNotFound, "job not found"))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"job not found"}`,
		},
		{
			name:           "invalid ID",
			jobID:          "abc",
			setupMock:      func(m *mocks.JobServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid ID"}`,
		},
		{
			name:           "zero ID",
			jobID:          "0",
			setupMock:      func(m *mocks.JobServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid ID"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.JobServiceMock)
			tt.setupMock(mockService)

			w := serve(newTestRouter(mockService), http.MethodGet, "/jobs/"+tt.jobID, "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}

func TestJobHandler_List(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMock      func(*mocks.JobServiceMock)
		expectedStatus int
		expectedCount  int
	}{
		{
			name:  "filters passed through",
			query: "?state=scheduled&kind=ping&limit=20",
			setupMock: func(m *mocks.JobServiceMock) {
				m.On("ListJobs", mock.Anything, dto.JobListQuery{
					State: config.JobStateScheduled,
					Kind:  dto.KindPing,
					Limit: 20,
				}).Return([]dto.JobResponseDTO{{ID: 1}, {ID: 2}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedCount:  2,
		},
		{
			name:  "no filters",
			query: "",
			setupMock: func(m *mocks.JobServiceMock) {
				m.On("ListJobs", mock.Anything, dto.JobListQuery{}).Return([]dto.JobResponseDTO{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "limit too large",
			query:          "?limit=5000",
			setupMock:      func(m *mocks.JobServiceMock) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "service error",
			query: "?state=bogus",
			setupMock: func(m *mocks.JobServiceMock) {
				m.On("ListJobs", mock.Anything, mock.Anything).
					Return(nil, common.Errf(http.StatusBadRequest, "invalid job state"))
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.JobServiceMock)
			tt.setupMock(mockService)

			w := serve(newTestRouter(mockService), http.MethodGet, "/jobs"+tt.query, "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var jobs []dto.JobResponseDTO
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
				assert.Len(t, jobs, tt.expectedCount)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestJobHandler_Update(t *testing.T) {
	tests := []struct {
		name           string
		jobID          string
		body           string
		setupMock      func(*mocks.JobServiceMock)
		expectedStatus int
	}{
		{
			name:  "successful update",
			jobID: "1",
			body:  `{"priority":3,"cron":"@daily"}`,
			setupMock: func(m *mocks.JobServiceMock) {
				m.On("UpdateJob", mock.Anything, uint(1), mock.MatchedBy(func(req *dto.JobUpdateDTO) bool {
					return *req.Priority == 3 && *req.Cron == "@daily" && req.Force == nil
				})).Return(nil)
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "invalid ID",
			jobID:          "-1",
			body:           `{"priority":3}`,
			setupMock:      func(m *mocks.JobServiceMock) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative delay",
			jobID:          "1",
			body:           `{"delay":-5}`,
			setupMock:      func(m *mocks.JobServiceMock) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "job not found",
			jobID: "1",
			body:  `{"force":true}`,
			setupMock: func(m *mocks.JobServiceMock) {
				m.On("UpdateJob", mock.Anything, uint(1), mock.Anything).
					Return(common.Errf(http.StatusNotFound, "job not found"))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.JobServiceMock)
			tt.setupMock(mockService)

			w := serve(newTestRouter(mockService), http.MethodPatch, "/jobs/"+tt.jobID, tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestJobHandler_Run(t *testing.T) {
	mockService := new(mocks.JobServiceMock)
	mockService.On("ForceRun", mock.Anything, uint(5)).Return(nil)
	mockService.On("ForceRun", mock.Anything, uint(6)).Return(common.Errf(http.StatusNotFound, "job not found"))

	r := newTestRouter(mockService)

	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/jobs/5/run", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/jobs/6/run", "").Code)
	mockService.AssertExpectations(t)
}

func TestJobHandler_Delete(t *testing.T) {
	mockService := new(mocks.JobServiceMock)
	mockService.On("DeleteJob", mock.Anything, uint(8)).Return(nil).Twice()

	r := newTestRouter(mockService)

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/jobs/8", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/jobs/8", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodDelete, "/jobs/x", "").Code)
	mockService.AssertExpectations(t)
}
