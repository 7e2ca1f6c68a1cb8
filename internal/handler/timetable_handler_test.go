package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/uniportal-api/internal/dto"
	internalmiddleware "github.com/opencampus/uniportal-api/internal/middleware"
	"github.com/opencampus/uniportal-api/internal/models"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
)

type gridGeneratorMock struct {
	captured dto.GenerateGridRequest
	err      error
}

func (m *gridGeneratorMock) Generate(_ context.Context, req dto.GenerateGridRequest) (*dto.GenerateGridResponse, error) {
	m.captured = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.GenerateGridResponse{}, nil
}

type lifecycleMock struct {
	publishErr error
}

func (m *lifecycleMock) CreateDraft(context.Context, *models.JWTClaims, dto.CreateTimetableRequest) (*models.Timetable, error) {
	return &models.Timetable{ID: "tt-new"}, nil
}

func (m *lifecycleMock) Get(context.Context, string, string) (*models.Timetable, error) {
	return nil, nil
}

func (m *lifecycleMock) List(context.Context, string, models.TimetableFilter) ([]models.Timetable, int, error) {
	return nil, 0, nil
}

func (m *lifecycleMock) UpdateDraftGrid(context.Context, *models.JWTClaims, string, string, []models.TimetableDay, *string) (*models.Timetable, error) {
	return nil, nil
}

func (m *lifecycleMock) Publish(context.Context, *models.JWTClaims, string, string) (*dto.PublishResult, error) {
	if m.publishErr != nil {
		return nil, m.publishErr
	}
	return &dto.PublishResult{TimetableID: "tt-1", Status: models.TimetableStatusPublished}, nil
}

func (m *lifecycleMock) Unpublish(context.Context, *models.JWTClaims, string, string) (*dto.PublishResult, error) {
	return nil, nil
}

func (m *lifecycleMock) DeleteDraft(context.Context, *models.JWTClaims, string, string) error {
	return nil
}

func adminContext(tenantID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
			UserID:   "user-1",
			TenantID: tenantID,
			Role:     models.RoleAdmin,
		})
		c.Next()
	}
}

func validGridPayload() []byte {
	return []byte(`{"year":2,"semester":3,"division":"A","academic_period":"2026-ODD","days":[1,2,3],"slots":[{"start":"09:00","end":"10:00"}],"subject_codes":["MATH"]}`)
}

func TestTimetableHandlerGenerateGridSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gridGeneratorMock{}
	handler := &TimetableHandler{grids: mockSvc}
	router := gin.New()
	router.POST("/timetables/grid", adminContext("tenant-1"), handler.GenerateGrid)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetables/grid", bytes.NewReader(validGridPayload()))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "tenant-1", mockSvc.captured.TenantID, "tenant scope comes from the token, not the payload")
	require.Equal(t, []string{"MATH"}, mockSvc.captured.SubjectCodes)
}

func TestTimetableHandlerGenerateGridOverCapacityPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	capErr := &models.GridCapacityError{
		Message: "requested 5 hours, grid offers 3",
		Unmet:   []models.UnmetSubject{{SubjectCode: "S1", RequestedHours: 5, PlacedHours: 3, Deficit: 2}},
	}
	mockSvc := &gridGeneratorMock{
		err: appErrors.Wrap(capErr, appErrors.ErrOverCapacity.Code, appErrors.ErrOverCapacity.Status, capErr.Message),
	}
	handler := &TimetableHandler{grids: mockSvc}
	router := gin.New()
	router.POST("/timetables/grid", adminContext("tenant-1"), handler.GenerateGrid)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetables/grid", bytes.NewReader(validGridPayload()))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Error *appErrors.Error          `json:"error"`
		Data  *models.GridCapacityError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "OVER_CAPACITY", body.Error.Code)
	require.Len(t, body.Data.Unmet, 1)
	require.Equal(t, 2, body.Data.Unmet[0].Deficit)
}

func TestTimetableHandlerGenerateGridUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{grids: &gridGeneratorMock{}}
	router := gin.New()
	router.POST("/timetables/grid", handler.GenerateGrid)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetables/grid", bytes.NewReader(validGridPayload()))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTimetableHandlerPublishConflictPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conflictErr := &models.TimetableConflictError{
		Message: "publication blocked by 1 conflict(s)",
		Conflicts: []models.TimetableConflict{{
			Resource:   models.ConflictResourceClassroom,
			ResourceID: "room-1",
			Day:        1,
		}},
	}
	mockSvc := &lifecycleMock{
		publishErr: appErrors.Wrap(conflictErr, appErrors.ErrConflictsFound.Code, appErrors.ErrConflictsFound.Status, conflictErr.Message),
	}
	handler := &TimetableHandler{timetables: mockSvc}
	router := gin.New()
	router.POST("/timetables/:id/publish", adminContext("tenant-1"), handler.Publish)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetables/tt-1/publish", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var body struct {
		Error *appErrors.Error               `json:"error"`
		Data  *models.TimetableConflictError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "CONFLICTS_FOUND", body.Error.Code)
	require.Len(t, body.Data.Conflicts, 1)
	require.Equal(t, "room-1", body.Data.Conflicts[0].ResourceID)
}

func TestTimetableHandlerPublishForbiddenForFaculty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{timetables: &lifecycleMock{}}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
			UserID:   "fac-1",
			TenantID: "tenant-1",
			Role:     models.RoleFaculty,
		})
		c.Next()
	})
	router.POST("/timetables/:id/publish",
		internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin),
		handler.Publish,
	)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetables/tt-1/publish", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}
