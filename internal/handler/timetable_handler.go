package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opencampus/uniportal-api/internal/dto"
	"github.com/opencampus/uniportal-api/internal/models"
	"github.com/opencampus/uniportal-api/internal/service"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
	"github.com/opencampus/uniportal-api/pkg/response"
)

type gridGenerator interface {
	Generate(ctx context.Context, req dto.GenerateGridRequest) (*dto.GenerateGridResponse, error)
}

type facultyAssigner interface {
	AssignFaculty(ctx context.Context, req dto.AssignFacultyRequest) (*dto.AssignFacultyResponse, error)
}

type conflictChecker interface {
	Check(ctx context.Context, tenantID, timetableID string) ([]models.TimetableConflict, error)
}

type timetableLifecycle interface {
	CreateDraft(ctx context.Context, claims *models.JWTClaims, req dto.CreateTimetableRequest) (*models.Timetable, error)
	Get(ctx context.Context, tenantID, id string) (*models.Timetable, error)
	List(ctx context.Context, tenantID string, filter models.TimetableFilter) ([]models.Timetable, int, error)
	UpdateDraftGrid(ctx context.Context, claims *models.JWTClaims, tenantID, id string, days []models.TimetableDay, classroomID *string) (*models.Timetable, error)
	Publish(ctx context.Context, claims *models.JWTClaims, tenantID, id string) (*dto.PublishResult, error)
	Unpublish(ctx context.Context, claims *models.JWTClaims, tenantID, id string) (*dto.PublishResult, error)
	DeleteDraft(ctx context.Context, claims *models.JWTClaims, tenantID, id string) error
}

// TimetableHandler exposes grid generation, faculty assignment and the
// timetable lifecycle.
type TimetableHandler struct {
	grids      gridGenerator
	assigner   facultyAssigner
	conflicts  conflictChecker
	timetables timetableLifecycle
	metrics    *service.MetricsService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(grids gridGenerator, assigner facultyAssigner, conflicts conflictChecker, timetables timetableLifecycle, metrics *service.MetricsService) *TimetableHandler {
	return &TimetableHandler{grids: grids, assigner: assigner, conflicts: conflicts, timetables: timetables, metrics: metrics}
}

// GenerateGrid godoc
// @Summary Generate a weekly slot grid for a class section
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateGridRequest true "Grid generation payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/grid [post]
func (h *TimetableHandler) GenerateGrid(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.GenerateGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grid payload"))
		return
	}
	req.TenantID = tenantID

	result, err := h.grids.Generate(c.Request.Context(), req)
	if err != nil {
		var capErr *models.GridCapacityError
		if errors.As(err, &capErr) {
			appErr := appErrors.FromError(err)
			c.JSON(appErr.Status, response.Envelope{Error: appErr, Data: capErr})
			return
		}
		response.Error(c, err)
		return
	}
	h.metrics.RecordGridGenerated()
	response.JSON(c, http.StatusOK, result, nil)
}

// AssignFaculty godoc
// @Summary Resolve faculty for each occupied grid cell
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.AssignFacultyRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/assign [post]
func (h *TimetableHandler) AssignFaculty(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AssignFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	req.TenantID = tenantID

	result, err := h.assigner.AssignFaculty(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Create godoc
// @Summary Store an assembled grid as a draft timetable
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.CreateTimetableRequest true "Timetable payload"
// @Success 201 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable payload"))
		return
	}
	req.TenantID = tenantID

	timetable, err := h.timetables.CreateDraft(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, timetable)
}

// Get godoc
// @Summary Get one timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	timetable, err := h.timetables.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// List godoc
// @Summary List timetables
// @Tags Timetables
// @Produce json
// @Param year query int false "Year"
// @Param semester query int false "Semester"
// @Param division query string false "Division"
// @Param academic_period query string false "Academic period"
// @Param status query string false "Status"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.TimetableFilter{
		Year:           intQuery(c, "year"),
		Semester:       intQuery(c, "semester"),
		Division:       c.Query("division"),
		AcademicPeriod: c.Query("academic_period"),
		Status:         c.Query("status"),
		Page:           intQuery(c, "page"),
		PageSize:       intQuery(c, "page_size"),
	}

	timetables, total, err := h.timetables.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetables, models.NewPagination(filter.Page, filter.PageSize, total))
}

// UpdateGrid godoc
// @Summary Replace the day grid of a draft timetable
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.UpdateTimetableGridRequest true "Grid payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/grid [put]
func (h *TimetableHandler) UpdateGrid(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateTimetableGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grid payload"))
		return
	}
	timetable, err := h.timetables.UpdateDraftGrid(c.Request.Context(), claimsFromContext(c), tenantID, c.Param("id"), req.Days, req.ClassroomID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Publish godoc
// @Summary Publish a draft timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/publish [post]
func (h *TimetableHandler) Publish(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.timetables.Publish(c.Request.Context(), claimsFromContext(c), tenantID, c.Param("id"))
	if err != nil {
		var conflictErr *models.TimetableConflictError
		if errors.As(err, &conflictErr) {
			h.metrics.RecordConflicts(len(conflictErr.Conflicts))
			appErr := appErrors.FromError(err)
			c.JSON(appErr.Status, response.Envelope{Error: appErr, Data: conflictErr})
			return
		}
		response.Error(c, err)
		return
	}
	h.metrics.RecordPublication()
	response.JSON(c, http.StatusOK, result, nil)
}

// Unpublish godoc
// @Summary Revert a published timetable to draft
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/unpublish [post]
func (h *TimetableHandler) Unpublish(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.timetables.Unpublish(c.Request.Context(), claimsFromContext(c), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Conflicts godoc
// @Summary Report conflicts between a timetable and the published set
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/conflicts [get]
func (h *TimetableHandler) Conflicts(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	conflicts, err := h.conflicts.Check(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordConflicts(len(conflicts))
	response.JSON(c, http.StatusOK, gin.H{"conflicts": conflicts, "count": len(conflicts)}, nil)
}

// Delete godoc
// @Summary Delete a draft timetable
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.timetables.DeleteDraft(c.Request.Context(), claimsFromContext(c), tenantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func intQuery(c *gin.Context, key string) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return value
}
