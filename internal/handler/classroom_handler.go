package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opencampus/uniportal-api/internal/dto"
	"github.com/opencampus/uniportal-api/internal/models"
	"github.com/opencampus/uniportal-api/internal/service"
	"github.com/opencampus/uniportal-api/pkg/cache"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
	"github.com/opencampus/uniportal-api/pkg/response"
)

type classroomManager interface {
	Create(ctx context.Context, req dto.CreateClassroomRequest) (*models.Classroom, error)
	Get(ctx context.Context, tenantID, id string) (*models.Classroom, error)
	List(ctx context.Context, tenantID string, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	Update(ctx context.Context, tenantID, id string, req dto.UpdateClassroomRequest) (*models.Classroom, error)
	Delete(ctx context.Context, tenantID, id string) error
	MarkUnavailable(ctx context.Context, req dto.MarkUnavailableRequest) (*models.ClassroomUnavailability, error)
	ClearUnavailability(ctx context.Context, tenantID, windowID string) error
	ListUnavailability(ctx context.Context, tenantID, classroomID string) ([]models.ClassroomUnavailability, error)
}

type substituteRanker interface {
	SuggestSubstitutes(ctx context.Context, query dto.SuggestSubstitutesQuery) ([]dto.RankedCandidate, error)
}

// ClassroomHandler exposes room management, unavailability windows and
// substitution suggestions.
type ClassroomHandler struct {
	classrooms  classroomManager
	substitutes substituteRanker
	metrics     *service.MetricsService
}

// NewClassroomHandler constructs the handler.
func NewClassroomHandler(classrooms classroomManager, substitutes substituteRanker, metrics *service.MetricsService) *ClassroomHandler {
	return &ClassroomHandler{classrooms: classrooms, substitutes: substitutes, metrics: metrics}
}

// Create godoc
// @Summary Register a classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param payload body dto.CreateClassroomRequest true "Classroom payload"
// @Success 201 {object} response.Envelope
// @Router /classrooms [post]
func (h *ClassroomHandler) Create(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid classroom payload"))
		return
	}
	req.TenantID = tenantID

	room, err := h.classrooms.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// Get godoc
// @Summary Get one classroom
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [get]
func (h *ClassroomHandler) Get(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	room, err := h.classrooms.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// List godoc
// @Summary List classrooms
// @Tags Classrooms
// @Produce json
// @Param status query string false "Status filter"
// @Param search query string false "Name search"
// @Success 200 {object} response.Envelope
// @Router /classrooms [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.ClassroomFilter{
		Status:    c.Query("status"),
		Search:    c.Query("search"),
		Page:      intQuery(c, "page"),
		PageSize:  intQuery(c, "page_size"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	rooms, total, err := h.classrooms.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, models.NewPagination(filter.Page, filter.PageSize, total))
}

// Update godoc
// @Summary Update a classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body dto.UpdateClassroomRequest true "Classroom payload"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [put]
func (h *ClassroomHandler) Update(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid classroom payload"))
		return
	}
	room, err := h.classrooms.Update(c.Request.Context(), tenantID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Delete godoc
// @Summary Delete a classroom without unavailability history
// @Tags Classrooms
// @Param id path string true "Classroom ID"
// @Success 204
// @Router /classrooms/{id} [delete]
func (h *ClassroomHandler) Delete(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.classrooms.Delete(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkUnavailable godoc
// @Summary Record an unavailability window for a classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body dto.MarkUnavailableRequest true "Window payload"
// @Success 201 {object} response.Envelope
// @Router /classrooms/{id}/unavailability [post]
func (h *ClassroomHandler) MarkUnavailable(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.MarkUnavailableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid unavailability payload"))
		return
	}
	req.TenantID = tenantID
	req.ClassroomID = c.Param("id")

	record, err := h.classrooms.MarkUnavailable(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			h.metrics.RecordLockContention()
		}
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// ListUnavailability godoc
// @Summary List unavailability windows of a classroom
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/unavailability [get]
func (h *ClassroomHandler) ListUnavailability(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.classrooms.ListUnavailability(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ClearUnavailability godoc
// @Summary Remove one unavailability window
// @Tags Classrooms
// @Param id path string true "Unavailability window ID"
// @Success 204
// @Router /unavailabilities/{id} [delete]
func (h *ClassroomHandler) ClearUnavailability(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.classrooms.ClearUnavailability(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			h.metrics.RecordLockContention()
		}
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Substitutes godoc
// @Summary Rank replacement classrooms for a window
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Param start_at query string true "Window start (RFC3339)"
// @Param end_at query string false "Window end (RFC3339), open-ended when omitted"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/substitutes [get]
func (h *ClassroomHandler) Substitutes(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	startAt, err := time.Parse(time.RFC3339, c.Query("start_at"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "start_at must be RFC3339"))
		return
	}
	var endAt *time.Time
	if raw := c.Query("end_at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "end_at must be RFC3339"))
			return
		}
		if !parsed.After(startAt) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "end_at must be after start_at"))
			return
		}
		endAt = &parsed
	}

	candidates, err := h.substitutes.SuggestSubstitutes(c.Request.Context(), dto.SuggestSubstitutesQuery{
		TenantID:    tenantID,
		ClassroomID: c.Param("id"),
		StartAt:     startAt,
		EndAt:       endAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordSubstitutionQuery()
	response.JSON(c, http.StatusOK, candidates, nil)
}
