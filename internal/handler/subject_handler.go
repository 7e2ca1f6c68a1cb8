package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencampus/uniportal-api/internal/dto"
	"github.com/opencampus/uniportal-api/internal/models"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
	"github.com/opencampus/uniportal-api/pkg/response"
)

type subjectManager interface {
	Create(ctx context.Context, req dto.CreateSubjectRequest) (*models.Subject, error)
	Get(ctx context.Context, tenantID, id string) (*models.Subject, error)
	List(ctx context.Context, tenantID string, filter models.SubjectFilter) ([]models.Subject, int, error)
	Update(ctx context.Context, tenantID, id string, req dto.UpdateSubjectRequest) (*models.Subject, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// SubjectHandler exposes the subject catalogue.
type SubjectHandler struct {
	subjects subjectManager
}

// NewSubjectHandler constructs the handler.
func NewSubjectHandler(subjects subjectManager) *SubjectHandler {
	return &SubjectHandler{subjects: subjects}
}

// Create godoc
// @Summary Add a subject to the catalogue
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /subjects [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject payload"))
		return
	}
	req.TenantID = tenantID

	subject, err := h.subjects.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// Get godoc
// @Summary Get one subject
// @Tags Subjects
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	subject, err := h.subjects.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// List godoc
// @Summary List catalogue subjects
// @Tags Subjects
// @Produce json
// @Param year query int false "Year"
// @Param semester query int false "Semester"
// @Param academic_period query string false "Academic period"
// @Param type query string false "Subject type"
// @Param include_archived query bool false "Include archived entries"
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.SubjectFilter{
		Year:            intQuery(c, "year"),
		Semester:        intQuery(c, "semester"),
		AcademicPeriod:  c.Query("academic_period"),
		Type:            c.Query("type"),
		IncludeArchived: c.Query("include_archived") == "true",
		Search:          c.Query("search"),
		Page:            intQuery(c, "page"),
		PageSize:        intQuery(c, "page_size"),
	}
	subjects, total, err := h.subjects.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, models.NewPagination(filter.Page, filter.PageSize, total))
}

// Update godoc
// @Summary Update a subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body dto.UpdateSubjectRequest true "Subject payload"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id} [put]
func (h *SubjectHandler) Update(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject payload"))
		return
	}
	subject, err := h.subjects.Update(c.Request.Context(), tenantID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Delete godoc
// @Summary Delete or archive a subject
// @Description Subjects referenced by any timetable grid are archived instead of removed.
// @Tags Subjects
// @Param id path string true "Subject ID"
// @Success 204
// @Router /subjects/{id} [delete]
func (h *SubjectHandler) Delete(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.subjects.Delete(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
