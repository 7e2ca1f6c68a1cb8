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

type preferenceManager interface {
	Upsert(ctx context.Context, req dto.UpsertPreferenceRequest) (*models.FacultyPreference, error)
	List(ctx context.Context, query dto.PreferenceQuery) ([]models.FacultyPreference, error)
}

// PreferenceHandler exposes faculty teaching preferences.
type PreferenceHandler struct {
	prefs preferenceManager
}

// NewPreferenceHandler constructs the handler.
func NewPreferenceHandler(prefs preferenceManager) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

// Upsert godoc
// @Summary Submit or refresh a teaching preference
// @Description Faculty submit for themselves; admins may submit on behalf of any member.
// @Tags Preferences
// @Accept json
// @Produce json
// @Param payload body dto.UpsertPreferenceRequest true "Preference payload"
// @Success 200 {object} response.Envelope
// @Router /preferences [put]
func (h *PreferenceHandler) Upsert(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpsertPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preference payload"))
		return
	}
	req.TenantID = tenantID

	claims := claimsFromContext(c)
	if claims.Role == models.RoleFaculty {
		if req.FacultyID == "" {
			req.FacultyID = claims.UserID
		}
		if req.FacultyID != claims.UserID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "faculty may only submit their own preferences"))
			return
		}
	}

	pref, err := h.prefs.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref, nil)
}

// List godoc
// @Summary List preferences for an academic period
// @Tags Preferences
// @Produce json
// @Param academic_period query string true "Academic period"
// @Param faculty_id query string false "Scope to one faculty member"
// @Success 200 {object} response.Envelope
// @Router /preferences [get]
func (h *PreferenceHandler) List(c *gin.Context) {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	period := c.Query("academic_period")
	if period == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "academic_period is required"))
		return
	}

	query := dto.PreferenceQuery{
		TenantID:       tenantID,
		FacultyID:      c.Query("faculty_id"),
		AcademicPeriod: period,
	}
	claims := claimsFromContext(c)
	if claims.Role == models.RoleFaculty {
		query.FacultyID = claims.UserID
	}

	prefs, err := h.prefs.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}
