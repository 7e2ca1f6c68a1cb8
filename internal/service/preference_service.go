package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opencampus/uniportal-api/internal/dto"
	"github.com/opencampus/uniportal-api/internal/models"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
)

type preferenceRepo interface {
	Upsert(ctx context.Context, pref *models.FacultyPreference) error
	ListByTenantPeriod(ctx context.Context, tenantID, period string) ([]models.FacultyPreference, error)
	ListByFaculty(ctx context.Context, tenantID, facultyID, period string) ([]models.FacultyPreference, error)
	Delete(ctx context.Context, id string) error
}

// PreferenceService accepts faculty teaching preferences. Resubmitting the
// same (faculty, subject, period) refreshes the submission time, which in
// turn moves the member back in the assignment tie-break order.
type PreferenceService struct {
	prefs     preferenceRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPreferenceService wires preference dependencies.
func NewPreferenceService(prefs preferenceRepo, validate *validator.Validate, logger *zap.Logger) *PreferenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferenceService{prefs: prefs, validator: validate, logger: logger}
}

// Upsert creates or refreshes one preference row.
func (s *PreferenceService) Upsert(ctx context.Context, req dto.UpsertPreferenceRequest) (*models.FacultyPreference, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preference payload")
	}
	pref := &models.FacultyPreference{
		TenantID:       req.TenantID,
		FacultyID:      req.FacultyID,
		SubjectCode:    req.SubjectCode,
		AcademicPeriod: req.AcademicPeriod,
	}
	if err := s.prefs.Upsert(ctx, pref); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store preference")
	}
	s.logger.Info("preference_upserted",
		zap.String("tenant_id", req.TenantID),
		zap.String("faculty_id", req.FacultyID),
		zap.String("subject_code", req.SubjectCode),
	)
	return pref, nil
}

// List returns preferences for a period, optionally scoped to one faculty
// member.
func (s *PreferenceService) List(ctx context.Context, query dto.PreferenceQuery) ([]models.FacultyPreference, error) {
	var (
		prefs []models.FacultyPreference
		err   error
	)
	if query.FacultyID != "" {
		prefs, err = s.prefs.ListByFaculty(ctx, query.TenantID, query.FacultyID, query.AcademicPeriod)
	} else {
		prefs, err = s.prefs.ListByTenantPeriod(ctx, query.TenantID, query.AcademicPeriod)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list preferences")
	}
	return prefs, nil
}
