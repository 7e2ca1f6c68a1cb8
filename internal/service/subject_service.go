package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opencampus/uniportal-api/internal/dto"
	"github.com/opencampus/uniportal-api/internal/models"
	"github.com/opencampus/uniportal-api/pkg/config"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
)

type subjectRepo interface {
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	FindByCode(ctx context.Context, tenantID string, year, semester int, period, code string) (*models.Subject, error)
	List(ctx context.Context, tenantID string, filter models.SubjectFilter) ([]models.Subject, int, error)
	IsReferenced(ctx context.Context, tenantID, code string) (bool, error)
	SetArchived(ctx context.Context, id string, archived bool) error
	Delete(ctx context.Context, id string) error
}

// SubjectService manages the tenant subject catalogue. The weekly quota is
// always derived from the total term duration, never accepted from clients.
type SubjectService struct {
	subjects  subjectRepo
	cfg       config.SchedulerConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService wires catalogue dependencies.
func NewSubjectService(subjects subjectRepo, cfg config.SchedulerConfig, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if cfg.TermWeeks <= 0 {
		cfg.TermWeeks = 12
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{subjects: subjects, cfg: cfg, validator: validate, logger: logger}
}

// Create adds a subject to the catalogue.
func (s *SubjectService) Create(ctx context.Context, req dto.CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subjectType := models.SubjectType(req.Type)
	if subjectType == models.SubjectTypeLab && req.BlockSize < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lab subjects need a block size of at least 2")
	}
	if subjectType != models.SubjectTypeLab && req.BlockSize > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "block size only applies to lab subjects")
	}

	existing, err := s.subjects.FindByCode(ctx, req.TenantID, req.Year, req.Semester, req.AcademicPeriod, req.Code)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject code")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("subject %s already exists for this section scope", req.Code))
	}

	subject := &models.Subject{
		TenantID:           req.TenantID,
		Code:               req.Code,
		Name:               req.Name,
		Type:               subjectType,
		TotalDurationHours: req.TotalDurationHours,
		WeeklyHours:        models.WeeklyHoursFor(req.TotalDurationHours, s.cfg.TermWeeks),
		BlockSize:          req.BlockSize,
		Year:               req.Year,
		Semester:           req.Semester,
		AcademicPeriod:     req.AcademicPeriod,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}

	s.logger.Info("subject_created",
		zap.String("tenant_id", req.TenantID),
		zap.String("code", req.Code),
		zap.Int("weekly_hours", subject.WeeklyHours),
	)
	return subject, nil
}

// Get loads a tenant's subject by id.
func (s *SubjectService) Get(ctx context.Context, tenantID, id string) (*models.Subject, error) {
	return s.loadOwned(ctx, tenantID, id)
}

// List returns catalogue entries with filtering and pagination.
func (s *SubjectService) List(ctx context.Context, tenantID string, filter models.SubjectFilter) ([]models.Subject, int, error) {
	subjects, total, err := s.subjects.List(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, total, nil
}

// Update applies partial changes. Changing the duration re-derives the
// weekly quota; existing timetables keep the hours they were built with.
func (s *SubjectService) Update(ctx context.Context, tenantID, id string, req dto.UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject, err := s.loadOwned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		subject.Name = *req.Name
	}
	if req.Type != nil {
		subject.Type = models.SubjectType(*req.Type)
	}
	if req.TotalDurationHours != nil {
		subject.TotalDurationHours = *req.TotalDurationHours
		subject.WeeklyHours = models.WeeklyHoursFor(*req.TotalDurationHours, s.cfg.TermWeeks)
	}
	if req.BlockSize != nil {
		subject.BlockSize = *req.BlockSize
	}
	if subject.Type == models.SubjectTypeLab && subject.BlockSize < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lab subjects need a block size of at least 2")
	}
	if subject.Type != models.SubjectTypeLab && subject.BlockSize > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "block size only applies to lab subjects")
	}

	if err := s.subjects.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject. Subjects referenced by any timetable grid are
// archived instead so the grids stay resolvable.
func (s *SubjectService) Delete(ctx context.Context, tenantID, id string) error {
	subject, err := s.loadOwned(ctx, tenantID, id)
	if err != nil {
		return err
	}
	referenced, err := s.subjects.IsReferenced(ctx, tenantID, subject.Code)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject references")
	}
	if referenced {
		if err := s.subjects.SetArchived(ctx, id, true); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive subject")
		}
		s.logger.Info("subject_archived", zap.String("tenant_id", tenantID), zap.String("code", subject.Code))
		return nil
	}
	if err := s.subjects.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}

func (s *SubjectService) loadOwned(ctx context.Context, tenantID, id string) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if subject.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	return subject, nil
}
