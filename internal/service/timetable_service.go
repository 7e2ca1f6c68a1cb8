package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/opencampus/uniportal-api/internal/dto"
	"github.com/opencampus/uniportal-api/internal/models"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
)

type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type timetableRepo interface {
	Create(ctx context.Context, timetable *models.Timetable) error
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	List(ctx context.Context, tenantID string, filter models.TimetableFilter) ([]models.Timetable, int, error)
	ListPublished(ctx context.Context, exec sqlx.ExtContext, tenantID, period string) ([]models.Timetable, error)
	AcquireSectionLock(ctx context.Context, exec sqlx.ExtContext, tenantID, period string) error
	UpdateStatusVersioned(ctx context.Context, exec sqlx.ExtContext, id string, expectedVersion int, status models.TimetableStatus) (bool, error)
	UpdateDays(ctx context.Context, timetable *models.Timetable) error
	Delete(ctx context.Context, id string) error
}

type timetableAuditor interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// TimetableService owns the draft/published lifecycle. Publication runs
// inside a transaction serialized per (tenant, period) so two concurrent
// publishes cannot both pass the conflict check.
type TimetableService struct {
	db         txBeginner
	timetables timetableRepo
	audits     timetableAuditor
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewTimetableService wires lifecycle dependencies.
func NewTimetableService(db txBeginner, timetables timetableRepo, audits timetableAuditor, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{db: db, timetables: timetables, audits: audits, validator: validate, logger: logger}
}

// CreateDraft stores an assembled grid as a new draft timetable.
func (s *TimetableService) CreateDraft(ctx context.Context, claims *models.JWTClaims, req dto.CreateTimetableRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	if !claims.CanAdminister(req.TenantID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient role for timetable management")
	}
	if err := validateGrid(req.Days); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day grid")
	}

	timetable := &models.Timetable{
		TenantID:       req.TenantID,
		Year:           req.Year,
		Semester:       req.Semester,
		Division:       req.Division,
		AcademicPeriod: req.AcademicPeriod,
		ClassroomID:    req.ClassroomID,
		Status:         models.TimetableStatusDraft,
	}
	if err := timetable.EncodeDays(req.Days); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode day grid")
	}
	if err := s.timetables.Create(ctx, timetable); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}

	s.audit(ctx, claims, req.TenantID, "timetable.create", timetable.ID)
	s.logger.Info("timetable_created",
		zap.String("tenant_id", req.TenantID),
		zap.String("timetable_id", timetable.ID),
		zap.String("division", req.Division),
	)
	return timetable, nil
}

// Get loads a tenant's timetable by id.
func (s *TimetableService) Get(ctx context.Context, tenantID, id string) (*models.Timetable, error) {
	return s.loadOwned(ctx, tenantID, id)
}

// List returns a tenant's timetables with filtering and pagination.
func (s *TimetableService) List(ctx context.Context, tenantID string, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	timetables, total, err := s.timetables.List(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return timetables, total, nil
}

// UpdateDraftGrid replaces the stored grid of a draft. Published timetables
// must be unpublished before editing.
func (s *TimetableService) UpdateDraftGrid(ctx context.Context, claims *models.JWTClaims, tenantID, id string, days []models.TimetableDay, classroomID *string) (*models.Timetable, error) {
	if !claims.CanAdminister(tenantID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient role for timetable management")
	}
	timetable, err := s.loadOwned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if timetable.Status != models.TimetableStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only draft timetables can be edited")
	}
	if err := validateGrid(days); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day grid")
	}

	if classroomID != nil {
		timetable.ClassroomID = classroomID
	}
	if err := timetable.EncodeDays(days); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode day grid")
	}
	if err := s.timetables.UpdateDays(ctx, timetable); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable")
	}

	s.audit(ctx, claims, tenantID, "timetable.update_grid", timetable.ID)
	return timetable, nil
}

// Publish transitions a draft to PUBLISHED. The conflict check and the
// status flip run in one transaction holding the section advisory lock, so
// the published set cannot change between check and commit. A version
// mismatch means another writer got there first.
func (s *TimetableService) Publish(ctx context.Context, claims *models.JWTClaims, tenantID, id string) (*dto.PublishResult, error) {
	if !claims.CanAdminister(tenantID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient role for timetable publication")
	}
	timetable, err := s.loadOwned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if timetable.Status == models.TimetableStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable is already published")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.timetables.AcquireSectionLock(ctx, tx, tenantID, timetable.AcademicPeriod); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to serialize publication")
	}

	published, err := s.timetables.ListPublished(ctx, tx, tenantID, timetable.AcademicPeriod)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published timetables")
	}
	conflicts, err := DetectConflicts(timetable, published)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect timetable grids")
	}
	if len(conflicts) > 0 {
		conflictErr := &models.TimetableConflictError{
			Message:   fmt.Sprintf("publication blocked by %d conflict(s)", len(conflicts)),
			Conflicts: conflicts,
		}
		return nil, appErrors.Wrap(conflictErr, appErrors.ErrConflictsFound.Code, appErrors.ErrConflictsFound.Status, conflictErr.Message)
	}

	ok, err := s.timetables.UpdateStatusVersioned(ctx, tx, timetable.ID, timetable.Version, models.TimetableStatusPublished)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStaleState, "timetable changed since it was read, reload and retry")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit publication")
	}
	committed = true

	s.audit(ctx, claims, tenantID, "timetable.publish", timetable.ID)
	s.logger.Info("timetable_published",
		zap.String("tenant_id", tenantID),
		zap.String("timetable_id", timetable.ID),
		zap.String("academic_period", timetable.AcademicPeriod),
	)
	return &dto.PublishResult{TimetableID: timetable.ID, Status: models.TimetableStatusPublished}, nil
}

// Unpublish reverts a published timetable to DRAFT under the same section
// lock and version guard. The timetable immediately stops counting for
// conflict and occupancy checks.
func (s *TimetableService) Unpublish(ctx context.Context, claims *models.JWTClaims, tenantID, id string) (*dto.PublishResult, error) {
	if !claims.CanAdminister(tenantID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient role for timetable publication")
	}
	timetable, err := s.loadOwned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if timetable.Status != models.TimetableStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only published timetables can be unpublished")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.timetables.AcquireSectionLock(ctx, tx, tenantID, timetable.AcademicPeriod); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to serialize unpublication")
	}
	ok, err := s.timetables.UpdateStatusVersioned(ctx, tx, timetable.ID, timetable.Version, models.TimetableStatusDraft)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unpublish timetable")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStaleState, "timetable changed since it was read, reload and retry")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit unpublication")
	}
	committed = true

	s.audit(ctx, claims, tenantID, "timetable.unpublish", timetable.ID)
	s.logger.Warn("timetable_unpublished",
		zap.String("tenant_id", tenantID),
		zap.String("timetable_id", timetable.ID),
		zap.String("by_user", claims.UserID),
	)
	return &dto.PublishResult{TimetableID: timetable.ID, Status: models.TimetableStatusDraft}, nil
}

// DeleteDraft removes a draft timetable.
func (s *TimetableService) DeleteDraft(ctx context.Context, claims *models.JWTClaims, tenantID, id string) error {
	if !claims.CanAdminister(tenantID) {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient role for timetable management")
	}
	timetable, err := s.loadOwned(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if timetable.Status != models.TimetableStatusDraft {
		return appErrors.Clone(appErrors.ErrValidation, "only draft timetables can be deleted")
	}
	if err := s.timetables.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	s.audit(ctx, claims, tenantID, "timetable.delete", id)
	return nil
}

func (s *TimetableService) loadOwned(ctx context.Context, tenantID, id string) (*models.Timetable, error) {
	timetable, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if timetable.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
	}
	return timetable, nil
}

func (s *TimetableService) audit(ctx context.Context, claims *models.JWTClaims, tenantID, action, resourceID string) {
	if s.audits == nil {
		return
	}
	entry := &models.AuditLog{
		TenantID:   tenantID,
		Action:     action,
		Resource:   "timetable",
		ResourceID: &resourceID,
	}
	if claims != nil && claims.UserID != "" {
		userID := claims.UserID
		entry.UserID = &userID
	}
	if err := s.audits.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit_write_failed", zap.String("action", action), zap.Error(err))
	}
}

// validateGrid rejects grids containing malformed or inverted slot windows.
func validateGrid(days []models.TimetableDay) error {
	for _, day := range days {
		if day.Day < 1 || day.Day > 7 {
			return fmt.Errorf("day %d out of range", day.Day)
		}
		for _, slot := range day.Slots {
			if _, err := models.SlotWindow(day.Day, slot.StartTime, slot.EndTime); err != nil {
				return err
			}
		}
	}
	return nil
}
