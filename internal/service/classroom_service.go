package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opencampus/uniportal-api/internal/dto"
	"github.com/opencampus/uniportal-api/internal/models"
	"github.com/opencampus/uniportal-api/pkg/cache"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
	"github.com/opencampus/uniportal-api/pkg/interval"
)

type classroomRepo interface {
	List(ctx context.Context, tenantID string, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	ListByTenant(ctx context.Context, tenantID string) ([]models.Classroom, error)
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	FindByName(ctx context.Context, tenantID, name string) (*models.Classroom, error)
	Create(ctx context.Context, room *models.Classroom) error
	Update(ctx context.Context, room *models.Classroom) error
	UpdateStatus(ctx context.Context, id string, status models.ClassroomStatus) error
	Delete(ctx context.Context, id string) error
}

type unavailabilityRepo interface {
	Create(ctx context.Context, record *models.ClassroomUnavailability) error
	FindByID(ctx context.Context, id string) (*models.ClassroomUnavailability, error)
	ListByClassroom(ctx context.Context, classroomID string) ([]models.ClassroomUnavailability, error)
	CountByClassroom(ctx context.Context, classroomID string) (int, error)
	Delete(ctx context.Context, id string) error
}

type classroomLocker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// ClassroomService manages rooms and their unavailability windows. Window
// creation for one room is serialized through a short-lived distributed
// lock so two overlapping windows cannot race past the overlap check.
type ClassroomService struct {
	classrooms classroomRepo
	windows    unavailabilityRepo
	locks      classroomLocker
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewClassroomService wires classroom dependencies.
func NewClassroomService(classrooms classroomRepo, windows unavailabilityRepo, locks classroomLocker, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{classrooms: classrooms, windows: windows, locks: locks, validator: validate, logger: logger}
}

// Create registers a room. Names are unique per tenant.
func (s *ClassroomService) Create(ctx context.Context, req dto.CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	existing, err := s.classrooms.FindByName(ctx, req.TenantID, req.Name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom name")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("classroom %q already exists", req.Name))
	}

	room := &models.Classroom{
		TenantID: req.TenantID,
		Name:     req.Name,
		Floor:    req.Floor,
		Capacity: req.Capacity,
		Status:   models.ClassroomStatusAvailable,
	}
	if err := s.classrooms.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}
	s.logger.Info("classroom_created", zap.String("tenant_id", req.TenantID), zap.String("classroom_id", room.ID))
	return room, nil
}

// Get loads a tenant's room by id.
func (s *ClassroomService) Get(ctx context.Context, tenantID, id string) (*models.Classroom, error) {
	return s.loadOwned(ctx, tenantID, id)
}

// List returns a tenant's rooms with filtering and pagination.
func (s *ClassroomService) List(ctx context.Context, tenantID string, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	rooms, total, err := s.classrooms.List(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}
	return rooms, total, nil
}

// Update applies partial changes to a room.
func (s *ClassroomService) Update(ctx context.Context, tenantID, id string, req dto.UpdateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	room, err := s.loadOwned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != room.Name {
		existing, err := s.classrooms.FindByName(ctx, tenantID, *req.Name)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom name")
		}
		if existing != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("classroom %q already exists", *req.Name))
		}
		room.Name = *req.Name
	}
	if req.Floor != nil {
		room.Floor = *req.Floor
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.Status != nil {
		room.Status = models.ClassroomStatus(*req.Status)
	}

	if err := s.classrooms.Update(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom")
	}
	return room, nil
}

// Delete removes a room. Rooms with recorded unavailability windows are
// kept so the history behind past substitutions stays intact.
func (s *ClassroomService) Delete(ctx context.Context, tenantID, id string) error {
	if _, err := s.loadOwned(ctx, tenantID, id); err != nil {
		return err
	}
	count, err := s.windows.CountByClassroom(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unavailability windows")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "classroom has unavailability records, clear them first")
	}
	if err := s.classrooms.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classroom")
	}
	return nil
}

// MarkUnavailable records a blocking window for a room. The status column
// flips to UNAVAILABLE only when the window covers the current time; future
// windows leave it untouched. The per-room lock closes the race where two
// operators submit overlapping windows at once.
func (s *ClassroomService) MarkUnavailable(ctx context.Context, req dto.MarkUnavailableRequest) (*models.ClassroomUnavailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid unavailability payload")
	}
	if req.EndAt != nil && !req.EndAt.After(req.StartAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_at must be after start_at")
	}

	room, err := s.loadOwned(ctx, req.TenantID, req.ClassroomID)
	if err != nil {
		return nil, err
	}
	if req.SubstituteClassroomID != nil {
		substitute, err := s.loadOwned(ctx, req.TenantID, *req.SubstituteClassroomID)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "substitute classroom not found")
		}
		if substitute.ID == room.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a classroom cannot substitute itself")
		}
	}

	release, err := s.locks.Acquire(ctx, "lock:classroom:"+req.ClassroomID)
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "classroom is being modified by another request, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock classroom")
	}
	defer release()

	existing, err := s.windows.ListByClassroom(ctx, req.ClassroomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unavailability windows")
	}
	window := interval.Window{Start: req.StartAt, End: req.EndAt}
	for _, record := range existing {
		if interval.Overlaps(record.Window(), window) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an overlapping unavailability window already exists")
		}
	}

	record := &models.ClassroomUnavailability{
		TenantID:              req.TenantID,
		ClassroomID:           req.ClassroomID,
		StartAt:               req.StartAt,
		EndAt:                 req.EndAt,
		Reason:                req.Reason,
		SubstituteClassroomID: req.SubstituteClassroomID,
	}
	if err := s.windows.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create unavailability window")
	}
	if room.Status == models.ClassroomStatusAvailable && record.Window().Contains(time.Now().UTC()) {
		if err := s.classrooms.UpdateStatus(ctx, room.ID, models.ClassroomStatusUnavailable); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom status")
		}
	}

	s.logger.Info("classroom_marked_unavailable",
		zap.String("tenant_id", req.TenantID),
		zap.String("classroom_id", req.ClassroomID),
		zap.Time("start_at", req.StartAt),
	)
	return record, nil
}

// ClearUnavailability removes one window. The status reverts to AVAILABLE
// when none of the remaining windows covers the current time; expired
// records kept for history do not pin the room.
func (s *ClassroomService) ClearUnavailability(ctx context.Context, tenantID, windowID string) error {
	record, err := s.windows.FindByID(ctx, windowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "unavailability window not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unavailability window")
	}
	if record.TenantID != tenantID {
		return appErrors.Clone(appErrors.ErrNotFound, "unavailability window not found")
	}

	release, err := s.locks.Acquire(ctx, "lock:classroom:"+record.ClassroomID)
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "classroom is being modified by another request, retry")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock classroom")
	}
	defer release()

	if err := s.windows.Delete(ctx, windowID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete unavailability window")
	}
	remaining, err := s.windows.ListByClassroom(ctx, record.ClassroomID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unavailability windows")
	}
	now := time.Now().UTC()
	covered := false
	for _, window := range remaining {
		if window.Window().Contains(now) {
			covered = true
			break
		}
	}
	if !covered {
		room, err := s.loadOwned(ctx, tenantID, record.ClassroomID)
		if err != nil {
			return err
		}
		if room.Status == models.ClassroomStatusUnavailable {
			if err := s.classrooms.UpdateStatus(ctx, record.ClassroomID, models.ClassroomStatusAvailable); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom status")
			}
		}
	}

	s.logger.Info("classroom_unavailability_cleared",
		zap.String("tenant_id", tenantID),
		zap.String("classroom_id", record.ClassroomID),
		zap.String("window_id", windowID),
	)
	return nil
}

// ListUnavailability returns a room's windows, oldest first.
func (s *ClassroomService) ListUnavailability(ctx context.Context, tenantID, classroomID string) ([]models.ClassroomUnavailability, error) {
	if _, err := s.loadOwned(ctx, tenantID, classroomID); err != nil {
		return nil, err
	}
	records, err := s.windows.ListByClassroom(ctx, classroomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unavailability windows")
	}
	return records, nil
}

func (s *ClassroomService) loadOwned(ctx context.Context, tenantID, id string) (*models.Classroom, error) {
	room, err := s.classrooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	if room.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
	}
	return room, nil
}
