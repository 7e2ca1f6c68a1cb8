package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencampus/uniportal-api/internal/models"
)

// ClassroomUnavailabilityRepository persists room blocking windows.
type ClassroomUnavailabilityRepository struct {
	db *sqlx.DB
}

// NewClassroomUnavailabilityRepository constructs the repository.
func NewClassroomUnavailabilityRepository(db *sqlx.DB) *ClassroomUnavailabilityRepository {
	return &ClassroomUnavailabilityRepository{db: db}
}

const unavailabilityColumns = "id, tenant_id, classroom_id, start_at, end_at, reason, substitute_classroom_id, created_at"

// Create stores a new unavailability window.
func (r *ClassroomUnavailabilityRepository) Create(ctx context.Context, record *models.ClassroomUnavailability) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO classroom_unavailabilities (id, tenant_id, classroom_id, start_at, end_at, reason, substitute_classroom_id, created_at)
		VALUES (:id, :tenant_id, :classroom_id, :start_at, :end_at, :reason, :substitute_classroom_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create classroom unavailability: %w", err)
	}
	return nil
}

// FindByID loads a window by id.
func (r *ClassroomUnavailabilityRepository) FindByID(ctx context.Context, id string) (*models.ClassroomUnavailability, error) {
	query := fmt.Sprintf("SELECT %s FROM classroom_unavailabilities WHERE id = $1", unavailabilityColumns)
	var record models.ClassroomUnavailability
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByClassroom returns all windows blocking one room, oldest first.
func (r *ClassroomUnavailabilityRepository) ListByClassroom(ctx context.Context, classroomID string) ([]models.ClassroomUnavailability, error) {
	query := fmt.Sprintf("SELECT %s FROM classroom_unavailabilities WHERE classroom_id = $1 ORDER BY start_at ASC", unavailabilityColumns)
	var records []models.ClassroomUnavailability
	if err := r.db.SelectContext(ctx, &records, query, classroomID); err != nil {
		return nil, fmt.Errorf("list unavailabilities by classroom: %w", err)
	}
	return records, nil
}

// ListByTenant returns all windows for a tenant, used by the availability
// index scan.
func (r *ClassroomUnavailabilityRepository) ListByTenant(ctx context.Context, tenantID string) ([]models.ClassroomUnavailability, error) {
	query := fmt.Sprintf("SELECT %s FROM classroom_unavailabilities WHERE tenant_id = $1 ORDER BY start_at ASC", unavailabilityColumns)
	var records []models.ClassroomUnavailability
	if err := r.db.SelectContext(ctx, &records, query, tenantID); err != nil {
		return nil, fmt.Errorf("list unavailabilities by tenant: %w", err)
	}
	return records, nil
}

// CountByClassroom reports how many windows reference a room.
func (r *ClassroomUnavailabilityRepository) CountByClassroom(ctx context.Context, classroomID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM classroom_unavailabilities WHERE classroom_id = $1`, classroomID); err != nil {
		return 0, fmt.Errorf("count unavailabilities: %w", err)
	}
	return count, nil
}

// Delete removes a window by id.
func (r *ClassroomUnavailabilityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classroom_unavailabilities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete classroom unavailability: %w", err)
	}
	return nil
}
