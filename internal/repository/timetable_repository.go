package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencampus/uniportal-api/internal/models"
)

// TimetableRepository provides persistence for timetables.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableColumns = "id, tenant_id, year, semester, division, academic_period, classroom_id, days, status, version, created_at, updated_at"

// Create stores a new draft timetable.
func (r *TimetableRepository) Create(ctx context.Context, timetable *models.Timetable) error {
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now
	if timetable.Status == "" {
		timetable.Status = models.TimetableStatusDraft
	}
	if timetable.Version == 0 {
		timetable.Version = 1
	}

	const query = `INSERT INTO timetables (id, tenant_id, year, semester, division, academic_period, classroom_id, days, status, version, created_at, updated_at)
		VALUES (:id, :tenant_id, :year, :semester, :division, :academic_period, :classroom_id, :days, :status, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, timetable); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	return nil
}

// FindByID loads a timetable by id.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE id = $1", timetableColumns)
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// List returns timetables with optional filtering and pagination.
func (r *TimetableRepository) List(ctx context.Context, tenantID string, filter models.TimetableFilter) ([]models.Timetable, int, error) {
	base := "FROM timetables WHERE tenant_id = $1"
	args := []interface{}{tenantID}

	if filter.Year > 0 {
		base += fmt.Sprintf(" AND year = $%d", len(args)+1)
		args = append(args, filter.Year)
	}
	if filter.Semester > 0 {
		base += fmt.Sprintf(" AND semester = $%d", len(args)+1)
		args = append(args, filter.Semester)
	}
	if filter.Division != "" {
		base += fmt.Sprintf(" AND division = $%d", len(args)+1)
		args = append(args, filter.Division)
	}
	if filter.AcademicPeriod != "" {
		base += fmt.Sprintf(" AND academic_period = $%d", len(args)+1)
		args = append(args, filter.AcademicPeriod)
	}
	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY year ASC, semester ASC, division ASC LIMIT %d OFFSET %d", timetableColumns, base, size, offset)
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetables: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetables: %w", err)
	}

	return timetables, total, nil
}

// ListPublished returns the published timetables of a tenant and period.
// It accepts any executor so publication can reload the set inside its
// guarded transaction.
func (r *TimetableRepository) ListPublished(ctx context.Context, exec sqlx.ExtContext, tenantID, period string) ([]models.Timetable, error) {
	if exec == nil {
		exec = r.db
	}
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE tenant_id = $1 AND academic_period = $2 AND status = $3 ORDER BY division ASC", timetableColumns)
	var timetables []models.Timetable
	if err := sqlx.SelectContext(ctx, exec, &timetables, query, tenantID, period, models.TimetableStatusPublished); err != nil {
		return nil, fmt.Errorf("list published timetables: %w", err)
	}
	return timetables, nil
}

// AcquireSectionLock serializes publication per tenant and period using a
// transaction-scoped advisory lock. The lock releases on commit/rollback.
func (r *TimetableRepository) AcquireSectionLock(ctx context.Context, exec sqlx.ExtContext, tenantID, period string) error {
	key := fmt.Sprintf("%s:%s", tenantID, period)
	if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("acquire section lock: %w", err)
	}
	return nil
}

// UpdateStatusVersioned transitions a timetable's status guarded by the
// caller's observed version. Zero rows affected signals a stale read.
func (r *TimetableRepository) UpdateStatusVersioned(ctx context.Context, exec sqlx.ExtContext, id string, expectedVersion int, status models.TimetableStatus) (bool, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `UPDATE timetables SET status = $3, version = version + 1, updated_at = $4 WHERE id = $1 AND version = $2`
	result, err := exec.ExecContext(ctx, query, id, expectedVersion, status, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update timetable status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update timetable status rows: %w", err)
	}
	return affected == 1, nil
}

// UpdateDays replaces the stored day grid of a draft.
func (r *TimetableRepository) UpdateDays(ctx context.Context, timetable *models.Timetable) error {
	timetable.UpdatedAt = time.Now().UTC()
	const query = `UPDATE timetables SET days = :days, classroom_id = :classroom_id, updated_at = :updated_at WHERE id = :id AND status = 'DRAFT'`
	if _, err := r.db.NamedExecContext(ctx, query, timetable); err != nil {
		return fmt.Errorf("update timetable days: %w", err)
	}
	return nil
}

// Delete removes a draft timetable by id.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1 AND status = 'DRAFT'`, id); err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	return nil
}
