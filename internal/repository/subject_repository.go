package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencampus/uniportal-api/internal/models"
)

// SubjectRepository persists the tenant subject catalogue.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = "id, tenant_id, code, name, type, total_duration_hours, weekly_hours, block_size, year, semester, academic_period, archived, created_at, updated_at"

// Create stores a new subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, tenant_id, code, name, type, total_duration_hours, weekly_hours, block_size, year, semester, academic_period, archived, created_at, updated_at)
		VALUES (:id, :tenant_id, :code, :name, :type, :total_duration_hours, :weekly_hours, :block_size, :year, :semester, :academic_period, :archived, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update modifies a subject record.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, type = :type, total_duration_hours = :total_duration_hours, weekly_hours = :weekly_hours, block_size = :block_size, archived = :archived, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// FindByID loads a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE id = $1", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindByCode loads a subject by its scoped code.
func (r *SubjectRepository) FindByCode(ctx context.Context, tenantID string, year, semester int, period, code string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE tenant_id = $1 AND year = $2 AND semester = $3 AND academic_period = $4 AND code = $5", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, tenantID, year, semester, period, code); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListByCodes resolves subjects for a section scope. Archived entries are
// excluded; callers detect missing codes by comparing lengths.
func (r *SubjectRepository) ListByCodes(ctx context.Context, tenantID string, year, semester int, period string, codes []string) ([]models.Subject, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT %s FROM subjects WHERE tenant_id = ? AND year = ? AND semester = ? AND academic_period = ? AND archived = FALSE AND code IN (?)", subjectColumns),
		tenantID, year, semester, period, codes,
	)
	if err != nil {
		return nil, fmt.Errorf("build subject codes query: %w", err)
	}
	query = r.db.Rebind(query)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects by codes: %w", err)
	}
	return subjects, nil
}

// List returns subjects with optional filtering and pagination.
func (r *SubjectRepository) List(ctx context.Context, tenantID string, filter models.SubjectFilter) ([]models.Subject, int, error) {
	base := "FROM subjects WHERE tenant_id = $1"
	args := []interface{}{tenantID}

	if filter.Year > 0 {
		base += fmt.Sprintf(" AND year = $%d", len(args)+1)
		args = append(args, filter.Year)
	}
	if filter.Semester > 0 {
		base += fmt.Sprintf(" AND semester = $%d", len(args)+1)
		args = append(args, filter.Semester)
	}
	if filter.AcademicPeriod != "" {
		base += fmt.Sprintf(" AND academic_period = $%d", len(args)+1)
		args = append(args, filter.AcademicPeriod)
	}
	if filter.Type != "" {
		base += fmt.Sprintf(" AND type = $%d", len(args)+1)
		args = append(args, filter.Type)
	}
	if !filter.IncludeArchived {
		base += " AND archived = FALSE"
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (code ILIKE $%d OR name ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+filter.Search+"%")
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY code ASC LIMIT %d OFFSET %d", subjectColumns, base, size, offset)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}

	return subjects, total, nil
}

// IsReferenced reports whether any timetable of the tenant carries the
// subject code in its day grid.
func (r *SubjectRepository) IsReferenced(ctx context.Context, tenantID, code string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1
		FROM timetables t,
		     jsonb_array_elements(t.days) AS d,
		     jsonb_array_elements(d->'slots') AS s
		WHERE t.tenant_id = $1 AND s->>'subject_code' = $2
	)`
	var referenced bool
	if err := r.db.GetContext(ctx, &referenced, query, tenantID, code); err != nil {
		return false, fmt.Errorf("check subject references: %w", err)
	}
	return referenced, nil
}

// SetArchived flips the soft-delete flag.
func (r *SubjectRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	const query = `UPDATE subjects SET archived = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, archived, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive subject: %w", err)
	}
	return nil
}

// Delete hard-removes an unreferenced subject.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}
