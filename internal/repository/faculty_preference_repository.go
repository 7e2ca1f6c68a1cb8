package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencampus/uniportal-api/internal/models"
)

// FacultyPreferenceRepository persists faculty subject preferences.
type FacultyPreferenceRepository struct {
	db *sqlx.DB
}

// NewFacultyPreferenceRepository constructs the repository.
func NewFacultyPreferenceRepository(db *sqlx.DB) *FacultyPreferenceRepository {
	return &FacultyPreferenceRepository{db: db}
}

const preferenceColumns = "id, tenant_id, faculty_id, subject_code, academic_period, submitted_at, created_at, updated_at"

// Upsert creates or refreshes the single active preference row for a
// (faculty, subject, period) tuple.
func (r *FacultyPreferenceRepository) Upsert(ctx context.Context, pref *models.FacultyPreference) error {
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}
	if pref.SubmittedAt.IsZero() {
		pref.SubmittedAt = now
	}
	pref.UpdatedAt = now

	const query = `INSERT INTO faculty_preferences (id, tenant_id, faculty_id, subject_code, academic_period, submitted_at, created_at, updated_at)
		VALUES (:id, :tenant_id, :faculty_id, :subject_code, :academic_period, :submitted_at, :created_at, :updated_at)
		ON CONFLICT (tenant_id, faculty_id, subject_code, academic_period) DO UPDATE
		SET submitted_at = EXCLUDED.submitted_at,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, pref); err != nil {
		return fmt.Errorf("upsert faculty preference: %w", err)
	}
	return nil
}

// ListByTenantPeriod returns all preferences feeding the assignment
// resolver for one academic period.
func (r *FacultyPreferenceRepository) ListByTenantPeriod(ctx context.Context, tenantID, period string) ([]models.FacultyPreference, error) {
	query := fmt.Sprintf("SELECT %s FROM faculty_preferences WHERE tenant_id = $1 AND academic_period = $2 ORDER BY submitted_at ASC", preferenceColumns)
	var prefs []models.FacultyPreference
	if err := r.db.SelectContext(ctx, &prefs, query, tenantID, period); err != nil {
		return nil, fmt.Errorf("list preferences by tenant and period: %w", err)
	}
	return prefs, nil
}

// ListByFaculty returns one faculty member's submissions for a period.
func (r *FacultyPreferenceRepository) ListByFaculty(ctx context.Context, tenantID, facultyID, period string) ([]models.FacultyPreference, error) {
	query := fmt.Sprintf("SELECT %s FROM faculty_preferences WHERE tenant_id = $1 AND faculty_id = $2 AND academic_period = $3 ORDER BY subject_code ASC", preferenceColumns)
	var prefs []models.FacultyPreference
	if err := r.db.SelectContext(ctx, &prefs, query, tenantID, facultyID, period); err != nil {
		return nil, fmt.Errorf("list preferences by faculty: %w", err)
	}
	return prefs, nil
}

// Delete removes a preference by id.
func (r *FacultyPreferenceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM faculty_preferences WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete faculty preference: %w", err)
	}
	return nil
}
