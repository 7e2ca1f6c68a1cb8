package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/uniportal-api/internal/models"
)

func newPreferenceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func preferenceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "faculty_id", "subject_code", "academic_period",
		"submitted_at", "created_at", "updated_at",
	})
}

func TestFacultyPreferenceRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newPreferenceMock(t)
	defer cleanup()
	repo := NewFacultyPreferenceRepository(db)

	mock.ExpectExec("INSERT INTO faculty_preferences (.+) ON CONFLICT \\(tenant_id, faculty_id, subject_code, academic_period\\) DO UPDATE").
		WithArgs(sqlmock.AnyArg(), "tenant-1", "fac-1", "MATH", "2026-ODD", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	pref := &models.FacultyPreference{
		TenantID:       "tenant-1",
		FacultyID:      "fac-1",
		SubjectCode:    "MATH",
		AcademicPeriod: "2026-ODD",
	}
	require.NoError(t, repo.Upsert(context.Background(), pref))
	assert.NotEmpty(t, pref.ID)
	assert.False(t, pref.SubmittedAt.IsZero(), "submission time is stamped server-side")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacultyPreferenceRepositoryListByTenantPeriod(t *testing.T) {
	db, mock, cleanup := newPreferenceMock(t)
	defer cleanup()
	repo := NewFacultyPreferenceRepository(db)

	now := time.Now()
	rows := preferenceRows().
		AddRow("pref-1", "tenant-1", "fac-1", "MATH", "2026-ODD", now.Add(-time.Hour), now, now).
		AddRow("pref-2", "tenant-1", "fac-2", "MATH", "2026-ODD", now, now, now)
	mock.ExpectQuery("SELECT (.+) FROM faculty_preferences WHERE tenant_id = \\$1 AND academic_period = \\$2 ORDER BY submitted_at ASC").
		WithArgs("tenant-1", "2026-ODD").
		WillReturnRows(rows)

	prefs, err := repo.ListByTenantPeriod(context.Background(), "tenant-1", "2026-ODD")
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.Equal(t, "fac-1", prefs[0].FacultyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacultyPreferenceRepositoryListByFaculty(t *testing.T) {
	db, mock, cleanup := newPreferenceMock(t)
	defer cleanup()
	repo := NewFacultyPreferenceRepository(db)

	now := time.Now()
	rows := preferenceRows().
		AddRow("pref-1", "tenant-1", "fac-1", "CHEM", "2026-ODD", now, now, now).
		AddRow("pref-2", "tenant-1", "fac-1", "MATH", "2026-ODD", now, now, now)
	mock.ExpectQuery("SELECT (.+) FROM faculty_preferences WHERE tenant_id = \\$1 AND faculty_id = \\$2 AND academic_period = \\$3 ORDER BY subject_code ASC").
		WithArgs("tenant-1", "fac-1", "2026-ODD").
		WillReturnRows(rows)

	prefs, err := repo.ListByFaculty(context.Background(), "tenant-1", "fac-1", "2026-ODD")
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.Equal(t, "CHEM", prefs[0].SubjectCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacultyPreferenceRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newPreferenceMock(t)
	defer cleanup()
	repo := NewFacultyPreferenceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM faculty_preferences WHERE id = $1")).
		WithArgs("pref-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "pref-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
