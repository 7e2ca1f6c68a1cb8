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

func newClassroomMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func classroomRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "floor", "capacity", "status", "created_at", "updated_at",
	})
}

func TestClassroomRepositoryCreateAndFindByName(t *testing.T) {
	db, mock, cleanup := newClassroomMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectExec("INSERT INTO classrooms").
		WithArgs(sqlmock.AnyArg(), "tenant-1", "A-201", 2, 40, "AVAILABLE", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	room := &models.Classroom{TenantID: "tenant-1", Name: "A-201", Floor: 2, Capacity: 40}
	require.NoError(t, repo.Create(context.Background(), room))
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, models.ClassroomStatusAvailable, room.Status)

	now := time.Now()
	rows := classroomRows().
		AddRow("room-1", "tenant-1", "A-201", 2, 40, "AVAILABLE", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tenant_id, name, floor, capacity, status, created_at, updated_at FROM classrooms WHERE tenant_id = $1 AND name = $2")).
		WithArgs("tenant-1", "A-201").
		WillReturnRows(rows)

	found, err := repo.FindByName(context.Background(), "tenant-1", "A-201")
	require.NoError(t, err)
	assert.Equal(t, "room-1", found.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryListFiltersAndCounts(t *testing.T) {
	db, mock, cleanup := newClassroomMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	now := time.Now()
	rows := classroomRows().
		AddRow("room-1", "tenant-1", "A-201", 2, 40, "AVAILABLE", now, now)
	mock.ExpectQuery("SELECT (.+) FROM classrooms WHERE tenant_id = \\$1 AND status = \\$2 AND name ILIKE \\$3 ORDER BY capacity DESC LIMIT 10 OFFSET 0").
		WithArgs("tenant-1", "AVAILABLE", "%A-%").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM classrooms WHERE tenant_id = \\$1 AND status = \\$2 AND name ILIKE \\$3").
		WithArgs("tenant-1", "AVAILABLE", "%A-%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rooms, total, err := repo.List(context.Background(), "tenant-1", models.ClassroomFilter{
		Status:    "AVAILABLE",
		Search:    "A-",
		SortBy:    "capacity",
		SortOrder: "desc",
		Page:      1,
		PageSize:  10,
	})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryListRejectsUnknownSortColumn(t *testing.T) {
	db, mock, cleanup := newClassroomMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	// An unlisted sort column falls back to name ASC instead of reaching SQL.
	mock.ExpectQuery("SELECT (.+) FROM classrooms WHERE tenant_id = \\$1 ORDER BY name ASC LIMIT 20 OFFSET 0").
		WithArgs("tenant-1").
		WillReturnRows(classroomRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM classrooms WHERE tenant_id = \\$1").
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), "tenant-1", models.ClassroomFilter{
		SortBy: "capacity; DROP TABLE classrooms",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassroomRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newClassroomMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classrooms SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("room-1", "UNAVAILABLE", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "room-1", models.ClassroomStatusUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}
