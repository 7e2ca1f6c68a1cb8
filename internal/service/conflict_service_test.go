package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/uniportal-api/internal/models"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
)

func draftWith(t *testing.T, id string, classroomID *string, days []models.TimetableDay) *models.Timetable {
	t.Helper()
	timetable := &models.Timetable{
		ID:             id,
		TenantID:       "tenant-1",
		AcademicPeriod: "2026-ODD",
		ClassroomID:    classroomID,
		Status:         models.TimetableStatusDraft,
		Version:        1,
	}
	require.NoError(t, timetable.EncodeDays(days))
	return timetable
}

func TestDetectConflictsClassroomOverlap(t *testing.T) {
	candidate := draftWith(t, "tt-a", strPtr("room-1"), []models.TimetableDay{
		{Day: 1, Slots: []models.TimetableSlot{
			{StartTime: "09:00", EndTime: "10:00", SubjectCode: "MATH"},
		}},
	})
	other := publishedTimetable(t, "tt-b", []models.TimetableDay{
		{Day: 1, Slots: []models.TimetableSlot{
			{StartTime: "09:30", EndTime: "10:30", SubjectCode: "CHEM"},
		}},
	})
	other.ClassroomID = strPtr("room-1")

	conflicts, err := DetectConflicts(candidate, []models.Timetable{other})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictResourceClassroom, conflicts[0].Resource)
	assert.Equal(t, "room-1", conflicts[0].ResourceID)
	assert.Equal(t, 1, conflicts[0].Day)
	assert.Equal(t, "tt-a", conflicts[0].First.TimetableID)
	assert.Equal(t, "tt-b", conflicts[0].Second.TimetableID)
}

func TestDetectConflictsAdjacentWindowsAreClean(t *testing.T) {
	candidate := draftWith(t, "tt-a", strPtr("room-1"), []models.TimetableDay{
		{Day: 1, Slots: []models.TimetableSlot{
			{StartTime: "09:00", EndTime: "10:00", SubjectCode: "MATH"},
		}},
	})
	other := publishedTimetable(t, "tt-b", []models.TimetableDay{
		{Day: 1, Slots: []models.TimetableSlot{
			{StartTime: "10:00", EndTime: "11:00", SubjectCode: "CHEM"},
		}},
	})
	other.ClassroomID = strPtr("room-1")

	conflicts, err := DetectConflicts(candidate, []models.Timetable{other})
	require.NoError(t, err)
	assert.Empty(t, conflicts, "a class ending at 10:00 does not clash with one starting at 10:00")
}

func TestDetectConflictsFacultyAcrossRooms(t *testing.T) {
	candidate := draftWith(t, "tt-a", strPtr("room-1"), []models.TimetableDay{
		{Day: 2, Slots: []models.TimetableSlot{
			{StartTime: "09:00", EndTime: "10:00", SubjectCode: "MATH", FacultyID: strPtr("fac-1")},
		}},
	})
	other := publishedTimetable(t, "tt-b", []models.TimetableDay{
		{Day: 2, Slots: []models.TimetableSlot{
			{StartTime: "09:00", EndTime: "10:00", SubjectCode: "CHEM", FacultyID: strPtr("fac-1")},
		}},
	})
	other.ClassroomID = strPtr("room-2")

	conflicts, err := DetectConflicts(candidate, []models.Timetable{other})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictResourceFaculty, conflicts[0].Resource)
	assert.Equal(t, "fac-1", conflicts[0].ResourceID)
}

func TestDetectConflictsIgnoresSelf(t *testing.T) {
	candidate := draftWith(t, "tt-a", strPtr("room-1"), []models.TimetableDay{
		{Day: 1, Slots: []models.TimetableSlot{
			{StartTime: "09:00", EndTime: "10:00", SubjectCode: "MATH"},
		}},
	})
	// The published set may still contain the candidate itself.
	self := publishedTimetable(t, "tt-a", []models.TimetableDay{
		{Day: 1, Slots: []models.TimetableSlot{
			{StartTime: "09:00", EndTime: "10:00", SubjectCode: "MATH"},
		}},
	})
	self.ClassroomID = strPtr("room-1")

	conflicts, err := DetectConflicts(candidate, []models.Timetable{self})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

type conflictRepoStub struct {
	timetable *models.Timetable
	published []models.Timetable
}

func (s conflictRepoStub) FindByID(context.Context, string) (*models.Timetable, error) {
	return s.timetable, nil
}

func (s conflictRepoStub) ListPublished(context.Context, sqlx.ExtContext, string, string) ([]models.Timetable, error) {
	return s.published, nil
}

func TestConflictServiceCheckRejectsForeignTenant(t *testing.T) {
	candidate := draftWith(t, "tt-a", nil, nil)
	svc := NewConflictService(conflictRepoStub{timetable: candidate}, nil)

	_, err := svc.Check(context.Background(), "tenant-other", "tt-a")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
