package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/uniportal-api/internal/dto"
	"github.com/opencampus/uniportal-api/internal/models"
)

type preferenceListerStub struct {
	prefs []models.FacultyPreference
}

func (s preferenceListerStub) ListByTenantPeriod(context.Context, string, string) ([]models.FacultyPreference, error) {
	return s.prefs, nil
}

type publishedListerStub struct {
	timetables []models.Timetable
}

func (s publishedListerStub) ListPublished(context.Context, sqlx.ExtContext, string, string) ([]models.Timetable, error) {
	return s.timetables, nil
}

func pref(facultyID, subject string, submitted time.Time) models.FacultyPreference {
	return models.FacultyPreference{
		TenantID:       "tenant-1",
		FacultyID:      facultyID,
		SubjectCode:    subject,
		AcademicPeriod: "2026-ODD",
		SubmittedAt:    submitted,
	}
}

func publishedTimetable(t *testing.T, id string, days []models.TimetableDay) models.Timetable {
	t.Helper()
	timetable := models.Timetable{ID: id, TenantID: "tenant-1", Status: models.TimetableStatusPublished}
	require.NoError(t, timetable.EncodeDays(days))
	return timetable
}

func strPtr(s string) *string { return &s }

func TestResolveAssignmentsSkipsBusyFaculty(t *testing.T) {
	t0 := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	prefs := []models.FacultyPreference{
		pref("fac-1", "MATH", t0),
		pref("fac-2", "MATH", t0.Add(time.Hour)),
	}
	published := []models.Timetable{publishedTimetable(t, "tt-other", []models.TimetableDay{
		{Day: 1, Slots: []models.TimetableSlot{
			{StartTime: "09:00", EndTime: "10:00", SubjectCode: "CHEM", FacultyID: strPtr("fac-1")},
		}},
	})}
	grid := []models.TimetableDay{
		{Day: 1, Slots: []models.TimetableSlot{
			{StartTime: "09:00", EndTime: "10:00", SubjectCode: "MATH"},
			{StartTime: "10:00", EndTime: "11:00", SubjectCode: "MATH"},
		}},
	}

	days, unresolved, err := ResolveAssignments(grid, prefs, published)
	require.NoError(t, err)
	require.Empty(t, unresolved)

	// fac-1 is booked 09:00-10:00 elsewhere, so the first cell falls to
	// fac-2; the second is free again and both carry one hour, so the
	// earlier submission wins.
	require.NotNil(t, days[0].Slots[0].FacultyID)
	assert.Equal(t, "fac-2", *days[0].Slots[0].FacultyID)
	require.NotNil(t, days[0].Slots[1].FacultyID)
	assert.Equal(t, "fac-1", *days[0].Slots[1].FacultyID)
}

func TestResolveAssignmentsBalancesLoad(t *testing.T) {
	t0 := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	prefs := []models.FacultyPreference{
		pref("fac-1", "MATH", t0),
		pref("fac-2", "MATH", t0.Add(time.Minute)),
	}
	grid := []models.TimetableDay{
		{Day: 1, Slots: []models.TimetableSlot{
			{StartTime: "09:00", EndTime: "10:00", SubjectCode: "MATH"},
		}},
		{Day: 2, Slots: []models.TimetableSlot{
			{StartTime: "09:00", EndTime: "10:00", SubjectCode: "MATH"},
		}},
	}

	days, unresolved, err := ResolveAssignments(grid, prefs, nil)
	require.NoError(t, err)
	require.Empty(t, unresolved)
	assert.Equal(t, "fac-1", *days[0].Slots[0].FacultyID)
	assert.Equal(t, "fac-2", *days[1].Slots[0].FacultyID, "second cell goes to the less loaded candidate")
}

func TestResolveAssignmentsReportsUnresolvedCells(t *testing.T) {
	t0 := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	prefs := []models.FacultyPreference{pref("fac-1", "MATH", t0)}
	published := []models.Timetable{publishedTimetable(t, "tt-other", []models.TimetableDay{
		{Day: 1, Slots: []models.TimetableSlot{
			{StartTime: "09:00", EndTime: "11:00", SubjectCode: "CHEM", FacultyID: strPtr("fac-1")},
		}},
	})}
	grid := []models.TimetableDay{
		{Day: 1, Slots: []models.TimetableSlot{
			{StartTime: "09:00", EndTime: "10:00", SubjectCode: "MATH"},
			{StartTime: "10:00", EndTime: "11:00", SubjectCode: "HIST"},
		}},
	}

	days, unresolved, err := ResolveAssignments(grid, prefs, published)
	require.NoError(t, err)
	require.Len(t, unresolved, 2)

	assert.Nil(t, days[0].Slots[0].FacultyID)
	assert.Equal(t, "MATH", unresolved[0].SubjectCode)
	assert.Contains(t, unresolved[0].Reason, "booked")
	assert.Equal(t, "HIST", unresolved[1].SubjectCode)
	assert.Contains(t, unresolved[1].Reason, "no faculty preference")
}

func TestResolveAssignmentsNeverDoubleBooksWithinGrid(t *testing.T) {
	t0 := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	// One candidate interested in both subjects taught at the same time.
	prefs := []models.FacultyPreference{
		pref("fac-1", "MATH", t0),
		pref("fac-1", "CHEM", t0),
	}
	grid := []models.TimetableDay{
		{Day: 1, Slots: []models.TimetableSlot{
			{StartTime: "09:00", EndTime: "10:00", SubjectCode: "MATH"},
			{StartTime: "09:30", EndTime: "10:30", SubjectCode: "CHEM"},
		}},
	}

	days, unresolved, err := ResolveAssignments(grid, prefs, nil)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "CHEM", unresolved[0].SubjectCode)
	assert.Nil(t, days[0].Slots[1].FacultyID)
}

func TestAssignmentServiceAssignFaculty(t *testing.T) {
	t0 := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	svc := NewAssignmentService(
		preferenceListerStub{prefs: []models.FacultyPreference{pref("fac-1", "MATH", t0)}},
		publishedListerStub{},
		nil, nil,
	)

	resp, err := svc.AssignFaculty(context.Background(), dto.AssignFacultyRequest{
		TenantID:       "tenant-1",
		AcademicPeriod: "2026-ODD",
		Days: []models.TimetableDay{
			{Day: 1, Slots: []models.TimetableSlot{
				{StartTime: "09:00", EndTime: "10:00", SubjectCode: "MATH"},
			}},
		},
	})
	require.NoError(t, err)
	require.Empty(t, resp.Unresolved)
	assert.Equal(t, "fac-1", *resp.Days[0].Slots[0].FacultyID)
}
