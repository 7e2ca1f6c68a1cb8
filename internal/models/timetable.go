package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/opencampus/uniportal-api/pkg/interval"
)

// TimetableStatus represents lifecycle phases for timetables. Only published
// timetables participate in conflict and occupancy queries.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "DRAFT"
	TimetableStatusPublished TimetableStatus = "PUBLISHED"
)

// TimetableSlot is a single cell of the weekly grid. SubjectCode is empty
// for a free cell; FacultyID is nil until the resolver assigns one.
type TimetableSlot struct {
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	SubjectCode string  `json:"subject_code"`
	FacultyID   *string `json:"faculty_id,omitempty"`
}

// TimetableDay holds the ordered slot sequence for one weekday (1=Monday).
type TimetableDay struct {
	Day   int             `json:"day"`
	Slots []TimetableSlot `json:"slots"`
}

// Timetable is the weekly schedule of one class section (year/semester/
// division) within an academic period. The day grid is stored as JSONB.
type Timetable struct {
	ID             string          `db:"id" json:"id"`
	TenantID       string          `db:"tenant_id" json:"tenant_id"`
	Year           int             `db:"year" json:"year"`
	Semester       int             `db:"semester" json:"semester"`
	Division       string          `db:"division" json:"division"`
	AcademicPeriod string          `db:"academic_period" json:"academic_period"`
	ClassroomID    *string         `db:"classroom_id" json:"classroom_id,omitempty"`
	Days           types.JSONText  `db:"days" json:"days"`
	Status         TimetableStatus `db:"status" json:"status"`
	Version        int             `db:"version" json:"version"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// DecodeDays unmarshals the stored day grid.
func (t *Timetable) DecodeDays() ([]TimetableDay, error) {
	if len(t.Days) == 0 {
		return nil, nil
	}
	var days []TimetableDay
	if err := json.Unmarshal(t.Days, &days); err != nil {
		return nil, fmt.Errorf("decode timetable days: %w", err)
	}
	return days, nil
}

// EncodeDays marshals the day grid into the JSONB column.
func (t *Timetable) EncodeDays(days []TimetableDay) error {
	raw, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("encode timetable days: %w", err)
	}
	t.Days = types.JSONText(raw)
	return nil
}

// TimetableFilter describes query params for listing timetables.
type TimetableFilter struct {
	Year           int
	Semester       int
	Division       string
	AcademicPeriod string
	Status         string
	Page           int
	PageSize       int
}

// ConflictResource names the clashing resource kind.
type ConflictResource string

const (
	ConflictResourceClassroom ConflictResource = "CLASSROOM"
	ConflictResourceFaculty   ConflictResource = "FACULTY"
)

// ConflictWindow identifies one side of a clash.
type ConflictWindow struct {
	TimetableID string `json:"timetable_id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// TimetableConflict names a resource booked twice at overlapping times.
type TimetableConflict struct {
	Resource   ConflictResource `json:"resource"`
	ResourceID string           `json:"resource_id"`
	Day        int              `json:"day"`
	First      ConflictWindow   `json:"first"`
	Second     ConflictWindow   `json:"second"`
}

// TimetableConflictError carries the full conflict list when publication is
// blocked.
type TimetableConflictError struct {
	Message   string              `json:"message"`
	Conflicts []TimetableConflict `json:"conflicts"`
}

// Error implements the error interface.
func (e *TimetableConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// UnmetSubject reports a quota shortfall when a grid cannot fit.
type UnmetSubject struct {
	SubjectCode    string `json:"subject_code"`
	RequestedHours int    `json:"requested_hours"`
	PlacedHours    int    `json:"placed_hours"`
	Deficit        int    `json:"deficit"`
}

// GridCapacityError is returned when total requested hours exceed the grid.
type GridCapacityError struct {
	Message string         `json:"message"`
	Unmet   []UnmetSubject `json:"unmet"`
}

// Error implements the error interface.
func (e *GridCapacityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// refMonday anchors weekday clock times onto a comparable timeline so slot
// windows from different timetables can be tested with the shared interval
// predicate. 2024-01-01 is a Monday.
var refMonday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// SlotWindow converts a (weekday, start, end) clock pair into a half-open
// window on the reference week. Times use the "15:04" layout.
func SlotWindow(day int, startTime, endTime string) (interval.Window, error) {
	start, err := time.Parse("15:04", startTime)
	if err != nil {
		return interval.Window{}, fmt.Errorf("parse slot start %q: %w", startTime, err)
	}
	end, err := time.Parse("15:04", endTime)
	if err != nil {
		return interval.Window{}, fmt.Errorf("parse slot end %q: %w", endTime, err)
	}
	if !end.After(start) {
		return interval.Window{}, fmt.Errorf("slot end %q not after start %q", endTime, startTime)
	}
	base := refMonday.AddDate(0, 0, day-1)
	s := base.Add(time.Duration(start.Hour())*time.Hour + time.Duration(start.Minute())*time.Minute)
	e := base.Add(time.Duration(end.Hour())*time.Hour + time.Duration(end.Minute())*time.Minute)
	return interval.Closed(s, e), nil
}
