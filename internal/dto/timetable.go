package dto

import (
	"github.com/opencampus/uniportal-api/internal/models"
)

// SlotWindowRequest declares one fixed daily slot, "15:04" clock times.
type SlotWindowRequest struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// GenerateGridRequest asks for a weekly slot grid for one class section.
// Subject codes are resolved against the tenant catalogue in declared order.
type GenerateGridRequest struct {
	TenantID       string              `json:"-" validate:"required"`
	Year           int                 `json:"year" validate:"required,min=1"`
	Semester       int                 `json:"semester" validate:"required,min=1,max=12"`
	Division       string              `json:"division" validate:"required"`
	AcademicPeriod string              `json:"academic_period" validate:"required"`
	Days           []int               `json:"days" validate:"required,min=1,dive,min=1,max=7"`
	Slots          []SlotWindowRequest `json:"slots" validate:"required,min=1,dive"`
	SubjectCodes   []string            `json:"subject_codes" validate:"required,min=1"`
}

// SubjectPlacementFailure reports a lab subject that could not receive a
// contiguous slot run. The rest of the grid is still produced.
type SubjectPlacementFailure struct {
	SubjectCode string `json:"subject_code"`
	BlockSize   int    `json:"block_size"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}

// GenerateGridResponse carries the generated grid and any per-subject
// contiguous-block failures.
type GenerateGridResponse struct {
	Days          []models.TimetableDay     `json:"days"`
	BlockFailures []SubjectPlacementFailure `json:"block_failures,omitempty"`
}

// AssignFacultyRequest annotates a generated grid with faculty from
// submitted preferences.
type AssignFacultyRequest struct {
	TenantID       string                `json:"-" validate:"required"`
	AcademicPeriod string                `json:"academic_period" validate:"required"`
	Days           []models.TimetableDay `json:"days" validate:"required,min=1"`
}

// UnresolvedAssignment marks a cell left without faculty. Generation
// continues past these; they are fixed manually.
type UnresolvedAssignment struct {
	Day         int    `json:"day"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	SubjectCode string `json:"subject_code"`
	Reason      string `json:"reason"`
}

// AssignFacultyResponse carries the annotated grid and unresolved cells.
type AssignFacultyResponse struct {
	Days       []models.TimetableDay  `json:"days"`
	Unresolved []UnresolvedAssignment `json:"unresolved,omitempty"`
}

// CreateTimetableRequest stores an assembled grid as a draft timetable.
type CreateTimetableRequest struct {
	TenantID       string                `json:"-" validate:"required"`
	Year           int                   `json:"year" validate:"required,min=1"`
	Semester       int                   `json:"semester" validate:"required,min=1,max=12"`
	Division       string                `json:"division" validate:"required"`
	AcademicPeriod string                `json:"academic_period" validate:"required"`
	ClassroomID    *string               `json:"classroom_id,omitempty"`
	Days           []models.TimetableDay `json:"days" validate:"required,min=1"`
}

// UpdateTimetableGridRequest replaces the day grid of a draft.
type UpdateTimetableGridRequest struct {
	ClassroomID *string               `json:"classroom_id,omitempty"`
	Days        []models.TimetableDay `json:"days" validate:"required,min=1"`
}

// TimetableQuery filters timetable listings.
type TimetableQuery struct {
	TenantID       string
	Year           int
	Semester       int
	Division       string
	AcademicPeriod string
	Status         string
	Page           int
	PageSize       int
}

// PublishResult reports the outcome of a publish attempt. Conflicts is
// non-empty exactly when publication was rejected.
type PublishResult struct {
	TimetableID string                     `json:"timetable_id"`
	Status      models.TimetableStatus     `json:"status"`
	Conflicts   []models.TimetableConflict `json:"conflicts,omitempty"`
}
