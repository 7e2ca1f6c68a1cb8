package models

import "time"

// SubjectType orders placement priority during grid generation.
type SubjectType string

const (
	SubjectTypeCore     SubjectType = "CORE"
	SubjectTypeLab      SubjectType = "LAB"
	SubjectTypeElective SubjectType = "ELECTIVE"
)

// PlacementPriority returns the generation order for a subject type. Lower
// values are placed first.
func (t SubjectType) PlacementPriority() int {
	switch t {
	case SubjectTypeCore:
		return 0
	case SubjectTypeLab:
		return 1
	default:
		return 2
	}
}

// Subject represents a catalogue entry scoped to a tenant and academic
// period. Codes are unique per (tenant, year, semester, period).
type Subject struct {
	ID                 string      `db:"id" json:"id"`
	TenantID           string      `db:"tenant_id" json:"tenant_id"`
	Code               string      `db:"code" json:"code"`
	Name               string      `db:"name" json:"name"`
	Type               SubjectType `db:"type" json:"type"`
	TotalDurationHours int         `db:"total_duration_hours" json:"total_duration_hours"`
	WeeklyHours        int         `db:"weekly_hours" json:"weekly_hours"`
	BlockSize          int         `db:"block_size" json:"block_size"`
	Year               int         `db:"year" json:"year"`
	Semester           int         `db:"semester" json:"semester"`
	AcademicPeriod     string      `db:"academic_period" json:"academic_period"`
	Archived           bool        `db:"archived" json:"archived"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
}

// WeeklyHoursFor derives the weekly quota from the total term duration.
func WeeklyHoursFor(totalDurationHours, termWeeks int) int {
	if termWeeks <= 0 {
		termWeeks = 12
	}
	if totalDurationHours <= 0 {
		return 0
	}
	return (totalDurationHours + termWeeks - 1) / termWeeks
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Year            int
	Semester        int
	AcademicPeriod  string
	Type            string
	IncludeArchived bool
	Search          string
	Page            int
	PageSize        int
}
