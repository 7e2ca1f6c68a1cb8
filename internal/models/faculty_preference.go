package models

import "time"

// FacultyPreference records a faculty member's interest in teaching a
// subject during an academic period. At most one active row exists per
// (faculty, subject, period); resubmission updates it in place.
type FacultyPreference struct {
	ID             string    `db:"id" json:"id"`
	TenantID       string    `db:"tenant_id" json:"tenant_id"`
	FacultyID      string    `db:"faculty_id" json:"faculty_id"`
	SubjectCode    string    `db:"subject_code" json:"subject_code"`
	AcademicPeriod string    `db:"academic_period" json:"academic_period"`
	SubmittedAt    time.Time `db:"submitted_at" json:"submitted_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
