package dto

// UpsertPreferenceRequest submits or refreshes a faculty member's interest
// in a subject for an academic period.
type UpsertPreferenceRequest struct {
	TenantID       string `json:"-" validate:"required"`
	FacultyID      string `json:"faculty_id" validate:"required"`
	SubjectCode    string `json:"subject_code" validate:"required"`
	AcademicPeriod string `json:"academic_period" validate:"required"`
}

// PreferenceQuery filters preference listings.
type PreferenceQuery struct {
	TenantID       string
	FacultyID      string
	AcademicPeriod string
}
