package dto

// CreateSubjectRequest adds a subject to the tenant catalogue. Weekly hours
// are derived server-side from the total duration and term length.
type CreateSubjectRequest struct {
	TenantID           string `json:"-" validate:"required"`
	Code               string `json:"code" validate:"required,max=32"`
	Name               string `json:"name" validate:"required,max=200"`
	Type               string `json:"type" validate:"required,oneof=CORE LAB ELECTIVE"`
	TotalDurationHours int    `json:"total_duration_hours" validate:"required,min=1"`
	BlockSize          int    `json:"block_size" validate:"omitempty,min=2,max=4"`
	Year               int    `json:"year" validate:"required,min=1"`
	Semester           int    `json:"semester" validate:"required,min=1,max=12"`
	AcademicPeriod     string `json:"academic_period" validate:"required"`
}

// UpdateSubjectRequest mutates catalogue attributes.
type UpdateSubjectRequest struct {
	Name               *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Type               *string `json:"type,omitempty" validate:"omitempty,oneof=CORE LAB ELECTIVE"`
	TotalDurationHours *int    `json:"total_duration_hours,omitempty" validate:"omitempty,min=1"`
	BlockSize          *int    `json:"block_size,omitempty" validate:"omitempty,min=0,max=4"`
}
