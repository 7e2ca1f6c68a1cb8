package dto

import "time"

// CreateClassroomRequest registers a room for a tenant.
type CreateClassroomRequest struct {
	TenantID string `json:"-" validate:"required"`
	Name     string `json:"name" validate:"required,max=120"`
	Floor    int    `json:"floor"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
}

// UpdateClassroomRequest mutates room attributes.
type UpdateClassroomRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Floor    *int    `json:"floor,omitempty"`
	Capacity *int    `json:"capacity,omitempty" validate:"omitempty,min=1"`
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=AVAILABLE UNAVAILABLE MAINTENANCE"`
}

// MarkUnavailableRequest takes a room out of service for a window. A nil
// EndAt keeps it blocked until explicitly cleared. SubstituteClassroomID is
// set when an operator accepts a ranked suggestion.
type MarkUnavailableRequest struct {
	TenantID              string     `json:"-" validate:"required"`
	ClassroomID           string     `json:"-" validate:"required"`
	StartAt               time.Time  `json:"start_at" validate:"required"`
	EndAt                 *time.Time `json:"end_at,omitempty"`
	Reason                string     `json:"reason" validate:"required,max=500"`
	SubstituteClassroomID *string    `json:"substitute_classroom_id,omitempty"`
}

// SuggestSubstitutesQuery asks for replacement candidates for a room over a
// window.
type SuggestSubstitutesQuery struct {
	TenantID    string
	ClassroomID string
	StartAt     time.Time
	EndAt       *time.Time
}

// RankedCandidate is one substitution suggestion; lower scores rank first.
type RankedCandidate struct {
	ClassroomID string  `json:"classroom_id"`
	Name        string  `json:"name"`
	Floor       int     `json:"floor"`
	Capacity    int     `json:"capacity"`
	Score       float64 `json:"score"`
}
