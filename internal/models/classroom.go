package models

import (
	"time"

	"github.com/opencampus/uniportal-api/pkg/interval"
)

// ClassroomStatus captures the operational state of a room.
type ClassroomStatus string

const (
	ClassroomStatusAvailable   ClassroomStatus = "AVAILABLE"
	ClassroomStatusUnavailable ClassroomStatus = "UNAVAILABLE"
	ClassroomStatusMaintenance ClassroomStatus = "MAINTENANCE"
)

// Classroom represents a physical room owned by a tenant. Names are unique
// per tenant.
type Classroom struct {
	ID        string          `db:"id" json:"id"`
	TenantID  string          `db:"tenant_id" json:"tenant_id"`
	Name      string          `db:"name" json:"name"`
	Floor     int             `db:"floor" json:"floor"`
	Capacity  int             `db:"capacity" json:"capacity"`
	Status    ClassroomStatus `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// ClassroomFilter captures supported filters for listing classrooms.
type ClassroomFilter struct {
	Status    string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ClassroomUnavailability blocks a room for a window. A nil EndAt keeps the
// room blocked until the record is explicitly cleared.
type ClassroomUnavailability struct {
	ID                    string     `db:"id" json:"id"`
	TenantID              string     `db:"tenant_id" json:"tenant_id"`
	ClassroomID           string     `db:"classroom_id" json:"classroom_id"`
	StartAt               time.Time  `db:"start_at" json:"start_at"`
	EndAt                 *time.Time `db:"end_at" json:"end_at,omitempty"`
	Reason                string     `db:"reason" json:"reason"`
	SubstituteClassroomID *string    `db:"substitute_classroom_id" json:"substitute_classroom_id,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
}

// Window returns the blocking window as a half-open interval.
func (u ClassroomUnavailability) Window() interval.Window {
	return interval.Window{Start: u.StartAt, End: u.EndAt}
}
