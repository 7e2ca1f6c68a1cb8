package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/opencampus/uniportal-api/internal/models"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
	"github.com/opencampus/uniportal-api/pkg/interval"
)

type conflictTimetableRepo interface {
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	ListPublished(ctx context.Context, exec sqlx.ExtContext, tenantID, period string) ([]models.Timetable, error)
}

// ConflictService detects double-booked classrooms and faculty between a
// timetable and the published set of its academic period.
type ConflictService struct {
	timetables conflictTimetableRepo
	logger     *zap.Logger
}

// NewConflictService wires checker dependencies.
func NewConflictService(timetables conflictTimetableRepo, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{timetables: timetables, logger: logger}
}

// Check loads one timetable and reports every clash it has against itself
// and against the tenant's published timetables. An empty result means the
// timetable is safe to publish.
func (s *ConflictService) Check(ctx context.Context, tenantID, timetableID string) ([]models.TimetableConflict, error) {
	timetable, err := s.timetables.FindByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if timetable.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
	}

	published, err := s.timetables.ListPublished(ctx, nil, tenantID, timetable.AcademicPeriod)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published timetables")
	}

	conflicts, err := DetectConflicts(timetable, published)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect timetable grids")
	}

	s.logger.Info("conflicts_checked",
		zap.String("tenant_id", tenantID),
		zap.String("timetable_id", timetableID),
		zap.Int("conflicts", len(conflicts)),
	)
	return conflicts, nil
}

// occupancy is one resource booking derived from a grid cell.
type occupancy struct {
	resource    models.ConflictResource
	resourceID  string
	day         int
	timetableID string
	start       string
	end         string
	window      interval.Window
}

// DetectConflicts is the pure checker core. It reports every pair of
// overlapping bookings of the same resource where at least one side belongs
// to the candidate timetable. Output order is deterministic.
func DetectConflicts(candidate *models.Timetable, published []models.Timetable) ([]models.TimetableConflict, error) {
	own, err := collectOccupancies(candidate)
	if err != nil {
		return nil, err
	}

	var others []occupancy
	for i := range published {
		if published[i].ID == candidate.ID {
			continue
		}
		entries, err := collectOccupancies(&published[i])
		if err != nil {
			return nil, err
		}
		others = append(others, entries...)
	}

	var conflicts []models.TimetableConflict
	for i := 0; i < len(own); i++ {
		for j := i + 1; j < len(own); j++ {
			if clash(own[i], own[j]) {
				conflicts = append(conflicts, newConflict(own[i], own[j]))
			}
		}
		for _, other := range others {
			if clash(own[i], other) {
				conflicts = append(conflicts, newConflict(own[i], other))
			}
		}
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.First.StartTime != b.First.StartTime {
			return a.First.StartTime < b.First.StartTime
		}
		if a.Second.TimetableID != b.Second.TimetableID {
			return a.Second.TimetableID < b.Second.TimetableID
		}
		return a.Second.StartTime < b.Second.StartTime
	})
	return conflicts, nil
}

func collectOccupancies(timetable *models.Timetable) ([]occupancy, error) {
	days, err := timetable.DecodeDays()
	if err != nil {
		return nil, err
	}
	var entries []occupancy
	for _, day := range days {
		for _, slot := range day.Slots {
			if slot.SubjectCode == "" {
				continue
			}
			window, err := models.SlotWindow(day.Day, slot.StartTime, slot.EndTime)
			if err != nil {
				return nil, err
			}
			base := occupancy{
				day:         day.Day,
				timetableID: timetable.ID,
				start:       slot.StartTime,
				end:         slot.EndTime,
				window:      window,
			}
			if timetable.ClassroomID != nil {
				entry := base
				entry.resource = models.ConflictResourceClassroom
				entry.resourceID = *timetable.ClassroomID
				entries = append(entries, entry)
			}
			if slot.FacultyID != nil {
				entry := base
				entry.resource = models.ConflictResourceFaculty
				entry.resourceID = *slot.FacultyID
				entries = append(entries, entry)
			}
		}
	}
	return entries, nil
}

func clash(a, b occupancy) bool {
	return a.resource == b.resource &&
		a.resourceID == b.resourceID &&
		interval.Overlaps(a.window, b.window)
}

func newConflict(first, second occupancy) models.TimetableConflict {
	return models.TimetableConflict{
		Resource:   first.resource,
		ResourceID: first.resourceID,
		Day:        first.day,
		First:      models.ConflictWindow{TimetableID: first.timetableID, StartTime: first.start, EndTime: first.end},
		Second:     models.ConflictWindow{TimetableID: second.timetableID, StartTime: second.start, EndTime: second.end},
	}
}
