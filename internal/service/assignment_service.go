package service

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/opencampus/uniportal-api/internal/dto"
	"github.com/opencampus/uniportal-api/internal/models"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
	"github.com/opencampus/uniportal-api/pkg/interval"
)

type assignmentPreferenceLister interface {
	ListByTenantPeriod(ctx context.Context, tenantID, period string) ([]models.FacultyPreference, error)
}

type assignmentPublishedLister interface {
	ListPublished(ctx context.Context, exec sqlx.ExtContext, tenantID, period string) ([]models.Timetable, error)
}

// AssignmentService annotates generated grids with faculty drawn from
// submitted preferences.
type AssignmentService struct {
	prefs     assignmentPreferenceLister
	published assignmentPublishedLister
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService wires resolver dependencies.
func NewAssignmentService(prefs assignmentPreferenceLister, published assignmentPublishedLister, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{prefs: prefs, published: published, validator: validate, logger: logger}
}

// AssignFaculty loads the tenant's preferences and published timetables for
// the period, then resolves one faculty member per occupied cell. Cells no
// candidate can serve are reported, not fatal.
func (s *AssignmentService) AssignFaculty(ctx context.Context, req dto.AssignFacultyRequest) (*dto.AssignFacultyResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty assignment payload")
	}

	prefs, err := s.prefs.ListByTenantPeriod(ctx, req.TenantID, req.AcademicPeriod)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty preferences")
	}
	published, err := s.published.ListPublished(ctx, nil, req.TenantID, req.AcademicPeriod)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published timetables")
	}

	days, unresolved, err := ResolveAssignments(req.Days, prefs, published)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grid payload")
	}

	s.logger.Info("faculty_assigned",
		zap.String("tenant_id", req.TenantID),
		zap.String("academic_period", req.AcademicPeriod),
		zap.Int("unresolved", len(unresolved)),
	)
	return &dto.AssignFacultyResponse{Days: days, Unresolved: unresolved}, nil
}

// ResolveAssignments is the pure resolver core. It never books a faculty
// member into two overlapping windows, in this grid or in any published
// timetable passed in.
func ResolveAssignments(grid []models.TimetableDay, prefs []models.FacultyPreference, published []models.Timetable) ([]models.TimetableDay, []dto.UnresolvedAssignment, error) {
	candidates := groupPreferences(prefs)

	busy := make(map[string][]interval.Window)
	hours := make(map[string]int)
	for _, timetable := range published {
		days, err := timetable.DecodeDays()
		if err != nil {
			return nil, nil, err
		}
		for _, day := range days {
			for _, slot := range day.Slots {
				if slot.SubjectCode == "" || slot.FacultyID == nil {
					continue
				}
				window, err := models.SlotWindow(day.Day, slot.StartTime, slot.EndTime)
				if err != nil {
					return nil, nil, err
				}
				busy[*slot.FacultyID] = append(busy[*slot.FacultyID], window)
				hours[*slot.FacultyID]++
			}
		}
	}

	days := cloneDays(grid)
	sort.SliceStable(days, func(i, j int) bool { return days[i].Day < days[j].Day })

	var unresolved []dto.UnresolvedAssignment
	for di := range days {
		for si := range days[di].Slots {
			slot := &days[di].Slots[si]
			if slot.SubjectCode == "" {
				continue
			}
			window, err := models.SlotWindow(days[di].Day, slot.StartTime, slot.EndTime)
			if err != nil {
				return nil, nil, err
			}

			pool := candidates[slot.SubjectCode]
			if len(pool) == 0 {
				unresolved = append(unresolved, unresolvedCell(days[di].Day, *slot, "no faculty preference submitted for subject"))
				continue
			}

			chosen := pickCandidate(pool, busy, hours, window)
			if chosen == nil {
				unresolved = append(unresolved, unresolvedCell(days[di].Day, *slot, "all interested faculty are booked at this time"))
				continue
			}

			facultyID := chosen.FacultyID
			slot.FacultyID = &facultyID
			busy[facultyID] = append(busy[facultyID], window)
			hours[facultyID]++
		}
	}

	return days, unresolved, nil
}

// pickCandidate selects the least-loaded free candidate; ties fall to the
// earliest submission, then faculty id for full determinism.
func pickCandidate(pool []models.FacultyPreference, busy map[string][]interval.Window, hours map[string]int, window interval.Window) *models.FacultyPreference {
	var best *models.FacultyPreference
	for i := range pool {
		candidate := &pool[i]
		if overlapsAny(busy[candidate.FacultyID], window) {
			continue
		}
		if best == nil {
			best = candidate
			continue
		}
		switch {
		case hours[candidate.FacultyID] < hours[best.FacultyID]:
			best = candidate
		case hours[candidate.FacultyID] == hours[best.FacultyID]:
			if candidate.SubmittedAt.Before(best.SubmittedAt) ||
				(candidate.SubmittedAt.Equal(best.SubmittedAt) && candidate.FacultyID < best.FacultyID) {
				best = candidate
			}
		}
	}
	return best
}

func overlapsAny(windows []interval.Window, w interval.Window) bool {
	for _, existing := range windows {
		if interval.Overlaps(existing, w) {
			return true
		}
	}
	return false
}

func groupPreferences(prefs []models.FacultyPreference) map[string][]models.FacultyPreference {
	grouped := make(map[string][]models.FacultyPreference)
	for _, pref := range prefs {
		grouped[pref.SubjectCode] = append(grouped[pref.SubjectCode], pref)
	}
	for code := range grouped {
		pool := grouped[code]
		sort.SliceStable(pool, func(i, j int) bool {
			if !pool[i].SubmittedAt.Equal(pool[j].SubmittedAt) {
				return pool[i].SubmittedAt.Before(pool[j].SubmittedAt)
			}
			return pool[i].FacultyID < pool[j].FacultyID
		})
		grouped[code] = pool
	}
	return grouped
}

func unresolvedCell(day int, slot models.TimetableSlot, reason string) dto.UnresolvedAssignment {
	return dto.UnresolvedAssignment{
		Day:         day,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		SubjectCode: slot.SubjectCode,
		Reason:      reason,
	}
}

func cloneDays(days []models.TimetableDay) []models.TimetableDay {
	cloned := make([]models.TimetableDay, len(days))
	for i, day := range days {
		cloned[i] = models.TimetableDay{Day: day.Day, Slots: make([]models.TimetableSlot, len(day.Slots))}
		copy(cloned[i].Slots, day.Slots)
	}
	return cloned
}
