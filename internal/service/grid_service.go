package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opencampus/uniportal-api/internal/dto"
	"github.com/opencampus/uniportal-api/internal/models"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
)

type gridSubjectResolver interface {
	ListByCodes(ctx context.Context, tenantID string, year, semester int, period string, codes []string) ([]models.Subject, error)
}

// GridService generates weekly slot grids from subject quotas.
type GridService struct {
	subjects  gridSubjectResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGridService wires generator dependencies.
func NewGridService(subjects gridSubjectResolver, validate *validator.Validate, logger *zap.Logger) *GridService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GridService{subjects: subjects, validator: validate, logger: logger}
}

// Generate produces a grid where every subject occupies exactly its weekly
// quota of cells. Output is deterministic for identical input.
func (s *GridService) Generate(ctx context.Context, req dto.GenerateGridRequest) (*dto.GenerateGridResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grid generation payload")
	}

	days := normalizeDays(req.Days)
	if len(days) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "days must contain at least one entry between 1-7")
	}
	slots, err := buildSlotMeta(req.Slots)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot list")
	}

	subjects, err := s.resolveSubjects(ctx, req)
	if err != nil {
		return nil, err
	}

	grid, failures, err := buildWeeklyGrid(days, slots, subjects)
	if err != nil {
		return nil, err
	}

	s.logger.Info("grid_generated",
		zap.String("tenant_id", req.TenantID),
		zap.String("division", req.Division),
		zap.Int("subjects", len(subjects)),
		zap.Int("block_failures", len(failures)),
	)
	return &dto.GenerateGridResponse{Days: grid, BlockFailures: failures}, nil
}

func (s *GridService) resolveSubjects(ctx context.Context, req dto.GenerateGridRequest) ([]models.Subject, error) {
	found, err := s.subjects.ListByCodes(ctx, req.TenantID, req.Year, req.Semester, req.AcademicPeriod, req.SubjectCodes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	byCode := make(map[string]models.Subject, len(found))
	for _, subject := range found {
		byCode[subject.Code] = subject
	}

	// Preserve declared order; it is the documented tie-break.
	ordered := make([]models.Subject, 0, len(req.SubjectCodes))
	seen := make(map[string]bool, len(req.SubjectCodes))
	for _, code := range req.SubjectCodes {
		if seen[code] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s listed twice", code))
		}
		seen[code] = true
		subject, ok := byCode[code]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subject %s not found", code))
		}
		if subject.WeeklyHours <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s has no weekly hours", code))
		}
		ordered = append(ordered, subject)
	}
	return ordered, nil
}

// --- Grid builder ---

type slotMeta struct {
	start string
	end   string
	// adjacentPrev marks slots whose window starts exactly when the
	// previous slot ends; lab blocks may only span such runs.
	adjacentPrev bool
}

func buildSlotMeta(slots []dto.SlotWindowRequest) ([]slotMeta, error) {
	metas := make([]slotMeta, 0, len(slots))
	var prevEnd string
	for i, slot := range slots {
		if _, err := models.SlotWindow(1, slot.Start, slot.End); err != nil {
			return nil, err
		}
		if i > 0 && slot.Start < prevEnd {
			return nil, fmt.Errorf("slot %d starts before previous slot ends", i+1)
		}
		metas = append(metas, slotMeta{
			start:        slot.Start,
			end:          slot.End,
			adjacentPrev: i > 0 && slot.Start == prevEnd,
		})
		prevEnd = slot.End
	}
	return metas, nil
}

type cellKey struct {
	day  int
	slot int
}

type gridBuilder struct {
	days  []int
	slots []slotMeta
	cells map[cellKey]string
	// perDay tracks how many cells a subject occupies on each day so
	// placement spreads across distinct days before repeating one.
	perDay map[string]map[int]int
}

func newGridBuilder(days []int, slots []slotMeta) *gridBuilder {
	return &gridBuilder{
		days:   days,
		slots:  slots,
		cells:  make(map[cellKey]string),
		perDay: make(map[string]map[int]int),
	}
}

// buildWeeklyGrid places each subject's weekly quota into the day × slot
// matrix. It fails up front with the full deficit list when the quotas
// cannot fit; lab subjects lacking a contiguous run fail individually while
// the rest of the grid is still produced.
func buildWeeklyGrid(days []int, slots []slotMeta, subjects []models.Subject) ([]models.TimetableDay, []dto.SubjectPlacementFailure, error) {
	capacity := len(days) * len(slots)
	total := 0
	for _, subject := range subjects {
		total += subject.WeeklyHours
	}
	if total > capacity {
		return nil, nil, overCapacityError(subjects, capacity)
	}

	ordered := make([]models.Subject, len(subjects))
	copy(ordered, subjects)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Type.PlacementPriority() < ordered[j].Type.PlacementPriority()
	})

	b := newGridBuilder(days, slots)
	var failures []dto.SubjectPlacementFailure
	for _, subject := range ordered {
		if subject.Type == models.SubjectTypeLab && subject.BlockSize > 1 {
			if ok := b.placeWithBlocks(subject); !ok {
				failures = append(failures, dto.SubjectPlacementFailure{
					SubjectCode: subject.Code,
					BlockSize:   subject.BlockSize,
					Code:        appErrors.ErrNoContiguousBlock.Code,
					Message:     fmt.Sprintf("no run of %d adjacent free slots for %s", subject.BlockSize, subject.Code),
				})
			}
			continue
		}
		b.placeHours(subject.Code, subject.WeeklyHours)
	}

	return b.export(), failures, nil
}

func overCapacityError(subjects []models.Subject, capacity int) error {
	// Distribute the available cells fairly, one hour per subject per
	// cycle, so equally sized subjects report equal shortfalls.
	placed := make([]int, len(subjects))
	remaining := capacity
	for remaining > 0 {
		progress := false
		for i := range subjects {
			if remaining == 0 {
				break
			}
			if placed[i] < subjects[i].WeeklyHours {
				placed[i]++
				remaining--
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	var unmet []models.UnmetSubject
	for i, subject := range subjects {
		if deficit := subject.WeeklyHours - placed[i]; deficit > 0 {
			unmet = append(unmet, models.UnmetSubject{
				SubjectCode:    subject.Code,
				RequestedHours: subject.WeeklyHours,
				PlacedHours:    placed[i],
				Deficit:        deficit,
			})
		}
	}
	capErr := &models.GridCapacityError{
		Message: fmt.Sprintf("requested hours exceed the %d available cells", capacity),
		Unmet:   unmet,
	}
	return appErrors.Wrap(capErr, appErrors.ErrOverCapacity.Code, appErrors.ErrOverCapacity.Status, capErr.Message)
}

func (b *gridBuilder) free(day, slot int) bool {
	_, used := b.cells[cellKey{day: day, slot: slot}]
	return !used
}

func (b *gridBuilder) place(code string, day, slot int) {
	b.cells[cellKey{day: day, slot: slot}] = code
	if b.perDay[code] == nil {
		b.perDay[code] = make(map[int]int)
	}
	b.perDay[code][day]++
}

func (b *gridBuilder) unplaceSubject(code string) {
	for key, owner := range b.cells {
		if owner == code {
			delete(b.cells, key)
		}
	}
	delete(b.perDay, code)
}

// dayOrder returns days sorted by how rarely the subject already uses them,
// day index ascending on ties.
func (b *gridBuilder) dayOrder(code string) []int {
	order := make([]int, len(b.days))
	copy(order, b.days)
	sort.SliceStable(order, func(i, j int) bool {
		ui, uj := b.perDay[code][order[i]], b.perDay[code][order[j]]
		if ui != uj {
			return ui < uj
		}
		return order[i] < order[j]
	})
	return order
}

// placeHours drops count single cells for a subject, round-robin over days.
// The capacity precheck guarantees a free cell exists for every hour.
func (b *gridBuilder) placeHours(code string, count int) {
	for h := 0; h < count; h++ {
		placed := false
		for _, day := range b.dayOrder(code) {
			for slot := range b.slots {
				if b.free(day, slot) {
					b.place(code, day, slot)
					placed = true
					break
				}
			}
			if placed {
				break
			}
		}
		if !placed {
			return
		}
	}
}

// placeWithBlocks places a lab subject as contiguous runs plus any
// remainder hours. On failure every cell of the subject is released so the
// quota invariant holds for the subjects that did place.
func (b *gridBuilder) placeWithBlocks(subject models.Subject) bool {
	blocks := subject.WeeklyHours / subject.BlockSize
	remainder := subject.WeeklyHours % subject.BlockSize

	for i := 0; i < blocks; i++ {
		if !b.placeOneBlock(subject.Code, subject.BlockSize) {
			b.unplaceSubject(subject.Code)
			return false
		}
	}
	b.placeHours(subject.Code, remainder)
	return true
}

func (b *gridBuilder) placeOneBlock(code string, length int) bool {
	for _, day := range b.dayOrder(code) {
		if start, ok := b.findRun(day, length); ok {
			for offset := 0; offset < length; offset++ {
				b.place(code, day, start+offset)
			}
			return true
		}
	}
	return false
}

// findRun locates the earliest run of length adjacent free slots on a day.
func (b *gridBuilder) findRun(day, length int) (int, bool) {
	for start := 0; start+length <= len(b.slots); start++ {
		ok := true
		for offset := 0; offset < length; offset++ {
			slot := start + offset
			if !b.free(day, slot) {
				ok = false
				break
			}
			if offset > 0 && !b.slots[slot].adjacentPrev {
				ok = false
				break
			}
		}
		if ok {
			return start, true
		}
	}
	return 0, false
}

func (b *gridBuilder) export() []models.TimetableDay {
	result := make([]models.TimetableDay, 0, len(b.days))
	for _, day := range b.days {
		entry := models.TimetableDay{Day: day, Slots: make([]models.TimetableSlot, 0, len(b.slots))}
		for slot, meta := range b.slots {
			entry.Slots = append(entry.Slots, models.TimetableSlot{
				StartTime:   meta.start,
				EndTime:     meta.end,
				SubjectCode: b.cells[cellKey{day: day, slot: slot}],
			})
		}
		result = append(result, entry)
	}
	return result
}

func normalizeDays(days []int) []int {
	unique := make(map[int]struct{})
	for _, day := range days {
		if day < 1 || day > 7 {
			continue
		}
		unique[day] = struct{}{}
	}
	result := make([]int, 0, len(unique))
	for day := range unique {
		result = append(result, day)
	}
	sort.Ints(result)
	return result
}
