package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/uniportal-api/internal/dto"
	"github.com/opencampus/uniportal-api/internal/models"
	"github.com/opencampus/uniportal-api/pkg/cache"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
)

type classroomRepoStub struct {
	byID     map[string]*models.Classroom
	byName   map[string]*models.Classroom
	statuses map[string]models.ClassroomStatus
	deleted  []string
}

func newClassroomRepoStub(rooms ...*models.Classroom) *classroomRepoStub {
	s := &classroomRepoStub{
		byID:     make(map[string]*models.Classroom),
		byName:   make(map[string]*models.Classroom),
		statuses: make(map[string]models.ClassroomStatus),
	}
	for _, room := range rooms {
		s.byID[room.ID] = room
		s.byName[room.Name] = room
	}
	return s
}

func (s *classroomRepoStub) List(context.Context, string, models.ClassroomFilter) ([]models.Classroom, int, error) {
	return nil, 0, nil
}

func (s *classroomRepoStub) ListByTenant(context.Context, string) ([]models.Classroom, error) {
	return nil, nil
}

func (s *classroomRepoStub) FindByID(_ context.Context, id string) (*models.Classroom, error) {
	room, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return room, nil
}

func (s *classroomRepoStub) FindByName(_ context.Context, _, name string) (*models.Classroom, error) {
	room, ok := s.byName[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return room, nil
}

func (s *classroomRepoStub) Create(_ context.Context, room *models.Classroom) error {
	room.ID = "room-new"
	s.byID[room.ID] = room
	s.byName[room.Name] = room
	return nil
}

func (s *classroomRepoStub) Update(context.Context, *models.Classroom) error { return nil }

func (s *classroomRepoStub) UpdateStatus(_ context.Context, id string, status models.ClassroomStatus) error {
	s.statuses[id] = status
	return nil
}

func (s *classroomRepoStub) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type unavailabilityRepoStub struct {
	records map[string]*models.ClassroomUnavailability
	created []*models.ClassroomUnavailability
	deleted []string
}

func newUnavailabilityRepoStub(records ...*models.ClassroomUnavailability) *unavailabilityRepoStub {
	s := &unavailabilityRepoStub{records: make(map[string]*models.ClassroomUnavailability)}
	for _, record := range records {
		s.records[record.ID] = record
	}
	return s
}

func (s *unavailabilityRepoStub) Create(_ context.Context, record *models.ClassroomUnavailability) error {
	record.ID = "win-new"
	s.created = append(s.created, record)
	s.records[record.ID] = record
	return nil
}

func (s *unavailabilityRepoStub) FindByID(_ context.Context, id string) (*models.ClassroomUnavailability, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return record, nil
}

func (s *unavailabilityRepoStub) ListByClassroom(_ context.Context, classroomID string) ([]models.ClassroomUnavailability, error) {
	var out []models.ClassroomUnavailability
	for _, record := range s.records {
		if record.ClassroomID == classroomID {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (s *unavailabilityRepoStub) CountByClassroom(ctx context.Context, classroomID string) (int, error) {
	records, _ := s.ListByClassroom(ctx, classroomID)
	return len(records), nil
}

func (s *unavailabilityRepoStub) Delete(_ context.Context, id string) error {
	delete(s.records, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type lockerStub struct {
	err      error
	acquired []string
	released int
}

func (s *lockerStub) Acquire(_ context.Context, key string) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	s.acquired = append(s.acquired, key)
	return func() { s.released++ }, nil
}

func markRequest(classroomID string, start time.Time, end *time.Time) dto.MarkUnavailableRequest {
	return dto.MarkUnavailableRequest{
		TenantID:    "tenant-1",
		ClassroomID: classroomID,
		StartAt:     start,
		EndAt:       end,
		Reason:      "projector repair",
	}
}

func TestClassroomServiceCreateRejectsDuplicateName(t *testing.T) {
	existing := room("room-1", "A-201", 2, 30, models.ClassroomStatusAvailable)
	svc := NewClassroomService(newClassroomRepoStub(&existing), newUnavailabilityRepoStub(), &lockerStub{}, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateClassroomRequest{
		TenantID: "tenant-1",
		Name:     "A-201",
		Floor:    3,
		Capacity: 40,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestClassroomServiceMarkUnavailableFlipsStatus(t *testing.T) {
	target := room("room-1", "A-201", 2, 30, models.ClassroomStatusAvailable)
	rooms := newClassroomRepoStub(&target)
	windows := newUnavailabilityRepoStub()
	locks := &lockerStub{}
	svc := NewClassroomService(rooms, windows, locks, nil, nil)

	start := time.Now().UTC().Add(-time.Hour)
	record, err := svc.MarkUnavailable(context.Background(), markRequest("room-1", start, nil))
	require.NoError(t, err)
	assert.Equal(t, "room-1", record.ClassroomID)
	assert.Equal(t, models.ClassroomStatusUnavailable, rooms.statuses["room-1"])
	assert.Equal(t, []string{"lock:classroom:room-1"}, locks.acquired)
	assert.Equal(t, 1, locks.released)
}

func TestClassroomServiceMarkUnavailableFutureWindowKeepsStatus(t *testing.T) {
	target := room("room-1", "A-201", 2, 30, models.ClassroomStatusAvailable)
	rooms := newClassroomRepoStub(&target)
	windows := newUnavailabilityRepoStub()
	svc := NewClassroomService(rooms, windows, &lockerStub{}, nil, nil)

	start := time.Now().UTC().AddDate(0, 0, 30)
	end := start.Add(2 * time.Hour)
	record, err := svc.MarkUnavailable(context.Background(), markRequest("room-1", start, &end))
	require.NoError(t, err)
	assert.Equal(t, "room-1", record.ClassroomID)

	_, touched := rooms.statuses["room-1"]
	assert.False(t, touched, "a window starting in the future must not flip the status yet")
}

func TestClassroomServiceMarkUnavailableRejectsOverlap(t *testing.T) {
	target := room("room-1", "A-201", 2, 30, models.ClassroomStatusUnavailable)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	windows := newUnavailabilityRepoStub(&models.ClassroomUnavailability{
		ID:          "win-1",
		TenantID:    "tenant-1",
		ClassroomID: "room-1",
		StartAt:     start,
		EndAt:       &end,
	})
	svc := NewClassroomService(newClassroomRepoStub(&target), windows, &lockerStub{}, nil, nil)

	_, err := svc.MarkUnavailable(context.Background(), markRequest("room-1", start.Add(time.Hour), nil))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, windows.created)

	// A window starting exactly where the existing one ends is fine.
	_, err = svc.MarkUnavailable(context.Background(), markRequest("room-1", end, nil))
	require.NoError(t, err)
}

func TestClassroomServiceMarkUnavailableLockHeld(t *testing.T) {
	target := room("room-1", "A-201", 2, 30, models.ClassroomStatusAvailable)
	locks := &lockerStub{err: cache.ErrLockHeld}
	svc := NewClassroomService(newClassroomRepoStub(&target), newUnavailabilityRepoStub(), locks, nil, nil)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	_, err := svc.MarkUnavailable(context.Background(), markRequest("room-1", start, nil))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.True(t, errors.Is(err, cache.ErrLockHeld))
}

func TestClassroomServiceMarkUnavailableRejectsSelfSubstitute(t *testing.T) {
	target := room("room-1", "A-201", 2, 30, models.ClassroomStatusAvailable)
	svc := NewClassroomService(newClassroomRepoStub(&target), newUnavailabilityRepoStub(), &lockerStub{}, nil, nil)

	req := markRequest("room-1", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), nil)
	req.SubstituteClassroomID = strPtr("room-1")
	_, err := svc.MarkUnavailable(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestClassroomServiceMarkUnavailableRejectsInvertedWindow(t *testing.T) {
	target := room("room-1", "A-201", 2, 30, models.ClassroomStatusAvailable)
	svc := NewClassroomService(newClassroomRepoStub(&target), newUnavailabilityRepoStub(), &lockerStub{}, nil, nil)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)
	_, err := svc.MarkUnavailable(context.Background(), markRequest("room-1", start, &before))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestClassroomServiceClearLastWindowRestoresStatus(t *testing.T) {
	target := room("room-1", "A-201", 2, 30, models.ClassroomStatusUnavailable)
	rooms := newClassroomRepoStub(&target)
	windows := newUnavailabilityRepoStub(&models.ClassroomUnavailability{
		ID:          "win-1",
		TenantID:    "tenant-1",
		ClassroomID: "room-1",
		StartAt:     time.Now().UTC().Add(-time.Hour),
	})
	svc := NewClassroomService(rooms, windows, &lockerStub{}, nil, nil)

	require.NoError(t, svc.ClearUnavailability(context.Background(), "tenant-1", "win-1"))
	assert.Equal(t, []string{"win-1"}, windows.deleted)
	assert.Equal(t, models.ClassroomStatusAvailable, rooms.statuses["room-1"])
}

func TestClassroomServiceClearKeepsStatusWhileWindowsRemain(t *testing.T) {
	target := room("room-1", "A-201", 2, 30, models.ClassroomStatusUnavailable)
	rooms := newClassroomRepoStub(&target)
	base := time.Now().UTC().Add(-24 * time.Hour)
	windows := newUnavailabilityRepoStub(
		&models.ClassroomUnavailability{ID: "win-1", TenantID: "tenant-1", ClassroomID: "room-1", StartAt: base},
		&models.ClassroomUnavailability{ID: "win-2", TenantID: "tenant-1", ClassroomID: "room-1", StartAt: base.Add(time.Hour)},
	)
	svc := NewClassroomService(rooms, windows, &lockerStub{}, nil, nil)

	require.NoError(t, svc.ClearUnavailability(context.Background(), "tenant-1", "win-1"))
	_, touched := rooms.statuses["room-1"]
	assert.False(t, touched, "status stays UNAVAILABLE while another window still covers now")
}

func TestClassroomServiceClearIgnoresExpiredLeftoverWindows(t *testing.T) {
	target := room("room-1", "A-201", 2, 30, models.ClassroomStatusUnavailable)
	rooms := newClassroomRepoStub(&target)
	now := time.Now().UTC()
	expiredEnd := now.Add(-24 * time.Hour)
	windows := newUnavailabilityRepoStub(
		&models.ClassroomUnavailability{ID: "win-1", TenantID: "tenant-1", ClassroomID: "room-1", StartAt: now.Add(-time.Hour)},
		&models.ClassroomUnavailability{ID: "win-2", TenantID: "tenant-1", ClassroomID: "room-1", StartAt: now.Add(-48 * time.Hour), EndAt: &expiredEnd},
	)
	svc := NewClassroomService(rooms, windows, &lockerStub{}, nil, nil)

	// Clearing the active window reverts the status even though an expired
	// record remains for history.
	require.NoError(t, svc.ClearUnavailability(context.Background(), "tenant-1", "win-1"))
	assert.Equal(t, models.ClassroomStatusAvailable, rooms.statuses["room-1"])
}

func TestClassroomServiceClearRejectsForeignTenant(t *testing.T) {
	windows := newUnavailabilityRepoStub(&models.ClassroomUnavailability{
		ID:          "win-1",
		TenantID:    "tenant-other",
		ClassroomID: "room-1",
		StartAt:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	})
	svc := NewClassroomService(newClassroomRepoStub(), windows, &lockerStub{}, nil, nil)

	err := svc.ClearUnavailability(context.Background(), "tenant-1", "win-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, windows.deleted)
}

func TestClassroomServiceDeleteRefusesWithWindows(t *testing.T) {
	target := room("room-1", "A-201", 2, 30, models.ClassroomStatusUnavailable)
	rooms := newClassroomRepoStub(&target)
	windows := newUnavailabilityRepoStub(&models.ClassroomUnavailability{
		ID:          "win-1",
		TenantID:    "tenant-1",
		ClassroomID: "room-1",
		StartAt:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	})
	svc := NewClassroomService(rooms, windows, &lockerStub{}, nil, nil)

	err := svc.Delete(context.Background(), "tenant-1", "room-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, rooms.deleted)
}
