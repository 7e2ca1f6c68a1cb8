package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/uniportal-api/internal/dto"
	"github.com/opencampus/uniportal-api/internal/models"
	"github.com/opencampus/uniportal-api/pkg/config"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
)

type subjectRepoStub struct {
	byID       map[string]*models.Subject
	byCode     map[string]*models.Subject
	referenced bool
	archived   []string
	deleted    []string
}

func newSubjectRepoStub(subjects ...*models.Subject) *subjectRepoStub {
	s := &subjectRepoStub{
		byID:   make(map[string]*models.Subject),
		byCode: make(map[string]*models.Subject),
	}
	for _, subject := range subjects {
		s.byID[subject.ID] = subject
		s.byCode[subject.Code] = subject
	}
	return s
}

func (s *subjectRepoStub) Create(_ context.Context, subject *models.Subject) error {
	subject.ID = "sub-new"
	s.byID[subject.ID] = subject
	s.byCode[subject.Code] = subject
	return nil
}

func (s *subjectRepoStub) Update(context.Context, *models.Subject) error { return nil }

func (s *subjectRepoStub) FindByID(_ context.Context, id string) (*models.Subject, error) {
	subject, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return subject, nil
}

func (s *subjectRepoStub) FindByCode(_ context.Context, _ string, _, _ int, _, code string) (*models.Subject, error) {
	subject, ok := s.byCode[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return subject, nil
}

func (s *subjectRepoStub) List(context.Context, string, models.SubjectFilter) ([]models.Subject, int, error) {
	return nil, 0, nil
}

func (s *subjectRepoStub) IsReferenced(context.Context, string, string) (bool, error) {
	return s.referenced, nil
}

func (s *subjectRepoStub) SetArchived(_ context.Context, id string, _ bool) error {
	s.archived = append(s.archived, id)
	return nil
}

func (s *subjectRepoStub) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func subjectRequest(code, subjectType string, totalHours, blockSize int) dto.CreateSubjectRequest {
	return dto.CreateSubjectRequest{
		TenantID:           "tenant-1",
		Code:               code,
		Name:               "Subject " + code,
		Type:               subjectType,
		TotalDurationHours: totalHours,
		BlockSize:          blockSize,
		Year:               2,
		Semester:           3,
		AcademicPeriod:     "2026-ODD",
	}
}

func TestSubjectServiceCreateDerivesWeeklyHours(t *testing.T) {
	svc := NewSubjectService(newSubjectRepoStub(), config.SchedulerConfig{TermWeeks: 12}, nil, nil)

	subject, err := svc.Create(context.Background(), subjectRequest("MATH", "CORE", 40, 0))
	require.NoError(t, err)
	assert.Equal(t, 4, subject.WeeklyHours, "40 hours over 12 weeks rounds up to 4 per week")

	subject, err = svc.Create(context.Background(), subjectRequest("ENG", "ELECTIVE", 24, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, subject.WeeklyHours)
}

func TestSubjectServiceCreateLabNeedsBlockSize(t *testing.T) {
	svc := NewSubjectService(newSubjectRepoStub(), config.SchedulerConfig{TermWeeks: 12}, nil, nil)

	_, err := svc.Create(context.Background(), subjectRequest("PHY-LAB", "LAB", 24, 0))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	subject, err := svc.Create(context.Background(), subjectRequest("PHY-LAB", "LAB", 24, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, subject.BlockSize)
}

func TestSubjectServiceCreateRejectsBlockSizeOutsideLabs(t *testing.T) {
	svc := NewSubjectService(newSubjectRepoStub(), config.SchedulerConfig{TermWeeks: 12}, nil, nil)

	_, err := svc.Create(context.Background(), subjectRequest("MATH", "CORE", 40, 2))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceCreateRejectsDuplicateCode(t *testing.T) {
	existing := &models.Subject{ID: "sub-1", TenantID: "tenant-1", Code: "MATH"}
	svc := NewSubjectService(newSubjectRepoStub(existing), config.SchedulerConfig{TermWeeks: 12}, nil, nil)

	_, err := svc.Create(context.Background(), subjectRequest("MATH", "CORE", 40, 0))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceUpdateRederivesWeeklyHours(t *testing.T) {
	existing := &models.Subject{
		ID:                 "sub-1",
		TenantID:           "tenant-1",
		Code:               "MATH",
		Type:               models.SubjectTypeCore,
		TotalDurationHours: 40,
		WeeklyHours:        4,
	}
	svc := NewSubjectService(newSubjectRepoStub(existing), config.SchedulerConfig{TermWeeks: 12}, nil, nil)

	hours := 25
	subject, err := svc.Update(context.Background(), "tenant-1", "sub-1", dto.UpdateSubjectRequest{
		TotalDurationHours: &hours,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, subject.WeeklyHours, "25 hours over 12 weeks rounds up to 3 per week")
}

func TestSubjectServiceDeleteArchivesWhenReferenced(t *testing.T) {
	existing := &models.Subject{ID: "sub-1", TenantID: "tenant-1", Code: "MATH"}
	repo := newSubjectRepoStub(existing)
	repo.referenced = true
	svc := NewSubjectService(repo, config.SchedulerConfig{TermWeeks: 12}, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "tenant-1", "sub-1"))
	assert.Equal(t, []string{"sub-1"}, repo.archived)
	assert.Empty(t, repo.deleted)
}

func TestSubjectServiceDeleteRemovesUnreferenced(t *testing.T) {
	existing := &models.Subject{ID: "sub-1", TenantID: "tenant-1", Code: "MATH"}
	repo := newSubjectRepoStub(existing)
	svc := NewSubjectService(repo, config.SchedulerConfig{TermWeeks: 12}, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "tenant-1", "sub-1"))
	assert.Empty(t, repo.archived)
	assert.Equal(t, []string{"sub-1"}, repo.deleted)
}

func TestSubjectServiceGetRejectsForeignTenant(t *testing.T) {
	existing := &models.Subject{ID: "sub-1", TenantID: "tenant-other", Code: "MATH"}
	svc := NewSubjectService(newSubjectRepoStub(existing), config.SchedulerConfig{TermWeeks: 12}, nil, nil)

	_, err := svc.Get(context.Background(), "tenant-1", "sub-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
