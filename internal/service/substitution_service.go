package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/opencampus/uniportal-api/internal/dto"
	"github.com/opencampus/uniportal-api/internal/models"
	"github.com/opencampus/uniportal-api/pkg/config"
	appErrors "github.com/opencampus/uniportal-api/pkg/errors"
	"github.com/opencampus/uniportal-api/pkg/interval"
)

type substitutionClassroomLister interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	ListByTenant(ctx context.Context, tenantID string) ([]models.Classroom, error)
}

type substitutionWindowLister interface {
	ListByTenant(ctx context.Context, tenantID string) ([]models.ClassroomUnavailability, error)
}

// SubstitutionService answers room availability questions and ranks
// replacement rooms when one goes out of service.
type SubstitutionService struct {
	classrooms substitutionClassroomLister
	windows    substitutionWindowLister
	cfg        config.SubstitutionConfig
	logger     *zap.Logger
}

// NewSubstitutionService wires ranker dependencies.
func NewSubstitutionService(classrooms substitutionClassroomLister, windows substitutionWindowLister, cfg config.SubstitutionConfig, logger *zap.Logger) *SubstitutionService {
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = 5
	}
	if cfg.FloorWeight == 0 {
		cfg.FloorWeight = 2.0
	}
	if cfg.CapacityDivisor == 0 {
		cfg.CapacityDivisor = 10.0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubstitutionService{classrooms: classrooms, windows: windows, cfg: cfg, logger: logger}
}

// BlockedClassrooms returns the ids of rooms that must not be booked for the
// given window: rooms with an overlapping unavailability window, unioned with
// rooms whose stored status is UNAVAILABLE even without one. Neither signal
// is trusted alone; disagreement between the two is logged as drift.
func (s *SubstitutionService) BlockedClassrooms(ctx context.Context, tenantID string, window interval.Window) (map[string]bool, error) {
	records, err := s.windows.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unavailability windows")
	}
	blocked := make(map[string]bool)
	for _, record := range records {
		if interval.Overlaps(record.Window(), window) {
			blocked[record.ClassroomID] = true
		}
	}

	rooms, err := s.classrooms.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}
	for _, room := range rooms {
		switch {
		case blocked[room.ID] && room.Status == models.ClassroomStatusAvailable:
			s.logger.Warn("classroom_status_drift",
				zap.String("classroom_id", room.ID),
				zap.String("status", string(room.Status)),
				zap.String("detail", "status AVAILABLE but a blocking window overlaps the queried range"),
			)
		case !blocked[room.ID] && room.Status == models.ClassroomStatusUnavailable:
			s.logger.Warn("classroom_status_drift",
				zap.String("classroom_id", room.ID),
				zap.String("status", string(room.Status)),
				zap.String("detail", "status UNAVAILABLE but no blocking window overlaps the queried range"),
			)
			blocked[room.ID] = true
		}
	}
	return blocked, nil
}

// SuggestSubstitutes ranks replacement rooms for one room over a window.
// Candidates must be free for the whole window, operationally available and
// at least as large as the original; proximity wins, lower score first.
func (s *SubstitutionService) SuggestSubstitutes(ctx context.Context, query dto.SuggestSubstitutesQuery) ([]dto.RankedCandidate, error) {
	original, err := s.classrooms.FindByID(ctx, query.ClassroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	if original.TenantID != query.TenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
	}

	window := interval.Window{Start: query.StartAt, End: query.EndAt}
	blocked, err := s.BlockedClassrooms(ctx, query.TenantID, window)
	if err != nil {
		return nil, err
	}

	rooms, err := s.classrooms.ListByTenant(ctx, query.TenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}

	candidates := RankCandidates(original, rooms, blocked, s.cfg)
	s.logger.Info("substitutes_ranked",
		zap.String("tenant_id", query.TenantID),
		zap.String("classroom_id", query.ClassroomID),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// RankCandidates is the pure ranking core. Score is
// floorWeight*|floor delta| + |capacity delta|/capacityDivisor; ties break
// on room name for determinism.
func RankCandidates(original *models.Classroom, rooms []models.Classroom, blocked map[string]bool, cfg config.SubstitutionConfig) []dto.RankedCandidate {
	var ranked []dto.RankedCandidate
	for _, room := range rooms {
		if room.ID == original.ID {
			continue
		}
		if room.Status != models.ClassroomStatusAvailable {
			continue
		}
		if blocked[room.ID] {
			continue
		}
		if room.Capacity < original.Capacity {
			continue
		}
		score := cfg.FloorWeight*math.Abs(float64(room.Floor-original.Floor)) +
			math.Abs(float64(room.Capacity-original.Capacity))/cfg.CapacityDivisor
		ranked = append(ranked, dto.RankedCandidate{
			ClassroomID: room.ID,
			Name:        room.Name,
			Floor:       room.Floor,
			Capacity:    room.Capacity,
			Score:       score,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score < ranked[j].Score
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > cfg.MaxSuggestions {
		ranked = ranked[:cfg.MaxSuggestions]
	}
	return ranked
}
