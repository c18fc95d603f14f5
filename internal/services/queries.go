// Package services – read services
//
// ParticipantService and RunService back the ops API. They only read; every
// roster write goes through RosterStore.
package services

import (
	"context"
	"errors"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-tgstats/internal/domain"
	"github.com/tbourn/go-tgstats/internal/repo"
)

const defaultPageSize = 50

// pageBounds applies the page defaults and returns page, size and offset.
func pageBounds(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

// ParticipantService lists and fetches roster rows.
type ParticipantService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the participant repository used by this service.
	Repo ParticipantRepo
	// Channels restricts reads to the configured channels. Empty allows any.
	Channels []int64
}

func (s *ParticipantService) check(channelID int64) error {
	if len(s.Channels) > 0 && !slices.Contains(s.Channels, channelID) {
		return ErrUnknownChannel
	}
	return nil
}

// ListPage returns a page of channelID's roster ordered by user id, filtered
// by state when state is non-empty, and the total count.
func (s *ParticipantService) ListPage(ctx context.Context, channelID int64, state domain.ParticipantState, page, pageSize int) ([]domain.Participant, int64, error) {
	if err := s.check(channelID); err != nil {
		return nil, 0, err
	}
	_, pageSize, offset := pageBounds(page, pageSize)

	total, err := s.Repo.CountParticipants(ctx, s.DB, channelID, state)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Participant{}, 0, nil
	}

	items, err := s.Repo.ListParticipantsPage(ctx, s.DB, channelID, state, offset, pageSize)
	return items, total, err
}

// Get returns the roster row of (channelID, userID).
func (s *ParticipantService) Get(ctx context.Context, channelID, userID int64) (*domain.Participant, error) {
	if err := s.check(channelID); err != nil {
		return nil, err
	}
	p, err := s.Repo.GetParticipant(ctx, s.DB, channelID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrParticipantNotFound
	}
	return p, err
}

// Stats returns the row count and the latest last_seen for (channelID,
// state), used to build ETags.
func (s *ParticipantService) Stats(ctx context.Context, channelID int64, state domain.ParticipantState) (int64, *time.Time, error) {
	if err := s.check(channelID); err != nil {
		return 0, nil, err
	}
	return s.Repo.ParticipantsStats(ctx, s.DB, channelID, state)
}

// RunService lists and fetches harvest run records.
type RunService struct {
	DB       *gorm.DB
	Repo     RunRepo
	Channels []int64
}

// RunDetail is a run with its probe report.
type RunDetail struct {
	domain.HarvestRun
	Probes []domain.HarvestProbe `json:"probes"`
}

// ListPage returns a page of channelID's runs, most recent first, and the
// total count.
func (s *RunService) ListPage(ctx context.Context, channelID int64, page, pageSize int) ([]domain.HarvestRun, int64, error) {
	if len(s.Channels) > 0 && !slices.Contains(s.Channels, channelID) {
		return nil, 0, ErrUnknownChannel
	}
	_, pageSize, offset := pageBounds(page, pageSize)

	total, err := s.Repo.CountRuns(ctx, s.DB, channelID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.HarvestRun{}, 0, nil
	}
	items, err := s.Repo.ListRunsPage(ctx, s.DB, channelID, offset, pageSize)
	return items, total, err
}

// Get returns one run with its probes.
func (s *RunService) Get(ctx context.Context, id string) (*RunDetail, error) {
	r, err := s.Repo.GetRun(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	probes, err := s.Repo.ListProbes(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	return &RunDetail{HarvestRun: *r, Probes: probes}, nil
}
